// Package media stores product images in S3 under their content hash.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
)

const hashPrefix = "sha256:"

type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Blob describes a stored image.
type Blob struct {
	Hash        string `json:"hash"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Existed     bool   `json:"existed"`
}

// SignedURL is a temporary public link to a blob.
type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Store struct {
	objects  objectAPI
	presign  presignAPI
	bucket   string
	prefix   string
	maxBytes int64
	urlTTL   time.Duration
}

// NewS3Store returns nil when no bucket is configured.
func NewS3Store(ctx context.Context, cfg global.Config) (*Store, error) {
	if cfg.S3Bucket == "" {
		log.Println("Warning: S3_BUCKET not set, media uploads disabled")
		return nil, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true // MinIO, LocalStack
		}
	})

	return &Store{
		objects:  client,
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.S3Bucket,
		prefix:   cfg.S3Prefix,
		maxBytes: cfg.MediaMaxBytes,
		urlTTL:   cfg.MediaURLTTL,
	}, nil
}

// ContentHash returns the "sha256:<hex>" identifier of data.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hashPrefix + hex.EncodeToString(sum[:])
}

// ParseHash validates a content hash and returns its hex digest.
func ParseHash(hash string) (string, error) {
	digest, ok := strings.CutPrefix(hash, hashPrefix)
	if !ok || len(digest) != sha256.Size*2 {
		return "", apperr.Validation("hash", "expected sha256:<64 hex characters>")
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", apperr.Validation("hash", "expected sha256:<64 hex characters>")
	}
	return strings.ToLower(digest), nil
}

func (s *Store) key(digest string) string {
	return s.prefix + digest
}

// Upload stores an image. Uploading the same bytes twice is a no-op.
func (s *Store) Upload(ctx context.Context, r io.Reader) (*Blob, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, apperr.Validation("file", "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.Validation("file", fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.Validation("file", fmt.Sprintf("unsupported content type %s", contentType))
	}

	blob := &Blob{Hash: ContentHash(data), ContentType: contentType, Size: int64(len(data))}
	key := s.key(strings.TrimPrefix(blob.Hash, hashPrefix))

	_, err = s.objects.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		blob.Existed = true
		return blob, nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return nil, fmt.Errorf("s3 head failed for %s: %w", blob.Hash, err)
	}

	_, err = s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put failed for %s: %w", blob.Hash, err)
	}
	log.Printf("Stored media %s (%s, %d bytes)", blob.Hash, contentType, blob.Size)
	return blob, nil
}

// URL returns a presigned GET link for hash.
func (s *Store) URL(ctx context.Context, hash string) (*SignedURL, error) {
	digest, err := ParseHash(hash)
	if err != nil {
		return nil, err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(digest)),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", hash, err)
	}
	return &SignedURL{URL: req.URL, ExpiresAt: time.Now().Add(s.urlTTL)}, nil
}
