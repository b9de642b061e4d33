// Package auth handles accounts, sessions and the admin bootstrap.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
	"codstore.dev/storefront/pkg/redis"
)

const (
	VerifyTokenTTL = 24 * time.Hour
	ResetTokenTTL  = time.Hour
)

type UserStore interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	AdminExists(ctx context.Context) (bool, error)
}

type TokenStore interface {
	Issue(ctx context.Context, purpose redis.TokenPurpose, subject string, ttl time.Duration) (string, error)
	Redeem(ctx context.Context, purpose redis.TokenPurpose, token string) (string, error)
}

// Options holds the externally configured parts of the service.
type Options struct {
	PublicBaseURL  string
	BootstrapToken string
	AdminEmail     string
	AdminPassword  string
	AdminName      string
}

type Service struct {
	users  UserStore
	tokens TokenStore
	mailer Mailer
	hasher *PasswordHasher
	jwt    *JWTManager
	opts   Options
}

func NewService(users UserStore, tokens TokenStore, mailer Mailer, hasher *PasswordHasher, jwt *JWTManager, opts Options) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &Service{users: users, tokens: tokens, mailer: mailer, hasher: hasher, jwt: jwt, opts: opts}
}

func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// Register creates an unverified account and mails a verification link.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        models.NormalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         models.RoleUser,
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
	}
	user.SetTimestamps()
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.sendVerification(ctx, user)
	log.Printf("Registered user %s", user.Email)
	return user, nil
}

func (s *Service) sendVerification(ctx context.Context, user *models.User) {
	token, err := s.tokens.Issue(ctx, redis.PurposeVerifyEmail, user.ID.Hex(), VerifyTokenTTL)
	if err != nil {
		log.Printf("Warning: failed to issue verification token for %s: %v", user.Email, err)
		return
	}
	if err := s.mailer.SendVerification(ctx, user.Email, s.link("/verify-email", token)); err != nil {
		log.Printf("Warning: failed to send verification email to %s: %v", user.Email, err)
	}
}

func (s *Service) link(path, token string) string {
	return strings.TrimRight(s.opts.PublicBaseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// Verify redeems a verification token.
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	user, err := s.redeem(ctx, redis.PurposeVerifyEmail, token)
	if err != nil {
		return nil, err
	}
	if user.Verified {
		return user, nil
	}
	user.Verified = true
	user.SetTimestamps()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) redeem(ctx context.Context, purpose redis.TokenPurpose, token string) (*models.User, error) {
	subject, err := s.tokens.Redeem(ctx, purpose, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	id, err := bson.ObjectIDFromHex(subject)
	if err != nil {
		return nil, apperr.Validation("token", "token is invalid or has expired")
	}
	user, err := s.users.FindByID(ctx, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, apperr.Validation("token", "token is invalid or has expired")
	}
	return user, err
}

// Resend issues a new verification link. Unknown or verified addresses are
// ignored so the response does not reveal which accounts exist.
func (s *Service) Resend(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, models.NormalizeEmail(email))
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !user.Verified {
		s.sendVerification(ctx, user)
	}
	return nil
}

func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	invalid := apperr.Unauthorized("invalid email or password")

	user, err := s.users.FindByEmail(ctx, models.NormalizeEmail(req.Email))
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, invalid
	}
	if !user.Verified {
		return nil, apperr.Forbidden("email_not_verified", "verify your email address before signing in")
	}

	token, expiresAt, err := s.jwt.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &models.AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Forgot mails a reset link when the account exists.
func (s *Service) Forgot(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, models.NormalizeEmail(email))
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.tokens.Issue(ctx, redis.PurposePasswordReset, user.ID.Hex(), ResetTokenTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.link("/reset-password", token)); err != nil {
		log.Printf("Warning: failed to send password reset email to %s: %v", user.Email, err)
	}
	return nil
}

// Reset sets a new password. A reset link proves control of the address,
// so the account is marked verified as well.
func (s *Service) Reset(ctx context.Context, req *models.ResetPasswordRequest) error {
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return err
	}
	user, err := s.redeem(ctx, redis.PurposePasswordReset, req.Token)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.Verified = true
	user.SetTimestamps()
	return s.users.Update(ctx, user)
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, ErrPasswordTooLong) {
		return "", apperr.Validation("password", err.Error())
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Resolve maps a session token to the caller. The role is read from the
// stored user, so demoted or deleted accounts lose access immediately.
func (s *Service) Resolve(ctx context.Context, token string) (models.Identity, error) {
	claims, err := s.jwt.Validate(token)
	if errors.Is(err, ErrExpiredToken) {
		return models.Identity{}, apperr.Unauthorized("session has expired")
	}
	if err != nil {
		return models.Identity{}, apperr.Unauthorized("invalid session token")
	}

	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.Identity{}, apperr.Unauthorized("invalid session token")
	}
	user, err := s.users.FindByID(ctx, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return models.Identity{}, apperr.Unauthorized("account no longer exists")
	}
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

func (s *Service) Profile(ctx context.Context, caller models.Identity) (*models.User, error) {
	if caller.IsAnonymous() {
		return nil, apperr.Unauthorized("authentication required")
	}
	return s.users.FindByID(ctx, caller.UserID)
}

func (s *Service) UpdateProfile(ctx context.Context, caller models.Identity, req *models.UpdateProfileRequest) (*models.User, error) {
	if req.IsEmpty() {
		return nil, apperr.Validation("body", "no fields to update")
	}
	user, err := s.Profile(ctx, caller)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 2 {
			return nil, apperr.Validation("name", "name must be at least 2 characters")
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		user.Address = strings.TrimSpace(*req.Address)
	}
	user.SetTimestamps()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, caller models.Identity, req *models.ChangePasswordRequest) error {
	user, err := s.Profile(ctx, caller)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		return apperr.Validation("current_password", "current password is incorrect")
	}
	hash, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.SetTimestamps()
	return s.users.Update(ctx, user)
}

// UpdateAdminAccount changes the admin's email and/or password.
func (s *Service) UpdateAdminAccount(ctx context.Context, caller models.Identity, req *models.UpdateAdminAccountRequest) (*models.User, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" && req.NewPassword == "" {
		return nil, apperr.Validation("body", "provide an email or a new password")
	}
	user, err := s.Profile(ctx, caller)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, apperr.Forbidden("admin_required", "admin access required")
	}

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return nil, apperr.Validation("current_password", "current password is required to set a new password")
		}
		if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
			return nil, apperr.Validation("current_password", "current password is incorrect")
		}
		hash, err := s.hashPassword(req.NewPassword)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if email != "" {
		user.Email = email
	}
	user.SetTimestamps()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("Admin account %s updated", user.ID.Hex())
	return user, nil
}

// Bootstrap creates the first admin from the configured defaults.
func (s *Service) Bootstrap(ctx context.Context, token string) (*models.User, error) {
	if s.opts.BootstrapToken == "" {
		return nil, apperr.Unavailable("bootstrap_disabled", "admin bootstrap is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.BootstrapToken)) != 1 {
		return nil, apperr.Forbidden("invalid_bootstrap_token", "invalid bootstrap token")
	}
	if s.opts.AdminEmail == "" || s.opts.AdminPassword == "" {
		return nil, apperr.Unavailable("bootstrap_incomplete", "default admin credentials are not configured")
	}

	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("admin_exists", "an admin account already exists")
	}

	hash, err := s.hashPassword(s.opts.AdminPassword)
	if err != nil {
		return nil, err
	}
	admin := &models.User{
		Name:         s.opts.AdminName,
		Email:        models.NormalizeEmail(s.opts.AdminEmail),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Verified:     true,
	}
	admin.SetTimestamps()
	if err := s.users.Insert(ctx, admin); err != nil {
		return nil, err
	}
	log.Printf("Bootstrapped admin account %s", admin.Email)
	return admin, nil
}
