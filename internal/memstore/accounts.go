package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/models"
	"codstore.dev/storefront/pkg/redis"
)

type Users struct {
	mu    sync.Mutex
	items map[bson.ObjectID]*models.User
}

func NewUsers() *Users {
	return &Users{items: map[bson.ObjectID]*models.User{}}
}

func (s *Users) emailTaken(email string, except bson.ObjectID) bool {
	for id, u := range s.items {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *Users) Insert(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(user.Email, bson.NilObjectID) {
		return apperr.Conflict("email_taken", "an account with this email already exists")
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	s.items[user.ID] = clone(user)
	return nil
}

func (s *Users) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return nil, apperr.NotFound("user", id.Hex())
	}
	return clone(u), nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.items {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, apperr.NotFound("user", email)
}

func (s *Users) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[user.ID]; !ok {
		return apperr.NotFound("user", user.ID.Hex())
	}
	if s.emailTaken(user.Email, user.ID) {
		return apperr.Conflict("email_taken", "an account with this email already exists")
	}
	s.items[user.ID] = clone(user)
	return nil
}

func (s *Users) AdminExists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.items {
		if u.Role == models.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

// Tokens keeps single-use tokens in memory. Expiry is checked on redemption.
type Tokens struct {
	mu    sync.Mutex
	items map[string]tokenEntry
	last  map[redis.TokenPurpose]string
}

type tokenEntry struct {
	subject   string
	expiresAt time.Time
}

func NewTokens() *Tokens {
	return &Tokens{items: map[string]tokenEntry{}, last: map[redis.TokenPurpose]string{}}
}

func (s *Tokens) Issue(ctx context.Context, purpose redis.TokenPurpose, subject string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := global.NewSecretToken()
	s.items[string(purpose)+":"+token] = tokenEntry{subject: subject, expiresAt: time.Now().Add(ttl)}
	s.last[purpose] = token
	return token, nil
}

func (s *Tokens) Redeem(ctx context.Context, purpose redis.TokenPurpose, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := string(purpose) + ":" + token
	e, ok := s.items[k]
	delete(s.items, k)
	if !ok || time.Now().After(e.expiresAt) {
		return "", apperr.Validation("token", "token is invalid or has expired")
	}
	return e.subject, nil
}

// Last returns the most recently issued token for purpose.
func (s *Tokens) Last(purpose redis.TokenPurpose) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[purpose]
}

type Settings struct {
	mu    sync.Mutex
	items map[string]models.Setting
}

func NewSettings(defaults ...models.Setting) *Settings {
	s := &Settings{items: map[string]models.Setting{}}
	for _, d := range defaults {
		s.items[d.Key] = d
	}
	return s
}

func (s *Settings) List(ctx context.Context) ([]models.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Setting{}
	for _, v := range s.items {
		out = append(out, v)
	}
	return out, nil
}

func (s *Settings) Get(ctx context.Context, key string) (*models.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, apperr.NotFound("setting", key)
	}
	return &v, nil
}

func (s *Settings) UpdateValue(ctx context.Context, key string, value interface{}, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return apperr.NotFound("setting", key)
	}
	v.Value, v.UpdatedAt = value, at
	s.items[key] = v
	return nil
}

func (s *Settings) SeedDefaults(ctx context.Context, defaults []models.Setting) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range defaults {
		if _, ok := s.items[d.Key]; !ok {
			s.items[d.Key] = d
			n++
		}
	}
	return n, nil
}

// Set stores value directly, bypassing editability checks.
func (s *Settings) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.items[key]
	v.Key, v.Value = key, value
	if v.Type == "" {
		v.Type = models.SettingNumber
	}
	s.items[key] = v
}

// Delete removes key.
func (s *Settings) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// NoCache never holds anything.
type NoCache struct{}

func (NoCache) Get(ctx context.Context) ([]models.Setting, bool, error) { return nil, false, nil }
func (NoCache) Set(ctx context.Context, settings []models.Setting) error { return nil }
func (NoCache) Invalidate(ctx context.Context) error                     { return nil }
