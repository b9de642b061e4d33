// Package settings serves the admin-editable store configuration.
package settings

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/models"
)

type Store interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	UpdateValue(ctx context.Context, key string, value interface{}, at time.Time) error
	SeedDefaults(ctx context.Context, defaults []models.Setting) (int, error)
}

// Cache holds the full settings list between reads.
type Cache interface {
	Get(ctx context.Context) ([]models.Setting, bool, error)
	Set(ctx context.Context, settings []models.Setting) error
	Invalidate(ctx context.Context) error
}

// Service reads through the cache for display paths and straight from the
// store for decisions that must see the latest value.
type Service struct {
	store   Store
	cache   Cache
	sfGroup singleflight.Group
	now     func() time.Time
}

func NewService(store Store, cache Cache) *Service {
	return &Service{store: store, cache: cache, now: time.Now}
}

// Seed inserts the default settings that are missing.
func (s *Service) Seed(ctx context.Context) error {
	inserted, err := s.store.SeedDefaults(ctx, models.DefaultSettings())
	if err != nil {
		return err
	}
	if inserted > 0 {
		log.Printf("Seeded %d default settings", inserted)
		s.invalidate(ctx)
	}
	return nil
}

func (s *Service) cached(ctx context.Context) ([]models.Setting, error) {
	settings, found, err := s.cache.Get(ctx)
	if err != nil {
		log.Printf("[settings] Warning: cache read failed: %v", err)
	}
	if found {
		return settings, nil
	}

	val, err, _ := s.sfGroup.Do("settings", func() (interface{}, error) {
		loaded, err := s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, loaded); err != nil {
			log.Printf("[settings] Warning: failed to cache settings: %v", err)
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]models.Setting), nil
}

// ListPublic returns the settings flagged public.
func (s *Service) ListPublic(ctx context.Context) ([]models.Setting, error) {
	all, err := s.cached(ctx)
	if err != nil {
		return nil, err
	}
	public := []models.Setting{}
	for _, setting := range all {
		if setting.Public {
			public = append(public, setting)
		}
	}
	return public, nil
}

func (s *Service) ListAll(ctx context.Context) ([]models.Setting, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, key string) (*models.Setting, error) {
	return s.store.Get(ctx, key)
}

// Update coerces raw to the setting's type and stores it.
func (s *Service) Update(ctx context.Context, key string, raw interface{}) (*models.Setting, error) {
	setting, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !setting.Editable {
		return nil, apperr.Forbidden("setting_not_editable", fmt.Sprintf("setting %q cannot be edited", key))
	}

	value, err := setting.Coerce(raw)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.store.UpdateValue(ctx, key, value, now); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	setting.Value = value
	setting.UpdatedAt = now
	return setting, nil
}

// Value returns the cached value of key, or def when it is missing or
// cannot be read.
func (s *Service) Value(ctx context.Context, key string, def interface{}) interface{} {
	all, err := s.cached(ctx)
	if err != nil {
		log.Printf("[settings] Warning: using default for %s: %v", key, err)
		return def
	}
	for _, setting := range all {
		if setting.Key == key {
			return setting.Value
		}
	}
	return def
}

// Number reads key from the store. ok is false when the setting does not
// exist or does not hold a number.
func (s *Service) Number(ctx context.Context, key string) (value float64, ok bool, err error) {
	setting, err := s.store.Get(ctx, key)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, ok := models.ToNumber(setting.Value)
	return n, ok, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("[settings] Warning: failed to invalidate cache: %v", err)
	}
}
