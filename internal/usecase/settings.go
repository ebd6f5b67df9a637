package usecase

import (
	"context"
	"errors"

	"github.com/1282saa/ringringv2/internal/domain"
	"github.com/1282saa/ringringv2/internal/store"
)

// SettingsStore is the store surface the settings service depends on.
type SettingsStore interface {
	Put(ctx context.Context, record any) error
	GetSettings(ctx context.Context, deviceID string) (*domain.SettingsRecord, error)
}

// SettingsService persists per-device practice preferences.
type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(s SettingsStore) (*SettingsService, error) {
	if s == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	return &SettingsService{store: s}, nil
}

// Save overwrites the device's settings wholesale.
func (s *SettingsService) Save(ctx context.Context, deviceID string, settings map[string]any) error {
	if deviceID == "" {
		return newError(ErrorInvalidInput, "missing_device", nil)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	rec := store.NewSettingsRecord(deviceID, settings)
	if err := s.store.Put(ctx, rec); err != nil {
		return newError(ErrorInternal, "settings_write_error", err)
	}
	return nil
}

// Get returns the device's settings; an empty map when none were saved yet.
func (s *SettingsService) Get(ctx context.Context, deviceID string) (map[string]any, error) {
	if deviceID == "" {
		return nil, newError(ErrorInvalidInput, "missing_device", nil)
	}
	rec, err := s.store.GetSettings(ctx, deviceID)
	if err != nil {
		return nil, newError(ErrorInternal, "settings_read_error", err)
	}
	if rec == nil || rec.Settings == nil {
		return map[string]any{}, nil
	}
	return rec.Settings, nil
}
