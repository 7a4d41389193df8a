// Package policy stores the organization-wide propagation sync mode.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"coursehub/api-gateway/internal/auth"
	"coursehub/api-gateway/models"
)

// SettingKey is where the sync mode lives among the organization settings.
const SettingKey = "course_sync_mode"

// settingsStore is the slice of the store adapter this package consumes.
type settingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	UpsertSetting(ctx context.Context, key, value string) error
}

// Store reads and writes the sync mode. Reads are forgiving (absent or
// unrecognised values fall back to prompt); writes validate and require the
// admin role.
type Store struct {
	settings settingsStore
	gate     auth.Gate
	log      *logrus.Logger
}

func NewStore(settings settingsStore, gate auth.Gate, log *logrus.Logger) *Store {
	return &Store{settings: settings, gate: gate, log: log}
}

// Get returns the current sync mode, defaulting to prompt when the setting is
// absent. Store failures other than not-found surface to the caller.
func (s *Store) Get(ctx context.Context) (models.SyncMode, error) {
	raw, err := s.settings.GetSetting(ctx, SettingKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.DefaultSyncMode, nil
		}
		return "", err
	}
	return models.ParseSyncMode(raw), nil
}

// Set writes the sync mode. Last write wins; no versioning.
func (s *Store) Set(ctx context.Context, mode models.SyncMode) error {
	if _, err := auth.RequireAdmin(ctx, s.gate); err != nil {
		return err
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown sync mode %q", models.ErrInvalidInput, string(mode))
	}
	if err := s.settings.UpsertSetting(ctx, SettingKey, string(mode)); err != nil {
		return err
	}
	s.log.WithField("sync_mode", string(mode)).Info("Propagation policy updated")
	return nil
}
