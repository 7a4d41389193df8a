package policy

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"coursehub/api-gateway/internal/auth"
	"coursehub/api-gateway/models"
)

type fakeSettings struct {
	values map[string]string
	getErr error
	setErr error
}

func (s *fakeSettings) GetSetting(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.values[key]
	if !ok {
		return "", models.ErrNotFound
	}
	return v, nil
}

func (s *fakeSettings) UpsertSetting(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}

type allowAllGate struct{ admin bool }

func (g *allowAllGate) CurrentUser(ctx context.Context) (*auth.User, error) {
	return &auth.User{ID: uuid.New()}, nil
}

func (g *allowAllGate) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return g.admin, nil
}

func newTestStore(settings *fakeSettings, admin bool) *Store {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewStore(settings, &allowAllGate{admin: admin}, log)
}

func TestGet_DefaultsToPromptWhenAbsent(t *testing.T) {
	s := newTestStore(&fakeSettings{}, true)

	mode, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if mode != models.SyncPrompt {
		t.Errorf("Expected default prompt, got %q", mode)
	}
}

func TestGet_DefaultsToPromptWhenUnrecognised(t *testing.T) {
	s := newTestStore(&fakeSettings{values: map[string]string{SettingKey: "sometimes"}}, true)

	mode, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if mode != models.SyncPrompt {
		t.Errorf("Expected prompt fallback for unrecognised value, got %q", mode)
	}
}

func TestGet_StoreFailureSurfaces(t *testing.T) {
	boom := &models.StoreError{Kind: models.StoreConnection, Op: "select", Err: errors.New("down")}
	s := newTestStore(&fakeSettings{getErr: boom}, true)

	_, err := s.Get(context.Background())
	if err == nil {
		t.Fatal("Expected store failure to surface, not default silently")
	}
}

func TestSet_RoundTrip(t *testing.T) {
	settings := &fakeSettings{}
	s := newTestStore(settings, true)
	ctx := context.Background()

	if err := s.Set(ctx, models.SyncAlways); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	mode, err := s.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if mode != models.SyncAlways {
		t.Errorf("Expected always after set, got %q", mode)
	}

	// Last write wins.
	if err := s.Set(ctx, models.SyncNever); err != nil {
		t.Fatalf("Second set failed: %v", err)
	}
	mode, _ = s.Get(ctx)
	if mode != models.SyncNever {
		t.Errorf("Expected never after second set, got %q", mode)
	}
}

func TestSet_RejectsUnknownMode(t *testing.T) {
	s := newTestStore(&fakeSettings{}, true)

	err := s.Set(context.Background(), models.SyncMode("sometimes"))
	if !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSet_RequiresAdmin(t *testing.T) {
	settings := &fakeSettings{}
	s := newTestStore(settings, false)

	err := s.Set(context.Background(), models.SyncAlways)
	if !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}
	if len(settings.values) != 0 {
		t.Error("Setting must not be written when authorization fails")
	}
}
