package store

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"coursehub/api-gateway/models"
)

func testClient() *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := New(nil, log)
	c.sleep = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	return c
}

func TestClassifyKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want models.StoreErrorKind
	}{
		{"timeout message", errors.New("net/http: request timed out"), models.StoreTimeout},
		{"deadline", context.DeadlineExceeded, models.StoreTimeout},
		{"connection refused", errors.New("dial tcp: connection refused"), models.StoreConnection},
		{"no such host", errors.New("dial tcp: lookup db: no such host"), models.StoreConnection},
		{"duplicate key", errors.New(`duplicate key value violates unique constraint "calendar_events_pkey"`), models.StoreConstraint},
		{"check violation", errors.New("new row violates check constraint"), models.StoreConstraint},
		{"opaque", errors.New("something else"), models.StoreOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyKind(tc.err); got != tc.want {
				t.Errorf("classifyKind(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestWithRetry_RetriesRetryableFailures(t *testing.T) {
	c := testClient()
	attempts := 0
	err := c.withRetry(context.Background(), "select", func() error {
		attempts++
		return errors.New("connection refused")
	})

	if attempts != maxStoreAttempts {
		t.Errorf("Expected %d attempts, got %d", maxStoreAttempts, attempts)
	}
	var storeErr *models.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Expected StoreError, got %v", err)
	}
	if storeErr.Kind != models.StoreConnection {
		t.Errorf("Expected connection kind, got %s", storeErr.Kind)
	}
}

func TestWithRetry_DoesNotRetryConstraintViolations(t *testing.T) {
	c := testClient()
	attempts := 0
	err := c.withRetry(context.Background(), "insert", func() error {
		attempts++
		return errors.New("duplicate key value violates unique constraint")
	})

	if attempts != 1 {
		t.Errorf("Constraint violations must not be retried, got %d attempts", attempts)
	}
	var storeErr *models.StoreError
	if !errors.As(err, &storeErr) || storeErr.Kind != models.StoreConstraint {
		t.Fatalf("Expected constraint StoreError, got %v", err)
	}
	if storeErr.Retryable() {
		t.Error("Constraint violations must not report as retryable")
	}
}

func TestWithRetry_SucceedsAfterTransientFailure(t *testing.T) {
	c := testClient()
	attempts := 0
	err := c.withRetry(context.Background(), "select", func() error {
		attempts++
		if attempts == 1 {
			return errors.New("request timed out")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success after transient failure, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestWithRetry_StopsOnCancelledContext(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := New(nil, log) // real sleep, so the cancelled context always wins the select
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := c.withRetry(ctx, "select", func() error {
		attempts++
		return errors.New("request timed out")
	})

	if attempts != 1 {
		t.Errorf("Expected no further attempts after cancellation, got %d", attempts)
	}
	if err == nil {
		t.Fatal("Expected an error from a cancelled retry loop")
	}
}

func TestEventWriteMap_OmitsIDAndCarriesDiscriminator(t *testing.T) {
	tplID := uuid.New()
	ev := models.CalendarEvent{
		ID:         uuid.New(),
		IsTemplate: false,
		TemplateID: &tplID,
		Title:      "Scrum Basics",
		Dates:      "2025-06-01",
		Status:     models.StatusDraft,
	}

	row := eventWriteMap(ev, time.Now())
	if _, ok := row["id"]; ok {
		t.Error("The id column must be left to the database")
	}
	if row["is_template"] != false {
		t.Errorf("Expected is_template false, got %v", row["is_template"])
	}
	if row["template_id"] != tplID.String() {
		t.Errorf("Expected template_id %s, got %v", tplID, row["template_id"])
	}
	if row["title"] != "Scrum Basics" || row["dates"] != "2025-06-01" {
		t.Errorf("Row translation lost fields: %v", row)
	}
	if _, ok := row["created_at"]; !ok {
		t.Error("Insert must stamp created_at")
	}
}

func TestEventWriteMap_NoTemplateIDForStandaloneEvents(t *testing.T) {
	row := eventWriteMap(models.CalendarEvent{Title: "Standalone"}, time.Now())
	if _, ok := row["template_id"]; ok {
		t.Error("Standalone events must not write a template_id column")
	}
}
