// Package store is the record store adapter: row-shaped CRUD against the
// Supabase tables, translating between the snake_case row shape and the
// internal entity shape, and wrapping every call with retry and error
// classification.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"

	"coursehub/api-gateway/models"
)

const (
	eventsTable   = "calendar_events"
	settingsTable = "organization_settings"
)

// Client wraps the Supabase client with the adapter contract the repositories
// and engines consume.
type Client struct {
	db    *supa.Client
	log   *logrus.Logger
	now   func() time.Time
	sleep func(time.Duration) <-chan time.Time
}

// New creates a store client around an initialized Supabase client.
func New(db *supa.Client, log *logrus.Logger) *Client {
	return &Client{
		db:    db,
		log:   log,
		now:   time.Now,
		sleep: time.After,
	}
}

// InsertEvent persists a new calendar event row and returns it as stored. The
// id column is left to the database.
func (c *Client) InsertEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	row := eventWriteMap(ev, c.now())

	var rows []models.CalendarEvent
	err := c.withRetry(ctx, "insert "+eventsTable, func() error {
		body, _, err := c.db.From(eventsTable).
			Insert(row, false, "", "representation", "").
			Execute()
		if err != nil {
			return err
		}
		rows = nil
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if len(rows) == 0 {
		return models.CalendarEvent{}, &models.StoreError{
			Kind: models.StoreOther,
			Op:   "insert " + eventsTable,
			Err:  errEmptyRepresentation,
		}
	}
	return rows[0], nil
}

// GetEvent fetches a single event by id. Returns models.ErrNotFound when the
// id does not resolve.
func (c *Client) GetEvent(ctx context.Context, id uuid.UUID) (models.CalendarEvent, error) {
	var rows []models.CalendarEvent
	err := c.withRetry(ctx, "select "+eventsTable, func() error {
		body, _, err := c.db.From(eventsTable).
			Select("*", "", false).
			Eq("id", id.String()).
			Execute()
		if err != nil {
			return err
		}
		rows = nil
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if len(rows) == 0 {
		return models.CalendarEvent{}, models.ErrNotFound
	}
	return rows[0], nil
}

// UpdateEventFields issues a field-restricted update. When mustMatchTemplate
// is non-nil the update is additionally scoped by template_id, so a row that
// was concurrently re-pointed at a different template matches zero rows and
// reports models.ErrNotFound instead of being overwritten.
func (c *Client) UpdateEventFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}, mustMatchTemplate *uuid.UUID) (models.CalendarEvent, error) {
	payload := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		payload[k] = v
	}
	payload["updated_at"] = c.now()

	var rows []models.CalendarEvent
	err := c.withRetry(ctx, "update "+eventsTable, func() error {
		q := c.db.From(eventsTable).
			Update(payload, "representation", "").
			Eq("id", id.String())
		if mustMatchTemplate != nil {
			q = q.Eq("template_id", mustMatchTemplate.String())
		}
		body, _, err := q.Execute()
		if err != nil {
			return err
		}
		rows = nil
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if len(rows) == 0 {
		return models.CalendarEvent{}, models.ErrNotFound
	}
	return rows[0], nil
}

// DeleteEvent removes an event by id. Returns models.ErrNotFound when no row
// matched.
func (c *Client) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	var rows []models.CalendarEvent
	err := c.withRetry(ctx, "delete "+eventsTable, func() error {
		body, _, err := c.db.From(eventsTable).
			Delete("representation", "").
			Eq("id", id.String()).
			Execute()
		if err != nil {
			return err
		}
		rows = nil
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListEvents returns all events matching the filter.
func (c *Client) ListEvents(ctx context.Context, f models.EventFilter) ([]models.CalendarEvent, error) {
	var rows []models.CalendarEvent
	err := c.withRetry(ctx, "select "+eventsTable, func() error {
		q := c.db.From(eventsTable).Select("*", "", false)
		if f.IsTemplate != nil {
			if *f.IsTemplate {
				q = q.Eq("is_template", "true")
			} else {
				q = q.Eq("is_template", "false")
			}
		}
		if f.TemplateID != nil {
			q = q.Eq("template_id", f.TemplateID.String())
		}
		body, _, err := q.Execute()
		if err != nil {
			return err
		}
		rows = nil
		return json.Unmarshal(body, &rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// eventWriteMap flattens an entity into the snake_case column map for an
// insert. The id column is omitted so the database generates it.
func eventWriteMap(e models.CalendarEvent, now time.Time) map[string]interface{} {
	m := e.ContentFieldMap()
	m["is_template"] = e.IsTemplate
	if e.TemplateID != nil {
		m["template_id"] = e.TemplateID.String()
	}
	m["dates"] = e.Dates
	m["location"] = e.Location
	m["instructor"] = e.Instructor
	m["spots_available"] = e.SpotsAvailable
	m["status"] = e.Status
	m["created_at"] = now
	m["updated_at"] = now
	return m
}
