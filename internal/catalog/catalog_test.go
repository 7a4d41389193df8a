package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"coursehub/api-gateway/internal/auth"
	"coursehub/api-gateway/models"
)

// fakeStore is an in-memory recordStore for catalog tests.
type fakeStore struct {
	mu        sync.Mutex
	events    map[uuid.UUID]models.CalendarEvent
	order     []uuid.UUID
	insertErr error
	// updateErr fails the update for specific ids, simulating a concurrently
	// deleted or otherwise broken row.
	updateErr map[uuid.UUID]error
	// onList runs after a list snapshot is taken, simulating a concurrent
	// writer racing the batch.
	onList func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:    make(map[uuid.UUID]models.CalendarEvent),
		updateErr: make(map[uuid.UUID]error),
	}
}

func (s *fakeStore) put(ev models.CalendarEvent) models.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if _, seen := s.events[ev.ID]; !seen {
		s.order = append(s.order, ev.ID)
	}
	s.events[ev.ID] = ev
	return ev
}

func (s *fakeStore) InsertEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	if s.insertErr != nil {
		return models.CalendarEvent{}, s.insertErr
	}
	return s.put(ev), nil
}

func (s *fakeStore) GetEvent(ctx context.Context, id uuid.UUID) (models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return models.CalendarEvent{}, models.ErrNotFound
	}
	return ev, nil
}

func (s *fakeStore) UpdateEventFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}, mustMatchTemplate *uuid.UUID) (models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[id]; err != nil {
		return models.CalendarEvent{}, err
	}
	ev, ok := s.events[id]
	if !ok {
		return models.CalendarEvent{}, models.ErrNotFound
	}
	if mustMatchTemplate != nil {
		if ev.TemplateID == nil || *ev.TemplateID != *mustMatchTemplate {
			return models.CalendarEvent{}, models.ErrNotFound
		}
	}

	// Apply the snake_case column map through the entity's json tags, the
	// same translation the real adapter relies on.
	raw, err := json.Marshal(fields)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return models.CalendarEvent{}, err
	}
	s.events[id] = ev
	return ev, nil
}

func (s *fakeStore) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.events, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *fakeStore) ListEvents(ctx context.Context, f models.EventFilter) ([]models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.CalendarEvent
	for _, id := range s.order {
		ev := s.events[id]
		if f.IsTemplate != nil && ev.IsTemplate != *f.IsTemplate {
			continue
		}
		if f.TemplateID != nil {
			if ev.TemplateID == nil || *ev.TemplateID != *f.TemplateID {
				continue
			}
		}
		out = append(out, ev)
	}
	if s.onList != nil {
		hook := s.onList
		s.onList = nil
		s.mu.Unlock()
		hook()
		s.mu.Lock()
	}
	return out, nil
}

// fakeGate is a canned authorization gate.
type fakeGate struct {
	user     *auth.User
	admin    bool
	userErr  error
	adminErr error
}

func adminGate() *fakeGate {
	return &fakeGate{user: &auth.User{ID: uuid.New(), Email: "admin@example.com"}, admin: true}
}

func (g *fakeGate) CurrentUser(ctx context.Context) (*auth.User, error) {
	if g.userErr != nil {
		return nil, g.userErr
	}
	if g.user == nil {
		return nil, models.ErrAuthRequired
	}
	return g.user, nil
}

func (g *fakeGate) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	if g.adminErr != nil {
		return false, g.adminErr
	}
	return g.admin, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seedTemplate(s *fakeStore, title, price string) models.CalendarEvent {
	return s.put(models.NewTemplate(models.CalendarEvent{
		Title:       title,
		Description: "A course",
		Category:    "agile",
		Price:       price,
		Status:      models.StatusPublished,
	}))
}

func seedInstance(s *fakeStore, tpl models.CalendarEvent, dates, location string) models.CalendarEvent {
	inst := tpl
	inst.ID = uuid.Nil
	inst.IsTemplate = false
	id := tpl.ID
	inst.TemplateID = &id
	inst.Dates = dates
	inst.Location = location
	inst.Instructor = "A. Baker"
	inst.SpotsAvailable = 12
	inst.Status = models.StatusDraft
	return s.put(inst)
}

var errBoom = fmt.Errorf("boom")
