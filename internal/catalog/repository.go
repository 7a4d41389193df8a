// Package catalog holds the template/instance repositories and the
// instantiation and propagation engines.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"coursehub/api-gateway/internal/auth"
	"coursehub/api-gateway/models"
)

// recordStore is the slice of the store adapter the catalog consumes. The
// concrete implementation is store.Client; tests use an in-memory fake.
type recordStore interface {
	InsertEvent(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error)
	GetEvent(ctx context.Context, id uuid.UUID) (models.CalendarEvent, error)
	UpdateEventFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}, mustMatchTemplate *uuid.UUID) (models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	ListEvents(ctx context.Context, f models.EventFilter) ([]models.CalendarEvent, error)
}

// TemplateRepository manages template rows. Every mutation requires the admin
// role and re-asserts the is_template flag immediately before the store write.
type TemplateRepository struct {
	store recordStore
	gate  auth.Gate
	log   *logrus.Logger
}

func NewTemplateRepository(store recordStore, gate auth.Gate, log *logrus.Logger) *TemplateRepository {
	return &TemplateRepository{store: store, gate: gate, log: log}
}

// Create persists a new template built from the given content fields.
func (r *TemplateRepository) Create(ctx context.Context, content models.CalendarEvent) (models.CalendarEvent, error) {
	if _, err := auth.RequireAdmin(ctx, r.gate); err != nil {
		return models.CalendarEvent{}, err
	}

	t := models.NewTemplate(content)
	if !t.IsTemplate {
		return models.CalendarEvent{}, models.ErrTemplateFlagMismatch
	}

	created, err := r.store.InsertEvent(ctx, t)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	r.log.WithField("template_id", created.ID).Info("Template created")
	return created, nil
}

// Update applies a field patch to a template. The patch must not contradict
// the template flag; the flag is re-asserted in the write so a drifted row is
// corrected back rather than flipped.
func (r *TemplateRepository) Update(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (models.CalendarEvent, error) {
	if _, err := auth.RequireAdmin(ctx, r.gate); err != nil {
		return models.CalendarEvent{}, err
	}
	if err := assertFlagInPatch(patch, true); err != nil {
		return models.CalendarEvent{}, err
	}

	current, err := r.store.GetEvent(ctx, id)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if !current.IsTemplate {
		return models.CalendarEvent{}, models.ErrTemplateFlagMismatch
	}

	fields := backfilledPatch(patch)
	fields["is_template"] = true
	updated, err := r.store.UpdateEventFields(ctx, id, fields, nil)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	r.log.WithField("template_id", id).Info("Template updated")
	return updated, nil
}

// Delete removes a template. Derived instances are left in place and keep
// their own copy of every field; the count of newly orphaned instances is
// returned so callers can warn.
func (r *TemplateRepository) Delete(ctx context.Context, id uuid.UUID) (int, error) {
	if _, err := auth.RequireAdmin(ctx, r.gate); err != nil {
		return 0, err
	}

	current, err := r.store.GetEvent(ctx, id)
	if err != nil {
		return 0, err
	}
	if !current.IsTemplate {
		return 0, models.ErrTemplateFlagMismatch
	}

	derived, err := r.store.ListEvents(ctx, models.EventFilter{TemplateID: &id})
	if err != nil {
		return 0, err
	}
	if err := r.store.DeleteEvent(ctx, id); err != nil {
		return 0, err
	}
	r.log.WithFields(map[string]interface{}{
		"template_id": id,
		"orphaned":    len(derived),
	}).Info("Template deleted")
	return len(derived), nil
}

// Get fetches a template by id. A matching row that is not a template reports
// models.ErrNotFound, keeping the two namespaces distinct for callers.
func (r *TemplateRepository) Get(ctx context.Context, id uuid.UUID) (models.CalendarEvent, error) {
	ev, err := r.store.GetEvent(ctx, id)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if !ev.IsTemplate {
		return models.CalendarEvent{}, models.ErrNotFound
	}
	return ev, nil
}

// List returns all templates.
func (r *TemplateRepository) List(ctx context.Context) ([]models.CalendarEvent, error) {
	isTemplate := true
	return r.store.ListEvents(ctx, models.EventFilter{IsTemplate: &isTemplate})
}

// InstanceRepository manages concrete instance rows. Mutations require a
// resolved caller but not the admin role.
type InstanceRepository struct {
	store recordStore
	gate  auth.Gate
	log   *logrus.Logger
}

func NewInstanceRepository(store recordStore, gate auth.Gate, log *logrus.Logger) *InstanceRepository {
	return &InstanceRepository{store: store, gate: gate, log: log}
}

// Create persists a new instance. The entity must already carry concrete
// schedule fields; sentinel or missing values are rejected, and a record
// claiming to be a template refuses to submit.
func (r *InstanceRepository) Create(ctx context.Context, ev models.CalendarEvent) (models.CalendarEvent, error) {
	if _, err := r.gate.CurrentUser(ctx); err != nil {
		return models.CalendarEvent{}, err
	}
	if ev.IsTemplate {
		return models.CalendarEvent{}, models.ErrTemplateFlagMismatch
	}
	if err := ValidateInstance(ev); err != nil {
		return models.CalendarEvent{}, err
	}

	created, err := r.store.InsertEvent(ctx, ev)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	r.log.WithField("event_id", created.ID).Info("Event created")
	return created, nil
}

// Update applies a field patch to an instance. template_id is not
// reassignable through this path, and schedule fields in the patch must stay
// concrete: an instance never regresses to blanks or template sentinels.
func (r *InstanceRepository) Update(ctx context.Context, id uuid.UUID, patch map[string]interface{}) (models.CalendarEvent, error) {
	if _, err := r.gate.CurrentUser(ctx); err != nil {
		return models.CalendarEvent{}, err
	}
	if err := assertFlagInPatch(patch, false); err != nil {
		return models.CalendarEvent{}, err
	}
	if _, ok := patch["template_id"]; ok {
		return models.CalendarEvent{}, fmt.Errorf("%w: template_id cannot be reassigned", models.ErrInvalidInput)
	}
	if err := validateSchedulePatch(patch); err != nil {
		return models.CalendarEvent{}, err
	}

	current, err := r.store.GetEvent(ctx, id)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if current.IsTemplate {
		return models.CalendarEvent{}, models.ErrTemplateFlagMismatch
	}

	fields := make(map[string]interface{}, len(patch)+1)
	for k, v := range patch {
		fields[k] = v
	}
	fields["is_template"] = false
	updated, err := r.store.UpdateEventFields(ctx, id, fields, nil)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	r.log.WithField("event_id", id).Info("Event updated")
	return updated, nil
}

// Delete removes an instance independently of its template.
func (r *InstanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.gate.CurrentUser(ctx); err != nil {
		return err
	}
	if err := r.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	r.log.WithField("event_id", id).Info("Event deleted")
	return nil
}

// Get fetches an instance by id.
func (r *InstanceRepository) Get(ctx context.Context, id uuid.UUID) (models.CalendarEvent, error) {
	ev, err := r.store.GetEvent(ctx, id)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if ev.IsTemplate {
		return models.CalendarEvent{}, models.ErrNotFound
	}
	return ev, nil
}

// List returns instances, optionally narrowed to one template's derived set.
// Template rows are never included.
func (r *InstanceRepository) List(ctx context.Context, templateID *uuid.UUID) ([]models.CalendarEvent, error) {
	isTemplate := false
	return r.store.ListEvents(ctx, models.EventFilter{
		IsTemplate: &isTemplate,
		TemplateID: templateID,
	})
}

// ValidateInstance checks the instance-only required fields: concrete dates,
// location, instructor, capacity and status. Sentinel template values are
// never acceptable on a real instance.
func ValidateInstance(ev models.CalendarEvent) error {
	var missing []string
	if ev.Dates == "" || ev.Dates == models.DatesTBD {
		missing = append(missing, "dates")
	}
	if ev.Location == "" || ev.Location == models.LocationTBD {
		missing = append(missing, "location")
	}
	if ev.Instructor == "" || ev.Instructor == models.InstructorTBA {
		missing = append(missing, "instructor")
	}
	if ev.SpotsAvailable < 0 {
		missing = append(missing, "spots_available")
	}
	if ev.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing or placeholder schedule fields: %s",
			models.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// validateSchedulePatch applies the same concreteness rules as
// ValidateInstance to the schedule fields present in a patch. Fields the
// patch does not mention are untouched and need no check.
func validateSchedulePatch(patch map[string]interface{}) error {
	var bad []string
	if raw, ok := patch["dates"]; ok {
		if s, _ := raw.(string); s == "" || s == models.DatesTBD {
			bad = append(bad, "dates")
		}
	}
	if raw, ok := patch["location"]; ok {
		if s, _ := raw.(string); s == "" || s == models.LocationTBD {
			bad = append(bad, "location")
		}
	}
	if raw, ok := patch["instructor"]; ok {
		if s, _ := raw.(string); s == "" || s == models.InstructorTBA {
			bad = append(bad, "instructor")
		}
	}
	if raw, ok := patch["spots_available"]; ok {
		switch n := raw.(type) {
		case float64: // JSON numbers decode as float64
			if n < 0 {
				bad = append(bad, "spots_available")
			}
		case int:
			if n < 0 {
				bad = append(bad, "spots_available")
			}
		default:
			bad = append(bad, "spots_available")
		}
	}
	if raw, ok := patch["status"]; ok {
		if s, _ := raw.(string); s == "" {
			bad = append(bad, "status")
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: schedule fields must stay concrete: %s",
			models.ErrInvalidInput, strings.Join(bad, ", "))
	}
	return nil
}

// assertFlagInPatch rejects a patch that contradicts the asserted mode. A
// mismatch is a hard failure, never silently corrected.
func assertFlagInPatch(patch map[string]interface{}, wantTemplate bool) error {
	raw, ok := patch["is_template"]
	if !ok {
		return nil
	}
	b, ok := raw.(bool)
	if !ok || b != wantTemplate {
		return models.ErrTemplateFlagMismatch
	}
	return nil
}

// backfilledPatch copies the patch and substitutes schedule sentinels for any
// schedule field explicitly blanked on a template row.
func backfilledPatch(patch map[string]interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(patch))
	for k, v := range patch {
		fields[k] = v
	}
	if v, ok := fields["dates"]; ok && v == "" {
		fields["dates"] = models.DatesTBD
	}
	if v, ok := fields["location"]; ok && v == "" {
		fields["location"] = models.LocationTBD
	}
	if v, ok := fields["instructor"]; ok && v == "" {
		fields["instructor"] = models.InstructorTBA
	}
	return fields
}
