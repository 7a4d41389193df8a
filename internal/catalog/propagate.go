package catalog

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"coursehub/api-gateway/internal/auth"
	"coursehub/api-gateway/models"
)

// PropagationResult summarises one propagation batch.
type PropagationResult struct {
	UpdatedCount  int      `json:"updated_count"`
	UpdatedFields []string `json:"updated_fields"`
	Success       bool     `json:"success"`
}

// Propagator fans a template's content fields out to every derived instance.
// It knows nothing about the sync policy: whether to call it at all is the
// caller's decision. Like the template mutations it fans out, every call
// requires the admin role.
type Propagator struct {
	store recordStore
	gate  auth.Gate
	log   *logrus.Logger
}

func NewPropagator(store recordStore, gate auth.Gate, log *logrus.Logger) *Propagator {
	return &Propagator{store: store, gate: gate, log: log}
}

// Propagate overwrites the whitelisted content fields on every instance whose
// template_id matches. Each instance is written independently; a failing row
// is recorded and skipped, never aborting the batch. The batch is not
// transactional across instances: a mid-batch observer can see a mix of old
// and new values, which is accepted. Repeating the call with the same
// template data is idempotent (pure overwrite, no accumulation).
//
// On partial failure the returned error is a *models.PartialPropagationError
// carrying the failing ids; the successful subset stays committed.
func (p *Propagator) Propagate(ctx context.Context, templateID uuid.UUID, tpl models.CalendarEvent) (PropagationResult, error) {
	if _, err := auth.RequireAdmin(ctx, p.gate); err != nil {
		return PropagationResult{}, err
	}

	fields := tpl.ContentFieldMap()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	instances, err := p.store.ListEvents(ctx, models.EventFilter{TemplateID: &templateID})
	if err != nil {
		return PropagationResult{}, err
	}
	if len(instances) == 0 {
		return PropagationResult{UpdatedCount: 0, UpdatedFields: []string{}, Success: true}, nil
	}

	var failed []uuid.UUID
	updated := 0
	for _, inst := range instances {
		// The extra template_id scope guards against a row re-pointed at a
		// different template between the list and the write.
		if _, err := p.store.UpdateEventFields(ctx, inst.ID, fields, &templateID); err != nil {
			p.log.WithFields(map[string]interface{}{
				"template_id": templateID,
				"event_id":    inst.ID,
				"error":       err.Error(),
			}).Error("Propagation write failed for instance")
			failed = append(failed, inst.ID)
			continue
		}
		updated++
	}

	result := PropagationResult{
		UpdatedCount:  updated,
		UpdatedFields: names,
		Success:       true,
	}
	if len(failed) > 0 {
		return result, &models.PartialPropagationError{Updated: updated, FailedIDs: failed}
	}
	p.log.WithFields(map[string]interface{}{
		"template_id": templateID,
		"updated":     updated,
	}).Info("Propagation completed")
	return result, nil
}
