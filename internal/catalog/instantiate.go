package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"coursehub/api-gateway/models"
)

// ScheduleOverrides are the instance-owned fields a caller must supply when
// instantiating a template. None are optional: the template's sentinel values
// are never acceptable on a real instance.
type ScheduleOverrides struct {
	Dates          string
	Location       string
	Instructor     string
	SpotsAvailable int
	Status         string
}

// Instantiator builds concrete instances from templates.
type Instantiator struct {
	store     recordStore
	instances *InstanceRepository
	log       *logrus.Logger
}

func NewInstantiator(store recordStore, instances *InstanceRepository, log *logrus.Logger) *Instantiator {
	return &Instantiator{store: store, instances: instances, log: log}
}

// Instantiate copies the template's content fields verbatim, overlays the
// schedule overrides, and persists the result as a new instance pointing back
// at the template. The template row is only ever read; no instance is
// persisted on any failure.
func (n *Instantiator) Instantiate(ctx context.Context, templateID uuid.UUID, ov ScheduleOverrides) (models.CalendarEvent, error) {
	tpl, err := n.store.GetEvent(ctx, templateID)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	if !tpl.IsTemplate {
		return models.CalendarEvent{}, models.ErrInvalidSource
	}

	inst := tpl
	inst.ID = uuid.Nil
	inst.IsTemplate = false
	srcID := templateID
	inst.TemplateID = &srcID
	inst.Dates = ov.Dates
	inst.Location = ov.Location
	inst.Instructor = ov.Instructor
	inst.SpotsAvailable = ov.SpotsAvailable
	inst.Status = ov.Status

	created, err := n.instances.Create(ctx, inst)
	if err != nil {
		return models.CalendarEvent{}, err
	}
	n.log.WithFields(map[string]interface{}{
		"template_id": templateID,
		"event_id":    created.ID,
	}).Info("Instance created from template")
	return created, nil
}
