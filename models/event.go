package models

import (
	"time"

	"github.com/google/uuid"
)

// Sentinel values written to schedule-shaped columns on template rows. They
// keep template rows valid against the shared table constraints without giving
// them real scheduling meaning.
const (
	DatesTBD      = "To Be Determined"
	LocationTBD   = "To Be Determined"
	InstructorTBA = "To Be Assigned"
)

// Event statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// CalendarEvent represents a row in the calendar_events table. Templates and
// instances share the table and are distinguished by is_template.
type CalendarEvent struct {
	ID          uuid.UUID  `json:"id,omitempty"`
	IsTemplate  bool       `json:"is_template"`
	TemplateID  *uuid.UUID `json:"template_id,omitempty"` // weak back-reference, lookup key only

	// Content fields. Template-owned and propagatable.
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Category         string   `json:"category"`
	Price            string   `json:"price"`
	EventType        string   `json:"event_type"`
	LearningOutcomes []string `json:"learning_outcomes"`
	Prerequisites    string   `json:"prerequisites"`
	TargetAudience   string   `json:"target_audience"`
	Duration         string   `json:"duration"`
	SkillLevel       string   `json:"skill_level"`
	Format           string   `json:"format"`
	ImageURL         string   `json:"image_url"`
	ImageAspectRatio string   `json:"image_aspect_ratio"`
	ImageSize        string   `json:"image_size"`
	ImageLayout      string   `json:"image_layout"`

	// Schedule fields. Instance-owned, never propagated. On template rows
	// they carry the sentinel values above.
	Dates          string `json:"dates"`
	Location       string `json:"location"`
	Instructor     string `json:"instructor"`
	SpotsAvailable int    `json:"spots_available"`
	Status         string `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventFilter narrows ListEvents queries.
type EventFilter struct {
	IsTemplate *bool
	TemplateID *uuid.UUID
}

// NewTemplate builds a template row from content fields. The is_template flag
// and the schedule sentinels are set here and nowhere else, so a template that
// claims to be an instance is unrepresentable at construction time.
func NewTemplate(content CalendarEvent) CalendarEvent {
	t := content
	t.ID = uuid.Nil
	t.IsTemplate = true
	t.TemplateID = nil
	if t.Status == "" {
		t.Status = StatusDraft
	}
	BackfillScheduleSentinels(&t)
	return t
}

// BackfillScheduleSentinels substitutes the fixed sentinels for any empty
// schedule-shaped field. Only meaningful for template rows; instance rows are
// validated instead (see catalog.ValidateInstance).
func BackfillScheduleSentinels(e *CalendarEvent) {
	if e.Dates == "" {
		e.Dates = DatesTBD
	}
	if e.Location == "" {
		e.Location = LocationTBD
	}
	if e.Instructor == "" {
		e.Instructor = InstructorTBA
	}
	if e.SpotsAvailable < 0 {
		e.SpotsAvailable = 0
	}
}

// ContentFieldMap returns the propagatable content fields as a column map
// suitable for a field-restricted store update. Schedule fields are
// categorically absent; keeping them out of this map is the central
// correctness property of the propagation engine.
func (e CalendarEvent) ContentFieldMap() map[string]interface{} {
	outcomes := e.LearningOutcomes
	if outcomes == nil {
		outcomes = []string{}
	}
	return map[string]interface{}{
		"title":              e.Title,
		"description":        e.Description,
		"category":           e.Category,
		"price":              e.Price,
		"event_type":         e.EventType,
		"learning_outcomes":  outcomes,
		"prerequisites":      e.Prerequisites,
		"target_audience":    e.TargetAudience,
		"duration":           e.Duration,
		"skill_level":        e.SkillLevel,
		"format":             e.Format,
		"image_url":          e.ImageURL,
		"image_aspect_ratio": e.ImageAspectRatio,
		"image_size":         e.ImageSize,
		"image_layout":       e.ImageLayout,
	}
}
