// Package events publishes object change events so downstream services can
// react to repository writes.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeReleaseTagAdded   = "release_tag.added"
	TypeMetadataRefreshed = "descriptive_metadata.refreshed"
	TypeRegistered        = "object.registered"
)

// Event is transport agnostic; publishers decide the wire form.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	ObjectID   string         `json:"object_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// New stamps a fresh identifier and occurrence time.
func New(eventType, objectID string, at time.Time, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		ObjectID:   objectID,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}
