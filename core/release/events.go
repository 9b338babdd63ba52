package release

import (
	"context"
	"time"

	"ArtistHub/model"
)

// EventType names a release change broadcast to subscribers.
type EventType string

const (
	EventCreated           EventType = "release.created"
	EventUpdated           EventType = "release.updated"
	EventDeleted           EventType = "release.deleted"
	EventStatusChanged     EventType = "release.status_changed"
	EventTakedownRequested EventType = "release.takedown_requested"
	EventTakedownCancelled EventType = "release.takedown_cancelled"
)

// Event describes one committed change.
type Event struct {
	Type      EventType           `json:"type"`
	UserID    int64               `json:"userId"`
	ReleaseID string              `json:"releaseId"`
	Title     string              `json:"title,omitempty"`
	Status    model.ReleaseStatus `json:"status,omitempty"`
	At        time.Time           `json:"at"`
}

// EventPublisher delivers events after the write they describe has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

func newEvent(t EventType, r *model.Release, at time.Time) Event {
	return Event{
		Type:      t,
		UserID:    r.UserID,
		ReleaseID: r.ID,
		Title:     r.Title,
		Status:    r.Status,
		At:        at,
	}
}
