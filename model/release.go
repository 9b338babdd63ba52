package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReleaseStatus is the lifecycle state of a release.
type ReleaseStatus string

const (
	StatusProcessing        ReleaseStatus = "processing"
	StatusCompleted         ReleaseStatus = "completed"
	StatusFailed            ReleaseStatus = "failed"
	StatusExisting          ReleaseStatus = "existing"
	StatusTakedownRequested ReleaseStatus = "takedown_requested"
)

// Statuses lists every known status.
var Statuses = []ReleaseStatus{
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusExisting,
	StatusTakedownRequested,
}

// Valid reports whether s is one of the known statuses.
func (s ReleaseStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed, StatusExisting, StatusTakedownRequested:
		return true
	}
	return false
}

// IsLive reports whether s is a live state, i.e. anything but a pending takedown.
func (s ReleaseStatus) IsLive() bool {
	return s.Valid() && s != StatusTakedownRequested
}

// AllowsTakedown reports whether a takedown may be requested from s.
// Failed uploads were never distributed, so there is nothing to take down.
func (s ReleaseStatus) AllowsTakedown() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusExisting:
		return true
	}
	return false
}

// TrackList is stored as a JSON array column.
type TrackList []string

// Scan implements sql.Scanner.
func (t *TrackList) Scan(value interface{}) error {
	if value == nil {
		*t = TrackList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported track list column type %T", value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*t = TrackList{}
		return nil
	}
	return json.Unmarshal(bytes, t)
}

// Value implements driver.Valuer. A nil list is stored as [] so reads never see NULL.
func (t TrackList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Release is one music release owned by a single user.
type Release struct {
	ID                  string        `json:"id" gorm:"primaryKey;size:36"`
	UserID              int64         `json:"userId" gorm:"not null;index:idx_releases_user_order,priority:1"`
	Title               string        `json:"title" gorm:"size:255;not null"`
	Artist              string        `json:"artist" gorm:"size:255;not null"`
	ReleaseDate         string        `json:"releaseDate" gorm:"size:10;not null;index:idx_releases_user_order,priority:2"` // YYYY-MM-DD
	ArtworkURL          *string       `json:"artworkUrl" gorm:"size:512"`
	Tracks              TrackList     `json:"tracks" gorm:"type:json"`
	SpotifyLink         string        `json:"spotifyLink,omitempty" gorm:"size:512"`
	Status              ReleaseStatus `json:"status" gorm:"size:32;not null;index"`
	PreviousStatus      ReleaseStatus `json:"previousStatus,omitempty" gorm:"size:32"`
	TakedownRequestedAt *time.Time    `json:"takedownRequestedAt"`
	CreatedAt           time.Time     `json:"createdAt" gorm:"index:idx_releases_user_order,priority:3"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// TableName 指定表名
func (Release) TableName() string {
	return "releases"
}

// Artwork returns the stored artwork reference, or "" when none is set.
func (r *Release) Artwork() string {
	if r.ArtworkURL == nil {
		return ""
	}
	return *r.ArtworkURL
}
