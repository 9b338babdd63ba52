package cache

import (
	"encoding/json"
	"testing"
	"time"

	"ArtistHub/core/release"
	"ArtistHub/model"
)

func TestUserChannel(t *testing.T) {
	if got := UserChannel(42); got != "releases:user:42" {
		t.Errorf("UserChannel(42) = %q", got)
	}
}

func TestDecodeEvent(t *testing.T) {
	at := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	want := release.Event{
		Type:      release.EventTakedownRequested,
		UserID:    42,
		ReleaseID: "rel-1",
		Title:     "Sunset Drive",
		Status:    model.StatusTakedownRequested,
		At:        at,
	}
	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := DecodeEvent(string(data))
	if err != nil {
		t.Fatalf("DecodeEvent() error: %v", err)
	}
	if got.Type != want.Type || got.UserID != want.UserID || got.ReleaseID != want.ReleaseID || !got.At.Equal(at) {
		t.Errorf("DecodeEvent() = %+v, want %+v", got, want)
	}

	if _, err := DecodeEvent("{not json"); err == nil {
		t.Error("expected error for malformed payload")
	}
}
