package model

import "testing"

func TestReleaseStatusPredicates(t *testing.T) {
	tests := []struct {
		status   ReleaseStatus
		live     bool
		takedown bool
	}{
		{StatusProcessing, true, true},
		{StatusCompleted, true, true},
		{StatusExisting, true, true},
		{StatusFailed, true, false},
		{StatusTakedownRequested, false, false},
		{ReleaseStatus("archived"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsLive(); got != tt.live {
				t.Errorf("IsLive() = %v, want %v", got, tt.live)
			}
			if got := tt.status.AllowsTakedown(); got != tt.takedown {
				t.Errorf("AllowsTakedown() = %v, want %v", got, tt.takedown)
			}
		})
	}
}

func TestTrackListColumn(t *testing.T) {
	t.Run("nil list is stored as empty array", func(t *testing.T) {
		var tracks TrackList
		v, err := tracks.Value()
		if err != nil {
			t.Fatalf("Value() error: %v", err)
		}
		if v != "[]" {
			t.Errorf("expected [], got %v", v)
		}
	})

	t.Run("scan keeps order", func(t *testing.T) {
		var tracks TrackList
		if err := tracks.Scan([]byte(`["Intro","Sunset Drive","Outro"]`)); err != nil {
			t.Fatalf("Scan() error: %v", err)
		}
		want := []string{"Intro", "Sunset Drive", "Outro"}
		if len(tracks) != len(want) {
			t.Fatalf("expected %d tracks, got %d", len(want), len(tracks))
		}
		for i := range want {
			if tracks[i] != want[i] {
				t.Errorf("track %d: expected %q, got %q", i, want[i], tracks[i])
			}
		}
	})

	t.Run("NULL scans to empty list", func(t *testing.T) {
		tracks := TrackList{"stale"}
		if err := tracks.Scan(nil); err != nil {
			t.Fatalf("Scan() error: %v", err)
		}
		if len(tracks) != 0 {
			t.Errorf("expected empty list, got %v", tracks)
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		var tracks TrackList
		if err := tracks.Scan(42); err == nil {
			t.Error("expected error for int column")
		}
	})
}

func TestReleaseArtwork(t *testing.T) {
	r := &Release{}
	if r.Artwork() != "" {
		t.Errorf("expected empty artwork, got %q", r.Artwork())
	}
	ref := "/static/artwork/1/cover.png"
	r.ArtworkURL = &ref
	if r.Artwork() != ref {
		t.Errorf("expected %q, got %q", ref, r.Artwork())
	}
}
