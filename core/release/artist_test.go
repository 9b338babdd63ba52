package release

import (
	"context"
	"testing"
)

func TestResolveArtist(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		explicit string
		profile  string
		identity Identity
		want     string
	}{
		{"explicit wins", "The Owls", "Ada", Identity{UserID: 1, DisplayName: "Ada L.", Email: "ada@example.com"}, "The Owls"},
		{"profile name", "", "Ada", Identity{UserID: 1, DisplayName: "Ada L.", Email: "ada@example.com"}, "Ada"},
		{"display name", "  ", "", Identity{UserID: 1, DisplayName: "Ada L.", Email: "ada@example.com"}, "Ada L."},
		{"email local part", "", "", Identity{UserID: 1, Email: "ada.l@example.com"}, "ada.l"},
		{"unknown", "", "", Identity{UserID: 1, Email: "not-an-email"}, UnknownArtist},
		{"no identity", "", "Ada", Identity{}, UnknownArtist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &fakeProfiles{name: tt.profile}
			if got := ResolveArtist(ctx, tt.explicit, tt.identity, profiles); got != tt.want {
				t.Errorf("ResolveArtist() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveArtistIsLazy(t *testing.T) {
	profiles := &fakeProfiles{name: "Ada"}
	ResolveArtist(context.Background(), "Explicit", Identity{UserID: 1}, profiles)
	if profiles.calls != 0 {
		t.Errorf("profile looked up %d times, want 0", profiles.calls)
	}
}

func TestResolveArtistProfileError(t *testing.T) {
	profiles := &fakeProfiles{name: "ignored", err: errBackend}
	got := ResolveArtist(context.Background(), "", Identity{UserID: 1, DisplayName: "Ada L."}, profiles)
	if got != "Ada L." {
		t.Errorf("expected fallback past failing profile lookup, got %q", got)
	}
}
