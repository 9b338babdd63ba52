package release

import (
	"context"
	"strings"

	"ArtistHub/logger"
)

// UnknownArtist is used when no name can be resolved.
const UnknownArtist = "Unknown Artist"

// ProfileSource looks up the artist name saved on a user's profile.
type ProfileSource interface {
	ArtistName(ctx context.Context, userID int64) (string, error)
}

// firstNonEmpty evaluates lookups in order and stops at the first non-blank result.
func firstNonEmpty(lookups ...func() string) string {
	for _, lookup := range lookups {
		if v := strings.TrimSpace(lookup()); v != "" {
			return v
		}
	}
	return ""
}

// ResolveArtist picks the artist display name: explicit input, profile name,
// account display name, email local part, then UnknownArtist.
func ResolveArtist(ctx context.Context, explicit string, id Identity, profiles ProfileSource) string {
	name := firstNonEmpty(
		func() string { return explicit },
		func() string {
			if profiles == nil || !id.Authenticated() {
				return ""
			}
			name, err := profiles.ArtistName(ctx, id.UserID)
			if err != nil {
				logger.Warn("Profile lookup failed, falling back",
					logger.UserID(id.UserID),
					logger.ErrorField(err))
				return ""
			}
			return name
		},
		func() string { return id.DisplayName },
		func() string { return emailLocalPart(id.Email) },
	)
	if name == "" {
		return UnknownArtist
	}
	return name
}

func emailLocalPart(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return local
}
