package release

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	maxTitleLength  = 255
	maxArtistLength = 255
	maxTrackLength  = 255
	maxTracks       = 200
	maxLinkLength   = 512
)

var strictPolicy = bluemonday.StrictPolicy()

// CleanText decodes entities in a display string and trims it. Input the
// strict policy would alter, such as tags (including entity-encoded ones),
// is rejected rather than silently stripped.
func CleanText(field, s string) (string, error) {
	plain := strings.TrimSpace(html.UnescapeString(s))
	if html.UnescapeString(strictPolicy.Sanitize(plain)) != plain {
		return "", invalid(field, "must not contain markup")
	}
	return plain, nil
}

// checkLength counts characters, not bytes.
func checkLength(field, s string, max int) error {
	if utf8.RuneCountInString(s) > max {
		return invalid(field, "is too long")
	}
	return nil
}

func validateTitle(title string) (string, error) {
	title, err := CleanText("title", title)
	if err != nil {
		return "", err
	}
	if title == "" {
		return "", invalid("title", "title is required")
	}
	if err := checkLength("title", title, maxTitleLength); err != nil {
		return "", err
	}
	return title, nil
}

// validateArtist cleans an explicit artist. Empty is allowed and means
// "resolve from the profile".
func validateArtist(artist string) (string, error) {
	artist, err := CleanText("artist", artist)
	if err != nil {
		return "", err
	}
	if err := checkLength("artist", artist, maxArtistLength); err != nil {
		return "", err
	}
	return artist, nil
}

// validateTracks requires at least one track and rejects blank names.
func validateTracks(tracks []string) ([]string, error) {
	if len(tracks) == 0 {
		return nil, invalid("tracks", "at least one track is required")
	}
	if len(tracks) > maxTracks {
		return nil, invalid("tracks", "too many tracks")
	}
	cleaned := make([]string, 0, len(tracks))
	for _, name := range tracks {
		name, err := CleanText("tracks", name)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, invalid("tracks", "track names must not be empty")
		}
		if err := checkLength("tracks", name, maxTrackLength); err != nil {
			return nil, err
		}
		cleaned = append(cleaned, name)
	}
	return cleaned, nil
}

// validateLink accepts an empty string or an absolute http(s) URL.
func validateLink(field, link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", nil
	}
	if len(link) > maxLinkLength {
		return "", invalid(field, "is too long")
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid(field, "must be a valid http(s) URL")
	}
	return link, nil
}
