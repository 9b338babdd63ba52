package release

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"ArtistHub/logger"
	"ArtistHub/model"
	"ArtistHub/repository"
	"ArtistHub/storage"

	"github.com/google/uuid"
)

// DefaultTakedownWindow is how long a takedown request stays reversible.
const DefaultTakedownWindow = 24 * time.Hour

// ArtworkStore persists artwork files and removes them again.
type ArtworkStore interface {
	Upload(ctx context.Context, userID int64, filename, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, ref string) error
}

// ArtworkFile is an uploaded image waiting to be stored.
type ArtworkFile struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Options configures a Service.
type Options struct {
	Releases           repository.ReleaseRepository
	Artwork            ArtworkStore
	Profiles           ProfileSource
	Events             EventPublisher
	PlaceholderArtwork string
	TakedownWindow     time.Duration
	MaxArtworkBytes    int64
	Now                func() time.Time
}

// Service implements the release lifecycle and takedown workflow.
type Service struct {
	releases       repository.ReleaseRepository
	artwork        ArtworkStore
	profiles       ProfileSource
	events         EventPublisher
	placeholder    string
	takedownWindow time.Duration
	maxArtwork     int64
	now            func() time.Time
	newID          func() string
}

// NewService wires a Service. Releases and Artwork are required.
func NewService(opts Options) *Service {
	s := &Service{
		releases:       opts.Releases,
		artwork:        opts.Artwork,
		profiles:       opts.Profiles,
		events:         opts.Events,
		placeholder:    opts.PlaceholderArtwork,
		takedownWindow: opts.TakedownWindow,
		maxArtwork:     opts.MaxArtworkBytes,
		now:            opts.Now,
		newID:          func() string { return uuid.New().String() },
	}
	if s.takedownWindow <= 0 {
		s.takedownWindow = DefaultTakedownWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TakedownWindow returns the configured reversal window.
func (s *Service) TakedownWindow() time.Duration {
	return s.takedownWindow
}

// load fetches a release owned by id.UserID.
func (s *Service) load(ctx context.Context, id Identity, releaseID string) (*model.Release, error) {
	if !id.Authenticated() {
		return nil, ErrAuthRequired
	}
	releaseID = strings.TrimSpace(releaseID)
	if releaseID == "" {
		return nil, ErrNotFound
	}
	rel, err := s.releases.GetByID(ctx, id.UserID, releaseID)
	if err != nil {
		logger.Error("Failed to load release",
			logger.UserID(id.UserID),
			logger.ReleaseID(releaseID),
			logger.ErrorField(err))
		return nil, storeFailure(err)
	}
	if rel == nil {
		return nil, ErrNotFound
	}
	return rel, nil
}

func (s *Service) validateArtwork(file *ArtworkFile) error {
	if file == nil {
		return nil
	}
	if file.Body == nil {
		return invalid("artwork", "artwork file is empty")
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return invalid("artwork", "artwork must be an image")
	}
	if file.Size <= 0 {
		return invalid("artwork", "artwork file is empty")
	}
	if s.maxArtwork > 0 && file.Size > s.maxArtwork {
		return invalid("artwork", "artwork file is too large")
	}
	return nil
}

func (s *Service) uploadArtwork(ctx context.Context, userID int64, file *ArtworkFile) (string, error) {
	ref, err := s.artwork.Upload(ctx, userID, file.Filename, file.ContentType, file.Body, file.Size)
	if err != nil {
		logger.Error("Artwork upload failed",
			logger.UserID(userID),
			logger.String("filename", file.Filename),
			logger.ErrorField(err))
		return "", storeFailure(err)
	}
	return ref, nil
}

// isDeletable reports whether ref points at artwork this service stored.
// The placeholder and external links are never removed.
func (s *Service) isDeletable(ref string) bool {
	return ref != "" && ref != s.placeholder && storage.IsManagedReference(ref)
}

// discardArtwork removes stored artwork on a best-effort basis. Failures are
// logged and never returned: the primary mutation has already been decided.
func (s *Service) discardArtwork(ctx context.Context, userID int64, ref, reason string) {
	if !s.isDeletable(ref) {
		return
	}
	err := s.artwork.Delete(ctx, ref)
	switch {
	case err == nil:
		logger.Debug("Artwork removed",
			logger.UserID(userID),
			logger.String("artwork", ref),
			logger.String("reason", reason))
	case errors.Is(err, storage.ErrObjectNotFound):
		logger.Debug("Artwork already gone",
			logger.UserID(userID),
			logger.String("artwork", ref))
	default:
		logger.Error("Artwork cleanup failed",
			logger.UserID(userID),
			logger.String("artwork", ref),
			logger.String("reason", reason),
			logger.ErrorField(err))
	}
}

// publish sends an event; a failed delivery never undoes the committed write.
func (s *Service) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish release event",
			logger.String("type", string(event.Type)),
			logger.UserID(event.UserID),
			logger.ReleaseID(event.ReleaseID),
			logger.ErrorField(err))
	}
}

// updateFailure maps a failed repository Update to the error callers see.
func updateFailure(err error) error {
	if errors.Is(err, repository.ErrReleaseNotFound) {
		return ErrNotFound
	}
	return storeFailure(err)
}
