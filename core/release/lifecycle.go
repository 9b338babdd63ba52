package release

import (
	"context"

	"ArtistHub/logger"
	"ArtistHub/model"
)

// UploadMeta is the input of the "upload new" path.
type UploadMeta struct {
	Title       string
	Artist      string
	ReleaseDate string
	Artwork     *ArtworkFile
}

// ExistingData is the input of the "add existing" path.
type ExistingData struct {
	Title       string
	Artist      string
	ReleaseDate string
	Tracks      []string
	SpotifyLink string
	ArtworkURL  string // externally hosted artwork, used when Artwork is nil
	Artwork     *ArtworkFile
}

// Patch lists the editable fields. Nil fields are left untouched.
type Patch struct {
	Title        *string
	Artist       *string // empty string re-runs artist resolution
	ReleaseDate  *string
	Tracks       []string
	SpotifyLink  *string
	ClearArtwork bool
}

// PipelineResult is the outcome reported by the external processing pipeline.
type PipelineResult struct {
	Status model.ReleaseStatus
	Tracks []string
}

// List returns the caller's releases. Without an identity the result is empty.
func (s *Service) List(ctx context.Context, id Identity) ([]*model.Release, error) {
	if !id.Authenticated() {
		return []*model.Release{}, nil
	}
	releases, err := s.releases.ListByUser(ctx, id.UserID)
	if err != nil {
		logger.Error("Failed to list releases", logger.UserID(id.UserID), logger.ErrorField(err))
		return nil, storeFailure(err)
	}
	if releases == nil {
		releases = []*model.Release{}
	}
	return releases, nil
}

// Get returns one release owned by the caller.
func (s *Service) Get(ctx context.Context, id Identity, releaseID string) (*model.Release, error) {
	if !id.Authenticated() {
		return nil, ErrNotFound
	}
	return s.load(ctx, id, releaseID)
}

// CreateFromUpload records a release whose audio goes through the processing
// pipeline. It starts in processing with no tracks.
func (s *Service) CreateFromUpload(ctx context.Context, id Identity, meta UploadMeta) (string, error) {
	if !id.Authenticated() {
		return "", ErrAuthRequired
	}
	title, err := validateTitle(meta.Title)
	if err != nil {
		return "", err
	}
	artist, err := validateArtist(meta.Artist)
	if err != nil {
		return "", err
	}
	date, err := NormalizeDate(meta.ReleaseDate)
	if err != nil {
		return "", err
	}
	if err := s.validateArtwork(meta.Artwork); err != nil {
		return "", err
	}

	now := s.now().UTC()
	rel := &model.Release{
		ID:          s.newID(),
		UserID:      id.UserID,
		Title:       title,
		Artist:      ResolveArtist(ctx, artist, id, s.profiles),
		ReleaseDate: date,
		Tracks:      model.TrackList{},
		Status:      model.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if meta.Artwork != nil {
		ref, err := s.uploadArtwork(ctx, id.UserID, meta.Artwork)
		if err != nil {
			return "", err
		}
		rel.ArtworkURL = &ref
	}

	if err := s.create(ctx, rel); err != nil {
		return "", err
	}
	return rel.ID, nil
}

// CreateExisting records a release that is already live elsewhere.
func (s *Service) CreateExisting(ctx context.Context, id Identity, data ExistingData) (string, error) {
	if !id.Authenticated() {
		return "", ErrAuthRequired
	}
	title, err := validateTitle(data.Title)
	if err != nil {
		return "", err
	}
	artist, err := validateArtist(data.Artist)
	if err != nil {
		return "", err
	}
	date, err := NormalizeDate(data.ReleaseDate)
	if err != nil {
		return "", err
	}
	tracks, err := validateTracks(data.Tracks)
	if err != nil {
		return "", err
	}
	link, err := validateLink("spotifyLink", data.SpotifyLink)
	if err != nil {
		return "", err
	}
	artworkURL, err := validateLink("artworkUrl", data.ArtworkURL)
	if err != nil {
		return "", err
	}
	if err := s.validateArtwork(data.Artwork); err != nil {
		return "", err
	}

	now := s.now().UTC()
	rel := &model.Release{
		ID:          s.newID(),
		UserID:      id.UserID,
		Title:       title,
		Artist:      ResolveArtist(ctx, artist, id, s.profiles),
		ReleaseDate: date,
		Tracks:      model.TrackList(tracks),
		SpotifyLink: link,
		Status:      model.StatusExisting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	switch {
	case data.Artwork != nil:
		ref, err := s.uploadArtwork(ctx, id.UserID, data.Artwork)
		if err != nil {
			return "", err
		}
		rel.ArtworkURL = &ref
	case artworkURL != "":
		rel.ArtworkURL = &artworkURL
	}

	if err := s.create(ctx, rel); err != nil {
		return "", err
	}
	return rel.ID, nil
}

// create persists rel; on failure the artwork uploaded for it is removed again.
func (s *Service) create(ctx context.Context, rel *model.Release) error {
	if err := s.releases.Create(ctx, rel); err != nil {
		logger.Error("Failed to create release",
			logger.UserID(rel.UserID),
			logger.ReleaseID(rel.ID),
			logger.ErrorField(err))
		s.discardArtwork(ctx, rel.UserID, rel.Artwork(), "create failed")
		return storeFailure(err)
	}

	logger.Info("Release created",
		logger.UserID(rel.UserID),
		logger.ReleaseID(rel.ID),
		logger.String("status", string(rel.Status)))
	s.publish(ctx, newEvent(EventCreated, rel, rel.CreatedAt))
	return nil
}

// Update applies patch and optionally replaces the artwork. A new file takes
// precedence over ClearArtwork; with neither, the artwork is left as is.
func (s *Service) Update(ctx context.Context, id Identity, releaseID string, patch Patch, newArtwork *ArtworkFile) (*model.Release, error) {
	if !id.Authenticated() {
		return nil, ErrAuthRequired
	}

	// Validate everything before touching storage.
	var (
		title, artist, date, link string
		tracks                    []string
		err                       error
	)
	if patch.Title != nil {
		if title, err = validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if patch.Artist != nil {
		if artist, err = validateArtist(*patch.Artist); err != nil {
			return nil, err
		}
	}
	if patch.ReleaseDate != nil {
		if date, err = NormalizeDate(*patch.ReleaseDate); err != nil {
			return nil, err
		}
	}
	if patch.Tracks != nil {
		if tracks, err = validateTracks(patch.Tracks); err != nil {
			return nil, err
		}
	}
	if patch.SpotifyLink != nil {
		if link, err = validateLink("spotifyLink", *patch.SpotifyLink); err != nil {
			return nil, err
		}
	}
	if err := s.validateArtwork(newArtwork); err != nil {
		return nil, err
	}

	rel, err := s.load(ctx, id, releaseID)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		rel.Title = title
	}
	if patch.Artist != nil {
		rel.Artist = ResolveArtist(ctx, artist, id, s.profiles)
	}
	if patch.ReleaseDate != nil {
		rel.ReleaseDate = date
	} else if normalized, err := NormalizeDate(rel.ReleaseDate); err == nil {
		rel.ReleaseDate = normalized
	}
	if patch.Tracks != nil {
		rel.Tracks = model.TrackList(tracks)
	}
	if patch.SpotifyLink != nil {
		rel.SpotifyLink = link
	}

	previousArtwork := rel.Artwork()
	replacedArtwork := false
	switch {
	case newArtwork != nil:
		ref, err := s.uploadArtwork(ctx, id.UserID, newArtwork)
		if err != nil {
			return nil, err
		}
		rel.ArtworkURL = &ref
		replacedArtwork = true
	case patch.ClearArtwork:
		rel.ArtworkURL = nil
		replacedArtwork = true
	}

	rel.UpdatedAt = s.now().UTC()
	if err := s.releases.Update(ctx, rel); err != nil {
		logger.Error("Failed to update release",
			logger.UserID(id.UserID),
			logger.ReleaseID(rel.ID),
			logger.ErrorField(err))
		if newArtwork != nil {
			s.discardArtwork(ctx, id.UserID, rel.Artwork(), "update failed")
		}
		return nil, updateFailure(err)
	}

	if replacedArtwork && previousArtwork != rel.Artwork() {
		s.discardArtwork(ctx, id.UserID, previousArtwork, "replaced")
	}

	logger.Info("Release updated", logger.UserID(id.UserID), logger.ReleaseID(rel.ID))
	s.publish(ctx, newEvent(EventUpdated, rel, rel.UpdatedAt))
	return rel, nil
}

// Remove deletes the release. Artwork cleanup runs first and is advisory:
// the record is deleted whatever the outcome.
func (s *Service) Remove(ctx context.Context, id Identity, releaseID string) error {
	rel, err := s.load(ctx, id, releaseID)
	if err != nil {
		return err
	}

	s.discardArtwork(ctx, id.UserID, rel.Artwork(), "release removed")

	if err := s.releases.Delete(ctx, id.UserID, rel.ID); err != nil {
		logger.Error("Failed to delete release",
			logger.UserID(id.UserID),
			logger.ReleaseID(rel.ID),
			logger.ErrorField(err))
		return storeFailure(err)
	}

	logger.Info("Release removed", logger.UserID(id.UserID), logger.ReleaseID(rel.ID))
	s.publish(ctx, newEvent(EventDeleted, rel, s.now().UTC()))
	return nil
}

// ApplyPipelineResult moves a processing release to completed or failed.
// When a takedown is pending, the remembered previous status advances instead.
func (s *Service) ApplyPipelineResult(ctx context.Context, userID int64, releaseID string, result PipelineResult) (*model.Release, error) {
	if result.Status != model.StatusCompleted && result.Status != model.StatusFailed {
		return nil, invalid("status", "pipeline status must be completed or failed")
	}
	var tracks []string
	if result.Status == model.StatusCompleted {
		var err error
		if tracks, err = validateTracks(result.Tracks); err != nil {
			return nil, err
		}
	}

	rel, err := s.load(ctx, Identity{UserID: userID}, releaseID)
	if err != nil {
		return nil, err
	}

	switch {
	case rel.Status == model.StatusProcessing:
		rel.Status = result.Status
	case rel.Status == model.StatusTakedownRequested && rel.PreviousStatus == model.StatusProcessing:
		rel.PreviousStatus = result.Status
	default:
		return nil, ErrInvalidTransition
	}
	if tracks != nil {
		rel.Tracks = model.TrackList(tracks)
	}

	rel.UpdatedAt = s.now().UTC()
	if err := s.releases.Update(ctx, rel); err != nil {
		logger.Error("Failed to apply pipeline result",
			logger.UserID(userID),
			logger.ReleaseID(rel.ID),
			logger.ErrorField(err))
		return nil, updateFailure(err)
	}

	logger.Info("Pipeline result applied",
		logger.UserID(userID),
		logger.ReleaseID(rel.ID),
		logger.String("result", string(result.Status)))
	s.publish(ctx, newEvent(EventStatusChanged, rel, rel.UpdatedAt))
	return rel, nil
}
