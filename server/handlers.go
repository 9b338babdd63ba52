package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"ArtistHub/config"
	"ArtistHub/core/auth"
	"ArtistHub/core/release"
	"ArtistHub/logger"
	"ArtistHub/model"
	"ArtistHub/repository"

	"github.com/minio/minio-go/v7"
)

// ProfileCache drops cached profile data after the profile changes.
type ProfileCache interface {
	Invalidate(ctx context.Context, userID int64) error
}

// ArtworkReader opens stored artwork objects for serving.
type ArtworkReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, minio.ObjectInfo, error)
}

// EventStream delivers one user's release events until ctx ends.
type EventStream interface {
	Listen(ctx context.Context, userID int64) (<-chan release.Event, error)
}

// Deps collects what the API handlers need.
type Deps struct {
	Releases *release.Service
	Users    repository.UserRepository
	Profiles ProfileCache // optional
	Tokens   *auth.TokenIssuer
	Artwork  ArtworkReader
	Events   EventStream // optional; the websocket feed is disabled without it
	Config   *config.Config
}

// APIHandler 处理所有API请求
type APIHandler struct {
	releases *release.Service
	users    repository.UserRepository
	profiles ProfileCache
	tokens   *auth.TokenIssuer
	artwork  ArtworkReader
	events   EventStream
	cfg      *config.Config
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(d Deps) *APIHandler {
	return &APIHandler{
		releases: d.Releases,
		users:    d.Users,
		profiles: d.Profiles,
		tokens:   d.Tokens,
		artwork:  d.Artwork,
		events:   d.Events,
		cfg:      d.Config,
	}
}

// releaseResponse adds the derived fields the dashboard renders.
type releaseResponse struct {
	*model.Release
	DisplayArtwork    string     `json:"displayArtwork"`
	TakedownDeadline  *time.Time `json:"takedownDeadline,omitempty"`
	CanCancelTakedown bool       `json:"canCancelTakedown"`
}

func (h *APIHandler) present(rel *model.Release, now time.Time) releaseResponse {
	resp := releaseResponse{Release: rel, DisplayArtwork: rel.Artwork()}
	if resp.DisplayArtwork == "" {
		resp.DisplayArtwork = h.cfg.PlaceholderArtwork
	}
	window := h.releases.TakedownWindow()
	if deadline, ok := release.TakedownDeadline(rel, window); ok {
		resp.TakedownDeadline = &deadline
		resp.CanCancelTakedown = release.CanCancelTakedown(rel, now, window)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a release service error to one status and message.
// The cause is logged by the service and never sent to the client.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *release.ValidationError
	switch {
	case errors.Is(err, release.ErrAuthRequired):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, release.ErrNotFound):
		writeError(w, http.StatusNotFound, "release not found")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, release.ErrCancelWindowClosed):
		writeError(w, http.StatusConflict, "the takedown can no longer be cancelled")
	case errors.Is(err, release.ErrTakedownNotAllowed):
		writeError(w, http.StatusConflict, "takedown is not allowed for this release")
	case errors.Is(err, release.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status change")
	default:
		if !errors.Is(err, release.ErrOperationFailed) {
			logger.Error("Unexpected service error", logger.ErrorField(err))
		}
		writeError(w, http.StatusInternalServerError, "could not complete operation")
	}
}
