package server

import (
	"context"
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"ArtistHub/core/release"
	"ArtistHub/logger"
)

const maxArtistNameLength = 255

type profileResponse struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	ArtistName  string `json:"artistName"`
	// DefaultArtist is what a new release without an artist would be credited to.
	DefaultArtist string `json:"defaultArtist"`
}

type updateProfileRequest struct {
	ArtistName string `json:"artistName"`
}

// GetProfileHandler 获取当前用户资料
func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if !id.Authenticated() {
		writeServiceError(w, release.ErrAuthRequired)
		return
	}
	h.writeProfile(w, r, id)
}

// UpdateProfileHandler 更新艺人名称
func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if !id.Authenticated() {
		writeServiceError(w, release.ErrAuthRequired)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, err := release.CleanText("artistName", req.ArtistName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if utf8.RuneCountInString(name) > maxArtistNameLength {
		writeError(w, http.StatusBadRequest, "artistName: must be at most 255 characters")
		return
	}

	if err := h.users.UpdateArtistName(r.Context(), id.UserID, name); err != nil {
		logger.Error("Failed to update artist name", logger.UserID(id.UserID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not complete operation")
		return
	}
	if h.profiles != nil {
		if err := h.profiles.Invalidate(r.Context(), id.UserID); err != nil {
			logger.Warn("Failed to invalidate profile cache", logger.UserID(id.UserID), logger.ErrorField(err))
		}
	}
	logger.Info("Artist name updated", logger.UserID(id.UserID))
	h.writeProfile(w, r, id)
}

func (h *APIHandler) writeProfile(w http.ResponseWriter, r *http.Request, id release.Identity) {
	user, err := h.users.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		logger.Error("Failed to load profile", logger.UserID(id.UserID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "could not complete operation")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		ArtistName:    user.ArtistName,
		DefaultArtist: release.ResolveArtist(r.Context(), "", id, staticProfile(user.ArtistName)),
	})
}

// staticProfile answers artist lookups with an already loaded name.
type staticProfile string

func (p staticProfile) ArtistName(context.Context, int64) (string, error) {
	return string(p), nil
}
