package server

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"ArtistHub/core/release"
	"ArtistHub/logger"
	"ArtistHub/model"

	"github.com/gorilla/mux"
)

const maxFormMemory = 32 << 20 // 32MB, larger parts spill to disk

// releaseForm wraps a parsed multipart or urlencoded request body.
type releaseForm struct {
	r *http.Request
}

func parseReleaseForm(r *http.Request) (*releaseForm, error) {
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, err
	}
	return &releaseForm{r: r}, nil
}

func (f *releaseForm) value(key string) string {
	return f.r.FormValue(key)
}

// optional returns nil when key was not sent at all.
func (f *releaseForm) optional(key string) *string {
	if _, ok := f.r.Form[key]; !ok {
		return nil
	}
	v := f.r.Form.Get(key)
	return &v
}

// tracks accepts repeated "tracks" fields; nil when none were sent.
func (f *releaseForm) tracks() []string {
	values, ok := f.r.Form["tracks"]
	if !ok {
		return nil
	}
	return append([]string{}, values...)
}

// artwork returns the uploaded "artwork" file, or nil when none was sent.
// The caller closes the returned file.
func (f *releaseForm) artwork() (*release.ArtworkFile, multipart.File, error) {
	if f.r.MultipartForm == nil {
		return nil, nil, nil
	}
	file, header, err := f.r.FormFile("artwork")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return &release.ArtworkFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, file, nil
}

func closeFile(f multipart.File) {
	if f != nil {
		_ = f.Close()
	}
}

// ListReleasesHandler 获取当前用户的发行列表
func (h *APIHandler) ListReleasesHandler(w http.ResponseWriter, r *http.Request) {
	releases, err := h.releases.List(r.Context(), IdentityFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	now := time.Now().UTC()
	out := make([]releaseResponse, 0, len(releases))
	for _, rel := range releases {
		out = append(out, h.present(rel, now))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetReleaseHandler 获取单个发行
func (h *APIHandler) GetReleaseHandler(w http.ResponseWriter, r *http.Request) {
	rel, err := h.releases.Get(r.Context(), IdentityFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(rel, time.Now().UTC()))
}

// UploadReleaseHandler creates a release whose audio goes to the processing pipeline.
// Expected form fields:
// - title, releaseDate
// - artist (optional)
// - artwork: cover image (optional)
func (h *APIHandler) UploadReleaseHandler(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if !id.Authenticated() {
		writeServiceError(w, release.ErrAuthRequired)
		return
	}
	form, err := parseReleaseForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	artwork, file, err := form.artwork()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artwork upload")
		return
	}
	defer closeFile(file)

	releaseID, err := h.releases.CreateFromUpload(r.Context(), id, release.UploadMeta{
		Title:       form.value("title"),
		Artist:      form.value("artist"),
		ReleaseDate: form.value("releaseDate"),
		Artwork:     artwork,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondCreated(w, r, id, releaseID)
}

// CreateExistingReleaseHandler records a release that is already distributed.
// Expected form fields:
// - title, releaseDate, tracks (repeated)
// - artist, spotifyLink, artworkUrl (optional)
// - artwork: cover image (optional, takes precedence over artworkUrl)
func (h *APIHandler) CreateExistingReleaseHandler(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if !id.Authenticated() {
		writeServiceError(w, release.ErrAuthRequired)
		return
	}
	form, err := parseReleaseForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	artwork, file, err := form.artwork()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artwork upload")
		return
	}
	defer closeFile(file)

	releaseID, err := h.releases.CreateExisting(r.Context(), id, release.ExistingData{
		Title:       form.value("title"),
		Artist:      form.value("artist"),
		ReleaseDate: form.value("releaseDate"),
		Tracks:      form.tracks(),
		SpotifyLink: form.value("spotifyLink"),
		ArtworkURL:  form.value("artworkUrl"),
		Artwork:     artwork,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondCreated(w, r, id, releaseID)
}

func (h *APIHandler) respondCreated(w http.ResponseWriter, r *http.Request, id release.Identity, releaseID string) {
	rel, err := h.releases.Get(r.Context(), id, releaseID)
	if err != nil {
		// the release exists; report the id even if the read-back failed
		logger.Warn("Failed to read back created release", logger.ReleaseID(releaseID), logger.ErrorField(err))
		writeJSON(w, http.StatusCreated, map[string]string{"id": releaseID})
		return
	}
	writeJSON(w, http.StatusCreated, h.present(rel, time.Now().UTC()))
}

// UpdateReleaseHandler applies a partial edit. Only fields present in the
// form are changed; clearArtwork=true removes the artwork.
func (h *APIHandler) UpdateReleaseHandler(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if !id.Authenticated() {
		writeServiceError(w, release.ErrAuthRequired)
		return
	}
	form, err := parseReleaseForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	artwork, file, err := form.artwork()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artwork upload")
		return
	}
	defer closeFile(file)

	clearArtwork := false
	if v := form.value("clearArtwork"); v != "" {
		if clearArtwork, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "clearArtwork must be true or false")
			return
		}
	}

	patch := release.Patch{
		Title:        form.optional("title"),
		Artist:       form.optional("artist"),
		ReleaseDate:  form.optional("releaseDate"),
		Tracks:       form.tracks(),
		SpotifyLink:  form.optional("spotifyLink"),
		ClearArtwork: clearArtwork,
	}
	rel, err := h.releases.Update(r.Context(), id, mux.Vars(r)["id"], patch, artwork)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(rel, time.Now().UTC()))
}

// DeleteReleaseHandler removes a release and its stored artwork.
func (h *APIHandler) DeleteReleaseHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.releases.Remove(r.Context(), IdentityFromContext(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestTakedownHandler starts a takedown request.
func (h *APIHandler) RequestTakedownHandler(w http.ResponseWriter, r *http.Request) {
	h.takedown(w, r, h.releases.InitiateTakedown)
}

// CancelTakedownHandler reverts a takedown request inside its window.
func (h *APIHandler) CancelTakedownHandler(w http.ResponseWriter, r *http.Request) {
	h.takedown(w, r, h.releases.CancelTakedown)
}

type takedownAction func(ctx context.Context, id release.Identity, releaseID string) (*model.Release, error)

func (h *APIHandler) takedown(w http.ResponseWriter, r *http.Request, action takedownAction) {
	rel, err := action(r.Context(), IdentityFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(rel, time.Now().UTC()))
}
