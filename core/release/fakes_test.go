package release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"ArtistHub/model"
	"ArtistHub/repository"
	"ArtistHub/storage"
)

var errBackend = errors.New("backend unavailable")

func cloneRelease(r *model.Release) *model.Release {
	c := *r
	if r.Tracks != nil {
		c.Tracks = append(model.TrackList{}, r.Tracks...)
	}
	if r.ArtworkURL != nil {
		v := *r.ArtworkURL
		c.ArtworkURL = &v
	}
	if r.TakedownRequestedAt != nil {
		v := *r.TakedownRequestedAt
		c.TakedownRequestedAt = &v
	}
	return &c
}

// fakeReleaseRepo stores copies so callers cannot mutate persisted state.
type fakeReleaseRepo struct {
	records   map[string]*model.Release
	getErr    error
	createErr error
	updateErr error
	deleteErr error
	updates   int
	onUpdate  func() // runs before Update looks at the records
}

func newFakeReleaseRepo() *fakeReleaseRepo {
	return &fakeReleaseRepo{records: make(map[string]*model.Release)}
}

func (f *fakeReleaseRepo) Create(ctx context.Context, r *model.Release) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.records[r.ID] = cloneRelease(r)
	return nil
}

func (f *fakeReleaseRepo) GetByID(ctx context.Context, userID int64, id string) (*model.Release, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.records[id]
	if !ok || r.UserID != userID {
		return nil, nil
	}
	return cloneRelease(r), nil
}

func (f *fakeReleaseRepo) ListByUser(ctx context.Context, userID int64) ([]*model.Release, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	var out []*model.Release
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, cloneRelease(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReleaseDate != out[j].ReleaseDate {
			return out[i].ReleaseDate > out[j].ReleaseDate
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeReleaseRepo) ListByStatus(ctx context.Context, status model.ReleaseStatus) ([]*model.Release, error) {
	var out []*model.Release
	for _, r := range f.records {
		if r.Status == status {
			out = append(out, cloneRelease(r))
		}
	}
	return out, nil
}

func (f *fakeReleaseRepo) Update(ctx context.Context, r *model.Release) error {
	if f.onUpdate != nil {
		f.onUpdate()
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.records[r.ID]; !ok {
		return fmt.Errorf("no release %s: %w", r.ID, repository.ErrReleaseNotFound)
	}
	f.updates++
	f.records[r.ID] = cloneRelease(r)
	return nil
}

func (f *fakeReleaseRepo) Delete(ctx context.Context, userID int64, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, id)
	return nil
}

type fakeArtworkStore struct {
	uploads   map[string][]byte
	deleted   []string
	uploadErr error
	deleteErr error
	seq       int
}

func newFakeArtworkStore() *fakeArtworkStore {
	return &fakeArtworkStore{uploads: make(map[string][]byte)}
}

func (f *fakeArtworkStore) Upload(ctx context.Context, userID int64, filename, contentType string, r io.Reader, size int64) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.seq++
	ref := fmt.Sprintf("/static/artwork/%d/%d_%s", userID, f.seq, filename)
	f.uploads[ref] = data
	return ref, nil
}

func (f *fakeArtworkStore) Delete(ctx context.Context, ref string) error {
	f.deleted = append(f.deleted, ref)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.uploads[ref]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(f.uploads, ref)
	return nil
}

type fakeProfiles struct {
	name  string
	err   error
	calls int
}

func (f *fakeProfiles) ArtistName(ctx context.Context, userID int64) (string, error) {
	f.calls++
	return f.name, f.err
}

type fakePublisher struct {
	events []Event
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, e Event) error {
	f.events = append(f.events, e)
	return f.err
}

func (f *fakePublisher) types() []EventType {
	out := make([]EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	svc       *Service
	repo      *fakeReleaseRepo
	artwork   *fakeArtworkStore
	profiles  *fakeProfiles
	publisher *fakePublisher
	clock     *testClock
}

const testPlaceholder = "/static/placeholder/artwork.png"

var owner = Identity{UserID: 1, Username: "ada", Email: "ada@example.com"}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:      newFakeReleaseRepo(),
		artwork:   newFakeArtworkStore(),
		profiles:  &fakeProfiles{},
		publisher: &fakePublisher{},
		clock:     &testClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)},
	}
	h.svc = NewService(Options{
		Releases:           h.repo,
		Artwork:            h.artwork,
		Profiles:           h.profiles,
		Events:             h.publisher,
		PlaceholderArtwork: testPlaceholder,
		MaxArtworkBytes:    1 << 20,
		Now:                h.clock.Now,
	})
	seq := 0
	h.svc.newID = func() string {
		seq++
		return fmt.Sprintf("rel-%d", seq)
	}
	return h
}

func imageFile(name, content string) *ArtworkFile {
	return &ArtworkFile{
		Filename:    name,
		ContentType: "image/png",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

// seed stores a release directly, bypassing the service.
func (h *harness) seed(r *model.Release) *model.Release {
	if r.UserID == 0 {
		r.UserID = owner.UserID
	}
	if r.ReleaseDate == "" {
		r.ReleaseDate = "2024-01-01"
	}
	if r.Tracks == nil {
		r.Tracks = model.TrackList{"Track 1"}
	}
	h.repo.records[r.ID] = cloneRelease(r)
	return r
}

func (h *harness) stored(t *testing.T, id string) *model.Release {
	t.Helper()
	r, ok := h.repo.records[id]
	if !ok {
		t.Fatalf("release %s not stored", id)
	}
	return r
}

func strPtr(s string) *string { return &s }
