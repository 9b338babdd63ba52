package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"ArtistHub/core/release"
	"ArtistHub/model"
	"ArtistHub/repository"
	"ArtistHub/storage"

	"github.com/minio/minio-go/v7"
)

type memReleases struct {
	mu      sync.Mutex
	records map[string]model.Release
}

func newMemReleases() *memReleases {
	return &memReleases{records: make(map[string]model.Release)}
}

func (m *memReleases) Create(_ context.Context, r *model.Release) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.records[r.ID]; !ok || cur.UserID != r.UserID {
		return repository.ErrReleaseNotFound
	}
	m.records[r.ID] = *r
	return nil
}

func (m *memReleases) GetByID(_ context.Context, userID int64, id string) (*model.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.UserID != userID {
		return nil, nil
	}
	return &r, nil
}

func (m *memReleases) ListByUser(_ context.Context, userID int64) ([]*model.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Release
	for _, r := range m.records {
		if r.UserID == userID {
			r := r
			out = append(out, &r)
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

func (m *memReleases) ListByStatus(_ context.Context, status model.ReleaseStatus) ([]*model.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Release
	for _, r := range m.records {
		if r.Status == status {
			r := r
			out = append(out, &r)
		}
	}
	return out, nil
}

func (m *memReleases) Update(_ context.Context, r *model.Release) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.records[r.ID]; !ok || cur.UserID != r.UserID {
		return repository.ErrReleaseNotFound
	}
	m.records[r.ID] = *r
	return nil
}

func (m *memReleases) Delete(_ context.Context, userID int64, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok && r.UserID == userID {
		delete(m.records, id)
	}
	return nil
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[int64]model.User)}
}

func (m *memUsers) CreateUser(_ context.Context, u *model.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return 0, repository.ErrDuplicateUser
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = *u
	return u.ID, nil
}

func (m *memUsers) find(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

func (m *memUsers) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Username == username })
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memUsers) UpdateArtistName(_ context.Context, userID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return fmt.Errorf("user %d not found", userID)
	}
	u.ArtistName = name
	m.byID[userID] = u
	return nil
}

type storedObject struct {
	data        []byte
	contentType string
}

// memArtwork mimics storage.ArtworkStore keyed the same way.
type memArtwork struct {
	mu      sync.Mutex
	seq     int
	objects map[string]storedObject
}

func newMemArtwork() *memArtwork {
	return &memArtwork{objects: make(map[string]storedObject)}
}

func (m *memArtwork) Upload(_ context.Context, userID int64, filename, contentType string, r io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	key := fmt.Sprintf("%s%d/%d_%s", "artwork/", userID, m.seq, storage.SafeFilename(filename))
	m.objects[key] = storedObject{data: data, contentType: contentType}
	return storage.ServePrefix + key, nil
}

func (m *memArtwork) Delete(_ context.Context, ref string) error {
	key, ok := storage.KeyFromReference(ref)
	if !ok {
		return storage.ErrObjectNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[key]; !exists {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memArtwork) Open(_ context.Context, key string) (io.ReadCloser, minio.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, minio.ObjectInfo{}, storage.ErrObjectNotFound
	}
	info := minio.ObjectInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

func (m *memArtwork) has(ref string) bool {
	key := strings.TrimPrefix(ref, storage.ServePrefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// chanEvents hands out one shared channel per Listen call.
type chanEvents struct {
	listened chan int64
	feed     chan release.Event
	err      error
}

func newChanEvents() *chanEvents {
	return &chanEvents{listened: make(chan int64, 1), feed: make(chan release.Event, 1)}
}

func (c *chanEvents) Listen(ctx context.Context, userID int64) (<-chan release.Event, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(chan release.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-c.feed:
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	c.listened <- userID
	return out, nil
}
