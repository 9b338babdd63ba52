package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ArtistHub/core/release"
	"ArtistHub/model"
)

type appliedCall struct {
	userID    int64
	releaseID string
	result    release.PipelineResult
}

type fakeApplier struct {
	mu    sync.Mutex
	calls []appliedCall
	err   error
}

func (f *fakeApplier) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeApplier) ApplyPipelineResult(_ context.Context, userID int64, releaseID string, result release.PipelineResult) (*model.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, appliedCall{userID, releaseID, result})
	if f.err != nil {
		return nil, f.err
	}
	return &model.Release{ID: releaseID, UserID: userID, Status: result.Status}, nil
}

func (f *fakeApplier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		wantErr bool
	}{
		{"completed", "a.json", `{"userId":1,"releaseId":"rel-1","status":"completed","tracks":["Intro"]}`, false},
		{"failed with reason", "a.json", `{"userId":1,"releaseId":"rel-1","status":"FAILED","error":"bad codec"}`, false},
		{"yaml", "a.yaml", "userId: 1\nreleaseId: rel-1\nstatus: completed\ntracks:\n  - Intro\n", false},
		{"yml extension", "a.YML", "userId: 1\nreleaseId: rel-1\nstatus: failed\n", false},
		{"unsupported extension", "a.txt", `{"userId":1,"releaseId":"rel-1","status":"failed"}`, true},
		{"malformed", "a.json", `{"userId":`, true},
		{"missing user", "a.json", `{"releaseId":"rel-1","status":"completed"}`, true},
		{"missing release", "a.json", `{"userId":1,"releaseId":"  ","status":"completed"}`, true},
		{"live status not allowed", "a.json", `{"userId":1,"releaseId":"rel-1","status":"existing"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest(tt.file, []byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if m.UserID != 1 || m.ReleaseID != "rel-1" {
				t.Errorf("decoded %+v", m)
			}
			if s := m.Result().Status; s != model.StatusCompleted && s != model.StatusFailed {
				t.Errorf("unexpected status %q", s)
			}
		})
	}
}

func newInbox(t *testing.T, applier Applier) *Intake {
	t.Helper()
	in := NewIntake(filepath.Join(t.TempDir(), "inbox"), 0, applier)
	if err := in.Prepare(); err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	return in
}

func writeManifest(t *testing.T, dir, name, body string) string {
	t.Helper()
	tmp := filepath.Join(filepath.Dir(dir), name+".tmp")
	if err := os.WriteFile(tmp, []byte(body), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename manifest: %v", err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestProcessFile(t *testing.T) {
	const good = `{"userId":7,"releaseId":"rel-9","status":"completed","tracks":["A","B"]}`

	tests := []struct {
		name       string
		body       string
		applierErr error
		want       Outcome
	}{
		{"applied", good, nil, Processed},
		{"unparseable", `not json`, nil, Rejected},
		{"refused transition", good, release.ErrInvalidTransition, Rejected},
		{"unknown release", good, release.ErrNotFound, Rejected},
		{"store failure", good, fmt.Errorf("%w: %w", release.ErrOperationFailed, errors.New("db down")), Retained},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applier := &fakeApplier{err: tt.applierErr}
			in := newInbox(t, applier)
			path := writeManifest(t, in.dir, "rel-9.json", tt.body)

			got := in.ProcessFile(context.Background(), path)
			if got != tt.want {
				t.Fatalf("ProcessFile() = %v, want %v", got, tt.want)
			}

			stillThere := exists(path)
			if tt.want == Retained && !stillThere {
				t.Error("retained manifest should stay in the inbox")
			}
			if tt.want != Retained {
				if stillThere {
					t.Error("manifest should have left the inbox")
				}
				if !exists(filepath.Join(in.dir, tt.want.String(), "rel-9.json")) {
					t.Errorf("manifest not found under %s/", tt.want)
				}
			}
		})
	}
}

func TestProcessFilePassesResult(t *testing.T) {
	applier := &fakeApplier{}
	in := newInbox(t, applier)
	path := writeManifest(t, in.dir, "m.json", `{"userId":7,"releaseId":"rel-9","status":"completed","tracks":["A","B"]}`)

	in.ProcessFile(context.Background(), path)

	if len(applier.calls) != 1 {
		t.Fatalf("expected one call, got %d", len(applier.calls))
	}
	call := applier.calls[0]
	if call.userID != 7 || call.releaseID != "rel-9" {
		t.Errorf("wrong target: %+v", call)
	}
	if call.result.Status != model.StatusCompleted || len(call.result.Tracks) != 2 {
		t.Errorf("wrong result: %+v", call.result)
	}
}

func TestProcessFileMissing(t *testing.T) {
	applier := &fakeApplier{}
	in := newInbox(t, applier)

	if got := in.ProcessFile(context.Background(), filepath.Join(in.dir, "gone.json")); got != Retained {
		t.Errorf("ProcessFile() = %v, want Retained", got)
	}
	if applier.count() != 0 {
		t.Error("applier should not be called for a missing file")
	}
}

func TestScanIgnoresOtherFiles(t *testing.T) {
	applier := &fakeApplier{}
	in := newInbox(t, applier)
	writeManifest(t, in.dir, "b.json", `{"userId":1,"releaseId":"rel-b","status":"failed"}`)
	writeManifest(t, in.dir, "a.yaml", "userId: 1\nreleaseId: rel-a\nstatus: failed\n")
	writeManifest(t, in.dir, "notes.txt", `ignore me`)

	if err := in.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if applier.count() != 2 {
		t.Fatalf("expected 2 manifests applied, got %d", applier.count())
	}
	if applier.calls[0].releaseID != "rel-a" || applier.calls[1].releaseID != "rel-b" {
		t.Errorf("manifests not processed in name order: %+v", applier.calls)
	}
	if !exists(filepath.Join(in.dir, "notes.txt")) {
		t.Error("non-manifest file should be left alone")
	}
}

func TestRunPicksUpNewManifests(t *testing.T) {
	applier := &fakeApplier{}
	in := newInbox(t, applier)
	writeManifest(t, in.dir, "before.json", `{"userId":1,"releaseId":"rel-1","status":"failed"}`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	writeManifest(t, in.dir, "after.json", `{"userId":1,"releaseId":"rel-2","status":"failed"}`)

	deadline := time.Now().Add(5 * time.Second)
	for applier.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if applier.count() != 2 {
		t.Fatalf("expected both manifests applied, got %d", applier.count())
	}
	for _, name := range []string{"before.json", "after.json"} {
		if !exists(filepath.Join(in.dir, processedDir, name)) {
			t.Errorf("%s not moved to processed/", name)
		}
	}
}

func TestRunRetriesRetainedManifests(t *testing.T) {
	applier := &fakeApplier{err: fmt.Errorf("%w: %w", release.ErrOperationFailed, errors.New("db down"))}
	in := newInbox(t, applier)
	in.rescan = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Run(ctx) }()

	writeManifest(t, in.dir, "r.json", `{"userId":1,"releaseId":"rel-1","status":"completed","tracks":["A"]}`)

	deadline := time.Now().Add(5 * time.Second)
	for applier.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !exists(filepath.Join(in.dir, "r.json")) {
		t.Fatal("manifest should stay in the inbox while the store is failing")
	}

	applier.setErr(nil)
	processed := filepath.Join(in.dir, processedDir, "r.json")
	deadline = time.Now().Add(5 * time.Second)
	for !exists(processed) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !exists(processed) {
		t.Fatal("retained manifest was not retried after the store recovered")
	}
	if exists(filepath.Join(in.dir, "r.json")) {
		t.Error("manifest should have left the inbox")
	}
	if applier.count() < 2 {
		t.Errorf("expected a retry, got %d apply calls", applier.count())
	}
}
