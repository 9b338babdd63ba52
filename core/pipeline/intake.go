package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ArtistHub/core/release"
	"ArtistHub/logger"
	"ArtistHub/model"

	"github.com/fsnotify/fsnotify"
)

const (
	processedDir = "processed"
	rejectedDir  = "rejected"
)

// Applier is the part of release.Service the intake drives.
type Applier interface {
	ApplyPipelineResult(ctx context.Context, userID int64, releaseID string, result release.PipelineResult) (*model.Release, error)
}

// Outcome says where a manifest ended up.
type Outcome int

const (
	Processed Outcome = iota
	Rejected
	Retained // store failure, retried on the next rescan
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return processedDir
	case Rejected:
		return rejectedDir
	default:
		return "retained"
	}
}

// Intake applies pipeline manifests found in an inbox directory.
// Producers should write to a temporary name and rename into the inbox
// so that a manifest is complete when its create event fires.
type Intake struct {
	dir     string
	rescan  time.Duration
	applier Applier
}

// NewIntake creates an Intake for dir. While running, the inbox is rescanned
// every rescan interval so retained manifests are retried; zero disables it.
func NewIntake(dir string, rescan time.Duration, applier Applier) *Intake {
	return &Intake{dir: dir, rescan: rescan, applier: applier}
}

// Prepare creates the inbox and its processed/rejected subdirectories.
func (in *Intake) Prepare() error {
	for _, d := range []string{in.dir, filepath.Join(in.dir, processedDir), filepath.Join(in.dir, rejectedDir)} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

// Scan processes every manifest already in the inbox, oldest name first.
func (in *Intake) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isManifest(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		in.ProcessFile(ctx, filepath.Join(in.dir, name))
	}
	return nil
}

// Run scans the inbox, then watches it until ctx is cancelled.
func (in *Intake) Run(ctx context.Context) error {
	if err := in.Prepare(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", in.dir, err)
	}

	// 先处理启动前已存在的清单
	if err := in.Scan(ctx); err != nil {
		return err
	}
	logger.Info("Pipeline intake watching",
		logger.String("dir", in.dir),
		logger.Duration("rescan", in.rescan))

	var tick <-chan time.Time
	if in.rescan > 0 {
		ticker := time.NewTicker(in.rescan)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create == fsnotify.Create && isManifest(event.Name) {
				in.ProcessFile(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Pipeline watcher error", logger.ErrorField(err))
		case <-tick:
			// 重试之前因存储故障保留的清单
			if err := in.Scan(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("Pipeline rescan failed", logger.ErrorField(err))
			}
		case <-ctx.Done():
			logger.Info("Pipeline intake stopped")
			return nil
		}
	}
}

// ProcessFile applies one manifest and files it under processed/ or rejected/.
// Store failures leave the file in place.
func (in *Intake) ProcessFile(ctx context.Context, path string) Outcome {
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// already moved by an earlier event
			return Retained
		}
		logger.Warn("Failed to read manifest", logger.String("file", name), logger.ErrorField(err))
		return Retained
	}

	manifest, err := ParseManifest(name, data)
	if err != nil {
		logger.Warn("Rejected pipeline manifest", logger.String("file", name), logger.ErrorField(err))
		return in.file(path, Rejected)
	}
	if manifest.Error != "" {
		logger.Info("Pipeline reported failure",
			logger.UserID(manifest.UserID),
			logger.ReleaseID(manifest.ReleaseID),
			logger.String("reason", manifest.Error))
	}

	_, err = in.applier.ApplyPipelineResult(ctx, manifest.UserID, manifest.ReleaseID, manifest.Result())
	switch {
	case err == nil:
		return in.file(path, Processed)
	case errors.Is(err, release.ErrOperationFailed):
		logger.Error("Pipeline result not stored, will retry",
			logger.String("file", name),
			logger.ReleaseID(manifest.ReleaseID),
			logger.ErrorField(err))
		return Retained
	default:
		logger.Warn("Pipeline result refused",
			logger.String("file", name),
			logger.UserID(manifest.UserID),
			logger.ReleaseID(manifest.ReleaseID),
			logger.ErrorField(err))
		return in.file(path, Rejected)
	}
}

func (in *Intake) file(path string, outcome Outcome) Outcome {
	target := filepath.Join(in.dir, outcome.String(), filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		logger.Error("Failed to move manifest",
			logger.String("file", path),
			logger.String("target", target),
			logger.ErrorField(err))
		return Retained
	}
	return outcome
}

func isManifest(name string) bool {
	_, ok := manifestFormats[strings.ToLower(filepath.Ext(name))]
	return ok
}
