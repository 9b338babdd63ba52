package release

import (
	"context"
	"fmt"
	"time"

	"ArtistHub/logger"
	"ArtistHub/model"
)

// restoreFallback is used for pending takedowns recorded without a previous status.
const restoreFallback = model.StatusCompleted

// TakedownDeadline returns the last instant at which the takedown on rel can
// be cancelled. ok is false when no takedown is pending.
func TakedownDeadline(rel *model.Release, window time.Duration) (deadline time.Time, ok bool) {
	if rel == nil || rel.Status != model.StatusTakedownRequested || rel.TakedownRequestedAt == nil {
		return time.Time{}, false
	}
	return rel.TakedownRequestedAt.Add(window), true
}

// CanCancelTakedown reports whether now lies within [requestedAt, requestedAt+window].
// Both ends are inclusive.
func CanCancelTakedown(rel *model.Release, now time.Time, window time.Duration) bool {
	deadline, ok := TakedownDeadline(rel, window)
	if !ok {
		return false
	}
	return !now.Before(*rel.TakedownRequestedAt) && !now.After(deadline)
}

// InitiateTakedown marks a live release as takedown_requested. The request is
// then announced to the distribution desk; that notification is best-effort.
func (s *Service) InitiateTakedown(ctx context.Context, id Identity, releaseID string) (*model.Release, error) {
	rel, err := s.load(ctx, id, releaseID)
	if err != nil {
		return nil, err
	}
	if !rel.Status.AllowsTakedown() {
		return nil, fmt.Errorf("%w: release is %s", ErrTakedownNotAllowed, rel.Status)
	}

	now := s.now().UTC()
	rel.PreviousStatus = rel.Status
	rel.Status = model.StatusTakedownRequested
	rel.TakedownRequestedAt = &now
	rel.UpdatedAt = now

	if err := s.releases.Update(ctx, rel); err != nil {
		logger.Error("Failed to record takedown request",
			logger.UserID(id.UserID),
			logger.ReleaseID(rel.ID),
			logger.ErrorField(err))
		return nil, updateFailure(err)
	}

	logger.Info("Takedown requested",
		logger.UserID(id.UserID),
		logger.ReleaseID(rel.ID),
		logger.String("previousStatus", string(rel.PreviousStatus)))
	s.publish(ctx, newEvent(EventTakedownRequested, rel, now))
	return rel, nil
}

// CancelTakedown reverts a pending takedown while the window is open and
// restores the status the release had before the request.
func (s *Service) CancelTakedown(ctx context.Context, id Identity, releaseID string) (*model.Release, error) {
	rel, err := s.load(ctx, id, releaseID)
	if err != nil {
		return nil, err
	}
	if rel.Status != model.StatusTakedownRequested {
		return nil, fmt.Errorf("%w: no takedown pending", ErrTakedownNotAllowed)
	}

	now := s.now().UTC()
	if !CanCancelTakedown(rel, now, s.takedownWindow) {
		logger.Warn("Takedown cancellation outside window",
			logger.UserID(id.UserID),
			logger.ReleaseID(rel.ID),
			logger.Any("requestedAt", rel.TakedownRequestedAt))
		return nil, ErrCancelWindowClosed
	}

	restored := rel.PreviousStatus
	if !restored.IsLive() {
		restored = restoreFallback
	}
	rel.Status = restored
	rel.PreviousStatus = ""
	rel.TakedownRequestedAt = nil
	rel.UpdatedAt = now

	if err := s.releases.Update(ctx, rel); err != nil {
		logger.Error("Failed to cancel takedown",
			logger.UserID(id.UserID),
			logger.ReleaseID(rel.ID),
			logger.ErrorField(err))
		return nil, updateFailure(err)
	}

	logger.Info("Takedown cancelled",
		logger.UserID(id.UserID),
		logger.ReleaseID(rel.ID),
		logger.String("status", string(rel.Status)))
	s.publish(ctx, newEvent(EventTakedownCancelled, rel, now))
	return rel, nil
}
