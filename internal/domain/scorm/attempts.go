package scorm

import (
	"context"
	"time"

	"github.com/google/uuid"

	"scormhub/internal/pkg/session"
)

// CommitInput carries the CMI values a player reports. Nil fields are left
// unchanged.
type CommitInput struct {
	LessonStatus   *LessonStatus `json:"lesson_status" validate:"omitempty,oneof='not attempted' incomplete browsed completed passed failed"`
	ScoreRaw       *float64      `json:"score_raw"`
	ScoreMax       *float64      `json:"score_max" validate:"omitempty,gte=0"`
	ScoreMin       *float64      `json:"score_min"`
	TotalTime      *string       `json:"total_time" validate:"omitempty,max=32"`
	SessionTime    *string       `json:"session_time" validate:"omitempty,max=32"`
	LessonLocation *string       `json:"lesson_location" validate:"omitempty,max=1000"`
	SuspendData    *string       `json:"suspend_data" validate:"omitempty,max=64000"`
	// Finish ends the player session (LMSFinish / Terminate).
	Finish         bool          `json:"finish"`
}

// AttemptService records learner play-throughs.
type AttemptService struct {
	packages PackageRepository
	attempts AttemptRepository
	stats    *StatsService
	now      func() time.Time
}

func NewAttemptService(packages PackageRepository, attempts AttemptRepository, stats *StatsService) *AttemptService {
	return &AttemptService{packages: packages, attempts: attempts, stats: stats, now: time.Now}
}

// Start opens a new attempt for the caller.
func (s *AttemptService) Start(ctx context.Context, user session.User, packageID string) (*Attempt, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !user.MemberOf(pkg.OrganizationID) {
		return nil, ErrPackageNotFound
	}
	if pkg.Status != PackageActive {
		return nil, ErrPackageInactive
	}

	now := s.now()
	a := &Attempt{
		ID:           uuid.New().String(),
		PackageID:    pkg.ID,
		UserID:       user.ID,
		LessonStatus: StatusNotAttempted,
		StartedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.attempts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(pkg.ID)
	return a, nil
}

// ListMine returns the caller's attempts of a package, newest first.
func (s *AttemptService) ListMine(ctx context.Context, user session.User, packageID string) ([]Attempt, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !user.MemberOf(pkg.OrganizationID) {
		return nil, ErrPackageNotFound
	}
	return s.attempts.ListByPackageAndUser(ctx, packageID, user.ID)
}

// Commit applies reported CMI values to the caller's own attempt. A reported
// session time is the running time of the current session, so repeated
// commits replace it rather than add to it; Finish folds it into the total
// of finished sessions.
func (s *AttemptService) Commit(ctx context.Context, user session.User, attemptID string, in CommitInput) (*Attempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserID != user.ID {
		return nil, ErrNotAttemptOwner
	}

	var total, elapsed time.Duration
	if in.TotalTime != nil {
		d, ok := ParseDuration(*in.TotalTime)
		if !ok {
			return nil, ErrInvalidTimespan
		}
		total = d
	}
	if in.SessionTime != nil {
		d, ok := ParseDuration(*in.SessionTime)
		if !ok {
			return nil, ErrInvalidTimespan
		}
		elapsed = d
	}

	now := s.now()
	if in.LessonStatus != nil {
		a.LessonStatus = *in.LessonStatus
		switch a.LessonStatus {
		case StatusCompleted, StatusPassed, StatusFailed:
			if a.CompletedAt == nil {
				a.CompletedAt = &now
			}
		}
	}
	if in.ScoreRaw != nil {
		a.ScoreRaw = in.ScoreRaw
	}
	if in.ScoreMax != nil {
		a.ScoreMax = in.ScoreMax
	}
	if in.ScoreMin != nil {
		a.ScoreMin = in.ScoreMin
	}
	if in.LessonLocation != nil {
		a.LessonLocation = *in.LessonLocation
	}
	if in.SuspendData != nil {
		a.SuspendData = *in.SuspendData
	}
	if in.SessionTime != nil {
		a.SessionTime = *in.SessionTime
	}
	prior, _ := ParseDuration(a.PriorTime)
	switch {
	case in.TotalTime != nil:
		a.TotalTime = *in.TotalTime
		prior = max(total-elapsed, 0)
	case in.SessionTime != nil:
		a.TotalTime = FormatDuration(prior + elapsed)
	}
	if in.Finish {
		prior, _ = ParseDuration(a.TotalTime)
	}
	a.PriorTime = FormatDuration(prior)
	a.UpdatedAt = now

	if err := s.attempts.Update(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(a.PackageID)
	return a, nil
}

func (s *AttemptService) invalidate(packageID string) {
	if s.stats != nil {
		s.stats.Invalidate(packageID)
	}
}
