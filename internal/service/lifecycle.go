package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/openlearn/live-session-server/internal/errors"
	"github.com/openlearn/live-session-server/internal/model"
	"github.com/openlearn/live-session-server/internal/repository"
	"github.com/openlearn/live-session-server/internal/schedule"
)

// LifecycleService drives the scheduled -> live -> completed state machine.
// Both transitions are conditional updates keyed on the current status, so
// of two racing requests exactly one succeeds and the loser observes an
// invalid-state error.
type LifecycleService struct {
	sessions repository.SessionRepository
	fanout   *FanoutService
	now      func() time.Time
}

func NewLifecycleService(sessions repository.SessionRepository, fanout *FanoutService) *LifecycleService {
	return &LifecycleService{
		sessions: sessions,
		fanout:   fanout,
		now:      time.Now,
	}
}

// Start transitions a scheduled session to live, minting the live token.
// Only the owning tutor may start, and only inside the early-start window.
func (s *LifecycleService) Start(ctx context.Context, sessionID string, requester *model.User) (*model.LiveSession, error) {
	now := s.now()

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	if session.TutorID != requester.ID {
		return nil, apperrors.Forbidden("Only the owning tutor can start the session")
	}

	if session.Status != model.SessionStatusScheduled {
		return nil, apperrors.InvalidState(fmt.Sprintf("Session cannot be started: session is %s", session.Status))
	}

	check := schedule.StartWindow(session.ScheduledAt, now)
	if !check.Allowed {
		return nil, apperrors.TooEarly(
			fmt.Sprintf("Session cannot be started yet: it is scheduled in %.0f minutes and may be started at most %.0f minutes early",
				check.TimeDifferenceMinutes, schedule.EarlyStartLead.Minutes()),
			check.Boundary, check.TimeDifferenceMinutes)
	}

	token := uuid.NewString()

	ok, err := s.sessions.MarkLive(ctx, session.ID, token, now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !ok {
		// lost the race to a concurrent start (or end of a stale read)
		current, readErr := s.sessions.FindByID(ctx, sessionID)
		if readErr != nil {
			log.Debug().Err(readErr).Str("sessionId", sessionID).Msg("re-read after lost start race failed")
		}
		if current != nil {
			return nil, apperrors.InvalidState(fmt.Sprintf("Session cannot be started: session is %s", current.Status))
		}
		return nil, apperrors.InvalidState("Session cannot be started: session is no longer scheduled")
	}

	started, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil || started == nil {
		// the transition committed; fall back to a local copy for the response
		started = session
		started.Status = model.SessionStatusLive
		started.LiveToken = &token
		started.StartedAt = &now
	}

	log.Info().
		Str("sessionId", started.ID).
		Str("courseId", started.CourseID).
		Str("tutorId", requester.ID).
		Msg("live session started")

	s.fanout.SessionStarted(ctx, started)

	return started, nil
}

// End transitions a live session to completed. No fan-out is emitted.
func (s *LifecycleService) End(ctx context.Context, sessionID string, requester *model.User) (*model.LiveSession, error) {
	now := s.now()

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	if session.TutorID != requester.ID {
		return nil, apperrors.Forbidden("Only the owning tutor can end the session")
	}

	if session.Status != model.SessionStatusLive {
		return nil, apperrors.InvalidState(fmt.Sprintf("Session cannot be ended: session is %s", session.Status))
	}

	ok, err := s.sessions.MarkCompleted(ctx, session.ID, now)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if !ok {
		current, readErr := s.sessions.FindByID(ctx, sessionID)
		if readErr != nil {
			log.Debug().Err(readErr).Str("sessionId", sessionID).Msg("re-read after lost end race failed")
		}
		if current != nil {
			return nil, apperrors.InvalidState(fmt.Sprintf("Session cannot be ended: session is %s", current.Status))
		}
		return nil, apperrors.InvalidState("Session cannot be ended: session is not live")
	}

	ended, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil || ended == nil {
		ended = session
		ended.Status = model.SessionStatusCompleted
		ended.EndedAt = &now
	}

	log.Info().
		Str("sessionId", ended.ID).
		Str("courseId", ended.CourseID).
		Str("tutorId", requester.ID).
		Msg("live session ended")

	return ended, nil
}
