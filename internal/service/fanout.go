package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/openlearn/live-session-server/internal/model"
	"github.com/openlearn/live-session-server/internal/repository"
)

// BroadcastSink publishes one event to every currently-connected client.
// Injected rather than reached for globally so tests can observe broadcasts.
type BroadcastSink interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

const (
	EventSessionScheduled = "session.scheduled"
	EventSessionStarted   = "session.started"
)

// FanoutService turns a committed session state change into one notification
// per actively enrolled learner. Dispatch is best-effort: the triggering
// transition has already been persisted, so failures are logged and counted
// but never propagated back to the caller.
type FanoutService struct {
	courses       repository.CourseRepository
	enrollments   repository.EnrollmentRepository
	notifications repository.NotificationRepository
	broadcast     BroadcastSink
	joinURL       func(sessionID string) string
	concurrency   int
}

func NewFanoutService(
	courses repository.CourseRepository,
	enrollments repository.EnrollmentRepository,
	notifications repository.NotificationRepository,
	broadcast BroadcastSink,
	joinURL func(sessionID string) string,
	concurrency int,
) *FanoutService {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &FanoutService{
		courses:       courses,
		enrollments:   enrollments,
		notifications: notifications,
		broadcast:     broadcast,
		joinURL:       joinURL,
		concurrency:   concurrency,
	}
}

// SessionScheduled notifies every active enrollment that a session was
// created.
func (s *FanoutService) SessionScheduled(ctx context.Context, session *model.LiveSession) {
	payload := mustRaw(map[string]any{
		"scheduledAt":     session.ScheduledAt.Format(time.RFC3339),
		"durationMinutes": session.DurationMinutes,
		"title":           session.Title,
	})
	s.dispatch(ctx, session, model.NotificationEventScheduled, payload)
}

// SessionStarted notifies every active enrollment that the session went
// live, and additionally publishes one broadcast event observed by all
// connected clients, enrolled or not.
func (s *FanoutService) SessionStarted(ctx context.Context, session *model.LiveSession) {
	joinURL := s.joinURL(session.ID)

	var token string
	if session.LiveToken != nil {
		token = *session.LiveToken
	}

	payload := mustRaw(map[string]any{
		"joinUrl":   joinURL,
		"liveToken": token,
	})
	s.dispatch(ctx, session, model.NotificationEventStarted, payload)

	if err := s.broadcast.Publish(ctx, EventSessionStarted, map[string]any{
		"sessionId": session.ID,
		"courseId":  session.CourseID,
		"title":     session.Title,
		"liveToken": token,
		"joinUrl":   joinURL,
	}); err != nil {
		log.Error().Err(err).
			Str("sessionId", session.ID).
			Msg("broadcast publish failed")
	}
}

func (s *FanoutService) dispatch(ctx context.Context, session *model.LiveSession, event model.NotificationEvent, payload *json.RawMessage) {
	courseTitle := ""
	course, err := s.courses.FindByID(ctx, session.CourseID)
	if err != nil {
		log.Error().Err(err).
			Str("courseId", session.CourseID).
			Msg("fanout: course lookup failed")
	} else if course != nil {
		courseTitle = course.Title
	}

	enrollments, err := s.enrollments.ListActiveByCourse(ctx, session.CourseID)
	if err != nil {
		log.Error().Err(err).
			Str("sessionId", session.ID).
			Str("event", string(event)).
			Msg("fanout: enrollment enumeration failed")
		return
	}

	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, enrollment := range enrollments {
		enrollment := enrollment
		g.Go(func() error {
			_, err := s.notifications.Create(gctx, model.CreateNotificationParams{
				RecipientID: enrollment.LearnerID,
				Event:       event,
				SessionID:   session.ID,
				CourseID:    session.CourseID,
				CourseTitle: courseTitle,
				Payload:     payload,
				Priority:    model.NotificationPriorityHigh,
			})
			if err != nil {
				failed.Add(1)
				log.Error().Err(err).
					Str("recipientId", enrollment.LearnerID).
					Str("sessionId", session.ID).
					Str("event", string(event)).
					Msg("fanout: notification dispatch failed")
			}
			// one recipient failing must not stop the others
			return nil
		})
	}
	_ = g.Wait()

	logEvent := log.Info()
	if failed.Load() > 0 {
		logEvent = log.Warn()
	}
	logEvent.
		Str("sessionId", session.ID).
		Str("event", string(event)).
		Int("recipients", len(enrollments)).
		Int64("failed", failed.Load()).
		Msg("fanout dispatched")
}

func mustRaw(v any) *json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	raw := json.RawMessage(data)
	return &raw
}
