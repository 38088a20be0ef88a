package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/openlearn/live-session-server/internal/errors"
	"github.com/openlearn/live-session-server/internal/model"
	"github.com/openlearn/live-session-server/internal/repository"
	"github.com/openlearn/live-session-server/internal/schedule"
)

// JoinResult is what an admitted caller gets back. The attendee roster is
// populated only for the owning tutor, never for a learner.
type JoinResult struct {
	SessionID string              `json:"sessionId"`
	Status    model.SessionStatus `json:"status"`
	Meeting   *json.RawMessage    `json:"meeting,omitempty"`
	LiveToken *string             `json:"liveToken,omitempty"`
	Attendees []model.Attendee    `json:"attendees,omitempty"`
}

// AdmissionService decides whether a user may enter a session right now and
// records attendance. Admission is idempotent: repeated joins by the same
// user leave exactly one attendee entry.
type AdmissionService struct {
	sessions    repository.SessionRepository
	enrollments repository.EnrollmentRepository
	now         func() time.Time
}

func NewAdmissionService(sessions repository.SessionRepository, enrollments repository.EnrollmentRepository) *AdmissionService {
	return &AdmissionService{
		sessions:    sessions,
		enrollments: enrollments,
		now:         time.Now,
	}
}

// Join admits the requester and records attendance.
func (s *AdmissionService) Join(ctx context.Context, sessionID string, requester *model.User) (*JoinResult, error) {
	now := s.now()

	session, err := s.admit(ctx, sessionID, requester, now)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.AddAttendee(ctx, session.ID, requester.ID, now); err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("userId", requester.ID).
		Str("status", string(session.Status)).
		Msg("attendee admitted")

	return s.result(ctx, session, requester)
}

// CanJoin runs the same admission checks as Join without recording anything.
func (s *AdmissionService) CanJoin(ctx context.Context, sessionID string, requester *model.User) (*JoinResult, error) {
	now := s.now()

	session, err := s.admit(ctx, sessionID, requester, now)
	if err != nil {
		return nil, err
	}

	return s.result(ctx, session, requester)
}

// admit applies the ordered admission gates against a single clock reading.
func (s *AdmissionService) admit(ctx context.Context, sessionID string, requester *model.User, now time.Time) (*model.LiveSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NotFound("Session")
	}

	// the owning tutor skips the enrollment check but never enters a
	// completed session
	if session.TutorID == requester.ID {
		if session.Status == model.SessionStatusCompleted {
			return nil, apperrors.InvalidState("Session has ended")
		}
		return session, nil
	}

	enrollment, err := s.enrollments.FindActive(ctx, requester.ID, session.CourseID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if enrollment == nil {
		return nil, apperrors.Forbidden("You are not enrolled in this course")
	}

	switch session.Status {
	case model.SessionStatusCompleted:
		return nil, apperrors.InvalidState("Session has ended")

	case model.SessionStatusScheduled:
		check := schedule.JoinWindow(session.ScheduledAt, now)
		if !check.Allowed {
			return nil, apperrors.TooEarly(
				fmt.Sprintf("Session has not started yet: it is scheduled in %.0f minutes and may be joined at most %.0f minutes early",
					check.TimeDifferenceMinutes, schedule.EarlyJoinLead.Minutes()),
				check.Boundary, check.TimeDifferenceMinutes)
		}
	}

	return session, nil
}

func (s *AdmissionService) result(ctx context.Context, session *model.LiveSession, requester *model.User) (*JoinResult, error) {
	result := &JoinResult{
		SessionID: session.ID,
		Status:    session.Status,
		Meeting:   session.Meeting,
		LiveToken: session.LiveToken,
	}

	if session.TutorID == requester.ID {
		attendees, err := s.sessions.ListAttendees(ctx, session.ID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		result.Attendees = attendees
	}

	return result, nil
}
