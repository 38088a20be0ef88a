package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openlearn/live-session-server/internal/config"
	apperrors "github.com/openlearn/live-session-server/internal/errors"
	"github.com/openlearn/live-session-server/internal/model"
	"github.com/openlearn/live-session-server/internal/repository"
)

type CreateSessionInput struct {
	Title           string           `json:"title" validate:"required"`
	Description     string           `json:"description" validate:"required"`
	CourseID        string           `json:"courseId" validate:"required,uuid"`
	ScheduledAt     time.Time        `json:"scheduledAt" validate:"required"`
	DurationMinutes int              `json:"durationMinutes" validate:"required,min=15,max=480"`
	MaxParticipants int              `json:"maxParticipants" validate:"omitempty,min=1"`
	Features        *json.RawMessage `json:"features,omitempty"`
	Meeting         *json.RawMessage `json:"meeting,omitempty"`
}

// SchedulingService validates and persists session creation requests, and
// answers read queries filtered by ownership and enrollment.
type SchedulingService struct {
	sessions    repository.SessionRepository
	courses     repository.CourseRepository
	enrollments repository.EnrollmentRepository
	fanout      *FanoutService
	validate    *validator.Validate
	now         func() time.Time
}

func NewSchedulingService(
	sessions repository.SessionRepository,
	courses repository.CourseRepository,
	enrollments repository.EnrollmentRepository,
	fanout *FanoutService,
) *SchedulingService {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &SchedulingService{
		sessions:    sessions,
		courses:     courses,
		enrollments: enrollments,
		fanout:      fanout,
		validate:    v,
		now:         time.Now,
	}
}

// Create runs the full validation chain and persists a scheduled session.
// Fan-out is best-effort: the created session is the source of truth and is
// never rolled back over a notification failure.
func (s *SchedulingService) Create(ctx context.Context, input CreateSessionInput, requester *model.User) (*model.LiveSession, error) {
	now := s.now()

	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, input.CourseID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if course == nil {
		return nil, apperrors.NotFound("Course")
	}

	if course.TutorID != requester.ID {
		return nil, apperrors.Forbidden("Only the course tutor can schedule live sessions")
	}

	if course.Status != model.CourseStatusPublished {
		return nil, apperrors.PreconditionFailed("Course must be published before scheduling live sessions")
	}

	if !input.ScheduledAt.After(now) {
		return nil, apperrors.ValidationError("scheduledAt must be in the future")
	}

	if course.StartDate != nil && input.ScheduledAt.Before(*course.StartDate) {
		return nil, apperrors.ValidationError("scheduledAt is before the course start date")
	}
	if course.EndDate != nil && input.ScheduledAt.After(*course.EndDate) {
		return nil, apperrors.ValidationError("scheduledAt is after the course end date")
	}

	// Conflict interval is the scheduled time padded by the full duration on
	// both sides; sessions already completed do not occupy their interval.
	margin := time.Duration(input.DurationMinutes) * time.Minute
	overlapping, err := s.sessions.FindOverlapping(ctx, input.CourseID,
		input.ScheduledAt.Add(-margin), input.ScheduledAt.Add(margin))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if len(overlapping) > 0 {
		return nil, apperrors.ScheduleConflict("An overlapping live session already exists for this course").
			WithDetails(map[string]any{
				"conflictingSessionId": overlapping[0].ID,
				"scheduledAt":          overlapping[0].ScheduledAt.Format(time.RFC3339),
			})
	}

	session, err := s.sessions.Create(ctx, model.CreateLiveSessionParams{
		ID:              uuid.NewString(),
		CourseID:        input.CourseID,
		TutorID:         requester.ID,
		Title:           input.Title,
		Description:     input.Description,
		ScheduledAt:     input.ScheduledAt,
		DurationMinutes: input.DurationMinutes,
		MaxParticipants: input.MaxParticipants,
		Features:        input.Features,
		Meeting:         input.Meeting,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("courseId", session.CourseID).
		Str("tutorId", requester.ID).
		Time("scheduledAt", session.ScheduledAt).
		Msg("live session scheduled")

	s.fanout.SessionScheduled(ctx, session)

	return session, nil
}

// Get returns a session with visibility filtered by the requester: the
// owning tutor also receives the attendee roster, enrolled learners only
// the session itself.
func (s *SchedulingService) Get(ctx context.Context, sessionID string, requester *model.User) (*model.LiveSession, []model.Attendee, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, nil, apperrors.NotFound("Session")
	}

	if session.TutorID == requester.ID {
		attendees, err := s.sessions.ListAttendees(ctx, sessionID)
		if err != nil {
			return nil, nil, apperrors.Database(err)
		}
		return session, attendees, nil
	}

	enrollment, err := s.enrollments.FindActive(ctx, requester.ID, session.CourseID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if enrollment == nil {
		return nil, nil, apperrors.Forbidden("You are not enrolled in this course")
	}

	return session, nil, nil
}

// ListByCourse returns the course's sessions: all of them for the owning
// tutor, only scheduled and live ones for enrolled learners.
func (s *SchedulingService) ListByCourse(ctx context.Context, courseID string, requester *model.User) ([]model.LiveSession, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if course == nil {
		return nil, apperrors.NotFound("Course")
	}

	sessions, err := s.sessions.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	if course.TutorID == requester.ID {
		return sessions, nil
	}

	enrollment, err := s.enrollments.FindActive(ctx, requester.ID, courseID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if enrollment == nil {
		return nil, apperrors.Forbidden("You are not enrolled in this course")
	}

	upcoming := make([]model.LiveSession, 0, len(sessions))
	for _, session := range sessions {
		if session.Status != model.SessionStatusCompleted {
			upcoming = append(upcoming, session)
		}
	}
	return upcoming, nil
}

func (s *SchedulingService) validateInput(input CreateSessionInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.ValidationError(err.Error())
	}

	first := validationErrs[0]
	switch first.Tag() {
	case "required":
		return apperrors.MissingRequired(first.Field())
	case "min", "max":
		if first.Field() == "durationMinutes" {
			return apperrors.InvalidInput("durationMinutes", fmt.Sprintf(
				"must be between %d and %d", config.MinSessionDuration, config.MaxSessionDuration))
		}
		return apperrors.InvalidInput(first.Field(), "out of range")
	default:
		return apperrors.InvalidInput(first.Field(), fmt.Sprintf("failed %s validation", first.Tag()))
	}
}
