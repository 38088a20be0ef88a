package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/openlearn/live-session-server/internal/errors"
	"github.com/openlearn/live-session-server/internal/model"
)

func newAdmissionFixture() (*AdmissionService, *mockSessionRepo, *mockEnrollmentRepo) {
	sessions := new(mockSessionRepo)
	enrollments := new(mockEnrollmentRepo)

	svc := NewAdmissionService(sessions, enrollments)
	svc.now = func() time.Time { return testNow }

	return svc, sessions, enrollments
}

func liveSession(tutorID string) *model.LiveSession {
	token := uuid.NewString()
	meeting := json.RawMessage(`{"link":"https://meet.example.com/room","password":"s3cret"}`)
	return &model.LiveSession{
		ID:              uuid.NewString(),
		CourseID:        uuid.NewString(),
		TutorID:         tutorID,
		ScheduledAt:     testNow.Add(-10 * time.Minute),
		DurationMinutes: 60,
		Status:          model.SessionStatusLive,
		LiveToken:       &token,
		Meeting:         &meeting,
	}
}

func activeEnrollment(learnerID, courseID string) *model.Enrollment {
	return &model.Enrollment{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		LearnerID: learnerID,
		Status:    model.EnrollmentStatusActive,
	}
}

func TestAdmissionService_Join(t *testing.T) {
	ctx := context.Background()
	tutor := &model.User{ID: uuid.NewString(), Role: model.UserRoleTutor}
	learner := &model.User{ID: uuid.NewString(), Role: model.UserRoleLearner}

	t.Run("enrolled learner joins a live session", func(t *testing.T) {
		svc, sessions, enrollments := newAdmissionFixture()
		session := liveSession(tutor.ID)

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)
		enrollments.On("FindActive", mock.Anything, learner.ID, session.CourseID).
			Return(activeEnrollment(learner.ID, session.CourseID), nil)
		sessions.On("AddAttendee", mock.Anything, session.ID, learner.ID, testNow).Return(nil)

		result, err := svc.Join(ctx, session.ID, learner)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusLive, result.Status)
		assert.Equal(t, session.Meeting, result.Meeting)
		assert.Equal(t, session.LiveToken, result.LiveToken)
		assert.Nil(t, result.Attendees, "learner must not see the roster")
	})

	t.Run("learner without active enrollment is rejected", func(t *testing.T) {
		svc, sessions, enrollments := newAdmissionFixture()
		session := liveSession(tutor.ID)

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)
		enrollments.On("FindActive", mock.Anything, learner.ID, session.CourseID).
			Return(nil, nil)

		_, err := svc.Join(ctx, session.ID, learner)

		assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.GetCode(err))
		sessions.AssertNotCalled(t, "AddAttendee", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("owning tutor joins without an enrollment and sees the roster", func(t *testing.T) {
		svc, sessions, enrollments := newAdmissionFixture()
		session := liveSession(tutor.ID)
		roster := []model.Attendee{{SessionID: session.ID, UserID: learner.ID, JoinedAt: testNow}}

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)
		sessions.On("AddAttendee", mock.Anything, session.ID, tutor.ID, testNow).Return(nil)
		sessions.On("ListAttendees", mock.Anything, session.ID).Return(roster, nil)

		result, err := svc.Join(ctx, session.ID, tutor)

		require.NoError(t, err)
		assert.Equal(t, roster, result.Attendees)
		enrollments.AssertNotCalled(t, "FindActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("tutor cannot join a completed session", func(t *testing.T) {
		svc, sessions, _ := newAdmissionFixture()
		session := liveSession(tutor.ID)
		session.Status = model.SessionStatusCompleted

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)

		_, err := svc.Join(ctx, session.ID, tutor)

		require.Equal(t, apperrors.ErrCodeInvalidState, apperrors.GetCode(err))
		appErr, _ := apperrors.AsAppError(err)
		assert.Contains(t, appErr.Message, "ended")
	})

	t.Run("scheduled session rejects join before the early-join window", func(t *testing.T) {
		svc, sessions, enrollments := newAdmissionFixture()
		session := liveSession(tutor.ID)
		session.Status = model.SessionStatusScheduled
		session.ScheduledAt = testNow.Add(10 * time.Minute)
		session.LiveToken = nil

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)
		enrollments.On("FindActive", mock.Anything, learner.ID, session.CourseID).
			Return(activeEnrollment(learner.ID, session.CourseID), nil)

		_, err := svc.Join(ctx, session.ID, learner)

		require.Equal(t, apperrors.ErrCodeTooEarly, apperrors.GetCode(err))
		appErr, _ := apperrors.AsAppError(err)
		details := appErr.Details.(apperrors.TimingDetails)
		assert.InDelta(t, 10, details.TimeDifferenceMinutes, 0.001)
		assert.Equal(t, session.ScheduledAt.Add(-5*time.Minute), details.Boundary)
	})

	t.Run("scheduled session admits inside the early-join window", func(t *testing.T) {
		svc, sessions, enrollments := newAdmissionFixture()
		session := liveSession(tutor.ID)
		session.Status = model.SessionStatusScheduled
		session.ScheduledAt = testNow.Add(4 * time.Minute)
		session.LiveToken = nil

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)
		enrollments.On("FindActive", mock.Anything, learner.ID, session.CourseID).
			Return(activeEnrollment(learner.ID, session.CourseID), nil)
		sessions.On("AddAttendee", mock.Anything, session.ID, learner.ID, testNow).Return(nil)

		result, err := svc.Join(ctx, session.ID, learner)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusScheduled, result.Status)
		assert.Nil(t, result.LiveToken)
	})

	t.Run("repeated joins record attendance idempotently", func(t *testing.T) {
		svc, sessions, enrollments := newAdmissionFixture()
		session := liveSession(tutor.ID)

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)
		enrollments.On("FindActive", mock.Anything, learner.ID, session.CourseID).
			Return(activeEnrollment(learner.ID, session.CourseID), nil)
		sessions.On("AddAttendee", mock.Anything, session.ID, learner.ID, testNow).Return(nil)

		_, err := svc.Join(ctx, session.ID, learner)
		require.NoError(t, err)
		_, err = svc.Join(ctx, session.ID, learner)
		require.NoError(t, err)

		// the upsert is delegated to the store; both joins issue the same call
		sessions.AssertNumberOfCalls(t, "AddAttendee", 2)
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		svc, sessions, _ := newAdmissionFixture()
		sessions.On("FindByID", mock.Anything, "missing").Return(nil, nil)

		_, err := svc.Join(ctx, "missing", learner)

		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestAdmissionService_CanJoin(t *testing.T) {
	ctx := context.Background()
	tutor := &model.User{ID: uuid.NewString(), Role: model.UserRoleTutor}
	learner := &model.User{ID: uuid.NewString(), Role: model.UserRoleLearner}

	t.Run("dry run never records attendance", func(t *testing.T) {
		svc, sessions, enrollments := newAdmissionFixture()
		session := liveSession(tutor.ID)

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)
		enrollments.On("FindActive", mock.Anything, learner.ID, session.CourseID).
			Return(activeEnrollment(learner.ID, session.CourseID), nil)

		result, err := svc.CanJoin(ctx, session.ID, learner)

		require.NoError(t, err)
		assert.Equal(t, model.SessionStatusLive, result.Status)
		sessions.AssertNotCalled(t, "AddAttendee", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("dry run reports the same rejection as join", func(t *testing.T) {
		svc, sessions, enrollments := newAdmissionFixture()
		session := liveSession(tutor.ID)
		session.Status = model.SessionStatusScheduled
		session.ScheduledAt = testNow.Add(30 * time.Minute)

		sessions.On("FindByID", mock.Anything, session.ID).Return(session, nil)
		enrollments.On("FindActive", mock.Anything, learner.ID, session.CourseID).
			Return(activeEnrollment(learner.ID, session.CourseID), nil)

		_, err := svc.CanJoin(ctx, session.ID, learner)

		assert.Equal(t, apperrors.ErrCodeTooEarly, apperrors.GetCode(err))
	})
}
