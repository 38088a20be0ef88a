package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/openlearn/live-session-server/internal/model"
	"github.com/openlearn/live-session-server/internal/repository"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateLiveSessionParams) (*model.LiveSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LiveSession), args.Error(1)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LiveSession), args.Error(1)
}

func (m *mockSessionRepo) ListByCourse(ctx context.Context, courseID string) ([]model.LiveSession, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LiveSession), args.Error(1)
}

func (m *mockSessionRepo) FindOverlapping(ctx context.Context, courseID string, from, to time.Time) ([]model.LiveSession, error) {
	args := m.Called(ctx, courseID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LiveSession), args.Error(1)
}

func (m *mockSessionRepo) MarkLive(ctx context.Context, id, token string, startedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, token, startedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) MarkCompleted(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, endedAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessionRepo) AddAttendee(ctx context.Context, sessionID, userID string, joinedAt time.Time) error {
	args := m.Called(ctx, sessionID, userID, joinedAt)
	return args.Error(0)
}

func (m *mockSessionRepo) ListAttendees(ctx context.Context, sessionID string) ([]model.Attendee, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Attendee), args.Error(1)
}

func (m *mockSessionRepo) CompleteOverrun(ctx context.Context, now time.Time, overrun time.Duration) (int64, error) {
	args := m.Called(ctx, now, overrun)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

type mockCourseRepo struct {
	mock.Mock
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*model.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Course), args.Error(1)
}

type mockEnrollmentRepo struct {
	mock.Mock
}

func (m *mockEnrollmentRepo) FindActive(ctx context.Context, learnerID, courseID string) (*model.Enrollment, error) {
	args := m.Called(ctx, learnerID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Enrollment), args.Error(1)
}

func (m *mockEnrollmentRepo) ListActiveByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Enrollment), args.Error(1)
}

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, params model.CreateNotificationParams) (*model.Notification, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error) {
	args := m.Called(ctx, recipientID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}

type mockBroadcastSink struct {
	mock.Mock
}

func (m *mockBroadcastSink) Publish(ctx context.Context, eventType string, payload any) error {
	args := m.Called(ctx, eventType, payload)
	return args.Error(0)
}

func testJoinURL(sessionID string) string {
	return "http://localhost:8080/live-sessions/" + sessionID + "/join"
}

// newQuietFanout builds a fan-out whose collaborators expect no calls unless
// a test registers them.
func newQuietFanout(courses *mockCourseRepo, enrollments *mockEnrollmentRepo, notifications *mockNotificationRepo, broadcast *mockBroadcastSink) *FanoutService {
	return NewFanoutService(courses, enrollments, notifications, broadcast, testJoinURL, 4)
}
