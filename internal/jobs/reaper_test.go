package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/openlearn/live-session-server/internal/model"
	"github.com/openlearn/live-session-server/internal/repository"
)

type mockSessionRepo struct {
	overrunCount int64
	reapCalls    int32
	lastOverrun  time.Duration
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateLiveSessionParams) (*model.LiveSession, error) {
	return nil, nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	return nil, nil
}

func (m *mockSessionRepo) ListByCourse(ctx context.Context, courseID string) ([]model.LiveSession, error) {
	return nil, nil
}

func (m *mockSessionRepo) FindOverlapping(ctx context.Context, courseID string, from, to time.Time) ([]model.LiveSession, error) {
	return nil, nil
}

func (m *mockSessionRepo) MarkLive(ctx context.Context, id, token string, startedAt time.Time) (bool, error) {
	return false, nil
}

func (m *mockSessionRepo) MarkCompleted(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	return false, nil
}

func (m *mockSessionRepo) AddAttendee(ctx context.Context, sessionID, userID string, joinedAt time.Time) error {
	return nil
}

func (m *mockSessionRepo) ListAttendees(ctx context.Context, sessionID string) ([]model.Attendee, error) {
	return nil, nil
}

func (m *mockSessionRepo) CompleteOverrun(ctx context.Context, now time.Time, overrun time.Duration) (int64, error) {
	atomic.AddInt32(&m.reapCalls, 1)
	m.lastOverrun = overrun
	return m.overrunCount, nil
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

func TestReaperJob(t *testing.T) {
	t.Run("creates job with correct interval and overrun", func(t *testing.T) {
		job := NewReaperJob(nil, 5*time.Minute, time.Hour)

		assert.NotNil(t, job)
		assert.Equal(t, 5*time.Minute, job.interval)
		assert.Equal(t, time.Hour, job.maxOverrun)
	})

	t.Run("reaps immediately on start", func(t *testing.T) {
		repo := &mockSessionRepo{overrunCount: 2}

		job := NewReaperJob(repo, time.Hour, 30*time.Minute)
		job.Start()
		time.Sleep(50 * time.Millisecond)
		job.Stop()

		assert.Equal(t, int32(1), atomic.LoadInt32(&repo.reapCalls))
		assert.Equal(t, 30*time.Minute, repo.lastOverrun)
	})

	t.Run("reaps again on each tick", func(t *testing.T) {
		repo := &mockSessionRepo{}

		job := NewReaperJob(repo, 20*time.Millisecond, time.Hour)
		job.Start()
		time.Sleep(70 * time.Millisecond)
		job.Stop()

		assert.GreaterOrEqual(t, atomic.LoadInt32(&repo.reapCalls), int32(2))
	})

	t.Run("stops without panic", func(t *testing.T) {
		repo := &mockSessionRepo{}

		job := NewReaperJob(repo, time.Hour, time.Hour)
		job.Start()
		job.Stop()
	})
}
