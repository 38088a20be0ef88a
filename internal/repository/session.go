package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/live-session-server/internal/model"
)

type SessionRepository interface {
	Create(ctx context.Context, params model.CreateLiveSessionParams) (*model.LiveSession, error)
	FindByID(ctx context.Context, id string) (*model.LiveSession, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.LiveSession, error)
	// FindOverlapping returns scheduled or live sessions for the course whose
	// padded interval intersects [from, to] (closed-interval test).
	FindOverlapping(ctx context.Context, courseID string, from, to time.Time) ([]model.LiveSession, error)
	// MarkLive conditionally transitions scheduled -> live. Returns false
	// when the session was not in the scheduled state, so exactly one of
	// two racing callers succeeds.
	MarkLive(ctx context.Context, id, token string, startedAt time.Time) (bool, error)
	// MarkCompleted conditionally transitions live -> completed.
	MarkCompleted(ctx context.Context, id string, endedAt time.Time) (bool, error)
	// AddAttendee records a join; repeated joins by the same user are no-ops.
	AddAttendee(ctx context.Context, sessionID, userID string, joinedAt time.Time) error
	ListAttendees(ctx context.Context, sessionID string) ([]model.Attendee, error)
	// CompleteOverrun force-completes sessions that have been live past
	// their duration plus the given overrun allowance.
	CompleteOverrun(ctx context.Context, now time.Time, overrun time.Duration) (int64, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateLiveSessionParams) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO live_sessions (
			id, course_id, tutor_id, title, description,
			scheduled_at, duration_minutes, max_participants,
			status, features, meeting
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'scheduled', $9, $10)
		RETURNING *
	`,
		params.ID, params.CourseID, params.TutorID, params.Title, params.Description,
		params.ScheduledAt, params.DurationMinutes, params.MaxParticipants,
		params.Features, params.Meeting,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.LiveSession, error) {
	var session model.LiveSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM live_sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) ListByCourse(ctx context.Context, courseID string) ([]model.LiveSession, error) {
	var sessions []model.LiveSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM live_sessions
		WHERE course_id = $1
		ORDER BY scheduled_at
	`, courseID)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) FindOverlapping(ctx context.Context, courseID string, from, to time.Time) ([]model.LiveSession, error) {
	var sessions []model.LiveSession
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM live_sessions
		WHERE course_id = $1
		AND status IN ('scheduled', 'live')
		AND scheduled_at - (duration_minutes * interval '1 minute') <= $3
		AND scheduled_at + (duration_minutes * interval '1 minute') >= $2
		ORDER BY scheduled_at
	`, courseID, from, to)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) MarkLive(ctx context.Context, id, token string, startedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE live_sessions SET
			status = 'live',
			live_token = $2,
			started_at = $3,
			updated_at = $3
		WHERE id = $1 AND status = 'scheduled'
	`, id, token, startedAt)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, id string, endedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE live_sessions SET
			status = 'completed',
			ended_at = $2,
			updated_at = $2
		WHERE id = $1 AND status = 'live'
	`, id, endedAt)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *sessionRepo) AddAttendee(ctx context.Context, sessionID, userID string, joinedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_attendees (session_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, user_id) DO NOTHING
	`, sessionID, userID, joinedAt)
	return err
}

func (r *sessionRepo) ListAttendees(ctx context.Context, sessionID string) ([]model.Attendee, error) {
	var attendees []model.Attendee
	err := r.db.SelectContext(ctx, &attendees, `
		SELECT * FROM session_attendees
		WHERE session_id = $1
		ORDER BY joined_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	return attendees, nil
}

func (r *sessionRepo) CompleteOverrun(ctx context.Context, now time.Time, overrun time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE live_sessions SET
			status = 'completed',
			ended_at = $1,
			updated_at = $1
		WHERE status = 'live'
		AND started_at + ((duration_minutes + $2) * interval '1 minute') < $1
	`, now, int(overrun.Minutes()))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
