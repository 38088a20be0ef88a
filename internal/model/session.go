package model

import (
	"encoding/json"
	"time"
)

// LiveSession is a single scheduled live-class occurrence for a course.
// The duration is stored in minutes; the live token exists only once the
// session has gone live and is minted exactly once.
type LiveSession struct {
	ID              string           `db:"id" json:"id"`
	CourseID        string           `db:"course_id" json:"courseId"`
	TutorID         string           `db:"tutor_id" json:"tutorId"`
	Title           string           `db:"title" json:"title"`
	Description     string           `db:"description" json:"description"`
	ScheduledAt     time.Time        `db:"scheduled_at" json:"scheduledAt"`
	DurationMinutes int              `db:"duration_minutes" json:"durationMinutes"`
	MaxParticipants int              `db:"max_participants" json:"maxParticipants"`
	Status          SessionStatus    `db:"status" json:"status"`
	LiveToken       *string          `db:"live_token" json:"liveToken,omitempty"`
	StartedAt       *time.Time       `db:"started_at" json:"startedAt,omitempty"`
	EndedAt         *time.Time       `db:"ended_at" json:"endedAt,omitempty"`
	Features        *json.RawMessage `db:"features" json:"features,omitempty"`
	Meeting         *json.RawMessage `db:"meeting" json:"meeting,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updatedAt"`
}

type CreateLiveSessionParams struct {
	ID              string
	CourseID        string
	TutorID         string
	Title           string
	Description     string
	ScheduledAt     time.Time
	DurationMinutes int
	MaxParticipants int
	Features        *json.RawMessage
	Meeting         *json.RawMessage
}

// Attendee records that a user joined a session at least once.
type Attendee struct {
	SessionID string    `db:"session_id" json:"sessionId"`
	UserID    string    `db:"user_id" json:"userId"`
	JoinedAt  time.Time `db:"joined_at" json:"joinedAt"`
}
