package model

import (
	"encoding/json"
	"time"
)

type Notification struct {
	ID          string               `db:"id" json:"id"`
	RecipientID string               `db:"recipient_id" json:"recipientId"`
	Event       NotificationEvent    `db:"event" json:"event"`
	SessionID   string               `db:"session_id" json:"sessionId"`
	CourseID    string               `db:"course_id" json:"courseId"`
	CourseTitle string               `db:"course_title" json:"courseTitle"`
	Payload     *json.RawMessage     `db:"payload" json:"payload,omitempty"`
	Priority    NotificationPriority `db:"priority" json:"priority"`
	CreatedAt   time.Time            `db:"created_at" json:"createdAt"`
}

type CreateNotificationParams struct {
	RecipientID string
	Event       NotificationEvent
	SessionID   string
	CourseID    string
	CourseTitle string
	Payload     *json.RawMessage
	Priority    NotificationPriority
}
