package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/openlearn/live-session-server/internal/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, params model.CreateNotificationParams) (*model.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error)
}

type notificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, params model.CreateNotificationParams) (*model.Notification, error) {
	var notification model.Notification
	err := r.db.GetContext(ctx, &notification, `
		INSERT INTO notifications (
			id, recipient_id, event, session_id, course_id,
			course_title, payload, priority
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *
	`,
		uuid.NewString(), params.RecipientID, params.Event, params.SessionID,
		params.CourseID, params.CourseTitle, params.Payload, params.Priority,
	)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var notifications []model.Notification
	err := r.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}
