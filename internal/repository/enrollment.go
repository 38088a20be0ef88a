package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/live-session-server/internal/model"
)

// EnrollmentRepository is read-only: enrollments are created by the payment
// flow, this service only checks them for admission and fan-out.
type EnrollmentRepository interface {
	FindActive(ctx context.Context, learnerID, courseID string) (*model.Enrollment, error)
	ListActiveByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error)
}

type enrollmentRepo struct {
	db *sqlx.DB
}

func NewEnrollmentRepository(db *sqlx.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) FindActive(ctx context.Context, learnerID, courseID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.GetContext(ctx, &enrollment, `
		SELECT id, course_id, learner_id, status
		FROM enrollments
		WHERE learner_id = $1 AND course_id = $2 AND status = 'active'
	`, learnerID, courseID)
	return HandleNotFound(&enrollment, err)
}

func (r *enrollmentRepo) ListActiveByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.SelectContext(ctx, &enrollments, `
		SELECT id, course_id, learner_id, status
		FROM enrollments
		WHERE course_id = $1 AND status = 'active'
		ORDER BY id
	`, courseID)
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}
