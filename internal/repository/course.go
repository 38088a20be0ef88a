package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/live-session-server/internal/model"
)

// CourseRepository is the read-only boundary to the catalog. The publish
// workflow lives elsewhere; this service only ever looks courses up.
type CourseRepository interface {
	FindByID(ctx context.Context, id string) (*model.Course, error)
}

type courseRepo struct {
	db *sqlx.DB
}

func NewCourseRepository(db *sqlx.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) FindByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.GetContext(ctx, &course, `
		SELECT id, tutor_id, title, status, start_date, end_date
		FROM courses WHERE id = $1
	`, id)
	return HandleNotFound(&course, err)
}
