package model

import "time"

// Course is a read-only collaborator: the catalog owns its lifecycle, this
// service only checks ownership, publication and the optional date range.
type Course struct {
	ID        string       `db:"id" json:"id"`
	TutorID   string       `db:"tutor_id" json:"tutorId"`
	Title     string       `db:"title" json:"title"`
	Status    CourseStatus `db:"status" json:"status"`
	StartDate *time.Time   `db:"start_date" json:"startDate,omitempty"`
	EndDate   *time.Time   `db:"end_date" json:"endDate,omitempty"`
}

// Enrollment authorizes a learner to access a course's sessions. Only
// active enrollments count for admission and notification fan-out.
type Enrollment struct {
	ID        string           `db:"id" json:"id"`
	CourseID  string           `db:"course_id" json:"courseId"`
	LearnerID string           `db:"learner_id" json:"learnerId"`
	Status    EnrollmentStatus `db:"status" json:"status"`
}
