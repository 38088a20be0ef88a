package model

type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusLive      SessionStatus = "live"
	SessionStatusCompleted SessionStatus = "completed"
)

type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
	EnrollmentStatusExpired   EnrollmentStatus = "expired"
)

type UserRole string

const (
	UserRoleTutor   UserRole = "tutor"
	UserRoleLearner UserRole = "learner"
)

type NotificationEvent string

const (
	NotificationEventScheduled NotificationEvent = "session.scheduled"
	NotificationEventStarted   NotificationEvent = "session.started"
)

type NotificationPriority string

const (
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)
