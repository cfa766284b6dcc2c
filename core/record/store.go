package record

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a referenced record is absent.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a create hits an existing record id.
	ErrConflict = errors.New("record already exists")
	// ErrPreconditionFailed is returned when a conditional write finds its
	// predicate false at write time; the write is not applied.
	ErrPreconditionFailed = errors.New("write precondition failed")
	// ErrUnavailable wraps transient store failures.
	ErrUnavailable = errors.New("record store unavailable")
)

// Store is the record store adapter: one polymorphic table holding User,
// Course and CourseTemplate records. Every write documents the predicate it
// is conditional on; the backend evaluates the predicate atomically with the
// write, which is the sole concurrency-safety primitive callers rely on
// (no application-level locks).
type Store interface {
	GetUser(ctx context.Context, email string) (User, error)
	// CreateUser writes a new User record.
	// Condition: no record with this email exists (ErrConflict).
	CreateUser(ctx context.Context, usr User) error

	GetCourse(ctx context.Context, id string) (Course, error)
	// CreateCourse writes a new Course record.
	// Condition: no record with this id exists (ErrConflict).
	CreateCourse(ctx context.Context, crs Course) error

	GetTemplate(ctx context.Context, id string) (CourseTemplate, error)
	ListTemplates(ctx context.Context) ([]CourseTemplate, error)
	// PutTemplate writes a CourseTemplate unconditionally. Templates are static
	// reference data loaded by out-of-band tooling; no API operation calls this.
	PutTemplate(ctx context.Context, tmpl CourseTemplate) error

	// PutUserCourse writes a student's enrollment snapshot.
	// Conditions: the User record exists (ErrNotFound) and courseID is not
	// already present in its Courses map (ErrPreconditionFailed); re-enrolling
	// must reject, never overwrite.
	PutUserCourse(ctx context.Context, email, courseID string, crs UserCourse) error

	// AddStudentToRoster adds the student's email to the course's Students set.
	// Condition: the Course record exists (ErrNotFound). Adding an existing
	// member is a no-op.
	AddStudentToRoster(ctx context.Context, courseID, email string) error

	// SetSkillCheckedOff marks a skill complete in a student's snapshot,
	// recording who checked it off and when.
	// Conditions: the User record exists (ErrNotFound) and the skill key exists
	// in the student's snapshot for this course (ErrPreconditionFailed); a
	// checkoff never creates new skill entries.
	SetSkillCheckedOff(ctx context.Context, email, courseID, skill, checkedOffBy string, at time.Time) error

	// AddTeachingCourse adds the course id to the user's TeachingTheseCourses set.
	// Condition: the User record exists (ErrNotFound).
	AddTeachingCourse(ctx context.Context, email, courseID string) error

	// AddRole grants a role to a user. Role management has no API operation;
	// this serves out-of-band tooling.
	// Condition: the User record exists (ErrNotFound).
	AddRole(ctx context.Context, email, role string) error
}
