// Package access resolves a caller's identity into their role set and scoped
// permissions, and evaluates the action predicates every operation must pass
// before touching any record.
package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core/record"
)

// ErrForbidden is returned whenever an authorization check fails. Callers must
// short-circuit before attempting any mutation.
var ErrForbidden = errors.New("permission denied")

// Caller is the resolved authorization context of the authenticated caller.
type Caller struct {
	Email    string
	Roles    record.StringSet
	Teaching record.StringSet
	Enrolled map[string]record.UserCourse
}

func (c Caller) IsAdmin() bool   { return c.Roles.Contains(record.RoleAdmin) }
func (c Caller) IsTeacher() bool { return c.Roles.Contains(record.RoleTeacher) }
func (c Caller) IsStudent() bool { return c.Roles.Contains(record.RoleStudent) }

// Teaches reports whether the caller teaches the given course.
func (c Caller) Teaches(courseID string) bool { return c.Teaching.Contains(courseID) }

// CanManageCourse authorizes course-scoped writes (enroll, checkoff) and
// roster reads: Admin anywhere, Teacher only on courses they teach.
func (c Caller) CanManageCourse(courseID string) bool {
	return c.IsAdmin() || (c.IsTeacher() && c.Teaches(courseID))
}

// CanCreateCourse authorizes template instantiation: Admin, or any Teacher
// (unscoped).
func (c Caller) CanCreateCourse() bool {
	return c.IsAdmin() || c.IsTeacher()
}

// CanViewStudents authorizes reading other users' records and templates.
func (c Caller) CanViewStudents() bool {
	return c.IsAdmin() || c.IsTeacher()
}

// CanViewCourse authorizes reading a course: Admin anywhere, Teacher on their
// courses, Student only when enrolled (identity on the roster).
func (c Caller) CanViewCourse(crs record.Course) bool {
	if c.CanManageCourse(crs.ID) {
		return true
	}
	return c.IsStudent() && crs.Students.Contains(c.Email)
}

// Resolve fetches the caller's User record and builds their authorization
// context. It fails with record.ErrNotFound when no record exists; endpoints
// that bootstrap records on first access handle that case themselves.
func Resolve(ctx context.Context, store record.Store, email string) (Caller, error) {
	usr, err := store.GetUser(ctx, email)
	if err != nil {
		return Caller{}, errors.Wrap(err, "resolving caller")
	}
	return NewCaller(usr), nil
}

// NewCaller builds a Caller from an already-fetched User record.
func NewCaller(usr record.User) Caller {
	return Caller{
		Email:    usr.Email,
		Roles:    usr.Roles,
		Teaching: usr.TeachingTheseCourses,
		Enrolled: usr.Courses,
	}
}
