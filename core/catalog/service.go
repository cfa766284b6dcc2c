// Package catalog manages course templates: listing them and instantiating
// Course records from them.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core/access"
	"github.com/trezcool/skilltrack/core/record"
)

// TeacherLinkError reports a course that was created but could not be
// cross-linked into the requesting teacher's profile. The course exists;
// callers must not treat this as a failed creation.
type TeacherLinkError struct {
	CourseID string
	Teacher  string
	Err      error
}

func (e *TeacherLinkError) Error() string {
	return fmt.Sprintf("course %q created but linking it to teacher %q failed: %v", e.CourseID, e.Teacher, e.Err)
}

func (e *TeacherLinkError) Cause() error  { return e.Err }
func (e *TeacherLinkError) Unwrap() error { return e.Err }

type Service struct {
	store record.Store
	now   func() time.Time
}

func NewService(store record.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CourseID derives the id a template instantiates to in the given year.
// Uniqueness is enforced at creation time, not here.
func CourseID(templateID string, year int) string {
	return templateID + "-" + strconv.Itoa(year)
}

// CreateFromTemplate derives a new Course from the template, assigns the
// caller as its teacher and links the course into the caller's profile.
// Returns the created course id; a *TeacherLinkError still carries it.
func (svc *Service) CreateFromTemplate(ctx context.Context, caller access.Caller, templateID string) (string, error) {
	if !caller.CanCreateCourse() {
		return "", access.ErrForbidden
	}

	tmpl, err := svc.store.GetTemplate(ctx, templateID)
	if err != nil {
		return "", errors.Wrap(err, "fetching template")
	}

	courseID := CourseID(templateID, svc.now().Year())
	if err = svc.store.CreateCourse(ctx, tmpl.NewCourse(courseID, caller.Email)); err != nil {
		return "", errors.Wrap(err, "creating course")
	}

	if err = svc.store.AddTeachingCourse(ctx, caller.Email, courseID); err != nil {
		return courseID, &TeacherLinkError{CourseID: courseID, Teacher: caller.Email, Err: err}
	}
	return courseID, nil
}

// ListTemplates returns all course templates. Admin and Teacher only.
func (svc *Service) ListTemplates(ctx context.Context, caller access.Caller) ([]record.CourseTemplate, error) {
	if !caller.CanViewStudents() {
		return nil, access.ErrForbidden
	}
	tmpls, err := svc.store.ListTemplates(ctx)
	return tmpls, errors.Wrap(err, "listing templates")
}
