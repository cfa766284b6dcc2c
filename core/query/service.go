// Package query assembles read responses filtered by the caller's role.
package query

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core/access"
	"github.com/trezcool/skilltrack/core/record"
)

// CourseView is the role-filtered projection of a Course. Students is only
// populated for Admin/Teacher callers; StudentsExtended carries the requested
// students' skill snapshots for this course only, never their other courses.
type CourseView struct {
	ID               string                       `json:"ID"`
	CourseName       string                       `json:"CourseName"`
	Skills           map[string]string            `json:"Skills"`
	Teachers         record.StringSet             `json:"Teachers,omitempty"`
	Students         record.StringSet             `json:"Students,omitempty"`
	StudentsExtended map[string]record.UserCourse `json:"StudentsExtended,omitempty"`
}

type Service struct {
	store record.Store
}

func NewService(store record.Store) *Service {
	return &Service{store: store}
}

// FetchSelf returns the caller's own record, auto-provisioning a default
// Student record on first access. The returned bool reports whether the record
// was bootstrapped. A failed bootstrap is reported distinctly from a failed
// read.
func (svc *Service) FetchSelf(ctx context.Context, email string) (record.User, bool, error) {
	usr, err := svc.store.GetUser(ctx, email)
	switch errors.Cause(err) {
	case nil:
		return usr, false, nil
	case record.ErrNotFound:
	default:
		return record.User{}, false, errors.Wrap(err, "reading user record")
	}

	usr = record.NewDefaultUser(email)
	if err = svc.store.CreateUser(ctx, usr); err != nil {
		if errors.Cause(err) == record.ErrConflict {
			// lost a bootstrap race; the record exists now
			usr, err = svc.store.GetUser(ctx, email)
			return usr, false, errors.Wrap(err, "reading user record")
		}
		return record.User{}, false, errors.Wrap(err, "bootstrapping user record")
	}
	return usr, true, nil
}

// FetchCourse returns the course projection the caller is allowed to see.
// For Admin/Teacher callers, studentEmails (or the whole roster when
// allStudents is set) selects whose snapshots to attach; identities with no
// record are silently omitted.
func (svc *Service) FetchCourse(ctx context.Context, caller access.Caller, courseID string, studentEmails []string, allStudents bool) (CourseView, error) {
	crs, err := svc.store.GetCourse(ctx, courseID)
	if err != nil {
		return CourseView{}, errors.Wrap(err, "fetching course")
	}
	if !caller.CanViewCourse(crs) {
		return CourseView{}, access.ErrForbidden
	}

	view := CourseView{
		ID:         crs.ID,
		CourseName: crs.CourseName,
		Skills:     crs.Skills,
		Teachers:   crs.Teachers,
	}
	if !caller.CanViewStudents() {
		return view, nil
	}
	view.Students = crs.Students

	if allStudents {
		studentEmails = crs.Students
	}
	if len(studentEmails) == 0 {
		return view, nil
	}

	view.StudentsExtended = make(map[string]record.UserCourse, len(studentEmails))
	for _, email := range studentEmails {
		usr, err := svc.store.GetUser(ctx, email)
		switch errors.Cause(err) {
		case nil:
		case record.ErrNotFound:
			continue
		default:
			return CourseView{}, errors.Wrap(err, "fetching student")
		}
		if snapshot, ok := usr.Courses[courseID]; ok {
			view.StudentsExtended[email] = snapshot
		}
	}
	return view, nil
}

// FetchStudents returns the full record of each found identity, keyed by
// email. Missing identities are skipped, not errors. Admin and Teacher only.
func (svc *Service) FetchStudents(ctx context.Context, caller access.Caller, emails []string) (map[string]record.User, error) {
	if !caller.CanViewStudents() {
		return nil, access.ErrForbidden
	}

	users := make(map[string]record.User, len(emails))
	for _, email := range emails {
		usr, err := svc.store.GetUser(ctx, email)
		switch errors.Cause(err) {
		case nil:
			users[email] = usr
		case record.ErrNotFound:
		default:
			return nil, errors.Wrap(err, "fetching student")
		}
	}
	return users, nil
}
