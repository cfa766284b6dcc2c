// Package roster performs the multi-record enrollment and skill-checkoff
// operations. Both touch more than one record (or more than one student) with
// no ambient transaction, so partial failures are first-class outcomes here,
// never collapsed into a single opaque error.
package roster

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/skilltrack/core"
	"github.com/trezcool/skilltrack/core/access"
	"github.com/trezcool/skilltrack/core/record"
)

// ErrAlreadyEnrolled rejects a re-enrollment of a fully enrolled student;
// the existing snapshot is never overwritten.
var ErrAlreadyEnrolled = errors.New("student is already enrolled in this course")

// PartialEnrollError reports an enrollment that wrote the student's skill
// snapshot but failed to update the course roster. The half-applied state is
// recoverable: re-invoking Enroll completes the missing roster half.
type PartialEnrollError struct {
	CourseID string
	Student  string
	Err      error
}

func (e *PartialEnrollError) Error() string {
	return fmt.Sprintf("student snapshot for %q written but roster update on course %q failed: %v", e.Student, e.CourseID, e.Err)
}

func (e *PartialEnrollError) Cause() error  { return e.Err }
func (e *PartialEnrollError) Unwrap() error { return e.Err }

// Outcome classifies a single student's checkoff attempt.
type Outcome string

const (
	OutcomeOK                 Outcome = "ok"
	OutcomeNotFound           Outcome = "not_found"
	OutcomePreconditionFailed Outcome = "precondition_failed"
	OutcomeStoreError         Outcome = "store_error"
)

type StudentOutcome struct {
	Student string  `json:"Student"`
	Outcome Outcome `json:"Outcome"`
	Detail  string  `json:"Detail,omitempty"`
}

// CheckOffResult is the aggregate of a batch checkoff; Results preserves the
// input order so callers know exactly which entries failed and why.
type CheckOffResult struct {
	Succeeded int              `json:"Succeeded"`
	Failed    int              `json:"Failed"`
	Results   []StudentOutcome `json:"Results"`
}

type Service struct {
	conf    *core.Config
	store   record.Store
	mailSvc core.EmailService
}

func NewService(conf *core.Config, store record.Store, mailSvc core.EmailService) *Service {
	return &Service{conf: conf, store: store, mailSvc: mailSvc}
}

// Enroll adds a student to a course: it snapshots the course's skills into the
// student's record, then adds the student to the course roster, in that order.
// A retry after a partial failure detects the existing snapshot and completes
// just the roster half; retrying a complete enrollment returns
// ErrAlreadyEnrolled.
func (svc *Service) Enroll(ctx context.Context, caller access.Caller, courseID, student string) error {
	if !caller.CanManageCourse(courseID) {
		return access.ErrForbidden
	}

	crs, err := svc.store.GetCourse(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "fetching course")
	}
	if _, err = svc.store.GetUser(ctx, student); err != nil {
		return errors.Wrap(err, "fetching student")
	}

	err = svc.store.PutUserCourse(ctx, student, courseID, crs.SkillSnapshot())
	switch errors.Cause(err) {
	case nil:
	case record.ErrPreconditionFailed:
		// snapshot already present from a previous attempt
		if crs.Students.Contains(student) {
			return ErrAlreadyEnrolled
		}
		// roster half still missing; complete it below
	default:
		return errors.Wrap(err, "writing student snapshot")
	}

	if err = svc.store.AddStudentToRoster(ctx, courseID, student); err != nil {
		return &PartialEnrollError{CourseID: courseID, Student: student, Err: err}
	}

	svc.notifyEnrolled(student, crs)
	return nil
}

// CheckOff marks a skill complete for each student in the input order. One
// authorization check covers the whole batch; individual failures never abort
// the remaining entries. The error return only reports authorization failure;
// per-student results live in the aggregate.
func (svc *Service) CheckOff(ctx context.Context, caller access.Caller, courseID, skill string, students []string) (CheckOffResult, error) {
	if !caller.CanManageCourse(courseID) {
		return CheckOffResult{}, access.ErrForbidden
	}

	now := time.Now().UTC()
	res := CheckOffResult{Results: make([]StudentOutcome, 0, len(students))}
	for _, student := range students {
		outcome := StudentOutcome{Student: student, Outcome: OutcomeOK}
		err := svc.store.SetSkillCheckedOff(ctx, student, courseID, skill, caller.Email, now)
		switch errors.Cause(err) {
		case nil:
			res.Succeeded++
		case record.ErrNotFound:
			outcome.Outcome = OutcomeNotFound
			outcome.Detail = "no record for this student"
			res.Failed++
		case record.ErrPreconditionFailed:
			outcome.Outcome = OutcomePreconditionFailed
			outcome.Detail = "skill not in this student's checklist for this course"
			res.Failed++
		default:
			outcome.Outcome = OutcomeStoreError
			outcome.Detail = err.Error()
			res.Failed++
		}
		res.Results = append(res.Results, outcome)
	}
	return res, nil
}

// notifyEnrolled sends a best-effort notification; enrollment success does not
// depend on it.
func (svc *Service) notifyEnrolled(student string, crs record.Course) {
	if svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: student}},
		Subject: "You have been enrolled in " + crs.CourseName,
		Body: fmt.Sprintf(
			"You have been added to %s (%s). Your skill checklist is ready at %s.",
			crs.CourseName, crs.ID, svc.conf.FrontendBaseURL,
		),
	})
}
