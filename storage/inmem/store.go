// Package inmem provides an in-memory record.Store with the same conditional
// write semantics as the DynamoDB backend. It backs tests and local
// development.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/skilltrack/core/record"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]record.User
	courses   map[string]record.Course
	templates map[string]record.CourseTemplate
}

var _ record.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:     make(map[string]record.User),
		courses:   make(map[string]record.Course),
		templates: make(map[string]record.CourseTemplate),
	}
}

// EnsureTable is a no-op; there is no table to create.
func (s *Store) EnsureTable(_ context.Context) error { return nil }

func (s *Store) GetUser(_ context.Context, email string) (record.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, ok := s.users[email]
	if !ok {
		return record.User{}, record.ErrNotFound
	}
	return copyUser(usr), nil
}

func (s *Store) CreateUser(_ context.Context, usr record.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[usr.Email]; ok {
		return record.ErrConflict
	}
	s.users[usr.Email] = copyUser(usr)
	return nil
}

func (s *Store) GetCourse(_ context.Context, id string) (record.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	crs, ok := s.courses[id]
	if !ok {
		return record.Course{}, record.ErrNotFound
	}
	return copyCourse(crs), nil
}

func (s *Store) CreateCourse(_ context.Context, crs record.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[crs.ID]; ok {
		return record.ErrConflict
	}
	s.courses[crs.ID] = copyCourse(crs)
	return nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (record.CourseTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpl, ok := s.templates[id]
	if !ok {
		return record.CourseTemplate{}, record.ErrNotFound
	}
	return copyTemplate(tmpl), nil
}

func (s *Store) ListTemplates(_ context.Context) ([]record.CourseTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tmpls := make([]record.CourseTemplate, 0, len(s.templates))
	for _, tmpl := range s.templates {
		tmpls = append(tmpls, copyTemplate(tmpl))
	}
	return tmpls, nil
}

func (s *Store) PutTemplate(_ context.Context, tmpl record.CourseTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates[tmpl.ID] = copyTemplate(tmpl)
	return nil
}

func (s *Store) PutUserCourse(_ context.Context, email, courseID string, crs record.UserCourse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[email]
	if !ok {
		return record.ErrNotFound
	}
	if _, ok = usr.Courses[courseID]; ok {
		return record.ErrPreconditionFailed
	}
	if usr.Courses == nil {
		usr.Courses = make(map[string]record.UserCourse)
	}
	usr.Courses[courseID] = copyUserCourse(crs)
	s.users[email] = usr
	return nil
}

func (s *Store) AddStudentToRoster(_ context.Context, courseID, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	crs, ok := s.courses[courseID]
	if !ok {
		return record.ErrNotFound
	}
	crs.Students = crs.Students.Add(email)
	s.courses[courseID] = crs
	return nil
}

func (s *Store) SetSkillCheckedOff(_ context.Context, email, courseID, skill, checkedOffBy string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[email]
	if !ok {
		return record.ErrNotFound
	}
	crs, ok := usr.Courses[courseID]
	if !ok {
		return record.ErrPreconditionFailed
	}
	if _, ok = crs.Skills[skill]; !ok {
		return record.ErrPreconditionFailed
	}
	crs.Skills[skill] = record.SkillStatus{CheckedOff: true, CheckedOffAt: &at, CheckedOffBy: checkedOffBy}
	return nil
}

func (s *Store) AddTeachingCourse(_ context.Context, email, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[email]
	if !ok {
		return record.ErrNotFound
	}
	usr.TeachingTheseCourses = usr.TeachingTheseCourses.Add(courseID)
	s.users[email] = usr
	return nil
}

func (s *Store) AddRole(_ context.Context, email, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[email]
	if !ok {
		return record.ErrNotFound
	}
	usr.Roles = usr.Roles.Add(role)
	s.users[email] = usr
	return nil
}

// records are copied in and out so callers never share internal maps.

func copyUser(usr record.User) record.User {
	cp := usr
	cp.Roles = append(record.StringSet(nil), usr.Roles...)
	cp.TeachingTheseCourses = append(record.StringSet(nil), usr.TeachingTheseCourses...)
	cp.Courses = make(map[string]record.UserCourse, len(usr.Courses))
	for id, crs := range usr.Courses {
		cp.Courses[id] = copyUserCourse(crs)
	}
	return cp
}

func copyUserCourse(crs record.UserCourse) record.UserCourse {
	cp := crs
	cp.Skills = make(map[string]record.SkillStatus, len(crs.Skills))
	for name, st := range crs.Skills {
		cp.Skills[name] = st
	}
	return cp
}

func copyCourse(crs record.Course) record.Course {
	cp := crs
	cp.Skills = copySkills(crs.Skills)
	cp.Teachers = append(record.StringSet(nil), crs.Teachers...)
	cp.Students = append(record.StringSet(nil), crs.Students...)
	return cp
}

func copyTemplate(tmpl record.CourseTemplate) record.CourseTemplate {
	cp := tmpl
	cp.Skills = copySkills(tmpl.Skills)
	return cp
}

func copySkills(skills map[string]string) map[string]string {
	cp := make(map[string]string, len(skills))
	for name, desc := range skills {
		cp[name] = desc
	}
	return cp
}
