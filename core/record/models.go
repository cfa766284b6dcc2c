package record

import (
	"sort"
	"time"
)

// Roles. These are stored verbatim on User records.
const (
	RoleStudent = "Student"
	RoleTeacher = "Teacher"
	RoleAdmin   = "Admin"
)

var AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin}

// StringSet is a set of strings backed by a sorted slice. It marshals as an
// ordered list so that no native set representation ever crosses the wire.
// The zero value is an empty set.
type StringSet []string

func NewStringSet(vals ...string) StringSet {
	var set StringSet
	for _, v := range vals {
		set = set.Add(v)
	}
	return set
}

func (s StringSet) Contains(v string) bool {
	i := sort.SearchStrings(s, v)
	return i < len(s) && s[i] == v
}

// Add returns the set with v inserted in order; adding an existing member is a no-op.
func (s StringSet) Add(v string) StringSet {
	i := sort.SearchStrings(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// SkillStatus is the checkoff state of a single skill within a student's
// course snapshot.
type SkillStatus struct {
	CheckedOff   bool       `json:"CheckedOff" dynamodbav:"CheckedOff"`
	CheckedOffAt *time.Time `json:"CheckedOffAt,omitempty" dynamodbav:"CheckedOffAt,omitempty"`
	CheckedOffBy string     `json:"CheckedOffBy,omitempty" dynamodbav:"CheckedOffBy,omitempty"`
}

// UserCourse is a student's view of a course: the course name and the skill
// set snapshotted at enrollment time. Skills added to the course afterwards
// do not appear here.
type UserCourse struct {
	CourseName string                 `json:"CourseName" dynamodbav:"CourseName"`
	Skills     map[string]SkillStatus `json:"Skills" dynamodbav:"Skills"`
}

// User is keyed by email. TeachingTheseCourses is only populated for teachers;
// Courses maps course ids to enrollment snapshots.
type User struct {
	Email                string                `json:"Email" dynamodbav:"-"`
	FirstName            string                `json:"FirstName,omitempty" dynamodbav:"FirstName,omitempty"`
	LastName             string                `json:"LastName,omitempty" dynamodbav:"LastName,omitempty"`
	Roles                StringSet             `json:"Roles" dynamodbav:"Roles,stringset"`
	TeachingTheseCourses StringSet             `json:"TeachingTheseCourses,omitempty" dynamodbav:"TeachingTheseCourses,stringset,omitempty"`
	Courses              map[string]UserCourse `json:"Courses" dynamodbav:"Courses"`
}

func (u User) HasRole(role string) bool { return u.Roles.Contains(role) }
func (u User) IsAdmin() bool            { return u.HasRole(RoleAdmin) }
func (u User) IsTeacher() bool          { return u.HasRole(RoleTeacher) }
func (u User) IsStudent() bool          { return u.HasRole(RoleStudent) }

// NewDefaultUser returns the record auto-provisioned on a user's first
// authenticated access: Student role, no enrollments.
func NewDefaultUser(email string) User {
	return User{
		Email:   email,
		Roles:   NewStringSet(RoleStudent),
		Courses: make(map[string]UserCourse),
	}
}

// Course holds the skill checklist blueprint plus the roster of enrolled
// students. ID is globally unique.
type Course struct {
	ID         string            `json:"ID" dynamodbav:"-"`
	CourseName string            `json:"CourseName" dynamodbav:"CourseName"`
	Skills     map[string]string `json:"Skills" dynamodbav:"Skills"` // skill name -> description
	Teachers   StringSet         `json:"Teachers,omitempty" dynamodbav:"Teachers,stringset,omitempty"`
	Students   StringSet         `json:"Students,omitempty" dynamodbav:"Students,stringset,omitempty"`
}

// SkillSnapshot copies the course's current skill names into a fresh
// per-student checklist, all unchecked.
func (c Course) SkillSnapshot() UserCourse {
	skills := make(map[string]SkillStatus, len(c.Skills))
	for name := range c.Skills {
		skills[name] = SkillStatus{}
	}
	return UserCourse{CourseName: c.CourseName, Skills: skills}
}

// CourseTemplate is static reference data; it is never mutated by normal
// operations.
type CourseTemplate struct {
	ID         string            `json:"ID" dynamodbav:"-"`
	CourseName string            `json:"CourseName" dynamodbav:"CourseName"`
	Skills     map[string]string `json:"Skills" dynamodbav:"Skills"`
}

// NewCourse instantiates a Course from the template with the given derived id,
// assigning the requesting teacher and an empty roster.
func (t CourseTemplate) NewCourse(id, teacher string) Course {
	skills := make(map[string]string, len(t.Skills))
	for name, desc := range t.Skills {
		skills[name] = desc
	}
	return Course{
		ID:         id,
		CourseName: t.CourseName,
		Skills:     skills,
		Teachers:   NewStringSet(teacher),
	}
}
