package query_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skilltrack/core/access"
	"github.com/trezcool/skilltrack/core/query"
	"github.com/trezcool/skilltrack/core/record"
	"github.com/trezcool/skilltrack/storage/inmem"
)

func seedCourse(t *testing.T, store *inmem.Store) (teacher, enrolled access.Caller) {
	t.Helper()
	ctx := context.Background()

	crs := record.Course{
		ID:         "NRS-210-2026",
		CourseName: "NRS 210: Foundations of Nursing",
		Skills:     map[string]string{"Handwashing": "Infection prevention"},
		Teachers:   record.NewStringSet("teacher@test.cd"),
		Students:   record.NewStringSet("student@test.cd"),
	}
	require.NoError(t, store.CreateCourse(ctx, crs))

	tch := record.NewDefaultUser("teacher@test.cd")
	tch.Roles = tch.Roles.Add(record.RoleTeacher)
	tch.TeachingTheseCourses = record.NewStringSet(crs.ID)
	require.NoError(t, store.CreateUser(ctx, tch))

	std := record.NewDefaultUser("student@test.cd")
	std.Courses[crs.ID] = record.UserCourse{
		CourseName: crs.CourseName,
		Skills:     map[string]record.SkillStatus{"Handwashing": {CheckedOff: true, CheckedOffBy: "teacher@test.cd"}},
	}
	std.Courses["NRS-230-2026"] = record.UserCourse{CourseName: "NRS 230: Pharmacology I"}
	require.NoError(t, store.CreateUser(ctx, std))

	return access.NewCaller(tch), access.NewCaller(std)
}

func TestService_FetchSelf(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	svc := query.NewService(store)

	// first access bootstraps a default Student record
	usr, created, err := svc.FetchSelf(ctx, "new@test.cd")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new@test.cd", usr.Email)
	assert.True(t, usr.IsStudent())
	assert.Empty(t, usr.Courses)

	// the record persisted; subsequent access reads it back
	usr, created, err = svc.FetchSelf(ctx, "new@test.cd")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "new@test.cd", usr.Email)
}

func TestService_FetchCourse(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	svc := query.NewService(store)
	teacher, enrolled := seedCourse(t, store)

	t.Run("student sees no roster", func(t *testing.T) {
		view, err := svc.FetchCourse(ctx, enrolled, "NRS-210-2026", nil, false)
		require.NoError(t, err)
		assert.Equal(t, "NRS-210-2026", view.ID)
		assert.Contains(t, view.Skills, "Handwashing")
		assert.Empty(t, view.Students)
		assert.Empty(t, view.StudentsExtended)
	})

	t.Run("teacher sees roster", func(t *testing.T) {
		view, err := svc.FetchCourse(ctx, teacher, "NRS-210-2026", nil, false)
		require.NoError(t, err)
		assert.Equal(t, record.StringSet{"student@test.cd"}, view.Students)
		assert.Empty(t, view.StudentsExtended)
	})

	t.Run("teacher selects snapshots", func(t *testing.T) {
		view, err := svc.FetchCourse(ctx, teacher, "NRS-210-2026", []string{"student@test.cd", "ghost@test.cd"}, false)
		require.NoError(t, err)
		require.Contains(t, view.StudentsExtended, "student@test.cd")
		assert.NotContains(t, view.StudentsExtended, "ghost@test.cd")

		// only this course's snapshot, never the student's other courses
		snap := view.StudentsExtended["student@test.cd"]
		assert.Equal(t, "NRS 210: Foundations of Nursing", snap.CourseName)
		assert.True(t, snap.Skills["Handwashing"].CheckedOff)
	})

	t.Run("teacher requests whole roster", func(t *testing.T) {
		view, err := svc.FetchCourse(ctx, teacher, "NRS-210-2026", nil, true)
		require.NoError(t, err)
		assert.Len(t, view.StudentsExtended, 1)
	})

	t.Run("unenrolled student denied", func(t *testing.T) {
		other := access.Caller{Email: "other@test.cd", Roles: record.NewStringSet(record.RoleStudent)}
		_, err := svc.FetchCourse(ctx, other, "NRS-210-2026", nil, false)
		assert.Equal(t, access.ErrForbidden, errors.Cause(err))
	})

	t.Run("missing course", func(t *testing.T) {
		_, err := svc.FetchCourse(ctx, teacher, "NRS-999-2026", nil, false)
		assert.Equal(t, record.ErrNotFound, errors.Cause(err))
	})
}

func TestService_FetchStudents(t *testing.T) {
	ctx := context.Background()
	store := inmem.NewStore()
	svc := query.NewService(store)
	teacher, enrolled := seedCourse(t, store)

	users, err := svc.FetchStudents(ctx, teacher, []string{"student@test.cd", "ghost@test.cd"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Contains(t, users["student@test.cd"].Courses, "NRS-210-2026")

	_, err = svc.FetchStudents(ctx, enrolled, []string{"student@test.cd"})
	assert.Equal(t, access.ErrForbidden, errors.Cause(err))
}
