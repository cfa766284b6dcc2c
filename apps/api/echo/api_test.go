package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/skilltrack/core/catalog"
	"github.com/trezcool/skilltrack/core/query"
	"github.com/trezcool/skilltrack/core/record"
	"github.com/trezcool/skilltrack/core/roster"
)

func Test_home(t *testing.T) {
	req, rec := newAuthRequest(http.MethodGet, "/", "")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "Welcome to SkillTrack API!" {
		t.Errorf("failed! body = %q", rec.Body.String())
	}
}

func Test_queryApi_me(t *testing.T) {
	token := getToken(t, "me.api@test.cd")

	runTable(t, []httpTest{
		{name: "Auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
	})

	// first access bootstraps a Student record
	req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var usr record.User
	if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if usr.Email != "me.api@test.cd" || !usr.IsStudent() || len(usr.Courses) != 0 {
		t.Errorf("unexpected bootstrapped record: %+v", usr)
	}

	// subsequent access reads it back
	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
}

func Test_queryApi_students(t *testing.T) {
	student := createUser(t, "std.api@test.cd")
	teacher := createUser(t, "std.teacher.api@test.cd", record.RoleTeacher)

	runTable(t, []httpTest{
		{
			name: "Auth required", path: "/v1/students?email=" + student.Email,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "email param required", path: "/v1/students", token: getToken(t, teacher.Email),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "at least one email parameter is required"}),
		},
		{
			name: "Teacher or Admin required", path: "/v1/students?email=" + student.Email, token: getToken(t, student.Email),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "found records only", path: "/v1/students?email=" + student.Email + "&email=ghost.api@test.cd",
			token:    getToken(t, teacher.Email),
			wantData: marchallObj(t, map[string]record.User{student.Email: student}),
		},
	})
}

func Test_queryApi_course(t *testing.T) {
	teacher := createUser(t, "crs.teacher.api@test.cd", record.RoleTeacher)
	student := createUser(t, "crs.std.api@test.cd")
	outsider := createUser(t, "crs.outsider.api@test.cd")
	crs := createCourse(t, "QRY-101-2026", map[string]string{"Handwashing": "Infection prevention"}, teacher.Email)
	enrollStudent(t, crs, student.Email)

	runTable(t, []httpTest{
		{name: "Auth required", path: "/v1/courses/" + crs.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "unknown course", path: "/v1/courses/QRY-999-2026", token: getToken(t, teacher.Email),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "unenrolled student denied", path: "/v1/courses/" + crs.ID, token: getToken(t, outsider.Email),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "all_students must be a boolean", path: "/v1/courses/" + crs.ID + "?all_students=maybe", token: getToken(t, teacher.Email),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"all_students": "must be a boolean"}),
		},
	})

	t.Run("enrolled student sees no roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID, getToken(t, student.Email))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var view query.CourseView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(view.Students) != 0 || len(view.StudentsExtended) != 0 {
			t.Errorf("student view leaked the roster: %+v", view)
		}
		if view.ID != crs.ID || len(view.Skills) != 1 {
			t.Errorf("unexpected view: %+v", view)
		}
	})

	t.Run("teacher sees roster and selected snapshots", func(t *testing.T) {
		path := "/v1/courses/" + crs.ID + "?student=" + student.Email + "&student=ghost.api@test.cd"
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, teacher.Email))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var view query.CourseView
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !view.Students.Contains(student.Email) {
			t.Errorf("roster missing from teacher view: %+v", view)
		}
		snap, ok := view.StudentsExtended[student.Email]
		if !ok {
			t.Fatalf("snapshot missing from teacher view: %+v", view)
		}
		if snap.CourseName != crs.CourseName {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
		if _, ok = view.StudentsExtended["ghost.api@test.cd"]; ok {
			t.Error("unknown identities must be omitted, not invented")
		}
	})
}

func Test_rosterApi_enroll(t *testing.T) {
	teacher := createUser(t, "enr.teacher.api@test.cd", record.RoleTeacher)
	admin := createUser(t, "enr.admin.api@test.cd", record.RoleAdmin)
	student := createUser(t, "enr.std.api@test.cd")
	crs := createCourse(t, "ENR-201-2026", map[string]string{"PPE": "Donning and doffing"}, teacher.Email)

	path := "/v1/courses/" + crs.ID + "/students"
	body := marchallObj(t, map[string]string{"Student_ID": student.Email})

	runTable(t, []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: path, body: body,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Student_ID required", method: http.MethodPost, path: path, body: []byte("{}"), token: getToken(t, teacher.Email),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"Student_ID": "this field is required"}),
		},
		{
			name: "Teacher of this course required", method: http.MethodPost, path: path, body: body, token: getToken(t, student.Email),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown course", method: http.MethodPost, path: "/v1/courses/ENR-999-2026/students", body: body, token: getToken(t, admin.Email),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "enrolls", method: http.MethodPost, path: path, body: body, token: getToken(t, teacher.Email),
			wantData: marchallObj(t, map[string]string{"success": "student enrolled"}),
		},
		{
			name: "re-enrolling rejects", method: http.MethodPost, path: path, body: body, token: getToken(t, teacher.Email),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "student is already enrolled in this course"}),
		},
	})
}

func Test_rosterApi_checkOff(t *testing.T) {
	teacher := createUser(t, "chk.teacher.api@test.cd", record.RoleTeacher)
	student := createUser(t, "chk.std.api@test.cd")
	crs := createCourse(t, "CHK-301-2026", map[string]string{"PPE": "Donning and doffing"}, teacher.Email)
	enrollStudent(t, crs, student.Email)

	path := "/v1/courses/" + crs.ID + "/checkoffs"
	body := marchallObj(t, map[string]interface{}{
		"Skill_Name":   "PPE",
		"Student_List": []string{student.Email, "chk.ghost.api@test.cd"},
	})

	runTable(t, []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: path, body: body,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Skill_Name required", method: http.MethodPost, path: path, token: getToken(t, teacher.Email),
			body:     marchallObj(t, map[string]interface{}{"Student_List": []string{student.Email}}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"Skill_Name": "this field is required"}),
		},
		{
			name: "Teacher of this course required", method: http.MethodPost, path: path, body: body, token: getToken(t, student.Email),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	})

	t.Run("per-student outcomes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, teacher.Email), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var res roster.CheckOffResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if res.Succeeded != 1 || res.Failed != 1 || len(res.Results) != 2 {
			t.Fatalf("unexpected aggregate: %+v", res)
		}
		if res.Results[0].Outcome != roster.OutcomeOK || res.Results[1].Outcome != roster.OutcomeNotFound {
			t.Errorf("unexpected outcomes: %+v", res.Results)
		}
	})
}

func Test_catalogApi_createCourse(t *testing.T) {
	teacher := createUser(t, "cat.teacher.api@test.cd", record.RoleTeacher)
	student := createUser(t, "cat.std.api@test.cd")
	if err := store.PutTemplate(context.Background(), record.CourseTemplate{
		ID:         "CAT-401",
		CourseName: "CAT 401",
		Skills:     map[string]string{"PPE": "Donning and doffing"},
	}); err != nil {
		t.Fatalf("PutTemplate(): %v", err)
	}

	body := marchallObj(t, map[string]string{"Template_ID": "CAT-401"})
	wantID := catalog.CourseID("CAT-401", time.Now().Year())

	runTable(t, []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/courses", body: body,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Template_ID required", method: http.MethodPost, path: "/v1/courses", body: []byte("{}"), token: getToken(t, teacher.Email),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"Template_ID": "this field is required"}),
		},
		{
			name: "Teacher or Admin required", method: http.MethodPost, path: "/v1/courses", body: body, token: getToken(t, student.Email),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "unknown template",
			method:   http.MethodPost,
			path:     "/v1/courses",
			body:     marchallObj(t, map[string]string{"Template_ID": "CAT-999"}),
			token:    getToken(t, teacher.Email),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "creates", method: http.MethodPost, path: "/v1/courses", body: body, token: getToken(t, teacher.Email),
			wantCode: http.StatusCreated, wantData: marchallObj(t, map[string]string{"Course_ID": wantID}),
		},
		{
			name: "same template same year collides", method: http.MethodPost, path: "/v1/courses", body: body, token: getToken(t, teacher.Email),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "a record with this id already exists"}),
		},
	})
}

func Test_catalogApi_listTemplates(t *testing.T) {
	teacher := createUser(t, "tpl.teacher.api@test.cd", record.RoleTeacher)
	student := createUser(t, "tpl.std.api@test.cd")
	if err := store.PutTemplate(context.Background(), record.CourseTemplate{
		ID:         "TPL-501",
		CourseName: "TPL 501",
		Skills:     map[string]string{"PPE": "Donning and doffing"},
	}); err != nil {
		t.Fatalf("PutTemplate(): %v", err)
	}

	runTable(t, []httpTest{
		{name: "Auth required", path: "/v1/templates", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Teacher or Admin required", path: "/v1/templates", token: getToken(t, student.Email),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	})

	t.Run("lists", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/templates", getToken(t, teacher.Email))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var tmpls []record.CourseTemplate
		if err := json.Unmarshal(rec.Body.Bytes(), &tmpls); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		var found bool
		for _, tmpl := range tmpls {
			if tmpl.ID == "TPL-501" {
				found = true
			}
		}
		if !found {
			t.Errorf("TPL-501 missing from %+v", tmpls)
		}
	})
}
