package tests

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/ecole/apps/api/echo"
	"github.com/trezcool/ecole/core/report"
	"github.com/trezcool/ecole/core/school"
	"github.com/trezcool/ecole/core/user"
	emailsvc "github.com/trezcool/ecole/services/email"
	testutil "github.com/trezcool/ecole/tests"
)

const year = "2025-2026"

// gradedClass creates a class with two graded enrollments:
// Amani gets 92/7 as final average and Baraka 14.
func gradedClass(t *testing.T) (amani, baraka school.Enrollment) {
	class := testutil.CreateClass(t, schoolRepo, "6e A", "6e")
	maths := testutil.CreateSubject(t, schoolRepo, "Maths", 2, class.ID)
	french := testutil.CreateSubject(t, schoolRepo, "French", 3, class.ID)

	st1 := testutil.CreateStudent(t, schoolRepo, "Amani Kabila", "M-001")
	amani = testutil.CreateEnrollment(t, schoolRepo, st1.ID, class.ID, year)
	testutil.CreateResult(t, schoolRepo, amani.ID, maths.ID, 10, 1)
	testutil.CreateResult(t, schoolRepo, amani.ID, french.ID, 16, 2)
	testutil.CreateResult(t, schoolRepo, amani.ID, maths.ID, 12, 2)

	st2 := testutil.CreateStudent(t, schoolRepo, "Baraka Tshala", "M-002")
	baraka = testutil.CreateEnrollment(t, schoolRepo, st2.ID, class.ID, year)
	testutil.CreateResult(t, schoolRepo, baraka.ID, maths.ID, 14, 1)
	return amani, baraka
}

func Test_reportApi_bulletin(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	teacherToken := getToken(t, teacher)
	amani, _ := gradedClass(t)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/enrollments/1/bulletin", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "unknown enrollment", method: http.MethodGet, path: "/v1/enrollments/999/bulletin", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "enrollment not found"}),
		},
		{
			name: "bad id", method: http.MethodGet, path: "/v1/enrollments/abc/bulletin", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	runHTTPTests(t, app, tests)

	req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments/"+strconv.Itoa(amani.ID)+"/bulletin", teacherToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var blt report.Bulletin
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &blt))
	assert.Equal(t, "Amani Kabila", blt.StudentName)
	assert.Equal(t, "6e A", blt.ClassName)
	assert.Equal(t, year, blt.AcademicYear)
	require.Len(t, blt.Semester1, 1)
	require.Len(t, blt.Semester2, 2)
	assert.Equal(t, "French", blt.Semester2[0].SubjectName, "lines are ordered by subject name")
	assert.InDelta(t, 48, blt.Semester2[0].WeightedScore, 1e-9)
	assert.InDelta(t, 10, blt.Card.Semester1.Average, 1e-9)
	assert.InDelta(t, 14.4, blt.Card.Semester2.Average, 1e-9)
	assert.InDelta(t, 5, blt.Card.Semester2.TotalCoefficient, 1e-9)
	assert.InDelta(t, 92.0/7.0, blt.Card.FinalAverage, 1e-9)
}

func Test_reportApi_rankings(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	adminToken := getToken(t, admin)
	amani, baraka := gradedClass(t)

	tests := []httpTest{
		{
			name: "admins only", method: http.MethodGet, path: "/v1/rankings?academic_year=" + year, token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "academic year required", method: http.MethodGet, path: "/v1/rankings", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"academic_year": "this field is required"}),
		},
		{name: "no graded enrollments", method: http.MethodGet, path: "/v1/rankings?academic_year=2024-2025", token: adminToken, wantData: marchallList(t)},
	}
	runHTTPTests(t, app, tests)

	req, rec := newAuthRequest(http.MethodGet, "/v1/rankings?academic_year="+year, adminToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rankings []report.Ranking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rankings))
	require.Len(t, rankings, 2)
	assert.Equal(t, baraka.ID, rankings[0].EnrollmentID)
	assert.Equal(t, 1, rankings[0].Rank)
	assert.InDelta(t, 14, rankings[0].Card.FinalAverage, 1e-9)
	assert.Equal(t, amani.ID, rankings[1].EnrollmentID)
	assert.Equal(t, 2, rankings[1].Rank)
}

func Test_reportApi_emailBulletin(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)
	amani, _ := gradedClass(t)
	path := "/v1/enrollments/" + strconv.Itoa(amani.ID) + "/bulletin/email"

	tests := []httpTest{
		{
			name: "email required", method: http.MethodPost, path: path, token: adminToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "this field is required"}),
		},
		{
			name: "invalid email", method: http.MethodPost, path: path, token: adminToken,
			body:     marchallObj(t, echoapi.BulletinEmailRequest{Email: "parent"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown enrollment", method: http.MethodPost, path: "/v1/enrollments/999/bulletin/email", token: adminToken,
			body:     marchallObj(t, echoapi.BulletinEmailRequest{Email: "parent@test.cd"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "enrollment not found"}),
		},
	}
	runHTTPTests(t, app, tests)
	assert.Empty(t, emailsvc.SentMessages)

	body := marchallObj(t, echoapi.BulletinEmailRequest{Name: "Mama Kabila", Email: " Parent@Test.cd "})
	req, rec := newAuthRequest(http.MethodPost, path, adminToken, body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusAccepted,
		wantData: marchallObj(t, echoapi.SuccessResponse{Success: "The bulletin will be sent shortly."}),
	}, rec)

	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok)
	require.Len(t, msg.To, 1)
	assert.Equal(t, "parent@test.cd", msg.To[0].Address)
	assert.Equal(t, "Bulletin Amani Kabila "+year, msg.Subject)
	assert.Contains(t, msg.TextContent, "Final average: 13.14/20")
	require.True(t, msg.HasAttachments())
	assert.Equal(t, "bulletin-M-001.parquet", msg.Attachments[0].Filename)
	assert.Equal(t, "application/vnd.apache.parquet", msg.Attachments[0].ContentType)
}
