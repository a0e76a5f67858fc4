package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/coachdesk/apps/api/echo"
	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/dashboard"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/student"
	emailsvc "github.com/trezcool/coachdesk/services/email"
	testutil "github.com/trezcool/coachdesk/tests"
)

func TestServer_home(t *testing.T) {
	env := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to CoachDesk API!", rec.Body.String())
}

func TestServer_metrics(t *testing.T) {
	env := setup(t)
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "coachdesk_test_hits_total", Help: "test"})
	env.registry.MustRegister(hits)
	hits.Inc()

	req, rec := newRequest(http.MethodGet, "/metrics")
	env.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "coachdesk_test_hits_total 1")
}

func studentRows(t *testing.T, students ...student.Student) []byte {
	rows, err := student.NewRows(students)
	require.NoError(t, err)
	return marshalObj(t, rows)
}

func TestStudentAPI(t *testing.T) {
	env := setup(t)
	maths := env.seedCourse(t, "Maths", 300)
	amani := env.seedStudent(t, "Amani", 300, student.FeesPartial, &maths)
	bea := env.seedStudent(t, "Bea", 200, student.FeesUnpaid, nil)
	pay := env.seedPayment(t, amani, 100, "2024-02-01")

	adminToken := env.login(t, adminEmail)
	staffToken := env.login(t, staffEmail)

	valid := newStudent("Chantal", 150, student.FeesPaid)
	invalid := newStudent("C", 150, student.FeesPaid)
	unknownCourse := newStudent("Chantal", 150, student.FeesPaid)
	unknownCourse.CourseID.SetValid("no-such-course")

	runHTTPTests(t, env, []httpTest{
		{name: "query no token", method: http.MethodGet, path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "query", method: http.MethodGet, path: "/v1/students", token: staffToken, wantCode: http.StatusOK, wantData: studentRows(t, bea, amani)},
		{name: "query search", method: http.MethodGet, path: "/v1/students?search=maths", token: staffToken, wantCode: http.StatusOK, wantData: studentRows(t, amani)},
		{name: "query no match", method: http.MethodGet, path: "/v1/students?search=zzz", token: staffToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "query whitespace only", method: http.MethodGet, path: "/v1/students?search=%20%20", token: staffToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "query leading whitespace kept", method: http.MethodGet, path: "/v1/students?search=%20maths", token: staffToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "retrieve", method: http.MethodGet, path: "/v1/students/" + amani.ID, token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, amani)},
		{name: "retrieve unknown", method: http.MethodGet, path: "/v1/students/nope", token: staffToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "payments", method: http.MethodGet, path: "/v1/students/" + amani.ID + "/payments", token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, []payment.Payment{pay})},
		{name: "payments none", method: http.MethodGet, path: "/v1/students/" + bea.ID + "/payments", token: staffToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "payments unknown student", method: http.MethodGet, path: "/v1/students/nope/payments", token: staffToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "create not admin", method: http.MethodPost, path: "/v1/students", body: marshalObj(t, valid), token: staffToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{
			name:     "create invalid",
			method:   http.MethodPost,
			path:     "/v1/students",
			body:     marshalObj(t, invalid),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"full_name": "full_name must be at least 2 characters in length"}),
		},
		{name: "create unknown course", method: http.MethodPost, path: "/v1/students", body: marshalObj(t, unknownCourse), token: adminToken, wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "course does not exist"})},
		{name: "delete not admin", method: http.MethodDelete, path: "/v1/students/" + bea.ID, token: staffToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "delete unknown", method: http.MethodDelete, path: "/v1/students/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", adminToken, marshalObj(t, valid))
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var s student.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, "Chantal", s.FullName)

		// the listing is invalidated
		req, rec = newAuthRequest(http.MethodGet, "/v1/students?search=chantal", staffToken)
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var rows []student.Row
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, student.BadgePositive, rows[0].Badge)
	})

	t.Run("update", func(t *testing.T) {
		us := newStudent("Bea Mwamba", 200, student.FeesPaid)
		us.CourseID.SetValid(maths.ID)
		req, rec := newAuthRequest(http.MethodPut, "/v1/students/"+bea.ID, staffToken, marshalObj(t, us))
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var s student.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
		assert.Equal(t, bea.ID, s.ID)
		assert.Equal(t, "Bea Mwamba", s.FullName)
		assert.Equal(t, "Maths", s.CourseName.String)
		assert.Equal(t, student.FeesPaid, s.FeesStatus)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/students/"+amani.ID, adminToken)
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+amani.ID, staffToken)
		env.srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/payments/"+pay.ID, staffToken)
		env.srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "payments go with their student")
	})
}

func TestCourseAPI(t *testing.T) {
	env := setup(t)
	maths := env.seedCourse(t, "Maths", 300)
	music := env.seedCourse(t, "Music", 250)
	amani := env.seedStudent(t, "Amani", 300, student.FeesPartial, &maths)

	adminToken := env.login(t, adminEmail)
	staffToken := env.login(t, staffEmail)

	courses, err := env.repo.QueryAllCourses(context.Background())
	require.NoError(t, err)
	withCount, err := env.repo.QueryCoursesWithStudentCount(context.Background())
	require.NoError(t, err)

	valid := course.NewCourse{Name: "Chess", Duration: "6 weeks", Fees: 80}

	runHTTPTests(t, env, []httpTest{
		{name: "query", method: http.MethodGet, path: "/v1/courses", token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, courses)},
		{name: "query search", method: http.MethodGet, path: "/v1/courses?search=MUS", token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, []course.Course{music})},
		{name: "popular", method: http.MethodGet, path: "/v1/courses/popular", token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, withCount)},
		{name: "retrieve", method: http.MethodGet, path: "/v1/courses/" + music.ID, token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, music)},
		{name: "retrieve unknown", method: http.MethodGet, path: "/v1/courses/nope", token: staffToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "students", method: http.MethodGet, path: "/v1/courses/" + maths.ID + "/students", token: staffToken, wantCode: http.StatusOK, wantData: studentRows(t, amani)},
		{name: "students none", method: http.MethodGet, path: "/v1/courses/" + music.ID + "/students", token: staffToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "create not admin", method: http.MethodPost, path: "/v1/courses", body: marshalObj(t, valid), token: staffToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{
			name:     "create invalid",
			method:   http.MethodPost,
			path:     "/v1/courses",
			body:     marshalObj(t, course.NewCourse{Name: "Chess", Duration: " ", Fees: 80}),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"duration": "this field is required"}),
		},
		{name: "delete not admin", method: http.MethodDelete, path: "/v1/courses/" + music.ID, token: staffToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", adminToken, marshalObj(t, valid))
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var c course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "Chess", c.Name)
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+music.ID, staffToken, marshalObj(t, course.NewCourse{Name: "Piano", Duration: "1 year", Fees: 500}))
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var c course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		assert.Equal(t, music.ID, c.ID)
		assert.Equal(t, "Piano", c.Name)
		assert.Equal(t, 500.0, c.Fees)
	})

	t.Run("delete unassigns students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/courses/"+maths.ID, adminToken)
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/v1/students/"+amani.ID, staffToken)
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var s student.Student
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
		assert.False(t, s.CourseID.Valid)
	})
}

func TestPaymentAPI(t *testing.T) {
	env := setup(t)
	amani := env.seedStudent(t, "Amani", 300, student.FeesPartial, nil)
	bea := env.seedStudent(t, "Bea", 200, student.FeesUnpaid, nil)
	p1 := env.seedPayment(t, amani, 100, "2024-02-01")
	p2 := env.seedPayment(t, bea, 50.5, "2024-03-01")

	staffToken := env.login(t, staffEmail)

	runHTTPTests(t, env, []httpTest{
		{
			name:     "query",
			method:   http.MethodGet,
			path:     "/v1/payments",
			token:    staffToken,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.PaymentsResponse{Payments: []payment.Payment{p2, p1}, Total: 150.5}),
		},
		{
			name:     "query search",
			method:   http.MethodGet,
			path:     "/v1/payments?search=amani",
			token:    staffToken,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.PaymentsResponse{Payments: []payment.Payment{p1}, Total: 100}),
		},
		{
			name:     "query no match",
			method:   http.MethodGet,
			path:     "/v1/payments?search=zzz",
			token:    staffToken,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.PaymentsResponse{Payments: []payment.Payment{}, Total: 0}),
		},
		{
			name:     "query leading whitespace kept",
			method:   http.MethodGet,
			path:     "/v1/payments?search=%20amani",
			token:    staffToken,
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.PaymentsResponse{Payments: []payment.Payment{}, Total: 0}),
		},
		{name: "retrieve", method: http.MethodGet, path: "/v1/payments/" + p1.ID, token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, p1)},
		{name: "retrieve unknown", method: http.MethodGet, path: "/v1/payments/nope", token: staffToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{
			name:     "create invalid",
			method:   http.MethodPost,
			path:     "/v1/payments",
			body:     marshalObj(t, payment.NewPayment{StudentID: amani.ID, Amount: 0, PaymentDate: "2024-04-01"}),
			token:    staffToken,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"amount": "amount must be greater than 0"}),
		},
		{
			name:     "create unknown student",
			method:   http.MethodPost,
			path:     "/v1/payments",
			body:     marshalObj(t, payment.NewPayment{StudentID: "nope", Amount: 10, PaymentDate: "2024-04-01"}),
			token:    staffToken,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "student does not exist"}),
		},
		{name: "receipt unknown", method: http.MethodPost, path: "/v1/payments/nope/receipt", token: staffToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
	})

	t.Run("create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments", staffToken, marshalObj(t, payment.NewPayment{StudentID: bea.ID, Amount: 20, PaymentDate: "2024-04-01"}))
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var p payment.Payment
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, "Bea", p.StudentName.String)

		req, rec = newAuthRequest(http.MethodGet, "/v1/payments", staffToken)
		env.srv.ServeHTTP(rec, req)
		var resp echoapi.PaymentsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Payments, 3)
		assert.Equal(t, 170.5, resp.Total)
	})

	t.Run("receipt", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		req, rec := newAuthRequest(http.MethodPost, "/v1/payments/"+p1.ID+"/receipt", staffToken)
		env.srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusAccepted,
			wantData: marshalObj(t, echoapi.SuccessResponse{Success: "The receipt has been sent to " + staffEmail + "."}),
		}, rec)

		require.Len(t, emailsvc.SentMessages, 1)
		msg := emailsvc.SentMessages[0]
		require.Len(t, msg.To, 1)
		assert.Equal(t, staffEmail, msg.To[0].Address)
		assert.True(t, strings.Contains(msg.Subject, p1.ID))
		require.Len(t, msg.Attachments, 1)
		assert.Equal(t, "receipt-"+p1.ID+".csv", msg.Attachments[0].Filename)
	})
}

func TestDashboardAPI(t *testing.T) {
	env := setup(t)
	maths := env.seedCourse(t, "Maths", 300)
	amani := env.seedStudent(t, "Amani", 300, student.FeesPartial, &maths)
	env.seedStudent(t, "Bea", 200, student.FeesUnpaid, &maths)
	env.seedPayment(t, amani, 100, "2024-02-01")

	staffToken := env.login(t, staffEmail)

	stats, err := dashboard.NewService(env.repo, testutil.NewQueryCache()).Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalStudents)

	runHTTPTests(t, env, []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/dashboard", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "stats", method: http.MethodGet, path: "/v1/dashboard", token: staffToken, wantCode: http.StatusOK, wantData: marshalObj(t, stats)},
	})
}
