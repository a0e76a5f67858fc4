package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/coachdesk/apps/api/echo"
	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/dashboard"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/session"
	"github.com/trezcool/coachdesk/core/student"
	emailsvc "github.com/trezcool/coachdesk/services/email"
	dummydb "github.com/trezcool/coachdesk/storage/database/dummy"
	testutil "github.com/trezcool/coachdesk/tests"
)

const (
	adminEmail = "admin@test.cd"
	staffEmail = "staff@test.cd"
	password   = "secret-pass"
)

var (
	errMissingToken   = httpErr{Error: "missing or malformed jwt"}
	errInvalidToken   = httpErr{Error: "invalid or expired jwt"}
	errSessionExpired = httpErr{Error: "session expired"}
	errForbidden      = httpErr{Error: "permission denied"}
	errNotFound       = httpErr{Error: "not found"}
)

type testEnv struct {
	srv      *echoapi.Server
	db       *dummydb.DB
	repo     *dummydb.Repository
	sessions *session.Manager
	registry *prometheus.Registry
}

func setup(t *testing.T) *testEnv {
	conf := &core.Config{
		TestMode:  true,
		AppName:   "CoachDesk",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			DisableReqLogs:     true,
		},
	}
	logger := testutil.NewLogger()

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	// set up DB & repos
	db := dummydb.Open()
	_, err := db.AddUser(adminEmail, password, "admin")
	require.NoError(t, err)
	_, err = db.AddUser(staffEmail, password)
	require.NoError(t, err)
	repo := dummydb.NewRepository(db)

	// set up services
	qc := testutil.NewQueryCache()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	emailsvc.ResetSentMessages()
	sessions := session.NewManager(dummydb.NewFactory(db), logger, session.WithTTL(conf.Server.JWTExpirationDelta))
	t.Cleanup(sessions.Close)

	reg := prometheus.NewRegistry()

	// set up server
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Sessions:     sessions,
		StudentSvc:   student.NewService(repo, qc),
		CourseSvc:    course.NewService(repo, qc),
		PaymentSvc:   payment.NewService(repo, qc, mailSvc),
		DashboardSvc: dashboard.NewService(repo, qc),
		Validate:     validate,
		Translator:   translator,
		Gatherer:     reg,
	})

	return &testEnv{srv: srv, db: db, repo: repo, sessions: sessions, registry: reg}
}

// login signs in through the API and returns the console token.
func (env *testEnv) login(t *testing.T, email string) string {
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", marshalObj(t, echoapi.LoginRequest{Email: email, Password: password}))
	env.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func (env *testEnv) seedCourse(t *testing.T, name string, fees float64) course.Course {
	c, err := env.repo.CreateCourse(context.Background(), course.NewCourse{Name: name, Duration: "3 months", Fees: fees})
	require.NoError(t, err)
	return c
}

func (env *testEnv) seedStudent(t *testing.T, name string, fees float64, status student.FeesStatus, c *course.Course) student.Student {
	ns := newStudent(name, fees, status)
	if c != nil {
		ns.CourseID.SetValid(c.ID)
	}
	s, err := env.repo.CreateStudent(context.Background(), ns)
	require.NoError(t, err)
	return s
}

func (env *testEnv) seedPayment(t *testing.T, s student.Student, amount float64, date string) payment.Payment {
	p, err := env.repo.CreatePayment(context.Background(), payment.NewPayment{StudentID: s.ID, Amount: amount, PaymentDate: date})
	require.NoError(t, err)
	return p
}

func newStudent(name string, fees float64, status student.FeesStatus) student.NewStudent {
	return student.NewStudent{
		FullName:       name,
		ParentName:     "Parent of " + name,
		Address:        "12 Av. Lumumba",
		ContactNumber:  "0990000000",
		Fees:           fees,
		EnrollmentDate: "2024-01-10",
		FeesStatus:     status,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
