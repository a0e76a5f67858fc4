package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/dashboard"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/session"
	"github.com/trezcool/coachdesk/core/student"
)

type (
	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		Sessions     *session.Manager
		StudentSvc   *student.Service
		CourseSvc    *course.Service
		PaymentSvc   *payment.Service
		DashboardSvc *dashboard.Service
		Validate     *validator.Validate
		Translator   ut.Translator
		Gatherer     prometheus.Gatherer // served on /metrics; defaults to prometheus.DefaultGatherer
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		tokens   tokenIssuer
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		tokens:   newTokenIssuer(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = conf.TestMode

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s.app.GET("/", s.home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.app.Group("/v1")
	authed := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(s.tokens.jwtConfig()),
		sessionMiddleware(s.deps.Sessions),
	}

	registerSessionAPI(v1, authed, s.tokens, s.deps.Sessions, s.deps.Validate, s.deps.Logger)
	registerStudentAPI(v1, authed, s.deps.StudentSvc, s.deps.PaymentSvc, s.deps.Validate)
	registerCourseAPI(v1, authed, s.deps.CourseSvc, s.deps.StudentSvc, s.deps.Validate)
	registerPaymentAPI(v1, authed, s.deps.PaymentSvc, s.deps.Validate)
	registerDashboardAPI(v1, authed, s.deps.DashboardSvc)
}

// Start listens on the configured address. Failures are sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
