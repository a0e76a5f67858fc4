package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/coachdesk/apps/api/echo"
	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/cache"
	"github.com/trezcool/coachdesk/core/course"
	"github.com/trezcool/coachdesk/core/dashboard"
	"github.com/trezcool/coachdesk/core/payment"
	"github.com/trezcool/coachdesk/core/session"
	"github.com/trezcool/coachdesk/core/student"
	cachesvc "github.com/trezcool/coachdesk/services/cache"
	emailsvc "github.com/trezcool/coachdesk/services/email"
	logsvc "github.com/trezcool/coachdesk/services/logger"
	"github.com/trezcool/coachdesk/storage/database"
	dummydb "github.com/trezcool/coachdesk/storage/database/dummy"
	sqlxrepos "github.com/trezcool/coachdesk/storage/database/sqlx"
	"github.com/trezcool/coachdesk/storage/remote"
)

type (
	DataLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dataLogger"`
	}

	// DataSource is everything the configured data source provides.
	DataSource struct {
		dig.Out
		Students  student.Repository
		Courses   course.Repository
		Payments  payment.Repository
		Dashboard dashboard.Repository
		Sessions  session.Factory
		DB        *sqlx.DB // postgres data source only
	}

	ServerParams struct {
		dig.In
		Conf         *core.Config
		Logger       core.Logger
		Sessions     *session.Manager
		StudentSvc   *student.Service
		CourseSvc    *course.Service
		PaymentSvc   *payment.Service
		DashboardSvc *dashboard.Service
		Validate     *validator.Validate
		Translator   ut.Translator
		Gatherer     prometheus.Gatherer
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDataLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DATA : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRegistry() (prometheus.Registerer, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, reg
}

func newDataSource(conf *core.Config, client *remote.Client, loggerParam DataLoggerParam) DataSource {
	logger := loggerParam.Logger

	switch conf.DataSource {
	case core.DataSourceRemote:
		repo := remote.NewRepository(client)
		return DataSource{
			Students:  repo,
			Courses:   repo,
			Payments:  repo,
			Dashboard: repo,
			Sessions:  remote.NewFactory(client, conf, logger),
		}

	case core.DataSourcePostgres:
		setUp := func() (*sqlx.DB, error) {
			db, err := database.Open(conf)
			if err != nil {
				return nil, err
			}
			if err = database.Migrate(context.Background(), db.DB, "up"); err != nil {
				return nil, err
			}
			return db, nil
		}

		db, err := setUp()
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		repo := sqlxrepos.NewRepository(db)
		roles := sqlxrepos.NewRoleRepository(db)
		return DataSource{
			Students:  repo,
			Courses:   repo,
			Payments:  repo,
			Dashboard: repo,
			// credentials stay with the hosted auth service; roles are read from the database
			Sessions: func() (session.Authenticator, session.RoleResolver, error) {
				return remote.NewAuth(client, conf, logger), roles, nil
			},
			DB: db,
		}

	case core.DataSourceDummy:
		db := dummydb.Open()
		if conf.Dummy.AdminEmail != "" {
			if _, err := db.AddUser(conf.Dummy.AdminEmail, conf.Dummy.AdminPassword, session.RoleAdmin); err != nil {
				logger.Fatal(fmt.Sprintf("seeding dummy admin: %v", err), err)
			}
		}
		repo := dummydb.NewRepository(db)
		return DataSource{
			Students:  repo,
			Courses:   repo,
			Payments:  repo,
			Dashboard: repo,
			Sessions:  dummydb.NewFactory(db),
		}
	}

	err := errors.Errorf("unknown data source %q", conf.DataSource)
	logger.Fatal(err.Error(), err)
	return DataSource{}
}

func newCacheStore(conf *core.Config, logger core.Logger) cache.Store {
	if conf.Cache.Backend != core.CacheRedis {
		return cachesvc.NewMemoryStore()
	}
	client, err := cachesvc.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return cachesvc.NewRedisStore(client)
}

func newQueryCache(conf *core.Config, store cache.Store, logger core.Logger) *cache.QueryCache {
	return cache.NewQueryCache(store, conf.Cache.TTL, logger)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// newSessionManager expires console sessions together with their console token.
func newSessionManager(conf *core.Config, factory session.Factory, logger core.Logger) *session.Manager {
	return session.NewManager(factory, logger, session.WithTTL(conf.Server.JWTExpirationDelta))
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:         p.Conf,
		Logger:       p.Logger,
		Sessions:     p.Sessions,
		StudentSvc:   p.StudentSvc,
		CourseSvc:    p.CourseSvc,
		PaymentSvc:   p.PaymentSvc,
		DashboardSvc: p.DashboardSvc,
		Validate:     p.Validate,
		Translator:   p.Translator,
		Gatherer:     p.Gatherer,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDataLogger, dig.Name("dataLogger")))
	must(c.Provide(newRegistry))
	must(c.Provide(remote.NewMetrics))
	must(c.Provide(remote.NewClient))
	must(c.Provide(newDataSource))
	must(c.Provide(newCacheStore))
	must(c.Provide(newQueryCache))
	must(c.Provide(newEmailService))
	must(c.Provide(student.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(payment.NewService))
	must(c.Provide(dashboard.NewService))
	must(c.Provide(newSessionManager))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
