package main

import (
	"log"
	"os"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/session"
	logsvc "github.com/trezcool/coachdesk/services/logger"
	"github.com/trezcool/coachdesk/storage/database"
	dummydb "github.com/trezcool/coachdesk/storage/database/dummy"
	sqlxrepos "github.com/trezcool/coachdesk/storage/database/sqlx"
	"github.com/trezcool/coachdesk/storage/remote"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	roles := sqlxrepos.NewRoleRepository(db)

	// set up sessions against the configured provider
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	var factory session.Factory
	switch conf.DataSource {
	case core.DataSourceDummy:
		mem := dummydb.Open()
		_, err := mem.AddUser(conf.Dummy.AdminEmail, conf.Dummy.AdminPassword, session.RoleAdmin)
		errAndDie(err)
		factory = dummydb.NewFactory(mem)
	default:
		client := remote.NewClient(conf, nil)
		if conf.DataSource == core.DataSourcePostgres {
			factory = func() (session.Authenticator, session.RoleResolver, error) {
				return remote.NewAuth(client, conf, appLogger), roles, nil
			}
		} else {
			factory = remote.NewFactory(client, conf, appLogger)
		}
	}
	sessions := session.NewManager(factory, appLogger)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		roles:    roles,
		sessions: sessions,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	sessions.Close()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
