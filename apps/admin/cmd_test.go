package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coachdesk/core"
	"github.com/trezcool/coachdesk/core/session"
	dummydb "github.com/trezcool/coachdesk/storage/database/dummy"
	testutil "github.com/trezcool/coachdesk/tests"
)

func setup(t *testing.T) (*commandLine, *dummydb.DB, *bytes.Buffer) {
	db := dummydb.Open()
	sessions := session.NewManager(dummydb.NewFactory(db), testutil.NewLogger())
	t.Cleanup(sessions.Close)

	var out bytes.Buffer
	return &commandLine{
		roles:    db,
		sessions: sessions,
		out:      &out,
	}, db, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		tt := tt
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) {
				if pwd, ok := tt.extra.(string); ok {
					return []byte(pwd), nil
				}
				return nil, nil
			}

			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	migrateFunc = func(_ context.Context, db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_notes", "sql"}},
	})
}

func Test_commandLine_checkLogin(t *testing.T) {
	cli, db, out := setup(t)

	_, err := db.AddUser("boss@test.cd", "s3cret", session.RoleAdmin)
	require.NoError(t, err)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"checklogin"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"checklogin", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "wrong password", args: []string{"checklogin", "-email", "boss@test.cd"}, extra: "nope", wantErr: core.NewAuthError("Invalid login credentials")},
		{name: "success", args: []string{"checklogin", "-email", " Boss@Test.cd "}, extra: "s3cret"},
	})

	assert.Contains(t, out.String(), "<boss@test.cd>")
	assert.Contains(t, out.String(), "roles: admin\n")
	assert.Contains(t, out.String(), "admin: true\n")
	assert.Zero(t, cli.sessions.Len(), "checklogin signs out")
}

func Test_commandLine_grantRole(t *testing.T) {
	cli, db, out := setup(t)

	userID, err := db.AddUser("staff@test.cd", "s3cret")
	require.NoError(t, err)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"grantrole"}, wantErr: errHelp},
		{name: "no role", args: []string{"grantrole", "-user", userID}, wantErr: errHelp},
		{name: "grant", args: []string{"grantrole", "-user", userID, "-role", " Admin "}},
		{name: "grant twice", args: []string{"grantrole", "-user", userID, "-role", "admin"}},
		{name: "another role", args: []string{"grantrole", "-user", userID, "-role", "coach"}},
	})

	roles, err := db.RolesForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "coach"}, roles)
	assert.Contains(t, out.String(), userID+" roles: admin, coach\n")
}
