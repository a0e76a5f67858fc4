package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/coachdesk/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type roleGranter interface {
	GrantRole(ctx context.Context, userID, role string) error
	RolesForUser(ctx context.Context, userID string) ([]string, error)
}

type commandLine struct {
	db       *sql.DB
	roles    roleGranter
	sessions *session.Manager
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]               - run a goose command against the database (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  checklogin -email EMAIL              - sign in and print the user's roles")
	fmt.Fprintln(cli.out, "  grantrole -user USER_ID -role ROLE   - grant a role to a user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	checkLoginCmd := flag.NewFlagSet("checklogin", flag.ContinueOnError)
	checkLoginEmail := checkLoginCmd.String("email", "", "The user's email. The password will be prompted next.")

	grantRoleCmd := flag.NewFlagSet("grantrole", flag.ContinueOnError)
	grantRoleUser := grantRoleCmd.String("user", "", "The user's ID.")
	grantRoleRole := grantRoleCmd.String("role", "", "The role to grant, e.g. admin.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "checklogin":
		if err := checkLoginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *checkLoginEmail == "" {
			checkLoginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			checkLoginCmd.Usage()
			return errHelp
		}
		return cli.checkLogin(*checkLoginEmail, string(pwd))

	case "grantrole":
		if err := grantRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *grantRoleUser == "" || *grantRoleRole == "" {
			grantRoleCmd.Usage()
			return errHelp
		}
		return cli.grantRole(*grantRoleUser, *grantRoleRole)

	default:
		cli.printUsage()
		return errHelp
	}
}
