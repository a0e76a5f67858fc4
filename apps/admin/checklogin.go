package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/coachdesk/core"
)

// checkLogin signs in like the console does, prints what the session resolved to, then signs out.
func (cli *commandLine) checkLogin(email, pwd string) error {
	ctx := context.Background()
	sid, m, res := cli.sessions.Login(ctx, core.CleanString(email, true /* lower */), pwd)
	if !res.Success {
		return res.Err
	}
	defer func() { _ = cli.sessions.Logout(ctx, sid) }()

	sess, _ := m.Session()
	roles := "(none)"
	if r := m.Roles(); len(r) > 0 {
		roles = strings.Join(r, ", ")
	}
	fmt.Fprintf(cli.out, "user:  %s <%s>\n", sess.UserID, sess.Email)
	fmt.Fprintf(cli.out, "roles: %s\n", roles)
	fmt.Fprintf(cli.out, "admin: %t\n", m.IsAdmin())
	return nil
}
