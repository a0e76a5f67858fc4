package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/coachdesk/core"
)

func (cli *commandLine) grantRole(userID, role string) error {
	ctx := context.Background()
	userID = core.CleanString(userID)
	role = core.CleanString(role, true /* lower */)

	if err := cli.roles.GrantRole(ctx, userID, role); err != nil {
		return err
	}
	roles, err := cli.roles.RolesForUser(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s roles: %s\n", userID, strings.Join(roles, ", "))
	return nil
}
