package remote

import (
	"context"

	"github.com/trezcool/coachdesk/core/session"
)

// accessToken returns the access token of the console session carried by ctx.
func accessToken(ctx context.Context) (string, bool) {
	sess, ok := session.FromContext(ctx)
	return sess.AccessToken, ok && sess.AccessToken != ""
}
