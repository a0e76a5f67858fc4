package session

import "context"

type ctxKey int

const sessionKey ctxKey = iota

// NewContext returns a copy of ctx carrying sess: remote calls made with it act as the session's user.
func NewContext(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey).(Session)
	return sess, ok
}
