package core

// Logger logs messages and reports them to the error tracker.
// args may hold errors, map[string]interface{} extras and at most one LogUser.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogUser identifies the staff user a log entry is about.
type LogUser struct {
	ID    string
	Email string
}
