package core

// Logger is implemented by services that report application events.
// Implementations may inspect args for well-known types (eg. a caller identity)
// and treat the rest as extra context.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
