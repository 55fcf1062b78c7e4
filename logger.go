package apix

import "log/slog"

// Logger receives the transport's lifecycle and error messages as a message
// plus alternating key/value pairs. *slog.Logger fits as is; the CLI plugs
// in logrus through a small adapter.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// defaultLogger is used when LoggerOption is not given.
func defaultLogger() Logger {
	return slog.Default()
}

// NopLogger drops every message. Tests and embedders that log elsewhere use
// it to keep the transport quiet.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
