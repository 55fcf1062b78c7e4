package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus entry to apix.Logger.
type logrusLogger struct {
	entry *log.Entry
}

func newLogrusLogger(component string) *logrusLogger {
	return &logrusLogger{entry: log.WithField("component", component)}
}

// fields turns alternating key/value args into logrus fields.
func fields(args []any) log.Fields {
	f := make(log.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		f[fmt.Sprint(args[i])] = args[i+1]
	}
	if len(args)%2 == 1 {
		f["!badkey"] = args[len(args)-1]
	}
	return f
}

func (l *logrusLogger) Debug(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Debug(msg)
}

func (l *logrusLogger) Info(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Info(msg)
}

func (l *logrusLogger) Warn(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Warn(msg)
}

func (l *logrusLogger) Error(msg string, args ...any) {
	l.entry.WithFields(fields(args)).Error(msg)
}
