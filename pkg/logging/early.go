package logging

import (
	"fmt"
	"io"
	"os"
)

// EarlyLog prints to the standard streams before the configured logger exists.
type EarlyLog struct {
	prefix string
	out    io.Writer
	errOut io.Writer
}

func NewEarlyLog(prefix string) *EarlyLog {
	return &EarlyLog{prefix: prefix, out: os.Stdout, errOut: os.Stderr}
}

func (l *EarlyLog) write(w io.Writer, level, msg string, args ...interface{}) {
	if l.prefix != "" {
		fmt.Fprintf(w, "%s %s: %s\n", l.prefix, level, fmt.Sprintf(msg, args...))
		return
	}
	fmt.Fprintf(w, "%s: %s\n", level, fmt.Sprintf(msg, args...))
}

func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	l.write(l.errOut, "FATAL", msg, args...)
	os.Exit(1)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.write(l.errOut, "WARN", msg, args...)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.write(l.out, "INFO", msg, args...)
}
