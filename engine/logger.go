package engine

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// LoggerService writes leveled, printf style log lines to stderr.
// Debug output is suppressed unless Verbose is set so library users
// stay quiet by default.
type LoggerService struct {
	Verbose bool
}

var (
	debugTag = color.New(color.FgCyan).Sprint("[DEBUG]")
	infoTag  = color.New(color.FgGreen).Sprint("[INFO]")
	warnTag  = color.New(color.FgYellow).Sprint("[WARN]")
	errorTag = color.New(color.FgRed).Sprint("[ERROR]")
)

func NewLogger(verbose bool) *LoggerService {
	return &LoggerService{Verbose: verbose}
}

func (l *LoggerService) log(tag, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", tag, fmt.Sprintf(format, args...))
}

func (l *LoggerService) Debug(format string, args ...any) {
	if l == nil || !l.Verbose {
		return
	}
	l.log(debugTag, format, args...)
}

func (l *LoggerService) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.log(infoTag, format, args...)
}

func (l *LoggerService) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.log(warnTag, format, args...)
}

func (l *LoggerService) Error(format string, args ...any) {
	if l == nil {
		return
	}
	l.log(errorTag, format, args...)
}
