// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sylog

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var messageColors = map[messageLevel]color.Attribute{
	FatalLevel: color.FgRed,
	ErrorLevel: color.FgRed,
	WarnLevel:  color.FgYellow,
	InfoLevel:  color.FgBlue,
}

var (
	noColorLevel messageLevel = 90
	loggerLevel               = InfoLevel
)

var logWriter = (io.Writer)(os.Stderr)

func init() {
	if l, err := strconv.Atoi(os.Getenv("SANDBOXRT_MESSAGELEVEL")); err == nil {
		loggerLevel = messageLevel(l)
	}
}

func prefix(logLevel, msgLevel messageLevel) string {
	if logLevel < DebugLevel {
		return colorize(msgLevel, fmt.Sprintf("%-8s", msgLevel.String()+":")) + " "
	}

	pc, _, _, ok := runtime.Caller(3)
	details := runtime.FuncForPC(pc)

	funcName := "????()"
	if ok && details != nil {
		parts := strings.Split(details.Name(), ".")
		funcName = parts[len(parts)-1] + "()"
	}

	uidStr := fmt.Sprintf("[U=%d,P=%d]", os.Geteuid(), os.Getpid())
	return colorize(msgLevel, fmt.Sprintf("%-8s", msgLevel.String())) + fmt.Sprintf("%-19s%-30s", uidStr, funcName)
}

func colorize(msgLevel messageLevel, s string) string {
	attr, ok := messageColors[msgLevel]
	if !ok || getLoggerLevel() != loggerLevel {
		return s
	}
	return color.New(attr).Sprint(s)
}

func writef(msgLevel messageLevel, format string, a ...interface{}) {
	logLevel := getLoggerLevel()
	if logLevel < msgLevel {
		return
	}

	message := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	fmt.Fprintf(logWriter, "%s%s\n", prefix(logLevel, msgLevel), message)
}

func getLoggerLevel() messageLevel {
	switch {
	case loggerLevel <= -noColorLevel:
		return loggerLevel + noColorLevel
	case loggerLevel >= noColorLevel:
		return loggerLevel - noColorLevel
	default:
		return loggerLevel
	}
}

// Fatalf logs a FATAL-level message then exits with code 255.
func Fatalf(format string, a ...interface{}) {
	writef(FatalLevel, format, a...)
	os.Exit(255)
}

// Errorf writes an ERROR level message to the log but does not exit.
func Errorf(format string, a ...interface{}) {
	writef(ErrorLevel, format, a...)
}

// Warningf writes a WARNING level message to the log.
func Warningf(format string, a ...interface{}) {
	writef(WarnLevel, format, a...)
}

// Infof writes an INFO level message to the log.
func Infof(format string, a ...interface{}) {
	writef(InfoLevel, format, a...)
}

// Verbosef writes a VERBOSE level message to the log.
func Verbosef(format string, a ...interface{}) {
	writef(VerboseLevel, format, a...)
}

// Debugf writes a DEBUG level message to the log.
func Debugf(format string, a ...interface{}) {
	writef(DebugLevel, format, a...)
}

// Progress writes a verbose-mode progress line indented per depth, using
// a "--> " / "----> " style marker. depth 0 is the top-level marker;
// depth 1 nests one level deeper.
func Progress(depth int, format string, a ...interface{}) {
	if getLoggerLevel() < VerboseLevel {
		return
	}
	marker := strings.Repeat("--", depth+1) + "> "
	fmt.Fprintf(logWriter, "%s%s\n", marker, fmt.Sprintf(format, a...))
}

// SetLevel explicitly sets the logger level. Passing enableColor=false disables
// ANSI coloring regardless of terminal attachment.
func SetLevel(l int, enableColor bool) {
	loggerLevel = messageLevel(l)
	if !enableColor {
		color.NoColor = true
		if loggerLevel >= InfoLevel {
			loggerLevel += noColorLevel
		} else if loggerLevel <= LogLevel {
			loggerLevel -= noColorLevel
		}
	}
}

// GetLevel returns the current log level as an integer.
func GetLevel() int {
	return int(getLoggerLevel())
}

// GetEnvVar returns a formatted environment variable string which a
// re-exec'd child process can parse in its own init() to inherit the
// current verbosity.
func GetEnvVar() string {
	return fmt.Sprintf("SANDBOXRT_MESSAGELEVEL=%d", loggerLevel)
}

// Writer returns an io.Writer suitable for handing to code that wants its
// output to go to sylog's destination, e.g. command output capture. It
// returns io.Discard when the logger level is LogLevel or lower, and the
// log writer otherwise.
func Writer() io.Writer {
	if loggerLevel <= LogLevel {
		return io.Discard
	}
	return logWriter
}

// SetWriter replaces the destination writer, returning the previous one so
// tests can capture and later restore it.
func SetWriter(w io.Writer) io.Writer {
	old := logWriter
	if w != nil {
		logWriter = w
	}
	return old
}
