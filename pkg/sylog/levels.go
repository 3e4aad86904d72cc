// Copyright (c) Contributors to the sandboxrt project.
// This software is licensed under a 3-clause BSD license. Please consult the
// LICENSE.md file distributed with the sources of this project regarding your
// rights to use or distribute this software.

package sylog

// messageLevel describes the severity of a log message. Lower is more
// severe; this mirrors syslog priority ordering.
type messageLevel int

const (
	FatalLevel   messageLevel = iota - 4 // unrecoverable, process is about to exit
	ErrorLevel                           // error that does not prevent the caller from continuing
	WarnLevel                            // degraded but recoverable condition
	LogLevel                             // default plain log line, always shown
	InfoLevel                            // informational, shown by default
	VerboseLevel                         // shown with one -v
	DebugLevel                           // shown when SANDBOXRT_MESSAGELEVEL is 2 or higher
)

func (l messageLevel) String() string {
	switch l {
	case FatalLevel:
		return "FATAL"
	case ErrorLevel:
		return "ERROR"
	case WarnLevel:
		return "WARNING"
	case LogLevel:
		return "LOG"
	case InfoLevel:
		return "INFO"
	case VerboseLevel:
		return "VERBOSE"
	case DebugLevel:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}
