// Package ports declares the interfaces between the playback core and its
// collaborators: media sources and decoders, audio output, rendering, input,
// logging and the file system.
package ports

import "fmt"

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-frame and per-packet details from components.
	LevelDebug LogLevel = iota
	// LevelInfo is for playback lifecycle messages.
	LevelInfo
	// LevelWarn is for recoverable problems such as a failed seek.
	LevelWarn
	// LevelError is for problems that end playback.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

var levelNames = map[LogLevel]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
	LevelQuiet: "quiet",
}

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLogLevel parses a level name. Unknown names fall back to LevelInfo
// and return an error so callers can report the typo.
func ParseLogLevel(s string) (LogLevel, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger abstracts logging with translatable message keys.
type Logger interface {
	// Debug logs component internals. msg is a translatable format key.
	Debug(msg string, args ...interface{})

	// Info logs playback lifecycle events.
	Info(msg string, args ...interface{})

	// Warn logs recoverable problems.
	Warn(msg string, args ...interface{})

	// Error logs problems that stop playback.
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with component.
	WithComponent(component string) Logger
}
