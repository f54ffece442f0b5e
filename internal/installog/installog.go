package installog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the flat run log kept under the install root.
const FileName = "installation.log"

// Logger appends "[timestamp] [LEVEL] message" lines to the run log and
// mirrors each entry to a structured logger. The file is truncated at the
// start of a fresh run; entries are append-only after that.
type Logger struct {
	mu sync.Mutex
	f  *os.File
	zl zerolog.Logger
}

// Open creates (or truncates) installation.log under installRoot.
func Open(installRoot string, zl zerolog.Logger) (*Logger, error) {
	if err := os.MkdirAll(installRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create install root: %w", err)
	}
	p := filepath.Join(installRoot, FileName)
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	return &Logger{f: f, zl: zl}, nil
}

// Path returns the run log location.
func (l *Logger) Path() string { return l.f.Name() }

func (l *Logger) write(level string, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	line := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format(time.RFC3339), level, msg)
	l.mu.Lock()
	_, _ = l.f.WriteString(line)
	l.mu.Unlock()
	switch level {
	case "WARN":
		l.zl.Warn().Msg(msg)
	case "ERROR":
		l.zl.Error().Msg(msg)
	default:
		l.zl.Info().Msg(msg)
	}
}

func (l *Logger) Infof(format string, a ...any)  { l.write("INFO", format, a...) }
func (l *Logger) Warnf(format string, a ...any)  { l.write("WARN", format, a...) }
func (l *Logger) Errorf(format string, a ...any) { l.write("ERROR", format, a...) }

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
