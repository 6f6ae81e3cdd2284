package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{LevelDebug: "DEBUG", LevelInfo: "INFO", LevelWarn: "WARN", LevelError: "ERROR"}

// ParseLevel accepts debug, info, warn or error in any case. Empty means info.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger writes one JSON object per line. Entries below the minimum level, info
// unless changed with SetLevel, are dropped.
type Logger struct {
	service string
	min     atomic.Int32

	mu  sync.Mutex
	out io.Writer
}

func New(service string) *Logger { return NewWithWriter(service, os.Stdout) }

// NewWithWriter is New writing to w instead of stdout.
func NewWithWriter(service string, w io.Writer) *Logger {
	l := &Logger{service: service, out: w}
	l.min.Store(int32(LevelInfo))
	return l
}

func (l *Logger) SetLevel(level Level) { l.min.Store(int32(level)) }

func (l *Logger) Enabled(level Level) bool { return level >= Level(l.min.Load()) }

func (l *Logger) log(level Level, action, msg string, fields map[string]any, err error) {
	if !l.Enabled(level) {
		return
	}
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"level":     levelNames[level],
		"service":   l.service,
		"action":    action,
		"message":   msg,
		"hostname":  hostname(),
	}
	for k, v := range fields {
		entry[k] = v
	}
	if err != nil {
		entry["error"] = map[string]any{"msg": err.Error(), "type": fmt.Sprintf("%T", err)}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.out).Encode(entry)
}

func (l *Logger) Info(action string, fields map[string]any)  { l.log(LevelInfo, action, action, fields, nil) }
func (l *Logger) Debug(action string, fields map[string]any) { l.log(LevelDebug, action, action, fields, nil) }

func (l *Logger) Warn(action string, err error, fields map[string]any) {
	l.log(LevelWarn, action, action, fields, err)
}

func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(LevelError, action, action, fields, err)
}

var (
	hostOnce sync.Once
	host     string
)

func hostname() string {
	hostOnce.Do(func() { host, _ = os.Hostname() })
	return host
}
