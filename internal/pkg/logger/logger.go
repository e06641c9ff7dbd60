package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var zapLevels = map[Level]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

// Logger provides structured JSON logging with optional secret redaction.
type Logger struct {
	mu     sync.RWMutex
	level  zap.AtomicLevel
	base   *zap.Logger
	redact bool
}

var defaultLogger = New(zapcore.AddSync(os.Stderr))

// New builds a Logger that writes JSON lines to w at INFO level.
func New(w zapcore.WriteSyncer) *Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level)
	return &Logger{level: level, base: zap.New(core), redact: true}
}

// Default returns the process-wide logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the process-wide logger. Intended for tests.
func SetDefault(l *Logger) { defaultLogger = l }

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.SetLevel(l) }

// SetRedactSecrets enables or disables secret redaction for the default logger.
func SetRedactSecrets(r bool) {
	defaultLogger.mu.Lock()
	defaultLogger.redact = r
	defaultLogger.mu.Unlock()
}

// ParseLevel maps "debug", "info", "warn" and "error" to a Level. Unknown names yield INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

// Sync flushes buffered entries.
func Sync() error { return defaultLogger.base.Sync() }

// SetLevel sets the minimum level for l.
func (l *Logger) SetLevel(lv Level) { l.level.SetLevel(zapLevels[lv]) }

// Zap exposes the underlying zap logger for libraries that want one.
func (l *Logger) Zap() *zap.Logger { return l.base }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	zl := zapLevels[level]
	if !l.level.Enabled(zl) {
		return
	}

	l.mu.RLock()
	redact := l.redact
	l.mu.RUnlock()

	zf := make([]zap.Field, 0, len(fields)/2)
	// Parse key-value pairs from fields
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		if redact {
			val = redactValue(key, val)
		}
		zf = append(zf, zap.String(key, val))
	}

	if ce := l.base.Check(zl, msg); ce != nil {
		ce.Write(zf...)
	}
}
