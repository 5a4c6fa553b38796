package logger

import (
	"sync"
	"time"

	"github.com/leandrodaf/midiframe/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// callerSkip hides the wrapper frames so callers see their own file:line.
const callerSkip = 2

// ZapLogger implements contracts.Logger on top of Uber's zap.
type ZapLogger struct {
	mu     sync.RWMutex
	logger *zap.Logger
	level  zap.AtomicLevel
	config *zap.Config // nil when built from an explicit core
}

// NewZapLogger returns a JSON production logger writing to stderr.
func NewZapLogger() contracts.Logger {
	return newFromConfig(zap.NewProductionConfig())
}

// NewStandardLogger returns a human-readable console logger writing to stderr.
func NewStandardLogger() contracts.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return newFromConfig(cfg)
}

// NewWithCore wraps an existing zap core. SetDestination is a no-op on the
// returned logger.
func NewWithCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{
		logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(callerSkip)),
		level:  zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
}

func newFromConfig(cfg zap.Config) *ZapLogger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.Level = level
	z := &ZapLogger{level: level, config: &cfg}
	z.logger = build(cfg)
	return z
}

func build(cfg zap.Config) *zap.Logger {
	l, err := cfg.Build(zap.AddCallerSkip(callerSkip))
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Info logs a message at the INFO level
func (z *ZapLogger) Info(msg string, fields ...contracts.Field) {
	z.log(zapcore.InfoLevel, msg, fields...)
}

// Error logs a message at the ERROR level
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) {
	z.log(zapcore.ErrorLevel, msg, fields...)
}

// Debug logs a message at the DEBUG level
func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) {
	z.log(zapcore.DebugLevel, msg, fields...)
}

// Warn logs a message at the WARN level
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field) {
	z.log(zapcore.WarnLevel, msg, fields...)
}

// Fatal logs a message at the FATAL level and terminates the application
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) {
	z.log(zapcore.FatalLevel, msg, fields...)
}

// Field returns a new instance of Field
func (z *ZapLogger) Field() contracts.Field {
	return &zapField{}
}

// SetLevel sets the logging level
func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(toZapLevel(level))
}

// Level returns the active zap level.
func (z *ZapLogger) Level() zapcore.Level {
	return z.level.Level()
}

// SetDestination redirects output to stderr or to the file at filePath[0].
func (z *ZapLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.config == nil {
		return
	}

	cfg := *z.config
	switch dest {
	case contracts.FileLog:
		if len(filePath) == 0 || filePath[0] == "" {
			return
		}
		cfg.OutputPaths = []string{filePath[0]}
	default:
		cfg.OutputPaths = []string{"stderr"}
	}

	_ = z.logger.Sync()
	z.config = &cfg
	z.logger = build(cfg)
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.logger.Sync()
}

func (z *ZapLogger) log(level zapcore.Level, msg string, fields ...contracts.Field) {
	if !z.level.Enabled(level) {
		return
	}

	z.mu.RLock()
	l := z.logger
	z.mu.RUnlock()

	if ce := l.Check(level, msg); ce != nil {
		ce.Write(toZapFields(fields)...)
	}
}

func toZapLevel(level contracts.LogLevel) zapcore.Level {
	switch level {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []contracts.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		if f, ok := field.(*zapField); ok && f.set {
			out = append(out, f.field)
		}
	}
	return out
}

// zapField implements contracts.Field
type zapField struct {
	field zap.Field
	set   bool
}

func wrap(f zap.Field) contracts.Field {
	return &zapField{field: f, set: true}
}

func (f *zapField) Bool(key string, val bool) contracts.Field {
	return wrap(zap.Bool(key, val))
}

func (f *zapField) Int(key string, val int) contracts.Field {
	return wrap(zap.Int(key, val))
}

func (f *zapField) Float64(key string, val float64) contracts.Field {
	return wrap(zap.Float64(key, val))
}

func (f *zapField) String(key string, val string) contracts.Field {
	return wrap(zap.String(key, val))
}

func (f *zapField) Time(key string, val time.Time) contracts.Field {
	return wrap(zap.Time(key, val))
}

func (f *zapField) Int64(key string, val int64) contracts.Field {
	return wrap(zap.Int64(key, val))
}

func (f *zapField) Error(key string, val error) contracts.Field {
	return wrap(zap.NamedError(key, val))
}

func (f *zapField) Uint64(key string, val uint64) contracts.Field {
	return wrap(zap.Uint64(key, val))
}

func (f *zapField) Uint8(key string, val uint8) contracts.Field {
	return wrap(zap.Uint8(key, val))
}

func (f *zapField) Binary(key string, val []byte) contracts.Field {
	return wrap(zap.Binary(key, val))
}
