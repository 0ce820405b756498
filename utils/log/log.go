// Package log is a thin, process-wide wrapper around go.uber.org/zap.
// Components that need a logger take a *zap.SugaredLogger directly as a
// constructor argument (mirroring lib/torrent/scheduler/announcer.New);
// this package exists for the handful of call sites — package init,
// background loops with no natural owner — that have no logger to thread
// through and must go through a process-wide default instead.
package log

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Config configures a zap logger's level, encoding destination and
// output paths.
type Config struct {
	Level            string `yaml:"level"`
	Disable          bool   `yaml:"disable"`
	OutputPaths      []string `yaml:"output_paths"`
	ErrorOutputPaths []string `yaml:"error_output_paths"`
}

// New builds a standalone *zap.Logger from config, tagged with
// initialFields. Unlike Configure, this does not touch the package-wide
// default logger — it is for components that want their own
// independently-configured logger.
func New(config Config, initialFields map[string]interface{}) (*zap.Logger, error) {
	if config.Disable {
		return zap.NewNop(), nil
	}

	level := zap.NewAtomicLevel()
	if config.Level != "" {
		if err := level.UnmarshalText([]byte(config.Level)); err != nil {
			return nil, fmt.Errorf("parse level %q: %s", config.Level, err)
		}
	}

	outputPaths := config.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}
	errorOutputPaths := config.ErrorOutputPaths
	if len(errorOutputPaths) == 0 {
		errorOutputPaths = []string{"stderr"}
	}

	fields := make(map[string]interface{}, len(initialFields))
	for k, v := range initialFields {
		fields[k] = v
	}

	zcfg := zap.Config{
		Level:            level,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      outputPaths,
		ErrorOutputPaths: errorOutputPaths,
		InitialFields:    fields,
	}
	return zcfg.Build()
}

var (
	configureOnce sync.Once

	mu      sync.RWMutex
	current = zap.NewNop().Sugar()
)

// Configure installs config as the package-wide default logger. Only the
// first call takes effect, matching the single process-lifetime
// initialization the teacher does with std::call_once.
func Configure(config Config) {
	configureOnce.Do(func() {
		l, err := New(config, nil)
		if err != nil {
			l = zap.NewNop()
		}
		mu.Lock()
		current = l.Sugar()
		mu.Unlock()
	})
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// With returns a logger derived from the package-wide default, tagged
// with the given key-value pairs.
func With(args ...interface{}) *zap.SugaredLogger {
	return get().With(args...)
}

// Fields is a map of structured fields, for call sites that build up tags
// before deciding on a message (request handlers tagging a name or
// info-hash ahead of an Info/Errorf call).
type Fields map[string]interface{}

// WithFields returns a logger derived from the package-wide default,
// tagged with fields.
func WithFields(fields Fields) *zap.SugaredLogger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return get().With(args...)
}

// NewNop returns a no-op logger, for use in tests that need to satisfy a
// *zap.SugaredLogger parameter without producing output.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func Debug(args ...interface{})                 { get().Debug(args...) }
func Debugf(template string, args ...interface{}) { get().Debugf(template, args...) }
func Info(args ...interface{})                  { get().Info(args...) }
func Infof(template string, args ...interface{})  { get().Infof(template, args...) }
func Warn(args ...interface{})                  { get().Warn(args...) }
func Warnf(template string, args ...interface{})  { get().Warnf(template, args...) }
func Error(args ...interface{})                 { get().Error(args...) }
func Errorf(template string, args ...interface{}) { get().Errorf(template, args...) }
func Fatal(args ...interface{})                 { get().Fatal(args...) }
func Fatalf(template string, args ...interface{}) { get().Fatalf(template, args...) }
