package logger

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Ensure both implementations satisfy Logger.
var (
	_ Logger = &nopLogger{}
	_ Logger = &zapLogger{}
)

// Logger is the logging interface shared by every package.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	// WithPrefix returns a Logger that tags every line with prefix, e.g.
	// WithPrefix("STORE") logs "[STORE] ...".
	WithPrefix(prefix string) Logger
}

// NopLogger discards everything.
var NopLogger Logger = &nopLogger{}

type nopLogger struct{}

func (n *nopLogger) Printf(format string, v ...interface{}) {}
func (n *nopLogger) Debugf(format string, v ...interface{}) {}
func (n *nopLogger) Infof(format string, v ...interface{})  {}
func (n *nopLogger) Warnf(format string, v ...interface{})  {}
func (n *nopLogger) Errorf(format string, v ...interface{}) {}

func (n *nopLogger) WithPrefix(prefix string) Logger { return n }

// Config selects level and encoding.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level" json:"level"`

	// Format is "console" or "json". Defaults to console.
	Format string `yaml:"format" json:"format"`
}

type zapLogger struct {
	sugar  *zap.SugaredLogger
	prefix string
}

// New builds a zap-backed Logger from cfg.
func New(cfg Config) (Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, errors.Wrapf(err, "parsing log level %q", cfg.Level)
		}
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "", "console":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.DisableStacktrace = true
	case "json":
		zcfg = zap.NewProductionConfig()
	default:
		return nil, errors.Errorf("unknown log format %q", cfg.Format)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	z, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return NewZap(z), nil
}

// NewZap wraps an existing zap logger.
func NewZap(z *zap.Logger) Logger {
	return &zapLogger{sugar: z.Sugar()}
}

func (l *zapLogger) format(format string, v []interface{}) string {
	return l.prefix + fmt.Sprintf(format, v...)
}

// Printf logs at info level.
func (l *zapLogger) Printf(format string, v ...interface{}) { l.sugar.Info(l.format(format, v)) }

func (l *zapLogger) Debugf(format string, v ...interface{}) { l.sugar.Debug(l.format(format, v)) }
func (l *zapLogger) Infof(format string, v ...interface{})  { l.sugar.Info(l.format(format, v)) }
func (l *zapLogger) Warnf(format string, v ...interface{})  { l.sugar.Warn(l.format(format, v)) }
func (l *zapLogger) Errorf(format string, v ...interface{}) { l.sugar.Error(l.format(format, v)) }

func (l *zapLogger) WithPrefix(prefix string) Logger {
	return &zapLogger{
		sugar:  l.sugar,
		prefix: l.prefix + "[" + prefix + "] ",
	}
}
