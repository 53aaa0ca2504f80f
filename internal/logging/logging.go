package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const scopeFieldName = "scope"

// Options configures the process logger.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
	Out    io.Writer
}

// New builds the base logger. Console output is human-readable with a
// bracketed [scope] column; json output is one object per line.
func New(opts Options) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	switch strings.ToLower(opts.Format) {
	case "", "console":
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			FormatPrepare: func(m map[string]any) error {
				if v, ok := m[scopeFieldName].(string); ok && v != "" {
					m[scopeFieldName] = fmt.Sprintf("[%s]", v)
				} else {
					m[scopeFieldName] = "[app]"
				}
				return nil
			},
			FieldsExclude: []string{scopeFieldName},
			PartsOrder: []string{
				zerolog.LevelFieldName,
				zerolog.TimestampFieldName,
				scopeFieldName,
				zerolog.MessageFieldName,
			},
		}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return level, nil
}

// WithScope returns a sub-logger tagged with a component name.
func WithScope(logger zerolog.Logger, scope string) zerolog.Logger {
	return logger.With().Str(scopeFieldName, scope).Logger()
}

// CacheSink adapts a zerolog logger to the cache diagnostic interface.
type CacheSink struct {
	logger zerolog.Logger
}

func NewCacheSink(logger zerolog.Logger) *CacheSink {
	return &CacheSink{logger: logger}
}

func (s *CacheSink) Debug(msg string, fields map[string]any) {
	s.logger.Debug().Fields(fields).Msg(msg)
}

func (s *CacheSink) Info(msg string, fields map[string]any) {
	s.logger.Info().Fields(fields).Msg(msg)
}

func (s *CacheSink) Error(msg string, err error, fields map[string]any) {
	s.logger.Error().Err(err).Fields(fields).Msg(msg)
}
