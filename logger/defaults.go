package logger

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/rs/zerolog"
)

var (
	urlPattern  = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.-]*:\/\/[a-zA-Z0-9+%/.\-:_?&=#@+]+`)
	pathPattern = regexp.MustCompile(`(^|[\s'"=(])(/[^\s'"()]+)`)
)

type DefaultLogger struct {
	zl    zerolog.Logger
	debug bool
	safe  bool
}

type Option func(*DefaultLogger)

// WithDebug enables Debug/Debugf output.
func WithDebug(enabled bool) Option {
	return func(l *DefaultLogger) {
		l.debug = enabled
	}
}

// WithSafeLogs redacts URLs and absolute paths from every message.
func WithSafeLogs(enabled bool) Option {
	return func(l *DefaultLogger) {
		l.safe = enabled
	}
}

// Default is used before the configuration has been loaded.
var Default = New(os.Stdout)

func New(out io.Writer, opts ...Option) *DefaultLogger {
	l := &DefaultLogger{
		zl: zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stdout}).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func cleanString(text string) string {
	text = urlPattern.ReplaceAllString(text, "[redacted url]")
	return pathPattern.ReplaceAllString(text, "${1}[redacted path]")
}

func (l *DefaultLogger) format(format string, v ...any) string {
	msg := format
	if len(v) > 0 {
		msg = fmt.Sprintf(format, v...)
	}
	if l.safe {
		return cleanString(msg)
	}
	return msg
}

func (l *DefaultLogger) Log(format string) {
	l.zl.Info().Msg(l.format(format))
}

func (l *DefaultLogger) Logf(format string, v ...any) {
	l.zl.Info().Msg(l.format(format, v...))
}

func (l *DefaultLogger) Debug(format string) {
	if l.debug {
		l.zl.Debug().Msg(l.format(format))
	}
}

func (l *DefaultLogger) Debugf(format string, v ...any) {
	if l.debug {
		l.zl.Debug().Msg(l.format(format, v...))
	}
}

func (l *DefaultLogger) Error(format string) {
	l.zl.Error().Msg(l.format(format))
}

func (l *DefaultLogger) Errorf(format string, v ...any) {
	l.zl.Error().Msg(l.format(format, v...))
}

func (l *DefaultLogger) Warn(format string) {
	l.zl.Warn().Msg(l.format(format))
}

func (l *DefaultLogger) Warnf(format string, v ...any) {
	l.zl.Warn().Msg(l.format(format, v...))
}

func (l *DefaultLogger) Fatal(format string) {
	l.zl.Fatal().Msg(l.format(format))
}

func (l *DefaultLogger) Fatalf(format string, v ...any) {
	l.zl.Fatal().Msg(l.format(format, v...))
}
