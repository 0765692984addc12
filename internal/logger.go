package internal

import (
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var logLevel = new(slog.LevelVar)

// SetLogLevel changes the level of every [Logger] created by this package.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// Logger wraps a [slog.Logger] and tags every record with
// the kind and the name of the component that emitted it.
type Logger struct {
	*slog.Logger

	kind string
	name string
}

func newHandler() slog.Handler {
	var w io.Writer
	noColor := false

	if runtime.GOOS == "windows" {
		w = colorable.NewColorableStderr()
	} else {
		w = os.Stderr
		noColor = !isatty.IsTerminal(os.Stderr.Fd())
	}

	return tint.NewHandler(w, &tint.Options{
		Level:   logLevel,
		NoColor: noColor,
	})
}

func NewLogger(kind, name string) *Logger {
	return &Logger{
		Logger: slog.New(newHandler()),

		kind: kind,
		name: name,
	}
}

func (l *Logger) getInfo() slog.Attr {
	return slog.Group("info", slog.String("kind", l.kind), slog.String("name", l.name))
}

func (l *Logger) getArgs(args ...any) []any {
	return append([]any{l.getInfo()}, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.Logger.Debug(msg, l.getArgs(args...)...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, l.getArgs(args...)...)
}

func (l *Logger) Error(msg string, err error, args ...any) {
	tmpArgs := append([]any{tint.Err(err)}, args...)
	l.Logger.Error(msg, l.getArgs(tmpArgs...)...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, l.getArgs(args...)...)
}
