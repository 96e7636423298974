package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the process logs.
type Options struct {
	Env string

	// File, when set, receives a copy of every record and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var rotating *lumberjack.Logger

// New returns a JSON logger writing to stdout and, when opts.File is set,
// to a size-rotated file. local and dev log at debug level.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Env == "local" || opts.Env == "dev" {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		rotating = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotating)
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})).With("env", opts.Env)
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ShutdownFlush closes the rotating log file, if one was opened.
func ShutdownFlush(_ context.Context, _ time.Duration) error {
	if rotating == nil {
		return nil
	}
	return rotating.Close()
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
