package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options select the level and an optional rotating file sink.
type Options struct {
	Level string // debug, info, warn, error
	File  string // empty writes to stdout only
}

// New returns a JSON slog logger writing to w, and to a rotating file when
// opts.File is set. The returned close func releases the file.
func New(w io.Writer, opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		w = io.MultiWriter(w, rotator)
		closeFn = rotator.Close
	}

	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	return log, closeFn, nil
}

// Default is New falling back to info level on a bad level name.
func Default(w io.Writer, opts Options) (*slog.Logger, func() error) {
	log, closeFn, err := New(w, opts)
	if err != nil {
		opts.Level = "info"
		log, closeFn, _ = New(w, opts)
		log.Warn("invalid log level, using info", "error", err)
	}
	return log, closeFn
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
