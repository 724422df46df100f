// Package logging configures structured JSON logging for reservectl and
// the reservehost registry. Unlike a long-running node daemon, reservectl
// has no log file to rotate and no multi-process fanout to correlate, so
// this package trades the teacher's generic service/env logger for one
// that additionally carries per-reserve context: reservehost serializes
// actions per reserve address (§5), and every log line it emits should
// say which reserve's lane produced it without every call site having to
// repeat the attribute.
package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

// Setup configures the standard library logger to emit structured JSON and
// returns the underlying slog.Logger for use within the service. All log
// lines include the service name and environment when provided. A dev
// environment (the empty string or anything other than "prod"/
// "production") logs at debug level, since the reservehost event sink
// emits ReserveDataUpdated observations at debug and a reviewer running
// the CLI harness locally needs to see them; a production environment
// logs at info and above.
func Setup(service, env string) *slog.Logger {
	env = strings.TrimSpace(env)
	level := slog.LevelDebug
	if env == "prod" || env == "production" {
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			}
			if attr.Key == slog.LevelKey {
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			}
			if attr.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// ForReserve returns a logger scoped to one reserve's lane: every line it
// emits carries a "reserve" attribute, so reservehost's per-reserve
// registry and event sink do not have to pass the address to every log
// call individually.
func ForReserve(logger *slog.Logger, reserveAddress string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("reserve", reserveAddress))
}
