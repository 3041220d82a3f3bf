// Package logger bridges line-oriented loggers onto slog.
package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib logger whose lines are emitted through base at debug
// level, tagged with the component name. Use it for libraries that only accept
// a Println-style logger.
func New(base *slog.Logger, component string) *log.Logger {
	if base == nil {
		base = slog.New(slog.DiscardHandler)
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelDebug)
}
