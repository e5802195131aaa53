package main

import (
	"log/slog"
	"sort"

	"dealchain/core/events"
)

// eventLogger writes every committed notification as one structured line.
type eventLogger struct {
	logger *slog.Logger
}

func newEventLogger(logger *slog.Logger) *eventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventLogger{logger: logger}
}

func (l *eventLogger) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	args := []any{"type", evt.EventType()}
	if payload, ok := evt.(events.Payload); ok {
		if typed := payload.Event(); typed != nil {
			keys := make([]string, 0, len(typed.Attributes))
			for key := range typed.Attributes {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				args = append(args, key, typed.Attributes[key])
			}
		}
	}
	l.logger.Info("event committed", args...)
}
