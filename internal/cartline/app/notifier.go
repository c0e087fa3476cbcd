package app

import (
	"context"
	"log/slog"
)

const MessageItemRemoved = "item removed"

// LogNotifier surfaces user-facing confirmations as log records.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, message string) {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "user notice", slog.String("message", message))
}
