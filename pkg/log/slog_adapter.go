package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes access events to an slog.Logger.
// Useful for development when you want to see dictionary traffic in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("op", event.Op.String()),
		slog.String("object", event.Object),
		slog.String("entry", fmt.Sprintf("%04X:%02X", event.Index, event.Subindex)),
	}

	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.CompleteAccess {
		attrs = append(attrs, slog.Bool("complete_access", true))
	}
	if event.Abort != 0 {
		attrs = append(attrs, slog.String("abort", fmt.Sprintf("0x%08X", event.Abort)))
	}
	if event.Size != 0 {
		attrs = append(attrs, slog.Int("size_bits", event.Size))
	}
	if event.Err != "" {
		attrs = append(attrs, slog.String("error", event.Err))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "od", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
