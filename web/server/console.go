package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "warning", "error"
}

// ConsoleHandler is a slog.Handler that copies records to a console channel
// and passes them on to the next handler. Sends never block; messages are
// dropped while the channel is full.
type ConsoleHandler struct {
	next        slog.Handler
	consoleChan chan<- ConsoleMessage
	level       slog.Level
	attrs       string // preformatted attributes from WithAttrs
	group       string
}

// NewConsoleHandler creates a handler forwarding records at or above level
// to consoleChan. next may be nil.
func NewConsoleHandler(consoleChan chan<- ConsoleMessage, level slog.Level, next slog.Handler) *ConsoleHandler {
	return &ConsoleHandler{next: next, consoleChan: consoleChan, level: level}
}

// NewWebLogger creates a logger for a specific render
func NewWebLogger(renderID string, consoleChan chan<- ConsoleMessage, next slog.Handler) *slog.Logger {
	return slog.New(NewConsoleHandler(consoleChan, slog.LevelInfo, next)).With("render", renderID)
}

// Enabled implements slog.Handler
func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= h.level && h.consoleChan != nil {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (h *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level && h.consoleChan != nil {
		var b strings.Builder
		b.WriteString(r.Message)
		b.WriteString(h.attrs)
		r.Attrs(func(a slog.Attr) bool {
			h.writeAttr(&b, a)
			return true
		})

		select {
		case h.consoleChan <- ConsoleMessage{Message: b.String(), Timestamp: r.Time, Level: levelName(r.Level)}:
		default:
			// Channel full, skip (don't block)
		}
	}

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		h.writeAttr(&b, a)
	}
	c.attrs = b.String()
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

// WithGroup implements slog.Handler
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = h.group + name + "."
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}

func (h *ConsoleHandler) writeAttr(b *strings.Builder, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	fmt.Fprintf(b, " %s%s=%v", h.group, a.Key, a.Value)
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
