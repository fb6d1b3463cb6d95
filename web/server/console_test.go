package server

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestWebLogger_BasicLogging(t *testing.T) {
	// Create a channel to receive console messages
	messageChan := make(chan ConsoleMessage, 10)
	logger := NewWebLogger("test-render-123", messageChan, nil)

	logger.Info("Test log message")

	select {
	case msg := <-messageChan:
		expected := "Test log message render=test-render-123"
		if msg.Message != expected {
			t.Errorf("Expected message '%s', got '%s'", expected, msg.Message)
		}
		if msg.Level != "info" {
			t.Errorf("Expected level 'info', got '%s'", msg.Level)
		}
		if time.Since(msg.Timestamp) > time.Second {
			t.Errorf("Timestamp seems too old: %v", msg.Timestamp)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Timeout waiting for console message")
	}
}

func TestWebLogger_Levels(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 10)
	logger := NewWebLogger("test-render-456", messageChan, nil)

	logger.Debug("hidden")
	logger.Info("one")
	logger.Warn("two")
	logger.Error("three")

	expected := []string{"info", "warning", "error"}
	for i, level := range expected {
		select {
		case msg := <-messageChan:
			if msg.Level != level {
				t.Errorf("Message %d: expected level '%s', got '%s'", i, level, msg.Level)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Timeout waiting for message %d", i+1)
		}
	}
	if len(messageChan) != 0 {
		t.Errorf("Expected debug messages to be dropped, %d left", len(messageChan))
	}
}

func TestWebLogger_ChannelFull(t *testing.T) {
	// Create a small channel that will fill up
	messageChan := make(chan ConsoleMessage, 1)
	logger := NewWebLogger("test-render-789", messageChan, nil)

	logger.Info("Message 1")
	// These must not block even though the channel is full
	logger.Info("Message 2")
	logger.Info("Message 3")

	msg := <-messageChan
	if !strings.HasPrefix(msg.Message, "Message 1") {
		t.Errorf("Expected the first message to be kept, got '%s'", msg.Message)
	}
}

func TestWebLogger_NilChannel(t *testing.T) {
	logger := NewWebLogger("test-render-nil", nil, nil)

	// This should not panic
	logger.Info("Test message with nil channel")
}

func TestConsoleHandler_Attributes(t *testing.T) {
	messageChan := make(chan ConsoleMessage, 10)
	logger := slog.New(NewConsoleHandler(messageChan, slog.LevelDebug, nil))

	logger.With("session", "abc").WithGroup("pass").Debug("dispatched", "name", "spatialReuse", "tiles", 12)

	msg := <-messageChan
	expected := "dispatched session=abc pass.name=spatialReuse pass.tiles=12"
	if msg.Message != expected {
		t.Errorf("Expected formatted message '%s', got '%s'", expected, msg.Message)
	}
	if msg.Level != "debug" {
		t.Errorf("Expected level 'debug', got '%s'", msg.Level)
	}
}

func TestConsoleHandler_ForwardsToNext(t *testing.T) {
	var buf bytes.Buffer
	next := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	messageChan := make(chan ConsoleMessage, 10)
	h := NewConsoleHandler(messageChan, slog.LevelInfo, next)
	logger := slog.New(h)

	logger.Info("console only")
	logger.Warn("both", "frame", 3)

	if len(messageChan) != 2 {
		t.Errorf("Expected 2 console messages, got %d", len(messageChan))
	}
	out := buf.String()
	if strings.Contains(out, "console only") {
		t.Errorf("Expected info to be filtered by the next handler, got %q", out)
	}
	if !strings.Contains(out, "msg=both") || !strings.Contains(out, "frame=3") {
		t.Errorf("Expected the warning in the next handler, got %q", out)
	}

	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug to be disabled in both handlers")
	}
}
