package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"emprest/internal/config"
	"emprest/internal/log"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("verbose", log.ComponentApp, &buf)

	if !strings.Contains(buf.String(), "Invalid log level") {
		t.Errorf("expected a warning for an unknown level, got %q", buf.String())
	}

	buf.Reset()
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug record should be filtered at the fallback info level")
	}
	if !strings.Contains(buf.String(), "component=app") {
		t.Errorf("expected component attribute, got %q", buf.String())
	}
}

func TestSignalContext_Stop(t *testing.T) {
	logger := SetupLogger("error", log.ComponentApp, &bytes.Buffer{})
	ctx, stop := SignalContext(context.Background(), logger)

	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should be cancelled by stop")
	}
}

func TestSignalContext_Parent(t *testing.T) {
	logger := SetupLogger("error", log.ComponentApp, &bytes.Buffer{})
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SignalContext(parent, logger)
	defer stop()

	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context should follow its parent")
	}
}

func TestOpenBackend_Memory(t *testing.T) {
	logger := SetupLogger("error", log.ComponentApp, &bytes.Buffer{})
	cfg := config.Load()
	cfg.DataBackend = "memory"
	cfg.AMQPURL = ""

	res, err := OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		t.Fatalf("OpenBackend() error = %v", err)
	}
	defer res.Cleanup()

	if res.AMQP != nil {
		t.Error("AMQP client should be nil without a URL")
	}
	if err := res.Blobs.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
}
