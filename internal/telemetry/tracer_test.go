// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProvider_Disabled(t *testing.T) {
	cfg := Config{
		Enabled:     false,
		ServiceName: "vodbridge-test",
		Protocol:    "grpc",
	}

	provider, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewProvider() failed: %v", err)
	}
	if provider.tp != nil {
		t.Error("expected noop provider (tp == nil)")
	}

	tracer := otel.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("expected noop span to be non-recording")
	}
	span.End()

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on noop provider failed: %v", err)
	}
}

func TestNewProvider_UnsupportedProtocol(t *testing.T) {
	cfg := Config{
		Enabled:     true,
		ServiceName: "vodbridge-test",
		Protocol:    "udp",
	}

	_, err := NewProvider(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected error for unsupported protocol")
	}
	want := "unsupported protocol: udp (supported: grpc, http)"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}
