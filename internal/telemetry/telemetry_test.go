package telemetry

import (
	"context"
	"testing"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	// The endpoint comes from the caller's config, not the environment.
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	shutdown := Setup("waitline", "")
	if shutdown == nil {
		t.Fatal("shutdown hook is nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}
