package tracing_test

import (
	"context"
	"testing"

	"github.com/banshee-data/sensor-replay/internal/tracing"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	t.Setenv(tracing.EnvEndpoint, "")
	t.Setenv(tracing.EnvEnabled, "")

	shutdown, err := tracing.Setup(context.Background(), "mono-vi-replay")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenExplicitlyDisabled(t *testing.T) {
	t.Setenv(tracing.EnvEndpoint, "http://localhost:4318")
	t.Setenv(tracing.EnvEnabled, "FALSE")

	shutdown, err := tracing.Setup(context.Background(), "mono-vi-replay")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// non-routable, nothing is exported
	t.Setenv(tracing.EnvEndpoint, "http://192.0.2.1:4318")
	t.Setenv(tracing.EnvEnabled, "")

	shutdown, err := tracing.Setup(context.Background(), "mono-vi-replay")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
