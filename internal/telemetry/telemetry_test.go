package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")

	shutdown, err := Setup(path)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "content.Fetch")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "content.Fetch") {
		t.Errorf("trace file does not contain the span: %s", data)
	}
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup("")
	if err != nil {
		t.Fatalf("Setup(\"\") error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error = %v", err)
	}
}
