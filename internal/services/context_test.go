package services_test

import (
	"context"
	"testing"

	"mashup/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "trimming")
	ctx = services.WithRequestID(ctx, "req-123")

	if stage, ok := services.StageFromContext(ctx); !ok || stage != "trimming" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id value")
	}
}

func TestOrdinalContext(t *testing.T) {
	ctx := services.WithOrdinal(context.Background(), 0)
	if ordinal, ok := services.OrdinalFromContext(ctx); !ok || ordinal != 0 {
		t.Fatalf("unexpected ordinal: %v %v", ordinal, ok)
	}
	if _, ok := services.OrdinalFromContext(services.WithOrdinal(context.Background(), -1)); ok {
		t.Fatal("negative ordinal should not be stored")
	}
}
