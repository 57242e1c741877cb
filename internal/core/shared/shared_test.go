package shared

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestActorFromContext(t *testing.T) {
	t.Parallel()

	if got := ActorFromContext(context.Background()); got != SystemActor {
		t.Fatalf("expected %q, got %q", SystemActor, got)
	}

	ctx := WithActor(context.Background(), "  hr-admin ")
	if got := ActorFromContext(ctx); got != "hr-admin" {
		t.Fatalf("expected hr-admin, got %q", got)
	}

	ctx = WithActor(context.Background(), "   ")
	if got := ActorFromContext(ctx); got != SystemActor {
		t.Fatalf("blank actor should fall back to system, got %q", got)
	}
}

func TestAuditInfo(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var audit AuditInfo
	audit.Stamp(created, "alice")
	if audit.CreatedBy != "alice" || !audit.CreatedAt.Equal(created) || !audit.UpdatedAt.Equal(created) {
		t.Fatalf("unexpected audit after stamp: %+v", audit)
	}

	updated := created.Add(time.Hour)
	audit.Touch(updated, "bob")
	if audit.CreatedBy != "alice" || audit.UpdatedBy != "bob" || !audit.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected audit after touch: %+v", audit)
	}

	if audit.IsDeleted() {
		t.Fatalf("expected not deleted")
	}
	audit.MarkDeleted(updated, "carol")
	if !audit.IsDeleted() || *audit.DeletedBy != "carol" {
		t.Fatalf("expected deleted by carol: %+v", audit)
	}
}

func TestNewID(t *testing.T) {
	t.Parallel()

	id := NewID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid, got %q: %v", id, err)
	}
	if id == NewID() {
		t.Fatalf("expected unique ids")
	}
}

func TestEqualHelpers(t *testing.T) {
	t.Parallel()

	a := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.In(time.FixedZone("JST", 9*60*60))
	if !EqualTime(&a, &b) {
		t.Fatalf("same instant in different zones should be equal")
	}
	if EqualTime(&a, nil) || !EqualTime(nil, nil) {
		t.Fatalf("nil handling mismatch")
	}

	x, y := "x", "y"
	if EqualString(&x, &y) || !EqualString(CloneString(&x), &x) {
		t.Fatalf("string comparison mismatch")
	}
}
