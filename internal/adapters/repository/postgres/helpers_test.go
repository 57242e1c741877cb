package postgres

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		mock.Close()
	})
	return mock
}

func columns(list string) []string {
	parts := strings.Split(list, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func auditValues(at time.Time) []any {
	return []any{at, "hr-admin", at, "hr-admin", nil, nil}
}

func testAudit(at time.Time) shared.AuditInfo {
	return shared.AuditInfo{CreatedAt: at, CreatedBy: "hr-admin", UpdatedAt: at, UpdatedBy: "hr-admin"}
}

func TestPgErrorCode(t *testing.T) {
	t.Parallel()

	code, constraint, ok := pgErrorCode(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "x_key"})
	if !ok || code != uniqueViolationCode || constraint != "x_key" {
		t.Fatalf("unexpected result: %s %s %t", code, constraint, ok)
	}

	if _, _, ok := pgErrorCode(errors.New("random")); ok {
		t.Fatalf("expected non pg error")
	}
}

func TestDateOnly(t *testing.T) {
	t.Parallel()

	jst := time.FixedZone("JST", 9*60*60)
	got := dateOnly(time.Date(2025, 4, 1, 23, 30, 0, 0, jst))
	want := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if nullableDate(nil) != nil {
		t.Fatalf("expected nil")
	}
}
