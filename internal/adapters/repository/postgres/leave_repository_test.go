package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	"github.com/Elzohary/unifiedcontract/internal/core/leave"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func leaveRow(id string, status leave.Status, at time.Time) []any {
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	return append([]any{
		id, "emp-1", string(leave.TypeAnnual), start, start.AddDate(0, 0, 4), 5, "family trip", string(status),
		nil, nil, nil, nil, nil,
	}, auditValues(at)...)
}

func TestLeaveRepository_Save(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewLeaveRepository(mock)

	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	start := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	approver := "emp-boss"
	l := &leave.Leave{
		ID:           "leave-1",
		EmployeeID:   "emp-1",
		Type:         leave.TypeAnnual,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, 4),
		TotalDays:    5,
		Reason:       "family trip",
		Status:       leave.StatusApproved,
		ApproverID:   &approver,
		ApprovedDate: &now,
		AuditInfo:    testAudit(now),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leaves")).
		WithArgs("leave-1", "emp-1", "annual", start, start.AddDate(0, 0, 4), 5, "family trip", "approved",
			"emp-boss", now, nil, nil, nil, now, "hr-admin", now, "hr-admin", nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Save(context.Background(), l); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
}

func TestLeaveRepository_Save_UnknownEmployee(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewLeaveRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leaves")).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "leaves_employee_id_fkey"})

	if err := repo.Save(context.Background(), &leave.Leave{ID: "leave-1"}); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestLeaveRepository_FindByID(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewLeaveRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM leaves") + ".*" + regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("leave-1").
		WillReturnRows(pgxmock.NewRows(columns(leaveColumns)).AddRow(leaveRow("leave-1", leave.StatusPending, now)...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM leaves")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	l, err := repo.FindByID(context.Background(), "leave-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if l.Status != leave.StatusPending || l.TotalDays != 5 || l.ApproverID != nil {
		t.Fatalf("unexpected leave: %+v", l)
	}

	if _, err := repo.FindByID(context.Background(), "missing"); !errors.Is(err, leave.ErrLeaveNotFound) {
		t.Fatalf("expected ErrLeaveNotFound, got %v", err)
	}
}

func TestLeaveRepository_ListByEmployee_WithStatus(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewLeaveRepository(mock)
	now := time.Now().UTC()
	status := leave.StatusApproved

	mock.ExpectQuery(regexp.QuoteMeta("WHERE employee_id = $1 AND deleted_at IS NULL AND status = $2")).
		WithArgs("emp-1", "approved").
		WillReturnRows(pgxmock.NewRows(columns(leaveColumns)).AddRow(leaveRow("leave-1", leave.StatusApproved, now)...))

	leaves, err := repo.ListByEmployee(context.Background(), leave.ListFilter{EmployeeID: "emp-1", Status: &status})
	if err != nil {
		t.Fatalf("ListByEmployee returned error: %v", err)
	}
	if len(leaves) != 1 || leaves[0].Status != leave.StatusApproved {
		t.Fatalf("unexpected leaves: %+v", leaves)
	}
}
