package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/department"
	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func employeeRow(id, number string, managerID any, at time.Time) []any {
	hire := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	return append([]any{
		id, number, "Taro", "Yamada", number + "@example.com", nil, "Engineer",
		hire, nil, string(employee.StatusActive), "dep-1", managerID, 30, 0,
	}, auditValues(at)...)
}

func TestEmployeeRepository_Save_ReplacesSkills(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewEmployeeRepository(mock)

	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	dep := "dep-1"
	e := &employee.Employee{
		ID:             "emp-1",
		EmployeeNumber: "e-001",
		FirstName:      "Taro",
		LastName:       "Yamada",
		Email:          "taro@example.com",
		HireDate:       time.Date(2024, 4, 1, 15, 0, 0, 0, time.UTC),
		Status:         employee.StatusActive,
		DepartmentID:   &dep,
		OffDays:        25,
		Skills: []employee.EmployeeSkill{
			{ID: "skill-1", Name: "Go", ProficiencyLevel: 4},
			{ID: "skill-2", Name: "SQL", ProficiencyLevel: 3},
		},
		AuditInfo: testAudit(now),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employees")).
		WithArgs("emp-1", "e-001", "Taro", "Yamada", "taro@example.com", nil, nil,
			time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), nil, "active", "dep-1", nil, 25, 0,
			now, "hr-admin", now, "hr-admin", nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employee_skills WHERE employee_id = $1")).
		WithArgs("emp-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employee_skills")).
		WithArgs("skill-1", "emp-1", "Go", 4, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employee_skills")).
		WithArgs("skill-2", "emp-1", "SQL", 3, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Save(context.Background(), e); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
}

func TestEmployeeRepository_Save_TranslatesConstraints(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewEmployeeRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO employees")).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "employees_email_key"})

	err := repo.Save(context.Background(), &employee.Employee{ID: "emp-1"})
	if !errors.Is(err, employee.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestEmployeeRepository_FindByID_LoadsSkills(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewEmployeeRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM employees") + ".*" + regexp.QuoteMeta("WHERE id = $1")).
		WithArgs("emp-1").
		WillReturnRows(pgxmock.NewRows(columns(employeeColumns)).AddRow(employeeRow("emp-1", "e-001", "emp-boss", now)...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM employee_skills")).
		WithArgs([]string{"emp-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"employee_id", "id", "name", "proficiency_level"}).
			AddRow("emp-1", "skill-1", "Go", 4))

	e, err := repo.FindByID(context.Background(), "emp-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if e.DirectManagerID == nil || *e.DirectManagerID != "emp-boss" {
		t.Fatalf("expected manager emp-boss, got %+v", e.DirectManagerID)
	}
	if e.JobTitle == nil || *e.JobTitle != "Engineer" || e.Phone != nil {
		t.Fatalf("unexpected optional fields: %+v %+v", e.JobTitle, e.Phone)
	}
	if len(e.Skills) != 1 || e.Skills[0].Name != "Go" || e.Skills[0].ProficiencyLevel != 4 {
		t.Fatalf("unexpected skills: %+v", e.Skills)
	}
}

func TestEmployeeRepository_FindByNumber_NotFound(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewEmployeeRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE employee_number = $1")).
		WithArgs("e-404").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.FindByNumber(context.Background(), "e-404"); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestEmployeeRepository_ManagerOf(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewEmployeeRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT direct_manager_id FROM employees WHERE id = $1")).
		WithArgs("emp-1").
		WillReturnRows(pgxmock.NewRows([]string{"direct_manager_id"}).AddRow("emp-boss"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT direct_manager_id FROM employees WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	manager, err := repo.ManagerOf(context.Background(), "emp-1")
	if err != nil || manager == nil || *manager != "emp-boss" {
		t.Fatalf("unexpected manager %v, err %v", manager, err)
	}
	if _, err := repo.ManagerOf(context.Background(), "missing"); !errors.Is(err, employee.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

func TestEmployeeRepository_List_WithFilters(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewEmployeeRepository(mock)
	status := employee.StatusActive
	dep := "dep-1"
	now := time.Now().UTC()

	query := regexp.QuoteMeta("WHERE deleted_at IS NULL AND department_id = $1 AND status = $2") +
		".*" + regexp.QuoteMeta("LIMIT $3 OFFSET $4")

	mock.ExpectQuery(query).
		WithArgs("dep-1", "active", 3, 0).
		WillReturnRows(pgxmock.NewRows(columns(employeeColumns)).
			AddRow(employeeRow("emp-1", "e-001", nil, now)...).
			AddRow(employeeRow("emp-2", "e-002", nil, now)...).
			AddRow(employeeRow("emp-3", "e-003", nil, now)...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM employee_skills")).
		WithArgs([]string{"emp-1", "emp-2"}).
		WillReturnRows(pgxmock.NewRows([]string{"employee_id", "id", "name", "proficiency_level"}).
			AddRow("emp-2", "skill-9", "Kafka", 2))

	employees, nextToken, err := repo.List(context.Background(), employee.ListFilter{
		DepartmentID: &dep,
		Status:       &status,
		Limit:        2,
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(employees) != 2 {
		t.Fatalf("expected 2 employees, got %d", len(employees))
	}
	if nextToken != "2" {
		t.Fatalf("expected next token '2', got %s", nextToken)
	}
	if len(employees[0].Skills) != 0 || len(employees[1].Skills) != 1 {
		t.Fatalf("skills attached to wrong employees: %+v", employees)
	}
}

func TestTranslateEmployeePgError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want error
	}{
		{&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "employees_employee_number_key"}, employee.ErrEmployeeNumberAlreadyExists},
		{&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "employee_skills_employee_name_key"}, employee.ErrDuplicateSkill},
		{&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "employees_department_id_fkey"}, department.ErrDepartmentNotFound},
		{&pgconn.PgError{Code: checkViolationCode, ConstraintName: "employees_off_days_check"}, employee.ErrInsufficientLeaveBalance},
	}
	for _, tt := range tests {
		if got := translateEmployeePgError(tt.err); !errors.Is(got, tt.want) {
			t.Fatalf("expected %v, got %v", tt.want, got)
		}
	}

	other := errors.New("other")
	if translateEmployeePgError(other) != other {
		t.Fatalf("unexpected translation for generic error")
	}
}
