package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/Elzohary/unifiedcontract/internal/core/department"
	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/jackc/pgx/v5"
)

const employeeColumns = `id, employee_number, first_name, last_name, email, phone, job_title, hire_date, terminated_at, status, department_id, direct_manager_id, off_days, sick_leave_counter, ` + auditColumns

// EmployeeRepository は PostgreSQL を利用した社員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

var _ employee.Repository = (*EmployeeRepository)(nil)

// Save は社員を登録または更新し、スキルを丸ごと置き換えます。
// 呼び出し側のトランザクション内で実行されることを前提とします。
func (r *EmployeeRepository) Save(ctx context.Context, e *employee.Employee) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		e.ID,
		e.EmployeeNumber,
		e.FirstName,
		e.LastName,
		e.Email,
		nullableString(e.Phone),
		nullableString(e.JobTitle),
		dateOnly(e.HireDate),
		nullableDate(e.TerminatedAt),
		string(e.Status),
		nullableString(e.DepartmentID),
		nullableString(e.DirectManagerID),
		e.OffDays,
		e.SickLeaveCounter,
	}, auditArgs(e.AuditInfo)...)

	if _, err := exec.Exec(ctx, `
        INSERT INTO employees (`+employeeColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
        ON CONFLICT (id) DO UPDATE
           SET employee_number = EXCLUDED.employee_number,
               first_name = EXCLUDED.first_name,
               last_name = EXCLUDED.last_name,
               email = EXCLUDED.email,
               phone = EXCLUDED.phone,
               job_title = EXCLUDED.job_title,
               hire_date = EXCLUDED.hire_date,
               terminated_at = EXCLUDED.terminated_at,
               status = EXCLUDED.status,
               department_id = EXCLUDED.department_id,
               direct_manager_id = EXCLUDED.direct_manager_id,
               off_days = EXCLUDED.off_days,
               sick_leave_counter = EXCLUDED.sick_leave_counter,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...); err != nil {
		return translateEmployeePgError(err)
	}

	if _, err := exec.Exec(ctx, `DELETE FROM employee_skills WHERE employee_id = $1`, e.ID); err != nil {
		return translateEmployeePgError(err)
	}
	for i, skill := range e.Skills {
		if _, err := exec.Exec(ctx, `
            INSERT INTO employee_skills (id, employee_id, name, proficiency_level, position)
            VALUES ($1, $2, $3, $4, $5)
        `, skill.ID, e.ID, skill.Name, skill.ProficiencyLevel, i); err != nil {
			return translateEmployeePgError(err)
		}
	}
	return nil
}

// FindByID は ID で社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByNumber は社員番号で社員を取得します。
func (r *EmployeeRepository) FindByNumber(ctx context.Context, employeeNumber string) (*employee.Employee, error) {
	return r.findOne(ctx, `WHERE employee_number = $1`, employeeNumber)
}

func (r *EmployeeRepository) findOne(ctx context.Context, where string, arg any) (*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+employeeColumns+`
          FROM employees
         `+where+`
         LIMIT 1
    `, arg)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	if err := r.loadSkills(ctx, found); err != nil {
		return nil, err
	}
	return found, nil
}

// ManagerOf は直属の上長 ID を返します。
func (r *EmployeeRepository) ManagerOf(ctx context.Context, id string) (*string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var manager sql.NullString
	err := exec.QueryRow(ctx, `SELECT direct_manager_id FROM employees WHERE id = $1`, id).Scan(&manager)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return stringPtr(manager), nil
}

// List は社員の一覧を取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListFilter) ([]*employee.Employee, string, error) {
	if filter.Limit <= 0 {
		return nil, "", employee.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", employee.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 5)
	conditions := []string{"deleted_at IS NULL"}

	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		conditions = append(conditions, "department_id = "+placeholder(len(args)))
	}
	if filter.ManagerID != nil {
		args = append(args, *filter.ManagerID)
		conditions = append(conditions, "direct_manager_id = "+placeholder(len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, "status = "+placeholder(len(args)))
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := placeholder(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := placeholder(len(args))

	query := `
        SELECT ` + employeeColumns + `
          FROM employees
         WHERE ` + strings.Join(conditions, " AND ") + `
         ORDER BY created_at DESC, id DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0, filter.Limit)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, "", translateEmployeePgError(err)
		}
		employees = append(employees, emp)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateEmployeePgError(err)
	}

	var nextToken string
	if len(employees) == limitWithBuffer {
		employees = employees[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	if err := r.loadSkills(ctx, employees...); err != nil {
		return nil, "", err
	}
	return employees, nextToken, nil
}

func (r *EmployeeRepository) loadSkills(ctx context.Context, employees ...*employee.Employee) error {
	if len(employees) == 0 {
		return nil
	}

	byID := make(map[string]*employee.Employee, len(employees))
	ids := make([]string, 0, len(employees))
	for _, e := range employees {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT employee_id, id, name, proficiency_level
          FROM employee_skills
         WHERE employee_id = ANY($1)
         ORDER BY employee_id, position
    `, ids)
	if err != nil {
		return translateEmployeePgError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			employeeID string
			skill      employee.EmployeeSkill
		)
		if err := rows.Scan(&employeeID, &skill.ID, &skill.Name, &skill.ProficiencyLevel); err != nil {
			return translateEmployeePgError(err)
		}
		if owner, ok := byID[employeeID]; ok {
			owner.Skills = append(owner.Skills, skill)
		}
	}
	return rows.Err()
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e            employee.Employee
		phone        sql.NullString
		jobTitle     sql.NullString
		terminatedAt sql.NullTime
		status       string
		departmentID sql.NullString
		managerID    sql.NullString
		audit        auditRow
	)

	dest := append([]any{
		&e.ID,
		&e.EmployeeNumber,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&phone,
		&jobTitle,
		&e.HireDate,
		&terminatedAt,
		&status,
		&departmentID,
		&managerID,
		&e.OffDays,
		&e.SickLeaveCounter,
	}, audit.dest()...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.HireDate = dateOnly(e.HireDate.UTC())
	e.Phone = stringPtr(phone)
	e.JobTitle = stringPtr(jobTitle)
	e.TerminatedAt = datePtr(terminatedAt)
	e.Status = employee.Status(status)
	e.DepartmentID = stringPtr(departmentID)
	e.DirectManagerID = stringPtr(managerID)
	e.AuditInfo = audit.info()
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	code, constraint, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch code {
	case uniqueViolationCode:
		switch constraint {
		case "employees_employee_number_key":
			return employee.ErrEmployeeNumberAlreadyExists
		case "employees_email_key":
			return employee.ErrEmailAlreadyExists
		case "employee_skills_employee_name_key":
			return employee.ErrDuplicateSkill
		}
	case foreignKeyViolationCode:
		switch constraint {
		case "employees_direct_manager_id_fkey":
			return employee.ErrEmployeeNotFound
		case "employees_department_id_fkey":
			return department.ErrDepartmentNotFound
		}
	case checkViolationCode:
		if constraint == "employees_off_days_check" {
			return employee.ErrInsufficientLeaveBalance
		}
	}
	return err
}
