package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Elzohary/unifiedcontract/internal/core/compensation"
	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/jackc/pgx/v5"
)

const (
	salaryColumns     = `id, employee_id, base_salary, currency, is_active, pay_frequency, notes, effective_date, end_date, ` + auditColumns
	adjustmentColumns = `id, salary_id, kind, type, amount, currency, is_active, description, is_taxable, is_mandatory, effective_date, end_date, ` + auditColumns

	kindAllowance = "allowance"
	kindDeduction = "deduction"
)

// SalaryRepository は給与集約を PostgreSQL に保存します。手当と控除は salary_adjustments に格納します。
type SalaryRepository struct {
	pool pgdb.Queryer
}

// NewSalaryRepository は SalaryRepository を生成します。
func NewSalaryRepository(pool pgdb.Queryer) *SalaryRepository {
	return &SalaryRepository{pool: pool}
}

var _ compensation.Repository = (*SalaryRepository)(nil)

// Save は給与を登録または更新し、手当と控除を置き換えます。
func (r *SalaryRepository) Save(ctx context.Context, s *compensation.Salary) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		s.ID,
		s.EmployeeID,
		s.BaseSalary,
		s.Currency,
		s.IsActive,
		string(s.PayFrequency),
		nullableString(s.Notes),
		dateOnly(s.EffectiveDate),
		nullableDate(s.EndDate),
	}, auditArgs(s.AuditInfo)...)

	if _, err := exec.Exec(ctx, `
        INSERT INTO salaries (`+salaryColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        ON CONFLICT (id) DO UPDATE
           SET base_salary = EXCLUDED.base_salary,
               currency = EXCLUDED.currency,
               is_active = EXCLUDED.is_active,
               pay_frequency = EXCLUDED.pay_frequency,
               notes = EXCLUDED.notes,
               effective_date = EXCLUDED.effective_date,
               end_date = EXCLUDED.end_date,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...); err != nil {
		return translateSalaryPgError(err)
	}

	if _, err := exec.Exec(ctx, `DELETE FROM salary_adjustments WHERE salary_id = $1`, s.ID); err != nil {
		return translateSalaryPgError(err)
	}

	position := 0
	for _, a := range s.Allowances {
		if err := insertAdjustment(ctx, exec, kindAllowance, a.Adjustment, a.IsTaxable, false, position); err != nil {
			return err
		}
		position++
	}
	for _, d := range s.Deductions {
		if err := insertAdjustment(ctx, exec, kindDeduction, d.Adjustment, false, d.IsMandatory, position); err != nil {
			return err
		}
		position++
	}
	return nil
}

func insertAdjustment(ctx context.Context, exec pgdb.Queryer, kind string, a compensation.Adjustment, taxable, mandatory bool, position int) error {
	args := append([]any{
		a.ID,
		a.SalaryID,
		kind,
		a.Type,
		a.Amount,
		a.Currency,
		a.IsActive,
		nullableString(a.Description),
		taxable,
		mandatory,
		dateOnly(a.EffectiveDate),
		nullableDate(a.EndDate),
	}, auditArgs(a.AuditInfo)...)
	args = append(args, position)

	if _, err := exec.Exec(ctx, `
        INSERT INTO salary_adjustments (`+adjustmentColumns+`, position)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
    `, args...); err != nil {
		return translateSalaryPgError(err)
	}
	return nil
}

// FindByID は ID で給与を取得します。
func (r *SalaryRepository) FindByID(ctx context.Context, id string) (*compensation.Salary, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+salaryColumns+`
          FROM salaries
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanSalary(row)
	if err != nil {
		return nil, translateSalaryPgError(err)
	}
	if err := r.loadAdjustments(ctx, found); err != nil {
		return nil, err
	}
	return found, nil
}

// ListByEmployee は社員の給与を発効日の昇順で返します。論理削除済みの給与も含みます。
func (r *SalaryRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*compensation.Salary, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+salaryColumns+`
          FROM salaries
         WHERE employee_id = $1
         ORDER BY effective_date, id
    `, employeeID)
	if err != nil {
		return nil, translateSalaryPgError(err)
	}
	defer rows.Close()

	var salaries []*compensation.Salary
	for rows.Next() {
		s, err := scanSalary(rows)
		if err != nil {
			return nil, translateSalaryPgError(err)
		}
		salaries = append(salaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, translateSalaryPgError(err)
	}

	if err := r.loadAdjustments(ctx, salaries...); err != nil {
		return nil, err
	}
	return salaries, nil
}

func (r *SalaryRepository) loadAdjustments(ctx context.Context, salaries ...*compensation.Salary) error {
	if len(salaries) == 0 {
		return nil
	}

	byID := make(map[string]*compensation.Salary, len(salaries))
	ids := make([]string, 0, len(salaries))
	for _, s := range salaries {
		s.Allowances = []*compensation.Allowance{}
		s.Deductions = []*compensation.Deduction{}
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+adjustmentColumns+`
          FROM salary_adjustments
         WHERE salary_id = ANY($1)
         ORDER BY salary_id, position
    `, ids)
	if err != nil {
		return translateSalaryPgError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a           compensation.Adjustment
			kind        string
			description sql.NullString
			taxable     bool
			mandatory   bool
			endDate     sql.NullTime
			audit       auditRow
		)
		dest := append([]any{
			&a.ID, &a.SalaryID, &kind, &a.Type, &a.Amount, &a.Currency, &a.IsActive,
			&description, &taxable, &mandatory, &a.EffectiveDate, &endDate,
		}, audit.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return translateSalaryPgError(err)
		}
		a.Description = stringPtr(description)
		a.EffectiveDate = dateOnly(a.EffectiveDate.UTC())
		a.EndDate = datePtr(endDate)
		a.AuditInfo = audit.info()

		owner, ok := byID[a.SalaryID]
		if !ok {
			continue
		}
		switch kind {
		case kindAllowance:
			owner.Allowances = append(owner.Allowances, &compensation.Allowance{Adjustment: a, IsTaxable: taxable})
		case kindDeduction:
			owner.Deductions = append(owner.Deductions, &compensation.Deduction{Adjustment: a, IsMandatory: mandatory})
		}
	}
	return rows.Err()
}

func scanSalary(row pgx.Row) (*compensation.Salary, error) {
	var (
		s         compensation.Salary
		frequency string
		notes     sql.NullString
		endDate   sql.NullTime
		audit     auditRow
	)

	dest := append([]any{
		&s.ID, &s.EmployeeID, &s.BaseSalary, &s.Currency, &s.IsActive, &frequency, &notes, &s.EffectiveDate, &endDate,
	}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, compensation.ErrSalaryNotFound
		}
		return nil, err
	}

	s.PayFrequency = compensation.PayFrequency(frequency)
	s.Notes = stringPtr(notes)
	s.EffectiveDate = dateOnly(s.EffectiveDate.UTC())
	s.EndDate = datePtr(endDate)
	s.AuditInfo = audit.info()
	return &s, nil
}

func translateSalaryPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return compensation.ErrSalaryNotFound
	}
	code, constraint, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch code {
	case uniqueViolationCode:
		if constraint == "salary_adjustments_pkey" {
			return compensation.ErrDuplicateAdjustment
		}
	case foreignKeyViolationCode:
		if constraint == "salaries_employee_id_fkey" {
			return employee.ErrEmployeeNotFound
		}
	}
	return err
}
