package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/Elzohary/unifiedcontract/internal/core/department"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/jackc/pgx/v5"
)

const departmentColumns = `id, name, code, description, parent_department_id, manager_id, is_active, ` + auditColumns

// DepartmentRepository は PostgreSQL を利用した部署永続化の実装です。
type DepartmentRepository struct {
	pool pgdb.Queryer
}

// NewDepartmentRepository は DepartmentRepository を生成します。
func NewDepartmentRepository(pool pgdb.Queryer) *DepartmentRepository {
	return &DepartmentRepository{pool: pool}
}

var _ department.Repository = (*DepartmentRepository)(nil)

// Save は部署を登録または更新します。
func (r *DepartmentRepository) Save(ctx context.Context, d *department.Department) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		d.ID,
		d.Name,
		d.Code,
		nullableString(d.Description),
		nullableString(d.ParentDepartmentID),
		nullableString(d.ManagerID),
		d.IsActive,
	}, auditArgs(d.AuditInfo)...)

	_, err := exec.Exec(ctx, `
        INSERT INTO departments (`+departmentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (id) DO UPDATE
           SET name = EXCLUDED.name,
               code = EXCLUDED.code,
               description = EXCLUDED.description,
               parent_department_id = EXCLUDED.parent_department_id,
               manager_id = EXCLUDED.manager_id,
               is_active = EXCLUDED.is_active,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...)
	if err != nil {
		return translateDepartmentPgError(err)
	}
	return nil
}

// FindByID は ID で部署を取得します。
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*department.Department, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+departmentColumns+`
          FROM departments
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanDepartment(row)
	if err != nil {
		return nil, translateDepartmentPgError(err)
	}
	return found, nil
}

// FindByCode はコードで部署を取得します。
func (r *DepartmentRepository) FindByCode(ctx context.Context, code string) (*department.Department, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+departmentColumns+`
          FROM departments
         WHERE code = $1
         LIMIT 1
    `, code)

	found, err := scanDepartment(row)
	if err != nil {
		return nil, translateDepartmentPgError(err)
	}
	return found, nil
}

// ParentOf は親部署 ID を返します。
func (r *DepartmentRepository) ParentOf(ctx context.Context, id string) (*string, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var parent sql.NullString
	err := exec.QueryRow(ctx, `SELECT parent_department_id FROM departments WHERE id = $1`, id).Scan(&parent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, department.ErrDepartmentNotFound
		}
		return nil, err
	}
	return stringPtr(parent), nil
}

// List は部署の一覧を取得します。
func (r *DepartmentRepository) List(ctx context.Context, filter department.ListFilter) ([]*department.Department, string, error) {
	if filter.Limit <= 0 {
		return nil, "", department.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", department.ErrInvalidPageToken
	}

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 4)
	conditions := []string{"deleted_at IS NULL"}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, "is_active = "+placeholder(len(args)))
	}
	if filter.ParentID != nil {
		args = append(args, *filter.ParentID)
		conditions = append(conditions, "parent_department_id = "+placeholder(len(args)))
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := placeholder(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := placeholder(len(args))

	query := `
        SELECT ` + departmentColumns + `
          FROM departments
         WHERE ` + strings.Join(conditions, " AND ") + `
         ORDER BY created_at DESC, id DESC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateDepartmentPgError(err)
	}
	defer rows.Close()

	var departments []*department.Department
	for rows.Next() {
		found, err := scanDepartment(rows)
		if err != nil {
			return nil, "", translateDepartmentPgError(err)
		}
		departments = append(departments, found)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateDepartmentPgError(err)
	}

	var nextToken string
	if len(departments) > filter.Limit {
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
		departments = departments[:filter.Limit]
	}

	return departments, nextToken, nil
}

func scanDepartment(row pgx.Row) (*department.Department, error) {
	var (
		d           department.Department
		description sql.NullString
		parentID    sql.NullString
		managerID   sql.NullString
		audit       auditRow
	)

	dest := append([]any{&d.ID, &d.Name, &d.Code, &description, &parentID, &managerID, &d.IsActive}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, department.ErrDepartmentNotFound
		}
		return nil, err
	}

	d.Description = stringPtr(description)
	d.ParentDepartmentID = stringPtr(parentID)
	d.ManagerID = stringPtr(managerID)
	d.AuditInfo = audit.info()
	return &d, nil
}

func translateDepartmentPgError(err error) error {
	code, constraint, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch code {
	case uniqueViolationCode:
		if constraint == "departments_code_key" {
			return department.ErrCodeAlreadyExists
		}
	case foreignKeyViolationCode:
		if constraint == "departments_parent_department_id_fkey" {
			return department.ErrDepartmentNotFound
		}
	case checkViolationCode:
		if constraint == "departments_parent_not_self" {
			return department.ErrHierarchyCycle
		}
	}
	return err
}
