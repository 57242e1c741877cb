package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	"github.com/Elzohary/unifiedcontract/internal/core/leave"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/jackc/pgx/v5"
)

const leaveColumns = `id, employee_id, type, start_date, end_date, total_days, reason, status, approver_id, approved_date, approver_comments, rejection_reason, cancelled_date, ` + auditColumns

// LeaveRepository は休暇申請を PostgreSQL に保存します。
type LeaveRepository struct {
	pool pgdb.Queryer
}

// NewLeaveRepository は LeaveRepository を生成します。
func NewLeaveRepository(pool pgdb.Queryer) *LeaveRepository {
	return &LeaveRepository{pool: pool}
}

var _ leave.Repository = (*LeaveRepository)(nil)

// Save は休暇申請を登録または更新します。
func (r *LeaveRepository) Save(ctx context.Context, l *leave.Leave) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		l.ID,
		l.EmployeeID,
		string(l.Type),
		dateOnly(l.StartDate),
		dateOnly(l.EndDate),
		l.TotalDays,
		l.Reason,
		string(l.Status),
		nullableString(l.ApproverID),
		nullableTimestamp(l.ApprovedDate),
		nullableString(l.ApproverComments),
		nullableString(l.RejectionReason),
		nullableTimestamp(l.CancelledDate),
	}, auditArgs(l.AuditInfo)...)

	_, err := exec.Exec(ctx, `
        INSERT INTO leaves (`+leaveColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
        ON CONFLICT (id) DO UPDATE
           SET type = EXCLUDED.type,
               start_date = EXCLUDED.start_date,
               end_date = EXCLUDED.end_date,
               total_days = EXCLUDED.total_days,
               reason = EXCLUDED.reason,
               status = EXCLUDED.status,
               approver_id = EXCLUDED.approver_id,
               approved_date = EXCLUDED.approved_date,
               approver_comments = EXCLUDED.approver_comments,
               rejection_reason = EXCLUDED.rejection_reason,
               cancelled_date = EXCLUDED.cancelled_date,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...)
	if err != nil {
		return translateLeavePgError(err)
	}
	return nil
}

// FindByID は ID で休暇申請を取得します。
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*leave.Leave, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+leaveColumns+`
          FROM leaves
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanLeave(row)
	if err != nil {
		return nil, translateLeavePgError(err)
	}
	return found, nil
}

// ListByEmployee は社員の休暇申請を開始日の新しい順に返します。
func (r *LeaveRepository) ListByEmployee(ctx context.Context, filter leave.ListFilter) ([]*leave.Leave, error) {
	args := []any{filter.EmployeeID}
	where := `employee_id = $1 AND deleted_at IS NULL`
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where += ` AND status = ` + placeholder(len(args))
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+leaveColumns+`
          FROM leaves
         WHERE `+where+`
         ORDER BY start_date DESC, id DESC
    `, args...)
	if err != nil {
		return nil, translateLeavePgError(err)
	}
	defer rows.Close()

	var leaves []*leave.Leave
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, translateLeavePgError(err)
		}
		leaves = append(leaves, l)
	}
	if err := rows.Err(); err != nil {
		return nil, translateLeavePgError(err)
	}
	return leaves, nil
}

func scanLeave(row pgx.Row) (*leave.Leave, error) {
	var (
		l                leave.Leave
		leaveType        string
		status           string
		approverID       sql.NullString
		approvedDate     sql.NullTime
		approverComments sql.NullString
		rejectionReason  sql.NullString
		cancelledDate    sql.NullTime
		audit            auditRow
	)

	dest := append([]any{
		&l.ID, &l.EmployeeID, &leaveType, &l.StartDate, &l.EndDate, &l.TotalDays, &l.Reason, &status,
		&approverID, &approvedDate, &approverComments, &rejectionReason, &cancelledDate,
	}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, leave.ErrLeaveNotFound
		}
		return nil, err
	}

	l.Type = leave.Type(leaveType)
	l.Status = leave.Status(status)
	l.StartDate = dateOnly(l.StartDate.UTC())
	l.EndDate = dateOnly(l.EndDate.UTC())
	l.ApproverID = stringPtr(approverID)
	l.ApprovedDate = timestampPtr(approvedDate)
	l.ApproverComments = stringPtr(approverComments)
	l.RejectionReason = stringPtr(rejectionReason)
	l.CancelledDate = timestampPtr(cancelledDate)
	l.AuditInfo = audit.info()
	return &l, nil
}

func translateLeavePgError(err error) error {
	code, constraint, ok := pgErrorCode(err)
	if ok && code == foreignKeyViolationCode && constraint == "leaves_employee_id_fkey" {
		return employee.ErrEmployeeNotFound
	}
	return err
}
