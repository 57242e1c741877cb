package postgres

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
)

const auditColumns = `created_at, created_by, updated_at, updated_by, deleted_at, deleted_by`

// auditRow は監査列の読み取り先です。
type auditRow struct {
	createdAt time.Time
	createdBy string
	updatedAt time.Time
	updatedBy string
	deletedAt sql.NullTime
	deletedBy sql.NullString
}

func (a *auditRow) dest() []any {
	return []any{&a.createdAt, &a.createdBy, &a.updatedAt, &a.updatedBy, &a.deletedAt, &a.deletedBy}
}

func (a *auditRow) info() shared.AuditInfo {
	info := shared.AuditInfo{
		CreatedAt: a.createdAt,
		CreatedBy: a.createdBy,
		UpdatedAt: a.updatedAt,
		UpdatedBy: a.updatedBy,
	}
	if a.deletedAt.Valid {
		t := a.deletedAt.Time
		info.DeletedAt = &t
	}
	info.DeletedBy = stringPtr(a.deletedBy)
	return info
}

func auditArgs(a shared.AuditInfo) []any {
	return []any{a.CreatedAt, a.CreatedBy, a.UpdatedAt, a.UpdatedBy, nullableTimestamp(a.DeletedAt), nullableString(a.DeletedBy)}
}

// pgErrorCode は PostgreSQL のエラーコードと制約名を返します。
func pgErrorCode(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

// nullableDate は DATE 列向けに日付部分だけを UTC で渡します。
func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return dateOnly(*value)
}

func nullableTimestamp(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func datePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	d := dateOnly(value.Time.UTC())
	return &d
}

func timestampPtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func floatPtr(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	f := value.Float64
	return &f
}
