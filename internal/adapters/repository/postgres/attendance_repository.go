package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/attendance"
	"github.com/Elzohary/unifiedcontract/internal/core/employee"
	pgdb "github.com/Elzohary/unifiedcontract/internal/platform/db/postgres"
	"github.com/jackc/pgx/v5"
)

const attendanceColumns = `id, employee_id, date, check_in, check_out, check_in_location, check_out_location, is_absent, is_half_day, is_on_leave, leave_id, late_minutes, early_departure_minutes, working_seconds, overtime_seconds, notes, ` + auditColumns

// AttendanceRepository は勤怠記録を PostgreSQL に保存します。
type AttendanceRepository struct {
	pool pgdb.Queryer
}

// NewAttendanceRepository は AttendanceRepository を生成します。
func NewAttendanceRepository(pool pgdb.Queryer) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

// Save は勤怠記録を登録または更新します。
func (r *AttendanceRepository) Save(ctx context.Context, a *attendance.Attendance) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	args := append([]any{
		a.ID,
		a.EmployeeID,
		dateOnly(a.Date),
		nullableTimestamp(a.CheckIn),
		nullableTimestamp(a.CheckOut),
		nullableString(a.CheckInLocation),
		nullableString(a.CheckOutLocation),
		a.IsAbsent,
		a.IsHalfDay,
		a.IsOnLeave,
		nullableString(a.LeaveID),
		a.LateMinutes,
		a.EarlyDepartureMinutes,
		int64(a.WorkingDuration / time.Second),
		int64(a.Overtime / time.Second),
		nullableString(a.Notes),
	}, auditArgs(a.AuditInfo)...)

	_, err := exec.Exec(ctx, `
        INSERT INTO attendances (`+attendanceColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
        ON CONFLICT (id) DO UPDATE
           SET check_in = EXCLUDED.check_in,
               check_out = EXCLUDED.check_out,
               check_in_location = EXCLUDED.check_in_location,
               check_out_location = EXCLUDED.check_out_location,
               is_absent = EXCLUDED.is_absent,
               is_half_day = EXCLUDED.is_half_day,
               is_on_leave = EXCLUDED.is_on_leave,
               leave_id = EXCLUDED.leave_id,
               late_minutes = EXCLUDED.late_minutes,
               early_departure_minutes = EXCLUDED.early_departure_minutes,
               working_seconds = EXCLUDED.working_seconds,
               overtime_seconds = EXCLUDED.overtime_seconds,
               notes = EXCLUDED.notes,
               updated_at = EXCLUDED.updated_at,
               updated_by = EXCLUDED.updated_by,
               deleted_at = EXCLUDED.deleted_at,
               deleted_by = EXCLUDED.deleted_by
    `, args...)
	if err != nil {
		return translateAttendancePgError(err)
	}
	return nil
}

// FindByID は ID で勤怠記録を取得します。
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*attendance.Attendance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendances
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanAttendance(row)
	if err != nil {
		return nil, translateAttendancePgError(err)
	}
	return found, nil
}

// FindByEmployeeAndDate は社員と日付で勤怠記録を取得します。
func (r *AttendanceRepository) FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Attendance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendances
         WHERE employee_id = $1 AND date = $2
         LIMIT 1
    `, employeeID, dateOnly(date))

	found, err := scanAttendance(row)
	if err != nil {
		return nil, translateAttendancePgError(err)
	}
	return found, nil
}

// ListByEmployee は期間内の勤怠記録を日付順に返します。
func (r *AttendanceRepository) ListByEmployee(ctx context.Context, filter attendance.ListFilter) ([]*attendance.Attendance, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+attendanceColumns+`
          FROM attendances
         WHERE employee_id = $1 AND date BETWEEN $2 AND $3 AND deleted_at IS NULL
         ORDER BY date
    `, filter.EmployeeID, dateOnly(filter.From), dateOnly(filter.To))
	if err != nil {
		return nil, translateAttendancePgError(err)
	}
	defer rows.Close()

	var records []*attendance.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, translateAttendancePgError(err)
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translateAttendancePgError(err)
	}
	return records, nil
}

func scanAttendance(row pgx.Row) (*attendance.Attendance, error) {
	var (
		a                attendance.Attendance
		checkIn          sql.NullTime
		checkOut         sql.NullTime
		checkInLocation  sql.NullString
		checkOutLocation sql.NullString
		leaveID          sql.NullString
		workingSeconds   int64
		overtimeSeconds  int64
		notes            sql.NullString
		audit            auditRow
	)

	dest := append([]any{
		&a.ID, &a.EmployeeID, &a.Date, &checkIn, &checkOut, &checkInLocation, &checkOutLocation,
		&a.IsAbsent, &a.IsHalfDay, &a.IsOnLeave, &leaveID, &a.LateMinutes, &a.EarlyDepartureMinutes,
		&workingSeconds, &overtimeSeconds, &notes,
	}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attendance.ErrAttendanceNotFound
		}
		return nil, err
	}

	a.Date = dateOnly(a.Date.UTC())
	a.CheckIn = timestampPtr(checkIn)
	a.CheckOut = timestampPtr(checkOut)
	a.CheckInLocation = stringPtr(checkInLocation)
	a.CheckOutLocation = stringPtr(checkOutLocation)
	a.LeaveID = stringPtr(leaveID)
	a.WorkingDuration = time.Duration(workingSeconds) * time.Second
	a.Overtime = time.Duration(overtimeSeconds) * time.Second
	a.Notes = stringPtr(notes)
	a.AuditInfo = audit.info()
	return &a, nil
}

func translateAttendancePgError(err error) error {
	code, constraint, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch code {
	case uniqueViolationCode:
		if constraint == "attendances_employee_date_key" {
			return attendance.ErrAttendanceAlreadyExists
		}
	case foreignKeyViolationCode:
		if constraint == "attendances_employee_id_fkey" {
			return employee.ErrEmployeeNotFound
		}
	}
	return err
}
