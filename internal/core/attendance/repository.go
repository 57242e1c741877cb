package attendance

import (
	"context"
	"time"
)

// Repository は勤怠記録の永続化の抽象です。
// (EmployeeID, Date) の重複は ErrAttendanceAlreadyExists として返します。
type Repository interface {
	Save(ctx context.Context, attendance *Attendance) error
	FindByID(ctx context.Context, id string) (*Attendance, error)
	FindByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*Attendance, error)
	ListByEmployee(ctx context.Context, filter ListFilter) ([]*Attendance, error)
}

// ListFilter は期間指定の一覧取得条件です。From / To は日付単位で両端を含みます。
type ListFilter struct {
	EmployeeID string
	From       time.Time
	To         time.Time
}
