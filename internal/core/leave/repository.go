package leave

import "context"

// Repository は休暇申請の永続化の抽象です。
type Repository interface {
	Save(ctx context.Context, leave *Leave) error
	FindByID(ctx context.Context, id string) (*Leave, error)
	ListByEmployee(ctx context.Context, filter ListFilter) ([]*Leave, error)
}

// ListFilter は一覧取得条件です。Status が nil の場合は全件です。
type ListFilter struct {
	EmployeeID string
	Status     *Status
}

// Balance は承認・取消に連動して社員の休暇残日数と病欠回数を増減させます。
// 呼び出しは休暇の保存と同じトランザクション内で行われます。
type Balance interface {
	DeductOffDays(ctx context.Context, employeeID string, days int) error
	RestoreOffDays(ctx context.Context, employeeID string, days int) error
	RecordSickLeave(ctx context.Context, employeeID string) error
	RevertSickLeave(ctx context.Context, employeeID string) error
}
