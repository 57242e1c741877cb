package employee

import "context"

// Repository は社員永続化の抽象です。スキルは社員と一緒に保存されます。
type Repository interface {
	Save(ctx context.Context, employee *Employee) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	FindByNumber(ctx context.Context, employeeNumber string) (*Employee, error)
	// ManagerOf は直属の上長 ID を返します。上長がいなければ nil です。
	ManagerOf(ctx context.Context, id string) (*string, error)
	List(ctx context.Context, filter ListFilter) ([]*Employee, string, error)
}

// ListFilter は一覧取得用フィルタです。
type ListFilter struct {
	DepartmentID *string
	ManagerID    *string
	Status       *Status
	Limit        int
	Offset       int
}
