package compensation

import "context"

// Repository は給与集約の永続化の抽象です。手当・控除は給与と一緒に保存されます。
type Repository interface {
	Save(ctx context.Context, salary *Salary) error
	FindByID(ctx context.Context, id string) (*Salary, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Salary, error)
}
