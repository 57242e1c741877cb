package training

import "context"

// Repository は研修の永続化の抽象です。
type Repository interface {
	Save(ctx context.Context, training *Training) error
	FindByID(ctx context.Context, id string) (*Training, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Training, error)
}
