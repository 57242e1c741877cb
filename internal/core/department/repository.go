package department

import "context"

// Repository は部署の永続化を行うインターフェースです。
type Repository interface {
	Save(ctx context.Context, department *Department) error
	FindByID(ctx context.Context, id string) (*Department, error)
	FindByCode(ctx context.Context, code string) (*Department, error)
	// ParentOf は親部署 ID を返します。ルート部署なら nil です。
	ParentOf(ctx context.Context, id string) (*string, error)
	List(ctx context.Context, filter ListFilter) ([]*Department, string, error)
}

// ListFilter は一覧取得時の検索条件を表します。
type ListFilter struct {
	Limit    int
	Offset   int
	IsActive *bool
	ParentID *string
}
