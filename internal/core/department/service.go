package department

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は部署に関するユースケースをまとめます。
type Service struct {
	repo      Repository
	clock     shared.Clock
	tx        shared.TransactionManager
	publisher event.Publisher
}

// NewService は Service を生成します。
func NewService(repo Repository, clock shared.Clock, tx shared.TransactionManager, publisher event.Publisher) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	if publisher == nil {
		publisher = event.Discard
	}
	return &Service{repo: repo, clock: clock, tx: tx, publisher: publisher}
}

// CreateDepartmentInput は部署作成時の入力です。
type CreateDepartmentInput struct {
	Name               string
	Code               string
	Description        *string
	ParentDepartmentID *string
	ManagerID          *string
}

// ListDepartmentsInput は一覧取得時の入力です。
type ListDepartmentsInput struct {
	PageSize  int
	PageToken string
	IsActive  *bool
	ParentID  *string
}

// ListDepartmentsResult は一覧取得結果を表します。
type ListDepartmentsResult struct {
	Departments   []*Department
	NextPageToken string
}

// CreateDepartment は新しい部署を作成します。
func (s *Service) CreateDepartment(ctx context.Context, in CreateDepartmentInput) (*Department, error) {
	buf := event.NewBuffer(s.clock.Now)
	d, err := New(Params{
		ID:                 shared.NewID(),
		Name:               in.Name,
		Code:               in.Code,
		Description:        in.Description,
		ParentDepartmentID: in.ParentDepartmentID,
		ManagerID:          in.ManagerID,
	}, buf)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureCodeNotExists(txCtx, d.Code); err != nil {
			return err
		}
		if d.ParentDepartmentID != nil {
			if _, err := s.repo.FindByID(txCtx, *d.ParentDepartmentID); err != nil {
				return err
			}
		}

		d.Stamp(s.clock.Now(), shared.ActorFromContext(ctx))
		if err := s.repo.Save(txCtx, d); err != nil {
			return err
		}
		return s.flush(txCtx, buf)
	}); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDepartment は部署情報を更新します。
func (s *Service) UpdateDepartment(ctx context.Context, id string, patch Patch) (*Department, error) {
	return s.mutate(ctx, id, func(txCtx context.Context, d *Department, sink event.Sink) error {
		previousCode := d.Code
		if _, err := d.UpdateDetails(patch, sink); err != nil {
			return err
		}
		if d.Code != previousCode {
			return s.ensureCodeNotExists(txCtx, d.Code)
		}
		return nil
	})
}

// AssignParent は親部署を設定します。親部署の存在と階層の循環を検証します。
func (s *Service) AssignParent(ctx context.Context, id, parentID string) (*Department, error) {
	return s.mutate(ctx, id, func(txCtx context.Context, d *Department, sink event.Sink) error {
		parent, err := d.validateReference("parent_department_id", parentID)
		if err != nil {
			return err
		}
		if _, err := s.repo.FindByID(txCtx, parent); err != nil {
			return err
		}
		if err := s.EnsureNoCycle(txCtx, d.ID, parent); err != nil {
			return err
		}
		return d.AssignParentDepartment(parent, sink)
	})
}

// RemoveParent は親部署を外します。
func (s *Service) RemoveParent(ctx context.Context, id string) (*Department, error) {
	return s.mutate(ctx, id, func(_ context.Context, d *Department, sink event.Sink) error {
		d.RemoveParentDepartment(sink)
		return nil
	})
}

// AssignManager は部署の責任者を設定します。
func (s *Service) AssignManager(ctx context.Context, id, managerID string) (*Department, error) {
	return s.mutate(ctx, id, func(_ context.Context, d *Department, sink event.Sink) error {
		return d.AssignManager(managerID, sink)
	})
}

// RemoveManager は部署の責任者を外します。
func (s *Service) RemoveManager(ctx context.Context, id string) (*Department, error) {
	return s.mutate(ctx, id, func(_ context.Context, d *Department, sink event.Sink) error {
		d.RemoveManager(sink)
		return nil
	})
}

// Deactivate は部署を無効にします。
func (s *Service) Deactivate(ctx context.Context, id string) (*Department, error) {
	return s.mutate(ctx, id, func(_ context.Context, d *Department, sink event.Sink) error {
		d.Deactivate(sink)
		return nil
	})
}

// Activate は部署を有効にします。
func (s *Service) Activate(ctx context.Context, id string) (*Department, error) {
	return s.mutate(ctx, id, func(_ context.Context, d *Department, sink event.Sink) error {
		d.Activate(sink)
		return nil
	})
}

// EnsureNoCycle は departmentID の親を parentID にしたとき階層が循環しないことを検証します。
// parentID から祖先をたどり departmentID に到達した場合 ErrHierarchyCycle を返します。
func (s *Service) EnsureNoCycle(ctx context.Context, departmentID, parentID string) error {
	cyclic, err := shared.ReachesAncestor(ctx, departmentID, parentID, s.repo.ParentOf)
	if err != nil {
		return fmt.Errorf("department: walk hierarchy: %w", err)
	}
	if cyclic {
		return ErrHierarchyCycle
	}
	return nil
}

// GetDepartment は ID で部署を取得します。
func (s *Service) GetDepartment(ctx context.Context, id string) (*Department, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityDepartment, err)
	}

	var department *Department
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		department = result
		return nil
	}); err != nil {
		return nil, err
	}
	return department, nil
}

// ListDepartments は部署の一覧を取得します。
func (s *Service) ListDepartments(ctx context.Context, in ListDepartmentsInput) (*ListDepartmentsResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var (
		departments []*Department
		nextToken   string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.List(txCtx, ListFilter{
			Limit:    limit,
			Offset:   offset,
			IsActive: in.IsActive,
			ParentID: in.ParentID,
		})
		if err != nil {
			return err
		}
		departments = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListDepartmentsResult{Departments: departments, NextPageToken: nextToken}, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(context.Context, *Department, event.Sink) error) (*Department, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityDepartment, err)
	}

	var updated *Department
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		d, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		buf := event.NewBuffer(s.clock.Now)
		if err := fn(txCtx, d, buf); err != nil {
			return err
		}

		if buf.Len() > 0 {
			d.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
			if err := s.repo.Save(txCtx, d); err != nil {
				return err
			}
			if err := s.flush(txCtx, buf); err != nil {
				return err
			}
		}
		updated = d
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) flush(ctx context.Context, buf *event.Buffer) error {
	if err := buf.Flush(ctx, s.publisher); err != nil {
		return fmt.Errorf("department: publish events: %w", err)
	}
	return nil
}

func (s *Service) ensureCodeNotExists(ctx context.Context, code string) error {
	department, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrDepartmentNotFound) {
		return err
	}
	if department != nil {
		return ErrCodeAlreadyExists
	}
	return nil
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
