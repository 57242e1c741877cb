package employee

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は社員に関するユースケースをまとめます。
// 休暇承認時の残日数連動のため leave.Balance も満たします。
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

// CreateEmployeeInput は社員作成時の入力です。
type CreateEmployeeInput struct {
	EmployeeNumber  string
	FirstName       string
	LastName        string
	Email           string
	Phone           *string
	JobTitle        *string
	HireDate        time.Time
	DepartmentID    *string
	DirectManagerID *string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	DepartmentID *string
	ManagerID    *string
	Status       *Status
	PageSize     int
	PageToken    string
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*Employee
	NextPageToken string
}

// CreateEmployee は新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	buf := event.NewBuffer(s.clock.Now)
	e, err := New(Params{
		ID:              shared.NewID(),
		EmployeeNumber:  in.EmployeeNumber,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		Phone:           in.Phone,
		JobTitle:        in.JobTitle,
		HireDate:        in.HireDate,
		DepartmentID:    in.DepartmentID,
		DirectManagerID: in.DirectManagerID,
	}, buf)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureNumberNotExists(txCtx, e.EmployeeNumber); err != nil {
			return err
		}
		if e.DirectManagerID != nil {
			if _, err := s.repo.FindByID(txCtx, *e.DirectManagerID); err != nil {
				return err
			}
		}

		e.Stamp(s.clock.Now(), shared.ActorFromContext(ctx))
		if err := s.repo.Save(txCtx, e); err != nil {
			return err
		}
		return s.flush(txCtx, buf)
	}); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEmployee は社員情報を部分更新します。
func (s *Service) UpdateEmployee(ctx context.Context, id string, patch Patch) (*Employee, error) {
	return s.mutate(ctx, id, func(_ context.Context, e *Employee, sink event.Sink) error {
		_, err := e.UpdateDetails(patch, sink)
		return err
	})
}

// AssignManager は直属の上長を設定します。上長の存在と指揮系統の循環を検証します。
func (s *Service) AssignManager(ctx context.Context, id, managerID string) (*Employee, error) {
	return s.mutate(ctx, id, func(txCtx context.Context, e *Employee, sink event.Sink) error {
		manager, err := e.validateManager(managerID)
		if err != nil {
			return err
		}
		if _, err := s.repo.FindByID(txCtx, manager); err != nil {
			return err
		}
		if err := s.EnsureNoManagementCycle(txCtx, e.ID, manager); err != nil {
			return err
		}
		return e.AssignManager(manager, sink)
	})
}

// RemoveManager は直属の上長を外します。
func (s *Service) RemoveManager(ctx context.Context, id string) (*Employee, error) {
	return s.mutate(ctx, id, func(_ context.Context, e *Employee, sink event.Sink) error {
		e.RemoveManager(sink)
		return nil
	})
}

// AssignDepartment は所属部署を設定します。部署の存在は永続化境界の参照整合性で保証されます。
func (s *Service) AssignDepartment(ctx context.Context, id, departmentID string) (*Employee, error) {
	return s.mutate(ctx, id, func(_ context.Context, e *Employee, sink event.Sink) error {
		return e.AssignDepartment(departmentID, sink)
	})
}

// RemoveDepartment は所属部署を外します。
func (s *Service) RemoveDepartment(ctx context.Context, id string) (*Employee, error) {
	return s.mutate(ctx, id, func(_ context.Context, e *Employee, sink event.Sink) error {
		e.RemoveDepartment(sink)
		return nil
	})
}

// AddSkill はスキルを追加します。
func (s *Service) AddSkill(ctx context.Context, id, name string, level int) (*Employee, error) {
	return s.mutate(ctx, id, func(_ context.Context, e *Employee, sink event.Sink) error {
		return e.AddSkill(shared.NewID(), name, level, sink)
	})
}

// UpdateSkillProficiency はスキルの習熟度を変更します。
func (s *Service) UpdateSkillProficiency(ctx context.Context, id, skillID string, level int) (*Employee, error) {
	return s.mutate(ctx, id, func(_ context.Context, e *Employee, sink event.Sink) error {
		return e.UpdateSkillProficiency(skillID, level, sink)
	})
}

// Terminate は社員を退職状態にします。
func (s *Service) Terminate(ctx context.Context, id string, date time.Time) (*Employee, error) {
	return s.mutate(ctx, id, func(_ context.Context, e *Employee, sink event.Sink) error {
		return e.Terminate(date, sink)
	})
}

// DeductOffDays は年次休暇の残日数を減らします。
func (s *Service) DeductOffDays(ctx context.Context, employeeID string, days int) error {
	_, err := s.mutate(ctx, employeeID, func(_ context.Context, e *Employee, sink event.Sink) error {
		return e.DeductOffDays(days, sink)
	})
	return err
}

// RestoreOffDays は年次休暇の残日数を戻します。
func (s *Service) RestoreOffDays(ctx context.Context, employeeID string, days int) error {
	_, err := s.mutate(ctx, employeeID, func(_ context.Context, e *Employee, sink event.Sink) error {
		return e.RestoreOffDays(days, sink)
	})
	return err
}

// RecordSickLeave は病欠回数を加算します。
func (s *Service) RecordSickLeave(ctx context.Context, employeeID string) error {
	_, err := s.mutate(ctx, employeeID, func(_ context.Context, e *Employee, sink event.Sink) error {
		e.RecordSickLeave(sink)
		return nil
	})
	return err
}

// RevertSickLeave は病欠回数を減算します。
func (s *Service) RevertSickLeave(ctx context.Context, employeeID string) error {
	_, err := s.mutate(ctx, employeeID, func(_ context.Context, e *Employee, sink event.Sink) error {
		return e.RevertSickLeave(sink)
	})
	return err
}

// EnsureNoManagementCycle は employeeID の上長を managerID にしたとき指揮系統が循環しないことを検証します。
func (s *Service) EnsureNoManagementCycle(ctx context.Context, employeeID, managerID string) error {
	cyclic, err := shared.ReachesAncestor(ctx, employeeID, managerID, s.repo.ManagerOf)
	if err != nil {
		return fmt.Errorf("employee: walk management chain: %w", err)
	}
	if cyclic {
		return ErrManagementCycle
	}
	return nil
}

// GetEmployee は社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityEmployee, err)
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var statusPtr *Status
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, validation.Invalid(entityEmployee, "status", "unknown status")
		}
		status := *in.Status
		statusPtr = &status
	}

	var (
		employees []*Employee
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		resultEmployees, token, err := s.repo.List(txCtx, ListFilter{
			DepartmentID: in.DepartmentID,
			ManagerID:    in.ManagerID,
			Status:       statusPtr,
			Limit:        limit,
			Offset:       offset,
		})
		if err != nil {
			return err
		}
		employees = resultEmployees
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: employees, NextPageToken: nextToken}, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(context.Context, *Employee, event.Sink) error) (*Employee, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityEmployee, err)
	}

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		e, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		buf := event.NewBuffer(s.clock.Now)
		if err := fn(txCtx, e, buf); err != nil {
			return err
		}

		if buf.Len() > 0 {
			e.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
			if err := s.repo.Save(txCtx, e); err != nil {
				return err
			}
			if err := s.flush(txCtx, buf); err != nil {
				return err
			}
		}
		updated = e
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) flush(ctx context.Context, buf *event.Buffer) error {
	if err := buf.Flush(ctx, s.publisher); err != nil {
		return fmt.Errorf("employee: publish events: %w", err)
	}
	return nil
}

func (s *Service) ensureNumberNotExists(ctx context.Context, number string) error {
	emp, err := s.repo.FindByNumber(ctx, number)
	if err != nil && !errors.Is(err, ErrEmployeeNotFound) {
		return err
	}
	if emp != nil {
		return ErrEmployeeNumberAlreadyExists
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
