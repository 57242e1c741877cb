package compensation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

// Service は給与に関するユースケースをまとめます。
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

// CreateSalaryInput は給与作成時の入力です。
type CreateSalaryInput struct {
	EmployeeID    string
	BaseSalary    decimal.Decimal
	Currency      string
	EffectiveDate time.Time
	EndDate       *time.Time
	PayFrequency  PayFrequency
	Notes         *string
}

// AddAllowanceInput は手当追加時の入力です。
type AddAllowanceInput struct {
	SalaryID      string
	Type          string
	Amount        decimal.Decimal
	Currency      string
	EffectiveDate time.Time
	EndDate       *time.Time
	Description   *string
	IsTaxable     bool
}

// AddDeductionInput は控除追加時の入力です。
type AddDeductionInput struct {
	SalaryID      string
	Type          string
	Amount        decimal.Decimal
	Currency      string
	EffectiveDate time.Time
	EndDate       *time.Time
	Description   *string
	IsMandatory   bool
}

// CreateSalary は給与を作成します。同じ社員の削除されていない給与と期間が重なる場合は拒否します。
// 終了済みの給与も終了日までは重なりとして扱います。
func (s *Service) CreateSalary(ctx context.Context, in CreateSalaryInput) (*Salary, error) {
	buf := event.NewBuffer(s.clock.Now)
	salary, err := NewSalary(SalaryParams{
		ID:            shared.NewID(),
		EmployeeID:    in.EmployeeID,
		BaseSalary:    in.BaseSalary,
		Currency:      in.Currency,
		EffectiveDate: in.EffectiveDate,
		EndDate:       in.EndDate,
		PayFrequency:  in.PayFrequency,
		Notes:         in.Notes,
	}, buf)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.ListByEmployee(txCtx, salary.EmployeeID)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if !other.IsDeleted() && other.Overlaps(salary.Period) {
				return ErrSalaryOverlap
			}
		}

		salary.Stamp(s.clock.Now(), shared.ActorFromContext(ctx))
		if err := s.repo.Save(txCtx, salary); err != nil {
			return err
		}
		return s.flush(txCtx, buf)
	}); err != nil {
		return nil, err
	}

	return salary, nil
}

// AddAllowance は給与に手当を追加します。
func (s *Service) AddAllowance(ctx context.Context, in AddAllowanceInput) (*Allowance, error) {
	allowance, err := NewAllowance(AdjustmentParams{
		ID:            shared.NewID(),
		Type:          in.Type,
		Amount:        in.Amount,
		Currency:      in.Currency,
		EffectiveDate: in.EffectiveDate,
		EndDate:       in.EndDate,
		Description:   in.Description,
	}, in.IsTaxable)
	if err != nil {
		return nil, err
	}

	if _, err := s.mutate(ctx, in.SalaryID, func(salary *Salary, sink event.Sink) error {
		allowance.Stamp(s.clock.Now(), shared.ActorFromContext(ctx))
		return salary.AddAllowance(allowance, sink)
	}); err != nil {
		return nil, err
	}
	return allowance, nil
}

// AddDeduction は給与に控除を追加します。
func (s *Service) AddDeduction(ctx context.Context, in AddDeductionInput) (*Deduction, error) {
	deduction, err := NewDeduction(AdjustmentParams{
		ID:            shared.NewID(),
		Type:          in.Type,
		Amount:        in.Amount,
		Currency:      in.Currency,
		EffectiveDate: in.EffectiveDate,
		EndDate:       in.EndDate,
		Description:   in.Description,
	}, in.IsMandatory)
	if err != nil {
		return nil, err
	}

	if _, err := s.mutate(ctx, in.SalaryID, func(salary *Salary, sink event.Sink) error {
		deduction.Stamp(s.clock.Now(), shared.ActorFromContext(ctx))
		return salary.AddDeduction(deduction, sink)
	}); err != nil {
		return nil, err
	}
	return deduction, nil
}

// UpdateSalary は給与を部分更新します。
func (s *Service) UpdateSalary(ctx context.Context, id string, patch SalaryPatch) (*Salary, error) {
	return s.mutate(ctx, id, func(salary *Salary, sink event.Sink) error {
		_, err := salary.UpdateDetails(patch, sink)
		return err
	})
}

// TerminateSalary は給与を終了します。
func (s *Service) TerminateSalary(ctx context.Context, id string, end time.Time) (*Salary, error) {
	return s.mutate(ctx, id, func(salary *Salary, sink event.Sink) error {
		return salary.Terminate(end, sink)
	})
}

// UpdateAllowance は手当を部分更新します。
func (s *Service) UpdateAllowance(ctx context.Context, salaryID, allowanceID string, patch AllowancePatch) (*Allowance, error) {
	var updated *Allowance
	if _, err := s.mutate(ctx, salaryID, func(salary *Salary, sink event.Sink) error {
		allowance, err := salary.Allowance(allowanceID)
		if err != nil {
			return err
		}
		changed, err := allowance.UpdateDetails(patch, sink)
		if err != nil {
			return err
		}
		if changed {
			allowance.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
		}
		updated = allowance
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateDeduction は控除を部分更新します。
func (s *Service) UpdateDeduction(ctx context.Context, salaryID, deductionID string, patch DeductionPatch) (*Deduction, error) {
	var updated *Deduction
	if _, err := s.mutate(ctx, salaryID, func(salary *Salary, sink event.Sink) error {
		deduction, err := salary.Deduction(deductionID)
		if err != nil {
			return err
		}
		changed, err := deduction.UpdateDetails(patch, sink)
		if err != nil {
			return err
		}
		if changed {
			deduction.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
		}
		updated = deduction
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// TerminateAllowance は手当を終了します。
func (s *Service) TerminateAllowance(ctx context.Context, salaryID, allowanceID string, end time.Time) error {
	_, err := s.mutate(ctx, salaryID, func(salary *Salary, sink event.Sink) error {
		allowance, err := salary.Allowance(allowanceID)
		if err != nil {
			return err
		}
		if err := allowance.Terminate(end, sink); err != nil {
			return err
		}
		allowance.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
		return nil
	})
	return err
}

// TerminateDeduction は控除を終了します。
func (s *Service) TerminateDeduction(ctx context.Context, salaryID, deductionID string, end time.Time) error {
	_, err := s.mutate(ctx, salaryID, func(salary *Salary, sink event.Sink) error {
		deduction, err := salary.Deduction(deductionID)
		if err != nil {
			return err
		}
		if err := deduction.Terminate(end, sink); err != nil {
			return err
		}
		deduction.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
		return nil
	})
	return err
}

// RemoveAllowance は手当を給与から取り除きます。
func (s *Service) RemoveAllowance(ctx context.Context, salaryID, allowanceID string) error {
	_, err := s.mutate(ctx, salaryID, func(salary *Salary, sink event.Sink) error {
		return salary.RemoveAllowance(allowanceID, sink)
	})
	return err
}

// RemoveDeduction は控除を給与から取り除きます。
func (s *Service) RemoveDeduction(ctx context.Context, salaryID, deductionID string) error {
	_, err := s.mutate(ctx, salaryID, func(salary *Salary, sink event.Sink) error {
		return salary.RemoveDeduction(deductionID, sink)
	})
	return err
}

// GetSalary は給与を取得します。
func (s *Service) GetSalary(ctx context.Context, id string) (*Salary, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}

	var result *Salary
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

// ListSalaries は社員の給与履歴を取得します。
func (s *Service) ListSalaries(ctx context.Context, employeeID string) ([]*Salary, error) {
	if _, err := validation.RequireID("employee_id", employeeID); err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}

	var result []*Salary
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListByEmployee(txCtx, employeeID)
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

// NetSalary は at 時点(nil なら現在)の手取りを計算します。
func (s *Service) NetSalary(ctx context.Context, id string, at *time.Time) (decimal.Decimal, error) {
	salary, err := s.GetSalary(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return salary.CalculateNetSalary(at, s.clock.Now()), nil
}

// mutate は給与を読み込んで fn を適用し、イベントが記録された場合だけ保存と配信を行います。
func (s *Service) mutate(ctx context.Context, id string, fn func(*Salary, event.Sink) error) (*Salary, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}

	var updated *Salary
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		salary, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		buf := event.NewBuffer(s.clock.Now)
		if err := fn(salary, buf); err != nil {
			return err
		}

		if buf.Len() > 0 {
			salary.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
			if err := s.repo.Save(txCtx, salary); err != nil {
				return err
			}
			if err := s.flush(txCtx, buf); err != nil {
				return err
			}
		}

		updated = salary
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *Service) flush(ctx context.Context, buf *event.Buffer) error {
	if err := buf.Flush(ctx, s.publisher); err != nil {
		return fmt.Errorf("salary: publish events: %w", err)
	}
	return nil
}
