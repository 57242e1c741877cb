package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

// Service は休暇申請に関するユースケースをまとめます。
type Service struct {
	repo      Repository
	balance   Balance
	clock     shared.Clock
	tx        shared.TransactionManager
	publisher event.Publisher
}

// NewService は Service を生成します。balance が nil の場合は残日数を連動させません。
func NewService(repo Repository, balance Balance, clock shared.Clock, tx shared.TransactionManager, publisher event.Publisher) *Service {
	if clock == nil {
		clock = shared.RealClock{}
	}
	if tx == nil {
		tx = shared.NoopTransactionManager{}
	}
	if publisher == nil {
		publisher = event.Discard
	}
	return &Service{repo: repo, balance: balance, clock: clock, tx: tx, publisher: publisher}
}

// RequestLeaveInput は休暇申請時の入力です。
type RequestLeaveInput struct {
	EmployeeID string
	Type       Type
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
}

// RequestLeave は休暇を申請します。
func (s *Service) RequestLeave(ctx context.Context, in RequestLeaveInput) (*Leave, error) {
	now := s.clock.Now()
	buf := event.NewBuffer(s.clock.Now)
	l, err := New(Params{
		ID:         shared.NewID(),
		EmployeeID: in.EmployeeID,
		Type:       in.Type,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Reason:     in.Reason,
	}, now, buf)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		l.Stamp(now, shared.ActorFromContext(ctx))
		if err := s.repo.Save(txCtx, l); err != nil {
			return err
		}
		return s.flush(txCtx, buf)
	}); err != nil {
		return nil, err
	}
	return l, nil
}

// UpdateLeave は申請中の休暇を部分更新します。
func (s *Service) UpdateLeave(ctx context.Context, id string, patch Patch) (*Leave, error) {
	return s.mutate(ctx, id, func(txCtx context.Context, l *Leave, sink event.Sink) error {
		_, err := l.UpdateDetails(patch, s.clock.Now(), sink)
		return err
	})
}

// Approve は休暇を承認し、年次休暇なら残日数を、病欠なら病欠回数を更新します。
func (s *Service) Approve(ctx context.Context, id, approverID string, comments *string) (*Leave, error) {
	return s.mutate(ctx, id, func(txCtx context.Context, l *Leave, sink event.Sink) error {
		if err := l.Approve(approverID, comments, s.clock.Now(), sink); err != nil {
			return err
		}
		return s.applyBalance(txCtx, l, false)
	})
}

// Reject は休暇を却下します。
func (s *Service) Reject(ctx context.Context, id, approverID, reason string) (*Leave, error) {
	return s.mutate(ctx, id, func(_ context.Context, l *Leave, sink event.Sink) error {
		return l.Reject(approverID, reason, s.clock.Now(), sink)
	})
}

// Cancel は休暇を取り消します。承認済みだった場合は残日数を戻します。
func (s *Service) Cancel(ctx context.Context, id string) (*Leave, error) {
	return s.mutate(ctx, id, func(txCtx context.Context, l *Leave, sink event.Sink) error {
		wasApproved := l.Status == StatusApproved
		if err := l.Cancel(s.clock.Now(), sink); err != nil {
			return err
		}
		if !wasApproved {
			return nil
		}
		return s.applyBalance(txCtx, l, true)
	})
}

// Get は休暇申請を取得します。
func (s *Service) Get(ctx context.Context, id string) (*Leave, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityLeave, err)
	}

	var result *Leave
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

// List は社員の休暇申請を取得します。
func (s *Service) List(ctx context.Context, employeeID string, status *Status) ([]*Leave, error) {
	if _, err := validation.RequireID("employee_id", employeeID); err != nil {
		return nil, validation.WithEntity(entityLeave, err)
	}

	var result []*Leave
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListByEmployee(txCtx, ListFilter{EmployeeID: employeeID, Status: status})
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

func (s *Service) applyBalance(ctx context.Context, l *Leave, restore bool) error {
	if s.balance == nil {
		return nil
	}
	switch l.Type {
	case TypeAnnual:
		if restore {
			return s.balance.RestoreOffDays(ctx, l.EmployeeID, l.TotalDays)
		}
		return s.balance.DeductOffDays(ctx, l.EmployeeID, l.TotalDays)
	case TypeSick:
		if restore {
			return s.balance.RevertSickLeave(ctx, l.EmployeeID)
		}
		return s.balance.RecordSickLeave(ctx, l.EmployeeID)
	default:
		return nil
	}
}

func (s *Service) mutate(ctx context.Context, id string, fn func(context.Context, *Leave, event.Sink) error) (*Leave, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityLeave, err)
	}

	var updated *Leave
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		l, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		buf := event.NewBuffer(s.clock.Now)
		if err := fn(txCtx, l, buf); err != nil {
			return err
		}

		if buf.Len() > 0 {
			l.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
			if err := s.repo.Save(txCtx, l); err != nil {
				return err
			}
			if err := s.flush(txCtx, buf); err != nil {
				return err
			}
		}
		updated = l
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) flush(ctx context.Context, buf *event.Buffer) error {
	if err := buf.Flush(ctx, s.publisher); err != nil {
		return fmt.Errorf("leave: publish events: %w", err)
	}
	return nil
}
