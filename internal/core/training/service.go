package training

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

// Service は研修に関するユースケースをまとめます。
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

// PlanInput は研修登録時の入力です。
type PlanInput struct {
	EmployeeID    string
	Title         string
	Description   *string
	Provider      *string
	StartDate     time.Time
	EndDate       time.Time
	DurationHours float64
	Cost          decimal.Decimal
}

// Plan は研修を計画中として登録します。
func (s *Service) Plan(ctx context.Context, in PlanInput) (*Training, error) {
	buf := event.NewBuffer(s.clock.Now)
	t, err := New(Params{
		ID:            shared.NewID(),
		EmployeeID:    in.EmployeeID,
		Title:         in.Title,
		Description:   in.Description,
		Provider:      in.Provider,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		DurationHours: in.DurationHours,
		Cost:          in.Cost,
	}, buf)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		t.Stamp(s.clock.Now(), shared.ActorFromContext(ctx))
		if err := s.repo.Save(txCtx, t); err != nil {
			return err
		}
		return s.flush(txCtx, buf)
	}); err != nil {
		return nil, err
	}
	return t, nil
}

// Update は研修を部分更新します。
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*Training, error) {
	return s.mutate(ctx, id, func(t *Training, sink event.Sink) error {
		_, err := t.UpdateDetails(patch, sink)
		return err
	})
}

// Start は研修を開始します。
func (s *Service) Start(ctx context.Context, id string) (*Training, error) {
	return s.mutate(ctx, id, func(t *Training, sink event.Sink) error {
		return t.StartTraining(s.clock.Now(), sink)
	})
}

// Complete は研修を修了にします。
func (s *Service) Complete(ctx context.Context, id string, score *float64, certificateURL *string) (*Training, error) {
	return s.mutate(ctx, id, func(t *Training, sink event.Sink) error {
		return t.CompleteTraining(score, certificateURL, s.clock.Now(), sink)
	})
}

// Fail は研修を不合格にします。
func (s *Service) Fail(ctx context.Context, id, reason string) (*Training, error) {
	return s.mutate(ctx, id, func(t *Training, sink event.Sink) error {
		return t.FailTraining(reason, s.clock.Now(), sink)
	})
}

// Cancel は研修を中止します。
func (s *Service) Cancel(ctx context.Context, id, reason string) (*Training, error) {
	return s.mutate(ctx, id, func(t *Training, sink event.Sink) error {
		return t.CancelTraining(reason, sink)
	})
}

// SetScore は研修の点数を設定します。
func (s *Service) SetScore(ctx context.Context, id string, score float64) (*Training, error) {
	return s.mutate(ctx, id, func(t *Training, sink event.Sink) error {
		return t.SetScore(score, sink)
	})
}

// Get は研修を取得します。
func (s *Service) Get(ctx context.Context, id string) (*Training, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}

	var result *Training
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

// List は社員の研修一覧を取得します。
func (s *Service) List(ctx context.Context, employeeID string) ([]*Training, error) {
	if _, err := validation.RequireID("employee_id", employeeID); err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}

	var result []*Training
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

func (s *Service) mutate(ctx context.Context, id string, fn func(*Training, event.Sink) error) (*Training, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}

	var updated *Training
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		t, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		buf := event.NewBuffer(s.clock.Now)
		if err := fn(t, buf); err != nil {
			return err
		}

		if buf.Len() > 0 {
			t.Touch(s.clock.Now(), shared.ActorFromContext(ctx))
			if err := s.repo.Save(txCtx, t); err != nil {
				return err
			}
			if err := s.flush(txCtx, buf); err != nil {
				return err
			}
		}
		updated = t
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) flush(ctx context.Context, buf *event.Buffer) error {
	if err := buf.Flush(ctx, s.publisher); err != nil {
		return fmt.Errorf("training: publish events: %w", err)
	}
	return nil
}
