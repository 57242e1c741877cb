package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

// Service は勤怠に関するユースケースをまとめます。
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

// RecordCheckIn は当日の勤怠記録を取得または作成し、出勤を記録します。
func (s *Service) RecordCheckIn(ctx context.Context, employeeID string, at time.Time, location *string) (*Attendance, error) {
	return s.onDay(ctx, employeeID, at, func(a *Attendance, sink event.Sink) error {
		return a.RecordCheckIn(at, location, sink)
	})
}

// RecordCheckOut は当日の勤怠記録に退勤を記録します。
func (s *Service) RecordCheckOut(ctx context.Context, employeeID string, at time.Time, location *string) (*Attendance, error) {
	return s.onDay(ctx, employeeID, at, func(a *Attendance, sink event.Sink) error {
		return a.RecordCheckOut(at, location, sink)
	})
}

// MarkAbsent は指定日を欠勤にします。
func (s *Service) MarkAbsent(ctx context.Context, employeeID string, date time.Time) (*Attendance, error) {
	return s.onDay(ctx, employeeID, date, func(a *Attendance, sink event.Sink) error {
		return a.MarkAsAbsent(sink)
	})
}

// MarkHalfDay は指定日を半日勤務にします。
func (s *Service) MarkHalfDay(ctx context.Context, employeeID string, date time.Time) (*Attendance, error) {
	return s.onDay(ctx, employeeID, date, func(a *Attendance, sink event.Sink) error {
		return a.MarkAsHalfDay(sink)
	})
}

// MarkOnLeave は指定日を休暇に紐づけます。
func (s *Service) MarkOnLeave(ctx context.Context, employeeID string, date time.Time, leaveID string) (*Attendance, error) {
	return s.onDay(ctx, employeeID, date, func(a *Attendance, sink event.Sink) error {
		return a.MarkAsOnLeave(leaveID, sink)
	})
}

// UpdateNotes は勤怠記録の備考を更新します。
func (s *Service) UpdateNotes(ctx context.Context, id string, notes *string) (*Attendance, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}

	var updated *Attendance
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		a, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		buf := event.NewBuffer(s.clock.Now)
		if _, err := a.UpdateNotes(notes, buf); err != nil {
			return err
		}
		if err := s.persist(txCtx, a, buf, false); err != nil {
			return err
		}
		updated = a
		return nil
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// Get は勤怠記録を取得します。
func (s *Service) Get(ctx context.Context, id string) (*Attendance, error) {
	if _, err := validation.RequireID("id", id); err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}

	var result *Attendance
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

// List は社員の期間内の勤怠記録を取得します。
func (s *Service) List(ctx context.Context, employeeID string, from, to time.Time) ([]*Attendance, error) {
	if _, err := validation.RequireID("employee_id", employeeID); err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}
	if err := validation.RequireDateOrder("from", from, "to", to); err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}

	var result []*Attendance
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListByEmployee(txCtx, ListFilter{
			EmployeeID: employeeID,
			From:       DayOf(from),
			To:         DayOf(to),
		})
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

// onDay は社員のその日の記録を取得し、なければ作成してから fn を適用します。
func (s *Service) onDay(ctx context.Context, employeeID string, day time.Time, fn func(*Attendance, event.Sink) error) (*Attendance, error) {
	if _, err := validation.RequireID("employee_id", employeeID); err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}
	if err := validation.RequireDate("date", day); err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}

	var result *Attendance
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		buf := event.NewBuffer(s.clock.Now)
		created := false

		a, err := s.repo.FindByEmployeeAndDate(txCtx, employeeID, DayOf(day))
		switch {
		case errors.Is(err, ErrAttendanceNotFound):
			a, err = New(shared.NewID(), employeeID, day, buf)
			if err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		}

		if err := fn(a, buf); err != nil {
			return err
		}
		if err := s.persist(txCtx, a, buf, created); err != nil {
			return err
		}
		result = a
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) persist(ctx context.Context, a *Attendance, buf *event.Buffer, created bool) error {
	if buf.Len() == 0 {
		return nil
	}
	now := s.clock.Now()
	actor := shared.ActorFromContext(ctx)
	if created {
		a.Stamp(now, actor)
	} else {
		a.Touch(now, actor)
	}
	if err := s.repo.Save(ctx, a); err != nil {
		return err
	}
	if err := buf.Flush(ctx, s.publisher); err != nil {
		return fmt.Errorf("attendance: publish events: %w", err)
	}
	return nil
}
