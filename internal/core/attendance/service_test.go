package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeAttendanceRepo struct {
	records map[string]*Attendance
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: make(map[string]*Attendance)}
}

func (r *fakeAttendanceRepo) Save(_ context.Context, a *Attendance) error {
	for _, existing := range r.records {
		if existing.ID != a.ID && existing.EmployeeID == a.EmployeeID && existing.Date.Equal(a.Date) {
			return ErrAttendanceAlreadyExists
		}
	}
	clone := *a
	r.records[a.ID] = &clone
	return nil
}

func (r *fakeAttendanceRepo) FindByID(_ context.Context, id string) (*Attendance, error) {
	a, ok := r.records[id]
	if !ok {
		return nil, ErrAttendanceNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *fakeAttendanceRepo) FindByEmployeeAndDate(_ context.Context, employeeID string, date time.Time) (*Attendance, error) {
	for _, a := range r.records {
		if a.EmployeeID == employeeID && a.Date.Equal(date) {
			clone := *a
			return &clone, nil
		}
	}
	return nil, ErrAttendanceNotFound
}

func (r *fakeAttendanceRepo) ListByEmployee(_ context.Context, filter ListFilter) ([]*Attendance, error) {
	var out []*Attendance
	for _, a := range r.records {
		if a.EmployeeID == filter.EmployeeID && !a.Date.Before(filter.From) && !a.Date.After(filter.To) {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, nil
}

func newTestService() (*Service, *fakeAttendanceRepo, *[]string) {
	repo := newFakeAttendanceRepo()
	var names []string
	pub := event.PublisherFunc(func(_ context.Context, events ...event.Event) error {
		for _, e := range events {
			names = append(names, e.Name)
		}
		return nil
	})
	return NewService(repo, &stubClock{now: at(8, 0)}, nil, pub), repo, &names
}

func TestService_CheckInCreatesDailyRecord(t *testing.T) {
	t.Parallel()

	svc, repo, names := newTestService()
	ctx := context.Background()

	in, err := svc.RecordCheckIn(ctx, "emp-1", at(9, 10), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.LateMinutes != 10 {
		t.Fatalf("expected 10 late minutes, got %d", in.LateMinutes)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected one record, got %d", len(repo.records))
	}

	out, err := svc.RecordCheckOut(ctx, "emp-1", at(17, 30), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != in.ID {
		t.Fatalf("expected the same daily record")
	}
	if out.WorkingDuration != 8*time.Hour+20*time.Minute {
		t.Fatalf("unexpected working duration %s", out.WorkingDuration)
	}
	if len(repo.records) != 1 {
		t.Fatalf("expected still one record, got %d", len(repo.records))
	}

	want := []string{EventAttendanceCreated, EventAttendanceCheckedIn, EventAttendanceCheckedOut}
	if len(*names) != len(want) {
		t.Fatalf("expected events %v, got %v", want, *names)
	}
	for i := range want {
		if (*names)[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, *names)
		}
	}
}

func TestService_CheckOutWithoutCheckIn(t *testing.T) {
	t.Parallel()

	svc, repo, names := newTestService()
	_, err := svc.RecordCheckOut(context.Background(), "emp-1", at(17, 0), nil)
	if !validation.IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
	if len(repo.records) != 0 || len(*names) != 0 {
		t.Fatalf("failed operation must not persist or publish")
	}
}

func TestService_MarkOnLeaveThenCheckIn(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	rec, err := svc.MarkOnLeave(ctx, "emp-1", at(0, 0), "leave-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.IsOnLeave || rec.CreatedBy != "system" {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, err := svc.RecordCheckIn(ctx, "emp-1", at(9, 0), nil); !validation.IsState(err) {
		t.Fatalf("expected state error, got %v", err)
	}
}

func TestService_MarkAbsentAndHalfDay(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.MarkAbsent(ctx, "emp-1", at(0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, err := svc.MarkHalfDay(ctx, "emp-1", at(12, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.IsAbsent || !rec.IsHalfDay {
		t.Fatalf("expected half day only, got %+v", rec)
	}

	list, err := svc.List(ctx, "emp-1", at(0, 0), at(23, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one record, got %d", len(list))
	}
}

func TestService_UpdateNotesAndGet(t *testing.T) {
	t.Parallel()

	svc, _, names := newTestService()
	ctx := context.Background()

	rec, err := svc.RecordCheckIn(ctx, "emp-1", at(9, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	notes := "remote"
	if _, err := svc.UpdateNotes(ctx, rec.ID, &notes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(*names)
	if _, err := svc.UpdateNotes(ctx, rec.ID, &notes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*names) != before {
		t.Fatalf("unchanged notes should not publish")
	}

	got, err := svc.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Notes == nil || *got.Notes != "remote" {
		t.Fatalf("expected notes to be stored")
	}

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrAttendanceNotFound) {
		t.Fatalf("expected ErrAttendanceNotFound, got %v", err)
	}
	if _, err := svc.List(ctx, "emp-1", at(10, 0).AddDate(0, 0, 1), at(0, 0)); !validation.IsValidation(err) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}
