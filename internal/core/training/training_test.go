package training

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var now = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

// TrainingSuite は研修の状態遷移を検証します。
type TrainingSuite struct {
	suite.Suite
	buf *event.Buffer
}

func TestTrainingSuite(t *testing.T) {
	suite.Run(t, new(TrainingSuite))
}

func (s *TrainingSuite) SetupTest() {
	s.buf = event.NewBuffer(nil)
}

func (s *TrainingSuite) SetupSubTest() {
	s.buf = event.NewBuffer(nil)
}

func (s *TrainingSuite) newPlanned() *Training {
	t, err := New(Params{
		ID:            "tr-1",
		EmployeeID:    "emp-1",
		Title:         "Go concurrency",
		StartDate:     day(2025, 3, 3),
		EndDate:       day(2025, 3, 5),
		DurationHours: 24,
		Cost:          decimal.RequireFromString("1500.00"),
	}, s.buf)
	s.Require().NoError(err)
	s.buf.Drain()
	return t
}

func (s *TrainingSuite) newInProgress() *Training {
	t := s.newPlanned()
	s.Require().NoError(t.StartTraining(now, s.buf))
	s.buf.Drain()
	return t
}

func (s *TrainingSuite) TestNew() {
	s.Run("starts planned", func() {
		t, err := New(Params{
			ID: "tr-1", EmployeeID: "emp-1", Title: "  Kubernetes  ",
			StartDate: day(2025, 3, 3), EndDate: day(2025, 3, 3), Cost: decimal.Zero,
		}, s.buf)
		s.Require().NoError(err)
		s.Equal(StatusPlanned, t.Status)
		s.Equal("Kubernetes", t.Title)
		s.Equal([]string{EventTrainingCreated}, s.buf.Names())
	})

	s.Run("end before start", func() {
		_, err := New(Params{
			ID: "tr-1", EmployeeID: "emp-1", Title: "Kubernetes",
			StartDate: day(2025, 3, 3), EndDate: day(2025, 3, 2),
		}, s.buf)
		s.True(validation.IsValidation(err))
		s.Zero(s.buf.Len())
	})

	s.Run("negative cost", func() {
		_, err := New(Params{
			ID: "tr-1", EmployeeID: "emp-1", Title: "Kubernetes",
			StartDate: day(2025, 3, 3), EndDate: day(2025, 3, 3), Cost: decimal.NewFromInt(-1),
		}, s.buf)
		s.True(validation.IsValidation(err))
	})

	s.Run("missing title", func() {
		_, err := New(Params{
			ID: "tr-1", EmployeeID: "emp-1",
			StartDate: day(2025, 3, 3), EndDate: day(2025, 3, 3),
		}, s.buf)
		s.True(validation.IsValidation(err))
	})
}

func (s *TrainingSuite) TestLifecycle() {
	s.Run("start then complete", func() {
		t := s.newPlanned()
		s.Require().NoError(t.StartTraining(now, s.buf))
		s.Equal(StatusInProgress, t.Status)
		s.Require().NotNil(t.StartedAt)

		done := now.Add(48 * time.Hour)
		s.Require().NoError(t.CompleteTraining(ptr(87.5), ptr("https://certs.example.com/tr-1"), done, s.buf))
		s.Equal(StatusCompleted, t.Status)
		s.Equal(87.5, *t.Score)
		s.Equal("https://certs.example.com/tr-1", *t.CertificateURL)
		s.True(t.CompletedAt.Equal(done))
		s.Equal([]string{EventTrainingStarted, EventTrainingCompleted}, s.buf.Names())
	})

	s.Run("complete requires in progress", func() {
		t := s.newPlanned()
		err := t.CompleteTraining(nil, nil, now, s.buf)
		s.True(validation.IsState(err))
		s.Equal(StatusPlanned, t.Status)
	})

	s.Run("complete rejects bad score without changing state", func() {
		t := s.newInProgress()
		err := t.CompleteTraining(ptr(101.0), nil, now, s.buf)
		s.True(validation.IsValidation(err))
		s.Equal(StatusInProgress, t.Status)
		s.Nil(t.Score)
		s.Zero(s.buf.Len())
	})

	s.Run("complete rejects relative certificate url", func() {
		t := s.newInProgress()
		err := t.CompleteTraining(nil, ptr("certs/tr-1"), now, s.buf)
		s.True(validation.IsValidation(err))
		s.Equal(StatusInProgress, t.Status)
	})

	s.Run("start twice", func() {
		t := s.newInProgress()
		s.True(validation.IsState(t.StartTraining(now, s.buf)))
	})

	s.Run("fail records reason", func() {
		t := s.newInProgress()
		s.Require().NoError(t.FailTraining("did not attend the exam", now, s.buf))
		s.Equal(StatusFailed, t.Status)
		s.Equal("did not attend the exam", *t.FailureReason)
		s.Equal([]string{EventTrainingFailed}, s.buf.Names())
	})

	s.Run("fail requires in progress", func() {
		t := s.newPlanned()
		s.True(validation.IsState(t.FailTraining("no", now, s.buf)))
	})
}

func (s *TrainingSuite) TestCancel() {
	s.Run("from planned", func() {
		t := s.newPlanned()
		s.Require().NoError(t.CancelTraining("budget freeze", s.buf))
		s.Equal(StatusCancelled, t.Status)
		s.Equal("budget freeze", *t.CancellationReason)
	})

	s.Run("from in progress without reason", func() {
		t := s.newInProgress()
		s.Require().NoError(t.CancelTraining("", s.buf))
		s.Equal(StatusCancelled, t.Status)
		s.Nil(t.CancellationReason)
	})

	s.Run("blocked once terminal", func() {
		for _, finish := range []func(*Training) error{
			func(t *Training) error { return t.CompleteTraining(nil, nil, now, s.buf) },
			func(t *Training) error { return t.FailTraining("", now, s.buf) },
			func(t *Training) error { return t.CancelTraining("", s.buf) },
		} {
			t := s.newInProgress()
			s.Require().NoError(finish(t))
			s.True(validation.IsState(t.CancelTraining("late", s.buf)))
		}
	})
}

func (s *TrainingSuite) TestSetScore() {
	s.Run("independent of status", func() {
		t := s.newPlanned()
		s.Require().NoError(t.SetScore(70, s.buf))
		s.Equal(70.0, *t.Score)

		s.Require().NoError(t.CancelTraining("", s.buf))
		s.Require().NoError(t.SetScore(75, s.buf))
		s.Equal(75.0, *t.Score)
	})

	s.Run("same score records nothing", func() {
		t := s.newPlanned()
		s.Require().NoError(t.SetScore(70, s.buf))
		s.buf.Drain()
		s.Require().NoError(t.SetScore(70, s.buf))
		s.Zero(s.buf.Len())
	})

	s.Run("bounds", func() {
		t := s.newPlanned()
		s.NoError(t.SetScore(0, s.buf))
		s.NoError(t.SetScore(100, s.buf))
		s.True(validation.IsValidation(t.SetScore(-0.5, s.buf)))
		s.True(validation.IsValidation(t.SetScore(100.1, s.buf)))
		s.Equal(100.0, *t.Score)
	})

	s.Run("rejects NaN", func() {
		t := s.newPlanned()
		s.Require().NoError(t.SetScore(80, s.buf))
		s.buf.Drain()
		s.True(validation.IsValidation(t.SetScore(math.NaN(), s.buf)))
		s.Equal(80.0, *t.Score)
		s.Zero(s.buf.Len())
	})
}

func (s *TrainingSuite) TestUpdateDetails() {
	s.Run("applies changes once", func() {
		t := s.newPlanned()
		changed, err := t.UpdateDetails(Patch{Title: ptr("Advanced Go"), Provider: ptr("GopherCon")}, s.buf)
		s.Require().NoError(err)
		s.True(changed)
		s.Equal("Advanced Go", t.Title)
		s.Equal("GopherCon", *t.Provider)

		changed, err = t.UpdateDetails(Patch{Title: ptr("Advanced Go")}, s.buf)
		s.Require().NoError(err)
		s.False(changed)
		s.Equal([]string{EventTrainingUpdated}, s.buf.Names())
	})

	s.Run("invalid schedule leaves entity untouched", func() {
		t := s.newPlanned()
		_, err := t.UpdateDetails(Patch{Title: ptr("Other"), EndDate: ptr(day(2025, 3, 1))}, s.buf)
		s.True(validation.IsValidation(err))
		s.Equal("Go concurrency", t.Title)
		s.True(t.EndDate.Equal(day(2025, 3, 5)))
	})

	s.Run("rejects NaN duration", func() {
		t := s.newPlanned()
		before := t.DurationHours
		_, err := t.UpdateDetails(Patch{DurationHours: ptr(math.NaN())}, s.buf)
		s.True(validation.IsValidation(err))
		s.Equal(before, t.DurationHours)
	})

	s.Run("allowed while in progress", func() {
		t := s.newInProgress()
		changed, err := t.UpdateDetails(Patch{Cost: ptr(decimal.NewFromInt(2000))}, s.buf)
		s.Require().NoError(err)
		s.True(changed)
	})

	s.Run("blocked after completion", func() {
		t := s.newInProgress()
		s.Require().NoError(t.CompleteTraining(nil, nil, now, s.buf))
		_, err := t.UpdateDetails(Patch{Title: ptr("Other")}, s.buf)
		s.True(validation.IsState(err))
	})
}
