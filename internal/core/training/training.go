// Package training は研修のライフサイクルを扱います。
package training

import (
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	entityTraining = "training"

	maxTitleLength       = 200
	maxDescriptionLength = 1000
	maxProviderLength    = 200
	maxReasonLength      = 500
	maxURLLength         = 500
	maxDurationHours     = 10000.0

	minScore = 0.0
	maxScore = 100.0
)

const (
	EventTrainingCreated   = "TrainingCreatedEvent"
	EventTrainingUpdated   = "TrainingUpdatedEvent"
	EventTrainingStarted   = "TrainingStartedEvent"
	EventTrainingCompleted = "TrainingCompletedEvent"
	EventTrainingFailed    = "TrainingFailedEvent"
	EventTrainingCancelled = "TrainingCancelledEvent"
	EventTrainingScored    = "TrainingScoreSetEvent"
)

// Status は研修の状態です。
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal は終端状態かを返します。
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Training は社員の研修受講記録です。
//
// 状態遷移: planned → in_progress → completed | failed,
// planned | in_progress → cancelled。
//
// Invariants:
//   - StartDate <= EndDate
//   - Score != nil ならば 0 <= Score <= 100
//   - Cost >= 0
type Training struct {
	ID                 string          `json:"id"`
	EmployeeID         string          `json:"employee_id"`
	Title              string          `json:"title"`
	Description        *string         `json:"description,omitempty"`
	Provider           *string         `json:"provider,omitempty"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	DurationHours      float64         `json:"duration_hours"`
	Status             Status          `json:"status"`
	Score              *float64        `json:"score,omitempty"`
	CertificateURL     *string         `json:"certificate_url,omitempty"`
	StartedAt          *time.Time      `json:"started_at,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
	FailureReason      *string         `json:"failure_reason,omitempty"`
	Cost               decimal.Decimal `json:"cost"`
	shared.AuditInfo   `json:"-"`
}

// Params は研修の生成パラメータです。
type Params struct {
	ID            string
	EmployeeID    string
	Title         string
	Description   *string
	Provider      *string
	StartDate     time.Time
	EndDate       time.Time
	DurationHours float64
	Cost          decimal.Decimal
}

// Patch は研修の部分更新です。
type Patch struct {
	Title         *string
	Description   *string
	Provider      *string
	StartDate     *time.Time
	EndDate       *time.Time
	DurationHours *float64
	Cost          *decimal.Decimal
}

// New は計画中の研修を生成します。
func New(p Params, sink event.Sink) (*Training, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}
	employeeID, err := validation.RequireID("employee_id", p.EmployeeID)
	if err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}
	title, err := validation.RequireNonEmpty("title", p.Title, maxTitleLength)
	if err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}
	description, err := validation.RequireMaxLength("description", p.Description, maxDescriptionLength)
	if err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}
	provider, err := validation.RequireMaxLength("provider", p.Provider, maxProviderLength)
	if err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}
	if err := validateSchedule(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}
	if err := validation.RequireInRange("duration_hours", p.DurationHours, 0, maxDurationHours); err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}
	if err := validation.RequireNonNegative("cost", p.Cost); err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}

	t := &Training{
		ID:            id,
		EmployeeID:    employeeID,
		Title:         title,
		Description:   description,
		Provider:      provider,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		DurationHours: p.DurationHours,
		Status:        StatusPlanned,
		Cost:          p.Cost,
	}
	t.record(sink, EventTrainingCreated)
	return t, nil
}

func (t *Training) record(sink event.Sink, name string) {
	sink.Record(event.New(name, entityTraining, t.ID, *t))
}

// StartTraining は計画中の研修を開始します。
func (t *Training) StartTraining(now time.Time, sink event.Sink) error {
	if t.Status != StatusPlanned {
		return validation.InvalidState(entityTraining, "start", string(t.Status))
	}
	t.Status = StatusInProgress
	t.StartedAt = &now
	t.record(sink, EventTrainingStarted)
	return nil
}

// CompleteTraining は受講中の研修を修了にします。点数と修了証 URL は任意です。
func (t *Training) CompleteTraining(score *float64, certificateURL *string, now time.Time, sink event.Sink) error {
	if t.Status != StatusInProgress {
		return validation.InvalidState(entityTraining, "complete", string(t.Status))
	}
	if score != nil {
		if err := validateScore(*score); err != nil {
			return err
		}
	}
	certURL, err := normalizeURL(certificateURL)
	if err != nil {
		return err
	}

	t.Status = StatusCompleted
	t.CompletedAt = &now
	if score != nil {
		v := *score
		t.Score = &v
	}
	if certURL != nil {
		t.CertificateURL = certURL
	}
	t.record(sink, EventTrainingCompleted)
	return nil
}

// FailTraining は受講中の研修を不合格にします。
func (t *Training) FailTraining(reason string, now time.Time, sink event.Sink) error {
	if t.Status != StatusInProgress {
		return validation.InvalidState(entityTraining, "fail", string(t.Status))
	}
	r, err := validation.RequireMaxLength("failure_reason", &reason, maxReasonLength)
	if err != nil {
		return validation.WithEntity(entityTraining, err)
	}
	t.Status = StatusFailed
	t.FailureReason = r
	t.CompletedAt = &now
	t.record(sink, EventTrainingFailed)
	return nil
}

// CancelTraining は計画中または受講中の研修を中止します。
func (t *Training) CancelTraining(reason string, sink event.Sink) error {
	if t.Status.IsTerminal() {
		return validation.InvalidState(entityTraining, "cancel", string(t.Status))
	}
	r, err := validation.RequireMaxLength("cancellation_reason", &reason, maxReasonLength)
	if err != nil {
		return validation.WithEntity(entityTraining, err)
	}
	t.Status = StatusCancelled
	t.CancellationReason = r
	t.record(sink, EventTrainingCancelled)
	return nil
}

// SetScore は状態に関係なく点数を設定します。
func (t *Training) SetScore(score float64, sink event.Sink) error {
	if err := validateScore(score); err != nil {
		return err
	}
	if t.Score != nil && *t.Score == score {
		return nil
	}
	t.Score = &score
	t.record(sink, EventTrainingScored)
	return nil
}

// UpdateDetails は計画中または受講中の研修を部分更新します。
func (t *Training) UpdateDetails(p Patch, sink event.Sink) (bool, error) {
	if t.Status.IsTerminal() {
		return false, validation.InvalidState(entityTraining, "update", string(t.Status))
	}
	next := *t

	if p.Title != nil {
		v, err := validation.RequireNonEmpty("title", *p.Title, maxTitleLength)
		if err != nil {
			return false, validation.WithEntity(entityTraining, err)
		}
		next.Title = v
	}
	if p.Description != nil {
		v, err := validation.RequireMaxLength("description", p.Description, maxDescriptionLength)
		if err != nil {
			return false, validation.WithEntity(entityTraining, err)
		}
		next.Description = v
	}
	if p.Provider != nil {
		v, err := validation.RequireMaxLength("provider", p.Provider, maxProviderLength)
		if err != nil {
			return false, validation.WithEntity(entityTraining, err)
		}
		next.Provider = v
	}
	if p.StartDate != nil {
		next.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		next.EndDate = *p.EndDate
	}
	if err := validateSchedule(next.StartDate, next.EndDate); err != nil {
		return false, err
	}
	if p.DurationHours != nil {
		if err := validation.RequireInRange("duration_hours", *p.DurationHours, 0, maxDurationHours); err != nil {
			return false, validation.WithEntity(entityTraining, err)
		}
		next.DurationHours = *p.DurationHours
	}
	if p.Cost != nil {
		if err := validation.RequireNonNegative("cost", *p.Cost); err != nil {
			return false, validation.WithEntity(entityTraining, err)
		}
		next.Cost = *p.Cost
	}

	changed := next.Title != t.Title ||
		!shared.EqualString(next.Description, t.Description) ||
		!shared.EqualString(next.Provider, t.Provider) ||
		!next.StartDate.Equal(t.StartDate) ||
		!next.EndDate.Equal(t.EndDate) ||
		next.DurationHours != t.DurationHours ||
		!next.Cost.Equal(t.Cost)
	if !changed {
		return false, nil
	}

	*t = next
	t.record(sink, EventTrainingUpdated)
	return true, nil
}

func validateSchedule(start, end time.Time) error {
	if err := validation.RequireDate("start_date", start); err != nil {
		return validation.WithEntity(entityTraining, err)
	}
	if err := validation.RequireDate("end_date", end); err != nil {
		return validation.WithEntity(entityTraining, err)
	}
	if err := validation.RequireDateOrder("start_date", start, "end_date", end); err != nil {
		return validation.WithEntity(entityTraining, err)
	}
	return nil
}

func validateScore(score float64) error {
	if err := validation.RequireInRange("score", score, minScore, maxScore); err != nil {
		return validation.WithEntity(entityTraining, err)
	}
	return nil
}

func normalizeURL(raw *string) (*string, error) {
	v, err := validation.RequireMaxLength("certificate_url", raw, maxURLLength)
	if err != nil {
		return nil, validation.WithEntity(entityTraining, err)
	}
	if v == nil {
		return nil, nil
	}
	u, err := url.ParseRequestURI(*v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, validation.Invalid(entityTraining, "certificate_url", "must be an absolute http(s) URL")
	}
	return v, nil
}
