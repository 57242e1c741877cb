// Package leave は休暇申請の承認フローを扱います。
package leave

import (
	"strings"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	entityLeave = "leave"

	maxTypeLength     = 50
	maxReasonLength   = 500
	maxCommentsLength = 500
)

const (
	EventLeaveCreated   = "LeaveCreatedEvent"
	EventLeaveUpdated   = "LeaveUpdatedEvent"
	EventLeaveApproved  = "LeaveApprovedEvent"
	EventLeaveRejected  = "LeaveRejectedEvent"
	EventLeaveCancelled = "LeaveCancelledEvent"
)

// Status は休暇申請の状態です。
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Type は休暇の種別です。下記以外の値も 50 文字以内なら受け付けます。
type Type string

const (
	TypeAnnual    Type = "annual"
	TypeSick      Type = "sick"
	TypeUnpaid    Type = "unpaid"
	TypeMaternity Type = "maternity"
	TypePaternity Type = "paternity"
	TypeEmergency Type = "emergency"
	TypeOther     Type = "other"
)

// Leave は休暇申請です。
//
// 状態遷移: pending → approved | rejected | cancelled, approved → cancelled。
// rejected と cancelled は終端です。
//
// Invariants:
//   - StartDate <= EndDate
//   - TotalDays = (EndDate − StartDate) の日数 + 1
//   - Reason は 1..500 文字
type Leave struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employee_id"`
	Type             Type       `json:"type"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	TotalDays        int        `json:"total_days"`
	Reason           string     `json:"reason"`
	Status           Status     `json:"status"`
	ApproverID       *string    `json:"approver_id,omitempty"`
	ApprovedDate     *time.Time `json:"approved_date,omitempty"`
	ApproverComments *string    `json:"approver_comments,omitempty"`
	RejectionReason  *string    `json:"rejection_reason,omitempty"`
	CancelledDate    *time.Time `json:"cancelled_date,omitempty"`
	shared.AuditInfo `json:"-"`
}

// Params は休暇申請の生成パラメータです。
type Params struct {
	ID         string
	EmployeeID string
	Type       Type
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
}

// Patch は申請中の休暇の部分更新です。
type Patch struct {
	Type      *Type
	StartDate *time.Time
	EndDate   *time.Time
	Reason    *string
}

// New は申請中の休暇を生成し LeaveCreatedEvent を記録します。
// 開始日は now の日付より前にできません。
func New(p Params, now time.Time, sink event.Sink) (*Leave, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return nil, validation.WithEntity(entityLeave, err)
	}
	employeeID, err := validation.RequireID("employee_id", p.EmployeeID)
	if err != nil {
		return nil, validation.WithEntity(entityLeave, err)
	}
	typ, err := normalizeType(p.Type)
	if err != nil {
		return nil, err
	}
	start, end, err := validateRange(p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}
	if err := requireNotPast(start, now); err != nil {
		return nil, err
	}
	reason, err := validation.RequireNonEmpty("reason", p.Reason, maxReasonLength)
	if err != nil {
		return nil, validation.WithEntity(entityLeave, err)
	}

	l := &Leave{
		ID:         id,
		EmployeeID: employeeID,
		Type:       typ,
		StartDate:  start,
		EndDate:    end,
		TotalDays:  CalculateDays(start, end),
		Reason:     reason,
		Status:     StatusPending,
	}
	l.record(sink, EventLeaveCreated)
	return l, nil
}

func (l *Leave) record(sink event.Sink, name string) {
	sink.Record(event.New(name, entityLeave, l.ID, *l))
}

// UpdateDetails は申請中の休暇を部分更新し、日数を再計算します。
func (l *Leave) UpdateDetails(p Patch, now time.Time, sink event.Sink) (bool, error) {
	if l.Status != StatusPending {
		return false, validation.InvalidState(entityLeave, "update", string(l.Status))
	}

	typ := l.Type
	if p.Type != nil {
		t, err := normalizeType(*p.Type)
		if err != nil {
			return false, err
		}
		typ = t
	}
	start, end := l.StartDate, l.EndDate
	if p.StartDate != nil {
		start = *p.StartDate
	}
	if p.EndDate != nil {
		end = *p.EndDate
	}
	start, end, err := validateRange(start, end)
	if err != nil {
		return false, err
	}
	if p.StartDate != nil && !start.Equal(l.StartDate) {
		if err := requireNotPast(start, now); err != nil {
			return false, err
		}
	}
	reason := l.Reason
	if p.Reason != nil {
		r, err := validation.RequireNonEmpty("reason", *p.Reason, maxReasonLength)
		if err != nil {
			return false, validation.WithEntity(entityLeave, err)
		}
		reason = r
	}

	if typ == l.Type && start.Equal(l.StartDate) && end.Equal(l.EndDate) && reason == l.Reason {
		return false, nil
	}

	l.Type = typ
	l.StartDate = start
	l.EndDate = end
	l.TotalDays = CalculateDays(start, end)
	l.Reason = reason
	l.record(sink, EventLeaveUpdated)
	return true, nil
}

// Approve は申請中の休暇を承認します。
func (l *Leave) Approve(approverID string, comments *string, now time.Time, sink event.Sink) error {
	if l.Status != StatusPending {
		return validation.InvalidState(entityLeave, "approve", string(l.Status))
	}
	approver, err := validation.RequireID("approver_id", approverID)
	if err != nil {
		return validation.WithEntity(entityLeave, err)
	}
	c, err := validation.RequireMaxLength("approver_comments", comments, maxCommentsLength)
	if err != nil {
		return validation.WithEntity(entityLeave, err)
	}

	l.Status = StatusApproved
	l.ApproverID = &approver
	l.ApprovedDate = &now
	l.ApproverComments = c
	l.record(sink, EventLeaveApproved)
	return nil
}

// Reject は申請中の休暇を却下します。却下理由は必須です。
func (l *Leave) Reject(approverID, reason string, now time.Time, sink event.Sink) error {
	if l.Status != StatusPending {
		return validation.InvalidState(entityLeave, "reject", string(l.Status))
	}
	approver, err := validation.RequireID("approver_id", approverID)
	if err != nil {
		return validation.WithEntity(entityLeave, err)
	}
	r, err := validation.RequireNonEmpty("rejection_reason", reason, maxReasonLength)
	if err != nil {
		return validation.WithEntity(entityLeave, err)
	}

	l.Status = StatusRejected
	l.ApproverID = &approver
	l.RejectionReason = &r
	l.record(sink, EventLeaveRejected)
	return nil
}

// Cancel は申請中または承認済みの休暇を取り消します。
func (l *Leave) Cancel(now time.Time, sink event.Sink) error {
	if l.Status != StatusPending && l.Status != StatusApproved {
		return validation.InvalidState(entityLeave, "cancel", string(l.Status))
	}
	l.Status = StatusCancelled
	l.CancelledDate = &now
	l.record(sink, EventLeaveCancelled)
	return nil
}

// Covers は d が休暇期間内かを返します。
func (l *Leave) Covers(d time.Time) bool {
	day := validation.TruncateToDay(d)
	return !day.Before(l.StartDate) && !day.After(l.EndDate)
}

// Days は休暇期間の各日付を返します。
func (l *Leave) Days() []time.Time {
	days := make([]time.Time, 0, l.TotalDays)
	for d := l.StartDate; !d.After(l.EndDate); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// CalculateDays は開始日と終了日を含む暦日数を返します。
func CalculateDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}

// normalizeType は種別を小文字に揃えます。"Annual" も TypeAnnual として残日数の対象になります。
func normalizeType(t Type) (Type, error) {
	v, err := validation.RequireNonEmpty("type", string(t), maxTypeLength)
	if err != nil {
		return "", validation.WithEntity(entityLeave, err)
	}
	return Type(strings.ToLower(v)), nil
}

func validateRange(start, end time.Time) (time.Time, time.Time, error) {
	if err := validation.RequireDate("start_date", start); err != nil {
		return time.Time{}, time.Time{}, validation.WithEntity(entityLeave, err)
	}
	if err := validation.RequireDate("end_date", end); err != nil {
		return time.Time{}, time.Time{}, validation.WithEntity(entityLeave, err)
	}
	start = validation.TruncateToDay(start)
	end = validation.TruncateToDay(end)
	if err := validation.RequireDateOrder("start_date", start, "end_date", end); err != nil {
		return time.Time{}, time.Time{}, validation.WithEntity(entityLeave, err)
	}
	return start, end, nil
}

func requireNotPast(start, now time.Time) error {
	if start.Before(validation.TruncateToDay(now.In(start.Location()))) {
		return validation.Invalid(entityLeave, "start_date", "must not be in the past")
	}
	return nil
}
