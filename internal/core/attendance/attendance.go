// Package attendance は社員 1 人 1 日あたりの勤怠記録を扱います。
package attendance

import (
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	entityAttendance = "attendance"

	// WorkdayStartHour は遅刻判定の基準時刻です。
	WorkdayStartHour = 9
	// WorkdayEndHour は早退・残業判定の基準時刻です。
	WorkdayEndHour = 17

	maxLocationLength = 200
	maxNotesLength    = 500
)

const (
	EventAttendanceCreated       = "AttendanceCreatedEvent"
	EventAttendanceCheckedIn     = "AttendanceCheckedInEvent"
	EventAttendanceCheckedOut    = "AttendanceCheckedOutEvent"
	EventAttendanceMarkedAbsent  = "AttendanceMarkedAbsentEvent"
	EventAttendanceMarkedHalfDay = "AttendanceMarkedHalfDayEvent"
	EventAttendanceMarkedOnLeave = "AttendanceMarkedOnLeaveEvent"
	EventAttendanceNotesUpdated  = "AttendanceNotesUpdatedEvent"
)

// Status は勤怠記録の派生状態です。
type Status string

const (
	StatusNormal     Status = "normal"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusAbsent     Status = "absent"
	StatusHalfDay    Status = "half_day"
	StatusOnLeave    Status = "on_leave"
)

// Attendance は (EmployeeID, Date) ごとに 1 件の勤怠記録です。
// 一意性は永続化境界が保証します。
//
// Invariants:
//   - Date は 0 時に切り捨てられている
//   - IsAbsent / IsHalfDay / IsOnLeave は同時に立たない
//   - IsAbsent / IsOnLeave のときは出退勤が記録されていない
//   - IsOnLeave ならば LeaveID が設定されている
//   - CheckOut != nil ならば CheckIn != nil かつ CheckOut >= CheckIn
type Attendance struct {
	ID                    string        `json:"id"`
	EmployeeID            string        `json:"employee_id"`
	Date                  time.Time     `json:"date"`
	CheckIn               *time.Time    `json:"check_in,omitempty"`
	CheckOut              *time.Time    `json:"check_out,omitempty"`
	CheckInLocation       *string       `json:"check_in_location,omitempty"`
	CheckOutLocation      *string       `json:"check_out_location,omitempty"`
	IsAbsent              bool          `json:"is_absent"`
	IsHalfDay             bool          `json:"is_half_day"`
	IsOnLeave             bool          `json:"is_on_leave"`
	LeaveID               *string       `json:"leave_id,omitempty"`
	LateMinutes           int           `json:"late_minutes"`
	EarlyDepartureMinutes int           `json:"early_departure_minutes"`
	WorkingDuration       time.Duration `json:"working_duration"`
	Overtime              time.Duration `json:"overtime"`
	Notes                 *string       `json:"notes,omitempty"`
	shared.AuditInfo      `json:"-"`
}

// New は出退勤のない勤怠記録を生成し AttendanceCreatedEvent を記録します。
func New(id, employeeID string, date time.Time, sink event.Sink) (*Attendance, error) {
	id, err := validation.RequireID("id", id)
	if err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}
	employeeID, err = validation.RequireID("employee_id", employeeID)
	if err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}
	if err := validation.RequireDate("date", date); err != nil {
		return nil, validation.WithEntity(entityAttendance, err)
	}

	a := &Attendance{
		ID:         id,
		EmployeeID: employeeID,
		Date:       DayOf(date),
	}
	a.record(sink, EventAttendanceCreated)
	return a, nil
}

// DayOf は t を含む UTC の暦日を返します。勤怠日と基準時刻は UTC で扱い、
// DATE 列から読み戻した値と一致させます。
func DayOf(t time.Time) time.Time {
	return validation.TruncateToDay(t.UTC())
}

func (a *Attendance) record(sink event.Sink, name string) {
	sink.Record(event.New(name, entityAttendance, a.ID, *a))
}

func (a *Attendance) referenceTime(hour int) time.Time {
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), hour, 0, 0, 0, a.Date.Location())
}

func (a *Attendance) hasTimestamps() bool {
	return a.CheckIn != nil || a.CheckOut != nil
}

// Status は現在のフラグと出退勤から派生状態を返します。
func (a *Attendance) Status() Status {
	switch {
	case a.IsOnLeave:
		return StatusOnLeave
	case a.IsAbsent:
		return StatusAbsent
	case a.CheckOut != nil:
		return StatusCheckedOut
	case a.CheckIn != nil:
		return StatusCheckedIn
	case a.IsHalfDay:
		return StatusHalfDay
	default:
		return StatusNormal
	}
}

// WorkingHours は勤務時間を時間単位で返します。
func (a *Attendance) WorkingHours() float64 {
	return a.WorkingDuration.Hours()
}

// OvertimeHours は残業時間を時間単位で返します。
func (a *Attendance) OvertimeHours() float64 {
	return a.Overtime.Hours()
}

// RecordCheckIn は出勤を記録し、09:00 からの遅刻分数を算出します。
func (a *Attendance) RecordCheckIn(at time.Time, location *string, sink event.Sink) error {
	switch {
	case a.IsAbsent:
		return validation.InvalidState(entityAttendance, "check in", string(StatusAbsent))
	case a.IsOnLeave:
		return validation.InvalidState(entityAttendance, "check in", string(StatusOnLeave))
	case a.CheckIn != nil:
		return validation.InvalidState(entityAttendance, "check in", string(a.Status()))
	}
	if !validation.SameDay(a.Date, at) {
		return validation.Invalid(entityAttendance, "check_in", "must be on the attendance date")
	}
	loc, err := validation.RequireMaxLength("check_in_location", location, maxLocationLength)
	if err != nil {
		return validation.WithEntity(entityAttendance, err)
	}

	at = at.UTC()
	a.CheckIn = &at
	a.CheckInLocation = loc
	a.LateMinutes = minutesAfter(at, a.referenceTime(WorkdayStartHour))
	a.record(sink, EventAttendanceCheckedIn)
	return nil
}

// RecordCheckOut は退勤を記録し、勤務時間・早退・残業を算出します。
func (a *Attendance) RecordCheckOut(at time.Time, location *string, sink event.Sink) error {
	switch {
	case a.CheckIn == nil:
		return validation.InvalidState(entityAttendance, "check out", string(a.Status()))
	case a.CheckOut != nil:
		return validation.InvalidState(entityAttendance, "check out", string(StatusCheckedOut))
	}
	if at.Before(*a.CheckIn) {
		return validation.Invalid(entityAttendance, "check_out", "must not be before check_in")
	}
	if !validation.SameDay(a.Date, at) {
		return validation.Invalid(entityAttendance, "check_out", "must be on the attendance date")
	}
	loc, err := validation.RequireMaxLength("check_out_location", location, maxLocationLength)
	if err != nil {
		return validation.WithEntity(entityAttendance, err)
	}

	at = at.UTC()
	end := a.referenceTime(WorkdayEndHour)
	a.CheckOut = &at
	a.CheckOutLocation = loc
	a.WorkingDuration = at.Sub(*a.CheckIn)
	a.EarlyDepartureMinutes = minutesAfter(end, at)
	a.Overtime = max(0, at.Sub(end))
	a.record(sink, EventAttendanceCheckedOut)
	return nil
}

// MarkAsAbsent は欠勤にします。休暇中または出退勤済みの場合は失敗します。
func (a *Attendance) MarkAsAbsent(sink event.Sink) error {
	if a.IsOnLeave {
		return validation.InvalidState(entityAttendance, "mark absent", string(StatusOnLeave))
	}
	if a.hasTimestamps() {
		return validation.InvalidState(entityAttendance, "mark absent", string(a.Status()))
	}
	if a.IsAbsent {
		return nil
	}
	a.IsAbsent = true
	a.IsHalfDay = false
	a.record(sink, EventAttendanceMarkedAbsent)
	return nil
}

// MarkAsHalfDay は半日勤務にし、欠勤フラグを解除します。
func (a *Attendance) MarkAsHalfDay(sink event.Sink) error {
	if a.IsOnLeave {
		return validation.InvalidState(entityAttendance, "mark half day", string(StatusOnLeave))
	}
	if a.IsHalfDay {
		return nil
	}
	a.IsHalfDay = true
	a.IsAbsent = false
	a.record(sink, EventAttendanceMarkedHalfDay)
	return nil
}

// MarkAsOnLeave は承認済み休暇に紐づけます。
func (a *Attendance) MarkAsOnLeave(leaveID string, sink event.Sink) error {
	id, err := validation.RequireID("leave_id", leaveID)
	if err != nil {
		return validation.WithEntity(entityAttendance, err)
	}
	if a.IsAbsent {
		return validation.InvalidState(entityAttendance, "mark on leave", string(StatusAbsent))
	}
	if a.hasTimestamps() {
		return validation.InvalidState(entityAttendance, "mark on leave", string(a.Status()))
	}
	if a.IsOnLeave && a.LeaveID != nil && *a.LeaveID == id {
		return nil
	}
	a.IsOnLeave = true
	a.IsHalfDay = false
	a.LeaveID = &id
	a.record(sink, EventAttendanceMarkedOnLeave)
	return nil
}

// UpdateNotes は備考を更新します。値が変わらない場合はイベントを記録しません。
func (a *Attendance) UpdateNotes(notes *string, sink event.Sink) (bool, error) {
	if notes == nil {
		return false, nil
	}
	normalized, err := validation.RequireMaxLength("notes", notes, maxNotesLength)
	if err != nil {
		return false, validation.WithEntity(entityAttendance, err)
	}
	if shared.EqualString(normalized, a.Notes) {
		return false, nil
	}
	a.Notes = normalized
	a.record(sink, EventAttendanceNotesUpdated)
	return true, nil
}

// minutesAfter は t が ref より後ろにある分数を返します。前の場合は 0 です。
func minutesAfter(t, ref time.Time) int {
	if !t.After(ref) {
		return 0
	}
	return int(t.Sub(ref) / time.Minute)
}
