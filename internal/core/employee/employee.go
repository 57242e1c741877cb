// Package employee は社員の人事情報、指揮系統、休暇残日数、スキルを扱います。
package employee

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	entityEmployee = "employee"

	// DefaultOffDays は入社時に付与される年次休暇日数です。
	DefaultOffDays = 30

	maxNumberLength   = 20
	maxNameLength     = 100
	maxEmailLength    = 255
	maxPhoneLength    = 20
	maxJobTitleLength = 100
)

const (
	EventEmployeeCreated            = "EmployeeCreatedEvent"
	EventEmployeeUpdated            = "EmployeeUpdatedEvent"
	EventEmployeeManagerAssigned    = "EmployeeManagerAssignedEvent"
	EventEmployeeManagerRemoved     = "EmployeeManagerRemovedEvent"
	EventEmployeeDepartmentAssigned = "EmployeeDepartmentAssignedEvent"
	EventEmployeeDepartmentRemoved  = "EmployeeDepartmentRemovedEvent"
	EventEmployeeOffDaysDeducted    = "EmployeeOffDaysDeductedEvent"
	EventEmployeeOffDaysRestored    = "EmployeeOffDaysRestoredEvent"
	EventEmployeeSickLeaveRecorded  = "EmployeeSickLeaveRecordedEvent"
	EventEmployeeSickLeaveReverted  = "EmployeeSickLeaveRevertedEvent"
	EventEmployeeSkillAdded         = "EmployeeSkillAddedEvent"
	EventEmployeeSkillUpdated       = "EmployeeSkillUpdatedEvent"
	EventEmployeeTerminated         = "EmployeeTerminatedEvent"
)

var numberPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Status は社員の状態を表します。
type Status string

const (
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
)

// Employee は社員エンティティです。
//
// Invariants:
//   - DirectManagerID は自分自身を指さない
//   - OffDays >= 0, SickLeaveCounter >= 0
//   - TerminatedAt != nil ならば HireDate <= TerminatedAt
type Employee struct {
	ID               string          `json:"id"`
	EmployeeNumber   string          `json:"employee_number"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	Email            string          `json:"email"`
	Phone            *string         `json:"phone,omitempty"`
	JobTitle         *string         `json:"job_title,omitempty"`
	HireDate         time.Time       `json:"hire_date"`
	TerminatedAt     *time.Time      `json:"terminated_at,omitempty"`
	Status           Status          `json:"status"`
	DepartmentID     *string         `json:"department_id,omitempty"`
	DirectManagerID  *string         `json:"direct_manager_id,omitempty"`
	OffDays          int             `json:"off_days"`
	SickLeaveCounter int             `json:"sick_leave_counter"`
	Skills           []EmployeeSkill `json:"skills,omitempty"`
	shared.AuditInfo `json:"-"`
}

// Params は社員の生成パラメータです。
type Params struct {
	ID              string
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

// Patch は社員の部分更新です。
type Patch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	JobTitle  *string
	HireDate  *time.Time
}

// New は在籍中の社員を生成します。年次休暇は DefaultOffDays 日付与されます。
func New(p Params, sink event.Sink) (*Employee, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return nil, validation.WithEntity(entityEmployee, err)
	}
	number, err := normalizeNumber(p.EmployeeNumber)
	if err != nil {
		return nil, err
	}
	firstName, err := validation.RequireNonEmpty("first_name", p.FirstName, maxNameLength)
	if err != nil {
		return nil, validation.WithEntity(entityEmployee, err)
	}
	lastName, err := validation.RequireNonEmpty("last_name", p.LastName, maxNameLength)
	if err != nil {
		return nil, validation.WithEntity(entityEmployee, err)
	}
	email, err := normalizeEmail(p.Email)
	if err != nil {
		return nil, err
	}
	phone, err := validation.RequireMaxLength("phone", p.Phone, maxPhoneLength)
	if err != nil {
		return nil, validation.WithEntity(entityEmployee, err)
	}
	jobTitle, err := validation.RequireMaxLength("job_title", p.JobTitle, maxJobTitleLength)
	if err != nil {
		return nil, validation.WithEntity(entityEmployee, err)
	}
	if err := validation.RequireDate("hire_date", p.HireDate); err != nil {
		return nil, validation.WithEntity(entityEmployee, err)
	}

	e := &Employee{
		ID:             id,
		EmployeeNumber: number,
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		Phone:          phone,
		JobTitle:       jobTitle,
		HireDate:       normalizeDate(p.HireDate),
		Status:         StatusActive,
		OffDays:        DefaultOffDays,
	}
	if p.DepartmentID != nil {
		department, err := validation.RequireID("department_id", *p.DepartmentID)
		if err != nil {
			return nil, validation.WithEntity(entityEmployee, err)
		}
		e.DepartmentID = &department
	}
	if p.DirectManagerID != nil {
		manager, err := e.validateManager(*p.DirectManagerID)
		if err != nil {
			return nil, err
		}
		e.DirectManagerID = &manager
	}

	e.record(sink, EventEmployeeCreated)
	return e, nil
}

func (e *Employee) record(sink event.Sink, name string) {
	snapshot := *e
	snapshot.Skills = append([]EmployeeSkill(nil), e.Skills...)
	sink.Record(event.New(name, entityEmployee, e.ID, snapshot))
}

// FullName は氏名を返します。
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

func (e *Employee) validateManager(managerID string) (string, error) {
	manager, err := validation.RequireID("direct_manager_id", managerID)
	if err != nil {
		return "", validation.WithEntity(entityEmployee, err)
	}
	if manager == e.ID {
		return "", validation.Invalid(entityEmployee, "direct_manager_id", "must not reference the employee itself")
	}
	return manager, nil
}

// AssignManager は直属の上長を設定します。
func (e *Employee) AssignManager(managerID string, sink event.Sink) error {
	manager, err := e.validateManager(managerID)
	if err != nil {
		return err
	}
	if e.DirectManagerID != nil && *e.DirectManagerID == manager {
		return nil
	}
	e.DirectManagerID = &manager
	e.record(sink, EventEmployeeManagerAssigned)
	return nil
}

// RemoveManager は直属の上長を外します。
func (e *Employee) RemoveManager(sink event.Sink) {
	if e.DirectManagerID == nil {
		return
	}
	e.DirectManagerID = nil
	e.record(sink, EventEmployeeManagerRemoved)
}

// AssignDepartment は所属部署を設定します。
func (e *Employee) AssignDepartment(departmentID string, sink event.Sink) error {
	department, err := validation.RequireID("department_id", departmentID)
	if err != nil {
		return validation.WithEntity(entityEmployee, err)
	}
	if e.DepartmentID != nil && *e.DepartmentID == department {
		return nil
	}
	e.DepartmentID = &department
	e.record(sink, EventEmployeeDepartmentAssigned)
	return nil
}

// RemoveDepartment は所属部署を外します。
func (e *Employee) RemoveDepartment(sink event.Sink) {
	if e.DepartmentID == nil {
		return
	}
	e.DepartmentID = nil
	e.record(sink, EventEmployeeDepartmentRemoved)
}

// UpdateDetails は個人情報・職務情報を部分更新します。
func (e *Employee) UpdateDetails(p Patch, sink event.Sink) (bool, error) {
	next := *e

	if p.FirstName != nil {
		v, err := validation.RequireNonEmpty("first_name", *p.FirstName, maxNameLength)
		if err != nil {
			return false, validation.WithEntity(entityEmployee, err)
		}
		next.FirstName = v
	}
	if p.LastName != nil {
		v, err := validation.RequireNonEmpty("last_name", *p.LastName, maxNameLength)
		if err != nil {
			return false, validation.WithEntity(entityEmployee, err)
		}
		next.LastName = v
	}
	if p.Email != nil {
		v, err := normalizeEmail(*p.Email)
		if err != nil {
			return false, err
		}
		next.Email = v
	}
	if p.Phone != nil {
		v, err := validation.RequireMaxLength("phone", p.Phone, maxPhoneLength)
		if err != nil {
			return false, validation.WithEntity(entityEmployee, err)
		}
		next.Phone = v
	}
	if p.JobTitle != nil {
		v, err := validation.RequireMaxLength("job_title", p.JobTitle, maxJobTitleLength)
		if err != nil {
			return false, validation.WithEntity(entityEmployee, err)
		}
		next.JobTitle = v
	}
	if p.HireDate != nil {
		if err := validation.RequireDate("hire_date", *p.HireDate); err != nil {
			return false, validation.WithEntity(entityEmployee, err)
		}
		next.HireDate = normalizeDate(*p.HireDate)
		if next.TerminatedAt != nil {
			if err := validation.RequireDateOrder("hire_date", next.HireDate, "terminated_at", *next.TerminatedAt); err != nil {
				return false, validation.WithEntity(entityEmployee, err)
			}
		}
	}

	changed := next.FirstName != e.FirstName ||
		next.LastName != e.LastName ||
		next.Email != e.Email ||
		!shared.EqualString(next.Phone, e.Phone) ||
		!shared.EqualString(next.JobTitle, e.JobTitle) ||
		!next.HireDate.Equal(e.HireDate)
	if !changed {
		return false, nil
	}

	*e = next
	e.record(sink, EventEmployeeUpdated)
	return true, nil
}

// DeductOffDays は承認された年次休暇の日数を残日数から差し引きます。
func (e *Employee) DeductOffDays(days int, sink event.Sink) error {
	if days <= 0 {
		return validation.Invalid(entityEmployee, "days", "must be positive")
	}
	if days > e.OffDays {
		return ErrInsufficientLeaveBalance
	}
	e.OffDays -= days
	e.record(sink, EventEmployeeOffDaysDeducted)
	return nil
}

// RestoreOffDays は取り消された年次休暇の日数を残日数に戻します。
func (e *Employee) RestoreOffDays(days int, sink event.Sink) error {
	if days <= 0 {
		return validation.Invalid(entityEmployee, "days", "must be positive")
	}
	e.OffDays += days
	e.record(sink, EventEmployeeOffDaysRestored)
	return nil
}

// RecordSickLeave は病欠回数を 1 増やします。
func (e *Employee) RecordSickLeave(sink event.Sink) {
	e.SickLeaveCounter++
	e.record(sink, EventEmployeeSickLeaveRecorded)
}

// RevertSickLeave は病欠回数を 1 減らします。
func (e *Employee) RevertSickLeave(sink event.Sink) error {
	if e.SickLeaveCounter == 0 {
		return validation.InvalidState(entityEmployee, "revert sick leave", "no sick leave recorded")
	}
	e.SickLeaveCounter--
	e.record(sink, EventEmployeeSickLeaveReverted)
	return nil
}

// Terminate は退職日を設定し、社員を退職状態にします。
func (e *Employee) Terminate(date time.Time, sink event.Sink) error {
	if e.Status == StatusTerminated {
		return validation.InvalidState(entityEmployee, "terminate", string(e.Status))
	}
	if err := validation.RequireDate("terminated_at", date); err != nil {
		return validation.WithEntity(entityEmployee, err)
	}
	terminatedAt := normalizeDate(date)
	if err := validation.RequireDateOrder("hire_date", e.HireDate, "terminated_at", terminatedAt); err != nil {
		return validation.WithEntity(entityEmployee, err)
	}
	e.Status = StatusTerminated
	e.TerminatedAt = &terminatedAt
	e.record(sink, EventEmployeeTerminated)
	return nil
}

func normalizeNumber(raw string) (string, error) {
	trimmed, err := validation.RequireNonEmpty("employee_number", raw, maxNumberLength)
	if err != nil {
		return "", validation.WithEntity(entityEmployee, err)
	}
	lower := strings.ToLower(trimmed)
	if !numberPattern.MatchString(lower) {
		return "", validation.Invalid(entityEmployee, "employee_number", "must contain only lowercase letters, digits, '-' or '_'")
	}
	return lower, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed, err := validation.RequireNonEmpty("email", raw, maxEmailLength)
	if err != nil {
		return "", validation.WithEntity(entityEmployee, err)
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", validation.Invalid(entityEmployee, "email", "must be a valid address")
	}
	return strings.ToLower(addr.Address), nil
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusTerminated:
		return true
	default:
		return false
	}
}
