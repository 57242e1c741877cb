// Package compensation は給与と、それに属する手当・控除を扱います。
package compensation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/temporal"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const maxNotesLength = 1000

// PayFrequency は支給頻度を表します。
type PayFrequency string

const (
	PayMonthly  PayFrequency = "monthly"
	PayBiWeekly PayFrequency = "biweekly"
	PayWeekly   PayFrequency = "weekly"
	PayAnnually PayFrequency = "annually"
)

func (f PayFrequency) valid() bool {
	switch f {
	case PayMonthly, PayBiWeekly, PayWeekly, PayAnnually:
		return true
	default:
		return false
	}
}

// Salary は社員の有効期間付き基本給と手当・控除の集約ルートです。
// 手当・控除は Salary だけが所有し、追加順を保持します。
//
// Invariants:
//   - BaseSalary >= 0
//   - Currency は ISO-4217 形式
//   - 有効期間の不変条件 (temporal.Period)
//   - Allowances / Deductions の SalaryID はすべて ID と一致し、ID は重複しない
type Salary struct {
	ID           string          `json:"id"`
	EmployeeID   string          `json:"employee_id"`
	BaseSalary   decimal.Decimal `json:"base_salary"`
	Currency     string          `json:"currency"`
	IsActive     bool            `json:"is_active"`
	PayFrequency PayFrequency    `json:"pay_frequency"`
	Notes        *string         `json:"notes,omitempty"`
	Allowances   []*Allowance    `json:"allowances"`
	Deductions   []*Deduction    `json:"deductions"`
	temporal.Period
	shared.AuditInfo `json:"-"`
}

// SalaryParams は給与の生成パラメータです。
type SalaryParams struct {
	ID            string
	EmployeeID    string
	BaseSalary    decimal.Decimal
	Currency      string
	EffectiveDate time.Time
	EndDate       *time.Time
	PayFrequency  PayFrequency
	Notes         *string
}

// SalaryPatch は給与の部分更新です。終了日の変更は Terminate で行います。
type SalaryPatch struct {
	BaseSalary    *decimal.Decimal
	Currency      *string
	EffectiveDate *time.Time
	PayFrequency  *PayFrequency
	Notes         *string
}

// NewSalary は有効な状態の給与を生成し SalaryCreatedEvent を記録します。
func NewSalary(p SalaryParams, sink event.Sink) (*Salary, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}
	employeeID, err := validation.RequireID("employee_id", p.EmployeeID)
	if err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}
	if err := validation.RequireNonNegative("base_salary", p.BaseSalary); err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}
	currency, err := validation.RequireCurrency("currency", p.Currency)
	if err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}
	period, err := temporal.NewPeriod(p.EffectiveDate, p.EndDate)
	if err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}
	frequency := p.PayFrequency
	if frequency == "" {
		frequency = PayMonthly
	}
	if !frequency.valid() {
		return nil, validation.Invalid(entitySalary, "pay_frequency", "unsupported pay frequency")
	}
	notes, err := validation.RequireMaxLength("notes", p.Notes, maxNotesLength)
	if err != nil {
		return nil, validation.WithEntity(entitySalary, err)
	}

	s := &Salary{
		ID:           id,
		EmployeeID:   employeeID,
		BaseSalary:   p.BaseSalary,
		Currency:     currency,
		IsActive:     true,
		PayFrequency: frequency,
		Notes:        notes,
		Period:       period,
	}
	sink.Record(event.New(EventSalaryCreated, entitySalary, s.ID, s.Snapshot()))
	return s, nil
}

// Snapshot はイベントに載せるための複製を返します。
func (s *Salary) Snapshot() Salary {
	clone := *s
	clone.Allowances = make([]*Allowance, len(s.Allowances))
	for i, a := range s.Allowances {
		copied := *a
		clone.Allowances[i] = &copied
	}
	clone.Deductions = make([]*Deduction, len(s.Deductions))
	for i, d := range s.Deductions {
		copied := *d
		clone.Deductions[i] = &copied
	}
	return clone
}

// AddAllowance は手当を末尾に追加し AllowanceAddedEvent を記録します。
func (s *Salary) AddAllowance(a *Allowance, sink event.Sink) error {
	if a == nil {
		return validation.Invalid(entitySalary, "allowance", "must be provided")
	}
	if err := s.checkOwnership(a.ID, a.SalaryID); err != nil {
		return err
	}
	a.SalaryID = s.ID
	s.Allowances = append(s.Allowances, a)
	sink.Record(event.New(EventAllowanceAdded, entitySalary, s.ID, *a))
	return nil
}

// AddDeduction は控除を末尾に追加し DeductionAddedEvent を記録します。
func (s *Salary) AddDeduction(d *Deduction, sink event.Sink) error {
	if d == nil {
		return validation.Invalid(entitySalary, "deduction", "must be provided")
	}
	if err := s.checkOwnership(d.ID, d.SalaryID); err != nil {
		return err
	}
	d.SalaryID = s.ID
	s.Deductions = append(s.Deductions, d)
	sink.Record(event.New(EventDeductionAdded, entitySalary, s.ID, *d))
	return nil
}

func (s *Salary) checkOwnership(id, salaryID string) error {
	if salaryID != "" && salaryID != s.ID {
		return ErrForeignAdjustment
	}
	for _, a := range s.Allowances {
		if a.ID == id {
			return ErrDuplicateAdjustment
		}
	}
	for _, d := range s.Deductions {
		if d.ID == id {
			return ErrDuplicateAdjustment
		}
	}
	return nil
}

// Allowance は ID で手当を探します。
func (s *Salary) Allowance(id string) (*Allowance, error) {
	for _, a := range s.Allowances {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrAllowanceNotFound
}

// Deduction は ID で控除を探します。
func (s *Salary) Deduction(id string) (*Deduction, error) {
	for _, d := range s.Deductions {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, ErrDeductionNotFound
}

// RemoveAllowance は手当を取り除きます。残りの順序は保持されます。
func (s *Salary) RemoveAllowance(id string, sink event.Sink) error {
	for i, a := range s.Allowances {
		if a.ID == id {
			s.Allowances = append(s.Allowances[:i:i], s.Allowances[i+1:]...)
			sink.Record(event.New(EventAllowanceRemoved, entitySalary, s.ID, *a))
			return nil
		}
	}
	return ErrAllowanceNotFound
}

func (s *Salary) RemoveDeduction(id string, sink event.Sink) error {
	for i, d := range s.Deductions {
		if d.ID == id {
			s.Deductions = append(s.Deductions[:i:i], s.Deductions[i+1:]...)
			sink.Record(event.New(EventDeductionRemoved, entitySalary, s.ID, *d))
			return nil
		}
	}
	return ErrDeductionNotFound
}

// UpdateDetails は指定された項目だけを検証・反映します。
// 値が実際に変わった場合に限り SalaryUpdatedEvent を 1 件記録します。
func (s *Salary) UpdateDetails(p SalaryPatch, sink event.Sink) (bool, error) {
	base := s.BaseSalary
	if p.BaseSalary != nil {
		if err := validation.RequireNonNegative("base_salary", *p.BaseSalary); err != nil {
			return false, validation.WithEntity(entitySalary, err)
		}
		base = *p.BaseSalary
	}
	currency := s.Currency
	if p.Currency != nil {
		c, err := validation.RequireCurrency("currency", *p.Currency)
		if err != nil {
			return false, validation.WithEntity(entitySalary, err)
		}
		currency = c
	}
	period := s.Period
	if p.EffectiveDate != nil {
		next, err := s.Period.WithEffectiveDate(*p.EffectiveDate)
		if err != nil {
			return false, validation.WithEntity(entitySalary, err)
		}
		period = next
	}
	frequency := s.PayFrequency
	if p.PayFrequency != nil {
		if !p.PayFrequency.valid() {
			return false, validation.Invalid(entitySalary, "pay_frequency", "unsupported pay frequency")
		}
		frequency = *p.PayFrequency
	}
	notes := s.Notes
	if p.Notes != nil {
		n, err := validation.RequireMaxLength("notes", p.Notes, maxNotesLength)
		if err != nil {
			return false, validation.WithEntity(entitySalary, err)
		}
		notes = n
	}

	changed := !base.Equal(s.BaseSalary) ||
		currency != s.Currency ||
		!period.Equal(s.Period) ||
		frequency != s.PayFrequency ||
		!shared.EqualString(notes, s.Notes)
	if !changed {
		return false, nil
	}

	s.BaseSalary = base
	s.Currency = currency
	s.Period = period
	s.PayFrequency = frequency
	s.Notes = notes
	sink.Record(event.New(EventSalaryUpdated, entitySalary, s.ID, s.Snapshot()))
	return true, nil
}

// Terminate は終了日を設定して給与を無効化し SalaryTerminatedEvent を記録します。
// 終了日は開始日より前にできず、既存の終了日より後ろにも延ばせません。
func (s *Salary) Terminate(end time.Time, sink event.Sink) error {
	period, err := s.Period.Terminate(end)
	if err != nil {
		return validation.WithEntity(entitySalary, err)
	}
	s.Period = period
	s.IsActive = false
	sink.Record(event.New(EventSalaryTerminated, entitySalary, s.ID, s.Snapshot()))
	return nil
}

// CalculateNetSalary は at 時点の手取りを返します。at が nil の場合は now を使います。
//
// net = BaseSalary + Σ(at に有効な手当) − Σ(at に有効な控除)
//
// 手当・控除の通貨は換算せず同一単位として合算します。
func (s *Salary) CalculateNetSalary(at *time.Time, now time.Time) decimal.Decimal {
	when := now
	if at != nil {
		when = *at
	}
	return s.BaseSalary.Add(s.TotalAllowances(when)).Sub(s.TotalDeductions(when))
}

// TotalAllowances は at 時点で有効な手当の合計です。
func (s *Salary) TotalAllowances(at time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Allowances {
		if a.IsActiveOn(at) {
			total = total.Add(a.Amount)
		}
	}
	return total
}

// TotalDeductions は at 時点で有効な控除の合計です。
func (s *Salary) TotalDeductions(at time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, d := range s.Deductions {
		if d.IsActiveOn(at) {
			total = total.Add(d.Amount)
		}
	}
	return total
}
