package compensation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Elzohary/unifiedcontract/internal/core/event"
	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/temporal"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	maxAdjustmentTypeLength = 50
	maxDescriptionLength    = 500
)

// Adjustment は手当・控除に共通する有効期間付きの金額です。
//
// Invariants:
//   - Type は 1..50 文字
//   - Amount >= 0
//   - Currency は ISO-4217 形式
//   - 有効期間の不変条件 (temporal.Period)
type Adjustment struct {
	ID          string          `json:"id"`
	SalaryID    string          `json:"salary_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	IsActive    bool            `json:"is_active"`
	Description *string         `json:"description,omitempty"`
	temporal.Period
	shared.AuditInfo `json:"-"`
}

// AdjustmentParams は手当・控除の生成パラメータです。
type AdjustmentParams struct {
	ID            string
	SalaryID      string
	Type          string
	Amount        decimal.Decimal
	Currency      string
	EffectiveDate time.Time
	EndDate       *time.Time
	Description   *string
}

// AdjustmentPatch は手当・控除の部分更新です。nil の項目は変更しません。
type AdjustmentPatch struct {
	Type          *string
	Amount        *decimal.Decimal
	Currency      *string
	EffectiveDate *time.Time
	Description   *string
}

// Allowance は給与に加算される手当です。
type Allowance struct {
	Adjustment
	IsTaxable bool `json:"is_taxable"`
}

// Deduction は給与から差し引かれる控除です。
type Deduction struct {
	Adjustment
	IsMandatory bool `json:"is_mandatory"`
}

// AllowancePatch は手当の部分更新です。
type AllowancePatch struct {
	AdjustmentPatch
	IsTaxable *bool
}

// DeductionPatch は控除の部分更新です。
type DeductionPatch struct {
	AdjustmentPatch
	IsMandatory *bool
}

// NewAllowance は手当を生成します。イベントは給与への追加時に記録されます。
func NewAllowance(p AdjustmentParams, isTaxable bool) (*Allowance, error) {
	adj, err := newAdjustment(entityAllowance, p)
	if err != nil {
		return nil, err
	}
	return &Allowance{Adjustment: adj, IsTaxable: isTaxable}, nil
}

// NewDeduction は控除を生成します。
func NewDeduction(p AdjustmentParams, isMandatory bool) (*Deduction, error) {
	adj, err := newAdjustment(entityDeduction, p)
	if err != nil {
		return nil, err
	}
	return &Deduction{Adjustment: adj, IsMandatory: isMandatory}, nil
}

func newAdjustment(entity string, p AdjustmentParams) (Adjustment, error) {
	id, err := validation.RequireID("id", p.ID)
	if err != nil {
		return Adjustment{}, validation.WithEntity(entity, err)
	}
	typ, err := validation.RequireNonEmpty("type", p.Type, maxAdjustmentTypeLength)
	if err != nil {
		return Adjustment{}, validation.WithEntity(entity, err)
	}
	if err := validation.RequireNonNegative("amount", p.Amount); err != nil {
		return Adjustment{}, validation.WithEntity(entity, err)
	}
	currency, err := validation.RequireCurrency("currency", p.Currency)
	if err != nil {
		return Adjustment{}, validation.WithEntity(entity, err)
	}
	period, err := temporal.NewPeriod(p.EffectiveDate, p.EndDate)
	if err != nil {
		return Adjustment{}, validation.WithEntity(entity, err)
	}
	description, err := validation.RequireMaxLength("description", p.Description, maxDescriptionLength)
	if err != nil {
		return Adjustment{}, validation.WithEntity(entity, err)
	}

	return Adjustment{
		ID:          id,
		SalaryID:    p.SalaryID,
		Type:        typ,
		Amount:      p.Amount,
		Currency:    currency,
		IsActive:    true,
		Description: description,
		Period:      period,
	}, nil
}

// applyPatch は検証済みの値だけを代入し、変更の有無を返します。
func (a *Adjustment) applyPatch(entity string, p AdjustmentPatch) (bool, error) {
	next := *a

	if p.Type != nil {
		typ, err := validation.RequireNonEmpty("type", *p.Type, maxAdjustmentTypeLength)
		if err != nil {
			return false, validation.WithEntity(entity, err)
		}
		next.Type = typ
	}
	if p.Amount != nil {
		if err := validation.RequireNonNegative("amount", *p.Amount); err != nil {
			return false, validation.WithEntity(entity, err)
		}
		next.Amount = *p.Amount
	}
	if p.Currency != nil {
		currency, err := validation.RequireCurrency("currency", *p.Currency)
		if err != nil {
			return false, validation.WithEntity(entity, err)
		}
		next.Currency = currency
	}
	if p.EffectiveDate != nil {
		period, err := a.Period.WithEffectiveDate(*p.EffectiveDate)
		if err != nil {
			return false, validation.WithEntity(entity, err)
		}
		next.Period = period
	}
	if p.Description != nil {
		description, err := validation.RequireMaxLength("description", p.Description, maxDescriptionLength)
		if err != nil {
			return false, validation.WithEntity(entity, err)
		}
		next.Description = description
	}

	changed := next.Type != a.Type ||
		!next.Amount.Equal(a.Amount) ||
		next.Currency != a.Currency ||
		!next.Period.Equal(a.Period) ||
		!shared.EqualString(next.Description, a.Description)
	if changed {
		*a = next
	}
	return changed, nil
}

func (a *Adjustment) terminate(entity string, end time.Time) error {
	period, err := a.Period.Terminate(end)
	if err != nil {
		return validation.WithEntity(entity, err)
	}
	a.Period = period
	a.IsActive = false
	return nil
}

// UpdateDetails は手当を部分更新します。変更があった場合のみ AllowanceUpdatedEvent を記録します。
func (a *Allowance) UpdateDetails(p AllowancePatch, sink event.Sink) (bool, error) {
	next := a.Adjustment
	changed, err := next.applyPatch(entityAllowance, p.AdjustmentPatch)
	if err != nil {
		return false, err
	}
	taxable := a.IsTaxable
	if p.IsTaxable != nil && *p.IsTaxable != taxable {
		taxable = *p.IsTaxable
		changed = true
	}
	if !changed {
		return false, nil
	}
	a.Adjustment = next
	a.IsTaxable = taxable
	sink.Record(event.New(EventAllowanceUpdated, entityAllowance, a.ID, *a))
	return true, nil
}

// Terminate は手当の終了日を設定し無効化します。
func (a *Allowance) Terminate(end time.Time, sink event.Sink) error {
	if err := a.terminate(entityAllowance, end); err != nil {
		return err
	}
	sink.Record(event.New(EventAllowanceTerminated, entityAllowance, a.ID, *a))
	return nil
}

// UpdateDetails は控除を部分更新します。
func (d *Deduction) UpdateDetails(p DeductionPatch, sink event.Sink) (bool, error) {
	next := d.Adjustment
	changed, err := next.applyPatch(entityDeduction, p.AdjustmentPatch)
	if err != nil {
		return false, err
	}
	mandatory := d.IsMandatory
	if p.IsMandatory != nil && *p.IsMandatory != mandatory {
		mandatory = *p.IsMandatory
		changed = true
	}
	if !changed {
		return false, nil
	}
	d.Adjustment = next
	d.IsMandatory = mandatory
	sink.Record(event.New(EventDeductionUpdated, entityDeduction, d.ID, *d))
	return true, nil
}

func (d *Deduction) Terminate(end time.Time, sink event.Sink) error {
	if err := d.terminate(entityDeduction, end); err != nil {
		return err
	}
	sink.Record(event.New(EventDeductionTerminated, entityDeduction, d.ID, *d))
	return nil
}
