// Package temporal は有効期間を持つレコードの共通ルールを提供します。
package temporal

import (
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/shared"
	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

const (
	fieldEffectiveDate = "effective_date"
	fieldEndDate       = "end_date"
)

// Period は [EffectiveDate, EndDate] の有効期間です。EndDate が nil の場合は無期限です。
//
// Invariants:
//   - EffectiveDate はゼロ値ではない
//   - EndDate != nil ならば EndDate >= EffectiveDate
type Period struct {
	EffectiveDate time.Time  `json:"effective_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

// NewPeriod は Period を検証して生成します。
func NewPeriod(effective time.Time, end *time.Time) (Period, error) {
	if err := validation.RequireDate(fieldEffectiveDate, effective); err != nil {
		return Period{}, err
	}
	if end != nil {
		if err := validation.RequireDateOrder(fieldEffectiveDate, effective, fieldEndDate, *end); err != nil {
			return Period{}, err
		}
	}
	return Period{EffectiveDate: effective, EndDate: shared.CloneTime(end)}, nil
}

// IsActiveOn は d が有効期間内かを判定します。
func (p Period) IsActiveOn(d time.Time) bool {
	if d.Before(p.EffectiveDate) {
		return false
	}
	return p.EndDate == nil || !p.EndDate.Before(d)
}

// IsOpenEnded は終了日が未設定かを返します。
func (p Period) IsOpenEnded() bool {
	return p.EndDate == nil
}

// Terminate は終了日を設定した新しい Period を返します。
// 終了日は開始日より前にできず、既に終了日がある場合は延長できません。
func (p Period) Terminate(newEnd time.Time) (Period, error) {
	if err := validation.RequireDateOrder(fieldEffectiveDate, p.EffectiveDate, fieldEndDate, newEnd); err != nil {
		return p, err
	}
	if p.EndDate != nil && newEnd.After(*p.EndDate) {
		return p, validation.Invalid("", fieldEndDate, "cannot be extended beyond the current end date")
	}
	return Period{EffectiveDate: p.EffectiveDate, EndDate: &newEnd}, nil
}

// WithEffectiveDate は開始日を差し替えた Period を返します。
func (p Period) WithEffectiveDate(effective time.Time) (Period, error) {
	return NewPeriod(effective, p.EndDate)
}

// WithEndDate は終了日を差し替えた Period を返します。nil で無期限に戻します。
func (p Period) WithEndDate(end *time.Time) (Period, error) {
	return NewPeriod(p.EffectiveDate, end)
}

// Overlaps は 2 つの期間が 1 日でも重なるかを判定します。
func (p Period) Overlaps(other Period) bool {
	if p.EndDate != nil && p.EndDate.Before(other.EffectiveDate) {
		return false
	}
	if other.EndDate != nil && other.EndDate.Before(p.EffectiveDate) {
		return false
	}
	return true
}

// Equal は 2 つの期間が同一かを判定します。
func (p Period) Equal(other Period) bool {
	return p.EffectiveDate.Equal(other.EffectiveDate) && shared.EqualTime(p.EndDate, other.EndDate)
}
