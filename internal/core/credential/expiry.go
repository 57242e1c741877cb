// Package credential は身分証・資格・学歴の検証状態と有効期限を扱います。
package credential

import (
	"time"

	"github.com/Elzohary/unifiedcontract/internal/core/validation"
)

// Expiry は有効期限を持つ書類に共通の判定を提供します。ExpiryDate が nil なら無期限です。
type Expiry struct {
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// IsExpired は now の日付が有効期限を過ぎているかを返します。期限当日は有効です。
func (e Expiry) IsExpired(now time.Time) bool {
	days, ok := e.DaysUntilExpiry(now)
	return ok && days < 0
}

// IsExpiringSoon は期限切れではなく、残り日数が thresholdDays 以下かを返します。
func (e Expiry) IsExpiringSoon(now time.Time, thresholdDays int) bool {
	days, ok := e.DaysUntilExpiry(now)
	return ok && days >= 0 && days <= thresholdDays
}

// DaysUntilExpiry は now の日付から有効期限までの日数を返します。期限がない場合は false です。
func (e Expiry) DaysUntilExpiry(now time.Time) (int, bool) {
	if e.ExpiryDate == nil {
		return 0, false
	}
	local := now.In(e.ExpiryDate.Location())
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	expiry := time.Date(e.ExpiryDate.Year(), e.ExpiryDate.Month(), e.ExpiryDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(expiry.Sub(today).Hours() / 24), true
}

func validateIssueExpiry(entity string, issue, expiry *time.Time) error {
	if issue == nil || expiry == nil {
		return nil
	}
	if err := validation.RequireDateOrder("issue_date", *issue, "expiry_date", *expiry); err != nil {
		return validation.WithEntity(entity, err)
	}
	return nil
}
