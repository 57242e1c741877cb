// Package validation はエンティティ共通の項目検証関数を提供します。
//
// すべての関数は副作用を持たず、最初に見つかった違反を *ValidationError として返します。
// エンティティ側は全項目の検証が終わってから値を代入します。
package validation

import (
	"cmp"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// RequireNonEmpty は前後の空白を除いた値が空でなく maxLen 文字以内であることを検証します。
func RequireNonEmpty(field, value string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", Invalid("", field, "must not be empty")
	}
	if maxLen > 0 && utf8.RuneCountInString(trimmed) > maxLen {
		return "", Invalid("", field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return trimmed, nil
}

// RequireMaxLength は任意項目の文字数上限を検証します。空文字は nil に正規化されます。
func RequireMaxLength(field string, value *string, maxLen int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxLen {
		return nil, Invalid("", field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return &trimmed, nil
}

// RequireID は不透明な識別子が空でないことを検証します。
func RequireID(field, id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", Invalid("", field, "must not be empty")
	}
	return trimmed, nil
}

// RequireInRange は lo <= n <= hi を検証します。NaN は範囲外として扱います。
func RequireInRange[T cmp.Ordered](field string, n, lo, hi T) error {
	if n != n || n < lo || n > hi {
		return Invalid("", field, fmt.Sprintf("must be between %v and %v", lo, hi))
	}
	return nil
}

// RequireNonNegative は金額が 0 以上であることを検証します。
func RequireNonNegative(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return Invalid("", field, "must not be negative")
	}
	return nil
}

// RequireDate はゼロ値でない日時であることを検証します。
func RequireDate(field string, t time.Time) error {
	if t.IsZero() {
		return Invalid("", field, "must be set")
	}
	return nil
}

// RequireDateOrder は end が start より前でないことを検証します。
func RequireDateOrder(startField string, start time.Time, endField string, end time.Time) error {
	if end.Before(start) {
		return Invalid("", endField, "must be on or after "+startField)
	}
	return nil
}

// RequireCurrency は ISO-4217 形式(英字3文字)の通貨コードを検証し大文字で返します。
func RequireCurrency(field, code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !currencyPattern.MatchString(normalized) {
		return "", Invalid("", field, "must be a 3-letter ISO-4217 code")
	}
	return normalized, nil
}

// TruncateToDay は日時を同じロケーションの 0 時に切り捨てます。
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay は 2 つの日時が同じ暦日かを判定します。
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
