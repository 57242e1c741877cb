package shared

import (
	"time"

	"github.com/google/uuid"
)

// NewID は新しい UUIDv4 文字列を生成します。
func NewID() string {
	return uuid.NewString()
}

// CloneTime はポインタの指す時刻を複製します。
func CloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// CloneString はポインタの指す文字列を複製します。
func CloneString(s *string) *string {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// EqualTime は nil を考慮して 2 つの時刻を比較します。
func EqualTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// EqualString は nil を考慮して 2 つの文字列を比較します。
func EqualString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
