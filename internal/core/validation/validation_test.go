package validation

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireNonEmpty(t *testing.T) {
	t.Run("trims value", func(t *testing.T) {
		got, err := RequireNonEmpty("reason", "  sick  ", 10)
		require.NoError(t, err)
		assert.Equal(t, "sick", got)
	})

	t.Run("rejects blank", func(t *testing.T) {
		_, err := RequireNonEmpty("reason", "   ", 10)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("rejects too long", func(t *testing.T) {
		_, err := RequireNonEmpty("reason", strings.Repeat("a", 11), 10)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "reason", ve.Field)
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		_, err := RequireNonEmpty("name", "日本語", 3)
		assert.NoError(t, err)
	})
}

func TestRequireMaxLength(t *testing.T) {
	got, err := RequireMaxLength("notes", nil, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	blank := "  "
	got, err = RequireMaxLength("notes", &blank, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	long := "abcdef"
	_, err = RequireMaxLength("notes", &long, 5)
	assert.True(t, IsValidation(err))
}

func TestRequireInRange(t *testing.T) {
	assert.NoError(t, RequireInRange("level", 1, 1, 5))
	assert.NoError(t, RequireInRange("level", 5, 1, 5))
	assert.Error(t, RequireInRange("level", 0, 1, 5))
	assert.Error(t, RequireInRange("level", 6, 1, 5))
	assert.Error(t, RequireInRange("score", 100.5, 0.0, 100.0))
	assert.True(t, IsValidation(RequireInRange("score", math.NaN(), 0.0, 100.0)))
}

func TestRequireNonNegative(t *testing.T) {
	assert.NoError(t, RequireNonNegative("amount", decimal.Zero))
	assert.Error(t, RequireNonNegative("amount", decimal.NewFromInt(-1)))
}

func TestRequireDateOrder(t *testing.T) {
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, RequireDateOrder("start", start, "end", start))
	assert.NoError(t, RequireDateOrder("start", start, "end", start.AddDate(0, 0, 1)))

	err := RequireDateOrder("start", start, "end", start.AddDate(0, 0, -1))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "end", ve.Field)
}

func TestRequireCurrency(t *testing.T) {
	got, err := RequireCurrency("currency", " egp ")
	require.NoError(t, err)
	assert.Equal(t, "EGP", got)

	for _, bad := range []string{"", "US", "USDX", "U$D"} {
		_, err := RequireCurrency("currency", bad)
		assert.Error(t, err, bad)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	ve := Invalid("leave", "reason", "must not be empty")
	se := InvalidState("leave", "approve", "rejected")

	assert.True(t, IsValidation(ve))
	assert.False(t, IsState(ve))
	assert.True(t, IsState(se))
	assert.False(t, IsValidation(se))
	assert.Equal(t, "leave: reason: must not be empty", ve.Error())
	assert.Equal(t, `leave: cannot approve in state "rejected"`, se.Error())

	wrapped := WithEntity("salary", Invalid("", "base_salary", "must not be negative"))
	assert.Equal(t, "salary: base_salary: must not be negative", wrapped.Error())
}

func TestSameDay(t *testing.T) {
	a := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	assert.True(t, SameDay(a, a.Add(10*time.Hour)))
	assert.False(t, SameDay(a, a.Add(16*time.Hour)))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), TruncateToDay(a))
}
