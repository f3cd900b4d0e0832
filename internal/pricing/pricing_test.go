package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDiscountedUnitPrice(t *testing.T) {
	t.Run("applies the group discount", func(t *testing.T) {
		price, err := DiscountedUnitPrice(d("100"), d("0.10"))
		require.NoError(t, err)
		assert.True(t, price.Equal(d("90")), "got %s", price)
	})

	t.Run("stays within [0, base]", func(t *testing.T) {
		bases := []string{"0", "0.01", "19.99", "100", "123456.78"}
		fractions := []string{"0", "0.05", "0.333", "0.5", "0.99", "1"}
		for _, b := range bases {
			for _, f := range fractions {
				price, err := DiscountedUnitPrice(d(b), d(f))
				require.NoError(t, err)
				assert.False(t, price.IsNegative(), "base %s fraction %s", b, f)
				assert.True(t, price.LessThanOrEqual(d(b)), "base %s fraction %s", b, f)
			}
		}
	})

	t.Run("rejects fractions outside [0, 1]", func(t *testing.T) {
		for _, f := range []string{"-0.01", "1.01", "10"} {
			_, err := DiscountedUnitPrice(d("100"), d(f))
			require.ErrorIs(t, err, domain.ErrInvalidArgument, f)
		}
	})

	t.Run("rejects negative base price", func(t *testing.T) {
		_, err := DiscountedUnitPrice(d("-1"), d("0.1"))
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestLineTotal(t *testing.T) {
	total, err := LineTotal(d("90"), 3)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("270")), "got %s", total)

	for _, q := range []int{0, -2} {
		_, err := LineTotal(d("90"), q)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
}
