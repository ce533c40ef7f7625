package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"12", Qty(12)},
		{"12.5", Quantity(125_000)},
		{"-3.25", Quantity(-32_500)},
		{"0.00019", Quantity(1)},
		{"+7", Qty(7)},
		{".5", Quantity(5_000)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("1L")
	assert.Error(t, err)
}

func TestQuantity_JSON(t *testing.T) {
	var q Quantity
	require.NoError(t, json.Unmarshal([]byte(`"2.5"`), &q))
	assert.Equal(t, Quantity(25_000), q)

	require.NoError(t, json.Unmarshal([]byte(`15`), &q))
	assert.Equal(t, Qty(15), q)

	out, err := json.Marshal(Quantity(-12_345))
	require.NoError(t, err)
	assert.Equal(t, "-1.2345", string(out))
}

func TestQuantity_DecimalAndMul(t *testing.T) {
	assert.True(t, decimal.RequireFromString("1500").Equal(Qty(1500).Decimal()))
	assert.Equal(t, Qty(15), Qty(5).Mul(Qty(3)))
	assert.Equal(t, Quantity(37_500), MustQuantity("2.5").Mul(MustQuantity("1.5")))
	assert.Equal(t, Quantity(3), NewQuantityFromDecimal(decimal.RequireFromString("0.00025")))
}

func TestQuantity_Display(t *testing.T) {
	assert.Equal(t, "10", Qty(10).Display())
	assert.Equal(t, "12.5", MustQuantity("12.5").Display())
	assert.Equal(t, "10.0000", Qty(10).String())
}

func TestParseQuantity_RejectsOutOfRange(t *testing.T) {
	for _, in := range []string{
		"922337203685477",
		"-922337203685477",
		"1844674407370956",
		"99999999999999999999",
		"1e300",
		"-1e300",
		"1e15",
		"--5",
		"1.-5",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseQuantity(in)
			assert.Error(t, err)
		})
	}

	q, err := ParseQuantity("922337203685476.9999")
	require.NoError(t, err)
	assert.Equal(t, Quantity(9_223_372_036_854_769_999), q)

	q, err = ParseQuantity("1e3")
	require.NoError(t, err)
	assert.Equal(t, Qty(1000), q)
}

func TestQuantity_JSONRejectsOutOfRange(t *testing.T) {
	var q Quantity
	assert.ErrorIs(t, json.Unmarshal([]byte(`1844674407370956`), &q), ErrQuantityOutOfRange)
	assert.ErrorIs(t, json.Unmarshal([]byte(`"1e300"`), &q), ErrQuantityOutOfRange)
}

func TestQuantityFromFloat64_NonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e15, -1e15} {
		_, err := QuantityFromFloat64(v)
		assert.ErrorIs(t, err, ErrQuantityOutOfRange, "%v", v)
	}
	assert.Equal(t, MaxQuantity, NewQuantityFromFloat64(1e300))
	assert.Equal(t, MinQuantity, NewQuantityFromFloat64(-1e300))
}

func TestQuantity_CheckedArithmetic(t *testing.T) {
	sum, err := Qty(1500).CheckedAdd(Qty(1000))
	require.NoError(t, err)
	assert.Equal(t, Qty(2500), sum)

	_, err = MaxQuantity.CheckedAdd(1)
	assert.ErrorIs(t, err, ErrQuantityOutOfRange)
	_, err = MinQuantity.CheckedAdd(-1)
	assert.ErrorIs(t, err, ErrQuantityOutOfRange)
	sum, err = MaxQuantity.CheckedAdd(MinQuantity)
	require.NoError(t, err)
	assert.Zero(t, sum)

	liters, err := Qty(5).CheckedMul(Qty(3))
	require.NoError(t, err)
	assert.Equal(t, Qty(15), liters)
	_, err = Qty(15).CheckedMul(MustQuantity("922337203685476"))
	assert.ErrorIs(t, err, ErrQuantityOutOfRange)
}

func TestQuantity_IsWhole(t *testing.T) {
	assert.True(t, Qty(3).IsWhole())
	assert.True(t, Qty(-3).IsWhole())
	assert.True(t, Quantity(0).IsWhole())
	assert.False(t, MustQuantity("0.5").IsWhole())
	assert.False(t, MustQuantity("-2.0001").IsWhole())
}
