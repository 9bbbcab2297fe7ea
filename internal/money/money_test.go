package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString_RejectsNegative(t *testing.T) {
	_, err := FromString("-1.5")
	require.Error(t, err)
}

func TestApplyPercent_Sell(t *testing.T) {
	v, err := FromString("100")
	require.NoError(t, err)

	got := ApplyPercent(v, Percent(1))
	want, _ := FromString("101")
	assert.True(t, got.Cmp(want) == 0, "got %s want %s", got, want)
}

func TestApplyPercent_Buy(t *testing.T) {
	v, err := FromString("100")
	require.NoError(t, err)

	got := ApplyPercent(v, Percent(1).Neg())
	want, _ := FromString("99")
	assert.True(t, got.Cmp(want) == 0, "got %s want %s", got, want)
}

func TestApplyPercent_Geometric(t *testing.T) {
	v, _ := FromString("101")
	got := ApplyPercent(v, Percent(1))
	want, _ := FromString("102.01")
	assert.True(t, got.Cmp(want) == 0, "got %s want %s", got, want)
}

func TestIsDust(t *testing.T) {
	small, _ := FromString("0.0000000005")
	assert.True(t, IsDust(small, Zero))

	notSmall, _ := FromString("0.01")
	assert.False(t, IsDust(notSmall, Zero))
}

func TestDiv_RoundsHalfToEven(t *testing.T) {
	num, _ := FromString("10")
	den, _ := FromString("3")
	got := num.Div(den)
	// 3.333333333333... rounded half-to-even to 12 digits.
	want, _ := FromString("3.333333333333")
	assert.True(t, got.Cmp(want) == 0, "got %s want %s", got, want)
}

func TestDiv_PanicsOnZero(t *testing.T) {
	num, _ := FromString("10")
	assert.Panics(t, func() { num.Div(Zero) })
}
