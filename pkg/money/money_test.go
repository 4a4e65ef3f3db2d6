package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "2.35", Round(decimal.RequireFromString("2.345")).String())
	assert.Equal(t, "-2.35", Round(decimal.RequireFromString("-2.345")).String())
	assert.Equal(t, "10", Round(decimal.NewFromInt(10)).String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Bs. 150.00", Format(decimal.NewFromInt(150)))
	assert.Equal(t, "Bs. -25.50", Format(decimal.RequireFromString("-25.5")))
}

func TestAverage(t *testing.T) {
	assert.True(t, Average(decimal.NewFromInt(10), 0).IsZero())
	assert.Equal(t, "3.33", Average(decimal.NewFromInt(10), 3).String())
}

func TestSum(t *testing.T) {
	got := Sum(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"))
	assert.True(t, got.Equal(decimal.RequireFromString("0.3")))
}
