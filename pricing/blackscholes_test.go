package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueReference(t *testing.T) {
	t.Parallel()

	// Reference values computed independently from the closed form.
	tests := []struct {
		name     string
		kind     Kind
		spot     float64
		strike   float64
		rate     float64
		vol      float64
		years    float64
		expected float64
	}{
		{
			name: "atm_call_one_year",
			kind: Call, spot: 100, strike: 100, rate: 0.05, vol: 0.2, years: 1,
			expected: 10.4506,
		},
		{
			name: "atm_put_one_year",
			kind: Put, spot: 100, strike: 100, rate: 0.05, vol: 0.2, years: 1,
			expected: 5.5735,
		},
		{
			name: "itm_call_30_days",
			kind: Call, spot: 105, strike: 100, rate: 0.05, vol: 0.25, years: 30.0 / 365.0,
			expected: 6.3911,
		},
		{
			name: "otm_put_six_months",
			kind: Put, spot: 110, strike: 100, rate: 0.03, vol: 0.3, years: 0.5,
			expected: 4.2208,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Value(tt.kind, tt.spot, tt.strike, tt.rate, tt.vol, tt.years)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-3)
		})
	}
}

func TestValueIntrinsicAtExpiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		kind     Kind
		spot     float64
		strike   float64
		years    float64
		expected float64
	}{
		{"expired_itm_call", Call, 120, 100, 0, 20},
		{"expired_otm_call", Call, 90, 100, -0.1, 0},
		{"expired_itm_put", Put, 80, 100, 0, 20},
		{"expired_otm_put", Put, 110, 100, -1, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Value(tt.kind, tt.spot, tt.strike, 0.05, 0.25, tt.years)
			require.NoError(t, err)
			// Intrinsic value is exact, not a formula limit.
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValuePutCallParity(t *testing.T) {
	t.Parallel()

	// call - put = S - K*exp(-rT) for any shared parameter set.
	cases := []struct {
		spot, strike, rate, vol, years float64
	}{
		{100, 100, 0.05, 0.2, 1},
		{105, 100, 0.05, 0.25, 30.0 / 365.0},
		{50, 80, 0.01, 0.6, 2},
		{250, 240, 0.08, 0.15, 0.25},
	}

	for _, c := range cases {
		call, err := Value(Call, c.spot, c.strike, c.rate, c.vol, c.years)
		require.NoError(t, err)
		put, err := Value(Put, c.spot, c.strike, c.rate, c.vol, c.years)
		require.NoError(t, err)

		forward := c.spot - c.strike*discountFactor(c.rate, c.years)
		assert.InDelta(t, forward, call-put, 1e-9)
	}
}

func TestValueMonotonicInSpot(t *testing.T) {
	t.Parallel()

	var prevCall, prevPut float64
	for i, spot := range []float64{80, 90, 100, 110, 120} {
		call, err := Value(Call, spot, 100, 0.05, 0.25, 0.5)
		require.NoError(t, err)
		put, err := Value(Put, spot, 100, 0.05, 0.25, 0.5)
		require.NoError(t, err)

		if i > 0 {
			assert.GreaterOrEqual(t, call, prevCall, "call value must not decrease in spot")
			assert.LessOrEqual(t, put, prevPut, "put value must not increase in spot")
		}
		prevCall, prevPut = call, put
	}
}

func TestValueRejectsDegenerateInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		kind   Kind
		spot   float64
		strike float64
		vol    float64
		years  float64
	}{
		{"zero_spot", Call, 0, 100, 0.25, 1},
		{"negative_spot", Put, -5, 100, 0.25, 1},
		{"zero_strike", Call, 100, 0, 0.25, 1},
		{"negative_strike_expired", Call, 100, -1, 0.25, -1},
		{"zero_vol", Put, 100, 100, 0, 1},
		{"bad_kind", Kind("straddle"), 100, 100, 0.25, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Value(tt.kind, tt.spot, tt.strike, 0.05, tt.vol, tt.years)
			assert.Error(t, err)
		})
	}
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	k, err := ParseKind("Call")
	require.NoError(t, err)
	assert.Equal(t, Call, k)

	k, err = ParseKind(" PUT ")
	require.NoError(t, err)
	assert.Equal(t, Put, k)

	_, err = ParseKind("swaption")
	assert.Error(t, err)
}

func discountFactor(rate, years float64) float64 {
	return math.Exp(-rate * years)
}
