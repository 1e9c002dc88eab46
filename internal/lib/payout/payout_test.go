package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/wisepicks/internal/lib/odds"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		stake      float64
		odds       string
		format     odds.Format
		wantProfit string
		wantReturn string
		wantErr    error
	}{
		{
			name:       "evens decimal",
			stake:      100,
			odds:       "2.00",
			format:     odds.Decimal,
			wantProfit: "100.00",
			wantReturn: "200.00",
		},
		{
			name:       "sample tip odds",
			stake:      100,
			odds:       "3.25",
			format:     odds.Decimal,
			wantProfit: "225.00",
			wantReturn: "325.00",
		},
		{
			name:       "american underdog",
			stake:      50,
			odds:       "+150",
			format:     odds.American,
			wantProfit: "75.00",
			wantReturn: "125.00",
		},
		{
			name:       "american favourite",
			stake:      100,
			odds:       "-200",
			format:     odds.American,
			wantProfit: "50.00",
			wantReturn: "150.00",
		},
		{
			name:       "fractional",
			stake:      10,
			odds:       "5/2",
			format:     odds.Fractional,
			wantProfit: "25.00",
			wantReturn: "35.00",
		},
		{
			name:    "zero stake",
			stake:   0,
			odds:    "2.00",
			format:  odds.Decimal,
			wantErr: ErrInvalidStake,
		},
		{
			name:    "negative stake",
			stake:   -5,
			odds:    "2.00",
			format:  odds.Decimal,
			wantErr: ErrInvalidStake,
		},
		{
			name:    "decimal at minimum",
			stake:   10,
			odds:    "1.0",
			format:  odds.Decimal,
			wantErr: odds.ErrInvalidOdds,
		},
		{
			name:    "malformed fractional",
			stake:   10,
			odds:    "x/2",
			format:  odds.Fractional,
			wantErr: odds.ErrInvalidFractional,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.stake, tt.odds, tt.format)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProfit, Format2(got.Profit))
			assert.Equal(t, tt.wantReturn, Format2(got.TotalReturn))
			assert.InDelta(t, got.Stake+got.Profit, got.TotalReturn, 0.005)
		})
	}
}

func TestFromDecimal_ProfitIdentity(t *testing.T) {
	for _, stake := range []float64{1, 10, 25.5, 100, 1000} {
		for _, d := range []float64{1.05, 1.5, 2, 3.25, 7.5} {
			got, err := FromDecimal(stake, d)
			require.NoError(t, err)
			assert.InDelta(t, stake*d-stake, got.Profit, 0.005)
			assert.InDelta(t, stake+got.Profit, got.TotalReturn, 0.01)
		}
	}
}
