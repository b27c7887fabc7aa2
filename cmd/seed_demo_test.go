package cmd

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoListingParams(t *testing.T) {
	tests := []struct {
		name         string
		index        int
		wantStart    string
		wantReserve  string
		wantDuration time.Duration
	}{
		{
			name:         "first-listing",
			index:        0,
			wantStart:    "100",
			wantReserve:  "20",
			wantDuration: 30 * time.Minute,
		},
		{
			name:         "second-listing",
			index:        1,
			wantStart:    "200",
			wantReserve:  "40",
			wantDuration: 45 * time.Minute,
		},
		{
			name:         "third-listing",
			index:        2,
			wantStart:    "300",
			wantReserve:  "60",
			wantDuration: 60 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := demoListingParams(tt.index)

			require.NotEmpty(t, p.Title)
			assert.True(t, p.StartPrice.Equal(decimal.RequireFromString(tt.wantStart)),
				"start price = %s, want %s", p.StartPrice, tt.wantStart)
			assert.True(t, p.ReservePrice.Equal(decimal.RequireFromString(tt.wantReserve)),
				"reserve price = %s, want %s", p.ReservePrice, tt.wantReserve)
			assert.Equal(t, tt.wantDuration, p.DecayDuration)
			assert.True(t, p.ReservePrice.LessThan(p.StartPrice),
				"reserve must stay below start")
		})
	}
}
