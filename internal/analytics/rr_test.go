package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akopyan/signaldesk/internal/domain"
)

func TestUnsignedRR(t *testing.T) {
	tests := []struct {
		name   string
		dir    domain.Direction
		entry  float64
		stop   float64
		target float64
		want   float64
	}{
		{"buy 3R", domain.DirectionBuy, 100, 90, 130, 3.0},
		{"sell 3R", domain.DirectionSell, 100, 110, 70, 3.0},
		{"buy 1R", domain.DirectionBuy, 50, 45, 55, 1.0},
		{"sell fractional", domain.DirectionSell, 200, 210, 195, 0.5},
		{"buy target below entry still unsigned", domain.DirectionBuy, 100, 90, 95, 0.5},
		{"entry equals stop buy", domain.DirectionBuy, 100, 100, 130, 0},
		{"entry equals stop sell", domain.DirectionSell, 100, 100, 70, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnsignedRR(tt.dir, tt.entry, tt.stop, tt.target)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestSignedRR(t *testing.T) {
	tests := []struct {
		name  string
		dir   domain.Direction
		entry float64
		stop  float64
		price float64
		want  float64
	}{
		{"buy in profit", domain.DirectionBuy, 100, 90, 120, 2.0},
		{"buy in loss", domain.DirectionBuy, 100, 90, 95, -0.5},
		{"buy at entry", domain.DirectionBuy, 100, 90, 100, 0},
		{"sell in profit", domain.DirectionSell, 100, 110, 80, 2.0},
		{"sell in loss", domain.DirectionSell, 100, 110, 105, -0.5},
		{"sell at entry", domain.DirectionSell, 100, 110, 100, 0},
		{"entry equals stop", domain.DirectionBuy, 100, 100, 120, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SignedRR(tt.dir, tt.entry, tt.stop, tt.price)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestRRNeverNaNOrInf(t *testing.T) {
	bad := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}
	for _, v := range bad {
		assert.Zero(t, SignedRR(domain.DirectionBuy, v, 90, 120))
		assert.Zero(t, SignedRR(domain.DirectionBuy, 100, v, 120))
		assert.Zero(t, SignedRR(domain.DirectionBuy, 100, 90, v))
		assert.Zero(t, UnsignedRR(domain.DirectionSell, v, v, v))
	}
}
