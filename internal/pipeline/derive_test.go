package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name        string
		generated   string
		consumed    string
		wantNet     string
		wantAnomaly bool
	}{
		{name: "typical surplus", generated: "120.5", consumed: "80.25", wantNet: "40.25"},
		{name: "both zero", generated: "0", consumed: "0", wantNet: "0"},
		{name: "negative generated", generated: "-10", consumed: "5", wantNet: "-15", wantAnomaly: true},
		{name: "negative consumed", generated: "10", consumed: "-5", wantNet: "15", wantAnomaly: true},
		{name: "both negative", generated: "-1", consumed: "-1", wantNet: "0", wantAnomaly: true},
		// A big draw-down is normal operation: only negative raw values flag.
		{name: "large deficit is not an anomaly", generated: "100", consumed: "500", wantNet: "-400"},
		{name: "exact decimal difference", generated: "0.3", consumed: "0.1", wantNet: "0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generated, err := decimal.NewFromString(tt.generated)
			if err != nil {
				t.Fatal(err)
			}
			consumed, err := decimal.NewFromString(tt.consumed)
			if err != nil {
				t.Fatal(err)
			}

			net, anomaly := Derive(generated, consumed)
			if got := net.String(); got != tt.wantNet {
				t.Errorf("net = %s, want %s", got, tt.wantNet)
			}
			if anomaly != tt.wantAnomaly {
				t.Errorf("anomaly = %v, want %v", anomaly, tt.wantAnomaly)
			}
		})
	}
}
