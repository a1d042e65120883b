package pipeline

import "github.com/shopspring/decimal"

// Derive computes net energy and the anomaly flag for a validated reading.
// Anomaly is a strict sign check on the raw values: a large draw-down with
// both values non-negative is normal operation, not an anomaly.
func Derive(generated, consumed decimal.Decimal) (net decimal.Decimal, anomaly bool) {
	net = generated.Sub(consumed)
	anomaly = generated.IsNegative() || consumed.IsNegative()
	return net, anomaly
}
