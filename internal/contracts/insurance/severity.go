package insurance

import (
	"math/big"

	"github.com/yourusername/weathershield/ledger-service/internal/contracts/registry"
)

// thresholdMet applies the per-peril trigger test. Thresholds share the ×100
// scaling of readings. No trigger rule is defined for HAIL, so hail claims
// never pass; see DESIGN.md for the open product decision.
func thresholdMet(t EventType, threshold int64, reading registry.Reading) bool {
	switch t {
	case Flood:
		return reading.Precipitation >= uint64(threshold)
	case Drought:
		return reading.Precipitation <= uint64(threshold)
	case Storm:
		return reading.WindSpeed >= uint64(threshold)
	case ExtremeTemperature:
		return reading.Temperature >= threshold || reading.Temperature <= -threshold
	default:
		return false
	}
}

// severityScore normalizes how far a reading exceeds the policy threshold to
// a 0-100 scale. Temperature perils pay a flat 50.
func severityScore(t EventType, threshold int64, reading registry.Reading) int64 {
	var severity int64
	switch t {
	case Flood:
		severity = (int64(reading.Precipitation) - threshold) * 100 / threshold
	case Drought:
		severity = (threshold - int64(reading.Precipitation)) * 100 / threshold
	case Storm:
		severity = (int64(reading.WindSpeed) - threshold) * 100 / threshold
	case ExtremeTemperature, Hail:
		severity = 50
	}
	if severity < 0 {
		severity = 0
	}
	if severity > 100 {
		severity = 100
	}
	return severity
}

// claimAmount scales coverage by severity.
func claimAmount(coverage *big.Int, severity int64) *big.Int {
	out := new(big.Int).Mul(coverage, big.NewInt(severity))
	return out.Div(out, big.NewInt(100))
}
