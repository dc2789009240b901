// Package battery converts raw pack voltage into a charge estimate.
package battery

// Discharge curve knees for the flight pack. Between EmptyVoltage and
// KneeVoltage the estimate covers the lower half of the range; from
// KneeVoltage to FullVoltage it covers the upper half.
const (
	EmptyVoltage = 14.4
	KneeVoltage  = 14.8
	FullVoltage  = 16.8
)

// VoltageToPercent maps a pack voltage to a charge fraction where 0.5 sits
// at KneeVoltage and 1.0 at FullVoltage.
//
// The result is not clamped: voltages below EmptyVoltage produce negative
// fractions and voltages above FullVoltage exceed 1.0. Non-positive
// voltages mean "no reading" and return 0.
func VoltageToPercent(voltage float64) float64 {
	switch {
	case voltage > KneeVoltage:
		return (voltage-KneeVoltage)/(FullVoltage-KneeVoltage)*0.5 + 0.5
	case voltage > 0:
		return (voltage - EmptyVoltage) / (KneeVoltage - EmptyVoltage) * 0.5
	default:
		return 0
	}
}
