package blastchill

import "math"

// Thresholds are the property-configured limits a completing batch is scored
// against, in the units they are stored in.
type Thresholds struct {
	TargetTenthC int
	MaxMinutes   int
}

// Verdict scores a completing batch at END-write time. OK requires the end
// temperature at or below target and the elapsed time within [0, max]; a
// negative elapsed time is itself a failure, not merely invalid input. The
// verdict is stamped on the END record once and never recomputed, so history
// reflects the thresholds in force at the time.
func Verdict(endTempC float64, minutes int, t Thresholds) string {
	endTenth := int(math.Round(endTempC * 10))
	tempOK := endTenth <= t.TargetTenthC
	timeOK := minutes >= 0 && minutes <= t.MaxMinutes
	if tempOK && timeOK {
		return StatusOK
	}
	return StatusOutOfRange
}
