package content

import (
	"fmt"
	"time"
)

// Default bounds on the time between opening and submitting the form
const (
	DefaultMinFillTime = 3 * time.Second
	DefaultMaxFormAge  = 30 * time.Minute
)

// ValidateSubmissionTiming rejects submissions made implausibly fast after
// the form was opened, or from a stale form. startMs is epoch milliseconds.
// Clients can forge startMs; this only raises the cost of trivial bots.
func ValidateSubmissionTiming(startMs int64, now time.Time) TimingResult {
	return validateTiming(startMs, now, DefaultMinFillTime, DefaultMaxFormAge)
}

func validateTiming(startMs int64, now time.Time, minFill, maxAge time.Duration) TimingResult {
	if startMs <= 0 {
		return TimingResult{IsValid: false, Error: "Invalid submission timing"}
	}

	elapsed := now.Sub(time.UnixMilli(startMs))
	if elapsed < minFill {
		return TimingResult{
			IsValid: false,
			Error:   fmt.Sprintf("Submission too fast (%.1fs). Please take your time to fill out the form.", elapsed.Seconds()),
		}
	}
	if elapsed > maxAge {
		return TimingResult{
			IsValid: false,
			Error:   "Session expired. Please refresh the page and try again.",
		}
	}
	return TimingResult{IsValid: true}
}
