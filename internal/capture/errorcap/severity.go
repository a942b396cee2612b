package errorcap

import (
	"regexp"

	"github.com/monitorcore/monitorcore/internal/event"
)

var (
	criticalKeywords = regexp.MustCompile(`(?i)crash|fatal|critical|security`)
	highKeywords     = regexp.MustCompile(`(?i)error|exception|failed|timeout`)
	mediumKeywords   = regexp.MustCompile(`(?i)warning|deprecated|invalid`)
)

// deriveSeverity applies the keyword-match cascade used for JS runtime
// errors: first matching tier wins, most severe first.
func deriveSeverity(message string) event.Severity {
	switch {
	case criticalKeywords.MatchString(message):
		return event.SeverityCritical
	case highKeywords.MatchString(message):
		return event.SeverityHigh
	case mediumKeywords.MatchString(message):
		return event.SeverityMedium
	default:
		return event.SeverityLow
	}
}

// networkSeverity derives severity for a network error signal. A
// thrown/aborted/timed-out request (no response) is always high;
// responses with status >= 500 are high, any other non-2xx is medium.
func networkSeverity(status int, thrown bool) event.Severity {
	if thrown || status == 0 {
		return event.SeverityHigh
	}
	if status >= 500 {
		return event.SeverityHigh
	}
	return event.SeverityMedium
}
