package reports

import "time"

const dateLayout = "2006-01-02"

// ParseDateOr parses an ISO date, falling back to the given default when
// the input is empty or malformed. Reports never fail on bad date input.
func ParseDateOr(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fallback
	}
	return t
}

// DefaultRange is the fallback reporting window: start of the current
// month through today.
func DefaultRange(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, end
}

// ComparisonMode selects how a P&L comparison period is derived.
type ComparisonMode string

const (
	CompareNone           ComparisonMode = ""
	ComparePreviousYear   ComparisonMode = "previous_year"
	ComparePreviousPeriod ComparisonMode = "previous_period"
	CompareCustom         ComparisonMode = "custom"
)

// ComparisonBounds computes the comparison window for a primary window:
// the same dates one year earlier, the equal-length window immediately
// preceding the primary one, or an explicit custom range.
func ComparisonBounds(start, end time.Time, mode ComparisonMode, customStart, customEnd time.Time) (time.Time, time.Time, bool) {
	switch mode {
	case ComparePreviousYear:
		return start.AddDate(-1, 0, 0), end.AddDate(-1, 0, 0), true
	case ComparePreviousPeriod:
		days := int(end.Sub(start).Hours()/24) + 1
		return start.AddDate(0, 0, -days), start.AddDate(0, 0, -1), true
	case CompareCustom:
		if customStart.IsZero() || customEnd.IsZero() {
			return time.Time{}, time.Time{}, false
		}
		return customStart, customEnd, true
	}
	return time.Time{}, time.Time{}, false
}
