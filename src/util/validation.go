package util

import (
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// ParseID parses a numeric path or query parameter.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// ParseDate parses a required ISO date parameter.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// ValidateAccountName enforces the same bounds the admin UI does.
func ValidateAccountName(name string) bool {
	return len(name) >= 2 && len(name) <= 100
}
