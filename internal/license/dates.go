package license

import (
	"strings"
	"time"
)

// expiryLayouts are tried in order; the first successful parse wins.
// Devices report slash dates ("2025/06/15"), some firmware builds emit
// ISO dashes, and single-digit months appear on older images.
var expiryLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"2006/1/2",
	"2006-1-2",
	"Jan 2, 2006",
	time.RFC3339,
}

// perpetualMarkers are the case-insensitive expiry strings that mean the
// license never expires. The empty string is handled separately.
var perpetualMarkers = map[string]bool{
	"null":      true,
	"n/a":       true,
	"na":        true,
	"perpetual": true,
	"unlimited": true,
	"never":     true,
	"none":      true,
}

// IsPerpetualMarker reports whether the raw expiry text means "no
// expiration date".
func IsPerpetualMarker(expiry string) bool {
	s := strings.ToLower(strings.TrimSpace(expiry))
	return s == "" || perpetualMarkers[s]
}

// ParseExpiry interprets a device-reported expiry string. ok is false when
// the text is neither a perpetual marker nor a date in any accepted layout.
func ParseExpiry(expiry string) (t time.Time, perpetual bool, ok bool) {
	if IsPerpetualMarker(expiry) {
		return time.Time{}, true, true
	}
	s := strings.TrimSpace(expiry)
	for _, layout := range expiryLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, false, true
		}
	}
	// Some responses append a time-of-day after the date; retry on the
	// first whitespace-separated token.
	if fields := strings.Fields(s); len(fields) > 1 {
		for _, layout := range expiryLayouts {
			if parsed, err := time.Parse(layout, fields[0]); err == nil {
				return parsed, false, true
			}
		}
	}
	return time.Time{}, false, false
}

// CalcDaysAt returns the whole days remaining until expiry, evaluated at
// now. Perpetual markers return DaysPerpetual; unparseable text returns
// DaysUnknown. The countdown compares calendar dates, so a license that
// expires later today still reports 0, not -1.
func CalcDaysAt(expiry string, now time.Time) int {
	t, perpetual, ok := ParseExpiry(expiry)
	if !ok {
		return DaysUnknown
	}
	if perpetual {
		return DaysPerpetual
	}
	endDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(endDay.Sub(nowDay).Hours() / 24)
}

// CalcDays is CalcDaysAt against the wall clock.
func CalcDays(expiry string) int {
	return CalcDaysAt(expiry, time.Now())
}

// DeriveAt computes the persisted (days, status) pair for an expiry string
// at a fixed evaluation time.
func DeriveAt(expiry string, now time.Time) (int, Status) {
	days := CalcDaysAt(expiry, now)
	return days, StatusForDays(days)
}

// NormalizeExpiry maps perpetual markers to the ExpiresPerpetual sentinel
// and leaves parseable dates as reported; unparseable text passes through
// untouched so the operator can see what the device actually said.
func NormalizeExpiry(expiry string) string {
	if IsPerpetualMarker(expiry) {
		return ExpiresPerpetual
	}
	return strings.TrimSpace(expiry)
}
