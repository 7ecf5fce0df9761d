package license

import (
	"math"
	"strconv"
	"strings"
)

// Day-count sentinels. Both sit far outside any plausible real
// countdown, so arithmetic mistakes surface immediately.
const (
	// DaysPerpetual marks a license with no expiration date.
	DaysPerpetual = math.MaxInt32
	// DaysUnknown marks an expiry string that could not be interpreted.
	DaysUnknown = math.MinInt32
)

// ExpiresPerpetual is the sentinel persisted in a record's expires field
// when the device reports a perpetual license.
const ExpiresPerpetual = "PERPETUAL"

// Status is the operator-facing license state of one device.
type Status string

const (
	StatusNew       Status = "new"       // record added, never checked
	StatusActive    Status = "active"    // more than 30 days remaining
	StatusExpiring  Status = "expiring"  // 0-30 days remaining, inclusive
	StatusExpired   Status = "expired"   // past the end date
	StatusPerpetual Status = "perpetual" // no expiration date
	StatusUnknown   Status = "unknown"   // expiry could not be interpreted
)

// Info is the parsed result of one license fetch, regardless of which
// transport produced it.
type Info struct {
	RegKey           string
	Expiry           string // raw expiry text as reported by the device
	ServiceCheckDate string
}

// StatusForDays maps a day countdown (or sentinel) to a Status.
// Boundaries are inclusive: exactly 30 days is expiring, exactly 31 is
// active, exactly 0 is expiring, exactly -1 is expired.
func StatusForDays(days int) Status {
	switch {
	case days == DaysPerpetual:
		return StatusPerpetual
	case days == DaysUnknown:
		return StatusUnknown
	case days < 0:
		return StatusExpired
	case days <= 30:
		return StatusExpiring
	default:
		return StatusActive
	}
}

// FormatDays renders a day count for tables and logs, substituting the
// sentinel names for their internal values.
func FormatDays(days int) string {
	switch days {
	case DaysPerpetual:
		return "perpetual"
	case DaysUnknown:
		return "unknown"
	default:
		return strconv.Itoa(days)
	}
}

// MaskRegKey hides the middle of a registration key for log and table
// output; the full key is only written by an explicit export.
func MaskRegKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) < 12 {
		return "****"
	}
	if strings.Contains(key, "-") {
		parts := strings.Split(key, "-")
		if len(parts) >= 3 {
			masked := parts[0]
			for i := 1; i < len(parts)-1; i++ {
				masked += "-****"
			}
			return masked + "-" + parts[len(parts)-1]
		}
	}
	return key[:5] + "****" + key[len(key)-5:]
}
