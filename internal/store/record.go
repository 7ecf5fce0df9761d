package store

import (
	"strconv"
	"time"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
)

// Record field names as persisted in devices.json. Patches passed to
// Update use these keys.
const (
	FieldIP           = "ip"
	FieldAdded        = "added"
	FieldChecked      = "checked"
	FieldExpires      = "expires"
	FieldDays         = "days"
	FieldStatus       = "status"
	FieldRegKey       = "regkey"
	FieldAuthType     = "auth_type"
	FieldSvcCheckDate = "svc_check_date"
)

// Auth type hints persisted per device. The hint is sticky: it only
// changes when the caller writes it explicitly.
const (
	AuthTypeKey      = "key"
	AuthTypePassword = "password"
	AuthTypeUnset    = ""
)

// TimestampLayout formats the added and checked fields.
const TimestampLayout = "2006-01-02 15:04:05"

// daysUnknownSentinel is persisted in the days field when the expiry
// could not be interpreted. Perpetual reuses license.ExpiresPerpetual.
const daysUnknownSentinel = "UNKNOWN"

// DeviceRecord is the typed view of one store entry, for display and
// decision logic. The store itself holds raw maps; see the package doc.
type DeviceRecord struct {
	IP           string
	Added        string
	Checked      string
	Expires      string
	Days         int
	Status       license.Status
	RegKey       string
	AuthType     string
	SvcCheckDate string
}

// recordFromMap builds the typed view from a raw persisted record.
func recordFromMap(m map[string]any) DeviceRecord {
	return DeviceRecord{
		IP:           stringField(m, FieldIP),
		Added:        stringField(m, FieldAdded),
		Checked:      stringField(m, FieldChecked),
		Expires:      stringField(m, FieldExpires),
		Days:         DaysFromStored(m[FieldDays]),
		Status:       license.Status(stringField(m, FieldStatus)),
		RegKey:       stringField(m, FieldRegKey),
		AuthType:     stringField(m, FieldAuthType),
		SvcCheckDate: stringField(m, FieldSvcCheckDate),
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// LicensePatch builds the merge patch that records a license read taken
// at the given time. Days and status are derived from the expiry as of
// that same instant, so the stored row is self-consistent.
func LicensePatch(info license.Info, at time.Time) map[string]any {
	days, status := license.DeriveAt(info.Expiry, at)
	return map[string]any{
		FieldChecked:      at.Format(TimestampLayout),
		FieldExpires:      license.NormalizeExpiry(info.Expiry),
		FieldDays:         DaysToStored(days),
		FieldStatus:       string(status),
		FieldRegKey:       info.RegKey,
		FieldSvcCheckDate: info.ServiceCheckDate,
	}
}

// DaysToStored converts an in-memory day count to its persisted form:
// sentinel strings for perpetual/unknown, a plain number otherwise.
func DaysToStored(days int) any {
	switch days {
	case license.DaysPerpetual:
		return license.ExpiresPerpetual
	case license.DaysUnknown:
		return daysUnknownSentinel
	default:
		return days
	}
}

// DaysFromStored reverses DaysToStored, tolerating the numeric types
// encoding/json produces and absent values.
func DaysFromStored(v any) int {
	switch d := v.(type) {
	case nil:
		return license.DaysUnknown
	case string:
		switch d {
		case license.ExpiresPerpetual:
			return license.DaysPerpetual
		case daysUnknownSentinel, "":
			return license.DaysUnknown
		}
		n, err := strconv.Atoi(d)
		if err != nil {
			return license.DaysUnknown
		}
		return n
	case float64:
		return int(d)
	case int:
		return d
	default:
		return license.DaysUnknown
	}
}
