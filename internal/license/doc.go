// Package license holds the pure license-interpretation logic: parsing
// expiry strings reported by a device, deriving the day countdown, and
// mapping the countdown to an operator-facing status.
//
// # Status derivation
//
// A device reports its license end date as free text. The pipeline is:
//
//	expiry string -> CalcDays -> StatusForDays
//
// Recognized perpetual markers (empty string, "null", "N/A", "NA",
// "perpetual", "unlimited", "never", "none"; case-insensitive) map to
// DaysPerpetual.
// Text that is neither a perpetual marker nor a parseable date maps to
// DaysUnknown. Everything in this package is a pure function of its
// arguments - the persisted status field in the record store is only a
// cache of what these functions return.
//
// # Boundaries
//
// Exactly 0 remaining days is expiring, exactly 30 is expiring, 31 is
// active, -1 is expired. Tests pin all four boundaries.
package license
