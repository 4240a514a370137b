// Package serial converts timestamps to and from the spreadsheet serial-day
// numbers used in the Utc column of the log format.
//
// A serial value is the number of days, with fractional part for time of
// day, since the epoch 1899-12-30T00:00:00. This is the Excel/Lotus 1-2-3
// date convention: the epoch is the 30th, not the 31st, because Lotus
// treated 1900 as a leap year and assigned serial 60 to the nonexistent
// 1900-02-29. Anchoring at 1899-12-30 makes every serial from 61 onward
// (1900-03-01 and later) agree with spreadsheet rendering, while serials
// 1..60 are one day off from a correct calendar. Downstream consumers of
// the CSV depend on this exact numbering, so the quirk is preserved, not
// corrected.
package serial

import (
	"math"
	"time"
)

// Epoch is the serial-day origin, chosen to reproduce the Excel/Lotus
// numbering including its 1900 leap-year quirk.
var Epoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const (
	nanosPerDay  = float64(24 * time.Hour)
	microsPerDay = 24 * 60 * 60 * 1e6
)

// FromTime converts an instant to a serial-day number.
func FromTime(t time.Time) float64 {
	return float64(t.Sub(Epoch)) / nanosPerDay
}

// ToTime converts a serial-day number back to an instant in UTC.
//
// The result is rounded to the nearest microsecond. For instants in the
// logger's operating range (20th/21st century) a float64 serial carries
// sub-microsecond resolution, so FromTime followed by ToTime round-trips
// exactly for microsecond-aligned inputs.
func ToTime(s float64) time.Time {
	micros := math.Round(s * microsPerDay)
	return Epoch.Add(time.Duration(micros) * time.Microsecond)
}
