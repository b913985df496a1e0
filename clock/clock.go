// Package clock formats timestamps the way the gateway expects them.
package clock

import (
	"strconv"
	"time"
)

// Clock returns the current time. Tests substitute a fixed one.
type Clock func() time.Time

// Timestamp10 is the Unix time in whole seconds as a decimal string.
// Sub-second precision is truncated.
func Timestamp10(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// Timestamp is the Unix time in milliseconds.
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04:05"
)

func DateTime(t time.Time) string { return t.Format(dateTimeLayout) }
func Date(t time.Time) string     { return t.Format(dateLayout) }
func Time(t time.Time) string     { return t.Format(timeLayout) }

// Diff breaks the span between two instants into components and totals.
type Diff struct {
	Days, Hours, Minutes, Seconds int64

	TotalHours, TotalMinutes, TotalSeconds int64
}

// Difference measures to - from. Seconds are rounded to the nearest whole
// second after days, hours and minutes are taken off.
func Difference(from, to time.Time) Diff {
	ms := to.Sub(from).Milliseconds()

	const (
		msSecond = int64(1000)
		msMinute = 60 * msSecond
		msHour   = 60 * msMinute
		msDay    = 24 * msHour
	)

	d := Diff{Days: floorDiv(ms, msDay)}
	rest := ms - d.Days*msDay
	d.Hours = rest / msHour
	rest %= msHour
	d.Minutes = rest / msMinute
	rest %= msMinute
	d.Seconds = (rest + msSecond/2) / msSecond

	d.TotalHours = d.Days*24 + d.Hours
	d.TotalMinutes = d.TotalHours*60 + d.Minutes
	d.TotalSeconds = d.TotalMinutes*60 + d.Seconds
	return d
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Offset moves a time by calendar units. Negative values move backwards.
type Offset struct {
	Years, Months, Days, Hours, Minutes, Seconds int
}

// Shift applies o to t, normalising overflow the way time.Date does.
func Shift(t time.Time, o Offset) time.Time {
	return time.Date(
		t.Year()+o.Years,
		t.Month()+time.Month(o.Months),
		t.Day()+o.Days,
		t.Hour()+o.Hours,
		t.Minute()+o.Minutes,
		t.Second()+o.Seconds,
		t.Nanosecond(),
		t.Location(),
	)
}
