package core

import (
	"time"
)

// DateLayout is the ISO calendar date layout used for due and paid dates.
const DateLayout = "2006-01-02"

// Date is a calendar date in yyyy-mm-dd form.
//
// It is kept as text so that imported values survive a round trip verbatim;
// use Time to interpret it.
type Date string

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Time parses the date at midnight UTC.
func (d Date) Time() (time.Time, bool) {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Validate reports whether d is a real yyyy-mm-dd date.
func (d Date) Validate() error {
	if _, ok := d.Time(); !ok {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return string(d)
}

// AddMonthsISO adds n calendar months to date.
//
// The day of month is preserved when the target month has enough days.
// Otherwise the overflow rolls into the following month: 2024-01-31 plus one
// month is 2024-03-02. Input that is not a yyyy-mm-dd date is returned as is.
func AddMonthsISO(date Date, n int) Date {
	t, ok := date.Time()
	if !ok {
		return date
	}
	return DateOf(t.AddDate(0, n, 0))
}

// TodayISODate returns the clock's current local date.
func TodayISODate(c Clock) Date {
	return DateOf(c.Now())
}
