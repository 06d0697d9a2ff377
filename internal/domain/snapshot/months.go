// internal/domain/snapshot/months.go
package snapshot

import (
	"iter"
	"time"
)

// FirstOfMonth normalizes t to 00:00 UTC on the 1st of its month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonth advances a cursor by exactly one calendar month, keeping day=1.
func NextMonth(t time.Time) time.Time {
	first := FirstOfMonth(t)
	return time.Date(first.Year(), first.Month()+1, 1, 0, 0, 0, 0, time.UTC) // time.Date rolls month 13 into January
}

// Months yields the 1st of every month from start to end, both inclusive.
// The sequence is finite and can be ranged over any number of times.
func Months(start, end time.Time) iter.Seq[time.Time] {
	start, end = FirstOfMonth(start), FirstOfMonth(end)
	return func(yield func(time.Time) bool) {
		for cursor := start; !cursor.After(end); cursor = NextMonth(cursor) {
			if !yield(cursor) {
				return
			}
		}
	}
}

// CountMonths returns the number of dates Months(start, end) yields.
func CountMonths(start, end time.Time) int {
	start, end = FirstOfMonth(start), FirstOfMonth(end)
	n := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
	if n < 0 {
		return 0
	}
	return n
}
