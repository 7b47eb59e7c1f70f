package quota

import "time"

// NextPeriodReset advances resetAt by whole calendar months (UTC) until it
// is after now. A resetAt already after now is returned unchanged.
//
// anchorDay is the day of month the period is pinned to. Each step lands on
// that day, clamped to the month's length, so a Jan 31 anchor yields Feb 28
// and then Mar 31. A zero anchorDay uses resetAt's own day.
func NextPeriodReset(resetAt time.Time, anchorDay int, now time.Time) time.Time {
	resetAt = resetAt.UTC()
	if anchorDay <= 0 {
		anchorDay = resetAt.Day()
	}
	for !resetAt.After(now) {
		resetAt = addMonth(resetAt, anchorDay)
	}
	return resetAt
}

// FirstPeriodReset returns the reset instant for an account created at now:
// the start of the next UTC calendar month.
func FirstPeriodReset(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// addMonth moves t into the following calendar month on anchorDay, clamped
// to that month's last day.
func addMonth(t time.Time, anchorDay int) time.Time {
	y, m, _ := t.Date()
	first := time.Date(y, m+1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	d := anchorDay
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
