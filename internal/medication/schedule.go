package medication

import "time"

// Schedule evaluation is pure: everything is derived from the caller's clock
// and the medication list, so results are deterministic and testable.

// DueNow returns the medications with at least one intake time in the current
// half-hour window: same hour as now and at most 30 minutes away. The window
// deliberately does not cross hour boundaries, so a dose at 08:55 is not due
// at 09:05. Collection order is preserved; malformed time entries are skipped.
func DueNow(now time.Time, meds []Medication) []Medication {
	var due []Medication
	for _, med := range meds {
		for _, t := range med.Times {
			hour, minute, err := ParseClock(t)
			if err != nil {
				continue
			}
			if hour != now.Hour() {
				continue
			}
			delta := minute - now.Minute()
			if delta < 0 {
				delta = -delta
			}
			if delta <= 30 {
				due = append(due, med)
				break
			}
		}
	}
	return due
}

// Upcoming returns the medications with at least one intake time strictly
// later than now on the same day. It does not wrap to the next day, so late
// in the evening the list naturally empties out.
func Upcoming(now time.Time, meds []Medication) []Medication {
	var upcoming []Medication
	for _, med := range meds {
		for _, t := range med.Times {
			hour, minute, err := ParseClock(t)
			if err != nil {
				continue
			}
			if hour > now.Hour() || (hour == now.Hour() && minute > now.Minute()) {
				upcoming = append(upcoming, med)
				break
			}
		}
	}
	return upcoming
}

// NextOccurrence returns the next instant the given time-of-day comes up:
// today if it is still ahead of now, otherwise tomorrow.
func NextOccurrence(now time.Time, clock string) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
