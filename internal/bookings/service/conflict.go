package service

import "hallbook/pkg/model"

// Overlaps reports whether the half-open intervals [aFrom, aTo) and
// [bFrom, bTo) intersect. Times are HH:MM strings, which order correctly
// as strings. Intervals that only touch at a boundary do not overlap.
func Overlaps(aFrom, aTo, bFrom, bTo string) bool {
	return aFrom < bTo && aTo > bFrom
}

// FindConflict returns the first active booking in pool for hall and date
// whose interval overlaps [timeFrom, timeTo), or nil.
func FindConflict(pool []*model.Booking, hall, date, timeFrom, timeTo string) *model.Booking {
	for _, b := range pool {
		if b.Hall != hall || b.Date != date || !b.Status.IsActive() {
			continue
		}
		if Overlaps(timeFrom, timeTo, b.TimeFrom, b.TimeTo) {
			return b
		}
	}
	return nil
}
