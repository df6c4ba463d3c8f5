package service

import (
	"fmt"
	"time"

	bookingserrors "hallbook/internal/bookings/errors"
	"hallbook/pkg/model"
)

const dateLayout = "2006-01-02"

// occurrenceDate returns the i-th repetition of base. Monthly steps use
// AddDate normalisation, so Jan 31 + 1 month lands on Mar 3 (or Mar 2).
func occurrenceDate(base time.Time, freq model.Frequency, i int) (time.Time, error) {
	switch freq {
	case model.FrequencyDaily:
		return base.AddDate(0, 0, i), nil
	case model.FrequencyWeekly:
		return base.AddDate(0, 0, 7*i), nil
	case model.FrequencyMonthly:
		return base.AddDate(0, i, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", bookingserrors.ErrInvalidFrequency, freq)
	}
}

// expandRecurring generates the additional occurrences of base. Each
// candidate is checked against pool plus the occurrences accepted so far;
// conflicting candidates are dropped without being queued.
func expandRecurring(base *model.Booking, rec *model.Recurring, pool []*model.Booking, newID func() string) ([]*model.Booking, error) {
	start, err := time.Parse(dateLayout, base.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid base date %q: %w", base.Date, err)
	}

	accepted := []*model.Booking{}
	candidates := append([]*model.Booking{}, pool...)

	for i := 1; i < rec.Occurrences; i++ {
		next, err := occurrenceDate(start, rec.Frequency, i)
		if err != nil {
			return nil, err
		}
		date := next.Format(dateLayout)
		if rec.EndDate != "" && date > rec.EndDate {
			break
		}

		if FindConflict(candidates, base.Hall, date, base.TimeFrom, base.TimeTo) != nil {
			continue
		}

		occurrence := *base
		occurrence.ID = newID()
		occurrence.Date = date
		occurrence.ParentBookingID = base.ID
		occurrence.Recurring = &model.Recurring{
			Enabled:     rec.Enabled,
			Frequency:   rec.Frequency,
			Occurrences: rec.Occurrences,
			EndDate:     rec.EndDate,
			IsRecurring: true,
		}

		accepted = append(accepted, &occurrence)
		candidates = append(candidates, &occurrence)
	}

	return accepted, nil
}
