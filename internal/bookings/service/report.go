package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hallbook/pkg/model"
)

const (
	firstSlotHour = 9
	lastSlotHour  = 18
)

type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

var csvHeader = []string{"ID", "Hall", "Date", "Time From", "Time To", "Department", "Status", "Reason"}

// Export holds either the structured list or the delimited table, depending
// on Format.
type Export struct {
	Format   ExportFormat     `json:"format"`
	Bookings []*model.Booking `json:"bookings,omitempty"`
	CSV      string           `json:"csv,omitempty"`
}

// filterAndSort keeps the bookings matching filter, newest date first and
// later start times first within a day.
func filterAndSort(bookings []*model.Booking, filter model.BookingFilter) []*model.Booking {
	out := make([]*model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if filter.Match(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].TimeFrom > out[j].TimeFrom
	})
	return out
}

// availableSlots marks each fixed hourly slot between 09:00 and 18:00 as
// unavailable when it overlaps an active booking for hall and date.
func availableSlots(bookings []*model.Booking, hall, date string) []model.Slot {
	slots := make([]model.Slot, 0, lastSlotHour-firstSlotHour)
	for hour := firstSlotHour; hour < lastSlotHour; hour++ {
		from := fmt.Sprintf("%02d:00", hour)
		to := fmt.Sprintf("%02d:00", hour+1)
		slots = append(slots, model.Slot{
			From:      from,
			To:        to,
			Available: FindConflict(bookings, hall, date, from, to) == nil,
		})
	}
	return slots
}

func computeStats(bookings []*model.Booking) *model.BookingStats {
	stats := &model.BookingStats{
		Total:        len(bookings),
		ByHall:       map[string]int{},
		ByDepartment: map[string]int{},
		ByMonth:      []model.MonthCount{},
	}

	months := map[string]*model.MonthCount{}
	for _, b := range bookings {
		switch b.Status {
		case model.StatusPending:
			stats.Pending++
		case model.StatusApproved:
			stats.Approved++
		case model.StatusRejected:
			stats.Rejected++
		case model.StatusCancelled:
			stats.Cancelled++
		}
		stats.ByHall[b.Hall]++
		stats.ByDepartment[b.Department]++

		d, err := time.Parse(dateLayout, b.Date)
		if err != nil {
			continue
		}
		key := d.Format("2006-01")
		mc, ok := months[key]
		if !ok {
			mc = &model.MonthCount{Key: key, Label: d.Format("January 2006")}
			months[key] = mc
		}
		mc.Count++
	}

	for _, mc := range months {
		stats.ByMonth = append(stats.ByMonth, *mc)
	}
	sort.Slice(stats.ByMonth, func(i, j int) bool {
		return stats.ByMonth[i].Key < stats.ByMonth[j].Key
	})

	return stats
}

// renderCSV joins fields with commas. Embedded commas or newlines are not
// escaped.
func renderCSV(bookings []*model.Booking) string {
	lines := make([]string, 0, len(bookings)+1)
	lines = append(lines, strings.Join(csvHeader, ","))
	for _, b := range bookings {
		lines = append(lines, strings.Join([]string{
			b.ID,
			b.Hall,
			b.Date,
			b.TimeFrom,
			b.TimeTo,
			b.Department,
			string(b.Status),
			b.Reason,
		}, ","))
	}
	return strings.Join(lines, "\n")
}
