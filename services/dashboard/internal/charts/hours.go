package charts

import (
	"sort"
	"strconv"

	"github.com/02loveslollipop/smartbin-dashboard/services/dashboard/internal/models"
)

// DayStartHour is the first hour of the dashboard day. Hours before it are
// plotted after 23.
const DayStartHour = 10

// unparsedRank puts labels that are not hours after every real hour.
const unparsedRank = 1 << 16

func hourRank(label string) int {
	h, err := strconv.Atoi(label)
	if err != nil || h < 0 || h > 23 {
		return unparsedRank
	}
	if h < DayStartHour {
		h += 24
	}
	return h
}

// SortHours returns a copy of points ordered on a 10:00-to-09:00 day.
// Equal ranks keep their input order.
func SortHours(points []models.HourPoint) []models.HourPoint {
	out := append([]models.HourPoint(nil), points...)
	sort.SliceStable(out, func(i, j int) bool {
		return hourRank(out[i].Hour) < hourRank(out[j].Hour)
	})
	return out
}
