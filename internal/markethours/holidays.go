package markethours

import "time"

// NYSE full-day closures for 2026.
var nyseHolidays2026 = []struct {
	month time.Month
	day   int
}{
	{time.January, 1},   // New Year's Day
	{time.January, 19},  // Martin Luther King Jr. Day
	{time.February, 16}, // Washington's Birthday
	{time.April, 3},     // Good Friday
	{time.May, 25},      // Memorial Day
	{time.June, 19},     // Juneteenth
	{time.July, 3},      // Independence Day (observed)
	{time.September, 7}, // Labor Day
	{time.November, 26}, // Thanksgiving Day
	{time.December, 25}, // Christmas Day
}

// 1:00 PM ET early closes.
var nyseEarlyCloses2026 = []struct {
	month time.Month
	day   int
}{
	{time.November, 27}, // day after Thanksgiving
	{time.December, 24}, // Christmas Eve
}

// pre-compute for fast lookup
var (
	holidaySet    map[string]bool
	earlyCloseSet map[string]bool
)

func init() {
	holidaySet = make(map[string]bool, len(nyseHolidays2026))
	for _, h := range nyseHolidays2026 {
		holidaySet[dateKey(2026, h.month, h.day)] = true
	}
	earlyCloseSet = make(map[string]bool, len(nyseEarlyCloses2026))
	for _, h := range nyseEarlyCloses2026 {
		earlyCloseSet[dateKey(2026, h.month, h.day)] = true
	}
}

// IsHoliday returns true if the date (in New York) is an NYSE holiday.
func IsHoliday(t time.Time) bool {
	et := t.In(ET)
	return holidaySet[dateKey(et.Year(), et.Month(), et.Day())]
}

// IsEarlyClose returns true if the session on t's date ends at 1:00 PM ET.
func IsEarlyClose(t time.Time) bool {
	et := t.In(ET)
	return earlyCloseSet[dateKey(et.Year(), et.Month(), et.Day())]
}

func dateKey(year int, month time.Month, day int) string {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}
