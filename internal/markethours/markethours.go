// Package markethours answers whether the US equity market is in session.
// The signal cycle uses it to skip runs on weekends, holidays and outside
// regular hours.
package markethours

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// ET is the exchange time zone.
var ET = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("markethours: load %s: %v", name, err))
	}
	return loc
}

// Regular session hours in ET
const (
	OpenHour         = 9
	OpenMinute       = 30
	CloseHour        = 16
	CloseMinute      = 0
	EarlyCloseHour   = 13
	EarlyCloseMinute = 0
)

// IsMarketOpen returns true if t falls within the regular NYSE session
// (9:30 AM - 4:00 PM ET, Mon-Fri, excluding holidays, 1:00 PM on early-close days).
func IsMarketOpen(t time.Time) bool {
	et := t.In(ET)
	if !IsTradingDay(et) {
		return false
	}
	return !et.Before(todayOpen(et)) && et.Before(TodayClose(et))
}

// IsWeekday returns true if t is Mon-Fri.
func IsWeekday(t time.Time) bool {
	wd := t.In(ET).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	et := t.In(ET)
	return IsWeekday(et) && !IsHoliday(et)
}

func todayOpen(et time.Time) time.Time {
	return time.Date(et.Year(), et.Month(), et.Day(), OpenHour, OpenMinute, 0, 0, ET)
}

// NextOpen returns the next market open time (9:30 AM ET on the next trading day).
// If t is before today's open on a trading day, returns today's open.
func NextOpen(t time.Time) time.Time {
	et := t.In(ET)

	if open := todayOpen(et); et.Before(open) && IsTradingDay(et) {
		return open
	}

	d := time.Date(et.Year(), et.Month(), et.Day()+1, 12, 0, 0, 0, ET)
	for i := 0; i < 10; i++ { // max 10 days ahead (holidays + weekends)
		if IsTradingDay(d) {
			return todayOpen(d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return todayOpen(d)
}

// TodayClose returns the close time of t's session date.
func TodayClose(t time.Time) time.Time {
	et := t.In(ET)
	if IsEarlyClose(et) {
		return time.Date(et.Year(), et.Month(), et.Day(), EarlyCloseHour, EarlyCloseMinute, 0, 0, ET)
	}
	return time.Date(et.Year(), et.Month(), et.Day(), CloseHour, CloseMinute, 0, 0, ET)
}

// TimeUntilClose returns the duration until today's close.
// Returns 0 if market is already closed.
func TimeUntilClose(t time.Time) time.Duration {
	if !IsMarketOpen(t) {
		return 0
	}
	return TodayClose(t).Sub(t)
}

// TimeUntilOpen returns the duration until the next market open.
func TimeUntilOpen(t time.Time) time.Duration {
	return NextOpen(t).Sub(t)
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		return fmt.Sprintf("Market Open, closes in %s", fmtDur(TimeUntilClose(t)))
	}
	next := NextOpen(t).In(ET)
	return fmt.Sprintf("Market Closed, opens %s %s ET (%s)",
		next.Weekday().String()[:3], next.Format("15:04"), fmtDur(TimeUntilOpen(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
