package utils

import (
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST *time.Location

func init() {
	var err error
	IST, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		IST = time.FixedZone("IST", 5*60*60+30*60)
	}
}

const dateLayout = "2006-01-02"

// DefaultStartDate is the start date the form is pre-filled with.
const DefaultStartDate = "2020-01-01"

// NowIST returns the current time in IST.
func NowIST() time.Time {
	return time.Now().In(IST)
}

// TodayIST returns midnight of the current IST calendar day.
func TodayIST() time.Time {
	return StartOfDayIST(NowIST())
}

// StartOfDayIST truncates t to midnight of its IST calendar day.
func StartOfDayIST(t time.Time) time.Time {
	d := t.In(IST)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, IST)
}

// ParseDateIST parses a date string in "2006-01-02" format and returns it in IST.
func ParseDateIST(dateStr string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, dateStr, IST)
}

// FormatDateIST formats a time.Time to "2006-01-02" in IST.
func FormatDateIST(t time.Time) string {
	return t.In(IST).Format(dateLayout)
}

// FormatDateTimeIST formats a time.Time to "2006-01-02 15:04:05 IST".
func FormatDateTimeIST(t time.Time) string {
	return t.In(IST).Format("2006-01-02 15:04:05 IST")
}

// IsTradingHoliday checks if the given date is an NSE/BSE trading holiday.
func IsTradingHoliday(t time.Time) bool {
	_, ok := tradingHolidays[t.In(IST).Format(dateLayout)]
	return ok
}

// Exchange trading holidays for 2026 (update annually).
var tradingHolidays = map[string]string{
	"2026-01-26": "Republic Day",
	"2026-02-17": "Mahashivratri",
	"2026-03-10": "Holi",
	"2026-03-30": "Id-ul-Fitr (Ramadan)",
	"2026-04-02": "Ram Navami",
	"2026-04-03": "Good Friday",
	"2026-04-14": "Dr. Ambedkar Jayanti",
	"2026-05-01": "Maharashtra Day",
	"2026-05-25": "Buddha Purnima",
	"2026-06-05": "Id-ul-Zuha (Bakri Id)",
	"2026-07-06": "Muharram",
	"2026-08-15": "Independence Day",
	"2026-08-18": "Parsi New Year",
	"2026-09-04": "Milad-un-Nabi",
	"2026-10-02": "Mahatma Gandhi Jayanti",
	"2026-10-20": "Dussehra",
	"2026-11-09": "Diwali (Laxmi Pujan)",
	"2026-11-10": "Diwali (Balipratipada)",
	"2026-11-30": "Guru Nanak Jayanti",
	"2026-12-25": "Christmas",
}

// MarketStatus returns the current market status string.
func MarketStatus() string {
	return MarketStatusAt(NowIST())
}

// MarketStatusAt returns the market status at t. Cash market hours are
// 9:15 AM to 3:30 PM IST with a pre-open session from 9:00 AM.
func MarketStatusAt(t time.Time) string {
	t = t.In(IST)

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	if name, ok := tradingHolidays[t.Format(dateLayout)]; ok {
		return "CLOSED (" + name + ")"
	}

	day := StartOfDayIST(t)
	preOpen := day.Add(9 * time.Hour)
	open := preOpen.Add(15 * time.Minute)
	closing := day.Add(15*time.Hour + 30*time.Minute)

	switch {
	case t.Before(preOpen):
		return "PRE-MARKET"
	case t.Before(open):
		return "PRE-OPEN SESSION"
	case !t.After(closing):
		return "OPEN"
	default:
		return "CLOSED"
	}
}
