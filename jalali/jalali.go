// Package jalali converts Gregorian dates to the Solar Hijri (Jalali)
// calendar used in Iran, with plain integer arithmetic.
package jalali

import (
	"fmt"
	"time"
)

// Date is a Solar Hijri calendar date
type Date struct {
	Year  int
	Month int
	Day   int
}

// String formats the date as YYYY/MM/DD
func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// Cumulative day count before each Gregorian month in a common year
var gregorianDaysBefore = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// FromGregorian converts a Gregorian year, month (1-12) and day.
// Valid for Gregorian years after 621.
func FromGregorian(gy, gm, gd int) Date {
	var jy int
	if gy > 1600 {
		jy = 979
		gy -= 1600
	} else {
		jy = 0
		gy -= 621
	}

	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}

	days := 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 - 80 + gd + gregorianDaysBefore[gm-1]

	// 33-year and 4-year cycles
	jy += 33 * (days / 12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}

	// First six months have 31 days, the rest 30 (29 for Esfand)
	var jm, jd int
	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		days -= 186
		jm = 7 + days/30
		jd = 1 + days%30
	}

	return Date{Year: jy, Month: jm, Day: jd}
}

// FromTime converts the calendar date of t in t's own location
func FromTime(t time.Time) Date {
	return FromGregorian(t.Year(), int(t.Month()), t.Day())
}

// Stamp formats t as "YYYY/MM/DD >> HH:MM" in the Solar Hijri calendar
func Stamp(t time.Time) string {
	return fmt.Sprintf("%s >> %s", FromTime(t), t.Format("15:04"))
}

// LoadLocation resolves a named time zone. When the name is empty or the
// zone database lacks it, a fixed zone with the fallback offset is
// returned and approx is true: daylight saving and historical offset
// changes are not modelled by the fallback.
func LoadLocation(name string, fallback time.Duration) (loc *time.Location, approx bool) {
	// time.LoadLocation treats "" as UTC
	if name != "" {
		if l, err := time.LoadLocation(name); err == nil {
			return l, false
		}
	}
	return time.FixedZone(fmt.Sprintf("UTC%s", formatOffset(fallback)), int(fallback.Seconds())), true
}

func formatOffset(d time.Duration) string {
	sign := "+"
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%s%02d:%02d", sign, h, m)
}
