package dialogue

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

const monthPattern = `(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)`

var (
	dayMonthYearRE = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthPattern + `\s+(\d{4})\b`)
	monthDayYearRE = regexp.MustCompile(`\b` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?\s+(\d{4})\b`)
	numericDateRE  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
	dayMonthRE     = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthPattern + `\b`)
)

// ExtractSpecificDate finds a calendar date in free text. Four literal shapes
// are recognized: "7 January 2026", "January 7, 2026", "7/1/2026" (or with
// dashes, trying day-first then month-first), and "7 January" with the year
// inferred — rolled to next year when the date has already passed.
func ExtractSpecificDate(text string, now time.Time) (time.Time, bool) {
	norm := normalizeText(text)
	if norm == "" {
		return time.Time{}, false
	}

	if m := dayMonthYearRE.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if date, ok := makeDate(year, monthNames[m[2]], day, now.Location()); ok {
			return date, true
		}
	}

	if m := monthDayYearRE.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if date, ok := makeDate(year, monthNames[m[1]], day, now.Location()); ok {
			return date, true
		}
	}

	if m := numericDateRE.FindStringSubmatch(norm); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		// Day-first is the house convention; month-first is the rescue
		// path for inputs like 1/25/2026.
		if date, ok := makeDate(year, time.Month(second), first, now.Location()); ok {
			return date, true
		}
		if date, ok := makeDate(year, time.Month(first), second, now.Location()); ok {
			return date, true
		}
	}

	if m := dayMonthRE.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[1])
		month := monthNames[m[2]]
		if date, ok := makeDate(now.Year(), month, day, now.Location()); ok {
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
			if date.Before(today) {
				if next, ok := makeDate(now.Year()+1, month, day, now.Location()); ok {
					return next, true
				}
			}
			return date, true
		}
	}

	return time.Time{}, false
}

func makeDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, loc)
	// Reject overflows like 31 February normalizing into March.
	if date.Month() != month || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

// ExtractWeekday finds a day-of-week mention.
func ExtractWeekday(text string) (time.Weekday, bool) {
	norm := normalizeText(text)
	for name, day := range weekdayNames {
		if hasToken(norm, name) {
			return day, true
		}
	}
	return time.Sunday, false
}

// ExtractTimeOfDay finds a coarse time band: morning (9-12), afternoon
// (12-17) or evening (17-18).
func ExtractTimeOfDay(text string) (TimeOfDay, bool) {
	norm := normalizeText(text)
	switch {
	case strings.Contains(norm, "morning"):
		return TimeOfDayMorning, true
	case strings.Contains(norm, "afternoon"), strings.Contains(norm, "after noon"), strings.Contains(norm, "noon"):
		return TimeOfDayAfternoon, true
	case strings.Contains(norm, "evening"), strings.Contains(norm, "after work"):
		return TimeOfDayEvening, true
	}
	return TimeOfDayAny, false
}

// ExtractTimePreference parses a scheduling preference out of free text.
// A specific date always takes priority over a day-of-week match.
func ExtractTimePreference(text string, now time.Time) (TimePreference, bool) {
	var pref TimePreference
	found := false

	if date, ok := ExtractSpecificDate(text, now); ok {
		pref.SpecificDate = &date
		found = true
	} else if day, ok := ExtractWeekday(text); ok {
		pref.Day = &day
		found = true
	}

	if band, ok := ExtractTimeOfDay(text); ok {
		pref.TimeOfDay = band
		found = true
	}

	return pref, found
}

// FormatSlotDate renders a slot date the way offers present it, e.g.
// "7 January 2026". ExtractSpecificDate parses this rendering back to the
// same calendar date.
func FormatSlotDate(t time.Time) string {
	return t.Format("2 January 2006")
}

// FormatSlot renders a full offer line, e.g.
// "Monday, 7 January 2026 at 9:00 AM IST".
func FormatSlot(slot Slot, tzLabel string) string {
	return slot.StartTime.Format("Monday, 2 January 2006 at 3:04 PM") + " " + tzLabel
}
