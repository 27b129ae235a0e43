package dialogue

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtractSpecificDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   time.Time
		wantOK bool
	}{
		{name: "day month year", input: "book me for 7 January 2026", want: date(2026, time.January, 7), wantOK: true},
		{name: "ordinal suffix", input: "the 3rd March 2026 works", want: date(2026, time.March, 3), wantOK: true},
		{name: "month day year", input: "January 7 2026 please", want: date(2026, time.January, 7), wantOK: true},
		{name: "numeric day first", input: "7/1/2026", want: date(2026, time.January, 7), wantOK: true},
		{name: "numeric month first rescue", input: "1/25/2026", want: date(2026, time.January, 25), wantOK: true},
		{name: "dashes", input: "07-01-2026", want: date(2026, time.January, 7), wantOK: true},
		{name: "day month infers year", input: "7 january", want: date(2026, time.January, 7), wantOK: true},
		{name: "passed date rolls forward", input: "1 january", want: date(2027, time.January, 1), wantOK: true},
		{name: "overflow rejected", input: "31 February 2026", wantOK: false},
		{name: "no date", input: "sometime soon", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractSpecificDate(tt.input, testNow)
			if ok != tt.wantOK {
				t.Fatalf("ExtractSpecificDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ExtractSpecificDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractWeekday(t *testing.T) {
	tests := []struct {
		input  string
		want   time.Weekday
		wantOK bool
	}{
		{"next tuesday works", time.Tuesday, true},
		{"I prefer Fri", time.Friday, true},
		{"saturday morning", time.Saturday, true},
		{"whenever really", time.Sunday, false},
	}
	for _, tt := range tests {
		got, ok := ExtractWeekday(tt.input)
		if ok != tt.wantOK {
			t.Errorf("ExtractWeekday(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ExtractWeekday(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExtractTimeOfDay(t *testing.T) {
	tests := []struct {
		input  string
		want   TimeOfDay
		wantOK bool
	}{
		{"morning please", TimeOfDayMorning, true},
		{"Afternoon is better", TimeOfDayAfternoon, true},
		{"around noon", TimeOfDayAfternoon, true},
		{"evening, after work", TimeOfDayEvening, true},
		{"any time", TimeOfDayAny, false},
	}
	for _, tt := range tests {
		got, ok := ExtractTimeOfDay(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ExtractTimeOfDay(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExtractTimePreference(t *testing.T) {
	t.Run("date beats weekday", func(t *testing.T) {
		pref, ok := ExtractTimePreference("friday 9 january 2026 morning", testNow)
		if !ok {
			t.Fatal("no preference extracted")
		}
		if pref.SpecificDate == nil || !pref.SpecificDate.Equal(date(2026, time.January, 9)) {
			t.Errorf("SpecificDate = %v, want 9 Jan 2026", pref.SpecificDate)
		}
		if pref.Day != nil {
			t.Errorf("Day should be nil when a specific date is present, got %v", *pref.Day)
		}
		if pref.TimeOfDay != TimeOfDayMorning {
			t.Errorf("TimeOfDay = %q, want morning", pref.TimeOfDay)
		}
	})

	t.Run("weekday with band", func(t *testing.T) {
		pref, ok := ExtractTimePreference("tuesday afternoon", testNow)
		if !ok || pref.Day == nil || *pref.Day != time.Tuesday || pref.TimeOfDay != TimeOfDayAfternoon {
			t.Fatalf("got %+v ok=%v, want tuesday afternoon", pref, ok)
		}
	})

	t.Run("band only", func(t *testing.T) {
		pref, ok := ExtractTimePreference("mornings suit me", testNow)
		if !ok || pref.Day != nil || pref.TimeOfDay != TimeOfDayMorning {
			t.Fatalf("got %+v ok=%v, want morning only", pref, ok)
		}
	})

	t.Run("nothing", func(t *testing.T) {
		if _, ok := ExtractTimePreference("whenever works for you", testNow); ok {
			t.Fatal("extracted a preference from nothing")
		}
	})
}

// Offers render dates with FormatSlotDate; a caller echoing that rendering
// back must resolve to the same calendar day.
func TestFormatSlotDateRoundTrip(t *testing.T) {
	days := []time.Time{
		date(2026, time.January, 7),
		date(2026, time.February, 28),
		date(2026, time.December, 31),
	}
	for _, d := range days {
		rendered := FormatSlotDate(d)
		parsed, ok := ExtractSpecificDate(rendered, testNow)
		if !ok {
			t.Fatalf("rendered date %q did not parse back", rendered)
		}
		if !sameCalendarDay(parsed, d) {
			t.Errorf("round trip %q: got %v, want %v", rendered, parsed, d)
		}
	}
}

func TestFormatSlot(t *testing.T) {
	slot := Slot{
		StartTime: time.Date(2026, time.January, 5, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, time.January, 5, 9, 30, 0, 0, time.UTC),
	}
	got := FormatSlot(slot, "IST")
	want := "Monday, 5 January 2026 at 9:00 AM IST"
	if got != want {
		t.Errorf("FormatSlot = %q, want %q", got, want)
	}
}
