package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/wealthdesk/advisor-ai-platform/internal/dialogue"
)

// Friday 2 January 2026, 10:00 UTC.
var testNow = time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC)

func newTestCalendar() *Calendar {
	return NewCalendar(time.UTC, func() time.Time { return testNow })
}

func TestFindSlotsDefault(t *testing.T) {
	cal := newTestCalendar()
	slots, err := cal.FindSlots(context.Background(), dialogue.TimePreference{}, testNow, 3)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	// The earliest open slot after Friday 10:00 is Friday 11:00.
	if got := slots[0].StartTime; !got.Equal(time.Date(2026, time.January, 2, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("first slot = %v, want Friday 11:00", got)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].StartTime.After(slots[i-1].StartTime) {
			t.Errorf("slots out of order at %d: %v then %v", i, slots[i-1].StartTime, slots[i].StartTime)
		}
	}
}

func TestFindSlotsSkipsSundays(t *testing.T) {
	cal := newTestCalendar()
	slots, err := cal.FindSlots(context.Background(), dialogue.TimePreference{}, testNow, 50)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	for _, slot := range slots {
		if slot.StartTime.Weekday() == time.Sunday {
			t.Errorf("offered a Sunday slot: %v", slot.StartTime)
		}
	}
}

func TestFindSlotsTimeBand(t *testing.T) {
	cal := newTestCalendar()
	tests := []struct {
		band      dialogue.TimeOfDay
		wantHours map[int]bool
	}{
		{dialogue.TimeOfDayMorning, map[int]bool{9: true, 10: true, 11: true}},
		{dialogue.TimeOfDayAfternoon, map[int]bool{12: true, 14: true, 16: true}},
		{dialogue.TimeOfDayEvening, map[int]bool{17: true}},
	}
	for _, tt := range tests {
		slots, err := cal.FindSlots(context.Background(), dialogue.TimePreference{TimeOfDay: tt.band}, testNow, 10)
		if err != nil {
			t.Fatalf("FindSlots(%s): %v", tt.band, err)
		}
		if len(slots) == 0 {
			t.Fatalf("no %s slots offered", tt.band)
		}
		for _, slot := range slots {
			if !tt.wantHours[slot.StartTime.Hour()] {
				t.Errorf("%s band offered hour %d", tt.band, slot.StartTime.Hour())
			}
		}
	}
}

func TestFindSlotsWeekday(t *testing.T) {
	cal := newTestCalendar()
	day := time.Tuesday
	slots, err := cal.FindSlots(context.Background(), dialogue.TimePreference{Day: &day}, testNow, 5)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("no Tuesday slots offered")
	}
	for _, slot := range slots {
		if slot.StartTime.Weekday() != time.Tuesday {
			t.Errorf("offered %v, want Tuesdays only", slot.StartTime.Weekday())
		}
	}
}

func TestFindSlotsSpecificDate(t *testing.T) {
	cal := newTestCalendar()
	target := time.Date(2026, time.January, 7, 0, 0, 0, 0, time.UTC)
	slots, err := cal.FindSlots(context.Background(), dialogue.TimePreference{SpecificDate: &target}, testNow, 10)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("no slots for a valid weekday date")
	}
	for _, slot := range slots {
		if slot.StartTime.Day() != 7 || slot.StartTime.Month() != time.January {
			t.Errorf("offered %v outside the requested date", slot.StartTime)
		}
	}
}

func TestFindSlotsSundayDateEmpty(t *testing.T) {
	cal := newTestCalendar()
	sunday := time.Date(2026, time.January, 4, 0, 0, 0, 0, time.UTC)
	slots, err := cal.FindSlots(context.Background(), dialogue.TimePreference{SpecificDate: &sunday}, testNow, 10)
	if err != nil {
		t.Fatalf("FindSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("got %d slots on a Sunday, want 0", len(slots))
	}
}

func TestSlotIDsDeterministic(t *testing.T) {
	cal := newTestCalendar()
	a, _ := cal.FindSlots(context.Background(), dialogue.TimePreference{}, testNow, 3)
	b, _ := cal.FindSlots(context.Background(), dialogue.TimePreference{}, testNow, 3)
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("slot %d id changed between calls: %q vs %q", i, a[i].ID, b[i].ID)
		}
	}
	if a[0].ID != "slot-20260102-1100" {
		t.Errorf("id = %q, want slot-20260102-1100", a[0].ID)
	}
}

func TestMarkBookedRemovesSlot(t *testing.T) {
	cal := newTestCalendar()
	before, _ := cal.FindSlots(context.Background(), dialogue.TimePreference{}, testNow, 3)
	taken := before[0]

	cal.MarkBooked(taken.ID)
	if !cal.Booked(taken.ID) {
		t.Fatal("slot not marked booked")
	}

	after, _ := cal.FindSlots(context.Background(), dialogue.TimePreference{}, testNow, 3)
	for _, slot := range after {
		if slot.ID == taken.ID {
			t.Fatalf("booked slot %q still offered", taken.ID)
		}
	}

	cal.Release(taken.ID)
	if cal.Booked(taken.ID) {
		t.Fatal("released slot still booked")
	}
}
