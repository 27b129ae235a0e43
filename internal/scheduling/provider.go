// Package scheduling serves candidate advisor appointment slots.
package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wealthdesk/advisor-ai-platform/internal/dialogue"
)

// horizonDays is how far ahead the calendar offers slots.
const horizonDays = 14

// slotMinutes is the advisor appointment length.
const slotMinutes = 30

// bandHours lists the slot start hours for each time band. Mornings and
// afternoons carry more slots than evenings, matching advisor shift cover.
var bandHours = map[dialogue.TimeOfDay][]int{
	dialogue.TimeOfDayMorning:   {9, 10, 11},
	dialogue.TimeOfDayAfternoon: {12, 14, 16},
	dialogue.TimeOfDayEvening:   {17},
}

var allHours = []int{9, 10, 11, 12, 14, 16, 17}

// Calendar is the in-process slot provider. Slot IDs are deterministic
// ("slot-20260107-0900") so the same window keeps the same ID across offers
// within and across sessions. Holds and bookings remove slots from results.
type Calendar struct {
	mu     sync.Mutex
	loc    *time.Location
	taken  map[string]struct{}
	now    func() time.Time
}

// NewCalendar creates a calendar in the given location. loc may be nil for
// the local zone.
func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{
		loc:   loc,
		taken: make(map[string]struct{}),
		now:   now,
	}
}

// FindSlots returns up to limit open slots matching the preference, earliest
// first. Sundays are never offered. With no preference at all, the earliest
// open slots across the horizon are returned.
func (c *Calendar) FindSlots(_ context.Context, pref dialogue.TimePreference, from time.Time, limit int) ([]dialogue.Slot, error) {
	if limit <= 0 {
		limit = 3
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	hours := allHours
	if pref.TimeOfDay != dialogue.TimeOfDayAny {
		hours = bandHours[pref.TimeOfDay]
	}

	from = from.In(c.loc)
	var slots []dialogue.Slot
	for offset := 0; offset <= horizonDays; offset++ {
		day := from.AddDate(0, 0, offset)
		if day.Weekday() == time.Sunday {
			continue
		}
		if pref.SpecificDate != nil && !sameDay(day, pref.SpecificDate.In(c.loc)) {
			continue
		}
		if pref.SpecificDate == nil && pref.Day != nil && day.Weekday() != *pref.Day {
			continue
		}
		for _, hour := range hours {
			start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, c.loc)
			if !start.After(from) {
				continue
			}
			id := slotID(start)
			if _, held := c.taken[id]; held {
				continue
			}
			slots = append(slots, dialogue.Slot{
				ID:        id,
				StartTime: start,
				EndTime:   start.Add(slotMinutes * time.Minute),
				Available: true,
			})
			if len(slots) == limit {
				return slots, nil
			}
		}
	}
	return slots, nil
}

// MarkBooked removes a slot from future offers.
func (c *Calendar) MarkBooked(slotID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.taken[slotID] = struct{}{}
}

// Release puts a previously booked or held slot back on offer.
func (c *Calendar) Release(slotID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.taken, slotID)
}

// Booked reports whether a slot has been taken.
func (c *Calendar) Booked(slotID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.taken[slotID]
	return ok
}

func slotID(start time.Time) string {
	return fmt.Sprintf("slot-%s", start.Format("20060102-1504"))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
