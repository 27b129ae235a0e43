package dialogue

import (
	"strings"
	"time"
)

// ExtractSlotSelection resolves which offered slot the caller picked. A
// parsed date is matched against offered slots by calendar day; otherwise
// ordinal words and numbers map positionally; otherwise an ISO date substring
// match against each slot's start time is attempted. Returns nil when
// nothing matches.
func ExtractSlotSelection(text string, offered []Slot, now time.Time) *Slot {
	if len(offered) == 0 {
		return nil
	}
	norm := normalizeText(text)
	if norm == "" {
		return nil
	}

	// Dates go first: "3 March" names a day, not the third option.
	if date, ok := ExtractSpecificDate(text, now); ok {
		for _, slot := range offered {
			if sameCalendarDay(slot.StartTime, date) {
				s := slot
				return &s
			}
		}
		// A date the caller typed but we never offered is not a selection.
		return nil
	}

	if position, ok := extractOrdinal(norm); ok && position <= len(offered) {
		slot := offered[position-1]
		return &slot
	}

	for _, slot := range offered {
		iso := slot.StartTime.Format("2006-01-02")
		if strings.Contains(text, iso) {
			s := slot
			return &s
		}
	}

	return nil
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
