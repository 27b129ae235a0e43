package dialogue

import (
	"testing"
	"time"
)

func offeredSlots() []Slot {
	mk := func(d, h int) Slot {
		start := time.Date(2026, time.January, d, h, 0, 0, 0, time.UTC)
		return Slot{
			ID:        start.Format("slot-20060102-1504"),
			StartTime: start,
			EndTime:   start.Add(30 * time.Minute),
			Available: true,
		}
	}
	return []Slot{mk(5, 9), mk(6, 14), mk(7, 17)}
}

func TestExtractSlotSelection(t *testing.T) {
	offered := offeredSlots()

	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{name: "bare number", input: "2", wantID: offered[1].ID},
		{name: "ordinal word", input: "the first one", wantID: offered[0].ID},
		{name: "ordinal beats number word", input: "the second one", wantID: offered[1].ID},
		{name: "slot prefix", input: "slot 3", wantID: offered[2].ID},
		{name: "number word", input: "three please", wantID: offered[2].ID},
		{name: "offered date", input: "6 january works", wantID: offered[1].ID},
		{name: "rendered offer line", input: "Tuesday, 6 January 2026 at 2:00 PM IST", wantID: offered[1].ID},
		{name: "iso substring", input: "book 2026-01-07 for me", wantID: offered[2].ID},
		{name: "unoffered date", input: "12 january", wantID: ""},
		{name: "ordinal out of range", input: "the fifth one", wantID: ""},
		{name: "no selection", input: "hmm let me think", wantID: ""},
		{name: "empty", input: "  ", wantID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSlotSelection(tt.input, offered, testNow)
			if tt.wantID == "" {
				if got != nil {
					t.Fatalf("ExtractSlotSelection(%q) = %q, want nil", tt.input, got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("ExtractSlotSelection(%q) = nil, want %q", tt.input, tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("ExtractSlotSelection(%q) = %q, want %q", tt.input, got.ID, tt.wantID)
			}
		})
	}
}

func TestExtractSlotSelectionNoOffers(t *testing.T) {
	if got := ExtractSlotSelection("1", nil, testNow); got != nil {
		t.Fatalf("selection with no offers = %v, want nil", got)
	}
}

func TestExtractSlotSelectionReturnsCopy(t *testing.T) {
	offered := offeredSlots()
	got := ExtractSlotSelection("1", offered, testNow)
	if got == nil {
		t.Fatal("no selection")
	}
	got.ID = "mutated"
	if offered[0].ID == "mutated" {
		t.Fatal("selection aliases the offered slice")
	}
}
