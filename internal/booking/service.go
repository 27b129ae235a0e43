// Package booking commits selected slots into confirmed appointments.
package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wealthdesk/advisor-ai-platform/internal/dialogue"
)

// Record is one confirmed appointment. Alternative, when set, is another slot
// the caller was offered, kept as a fallback if the advisor has to move the
// appointment.
type Record struct {
	Code        string
	SessionID   string
	Topic       dialogue.Topic
	Slot        dialogue.Slot
	Alternative *dialogue.Slot
	BookedAt    time.Time
}

// Calendar is the slice of the scheduling calendar the booking service needs.
type Calendar interface {
	Booked(slotID string) bool
	MarkBooked(slotID string)
}

// Service books appointments against the shared calendar. Rejections —
// past slots, Sundays, already-taken windows — come back as
// *dialogue.RejectedError so the flow can re-offer instead of erroring.
type Service struct {
	mu       sync.Mutex
	calendar Calendar
	records  map[string]Record
	now      func() time.Time
}

func NewService(calendar Calendar, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		calendar: calendar,
		records:  make(map[string]Record),
		now:      now,
	}
}

// Book confirms the slot and returns the booking code.
func (s *Service) Book(_ context.Context, sessionID string, topic dialogue.Topic, slot dialogue.Slot, alt *dialogue.Slot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slot.StartTime.After(s.now()) {
		return "", &dialogue.RejectedError{Reason: "that slot has already passed"}
	}
	if slot.StartTime.Weekday() == time.Sunday {
		return "", &dialogue.RejectedError{Reason: "advisors are not available on Sundays"}
	}
	if s.calendar != nil && s.calendar.Booked(slot.ID) {
		return "", &dialogue.RejectedError{Reason: "that slot was just taken by someone else"}
	}

	code := newCode()
	if s.calendar != nil {
		s.calendar.MarkBooked(slot.ID)
	}
	rec := Record{
		Code:      code,
		SessionID: sessionID,
		Topic:     topic,
		Slot:      slot,
		BookedAt:  s.now(),
	}
	if alt != nil {
		cp := *alt
		rec.Alternative = &cp
	}
	s.records[code] = rec
	return code, nil
}

// Lookup returns the booking behind a code.
func (s *Service) Lookup(code string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[strings.ToUpper(strings.TrimSpace(code))]
	return rec, ok
}

// newCode produces a short human-readable booking code like "AP-7F3K".
// Codes are derived from a UUID so they never collide in practice.
func newCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	var b strings.Builder
	b.WriteString("AP-")
	for _, r := range raw {
		if b.Len() >= 7 {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
