// Package dialogue implements the conversational booking engine: a staged
// state machine that turns free-text (or voice-transcribed) utterances into
// an advisor appointment booking.
package dialogue

import (
	"time"
)

// State identifies where a session is in the booking flow.
type State string

const (
	StateGreeting                 State = "greeting"
	StateDisclaimer               State = "disclaimer"
	StateCollectingTopic          State = "collecting_topic"
	StateCollectingTimePreference State = "collecting_time_preference"
	StateOfferingSlots            State = "offering_slots"
	StateConfirmingBooking        State = "confirming_booking"
	StateBookingConfirmed         State = "booking_confirmed"
	StateRescheduling             State = "rescheduling"
	StateCancelling               State = "cancelling"
	StateCheckingAvailability     State = "checking_availability"
	StateProvidingPrepInfo        State = "providing_preparation_info"
	StateCompleted                State = "completed"
	StateError                    State = "error"
)

// Terminal reports whether no further turn can move the session again.
func (s State) Terminal() bool {
	switch s {
	case StateBookingConfirmed, StateCompleted, StateError:
		return true
	}
	return false
}

// Intent is the coarse classification of what the caller is trying to do
// in the current turn.
type Intent string

const (
	IntentBookNew           Intent = "book_new"
	IntentReschedule        Intent = "reschedule"
	IntentCancel            Intent = "cancel"
	IntentCheckAvailability Intent = "check_availability"
	IntentWhatToPrepare     Intent = "what_to_prepare"
	IntentGreeting          Intent = "greeting"
	IntentUnknown           Intent = "unknown"
)

// IntentLabels is the closed label set remote classifiers must stick to.
var IntentLabels = []Intent{
	IntentBookNew,
	IntentReschedule,
	IntentCancel,
	IntentCheckAvailability,
	IntentWhatToPrepare,
	IntentGreeting,
	IntentUnknown,
}

// TimeOfDay is a coarse time band within a day.
type TimeOfDay string

const (
	TimeOfDayAny       TimeOfDay = ""
	TimeOfDayMorning   TimeOfDay = "morning"   // 9-12
	TimeOfDayAfternoon TimeOfDay = "afternoon" // 12-17
	TimeOfDayEvening   TimeOfDay = "evening"   // 17-18
)

// TimePreference is the caller's coarse scheduling preference. A specific
// date, when present, always wins over a day-of-week match.
type TimePreference struct {
	Day          *time.Weekday `json:"day,omitempty"`
	TimeOfDay    TimeOfDay     `json:"time_of_day,omitempty"`
	SpecificDate *time.Time    `json:"specific_date,omitempty"`
}

// Slot is a candidate appointment window. IDs are stable across a session's
// offers so a selection can reference an earlier offer.
type Slot struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Available bool      `json:"available"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MessageMeta carries per-message annotations used for transcripts and audits.
type MessageMeta struct {
	Intent      Intent `json:"intent,omitempty"`
	State       State  `json:"state,omitempty"`
	BookingCode string `json:"booking_code,omitempty"`
	Voice       bool   `json:"voice,omitempty"`
}

// Message is one transcript entry. Messages are append-only and ordered by
// arrival time.
type Message struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Meta      MessageMeta `json:"meta,omitempty"`
}

// Session holds one caller's accumulated conversation state. The caller
// serializes turns per session; the engine never processes two turns of the
// same session concurrently.
type Session struct {
	ID             string          `json:"id"`
	State          State           `json:"state"`
	CurrentIntent  Intent          `json:"current_intent,omitempty"`
	Topic          Topic           `json:"topic,omitempty"`
	TimePreference *TimePreference `json:"time_preference,omitempty"`
	OfferedSlots   []Slot          `json:"offered_slots,omitempty"`
	SelectedSlot   *Slot           `json:"selected_slot,omitempty"`
	BookingCode    string          `json:"booking_code,omitempty"`
	Messages       []Message       `json:"messages"`
	TimeZone       string          `json:"time_zone"`

	// Explicit retry counters drive the escalating help text and the
	// anti-loop replies, instead of re-scanning prior assistant messages.
	TopicAttempts    int `json:"topic_attempts,omitempty"`
	ShortReplyStreak int `json:"short_reply_streak,omitempty"`
	ConfirmPrompts   int `json:"confirm_prompts,omitempty"`

	// ReturnState remembers where a side branch (cancel, prep info, ...)
	// should resume when it does not end the session.
	ReturnState State `json:"return_state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Append adds a message to the transcript. The transcript is append-only.
func (s *Session) Append(role, content string, meta MessageMeta, at time.Time) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: at,
		Meta:      meta,
	})
}

// Clone returns a deep copy so store reads never alias live session state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.TimePreference != nil {
		pref := *s.TimePreference
		if s.TimePreference.Day != nil {
			day := *s.TimePreference.Day
			pref.Day = &day
		}
		if s.TimePreference.SpecificDate != nil {
			date := *s.TimePreference.SpecificDate
			pref.SpecificDate = &date
		}
		cp.TimePreference = &pref
	}
	if s.SelectedSlot != nil {
		slot := *s.SelectedSlot
		cp.SelectedSlot = &slot
	}
	cp.OfferedSlots = append([]Slot(nil), s.OfferedSlots...)
	cp.Messages = append([]Message(nil), s.Messages...)
	return &cp
}
