package dialogue

import (
	"fmt"
	"strings"
)

const (
	replyGreeting = "Hello! I'm your advisor booking assistant. I can book, reschedule or cancel an appointment with one of our advisors. Would you like to book an appointment?"

	replyGarbledInput = "Sorry, I couldn't quite catch that — the transcription may be off. Could you repeat that, or switch to typing if that's easier?"

	replyDisclaimer = "Before we start: our advisors provide general guidance only, not personalised investment advice, and calls may be recorded for quality. Reply with anything to continue."

	replySwitchChannel = "We seem to be having trouble over voice. It might be easier to continue in the chat — you can type your answer or tap one of the topic numbers there."

	replyTimePrefRetry = "Sorry, I didn't get a day or time out of that. You can say a weekday like \"Tuesday\", a part of the day like \"morning\", or a date like \"7 January\"."

	replyWaitlist = "I'm afraid there are no open slots matching that time. I can put you on the waitlist for it, or you can try a different day or time — which would you prefer?"

	replyBookingError = "I'm very sorry — something went wrong while confirming your booking. Please call our support line and we'll sort it out right away."

	replyCancelConfirm = "Just to confirm — you'd like to cancel and stop the booking? (yes/no)"

	replyCancelDone = "Done, I've cancelled that for you. If you change your mind, just start a new chat. Have a good day!"

	replySessionComplete = "This conversation has wrapped up. Please start a new session if there's anything else you need."

	replySlotLookupFailed = "I'm having trouble reaching the calendar right now. Give me a moment and try again, or tell me another time that works."

	replySlotsDeclined = "No problem. When would suit you better? A day, a time of day, or a date all work."
)

// promptForState is the resume prompt used when a side branch hands the flow
// back to where it left off.
func promptForState(s *Session) string {
	switch s.State {
	case StateGreeting:
		return replyGreeting
	case StateDisclaimer:
		return replyDisclaimer
	case StateCollectingTopic:
		return topicPrompt(s.TopicAttempts)
	case StateCollectingTimePreference:
		return timePrefPrompt(s.Topic)
	case StateOfferingSlots:
		return offerSlotsReply(s.OfferedSlots, s.TimeZone)
	case StateConfirmingBooking:
		if s.SelectedSlot != nil {
			return confirmPrompt(*s.SelectedSlot, s.Topic, s.TimeZone)
		}
	case StateRescheduling, StateCheckingAvailability:
		return reschedulePrompt()
	}
	return "Where were we — what would you like to do next?"
}

func topicPrompt(failedAttempts int) string {
	switch failedAttempts {
	case 0:
		return "What would you like to discuss with the advisor? For example KYC and onboarding, recurring investments, statements, withdrawals, or account changes."
	case 1:
		return "Sorry, I didn't catch the topic. Here's what I can book:\n" + topicMenu() + "\nWhich one is closest?"
	default:
		return "Let's try once more — you can just reply with a number from 1 to 5:\n" + topicMenu()
	}
}

func topicMenu() string {
	var b strings.Builder
	for i, topic := range topicOrder {
		fmt.Fprintf(&b, "%d. %s", i+1, topic.Label())
		if i < len(topicOrder)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func timePrefPrompt(topic Topic) string {
	return fmt.Sprintf("Great — %s it is. When suits you? You can give a day like \"Tuesday\", a time of day like \"morning\", or a date like \"7 January\".", topic.Label())
}

func offerSlotsReply(slots []Slot, tzLabel string) string {
	var b strings.Builder
	b.WriteString("Here's what's available:\n")
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, FormatSlot(slot, tzLabel))
	}
	b.WriteString("Reply with a number to pick one, or tell me another day or time.")
	return b.String()
}

func confirmPrompt(slot Slot, topic Topic, tzLabel string) string {
	return fmt.Sprintf("To confirm: a %s appointment on %s. Shall I book it? (yes/no)",
		topic.Label(), FormatSlot(slot, tzLabel))
}

// confirmMenu is the anti-loop reply: after a second unresolved turn in the
// confirmation state we spell out the options instead of repeating the
// question verbatim.
func confirmMenu(slot Slot, tzLabel string) string {
	return fmt.Sprintf("I still need a quick decision on %s. You can:\n- reply \"yes\" to book it\n- reply with another slot number\n- tell me a different day or time\n- reply \"cancel\" to stop",
		FormatSlot(slot, tzLabel))
}

func bookingConfirmedReply(code string, slot Slot, tzLabel string) string {
	return fmt.Sprintf("All set! Your appointment is booked for %s. Your booking code is %s — keep it handy if you need to reschedule or cancel.",
		FormatSlot(slot, tzLabel), code)
}

func bookingRejectedReply(reason string, slots []Slot, tzLabel string) string {
	msg := fmt.Sprintf("I'm sorry — %s.", reason)
	if len(slots) > 0 {
		return msg + " " + offerSlotsReply(slots, tzLabel)
	}
	return msg + " Let's find another time — when suits you?"
}

func reschedulePrompt() string {
	return "Of course, let's find a new time. When would suit you instead? A day, a time of day, or a date all work."
}

func availabilityReply(slots []Slot, tzLabel string, topicKnown bool) string {
	var b strings.Builder
	b.WriteString("Here are the next open advisor slots:\n")
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s\n", i+1, FormatSlot(slot, tzLabel))
	}
	if topicKnown {
		b.WriteString("Reply with a number to book one, or give me another day or time.")
	} else {
		b.WriteString("To book one, first tell me what you'd like to discuss:\n" + topicMenu())
	}
	return b.String()
}

var topicPrepInfo = map[Topic]string{
	TopicOnboarding:     "For an onboarding/KYC appointment, please keep a government photo ID, your PAN, and a proof of address ready. A cancelled cheque helps if you want to link your bank right away.",
	TopicMandates:       "For a recurring investment mandate, have your bank account details handy and know roughly the monthly amount and date you'd like the debit on.",
	TopicStatements:     "For statements and tax documents, just know which financial year you need — the advisor can pull everything else up from your account.",
	TopicWithdrawals:    "For withdrawals, keep your registered bank account details at hand. Payouts usually land within 2-3 working days of the advisor processing them.",
	TopicAccountChanges: "For account or nominee changes, bring the new details and an ID proof for any new nominee. Address changes also need a current proof of address.",
}

func prepInfoReply(topic Topic) string {
	if info, ok := topicPrepInfo[topic]; ok {
		return info
	}
	return "In general: keep a photo ID handy, plus any documents related to what you want to discuss. Once you pick a topic I can be more specific."
}
