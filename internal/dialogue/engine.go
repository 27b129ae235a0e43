package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// maxOffers caps how many slots a single offer lists.
const maxOffers = 3

// defaultOverrideConfidence gates intent overrides that yank the flow out of
// its current state mid-collection.
const defaultOverrideConfidence = 0.75

// SlotProvider serves candidate appointment slots matching a preference.
// Implementations live in the scheduling package.
type SlotProvider interface {
	FindSlots(ctx context.Context, pref TimePreference, from time.Time, limit int) ([]Slot, error)
}

// BookingService commits a selected slot to a booking. alt is another offered
// slot, when one exists, kept on record as a fallback should the advisor need
// to move the appointment. Implementations live in the booking package.
type BookingService interface {
	Book(ctx context.Context, sessionID string, topic Topic, slot Slot, alt *Slot) (string, error)
}

// RejectedError is a booking refusal the caller can act on: the reason is
// surfaced verbatim in the reply and the flow re-offers slots instead of
// erroring out.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "booking rejected: " + e.Reason
}

// TranscriptArchiver persists a finished session's transcript. A nil archiver
// disables archiving; archive failures are logged, never surfaced.
type TranscriptArchiver interface {
	Archive(ctx context.Context, s *Session) error
}

// Metrics receives engine-level observations. A nil Metrics is a no-op.
type Metrics interface {
	ObserveTurn(state State, intent Intent, elapsed time.Duration)
	ObserveBooking(outcome string)
}

// TurnResult is what one processed turn hands back to the transport layer.
type TurnResult struct {
	SessionID   string `json:"session_id"`
	Reply       string `json:"reply"`
	State       State  `json:"state"`
	Intent      Intent `json:"intent,omitempty"`
	BookingCode string `json:"booking_code,omitempty"`
	Done        bool   `json:"done"`
}

// EngineConfig wires an Engine. Store, Slots and Bookings are required;
// everything else degrades gracefully when nil or zero.
type EngineConfig struct {
	Store              SessionStore
	Classifier         Classifier
	Topics             *TopicResolver
	Slots              SlotProvider
	Bookings           BookingService
	Transcripts        TranscriptArchiver
	Metrics            Metrics
	Logger             *slog.Logger
	TimeZoneLabel      string
	OverrideConfidence float64
	Now                func() time.Time
}

// Engine runs the staged booking dialogue. Turns for a single session must be
// serialized by the caller; distinct sessions may run concurrently.
type Engine struct {
	store       SessionStore
	classifier  Classifier
	topics      *TopicResolver
	slots       SlotProvider
	bookings    BookingService
	transcripts TranscriptArchiver
	metrics     Metrics
	logger      *slog.Logger
	tzLabel     string
	overrideAt  float64
	now         func() time.Time
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("dialogue: engine requires a session store")
	}
	if cfg.Slots == nil {
		return nil, fmt.Errorf("dialogue: engine requires a slot provider")
	}
	if cfg.Bookings == nil {
		return nil, fmt.Errorf("dialogue: engine requires a booking service")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewRuleClassifier()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TimeZoneLabel == "" {
		cfg.TimeZoneLabel = "IST"
	}
	if cfg.OverrideConfidence <= 0 || cfg.OverrideConfidence > 1 {
		cfg.OverrideConfidence = defaultOverrideConfidence
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		store:       cfg.Store,
		classifier:  cfg.Classifier,
		topics:      cfg.Topics,
		slots:       cfg.Slots,
		bookings:    cfg.Bookings,
		transcripts: cfg.Transcripts,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		tzLabel:     cfg.TimeZoneLabel,
		overrideAt:  cfg.OverrideConfidence,
		now:         cfg.Now,
	}, nil
}

// StartSession creates a fresh session in the greeting state with the opening
// assistant message already appended.
func (e *Engine) StartSession(ctx context.Context) (*Session, error) {
	now := e.now()
	sess := &Session{
		ID:        uuid.NewString(),
		State:     StateGreeting,
		TimeZone:  e.tzLabel,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sess.Append(RoleAssistant, replyGreeting, MessageMeta{State: StateGreeting}, now)

	if err := e.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("dialogue: create session: %w", err)
	}
	e.logger.Info("session started", "session_id", sess.ID)
	return sess, nil
}

// GetHistory returns the session transcript, oldest first.
func (e *Engine) GetHistory(ctx context.Context, sessionID string) ([]Message, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// GetState returns the session's current dialogue state.
func (e *Engine) GetState(ctx context.Context, sessionID string) (State, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return sess.State, nil
}

// ProcessTurn advances a session by one caller utterance and returns the
// assistant reply. voice marks utterances that arrived via transcription,
// which enables the garbled-input handling and channel-switch suggestions.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, text string, voice bool) (TurnResult, error) {
	start := e.now()
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	// Terminal sessions answer with a fixed close-out and never move again.
	if sess.State.Terminal() {
		sess.Append(RoleUser, text, MessageMeta{Voice: voice}, start)
		sess.Append(RoleAssistant, replySessionComplete, MessageMeta{State: sess.State}, start)
		sess.UpdatedAt = start
		if err := e.store.Update(ctx, sess); err != nil {
			return TurnResult{}, fmt.Errorf("dialogue: update session: %w", err)
		}
		return e.result(sess, replySessionComplete, IntentUnknown), nil
	}

	prevState := sess.State
	sess.Append(RoleUser, text, MessageMeta{Voice: voice, State: prevState}, start)

	var reply string
	var intent Intent

	if looksGarbled(text) && sess.State != StateDisclaimer {
		sess.ShortReplyStreak++
		intent = IntentUnknown
		reply = replyGarbledInput
		if voice && sess.ShortReplyStreak >= 2 {
			reply = replySwitchChannel
		}
	} else {
		sess.ShortReplyStreak = 0
		cls, err := e.classifier.Classify(ctx, text, sess.State)
		if err != nil {
			// Only a bare rule classifier can sit here, and it never fails;
			// treat a failure as unknown rather than dropping the turn.
			e.logger.Warn("classifier error", "session_id", sess.ID, "error", err.Error())
			cls = Classification{Intent: IntentUnknown}
		}
		intent = cls.Intent
		sess.CurrentIntent = intent

		if overridden, overrideReply := e.applyOverride(ctx, sess, text, cls, prevState); overridden {
			reply = overrideReply
		} else {
			reply = e.dispatch(ctx, sess, text, cls, prevState, voice)
		}
	}

	meta := MessageMeta{Intent: intent, State: sess.State}
	if sess.State == StateBookingConfirmed {
		meta.BookingCode = sess.BookingCode
	}
	sess.Append(RoleAssistant, reply, meta, e.now())
	sess.UpdatedAt = e.now()

	if err := e.store.Update(ctx, sess); err != nil {
		return TurnResult{}, fmt.Errorf("dialogue: update session: %w", err)
	}

	if sess.State.Terminal() {
		e.archive(ctx, sess)
	}
	if e.metrics != nil {
		e.metrics.ObserveTurn(sess.State, intent, e.now().Sub(start))
	}
	e.logger.Debug("turn processed",
		"session_id", sess.ID,
		"from", prevState,
		"to", sess.State,
		"intent", intent,
	)
	return e.result(sess, reply, intent), nil
}

func (e *Engine) result(sess *Session, reply string, intent Intent) TurnResult {
	return TurnResult{
		SessionID:   sess.ID,
		Reply:       reply,
		State:       sess.State,
		Intent:      intent,
		BookingCode: sess.BookingCode,
		Done:        sess.State.Terminal(),
	}
}

// applyOverride handles intents that interrupt the staged flow from any
// non-terminal state. Cancellation inside the confirming state is left to the
// local handler, which treats it as declining the slot rather than abandoning
// the whole flow.
func (e *Engine) applyOverride(ctx context.Context, sess *Session, text string, cls Classification, prevState State) (bool, string) {
	if cls.Confidence < e.overrideAt {
		return false, ""
	}
	if prevState == StateCancelling || prevState == StateProvidingPrepInfo {
		return false, ""
	}

	switch cls.Intent {
	case IntentCancel:
		if prevState == StateConfirmingBooking {
			return false, ""
		}
		sess.ReturnState = prevState
		sess.State = StateCancelling
		return true, replyCancelConfirm

	case IntentWhatToPrepare:
		sess.ReturnState = prevState
		sess.State = StateProvidingPrepInfo
		return true, prepInfoReply(sess.Topic) + "\n\nNow, back to where we were: " + promptForStateValue(sess, sess.ReturnState)

	case IntentReschedule:
		if prevState == StateRescheduling {
			return false, ""
		}
		sess.State = StateRescheduling
		sess.OfferedSlots = nil
		sess.SelectedSlot = nil
		return true, reschedulePrompt()

	case IntentCheckAvailability:
		if prevState == StateCheckingAvailability || prevState == StateOfferingSlots {
			return false, ""
		}
		return true, e.enterAvailability(ctx, sess, text)
	}

	return false, ""
}

// enterAvailability lists upcoming open slots, honoring any preference found
// in the same utterance.
func (e *Engine) enterAvailability(ctx context.Context, sess *Session, text string) string {
	pref, _ := ExtractTimePreference(text, e.now())
	slots, err := e.slots.FindSlots(ctx, pref, e.now(), maxOffers)
	if err != nil {
		e.logger.Error("slot lookup failed", "session_id", sess.ID, "error", err.Error())
		return replySlotLookupFailed
	}
	if len(slots) == 0 {
		sess.State = StateCheckingAvailability
		return replyWaitlist
	}
	sess.OfferedSlots = slots
	sess.State = StateCheckingAvailability
	return availabilityReply(slots, sess.TimeZone, sess.Topic.Valid())
}

// dispatch routes the turn to the handler for the session's current state.
// Every non-terminal state has a case; terminal states never reach here.
func (e *Engine) dispatch(ctx context.Context, sess *Session, text string, cls Classification, prevState State, voice bool) string {
	switch prevState {
	case StateGreeting:
		return e.handleGreeting(sess, text, cls)
	case StateDisclaimer:
		return e.handleDisclaimer(sess)
	case StateCollectingTopic:
		return e.handleCollectingTopic(ctx, sess, text, voice)
	case StateCollectingTimePreference:
		return e.handleTimePreference(ctx, sess, text)
	case StateOfferingSlots:
		return e.handleOfferingSlots(ctx, sess, text)
	case StateConfirmingBooking:
		return e.handleConfirming(ctx, sess, text)
	case StateRescheduling:
		return e.handleRescheduling(ctx, sess, text)
	case StateCancelling:
		return e.handleCancelling(sess, text)
	case StateCheckingAvailability:
		return e.handleCheckingAvailability(ctx, sess, text, voice)
	case StateProvidingPrepInfo:
		return e.handleResume(ctx, sess, text, cls, voice)
	default:
		e.logger.Error("turn reached unhandled state", "session_id", sess.ID, "state", prevState)
		sess.State = StateError
		return replyBookingError
	}
}

func (e *Engine) handleGreeting(sess *Session, text string, cls Classification) string {
	if cls.Intent == IntentBookNew || containsBookingKeyword(text) || ExtractConfirmation(text) == ConfirmationYes {
		sess.State = StateDisclaimer
		return replyDisclaimer
	}
	if ExtractConfirmation(text) == ConfirmationNo {
		sess.State = StateCompleted
		return replyCancelDone
	}
	return replyGreeting
}

// handleDisclaimer treats any non-garbled reply as an acknowledgement.
func (e *Engine) handleDisclaimer(sess *Session) string {
	sess.State = StateCollectingTopic
	sess.TopicAttempts = 0
	return topicPrompt(0)
}

func (e *Engine) handleCollectingTopic(ctx context.Context, sess *Session, text string, voice bool) string {
	topic := e.topics.Resolve(ctx, text, sess.TopicAttempts)
	if !topic.Valid() {
		sess.TopicAttempts++
		if voice && sess.TopicAttempts >= 3 {
			return replySwitchChannel + "\n\n" + topicMenu()
		}
		return topicPrompt(sess.TopicAttempts)
	}
	sess.Topic = topic
	sess.TopicAttempts = 0
	sess.State = StateCollectingTimePreference
	return timePrefPrompt(topic)
}

func (e *Engine) handleTimePreference(ctx context.Context, sess *Session, text string) string {
	pref, ok := ExtractTimePreference(text, e.now())
	if !ok {
		return replyTimePrefRetry
	}
	sess.TimePreference = &pref
	return e.offerSlots(ctx, sess, pref)
}

// offerSlots queries the provider and moves to the offering state when
// anything is available. Zero matches keeps the flow collecting a preference
// with a waitlist suggestion.
func (e *Engine) offerSlots(ctx context.Context, sess *Session, pref TimePreference) string {
	slots, err := e.slots.FindSlots(ctx, pref, e.now(), maxOffers)
	if err != nil {
		e.logger.Error("slot lookup failed", "session_id", sess.ID, "error", err.Error())
		return replySlotLookupFailed
	}
	if len(slots) == 0 {
		sess.State = StateCollectingTimePreference
		return replyWaitlist
	}
	sess.OfferedSlots = slots
	sess.State = StateOfferingSlots
	sess.ConfirmPrompts = 0
	return offerSlotsReply(slots, sess.TimeZone)
}

func (e *Engine) handleOfferingSlots(ctx context.Context, sess *Session, text string) string {
	if slot := ExtractSlotSelection(text, sess.OfferedSlots, e.now()); slot != nil {
		sess.SelectedSlot = slot
		sess.ConfirmPrompts = 0
		sess.State = StateConfirmingBooking
		return confirmPrompt(*slot, sess.Topic, sess.TimeZone)
	}

	// A bare "no" here declines the offered slots, not the whole flow.
	if ExtractConfirmation(text) == ConfirmationNo {
		sess.OfferedSlots = nil
		sess.State = StateCollectingTimePreference
		return replySlotsDeclined
	}

	if pref, ok := ExtractTimePreference(text, e.now()); ok {
		sess.TimePreference = &pref
		return e.offerSlots(ctx, sess, pref)
	}

	return "Sorry, I didn't catch which one. " + offerSlotsReply(sess.OfferedSlots, sess.TimeZone)
}

func (e *Engine) handleConfirming(ctx context.Context, sess *Session, text string) string {
	switch ExtractConfirmation(text) {
	case ConfirmationYes:
		return e.book(ctx, sess)
	case ConfirmationNo:
		sess.SelectedSlot = nil
		sess.ConfirmPrompts = 0
		sess.State = StateOfferingSlots
		return "No problem. " + offerSlotsReply(sess.OfferedSlots, sess.TimeZone)
	}

	// Switching to a different offered slot mid-confirmation is fine.
	if slot := ExtractSlotSelection(text, sess.OfferedSlots, e.now()); slot != nil {
		sess.SelectedSlot = slot
		sess.ConfirmPrompts = 0
		return confirmPrompt(*slot, sess.Topic, sess.TimeZone)
	}

	if pref, ok := ExtractTimePreference(text, e.now()); ok {
		sess.TimePreference = &pref
		sess.SelectedSlot = nil
		return e.offerSlots(ctx, sess, pref)
	}

	sess.ConfirmPrompts++
	if sess.ConfirmPrompts >= 2 && sess.SelectedSlot != nil {
		return confirmMenu(*sess.SelectedSlot, sess.TimeZone)
	}
	if sess.SelectedSlot != nil {
		return confirmPrompt(*sess.SelectedSlot, sess.Topic, sess.TimeZone)
	}
	sess.State = StateOfferingSlots
	return offerSlotsReply(sess.OfferedSlots, sess.TimeZone)
}

func (e *Engine) book(ctx context.Context, sess *Session) string {
	if sess.SelectedSlot == nil {
		sess.State = StateOfferingSlots
		return offerSlotsReply(sess.OfferedSlots, sess.TimeZone)
	}
	code, err := e.bookings.Book(ctx, sess.ID, sess.Topic, *sess.SelectedSlot, alternativeSlot(sess))
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			e.observeBooking("rejected")
			e.logger.Warn("booking rejected",
				"session_id", sess.ID,
				"slot_id", sess.SelectedSlot.ID,
				"reason", rejected.Reason,
			)
			return e.reofferAfterRejection(ctx, sess, rejected.Reason)
		}
		e.observeBooking("error")
		e.logger.Error("booking failed", "session_id", sess.ID, "error", err.Error())
		sess.State = StateError
		return replyBookingError
	}

	e.observeBooking("confirmed")
	sess.BookingCode = code
	sess.State = StateBookingConfirmed
	e.logger.Info("booking confirmed",
		"session_id", sess.ID,
		"booking_code", code,
		"slot_id", sess.SelectedSlot.ID,
		"topic", sess.Topic,
	)
	return bookingConfirmedReply(code, *sess.SelectedSlot, sess.TimeZone)
}

// alternativeSlot picks the first offered slot other than the selected one.
func alternativeSlot(sess *Session) *Slot {
	for _, s := range sess.OfferedSlots {
		if s.ID != sess.SelectedSlot.ID {
			alt := s
			return &alt
		}
	}
	return nil
}

// reofferAfterRejection drops the dead slot and re-offers fresh ones so a
// race on the last slot doesn't strand the caller.
func (e *Engine) reofferAfterRejection(ctx context.Context, sess *Session, reason string) string {
	rejectedID := sess.SelectedSlot.ID
	sess.SelectedSlot = nil
	sess.ConfirmPrompts = 0

	var pref TimePreference
	if sess.TimePreference != nil {
		pref = *sess.TimePreference
	}
	slots, err := e.slots.FindSlots(ctx, pref, e.now(), maxOffers)
	if err != nil {
		e.logger.Error("slot lookup failed", "session_id", sess.ID, "error", err.Error())
		slots = nil
	}
	fresh := slots[:0:0]
	for _, s := range slots {
		if s.ID != rejectedID {
			fresh = append(fresh, s)
		}
	}
	sess.OfferedSlots = fresh
	if len(fresh) == 0 {
		sess.State = StateCollectingTimePreference
	} else {
		sess.State = StateOfferingSlots
	}
	return bookingRejectedReply(reason, fresh, sess.TimeZone)
}

func (e *Engine) handleRescheduling(ctx context.Context, sess *Session, text string) string {
	pref, ok := ExtractTimePreference(text, e.now())
	if !ok {
		return replyTimePrefRetry
	}
	sess.TimePreference = &pref
	sess.SelectedSlot = nil
	return e.offerSlots(ctx, sess, pref)
}

func (e *Engine) handleCancelling(sess *Session, text string) string {
	switch ExtractConfirmation(text) {
	case ConfirmationYes:
		sess.State = StateCompleted
		return replyCancelDone
	case ConfirmationNo:
		resume := sess.ReturnState
		if resume == "" || resume.Terminal() {
			resume = StateCollectingTopic
		}
		sess.State = resume
		sess.ReturnState = ""
		return "Alright, let's carry on. " + promptForState(sess)
	}
	return replyCancelConfirm
}

// handleCheckingAvailability follows up an availability listing: once a topic
// is known the listed slots behave exactly like an offer.
func (e *Engine) handleCheckingAvailability(ctx context.Context, sess *Session, text string, voice bool) string {
	if !sess.Topic.Valid() {
		topic := e.topics.Resolve(ctx, text, sess.TopicAttempts)
		if !topic.Valid() {
			sess.TopicAttempts++
			return topicPrompt(sess.TopicAttempts)
		}
		sess.Topic = topic
		sess.TopicAttempts = 0
		if len(sess.OfferedSlots) > 0 {
			sess.State = StateOfferingSlots
			return offerSlotsReply(sess.OfferedSlots, sess.TimeZone)
		}
		sess.State = StateCollectingTimePreference
		return timePrefPrompt(topic)
	}

	if len(sess.OfferedSlots) > 0 {
		sess.State = StateOfferingSlots
		return e.handleOfferingSlots(ctx, sess, text)
	}
	sess.State = StateCollectingTimePreference
	return e.handleTimePreference(ctx, sess, text)
}

// handleResume hands the first post-sidetrack utterance back to the state the
// side branch interrupted.
func (e *Engine) handleResume(ctx context.Context, sess *Session, text string, cls Classification, voice bool) string {
	resume := sess.ReturnState
	if resume == "" || resume.Terminal() || resume == StateProvidingPrepInfo {
		resume = StateCollectingTopic
	}
	sess.State = resume
	sess.ReturnState = ""
	return e.dispatch(ctx, sess, text, cls, resume, voice)
}

func (e *Engine) archive(ctx context.Context, sess *Session) {
	if e.transcripts == nil {
		return
	}
	if err := e.transcripts.Archive(ctx, sess); err != nil {
		e.logger.Error("transcript archive failed", "session_id", sess.ID, "error", err.Error())
	}
}

func (e *Engine) observeBooking(outcome string) {
	if e.metrics != nil {
		e.metrics.ObserveBooking(outcome)
	}
}

// promptForStateValue renders the resume prompt for a state other than the
// session's current one.
func promptForStateValue(sess *Session, state State) string {
	saved := sess.State
	sess.State = state
	prompt := promptForState(sess)
	sess.State = saved
	return prompt
}
