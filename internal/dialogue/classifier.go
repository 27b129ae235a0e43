package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Classification is one classifier verdict for a single utterance.
type Classification struct {
	Intent     Intent
	Confidence float64
}

// Classifier maps an utterance plus the current dialogue state to a coarse
// intent. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, utterance string, state State) (Classification, error)
}

var (
	selectionRE   = regexp.MustCompile(`^(?:slot\s*)?\d{1,2}$|^(?:the\s+)?(?:first|second|third|fourth|fifth)(?:\s+one)?$|^(?:one|two|three|four|five)$`)
	rescheduleRE  = regexp.MustCompile(`\b(reschedule|re schedule|postpone|move (?:my|the) (?:appointment|meeting|call)|push (?:it|the meeting)|another day instead)\b`)
	cancelWordRE  = regexp.MustCompile(`\b(cancel|call (?:it|this) off|drop the appointment)\b`)
	prepareRE     = regexp.MustCompile(`\b(what (?:do i|should i) (?:bring|prepare)|what to prepare|documents? (?:do i )?need|how (?:do i|to) prepare|anything i should bring)\b`)
	availRE       = regexp.MustCompile(`\b(availability|available|free slots?|open slots?|what times|which days|when can)\b`)
	bookKeywordRE = regexp.MustCompile(`\b(book|booking|appointment|schedule|meet|meeting|talk to (?:an|my) advisor|speak (?:to|with))\b`)
	greetingRE    = regexp.MustCompile(`^(?:hi|hello|hey|good (?:morning|afternoon|evening)|namaste)\b`)
)

// containsBookingKeyword reports whether raw text carries a booking request,
// used by the greeting handler even when the classifier is unsure.
func containsBookingKeyword(text string) bool {
	return bookKeywordRE.MatchString(normalizeText(text))
}

// RuleClassifier is the deterministic keyword/regex fallback. It is tuned
// per-state: inside the offering and confirming states, ordinals, numbers and
// yes/no replies classify as unknown with high confidence so the state-local
// extraction — not the classifier — resolves them. It never fails.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Classify(_ context.Context, utterance string, state State) (Classification, error) {
	norm := normalizeText(utterance)
	if norm == "" {
		return Classification{Intent: IntentUnknown, Confidence: 0.9}, nil
	}

	// Selections and confirmations belong to the state handlers. An explicit
	// cancel word still escapes while slots are on offer; only the confirming
	// state keeps it local, where it declines the slot.
	if state == StateOfferingSlots || state == StateConfirmingBooking {
		deferred := selectionRE.MatchString(norm) || ExtractConfirmation(utterance) != ConfirmationNone
		if state == StateOfferingSlots && cancelWordRE.MatchString(norm) {
			deferred = false
		}
		if deferred {
			return Classification{Intent: IntentUnknown, Confidence: 0.9}, nil
		}
	}

	switch {
	case rescheduleRE.MatchString(norm):
		return Classification{Intent: IntentReschedule, Confidence: 0.9}, nil
	case cancelWordRE.MatchString(norm):
		return Classification{Intent: IntentCancel, Confidence: 0.9}, nil
	case prepareRE.MatchString(norm):
		return Classification{Intent: IntentWhatToPrepare, Confidence: 0.85}, nil
	case availRE.MatchString(norm):
		return Classification{Intent: IntentCheckAvailability, Confidence: 0.8}, nil
	}

	// A day plus a time band ("friday morning") is an availability probe —
	// unless the flow is already collecting or refining a time preference,
	// where the handler owns it.
	if state != StateCollectingTimePreference && state != StateOfferingSlots &&
		state != StateRescheduling && state != StateCheckingAvailability {
		_, hasDay := ExtractWeekday(norm)
		_, hasBand := ExtractTimeOfDay(norm)
		if hasDay && hasBand {
			return Classification{Intent: IntentCheckAvailability, Confidence: 0.8}, nil
		}
	}

	switch {
	case bookKeywordRE.MatchString(norm):
		return Classification{Intent: IntentBookNew, Confidence: 0.9}, nil
	case greetingRE.MatchString(norm):
		return Classification{Intent: IntentGreeting, Confidence: 0.8}, nil
	}

	return Classification{Intent: IntentUnknown, Confidence: 0.3}, nil
}

const intentClassifierPrompt = `Classify the caller's message into ONE intent label. Respond with JSON only.

Labels:
- book_new: wants to set up a new advisor appointment
- reschedule: wants to move an existing appointment to another time
- cancel: wants to cancel an appointment or abandon the flow
- check_availability: asking which days or times are free
- what_to_prepare: asking what documents or information to bring
- greeting: a greeting or small talk with no other request
- unknown: anything else

IMPORTANT:
- Ordinal or numeric replies ("first", "2", "one") = unknown
- Bare yes/no/ok replies = unknown
- The booking flow, not the classifier, resolves selections and confirmations.

Current stage: %s
Message: %s

Respond with: {"intent": "<label>", "confidence": <0.0-1.0>}`

// LLMClassifier delegates intent classification to a remote LLM constrained
// to the fixed label set.
type LLMClassifier struct {
	llm   LLMClient
	model string
}

func NewLLMClassifier(llm LLMClient, model string) *LLMClassifier {
	if llm == nil {
		panic("dialogue: llm client cannot be nil")
	}
	return &LLMClassifier{llm: llm, model: model}
}

func (c *LLMClassifier) Classify(ctx context.Context, utterance string, state State) (Classification, error) {
	prompt := fmt.Sprintf(intentClassifierPrompt, state, utterance)
	resp, err := c.llm.Complete(ctx, LLMRequest{
		Model:       c.model,
		Messages:    []ChatMessage{{Role: RoleUser, Content: prompt}},
		MaxTokens:   60,
		Temperature: 0,
	})
	if err != nil {
		return Classification{}, err
	}

	var result struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Text)), &result); err != nil {
		return Classification{}, fmt.Errorf("dialogue: malformed classifier response: %w", err)
	}

	intent := Intent(strings.TrimSpace(result.Intent))
	valid := false
	for _, label := range IntentLabels {
		if intent == label {
			valid = true
			break
		}
	}
	if !valid {
		return Classification{}, fmt.Errorf("dialogue: classifier returned unknown label %q", result.Intent)
	}

	confidence := result.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0
	}
	return Classification{Intent: intent, Confidence: confidence}, nil
}

// FallbackObserver is notified whenever the tiered classifier falls back to
// the deterministic rules. Metrics implement it.
type FallbackObserver interface {
	ObserveClassifierFallback(reason string)
}

// TieredClassifier tries the remote classifier first and falls back to the
// deterministic rule table on any failure or low-confidence result. It never
// returns an error: the rules always produce a verdict.
type TieredClassifier struct {
	remote    Classifier
	rules     *RuleClassifier
	threshold float64
	logger    *slog.Logger
	observer  FallbackObserver
}

// NewTieredClassifier builds the two-tier strategy. remote may be nil, in
// which case every utterance goes straight to the rules.
func NewTieredClassifier(remote Classifier, rules *RuleClassifier, threshold float64, logger *slog.Logger, observer FallbackObserver) *TieredClassifier {
	if rules == nil {
		rules = NewRuleClassifier()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredClassifier{
		remote:    remote,
		rules:     rules,
		threshold: threshold,
		logger:    logger,
		observer:  observer,
	}
}

func (c *TieredClassifier) Classify(ctx context.Context, utterance string, state State) (Classification, error) {
	if c.remote != nil {
		start := time.Now()
		cls, err := c.remote.Classify(ctx, utterance, state)
		if err == nil && cls.Confidence >= c.threshold {
			return cls, nil
		}
		reason := "low_confidence"
		if err != nil {
			reason = "remote_error"
			c.logger.Warn("remote intent classifier failed, using rule fallback",
				"error", err.Error(),
				"state", state,
				"elapsed", time.Since(start).String(),
			)
		}
		if c.observer != nil {
			c.observer.ObserveClassifierFallback(reason)
		}
	}
	return c.rules.Classify(ctx, utterance, state)
}
