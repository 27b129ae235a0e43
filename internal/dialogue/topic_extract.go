package dialogue

import (
	"context"
	"encoding/json"
	"strings"
)

// topicPhrases maps each topic to its curated phrase list, including phonetic
// near-misses seen in voice transcriptions ("kay see" for KYC, "sip" heard as
// "ship", and so on).
var topicPhrases = map[Topic][]string{
	TopicOnboarding: {
		"kyc", "k y c", "kay see", "kay why see", "kyc onboarding",
		"onboarding", "on boarding", "know your customer", "new account",
		"account opening", "open an account", "getting started", "get started",
		"identity verification", "verification",
	},
	TopicMandates: {
		"sip", "s i p", "ship investment", "recurring", "recurring investment",
		"mandate", "mandates", "auto invest", "autoinvest", "auto debit",
		"monthly investment", "systematic", "standing instruction",
	},
	TopicStatements: {
		"statement", "statements", "tax", "tax document", "tax documents",
		"capital gains", "account statement", "download statement",
		"annual report", "proof of investment",
	},
	TopicWithdrawals: {
		"withdraw", "withdrawal", "withdrawals", "redeem", "redemption",
		"payout", "pay out", "take money out", "take my money out",
		"cash out", "how long until", "withdrawal timeline",
	},
	TopicAccountChanges: {
		"nominee", "nomination", "nominees", "change my address",
		"address change", "bank change", "change bank", "update my details",
		"update my account", "account change", "contact details",
		"change my number",
	},
}

// topicFuzzyPrefixes is the aggressive last-resort matching, keyed by token
// prefix. Only consulted after the caller signals at least two failed
// attempts, because matches this loose produce false positives otherwise.
var topicFuzzyPrefixes = map[string]Topic{
	"kyc":    TopicOnboarding,
	"onboa":  TopicOnboarding,
	"verif":  TopicOnboarding,
	"sip":    TopicMandates,
	"recur":  TopicMandates,
	"mandat": TopicMandates,
	"statem": TopicStatements,
	"tax":    TopicStatements,
	"docum":  TopicStatements,
	"withdr": TopicWithdrawals,
	"redee":  TopicWithdrawals,
	"payou":  TopicWithdrawals,
	"nomin":  TopicAccountChanges,
	"accou":  TopicAccountChanges,
}

// ExtractTopic pulls an appointment topic out of free text. It tries curated
// phrase matching first, then ordinal/numeric menu selection. The loose fuzzy
// pass only runs once the caller reports two or more prior failed attempts
// in the same session.
func ExtractTopic(text string, priorAttempts int) (Topic, bool) {
	norm := normalizeText(text)
	if norm == "" {
		return TopicUnknown, false
	}

	for _, topic := range topicOrder {
		for _, phrase := range topicPhrases[topic] {
			if strings.Contains(norm, phrase) {
				return topic, true
			}
		}
	}

	if position, ok := extractOrdinal(norm); ok {
		return topicOrder[position-1], true
	}

	if priorAttempts >= 2 {
		for _, tok := range strings.Fields(norm) {
			for prefix, topic := range topicFuzzyPrefixes {
				if strings.HasPrefix(tok, prefix) {
					return topic, true
				}
			}
		}
	}

	return TopicUnknown, false
}

const topicClassifierPrompt = `Classify this message from an investor booking an advisor call into ONE topic. Respond with JSON only.

Topics:
- onboarding_kyc: account opening, KYC, identity verification, getting started
- recurring_investments: SIPs, mandates, auto-debit, monthly investing
- statements_tax: statements, tax documents, capital gains reports
- withdrawals: withdrawing or redeeming money, payout timelines
- account_changes: nominee, address, bank or contact detail changes
- none: the message does not indicate any of the above

Message: %s

Respond with: {"topic": "<topic_name>"}`

// TopicResolver layers the LLM-assisted classification on top of the pure
// extraction. A nil resolver (or nil client) degrades to pure extraction.
type TopicResolver struct {
	llm   LLMClient
	model string
}

// NewTopicResolver creates a resolver backed by the given LLM client. model
// may be empty for providers with a default model.
func NewTopicResolver(llm LLMClient, model string) *TopicResolver {
	return &TopicResolver{llm: llm, model: model}
}

// Resolve finds a topic for the utterance: keyword/ordinal extraction first,
// LLM classification restricted to the five labels second, and the loose
// fuzzy pass last — and only after two failed attempts.
func (r *TopicResolver) Resolve(ctx context.Context, text string, priorAttempts int) Topic {
	if topic, ok := ExtractTopic(text, 0); ok {
		return topic
	}

	if r != nil && r.llm != nil {
		if topic, ok := r.classify(ctx, text); ok {
			return topic
		}
	}

	if priorAttempts >= 2 {
		if topic, ok := ExtractTopic(text, priorAttempts); ok {
			return topic
		}
	}

	return TopicUnknown
}

func (r *TopicResolver) classify(ctx context.Context, text string) (Topic, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TopicUnknown, false
	}

	prompt := strings.Replace(topicClassifierPrompt, "%s", text, 1)
	resp, err := r.llm.Complete(ctx, LLMRequest{
		Model:       r.model,
		Messages:    []ChatMessage{{Role: RoleUser, Content: prompt}},
		MaxTokens:   50,
		Temperature: 0,
	})
	if err != nil {
		return TopicUnknown, false
	}

	var result struct {
		Topic string `json:"topic"`
	}
	content := extractJSONObject(resp.Text)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return TopicUnknown, false
	}

	topic := Topic(result.Topic)
	if topic.Valid() {
		return topic, true
	}
	return TopicUnknown, false
}

// extractJSONObject pulls the first {...} span out of an LLM reply, which may
// pad the JSON with extra prose.
func extractJSONObject(text string) string {
	content := strings.TrimSpace(text)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
