package dialogue

import (
	"context"
	"errors"
	"testing"
)

func TestExtractTopic(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		attempts  int
		wantTopic Topic
		wantOK    bool
	}{
		{name: "kyc keyword", input: "I need to finish my KYC", wantTopic: TopicOnboarding, wantOK: true},
		{name: "phonetic kyc", input: "I want to do kay see verification", wantTopic: TopicOnboarding, wantOK: true},
		{name: "sip keyword", input: "set up a SIP please", wantTopic: TopicMandates, wantOK: true},
		{name: "spelled out sip", input: "an s i p for monthly investing", wantTopic: TopicMandates, wantOK: true},
		{name: "statements", input: "i need my tax documents", wantTopic: TopicStatements, wantOK: true},
		{name: "withdrawal", input: "how do I take money out", wantTopic: TopicWithdrawals, wantOK: true},
		{name: "nominee change", input: "change the nominee on my account", wantTopic: TopicAccountChanges, wantOK: true},
		{name: "ordinal selection", input: "the second one", wantTopic: TopicMandates, wantOK: true},
		{name: "numeric selection", input: "4", wantTopic: TopicWithdrawals, wantOK: true},
		{name: "unrelated", input: "tell me a joke", wantOK: false},
		{name: "empty", input: "   ", wantOK: false},
		{name: "fuzzy needs attempts", input: "withdrawing", attempts: 0, wantOK: false},
		{name: "fuzzy after attempts", input: "withdrawing", attempts: 2, wantTopic: TopicWithdrawals, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, ok := ExtractTopic(tt.input, tt.attempts)
			if ok != tt.wantOK {
				t.Fatalf("ExtractTopic(%q, %d) ok = %v, want %v", tt.input, tt.attempts, ok, tt.wantOK)
			}
			if ok && topic != tt.wantTopic {
				t.Errorf("ExtractTopic(%q, %d) = %q, want %q", tt.input, tt.attempts, topic, tt.wantTopic)
			}
		})
	}
}

type fakeLLM struct {
	resp LLMResponse
	err  error
	reqs []LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return f.resp, nil
}

func TestTopicResolverPrefersExtraction(t *testing.T) {
	llm := &fakeLLM{resp: LLMResponse{Text: `{"topic": "withdrawals"}`}}
	r := NewTopicResolver(llm, "model-x")

	got := r.Resolve(context.Background(), "help me with KYC", 0)
	if got != TopicOnboarding {
		t.Fatalf("Resolve = %q, want %q", got, TopicOnboarding)
	}
	if len(llm.reqs) != 0 {
		t.Errorf("LLM was consulted for a keyword match, want 0 calls, got %d", len(llm.reqs))
	}
}

func TestTopicResolverFallsBackToLLM(t *testing.T) {
	llm := &fakeLLM{resp: LLMResponse{Text: "Sure! {\"topic\": \"statements_tax\"}"}}
	r := NewTopicResolver(llm, "model-x")

	got := r.Resolve(context.Background(), "the yearly paper thing from you folks", 0)
	if got != TopicStatements {
		t.Fatalf("Resolve = %q, want %q", got, TopicStatements)
	}
	if len(llm.reqs) != 1 {
		t.Fatalf("want 1 LLM call, got %d", len(llm.reqs))
	}
}

func TestTopicResolverRejectsInventedLabels(t *testing.T) {
	llm := &fakeLLM{resp: LLMResponse{Text: `{"topic": "crypto_trading"}`}}
	r := NewTopicResolver(llm, "model-x")

	if got := r.Resolve(context.Background(), "something unclassifiable", 0); got != TopicUnknown {
		t.Fatalf("Resolve accepted invented label, got %q", got)
	}
}

func TestTopicResolverLLMErrorDegrades(t *testing.T) {
	llm := &fakeLLM{err: errors.New("throttled")}
	r := NewTopicResolver(llm, "model-x")

	if got := r.Resolve(context.Background(), "mumbling about things", 0); got != TopicUnknown {
		t.Fatalf("Resolve = %q, want unknown on LLM error", got)
	}

	// After two failed attempts the fuzzy pass still works without the LLM.
	if got := r.Resolve(context.Background(), "withdrawing", 2); got != TopicWithdrawals {
		t.Fatalf("Resolve fuzzy = %q, want %q", got, TopicWithdrawals)
	}
}

func TestTopicResolverNilLLM(t *testing.T) {
	r := NewTopicResolver(nil, "")
	if got := r.Resolve(context.Background(), "statements please", 0); got != TopicStatements {
		t.Fatalf("Resolve = %q, want %q", got, TopicStatements)
	}
}

func TestTopicLabelsAndOrder(t *testing.T) {
	if len(topicOrder) != 5 {
		t.Fatalf("menu has %d topics, want 5", len(topicOrder))
	}
	for i, topic := range topicOrder {
		if !topic.Valid() {
			t.Errorf("topic %d (%q) not valid", i+1, topic)
		}
		if topic.Label() == "" {
			t.Errorf("topic %q has empty label", topic)
		}
	}
	if TopicUnknown.Valid() {
		t.Error("unknown topic must not be valid")
	}
}
