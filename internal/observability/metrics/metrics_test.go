package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wealthdesk/advisor-ai-platform/internal/dialogue"
)

func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %q not registered", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestObserveTurn(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogueMetrics(reg)

	m.ObserveTurn(dialogue.StateConfirmingBooking, dialogue.IntentBookNew, 40*time.Millisecond)
	m.ObserveTurn(dialogue.StateConfirmingBooking, dialogue.IntentBookNew, 60*time.Millisecond)

	turns := gatherFamily(t, reg, "advisor_dialogue_turns_total")
	if len(turns.GetMetric()) != 1 {
		t.Fatalf("turns series = %d, want 1", len(turns.GetMetric()))
	}
	series := turns.GetMetric()[0]
	if got := series.GetCounter().GetValue(); got != 2 {
		t.Errorf("turns_total = %v, want 2", got)
	}
	if labelValue(series, "state") != string(dialogue.StateConfirmingBooking) {
		t.Errorf("state label = %q", labelValue(series, "state"))
	}
	if labelValue(series, "intent") != string(dialogue.IntentBookNew) {
		t.Errorf("intent label = %q", labelValue(series, "intent"))
	}

	latency := gatherFamily(t, reg, "advisor_dialogue_turn_latency_seconds")
	hist := latency.GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 2 {
		t.Errorf("latency samples = %d, want 2", hist.GetSampleCount())
	}
	if want := 0.1; hist.GetSampleSum() < want-0.001 || hist.GetSampleSum() > want+0.001 {
		t.Errorf("latency sum = %v, want ~%v", hist.GetSampleSum(), want)
	}
}

func TestObserveClassifierFallback(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogueMetrics(reg)

	m.ObserveClassifierFallback("remote_error")
	m.ObserveClassifierFallback("low_confidence")
	m.ObserveClassifierFallback("low_confidence")

	fallbacks := gatherFamily(t, reg, "advisor_dialogue_classifier_fallbacks_total")
	counts := map[string]float64{}
	for _, series := range fallbacks.GetMetric() {
		counts[labelValue(series, "reason")] = series.GetCounter().GetValue()
	}
	if counts["remote_error"] != 1 || counts["low_confidence"] != 2 {
		t.Errorf("fallback counts = %v", counts)
	}
}

func TestObserveBooking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogueMetrics(reg)

	m.ObserveBooking("confirmed")
	m.ObserveBooking("rejected")

	bookings := gatherFamily(t, reg, "advisor_dialogue_bookings_total")
	if len(bookings.GetMetric()) != 2 {
		t.Errorf("booking series = %d, want 2", len(bookings.GetMetric()))
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *DialogueMetrics

	// Must not panic.
	m.ObserveTurn(dialogue.StateGreeting, dialogue.IntentUnknown, time.Millisecond)
	m.ObserveClassifierFallback("remote_error")
	m.ObserveBooking("error")
}
