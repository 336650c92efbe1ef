package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func decisions(outcomes ...Outcome) []AgentDecision {
	out := make([]AgentDecision, len(outcomes))
	for i := range outcomes {
		o := outcomes[i]
		out[i] = AgentDecision{Kind: DecisionGenerate, AutonomyLevel: 2, Outcome: &o}
	}
	return out
}

func repeat(o Outcome, n int) []Outcome {
	out := make([]Outcome, n)
	for i := range out {
		out[i] = o
	}
	return out
}

func TestEvaluateBreaker(t *testing.T) {
	open := decisions(append([]Outcome{OutcomeFailure, OutcomeFailure, OutcomeFailure}, repeat(OutcomeSuccess, 7)...)...)
	require.Equal(t, BreakerOpen, EvaluateBreaker(open))

	closed := decisions(append([]Outcome{OutcomeFailure, OutcomeFailure}, repeat(OutcomeSuccess, 8)...)...)
	require.Equal(t, BreakerClosed, EvaluateBreaker(closed))

	// Failures outside the newest ten do not count.
	old := decisions(append(repeat(OutcomeSuccess, 10), repeat(OutcomeFailure, 5)...)...)
	require.Equal(t, BreakerClosed, EvaluateBreaker(old))

	require.Equal(t, BreakerClosed, EvaluateBreaker(nil))

	// Unset outcomes are not failures.
	unset := []AgentDecision{{Kind: DecisionGenerate}, {Kind: DecisionGenerate}, {Kind: DecisionGenerate}}
	require.Equal(t, BreakerClosed, EvaluateBreaker(unset))
}

func TestFailureRate(t *testing.T) {
	require.Equal(t, 0.0, FailureRate(nil))
	require.InDelta(t, 0.3, FailureRate(decisions(append(repeat(OutcomeFailure, 3), repeat(OutcomeSuccess, 7)...)...)), 1e-9)
	require.InDelta(t, 0.5, FailureRate(decisions(OutcomeFailure, OutcomePending)), 1e-9)
}

func TestBreaker_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		outs := rapid.SliceOfN(rapid.SampledFrom(Outcomes), 0, 30).Draw(t, "outcomes")
		ds := decisions(outs...)
		fails := 0
		for i, o := range outs {
			if i < BreakerSampleSize && o == OutcomeFailure {
				fails++
			}
		}
		want := BreakerClosed
		if fails >= BreakerFailureThreshold {
			want = BreakerOpen
		}
		if got := EvaluateBreaker(ds); got != want {
			t.Fatalf("breaker=%s want %s (fails=%d)", got, want, fails)
		}
		r := FailureRate(ds)
		if r < 0 || r > 1 {
			t.Fatalf("failure rate out of range: %v", r)
		}
	})
}

func TestApprovalRates(t *testing.T) {
	require.Equal(t, 0.0, ApprovalRate(FeedbackCounts{}))

	c := FeedbackCounts{Approved: 2, Edited: 1, Rejected: 1}
	require.InDelta(t, 0.75, ApprovalRate(c), 1e-9)

	_, ok := HealthApprovalRate(c)
	require.False(t, ok, "four samples are below the health minimum")

	c.Add(FeedbackRejected, 1)
	r, ok := HealthApprovalRate(c)
	require.True(t, ok)
	require.InDelta(t, 0.6, r, 1e-9)

	c.Add(FeedbackUnknown, 10)
	require.EqualValues(t, 5, c.Total())
	require.Equal(t, map[FeedbackKind]int64{FeedbackApproved: 2, FeedbackRejected: 2, FeedbackEdited: 1}, c.ByKind())
}

func TestApprovalRate_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := FeedbackCounts{
			Approved: rapid.Int64Range(0, 1000).Draw(t, "approved"),
			Rejected: rapid.Int64Range(0, 1000).Draw(t, "rejected"),
			Edited:   rapid.Int64Range(0, 1000).Draw(t, "edited"),
		}
		r := ApprovalRate(c)
		if r < 0 || r > 1 || math.IsNaN(r) {
			t.Fatalf("approval rate out of range: %v", r)
		}
		hr, ok := HealthApprovalRate(c)
		if ok != (c.Total() >= HealthMinFeedback) {
			t.Fatalf("defined=%v with total=%d", ok, c.Total())
		}
		if ok && hr != r {
			t.Fatalf("health rate %v != approval rate %v", hr, r)
		}
	})
}

func TestAutonomyName(t *testing.T) {
	require.Equal(t, "SHADOW", AutonomyName(1))
	require.Equal(t, "DRAFT", AutonomyName(2))
	require.Equal(t, "BOUNDED", AutonomyName(3))
	require.Equal(t, "AUTONOMOUS", AutonomyName(4))
	require.Equal(t, "UNKNOWN", AutonomyName(0))
	require.Equal(t, "UNKNOWN", AutonomyName(7))
}

func TestSuggestions(t *testing.T) {
	require.Equal(t, []string{SuggestInsufficientData}, Suggestions(FeedbackCounts{}, map[string]int64{"tone": 3}))

	good := FeedbackCounts{Approved: 9, Rejected: 1}
	require.Equal(t, []string{SuggestKeepGoing}, Suggestions(good, map[string]int64{"other": 1}))

	bad := FeedbackCounts{Approved: 1, Rejected: 3}
	got := Suggestions(bad, map[string]int64{ReasonOffTopic: 1, ReasonTone: 2})
	require.Equal(t, []string{SuggestTone, SuggestOffTopic, SuggestCriticalApproval}, got)

	require.Equal(t, []string{SuggestTooLong}, Suggestions(good, map[string]int64{ReasonTooLong: 1}))
}

func TestEvaluateHealth(t *testing.T) {
	v := EvaluateHealth(HealthInput{ApprovalRate: 0.9, ApprovalDefined: true, FailureRate: 0.1, HasActivePrompt: true})
	require.Equal(t, HealthGreen, v.Status)
	require.Equal(t, "Agent operating normally", v.Message)
	require.Empty(t, v.Issues)

	v = EvaluateHealth(HealthInput{FailureRate: 0.3, HasActivePrompt: true})
	require.Equal(t, HealthYellow, v.Status)
	require.Equal(t, []string{"HIGH_FAILURE_RATE: 30.0%"}, v.Issues)

	v = EvaluateHealth(HealthInput{ApprovalRate: 0.4, ApprovalDefined: true, HasActivePrompt: true})
	require.Equal(t, HealthYellow, v.Status)
	require.Equal(t, []string{"LOW_APPROVAL_RATE: 40.0%"}, v.Issues)

	v = EvaluateHealth(HealthInput{ApprovalRate: 0.2, ApprovalDefined: true, HasActivePrompt: false})
	require.Equal(t, HealthRed, v.Status)
	require.Equal(t, "Critical issues detected", v.Message)
	require.Len(t, v.Issues, 2)

	// An undefined rate never makes the light red, even when it is zero.
	v = EvaluateHealth(HealthInput{ApprovalRate: 0, ApprovalDefined: false, HasActivePrompt: false})
	require.Equal(t, HealthYellow, v.Status)
	require.Equal(t, []string{"NO_ACTIVE_PROMPT"}, v.Issues)
	for _, i := range v.Issues {
		require.False(t, strings.Contains(i, "CRITICAL"))
	}
}

func TestRound3(t *testing.T) {
	require.Equal(t, 0.667, Round3(2.0/3.0))
	require.Equal(t, 0.5, Round3(0.5))
	require.Equal(t, 0.0, Round3(0))
}
