package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Derived-state constants for the agent read model.
const (
	// BreakerSampleSize is how many of the newest decisions the breaker and
	// the failure rate look at.
	BreakerSampleSize = 10
	// BreakerFailureThreshold opens the breaker when reached within the sample.
	BreakerFailureThreshold = 3
	// HealthMinFeedback is the smallest in-window sample for which the health
	// view reports an approval rate.
	HealthMinFeedback = 5
	// StatusWindow is the fixed window of the status and health views.
	StatusWindow = 7 * 24 * time.Hour

	// DefaultAutonomyLevel applies when no decision has been recorded yet;
	// rollbacks also reset to it.
	DefaultAutonomyLevel = 2
	// DefaultPromptVersion is reported when no prompt version is active.
	DefaultPromptVersion = "v1.0.0"

	lowApprovalThreshold      = 0.5
	criticalApprovalThreshold = 0.3
	highFailureRate           = 0.3
)

// Canned suggestion texts of the learning insights view.
const (
	SuggestInsufficientData = "Insufficient data for analysis"
	SuggestKeepGoing        = "Keep going: no recurring problems detected"
	SuggestTone             = "Revisit the tone of the content: rejections frequently cite tone"
	SuggestTooLong          = "Shorten the content: it is frequently rejected as too long"
	SuggestOffTopic         = "Improve topic relevance"
	SuggestCriticalApproval = "CRITICAL: approval rate below 50%, the prompt needs review"
)

// Rejection reason keys the suggestion rules look for.
const (
	ReasonTone     = "tone"
	ReasonTooLong  = "too_long"
	ReasonOffTopic = "off_topic"
)

// BreakerState is the derived circuit-breaker signal.
type BreakerState string

const (
	BreakerClosed BreakerState = "closed"
	BreakerOpen   BreakerState = "open"
)

// TrafficLight is the aggregate health colour.
type TrafficLight string

const (
	HealthGreen  TrafficLight = "GREEN"
	HealthYellow TrafficLight = "YELLOW"
	HealthRed    TrafficLight = "RED"
)

var autonomyNames = map[int]string{
	1: "SHADOW",
	2: "DRAFT",
	3: "BOUNDED",
	4: "AUTONOMOUS",
}

// AutonomyName maps an autonomy level to its name, "UNKNOWN" otherwise.
func AutonomyName(level int) string {
	if n, ok := autonomyNames[level]; ok {
		return n
	}
	return "UNKNOWN"
}

// FeedbackCounts is a per-kind tally of feedback in some window.
type FeedbackCounts struct {
	Approved int64
	Rejected int64
	Edited   int64
}

// Add increments the tally for kind by n. Unknown kinds are ignored.
func (c *FeedbackCounts) Add(kind FeedbackKind, n int64) {
	switch kind {
	case FeedbackApproved:
		c.Approved += n
	case FeedbackRejected:
		c.Rejected += n
	case FeedbackEdited:
		c.Edited += n
	}
}

// Total is the number of feedback rows tallied.
func (c FeedbackCounts) Total() int64 { return c.Approved + c.Rejected + c.Edited }

// ByKind returns the tally keyed by kind, with every kind present.
func (c FeedbackCounts) ByKind() map[FeedbackKind]int64 {
	return map[FeedbackKind]int64{
		FeedbackApproved: c.Approved,
		FeedbackRejected: c.Rejected,
		FeedbackEdited:   c.Edited,
	}
}

// ApprovalRate is (approved + edited) / total, and exactly 0.0 when the
// window is empty.
func ApprovalRate(c FeedbackCounts) float64 {
	total := c.Total()
	if total == 0 {
		return 0.0
	}
	return float64(c.Approved+c.Edited) / float64(total)
}

// HealthApprovalRate is ApprovalRate restricted to statistically meaningful
// windows: defined is false below HealthMinFeedback rows. It intentionally
// differs from ApprovalRate on small windows.
func HealthApprovalRate(c FeedbackCounts) (rate float64, defined bool) {
	if c.Total() < HealthMinFeedback {
		return 0, false
	}
	return ApprovalRate(c), true
}

// breakerSample trims recent (newest first) to the breaker sample.
func breakerSample(recent []AgentDecision) []AgentDecision {
	if len(recent) > BreakerSampleSize {
		return recent[:BreakerSampleSize]
	}
	return recent
}

// CountFailures counts failure outcomes among the newest BreakerSampleSize
// decisions. recent must be ordered newest first.
func CountFailures(recent []AgentDecision) int {
	n := 0
	for _, d := range breakerSample(recent) {
		if d.Outcome != nil && *d.Outcome == OutcomeFailure {
			n++
		}
	}
	return n
}

// EvaluateBreaker derives the breaker state from the ledger tail. There is no
// half-open state and no reset timer: the answer depends only on recent.
func EvaluateBreaker(recent []AgentDecision) BreakerState {
	if CountFailures(recent) >= BreakerFailureThreshold {
		return BreakerOpen
	}
	return BreakerClosed
}

// FailureRate is failures / sample size over the breaker sample, 0 when the
// ledger is empty.
func FailureRate(recent []AgentDecision) float64 {
	s := breakerSample(recent)
	if len(s) == 0 {
		return 0
	}
	return float64(CountFailures(s)) / float64(len(s))
}

// Suggestions builds the rule-based improvement list of the insights view.
// An empty window short-circuits to SuggestInsufficientData.
func Suggestions(c FeedbackCounts, reasons map[string]int64) []string {
	if c.Total() == 0 {
		return []string{SuggestInsufficientData}
	}
	var out []string
	if _, ok := reasons[ReasonTone]; ok {
		out = append(out, SuggestTone)
	}
	if _, ok := reasons[ReasonTooLong]; ok {
		out = append(out, SuggestTooLong)
	}
	if _, ok := reasons[ReasonOffTopic]; ok {
		out = append(out, SuggestOffTopic)
	}
	if ApprovalRate(c) < lowApprovalThreshold {
		out = append(out, SuggestCriticalApproval)
	}
	if len(out) == 0 {
		return []string{SuggestKeepGoing}
	}
	return out
}

// HealthInput carries the measurements the traffic light is derived from.
type HealthInput struct {
	ApprovalRate    float64
	ApprovalDefined bool
	FailureRate     float64
	HasActivePrompt bool
}

// HealthVerdict is the traffic-light outcome with the issues that led to it.
type HealthVerdict struct {
	Status  TrafficLight
	Message string
	Issues  []string
}

// EvaluateHealth resolves the traffic light. RED requires at least one issue
// and either an issue marked CRITICAL or a defined approval rate below 0.3;
// none of the issues generated here carry the marker today.
func EvaluateHealth(in HealthInput) HealthVerdict {
	issues := []string{}
	if in.ApprovalDefined && in.ApprovalRate < lowApprovalThreshold {
		issues = append(issues, fmt.Sprintf("LOW_APPROVAL_RATE: %.1f%%", in.ApprovalRate*100))
	}
	if in.FailureRate >= highFailureRate {
		issues = append(issues, fmt.Sprintf("HIGH_FAILURE_RATE: %.1f%%", in.FailureRate*100))
	}
	if !in.HasActivePrompt {
		issues = append(issues, "NO_ACTIVE_PROMPT")
	}

	switch {
	case len(issues) == 0:
		return HealthVerdict{Status: HealthGreen, Message: "Agent operating normally", Issues: issues}
	case hasCritical(issues) || (in.ApprovalDefined && in.ApprovalRate < criticalApprovalThreshold):
		return HealthVerdict{Status: HealthRed, Message: "Critical issues detected", Issues: issues}
	default:
		return HealthVerdict{Status: HealthYellow, Message: "Agent needs attention", Issues: issues}
	}
}

func hasCritical(issues []string) bool {
	for _, i := range issues {
		if strings.Contains(i, "CRITICAL") {
			return true
		}
	}
	return false
}

// Round3 rounds x to three decimals, the precision rates are reported with.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
