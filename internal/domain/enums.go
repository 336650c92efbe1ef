package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// Status is the pipeline state of a ContentItem.
type Status string

// Pipeline states. StatusUnknown is never stored; it is what ParseStatus
// yields for unrecognised input.
const (
	StatusIdea      Status = "idea"
	StatusDraft     Status = "draft"
	StatusReview    Status = "review"
	StatusScheduled Status = "scheduled"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
	StatusUnknown   Status = "unknown"
)

// Statuses lists every storable status in pipeline order.
var Statuses = []Status{StatusIdea, StatusDraft, StatusReview, StatusScheduled, StatusPublished, StatusRejected}

// Platform is the social network an item targets.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformLinkedIn Platform = "linkedin"
	PlatformVK       Platform = "vk"
	PlatformTwitter  Platform = "twitter"
	PlatformUnknown  Platform = "unknown"
)

// Platforms lists every storable platform.
var Platforms = []Platform{PlatformTelegram, PlatformLinkedIn, PlatformVK, PlatformTwitter}

// FeedbackKind is the verdict carried by a Feedback row.
type FeedbackKind string

const (
	FeedbackApproved FeedbackKind = "approved"
	FeedbackRejected FeedbackKind = "rejected"
	FeedbackEdited   FeedbackKind = "edited"
	FeedbackUnknown  FeedbackKind = "unknown"
)

// FeedbackKinds lists every storable feedback kind.
var FeedbackKinds = []FeedbackKind{FeedbackApproved, FeedbackRejected, FeedbackEdited}

// DecisionKind is the action type recorded in the agent decision ledger.
type DecisionKind string

const (
	DecisionGenerate     DecisionKind = "generate"
	DecisionPublish      DecisionKind = "publish"
	DecisionModifyPrompt DecisionKind = "modify_prompt"
	DecisionRollback     DecisionKind = "rollback"
	DecisionUnknown      DecisionKind = "unknown"
)

// DecisionKinds lists every storable decision kind.
var DecisionKinds = []DecisionKind{DecisionGenerate, DecisionPublish, DecisionModifyPrompt, DecisionRollback}

// Outcome tags the result of an agent decision. A nil *Outcome means unset.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePending Outcome = "pending"
	OutcomeUnknown Outcome = "unknown"
)

// Outcomes lists every storable outcome.
var Outcomes = []Outcome{OutcomeSuccess, OutcomeFailure, OutcomePending}

// LearningEventKind classifies a LearningEvent.
type LearningEventKind string

const (
	LearningReflexion       LearningEventKind = "reflexion"
	LearningRuleUpdate      LearningEventKind = "rule_update"
	LearningPatternDetected LearningEventKind = "pattern_detected"
	LearningRollback        LearningEventKind = "rollback"
	LearningUnknown         LearningEventKind = "unknown"
)

// LearningEventKinds lists every storable learning event kind.
var LearningEventKinds = []LearningEventKind{LearningReflexion, LearningRuleUpdate, LearningPatternDetected, LearningRollback}

// fold is shared by all parsers; cases.Caser is not safe for concurrent use,
// so each call builds its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// parseClosed matches s against a closed set after trimming and case folding.
func parseClosed[T ~string](s string, set []T, unknown T) (T, bool) {
	f := fold(s)
	for _, v := range set {
		if string(v) == f {
			return v, true
		}
	}
	return unknown, false
}

// ParseStatus maps s to a Status; ok is false (and StatusUnknown returned)
// when s is not one of Statuses.
func ParseStatus(s string) (Status, bool) { return parseClosed(s, Statuses, StatusUnknown) }

// ParsePlatform maps s to a Platform.
func ParsePlatform(s string) (Platform, bool) { return parseClosed(s, Platforms, PlatformUnknown) }

// ParseFeedbackKind maps s to a FeedbackKind.
func ParseFeedbackKind(s string) (FeedbackKind, bool) {
	return parseClosed(s, FeedbackKinds, FeedbackUnknown)
}

// ParseDecisionKind maps s to a DecisionKind.
func ParseDecisionKind(s string) (DecisionKind, bool) {
	return parseClosed(s, DecisionKinds, DecisionUnknown)
}

// ParseOutcome maps s to an Outcome.
func ParseOutcome(s string) (Outcome, bool) { return parseClosed(s, Outcomes, OutcomeUnknown) }

// ParseLearningEventKind maps s to a LearningEventKind.
func ParseLearningEventKind(s string) (LearningEventKind, bool) {
	return parseClosed(s, LearningEventKinds, LearningUnknown)
}

// Approves reports whether the verdict counts toward the approval rate.
func (k FeedbackKind) Approves() bool {
	return k == FeedbackApproved || k == FeedbackEdited
}
