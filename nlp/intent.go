/*
intent.go - Utterance intent classification

PURPOSE:
  Labels an utterance with one of a closed set of intents plus a
  confidence score. Keyword-driven, deterministic, and pure: same text,
  same answer. Below the confidence threshold the classifier returns
  IntentUnknown - callers re-prompt, they never default to a guess.

SESSION BIAS:
  Mid-dialogue, short answers like "sick" or "next friday" are slot
  fills, not fresh intents. ClassifyInDialogue nudges such continuations
  toward apply_leave so the dialogue manager keeps collecting instead of
  bouncing the user to "I didn't understand".
*/
package nlp

import "strings"

// =============================================================================
// INTENTS - Closed set with an explicit unknown member
// =============================================================================

type Intent string

const (
	IntentApplyLeave   Intent = "apply_leave"
	IntentCheckBalance Intent = "check_balance"
	IntentViewHistory  Intent = "view_history"
	IntentPolicyQuery  Intent = "policy_query"
	IntentCancel       Intent = "cancel"
	IntentUnknown      Intent = "unknown"
)

// DefaultConfidenceThreshold is the floor below which classification
// reports IntentUnknown.
const DefaultConfidenceThreshold = 0.5

// Classification is the classifier's verdict.
type Classification struct {
	Intent     Intent
	Confidence float64
}

// =============================================================================
// KEYWORD TABLES
// =============================================================================

type keywordRule struct {
	phrase string
	weight float64
}

var intentKeywords = map[Intent][]keywordRule{
	IntentCheckBalance: {
		{"leave balance", 0.95},
		{"balance", 0.8},
		{"how many leaves", 0.9},
		{"remaining leaves", 0.9},
		{"leaves left", 0.85},
		{"days left", 0.7},
	},
	IntentApplyLeave: {
		{"apply", 0.85},
		{"take leave", 0.9},
		{"request leave", 0.9},
		{"book leave", 0.9},
		{"need leave", 0.85},
		{"want leave", 0.8},
		{"take off", 0.7},
		{"day off", 0.7},
		{"on leave", 0.6},
	},
	IntentViewHistory: {
		{"leave history", 0.95},
		{"history", 0.7},
		{"past leaves", 0.9},
		{"previous leaves", 0.85},
		{"leaves taken", 0.8},
	},
	IntentPolicyQuery: {
		{"policy", 0.9},
		{"policies", 0.9},
		{"maternity", 0.85},
		{"paternity", 0.85},
		{"how much notice", 0.8},
		{"blackout", 0.8},
		{"rules", 0.6},
	},
	IntentCancel: {
		{"cancel", 0.95},
		{"never mind", 0.9},
		{"nevermind", 0.9},
		{"forget it", 0.9},
		{"stop", 0.7},
		{"quit", 0.7},
	},
}

// classifyOrder breaks score ties deterministically.
var classifyOrder = []Intent{
	IntentCancel,
	IntentCheckBalance,
	IntentViewHistory,
	IntentPolicyQuery,
	IntentApplyLeave,
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classify labels a fresh (out-of-dialogue) utterance.
func Classify(text string, threshold float64) Classification {
	return classify(text, threshold, false)
}

// ClassifyInDialogue labels an utterance arriving mid-dialogue, biasing
// toward the continuing apply_leave intent when the text looks like a slot
// answer (a leave type or date expression on its own).
func ClassifyInDialogue(text string, threshold float64) Classification {
	return classify(text, threshold, true)
}

func classify(text string, threshold float64, inDialogue bool) Classification {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	lower := strings.ToLower(text)

	best := Classification{Intent: IntentUnknown}
	for _, intent := range classifyOrder {
		score := 0.0
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(lower, kw.phrase) && kw.weight > score {
				score = kw.weight
			}
		}
		if score > best.Confidence {
			best = Classification{Intent: intent, Confidence: score}
		}
	}

	// "want/need/take/book/apply ... leave" with words in between
	// ("I want sick leave next Friday") still reads as an application.
	if (best.Intent == IntentUnknown || best.Intent == IntentApplyLeave) &&
		best.Confidence < 0.85 && strings.Contains(lower, "leave") {
		for _, verb := range []string{"want", "need", "take", "book", "apply", "request"} {
			if strings.Contains(lower, verb) {
				best = Classification{Intent: IntentApplyLeave, Confidence: 0.85}
				break
			}
		}
	}

	// A mid-dialogue utterance carrying extractable slots is a
	// continuation even without any apply keyword.
	if inDialogue && best.Intent != IntentCancel {
		if hasSlotContent(lower) {
			cont := Classification{Intent: IntentApplyLeave, Confidence: 0.75}
			if cont.Confidence > best.Confidence || best.Intent == IntentUnknown {
				best = cont
			}
		}
	}

	if best.Confidence < threshold {
		return Classification{Intent: IntentUnknown, Confidence: best.Confidence}
	}
	return best
}

func hasSlotContent(lower string) bool {
	for _, e := range Extract(lower) {
		switch e.Kind {
		case EntityLeaveType, EntityDateExpression, EntityEmployeeRef:
			return true
		}
	}
	return false
}

// =============================================================================
// TURN-LEVEL HELPERS (used by the dialogue manager)
// =============================================================================

var affirmations = []string{"yes", "yep", "yeah", "confirm", "sure", "ok", "okay", "submit", "go ahead", "please do", "y"}
var negations = []string{"no", "nope", "nah", "don't", "do not", "n"}
var corrections = []string{"actually", "change", "instead", "i meant", "make it", "not ", "correction"}

// IsAffirmation reports whether the utterance is a confirmation.
func IsAffirmation(text string) bool { return matchesAny(text, affirmations) }

// IsNegation reports whether the utterance declines.
func IsNegation(text string) bool { return matchesAny(text, negations) }

// IsCorrection reports whether the utterance explicitly corrects an
// earlier answer. Only a correcting turn may overwrite a filled slot.
func IsCorrection(text string) bool {
	lower := strings.ToLower(text)
	for _, c := range corrections {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

func matchesAny(text string, phrases []string) bool {
	lower := strings.TrimSpace(strings.ToLower(text))
	for _, p := range phrases {
		if lower == p || strings.HasPrefix(lower, p+" ") || strings.HasPrefix(lower, p+",") {
			return true
		}
	}
	return false
}
