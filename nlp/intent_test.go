package nlp_test

import (
	"testing"

	"github.com/pixie/hr-copilot/nlp"
)

func classify(t *testing.T, text string) nlp.Classification {
	t.Helper()
	return nlp.Classify(text, nlp.DefaultConfidenceThreshold)
}

func TestClassify_CoreIntents(t *testing.T) {
	tests := []struct {
		text string
		want nlp.Intent
	}{
		{"I want to apply for sick leave", nlp.IntentApplyLeave},
		{"I want sick leave next Friday for 1 day", nlp.IntentApplyLeave},
		{"need leave tomorrow", nlp.IntentApplyLeave},
		{"can I take off next week", nlp.IntentApplyLeave},
		{"what's my leave balance", nlp.IntentCheckBalance},
		{"how many leaves do I have left", nlp.IntentCheckBalance},
		{"show my leave history", nlp.IntentViewHistory},
		{"what is the sick leave policy", nlp.IntentPolicyQuery},
		{"how much notice do I need to give", nlp.IntentPolicyQuery},
		{"cancel that", nlp.IntentCancel},
		{"never mind", nlp.IntentCancel},
	}
	for _, tt := range tests {
		got := classify(t, tt.text)
		if got.Intent != tt.want {
			t.Errorf("Classify(%q) = %s (%.2f), want %s", tt.text, got.Intent, got.Confidence, tt.want)
		}
	}
}

func TestClassify_BalanceQuestionIsNotHijackedByApplyVerbs(t *testing.T) {
	// "want" plus "leave" co-occur here, but the balance phrase must win.
	got := classify(t, "I want to check my leave balance")
	if got.Intent != nlp.IntentCheckBalance {
		t.Errorf("got %s, want check_balance", got.Intent)
	}
}

func TestClassify_LowConfidenceIsUnknown(t *testing.T) {
	// GIVEN: an utterance with no known keywords
	// THEN: unknown, never a guessed intent.
	got := classify(t, "hello there")
	if got.Intent != nlp.IntentUnknown {
		t.Errorf("got %s (%.2f), want unknown", got.Intent, got.Confidence)
	}

	// A raised threshold turns weak matches into unknown too.
	got = nlp.Classify("rules", 0.95)
	if got.Intent != nlp.IntentUnknown {
		t.Errorf("got %s, want unknown above threshold", got.Intent)
	}
}

func TestClassifyInDialogue_SlotAnswerContinues(t *testing.T) {
	// Mid-dialogue, a bare slot answer counts as continuing the
	// application rather than an unknown fresh intent.
	for _, text := range []string{"sick", "next friday", "2025-04-18", "casual leave"} {
		got := nlp.ClassifyInDialogue(text, nlp.DefaultConfidenceThreshold)
		if got.Intent != nlp.IntentApplyLeave {
			t.Errorf("ClassifyInDialogue(%q) = %s, want apply_leave", text, got.Intent)
		}
	}
}

func TestClassifyInDialogue_CancelStillWins(t *testing.T) {
	got := nlp.ClassifyInDialogue("cancel", nlp.DefaultConfidenceThreshold)
	if got.Intent != nlp.IntentCancel {
		t.Errorf("got %s, want cancel", got.Intent)
	}
}

func TestTurnHelpers(t *testing.T) {
	if !nlp.IsAffirmation("yes") || !nlp.IsAffirmation("yes please") || !nlp.IsAffirmation("ok") {
		t.Error("affirmations not recognized")
	}
	if nlp.IsAffirmation("yesterday was fine") {
		t.Error("prefix word should not read as affirmation")
	}
	if !nlp.IsNegation("no") || !nlp.IsNegation("nope, wrong") {
		t.Error("negations not recognized")
	}
	if !nlp.IsCorrection("actually make it casual") || !nlp.IsCorrection("change the start date") {
		t.Error("corrections not recognized")
	}
	if nlp.IsCorrection("sick leave tomorrow") {
		t.Error("plain slot answer should not read as correction")
	}
}
