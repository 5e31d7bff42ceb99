package nlp_test

import (
	"testing"

	"github.com/pixie/hr-copilot/leave"
	"github.com/pixie/hr-copilot/nlp"
)

func extractKinds(entities []nlp.Entity, kind nlp.EntityKind) []nlp.Entity {
	var out []nlp.Entity
	for _, e := range entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestExtract_LeaveTypeSynonyms(t *testing.T) {
	tests := []struct {
		text string
		want leave.LeaveType
	}{
		{"I need sick leave", leave.TypeSick},
		{"apply for sl tomorrow", leave.TypeSick},
		{"medical leave please", leave.TypeSick},
		{"casual leave on friday", leave.TypeCasual},
		{"taking a cl next week", leave.TypeCasual},
		{"privilege leave", leave.TypeCasual},
		{"pl for 2 days", leave.TypeCasual},
	}
	for _, tt := range tests {
		types := extractKinds(nlp.Extract(tt.text), nlp.EntityLeaveType)
		if len(types) != 1 {
			t.Fatalf("Extract(%q): want 1 leave type entity, got %d", tt.text, len(types))
		}
		if len(types[0].Candidates) != 1 || types[0].Candidates[0] != tt.want {
			t.Errorf("Extract(%q) candidates = %v, want [%s]", tt.text, types[0].Candidates, tt.want)
		}
	}
}

func TestExtract_AmbiguousTokenCarriesBothCandidates(t *testing.T) {
	// "paid" maps to two leave types; the extractor must surface both and
	// let the dialogue manager ask.
	types := extractKinds(nlp.Extract("I want paid leave"), nlp.EntityLeaveType)
	if len(types) != 1 {
		t.Fatalf("want 1 entity, got %d", len(types))
	}
	if len(types[0].Candidates) != 2 {
		t.Errorf("candidates = %v, want both casual and sick", types[0].Candidates)
	}
}

func TestExtract_FromToProducesLinkedPair(t *testing.T) {
	dates := extractKinds(nlp.Extract("leave from next monday to friday please"), nlp.EntityDateExpression)
	if len(dates) != 2 {
		t.Fatalf("want 2 date expressions, got %d: %v", len(dates), dates)
	}
	if dates[0].Text != "next monday" || dates[0].LinkedEnd {
		t.Errorf("start = %+v", dates[0])
	}
	if dates[1].Text != "friday" || !dates[1].LinkedEnd {
		t.Errorf("end = %+v", dates[1])
	}
}

func TestExtract_ISODatesInOrder(t *testing.T) {
	dates := extractKinds(nlp.Extract("sick leave 2025-04-10 to 2025-04-12"), nlp.EntityDateExpression)
	if len(dates) != 2 {
		t.Fatalf("want 2 dates, got %d: %v", len(dates), dates)
	}
	if dates[0].Text != "2025-04-10" || dates[1].Text != "2025-04-12" {
		t.Errorf("got %q, %q", dates[0].Text, dates[1].Text)
	}
}

func TestExtract_EmployeeID(t *testing.T) {
	refs := extractKinds(nlp.Extract("my employee id is 10001"), nlp.EntityEmployeeRef)
	if len(refs) != 1 || refs[0].Text != "10001" {
		t.Fatalf("refs = %v", refs)
	}
}

func TestExtract_EmployeeName(t *testing.T) {
	refs := extractKinds(nlp.Extract("i am sonal sharma, need leave"), nlp.EntityEmployeeRef)
	if len(refs) != 1 || refs[0].Text != "sonal sharma" {
		t.Fatalf("refs = %v", refs)
	}
}

func TestExtract_NameStopwordsNotNames(t *testing.T) {
	// "for tomorrow" must not produce an employee reference.
	refs := extractKinds(nlp.Extract("need leave for tomorrow"), nlp.EntityEmployeeRef)
	if len(refs) != 0 {
		t.Fatalf("refs = %v, want none", refs)
	}
}

func TestExtract_Duration(t *testing.T) {
	tests := []struct {
		text string
		days int
	}{
		{"sick leave for 3 days", 3},
		{"leave for one day", 1},
		{"take 2 days off", 2},
	}
	for _, tt := range tests {
		durs := extractKinds(nlp.Extract(tt.text), nlp.EntityDuration)
		if len(durs) != 1 {
			t.Fatalf("Extract(%q): want 1 duration, got %d", tt.text, len(durs))
		}
		if durs[0].Days != tt.days {
			t.Errorf("Extract(%q) days = %d, want %d", tt.text, durs[0].Days, tt.days)
		}
	}
}

func TestExtract_OrderedByPosition(t *testing.T) {
	entities := nlp.Extract("i am 10001 and want sick leave tomorrow")
	for i := 1; i < len(entities); i++ {
		if entities[i].Pos < entities[i-1].Pos {
			t.Fatalf("entities out of order: %v", entities)
		}
	}
}
