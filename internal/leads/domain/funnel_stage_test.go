package domain

import "testing"

func TestClassifyRuleTable(t *testing.T) {
	tests := []struct {
		name    string
		current Stage
		fields  ContactFields
		vip     bool
		signal  Signal
		want    Stage
	}{
		{"no data stays visitor", StageVisitor, ContactFields{}, false, SignalNone, StageVisitor},
		{"name only is engaged", StageVisitor, ContactFields{Name: "Ana"}, false, SignalNone, StageEngaged},
		{"phone makes lead", StageVisitor, ContactFields{Phone: "+5511999999999"}, false, SignalNone, StageLead},
		{"email makes lead", StageEngaged, ContactFields{Email: "ana@example.com"}, false, SignalNone, StageLead},
		{"vip makes qualified", StageLead, ContactFields{Name: "Ana", Phone: "+5511999999999"}, true, SignalNone, StageQualified},
		{"explicit qualified signal", StageEngaged, ContactFields{Name: "Ana"}, false, SignalQualified, StageQualified},
		{"explicit converted signal wins over vip", StageQualified, ContactFields{}, true, SignalConverted, StageConverted},
	}

	for _, tc := range tests {
		got := Classify(tc.current, tc.fields, tc.vip, tc.signal)
		if got != tc.want {
			t.Errorf("%s: Classify(%q, %+v, %v, %q) = %q, want %q",
				tc.name, tc.current, tc.fields, tc.vip, tc.signal, got, tc.want)
		}
	}
}

func TestClassifyNeverRegresses(t *testing.T) {
	// A converted lead with data removed must not fall back down the funnel.
	got := Classify(StageConverted, ContactFields{}, false, SignalNone)
	if got != StageConverted {
		t.Errorf("Classify regressed converted lead to %q", got)
	}

	got = Classify(StageQualified, ContactFields{Name: "Ana"}, false, SignalNone)
	if got != StageQualified {
		t.Errorf("Classify regressed qualified lead to %q", got)
	}
}

func TestClassifyMonotonicAcrossSequence(t *testing.T) {
	// Applying a sequence of reconciliations never lowers the stage rank.
	steps := []struct {
		fields ContactFields
		vip    bool
		signal Signal
	}{
		{ContactFields{Name: "Ana"}, false, SignalNone},
		{ContactFields{Name: "Ana", Phone: "+5511999999999"}, false, SignalNone},
		{ContactFields{Name: "Ana"}, false, SignalNone}, // phone disappears from extraction
		{ContactFields{Name: "Ana", Phone: "+5511999999999"}, true, SignalNone},
		{ContactFields{}, false, SignalNone},
	}

	stage := StageVisitor
	for i, step := range steps {
		next := Classify(stage, step.fields, step.vip, step.signal)
		if next.Rank() < stage.Rank() {
			t.Fatalf("step %d: stage regressed from %q to %q", i, stage, next)
		}
		stage = next
	}

	if stage != StageQualified {
		t.Errorf("final stage = %q, want %q", stage, StageQualified)
	}
}

func TestIsKnownStage(t *testing.T) {
	for _, s := range []Stage{StageVisitor, StageEngaged, StageLead, StageQualified, StageConverted} {
		if !IsKnownStage(string(s)) {
			t.Errorf("IsKnownStage(%q) = false", s)
		}
	}
	if IsKnownStage("prospect") {
		t.Error("IsKnownStage accepted unknown stage")
	}
}
