package domain

import "testing"

func strPtr(s string) *string { return &s }

func TestMergeDoesNotOverwritePopulatedWithEmpty(t *testing.T) {
	current := LeadFields{Name: "Ana", Phone: "+5511999999999", Email: "ana@example.com"}

	res := Merge(current, Extraction{})
	if res.Fields != current {
		t.Errorf("empty extraction mutated fields: %+v", res.Fields)
	}
	if res.Changed {
		t.Error("empty extraction reported Changed=true")
	}

	res = Merge(current, Extraction{Name: strPtr(""), Phone: strPtr("  "), Email: strPtr("")})
	if res.Fields != current {
		t.Errorf("blank extraction mutated fields: %+v", res.Fields)
	}
}

func TestMergePhoneImmutableAfterCapture(t *testing.T) {
	current := LeadFields{Name: "Ana", Phone: "+5511999999999"}

	res := Merge(current, Extraction{Phone: strPtr("+5511888888888")})
	if res.Fields.Phone != "+5511999999999" {
		t.Errorf("phone changed to %q after capture", res.Fields.Phone)
	}
	if res.PhoneJustCaptured {
		t.Error("re-reported phone flagged as just captured")
	}
}

func TestMergeEmailImmutableAfterCapture(t *testing.T) {
	current := LeadFields{Email: "ana@example.com"}

	res := Merge(current, Extraction{Email: strPtr("other@example.com")})
	if res.Fields.Email != "ana@example.com" {
		t.Errorf("email changed to %q after capture", res.Fields.Email)
	}
}

func TestMergeNameIsRefinable(t *testing.T) {
	current := LeadFields{Name: "Anna"}

	res := Merge(current, Extraction{Name: strPtr("Ana Souza")})
	if res.Fields.Name != "Ana Souza" {
		t.Errorf("name = %q, want refined value", res.Fields.Name)
	}
	if !res.Changed {
		t.Error("refinement reported Changed=false")
	}
}

func TestMergePhoneJustCaptured(t *testing.T) {
	res := Merge(LeadFields{Name: "Ana"}, Extraction{Phone: strPtr("+5511999999999")})
	if !res.PhoneJustCaptured {
		t.Error("first phone capture not flagged")
	}
	if res.Fields.Phone != "+5511999999999" {
		t.Errorf("phone = %q", res.Fields.Phone)
	}

	// Same extraction applied again: phone present, no re-capture.
	res = Merge(res.Fields, Extraction{Phone: strPtr("+5511999999999")})
	if res.PhoneJustCaptured {
		t.Error("idempotent re-apply flagged as capture")
	}
	if res.Changed {
		t.Error("idempotent re-apply reported Changed=true")
	}
}

func TestMergeOrderTolerantForContactFields(t *testing.T) {
	// With name held constant, any ordering of the same extractions must
	// converge to identical contact data.
	extractions := []Extraction{
		{Name: strPtr("Ana"), Phone: strPtr("+5511999999999")},
		{Name: strPtr("Ana"), Email: strPtr("ana@example.com")},
		{Name: strPtr("Ana"), Phone: strPtr("+5511888888888")},
	}

	orderings := [][]int{
		{0, 1, 2},
		{2, 1, 0},
		{1, 2, 0},
		{0, 2, 1},
	}

	var results []LeadFields
	for _, order := range orderings {
		fields := LeadFields{}
		for _, idx := range order {
			fields = Merge(fields, extractions[idx]).Fields
		}
		results = append(results, fields)
	}

	for i := 1; i < len(results); i++ {
		if results[i].Email != results[0].Email {
			t.Errorf("ordering %d: email %q != %q", i, results[i].Email, results[0].Email)
		}
		if results[i].Phone == "" {
			t.Errorf("ordering %d: phone lost", i)
		}
	}
}

func TestExtractionEmpty(t *testing.T) {
	if !(Extraction{}).Empty() {
		t.Error("zero extraction not Empty")
	}
	if !(Extraction{Name: strPtr("  ")}).Empty() {
		t.Error("whitespace-only extraction not Empty")
	}
	if (Extraction{VIP: true}).Empty() {
		t.Error("VIP-only extraction reported Empty")
	}
	if (Extraction{Phone: strPtr("+5511999999999")}).Empty() {
		t.Error("extraction with phone reported Empty")
	}
}

func TestExtractionHasContactField(t *testing.T) {
	if (Extraction{Budget: strPtr("R$ 2M")}).HasContactField() {
		t.Error("budget-only extraction reported contact field")
	}
	if !(Extraction{Name: strPtr("Ana")}).HasContactField() {
		t.Error("name not recognized as contact field")
	}
}
