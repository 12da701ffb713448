package domain

import "strings"

// Extraction is the sparse result of one extraction pass over a transcript.
// Every field is optional: nil means the model saw no evidence for it.
// Extractions are ephemeral values, consumed by the reconciler and discarded.
type Extraction struct {
	Name        *string
	Phone       *string
	Email       *string
	Budget      *string
	Preferences *string
	VIP         bool
}

// Empty reports whether the extraction carries no profile data at all.
func (e Extraction) Empty() bool {
	return !e.VIP &&
		isBlank(e.Name) && isBlank(e.Phone) && isBlank(e.Email) &&
		isBlank(e.Budget) && isBlank(e.Preferences)
}

// HasContactField reports whether at least one identifying field is present.
// A lead is only created once the visitor has yielded one of these.
func (e Extraction) HasContactField() bool {
	return !isBlank(e.Name) || !isBlank(e.Phone) || !isBlank(e.Email)
}

// LeadFields is the merge-managed profile portion of a lead record.
type LeadFields struct {
	Name        string
	Phone       string
	Email       string
	Budget      string
	Preferences string
}

// MergeResult reports the outcome of applying an extraction to stored fields.
type MergeResult struct {
	Fields LeadFields
	// PhoneJustCaptured is true iff phone was absent before and present now.
	// It gates the welcome-workflow trigger.
	PhoneJustCaptured bool
	// Changed is true when any stored field differs after the merge.
	Changed bool
}

// Merge applies one extraction to the stored lead fields.
//
// The policy is asymmetric on purpose: low-stakes fields (name, budget,
// preferences) may be refined by later extractions to correct early
// misreads; phone and email never change once populated, so verified
// contact data cannot be clobbered by the model. An empty incoming value
// never overwrites a populated field. Per-field the merge is idempotent
// and order-tolerant for phone/email: any ordering of the same extractions
// converges to the same contact data.
func Merge(current LeadFields, in Extraction) MergeResult {
	merged := current

	if v, ok := value(in.Name); ok {
		merged.Name = v
	}
	if v, ok := value(in.Budget); ok {
		merged.Budget = v
	}
	if v, ok := value(in.Preferences); ok {
		merged.Preferences = v
	}
	if v, ok := value(in.Phone); ok && current.Phone == "" {
		merged.Phone = v
	}
	if v, ok := value(in.Email); ok && current.Email == "" {
		merged.Email = v
	}

	return MergeResult{
		Fields:            merged,
		PhoneJustCaptured: current.Phone == "" && merged.Phone != "",
		Changed:           merged != current,
	}
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func value(s *string) (string, bool) {
	if isBlank(s) {
		return "", false
	}
	return strings.TrimSpace(*s), true
}
