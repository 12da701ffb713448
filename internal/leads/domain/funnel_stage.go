// Package domain holds the pure lead-qualification rules: the funnel stage
// derivation and the extraction merge policy. Nothing in this package
// performs I/O.
package domain

// Stage is a lead's position in the qualification funnel. Stages are
// ordered; automatic reconciliation never moves a lead backward.
type Stage string

const (
	StageVisitor   Stage = "visitor"
	StageEngaged   Stage = "engaged"
	StageLead      Stage = "lead"
	StageQualified Stage = "qualified"
	StageConverted Stage = "converted"
)

var stageRank = map[Stage]int{
	StageVisitor:   0,
	StageEngaged:   1,
	StageLead:      2,
	StageQualified: 3,
	StageConverted: 4,
}

// Rank returns the stage's position in the funnel order. Unknown stages
// rank below visitor so corrupt data never blocks an advance.
func (s Stage) Rank() int {
	rank, ok := stageRank[s]
	if !ok {
		return -1
	}
	return rank
}

// IsKnownStage reports whether the string names a funnel stage.
func IsKnownStage(stage string) bool {
	_, ok := stageRank[Stage(stage)]
	return ok
}

// Signal is an explicit stage transition request carried alongside an
// extraction, e.g. an administrative qualification or a conversion event.
type Signal string

const (
	SignalNone      Signal = ""
	SignalQualified Signal = "qualified"
	SignalConverted Signal = "converted"
)

// ContactFields is the populated-field view Classify derives stages from.
type ContactFields struct {
	Name  string
	Phone string
	Email string
}

// Classify derives the funnel stage from the populated lead fields plus
// explicit signals. The highest applicable rule wins, and the result never
// ranks below the current stage: only explicit administrative overrides
// (outside this function) may regress a lead.
func Classify(current Stage, fields ContactFields, vip bool, signal Signal) Stage {
	candidate := StageVisitor

	switch {
	case signal == SignalConverted:
		candidate = StageConverted
	case signal == SignalQualified || vip:
		candidate = StageQualified
	case fields.Phone != "" || fields.Email != "":
		candidate = StageLead
	case fields.Name != "":
		candidate = StageEngaged
	}

	if candidate.Rank() < current.Rank() {
		return current
	}
	return candidate
}
