package types

// PlanStep describes one step inside a phase of a plan.
//
// Deps lists blockers for this step. An int is a step index inside the
// same phase; a string of the form "phase.step" (zero-based indices)
// references a step in another phase. Negative indices are rejected.
type PlanStep struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    *int   `json:"priority,omitempty"`
	Deps        []any  `json:"deps,omitempty"`
}

// PlanPhase groups ordered steps under a milestone.
type PlanPhase struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Steps       []PlanStep `json:"steps"`
}

// PlanSpec describes a milestone with phases and steps to create atomically.
type PlanSpec struct {
	Milestone   string      `json:"milestone"`
	Description string      `json:"description,omitempty"`
	Phases      []PlanPhase `json:"phases"`
}

// PlanResult reports the ids created for a plan.
type PlanResult struct {
	MilestoneID string     `json:"milestone_id"`
	PhaseIDs    []string   `json:"phase_ids"`
	StepIDs     [][]string `json:"step_ids"` // indexed by [phase][step]
}
