package workflow

import "github.com/filigree-dev/filigree/internal/types"

// Built-in pack names
const (
	PackCore     = "core"
	PackPlanning = "planning"
)

// DefaultEnabledPacks is the pack list new projects start with.
var DefaultEnabledPacks = []string{PackCore, PackPlanning}

// corePack covers the everyday issue types.
func corePack() *Pack {
	return &Pack{
		Name:        PackCore,
		Description: "Standard task, bug, and epic workflows",
		Types: []TypeTemplate{
			{
				Name:         "task",
				DisplayName:  "Task",
				Description:  "A unit of work",
				InitialState: "open",
				States: []State{
					{Name: "open", Category: types.CategoryOpen},
					{Name: "in_progress", Category: types.CategoryWIP},
					{Name: "blocked", Category: types.CategoryWIP},
					{Name: "closed", Category: types.CategoryDone},
				},
				Transitions: []Transition{
					{From: "open", To: "in_progress"},
					{From: "open", To: "closed"},
					{From: "in_progress", To: "blocked"},
					{From: "in_progress", To: "open"},
					{From: "in_progress", To: "closed"},
					{From: "blocked", To: "in_progress"},
					{From: "blocked", To: "open"},
					{From: "closed", To: "open"},
				},
			},
			{
				Name:         "bug",
				DisplayName:  "Bug",
				Description:  "A defect to triage, fix, and verify",
				InitialState: "triage",
				States: []State{
					{Name: "triage", Category: types.CategoryOpen},
					{Name: "confirmed", Category: types.CategoryOpen},
					{Name: "fixing", Category: types.CategoryWIP},
					{Name: "verifying", Category: types.CategoryWIP},
					{Name: "closed", Category: types.CategoryDone},
				},
				Transitions: []Transition{
					{From: "triage", To: "confirmed", Enforcement: EnforcementSoft, RequiresFields: []string{"severity"}},
					{From: "triage", To: "closed"},
					{From: "confirmed", To: "fixing", Enforcement: EnforcementSoft, RequiresFields: []string{"root_cause"}},
					{From: "confirmed", To: "triage"},
					{From: "fixing", To: "verifying", Enforcement: EnforcementSoft, RequiresFields: []string{"fix_verification"}},
					{From: "fixing", To: "confirmed"},
					{From: "verifying", To: "closed", Enforcement: EnforcementHard, RequiresFields: []string{"fix_verification"}},
					{From: "verifying", To: "fixing"},
					{From: "closed", To: "triage"},
				},
				Fields: []FieldSchema{
					{Name: "severity", Type: "enum", Options: []string{"critical", "major", "minor", "trivial"},
						Description: "Impact of the defect", RequiredAt: []string{"confirmed", "fixing", "verifying", "closed"}},
					{Name: "root_cause", Type: "text", Description: "Why the defect happened",
						RequiredAt: []string{"fixing", "verifying", "closed"}},
					{Name: "fix_verification", Type: "text", Description: "How the fix was verified",
						RequiredAt: []string{"closed"}},
				},
			},
			{
				Name:         "epic",
				DisplayName:  "Epic",
				Description:  "A large body of work grouping child issues",
				InitialState: "open",
				States: []State{
					{Name: "open", Category: types.CategoryOpen},
					{Name: "in_progress", Category: types.CategoryWIP},
					{Name: "closed", Category: types.CategoryDone},
				},
				Transitions: []Transition{
					{From: "open", To: "in_progress"},
					{From: "in_progress", To: "open"},
					{From: "in_progress", To: "closed"},
					{From: "open", To: "closed"},
					{From: "closed", To: "open"},
				},
			},
		},
	}
}

// planningPack covers plan creation: milestone -> phase -> step.
func planningPack() *Pack {
	planStates := []State{
		{Name: "planned", Category: types.CategoryOpen},
		{Name: "active", Category: types.CategoryWIP},
		{Name: "done", Category: types.CategoryDone},
	}
	planTransitions := []Transition{
		{From: "planned", To: "active"},
		{From: "active", To: "planned"},
		{From: "active", To: "done"},
		{From: "planned", To: "done"},
		{From: "done", To: "planned"},
	}
	mk := func(name, display, desc string) TypeTemplate {
		return TypeTemplate{
			Name:         name,
			DisplayName:  display,
			Description:  desc,
			InitialState: "planned",
			States:       planStates,
			Transitions:  planTransitions,
		}
	}
	return &Pack{
		Name:        PackPlanning,
		Description: "Milestone / phase / step planning hierarchy",
		Types: []TypeTemplate{
			mk("milestone", "Milestone", "A deliverable made of phases"),
			mk("phase", "Phase", "An ordered stage of a milestone"),
			mk("step", "Step", "A concrete step within a phase"),
		},
	}
}

// Builtin returns a registry holding the default built-in packs, without
// consulting any on-disk overrides.
func Builtin() *Registry {
	packs := builtinPacks()
	ordered := make([]*Pack, 0, len(DefaultEnabledPacks))
	for _, name := range DefaultEnabledPacks {
		ordered = append(ordered, packs[name])
	}
	return NewRegistry(ordered...)
}

// builtinPacks returns the packs shipped with the binary, keyed by name.
func builtinPacks() map[string]*Pack {
	return map[string]*Pack{
		PackCore:     corePack(),
		PackPlanning: planningPack(),
	}
}
