package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filigree-dev/filigree/internal/types"
)

// testPack returns a minimal pack with one gated type for enforcement tests.
func testPack() *Pack {
	return &Pack{
		Name: "testing",
		Types: []TypeTemplate{
			{
				Name:         "release",
				InitialState: "draft",
				States: []State{
					{Name: "draft", Category: types.CategoryOpen},
					{Name: "review", Category: types.CategoryWIP},
					{Name: "shipped", Category: types.CategoryDone},
				},
				Transitions: []Transition{
					{From: "draft", To: "review", Enforcement: EnforcementSoft, RequiresFields: []string{"changelog"}},
					{From: "review", To: "shipped", Enforcement: EnforcementHard, RequiresFields: []string{"changelog", "sign_off"}},
					{From: "review", To: "draft"},
				},
				Fields: []FieldSchema{
					{Name: "changelog", Type: "text", RequiredAt: []string{"review", "shipped"}},
					{Name: "sign_off", Type: "text", RequiredAt: []string{"shipped"}},
				},
			},
		},
	}
}

func TestBuiltinTypes(t *testing.T) {
	r := Builtin()

	for _, name := range []string{"task", "bug", "epic", "milestone", "phase", "step"} {
		assert.NotNil(t, r.GetType(name), "missing built-in type %s", name)
	}
	assert.Empty(t, r.Warnings())

	assert.Equal(t, "open", r.InitialState("task"))
	assert.Equal(t, "triage", r.InitialState("bug"))
	assert.Equal(t, "planned", r.InitialState("milestone"))
	// Unknown types fall back to the literal open.
	assert.Equal(t, "open", r.InitialState("mystery"))

	assert.Equal(t, []string{"triage", "confirmed", "fixing", "verifying", "closed"}, r.ValidStates("bug"))
	assert.Nil(t, r.ValidStates("mystery"))
}

func TestRegistryCategory(t *testing.T) {
	r := Builtin()

	assert.Equal(t, types.CategoryOpen, r.Category("bug", "triage"))
	assert.Equal(t, types.CategoryWIP, r.Category("bug", "fixing"))
	assert.Equal(t, types.CategoryDone, r.Category("task", "closed"))
	assert.Equal(t, types.Category(""), r.Category("bug", "no_such_state"))
	assert.Equal(t, types.Category(""), r.Category("mystery", "open"))
}

func TestHeuristicCategory(t *testing.T) {
	cases := map[string]types.Category{
		"closed":      types.CategoryDone,
		"Done":        types.CategoryDone,
		"wont_fix":    types.CategoryDone,
		"in_progress": types.CategoryWIP,
		"REVIEW":      types.CategoryWIP,
		"open":        types.CategoryOpen,
		"anything":    types.CategoryOpen,
	}
	for state, want := range cases {
		assert.Equal(t, want, HeuristicCategory(state), "state %s", state)
	}
}

func TestCategoryOrHeuristic(t *testing.T) {
	r := Builtin()

	// Declared categories win over the name heuristic: verifying is WIP by
	// declaration and by heuristic, triage only by declaration.
	assert.Equal(t, types.CategoryOpen, r.CategoryOrHeuristic("bug", "triage"))
	// Unregistered type falls through to the heuristic.
	assert.Equal(t, types.CategoryDone, r.CategoryOrHeuristic("mystery", "resolved"))
	assert.Equal(t, types.CategoryOpen, r.CategoryOrHeuristic("mystery", "pending"))
}

func TestValidateTransitionUnknownTypePermissive(t *testing.T) {
	r := Builtin()

	check := r.ValidateTransition("mystery", "anything", "anywhere", nil)
	assert.True(t, check.Allowed)
	assert.Equal(t, EnforcementNone, check.Enforcement)
	assert.Empty(t, check.MissingFields)
}

func TestValidateTransitionSameState(t *testing.T) {
	r := Builtin()

	check := r.ValidateTransition("bug", "triage", "triage", nil)
	assert.True(t, check.Allowed)
}

func TestValidateTransitionUndeclared(t *testing.T) {
	r := Builtin()

	// triage -> verifying is not in the bug table.
	check := r.ValidateTransition("bug", "triage", "verifying", nil)
	assert.False(t, check.Allowed)
	assert.Equal(t, EnforcementHard, check.Enforcement)
	assert.Empty(t, check.MissingFields)
}

func TestValidateTransitionHard(t *testing.T) {
	r := NewRegistry(testPack())

	check := r.ValidateTransition("release", "review", "shipped", map[string]any{"changelog": "v2 notes"})
	assert.False(t, check.Allowed)
	assert.Equal(t, EnforcementHard, check.Enforcement)
	assert.Equal(t, []string{"sign_off"}, check.MissingFields)

	check = r.ValidateTransition("release", "review", "shipped",
		map[string]any{"changelog": "v2 notes", "sign_off": "qa"})
	assert.True(t, check.Allowed)
	assert.Empty(t, check.MissingFields)
	assert.Empty(t, check.Warnings)
}

func TestValidateTransitionSoft(t *testing.T) {
	r := NewRegistry(testPack())

	check := r.ValidateTransition("release", "draft", "review", nil)
	assert.True(t, check.Allowed)
	assert.Equal(t, EnforcementSoft, check.Enforcement)
	assert.Equal(t, []string{"changelog"}, check.MissingFields)
	require.Len(t, check.Warnings, 1)
	assert.Contains(t, check.Warnings[0], "draft -> review")
	assert.Contains(t, check.Warnings[0], "changelog")
}

func TestValidateTransitionFieldPopulation(t *testing.T) {
	r := NewRegistry(testPack())

	// Whitespace-only strings count as missing.
	check := r.ValidateTransition("release", "draft", "review", map[string]any{"changelog": "   "})
	assert.NotEmpty(t, check.MissingFields)

	// Non-string values count as supplied.
	check = r.ValidateTransition("release", "draft", "review", map[string]any{"changelog": 42})
	assert.Empty(t, check.MissingFields)

	// Explicit nil counts as missing.
	check = r.ValidateTransition("release", "draft", "review", map[string]any{"changelog": nil})
	assert.NotEmpty(t, check.MissingFields)
}

func TestValidTransitions(t *testing.T) {
	r := NewRegistry(testPack())

	opts := r.ValidTransitions("release", "review", map[string]any{"changelog": "notes"})
	require.Len(t, opts, 2)

	byTo := map[string]TransitionOption{}
	for _, o := range opts {
		byTo[o.To] = o
	}
	shipped := byTo["shipped"]
	assert.Equal(t, EnforcementHard, shipped.Enforcement)
	assert.Equal(t, []string{"sign_off"}, shipped.MissingFields)
	assert.False(t, shipped.Ready)
	assert.Equal(t, types.CategoryDone, shipped.Category)

	draft := byTo["draft"]
	assert.Equal(t, EnforcementNone, draft.Enforcement)
	assert.True(t, draft.Ready)

	assert.Nil(t, r.ValidTransitions("mystery", "open", nil))
}

func TestMissingFieldsForState(t *testing.T) {
	r := NewRegistry(testPack())

	missing := r.MissingFieldsForState("release", "shipped", map[string]any{"changelog": "notes"})
	assert.Equal(t, []string{"sign_off"}, missing)

	missing = r.MissingFieldsForState("release", "draft", nil)
	assert.Empty(t, missing)

	assert.Nil(t, r.MissingFieldsForState("mystery", "open", nil))
}

func TestDoneState(t *testing.T) {
	r := Builtin()
	assert.Equal(t, "closed", r.DoneState("task"))
	assert.Equal(t, "done", r.DoneState("milestone"))
	assert.Equal(t, "closed", r.DoneState("mystery"))

	// A pack without a state named closed picks the first done state.
	assert.Equal(t, "shipped", NewRegistry(testPack()).DoneState("release"))
}

func TestReopenState(t *testing.T) {
	r := Builtin()
	assert.Equal(t, "open", r.ReopenState("task"))
	// Bug's initial state is open-category, so reopen returns to triage.
	assert.Equal(t, "triage", r.ReopenState("bug"))
	assert.Equal(t, "open", r.ReopenState("mystery"))

	// When the initial state is not open-category, reopen picks the first
	// open state instead.
	p := &Pack{Name: "odd", Types: []TypeTemplate{{
		Name:         "job",
		InitialState: "running",
		States: []State{
			{Name: "running", Category: types.CategoryWIP},
			{Name: "queued", Category: types.CategoryOpen},
			{Name: "done", Category: types.CategoryDone},
		},
	}}}
	assert.Equal(t, "queued", NewRegistry(p).ReopenState("job"))
}

func TestRegistryConflictResolution(t *testing.T) {
	override := &Pack{Name: "local", Types: []TypeTemplate{{
		Name:         "task",
		InitialState: "todo",
		States: []State{
			{Name: "todo", Category: types.CategoryOpen},
			{Name: "finished", Category: types.CategoryDone},
		},
	}}}

	r := NewRegistry(override, corePack())
	assert.Equal(t, "todo", r.InitialState("task"), "earlier pack must win the type name")
	// Types the override does not declare still come from the later pack.
	assert.Equal(t, "triage", r.InitialState("bug"))
}

func TestRegistrySkipsInvalidTypes(t *testing.T) {
	bad := &Pack{Name: "broken", Types: []TypeTemplate{
		{
			Name:         "orphan",
			InitialState: "missing",
			States:       []State{{Name: "open", Category: types.CategoryOpen}},
		},
		{
			Name:         "fine",
			InitialState: "open",
			States:       []State{{Name: "open", Category: types.CategoryOpen}},
		},
	}}

	r := NewRegistry(bad)
	assert.Nil(t, r.GetType("orphan"))
	assert.NotNil(t, r.GetType("fine"))
	require.Len(t, r.Warnings(), 1)
	assert.Contains(t, r.Warnings()[0], "orphan")
}

func TestTypeTemplateValidate(t *testing.T) {
	base := func() TypeTemplate {
		return TypeTemplate{
			Name:         "thing",
			InitialState: "open",
			States: []State{
				{Name: "open", Category: types.CategoryOpen},
				{Name: "closed", Category: types.CategoryDone},
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		tt := base()
		assert.NoError(t, tt.validate())
	})
	t.Run("no name", func(t *testing.T) {
		tt := base()
		tt.Name = ""
		assert.Error(t, tt.validate())
	})
	t.Run("no states", func(t *testing.T) {
		tt := base()
		tt.States = nil
		assert.Error(t, tt.validate())
	})
	t.Run("bad category", func(t *testing.T) {
		tt := base()
		tt.States[0].Category = "sideways"
		assert.Error(t, tt.validate())
	})
	t.Run("transition to unknown state", func(t *testing.T) {
		tt := base()
		tt.Transitions = []Transition{{From: "open", To: "limbo"}}
		assert.Error(t, tt.validate())
	})
	t.Run("bad enforcement", func(t *testing.T) {
		tt := base()
		tt.Transitions = []Transition{{From: "open", To: "closed", Enforcement: "maybe"}}
		assert.Error(t, tt.validate())
	})
	t.Run("required_at unknown state", func(t *testing.T) {
		tt := base()
		tt.Fields = []FieldSchema{{Name: "f", Type: "text", RequiredAt: []string{"limbo"}}}
		assert.Error(t, tt.validate())
	})
}

func TestIsReservedTypeName(t *testing.T) {
	r := Builtin()
	assert.True(t, r.IsReservedTypeName("bug"))
	assert.True(t, r.IsReservedTypeName("BUG"))
	assert.False(t, r.IsReservedTypeName("backend"))
}
