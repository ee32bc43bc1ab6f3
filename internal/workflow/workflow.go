// Package workflow implements the template registry: per-type state
// machines, transition enforcement, and field requirements.
//
// Templates are grouped into packs. Built-in packs ship with the binary;
// projects may override or add pack and type definitions as JSON or YAML
// files under the project directory. The registry is immutable after load;
// reloading replaces it wholesale.
package workflow

import (
	"fmt"
	"strings"

	"github.com/filigree-dev/filigree/internal/types"
)

// Enforcement controls how a transition reacts to missing required fields.
type Enforcement string

// Transition enforcement levels
const (
	EnforcementHard Enforcement = "hard" // blocks when required fields are missing
	EnforcementSoft Enforcement = "soft" // warns but allows
	EnforcementNone Enforcement = "none" // free
)

// IsValid checks if the enforcement value is valid
func (e Enforcement) IsValid() bool {
	switch e {
	case EnforcementHard, EnforcementSoft, EnforcementNone:
		return true
	}
	return false
}

// State is one node of a type's state machine.
type State struct {
	Name     string         `json:"name" yaml:"name"`
	Category types.Category `json:"category" yaml:"category"`
}

// Transition is a declared edge of the state machine.
type Transition struct {
	From           string      `json:"from" yaml:"from"`
	To             string      `json:"to" yaml:"to"`
	Enforcement    Enforcement `json:"enforcement,omitempty" yaml:"enforcement,omitempty"`
	RequiresFields []string    `json:"requires_fields,omitempty" yaml:"requires_fields,omitempty"`
}

// FieldSchema declares a type-specific field.
type FieldSchema struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"` // text | enum | number
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	Default     string   `json:"default,omitempty" yaml:"default,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	RequiredAt  []string `json:"required_at,omitempty" yaml:"required_at,omitempty"`
}

// TypeTemplate is the full workflow definition for one issue type.
type TypeTemplate struct {
	Name        string        `json:"name" yaml:"name"`
	DisplayName string        `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	States      []State       `json:"states" yaml:"states"`
	InitialState string       `json:"initial_state" yaml:"initial_state"`
	Transitions []Transition  `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	Fields      []FieldSchema `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Pack groups type templates and can be enabled or disabled per project.
type Pack struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Types       []TypeTemplate `json:"types" yaml:"types"`
}

// validate checks a type template at parse time. Malformed templates are
// skipped by the loader, never fatal.
func (t *TypeTemplate) validate() error {
	if t.Name == "" {
		return fmt.Errorf("type has no name")
	}
	if len(t.States) == 0 {
		return fmt.Errorf("type %s declares no states", t.Name)
	}
	stateSet := make(map[string]bool, len(t.States))
	for _, s := range t.States {
		if s.Name == "" {
			return fmt.Errorf("type %s has a state with no name", t.Name)
		}
		if !s.Category.IsValid() {
			return fmt.Errorf("type %s state %s has invalid category %q", t.Name, s.Name, s.Category)
		}
		stateSet[s.Name] = true
	}
	if !stateSet[t.InitialState] {
		return fmt.Errorf("type %s initial_state %q is not in the state set", t.Name, t.InitialState)
	}
	for _, tr := range t.Transitions {
		if !stateSet[tr.From] || !stateSet[tr.To] {
			return fmt.Errorf("type %s transition %s->%s references unknown state", t.Name, tr.From, tr.To)
		}
		if tr.Enforcement != "" && !tr.Enforcement.IsValid() {
			return fmt.Errorf("type %s transition %s->%s has invalid enforcement %q", t.Name, tr.From, tr.To, tr.Enforcement)
		}
	}
	for _, f := range t.Fields {
		for _, st := range f.RequiredAt {
			if !stateSet[st] {
				return fmt.Errorf("type %s field %s required_at references unknown state %q", t.Name, f.Name, st)
			}
		}
	}
	return nil
}

// state returns the declared state by name, or nil.
func (t *TypeTemplate) state(name string) *State {
	for i := range t.States {
		if t.States[i].Name == name {
			return &t.States[i]
		}
	}
	return nil
}

// field returns the declared field schema by name, or nil.
func (t *TypeTemplate) field(name string) *FieldSchema {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// Registry resolves issue types to their workflow templates.
type Registry struct {
	packs    []*Pack
	types    map[string]*TypeTemplate
	warnings []string
}

// NewRegistry builds a registry from packs in priority order: when two
// packs define the same type, the earlier pack wins.
func NewRegistry(packs ...*Pack) *Registry {
	r := &Registry{types: make(map[string]*TypeTemplate)}
	for _, p := range packs {
		r.addPack(p)
	}
	return r
}

func (r *Registry) addPack(p *Pack) {
	r.packs = append(r.packs, p)
	for i := range p.Types {
		t := &p.Types[i]
		if err := t.validate(); err != nil {
			r.warnings = append(r.warnings, fmt.Sprintf("pack %s: skipping type: %v", p.Name, err))
			continue
		}
		if _, taken := r.types[t.Name]; taken {
			continue // earlier pack wins
		}
		r.types[t.Name] = t
	}
}

// Warnings returns parse-time warnings accumulated during load.
func (r *Registry) Warnings() []string { return r.warnings }

// Packs returns the loaded packs in priority order.
func (r *Registry) Packs() []*Pack { return r.packs }

// GetType returns the template for a type name, or nil when unregistered.
func (r *Registry) GetType(name string) *TypeTemplate {
	return r.types[name]
}

// TypeNames returns all registered type names.
func (r *Registry) TypeNames() []string {
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	return out
}

// IsReservedTypeName reports whether a label would collide
// case-insensitively with a registered type name.
func (r *Registry) IsReservedTypeName(label string) bool {
	for name := range r.types {
		if strings.EqualFold(name, label) {
			return true
		}
	}
	return false
}

// InitialState returns the initial state for a type, falling back to the
// literal "open" for unknown types.
func (r *Registry) InitialState(issueType string) string {
	if t := r.types[issueType]; t != nil {
		return t.InitialState
	}
	return "open"
}

// ValidStates returns the ordered state names for a type, or nil for
// unknown types (nil means "permissive").
func (r *Registry) ValidStates(issueType string) []string {
	t := r.types[issueType]
	if t == nil {
		return nil
	}
	out := make([]string, len(t.States))
	for i, s := range t.States {
		out[i] = s.Name
	}
	return out
}

// Category returns the declared category of a state, or "" when the type
// or state is unknown.
func (r *Registry) Category(issueType, state string) types.Category {
	if t := r.types[issueType]; t != nil {
		if s := t.state(state); s != nil {
			return s.Category
		}
	}
	return ""
}

// HeuristicCategory guesses a category for states of unregistered types.
func HeuristicCategory(state string) types.Category {
	switch strings.ToLower(state) {
	case "closed", "done", "fixed", "resolved", "archived", "wont_fix":
		return types.CategoryDone
	case "in_progress", "wip", "active", "doing", "review", "verifying":
		return types.CategoryWIP
	default:
		return types.CategoryOpen
	}
}

// CategoryOrHeuristic resolves a category via the template when registered,
// otherwise by name heuristic. Analytics must thread the issue's type
// through this; statuses are not comparable across types.
func (r *Registry) CategoryOrHeuristic(issueType, state string) types.Category {
	if c := r.Category(issueType, state); c != "" {
		return c
	}
	return HeuristicCategory(state)
}

// fieldPopulated reports whether a field value counts as supplied.
// Empty and whitespace-only strings count as missing.
func fieldPopulated(fields map[string]any, name string) bool {
	v, ok := fields[name]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// missingFields returns the required names not populated in fields.
func missingFields(required []string, fields map[string]any) []string {
	var missing []string
	for _, name := range required {
		if !fieldPopulated(fields, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// TransitionOption describes one allowed transition out of a state.
type TransitionOption struct {
	To             string         `json:"to"`
	Category       types.Category `json:"category"`
	Enforcement    Enforcement    `json:"enforcement"`
	RequiresFields []string       `json:"requires_fields,omitempty"`
	MissingFields  []string       `json:"missing_fields,omitempty"`
	Ready          bool           `json:"ready"` // all required fields populated
}

// ValidTransitions lists the declared transitions out of a state, with
// per-option readiness computed against the supplied field bag. Returns
// nil for unknown types.
func (r *Registry) ValidTransitions(issueType, state string, fields map[string]any) []TransitionOption {
	t := r.types[issueType]
	if t == nil {
		return nil
	}
	var opts []TransitionOption
	for _, tr := range t.Transitions {
		if tr.From != state {
			continue
		}
		missing := missingFields(tr.RequiresFields, fields)
		enf := tr.Enforcement
		if enf == "" {
			enf = EnforcementNone
		}
		opts = append(opts, TransitionOption{
			To:             tr.To,
			Category:       r.CategoryOrHeuristic(issueType, tr.To),
			Enforcement:    enf,
			RequiresFields: tr.RequiresFields,
			MissingFields:  missing,
			Ready:          len(missing) == 0,
		})
	}
	return opts
}

// TransitionCheck is the outcome of ValidateTransition.
type TransitionCheck struct {
	Allowed       bool
	Enforcement   Enforcement
	MissingFields []string
	Warnings      []string
}

// ValidateTransition decides whether from->to is allowed for a type.
//
// Unknown types are fully permissive. For known types, transitions not in
// the declared table are rejected; hard enforcement blocks on missing
// required fields, soft enforcement warns but allows.
func (r *Registry) ValidateTransition(issueType, from, to string, fields map[string]any) TransitionCheck {
	t := r.types[issueType]
	if t == nil {
		return TransitionCheck{Allowed: true, Enforcement: EnforcementNone}
	}
	if from == to {
		return TransitionCheck{Allowed: true, Enforcement: EnforcementNone}
	}
	for _, tr := range t.Transitions {
		if tr.From != from || tr.To != to {
			continue
		}
		missing := missingFields(tr.RequiresFields, fields)
		enf := tr.Enforcement
		if enf == "" {
			enf = EnforcementNone
		}
		check := TransitionCheck{Enforcement: enf, MissingFields: missing}
		switch {
		case len(missing) == 0:
			check.Allowed = true
		case enf == EnforcementHard:
			check.Allowed = false
		case enf == EnforcementSoft:
			check.Allowed = true
			check.Warnings = append(check.Warnings,
				fmt.Sprintf("transition %s -> %s is missing fields: %s", from, to, strings.Join(missing, ", ")))
		default:
			check.Allowed = true
		}
		return check
	}
	return TransitionCheck{Allowed: false, Enforcement: EnforcementHard}
}

// MissingFieldsForState returns the names of fields whose required_at set
// includes this state and which are unpopulated in the field bag.
func (r *Registry) MissingFieldsForState(issueType, state string, fields map[string]any) []string {
	t := r.types[issueType]
	if t == nil {
		return nil
	}
	var missing []string
	for _, f := range t.Fields {
		for _, st := range f.RequiredAt {
			if st == state && !fieldPopulated(fields, f.Name) {
				missing = append(missing, f.Name)
				break
			}
		}
	}
	return missing
}

// DoneState picks a done-category state for closing an issue of this type.
// Prefers a state literally named "closed", then the first done state.
// Unknown types fall back to the literal "closed".
func (r *Registry) DoneState(issueType string) string {
	t := r.types[issueType]
	if t == nil {
		return "closed"
	}
	var first string
	for _, s := range t.States {
		if s.Category != types.CategoryDone {
			continue
		}
		if s.Name == "closed" {
			return s.Name
		}
		if first == "" {
			first = s.Name
		}
	}
	if first != "" {
		return first
	}
	return "closed"
}

// ReopenState picks the state a done issue returns to: the initial state
// when it is open-category, otherwise the first open-category state.
func (r *Registry) ReopenState(issueType string) string {
	t := r.types[issueType]
	if t == nil {
		return "open"
	}
	if s := t.state(t.InitialState); s != nil && s.Category == types.CategoryOpen {
		return s.Name
	}
	for _, s := range t.States {
		if s.Category == types.CategoryOpen {
			return s.Name
		}
	}
	return t.InitialState
}
