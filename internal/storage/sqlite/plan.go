package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// CreatePlan materializes a milestone / phase / step hierarchy in one
// transaction. Steps become children of their phase, phases children of
// the milestone; step dependencies are resolved from indices and recorded
// with the same events add_dependency would produce. A failure anywhere
// rolls everything back.
func (s *FiligreeStore) CreatePlan(ctx context.Context, plan types.PlanSpec, actor string) (*types.PlanResult, error) {
	if strings.TrimSpace(plan.Milestone) == "" {
		return nil, fmt.Errorf("%w: plan milestone title is required", storage.ErrInvalidInput)
	}
	for pi, phase := range plan.Phases {
		if strings.TrimSpace(phase.Title) == "" {
			return nil, fmt.Errorf("%w: phase %d title is required", storage.ErrInvalidInput, pi)
		}
		for si, step := range phase.Steps {
			if strings.TrimSpace(step.Title) == "" {
				return nil, fmt.Errorf("%w: phase %d step %d title is required", storage.ErrInvalidInput, pi, si)
			}
			for _, dep := range step.Deps {
				if _, _, err := parsePlanDep(dep, pi, si); err != nil {
					return nil, err
				}
			}
		}
	}

	result := &types.PlanResult{}
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		now := utcNow()

		insert := func(issueType, title, description string, priority int, parentID *string) (string, error) {
			id, err := s.generateID(ctx, conn)
			if err != nil {
				return "", err
			}
			status := s.registry.InitialState(issueType)
			_, err = conn.ExecContext(ctx, `
                INSERT INTO issues (id, title, description, status, priority, issue_type, parent_id, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, title, description, status, priority, issueType, nullStr(parentID), now, now)
			if err != nil {
				return "", wrapDBErrorf(err, "inserting %s %q", issueType, title)
			}
			if err := recordEvent(ctx, conn, id, types.EventCreated, actor, nil, strPtr(title), nil, now); err != nil {
				return "", err
			}
			return id, nil
		}

		milestoneID, err := insert("milestone", plan.Milestone, plan.Description, 2, nil)
		if err != nil {
			return err
		}
		result.MilestoneID = milestoneID

		stepIDs := make([][]string, len(plan.Phases))
		for pi, phase := range plan.Phases {
			phaseID, err := insert("phase", phase.Title, phase.Description, 2, &milestoneID)
			if err != nil {
				return err
			}
			result.PhaseIDs = append(result.PhaseIDs, phaseID)

			stepIDs[pi] = make([]string, len(phase.Steps))
			for si, step := range phase.Steps {
				priority := 2
				if step.Priority != nil {
					if *step.Priority < 0 || *step.Priority > 4 {
						return fmt.Errorf("%w: phase %d step %d priority out of range", storage.ErrInvalidInput, pi, si)
					}
					priority = *step.Priority
				}
				stepID, err := insert("step", step.Title, step.Description, priority, &phaseID)
				if err != nil {
					return err
				}
				stepIDs[pi][si] = stepID
			}
		}
		result.StepIDs = stepIDs

		// Dependency edges once every step id exists. Forward references
		// inside a phase are legal; mutual references are caught by the
		// cycle probe.
		for pi, phase := range plan.Phases {
			for si, step := range phase.Steps {
				for _, dep := range step.Deps {
					depPhase, depStep, err := parsePlanDep(dep, pi, si)
					if err != nil {
						return err
					}
					if depPhase >= len(stepIDs) || depStep >= len(stepIDs[depPhase]) {
						return fmt.Errorf("%w: phase %d step %d depends on missing step %d.%d",
							storage.ErrInvalidInput, pi, si, depPhase, depStep)
					}
					from := stepIDs[pi][si]
					to := stepIDs[depPhase][depStep]
					if from == to {
						return fmt.Errorf("%w: phase %d step %d self-dependency", storage.ErrInvalidInput, pi, si)
					}
					cycle, err := wouldCycle(ctx, conn, from, to)
					if err != nil {
						return err
					}
					if cycle {
						return fmt.Errorf("plan step %d.%d -> %d.%d: %w", pi, si, depPhase, depStep, storage.ErrCycle)
					}
					if _, err := conn.ExecContext(ctx, `
                        INSERT OR IGNORE INTO dependencies (issue_id, depends_on_id, kind, created_at)
                        VALUES (?, ?, ?, ?)`, from, to, types.DepKindBlocks, now); err != nil {
						return wrapDBErrorf(err, "inserting plan dependency %s -> %s", from, to)
					}
					if err := recordEvent(ctx, conn, from, types.EventDependencyAdded, actor,
						nil, strPtr(types.DepKindBlocks+":"+to), nil, now); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyMutation()
	return result, nil
}

// parsePlanDep resolves a step dependency reference to (phase, step)
// indices. Ints are same-phase step indices; "phase.step" strings cross
// phases. Negative indices and self references are rejected here; cycles
// are caught at insert time.
func parsePlanDep(dep any, phaseIdx, stepIdx int) (int, int, error) {
	switch v := dep.(type) {
	case int:
		return checkPlanDep(phaseIdx, v, phaseIdx, stepIdx)
	case float64: // JSON numbers decode as float64
		if v != float64(int(v)) {
			return 0, 0, fmt.Errorf("%w: step dependency %v is not an integer", storage.ErrInvalidInput, v)
		}
		return checkPlanDep(phaseIdx, int(v), phaseIdx, stepIdx)
	case string:
		parts := strings.SplitN(v, ".", 2)
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("%w: step dependency %q must be \"phase.step\"", storage.ErrInvalidInput, v)
		}
		p, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, 0, fmt.Errorf("%w: step dependency %q has a bad phase index", storage.ErrInvalidInput, v)
		}
		st, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("%w: step dependency %q has a bad step index", storage.ErrInvalidInput, v)
		}
		return checkPlanDep(p, st, phaseIdx, stepIdx)
	default:
		return 0, 0, fmt.Errorf("%w: step dependency must be an index or \"phase.step\", got %T", storage.ErrInvalidInput, dep)
	}
}

func checkPlanDep(depPhase, depStep, phaseIdx, stepIdx int) (int, int, error) {
	if depPhase < 0 || depStep < 0 {
		return 0, 0, fmt.Errorf("%w: negative step dependency index %d.%d", storage.ErrInvalidInput, depPhase, depStep)
	}
	if depPhase == phaseIdx && depStep == stepIdx {
		return 0, 0, fmt.Errorf("%w: step %d.%d self-dependency", storage.ErrInvalidInput, phaseIdx, stepIdx)
	}
	return depPhase, depStep, nil
}
