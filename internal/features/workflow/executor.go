package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-caseflow/internal/features/permission"
	"go-caseflow/internal/features/role"
	"go-caseflow/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidWorkflow marks a configuration bug: a Manual task reached
	// as a successor, or an unrecognized task type.
	ErrInvalidWorkflow = errors.New("invalid workflow definition")

	// ErrNoAssignee means assignment resolution produced zero candidates.
	// An unroutable task must surface to the operator, never be swallowed.
	ErrNoAssignee = errors.New("no assignee found")
)

// TaskReader is the live (uncached) slice of the repository the executor
// walks the graph with.
type TaskReader interface {
	FindTaskByID(ctx context.Context, id primitive.ObjectID) (*Task, error)
	ListDecisionPoints(ctx context.Context, taskID primitive.ObjectID) ([]DecisionPoint, error)
	FindDecisionPointByID(ctx context.Context, id primitive.ObjectID) (*DecisionPoint, error)
}

// RoleFinder loads the role a task's assignment spec names.
type RoleFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*role.Role, error)
}

// PermissionGetter loads a task's fixed permission list.
type PermissionGetter interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]permission.Permission, error)
}

// ExecutionInput is everything one traversal needs: where the case sits in
// the org tree, its flattened field values, and the task to start from.
type ExecutionInput struct {
	WorkflowInstanceID primitive.ObjectID
	Scope              permission.CaseScope
	Snapshot           map[string]interface{}
	Task               *Task
}

// ExecutionResult describes the side effects of one traversal. The caller
// persists everything in a single transaction; the executor itself never
// writes.
type ExecutionResult struct {
	// NextTask is the flow task now awaiting human action, nil when the
	// traversal terminated.
	NextTask *Task
	// Instances are the task instances to persist, in creation order. Auto
	// instances arrive deactivated with their winning decision recorded;
	// flow instances arrive active, one per resolved assignee.
	Instances []TaskInstance
	Completed bool
}

type Executor interface {
	Execute(ctx context.Context, in ExecutionInput) (ExecutionResult, error)
	NextDecision(ctx context.Context, instances []TaskInstance) (*DecisionPoint, error)
}

type ExecutorImpl struct {
	Tasks TaskReader
	Roles RoleFinder
	Perms PermissionGetter
	// Resolver maps (role, case) to permission records per the role's
	// scope classification.
	Resolver permission.Resolver
}

func NewExecutor(tasks TaskReader, roles RoleFinder, perms PermissionGetter, resolver permission.Resolver) Executor {
	return &ExecutorImpl{Tasks: tasks, Roles: roles, Perms: perms, Resolver: resolver}
}

// Execute walks the graph from in.Task: auto tasks advance through their
// first matching decision point, a flow task stops the walk with active
// instances for its assignees, and a nil task or an exhausted auto chain
// completes the workflow.
func (e *ExecutorImpl) Execute(ctx context.Context, in ExecutionInput) (ExecutionResult, error) {
	result := ExecutionResult{}
	current := in.Task
	if current == nil {
		result.Completed = true
		return result, nil
	}

	entry := current
	for current != nil {
		switch current.Type {
		case TaskAuto:
			next, err := e.runAutoTask(ctx, in, current, &result)
			if err != nil {
				return result, err
			}
			current = next
			if current == nil {
				result.Completed = true
				return result, nil
			}

		case TaskFlow:
			if err := e.enterFlowTask(ctx, in, current, &result); err != nil {
				return result, err
			}
			result.NextTask = current
			return result, nil

		case TaskManual:
			// Manual tasks are user-initiated entry points only.
			if current != entry {
				return result, fmt.Errorf("%w: manual task %q reached as successor", ErrInvalidWorkflow, current.Name)
			}
			if err := e.enterFlowTask(ctx, in, current, &result); err != nil {
				return result, err
			}
			result.NextTask = current
			return result, nil

		default:
			return result, fmt.Errorf("%w: task %q has unknown type %q", ErrInvalidWorkflow, current.Name, current.Type)
		}
	}

	result.Completed = true
	return result, nil
}

// runAutoTask creates the system-executed instance for one auto task and
// returns the successor task, or nil when no decision point matched.
func (e *ExecutorImpl) runAutoTask(ctx context.Context, in ExecutionInput, task *Task, result *ExecutionResult) (*Task, error) {
	now := time.Now()
	inst := TaskInstance{
		ID:                 primitive.NewObjectID(),
		WorkflowInstanceID: in.WorkflowInstanceID,
		TaskID:             task.ID,
		Active:             false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	points, err := e.Tasks.ListDecisionPoints(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	var winner *DecisionPoint
	for i := range points {
		matched, node, err := evaluatePoint(&points[i], in.Snapshot)
		if err != nil {
			// Record the failure on the instance so the error path log
			// keeps the evidence even though the transaction aborts.
			inst.Comment = fmt.Sprintf("decision %q failed: %v", points[i].Label, err)
			result.Instances = append(result.Instances, inst)
			return nil, fmt.Errorf("task %q decision %q: %w", task.Name, points[i].Label, err)
		}
		if matched {
			winner = &points[i]
			inst.DecisionPointID = winner.ID
			inst.Comment = decisionComment(winner, node, in.Snapshot)
			break
		}
	}

	result.Instances = append(result.Instances, inst)
	if winner == nil || winner.NextTaskID.IsZero() {
		return nil, nil
	}
	return e.Tasks.FindTaskByID(ctx, winner.NextTaskID)
}

// enterFlowTask resolves assignees and appends one active instance per
// resolved permission record.
func (e *ExecutorImpl) enterFlowTask(ctx context.Context, in ExecutionInput, task *Task, result *ExecutionResult) error {
	perms, err := e.resolveTask(ctx, task, in.Scope)
	if err != nil {
		return err
	}
	if len(perms) == 0 {
		return fmt.Errorf("%w: task %q (role %s)", ErrNoAssignee, task.Name, task.RoleID.Hex())
	}

	now := time.Now()
	for _, p := range perms {
		result.Instances = append(result.Instances, TaskInstance{
			ID:                 primitive.NewObjectID(),
			WorkflowInstanceID: in.WorkflowInstanceID,
			TaskID:             task.ID,
			PermissionID:       p.ID,
			AssigneeID:         p.ContactUserID,
			Active:             true,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}
	return nil
}

func (e *ExecutorImpl) resolveTask(ctx context.Context, task *Task, scope permission.CaseScope) ([]permission.Permission, error) {
	if !task.RoleID.IsZero() {
		r, err := e.Roles.FindByID(ctx, task.RoleID)
		if err != nil {
			return nil, fmt.Errorf("task %q: load role: %w", task.Name, err)
		}
		return e.Resolver.ResolveAssignees(ctx, r, scope)
	}
	return e.Perms.FindByIDs(ctx, task.PermissionIDs)
}

// NextDecision picks the decision to follow once a step has no active
// instances left: among the instances that recorded a decision point, the
// numerically lowest priority wins. Nil means the step finished without a
// decision and the case completes.
func (e *ExecutorImpl) NextDecision(ctx context.Context, instances []TaskInstance) (*DecisionPoint, error) {
	var best *DecisionPoint
	for i := range instances {
		if instances[i].DecisionPointID.IsZero() {
			continue
		}
		dp, err := e.Tasks.FindDecisionPointByID(ctx, instances[i].DecisionPointID)
		if err != nil {
			return nil, err
		}
		if best == nil || dp.Priority < best.Priority {
			best = dp
		}
	}
	return best, nil
}

func evaluatePoint(dp *DecisionPoint, snapshot map[string]interface{}) (bool, condition.Node, error) {
	node, err := condition.Parse(dp.Condition)
	if err != nil {
		return false, nil, err
	}
	matched, err := condition.Evaluate(node, snapshot)
	if err != nil {
		return false, nil, err
	}
	return matched, node, nil
}

// decisionComment embeds the winning condition and the snapshot values it
// matched against, so the instance record explains itself in the history.
func decisionComment(dp *DecisionPoint, node condition.Node, snapshot map[string]interface{}) string {
	if node == nil {
		return fmt.Sprintf("decision %q matched unconditionally", dp.Label)
	}
	matched := map[string]interface{}{}
	for _, f := range condition.Fields(node) {
		if v, ok := snapshot[f]; ok {
			matched[f] = v
		}
	}
	values, err := json.Marshal(matched)
	if err != nil {
		values = []byte("{}")
	}
	return fmt.Sprintf("decision %q matched: condition (%s) with values %s", dp.Label, node.String(), values)
}
