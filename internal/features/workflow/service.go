package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-caseflow/internal/cache"
	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/features/audit"
	"go-caseflow/pkg/condition"
	"go-caseflow/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Graph is the full read model of a workflow for config UIs: tasks in
// index order, each with its decision points in priority order.
type Graph struct {
	Workflow Workflow    `json:"workflow"`
	Tasks    []GraphTask `json:"tasks"`
}

type GraphTask struct {
	Task           Task            `json:"task"`
	DecisionPoints []DecisionPoint `json:"decision_points"`
}

type WorkflowService interface {
	CreateWorkflow(ctx context.Context, w *Workflow) error
	GetWorkflow(ctx context.Context, id string) (*Workflow, error)
	GetGraph(ctx context.Context, id string) (*Graph, error)
	ListWorkflows(ctx context.Context) ([]Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, w *Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	AddTask(ctx context.Context, t *Task) error
	UpdateTask(ctx context.Context, id string, t *Task) error
	DeleteTask(ctx context.Context, id string) error

	AddDecisionPoint(ctx context.Context, dp *DecisionPoint) error
	UpdateDecisionPoint(ctx context.Context, id string, dp *DecisionPoint) error
	DeleteDecisionPoint(ctx context.Context, id string) error
}

type WorkflowServiceImpl struct {
	Repo         WorkflowRepository
	Cache        *cache.Cache
	AuditService audit.AuditService
}

func NewWorkflowService(repo WorkflowRepository, c *cache.Cache, auditService audit.AuditService) WorkflowService {
	return &WorkflowServiceImpl{Repo: repo, Cache: c, AuditService: auditService}
}

func graphCacheKey(workflowID primitive.ObjectID) string {
	return "workflow:graph:" + workflowID.Hex()
}

func (s *WorkflowServiceImpl) CreateWorkflow(ctx context.Context, w *Workflow) error {
	if w.Name == "" {
		return errors.New("workflow name is required")
	}
	if w.FormID.IsZero() {
		return errors.New("workflow form_id is required")
	}
	if w.Active {
		if existing, err := s.Repo.FindActiveByFormID(ctx, w.FormID); err == nil {
			return fmt.Errorf("form already has active workflow %q", existing.Name)
		}
	}

	w.ID = primitive.NewObjectID()
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	if err := s.Repo.Create(ctx, w); err != nil {
		return err
	}
	s.audit(ctx, common_models.AuditActionCreate, common_models.ChangeTypeCreated, "workflows", w.ID.Hex(), map[string]common_models.Change{
		"name": {New: w.Name},
	})
	return nil
}

func (s *WorkflowServiceImpl) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, oid)
}

// GetGraph serves config UIs through the read cache. Execution never goes
// through here; the executor reads live rows.
func (s *WorkflowServiceImpl) GetGraph(ctx context.Context, id string) (*Graph, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	v, err := s.Cache.GetOrLoad(graphCacheKey(oid), func() (interface{}, error) {
		return s.loadGraph(ctx, oid)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Graph), nil
}

func (s *WorkflowServiceImpl) loadGraph(ctx context.Context, id primitive.ObjectID) (*Graph, error) {
	w, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.Repo.ListTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	graph := &Graph{Workflow: *w, Tasks: make([]GraphTask, 0, len(tasks))}
	for _, t := range tasks {
		points, err := s.Repo.ListDecisionPoints(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		graph.Tasks = append(graph.Tasks, GraphTask{Task: t, DecisionPoints: points})
	}
	return graph, nil
}

func (s *WorkflowServiceImpl) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	return s.Repo.List(ctx)
}

func (s *WorkflowServiceImpl) UpdateWorkflow(ctx context.Context, id string, w *Workflow) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	if w.Active && !existing.Active {
		if other, err := s.Repo.FindActiveByFormID(ctx, existing.FormID); err == nil && other.ID != oid {
			return fmt.Errorf("form already has active workflow %q", other.Name)
		}
	}

	changes := map[string]common_models.Change{}
	if w.Name != "" && w.Name != existing.Name {
		changes["name"] = common_models.Change{Old: existing.Name, New: w.Name}
		existing.Name = w.Name
	}
	if w.Description != existing.Description {
		changes["description"] = common_models.Change{Old: existing.Description, New: w.Description}
		existing.Description = w.Description
	}
	if w.Active != existing.Active {
		changes["active"] = common_models.Change{Old: existing.Active, New: w.Active}
		existing.Active = w.Active
	}
	existing.UpdatedAt = time.Now()

	if err := s.Repo.Update(ctx, existing); err != nil {
		return err
	}
	s.Cache.Invalidate(graphCacheKey(oid))
	if len(changes) > 0 {
		s.audit(ctx, common_models.AuditActionUpdate, common_models.ChangeTypeChanged, "workflows", id, changes)
	}
	return nil
}

func (s *WorkflowServiceImpl) DeleteWorkflow(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, oid); err != nil {
		return err
	}
	s.Cache.Invalidate(graphCacheKey(oid))
	s.audit(ctx, common_models.AuditActionDelete, common_models.ChangeTypeDeleted, "workflows", id, nil)
	return nil
}

func (s *WorkflowServiceImpl) AddTask(ctx context.Context, t *Task) error {
	if t.WorkflowID.IsZero() || t.Name == "" {
		return errors.New("task workflow_id and name are required")
	}
	switch t.Type {
	case TaskManual, TaskAuto, TaskFlow:
	default:
		return fmt.Errorf("%w: unknown task type %q", ErrInvalidWorkflow, t.Type)
	}
	if t.Type == TaskFlow && t.RoleID.IsZero() && len(t.PermissionIDs) == 0 {
		return errors.New("flow task needs a role or a permission list")
	}

	existing, err := s.Repo.ListTasks(ctx, t.WorkflowID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.Index == t.Index {
			return fmt.Errorf("index %d already used by task %q", t.Index, other.Name)
		}
		if other.Name == t.Name {
			return fmt.Errorf("task name %q already used", t.Name)
		}
	}

	t.ID = primitive.NewObjectID()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	if err := s.Repo.CreateTask(ctx, t); err != nil {
		return err
	}
	s.Cache.Invalidate(graphCacheKey(t.WorkflowID))
	s.audit(ctx, common_models.AuditActionCreate, common_models.ChangeTypeCreated, "workflow_tasks", t.ID.Hex(), map[string]common_models.Change{
		"name": {New: t.Name},
		"type": {New: string(t.Type)},
	})
	return nil
}

func (s *WorkflowServiceImpl) UpdateTask(ctx context.Context, id string, t *Task) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindTaskByID(ctx, oid)
	if err != nil {
		return err
	}

	existing.Name = t.Name
	existing.Description = t.Description
	existing.RoleID = t.RoleID
	existing.PermissionIDs = t.PermissionIDs
	existing.UpdatedAt = time.Now()

	if err := s.Repo.UpdateTask(ctx, existing); err != nil {
		return err
	}
	s.Cache.Invalidate(graphCacheKey(existing.WorkflowID))
	s.audit(ctx, common_models.AuditActionUpdate, common_models.ChangeTypeChanged, "workflow_tasks", id, nil)
	return nil
}

func (s *WorkflowServiceImpl) DeleteTask(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindTaskByID(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteTask(ctx, oid); err != nil {
		return err
	}
	s.Cache.Invalidate(graphCacheKey(existing.WorkflowID))
	s.audit(ctx, common_models.AuditActionDelete, common_models.ChangeTypeDeleted, "workflow_tasks", id, nil)
	return nil
}

func (s *WorkflowServiceImpl) AddDecisionPoint(ctx context.Context, dp *DecisionPoint) error {
	if dp.TaskID.IsZero() || dp.Label == "" {
		return errors.New("decision point task_id and label are required")
	}
	if dp.Priority < 1 {
		return errors.New("decision point priority must be a positive integer")
	}

	task, err := s.Repo.FindTaskByID(ctx, dp.TaskID)
	if err != nil {
		return err
	}

	if err := s.validateDecisionPoint(ctx, dp); err != nil {
		return err
	}

	dp.ID = primitive.NewObjectID()
	dp.CreatedAt = time.Now()
	dp.UpdatedAt = dp.CreatedAt
	if err := s.Repo.CreateDecisionPoint(ctx, dp); err != nil {
		return err
	}
	s.Cache.Invalidate(graphCacheKey(task.WorkflowID))
	s.audit(ctx, common_models.AuditActionCreate, common_models.ChangeTypeCreated, "decision_points", dp.ID.Hex(), map[string]common_models.Change{
		"label": {New: dp.Label},
	})
	return nil
}

// validateDecisionPoint enforces the config invariants the executor
// depends on: unique label and priority per task, a parseable condition,
// and a successor that is never a Manual task.
func (s *WorkflowServiceImpl) validateDecisionPoint(ctx context.Context, dp *DecisionPoint) error {
	siblings, err := s.Repo.ListDecisionPoints(ctx, dp.TaskID)
	if err != nil {
		return err
	}
	for _, other := range siblings {
		if other.ID == dp.ID {
			continue
		}
		if other.Priority == dp.Priority {
			return fmt.Errorf("priority %d already used by decision %q", dp.Priority, other.Label)
		}
		if other.Label == dp.Label {
			return fmt.Errorf("decision label %q already used", dp.Label)
		}
	}

	if _, err := condition.Parse(dp.Condition); err != nil {
		return err
	}

	if !dp.NextTaskID.IsZero() {
		next, err := s.Repo.FindTaskByID(ctx, dp.NextTaskID)
		if err != nil {
			return fmt.Errorf("next task not found: %w", err)
		}
		if next.Type == TaskManual {
			return fmt.Errorf("%w: manual task %q cannot be a successor", ErrInvalidWorkflow, next.Name)
		}
	}
	return nil
}

func (s *WorkflowServiceImpl) UpdateDecisionPoint(ctx context.Context, id string, dp *DecisionPoint) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindDecisionPointByID(ctx, oid)
	if err != nil {
		return err
	}
	task, err := s.Repo.FindTaskByID(ctx, existing.TaskID)
	if err != nil {
		return err
	}

	existing.Label = dp.Label
	existing.NextTaskID = dp.NextTaskID
	existing.Priority = dp.Priority
	existing.Condition = dp.Condition
	existing.UpdatedAt = time.Now()

	if err := s.validateDecisionPoint(ctx, existing); err != nil {
		return err
	}
	if err := s.Repo.UpdateDecisionPoint(ctx, existing); err != nil {
		return err
	}
	s.Cache.Invalidate(graphCacheKey(task.WorkflowID))
	s.audit(ctx, common_models.AuditActionUpdate, common_models.ChangeTypeChanged, "decision_points", id, nil)
	return nil
}

func (s *WorkflowServiceImpl) DeleteDecisionPoint(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindDecisionPointByID(ctx, oid)
	if err != nil {
		return err
	}
	task, err := s.Repo.FindTaskByID(ctx, existing.TaskID)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteDecisionPoint(ctx, oid); err != nil {
		return err
	}
	s.Cache.Invalidate(graphCacheKey(task.WorkflowID))
	s.audit(ctx, common_models.AuditActionDelete, common_models.ChangeTypeDeleted, "decision_points", id, nil)
	return nil
}

func (s *WorkflowServiceImpl) audit(ctx context.Context, action common_models.AuditAction, changeType common_models.ChangeType, entity, recordID string, changes map[string]common_models.Change) {
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     action,
		ChangeType: changeType,
		Entity:     entity,
		RecordID:   recordID,
		ActorID:    utils.ActorFromContext(ctx),
		Changes:    changes,
	})
}
