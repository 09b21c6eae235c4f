package casefile

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/features/audit"
	"go-caseflow/internal/features/form"
	"go-caseflow/internal/features/permission"
	"go-caseflow/internal/features/workflow"
	"go-caseflow/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrMissingWorkflow is raised at first submission when the case's form
// has no active workflow configured.
var ErrMissingWorkflow = errors.New("missing workflow or form")

// Transactor runs fn inside a single multi-document transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FormReader is the slice of the form service the lifecycle needs.
type FormReader interface {
	GetForm(ctx context.Context, id string) (*form.Form, error)
	GetSection(ctx context.Context, id primitive.ObjectID) (*form.FormSection, error)
	PublishedSections(ctx context.Context, formID primitive.ObjectID) ([]form.FormSection, error)
	ValidatePayload(section *form.FormSection, data map[string]interface{}) error
}

// WorkflowStore is the slice of the workflow repository the lifecycle
// needs. Reads are live; execution-critical rows are never cached.
type WorkflowStore interface {
	FindActiveByFormID(ctx context.Context, formID primitive.ObjectID) (*workflow.Workflow, error)
	FindTaskByIndex(ctx context.Context, workflowID primitive.ObjectID, index int) (*workflow.Task, error)
	FindTaskByID(ctx context.Context, id primitive.ObjectID) (*workflow.Task, error)
	FindDecisionPointByID(ctx context.Context, id primitive.ObjectID) (*workflow.DecisionPoint, error)
	CreateInstance(ctx context.Context, wi *workflow.WorkflowInstance) error
	DeactivateInstance(ctx context.Context, id primitive.ObjectID) error
	CreateTaskInstances(ctx context.Context, instances []workflow.TaskInstance) error
	FindTaskInstanceByID(ctx context.Context, id primitive.ObjectID) (*workflow.TaskInstance, error)
	FindTaskInstancesByIDs(ctx context.Context, ids []primitive.ObjectID) ([]workflow.TaskInstance, error)
	ListTaskInstancesByWorkflowInstance(ctx context.Context, workflowInstanceID primitive.ObjectID) ([]workflow.TaskInstance, error)
	UpdateTaskInstance(ctx context.Context, ti *workflow.TaskInstance) error
	DeactivateTaskInstances(ctx context.Context, ids []primitive.ObjectID) error
}

// TransitionHook runs after a lifecycle save commits. Hooks are best
// effort; they can notify assignees or fire automation scripts but never
// fail the save.
type TransitionHook interface {
	CaseTransitioned(ctx context.Context, c *Case, oldStatus string, created []workflow.TaskInstance)
}

type CreateCaseInput struct {
	FormID       string                            `json:"form_id"`
	TeamID       string                            `json:"team_id"`
	DepartmentID string                            `json:"department_id"`
	Sections     map[string]map[string]interface{} `json:"sections"`
}

type ActionInput struct {
	InstanceID      string   `json:"instance_id"`
	DecisionPointID string   `json:"decision_point_id"`
	Comment         string   `json:"comment"`
	Files           []string `json:"files"`
}

type ListFilter struct {
	Status       string
	FormID       string
	TeamID       string
	DepartmentID string
	CreatedBy    string
}

// CaseDetail is the read model for a single case.
type CaseDetail struct {
	Case      Case                    `json:"case"`
	Data      []CaseData              `json:"data"`
	Instances []workflow.TaskInstance `json:"instances"`
}

type CaseService interface {
	CreateCase(ctx context.Context, in CreateCaseInput) (*Case, error)
	UpdateSectionData(ctx context.Context, caseID, sectionID string, data map[string]interface{}) (*Case, error)
	Submit(ctx context.Context, caseID string) (*Case, error)
	ActOnTask(ctx context.Context, caseID string, in ActionInput) (*Case, error)
	Cancel(ctx context.Context, caseID string) (*Case, error)
	GetCase(ctx context.Context, caseID string) (*CaseDetail, error)
	ListCases(ctx context.Context, filter ListFilter, limit, offset int64) ([]Case, error)
	History(ctx context.Context, caseID string) ([]common_models.AuditLog, error)
}

type CaseServiceImpl struct {
	Repo         CaseRepository
	Forms        FormReader
	Workflows    WorkflowStore
	Executor     workflow.Executor
	AuditService audit.AuditService
	Tx           Transactor
	Logger       *zap.Logger
	Hooks        []TransitionHook
}

func NewCaseService(repo CaseRepository, forms FormReader, workflows WorkflowStore, executor workflow.Executor, auditService audit.AuditService, tx Transactor, logger *zap.Logger, hooks []TransitionHook) CaseService {
	return &CaseServiceImpl{
		Repo:         repo,
		Forms:        forms,
		Workflows:    workflows,
		Executor:     executor,
		AuditService: auditService,
		Tx:           tx,
		Logger:       logger,
		Hooks:        hooks,
	}
}

func (s *CaseServiceImpl) CreateCase(ctx context.Context, in CreateCaseInput) (*Case, error) {
	formID, err := primitive.ObjectIDFromHex(in.FormID)
	if err != nil {
		return nil, fmt.Errorf("invalid form id: %w", err)
	}
	frm, err := s.Forms.GetForm(ctx, in.FormID)
	if err != nil {
		return nil, fmt.Errorf("%w: form %s", ErrMissingWorkflow, in.FormID)
	}
	if !frm.Active {
		return nil, fmt.Errorf("form %q is not active", frm.Name)
	}
	sections, err := s.Forms.PublishedSections(ctx, formID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	c := &Case{
		ID:        primitive.NewObjectID(),
		FormID:    formID,
		Status:    StatusDraft,
		Revision:  1,
		CreatedBy: utils.ActorFromContext(ctx),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.TeamID != "" {
		if c.TeamID, err = primitive.ObjectIDFromHex(in.TeamID); err != nil {
			return nil, fmt.Errorf("invalid team id: %w", err)
		}
	}
	if in.DepartmentID != "" {
		if c.DepartmentID, err = primitive.ObjectIDFromHex(in.DepartmentID); err != nil {
			return nil, fmt.Errorf("invalid department id: %w", err)
		}
	}

	// One data row per published section, created up front; payloads stay
	// lenient until submission.
	rows := make([]*CaseData, 0, len(sections))
	for i := range sections {
		payload := in.Sections[sections[i].ID.Hex()]
		if payload == nil {
			payload = map[string]interface{}{}
		} else if err := s.Forms.ValidatePayload(&sections[i], payload); err != nil {
			return nil, err
		}
		rows = append(rows, &CaseData{
			ID:        primitive.NewObjectID(),
			CaseID:    c.ID,
			SectionID: sections[i].ID,
			Data:      payload,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = s.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.Repo.Create(txCtx, c); err != nil {
			return err
		}
		for _, row := range rows {
			if err := s.Repo.CreateCaseData(txCtx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, common_models.AuditActionCreate, common_models.ChangeTypeCreated, "cases", c.ID.Hex(), map[string]common_models.Change{
		"status": {New: c.Status},
	})
	for _, row := range rows {
		s.audit(ctx, common_models.AuditActionCreate, common_models.ChangeTypeCreated, "case_data", row.ID.Hex(), audit.ComputeChanges(nil, row.Data))
	}
	return c, nil
}

func (s *CaseServiceImpl) UpdateSectionData(ctx context.Context, caseID, sectionID string, data map[string]interface{}) (*Case, error) {
	sectionOID, err := primitive.ObjectIDFromHex(sectionID)
	if err != nil {
		return nil, fmt.Errorf("invalid section id: %w", err)
	}
	section, err := s.loadSection(ctx, sectionOID)
	if err != nil {
		return nil, err
	}
	if err := s.Forms.ValidatePayload(section, data); err != nil {
		return nil, err
	}

	var changes map[string]common_models.Change
	var rowID string
	c, err := s.save(ctx, caseID, func(txCtx context.Context, c *Case) error {
		if c.Terminal() {
			return fmt.Errorf("case %s is %s", caseID, c.Status)
		}
		row, err := s.Repo.FindCaseDataBySection(txCtx, c.ID, sectionOID)
		if err != nil {
			return err
		}
		changes = audit.ComputeChanges(row.Data, data)
		rowID = row.ID.Hex()
		row.Data = data
		return s.Repo.UpdateCaseData(txCtx, row)
	})
	if err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		s.audit(ctx, common_models.AuditActionUpdate, common_models.ChangeTypeChanged, "case_data", rowID, changes)
	}
	return c, nil
}

func (s *CaseServiceImpl) Submit(ctx context.Context, caseID string) (*Case, error) {
	c, err := s.save(ctx, caseID, func(txCtx context.Context, c *Case) error {
		if c.Terminal() {
			return fmt.Errorf("case %s is %s", caseID, c.Status)
		}
		if err := s.validateAllSections(txCtx, c); err != nil {
			return err
		}
		c.Submitted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, common_models.AuditActionSubmit, common_models.ChangeTypeChanged, "cases", caseID, map[string]common_models.Change{
		"submitted": {Old: false, New: true},
		"status":    {New: c.Status},
	})
	return c, nil
}

func (s *CaseServiceImpl) ActOnTask(ctx context.Context, caseID string, in ActionInput) (*Case, error) {
	instanceID, err := primitive.ObjectIDFromHex(in.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("invalid instance id: %w", err)
	}
	decisionID, err := primitive.ObjectIDFromHex(in.DecisionPointID)
	if err != nil {
		return nil, fmt.Errorf("invalid decision point id: %w", err)
	}
	actor := utils.ActorFromContext(ctx)

	var oldStatus string
	c, err := s.save(ctx, caseID, func(txCtx context.Context, c *Case) error {
		oldStatus = c.Status
		if c.Terminal() || !c.Submitted {
			return fmt.Errorf("case %s is not awaiting action", caseID)
		}
		if !tracked(c.TaskInstanceIDs, instanceID) {
			return fmt.Errorf("instance %s does not belong to the case's current step", in.InstanceID)
		}
		inst, err := s.Workflows.FindTaskInstanceByID(txCtx, instanceID)
		if err != nil {
			return err
		}
		if !inst.Active {
			return fmt.Errorf("instance %s has already been acted on", in.InstanceID)
		}
		// A decision point is only a valid outcome for its own task;
		// accepting one from another task would let the caller route the
		// case wherever that point leads.
		dp, err := s.Workflows.FindDecisionPointByID(txCtx, decisionID)
		if err != nil {
			return fmt.Errorf("decision point %s not found: %w", in.DecisionPointID, err)
		}
		if dp.TaskID != inst.TaskID {
			return fmt.Errorf("decision point %s does not belong to the instance's task", in.DecisionPointID)
		}

		inst.DecisionPointID = decisionID
		inst.Comment = in.Comment
		inst.Files = append(inst.Files, in.Files...)
		inst.Active = false
		if actorOID, err := primitive.ObjectIDFromHex(actor); err == nil {
			inst.AssigneeID = actorOID
		}
		inst.UpdatedAt = time.Now()
		return s.Workflows.UpdateTaskInstance(txCtx, inst)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, common_models.AuditActionDecision, common_models.ChangeTypeChanged, "task_instances", in.InstanceID, map[string]common_models.Change{
		"decision_point_id": {New: in.DecisionPointID},
		"comment":           {New: in.Comment},
	})
	if c.Status != oldStatus {
		s.audit(ctx, common_models.AuditActionUpdate, common_models.ChangeTypeChanged, "cases", caseID, map[string]common_models.Change{
			"status": {Old: oldStatus, New: c.Status},
		})
	}
	return c, nil
}

func (s *CaseServiceImpl) Cancel(ctx context.Context, caseID string) (*Case, error) {
	var oldStatus string
	c, err := s.save(ctx, caseID, func(_ context.Context, c *Case) error {
		oldStatus = c.Status
		if c.Terminal() {
			return fmt.Errorf("case %s is already %s", caseID, c.Status)
		}
		c.Status = StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, common_models.AuditActionCancel, common_models.ChangeTypeChanged, "cases", caseID, map[string]common_models.Change{
		"status": {Old: oldStatus, New: StatusCancelled},
	})
	return c, nil
}

func (s *CaseServiceImpl) GetCase(ctx context.Context, caseID string) (*CaseDetail, error) {
	oid, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		return nil, err
	}
	c, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	data, err := s.Repo.FindCaseData(ctx, oid)
	if err != nil {
		return nil, err
	}
	instances, err := s.allInstances(ctx, c)
	if err != nil {
		return nil, err
	}
	return &CaseDetail{Case: *c, Data: data, Instances: instances}, nil
}

// allInstances returns every task instance the case's workflow instance
// ever produced, not just the current step's working set tracked on the
// case document.
func (s *CaseServiceImpl) allInstances(ctx context.Context, c *Case) ([]workflow.TaskInstance, error) {
	if c.WorkflowInstanceID.IsZero() {
		return nil, nil
	}
	return s.Workflows.ListTaskInstancesByWorkflowInstance(ctx, c.WorkflowInstanceID)
}

func (s *CaseServiceImpl) ListCases(ctx context.Context, filter ListFilter, limit, offset int64) ([]Case, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.CreatedBy != "" {
		query["created_by"] = filter.CreatedBy
	}
	if filter.FormID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.FormID)
		if err != nil {
			return nil, err
		}
		query["form_id"] = oid
	}
	if filter.TeamID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.TeamID)
		if err != nil {
			return nil, err
		}
		query["team_id"] = oid
	}
	if filter.DepartmentID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.DepartmentID)
		if err != nil {
			return nil, err
		}
		query["department_id"] = oid
	}
	return s.Repo.List(ctx, query, limit, offset)
}

// History aggregates the audit trail of the case, its section data and its
// task instances into one timeline.
func (s *CaseServiceImpl) History(ctx context.Context, caseID string) ([]common_models.AuditLog, error) {
	oid, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		return nil, err
	}
	c, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	data, err := s.Repo.FindCaseData(ctx, oid)
	if err != nil {
		return nil, err
	}

	instances, err := s.allInstances(ctx, c)
	if err != nil {
		return nil, err
	}

	ids := []string{caseID}
	for _, row := range data {
		ids = append(ids, row.ID.Hex())
	}
	for _, inst := range instances {
		ids = append(ids, inst.ID.Hex())
	}
	return s.AuditService.ListLogs(ctx, map[string]interface{}{
		"record_id": bson.M{"$in": ids},
	}, 200, 0)
}

// save is the single write path for cases. It loads the case, applies the
// caller's mutation, advances the lifecycle, and persists the result under
// a revision compare-and-swap, all within one transaction. Hooks fire only
// after the transaction commits.
func (s *CaseServiceImpl) save(ctx context.Context, caseID string, mutate func(ctx context.Context, c *Case) error) (*Case, error) {
	oid, err := primitive.ObjectIDFromHex(caseID)
	if err != nil {
		return nil, fmt.Errorf("invalid case id: %w", err)
	}

	var saved *Case
	var created []workflow.TaskInstance
	var oldStatus string
	err = s.Tx.WithTransaction(ctx, func(txCtx context.Context) error {
		c, err := s.Repo.FindByID(txCtx, oid)
		if err != nil {
			return err
		}
		expected := c.Revision
		oldStatus = c.Status

		if err := mutate(txCtx, c); err != nil {
			return err
		}
		created, err = s.advance(txCtx, c)
		if err != nil {
			return err
		}

		c.Revision = expected + 1
		if err := s.Repo.UpdateCAS(txCtx, c, expected); err != nil {
			return err
		}
		saved = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if saved.Status != oldStatus || len(created) > 0 {
		for _, hook := range s.Hooks {
			hook.CaseTransitioned(ctx, saved, oldStatus, created)
		}
	}
	return saved, nil
}

// advance applies the lifecycle transition rules in priority order:
// cancellation wins, drafts stay drafts, first submission starts the
// workflow, a resolved step follows its decision, and a mid-step case is
// left alone.
func (s *CaseServiceImpl) advance(ctx context.Context, c *Case) ([]workflow.TaskInstance, error) {
	switch {
	case c.Status == StatusCancelled:
		if err := s.Workflows.DeactivateTaskInstances(ctx, c.TaskInstanceIDs); err != nil {
			return nil, err
		}
		if !c.WorkflowInstanceID.IsZero() {
			if err := s.Workflows.DeactivateInstance(ctx, c.WorkflowInstanceID); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case !c.Submitted:
		c.Status = StatusDraft
		return nil, nil

	case c.WorkflowInstanceID.IsZero():
		wf, err := s.Workflows.FindActiveByFormID(ctx, c.FormID)
		if err != nil {
			return nil, fmt.Errorf("%w: form %s has no active workflow", ErrMissingWorkflow, c.FormID.Hex())
		}
		entry, err := s.Workflows.FindTaskByIndex(ctx, wf.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: workflow %q has no entry task", ErrMissingWorkflow, wf.Name)
		}

		now := time.Now()
		wi := &workflow.WorkflowInstance{
			ID:         primitive.NewObjectID(),
			WorkflowID: wf.ID,
			Active:     true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.Workflows.CreateInstance(ctx, wi); err != nil {
			return nil, err
		}
		c.WorkflowInstanceID = wi.ID
		return s.execute(ctx, c, entry)

	default:
		instances, err := s.Workflows.FindTaskInstancesByIDs(ctx, c.TaskInstanceIDs)
		if err != nil {
			return nil, err
		}
		for i := range instances {
			if instances[i].Active {
				// Mid-step, awaiting more actions.
				return nil, nil
			}
		}

		decision, err := s.Executor.NextDecision(ctx, instances)
		if err != nil {
			return nil, err
		}
		if decision == nil || decision.NextTaskID.IsZero() {
			// Step finished without a decision to follow: terminal.
			return nil, s.complete(ctx, c)
		}
		next, err := s.Workflows.FindTaskByID(ctx, decision.NextTaskID)
		if err != nil {
			return nil, err
		}
		return s.execute(ctx, c, next)
	}
}

func (s *CaseServiceImpl) execute(ctx context.Context, c *Case, task *workflow.Task) ([]workflow.TaskInstance, error) {
	frm, err := s.Forms.GetForm(ctx, c.FormID.Hex())
	if err != nil {
		return nil, fmt.Errorf("%w: form %s", ErrMissingWorkflow, c.FormID.Hex())
	}
	// Only auto tasks evaluate conditions; a walk entered at a flow or
	// manual task stops before reaching one, so skip the flatten there.
	var snapshot map[string]interface{}
	if task.Type == workflow.TaskAuto {
		if snapshot, err = s.snapshot(ctx, c); err != nil {
			return nil, err
		}
	}

	result, err := s.Executor.Execute(ctx, workflow.ExecutionInput{
		WorkflowInstanceID: c.WorkflowInstanceID,
		Scope: permission.CaseScope{
			CaseID:        c.ID,
			FormID:        c.FormID,
			ApplicationID: frm.ApplicationID,
			CreatorID:     c.CreatedBy,
			TeamID:        c.TeamID,
			DepartmentID:  c.DepartmentID,
		},
		Snapshot: snapshot,
		Task:     task,
	})
	if err != nil {
		// The transaction is about to roll back; keep the evidence of
		// what the executor was doing in the error path log.
		for _, inst := range result.Instances {
			if inst.Comment != "" {
				s.Logger.Error("workflow execution failed",
					zap.String("case_id", c.ID.Hex()),
					zap.String("task_id", inst.TaskID.Hex()),
					zap.String("comment", inst.Comment))
			}
		}
		return nil, err
	}

	if err := s.Workflows.CreateTaskInstances(ctx, result.Instances); err != nil {
		return nil, err
	}
	for _, inst := range result.Instances {
		s.audit(ctx, common_models.AuditActionCreate, common_models.ChangeTypeCreated, "task_instances", inst.ID.Hex(), map[string]common_models.Change{
			"task_id": {New: inst.TaskID.Hex()},
			"active":  {New: inst.Active},
		})
	}

	if result.NextTask != nil {
		tracked := make([]primitive.ObjectID, 0, len(result.Instances))
		for _, inst := range result.Instances {
			if inst.Active {
				tracked = append(tracked, inst.ID)
			}
		}
		c.TaskInstanceIDs = tracked
		c.Status = result.NextTask.Name
		return result.Instances, nil
	}

	ids := make([]primitive.ObjectID, 0, len(result.Instances))
	for _, inst := range result.Instances {
		ids = append(ids, inst.ID)
	}
	c.TaskInstanceIDs = ids
	return result.Instances, s.complete(ctx, c)
}

func (s *CaseServiceImpl) complete(ctx context.Context, c *Case) error {
	c.Status = StatusCompleted
	if c.WorkflowInstanceID.IsZero() {
		return nil
	}
	return s.Workflows.DeactivateInstance(ctx, c.WorkflowInstanceID)
}

// snapshot flattens the case's section payloads into the field map the
// condition evaluator runs against.
func (s *CaseServiceImpl) snapshot(ctx context.Context, c *Case) (map[string]interface{}, error) {
	rows, err := s.Repo.FindCaseData(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, row.Data)
	}
	return form.Flatten(payloads), nil
}

func (s *CaseServiceImpl) validateAllSections(ctx context.Context, c *Case) error {
	sections, err := s.Forms.PublishedSections(ctx, c.FormID)
	if err != nil {
		return err
	}
	rows, err := s.Repo.FindCaseData(ctx, c.ID)
	if err != nil {
		return err
	}
	bySection := map[primitive.ObjectID]map[string]interface{}{}
	for _, row := range rows {
		bySection[row.SectionID] = row.Data
	}
	for i := range sections {
		if err := s.Forms.ValidatePayload(&sections[i], bySection[sections[i].ID]); err != nil {
			return err
		}
	}
	return nil
}

func (s *CaseServiceImpl) loadSection(ctx context.Context, sectionID primitive.ObjectID) (*form.FormSection, error) {
	section, err := s.Forms.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if !section.Published {
		return nil, fmt.Errorf("section %q is not published", section.Name)
	}
	return section, nil
}

func tracked(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (s *CaseServiceImpl) audit(ctx context.Context, action common_models.AuditAction, changeType common_models.ChangeType, entity, recordID string, changes map[string]common_models.Change) {
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     action,
		ChangeType: changeType,
		Entity:     entity,
		RecordID:   recordID,
		ActorID:    utils.ActorFromContext(ctx),
		Changes:    changes,
	})
}
