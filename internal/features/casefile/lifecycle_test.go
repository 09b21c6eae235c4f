package casefile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/features/form"
	"go-caseflow/internal/features/permission"
	"go-caseflow/internal/features/role"
	"go-caseflow/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeTx struct{}

func (fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCaseRepo struct {
	cases map[primitive.ObjectID]*Case
	data  map[primitive.ObjectID]*CaseData
	// raceOnce bumps the stored revision right after the next read, so the
	// following compare-and-swap loses.
	raceOnce      bool
	findDataCalls int
}

func newFakeCaseRepo() *fakeCaseRepo {
	return &fakeCaseRepo{
		cases: map[primitive.ObjectID]*Case{},
		data:  map[primitive.ObjectID]*CaseData{},
	}
}

func (r *fakeCaseRepo) Create(_ context.Context, c *Case) error {
	copied := *c
	r.cases[c.ID] = &copied
	return nil
}

func (r *fakeCaseRepo) FindByID(_ context.Context, id primitive.ObjectID) (*Case, error) {
	stored, ok := r.cases[id]
	if !ok {
		return nil, fmt.Errorf("case %s not found", id.Hex())
	}
	copied := *stored
	copied.TaskInstanceIDs = append([]primitive.ObjectID(nil), stored.TaskInstanceIDs...)
	if r.raceOnce {
		stored.Revision++
		r.raceOnce = false
	}
	return &copied, nil
}

func (r *fakeCaseRepo) List(_ context.Context, _ bson.M, _, _ int64) ([]Case, error) {
	var out []Case
	for _, c := range r.cases {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCaseRepo) UpdateCAS(_ context.Context, c *Case, expected int64) error {
	stored, ok := r.cases[c.ID]
	if !ok {
		return fmt.Errorf("case %s not found", c.ID.Hex())
	}
	if stored.Revision != expected {
		return fmt.Errorf("%w: case %s", ErrConflict, c.ID.Hex())
	}
	copied := *c
	r.cases[c.ID] = &copied
	return nil
}

func (r *fakeCaseRepo) CreateCaseData(_ context.Context, cd *CaseData) error {
	copied := *cd
	r.data[cd.ID] = &copied
	return nil
}

func (r *fakeCaseRepo) FindCaseData(_ context.Context, caseID primitive.ObjectID) ([]CaseData, error) {
	r.findDataCalls++
	var out []CaseData
	for _, cd := range r.data {
		if cd.CaseID == caseID {
			out = append(out, *cd)
		}
	}
	return out, nil
}

func (r *fakeCaseRepo) FindCaseDataBySection(_ context.Context, caseID, sectionID primitive.ObjectID) (*CaseData, error) {
	for _, cd := range r.data {
		if cd.CaseID == caseID && cd.SectionID == sectionID {
			copied := *cd
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("no data row for section %s", sectionID.Hex())
}

func (r *fakeCaseRepo) UpdateCaseData(_ context.Context, cd *CaseData) error {
	copied := *cd
	r.data[cd.ID] = &copied
	return nil
}

func (r *fakeCaseRepo) EnsureIndexes(context.Context) error { return nil }

type fakeForms struct {
	form     *form.Form
	sections []form.FormSection
}

func (f *fakeForms) GetForm(_ context.Context, id string) (*form.Form, error) {
	if f.form == nil || f.form.ID.Hex() != id {
		return nil, fmt.Errorf("form %s not found", id)
	}
	return f.form, nil
}

func (f *fakeForms) GetSection(_ context.Context, id primitive.ObjectID) (*form.FormSection, error) {
	for i := range f.sections {
		if f.sections[i].ID == id {
			return &f.sections[i], nil
		}
	}
	return nil, fmt.Errorf("section %s not found", id.Hex())
}

func (f *fakeForms) PublishedSections(_ context.Context, formID primitive.ObjectID) ([]form.FormSection, error) {
	var out []form.FormSection
	for _, s := range f.sections {
		if s.FormID == formID && s.Published {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeForms) ValidatePayload(section *form.FormSection, data map[string]interface{}) error {
	return (&form.FormServiceImpl{}).ValidatePayload(section, data)
}

type fakeWFStore struct {
	workflows     map[primitive.ObjectID]*workflow.Workflow
	tasks         map[primitive.ObjectID]*workflow.Task
	points        map[primitive.ObjectID][]workflow.DecisionPoint
	instances     map[primitive.ObjectID]*workflow.WorkflowInstance
	taskInstances map[primitive.ObjectID]*workflow.TaskInstance
	creationOrder []primitive.ObjectID
}

func newFakeWFStore() *fakeWFStore {
	return &fakeWFStore{
		workflows:     map[primitive.ObjectID]*workflow.Workflow{},
		tasks:         map[primitive.ObjectID]*workflow.Task{},
		points:        map[primitive.ObjectID][]workflow.DecisionPoint{},
		instances:     map[primitive.ObjectID]*workflow.WorkflowInstance{},
		taskInstances: map[primitive.ObjectID]*workflow.TaskInstance{},
	}
}

func (s *fakeWFStore) FindActiveByFormID(_ context.Context, formID primitive.ObjectID) (*workflow.Workflow, error) {
	for _, w := range s.workflows {
		if w.FormID == formID && w.Active {
			return w, nil
		}
	}
	return nil, fmt.Errorf("no active workflow for form %s", formID.Hex())
}

func (s *fakeWFStore) FindTaskByIndex(_ context.Context, workflowID primitive.ObjectID, index int) (*workflow.Task, error) {
	for _, t := range s.tasks {
		if t.WorkflowID == workflowID && t.Index == index {
			copied := *t
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("no task at index %d", index)
}

func (s *fakeWFStore) FindTaskByID(_ context.Context, id primitive.ObjectID) (*workflow.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s not found", id.Hex())
	}
	copied := *t
	return &copied, nil
}

func (s *fakeWFStore) ListDecisionPoints(_ context.Context, taskID primitive.ObjectID) ([]workflow.DecisionPoint, error) {
	points := append([]workflow.DecisionPoint(nil), s.points[taskID]...)
	sort.Slice(points, func(i, j int) bool { return points[i].Priority < points[j].Priority })
	return points, nil
}

func (s *fakeWFStore) FindDecisionPointByID(_ context.Context, id primitive.ObjectID) (*workflow.DecisionPoint, error) {
	for _, points := range s.points {
		for i := range points {
			if points[i].ID == id {
				copied := points[i]
				return &copied, nil
			}
		}
	}
	return nil, fmt.Errorf("decision point %s not found", id.Hex())
}

func (s *fakeWFStore) CreateInstance(_ context.Context, wi *workflow.WorkflowInstance) error {
	copied := *wi
	s.instances[wi.ID] = &copied
	return nil
}

func (s *fakeWFStore) DeactivateInstance(_ context.Context, id primitive.ObjectID) error {
	if wi, ok := s.instances[id]; ok {
		wi.Active = false
	}
	return nil
}

func (s *fakeWFStore) CreateTaskInstances(_ context.Context, instances []workflow.TaskInstance) error {
	for i := range instances {
		copied := instances[i]
		s.taskInstances[copied.ID] = &copied
		s.creationOrder = append(s.creationOrder, copied.ID)
	}
	return nil
}

func (s *fakeWFStore) ListTaskInstancesByWorkflowInstance(_ context.Context, workflowInstanceID primitive.ObjectID) ([]workflow.TaskInstance, error) {
	var out []workflow.TaskInstance
	for _, id := range s.creationOrder {
		if ti, ok := s.taskInstances[id]; ok && ti.WorkflowInstanceID == workflowInstanceID {
			out = append(out, *ti)
		}
	}
	return out, nil
}

func (s *fakeWFStore) FindTaskInstanceByID(_ context.Context, id primitive.ObjectID) (*workflow.TaskInstance, error) {
	ti, ok := s.taskInstances[id]
	if !ok {
		return nil, fmt.Errorf("task instance %s not found", id.Hex())
	}
	copied := *ti
	return &copied, nil
}

func (s *fakeWFStore) FindTaskInstancesByIDs(_ context.Context, ids []primitive.ObjectID) ([]workflow.TaskInstance, error) {
	var out []workflow.TaskInstance
	for _, id := range ids {
		if ti, ok := s.taskInstances[id]; ok {
			out = append(out, *ti)
		}
	}
	return out, nil
}

func (s *fakeWFStore) UpdateTaskInstance(_ context.Context, ti *workflow.TaskInstance) error {
	copied := *ti
	s.taskInstances[ti.ID] = &copied
	return nil
}

func (s *fakeWFStore) DeactivateTaskInstances(_ context.Context, ids []primitive.ObjectID) error {
	for _, id := range ids {
		if ti, ok := s.taskInstances[id]; ok {
			ti.Active = false
		}
	}
	return nil
}

type fakeRoleFinder struct {
	roles map[primitive.ObjectID]*role.Role
}

func (f *fakeRoleFinder) FindByID(_ context.Context, id primitive.ObjectID) (*role.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %s not found", id.Hex())
	}
	return r, nil
}

type fakePermGetter struct{}

func (fakePermGetter) FindByIDs(context.Context, []primitive.ObjectID) ([]permission.Permission, error) {
	return nil, nil
}

type fakeResolver struct {
	perms []permission.Permission
}

func (f *fakeResolver) ResolveAssignees(context.Context, *role.Role, permission.CaseScope) ([]permission.Permission, error) {
	return f.perms, nil
}

type fakeAudit struct {
	entries    []common_models.AuditLog
	lastFilter map[string]interface{}
}

func (f *fakeAudit) LogChange(_ context.Context, entry common_models.AuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) ListLogs(_ context.Context, filter map[string]interface{}, _, _ int64) ([]common_models.AuditLog, error) {
	f.lastFilter = filter
	return f.entries, nil
}

func (f *fakeAudit) History(context.Context, string, string) ([]common_models.AuditLog, error) {
	return f.entries, nil
}

type recordHook struct {
	fired       int
	lastStatus  string
	lastCreated int
}

func (h *recordHook) CaseTransitioned(_ context.Context, _ *Case, oldStatus string, created []workflow.TaskInstance) {
	h.fired++
	h.lastStatus = oldStatus
	h.lastCreated = len(created)
}

// harness wires the lifecycle service over in-memory stores and the real
// executor: triage (auto, amount > 100 -> review) -> review (flow, role R,
// approve -> finalize / reject -> end) -> finalize (flow, role R).
type harness struct {
	svc       *CaseServiceImpl
	repo      *fakeCaseRepo
	wf        *fakeWFStore
	resolver  *fakeResolver
	hook      *recordHook
	form      *form.Form
	section   form.FormSection
	triage    *workflow.Task
	review    *workflow.Task
	finalize  *workflow.Task
	dpApprove workflow.DecisionPoint
	dpReject  workflow.DecisionPoint
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	formID := primitive.NewObjectID()
	frm := &form.Form{
		ID:            formID,
		Name:          "purchase request",
		ApplicationID: primitive.NewObjectID(),
		Active:        true,
	}
	section := form.FormSection{
		ID:        primitive.NewObjectID(),
		FormID:    formID,
		Name:      "request",
		Published: true,
		Fields: []common_models.FormField{
			{Name: "amount", Type: common_models.FieldTypeNumber, Required: true},
			{Name: "region", Type: common_models.FieldTypeText},
		},
	}

	wfStore := newFakeWFStore()
	wfID := primitive.NewObjectID()
	roleID := primitive.NewObjectID()
	wfStore.workflows[wfID] = &workflow.Workflow{ID: wfID, FormID: formID, Name: "purchase", Active: true}

	triage := &workflow.Task{ID: primitive.NewObjectID(), WorkflowID: wfID, Name: "Triage", Type: workflow.TaskAuto, Index: 0}
	review := &workflow.Task{ID: primitive.NewObjectID(), WorkflowID: wfID, Name: "Review", Type: workflow.TaskFlow, Index: 1, RoleID: roleID}
	finalize := &workflow.Task{ID: primitive.NewObjectID(), WorkflowID: wfID, Name: "Finalize", Type: workflow.TaskFlow, Index: 2, RoleID: roleID}
	wfStore.tasks[triage.ID] = triage
	wfStore.tasks[review.ID] = review
	wfStore.tasks[finalize.ID] = finalize

	wfStore.points[triage.ID] = []workflow.DecisionPoint{{
		ID: primitive.NewObjectID(), TaskID: triage.ID, Label: "big", Priority: 1, NextTaskID: review.ID,
		Condition: map[string]interface{}{
			"field_name":          "amount",
			"comparison_operator": "gt",
			"compare_value":       float64(100),
		},
	}}
	dpApprove := workflow.DecisionPoint{ID: primitive.NewObjectID(), TaskID: review.ID, Label: "approve", Priority: 1, NextTaskID: finalize.ID}
	dpReject := workflow.DecisionPoint{ID: primitive.NewObjectID(), TaskID: review.ID, Label: "reject", Priority: 2}
	wfStore.points[review.ID] = []workflow.DecisionPoint{dpApprove, dpReject}

	resolver := &fakeResolver{perms: []permission.Permission{
		{ID: primitive.NewObjectID(), RoleID: roleID, ContactUserID: primitive.NewObjectID()},
	}}
	executor := workflow.NewExecutor(wfStore,
		&fakeRoleFinder{roles: map[primitive.ObjectID]*role.Role{roleID: {ID: roleID, Name: "reviewer"}}},
		fakePermGetter{}, resolver)

	repo := newFakeCaseRepo()
	hook := &recordHook{}
	svc := &CaseServiceImpl{
		Repo:         repo,
		Forms:        &fakeForms{form: frm, sections: []form.FormSection{section}},
		Workflows:    wfStore,
		Executor:     executor,
		AuditService: &fakeAudit{},
		Tx:           fakeTx{},
		Logger:       zap.NewNop(),
		Hooks:        []TransitionHook{hook},
	}

	return &harness{
		svc: svc, repo: repo, wf: wfStore, resolver: resolver, hook: hook,
		form: frm, section: section,
		triage: triage, review: review, finalize: finalize,
		dpApprove: dpApprove, dpReject: dpReject,
	}
}

func (h *harness) createCase(t *testing.T, amount float64) *Case {
	t.Helper()
	c, err := h.svc.CreateCase(context.Background(), CreateCaseInput{
		FormID: h.form.ID.Hex(),
		Sections: map[string]map[string]interface{}{
			h.section.ID.Hex(): {"amount": amount},
		},
	})
	if err != nil {
		t.Fatalf("CreateCase() error = %v", err)
	}
	return c
}

func TestCreateCaseStartsAsDraft(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)

	if c.Status != StatusDraft || c.Submitted {
		t.Fatalf("new case = %+v, want unsubmitted draft", c)
	}
	rows, _ := h.repo.FindCaseData(context.Background(), c.ID)
	if len(rows) != 1 {
		t.Fatalf("got %d data rows, want one per published section", len(rows))
	}
}

func TestSubmitStraightThroughAutoPath(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)

	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if saved.Status != "Review" {
		t.Fatalf("status = %q, want Review", saved.Status)
	}
	if saved.WorkflowInstanceID.IsZero() {
		t.Fatal("first submission must create the workflow instance")
	}
	if wi := h.wf.instances[saved.WorkflowInstanceID]; !wi.Active {
		t.Fatal("workflow instance must stay active mid-flow")
	}

	var autoCount, flowCount int
	for _, ti := range h.wf.taskInstances {
		switch ti.TaskID {
		case h.triage.ID:
			autoCount++
			if ti.Active || ti.DecisionPointID.IsZero() {
				t.Errorf("triage instance = %+v, want decided and inactive", ti)
			}
		case h.review.ID:
			flowCount++
			if !ti.Active {
				t.Errorf("review instance = %+v, want active", ti)
			}
		}
	}
	if autoCount != 1 || flowCount != 1 {
		t.Fatalf("instances: auto=%d flow=%d, want 1/1", autoCount, flowCount)
	}
	if len(saved.TaskInstanceIDs) != 1 {
		t.Fatalf("tracked instances = %d, want only the active review step", len(saved.TaskInstanceIDs))
	}
	if h.hook.fired == 0 || h.hook.lastStatus != StatusDraft {
		t.Errorf("transition hook fired=%d lastStatus=%q", h.hook.fired, h.hook.lastStatus)
	}
}

func TestSubmitNoMatchCompletes(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 50)

	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if saved.Status != StatusCompleted {
		t.Fatalf("status = %q, want Completed", saved.Status)
	}
	if wi := h.wf.instances[saved.WorkflowInstanceID]; wi.Active {
		t.Fatal("workflow instance must be inactive once the case completes")
	}
	for _, ti := range h.wf.taskInstances {
		if ti.Active {
			t.Fatalf("instance %+v still active on a completed case", ti)
		}
		if !ti.DecisionPointID.IsZero() {
			t.Fatal("unmatched auto instance must carry no decision")
		}
	}
}

func TestMissingSnapshotFieldFailsClosed(t *testing.T) {
	h := newHarness(t)
	// Rewrite the triage condition to reference a field the section never
	// provides.
	h.wf.points[h.triage.ID][0].Condition = map[string]interface{}{
		"field_name":          "category",
		"comparison_operator": "eq",
		"compare_value":       "urgent",
	}
	c := h.createCase(t, 500)

	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if saved.Status != StatusCompleted {
		t.Fatalf("status = %q, want Completed (missing field is a non-match)", saved.Status)
	}
}

func TestMultiAssigneeTieBreak(t *testing.T) {
	h := newHarness(t)
	h.resolver.perms = append(h.resolver.perms, permission.Permission{
		ID: primitive.NewObjectID(), ContactUserID: primitive.NewObjectID(),
	})
	c := h.createCase(t, 500)

	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(saved.TaskInstanceIDs) != 2 {
		t.Fatalf("tracked = %d, want one instance per assignee", len(saved.TaskInstanceIDs))
	}

	// First assignee rejects (priority 2); the step is still mid-flight.
	mid, err := h.svc.ActOnTask(context.Background(), c.ID.Hex(), ActionInput{
		InstanceID:      saved.TaskInstanceIDs[0].Hex(),
		DecisionPointID: h.dpReject.ID.Hex(),
		Comment:         "too expensive",
	})
	if err != nil {
		t.Fatalf("ActOnTask() error = %v", err)
	}
	if mid.Status != "Review" {
		t.Fatalf("status = %q, want Review while one instance is active", mid.Status)
	}

	// Second assignee approves (priority 1); approve wins the tie-break.
	final, err := h.svc.ActOnTask(context.Background(), c.ID.Hex(), ActionInput{
		InstanceID:      saved.TaskInstanceIDs[1].Hex(),
		DecisionPointID: h.dpApprove.ID.Hex(),
		Comment:         "looks fine",
	})
	if err != nil {
		t.Fatalf("ActOnTask() error = %v", err)
	}
	if final.Status != "Finalize" {
		t.Fatalf("status = %q, want Finalize (lowest priority decision wins)", final.Status)
	}
}

func TestRejectionEndsWorkflow(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)
	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	final, err := h.svc.ActOnTask(context.Background(), c.ID.Hex(), ActionInput{
		InstanceID:      saved.TaskInstanceIDs[0].Hex(),
		DecisionPointID: h.dpReject.ID.Hex(),
	})
	if err != nil {
		t.Fatalf("ActOnTask() error = %v", err)
	}
	if final.Status != StatusCompleted {
		t.Fatalf("status = %q, want Completed (reject has no next task)", final.Status)
	}
	if wi := h.wf.instances[final.WorkflowInstanceID]; wi.Active {
		t.Fatal("workflow instance must be inactive after terminal decision")
	}
}

func TestCancelMidFlow(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)
	if _, err := h.svc.Submit(context.Background(), c.ID.Hex()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	cancelled, err := h.svc.Cancel(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status = %q, want Cancelled", cancelled.Status)
	}
	if wi := h.wf.instances[cancelled.WorkflowInstanceID]; wi.Active {
		t.Fatal("cancellation must deactivate the workflow instance")
	}
	for _, ti := range h.wf.taskInstances {
		if ti.Active {
			t.Fatalf("instance %+v left active after cancellation", ti)
		}
	}

	if _, err := h.svc.Cancel(context.Background(), c.ID.Hex()); err == nil {
		t.Fatal("cancelling a terminal case must fail")
	}
}

func TestNoAssigneeRollsBack(t *testing.T) {
	h := newHarness(t)
	h.resolver.perms = nil
	c := h.createCase(t, 500)

	_, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if !errors.Is(err, workflow.ErrNoAssignee) {
		t.Fatalf("Submit() error = %v, want ErrNoAssignee", err)
	}
	stored, _ := h.repo.FindByID(context.Background(), c.ID)
	if stored.Status != StatusDraft || stored.Submitted {
		t.Fatalf("case = %+v, want untouched draft after rollback", stored)
	}
}

func TestMissingWorkflow(t *testing.T) {
	h := newHarness(t)
	for id := range h.wf.workflows {
		h.wf.workflows[id].Active = false
	}
	c := h.createCase(t, 500)

	_, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if !errors.Is(err, ErrMissingWorkflow) {
		t.Fatalf("Submit() error = %v, want ErrMissingWorkflow", err)
	}
}

func TestSubmitValidatesRequiredFields(t *testing.T) {
	h := newHarness(t)
	c, err := h.svc.CreateCase(context.Background(), CreateCaseInput{FormID: h.form.ID.Hex()})
	if err != nil {
		t.Fatalf("CreateCase() error = %v", err)
	}

	if _, err := h.svc.Submit(context.Background(), c.ID.Hex()); !errors.Is(err, form.ErrInvalidPayload) {
		t.Fatalf("Submit() error = %v, want ErrInvalidPayload", err)
	}
}

func TestConcurrentSaveConflict(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)
	h.repo.raceOnce = true

	_, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Submit() error = %v, want ErrConflict", err)
	}
}

func TestUpdateSectionDataKeepsDraft(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)

	updated, err := h.svc.UpdateSectionData(context.Background(), c.ID.Hex(), h.section.ID.Hex(), map[string]interface{}{
		"amount": float64(750),
		"region": "north",
	})
	if err != nil {
		t.Fatalf("UpdateSectionData() error = %v", err)
	}
	if updated.Status != StatusDraft {
		t.Fatalf("status = %q, want Draft", updated.Status)
	}
	row, _ := h.repo.FindCaseDataBySection(context.Background(), c.ID, h.section.ID)
	if row.Data["amount"] != float64(750) {
		t.Fatalf("data = %v, want updated amount", row.Data)
	}
}

func TestUpdateRejectsUnpublishedSection(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)
	h.svc.Forms.(*fakeForms).sections[0].Published = false

	_, err := h.svc.UpdateSectionData(context.Background(), c.ID.Hex(), h.section.ID.Hex(), map[string]interface{}{
		"amount": float64(1),
	})
	if err == nil {
		t.Fatal("writing to an unpublished section must fail")
	}
}

func TestActOnTaskRejectsForeignDecisionPoint(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)
	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// A decision point belonging to the triage task whose branch jumps
	// straight to Finalize. Acting on the review instance with it must not
	// route the case past the review step.
	foreign := workflow.DecisionPoint{
		ID: primitive.NewObjectID(), TaskID: h.triage.ID, Label: "skip",
		Priority: 1, NextTaskID: h.finalize.ID,
	}
	h.wf.points[h.triage.ID] = append(h.wf.points[h.triage.ID], foreign)

	_, err = h.svc.ActOnTask(context.Background(), c.ID.Hex(), ActionInput{
		InstanceID:      saved.TaskInstanceIDs[0].Hex(),
		DecisionPointID: foreign.ID.Hex(),
	})
	if err == nil {
		t.Fatal("acting with another task's decision point must fail")
	}

	stored, _ := h.repo.FindByID(context.Background(), c.ID)
	if stored.Status != "Review" {
		t.Fatalf("status = %q, want Review untouched", stored.Status)
	}
	inst, _ := h.wf.FindTaskInstanceByID(context.Background(), saved.TaskInstanceIDs[0])
	if !inst.Active || !inst.DecisionPointID.IsZero() {
		t.Fatalf("review instance = %+v, want still active and undecided", inst)
	}
}

func TestGetCaseReturnsAllSteps(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)
	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := h.svc.ActOnTask(context.Background(), c.ID.Hex(), ActionInput{
		InstanceID:      saved.TaskInstanceIDs[0].Hex(),
		DecisionPointID: h.dpApprove.ID.Hex(),
	}); err != nil {
		t.Fatalf("ActOnTask() error = %v", err)
	}

	detail, err := h.svc.GetCase(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("GetCase() error = %v", err)
	}
	if len(detail.Instances) != 3 {
		t.Fatalf("instances = %d, want triage, review and finalize", len(detail.Instances))
	}
	byTask := map[primitive.ObjectID]workflow.TaskInstance{}
	for _, inst := range detail.Instances {
		byTask[inst.TaskID] = inst
	}
	if inst := byTask[h.triage.ID]; inst.Active || inst.DecisionPointID.IsZero() {
		t.Errorf("triage step = %+v, want decided earlier step preserved", inst)
	}
	if inst := byTask[h.review.ID]; inst.Active || inst.DecisionPointID != h.dpApprove.ID {
		t.Errorf("review step = %+v, want decided with the approve outcome", inst)
	}
	if inst := byTask[h.finalize.ID]; !inst.Active {
		t.Errorf("finalize step = %+v, want the active working step", inst)
	}
}

func TestHistoryCoversCompletedSteps(t *testing.T) {
	h := newHarness(t)
	c := h.createCase(t, 500)
	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := h.svc.ActOnTask(context.Background(), c.ID.Hex(), ActionInput{
		InstanceID:      saved.TaskInstanceIDs[0].Hex(),
		DecisionPointID: h.dpApprove.ID.Hex(),
	}); err != nil {
		t.Fatalf("ActOnTask() error = %v", err)
	}

	if _, err := h.svc.History(context.Background(), c.ID.Hex()); err != nil {
		t.Fatalf("History() error = %v", err)
	}

	var triageInstance primitive.ObjectID
	for _, ti := range h.wf.taskInstances {
		if ti.TaskID == h.triage.ID {
			triageInstance = ti.ID
		}
	}
	audit := h.svc.AuditService.(*fakeAudit)
	in, ok := audit.lastFilter["record_id"].(bson.M)
	if !ok {
		t.Fatalf("log filter = %v, want a record_id $in query", audit.lastFilter)
	}
	ids, _ := in["$in"].([]string)
	found := false
	for _, id := range ids {
		if id == triageInstance.Hex() {
			found = true
		}
	}
	if !found {
		t.Fatalf("log query ids = %v, missing the first step's instance %s", ids, triageInstance.Hex())
	}
}

func TestFlowEntrySkipsSnapshot(t *testing.T) {
	h := newHarness(t)
	h.triage.Type = workflow.TaskFlow
	h.triage.RoleID = h.review.RoleID
	c := h.createCase(t, 500)

	h.repo.findDataCalls = 0
	saved, err := h.svc.Submit(context.Background(), c.ID.Hex())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if saved.Status != "Triage" {
		t.Fatalf("status = %q, want Triage", saved.Status)
	}
	// One read validates the sections; a flow entry never needs the
	// flattened field map on top of that.
	if h.repo.findDataCalls != 1 {
		t.Fatalf("case data reads = %d, want 1", h.repo.findDataCalls)
	}
}
