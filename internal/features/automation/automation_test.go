package automation

import (
	"context"
	"fmt"
	"testing"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/features/casefile"
	"go-caseflow/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeRuleRepo struct {
	rules []Rule
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *Rule) error {
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *fakeRuleRepo) FindByID(_ context.Context, id primitive.ObjectID) (*Rule, error) {
	for i := range r.rules {
		if r.rules[i].ID == id {
			return &r.rules[i], nil
		}
	}
	return nil, fmt.Errorf("rule %s not found", id.Hex())
}

func (r *fakeRuleRepo) List(context.Context) ([]Rule, error) { return r.rules, nil }

func (r *fakeRuleRepo) ListActiveByFormID(_ context.Context, formID primitive.ObjectID) ([]Rule, error) {
	var out []Rule
	for _, rule := range r.rules {
		if rule.FormID == formID && rule.Active {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *Rule) error {
	for i := range r.rules {
		if r.rules[i].ID == rule.ID {
			r.rules[i] = *rule
		}
	}
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	for i := range r.rules {
		if r.rules[i].ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeRuleRepo) EnsureIndexes(context.Context) error { return nil }

type fakeExecutor struct {
	executed [][]RuleAction
}

func (f *fakeExecutor) ExecuteActions(_ context.Context, actions []RuleAction, _ Event) {
	f.executed = append(f.executed, actions)
}

type fakeSnapshots struct {
	rows []casefile.CaseData
}

func (f *fakeSnapshots) FindCaseData(context.Context, primitive.ObjectID) ([]casefile.CaseData, error) {
	return f.rows, nil
}

type nopAudit struct{}

func (nopAudit) LogChange(context.Context, common_models.AuditLog) error { return nil }
func (nopAudit) ListLogs(context.Context, map[string]interface{}, int64, int64) ([]common_models.AuditLog, error) {
	return nil, nil
}
func (nopAudit) History(context.Context, string, string) ([]common_models.AuditLog, error) {
	return nil, nil
}

func testCase(formID primitive.ObjectID, status string) *casefile.Case {
	return &casefile.Case{
		ID:        primitive.NewObjectID(),
		FormID:    formID,
		Status:    status,
		CreatedBy: primitive.NewObjectID().Hex(),
	}
}

func TestCaseTransitionedExecutesMatchingRules(t *testing.T) {
	formID := primitive.NewObjectID()
	repo := &fakeRuleRepo{rules: []Rule{
		{
			ID: primitive.NewObjectID(), Name: "on complete", FormID: formID, Active: true,
			Trigger: TriggerCompleted,
			Actions: []RuleAction{{Type: ActionWebhook, Config: map[string]interface{}{"url": "http://hook"}}},
		},
		{
			ID: primitive.NewObjectID(), Name: "on cancel", FormID: formID, Active: true,
			Trigger: TriggerCancelled,
			Actions: []RuleAction{{Type: ActionNotify, Config: map[string]interface{}{"title": "cancelled"}}},
		},
		{
			ID: primitive.NewObjectID(), Name: "inactive", FormID: formID, Active: false,
			Trigger: TriggerCompleted,
			Actions: []RuleAction{{Type: ActionWebhook, Config: map[string]interface{}{"url": "http://hook"}}},
		},
	}}
	executor := &fakeExecutor{}
	svc := NewAutomationService(repo, executor, &fakeSnapshots{}, nopAudit{}, zap.NewNop())

	svc.CaseTransitioned(context.Background(), testCase(formID, casefile.StatusCompleted), "Review", nil)

	if len(executor.executed) != 1 {
		t.Fatalf("executed %d rules, want only the completion rule", len(executor.executed))
	}
	if executor.executed[0][0].Type != ActionWebhook {
		t.Fatalf("executed action = %+v, want the webhook", executor.executed[0][0])
	}
}

func TestCaseTransitionedConditionGate(t *testing.T) {
	formID := primitive.NewObjectID()
	rule := Rule{
		ID: primitive.NewObjectID(), Name: "big amounts", FormID: formID, Active: true,
		Trigger: TriggerCompleted,
		Condition: map[string]interface{}{
			"field_name":          "amount",
			"comparison_operator": "gt",
			"compare_value":       float64(1000),
		},
		Actions: []RuleAction{{Type: ActionNotify, Config: map[string]interface{}{"title": "big"}}},
	}
	repo := &fakeRuleRepo{rules: []Rule{rule}}
	executor := &fakeExecutor{}
	snapshots := &fakeSnapshots{rows: []casefile.CaseData{
		{Data: map[string]interface{}{"amount": float64(500)}},
	}}
	svc := NewAutomationService(repo, executor, snapshots, nopAudit{}, zap.NewNop())

	svc.CaseTransitioned(context.Background(), testCase(formID, casefile.StatusCompleted), "Review", nil)
	if len(executor.executed) != 0 {
		t.Fatal("rule must not fire when the condition does not match")
	}

	snapshots.rows[0].Data["amount"] = float64(5000)
	svc.CaseTransitioned(context.Background(), testCase(formID, casefile.StatusCompleted), "Review", nil)
	if len(executor.executed) != 1 {
		t.Fatal("rule must fire once the condition matches")
	}
}

func TestMatchesTriggers(t *testing.T) {
	formID := primitive.NewObjectID()
	svc := NewAutomationService(&fakeRuleRepo{}, &fakeExecutor{}, &fakeSnapshots{}, nopAudit{}, zap.NewNop())
	created := []workflow.TaskInstance{{ID: primitive.NewObjectID(), Active: true}}

	tests := []struct {
		name string
		rule Rule
		ev   Event
		want bool
	}{
		{
			"status change fires",
			Rule{Trigger: TriggerStatusChanged},
			Event{Case: testCase(formID, "Review"), OldStatus: "Draft"},
			true,
		},
		{
			"status change with filter mismatch",
			Rule{Trigger: TriggerStatusChanged, Status: "Approval"},
			Event{Case: testCase(formID, "Review"), OldStatus: "Draft"},
			false,
		},
		{
			"no change no fire",
			Rule{Trigger: TriggerStatusChanged},
			Event{Case: testCase(formID, "Review"), OldStatus: "Review"},
			false,
		},
		{
			"task created",
			Rule{Trigger: TriggerTaskCreated},
			Event{Case: testCase(formID, "Review"), OldStatus: "Draft", Created: created},
			true,
		},
		{
			"task created without instances",
			Rule{Trigger: TriggerTaskCreated},
			Event{Case: testCase(formID, "Review"), OldStatus: "Draft"},
			false,
		},
		{
			"cancelled",
			Rule{Trigger: TriggerCancelled},
			Event{Case: testCase(formID, casefile.StatusCancelled), OldStatus: "Review"},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.matches(&tt.rule, tt.ev); got != tt.want {
				t.Fatalf("matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	svc := NewAutomationService(&fakeRuleRepo{}, &fakeExecutor{}, &fakeSnapshots{}, nopAudit{}, zap.NewNop())
	valid := func() *Rule {
		return &Rule{
			Name:    "notify creator",
			FormID:  primitive.NewObjectID(),
			Trigger: TriggerCompleted,
			Actions: []RuleAction{{Type: ActionNotify, Config: map[string]interface{}{"title": "done"}}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *Rule)
		wantErr bool
	}{
		{"valid", func(*Rule) {}, false},
		{"missing name", func(r *Rule) { r.Name = "" }, true},
		{"missing form", func(r *Rule) { r.FormID = primitive.NilObjectID }, true},
		{"unknown trigger", func(r *Rule) { r.Trigger = "on_sneeze" }, true},
		{"no actions", func(r *Rule) { r.Actions = nil }, true},
		{"unknown action", func(r *Rule) { r.Actions[0].Type = "send_fax" }, true},
		{"bad condition", func(r *Rule) {
			r.Condition = map[string]interface{}{"operator": "XOR"}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid()
			tt.mutate(rule)
			err := svc.validateRule(rule)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateRule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReplacePlaceholders(t *testing.T) {
	ev := Event{
		Case:      &casefile.Case{ID: primitive.NewObjectID(), Status: "Review"},
		OldStatus: "Draft",
		Snapshot:  map[string]interface{}{"amount": float64(250)},
	}

	got := replacePlaceholders("case {{case_id}} moved to {{status}} with {{amount}}", ev)
	want := "case " + ev.Case.ID.Hex() + " moved to Review with 250"
	if got != want {
		t.Fatalf("replacePlaceholders() = %q, want %q", got, want)
	}
}
