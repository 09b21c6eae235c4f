package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/features/audit"
	"go-caseflow/internal/features/casefile"
	"go-caseflow/internal/features/form"
	"go-caseflow/internal/features/workflow"
	"go-caseflow/pkg/condition"
	"go-caseflow/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrInvalidRule = errors.New("invalid automation rule")

// SnapshotReader loads the case's section payloads so rule conditions and
// scripts can see the case fields.
type SnapshotReader interface {
	FindCaseData(ctx context.Context, caseID primitive.ObjectID) ([]casefile.CaseData, error)
}

type AutomationService interface {
	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, id string) (*Rule, error)
	ListRules(ctx context.Context) ([]Rule, error)
	UpdateRule(ctx context.Context, id string, rule *Rule) error
	DeleteRule(ctx context.Context, id string) error
}

// AutomationServiceImpl owns rule configuration and reacts to case
// transitions as a casefile.TransitionHook.
type AutomationServiceImpl struct {
	Repo         RuleRepository
	Executor     ActionExecutor
	Cases        SnapshotReader
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewAutomationService(repo RuleRepository, executor ActionExecutor, cases SnapshotReader, auditService audit.AuditService, logger *zap.Logger) *AutomationServiceImpl {
	return &AutomationServiceImpl{
		Repo:         repo,
		Executor:     executor,
		Cases:        cases,
		AuditService: auditService,
		Logger:       logger,
	}
}

func (s *AutomationServiceImpl) CreateRule(ctx context.Context, rule *Rule) error {
	if err := s.validateRule(rule); err != nil {
		return err
	}
	rule.ID = primitive.NewObjectID()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	if err := s.Repo.Create(ctx, rule); err != nil {
		return err
	}
	s.audit(ctx, common_models.ChangeTypeCreated, rule.ID.Hex(), map[string]common_models.Change{
		"name": {New: rule.Name},
	})
	return nil
}

func (s *AutomationServiceImpl) GetRule(ctx context.Context, id string) (*Rule, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid rule id: %w", err)
	}
	return s.Repo.FindByID(ctx, oid)
}

func (s *AutomationServiceImpl) ListRules(ctx context.Context) ([]Rule, error) {
	return s.Repo.List(ctx)
}

func (s *AutomationServiceImpl) UpdateRule(ctx context.Context, id string, rule *Rule) error {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return err
	}
	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	if err := s.validateRule(rule); err != nil {
		return err
	}
	if err := s.Repo.Update(ctx, rule); err != nil {
		return err
	}
	s.audit(ctx, common_models.ChangeTypeChanged, id, map[string]common_models.Change{
		"name": {Old: existing.Name, New: rule.Name},
	})
	return nil
}

func (s *AutomationServiceImpl) DeleteRule(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid rule id: %w", err)
	}
	if err := s.Repo.Delete(ctx, oid); err != nil {
		return err
	}
	s.audit(ctx, common_models.ChangeTypeDeleted, id, nil)
	return nil
}

// CaseTransitioned implements casefile.TransitionHook. Rule failures are
// logged and swallowed; the case transition has already committed.
func (s *AutomationServiceImpl) CaseTransitioned(ctx context.Context, c *casefile.Case, oldStatus string, created []workflow.TaskInstance) {
	rules, err := s.Repo.ListActiveByFormID(ctx, c.FormID)
	if err != nil {
		s.Logger.Error("failed to load automation rules", zap.String("case_id", c.ID.Hex()), zap.Error(err))
		return
	}
	if len(rules) == 0 {
		return
	}

	snapshot, err := s.snapshot(ctx, c)
	if err != nil {
		s.Logger.Error("failed to load case snapshot for automation", zap.String("case_id", c.ID.Hex()), zap.Error(err))
		return
	}
	ev := Event{Case: c, OldStatus: oldStatus, Created: created, Snapshot: snapshot}

	for i := range rules {
		rule := &rules[i]
		if !s.matches(rule, ev) {
			continue
		}
		s.Executor.ExecuteActions(ctx, rule.Actions, ev)
		_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
			Action:     common_models.AuditActionAutomation,
			ChangeType: common_models.ChangeTypeChanged,
			Entity:     "cases",
			RecordID:   c.ID.Hex(),
			ActorID:    "system",
			Changes: map[string]common_models.Change{
				"rule": {New: rule.Name},
			},
		})
	}
}

func (s *AutomationServiceImpl) matches(rule *Rule, ev Event) bool {
	switch rule.Trigger {
	case TriggerStatusChanged:
		if ev.Case.Status == ev.OldStatus {
			return false
		}
		if rule.Status != "" && rule.Status != ev.Case.Status {
			return false
		}
	case TriggerCompleted:
		if ev.Case.Status != casefile.StatusCompleted || ev.OldStatus == casefile.StatusCompleted {
			return false
		}
	case TriggerCancelled:
		if ev.Case.Status != casefile.StatusCancelled || ev.OldStatus == casefile.StatusCancelled {
			return false
		}
	case TriggerTaskCreated:
		if len(ev.Created) == 0 {
			return false
		}
	default:
		return false
	}

	if rule.Condition == nil {
		return true
	}
	node, err := condition.Parse(rule.Condition)
	if err != nil {
		s.Logger.Warn("automation rule has an invalid condition", zap.String("rule", rule.Name), zap.Error(err))
		return false
	}
	ok, err := condition.Evaluate(node, ev.Snapshot)
	if err != nil {
		s.Logger.Warn("automation rule condition failed to evaluate", zap.String("rule", rule.Name), zap.Error(err))
		return false
	}
	return ok
}

func (s *AutomationServiceImpl) snapshot(ctx context.Context, c *casefile.Case) (map[string]interface{}, error) {
	rows, err := s.Cases.FindCaseData(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, row.Data)
	}
	return form.Flatten(payloads), nil
}

func (s *AutomationServiceImpl) validateRule(rule *Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if rule.FormID.IsZero() {
		return fmt.Errorf("%w: form_id is required", ErrInvalidRule)
	}
	switch rule.Trigger {
	case TriggerStatusChanged, TriggerCompleted, TriggerCancelled, TriggerTaskCreated:
	default:
		return fmt.Errorf("%w: unknown trigger %q", ErrInvalidRule, rule.Trigger)
	}
	if len(rule.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidRule)
	}
	for _, action := range rule.Actions {
		switch action.Type {
		case ActionWebhook, ActionRunScript, ActionNotify:
		default:
			return fmt.Errorf("%w: unknown action type %q", ErrInvalidRule, action.Type)
		}
	}
	if rule.Condition != nil {
		if _, err := condition.Parse(rule.Condition); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRule, err)
		}
	}
	return nil
}

func (s *AutomationServiceImpl) audit(ctx context.Context, changeType common_models.ChangeType, recordID string, changes map[string]common_models.Change) {
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     common_models.AuditActionAutomation,
		ChangeType: changeType,
		Entity:     "automation_rules",
		RecordID:   recordID,
		ActorID:    utils.ActorFromContext(ctx),
		Changes:    changes,
	})
}
