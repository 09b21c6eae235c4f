package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/config"
	"go-caseflow/internal/features/audit"
	"go-caseflow/internal/features/notification"
	"go-caseflow/internal/features/workflow"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// InstanceFinder is the slice of the workflow repository the sweep needs.
type InstanceFinder interface {
	FindStaleActiveInstances(ctx context.Context, before primitive.DateTime) ([]workflow.TaskInstance, error)
}

// Alerter delivers the escalation warning to the stale assignee.
type Alerter interface {
	CreateNotification(ctx context.Context, userID primitive.ObjectID, title, message string, notifType notification.NotificationType, link string) error
}

// EscalationService periodically flags task instances that stayed active
// longer than the configured number of hours.
type EscalationService struct {
	Instances    InstanceFinder
	Alerter      Alerter
	AuditService audit.AuditService
	Logger       *zap.Logger
	Hours        int
	Schedule     string

	scheduler *cron.Cron

	mu       sync.Mutex
	notified map[primitive.ObjectID]bool
}

func NewEscalationService(instances InstanceFinder, alerter Alerter, auditService audit.AuditService, logger *zap.Logger, cfg *config.Config) *EscalationService {
	return &EscalationService{
		Instances:    instances,
		Alerter:      alerter,
		AuditService: auditService,
		Logger:       logger,
		Hours:        cfg.EscalationHours,
		Schedule:     cfg.EscalationCron,
		notified:     map[primitive.ObjectID]bool{},
	}
}

// Start registers the sweep with the scheduler and begins running it.
func (s *EscalationService) Start() error {
	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		return fmt.Errorf("invalid escalation schedule %q: %w", s.Schedule, err)
	}

	s.scheduler = cron.New()
	_, err := s.scheduler.AddFunc(s.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.Logger.Error("escalation sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.scheduler.Start()
	s.Logger.Info("escalation sweep scheduled",
		zap.String("schedule", s.Schedule),
		zap.Int("hours", s.Hours))
	return nil
}

func (s *EscalationService) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Sweep finds task instances active longer than the threshold and warns
// their assignees. Each instance is escalated once per process lifetime.
func (s *EscalationService) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(s.Hours) * time.Hour)
	stale, err := s.Instances.FindStaleActiveInstances(ctx, primitive.NewDateTimeFromTime(cutoff))
	if err != nil {
		return err
	}

	for i := range stale {
		inst := &stale[i]
		if s.alreadyNotified(inst.ID) {
			continue
		}

		age := time.Since(inst.CreatedAt).Round(time.Hour)
		if !inst.AssigneeID.IsZero() {
			err := s.Alerter.CreateNotification(ctx, inst.AssigneeID,
				"Task overdue",
				fmt.Sprintf("A task assigned to you has been waiting for %s.", age),
				notification.NotificationTypeEscalation, "")
			if err != nil {
				s.Logger.Error("failed to send escalation notification",
					zap.String("instance_id", inst.ID.Hex()),
					zap.Error(err))
				continue
			}
		}

		_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
			Action:     common_models.AuditActionEscalation,
			ChangeType: common_models.ChangeTypeChanged,
			Entity:     "task_instances",
			RecordID:   inst.ID.Hex(),
			ActorID:    "system",
			Changes: map[string]common_models.Change{
				"age": {New: age.String()},
			},
		})
		s.markNotified(inst.ID)
	}
	return nil
}

func (s *EscalationService) alreadyNotified(id primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notified[id]
}

func (s *EscalationService) markNotified(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[id] = true
}
