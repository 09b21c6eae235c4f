package escalation

import (
	"context"
	"testing"
	"time"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/config"
	"go-caseflow/internal/features/notification"
	"go-caseflow/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeInstances struct {
	stale      []workflow.TaskInstance
	lastCutoff primitive.DateTime
}

func (f *fakeInstances) FindStaleActiveInstances(_ context.Context, before primitive.DateTime) ([]workflow.TaskInstance, error) {
	f.lastCutoff = before
	return f.stale, nil
}

type fakeAlerter struct {
	sent []primitive.ObjectID
}

func (f *fakeAlerter) CreateNotification(_ context.Context, userID primitive.ObjectID, _, _ string, _ notification.NotificationType, _ string) error {
	f.sent = append(f.sent, userID)
	return nil
}

type recordAudit struct {
	entries []common_models.AuditLog
}

func (r *recordAudit) LogChange(_ context.Context, entry common_models.AuditLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordAudit) ListLogs(context.Context, map[string]interface{}, int64, int64) ([]common_models.AuditLog, error) {
	return r.entries, nil
}

func (r *recordAudit) History(context.Context, string, string) ([]common_models.AuditLog, error) {
	return r.entries, nil
}

func newSweep(stale []workflow.TaskInstance) (*EscalationService, *fakeInstances, *fakeAlerter, *recordAudit) {
	instances := &fakeInstances{stale: stale}
	alerter := &fakeAlerter{}
	auditor := &recordAudit{}
	svc := NewEscalationService(instances, alerter, auditor, zap.NewNop(), &config.Config{
		EscalationHours: 48,
		EscalationCron:  "0 * * * *",
	})
	return svc, instances, alerter, auditor
}

func TestSweepNotifiesStaleAssignees(t *testing.T) {
	assignee := primitive.NewObjectID()
	stale := []workflow.TaskInstance{{
		ID:         primitive.NewObjectID(),
		AssigneeID: assignee,
		Active:     true,
		CreatedAt:  time.Now().Add(-72 * time.Hour),
	}}
	svc, instances, alerter, auditor := newSweep(stale)

	if err := svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(alerter.sent) != 1 || alerter.sent[0] != assignee {
		t.Fatalf("sent = %v, want one alert to the assignee", alerter.sent)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != common_models.AuditActionEscalation {
		t.Fatalf("audit = %+v, want one escalation entry", auditor.entries)
	}

	cutoff := instances.lastCutoff.Time()
	want := time.Now().Add(-48 * time.Hour)
	if diff := cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("cutoff = %v, want about %v", cutoff, want)
	}
}

func TestSweepEscalatesOnce(t *testing.T) {
	stale := []workflow.TaskInstance{{
		ID:         primitive.NewObjectID(),
		AssigneeID: primitive.NewObjectID(),
		Active:     true,
		CreatedAt:  time.Now().Add(-72 * time.Hour),
	}}
	svc, _, alerter, _ := newSweep(stale)

	if err := svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if err := svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(alerter.sent) != 1 {
		t.Fatalf("sent %d alerts, want exactly one per instance", len(alerter.sent))
	}
}

func TestSweepUnassignedInstanceStillAudited(t *testing.T) {
	stale := []workflow.TaskInstance{{
		ID:        primitive.NewObjectID(),
		Active:    true,
		CreatedAt: time.Now().Add(-72 * time.Hour),
	}}
	svc, _, alerter, auditor := newSweep(stale)

	if err := svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(alerter.sent) != 0 {
		t.Fatalf("sent = %v, want no alert without an assignee", alerter.sent)
	}
	if len(auditor.entries) != 1 {
		t.Fatalf("audit = %+v, want the escalation still recorded", auditor.entries)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc, _, _, _ := newSweep(nil)
	svc.Schedule = "every now and then"

	if err := svc.Start(); err == nil {
		t.Fatal("Start() must reject an unparsable schedule")
	}
}
