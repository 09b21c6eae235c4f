package notification

import (
	"context"
	"testing"
	"time"

	"go-caseflow/internal/features/casefile"
	"go-caseflow/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeNotificationRepo struct {
	rows []Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.rows = append(r.rows, *n)
	return nil
}

func (r *fakeNotificationRepo) GetByUserID(_ context.Context, userID primitive.ObjectID, _, _ int64) ([]Notification, int64, error) {
	var out []Notification
	for _, n := range r.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) GetUnreadCount(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkAsRead(_ context.Context, id, userID primitive.ObjectID) error {
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].UserID == userID {
			r.rows[i].IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(_ context.Context, userID primitive.ObjectID) error {
	for i := range r.rows {
		if r.rows[i].UserID == userID {
			r.rows[i].IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) EnsureIndexes(context.Context) error { return nil }

func newTestService() (*NotificationServiceImpl, *fakeNotificationRepo) {
	repo := &fakeNotificationRepo{}
	return NewNotificationService(repo, NewHub(zap.NewNop()), zap.NewNop()), repo
}

func TestCaseTransitionedNotifiesAssignees(t *testing.T) {
	svc, repo := newTestService()

	assigneeA := primitive.NewObjectID()
	assigneeB := primitive.NewObjectID()
	c := &casefile.Case{
		ID:        primitive.NewObjectID(),
		Status:    "Review",
		CreatedBy: primitive.NewObjectID().Hex(),
	}
	created := []workflow.TaskInstance{
		{ID: primitive.NewObjectID(), AssigneeID: assigneeA, Active: true},
		{ID: primitive.NewObjectID(), AssigneeID: assigneeB, Active: true},
		// Decided auto instance, no one to notify.
		{ID: primitive.NewObjectID(), Active: false},
	}

	svc.CaseTransitioned(context.Background(), c, "Draft", created)

	if len(repo.rows) != 2 {
		t.Fatalf("created %d notifications, want one per active assignee", len(repo.rows))
	}
	for _, n := range repo.rows {
		if n.Type != NotificationTypeTask {
			t.Errorf("type = %q, want task", n.Type)
		}
		if n.Link != "/api/cases/"+c.ID.Hex() {
			t.Errorf("link = %q, want the case link", n.Link)
		}
	}
}

func TestCaseTransitionedNotifiesCreatorOnTerminal(t *testing.T) {
	svc, repo := newTestService()

	creator := primitive.NewObjectID()
	c := &casefile.Case{
		ID:        primitive.NewObjectID(),
		Status:    casefile.StatusCompleted,
		CreatedBy: creator.Hex(),
	}

	svc.CaseTransitioned(context.Background(), c, "Review", nil)

	if len(repo.rows) != 1 || repo.rows[0].UserID != creator {
		t.Fatalf("rows = %+v, want one notification for the creator", repo.rows)
	}
}

func TestCaseTransitionedSkipsSystemCreator(t *testing.T) {
	svc, repo := newTestService()

	c := &casefile.Case{
		ID:        primitive.NewObjectID(),
		Status:    casefile.StatusCancelled,
		CreatedBy: "system",
	}

	svc.CaseTransitioned(context.Background(), c, "Review", nil)

	if len(repo.rows) != 0 {
		t.Fatalf("rows = %+v, want none for a system-created case", repo.rows)
	}
}

func TestUnreadCountAndMarkAllRead(t *testing.T) {
	svc, _ := newTestService()
	user := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		if err := svc.CreateNotification(context.Background(), user, "t", "m", NotificationTypeInfo, ""); err != nil {
			t.Fatalf("CreateNotification() error = %v", err)
		}
	}

	count, err := svc.GetUnreadCount(context.Background(), user)
	if err != nil || count != 3 {
		t.Fatalf("unread = %d, %v; want 3", count, err)
	}

	if err := svc.MarkAllAsRead(context.Background(), user); err != nil {
		t.Fatalf("MarkAllAsRead() error = %v", err)
	}
	count, _ = svc.GetUnreadCount(context.Background(), user)
	if count != 0 {
		t.Fatalf("unread after mark-all = %d, want 0", count)
	}
}
