package notification

import (
	"context"
	"fmt"

	"go-caseflow/internal/features/casefile"
	"go-caseflow/internal/features/workflow"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type NotificationService interface {
	Notify(ctx context.Context, userID, title, message string) error
	CreateNotification(ctx context.Context, userID primitive.ObjectID, title, message string, notifType NotificationType, link string) error
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error
}

// NotificationServiceImpl persists notification rows and pushes them over
// the websocket hub. It also reacts to case transitions as a
// casefile.TransitionHook, notifying new assignees and case creators.
type NotificationServiceImpl struct {
	Repo   NotificationRepository
	Hub    *Hub
	Logger *zap.Logger
}

func NewNotificationService(repo NotificationRepository, hub *Hub, logger *zap.Logger) *NotificationServiceImpl {
	return &NotificationServiceImpl{Repo: repo, Hub: hub, Logger: logger}
}

func (s *NotificationServiceImpl) Notify(ctx context.Context, userID, title, message string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	return s.CreateNotification(ctx, oid, title, message, NotificationTypeInfo, "")
}

func (s *NotificationServiceImpl) CreateNotification(ctx context.Context, userID primitive.ObjectID, title, message string, notifType NotificationType, link string) error {
	n := &Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    notifType,
		Link:    link,
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return err
	}
	s.Hub.Push(userID.Hex(), n)
	return nil
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]Notification, int64, error) {
	return s.Repo.GetByUserID(ctx, userID, page, limit)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.Repo.GetUnreadCount(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification id: %w", err)
	}
	return s.Repo.MarkAsRead(ctx, oid, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.Repo.MarkAllAsRead(ctx, userID)
}

// CaseTransitioned implements casefile.TransitionHook. New assignees get a
// task notification; the creator hears about terminal transitions.
func (s *NotificationServiceImpl) CaseTransitioned(ctx context.Context, c *casefile.Case, oldStatus string, created []workflow.TaskInstance) {
	link := "/api/cases/" + c.ID.Hex()

	for _, inst := range created {
		if !inst.Active || inst.AssigneeID.IsZero() {
			continue
		}
		err := s.CreateNotification(ctx, inst.AssigneeID,
			"New task assigned",
			fmt.Sprintf("A case is waiting for your action in step %q.", c.Status),
			NotificationTypeTask, link)
		if err != nil {
			s.Logger.Error("failed to notify assignee",
				zap.String("case_id", c.ID.Hex()),
				zap.String("assignee_id", inst.AssigneeID.Hex()),
				zap.Error(err))
		}
	}

	if !c.Terminal() || c.Status == oldStatus {
		return
	}
	creator, err := primitive.ObjectIDFromHex(c.CreatedBy)
	if err != nil {
		return
	}
	err = s.CreateNotification(ctx, creator,
		fmt.Sprintf("Case %s", c.Status),
		fmt.Sprintf("Your case moved from %q to %q.", oldStatus, c.Status),
		NotificationTypeInfo, link)
	if err != nil {
		s.Logger.Error("failed to notify case creator",
			zap.String("case_id", c.ID.Hex()),
			zap.Error(err))
	}
}
