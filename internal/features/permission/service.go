package permission

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PermissionService interface {
	CreatePermission(ctx context.Context, permission *Permission) error
	GetPermission(ctx context.Context, id string) (*Permission, error)
	ListByRole(ctx context.Context, roleID string) ([]Permission, error)
	UpdatePermission(ctx context.Context, id string, permission *Permission) error
	DeletePermission(ctx context.Context, id string) error
}

type PermissionServiceImpl struct {
	Repo PermissionRepository
}

func NewPermissionService(repo PermissionRepository) PermissionService {
	return &PermissionServiceImpl{Repo: repo}
}

func (s *PermissionServiceImpl) CreatePermission(ctx context.Context, permission *Permission) error {
	if permission.RoleID.IsZero() || permission.ApplicationID.IsZero() {
		return errors.New("role_id and application_id are required")
	}
	permission.ID = primitive.NewObjectID()
	permission.CreatedAt = time.Now()
	permission.UpdatedAt = time.Now()
	return s.Repo.Create(ctx, permission)
}

func (s *PermissionServiceImpl) GetPermission(ctx context.Context, id string) (*Permission, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, oid)
}

func (s *PermissionServiceImpl) ListByRole(ctx context.Context, roleID string) ([]Permission, error) {
	oid, err := primitive.ObjectIDFromHex(roleID)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByRoleID(ctx, oid)
}

func (s *PermissionServiceImpl) UpdatePermission(ctx context.Context, id string, permission *Permission) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	permission.UpdatedAt = time.Now()
	return s.Repo.Update(ctx, oid, permission)
}

func (s *PermissionServiceImpl) DeletePermission(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	return s.Repo.Delete(ctx, oid)
}
