package role

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RoleService interface {
	CreateRole(ctx context.Context, role *Role) error
	GetRole(ctx context.Context, id string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, id string, role *Role) error
	DeleteRole(ctx context.Context, id string) error

	// HasMenuPermission satisfies the permission middleware.
	HasMenuPermission(ctx context.Context, roleIDs []string, resource string, action string) (bool, error)

	// CanCreateForm reports whether any of the user's roles still grants
	// creating cases of the given form. The resolver uses it as the
	// revocation safety net on case-owner assignments.
	CanCreateForm(ctx context.Context, roleIDs []primitive.ObjectID, formID primitive.ObjectID) (bool, error)
}

type RoleServiceImpl struct {
	Repo RoleRepository
}

func NewRoleService(repo RoleRepository) RoleService {
	return &RoleServiceImpl{Repo: repo}
}

func (s *RoleServiceImpl) CreateRole(ctx context.Context, role *Role) error {
	if role.Name == "" {
		return errors.New("role name is required")
	}
	if role.CaseOwner {
		existing, err := s.Repo.FindCaseOwnerRole(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.New("a case owner role already exists")
		}
	}
	role.ID = primitive.NewObjectID()
	role.CreatedAt = time.Now()
	role.UpdatedAt = time.Now()
	return s.Repo.Create(ctx, role)
}

func (s *RoleServiceImpl) GetRole(ctx context.Context, id string) (*Role, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, oid)
}

func (s *RoleServiceImpl) ListRoles(ctx context.Context) ([]Role, error) {
	return s.Repo.List(ctx)
}

func (s *RoleServiceImpl) UpdateRole(ctx context.Context, id string, role *Role) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	role.UpdatedAt = time.Now()
	return s.Repo.Update(ctx, oid, role)
}

func (s *RoleServiceImpl) DeleteRole(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	return s.Repo.Delete(ctx, oid)
}

func (s *RoleServiceImpl) HasMenuPermission(ctx context.Context, roleIDs []string, resource string, action string) (bool, error) {
	oids := make([]primitive.ObjectID, 0, len(roleIDs))
	for _, id := range roleIDs {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return false, nil
	}

	roles, err := s.Repo.FindByIDs(ctx, oids)
	if err != nil {
		return false, err
	}

	for _, r := range roles {
		for _, grant := range r.Menus {
			if grant.Resource == resource && slices.Contains(grant.Actions, action) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *RoleServiceImpl) CanCreateForm(ctx context.Context, roleIDs []primitive.ObjectID, formID primitive.ObjectID) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}
	roles, err := s.Repo.FindByIDs(ctx, roleIDs)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if slices.Contains(r.FormIDs, formID) {
			return true, nil
		}
	}
	return false, nil
}
