package permission

import (
	"context"
	"errors"
	"fmt"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/features/org"
	"go-caseflow/internal/features/role"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrAmbiguousAssignment is returned when scope filtering matches more
// than one permission record. The permission table carries a unique
// compound index, so a 2+ match means the configuration has been
// corrupted; resolution refuses to silently pick one.
var ErrAmbiguousAssignment = errors.New("ambiguous assignment: multiple permission records match")

// UserFinder is the slice of the user repository the resolver needs.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*common_models.User, error)
}

// FormAccessChecker is satisfied by the role service.
type FormAccessChecker interface {
	CanCreateForm(ctx context.Context, roleIDs []primitive.ObjectID, formID primitive.ObjectID) (bool, error)
}

// PermissionFinder is the slice of the permission repository the
// resolver needs.
type PermissionFinder interface {
	Find(ctx context.Context, filter bson.M) ([]Permission, error)
}

// OrgFinder is the slice of the org repository the resolver needs.
type OrgFinder interface {
	FindApplicationByID(ctx context.Context, id primitive.ObjectID) (*org.Application, error)
	FindDepartmentByID(ctx context.Context, id primitive.ObjectID) (*org.Department, error)
}

// Resolver maps (application, role, case) to the concrete permission
// records a task instance can be assigned to.
type Resolver interface {
	ResolveAssignees(ctx context.Context, r *role.Role, scope CaseScope) ([]Permission, error)
}

type ResolverImpl struct {
	Perms   PermissionFinder
	Orgs    OrgFinder
	Users   UserFinder
	Access  FormAccessChecker
	filters map[role.ScopeKind]filterBuilder
}

// filterBuilder turns a case scope into the permission-table filter for
// one scope classification.
type filterBuilder func(ctx context.Context, r *ResolverImpl, roleID primitive.ObjectID, scope CaseScope) (bson.M, error)

func NewResolver(perms PermissionFinder, orgs OrgFinder, users UserFinder, access FormAccessChecker) Resolver {
	res := &ResolverImpl{
		Perms:  perms,
		Orgs:   orgs,
		Users:  users,
		Access: access,
	}
	res.filters = map[role.ScopeKind]filterBuilder{
		role.ScopeTeam:              teamFilter,
		role.ScopeTeamManager:       teamFilter,
		role.ScopeDepartment:        departmentFilter,
		role.ScopeDepartmentManager: departmentFilter,
		role.ScopeCompany:           companyFilter,
		role.ScopeCompanyManager:    companyFilter,
		role.ScopeApp:               unscopedFilter,
	}
	return res
}

// ResolveAssignees is deterministic and idempotent for a fixed
// (role, application, case) input and an unchanged permission table.
func (res *ResolverImpl) ResolveAssignees(ctx context.Context, r *role.Role, scope CaseScope) ([]Permission, error) {
	if r == nil {
		return nil, fmt.Errorf("resolve assignees: nil role")
	}

	// Case-owner role: the task goes back to the creator, but only while
	// the creator still holds a role-derived grant to create this form.
	// Access may have been revoked since the case was opened.
	if r.CaseOwner {
		return res.resolveCaseOwner(ctx, r, scope)
	}

	filter, err := res.buildFilter(ctx, r, scope)
	if err != nil {
		return nil, err
	}

	matches, err := res.Perms.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(matches) > 1 {
		return nil, fmt.Errorf("%w: role %q matched %d records", ErrAmbiguousAssignment, r.Name, len(matches))
	}
	return matches, nil
}

func (res *ResolverImpl) resolveCaseOwner(ctx context.Context, r *role.Role, scope CaseScope) ([]Permission, error) {
	creator, err := res.Users.FindByID(ctx, scope.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("resolve case owner: %w", err)
	}

	allowed, err := res.Access.CanCreateForm(ctx, creator.Roles, scope.FormID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, nil
	}

	// Synthetic assignment: not a stored permission record, just the
	// creator wrapped in the owner role.
	return []Permission{{
		RoleID:        r.ID,
		ApplicationID: scope.ApplicationID,
		ContactUserID: creator.ID,
	}}, nil
}

func (res *ResolverImpl) buildFilter(ctx context.Context, r *role.Role, scope CaseScope) (bson.M, error) {
	app, err := res.Orgs.FindApplicationByID(ctx, scope.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("resolve assignees: load application: %w", err)
	}

	// Team narrowing only applies when the application partitions its
	// data; an app-wide application always falls through to coarser
	// scopes.
	kind := r.Scope
	if kind.TeamScoped() && app.ControlScope == org.ControlScopeApp {
		kind = role.ScopeApp
	}

	build, ok := res.filters[kind]
	if !ok {
		build = unscopedFilter
	}
	return build(ctx, res, r.ID, scope)
}

func teamFilter(_ context.Context, _ *ResolverImpl, roleID primitive.ObjectID, scope CaseScope) (bson.M, error) {
	return bson.M{
		"role_id":        roleID,
		"application_id": scope.ApplicationID,
		"team_id":        scope.TeamID,
	}, nil
}

func departmentFilter(_ context.Context, _ *ResolverImpl, roleID primitive.ObjectID, scope CaseScope) (bson.M, error) {
	return bson.M{
		"role_id":        roleID,
		"application_id": scope.ApplicationID,
		"team_id":        primitive.NilObjectID,
		"department_id":  scope.DepartmentID,
	}, nil
}

func companyFilter(ctx context.Context, res *ResolverImpl, roleID primitive.ObjectID, scope CaseScope) (bson.M, error) {
	department, err := res.Orgs.FindDepartmentByID(ctx, scope.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("resolve assignees: load department: %w", err)
	}
	return bson.M{
		"role_id":        roleID,
		"application_id": scope.ApplicationID,
		"team_id":        primitive.NilObjectID,
		"department_id":  primitive.NilObjectID,
		"company_id":     department.CompanyID,
	}, nil
}

func unscopedFilter(_ context.Context, _ *ResolverImpl, roleID primitive.ObjectID, scope CaseScope) (bson.M, error) {
	return bson.M{
		"role_id":        roleID,
		"application_id": scope.ApplicationID,
		"team_id":        primitive.NilObjectID,
		"department_id":  primitive.NilObjectID,
		"company_id":     primitive.NilObjectID,
	}, nil
}
