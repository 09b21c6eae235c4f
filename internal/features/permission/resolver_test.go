package permission

import (
	"context"
	"errors"
	"reflect"
	"testing"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/features/org"
	"go-caseflow/internal/features/role"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakePermFinder struct {
	lastFilter bson.M
	results    []Permission
	err        error
}

func (f *fakePermFinder) Find(_ context.Context, filter bson.M) ([]Permission, error) {
	f.lastFilter = filter
	return f.results, f.err
}

type fakeOrgFinder struct {
	app        *org.Application
	department *org.Department
}

func (f *fakeOrgFinder) FindApplicationByID(_ context.Context, _ primitive.ObjectID) (*org.Application, error) {
	return f.app, nil
}

func (f *fakeOrgFinder) FindDepartmentByID(_ context.Context, _ primitive.ObjectID) (*org.Department, error) {
	return f.department, nil
}

type fakeUserFinder struct {
	user *common_models.User
}

func (f *fakeUserFinder) FindByID(_ context.Context, _ string) (*common_models.User, error) {
	return f.user, nil
}

type fakeAccess struct {
	allowed bool
}

func (f *fakeAccess) CanCreateForm(_ context.Context, _ []primitive.ObjectID, _ primitive.ObjectID) (bool, error) {
	return f.allowed, nil
}

func newTestScope() CaseScope {
	return CaseScope{
		CaseID:        primitive.NewObjectID(),
		FormID:        primitive.NewObjectID(),
		ApplicationID: primitive.NewObjectID(),
		CreatorID:     primitive.NewObjectID().Hex(),
		TeamID:        primitive.NewObjectID(),
		DepartmentID:  primitive.NewObjectID(),
	}
}

func TestResolveScopeFilters(t *testing.T) {
	scope := newTestScope()
	companyID := primitive.NewObjectID()
	roleID := primitive.NewObjectID()

	tests := []struct {
		name        string
		scopeKind   role.ScopeKind
		appScope    org.ControlScope
		wantFilter  bson.M
	}{
		{
			name:      "team scoped on data controlled app",
			scopeKind: role.ScopeTeam,
			appScope:  org.ControlScopeData,
			wantFilter: bson.M{
				"role_id":        roleID,
				"application_id": scope.ApplicationID,
				"team_id":        scope.TeamID,
			},
		},
		{
			name:      "team scoped on app wide app falls through to unscoped",
			scopeKind: role.ScopeTeam,
			appScope:  org.ControlScopeApp,
			wantFilter: bson.M{
				"role_id":        roleID,
				"application_id": scope.ApplicationID,
				"team_id":        primitive.NilObjectID,
				"department_id":  primitive.NilObjectID,
				"company_id":     primitive.NilObjectID,
			},
		},
		{
			name:      "department scoped",
			scopeKind: role.ScopeDepartmentManager,
			appScope:  org.ControlScopeData,
			wantFilter: bson.M{
				"role_id":        roleID,
				"application_id": scope.ApplicationID,
				"team_id":        primitive.NilObjectID,
				"department_id":  scope.DepartmentID,
			},
		},
		{
			name:      "company scoped resolves department's company",
			scopeKind: role.ScopeCompany,
			appScope:  org.ControlScopeData,
			wantFilter: bson.M{
				"role_id":        roleID,
				"application_id": scope.ApplicationID,
				"team_id":        primitive.NilObjectID,
				"department_id":  primitive.NilObjectID,
				"company_id":     companyID,
			},
		},
		{
			name:      "app scoped",
			scopeKind: role.ScopeApp,
			appScope:  org.ControlScopeData,
			wantFilter: bson.M{
				"role_id":        roleID,
				"application_id": scope.ApplicationID,
				"team_id":        primitive.NilObjectID,
				"department_id":  primitive.NilObjectID,
				"company_id":     primitive.NilObjectID,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms := &fakePermFinder{results: []Permission{{ID: primitive.NewObjectID()}}}
			orgs := &fakeOrgFinder{
				app:        &org.Application{ID: scope.ApplicationID, ControlScope: tt.appScope},
				department: &org.Department{ID: scope.DepartmentID, CompanyID: companyID},
			}
			resolver := NewResolver(perms, orgs, &fakeUserFinder{}, &fakeAccess{})

			r := &role.Role{ID: roleID, Name: "reviewers", Scope: tt.scopeKind}
			got, err := resolver.ResolveAssignees(context.Background(), r, scope)
			if err != nil {
				t.Fatalf("ResolveAssignees() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("ResolveAssignees() returned %d records, want 1", len(got))
			}
			if !reflect.DeepEqual(perms.lastFilter, tt.wantFilter) {
				t.Errorf("filter = %v, want %v", perms.lastFilter, tt.wantFilter)
			}
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	scope := newTestScope()
	want := []Permission{{ID: primitive.NewObjectID()}}
	perms := &fakePermFinder{results: want}
	orgs := &fakeOrgFinder{app: &org.Application{ControlScope: org.ControlScopeData}}
	resolver := NewResolver(perms, orgs, &fakeUserFinder{}, &fakeAccess{})

	r := &role.Role{ID: primitive.NewObjectID(), Scope: role.ScopeTeam}
	first, err := resolver.ResolveAssignees(context.Background(), r, scope)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := resolver.ResolveAssignees(context.Background(), r, scope)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolution not idempotent: %v vs %v", first, second)
	}
}

func TestResolveAmbiguousMatch(t *testing.T) {
	scope := newTestScope()
	perms := &fakePermFinder{results: []Permission{{}, {}}}
	orgs := &fakeOrgFinder{app: &org.Application{ControlScope: org.ControlScopeData}}
	resolver := NewResolver(perms, orgs, &fakeUserFinder{}, &fakeAccess{})

	r := &role.Role{ID: primitive.NewObjectID(), Name: "reviewers", Scope: role.ScopeTeam}
	_, err := resolver.ResolveAssignees(context.Background(), r, scope)
	if !errors.Is(err, ErrAmbiguousAssignment) {
		t.Errorf("error = %v, want ErrAmbiguousAssignment", err)
	}
}

func TestResolveCaseOwner(t *testing.T) {
	scope := newTestScope()
	creatorID := primitive.NewObjectID()
	user := &common_models.User{ID: creatorID, Roles: []primitive.ObjectID{primitive.NewObjectID()}}

	ownerRole := &role.Role{ID: primitive.NewObjectID(), Name: "case-owner", CaseOwner: true}

	t.Run("creator still holds form grant", func(t *testing.T) {
		resolver := NewResolver(&fakePermFinder{}, &fakeOrgFinder{}, &fakeUserFinder{user: user}, &fakeAccess{allowed: true})
		got, err := resolver.ResolveAssignees(context.Background(), ownerRole, scope)
		if err != nil {
			t.Fatalf("ResolveAssignees() error = %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d assignments, want 1", len(got))
		}
		if got[0].ContactUserID != creatorID {
			t.Errorf("ContactUserID = %v, want creator %v", got[0].ContactUserID, creatorID)
		}
		if got[0].RoleID != ownerRole.ID {
			t.Errorf("RoleID = %v, want %v", got[0].RoleID, ownerRole.ID)
		}
	})

	t.Run("access revoked yields empty", func(t *testing.T) {
		resolver := NewResolver(&fakePermFinder{}, &fakeOrgFinder{}, &fakeUserFinder{user: user}, &fakeAccess{allowed: false})
		got, err := resolver.ResolveAssignees(context.Background(), ownerRole, scope)
		if err != nil {
			t.Fatalf("ResolveAssignees() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %d assignments, want 0", len(got))
		}
	})
}
