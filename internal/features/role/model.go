package role

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScopeKind classifies a role for assignment resolution: it decides which
// slice of the permission table the resolver filters to when a task is
// routed to this role.
type ScopeKind string

const (
	ScopeTeam              ScopeKind = "team"
	ScopeTeamManager       ScopeKind = "team_manager"
	ScopeDepartment        ScopeKind = "department"
	ScopeDepartmentManager ScopeKind = "department_manager"
	ScopeCompany           ScopeKind = "company"
	ScopeCompanyManager    ScopeKind = "company_manager"
	ScopeApp               ScopeKind = "app"
)

// TeamScoped reports whether the kind narrows to the case's team.
func (k ScopeKind) TeamScoped() bool {
	return k == ScopeTeam || k == ScopeTeamManager
}

// DepartmentScoped reports whether the kind narrows to the case's department.
func (k ScopeKind) DepartmentScoped() bool {
	return k == ScopeDepartment || k == ScopeDepartmentManager
}

// CompanyScoped reports whether the kind narrows to the department's company.
func (k ScopeKind) CompanyScoped() bool {
	return k == ScopeCompany || k == ScopeCompanyManager
}

// MenuGrant is a role-derived permission over an admin/menu resource.
type MenuGrant struct {
	Resource string   `bson:"resource" json:"resource"`
	Actions  []string `bson:"actions" json:"actions"`
}

// Role is a named category of permission records sharing assignment
// semantics. The CaseOwner flag marks the designated "case owner" role:
// tasks routed to it are assigned back to the case's creator.
type Role struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Scope       ScopeKind            `bson:"scope" json:"scope"`
	CaseOwner   bool                 `bson:"case_owner" json:"case_owner"`
	Menus       []MenuGrant          `bson:"menus" json:"menus"`
	FormIDs     []primitive.ObjectID `bson:"form_ids" json:"form_ids"` // forms this role may open cases for
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}
