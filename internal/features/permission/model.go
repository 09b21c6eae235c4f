package permission

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Permission is a scoped grant tying a role to an application plus an
// optional team/department/company data scope. At most one record may
// exist per (role, application, team, department, company) tuple; the
// resolver depends on that uniqueness.
type Permission struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoleID        primitive.ObjectID `bson:"role_id" json:"role_id"`
	ApplicationID primitive.ObjectID `bson:"application_id" json:"application_id"`
	CompanyID     primitive.ObjectID `bson:"company_id" json:"company_id"`
	DepartmentID  primitive.ObjectID `bson:"department_id" json:"department_id"`
	TeamID        primitive.ObjectID `bson:"team_id" json:"team_id"`
	// ContactUserID is the assignee group's designated first-available
	// support contact; pre-seeded on task instances routed to this record.
	ContactUserID primitive.ObjectID `bson:"contact_user_id" json:"contact_user_id"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// CaseScope carries the slice of a case the resolver needs: who created
// it, which form it instantiates, and where it sits in the org tree.
type CaseScope struct {
	CaseID        primitive.ObjectID
	FormID        primitive.ObjectID
	ApplicationID primitive.ObjectID
	CreatorID     string
	TeamID        primitive.ObjectID
	DepartmentID  primitive.ObjectID
}
