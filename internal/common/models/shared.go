package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionLogin      AuditAction = "LOGIN"
	AuditActionSubmit     AuditAction = "SUBMIT"
	AuditActionDecision   AuditAction = "DECISION"
	AuditActionCancel     AuditAction = "CANCEL"
	AuditActionAutomation AuditAction = "AUTOMATION"
	AuditActionEscalation AuditAction = "ESCALATION"
)

// Change is a single field-level delta captured on every audited save.
type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type ChangeType string

const (
	ChangeTypeCreated ChangeType = "Created"
	ChangeTypeDeleted ChangeType = "Deleted"
	ChangeTypeChanged ChangeType = "Changed"
)

type AuditLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action     AuditAction        `bson:"action" json:"action"`
	ChangeType ChangeType         `bson:"change_type" json:"change_type"`
	Entity     string             `bson:"entity" json:"entity"`       // collection name (cases, case_data, task_instances, ...)
	RecordID   string             `bson:"record_id" json:"record_id"` // the record being modified
	ActorID    string             `bson:"actor_id" json:"actor_id"`
	ActorName  string             `bson:"-" json:"actor_name,omitempty"`
	Changes    map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// Field Definitions for dynamic form sections
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeNumber      FieldType = "number"
	FieldTypeDate        FieldType = "date"
	FieldTypeBoolean     FieldType = "boolean"
	FieldTypeEmail       FieldType = "email"
	FieldTypePhone       FieldType = "phone"
	FieldTypeFile        FieldType = "file"
	FieldTypeURL         FieldType = "url"
	FieldTypeTextArea    FieldType = "textarea"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiSelect FieldType = "multiselect"
	FieldTypeCurrency    FieldType = "currency"
)

type SelectOption struct {
	Label string `json:"label" bson:"label"`
	Value string `json:"value" bson:"value"`
}

type FormField struct {
	Name     string         `json:"name" bson:"name"`
	Label    string         `json:"label" bson:"label"`
	Type     FieldType      `json:"type" bson:"type"`
	Required bool           `json:"required" bson:"required"`
	Options  []SelectOption `json:"options,omitempty" bson:"options,omitempty"`
}

type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username  string               `bson:"username" json:"username"`
	Password  string               `bson:"password" json:"-"`
	Email     string               `bson:"email" json:"email"`
	FirstName string               `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName  string               `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Status    string               `bson:"status" json:"status"` // active, inactive, suspended
	Roles     []primitive.ObjectID `bson:"roles" json:"roles"`
	TeamID    primitive.ObjectID   `bson:"team_id,omitempty" json:"team_id,omitempty"`
	LastLogin *time.Time           `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	IpAddress    string    `bson:"ip_address" json:"ip_address"`
	CaseID       string    `bson:"case_id,omitempty" json:"case_id,omitempty"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
