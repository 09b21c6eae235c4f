package workflow

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskType string

const (
	TaskManual TaskType = "Manual"
	TaskAuto   TaskType = "Auto"
	TaskFlow   TaskType = "Flow"
)

// Workflow is the admin-configured task graph bound to one form. It is
// treated as immutable while cases are in flight; there is no live
// migration of a running case onto a changed graph.
type Workflow struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FormID      primitive.ObjectID `json:"form_id" bson:"form_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Active      bool               `json:"active" bson:"active"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Task is one node of the graph. Index 0 is the entry task. Assignment is
// either a role reference resolved per case, or a fixed permission list.
type Task struct {
	ID            primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	WorkflowID    primitive.ObjectID   `json:"workflow_id" bson:"workflow_id"`
	Name          string               `json:"name" bson:"name"`
	Description   string               `json:"description,omitempty" bson:"description,omitempty"`
	Type          TaskType             `json:"type" bson:"type"`
	Index         int                  `json:"index" bson:"index"`
	RoleID        primitive.ObjectID   `json:"role_id" bson:"role_id"`
	PermissionIDs []primitive.ObjectID `json:"permission_ids,omitempty" bson:"permission_ids,omitempty"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" bson:"updated_at"`
}

// DecisionPoint is one outcome of a task. On auto tasks the condition
// decides; on flow tasks a human picks one. A zero NextTaskID means the
// workflow ends here. Priority 1 is highest; lowest number wins across
// conflicting instance decisions.
type DecisionPoint struct {
	ID         primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	TaskID     primitive.ObjectID     `json:"task_id" bson:"task_id"`
	Label      string                 `json:"label" bson:"label"`
	NextTaskID primitive.ObjectID     `json:"next_task_id" bson:"next_task_id"`
	Priority   int                    `json:"priority" bson:"priority"`
	Condition  map[string]interface{} `json:"condition,omitempty" bson:"condition,omitempty"`
	CreatedAt  time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at" bson:"updated_at"`
}

// WorkflowInstance is created once at a case's first submission and reused
// for every subsequent step; it goes inactive when the case terminates.
type WorkflowInstance struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	WorkflowID primitive.ObjectID `json:"workflow_id" bson:"workflow_id"`
	Active     bool               `json:"active" bson:"active"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

// TaskInstance records one (task, assignee) pairing. Never deleted; the
// full set forms the audit trail of who decided what.
type TaskInstance struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	WorkflowInstanceID primitive.ObjectID `json:"workflow_instance_id" bson:"workflow_instance_id"`
	TaskID             primitive.ObjectID `json:"task_id" bson:"task_id"`
	PermissionID       primitive.ObjectID `json:"permission_id" bson:"permission_id"`
	AssigneeID         primitive.ObjectID `json:"assignee_id" bson:"assignee_id"`
	DecisionPointID    primitive.ObjectID `json:"decision_point_id" bson:"decision_point_id"`
	Comment            string             `json:"comment,omitempty" bson:"comment,omitempty"`
	Active             bool               `json:"active" bson:"active"`
	Files              []string           `json:"files,omitempty" bson:"files,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}
