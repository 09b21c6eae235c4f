package automation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trigger names the lifecycle event a rule listens to.
type Trigger string

const (
	TriggerStatusChanged Trigger = "status_changed"
	TriggerCompleted     Trigger = "completed"
	TriggerCancelled     Trigger = "cancelled"
	TriggerTaskCreated   Trigger = "task_created"
)

type ActionType string

const (
	ActionWebhook   ActionType = "webhook"
	ActionRunScript ActionType = "run_script"
	ActionNotify    ActionType = "notify"
)

type RuleAction struct {
	Type   ActionType             `json:"type" bson:"type"`
	Config map[string]interface{} `json:"config" bson:"config"`
}

// Rule fires its actions after a case of the given form transitions.
// Condition uses the same document shape as decision point conditions and
// runs against the case's flattened field snapshot; a nil condition always
// matches.
type Rule struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Name      string                 `json:"name" bson:"name"`
	FormID    primitive.ObjectID     `json:"form_id" bson:"form_id"`
	Trigger   Trigger                `json:"trigger" bson:"trigger"`
	Status    string                 `json:"status,omitempty" bson:"status,omitempty"`
	Condition map[string]interface{} `json:"condition,omitempty" bson:"condition,omitempty"`
	Actions   []RuleAction           `json:"actions" bson:"actions"`
	Active    bool                   `json:"active" bson:"active"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" bson:"updated_at"`
}
