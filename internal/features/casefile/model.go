package casefile

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusDraft     = "Draft"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// Case is the business record routed through a workflow. Status is a
// denormalized cache of where the case sits: "Draft", a live task's name,
// "Completed" or "Cancelled". Status and WorkflowInstanceID are written
// only by the lifecycle save path in this package.
type Case struct {
	ID                 primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	FormID             primitive.ObjectID   `json:"form_id" bson:"form_id"`
	Submitted          bool                 `json:"submitted" bson:"submitted"`
	TeamID             primitive.ObjectID   `json:"team_id" bson:"team_id"`
	DepartmentID       primitive.ObjectID   `json:"department_id" bson:"department_id"`
	WorkflowInstanceID primitive.ObjectID   `json:"workflow_instance_id" bson:"workflow_instance_id"`
	// TaskInstanceIDs tracks the current step's bookkeeping; historical
	// instances stay in the task_instances collection.
	TaskInstanceIDs []primitive.ObjectID `json:"task_instance_ids" bson:"task_instance_ids"`
	Status          string               `json:"status" bson:"status"`
	// Revision guards the save path with a compare-and-swap so two
	// concurrent saves can never double-advance the workflow.
	Revision  int64     `json:"revision" bson:"revision"`
	CreatedBy string    `json:"created_by" bson:"created_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func (c *Case) Terminal() bool {
	return c.Status == StatusCompleted || c.Status == StatusCancelled
}

// CaseData holds one published section's payload. Created once at case
// creation; values update on edit but the row is never restructured.
type CaseData struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	CaseID    primitive.ObjectID     `json:"case_id" bson:"case_id"`
	SectionID primitive.ObjectID     `json:"section_id" bson:"section_id"`
	Data      map[string]interface{} `json:"data" bson:"data"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" bson:"updated_at"`
}
