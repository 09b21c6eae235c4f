package form

import (
	"time"

	common_models "go-caseflow/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Form is the header record administrators create for each case type.
type Form struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Slug          string             `json:"slug" bson:"slug"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	ApplicationID primitive.ObjectID `json:"application_id" bson:"application_id"`
	Active        bool               `json:"active" bson:"active"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// FormSection groups fields. Only published sections produce case data rows
// and only their fields enter the workflow snapshot.
type FormSection struct {
	ID        primitive.ObjectID        `json:"id" bson:"_id,omitempty"`
	FormID    primitive.ObjectID        `json:"form_id" bson:"form_id"`
	Name      string                    `json:"name" bson:"name"`
	Index     int                       `json:"index" bson:"index"`
	Published bool                      `json:"published" bson:"published"`
	Fields    []common_models.FormField `json:"fields" bson:"fields"`
	CreatedAt time.Time                 `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at" bson:"updated_at"`
}
