package dictionary

import (
	"time"

	"go-caseflow/internal/connectors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Source types an entry can point at.
const (
	SourceMongo      = "mongo"
	SourcePostgreSQL = "postgresql"
	SourceMySQL      = "mysql"
)

// FieldConfig declares one column of a dictionary's list or detail view.
type FieldConfig struct {
	Name  string `json:"name" bson:"name"`
	Label string `json:"label" bson:"label"`
	Type  string `json:"type" bson:"type"`
}

// Entry maps a dictionary name to a backing table: either a collection of
// the application database or a table in an external SQL database. The
// list and detail field configs drive the generic record endpoints.
type Entry struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name         string               `json:"name" bson:"name"`
	Label        string               `json:"label" bson:"label"`
	SourceType   string               `json:"source_type" bson:"source_type"`
	Table        string               `json:"table" bson:"table"`
	KeyField     string               `json:"key_field" bson:"key_field"`
	ListFields   []FieldConfig        `json:"list_fields" bson:"list_fields"`
	DetailFields []FieldConfig        `json:"detail_fields" bson:"detail_fields"`
	Connection   connectors.SQLConfig `json:"connection,omitempty" bson:"connection,omitempty"`
	Active       bool                 `json:"active" bson:"active"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" bson:"updated_at"`
}

// External reports whether the entry reads from an external SQL database.
func (e *Entry) External() bool {
	return e.SourceType == SourcePostgreSQL || e.SourceType == SourceMySQL
}
