package connectors

import "context"

// ListQuery describes a read against a dictionary source. Fields limits
// the projection, Filters are exact-match equality conditions.
type ListQuery struct {
	Table   string
	Fields  []string
	Filters map[string]interface{}
	Sort    map[string]int // 1 ascending, -1 descending
	Limit   int64
	Offset  int64
}

// Column describes one column of a source table.
type Column struct {
	Name     string
	Type     string
	Required bool
}

// TableSchema is the introspected shape of a source table.
type TableSchema struct {
	Table   string
	Columns []Column
}

// Reader is a read-only view over a dictionary data source. Implementations
// exist for the application's own Mongo database and for external SQL
// databases.
type Reader interface {
	// List returns rows matching the query.
	List(ctx context.Context, q ListQuery) ([]map[string]interface{}, error)

	// Get returns the single row whose key column equals key, or an error
	// when no such row exists.
	Get(ctx context.Context, table, keyColumn string, key interface{}) (map[string]interface{}, error)

	// Schema introspects the table's columns.
	Schema(ctx context.Context, table string) (*TableSchema, error)

	// Ping verifies the underlying connection is alive.
	Ping(ctx context.Context) error

	// Close releases the connection. Closing a shared reader is a no-op.
	Close() error

	// Kind reports the source type, e.g. "mongo", "postgresql", "mysql".
	Kind() string
}
