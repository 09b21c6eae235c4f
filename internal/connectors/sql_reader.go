package connectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned by Reader.Get when no row matches the key.
var ErrNotFound = errors.New("row not found")

// SQLConfig holds the connection parameters of an external SQL source.
type SQLConfig struct {
	Host     string `json:"host" bson:"host"`
	Port     int    `json:"port" bson:"port"`
	Database string `json:"database" bson:"database"`
	Username string `json:"username" bson:"username"`
	Password string `json:"password" bson:"password"`
}

// SQLReader reads dictionary rows from an external PostgreSQL or MySQL
// database through database/sql.
type SQLReader struct {
	kind string // "postgresql" or "mysql"
	db   *sql.DB
}

// OpenSQLReader opens and pings a connection to an external SQL database.
func OpenSQLReader(ctx context.Context, kind string, cfg SQLConfig) (*SQLReader, error) {
	if cfg.Host == "" || cfg.Database == "" || cfg.Username == "" {
		return nil, errors.New("missing required connection parameters")
	}

	driver := kind
	var dsn string
	switch kind {
	case "postgresql":
		driver = "postgres"
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, port, cfg.Username, cfg.Password, cfg.Database)
	case "mysql":
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.Username, cfg.Password, cfg.Host, port, cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported sql source type %q", kind)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", kind, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", kind, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &SQLReader{kind: kind, db: db}, nil
}

func (r *SQLReader) List(ctx context.Context, q ListQuery) ([]map[string]interface{}, error) {
	query, args := r.buildQuery(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Table, err)
	}
	defer rows.Close()
	return rowsToMaps(rows)
}

func (r *SQLReader) Get(ctx context.Context, table, keyColumn string, key interface{}) (map[string]interface{}, error) {
	result, err := r.List(ctx, ListQuery{
		Table:   table,
		Filters: map[string]interface{}{keyColumn: key},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s=%v in %s", ErrNotFound, keyColumn, key, table)
	}
	return result[0], nil
}

func (r *SQLReader) Schema(ctx context.Context, table string) (*TableSchema, error) {
	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ` + r.placeholder(1) + `
		ORDER BY ordinal_position`

	rows, err := r.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect %s: %w", table, err)
	}
	defer rows.Close()

	schema := &TableSchema{Table: table}
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, err
		}
		schema.Columns = append(schema.Columns, Column{
			Name:     name,
			Type:     dataType,
			Required: nullable == "NO",
		})
	}
	return schema, rows.Err()
}

func (r *SQLReader) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *SQLReader) Close() error { return r.db.Close() }

func (r *SQLReader) Kind() string { return r.kind }

func (r *SQLReader) buildQuery(q ListQuery) (string, []interface{}) {
	var b strings.Builder
	var args []interface{}

	b.WriteString("SELECT ")
	if len(q.Fields) > 0 {
		b.WriteString(strings.Join(q.Fields, ", "))
	} else {
		b.WriteString("*")
	}
	b.WriteString(" FROM ")
	b.WriteString(q.Table)

	if len(q.Filters) > 0 {
		b.WriteString(" WHERE ")
		var conditions []string
		for field, value := range q.Filters {
			conditions = append(conditions, fmt.Sprintf("%s = %s", field, r.placeholder(len(args)+1)))
			args = append(args, value)
		}
		b.WriteString(strings.Join(conditions, " AND "))
	}

	if len(q.Sort) > 0 {
		b.WriteString(" ORDER BY ")
		var clauses []string
		for field, direction := range q.Sort {
			dir := "ASC"
			if direction == -1 {
				dir = "DESC"
			}
			clauses = append(clauses, field+" "+dir)
		}
		b.WriteString(strings.Join(clauses, ", "))
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}
	return b.String(), args
}

func (r *SQLReader) placeholder(index int) string {
	if r.kind == "postgresql" {
		return fmt.Sprintf("$%d", index)
	}
	return "?"
}

func rowsToMaps(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
