package connectors

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReader reads dictionary rows from a collection of the application's
// own Mongo database. It shares the application client and never closes it.
type MongoReader struct {
	db *mongo.Database
}

func NewMongoReader(db *mongo.Database) *MongoReader {
	return &MongoReader{db: db}
}

func (r *MongoReader) List(ctx context.Context, q ListQuery) ([]map[string]interface{}, error) {
	filter := bson.M{}
	for field, value := range q.Filters {
		filter[field] = normalizeKey(field, value)
	}

	opts := options.Find()
	if len(q.Fields) > 0 {
		projection := bson.M{}
		for _, f := range q.Fields {
			projection[f] = 1
		}
		opts.SetProjection(projection)
	}
	if len(q.Sort) > 0 {
		sort := bson.D{}
		for field, direction := range q.Sort {
			sort = append(sort, bson.E{Key: field, Value: direction})
		}
		opts.SetSort(sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	if q.Offset > 0 {
		opts.SetSkip(q.Offset)
	}

	cursor, err := r.db.Collection(q.Table).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", q.Table, err)
	}
	defer cursor.Close(ctx)

	result := []map[string]interface{}{}
	for cursor.Next(ctx) {
		row := map[string]interface{}{}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, cursor.Err()
}

func (r *MongoReader) Get(ctx context.Context, table, keyColumn string, key interface{}) (map[string]interface{}, error) {
	row := map[string]interface{}{}
	err := r.db.Collection(table).FindOne(ctx, bson.M{keyColumn: normalizeKey(keyColumn, key)}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s=%v in %s", ErrNotFound, keyColumn, key, table)
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Schema samples one document; Mongo collections carry no declared schema.
func (r *MongoReader) Schema(ctx context.Context, table string) (*TableSchema, error) {
	row := map[string]interface{}{}
	err := r.db.Collection(table).FindOne(ctx, bson.M{}).Decode(&row)
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, err
	}
	schema := &TableSchema{Table: table}
	for name, value := range row {
		schema.Columns = append(schema.Columns, Column{Name: name, Type: fmt.Sprintf("%T", value)})
	}
	return schema, nil
}

func (r *MongoReader) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

// Close is a no-op; the underlying client belongs to the application.
func (r *MongoReader) Close() error { return nil }

func (r *MongoReader) Kind() string { return "mongo" }

// normalizeKey upgrades hex strings filtered on _id to ObjectIDs so keys
// taken from URL paths match stored documents.
func normalizeKey(field string, value interface{}) interface{} {
	if field != "_id" {
		return value
	}
	if s, ok := value.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return value
}
