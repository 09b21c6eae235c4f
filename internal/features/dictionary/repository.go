package dictionary

import (
	"context"

	"go-caseflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EntryRepository interface {
	Create(ctx context.Context, e *Entry) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Entry, error)
	FindByName(ctx context.Context, name string) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Update(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type EntryRepositoryImpl struct {
	entries *mongo.Collection
}

func NewEntryRepository(mongodb *database.MongodbDB) EntryRepository {
	return &EntryRepositoryImpl{entries: mongodb.DB.Collection("dictionary_entries")}
}

func (r *EntryRepositoryImpl) Create(ctx context.Context, e *Entry) error {
	_, err := r.entries.InsertOne(ctx, e)
	return err
}

func (r *EntryRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Entry, error) {
	var e Entry
	if err := r.entries.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepositoryImpl) FindByName(ctx context.Context, name string) (*Entry, error) {
	var e Entry
	if err := r.entries.FindOne(ctx, bson.M{"name": name}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepositoryImpl) List(ctx context.Context) ([]Entry, error) {
	cursor, err := r.entries.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *EntryRepositoryImpl) Update(ctx context.Context, e *Entry) error {
	_, err := r.entries.ReplaceOne(ctx, bson.M{"_id": e.ID}, e)
	return err
}

func (r *EntryRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.entries.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *EntryRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.entries.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}
