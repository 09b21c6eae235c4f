package automation

import (
	"context"

	"go-caseflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RuleRepository interface {
	Create(ctx context.Context, r *Rule) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	ListActiveByFormID(ctx context.Context, formID primitive.ObjectID) ([]Rule, error)
	Update(ctx context.Context, r *Rule) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type RuleRepositoryImpl struct {
	rules *mongo.Collection
}

func NewRuleRepository(mongodb *database.MongodbDB) RuleRepository {
	return &RuleRepositoryImpl{rules: mongodb.DB.Collection("automation_rules")}
}

func (r *RuleRepositoryImpl) Create(ctx context.Context, rule *Rule) error {
	_, err := r.rules.InsertOne(ctx, rule)
	return err
}

func (r *RuleRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Rule, error) {
	var rule Rule
	if err := r.rules.FindOne(ctx, bson.M{"_id": id}).Decode(&rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *RuleRepositoryImpl) List(ctx context.Context) ([]Rule, error) {
	return r.find(ctx, bson.M{})
}

func (r *RuleRepositoryImpl) ListActiveByFormID(ctx context.Context, formID primitive.ObjectID) ([]Rule, error) {
	return r.find(ctx, bson.M{"form_id": formID, "active": true})
}

func (r *RuleRepositoryImpl) find(ctx context.Context, filter bson.M) ([]Rule, error) {
	cursor, err := r.rules.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rules []Rule
	if err := cursor.All(ctx, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *RuleRepositoryImpl) Update(ctx context.Context, rule *Rule) error {
	_, err := r.rules.ReplaceOne(ctx, bson.M{"_id": rule.ID}, rule)
	return err
}

func (r *RuleRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.rules.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *RuleRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.rules.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "form_id", Value: 1}, {Key: "active", Value: 1}}},
	})
	return err
}
