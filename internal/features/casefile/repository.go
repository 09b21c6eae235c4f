package casefile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-caseflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrConflict signals a lost revision race: another save advanced the case
// between this request's read and write.
var ErrConflict = errors.New("case was modified concurrently")

type CaseRepository interface {
	Create(ctx context.Context, c *Case) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Case, error)
	List(ctx context.Context, filter bson.M, limit, offset int64) ([]Case, error)
	// UpdateCAS replaces the case only if its stored revision still equals
	// expected; ErrConflict otherwise.
	UpdateCAS(ctx context.Context, c *Case, expected int64) error

	CreateCaseData(ctx context.Context, cd *CaseData) error
	FindCaseData(ctx context.Context, caseID primitive.ObjectID) ([]CaseData, error)
	FindCaseDataBySection(ctx context.Context, caseID, sectionID primitive.ObjectID) (*CaseData, error)
	UpdateCaseData(ctx context.Context, cd *CaseData) error

	EnsureIndexes(ctx context.Context) error
}

type CaseRepositoryImpl struct {
	cases    *mongo.Collection
	caseData *mongo.Collection
}

func NewCaseRepository(mongodb *database.MongodbDB) CaseRepository {
	return &CaseRepositoryImpl{
		cases:    mongodb.DB.Collection("cases"),
		caseData: mongodb.DB.Collection("case_data"),
	}
}

func (r *CaseRepositoryImpl) Create(ctx context.Context, c *Case) error {
	_, err := r.cases.InsertOne(ctx, c)
	return err
}

func (r *CaseRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Case, error) {
	var c Case
	if err := r.cases.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CaseRepositoryImpl) List(ctx context.Context, filter bson.M, limit, offset int64) ([]Case, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.cases.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var cases []Case
	if err := cursor.All(ctx, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *CaseRepositoryImpl) UpdateCAS(ctx context.Context, c *Case, expected int64) error {
	c.UpdatedAt = time.Now()
	res, err := r.cases.ReplaceOne(ctx, bson.M{"_id": c.ID, "revision": expected}, c)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: case %s at revision %d", ErrConflict, c.ID.Hex(), expected)
	}
	return nil
}

func (r *CaseRepositoryImpl) CreateCaseData(ctx context.Context, cd *CaseData) error {
	_, err := r.caseData.InsertOne(ctx, cd)
	return err
}

func (r *CaseRepositoryImpl) FindCaseData(ctx context.Context, caseID primitive.ObjectID) ([]CaseData, error) {
	cursor, err := r.caseData.Find(ctx, bson.M{"case_id": caseID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []CaseData
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CaseRepositoryImpl) FindCaseDataBySection(ctx context.Context, caseID, sectionID primitive.ObjectID) (*CaseData, error) {
	var cd CaseData
	filter := bson.M{"case_id": caseID, "section_id": sectionID}
	if err := r.caseData.FindOne(ctx, filter).Decode(&cd); err != nil {
		return nil, err
	}
	return &cd, nil
}

func (r *CaseRepositoryImpl) UpdateCaseData(ctx context.Context, cd *CaseData) error {
	cd.UpdatedAt = time.Now()
	_, err := r.caseData.ReplaceOne(ctx, bson.M{"_id": cd.ID}, cd)
	return err
}

func (r *CaseRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.cases.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "team_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "form_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = r.caseData.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "case_id", Value: 1}, {Key: "section_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
