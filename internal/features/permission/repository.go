package permission

import (
	"context"
	"fmt"

	"go-caseflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PermissionRepository interface {
	Create(ctx context.Context, permission *Permission) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Permission, error)
	FindByRoleID(ctx context.Context, roleID primitive.ObjectID) ([]Permission, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Permission, error)
	Find(ctx context.Context, filter bson.M) ([]Permission, error)
	Update(ctx context.Context, id primitive.ObjectID, permission *Permission) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	EnsureIndexes(ctx context.Context) error
}

type PermissionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewPermissionRepository(mongodb *database.MongodbDB) PermissionRepository {
	return &PermissionRepositoryImpl{
		collection: mongodb.DB.Collection("permissions"),
	}
}

func (r *PermissionRepositoryImpl) Create(ctx context.Context, permission *Permission) error {
	_, err := r.collection.InsertOne(ctx, permission)
	return err
}

func (r *PermissionRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Permission, error) {
	var permission Permission
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&permission); err != nil {
		return nil, err
	}
	return &permission, nil
}

func (r *PermissionRepositoryImpl) FindByRoleID(ctx context.Context, roleID primitive.ObjectID) ([]Permission, error) {
	return r.Find(ctx, bson.M{"role_id": roleID})
}

func (r *PermissionRepositoryImpl) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]Permission, error) {
	return r.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *PermissionRepositoryImpl) Find(ctx context.Context, filter bson.M) ([]Permission, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var permissions []Permission
	if err := cursor.All(ctx, &permissions); err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *PermissionRepositoryImpl) Update(ctx context.Context, id primitive.ObjectID, permission *Permission) error {
	update := bson.M{"$set": bson.M{
		"role_id":         permission.RoleID,
		"application_id":  permission.ApplicationID,
		"company_id":      permission.CompanyID,
		"department_id":   permission.DepartmentID,
		"team_id":         permission.TeamID,
		"contact_user_id": permission.ContactUserID,
		"updated_at":      permission.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("permission not found")
	}
	return nil
}

func (r *PermissionRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("permission not found")
	}
	return nil
}

// EnsureIndexes enforces the (role, application, team, department, company)
// uniqueness the resolver's single-match expectation rests on.
func (r *PermissionRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "role_id", Value: 1},
			{Key: "application_id", Value: 1},
			{Key: "team_id", Value: 1},
			{Key: "department_id", Value: 1},
			{Key: "company_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}
