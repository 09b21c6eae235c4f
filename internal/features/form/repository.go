package form

import (
	"context"

	"go-caseflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FormRepository interface {
	Create(ctx context.Context, f *Form) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*Form, error)
	FindBySlug(ctx context.Context, slug string) (*Form, error)
	List(ctx context.Context) ([]Form, error)
	Update(ctx context.Context, f *Form) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	CreateSection(ctx context.Context, s *FormSection) error
	FindSectionByID(ctx context.Context, id primitive.ObjectID) (*FormSection, error)
	ListSections(ctx context.Context, formID primitive.ObjectID) ([]FormSection, error)
	PublishedSections(ctx context.Context, formID primitive.ObjectID) ([]FormSection, error)
	UpdateSection(ctx context.Context, s *FormSection) error
	DeleteSection(ctx context.Context, id primitive.ObjectID) error

	EnsureIndexes(ctx context.Context) error
}

type FormRepositoryImpl struct {
	forms    *mongo.Collection
	sections *mongo.Collection
}

func NewFormRepository(mongodb *database.MongodbDB) FormRepository {
	return &FormRepositoryImpl{
		forms:    mongodb.DB.Collection("forms"),
		sections: mongodb.DB.Collection("form_sections"),
	}
}

func (r *FormRepositoryImpl) Create(ctx context.Context, f *Form) error {
	_, err := r.forms.InsertOne(ctx, f)
	return err
}

func (r *FormRepositoryImpl) FindByID(ctx context.Context, id primitive.ObjectID) (*Form, error) {
	var f Form
	if err := r.forms.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FormRepositoryImpl) FindBySlug(ctx context.Context, slug string) (*Form, error) {
	var f Form
	if err := r.forms.FindOne(ctx, bson.M{"slug": slug}).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FormRepositoryImpl) List(ctx context.Context) ([]Form, error) {
	cursor, err := r.forms.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var forms []Form
	if err := cursor.All(ctx, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}

func (r *FormRepositoryImpl) Update(ctx context.Context, f *Form) error {
	_, err := r.forms.ReplaceOne(ctx, bson.M{"_id": f.ID}, f)
	return err
}

func (r *FormRepositoryImpl) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.sections.DeleteMany(ctx, bson.M{"form_id": id}); err != nil {
		return err
	}
	_, err := r.forms.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *FormRepositoryImpl) CreateSection(ctx context.Context, s *FormSection) error {
	_, err := r.sections.InsertOne(ctx, s)
	return err
}

func (r *FormRepositoryImpl) FindSectionByID(ctx context.Context, id primitive.ObjectID) (*FormSection, error) {
	var s FormSection
	if err := r.sections.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *FormRepositoryImpl) ListSections(ctx context.Context, formID primitive.ObjectID) ([]FormSection, error) {
	return r.findSections(ctx, bson.M{"form_id": formID})
}

func (r *FormRepositoryImpl) PublishedSections(ctx context.Context, formID primitive.ObjectID) ([]FormSection, error) {
	return r.findSections(ctx, bson.M{"form_id": formID, "published": true})
}

func (r *FormRepositoryImpl) findSections(ctx context.Context, filter bson.M) ([]FormSection, error) {
	cursor, err := r.sections.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sections []FormSection
	if err := cursor.All(ctx, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *FormRepositoryImpl) UpdateSection(ctx context.Context, s *FormSection) error {
	_, err := r.sections.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	return err
}

func (r *FormRepositoryImpl) DeleteSection(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.sections.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *FormRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.forms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.sections.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "form_id", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
