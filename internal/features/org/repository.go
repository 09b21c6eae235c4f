package org

import (
	"context"

	"go-caseflow/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type OrgRepository interface {
	CreateCompany(ctx context.Context, company *Company) error
	CreateDepartment(ctx context.Context, department *Department) error
	CreateTeam(ctx context.Context, team *Team) error
	CreateApplication(ctx context.Context, app *Application) error

	FindCompanyByID(ctx context.Context, id primitive.ObjectID) (*Company, error)
	FindDepartmentByID(ctx context.Context, id primitive.ObjectID) (*Department, error)
	FindTeamByID(ctx context.Context, id primitive.ObjectID) (*Team, error)
	FindApplicationByID(ctx context.Context, id primitive.ObjectID) (*Application, error)
	FindApplicationBySlug(ctx context.Context, slug string) (*Application, error)

	ListCompanies(ctx context.Context) ([]Company, error)
	ListDepartments(ctx context.Context, companyID primitive.ObjectID) ([]Department, error)
	ListTeams(ctx context.Context, departmentID primitive.ObjectID) ([]Team, error)
	ListApplications(ctx context.Context) ([]Application, error)
}

type OrgRepositoryImpl struct {
	companies    *mongo.Collection
	departments  *mongo.Collection
	teams        *mongo.Collection
	applications *mongo.Collection
}

func NewOrgRepository(mongodb *database.MongodbDB) OrgRepository {
	return &OrgRepositoryImpl{
		companies:    mongodb.DB.Collection("companies"),
		departments:  mongodb.DB.Collection("departments"),
		teams:        mongodb.DB.Collection("teams"),
		applications: mongodb.DB.Collection("applications"),
	}
}

func (r *OrgRepositoryImpl) CreateCompany(ctx context.Context, company *Company) error {
	_, err := r.companies.InsertOne(ctx, company)
	return err
}

func (r *OrgRepositoryImpl) CreateDepartment(ctx context.Context, department *Department) error {
	_, err := r.departments.InsertOne(ctx, department)
	return err
}

func (r *OrgRepositoryImpl) CreateTeam(ctx context.Context, team *Team) error {
	_, err := r.teams.InsertOne(ctx, team)
	return err
}

func (r *OrgRepositoryImpl) CreateApplication(ctx context.Context, app *Application) error {
	_, err := r.applications.InsertOne(ctx, app)
	return err
}

func (r *OrgRepositoryImpl) FindCompanyByID(ctx context.Context, id primitive.ObjectID) (*Company, error) {
	var company Company
	if err := r.companies.FindOne(ctx, bson.M{"_id": id}).Decode(&company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *OrgRepositoryImpl) FindDepartmentByID(ctx context.Context, id primitive.ObjectID) (*Department, error) {
	var department Department
	if err := r.departments.FindOne(ctx, bson.M{"_id": id}).Decode(&department); err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *OrgRepositoryImpl) FindTeamByID(ctx context.Context, id primitive.ObjectID) (*Team, error) {
	var team Team
	if err := r.teams.FindOne(ctx, bson.M{"_id": id}).Decode(&team); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *OrgRepositoryImpl) FindApplicationByID(ctx context.Context, id primitive.ObjectID) (*Application, error) {
	var app Application
	if err := r.applications.FindOne(ctx, bson.M{"_id": id}).Decode(&app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *OrgRepositoryImpl) FindApplicationBySlug(ctx context.Context, slug string) (*Application, error) {
	var app Application
	err := r.applications.FindOne(ctx, bson.M{"slug": slug}).Decode(&app)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &app, nil
}

func (r *OrgRepositoryImpl) ListCompanies(ctx context.Context) ([]Company, error) {
	cursor, err := r.companies.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var companies []Company
	if err := cursor.All(ctx, &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *OrgRepositoryImpl) ListDepartments(ctx context.Context, companyID primitive.ObjectID) ([]Department, error) {
	filter := bson.M{}
	if !companyID.IsZero() {
		filter["company_id"] = companyID
	}
	cursor, err := r.departments.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var departments []Department
	if err := cursor.All(ctx, &departments); err != nil {
		return nil, err
	}
	return departments, nil
}

func (r *OrgRepositoryImpl) ListTeams(ctx context.Context, departmentID primitive.ObjectID) ([]Team, error) {
	filter := bson.M{}
	if !departmentID.IsZero() {
		filter["department_id"] = departmentID
	}
	cursor, err := r.teams.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var teams []Team
	if err := cursor.All(ctx, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *OrgRepositoryImpl) ListApplications(ctx context.Context) ([]Application, error) {
	cursor, err := r.applications.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var apps []Application
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}
