package org

import (
	"context"
	"time"

	"go-caseflow/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrgService interface {
	CreateCompany(ctx context.Context, company *Company) error
	CreateDepartment(ctx context.Context, department *Department) error
	CreateTeam(ctx context.Context, team *Team) error
	CreateApplication(ctx context.Context, app *Application) error

	GetApplication(ctx context.Context, id string) (*Application, error)
	GetDepartment(ctx context.Context, id primitive.ObjectID) (*Department, error)

	ListCompanies(ctx context.Context) ([]Company, error)
	ListDepartments(ctx context.Context, companyID string) ([]Department, error)
	ListTeams(ctx context.Context, departmentID string) ([]Team, error)
	ListApplications(ctx context.Context) ([]Application, error)
}

type OrgServiceImpl struct {
	Repo OrgRepository
}

func NewOrgService(repo OrgRepository) OrgService {
	return &OrgServiceImpl{Repo: repo}
}

func (s *OrgServiceImpl) CreateCompany(ctx context.Context, company *Company) error {
	company.ID = primitive.NewObjectID()
	company.Slug = utils.Slugify(company.Name)
	company.CreatedAt = time.Now()
	company.UpdatedAt = time.Now()
	return s.Repo.CreateCompany(ctx, company)
}

func (s *OrgServiceImpl) CreateDepartment(ctx context.Context, department *Department) error {
	department.ID = primitive.NewObjectID()
	department.CreatedAt = time.Now()
	department.UpdatedAt = time.Now()
	return s.Repo.CreateDepartment(ctx, department)
}

func (s *OrgServiceImpl) CreateTeam(ctx context.Context, team *Team) error {
	team.ID = primitive.NewObjectID()
	team.CreatedAt = time.Now()
	team.UpdatedAt = time.Now()
	return s.Repo.CreateTeam(ctx, team)
}

func (s *OrgServiceImpl) CreateApplication(ctx context.Context, app *Application) error {
	app.ID = primitive.NewObjectID()
	app.Slug = utils.Slugify(app.Name)
	if app.ControlScope == "" {
		app.ControlScope = ControlScopeApp
	}
	app.CreatedAt = time.Now()
	app.UpdatedAt = time.Now()
	return s.Repo.CreateApplication(ctx, app)
}

func (s *OrgServiceImpl) GetApplication(ctx context.Context, id string) (*Application, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindApplicationByID(ctx, oid)
}

func (s *OrgServiceImpl) GetDepartment(ctx context.Context, id primitive.ObjectID) (*Department, error) {
	return s.Repo.FindDepartmentByID(ctx, id)
}

func (s *OrgServiceImpl) ListCompanies(ctx context.Context) ([]Company, error) {
	return s.Repo.ListCompanies(ctx)
}

func (s *OrgServiceImpl) ListDepartments(ctx context.Context, companyID string) ([]Department, error) {
	oid, _ := primitive.ObjectIDFromHex(companyID)
	return s.Repo.ListDepartments(ctx, oid)
}

func (s *OrgServiceImpl) ListTeams(ctx context.Context, departmentID string) ([]Team, error) {
	oid, _ := primitive.ObjectIDFromHex(departmentID)
	return s.Repo.ListTeams(ctx, oid)
}

func (s *OrgServiceImpl) ListApplications(ctx context.Context) ([]Application, error) {
	return s.Repo.ListApplications(ctx)
}
