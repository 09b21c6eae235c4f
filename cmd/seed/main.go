package main

import (
	"context"
	"log"
	"time"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/config"
	"go-caseflow/internal/database"
	"go-caseflow/internal/features/form"
	"go-caseflow/internal/features/org"
	"go-caseflow/internal/features/permission"
	"go-caseflow/internal/features/role"
	"go-caseflow/internal/features/user"
	"go-caseflow/internal/features/workflow"
	"go-caseflow/internal/logger"
	"go-caseflow/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// crudMenu grants every action on one resource.
func crudMenu(resource string) role.MenuGrant {
	return role.MenuGrant{Resource: resource, Actions: []string{"create", "read", "update", "delete"}}
}

// Seed populates a fresh database with a working org tree, roles, users,
// one expense form and its approval workflow. It refuses to run against a
// database that already holds roles.
func Seed(
	lc fx.Lifecycle,
	orgRepo org.OrgRepository,
	roleRepo role.RoleRepository,
	userRepo user.UserRepository,
	permRepo permission.PermissionRepository,
	formRepo form.FormRepository,
	workflowRepo workflow.WorkflowRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
				defer cancel()

				logger.Info("Starting database seeding...")

				if existing, err := roleRepo.List(ctx); err == nil && len(existing) > 0 {
					logger.Info("Roles already present, skipping seed", zap.Int("count", len(existing)))
					return
				}

				now := time.Now()

				// Repository Create calls do not echo generated IDs back,
				// so every document referenced later gets one up front.

				// 1. Org tree: company > department > team
				company := org.Company{ID: primitive.NewObjectID(), Name: "Acme Corp", Slug: utils.Slugify("Acme Corp"), CreatedAt: now, UpdatedAt: now}
				if err := orgRepo.CreateCompany(ctx, &company); err != nil {
					logger.Fatal("Failed to create company", zap.Error(err))
				}

				finance := org.Department{ID: primitive.NewObjectID(), Name: "Finance", CompanyID: company.ID, CreatedAt: now, UpdatedAt: now}
				if err := orgRepo.CreateDepartment(ctx, &finance); err != nil {
					logger.Fatal("Failed to create department", zap.Error(err))
				}

				payables := org.Team{ID: primitive.NewObjectID(), Name: "Payables", DepartmentID: finance.ID, CreatedAt: now, UpdatedAt: now}
				if err := orgRepo.CreateTeam(ctx, &payables); err != nil {
					logger.Fatal("Failed to create team", zap.Error(err))
				}

				app := org.Application{
					ID:           primitive.NewObjectID(),
					Name:         "Expenses",
					Slug:         utils.Slugify("Expenses"),
					ControlScope: org.ControlScopeData,
					Active:       true,
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				if err := orgRepo.CreateApplication(ctx, &app); err != nil {
					logger.Fatal("Failed to create application", zap.Error(err))
				}
				logger.Info("Org tree created", zap.String("company", company.Name), zap.String("application", app.Name))

				// 2. Form with one published section
				expenseForm := form.Form{
					ID:            primitive.NewObjectID(),
					Name:          "Expense Claim",
					Slug:          utils.Slugify("Expense Claim"),
					Description:   "Reimbursement requests routed through finance approval",
					ApplicationID: app.ID,
					Active:        true,
					CreatedAt:     now,
					UpdatedAt:     now,
				}
				if err := formRepo.Create(ctx, &expenseForm); err != nil {
					logger.Fatal("Failed to create form", zap.Error(err))
				}

				section := form.FormSection{
					ID:        primitive.NewObjectID(),
					FormID:    expenseForm.ID,
					Name:      "Claim Details",
					Index:     0,
					Published: true,
					Fields: []common_models.FormField{
						{Name: "amount", Label: "Amount", Type: common_models.FieldTypeNumber, Required: true},
						{Name: "category", Label: "Category", Type: common_models.FieldTypeSelect, Required: true, Options: []common_models.SelectOption{
							{Label: "Travel", Value: "travel"},
							{Label: "Equipment", Value: "equipment"},
							{Label: "Other", Value: "other"},
						}},
						{Name: "description", Label: "Description", Type: common_models.FieldTypeTextArea, Required: false},
					},
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := formRepo.CreateSection(ctx, &section); err != nil {
					logger.Fatal("Failed to create form section", zap.Error(err))
				}
				logger.Info("Form created", zap.String("form", expenseForm.Name))

				// 3. Roles
				requester := role.Role{
					ID:        primitive.NewObjectID(),
					Name:      "Requester",
					Scope:     role.ScopeTeam,
					CaseOwner: true,
					Menus: []role.MenuGrant{
						{Resource: "cases", Actions: []string{"create", "read", "update"}},
						{Resource: "dictionary", Actions: []string{"read"}},
					},
					FormIDs:   []primitive.ObjectID{expenseForm.ID},
					CreatedAt: now,
					UpdatedAt: now,
				}
				approver := role.Role{
					ID:    primitive.NewObjectID(),
					Name:  "Finance Approver",
					Scope: role.ScopeDepartment,
					Menus: []role.MenuGrant{
						{Resource: "cases", Actions: []string{"read", "update"}},
						{Resource: "audit", Actions: []string{"read"}},
					},
					CreatedAt: now,
					UpdatedAt: now,
				}
				admin := role.Role{
					ID:    primitive.NewObjectID(),
					Name:  "Administrator",
					Scope: role.ScopeApp,
					Menus: []role.MenuGrant{
						crudMenu("cases"), crudMenu("forms"), crudMenu("workflows"),
						crudMenu("roles"), crudMenu("permissions"), crudMenu("dictionary"),
						crudMenu("automation"), {Resource: "audit", Actions: []string{"read"}},
					},
					FormIDs:   []primitive.ObjectID{expenseForm.ID},
					CreatedAt: now,
					UpdatedAt: now,
				}
				for _, r := range []*role.Role{&requester, &approver, &admin} {
					if err := roleRepo.Create(ctx, r); err != nil {
						logger.Fatal("Failed to create role", zap.String("role", r.Name), zap.Error(err))
					}
					logger.Info("Role created", zap.String("role", r.Name))
				}

				// 4. Users
				users := []struct {
					username, password, email, first, last string
					roles                                  []primitive.ObjectID
				}{
					{"admin", "admin123", "admin@acme.test", "Ada", "Admin", []primitive.ObjectID{admin.ID}},
					{"jdoe", "password1", "jdoe@acme.test", "Jane", "Doe", []primitive.ObjectID{requester.ID}},
					{"fsmith", "password1", "fsmith@acme.test", "Frank", "Smith", []primitive.ObjectID{approver.ID}},
				}
				seeded := map[string]primitive.ObjectID{}
				for _, u := range users {
					hashed, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
					if err != nil {
						logger.Fatal("Failed to hash password", zap.Error(err))
					}
					doc := common_models.User{
						ID:        primitive.NewObjectID(),
						Username:  u.username,
						Password:  string(hashed),
						Email:     u.email,
						FirstName: u.first,
						LastName:  u.last,
						Status:    "active",
						Roles:     u.roles,
						TeamID:    payables.ID,
						CreatedAt: now,
						UpdatedAt: now,
					}
					if err := userRepo.Create(ctx, &doc); err != nil {
						logger.Fatal("Failed to create user", zap.String("username", u.username), zap.Error(err))
					}
					seeded[u.username] = doc.ID
					logger.Info("User created", zap.String("username", u.username))
				}

				// 5. Permission records tying roles into the org tree
				perms := []permission.Permission{
					{RoleID: requester.ID, ApplicationID: app.ID, CompanyID: company.ID, DepartmentID: finance.ID, TeamID: payables.ID, ContactUserID: seeded["jdoe"], CreatedAt: now, UpdatedAt: now},
					{RoleID: approver.ID, ApplicationID: app.ID, CompanyID: company.ID, DepartmentID: finance.ID, ContactUserID: seeded["fsmith"], CreatedAt: now, UpdatedAt: now},
					{RoleID: admin.ID, ApplicationID: app.ID, CompanyID: company.ID, CreatedAt: now, UpdatedAt: now},
				}
				for i := range perms {
					perms[i].ID = primitive.NewObjectID()
					if err := permRepo.Create(ctx, &perms[i]); err != nil {
						logger.Fatal("Failed to create permission", zap.Error(err))
					}
				}
				logger.Info("Permissions created", zap.Int("count", len(perms)))

				// 6. Approval workflow: auto triage, manager approval, payout
				wf := workflow.Workflow{
					ID:          primitive.NewObjectID(),
					FormID:      expenseForm.ID,
					Name:        "Expense Approval",
					Description: "Claims above 500 need finance approval",
					Active:      true,
					CreatedAt:   now,
					UpdatedAt:   now,
				}
				if err := workflowRepo.Create(ctx, &wf); err != nil {
					logger.Fatal("Failed to create workflow", zap.Error(err))
				}

				triage := workflow.Task{ID: primitive.NewObjectID(), WorkflowID: wf.ID, Name: "Triage", Type: workflow.TaskAuto, Index: 0, CreatedAt: now, UpdatedAt: now}
				approval := workflow.Task{ID: primitive.NewObjectID(), WorkflowID: wf.ID, Name: "Finance Approval", Type: workflow.TaskFlow, Index: 1, RoleID: approver.ID, CreatedAt: now, UpdatedAt: now}
				payout := workflow.Task{ID: primitive.NewObjectID(), WorkflowID: wf.ID, Name: "Payout", Type: workflow.TaskManual, Index: 2, RoleID: approver.ID, CreatedAt: now, UpdatedAt: now}
				for _, t := range []*workflow.Task{&triage, &approval, &payout} {
					if err := workflowRepo.CreateTask(ctx, t); err != nil {
						logger.Fatal("Failed to create task", zap.String("task", t.Name), zap.Error(err))
					}
				}

				points := []workflow.DecisionPoint{
					{TaskID: triage.ID, Label: "Needs approval", NextTaskID: approval.ID, Priority: 1, Condition: map[string]interface{}{
						"field_name":          "amount",
						"comparison_operator": "gt",
						"compare_value":       500,
					}, CreatedAt: now, UpdatedAt: now},
					{TaskID: approval.ID, Label: "Approve", NextTaskID: payout.ID, Priority: 1, CreatedAt: now, UpdatedAt: now},
					{TaskID: approval.ID, Label: "Reject", Priority: 2, CreatedAt: now, UpdatedAt: now},
				}
				for i := range points {
					points[i].ID = primitive.NewObjectID()
					if err := workflowRepo.CreateDecisionPoint(ctx, &points[i]); err != nil {
						logger.Fatal("Failed to create decision point", zap.Error(err))
					}
				}
				logger.Info("Workflow created", zap.String("workflow", wf.Name))

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			org.NewOrgRepository,
			role.NewRoleRepository,
			user.NewUserRepository,
			permission.NewPermissionRepository,
			form.NewFormRepository,
			workflow.NewWorkflowRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	<-app.Done()
}
