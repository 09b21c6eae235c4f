package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-caseflow/internal/cache"
	common_api "go-caseflow/internal/common/api"
	"go-caseflow/internal/config"
	"go-caseflow/internal/connectors"
	"go-caseflow/internal/database"
	"go-caseflow/internal/features/audit"
	"go-caseflow/internal/features/auth"
	"go-caseflow/internal/features/automation"
	"go-caseflow/internal/features/casefile"
	"go-caseflow/internal/features/dictionary"
	"go-caseflow/internal/features/escalation"
	"go-caseflow/internal/features/export"
	"go-caseflow/internal/features/form"
	"go-caseflow/internal/features/notification"
	"go-caseflow/internal/features/org"
	"go-caseflow/internal/features/permission"
	"go-caseflow/internal/features/role"
	"go-caseflow/internal/features/system"
	"go-caseflow/internal/features/user"
	"go-caseflow/internal/features/workflow"
	"go-caseflow/internal/logger"
	"go-caseflow/internal/middleware"
	"go-caseflow/pkg/utils"

	_ "go-caseflow/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Use custom CORS middleware
	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for i, route := range routes {
		log.Printf("Setting up route %d: %T\n", i+1, route)
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(
	lc fx.Lifecycle,
	formRepo form.FormRepository,
	workflowRepo workflow.WorkflowRepository,
	caseRepo casefile.CaseRepository,
	permRepo permission.PermissionRepository,
	entryRepo dictionary.EntryRepository,
	ruleRepo automation.RuleRepository,
	notifRepo notification.NotificationRepository,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				// Use a background context with timeout for index creation
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				repos := map[string]interface {
					EnsureIndexes(ctx context.Context) error
				}{
					"form":       formRepo,
					"workflow":   workflowRepo,
					"case":       caseRepo,
					"permission": permRepo,
					"dictionary": entryRepo,
					"automation": ruleRepo,
					"notify":     notifRepo,
				}
				for name, repo := range repos {
					if err := repo.EnsureIndexes(ctx); err != nil {
						log.Printf("Failed to ensure %s indexes: %v", name, err)
					}
				}
			}()
			return nil
		},
	})
}

// StartEscalationSweep runs the stale-instance scheduler for the process lifetime.
func StartEscalationSweep(lc fx.Lifecycle, svc *escalation.EscalationService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.Start()
		},
		OnStop: func(ctx context.Context) error {
			svc.Stop()
			return nil
		},
	})
}

// @title           Caseflow API
// @version         1.0
// @description     Multi-tenant case and request management: dynamic forms, workflow execution, assignment resolution.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Config cache shared by the form and workflow services
			func(cfg *config.Config) *cache.Cache {
				return cache.New(time.Duration(cfg.CacheTTLSeconds) * time.Second)
			},

			// Initialize Repository
			user.NewUserRepository,
			role.NewRoleRepository,
			org.NewOrgRepository,
			permission.NewPermissionRepository,
			audit.NewAuditRepository,
			form.NewFormRepository,
			workflow.NewWorkflowRepository,
			casefile.NewCaseRepository,
			dictionary.NewEntryRepository,
			automation.NewRuleRepository,
			notification.NewNotificationRepository,

			audit.NewAuditService,
			auth.NewAuthService,
			user.NewUserService,
			role.NewRoleService,
			org.NewOrgService,
			permission.NewPermissionService,
			permission.NewResolver,
			form.NewFormService,
			workflow.NewWorkflowService,
			workflow.NewExecutor,
			casefile.NewCaseService,
			dictionary.NewDictionaryService,
			dictionary.NewReaderFactory,
			automation.NewActionExecutor,
			automation.NewAutomationService,
			notification.NewHub,
			notification.NewNotificationService,
			escalation.NewEscalationService,
			export.NewExportService,

			// Dictionary entries backed by the application database read
			// through the same connector interface as external sources
			func(db *database.MongodbDB) *connectors.MongoReader {
				return connectors.NewMongoReader(db.DB)
			},

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(s role.RoleService) middleware.RoleChecker { return s },
			func(s role.RoleService) permission.FormAccessChecker { return s },
			func(r user.UserRepository) audit.UserNamer { return r },
			func(r user.UserRepository) permission.UserFinder { return r },
			func(r org.OrgRepository) permission.OrgFinder { return r },
			func(r permission.PermissionRepository) permission.PermissionFinder { return r },
			func(r permission.PermissionRepository) workflow.PermissionGetter { return r },
			func(r role.RoleRepository) workflow.RoleFinder { return r },
			func(r workflow.WorkflowRepository) workflow.TaskReader { return r },
			func(r workflow.WorkflowRepository) casefile.WorkflowStore { return r },
			func(r workflow.WorkflowRepository) escalation.InstanceFinder { return r },
			func(s form.FormService) casefile.FormReader { return s },
			func(db *database.MongodbDB) casefile.Transactor { return db },
			func(r casefile.CaseRepository) automation.SnapshotReader { return r },
			func(r casefile.CaseRepository) export.DataReader { return r },
			func(s casefile.CaseService) export.CaseLister { return s },
			func(s *automation.AutomationServiceImpl) automation.AutomationService { return s },
			func(s *notification.NotificationServiceImpl) notification.NotificationService { return s },
			func(s *notification.NotificationServiceImpl) automation.Notifier { return s },
			func(s *notification.NotificationServiceImpl) escalation.Alerter { return s },

			// Post-commit hooks fired after a case save changes status.
			// Automation runs first so rule actions see the fresh state
			// before assignee notifications go out.
			func(a *automation.AutomationServiceImpl, n *notification.NotificationServiceImpl) []casefile.TransitionHook {
				return []casefile.TransitionHook{a, n}
			},

			// Initialize Controller
			auth.NewAuthController,
			user.NewUserController,
			role.NewRoleController,
			org.NewOrgController,
			permission.NewPermissionController,
			audit.NewAuditController,
			form.NewFormController,
			workflow.NewWorkflowController,
			casefile.NewCaseController,
			dictionary.NewDictionaryController,
			automation.NewAutomationController,
			notification.NewNotificationController,
			export.NewExportController,
			system.NewHealthController,
			system.NewDebugController,

			// Initialize API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(user.NewUserApi),
			AsRoute(role.NewRoleApi),
			AsRoute(org.NewOrgApi),
			AsRoute(permission.NewPermissionApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(form.NewFormApi),
			AsRoute(workflow.NewWorkflowApi),
			AsRoute(casefile.NewCaseApi),
			AsRoute(dictionary.NewDictionaryApi),
			AsRoute(automation.NewAutomationApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(export.NewExportApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			StartEscalationSweep,
			InitializeIndexes,
		),
	)

	app.Run()
}
