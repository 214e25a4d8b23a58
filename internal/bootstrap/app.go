package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/admin"
	"resume-builder/internal/auth"
	"resume-builder/internal/jobs"
	"resume-builder/internal/notify"
	"resume-builder/internal/queue"
	"resume-builder/internal/resumes"
	"resume-builder/internal/services/health"
	"resume-builder/internal/sharing"
	sharedauth "resume-builder/internal/shared/auth"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/server"
	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/storage/object"
	localstore "resume-builder/internal/shared/storage/object/local"
	s3store "resume-builder/internal/shared/storage/object/s3"
	"resume-builder/internal/shared/telemetry"
	"resume-builder/internal/users"
)

const (
	notifyTimeout     = 15 * time.Second
	notifyMaxInFlight = 64
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Tokens *sharedauth.Issuer

	UsersRepo   users.Repo
	ResumesRepo resumes.Repo

	AuthService    *auth.Service
	UsersService   *users.Service
	ResumesService *resumes.Service
	AdminService   *admin.Service

	// Mailer delivers events directly. Queue workers use it; the API publishes
	// through Notifications, which may route via the queue instead.
	Mailer        notify.Notifier
	Notifications *notify.Dispatcher
	Health        *health.Service
	Sweeper       *jobs.ShareSweeper
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	telemetry.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Tokens: sharedauth.NewIssuer(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
	}

	notifierName := buildNotifications(app)
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Health = health.NewService(pinger(sqlDB), cfg.ObjectStoreType, notifierName)
	app.Router = server.NewRouter(server.RouterDeps{
		Config: cfg,
		Guards: middleware.NewGuards(app.Tokens, app.UsersService),
		Health: app.Health,
		Handlers: []server.RouteRegistrar{
			auth.NewHandler(app.AuthService, buildOAuth(cfg), cfg.UIRedirectURL, cfg.IsDev()),
			users.NewHandler(app.UsersService, app.AuthService),
			resumes.NewHandler(app.ResumesService),
			sharing.NewHandler(app.ResumesService),
			admin.NewHandler(app.AdminService),
		},
	})
	return app, nil
}

// Close drains pending notifications and releases connections.
func (a *App) Close(ctx context.Context) {
	if a.Notifications != nil {
		if err := a.Notifications.Wait(ctx); err != nil {
			telemetry.Warn("notify.drain_incomplete", map[string]any{"error": err.Error()})
		}
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDev() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.ProfileLambda))
	} else {
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.ProfileAPI))
	}
	if err != nil {
		if cfg.IsDev() {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildQueue connects the configured backend. No URL means no queue.
func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	switch cfg.QueueBackend {
	case "amqp":
		if strings.TrimSpace(cfg.AMQPURL) == "" {
			return nil, nil
		}
		client, err := queue.NewAMQPClient(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		if strings.TrimSpace(cfg.SQSQueueURL) == "" {
			return nil, nil
		}
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// buildNotifications picks the delivery path for activity events. A notifier
// that is not ready is replaced by a logging one so requests never fail on it.
func buildNotifications(app *App) string {
	cfg := app.Config
	mailer, ready := notify.NewMailNotifier(notify.SMTPSettings{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		AdminEmail: cfg.NotifyAdminEmail,
		AppURL:     cfg.PublicAppURL,
	})
	if ready.Ready {
		app.Mailer = mailer
	} else {
		telemetry.Warn("notify.mail_unavailable", map[string]any{"reason": ready.Reason})
		app.Mailer = notify.LogNotifier{}
	}

	var (
		target notify.Notifier
		name   string
	)
	switch cfg.NotifyMode {
	case "off":
		return "off"
	case "queue":
		qn, r := notify.NewQueueNotifier(app.Queue)
		if !r.Ready {
			telemetry.Warn("notify.queue_unavailable", map[string]any{"reason": r.Reason})
			target, name = notify.LogNotifier{}, "log"
			break
		}
		target, name = qn, "queue"
	default:
		target, name = app.Mailer, "mail"
		if !ready.Ready {
			name = "log"
		}
	}
	app.Notifications = notify.NewDispatcher(target, notifyTimeout, notifyMaxInFlight)
	return name
}

func buildOAuth(cfg config.Config) *auth.OAuthFlow {
	if strings.TrimSpace(cfg.GoogleClientID) == "" || strings.TrimSpace(cfg.GoogleClientSecret) == "" {
		return nil
	}
	return auth.NewOAuthFlow(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.SessionSecret, !cfg.IsDev())
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.UsersRepo = &users.PGRepo{DB: app.DB}
		app.ResumesRepo = &resumes.PGRepo{DB: app.DB}
	} else {
		app.UsersRepo = users.NewMemoryRepo()
		app.ResumesRepo = resumes.NewMemoryRepo()
	}

	var pub notify.Publisher = notify.Discard{}
	if app.Notifications != nil {
		pub = app.Notifications
	}
	cfg := app.Config

	authSvc := auth.NewService(app.UsersRepo, app.Tokens, pub)
	authSvc.IsAdminEmail = cfg.IsAdminEmail
	if strings.TrimSpace(cfg.GoogleClientID) != "" {
		authSvc.Google = auth.NewIDTokenVerifier(cfg.GoogleClientID)
	}

	resumeSvc := resumes.NewService(app.ResumesRepo, app.Store, app.UsersRepo, pub, cfg.PublicAppURL)
	resumeSvc.MaxUploadBytes = cfg.MaxUploadBytes

	userSvc := users.NewService(app.UsersRepo, app.Store, pub)
	userSvc.Resumes = resumeSvc

	app.AuthService = authSvc
	app.ResumesService = resumeSvc
	app.UsersService = userSvc
	app.AdminService = admin.NewService(app.UsersRepo, userSvc, resumeSvc)
	app.Sweeper = jobs.NewShareSweeper(app.ResumesRepo, cfg.ShareSweepSchedule)

	if app.AuthService == nil || app.ResumesService == nil || app.UsersService == nil {
		return errors.New("failed to initialize services")
	}
	return nil
}

// pinger avoids handing health a typed nil.
func pinger(sqlDB *sql.DB) health.Pinger {
	if sqlDB == nil {
		return nil
	}
	return sqlDB
}
