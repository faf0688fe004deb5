package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fullpos/poscloud/internal/audit"
	"github.com/fullpos/poscloud/internal/auth"
	"github.com/fullpos/poscloud/internal/common"
	"github.com/fullpos/poscloud/internal/companies"
	"github.com/fullpos/poscloud/internal/config"
	"github.com/fullpos/poscloud/internal/database"
	"github.com/fullpos/poscloud/internal/handlers/api"
	"github.com/fullpos/poscloud/internal/mail"
	"github.com/fullpos/poscloud/internal/middlewares"
	"github.com/fullpos/poscloud/internal/override"
	"github.com/fullpos/poscloud/internal/store"
	"github.com/fullpos/poscloud/internal/users"
	"github.com/fullpos/poscloud/model"
	"github.com/fullpos/poscloud/params"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

var (
	app       *cli.App
	gitCommit string
	gitDate   string
	gitTag    string
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file",
		Value: "config.yaml",
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}
)

func init() {
	app = cli.NewApp()
	app.EnableBashCompletion = true
	app.Usage = "poscloud - FULLPOS cloud override and approval service"
	app.Flags = []cli.Flag{
		configFileFlag,
		debugFlag,
	}
	app.Commands = []*cli.Command{
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println(params.VersionWithCommit(gitCommit, gitDate))
				return nil
			},
		},
		{
			Name:   "migrate",
			Usage:  "Create or update the database schema",
			Action: runMigrate,
		},
		{
			Name:  "company",
			Usage: "Manage companies",
			Subcommands: []*cli.Command{
				{
					Name:  "add",
					Usage: "Register a company",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "name", Required: true},
						&cli.StringFlag{Name: "rnc", Required: true},
						&cli.StringFlag{Name: "owner-email"},
					},
					Action: runCompanyAdd,
				},
				{
					Name:  "purge",
					Usage: "Delete the override data of a company",
					Flags: []cli.Flag{
						&cli.UintFlag{Name: "id", Required: true},
						&cli.BoolFlag{Name: "delete", Usage: "Also delete the company and its users"},
					},
					Action: runCompanyPurge,
				},
			},
		},
		{
			Name:  "user",
			Usage: "Manage owner app users",
			Subcommands: []*cli.Command{
				{
					Name:  "add",
					Usage: "Create a user",
					Flags: []cli.Flag{
						&cli.UintFlag{Name: "company", Required: true},
						&cli.StringFlag{Name: "username", Required: true},
						&cli.StringFlag{Name: "email"},
						&cli.StringFlag{Name: "password", Required: true},
						&cli.StringFlag{Name: "role", Value: model.RoleOwner},
					},
					Action: runUserAdd,
				},
			},
		},
	}
	app.Action = run
}

func mustInitLogger(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

func mustInitDatabase(cfg *config.Config) *gorm.DB {
	db, err := database.Open(cfg.MySQL, cfg.Debug)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	return db
}

func mustInitStorage(redisCfg config.RedisConfig) *store.Storage {
	if redisCfg.URL == "" {
		slog.Warn("No redis configured, refresh sessions and rate limits are kept in memory")
		return store.NewMemoryStorage()
	}
	return store.NewRedisStorage(store.RedisConfig{
		URL:         redisCfg.URL,
		PoolSize:    redisCfg.PoolSize,
		ClusterMode: redisCfg.ClusterMode,
	})
}

func mustInitMailSender(mailCfg config.MailConfig) mail.MailSender {
	if mailCfg.Backend != "smtp" {
		slog.Error("Unsupported mail sender backend", "backend", mailCfg.Backend)
		os.Exit(1)
	}
	smtpCfg := mailCfg.SMTP
	sender, err := mail.NewSMTPMailSender(mail.SMTPConfig{
		Host:     smtpCfg.Host,
		Port:     smtpCfg.Port,
		Username: smtpCfg.Username,
		Password: smtpCfg.Password,
		TLS:      smtpCfg.TLS,
		CertFile: smtpCfg.CertFile,
		KeyFile:  smtpCfg.KeyFile,
		CAFile:   smtpCfg.CAFile,
	}, mailCfg.From)
	if err != nil {
		slog.Error("Failed to init mail sender", "error", err)
		os.Exit(1)
	}
	return sender
}

// loadCommandConfig is shared by the admin commands.
func loadCommandConfig(ctx *cli.Context) (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	cfg.Debug = cfg.Debug || ctx.IsSet(debugFlag.Name)
	mustInitLogger(cfg.Debug)
	db, err := database.Open(cfg.MySQL, cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func runMigrate(ctx *cli.Context) error {
	_, db, err := loadCommandConfig(ctx)
	if err != nil {
		return err
	}
	if err := model.AutoMigrate(db); err != nil {
		return err
	}
	slog.Info("Database schema is up to date")
	return nil
}

func runCompanyAdd(ctx *cli.Context) error {
	_, db, err := loadCommandConfig(ctx)
	if err != nil {
		return err
	}
	auditService := audit.NewAuditService(audit.NewAuditLogRepository(db))
	company, err := companies.NewCompanyService(db, auditService).Create(ctx.Context, ctx.String("name"), ctx.String("rnc"), ctx.String("owner-email"))
	if err != nil {
		return err
	}
	fmt.Printf("company %d created (rnc %s, cloud id %s)\n", company.ID, company.RNC, company.CloudID)
	return nil
}

func runCompanyPurge(ctx *cli.Context) error {
	_, db, err := loadCommandConfig(ctx)
	if err != nil {
		return err
	}
	auditService := audit.NewAuditService(audit.NewAuditLogRepository(db))
	companyID := ctx.Uint("id")
	if err := companies.NewCompanyService(db, auditService).Purge(ctx.Context, companyID, nil, ctx.Bool("delete")); err != nil {
		return err
	}
	fmt.Printf("company %d purged\n", companyID)
	return nil
}

func runUserAdd(ctx *cli.Context) error {
	_, db, err := loadCommandConfig(ctx)
	if err != nil {
		return err
	}
	user, err := users.NewUserService(users.NewUserRepository(db)).CreateUser(ctx.Context, users.CreateUserOptions{
		CompanyID: ctx.Uint("company"),
		Username:  ctx.String("username"),
		Email:     ctx.String("email"),
		Password:  ctx.String("password"),
		Role:      ctx.String("role"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("user %d (%s) created\n", user.ID, user.Role)
	return nil
}

func run(ctx *cli.Context) error {
	config, err := config.LoadConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		slog.Error("Could not load config file.", "error", err)
		return err
	}

	config.Debug = config.Debug || ctx.IsSet(debugFlag.Name)
	mustInitLogger(config.Debug)

	db := mustInitDatabase(config)
	if err := model.AutoMigrate(db); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
	storage := mustInitStorage(config.Redis)

	// repositories
	var (
		userRepo  = users.NewUserRepository(db)
		auditRepo = audit.NewAuditLogRepository(db)
	)

	// services
	var (
		auditService    = audit.NewAuditService(auditRepo)
		userService     = users.NewUserService(userRepo)
		companyService  = companies.NewCompanyService(db, auditService)
		refreshSessions = store.New[auth.RefreshSession](storage, params.RefreshTokenKeyPrefix)
		authService     = auth.NewAuthService(config.JWT.Secret, userService, refreshSessions,
			auth.WithTTL(config.JWT.AccessTokenTTL, config.JWT.RefreshTokenTTL))
	)

	overrideOpts := []override.Option{override.WithIssuer(config.Override.Issuer)}
	if config.Mail.Notify {
		notifier := mail.NewOverrideNotifier(mustInitMailSender(config.Mail), companyService)
		overrideOpts = append(overrideOpts, override.WithNotifier(notifier))
	}
	overrideService := override.NewOverrideService(db, auditService, overrideOpts...)

	router := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		BodyLimit:     params.ServerBodyLimit,
		IdleTimeout:   params.ServerIdleTimeout,
		ReadTimeout:   params.ServerReadTimeout,
		WriteTimeout:  params.ServerWriteTimeout,
		ErrorHandler:  middlewares.ErrorHandler,
	})

	router.Use(recover.New())
	router.Use(logger.New())
	router.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(config.AllowOrigins, ", "),
		AllowHeaders: strings.Join([]string{
			"Origin", "Content-Type", "Accept", "Authorization",
			middlewares.HeaderOverrideKey, middlewares.HeaderCloudKey,
		}, ", "),
	}))

	api.SetupRoutes(router, api.NewAuthHandler(authService), api.NewOverrideHandler(overrideService, companyService, userService), api.RouteConfig{
		OverrideKey:      config.Override.APIKey,
		AllowPublicCloud: config.Override.AllowPublicCloud,
		TokenParser:      authService,
		RateLimitStorage: storage,
		VerifyRateLimit:  config.Override.VerifyRateLimit,
		VerifyRateSpan:   config.Override.VerifyRateSpan,
	})

	healthCheckCtx, term := context.WithCancel(ctx.Context)
	done := make(chan struct{})
	go common.StartHealthCheckServer(healthCheckCtx, done, storage.Conn(), db)
	defer func() {
		term()
		<-done
	}()
	return router.Listen(config.ListenAddr)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
