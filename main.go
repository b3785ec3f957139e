package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"
	"storefront/internal/server"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to $CONFIG_PATH)")

	rootCmd.AddCommand(
		&cobra.Command{Use: "serve", Short: "Start the HTTP API", RunE: runServe},
		migrateCmd(),
		seedCmd(),
		createAdminCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime is what every command needs: configuration, a logger and the store.
type runtime struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *database.Store
	cleanup func()
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, flush := logger.New(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: cfg.IsDevelopment(),
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.Rotate.Enable,
			Filename:   cfg.Log.Rotate.Filename,
			MaxSizeMB:  cfg.Log.Rotate.MaxSizeMB,
			MaxBackups: cfg.Log.Rotate.MaxBackups,
			MaxAgeDays: cfg.Log.Rotate.MaxAgeDays,
			Compress:   cfg.Log.Rotate.Compress,
		},
	})

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	store, err := database.Open(openCtx, cfg.DB, log)
	if err != nil {
		flush()
		return nil, fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	return &runtime{
		cfg:   cfg,
		log:   log,
		store: store,
		cleanup: func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				log.Warn("store close failed", zap.Error(err))
			}
			flush()
		},
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.cleanup()
	cfg, log := rt.cfg, rt.log

	if cfg.DB.AutoMigrate {
		if err := rt.store.Migrate(ctx); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		log.Info("automigrate done")
	}

	deps := server.Dependencies{
		Config: cfg,
		Log:    log,
		Store:  rt.store,
		Repos:  repositories.NewSet(rt.store),
		Payments: payment.NewLimited(
			payment.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.Currency, nil),
			cfg.Stripe.MaxConcurrent, cfg.Stripe.Timeout,
		),
	}

	var mq *rabbitmq.Client
	if cfg.RabbitMQ.URL != "" {
		mq, err = rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
		}, log)
		if err != nil {
			return err
		}
		defer mq.Close()
		deps.Events = mq
	} else {
		log.Info("rabbitmq url not set, order events disabled")
	}

	if cfg.Redis.Addr != "" {
		c := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer c.Close()
		if err := c.Ping(ctx); err != nil {
			log.Warn("redis unreachable, product reads fall through to the store", zap.Error(err))
		}
		deps.Cache = c
	}

	app := server.NewApp(deps)

	if mq != nil {
		go func() {
			if err := mq.Consume(ctx, app.Inventory.BindingKeys(), app.Inventory.Handle); err != nil && ctx.Err() == nil {
				log.Error("inventory consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	errCh := make(chan error, 1)
	go func() { errCh <- app.Fiber.Listen(addr) }()
	log.Info("storefront api started", zap.String("addr", addr), zap.String("env", cfg.App.Env))

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables or indexes for the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.cleanup()
			if err := rt.store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			rt.log.Info("migration done", zap.String("driver", rt.cfg.DB.Driver))
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.cleanup()
			user, created, err := ensureAdmin(cmd.Context(), repositories.NewSet(rt.store).Users, email, name, password)
			if err != nil {
				return err
			}
			rt.log.Info("admin ready", zap.String("user_id", user.ID), zap.String("email", user.Email), zap.Bool("created", created))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password for a new account")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

var errPasswordRequired = errors.New("--password is required when creating a new account")

// ensureAdmin promotes and reactivates the account with email, or creates it.
func ensureAdmin(ctx context.Context, users repositories.UserRepository, email, name, password string) (*models.User, bool, error) {
	user, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !user.HasRole(models.RoleAdmin) {
			user.Roles = append(user.Roles, models.RoleAdmin)
		}
		user.IsActive = true
		if err := users.Update(ctx, user); err != nil {
			return nil, false, fmt.Errorf("promote %s: %w", email, err)
		}
		return user, false, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, false, fmt.Errorf("look up %s: %w", email, err)
	}

	if password == "" {
		return nil, false, errPasswordRequired
	}
	hash, err := services.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user = &models.User{
		Name:     name,
		Email:    email,
		Password: hash,
		Roles:    []string{models.RoleUser, models.RoleAdmin},
		IsActive: true,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create %s: %w", email, err)
	}
	return user, true, nil
}
