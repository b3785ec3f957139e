package server

import (
	"context"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/repositories"
	"storefront/internal/response"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dependencies are the process-wide resources the API is built from. Events
// and Cache are optional.
type Dependencies struct {
	Config   *config.Config
	Log      *zap.Logger
	Store    *database.Store
	Repos    repositories.Set
	Payments payment.Provider
	Events   services.EventPublisher
	Cache    *cache.Cache
}

// App is the assembled HTTP API together with the services background
// workers need.
type App struct {
	Fiber     *fiber.App
	Auth      *services.AuthService
	Products  *services.ProductService
	Inventory *services.InventoryConsumer
}

// NewApp wires services, handlers and middleware.
func NewApp(deps Dependencies) *App {
	cfg, log := deps.Config, deps.Log

	authService := services.NewAuthService(deps.Repos.Users, services.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		TTL:        cfg.JWT.TTL,
		CookieName: cfg.JWT.CookieName,
	}, log)
	userService := services.NewUserService(deps.Repos.Users, authService, log)
	productService := services.NewProductService(deps.Repos.Products, log)
	if deps.Cache != nil {
		productService = productService.WithCache(deps.Cache, cfg.Redis.ProductTTL)
	}
	pricing := models.Pricing{
		TaxRate:               cfg.Order.TaxRate,
		ShippingFlat:          cfg.Order.ShippingFlat,
		FreeShippingThreshold: cfg.Order.FreeShippingThreshold,
	}
	orderService := services.NewOrderService(deps.Repos.Orders, deps.Repos.Products, pricing, deps.Events, log)
	checkoutService := services.NewCheckoutService(deps.Repos.Orders, deps.Payments, services.CheckoutConfig{
		ClientURL:   cfg.App.ClientURL,
		SuccessPath: cfg.Stripe.SuccessPath,
		CancelPath:  cfg.Stripe.CancelPath,
	}, deps.Events, log)

	bodyLimit := cfg.App.BodyLimitMB << 20
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             bodyLimit,
		ErrorHandler:          response.ErrorHandler(cfg.IsDevelopment(), log),
		DisableStartupMessage: true,
	})

	app.Use(
		middleware.RequestID(),
		middleware.AccessLog(log),
		middleware.Metrics(),
		recover.New(recover.Config{EnableStackTrace: cfg.IsDevelopment()}),
		cors.New(cors.Config{
			AllowOrigins:     cfg.App.ClientURL,
			AllowCredentials: true,
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		}),
	)

	app.Get("/health", health(deps))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	if cfg.Limits.AuthRPS > 0 {
		api.Use("/auth", middleware.RateLimitPerIP(rate.Limit(cfg.Limits.AuthRPS), cfg.Limits.AuthBurst, 10*time.Minute))
	}

	guards := handlers.NewGuards(authService, log)
	handlers.NewAuthHandler(authService, cfg.App.CookieSecure).RegisterRoutes(api, guards)
	handlers.NewUserHandler(userService).RegisterRoutes(api, guards)
	handlers.NewProductHandler(productService).RegisterRoutes(api, guards)
	handlers.NewOrderHandler(orderService, checkoutService).RegisterRoutes(api, guards)

	return &App{
		Fiber:     app,
		Auth:      authService,
		Products:  productService,
		Inventory: services.NewInventoryConsumer(productService, log),
	}
}

func health(deps Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{"database": "ok"}
		status := fiber.StatusOK
		if err := deps.Store.Ping(ctx); err != nil {
			deps.Log.Warn("health check failed", zap.String("component", "database"), zap.Error(err))
			checks["database"] = "unavailable"
			status = fiber.StatusServiceUnavailable
		}
		if deps.Cache != nil {
			checks["cache"] = "ok"
			if err := deps.Cache.Ping(ctx); err != nil {
				checks["cache"] = "unavailable"
			}
		}
		checks["time"] = time.Now().UTC().Format(time.RFC3339)

		if status != fiber.StatusOK {
			return c.Status(status).JSON(response.Envelope{Data: checks, Message: "Service unavailable"})
		}
		return response.OK(c, checks, "healthy")
	}
}
