package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvDevelopment is the only environment in which internal error messages
// are returned to clients.
const EnvDevelopment = "development"

type App struct {
	Name         string `mapstructure:"name"`
	Env          string `mapstructure:"env"`
	Port         int    `mapstructure:"port"`
	ClientURL    string `mapstructure:"client_url"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
	BodyLimitMB  int    `mapstructure:"body_limit_mb"`
}

type FileRotate struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type Log struct {
	Level  string     `mapstructure:"level"`
	JSON   bool       `mapstructure:"json"`
	Rotate FileRotate `mapstructure:"rotate"`
}

type DB struct {
	Driver             string `mapstructure:"driver"` // mongo, postgres, mysql or sqlite
	DSN                string `mapstructure:"dsn"`
	Database           string `mapstructure:"database"` // mongo database name
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	LogLevel           string `mapstructure:"log_level"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
}

type JWT struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

type Stripe struct {
	SecretKey     string        `mapstructure:"secret_key"`
	Currency      string        `mapstructure:"currency"`
	SuccessPath   string        `mapstructure:"success_path"`
	CancelPath    string        `mapstructure:"cancel_path"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxConcurrent int64         `mapstructure:"max_concurrent"`
}

type Order struct {
	TaxRate               float64 `mapstructure:"tax_rate"`
	ShippingFlat          float64 `mapstructure:"shipping_flat"`
	FreeShippingThreshold float64 `mapstructure:"free_shipping_threshold"`
}

type RabbitMQ struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

type Redis struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ProductTTL time.Duration `mapstructure:"product_ttl"`
}

type Limits struct {
	AuthRPS   float64 `mapstructure:"auth_rps"`
	AuthBurst int     `mapstructure:"auth_burst"`
}

type Config struct {
	App      App      `mapstructure:"app"`
	Log      Log      `mapstructure:"log"`
	DB       DB       `mapstructure:"db"`
	JWT      JWT      `mapstructure:"jwt"`
	Stripe   Stripe   `mapstructure:"stripe"`
	Order    Order    `mapstructure:"order"`
	RabbitMQ RabbitMQ `mapstructure:"rabbitmq"`
	Redis    Redis    `mapstructure:"redis"`
	Limits   Limits   `mapstructure:"limits"`
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "storefront")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.port", 5000)
	v.SetDefault("app.client_url", "http://localhost:3000")
	v.SetDefault("app.cookie_secure", false)
	v.SetDefault("app.body_limit_mb", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.enable", false)
	v.SetDefault("log.rotate.filename", "logs/storefront.log")
	v.SetDefault("log.rotate.max_size_mb", 100)
	v.SetDefault("log.rotate.max_backups", 7)
	v.SetDefault("log.rotate.max_age_days", 30)
	v.SetDefault("log.rotate.compress", true)

	v.SetDefault("db.driver", "mongo")
	v.SetDefault("db.dsn", "mongodb://localhost:27017")
	v.SetDefault("db.database", "storefront")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.log_level", "warn")
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "storefront")
	v.SetDefault("jwt.ttl", 30*24*time.Hour)
	v.SetDefault("jwt.cookie_name", "jwt")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("stripe.success_path", "/order/%s?success=true")
	v.SetDefault("stripe.cancel_path", "/order/%s?canceled=true")
	v.SetDefault("stripe.timeout", 15*time.Second)
	v.SetDefault("stripe.max_concurrent", 16)

	v.SetDefault("order.tax_rate", 0.15)
	v.SetDefault("order.shipping_flat", 10)
	v.SetDefault("order.free_shipping_threshold", 100)

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", "storefront.orders")
	v.SetDefault("rabbitmq.queue", "storefront.inventory")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.product_ttl", 5*time.Minute)

	v.SetDefault("limits.auth_rps", 5)
	v.SetDefault("limits.auth_burst", 10)
}

// Load reads an optional .env file, then the YAML config at path (or
// CONFIG_PATH), then STOREFRONT_* environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "mongo", "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}
	if c.JWT.Secret == "" {
		if !c.IsDevelopment() {
			return errors.New("jwt.secret is required outside development")
		}
		c.JWT.Secret = "dev-secret-change-me"
	}
	if c.Order.TaxRate < 0 || c.Order.ShippingFlat < 0 {
		return errors.New("order tax rate and shipping must not be negative")
	}
	return nil
}
