package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration for the orders service.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Gateway      GatewayConfig
	Notification ServiceConfig
	Pickup       PickupConfig
	Auth         AuthConfig
	Features     FeaturesConfig
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Port         int           `envconfig:"SERVER_PORT" default:"8082"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Host         string        `envconfig:"DB_HOST" default:"localhost"`
	Port         int           `envconfig:"DB_PORT" default:"5432"`
	User         string        `envconfig:"DB_USER" default:"quickbite"`
	Password     string        `envconfig:"DB_PASSWORD" default:"quickbite"`
	Name         string        `envconfig:"DB_NAME" default:"quickbite_orders"`
	SSLMode      string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	MaxLifetime  time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD" default:""`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_ORDER_TTL" default:"5m"`
}

type KafkaConfig struct {
	Brokers       []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic   string   `envconfig:"KAFKA_ORDERS_TOPIC" default:"quickbite.orders"`
	PaymentsTopic string   `envconfig:"KAFKA_PAYMENTS_TOPIC" default:"quickbite.payments"`
	ConsumerGroup string   `envconfig:"KAFKA_CONSUMER_GROUP" default:"orders-service"`
}

// GatewayConfig configures the hosted payment gateway integration.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"GATEWAY_URL" default:"https://api.payment-gateway.example"`
	APIKey        string        `envconfig:"GATEWAY_API_KEY" default:""`
	Timeout       time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"30s"`
	WebhookSecret string        `envconfig:"GATEWAY_WEBHOOK_SECRET" default:""`
	SuccessURL    string        `envconfig:"GATEWAY_SUCCESS_URL" default:"http://localhost:3000/order/confirmed"`
	CancelURL     string        `envconfig:"GATEWAY_CANCEL_URL" default:"http://localhost:3000/cart"`
}

type ServiceConfig struct {
	BaseURL string        `envconfig:"NOTIFICATION_SERVICE_URL" default:"http://localhost:8085"`
	APIKey  string        `envconfig:"NOTIFICATION_API_KEY" default:""`
	Timeout time.Duration `envconfig:"NOTIFICATION_TIMEOUT" default:"10s"`
}

// PickupConfig configures pickup token signing.
type PickupConfig struct {
	SigningKey string `envconfig:"PICKUP_SIGNING_KEY" default:""`
}

// AuthConfig holds the server-verified staff and admin bearer tokens.
type AuthConfig struct {
	StaffToken string `envconfig:"STAFF_API_TOKEN" default:""`
	AdminToken string `envconfig:"ADMIN_API_TOKEN" default:""`
}

type FeaturesConfig struct {
	EnableOrderCaching    bool `envconfig:"ENABLE_ORDER_CACHING" default:"true"`
	EnableOrderEvents     bool `envconfig:"ENABLE_ORDER_EVENTS" default:"true"`
	EnablePaymentConsumer bool `envconfig:"ENABLE_PAYMENT_CONSUMER" default:"true"`
	EnableNotifications   bool `envconfig:"ENABLE_NOTIFICATIONS" default:"true"`
}

// Load reads configuration from the environment, honoring a local .env file
// if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks startup-fatal configuration. The pickup signing key and the
// webhook secret guard every token and webhook code path, so the service
// refuses to start without them.
func (c *Config) Validate() error {
	if c.Pickup.SigningKey == "" {
		return fmt.Errorf("PICKUP_SIGNING_KEY must be set")
	}
	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("GATEWAY_WEBHOOK_SECRET must be set")
	}
	if c.Auth.StaffToken == "" {
		return fmt.Errorf("STAFF_API_TOKEN must be set")
	}
	if c.Auth.AdminToken == "" {
		return fmt.Errorf("ADMIN_API_TOKEN must be set")
	}
	return nil
}
