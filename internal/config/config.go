// Package config loads per-process settings from the environment. A .env file
// in the working directory is read first when present; real environment
// variables win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

type Database struct {
	URL    string
	Schema string
}

type Telemetry struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
	Enabled        bool
}

type Auth struct {
	JWTSecret []byte
}

type Orders struct {
	Port               string
	DB                 Database
	Telemetry          Telemetry
	Auth               Auth
	KafkaBrokers       []string
	NotificationsTopic string
	ShippingAPIURL     string
	ShippingAPIKey     string
	ShippingTimeout    time.Duration
	FulfillClaimTTL    time.Duration
	StoreName          string
	OutboxSchedule     string
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

func LoadOrders() (Orders, error) {
	cfg := Orders{
		Port:               envDefault("PORT", "8081"),
		DB:                 loadDatabase(),
		Telemetry:          loadTelemetry("orders"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		NotificationsTopic: envDefault("NOTIFICATIONS_TOPIC", "order.notifications"),
		ShippingAPIURL:     envDefault("SHIPPING_API_URL", "https://api.shipengine.com/v1/labels"),
		ShippingAPIKey:     os.Getenv("SHIPPING_API_KEY"),
		StoreName:          envDefault("STORE_NAME", "Storefront"),
		OutboxSchedule:     envDefault("OUTBOX_SCHEDULE", "@every 2s"),
	}

	var errs []error
	auth, err := loadAuth()
	errs = append(errs, err)
	cfg.Auth = auth

	cfg.ShippingTimeout, err = durationDefault("SHIPPING_TIMEOUT", 10*time.Second)
	errs = append(errs, err)
	cfg.FulfillClaimTTL, err = durationDefault("FULFILL_CLAIM_TTL", 2*time.Minute)
	errs = append(errs, err)
	cfg.OutboxBatchSize, err = intDefault("OUTBOX_BATCH_SIZE", 50)
	errs = append(errs, err)
	cfg.OutboxMaxAttempts, err = intDefault("OUTBOX_MAX_ATTEMPTS", 10)
	errs = append(errs, err)

	if cfg.DB.URL == "" {
		errs = append(errs, errors.New("POSTGRES_URL environment variable is required"))
	}
	if cfg.ShippingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHIPPING_TIMEOUT must be positive, got %s", cfg.ShippingTimeout))
	}
	if cfg.FulfillClaimTTL <= cfg.ShippingTimeout {
		errs = append(errs, fmt.Errorf("FULFILL_CLAIM_TTL (%s) must exceed SHIPPING_TIMEOUT (%s)", cfg.FulfillClaimTTL, cfg.ShippingTimeout))
	}

	return cfg, errors.Join(errs...)
}

type Catalog struct {
	Port      string
	DB        Database
	Telemetry Telemetry
	Auth      Auth
}

func LoadCatalog() (Catalog, error) {
	cfg := Catalog{
		Port:      envDefault("PORT", "8082"),
		DB:        loadDatabase(),
		Telemetry: loadTelemetry("catalog"),
	}

	auth, err := loadAuth()
	cfg.Auth = auth
	errs := []error{err}
	if cfg.DB.URL == "" {
		errs = append(errs, errors.New("POSTGRES_URL environment variable is required"))
	}
	return cfg, errors.Join(errs...)
}

type Gateway struct {
	Port              string
	Telemetry         Telemetry
	OrdersServiceURL  string
	CatalogServiceURL string
	UpstreamTimeout   time.Duration
}

func LoadGateway() (Gateway, error) {
	cfg := Gateway{
		Port:              envDefault("PORT", "8080"),
		Telemetry:         loadTelemetry("gateway"),
		OrdersServiceURL:  os.Getenv("ORDERS_SERVICE_URL"),
		CatalogServiceURL: os.Getenv("CATALOG_SERVICE_URL"),
	}

	var err error
	cfg.UpstreamTimeout, err = durationDefault("UPSTREAM_TIMEOUT", 30*time.Second)
	errs := []error{err}
	if cfg.OrdersServiceURL == "" {
		errs = append(errs, errors.New("ORDERS_SERVICE_URL is required"))
	}
	if cfg.CatalogServiceURL == "" {
		errs = append(errs, errors.New("CATALOG_SERVICE_URL is required"))
	}
	return cfg, errors.Join(errs...)
}

type Worker struct {
	KafkaBrokers       []string
	NotificationsTopic string
	ConsumerGroup      string
	EmailServiceURL    string
	Telemetry          Telemetry
}

func LoadWorker() (Worker, error) {
	cfg := Worker{
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		NotificationsTopic: envDefault("NOTIFICATIONS_TOPIC", "order.notifications"),
		ConsumerGroup:      envDefault("CONSUMER_GROUP", "notification-worker"),
		EmailServiceURL:    os.Getenv("EMAIL_SERVICE_URL"),
		Telemetry:          loadTelemetry("worker"),
	}

	var errs []error
	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS environment variable is required"))
	}
	if cfg.EmailServiceURL == "" {
		errs = append(errs, errors.New("EMAIL_SERVICE_URL environment variable is required"))
	}
	return cfg, errors.Join(errs...)
}

type Email struct {
	Port     string
	SMTPAddr string
	SMTPUser string
	SMTPPass string
	From     string
}

func LoadEmail() Email {
	return Email{
		Port:     envDefault("PORT", "8084"),
		SMTPAddr: os.Getenv("SMTP_ADDR"),
		SMTPUser: os.Getenv("SMTP_USERNAME"),
		SMTPPass: os.Getenv("SMTP_PASSWORD"),
		From:     envDefault("MAIL_FROM", "no-reply@storefront.local"),
	}
}

type Migrate struct {
	DB        Database
	SourceURL string
}

func LoadMigrate() (Migrate, error) {
	cfg := Migrate{
		DB:        loadDatabase(),
		SourceURL: envDefault("MIGRATIONS_PATH", "file://migrations"),
	}
	if cfg.DB.URL == "" {
		return cfg, errors.New("POSTGRES_URL environment variable is required")
	}
	return cfg, nil
}

func loadDatabase() Database {
	return Database{
		URL:    os.Getenv("POSTGRES_URL"),
		Schema: envDefault("POSTGRES_SCHEMA", "storefront"),
	}
}

func loadTelemetry(service string) Telemetry {
	return Telemetry{
		ServiceName:    envDefault("OTEL_SERVICE_NAME", service),
		ServiceVersion: envDefault("SERVICE_VERSION", "0.1.0"),
		OTLPEndpoint:   envDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Enabled:        isTruthy(envDefault("OTEL_ENABLED", "true")),
	}
}

func loadAuth() (Auth, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Auth{}, errors.New("JWT_SECRET environment variable is required")
	}
	return Auth{JWTSecret: []byte(secret)}, nil
}

func envDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func durationDefault(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intDefault(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback, fmt.Errorf("%s: expected a positive integer, got %q", key, raw)
	}
	return n, nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
