package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/types"
)

// Configuration is the root config for the billing service, loaded from
// config files and environment variables (env wins).
type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment" validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Billing    BillingConfig    `mapstructure:"billing"`
	TaxService TaxServiceConfig `mapstructure:"tax_service"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" default:":8080"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open_conns"`
	MaxIdle  int    `mapstructure:"max_idle_conns"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ClientID      string   `mapstructure:"client_id"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	Topic         string   `mapstructure:"topic"`
	TLS           bool     `mapstructure:"tls"`
	UseSASL       bool     `mapstructure:"use_sasl"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`
	SASLUser      string   `mapstructure:"sasl_user"`
	SASLPassword  string   `mapstructure:"sasl_password"`
}

// BillingConfig carries merchant-level billing settings.
type BillingConfig struct {
	// InvoicePrefix is the provider prefix on generated invoice numbers.
	InvoicePrefix string `mapstructure:"invoice_prefix" default:"SF"`
	// InvoiceDueDays is the default due date offset for new invoices.
	InvoiceDueDays int `mapstructure:"invoice_due_days" default:"7"`
	// ExtendedTaxProviderEnabled routes US invoices to the external tax
	// service instead of the internal rate table.
	ExtendedTaxProviderEnabled bool `mapstructure:"extended_tax_provider_enabled"`
}

// TaxServiceConfig configures the external tax provider client.
type TaxServiceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" default:"10"`
	MaxRetries     int    `mapstructure:"max_retries" default:"2"`
}

// NewConfig loads configuration from ./config/config.yaml (if present) and
// environment variables prefixed with BILLING_.
func NewConfig() (*Configuration, error) {
	// Best effort .env load for local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read configuration file").
				Mark(ierr.ErrSystem)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrSystem)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.RunModeServer)
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "billing")
	v.SetDefault("kafka.consumer_group", "billing-invoice-worker")
	v.SetDefault("kafka.topic", "plan_change_invoice")
	v.SetDefault("billing.invoice_prefix", "SF")
	v.SetDefault("billing.invoice_due_days", 7)
	v.SetDefault("tax_service.timeout_seconds", 10)
	v.SetDefault("tax_service.max_retries", 2)
}

// Validate checks the configuration using struct tags.
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return ierr.WithError(err).
			WithHint("Configuration validation failed").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDefaultConfig returns a configuration suitable for tests and scripts.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.RunModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Server:     ServerConfig{Address: ":8080"},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ClientID:      "billing-test",
			ConsumerGroup: "billing-invoice-worker-test",
			Topic:         "plan_change_invoice",
		},
		Billing: BillingConfig{
			InvoicePrefix:  "SF",
			InvoiceDueDays: 7,
		},
		TaxService: TaxServiceConfig{
			TimeoutSeconds: 10,
			MaxRetries:     2,
		},
	}
}
