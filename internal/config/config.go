package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vidinfra/tariffd/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Redis      RedisConfig      `validate:"required"`
	Cache      CacheConfig      `validate:"required"`
	Billing    BillingConfig
	Accounting AccountingConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
	// EnterpriseLicense marks self hosted installations activated by a license
	// file instead of a subscription.
	EnterpriseLicense bool
	LicenseTrialDays  int
}

// IsStandalone reports whether this is a single-portal deployment.
func (d DeploymentConfig) IsStandalone() bool {
	return d.Mode == types.ModeStandalone
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	// TariffTTL is the baseline lifetime of a computed tariff entry.
	TariffTTL time.Duration
	// MaxTariffTTL caps the adaptive TTL growth for standalone deployments.
	MaxTariffTTL time.Duration
	// ReadTimeout bounds distributed cache reads; on expiry the read is
	// treated as a miss.
	ReadTimeout time.Duration
}

type BillingConfig struct {
	APIURL           string
	APIKey           string
	PaymentDelayDays int
	TrialEnabled     bool
	TrialPeriodDays  int
	// DefaultQuotaID is assigned to tenants that have no quota rows yet.
	DefaultQuotaID int
}

// IsConfigured reports whether a billing provider endpoint is set up.
func (b BillingConfig) IsConfigured() bool {
	return b.APIURL != ""
}

type AccountingConfig struct {
	APIURL           string
	APIKey           string
	LongPollInterval time.Duration
	LongPollAttempts uint64
}

func (a AccountingConfig) IsConfigured() bool {
	return a.APIURL != ""
}

func NewConfig() (*Configuration, error) {
	// Best effort .env load for local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tariffd")

	setDefaults(v)

	v.SetEnvPrefix("TARIFFD")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeSaaS))
	v.SetDefault("deployment.licensetrialdays", 30)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.tariffttl", "5m")
	v.SetDefault("cache.maxtariffttl", "15m")
	v.SetDefault("cache.readtimeout", "2s")
	v.SetDefault("billing.paymentdelaydays", 0)
	v.SetDefault("billing.trialenabled", false)
	v.SetDefault("billing.trialperioddays", 30)
	v.SetDefault("billing.defaultquotaid", -1)
	v.SetDefault("accounting.longpollinterval", "2s")
	v.SetDefault("accounting.longpollattempts", 15)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal, LicenseTrialDays: 30},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cache: CacheConfig{
			Enabled:      true,
			TariffTTL:    5 * time.Minute,
			MaxTariffTTL: 15 * time.Minute,
			ReadTimeout:  2 * time.Second,
		},
		Billing: BillingConfig{
			TrialPeriodDays: 30,
			DefaultQuotaID:  -1,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
