package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Market    MarketConfig
	Simulator SimulatorConfig
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	FeedInterval time.Duration `mapstructure:"feed_interval"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	LogLevel     string        `mapstructure:"log_level"`
}

// DatabaseConfig defines the database connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string `mapstructure:"sslmode"`
}

// MarketConfig defines the quote providers and how often they are polled.
type MarketConfig struct {
	RefreshInterval time.Duration           `mapstructure:"refresh_interval"`
	RequestTimeout  time.Duration           `mapstructure:"request_timeout"`
	MaxAttempts     int                     `mapstructure:"max_attempts"`
	RetryBaseDelay  time.Duration           `mapstructure:"retry_base_delay"`
	Sources         map[string]SourceConfig `mapstructure:"sources"`
	CryptoTokens    []string                `mapstructure:"crypto_tokens"`
	Rates           RatesConfig             `mapstructure:"rates"`
	InflationURL    string                  `mapstructure:"inflation_url"`
}

// SourceConfig defines settings for a specific quote provider.
type SourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

// RatesConfig defines the yield offer endpoints.
type RatesConfig struct {
	BaseURL string       `mapstructure:"base_url"`
	Wallets []WalletFund `mapstructure:"wallets"`
}

// WalletFund maps a wallet brand to the money-market fund backing its remunerated account.
type WalletFund struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
	Logo string `mapstructure:"logo"`
}

// SimulatorConfig defines the calculator defaults.
type SimulatorConfig struct {
	InstallmentTolerance    float64 `mapstructure:"installment_tolerance"`
	DefaultWalletRate       float64 `mapstructure:"default_wallet_rate"`
	DefaultTermDepositRate  float64 `mapstructure:"default_term_deposit_rate"`
	DefaultMonthlyInflation float64 `mapstructure:"default_monthly_inflation"`
	MaxInstallments         int     `mapstructure:"max_installments"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.DBName)
	if d.SSLMode != "" {
		dsn += "?sslmode=" + d.SSLMode
	}
	return dsn
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.feed_interval", 5*time.Minute)
	v.SetDefault("server.session_ttl", 30*time.Minute)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "finboard")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("market.refresh_interval", 5*time.Minute)
	v.SetDefault("market.request_timeout", 15*time.Second)
	v.SetDefault("market.max_attempts", 3)
	v.SetDefault("market.retry_base_delay", time.Second)
	v.SetDefault("market.crypto_tokens", []string{"usdt", "usdc", "btc", "eth"})
	v.SetDefault("market.rates.base_url", "https://api.comparatasas.ar")
	v.SetDefault("market.inflation_url", "https://apis.datos.gob.ar/series/api/series/?metadata=full&collapse=month&ids=103.1_I2N_2016_M_19&limit=5000&representation_mode=percent_change&start=0")
	v.SetDefault("market.sources", map[string]any{
		"dolarapi":     map[string]any{"enabled": true, "base_url": "https://dolarapi.com"},
		"comparadolar": map[string]any{"enabled": true, "base_url": "https://api.comparadolar.ar"},
		"cryptoquotes": map[string]any{"enabled": true, "base_url": "https://api.comparadolar.ar"},
		"pix":          map[string]any{"enabled": true, "base_url": "https://pix.ferminrp.com"},
		"coingecko":    map[string]any{"enabled": true, "base_url": "https://api.coingecko.com"},
		"cedears":      map[string]any{"enabled": true, "base_url": "https://api.cedears.ar"},
		"acciones":     map[string]any{"enabled": true, "base_url": "https://api.cedears.ar"},
	})

	v.SetDefault("simulator.installment_tolerance", 0.05)
	v.SetDefault("simulator.default_wallet_rate", 30.0)
	v.SetDefault("simulator.default_term_deposit_rate", 35.0)
	v.SetDefault("simulator.default_monthly_inflation", 3.0)
	v.SetDefault("simulator.max_installments", 360)
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error: defaults and the environment still apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("finboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
