package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	JWT         JWTConfig      `mapstructure:"jwt"`
	Governance  GovernanceConfig `mapstructure:"governance"`
	Protocol    ProtocolConfig `mapstructure:"protocol"`
	Custody     CustodyConfig  `mapstructure:"custody"`
	Workers     WorkerConfig   `mapstructure:"workers"`
	Tracing     TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	QueryTimeout    int    `mapstructure:"query_timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret    string `mapstructure:"secret"`
	AccessTTL int    `mapstructure:"access_token_ttl"`
	Issuer    string `mapstructure:"issuer"`
}

// GovernanceConfig controls authorization for privileged operations
type GovernanceConfig struct {
	// RequireTOTP demands a one-time code on pause, resume and
	// challenge resolution in addition to a governance token.
	RequireTOTP bool   `mapstructure:"require_totp"`
	TOTPSecret  string `mapstructure:"totp_secret"`
}

// ProtocolConfig carries the bridge protocol parameters
type ProtocolConfig struct {
	SourceChainID       uint64 `mapstructure:"source_chain_id"`
	QuorumThresholdBps  int64  `mapstructure:"quorum_threshold_bps"`
	MinSignatures       int    `mapstructure:"min_signatures"`
	MinimumStake        string `mapstructure:"minimum_stake"`
	MaxValidators       int    `mapstructure:"max_validators"`
	MinimumBond         string `mapstructure:"minimum_bond"`
	StakeSymbol         string `mapstructure:"stake_symbol"`
	ChallengeWindowMins int    `mapstructure:"challenge_window_mins"`
	ChallengerRewardBps int64  `mapstructure:"challenger_reward_bps"`
	MaxDeadlineHours    int    `mapstructure:"max_deadline_hours"`
	PoolFeeBps          int64  `mapstructure:"pool_fee_bps"`
	InstantEstimateSecs int    `mapstructure:"instant_estimate_secs"`
	QuoteCacheTTLSecs   int    `mapstructure:"quote_cache_ttl_secs"`
	MetricsCacheTTLSecs int    `mapstructure:"metrics_cache_ttl_secs"`
}

// CustodyConfig contains the custody gateway API configuration
type CustodyConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Timeout      int    `mapstructure:"timeout"`
	MaxRetries   int    `mapstructure:"max_retries"`
	RatePerSec   int    `mapstructure:"rate_per_sec"`
	RateBurst    int    `mapstructure:"rate_burst"`
	Environment  string `mapstructure:"environment"`
}

// WorkerConfig contains background worker configuration
type WorkerConfig struct {
	SettlementMonitorSpec string `mapstructure:"settlement_monitor_spec"`
	SweepBatchSize        int    `mapstructure:"sweep_batch_size"`
}

// TracingConfig contains OpenTelemetry exporter configuration
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	CollectorURL string  `mapstructure:"collector_url"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Insecure     bool    `mapstructure:"insecure"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Read from config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Override specific environment variables
	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Build database URL if not provided
	if config.Database.URL == "" {
		config.Database.URL = fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			config.Database.User,
			config.Database.Password,
			config.Database.Host,
			config.Database.Port,
			config.Database.Name,
			config.Database.SSLMode,
		)
	}

	// Validate required fields
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 100)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "bridge_service")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.max_idle_conns", 25)
	viper.SetDefault("database.conn_max_lifetime", 3600)
	viper.SetDefault("database.query_timeout", 30)
	viper.SetDefault("database.max_retries", 3)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)

	// JWT defaults
	viper.SetDefault("jwt.access_token_ttl", 3600)
	viper.SetDefault("jwt.issuer", "bridge_service")

	// Governance defaults
	viper.SetDefault("governance.require_totp", false)

	// Protocol defaults
	viper.SetDefault("protocol.source_chain_id", 1)
	viper.SetDefault("protocol.quorum_threshold_bps", 6700)
	viper.SetDefault("protocol.min_signatures", 2)
	viper.SetDefault("protocol.minimum_stake", "1000")
	viper.SetDefault("protocol.max_validators", 100)
	viper.SetDefault("protocol.minimum_bond", "100")
	viper.SetDefault("protocol.stake_symbol", "BRG")
	viper.SetDefault("protocol.challenge_window_mins", 1440)
	viper.SetDefault("protocol.challenger_reward_bps", 5000)
	viper.SetDefault("protocol.max_deadline_hours", 72)
	viper.SetDefault("protocol.pool_fee_bps", 30)
	viper.SetDefault("protocol.instant_estimate_secs", 5)
	viper.SetDefault("protocol.quote_cache_ttl_secs", 30)
	viper.SetDefault("protocol.metrics_cache_ttl_secs", 60)

	// Custody defaults
	viper.SetDefault("custody.environment", "sandbox")
	viper.SetDefault("custody.base_url", "https://custody.sandbox.crosslane.io")
	viper.SetDefault("custody.timeout", 30)
	viper.SetDefault("custody.max_retries", 3)
	viper.SetDefault("custody.rate_per_sec", 20)
	viper.SetDefault("custody.rate_burst", 40)

	// Worker defaults
	viper.SetDefault("workers.settlement_monitor_spec", "*/5 * * * *")
	viper.SetDefault("workers.sweep_batch_size", 200)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.collector_url", "localhost:4317")
	viper.SetDefault("tracing.sample_rate", 0.1)
	viper.SetDefault("tracing.insecure", false)
}

func overrideFromEnv() {
	// Server
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			viper.Set("server.port", p)
		}
	}

	// Database
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		viper.Set("database.url", dbURL)
	}

	// JWT
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		viper.Set("jwt.secret", jwtSecret)
	}

	// Governance
	if totpSecret := os.Getenv("GOVERNANCE_TOTP_SECRET"); totpSecret != "" {
		viper.Set("governance.totp_secret", totpSecret)
		viper.Set("governance.require_totp", true)
	}

	// Protocol
	if chainID := os.Getenv("SOURCE_CHAIN_ID"); chainID != "" {
		if id, err := strconv.ParseUint(chainID, 10, 64); err == nil {
			viper.Set("protocol.source_chain_id", id)
		}
	}
	if threshold := os.Getenv("QUORUM_THRESHOLD_BPS"); threshold != "" {
		if bps, err := strconv.ParseInt(threshold, 10, 64); err == nil {
			viper.Set("protocol.quorum_threshold_bps", bps)
		}
	}
	if minStake := os.Getenv("MINIMUM_STAKE"); minStake != "" {
		viper.Set("protocol.minimum_stake", minStake)
	}
	if minBond := os.Getenv("MINIMUM_BOND"); minBond != "" {
		viper.Set("protocol.minimum_bond", minBond)
	}

	// Custody API
	if custodyKey := os.Getenv("CUSTODY_API_KEY"); custodyKey != "" {
		viper.Set("custody.api_key", custodyKey)
	}
	if custodyBaseURL := os.Getenv("CUSTODY_BASE_URL"); custodyBaseURL != "" {
		viper.Set("custody.base_url", custodyBaseURL)
	}
	if custodyEnv := os.Getenv("CUSTODY_ENVIRONMENT"); custodyEnv != "" {
		viper.Set("custody.environment", custodyEnv)
	}
	if custodyTimeout := os.Getenv("CUSTODY_TIMEOUT"); custodyTimeout != "" {
		if timeout, err := strconv.Atoi(custodyTimeout); err == nil {
			viper.Set("custody.timeout", timeout)
		}
	}

	// Tracing
	if collectorURL := os.Getenv("OTEL_COLLECTOR_URL"); collectorURL != "" {
		viper.Set("tracing.collector_url", collectorURL)
		viper.Set("tracing.enabled", true)
	}
}

func validate(config *Config) error {
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Database.URL == "" && (config.Database.Host == "" || config.Database.Name == "") {
		return fmt.Errorf("database configuration is incomplete")
	}

	// A threshold at or below half the voting power would let two
	// disjoint signer sets both clear quorum.
	if config.Protocol.QuorumThresholdBps <= 5000 || config.Protocol.QuorumThresholdBps > 10000 {
		return fmt.Errorf("quorum threshold must be within (5000, 10000] basis points")
	}

	if config.Protocol.MinSignatures < 1 {
		return fmt.Errorf("minimum signature count must be at least 1")
	}

	if config.Protocol.MaxValidators < 0 {
		return fmt.Errorf("max validators must be non-negative")
	}

	if config.Protocol.ChallengeWindowMins <= 0 {
		return fmt.Errorf("challenge window must be positive")
	}

	if config.Protocol.ChallengerRewardBps < 0 || config.Protocol.ChallengerRewardBps > 10000 {
		return fmt.Errorf("challenger reward must be within [0, 10000] basis points")
	}

	if config.Governance.RequireTOTP && config.Governance.TOTPSecret == "" {
		return fmt.Errorf("governance TOTP secret is required when TOTP is enforced")
	}

	return nil
}
