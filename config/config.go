package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Custody  CustodyConfig  `mapstructure:"custody"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AMQP     AMQPConfig     `mapstructure:"amqp"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LedgerConfig identifies the ledger network and the operator account whose
// key funds and signs account-creation transactions.
type LedgerConfig struct {
	Network            string        `mapstructure:"network"`     // testnet, mainnet
	OperatorID         string        `mapstructure:"operator_id"` // e.g. 0.0.12345
	OperatorKey        string        `mapstructure:"operator_key"`
	MirrorBaseURL      string        `mapstructure:"mirror_base_url"` // empty = derived from network
	InitialBalanceHbar float64       `mapstructure:"initial_balance_hbar"`
	MaxTransferHbar    float64       `mapstructure:"max_transfer_hbar"`
	VerifyGracePeriod  time.Duration `mapstructure:"verify_grace_period"`
	VerifyMaxAttempts  int           `mapstructure:"verify_max_attempts"`
	WorkerPoolSize     int           `mapstructure:"worker_pool_size"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// MirrorURL returns the observer base URL, defaulting by network.
func (l LedgerConfig) MirrorURL() string {
	if l.MirrorBaseURL != "" {
		return l.MirrorBaseURL
	}
	if strings.EqualFold(l.Network, "mainnet") {
		return "https://mainnet.mirrornode.hedera.com"
	}
	return "https://testnet.mirrornode.hedera.com"
}

// CustodyConfig carries the process-wide master key for signing-key
// encryption. Either Key (64-char hex) or Passphrase+Salt (PBKDF2 derived)
// must be set. Rotation is out of scope.
type CustodyConfig struct {
	Key        string `mapstructure:"key"`
	Passphrase string `mapstructure:"passphrase"`
	Salt       string `mapstructure:"salt"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// AMQPConfig configures the fire-and-forget notification publisher.
// An empty URL disables publishing.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// SweepConfig drives the periodic reconciliation sweep.
type SweepConfig struct {
	Schedule  string        `mapstructure:"schedule"` // cron expression
	OlderThan time.Duration `mapstructure:"older_than"`
	BatchSize int           `mapstructure:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout"` // budget for one full sweep run
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: DSE_ (Donation
// Settlement Engine). Nested keys use underscore: DSE_LEDGER_OPERATOR_ID,
// DSE_CUSTODY_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "settlement_engine")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ledger.network", "testnet")
	v.SetDefault("ledger.operator_id", "")
	v.SetDefault("ledger.operator_key", "")
	v.SetDefault("ledger.mirror_base_url", "")
	v.SetDefault("ledger.initial_balance_hbar", 1.0)
	v.SetDefault("ledger.max_transfer_hbar", 10000.0)
	v.SetDefault("ledger.verify_grace_period", "5s")
	v.SetDefault("ledger.verify_max_attempts", 3)
	v.SetDefault("ledger.worker_pool_size", 8)
	v.SetDefault("ledger.request_timeout", "30s")
	v.SetDefault("custody.key", "")
	v.SetDefault("custody.passphrase", "")
	v.SetDefault("custody.salt", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "donation-settlement-engine")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "settlement_events")
	v.SetDefault("sweep.schedule", "@every 5m")
	v.SetDefault("sweep.older_than", "2m")
	v.SetDefault("sweep.batch_size", 50)
	v.SetDefault("sweep.timeout", "4m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: DSE_LEDGER_NETWORK -> ledger.network
	v.SetEnvPrefix("DSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
