package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	S3          S3Config          `mapstructure:"s3"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Log         LogConfig         `mapstructure:"log"`
	Negotiation NegotiationConfig `mapstructure:"negotiation"`
	Sweep       SweepConfig       `mapstructure:"sweep"`
	Archive     ArchiveConfig     `mapstructure:"archive"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT verification settings. Tokens are issued by the host platform.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// RedisConfig points at the redis used for the sweep lease. Empty Addr disables the lease.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // dev | prod
}

// NegotiationConfig tunes the pending-update protocol.
type NegotiationConfig struct {
	PendingExpiry time.Duration `mapstructure:"pending_expiry"`
}

// SweepConfig tunes the expiry/cleanup job.
type SweepConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	RejectedRetention time.Duration `mapstructure:"rejected_retention"`
	OnRead            bool          `mapstructure:"on_read"` // also sweep a client's rows when their list is read
	LeaseTTL          time.Duration `mapstructure:"lease_ttl"`
}

// ArchiveConfig controls archiving of purged assignments to object storage.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Handling ---
	// server.address -> SERVER_ADDRESS, negotiation.pending_expiry -> NEGOTIATION_PENDING_EXPIRY
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Defaults ---
	v.SetDefault("server.address", ":8080")
	v.SetDefault("database.uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("database.name", "coaching_programmes")
	// Keys without a default still need registering for env-only setups.
	for _, key := range []string{"s3.endpoint", "s3.region", "s3.access_key_id", "s3.secret_access_key", "s3.bucket_name", "redis.password"} {
		v.SetDefault(key, "")
	}
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.mode", "dev")
	v.SetDefault("negotiation.pending_expiry", "336h") // 14 days
	v.SetDefault("sweep.interval", "1h")
	v.SetDefault("sweep.rejected_retention", "168h") // 7 days
	v.SetDefault("sweep.on_read", true)
	v.SetDefault("sweep.lease_ttl", "5m")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "archive/assignments")

	// --- Read Config File ---
	// A missing file is fine; env vars and defaults still apply.
	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	// Duration strings ("336h") decode straight into time.Duration fields.
	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	return config, nil
}
