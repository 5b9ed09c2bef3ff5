// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Screening     ScreeningConfig    `mapstructure:"screening"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string `mapstructure:"address"`
	ReadTimeout    int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int    `mapstructure:"write_timeout"` // milliseconds
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig holds the blob store settings for applicant documents.
type StorageConfig struct {
	S3 struct {
		Region        string `mapstructure:"region"`
		Bucket        string `mapstructure:"bucket"`
		Endpoint      string `mapstructure:"endpoint"` // optional, for S3-compatible stores
		PublicBaseURL string `mapstructure:"public_base_url"`
		KeyPrefix     string `mapstructure:"key_prefix"`
	} `mapstructure:"s3"`
}

// NotificationConfig holds settings for milestone emails and status events.
type NotificationConfig struct {
	AWSRegion string `mapstructure:"aws_region"`
	Email     struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	StatusEvents struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"status_events"`
}

// ScreeningConfig holds conversation engine settings.
type ScreeningConfig struct {
	SchedulingURL   string `mapstructure:"scheduling_url"`
	TurnTimeout     int    `mapstructure:"turn_timeout"`    // milliseconds
	TurnLockTTL     int    `mapstructure:"turn_lock_ttl"`   // milliseconds
	JobCatalogTTL   int    `mapstructure:"job_catalog_ttl"` // milliseconds
	SessionKeyspace string `mapstructure:"session_keyspace"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
