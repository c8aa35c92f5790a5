// Package config loads the service configuration from YAML, .env and the environment.
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

// Conf is the process-wide configuration populated by the CLI. Only cmd/ reads it;
// services receive the sections they need at construction time.
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	LLM           LLMConfig           `mapstructure:"llm"`
	AI            AIConfig            `mapstructure:"ai"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig selects the gorm driver and the redis cache.
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // postgres | mysql | sqlite
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// SettingsTTLSeconds bounds how long parsed firm settings stay cached.
	SettingsTTLSeconds int `mapstructure:"settings_ttl_seconds"`
}

// JWTConfig holds the shared secret of the hosted auth provider.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	LinkTTLMinutes  int    `mapstructure:"link_ttl_minutes"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
}

// AIConfig holds the assistant limits. It is passed explicitly to the chat
// orchestrator and the notification engine.
type AIConfig struct {
	AssistantName        string             `mapstructure:"assistant_name"`
	Provider             string             `mapstructure:"provider"`
	Model                string             `mapstructure:"model"`
	MaxHistory           int                `mapstructure:"max_history"`
	MaxOutputTokens      int                `mapstructure:"max_output_tokens"`
	Temperature          *float64           `mapstructure:"temperature"`
	MaxToolSteps         int                `mapstructure:"max_tool_steps"`
	MaxContextChars      int                `mapstructure:"max_context_chars"`
	PortalTimeoutSeconds int                `mapstructure:"portal_timeout_seconds"`
	RateLimit            RateLimitConfig    `mapstructure:"rate_limit"`
	Notification         NotificationConfig `mapstructure:"notification"`
}

// RateLimitConfig bounds user messages per trailing window.
type RateLimitConfig struct {
	MaxMessages   int `mapstructure:"max_messages"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// NotificationConfig tunes the single-shot generation of proactive messages.
type NotificationConfig struct {
	MaxOutputTokens int      `mapstructure:"max_output_tokens"`
	Temperature     *float64 `mapstructure:"temperature"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds"`
}

// SchedulerConfig drives the deadline scanner.
type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	DeadlineCron       string `mapstructure:"deadline_cron"`
	DeadlineWindowDays int    `mapstructure:"deadline_window_days"`
}

// Window returns the rate limit window as a duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// PortalTimeout is the deadline applied to one "ask EVA" portal turn.
func (c AIConfig) PortalTimeout() time.Duration {
	return time.Duration(c.PortalTimeoutSeconds) * time.Second
}

// Float returns a pointer to v. Temperature fields are pointers so that an
// explicit 0 is distinguishable from an unset value.
func Float(v float64) *float64 {
	return &v
}

// DefaultAIConfig returns the documented assistant defaults.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		AssistantName:        "EVA",
		Provider:             "openai",
		Model:                "gpt-4o-mini",
		MaxHistory:           20,
		MaxOutputTokens:      2000,
		Temperature:          Float(0.7),
		MaxToolSteps:         5,
		MaxContextChars:      2000,
		PortalTimeoutSeconds: 30,
		RateLimit: RateLimitConfig{
			MaxMessages:   50,
			WindowMinutes: 60,
		},
		Notification: NotificationConfig{
			MaxOutputTokens: 500,
			Temperature:     Float(0.7),
			TimeoutSeconds:  30,
		},
	}
}

// WithDefaults fills zero fields from DefaultAIConfig. Temperatures are only
// filled when unset.
func (c AIConfig) WithDefaults() AIConfig {
	d := DefaultAIConfig()
	if c.AssistantName == "" {
		c.AssistantName = d.AssistantName
	}
	if c.Provider == "" {
		c.Provider = d.Provider
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = d.MaxHistory
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = d.MaxOutputTokens
	}
	if c.Temperature == nil {
		c.Temperature = d.Temperature
	}
	if c.MaxToolSteps <= 0 {
		c.MaxToolSteps = d.MaxToolSteps
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = d.MaxContextChars
	}
	if c.PortalTimeoutSeconds <= 0 {
		c.PortalTimeoutSeconds = d.PortalTimeoutSeconds
	}
	if c.RateLimit.MaxMessages <= 0 {
		c.RateLimit.MaxMessages = d.RateLimit.MaxMessages
	}
	if c.RateLimit.WindowMinutes <= 0 {
		c.RateLimit.WindowMinutes = d.RateLimit.WindowMinutes
	}
	if c.Notification.MaxOutputTokens <= 0 {
		c.Notification.MaxOutputTokens = d.Notification.MaxOutputTokens
	}
	if c.Notification.Temperature == nil {
		c.Notification.Temperature = d.Notification.Temperature
	}
	if c.Notification.TimeoutSeconds <= 0 {
		c.Notification.TimeoutSeconds = d.Notification.TimeoutSeconds
	}
	return c
}

// Load reads .env (optional), the YAML file and PRIMA_* environment overrides.
func Load(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PRIMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = cfg.LLM.Model
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = cfg.LLM.Provider
	}
	cfg.AI = cfg.AI.WithDefaults()
	if cfg.Scheduler.DeadlineCron == "" {
		cfg.Scheduler.DeadlineCron = "0 8 * * *"
	}
	if cfg.Scheduler.DeadlineWindowDays <= 0 {
		cfg.Scheduler.DeadlineWindowDays = 3
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "prima-facie-notifications"
	}
	if cfg.Database.Redis.SettingsTTLSeconds <= 0 {
		cfg.Database.Redis.SettingsTTLSeconds = 300
	}
	if cfg.MinIO.LinkTTLMinutes <= 0 {
		cfg.MinIO.LinkTTLMinutes = 15
	}
	return cfg, nil
}
