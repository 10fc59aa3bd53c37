package config

import (
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/sirliboyev-uz/ai-blog-agent/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logger    logger.Config   `yaml:"logger"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Images    ImagesConfig    `yaml:"images"`
	Publish   PublishConfig   `yaml:"publish"`
	Sites     []SiteConfig    `yaml:"sites"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
	Auth      AuthConfig      `yaml:"auth"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetRange    string `yaml:"sheet_range"`
	APIKey        string `yaml:"api_key"`
	AccessToken   string `yaml:"access_token"`
}

type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
	ImageSize  string `yaml:"image_size"`
}

type ImagesConfig struct {
	PexelsAPIKey      string `yaml:"pexels_api_key"`
	UnsplashAccessKey string `yaml:"unsplash_access_key"`
	TimeoutPerSource  string `yaml:"timeout_per_source"`
}

type PublishConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffBase string `yaml:"backoff_base"`
	BackoffMax  string `yaml:"backoff_max"`
}

type SiteConfig struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	BaseURL     string `yaml:"base_url"`
	Username    string `yaml:"username"`
	AppPassword string `yaml:"app_password"`
	Enabled     bool   `yaml:"enabled"`
}

type PipelineConfig struct {
	Workers    int `yaml:"workers"`
	BatchLimit int `yaml:"batch_limit"`
}

type SchedulerConfig struct {
	RunInterval string `yaml:"run_interval"`
	// Pointer so an absent key defaults to on while an explicit
	// `enabled: false` still turns the scheduler off.
	Enabled *bool `yaml:"enabled"`
}

func (c *SchedulerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type NotifyConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Timeout    string `yaml:"timeout"`
}

type AuthConfig struct {
	TOTPSecret string `yaml:"totp_secret"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5812
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Sheets.SheetRange == "" {
		cfg.Sheets.SheetRange = "Topics!A2:G"
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o"
	}
	if cfg.OpenAI.ImageModel == "" {
		cfg.OpenAI.ImageModel = "dall-e-3"
	}
	if cfg.OpenAI.ImageSize == "" {
		cfg.OpenAI.ImageSize = "1792x1024"
	}
	if cfg.Images.TimeoutPerSource == "" {
		cfg.Images.TimeoutPerSource = "10s"
	}
	if cfg.Publish.MaxAttempts == 0 {
		cfg.Publish.MaxAttempts = 3
	}
	if cfg.Publish.BackoffBase == "" {
		cfg.Publish.BackoffBase = "2s"
	}
	if cfg.Publish.BackoffMax == "" {
		cfg.Publish.BackoffMax = "1m"
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.BatchLimit == 0 {
		cfg.Pipeline.BatchLimit = 10
	}
	if cfg.Scheduler.RunInterval == "" {
		cfg.Scheduler.RunInterval = "4h"
	}
	if cfg.Notify.Timeout == "" {
		cfg.Notify.Timeout = "5s"
	}

	return cfg, nil
}
