package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type FilesConfig struct {
	RootDir string `yaml:"root_dir"`
}

type EvaluationConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	MaxAttempts int    `yaml:"max_attempts"`
	BackoffSecs int    `yaml:"backoff_secs"`
	DryRun      bool   `yaml:"dry_run"`
}

type PaymentsConfig struct {
	APIKey        string `yaml:"api_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
	UnlockPrice   int64  `yaml:"unlock_price"` // minor currency units
	Currency      string `yaml:"currency"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	App struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"app"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	Files      FilesConfig      `yaml:"files"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Payments   PaymentsConfig   `yaml:"payments"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

func LoadConfig() *Config {
	// .env is optional; real deployments set the variables directly
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	f, err := os.Open(path)
	if err != nil {
		panic("Failed to open " + path + ": " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse " + path + ": " + err.Error())
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

// Secrets come from the environment when present so the yaml file can be
// committed without them.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Evaluation.APIKey = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Payments.APIKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Payments.WebhookSecret = v
	}
	if v := os.Getenv("REPORT_UNLOCK_PRICE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Payments.UnlockPrice = n
		}
	}
	if v := os.Getenv("APP_BASE_URL"); v != "" {
		cfg.App.BaseURL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:8080"
	}
	if cfg.Files.RootDir == "" {
		cfg.Files.RootDir = "./files"
	}
	if cfg.Evaluation.BaseURL == "" {
		cfg.Evaluation.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Evaluation.Model == "" {
		cfg.Evaluation.Model = "gpt-4o-mini"
	}
	if cfg.Evaluation.MaxAttempts == 0 {
		cfg.Evaluation.MaxAttempts = 3
	}
	if cfg.Evaluation.BackoffSecs == 0 {
		cfg.Evaluation.BackoffSecs = 1
	}
	if cfg.Payments.BaseURL == "" {
		cfg.Payments.BaseURL = "https://api.stripe.com"
	}
	if cfg.Payments.UnlockPrice == 0 {
		cfg.Payments.UnlockPrice = 999
	}
	if cfg.Payments.Currency == "" {
		cfg.Payments.Currency = "usd"
	}
}
