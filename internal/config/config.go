package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID"`
	} `yaml:"telegram" envconfig:"TELEGRAM"`
	Market struct {
		Symbols []string `yaml:"symbols" envconfig:"SYMBOLS"`
		Period  string   `yaml:"period" envconfig:"PERIOD"`
		BaseURL string   `yaml:"base_url" envconfig:"BASE_URL"`
		APIKey  string   `yaml:"api_key" envconfig:"API_KEY"`
	} `yaml:"market" envconfig:"MARKET"`
	Analysis struct {
		SMAWindow       int     `yaml:"sma_window" envconfig:"SMA_WINDOW"`
		RSIWindow       int     `yaml:"rsi_window" envconfig:"RSI_WINDOW"`
		BollingerWindow int     `yaml:"bollinger_window" envconfig:"BOLLINGER_WINDOW"`
		BollingerStd    float64 `yaml:"bollinger_std" envconfig:"BOLLINGER_STD"`
		RSIThreshold    float64 `yaml:"rsi_threshold" envconfig:"RSI_THRESHOLD"`
		Bollinger       bool    `yaml:"bollinger_breakdown" envconfig:"BOLLINGER_BREAKDOWN"`
	} `yaml:"analysis" envconfig:"ANALYSIS"`
	News struct {
		MaxResults   int    `yaml:"max_results" envconfig:"MAX_RESULTS"`
		GeminiAPIKey string `yaml:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
		GeminiModel  string `yaml:"gemini_model" envconfig:"GEMINI_MODEL"`
	} `yaml:"news" envconfig:"NEWS"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron" envconfig:"DAILY_CRON"`
	} `yaml:"schedule" envconfig:"SCHEDULE"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
		URL        string `yaml:"url" envconfig:"URL"`
	} `yaml:"database" envconfig:"DATABASE"`
	Redis struct {
		Addr     string        `yaml:"addr" envconfig:"ADDR"`
		Password string        `yaml:"password" envconfig:"PASSWORD"`
		DB       int           `yaml:"db" envconfig:"DB"`
		TTL      time.Duration `yaml:"ttl" envconfig:"TTL"`
	} `yaml:"redis" envconfig:"REDIS"`
	Kafka struct {
		Brokers []string `yaml:"brokers" envconfig:"BROKERS"`
		Topic   string   `yaml:"topic" envconfig:"TOPIC"`
	} `yaml:"kafka" envconfig:"KAFKA"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
	} `yaml:"metrics" envconfig:"METRICS"`
	Log struct {
		Level string `yaml:"level" envconfig:"LEVEL"`
	} `yaml:"log" envconfig:"LOG"`
	Proxy string `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// Load reads .env, the YAML file at path, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if len(c.Market.Symbols) == 0 {
		c.Market.Symbols = []string{"AAPL", "TSLA", "NVDA", "AMZN", "GOOGL", "SPY"}
	}
	if c.Market.Period == "" {
		c.Market.Period = "6mo"
	}
	if c.Analysis.SMAWindow == 0 {
		c.Analysis.SMAWindow = 20
	}
	if c.Analysis.RSIWindow == 0 {
		c.Analysis.RSIWindow = 14
	}
	if c.Analysis.BollingerWindow == 0 {
		c.Analysis.BollingerWindow = 20
	}
	if c.Analysis.BollingerStd == 0 {
		c.Analysis.BollingerStd = 2
	}
	if c.Analysis.RSIThreshold == 0 {
		c.Analysis.RSIThreshold = 40
	}
	if c.News.MaxResults == 0 {
		c.News.MaxResults = 3
	}
	if c.News.GeminiModel == "" {
		c.News.GeminiModel = "gemini-2.5-flash"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if c.Database.SQLitePath == "" && c.Database.URL == "" {
		c.Database.SQLitePath = "data/quant_scout.db"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 12 * time.Hour
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "quant-signals"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return c.ValidateAnalysis()
}

// ValidateAnalysis checks the market and indicator settings only. One-shot
// scans that do not notify use it instead of Validate.
func (c *Config) ValidateAnalysis() error {
	if len(c.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols must not be empty")
	}
	if c.Analysis.SMAWindow < 1 || c.Analysis.RSIWindow < 1 || c.Analysis.BollingerWindow < 1 {
		return fmt.Errorf("analysis windows must be positive")
	}
	if c.Analysis.RSIThreshold < 0 || c.Analysis.RSIThreshold > 100 {
		return fmt.Errorf("analysis.rsi_threshold must be within [0, 100]")
	}
	if c.News.MaxResults < 0 {
		return fmt.Errorf("news.max_results must not be negative")
	}
	return nil
}
