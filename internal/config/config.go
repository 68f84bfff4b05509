package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrNoDatabase is returned alongside a usable Config when DATABASE_URL is unset.
var ErrNoDatabase = errors.New("DATABASE_URL not set, using in-memory stores")

type Config struct {
	Env         string
	ListenAddr  string
	DatabaseURL string
	ScanWorkers int

	Log        LogConfig
	Cache      CacheConfig
	Retry      RetryConfig
	VirusTotal VirusTotalConfig
	Gemini     GeminiConfig

	RDAPBaseURL string
	GeoBaseURL  string
	TLSTimeout  time.Duration
	HTTPTimeout time.Duration
}

type LogConfig struct {
	Level      string
	Format     string // text|json
	Output     string // stdout|stderr|file
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

type CacheConfig struct {
	Capacity  int
	TTL       time.Duration
	RedisAddr string
}

type RetryConfig struct {
	MaxRetries int
	Delay      time.Duration
}

type VirusTotalConfig struct {
	APIKey        string
	BaseURL       string
	InitialDelay  time.Duration
	PollInterval  time.Duration
	PollAttempts  int
	RatePerMinute int
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func defaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("scan_workers", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/trustscan.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)

	v.SetDefault("cache.capacity", 10000)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "")

	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.delay", time.Second)

	v.SetDefault("virustotal.api_key", "")
	v.SetDefault("virustotal.base_url", "https://www.virustotal.com")
	v.SetDefault("virustotal.initial_delay", 5*time.Second)
	v.SetDefault("virustotal.poll_interval", 2*time.Second)
	v.SetDefault("virustotal.poll_attempts", 3)
	v.SetDefault("virustotal.rate_per_minute", 0) // 0 disables throttling

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")

	v.SetDefault("rdap.base_url", "https://rdap.org")
	v.SetDefault("geo.base_url", "http://ip-api.com")
	v.SetDefault("tls.timeout", 3*time.Second)
	v.SetDefault("http.timeout", 15*time.Second)
}

// New returns a viper instance reading defaults and UPPER_SNAKE environment
// variables (virustotal.api_key -> VIRUSTOTAL_API_KEY).
func New() *viper.Viper {
	v := viper.New()
	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads an optional .env file and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromViper(New())
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:         v.GetString("app_env"),
		ListenAddr:  v.GetString("listen_addr"),
		DatabaseURL: v.GetString("database_url"),
		ScanWorkers: v.GetInt("scan_workers"),
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			FilePath:   v.GetString("log.file"),
			MaxSize:    v.GetInt("log.max_size"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAge:     v.GetInt("log.max_age"),
			Compress:   v.GetBool("log.compress"),
		},
		Cache: CacheConfig{
			Capacity:  v.GetInt("cache.capacity"),
			TTL:       v.GetDuration("cache.ttl"),
			RedisAddr: v.GetString("redis.addr"),
		},
		Retry: RetryConfig{
			MaxRetries: v.GetInt("retry.max_retries"),
			Delay:      v.GetDuration("retry.delay"),
		},
		VirusTotal: VirusTotalConfig{
			APIKey:        v.GetString("virustotal.api_key"),
			BaseURL:       v.GetString("virustotal.base_url"),
			InitialDelay:  v.GetDuration("virustotal.initial_delay"),
			PollInterval:  v.GetDuration("virustotal.poll_interval"),
			PollAttempts:  v.GetInt("virustotal.poll_attempts"),
			RatePerMinute: v.GetInt("virustotal.rate_per_minute"),
		},
		Gemini: GeminiConfig{
			APIKey:  v.GetString("gemini.api_key"),
			Model:   v.GetString("gemini.model"),
			BaseURL: v.GetString("gemini.base_url"),
		},
		RDAPBaseURL: v.GetString("rdap.base_url"),
		GeoBaseURL:  v.GetString("geo.base_url"),
		TLSTimeout:  v.GetDuration("tls.timeout"),
		HTTPTimeout: v.GetDuration("http.timeout"),
	}
	if cfg.Cache.Capacity <= 0 {
		cfg.Cache.Capacity = 10000
	}
	if cfg.DatabaseURL == "" {
		// Not fatal: callers fall back to in-memory stores.
		return cfg, ErrNoDatabase
	}
	return cfg, nil
}
