package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Links     LinksConfig     `mapstructure:"links"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Flows     FlowsConfig     `mapstructure:"flows"`
	Renderer  RendererConfig  `mapstructure:"renderer"`
	Email     EmailConfig     `mapstructure:"email"`
	Workers   WorkersConfig   `mapstructure:"workers"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`

	// TrustedProxies lists the CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type CacheConfig struct {
	LinkTTL time.Duration `mapstructure:"link_ttl"`
}

type RateLimitConfig struct {
	WebhookPerMinute int `mapstructure:"webhook_per_minute"`
}

type LinksConfig struct {
	// PublicBaseURL is prefixed to /webhook/payment/{hash} when building link URLs.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type QueueConfig struct {
	EnqueueTimeout time.Duration `mapstructure:"enqueue_timeout"`
}

type FlowsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type RendererConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type EmailConfig struct {
	CompanyName string `mapstructure:"company_name"`
	FromName    string `mapstructure:"from_name"`
	FromAddress string `mapstructure:"from_address"`
}

type WorkersConfig struct {
	LogRetention       time.Duration `mapstructure:"log_retention"`
	LogPurgeSchedule   string        `mapstructure:"log_purge_schedule"`
	QueueStatsSchedule string        `mapstructure:"queue_stats_schedule"`
	StaleJobSchedule   string        `mapstructure:"stale_job_schedule"`
	StaleJobAfter      time.Duration `mapstructure:"stale_job_after"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.url", "file:data/payhook.db")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("cache.link_ttl", time.Minute)
	v.SetDefault("rate_limit.webhook_per_minute", 600)
	v.SetDefault("links.public_base_url", "http://localhost:8080")
	v.SetDefault("queue.enqueue_timeout", 5*time.Second)

	v.SetDefault("flows.base_url", "http://localhost:8090")
	v.SetDefault("flows.jwt_secret", "")
	v.SetDefault("flows.timeout", 10*time.Second)

	v.SetDefault("renderer.timezone", "America/Sao_Paulo")

	v.SetDefault("email.company_name", "Nossa Empresa")
	v.SetDefault("email.from_name", "Sistema")
	v.SetDefault("email.from_address", "noreply@example.com")

	v.SetDefault("workers.log_retention", 90*24*time.Hour)
	v.SetDefault("workers.log_purge_schedule", "0 3 * * *")
	v.SetDefault("workers.queue_stats_schedule", "*/5 * * * *")
	v.SetDefault("workers.stale_job_schedule", "*/10 * * * *")
	v.SetDefault("workers.stale_job_after", 30*time.Minute)
	v.SetDefault("workers.max_attempts", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")
}

// DefaultPath is read when PAYHOOK_CONFIG is unset and the file exists.
const DefaultPath = "configs/config.yaml"

// ResolvePath picks the config file: PAYHOOK_CONFIG, else DefaultPath when
// present, else "" to run on defaults and environment alone.
func ResolvePath() string {
	if path := os.Getenv("PAYHOOK_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// Load reads the YAML file at path (optional when path is empty) and overlays
// environment variables such as SERVER_PORT or DATABASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
