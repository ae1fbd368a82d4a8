package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // "mysql" or "postgres"
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	GitHub struct {
		Token string `yaml:"token"`
	} `yaml:"github"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	RateLimit struct {
		MaxRequests   int `yaml:"maxRequests"`
		WindowMinutes int `yaml:"windowMinutes"`
		SweepMinutes  int `yaml:"sweepMinutes"`
	} `yaml:"rateLimit"`

	Cache struct {
		TagsTTLMinutes     int `yaml:"tagsTTLMinutes"`
		CommitsTTLMinutes  int `yaml:"commitsTTLMinutes"`
		PRsTTLMinutes      int `yaml:"prsTTLMinutes"`
		AnalysisTTLMinutes int `yaml:"analysisTTLMinutes"`
	} `yaml:"cache"`

	Analysis struct {
		CommitShardSize int `yaml:"commitShardSize"`
		PRShardSize     int `yaml:"prShardSize"`
		CommitWeight    int `yaml:"commitWeight"` // percent, PR weight is the remainder
	} `yaml:"analysis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Load reads the yaml config file, applies env fallbacks for secrets and
// defaults for tuning knobs, then validates. Missing credentials are fatal
// here, before any work starts.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = 20
	}
	if c.RateLimit.WindowMinutes == 0 {
		c.RateLimit.WindowMinutes = 60
	}
	if c.RateLimit.SweepMinutes == 0 {
		c.RateLimit.SweepMinutes = 10
	}
	if c.Cache.TagsTTLMinutes == 0 {
		c.Cache.TagsTTLMinutes = 6 * 60
	}
	if c.Cache.CommitsTTLMinutes == 0 {
		c.Cache.CommitsTTLMinutes = 60
	}
	if c.Cache.PRsTTLMinutes == 0 {
		c.Cache.PRsTTLMinutes = 30
	}
	if c.Cache.AnalysisTTLMinutes == 0 {
		c.Cache.AnalysisTTLMinutes = 24 * 60
	}
	if c.Analysis.CommitShardSize == 0 {
		c.Analysis.CommitShardSize = 100
	}
	if c.Analysis.PRShardSize == 0 {
		c.Analysis.PRShardSize = 5
	}
	if c.Analysis.CommitWeight == 0 {
		c.Analysis.CommitWeight = 30
	}
}

func (c *Config) validate() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("github token not configured (set github.token or GITHUB_TOKEN)")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key not configured (set openai.apiKey or OPENAI_API_KEY)")
	}
	if c.Database.Driver != "mysql" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	return nil
}

// MySQLDSN builds the DSN for the mysql driver.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the DSN for lib/pq.
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}

// RateWindow returns the admission window duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowMinutes) * time.Minute
}

// SweepInterval returns the limiter sweep interval.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.RateLimit.SweepMinutes) * time.Minute
}
