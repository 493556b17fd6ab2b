package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/JonnyShabli/ghsync/internal/models"
	"github.com/JonnyShabli/ghsync/pkg/logster"
)

const (
	DefaultProject   = "ghsync"
	DefaultLogLevel  = "info"
	DefaultCachePath = ".ghsync-cache.json"
	DefaultAddr      = "127.0.0.1"
	DefaultPort      = "8080"
	DefaultQueueSize = 16

	DefaultBaseURL   = "https://api.github.com"
	DefaultUserAgent = "ghsync"
	DefaultTimeout   = 30
	DefaultPerPage   = 100
	DefaultMaxPages  = 10
	DefaultWorkers   = 4
	DefaultWarning   = 10

	TokenEnv = "GITHUB_TOKEN"
)

var (
	ErrNoJobs      = errors.New("no jobs configured")
	ErrJobNotFound = errors.New("job not found")
)

type Config struct {
	Logger logster.Config     `yaml:"logger"`
	Cache  Cache              `yaml:"cache"`
	Server Server             `yaml:"server"`
	Jobs   []models.JobConfig `yaml:"jobs"`
}

type Cache struct {
	Path string `yaml:"path"`
}

type Server struct {
	Addr string `yaml:"addr"`
	Port string `yaml:"port"`
	// Interval re-enqueues every job periodically. Zero disables it.
	Interval  time.Duration `yaml:"interval"`
	QueueSize int           `yaml:"queue_size"`
}

func (s Server) Address() string {
	return s.Addr + ":" + s.Port
}

// LoadConfig decodes filename into cfg. Files ending in .toml are parsed as
// TOML, everything else as YAML.
func LoadConfig(filename string, cfg interface{}) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		data, err = tomlToYAML(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", filename, err)
		}
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}

	return nil
}

// tomlToYAML re-encodes a TOML document as YAML so both formats go through
// the same decoders.
func tomlToYAML(data []byte) ([]byte, error) {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// Load reads, defaults and validates the application config.
func Load(filename string) (*Config, error) {
	var cfg Config
	if err := LoadConfig(filename, &cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadEnv reads the given .env files, ignoring missing ones, and fills the
// token of every authenticated job that has none from GITHUB_TOKEN.
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env %s: %w", f, err)
		}
	}

	token := os.Getenv(TokenEnv)
	if token == "" {
		return nil
	}
	for i := range c.Jobs {
		if c.Jobs[i].Auth.Authenticated && c.Jobs[i].Auth.Token == "" {
			c.Jobs[i].Auth.Token = token
		}
	}
	return nil
}

func (c *Config) SetDefaults() {
	if c.Logger.Project == "" {
		c.Logger.Project = DefaultProject
	}
	if c.Logger.Level == "" {
		c.Logger.Level = DefaultLogLevel
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.Port == "" {
		c.Server.Port = DefaultPort
	}
	if c.Server.QueueSize <= 0 {
		c.Server.QueueSize = DefaultQueueSize
	}

	for i := range c.Jobs {
		job := &c.Jobs[i]
		conn := &job.Connection
		if conn.BaseURL == "" {
			conn.BaseURL = DefaultBaseURL
		}
		if conn.UserAgent == "" {
			conn.UserAgent = DefaultUserAgent
		}
		if conn.TimeoutSeconds <= 0 {
			conn.TimeoutSeconds = DefaultTimeout
		}
		if conn.PerPage == 0 {
			conn.PerPage = DefaultPerPage
		}
		if conn.MaxPages <= 0 {
			conn.MaxPages = DefaultMaxPages
		}
		if conn.Workers <= 0 {
			conn.Workers = DefaultWorkers
		}
		if job.RateLimit.Warning == 0 {
			job.RateLimit.Warning = DefaultWarning
		}
		if job.Task.Name == "" {
			job.Task.Name = job.Name
		}
		if job.Task.Type == "" {
			job.Task.Type = models.KindData
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Jobs) == 0 {
		return ErrNoJobs
	}

	seen := make(map[string]struct{}, len(c.Jobs))
	for i, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("jobs[%d]: name is required", i)
		}
		if _, ok := seen[job.Name]; ok {
			return fmt.Errorf("jobs[%d]: duplicate job name %q", i, job.Name)
		}
		seen[job.Name] = struct{}{}

		switch job.Task.Type {
		case models.KindData, models.KindFile:
		default:
			return fmt.Errorf("job %s: unknown task type %q", job.Name, job.Task.Type)
		}
		if job.Connection.PerPage < 1 || job.Connection.PerPage > 100 {
			return fmt.Errorf("job %s: per_page must be within 1..100, got %d", job.Name, job.Connection.PerPage)
		}
	}
	return nil
}

// Job returns the job config named name.
func (c *Config) Job(name string) (models.JobConfig, error) {
	for _, job := range c.Jobs {
		if job.Name == name {
			return job, nil
		}
	}
	return models.JobConfig{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
}

func (c *Config) JobNames() []string {
	names := make([]string, 0, len(c.Jobs))
	for _, job := range c.Jobs {
		names = append(names, job.Name)
	}
	return names
}
