package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/dmitrijs2005/blogclient/internal/common"
	"github.com/dmitrijs2005/blogclient/internal/logging"
)

// Config holds runtime settings for the blog CLI.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	DBPath         string
	PageLimit      int
	LogLevel       string
	LogBackend     string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:5000/api"
	c.RequestTimeout = 15 * time.Second
	c.DBPath = "blogclient.db"
	c.PageLimit = common.DefaultPageLimit
	c.LogLevel = "info"
	c.LogBackend = logging.BackendSlog
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api base url %q must be an http(s) URL", c.APIBaseURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	if c.PageLimit <= 0 {
		return fmt.Errorf("page limit must be positive, got %d", c.PageLimit)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	return nil
}

// LoadConfig builds a Config from defaults, .env and the environment, the
// JSON file named on the command line and the command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:], ".env", os.LookupEnv)
}

func load(args []string, dotenv string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	env, err := envSource(dotenv, lookup)
	if err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, env); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
