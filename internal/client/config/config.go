package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/flagx"
)

// Config holds runtime settings of the back-office CLI.
//
// Fields:
//   - APIURL: base URL of the CMS REST API, e.g. http://localhost:1337/api.
//   - UploadsURL: base URL relative media paths are resolved against.
//   - StatePath: SQLite file keeping the session between runs.
//   - RequestTimeout: per-request HTTP timeout.
//   - StaleTime, CacheTime: cache staleness and retention thresholds.
//   - Retries, RetryDelay: retry budget of failed reads.
//   - AdminPolicy, AdminRoles: who may use admin commands ("role" or "any").
//   - LogLevel: DEBUG, INFO, WARN or ERROR.
type Config struct {
	APIURL         string
	UploadsURL     string
	StatePath      string
	RequestTimeout time.Duration
	StaleTime      time.Duration
	CacheTime      time.Duration
	Retries        uint64
	RetryDelay     time.Duration
	AdminPolicy    string
	AdminRoles     []string
	LogLevel       string
}

// LoadDefaults populates c with the documented fallback values.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://localhost:1337/api"
	c.UploadsURL = "http://localhost:1337"
	c.StatePath = "cms_session.db"
	c.RequestTimeout = 10 * time.Second
	c.StaleTime = 5 * time.Minute
	c.CacheTime = 10 * time.Minute
	c.Retries = 2
	c.RetryDelay = time.Second
	c.AdminPolicy = "role"
	c.AdminRoles = []string{"admin"}
	c.LogLevel = "INFO"
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.CacheTime <= 0 {
		return fmt.Errorf("cache time must be positive, got %s", c.CacheTime)
	}
	if c.CacheTime < c.StaleTime {
		return fmt.Errorf("cache time %s is shorter than stale time %s", c.CacheTime, c.StaleTime)
	}
	switch strings.ToLower(c.AdminPolicy) {
	case "role", "any":
	default:
		return fmt.Errorf("unknown admin policy %q", c.AdminPolicy)
	}
	return nil
}

// LoadConfig builds a Config from, in increasing precedence: defaults, the
// .env file, the process environment, the JSON file named by -c/-config and
// the command-line flags.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv, ".env")
}

func load(args []string, lookup func(string) (string, bool), envFile string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	env, err := environment(lookup, envFile)
	if err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, env); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, flagx.JSONConfigPath(args)); err != nil {
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
