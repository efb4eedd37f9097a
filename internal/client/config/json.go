package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Durations
// use timex.Duration, so "10s" and integer nanoseconds are both accepted.
// Absent fields leave the current value untouched.
type JSONConfig struct {
	APIURL         *string         `json:"api_url"`
	UploadsURL     *string         `json:"uploads_url"`
	StatePath      *string         `json:"state_path"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	StaleTime      *timex.Duration `json:"stale_time"`
	CacheTime      *timex.Duration `json:"cache_time"`
	Retries        *uint64         `json:"retries"`
	RetryDelay     *timex.Duration `json:"retry_delay"`
	AdminPolicy    *string         `json:"admin_policy"`
	AdminRoles     []string        `json:"admin_roles"`
	LogLevel       *string         `json:"log_level"`
}

// parseJSON overlays cfg with the JSON file at path; an empty path is a no-op.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.APIURL, jc.APIURL)
	setString(&cfg.UploadsURL, jc.UploadsURL)
	setString(&cfg.StatePath, jc.StatePath)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.StaleTime, jc.StaleTime)
	setDuration(&cfg.CacheTime, jc.CacheTime)
	setDuration(&cfg.RetryDelay, jc.RetryDelay)
	if jc.Retries != nil {
		cfg.Retries = *jc.Retries
	}
	setString(&cfg.AdminPolicy, jc.AdminPolicy)
	if len(jc.AdminRoles) > 0 {
		cfg.AdminRoles = jc.AdminRoles
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
