package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv. The STRAPI_* names are accepted as
// fallbacks for deployments configured for the public site.
const (
	EnvAPIURL      = "CMS_API_URL"
	EnvUploadsURL  = "CMS_UPLOADS_URL"
	EnvStatePath   = "CMS_STATE_PATH"
	EnvAdminPolicy = "CMS_ADMIN_POLICY"
	EnvAdminRoles  = "CMS_ADMIN_ROLES"
	EnvLogLevel    = "LOG_LEVEL"

	envStrapiAPIURL     = "STRAPI_API_URL"
	envStrapiUploadsURL = "STRAPI_UPLOADS_URL"
)

// environment merges the .env file with the process environment; process
// variables win. A missing .env file is not an error.
func environment(lookup func(string) (string, bool), envFile string) (func(string) string, error) {
	file := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			file = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
		}
	}

	return func(key string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return file[key]
	}, nil
}

func parseEnv(cfg *Config, getenv func(string) string) error {
	first := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				return v
			}
		}
		return ""
	}

	if v := first(EnvAPIURL, envStrapiAPIURL); v != "" {
		cfg.APIURL = v
	}
	if v := first(EnvUploadsURL, envStrapiUploadsURL); v != "" {
		cfg.UploadsURL = v
	}
	if v := first(EnvStatePath); v != "" {
		cfg.StatePath = v
	}
	if v := first(EnvAdminPolicy); v != "" {
		cfg.AdminPolicy = v
	}
	if v := first(EnvAdminRoles); v != "" {
		cfg.AdminRoles = splitList(v)
	}
	if v := first(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
