// Package config loads runtime configuration for the back-office CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory, read with godotenv.
//  3. Process environment: CMS_API_URL, CMS_UPLOADS_URL, CMS_STATE_PATH,
//     CMS_ADMIN_POLICY, CMS_ADMIN_ROLES (comma separated) and LOG_LEVEL.
//  4. Optional JSON file selected via -c or -config.
//  5. Command-line flags -a, -u, -s and -l.
//
// # JSON schema
//
//	{
//	  "api_url": "https://cms.example.com/api",
//	  "uploads_url": "https://cms.example.com",
//	  "state_path": "/var/lib/cms/session.db",
//	  "request_timeout": "10s",
//	  "stale_time": "5m",
//	  "cache_time": "10m",
//	  "retries": 2,
//	  "retry_delay": "1s",
//	  "admin_policy": "role",
//	  "admin_roles": ["admin"],
//	  "log_level": "INFO"
//	}
package config
