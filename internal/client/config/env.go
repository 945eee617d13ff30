package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvAPIURL         = "BLOG_API_URL"
	EnvRequestTimeout = "BLOG_REQUEST_TIMEOUT"
	EnvDBPath         = "BLOG_DB_PATH"
	EnvPageLimit      = "BLOG_PAGE_LIMIT"
	EnvLogLevel       = "BLOG_LOG_LEVEL"
	EnvLogBackend     = "BLOG_LOG_BACKEND"
)

// envSource merges the dotenv file with lookup; lookup wins. A missing file
// is not an error.
func envSource(path string, lookup func(string) (string, bool)) (func(string) (string, bool), error) {
	file := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			file = m
		}
	}
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	}, nil
}

// parseEnv overlays cfg with the variables that are set and non-empty.
// BLOG_REQUEST_TIMEOUT accepts a duration ("15s") or plain seconds.
func parseEnv(cfg *Config, env func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := env(key)
		return v, ok && v != ""
	}

	if v, ok := get(EnvAPIURL); ok {
		cfg.APIBaseURL = v
	}
	if v, ok := get(EnvRequestTimeout); ok {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if v, ok := get(EnvDBPath); ok {
		cfg.DBPath = v
	}
	if v, ok := get(EnvPageLimit); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPageLimit, err)
		}
		cfg.PageLimit = n
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := get(EnvLogBackend); ok {
		cfg.LogBackend = v
	}
	return nil
}

func parseTimeout(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
