package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/blogclient/internal/flagx"
	"github.com/dmitrijs2005/blogclient/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key from a zero value.
type JsonConfig struct {
	APIBaseURL     *string         `json:"api_base_url"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	DBPath         *string         `json:"db_path"`
	PageLimit      *int            `json:"page_limit"`
	LogLevel       *string         `json:"log_level"`
	LogBackend     *string         `json:"log_backend"`
}

// parseJson overlays cfg with the JSON file named by -c or -config in args.
// Without either flag nothing happens.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.APIBaseURL != nil {
		cfg.APIBaseURL = *jc.APIBaseURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DBPath != nil {
		cfg.DBPath = *jc.DBPath
	}
	if jc.PageLimit != nil {
		cfg.PageLimit = *jc.PageLimit
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.LogBackend != nil {
		cfg.LogBackend = *jc.LogBackend
	}
	return nil
}
