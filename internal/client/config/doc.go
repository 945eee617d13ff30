// Package config loads runtime configuration for the blog client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and the process environment;
//     the environment wins over the file.
//  3. Optional JSON file selected via flags: -c or -config.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the blog API, e.g. http://localhost:5000/api
//	-t int      request timeout (seconds)
//	-d string   path of the local SQLite database
//	-l string   log level: debug, info, warn, error
//
// Environment
//
//	BLOG_API_URL, BLOG_REQUEST_TIMEOUT, BLOG_DB_PATH, BLOG_PAGE_LIMIT,
//	BLOG_LOG_LEVEL, BLOG_LOG_BACKEND
//
// # JSON schema
//
// The JSON loader uses timex.Duration for timeouts, so values can be either
// strings like "15s" or integer nanoseconds. Absent keys keep earlier values:
//
//	{
//	  "api_base_url": "http://localhost:5000/api",
//	  "request_timeout": "15s",
//	  "db_path": "blogclient.db",
//	  "page_limit": 10,
//	  "log_level": "info",
//	  "log_backend": "slog"
//	}
package config
