package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/spreadcache/internal/config"
)

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	userinfo := cfg.User
	if cfg.Password != "" {
		// URL-encode password to handle special characters
		userinfo += ":" + url.QueryEscape(cfg.Password)
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		userinfo,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
