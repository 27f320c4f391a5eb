package config

import (
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr              string
	DatabaseURL       string
	SessionSecret     string
	SessionTTL        time.Duration
	SessionCookieName string
	// AuditRetentionDays is the age threshold for the audit purge;
	// purge is the only permitted deletion of audit rows.
	AuditRetentionDays     int
	AuditRetentionInterval time.Duration
	TrustedProxies         []netip.Prefix
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:                   ":8080",
		SessionTTL:             12 * time.Hour,
		SessionCookieName:      "atrium_session",
		AuditRetentionDays:     180,
		AuditRetentionInterval: 24 * time.Hour,
	}

	if addr := os.Getenv("ATRIUM_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		// Use a default for development - should be overridden in production
		cfg.SessionSecret = "dev-secret-key-change-in-production"
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		if duration, err := time.ParseDuration(ttl); err == nil {
			cfg.SessionTTL = duration
		}
	}
	if name := os.Getenv("SESSION_COOKIE_NAME"); name != "" {
		cfg.SessionCookieName = name
	}

	if days := os.Getenv("AUDIT_RETENTION_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			cfg.AuditRetentionDays = n
		}
	}
	if interval := os.Getenv("AUDIT_RETENTION_INTERVAL"); interval != "" {
		if duration, err := time.ParseDuration(interval); err == nil {
			cfg.AuditRetentionInterval = duration
		}
	}

	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		for _, raw := range strings.Split(proxies, ",") {
			if prefix, err := netip.ParsePrefix(strings.TrimSpace(raw)); err == nil {
				cfg.TrustedProxies = append(cfg.TrustedProxies, prefix)
			}
		}
	}

	return cfg
}
