package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	base "github.com/osa623/arxadmin/libs/config"
)

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

type RateLimitRedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type RateLimitConfig struct {
	LoginLimit int
	Window     time.Duration
	Redis      RateLimitRedisConfig
}

type MFAConfig struct {
	Issuer        string
	AllowedEmails []string
	TokenTTL      time.Duration
}

type Config struct {
	App              base.AppConfig
	JWTSecret        string
	PasswordTokenTTL time.Duration
	MFA              MFAConfig
	Argon2           Argon2Params
	DB               DBConfig
	RateLimit        RateLimitConfig
}

func Load() (*Config, error) {
	appCfg, err := base.Load(os.Getenv("ARX_CONFIG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App:              *appCfg,
		JWTSecret:        envString("ARX_JWT_SECRET", ""),
		PasswordTokenTTL: envDuration("ARX_PASSWORD_TOKEN_TTL", 240*time.Hour),
		MFA: MFAConfig{
			Issuer:        envString("ARX_MFA_ISSUER", "arx-admin"),
			AllowedEmails: envCSV("ARX_MFA_ALLOWED_EMAILS"),
			TokenTTL:      envDuration("ARX_MFA_TOKEN_TTL", 12*time.Hour),
		},
		Argon2: Argon2Params{
			Memory:      uint32(envInt("ARX_ARGON2_MEMORY", 64*1024)),
			Iterations:  uint32(envInt("ARX_ARGON2_ITERATIONS", 3)),
			Parallelism: uint8(envInt("ARX_ARGON2_PARALLELISM", 2)),
			SaltLength:  uint32(envInt("ARX_ARGON2_SALT_LENGTH", 16)),
			KeyLength:   uint32(envInt("ARX_ARGON2_KEY_LENGTH", 32)),
		},
		DB: DBConfig{
			Host:     envString("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			Name:     envString("POSTGRES_DB", "arx_admin"),
			User:     envString("POSTGRES_USER", "arx"),
			Password: envString("POSTGRES_PASSWORD", "arx"),
			SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		},
		RateLimit: RateLimitConfig{
			LoginLimit: envInt("ARX_LOGIN_RATE_LIMIT", 10),
			Window:     envDuration("ARX_LOGIN_RATE_WINDOW", 1*time.Minute),
			Redis: RateLimitRedisConfig{
				Addr:     envString("ARX_RATE_LIMIT_REDIS_ADDR", ""),
				Password: envString("ARX_RATE_LIMIT_REDIS_PASSWORD", ""),
				DB:       envInt("ARX_RATE_LIMIT_REDIS_DB", 0),
				Prefix:   envString("ARX_RATE_LIMIT_REDIS_PREFIX", "arx:admin:rl:"),
			},
		},
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("ARX_JWT_SECRET must be set")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envCSV(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
