package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the chat client settings.
type Config struct {
	APIURL         string
	RequestTimeout time.Duration

	StateDriver string
	StateDSN    string
	StateOwner  string

	EncryptKey string
	LegacyKeys []string

	LogFile string
	Debug   bool
}

// Supported state drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

func Load() (*Config, error) {
	cfg := &Config{
		APIURL:         strings.TrimRight(getEnv("CHAT_API_URL", "http://localhost:8080"), "/"),
		RequestTimeout: getEnvAsDuration("CHAT_REQUEST_TIMEOUT", 5*time.Second),
		StateDriver:    strings.ToLower(getEnv("CHAT_STATE_DRIVER", DriverSQLite)),
		StateDSN:       os.Getenv("CHAT_STATE_DSN"),
		StateOwner:     os.Getenv("CHAT_STATE_OWNER"),
		EncryptKey:     os.Getenv("CHAT_ENCRYPTION_KEY"),
		LegacyKeys:     splitList(os.Getenv("CHAT_LEGACY_KEYS")),
		LogFile:        getEnv("CHAT_LOG_FILE", "chat-debug.log"),
		Debug:          getEnvAsBool("DEBUG", false),
	}

	switch cfg.StateDriver {
	case DriverSQLite:
		if cfg.StateDSN == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("resolve config dir: %w", err)
			}
			dir = filepath.Join(dir, "chat")
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("creating state dir: %w", err)
			}
			cfg.StateDSN = filepath.Join(dir, "state.db")
		}
	case DriverPostgres:
		if cfg.StateDSN == "" {
			return nil, fmt.Errorf("CHAT_STATE_DSN is required for the postgres driver")
		}
		if cfg.StateOwner == "" {
			host, err := os.Hostname()
			if err != nil {
				return nil, fmt.Errorf("resolve state owner: %w", err)
			}
			cfg.StateOwner = host
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown CHAT_STATE_DRIVER %q", cfg.StateDriver)
	}

	if cfg.StateDriver != DriverMemory && cfg.EncryptKey == "" {
		return nil, fmt.Errorf("CHAT_ENCRYPTION_KEY is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("CHAT_REQUEST_TIMEOUT must be positive")
	}

	return cfg, nil
}

// ServerConfig holds the development backend settings.
type ServerConfig struct {
	Host string
	Port int

	JWTSecret          string
	AccessTokenMinutes int
	CORSOrigins        []string
}

func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{
		Host:               getEnv("DEVSERVER_HOST", "0.0.0.0"),
		Port:               getEnvAsInt("DEVSERVER_PORT", 8080),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24),
	}

	if cors := getEnv("CORS_ORIGINS", ""); cors != "" {
		cfg.CORSOrigins = splitList(cors)
	} else {
		cfg.CORSOrigins = []string{"http://localhost:8081", "http://localhost:19006"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func (c *ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
