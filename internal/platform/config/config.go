package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	defaultGatewayAddr     = ":3000"
	defaultUpstreamBaseURL = "http://localhost:8080/api/v1"
	defaultGatewayURL      = "http://localhost:3000/api"
	defaultTimeout         = 30 * time.Second
	defaultMaxBodyBytes    = 1 << 20
	defaultMaxRespBytes    = 10 << 20
)

// Server captures the gateway server configuration.
type Server struct {
	Addr            string
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	MaxBodyBytes    int64
	MaxRespBytes    int64
	AllowedOrigins  []string
	Environment     string
	LogLevel        string
}

// IsProduction reports whether the server runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == EnvProduction
}

// Client captures the CLI configuration.
type Client struct {
	GatewayURL string
	Timeout    time.Duration

	// SessionStore is a file path or a redis:// URL.
	SessionStore string
	Profile      string

	// Auth selects the issuer: "upstream" logs in through the gateway, "dev"
	// signs tokens locally with DevSigningKey.
	Auth          string
	DevSigningKey string
	DevSecret     string

	Environment string
	LogLevel    string
	Redis       RedisConfig
}

// UsesRedis reports whether sessions are persisted in Redis.
func (c Client) UsesRedis() bool {
	return strings.HasPrefix(c.SessionStore, "redis://") || strings.HasPrefix(c.SessionStore, "rediss://")
}

// DefaultProfile is the profile whose session file is SessionStore itself.
const DefaultProfile = "default"

// SessionFile is the session file for the active profile. Other profiles get
// a sibling file with the profile name before the extension, so
// session.yaml becomes session-work.yaml for profile "work".
func (c Client) SessionFile() (string, error) {
	if c.Profile == "" || c.Profile == DefaultProfile {
		return c.SessionStore, nil
	}
	for _, r := range c.Profile {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return "", fmt.Errorf("profile %q: only letters, digits, '-' and '_' are allowed", c.Profile)
		}
	}
	ext := filepath.Ext(c.SessionStore)
	return strings.TrimSuffix(c.SessionStore, ext) + "-" + c.Profile + ext, nil
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns pool settings sized for a single CLI process.
func DefaultRedisConfig(url string) RedisConfig {
	return RedisConfig{
		URL:          url,
		PoolSize:     4,
		MinIdleConns: 0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// LoadDotEnv loads variables from the given files (".env" when none are given)
// without overriding the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv builds the server config from environment variables so main stays
// lean. Malformed values fail with an error naming the variable.
func FromEnv() (Server, error) {
	timeout, err := durationEnv("UPSTREAM_TIMEOUT", defaultTimeout)
	if err != nil {
		return Server{}, err
	}
	maxBody, err := int64Env("MAX_BODY_BYTES", defaultMaxBodyBytes)
	if err != nil {
		return Server{}, err
	}
	maxResp, err := int64Env("MAX_RESPONSE_BYTES", defaultMaxRespBytes)
	if err != nil {
		return Server{}, err
	}
	upstream := stringEnv("UPSTREAM_BASE_URL", defaultUpstreamBaseURL)
	if err := validateURL("UPSTREAM_BASE_URL", upstream); err != nil {
		return Server{}, err
	}

	return Server{
		Addr:            stringEnv("GATEWAY_ADDR", defaultGatewayAddr),
		UpstreamBaseURL: strings.TrimSuffix(upstream, "/"),
		UpstreamTimeout: timeout,
		MaxBodyBytes:    maxBody,
		MaxRespBytes:    maxResp,
		AllowedOrigins:  listEnv("CORS_ALLOWED_ORIGINS"),
		Environment:     stringEnv("ENV", EnvDevelopment),
		LogLevel:        stringEnv("LOG_LEVEL", "info"),
	}, nil
}

// ClientFromEnv builds the CLI config. Flags override individual fields.
func ClientFromEnv() (Client, error) {
	timeout, err := durationEnv("TEAMHUB_TIMEOUT", defaultTimeout)
	if err != nil {
		return Client{}, err
	}

	cfg := Client{
		GatewayURL:    strings.TrimSuffix(stringEnv("TEAMHUB_GATEWAY_URL", defaultGatewayURL), "/"),
		Timeout:       timeout,
		SessionStore:  stringEnv("TEAMHUB_SESSION_STORE", DefaultSessionPath()),
		Profile:       stringEnv("TEAMHUB_PROFILE", DefaultProfile),
		Auth:          stringEnv("TEAMHUB_AUTH", "upstream"),
		DevSigningKey: os.Getenv("TEAMHUB_DEV_SIGNING_KEY"),
		DevSecret:     stringEnv("TEAMHUB_DEV_PASSWORD", "teamhub-dev"),
		Environment:   stringEnv("ENV", EnvDevelopment),
		LogLevel:      stringEnv("LOG_LEVEL", "warn"),
	}
	if err := validateURL("TEAMHUB_GATEWAY_URL", cfg.GatewayURL); err != nil {
		return Client{}, err
	}
	switch cfg.Auth {
	case "upstream":
	case "dev":
		if cfg.DevSigningKey == "" {
			return Client{}, errors.New("TEAMHUB_DEV_SIGNING_KEY is required when TEAMHUB_AUTH=dev")
		}
	default:
		return Client{}, fmt.Errorf("TEAMHUB_AUTH: unknown issuer %q (want upstream or dev)", cfg.Auth)
	}
	if cfg.UsesRedis() {
		cfg.Redis = DefaultRedisConfig(cfg.SessionStore)
	}
	return cfg, nil
}

// DefaultSessionPath is where the CLI keeps its session file.
func DefaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "teamhub", "session.yaml")
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid positive integer %q", key, raw)
	}
	return n, nil
}

// listEnv splits a comma list, dropping blanks and duplicates in order.
func listEnv(key string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if _, dup := seen[part]; part == "" || dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func validateURL(key, raw string) error {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("%s: %q is not an http(s) URL", key, raw)
	}
	return nil
}
