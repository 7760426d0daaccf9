package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "10MB"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		FrontendOrigin     string `json:"frontendOrigin" yaml:"frontendOrigin"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	// Postgres is optional; when nil the in-memory user directory is used.
	Postgres *PostgresConfig `json:"postgres" yaml:"postgres"`

	Secrets SecretsConfig `json:"secrets" yaml:"secrets"`

	Token TokenConfig `json:"token" yaml:"token"`

	GoogleOAuth *GoogleOAuthConfig `json:"googleOAuth" yaml:"googleOAuth"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	RateLimit []RateLimitRule `json:"rateLimit" yaml:"rateLimit"`

	Scraper ScraperConfig `json:"scraper" yaml:"scraper"`

	Session SessionConfig `json:"session" yaml:"session"`
}

// PostgresConfig holds the connection settings for the user directory store.
type PostgresConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	UserName string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"dbName" yaml:"dbName"`
	SSLMode  string `json:"sslMode" yaml:"sslMode"`
}

// SecretsConfig describes where signing secrets come from and how long
// fetched values may be cached before a re-read.
type SecretsConfig struct {
	// JWTSecret is the static signing secret. When JWTSecretFile is set the
	// secret is read from that file instead, allowing rotation without restart.
	JWTSecret     string        `json:"jwtSecret" yaml:"jwtSecret"`
	JWTSecretFile string        `json:"jwtSecretFile" yaml:"jwtSecretFile"`
	CacheTTL      time.Duration `json:"cacheTtl" yaml:"cacheTtl"`
}

// TokenConfig defines JWT issuance parameters. Lifetimes use the compact
// duration form (e.g. "1h", "7d") shared with the frontend configuration.
type TokenConfig struct {
	Issuer     string `json:"issuer" yaml:"issuer"`
	Audience   string `json:"audience" yaml:"audience"`
	AccessTTL  string `json:"accessTtl" yaml:"accessTtl"`
	RefreshTTL string `json:"refreshTtl" yaml:"refreshTtl"`
}

type GoogleOAuthConfig struct {
	ClientID     string `json:"clientId" yaml:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret"`
	RedirectURI  string `json:"redirectUri" yaml:"redirectUri"`
	Scopes       string `json:"scopes" yaml:"scopes"`
}

// Configured reports whether the federation credentials are present.
func (c *GoogleOAuthConfig) Configured() bool {
	return c != nil && c.ClientID != "" && c.ClientSecret != ""
}

// AuthConfig defines authentication-related configuration.
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`
}

// RateLimitRule defines a fixed-window limit for one endpoint.
// Key is "METHOD:path", e.g. "POST:/auth/login".
type RateLimitRule struct {
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Limit    int           `json:"limit" yaml:"limit"`
	Window   time.Duration `json:"window" yaml:"window"`
	// KeyBy selects the caller key: "ip" (pre-auth routes) or "user".
	KeyBy string `json:"keyBy" yaml:"keyBy"`
}

// ScraperConfig tunes the job content extractor.
type ScraperConfig struct {
	FetchTimeout     time.Duration `json:"fetchTimeout" yaml:"fetchTimeout"`
	UserAgent        string        `json:"userAgent" yaml:"userAgent"`
	MaxBodyBytes     int64         `json:"maxBodyBytes" yaml:"maxBodyBytes"`
	MinContentLength int           `json:"minContentLength" yaml:"minContentLength"`
	MaxURLLength     int           `json:"maxUrlLength" yaml:"maxUrlLength"`
}

// SessionConfig tunes the auxiliary in-process session store.
type SessionConfig struct {
	MaxIdle       time.Duration `json:"maxIdle" yaml:"maxIdle"`
	SweepInterval time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// LoadWithEnv loads .yaml files through koanf with environment overrides.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: GOOGLEOAUTH_CLIENTID -> googleOAuth.clientId
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Secrets.CacheTTL <= 0 {
		cfg.Secrets.CacheTTL = 5 * time.Minute
	}
	if cfg.Token.Issuer == "" {
		cfg.Token.Issuer = "tailor"
	}
	if cfg.Token.Audience == "" {
		cfg.Token.Audience = "tailor-users"
	}
	if cfg.Token.AccessTTL == "" {
		cfg.Token.AccessTTL = "1h"
	}
	if cfg.Token.RefreshTTL == "" {
		cfg.Token.RefreshTTL = "7d"
	}
	if cfg.Scraper.FetchTimeout <= 0 {
		cfg.Scraper.FetchTimeout = 10 * time.Second
	}
	if cfg.Scraper.MaxBodyBytes <= 0 {
		cfg.Scraper.MaxBodyBytes = 5 << 20
	}
	if cfg.Scraper.MinContentLength <= 0 {
		cfg.Scraper.MinContentLength = 100
	}
	if cfg.Scraper.MaxURLLength <= 0 {
		cfg.Scraper.MaxURLLength = 2048
	}
	if cfg.Session.MaxIdle <= 0 {
		cfg.Session.MaxIdle = 24 * time.Hour
	}
	if cfg.Session.SweepInterval <= 0 {
		cfg.Session.SweepInterval = time.Hour
	}
	if len(cfg.RateLimit) == 0 {
		cfg.RateLimit = DefaultRateLimits()
	}
}

// DefaultRateLimits returns the built-in per-endpoint limits. Auth endpoints
// key by client IP because they run before authentication; resource
// endpoints key by the authenticated user.
func DefaultRateLimits() []RateLimitRule {
	return []RateLimitRule{
		{Endpoint: "POST:/auth/login", Limit: 5, Window: 5 * time.Minute, KeyBy: "ip"},
		{Endpoint: "POST:/auth/register", Limit: 3, Window: time.Hour, KeyBy: "ip"},
		{Endpoint: "POST:/job/analyze", Limit: 1, Window: 15 * time.Second, KeyBy: "user"},
		{Endpoint: "POST:/cv/tailor", Limit: 1, Window: 15 * time.Second, KeyBy: "user"},
		{Endpoint: "POST:/cv/upload", Limit: 5, Window: time.Minute, KeyBy: "user"},
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
