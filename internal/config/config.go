// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/estatecart/internal/logger"
	"github.com/hitoshi/estatecart/internal/mls"
	"github.com/joho/godotenv"
)

// ストレージバックエンド
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMongo    = "mongo"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StoreBackend  string
	DatabaseURL   string
	MongoURL      string
	MongoDatabase string

	// MLS
	MLSAPIURL            string
	MLSAuthToken         string
	MLSTimeout           time.Duration
	MLSDefaultLimit      int
	MLSMaxLimit          int
	MLSBaseFilter        string
	MLSEgressGuard       bool
	MLSEnrichConcurrency int

	// Identity Provider
	IdentityJWTSecret   string
	IdentityAudience    string
	IdentityProviderURL string
	IdentityAPIKey      string
	IdentityTimeout     time.Duration

	// Cache
	RedisURL         string
	PropertyCacheTTL time.Duration

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral  int
	RateLimitMutation int

	// Logging
	AppName    string
	LogLevel   string
	LogFormat  string
	FluentHost string
	FluentPort int

	// Server
	ServerPort string
	// TrustProxyHeaders が true の場合、X-Forwarded-For / X-Real-IP をクライアントIPとして扱う
	TrustProxyHeaders bool

	// CORS
	CORSAllowedOrigins []string
}

// LoadDotEnv は.envファイルを環境変数に読み込む。
// ファイルが存在しない場合はエラーにしない。既に設定済みの環境変数は上書きしない。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%s の読み込みに失敗しました: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	var missing []string

	cfg.StoreBackend = strings.ToLower(getEnvString("STORE_BACKEND", StoreBackendPostgres))
	switch cfg.StoreBackend {
	case StoreBackendPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreBackendMongo:
		cfg.MongoURL = os.Getenv("MONGO_URL")
		if cfg.MongoURL == "" {
			missing = append(missing, "MONGO_URL")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND は %s または %s を指定してください: %q", StoreBackendPostgres, StoreBackendMongo, cfg.StoreBackend)
	}

	cfg.MLSAPIURL = os.Getenv("MLS_API_URL")
	if cfg.MLSAPIURL == "" {
		missing = append(missing, "MLS_API_URL")
	}
	cfg.MLSAuthToken = os.Getenv("MLS_AUTH_TOKEN")
	if cfg.MLSAuthToken == "" {
		missing = append(missing, "MLS_AUTH_TOKEN")
	}

	cfg.IdentityJWTSecret = os.Getenv("IDENTITY_JWT_SECRET")
	cfg.IdentityProviderURL = os.Getenv("IDENTITY_PROVIDER_URL")
	if cfg.IdentityJWTSecret == "" && cfg.IdentityProviderURL == "" {
		missing = append(missing, "IDENTITY_JWT_SECRET or IDENTITY_PROVIDER_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.MongoDatabase = getEnvString("MONGO_DATABASE", "estatecart")
	cfg.MLSTimeout = getEnvDuration("MLS_TIMEOUT", 30*time.Second)
	cfg.MLSDefaultLimit = getEnvPositiveInt("MLS_DEFAULT_LIMIT", 24)
	cfg.MLSMaxLimit = getEnvPositiveInt("MLS_MAX_LIMIT", 50)
	if cfg.MLSDefaultLimit > cfg.MLSMaxLimit {
		cfg.MLSDefaultLimit = cfg.MLSMaxLimit
	}
	cfg.MLSBaseFilter = mls.DefaultBaseFilter
	if v, ok := os.LookupEnv("MLS_BASE_FILTER"); ok {
		cfg.MLSBaseFilter = strings.TrimSpace(v)
	}
	cfg.MLSEgressGuard = getEnvBool("MLS_EGRESS_GUARD", true)
	cfg.MLSEnrichConcurrency = getEnvPositiveInt("MLS_ENRICH_CONCURRENCY", 4)

	cfg.IdentityAudience = getEnvString("IDENTITY_AUDIENCE", "")
	cfg.IdentityAPIKey = getEnvString("IDENTITY_API_KEY", "")
	cfg.IdentityTimeout = getEnvDuration("IDENTITY_TIMEOUT", 10*time.Second)

	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.PropertyCacheTTL = getEnvDuration("PROPERTY_CACHE_TTL", 10*time.Minute)

	cfg.RateLimitGeneral = getEnvPositiveInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvPositiveInt("RATE_LIMIT_MUTATION", 30)

	cfg.AppName = getEnvString("APP_NAME", "estatecart")
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL が不正です: %w", err)
	}
	cfg.LogFormat = strings.ToLower(getEnvString("LOG_FORMAT", logger.FormatJSON))
	if !logger.ValidFormat(cfg.LogFormat) {
		return nil, fmt.Errorf("LOG_FORMAT は json または text を指定してください: %q", cfg.LogFormat)
	}
	cfg.FluentHost = getEnvString("FLUENT_HOST", "")
	cfg.FluentPort = getEnvPositiveInt("FLUENT_PORT", 24224)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.CORSAllowedOrigins = splitList(getEnvString("CORS_ALLOWED_ORIGINS", "*"))

	return cfg, nil
}

// UseJWT はIdentity Providerのトークンをローカルで検証するかを返す。
// 署名鍵が設定されている場合はリモート問い合わせより優先する。
func (c *Config) UseJWT() bool {
	return c.IdentityJWTSecret != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvPositiveInt は正の整数を読み込む。未設定、数値でない、0以下の場合は既定値とする。
func getEnvPositiveInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// splitList はカンマ区切りの値を分割し、空要素を除いて返す。
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
