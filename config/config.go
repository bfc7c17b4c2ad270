package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func New() map[string]string {
	environ := os.Environ()
	envAsMap := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry != "" {
			key, value := split(entry)
			envAsMap[key] = value
		}
	}
	return envAsMap
}

// assumes entry is not the empty string
func split(entry string) (key, value string) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func GetString(config map[string]string, key string, defaultValue string) string {
	if config == nil {
		return defaultValue
	}

	if val, ok := config[key]; ok && val != "" {
		return val
	}
	return defaultValue
}

func GetInt(config map[string]string, key string, defaultValue int) int {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asInt, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return asInt
}

func GetBool(config map[string]string, key string, defaultValue bool) bool {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	asBool, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}

	return asBool
}

// GetDuration accepts Go duration strings ("90m", "12h").
func GetDuration(config map[string]string, key string, defaultValue time.Duration) time.Duration {
	if config == nil {
		return defaultValue
	}

	s, ok := config[key]
	if !ok {
		return defaultValue
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}

	return d
}

// GetList splits a comma separated value and drops empty entries.
func GetList(config map[string]string, key string) []string {
	raw := GetString(config, key, "")
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Settings is the typed view of the environment, built once at startup and
// passed down explicitly.
type Settings struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	DatabaseURL        string
	ReplicaDSN         string
	SlowQueryThreshold time.Duration
	AutoMigrate        bool
	GenerateModels     bool

	LogLevel  string
	LogFormat string

	AcceptedOrigins []string
	SecureDev       bool
	FormRateLimit   string

	BackendPassword   string
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration

	SlugMaxAttempts int

	UploadBackend    string
	UploadDir        string
	UploadPublicBase string
	S3Bucket         string
	S3PublicBase     string

	ResendAPIKey    string
	ResendFromEmail string
	SalesToEmail    string
}

// Load builds Settings from an env map produced by New.
func Load(c map[string]string) Settings {
	return Settings{
		Port:         GetString(c, "PORT", "8080"),
		ReadTimeout:  time.Duration(GetInt(c, "READ_TIMEOUT_SECONDS", 180)) * time.Second,
		WriteTimeout: time.Duration(GetInt(c, "WRITE_TIMEOUT_SECONDS", 180)) * time.Second,
		IdleTimeout:  time.Duration(GetInt(c, "IDLE_TIMEOUT_SECONDS", 180)) * time.Second,

		DatabaseURL:        databaseURL(c),
		ReplicaDSN:         GetString(c, "DB_REPLICA_DSN", ""),
		SlowQueryThreshold: time.Duration(GetInt(c, "DB_SLOW_QUERY_MS", 2000)) * time.Millisecond,
		AutoMigrate:        GetBool(c, "AUTO_MIGRATE", true),
		GenerateModels:     GetBool(c, "GENERATE_MODELS", false),

		LogLevel:  GetString(c, "LOG_LEVEL", "info"),
		LogFormat: GetString(c, "LOG_FORMAT", "console"),

		AcceptedOrigins: GetList(c, "ACCEPTED_ORIGINS"),
		SecureDev:       GetBool(c, "SECURE_DEV", false),
		FormRateLimit:   GetString(c, "FORM_RATE_LIMIT", "10-M"),

		BackendPassword:   GetString(c, "BACKEND_PASSWORD", ""),
		AdminPasswordHash: GetString(c, "ADMIN_PASSWORD_HASH", ""),
		SessionSecret:     GetString(c, "SESSION_SECRET", ""),
		SessionTTL:        GetDuration(c, "SESSION_TTL", 12*time.Hour),

		SlugMaxAttempts: GetInt(c, "SLUG_MAX_ATTEMPTS", 50),

		UploadBackend:    strings.ToLower(GetString(c, "UPLOAD_BACKEND", "local")),
		UploadDir:        GetString(c, "UPLOAD_DIR", "public"),
		UploadPublicBase: GetString(c, "UPLOAD_PUBLIC_BASE", ""),
		S3Bucket:         GetString(c, "S3_BUCKET", ""),
		S3PublicBase:     GetString(c, "S3_PUBLIC_BASE", ""),

		ResendAPIKey:    GetString(c, "RESEND_API_KEY", ""),
		ResendFromEmail: GetString(c, "RESEND_FROM_EMAIL", ""),
		SalesToEmail:    GetString(c, "SALES_TO_EMAIL", "sales@nextlinkuae.com"),
	}
}

// databaseURL prefers DATABASE_URL and otherwise assembles a postgres URL
// from the individual DB_* variables.
func databaseURL(c map[string]string) string {
	if dsn := GetString(c, "DATABASE_URL", ""); dsn != "" {
		return dsn
	}

	host := GetString(c, "DB_HOST", "localhost")
	port := GetString(c, "DB_PORT", "5432")
	user := GetString(c, "DB_USER", "postgres")
	password := GetString(c, "DB_PASSWORD", "")
	name := GetString(c, "DB_NAME", "site")
	sslMode := GetString(c, "DB_SSLMODE", "disable")

	userInfo := url.UserPassword(user, password)
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s",
		userInfo.String(), host, port, url.PathEscape(name), sslMode)
}
