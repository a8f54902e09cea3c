package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DBDriver    string
	DatabaseURL string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	CookieSecure     bool

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	FieldEncryptionKey string

	ClientURL     string
	CORSOrigins   []string
	CSRFEnabled   bool
	AuthRateLimit int
}

func Load() Config {
	clientURL := EnvDefault("CLIENT_URL", "http://localhost:5173")
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "handmade_shop"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		DBDriver:    EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTL:        EnvDurationDefault("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:       EnvDurationDefault("REFRESH_TTL", 7*24*time.Hour),
		CookieSecure:     EnvBoolDefault("COOKIE_SECURE", true),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		FieldEncryptionKey: os.Getenv("FIELD_ENCRYPTION_KEY"),

		ClientURL:     clientURL,
		CORSOrigins:   CSV(EnvDefault("CORS_ORIGINS", clientURL)),
		CSRFEnabled:   EnvBoolDefault("CSRF_ENABLED", false),
		AuthRateLimit: EnvIntDefault("AUTH_RATE_LIMIT", 20),
	}
}

// CheckCORSOrigins rejects the wildcard: auth rides on cookies, and browsers
// drop credentialed responses whose Access-Control-Allow-Origin is "*".
func CheckCORSOrigins(origins []string) error {
	if len(origins) == 0 {
		return errors.New("CORS_ORIGINS must list at least one origin")
	}
	for _, o := range origins {
		if o == "*" {
			return errors.New("CORS_ORIGINS must list explicit origins, \"*\" cannot carry auth cookies")
		}
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
