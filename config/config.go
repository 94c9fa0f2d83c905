package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort   string
	JWTSecret string
	// Persistence: "mysql" or "sqlite"
	StoreDriver string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string
	// Redis read cache
	RedisEnabled    bool
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// Compare-and-swap attempts per pan mutation
	CASMaxAttempts int
	AllowedOrigins []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads a flat JSON object into out if the file exists.
// Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	str := func(key string, dst *string) {
		if s, ok := raw[key].(string); ok {
			*dst = s
		}
	}
	num := func(key string, dst *int) {
		if f, ok := raw[key].(float64); ok {
			*dst = int(f)
		}
	}
	flag := func(key string, dst *bool) {
		if b, ok := raw[key].(bool); ok {
			*dst = b
		}
	}

	str("AppPort", &out.AppPort)
	str("JWTSecret", &out.JWTSecret)
	str("StoreDriver", &out.StoreDriver)
	str("DatabaseURI", &out.DatabaseURI)
	str("DBHost", &out.DBHost)
	str("DBPort", &out.DBPort)
	str("DBUser", &out.DBUser)
	str("DBPassword", &out.DBPassword)
	str("DBName", &out.DBName)
	str("SQLitePath", &out.SQLitePath)
	flag("RedisEnabled", &out.RedisEnabled)
	str("RedisHost", &out.RedisHost)
	num("RedisPort", &out.RedisPort)
	num("RedisDB", &out.RedisDB)
	str("RedisPassword", &out.RedisPassword)
	num("CacheTTLSeconds", &out.CacheTTLSeconds)
	num("CASMaxAttempts", &out.CASMaxAttempts)
	str("GinMode", &out.GinMode)
	str("GinPath", &out.GinPath)
	str("LogLevel", &out.LogLevel)
	str("LogPath", &out.LogPath)
	num("LogMaxSizeMB", &out.LogMaxSizeMB)
	num("LogMaxBackups", &out.LogMaxBackups)
	num("LogMaxAgeDays", &out.LogMaxAgeDays)
	flag("LogCompress", &out.LogCompress)

	if arr, ok := raw["AllowedOrigins"].([]any); ok {
		for _, it := range arr {
			if s, ok := it.(string); ok {
				out.AllowedOrigins = append(out.AllowedOrigins, s)
			}
		}
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "5000"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "pans"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/pans.db"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 3600
	}
	if c.CASMaxAttempts == 0 {
		c.CASMaxAttempts = 5
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("PORT", ""); v != "" { // compatibility
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("STORE_DRIVER", ""); v != "" {
		c.StoreDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("SQLITE_PATH", ""); v != "" {
		c.SQLitePath = v
	}
	if v := getEnv("REDIS_ENABLED", ""); v != "" {
		c.RedisEnabled = parseBool(v)
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		c.CacheTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("CAS_MAX_ATTEMPTS", ""); v != "" {
		c.CASMaxAttempts = mustParseInt(v)
	}
	if v := getEnv("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = parseBool(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Fatalf("invalid integer value %q: %v", val, err)
	}
	return i
}

func parseBool(val string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(val))
	return b
}

func splitAndTrim(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
