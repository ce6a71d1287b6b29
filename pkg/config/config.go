package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	// developmentSigningKey is only used outside production when JWT_SECRET is unset.
	developmentSigningKey = "notes-service-development-secret"
)

// DBConfig holds database configuration
type DBConfig struct {
	Driver          string
	DSN             string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the connection string for the configured driver
func (c *DBConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port               string
	Env                string
	Version            string
	AllowedOrigins     []string
	BodyLimit          string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is believed
	TrustedProxies []string
}

// TrustedProxyRanges parses TrustedProxies. A bare IP is a single host range.
func (c *ServerConfig) TrustedProxyRanges() ([]*net.IPNet, error) {
	ranges := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, value := range c.TrustedProxies {
		if ip := net.ParseIP(value); ip != nil {
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip = ip.To4()
				bits = 8 * net.IPv4len
			}
			ranges = append(ranges, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(value)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", value)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey string
	Issuer     string
	// InsecureDefault is set when SigningKey fell back to the development key.
	InsecureDefault bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// RedisConfig holds the optional redis connection used for quota locking
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// QuotaConfig points at the plan limits file
type QuotaConfig struct {
	PlansFile string
}

// SeedConfig controls demo data provisioning
type SeedConfig struct {
	OnStart               bool
	Password              string
	InviteDefaultPassword string
}

// Config holds all configuration
type Config struct {
	ServiceName string
	DB          DBConfig
	Server      ServerConfig
	JWT         JWTConfig
	Log         LogConfig
	Redis       RedisConfig
	Quota       QuotaConfig
	Seed        SeedConfig
}

// Load loads configuration from the .env file and environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	env := getEnv("APP_ENV", EnvDevelopment)

	config := &Config{
		ServiceName: getEnv("SERVICE_NAME", "notes-service"),
		DB: DBConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:             getEnv("DB_DSN", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "notes_service"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			Path:            getEnv("DB_PATH", "notes.db"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 45*time.Second),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port:    getEnv("SERVER_PORT", "3001"),
			Env:     env,
			Version: getEnv("APP_VERSION", "1.0.0"),
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"https://*.vercel.app",
			}),
			BodyLimit:          getEnv("BODY_LIMIT", "10M"),
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", nil),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SECRET", ""),
			Issuer:     getEnv("JWT_ISSUER", "notes-service"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("QUOTA_LOCK_TTL", 5*time.Second),
		},
		Quota: QuotaConfig{
			PlansFile: getEnv("PLANS_FILE", ""),
		},
		Seed: SeedConfig{
			OnStart:               getEnvAsBool("SEED_ON_START", false),
			Password:              getEnv("SEED_PASSWORD", "password"),
			InviteDefaultPassword: getEnv("INVITE_DEFAULT_PASSWORD", "password"),
		},
	}

	if frontend := getEnv("FRONTEND_URL", ""); frontend != "" {
		config.Server.AllowedOrigins = append(config.Server.AllowedOrigins, frontend)
	}

	if config.JWT.SigningKey == "" && !config.IsProduction() {
		config.JWT.SigningKey = developmentSigningKey
		config.JWT.InsecureDefault = true
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if c.JWT.SigningKey == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.Server.Port == "" {
		return errors.New("SERVER_PORT must not be empty")
	}
	if _, err := c.Server.TrustedProxyRanges(); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}

// LogConfig returns the configuration as zap fields, secrets omitted
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.Strings("allowed_origins", c.Server.AllowedOrigins),
		zap.Bool("redis_lock", c.Redis.Addr != ""),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as booleans
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get comma separated environment variables
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
