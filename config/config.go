package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort string `yaml:"app_port"`
	AppMode string `yaml:"app_mode"`

	DBHost     string `yaml:"db_host"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`
	DBPort     string `yaml:"db_port"`
	DBLogSQL   bool   `yaml:"db_log_sql"`

	JWTSecret     string `yaml:"jwt_secret"`
	JWTExpiryMin  int    `yaml:"jwt_expiry_min"`
	RefreshExpiry int    `yaml:"refresh_expiry_days"`

	RedisEnabled  bool   `yaml:"redis_enabled"`
	RedisHost     string `yaml:"redis_host"`
	RedisPort     string `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	S3Region     string `yaml:"s3_region"`
	S3Bucket     string `yaml:"s3_bucket"`
	S3AccessKey  string `yaml:"s3_access_key"`
	S3SecretKey  string `yaml:"s3_secret_key"`
	S3Endpoint   string `yaml:"s3_endpoint"`
	S3PublicBase string `yaml:"s3_public_base"`
	S3PresignMin int    `yaml:"s3_presign_min"`

	CORSOrigins        []string `yaml:"cors_origins"`
	ChatPageSize       int      `yaml:"chat_page_size"`
	SessionCleanupSpec string   `yaml:"session_cleanup_spec"`
}

func defaultConfig() *Config {
	return &Config{
		AppPort:            "8080",
		AppMode:            "debug",
		DBHost:             "localhost",
		DBUser:             "postgres",
		DBPassword:         "postgres",
		DBName:             "market_chat",
		DBPort:             "5432",
		JWTSecret:          "change-me",
		JWTExpiryMin:       15,
		RefreshExpiry:      14,
		RedisHost:          "localhost",
		RedisPort:          "6379",
		S3PresignMin:       15,
		CORSOrigins:        []string{"http://localhost:3000"},
		ChatPageSize:       50,
		SessionCleanupSpec: "@every 1h",
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file
// named by CONFIG_FILE, and finally the process environment.
func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			log.Printf("Ignoring config file: %v", err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AppPort = getEnv("APP_PORT", c.AppPort)
	c.AppMode = getEnv("APP_MODE", c.AppMode)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBLogSQL = getEnvAsBool("DB_LOG_SQL", c.DBLogSQL)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTExpiryMin = getEnvAsInt("JWT_EXPIRY_MIN", c.JWTExpiryMin)
	c.RefreshExpiry = getEnvAsInt("REFRESH_EXPIRY_DAYS", c.RefreshExpiry)
	c.RedisEnabled = getEnvAsBool("REDIS_ENABLED", c.RedisEnabled)
	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	c.RedisPort = getEnv("REDIS_PORT", c.RedisPort)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvAsInt("REDIS_DB", c.RedisDB)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3AccessKey = getEnv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getEnv("S3_SECRET_KEY", c.S3SecretKey)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.S3PublicBase = getEnv("S3_PUBLIC_BASE", c.S3PublicBase)
	c.S3PresignMin = getEnvAsInt("S3_PRESIGN_MIN", c.S3PresignMin)
	c.CORSOrigins = getEnvAsList("CORS_ORIGINS", c.CORSOrigins)
	c.ChatPageSize = getEnvAsInt("CHAT_PAGE_SIZE", c.ChatPageSize)
	c.SessionCleanupSpec = getEnv("SESSION_CLEANUP_SPEC", c.SessionCleanupSpec)
}

// StorageEnabled reports whether enough S3 settings exist to build a client.
func (c *Config) StorageEnabled() bool {
	return c.S3Region != "" && c.S3Bucket != ""
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
