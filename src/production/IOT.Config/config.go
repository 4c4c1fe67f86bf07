package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `json:"server"`
	Mongo   MongoConfig   `json:"mongo"`
	MQTT    MQTTConfig    `json:"mqtt"`
	Auth    AuthConfig    `json:"auth"`
	Logging LoggingConfig `json:"logging"`
	CORS    CORSConfig    `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MongoConfig holds document store configuration
type MongoConfig struct {
	URI            string        `json:"uri"`
	Database       string        `json:"database"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	QueryTimeout   time.Duration `json:"query_timeout"`
}

// MQTTConfig holds MQTT broker configuration. The client identifier is
// used as both username and password on the broker session.
type MQTTConfig struct {
	BrokerHost         string        `json:"broker_host"`
	BrokerPort         int           `json:"broker_port"`
	ClientID           string        `json:"client_id"`
	UseTLS             bool          `json:"use_tls"`
	CACertPath         string        `json:"ca_cert_path"`
	InsecureSkipVerify bool          `json:"insecure_skip_verify"`
	KeepAlive          time.Duration `json:"keep_alive"`
	PingTimeout        time.Duration `json:"ping_timeout"`
	ReconnectInterval  time.Duration `json:"reconnect_interval"`
}

// AuthConfig holds authentication-related configuration
type AuthConfig struct {
	JWTSecretKey        string        `json:"jwt_secret_key"`
	JWTIssuer           string        `json:"jwt_issuer"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	if err := godotenv.Load(); err != nil {
		// Silently ignore .env file loading errors
		// This allows the application to work with environment variables set directly
	}

	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "9000"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DB", "iot"),
			ConnectTimeout: getDuration("MONGO_CONNECT_TIMEOUT", 20*time.Second),
			QueryTimeout:   getDuration("MONGO_QUERY_TIMEOUT", 10*time.Second),
		},
		MQTT: MQTTConfig{
			BrokerHost:         getEnv("MQTT_HOST", "localhost"),
			BrokerPort:         getInt("MQTT_PORT", 8883),
			ClientID:           getRequiredEnv("MQTT_CLIENTID"),
			UseTLS:             getBool("MQTT_TLS", true),
			CACertPath:         getEnv("MQTT_CA_FILE", ""),
			InsecureSkipVerify: getBool("MQTT_INSECURE_SKIP_VERIFY", true),
			KeepAlive:          getDuration("MQTT_KEEP_ALIVE", 300*time.Second),
			PingTimeout:        getDuration("MQTT_PING_TIMEOUT", 10*time.Second),
			ReconnectInterval:  getDuration("MQTT_RECONNECT_INTERVAL", time.Second),
		},
		Auth: AuthConfig{
			JWTSecretKey:        getEnv("JWT_SECRET_KEY", "change-this-secret-in-production"),
			JWTIssuer:           getEnv("JWT_ISSUER", "iot-telemetry-server"),
			AccessTokenDuration: getDuration("JWT_ACCESS_TOKEN_DURATION", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
			AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "token"}),
			ExposedHeaders:   getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length"}),
			AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getInt("CORS_MAX_AGE", 43200), // 12 hours
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}
	if c.MQTT.ClientID == "" {
		return fmt.Errorf("MQTT_CLIENTID is required")
	}
	if c.Auth.JWTSecretKey == "change-this-secret-in-production" {
		log.Println("WARNING: Using default JWT secret key. Change JWT_SECRET_KEY in production!")
	}
	return nil
}

// GetMQTTBrokerURL returns the MQTT broker URL
func (c *Config) GetMQTTBrokerURL() string {
	scheme := "tcp"
	if c.MQTT.UseTLS {
		scheme = "tcps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.MQTT.BrokerHost, c.MQTT.BrokerPort)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("missing required environment variable: %s", key)
	}
	return value
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "1" || value == "true" || value == "TRUE" {
		return true
	}
	if value == "0" || value == "false" || value == "FALSE" {
		return false
	}
	log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
