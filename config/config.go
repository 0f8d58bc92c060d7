package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. Values come from the
// environment (optionally via a .env file) with working defaults for local
// development.
type Config struct {
	ServerAddr string

	// Generation model service
	ModelAPIURL     string
	ModelAPIKey     string
	ModelName       string
	SampleRate      int
	ModelTimeoutSec int

	// Audio assembly defaults
	CrossfadeSeconds float64
	AlignToBeat      bool

	// Working/output directories
	OutputDir string // finished WAVs land here before upload
	WorkDir   string // per-job segment scratch space, watched for progress

	// JWT signing secret for the auth middleware
	JWTSecret string

	// MySQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO object storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Logging
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	dataBase := getEnv("DATA_DIR", "data")

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		ModelAPIURL:     getEnv("MODEL_API_URL", "http://127.0.0.1:8188"),
		ModelAPIKey:     os.Getenv("MODEL_API_KEY"),
		ModelName:       getEnv("MODEL_NAME", "musicgen-small"),
		SampleRate:      getEnvInt("SAMPLE_RATE", 32000),
		ModelTimeoutSec: getEnvInt("MODEL_TIMEOUT_SEC", 300),

		CrossfadeSeconds: getEnvFloat("CROSSFADE_SECONDS", 6.0),
		AlignToBeat:      getEnvBool("ALIGN_TO_BEAT", true),

		OutputDir: filepath.Join(dataBase, "outputs"),
		WorkDir:   filepath.Join(dataBase, "work"),

		JWTSecret: getEnv("JWT_SECRET", "orpheus-dev-secret"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "orpheus"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "orpheus"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", filepath.Join("logs", "orpheus.log")),
	}
}
