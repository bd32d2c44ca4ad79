package config

import (
	"log"
	"os"
	"strconv"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Timeout  int
	Retries  int
	Prefix   string
}

type BackendConfig struct {
	BaseURL string
	Token   string
	Timeout int
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
}

type AppConfig struct {
	Port          string
	TerminalToken string

	Backend  BackendConfig
	Postgres PostgresConfig
	Redis    RedisConfig

	UseS3 bool
	S3    S3Config

	FilesDir          string
	FilesPublicPrefix string
	ExternalURL       string

	CacheTTLMinutes int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

func mustBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool value %q: %v", s, err)
	}
	return b
}

func Load() AppConfig {
	return AppConfig{
		Port:          getenv("APP_PORT", "8020"),
		TerminalToken: getenv("TERMINAL_TOKEN", ""),
		Backend: BackendConfig{
			BaseURL: getenv("BACKEND_URL", "http://127.0.0.1:8000"),
			Token:   getenv("BACKEND_TOKEN", ""),
			Timeout: mustAtoi(getenv("BACKEND_TIMEOUT", "30")),
		},
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     mustAtoi(getenv("PG_PORT", "5432")),
			User:     getenv("PG_USER", "montshop"),
			Password: getenv("PG_PASSWORD", "montshop"),
			DBName:   getenv("PG_DB", "montshop_terminal"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       mustAtoi(getenv("REDIS_DB", "0")),
			Timeout:  mustAtoi(getenv("REDIS_TIMEOUT", "5")),
			Retries:  mustAtoi(getenv("REDIS_RETRIES", "2")),
			Prefix:   getenv("REDIS_PREFIX", "montshop_terminal_"),
		},
		UseS3: mustBool(getenv("USE_S3", "false")),
		S3: S3Config{
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "montshop-files"),
			Region:          getenv("S3_REGION", "us-east-1"),
			UseSSL:          mustBool(getenv("S3_USE_SSL", "false")),
			Prefix:          getenv("S3_PREFIX", ""),
		},
		FilesDir:          getenv("FILES_DIR", "./files"),
		FilesPublicPrefix: getenv("FILES_PUBLIC_PREFIX", "/files"),
		ExternalURL:       getenv("EXTERNAL_URL", ""),
		CacheTTLMinutes:   mustAtoi(getenv("CACHE_TTL_MINUTES", "15")),
	}
}
