package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	BackendSupabase   = "supabase"
	BackendPostgres   = "postgres"
	BackendCloudinary = "cloudinary"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	SupabaseURL       string
	SupabaseAnonKey   string
	SupabaseJWTSecret string

	StoreBackend string
	DatabaseURL  string

	MongoDBURI      string
	MongoDBPassword string

	AvatarBackend       string
	AvatarBucket        string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	NicknameURL   string
	NicknameModel string

	CORSOrigins   []string
	DefaultLocale string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),

		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:   os.Getenv("SUPABASE_URL_ANON_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),

		StoreBackend: strings.ToLower(getEnvWithDefault("STORE_BACKEND", BackendSupabase)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		MongoDBURI:      os.Getenv("MONGODB_URI"),
		MongoDBPassword: os.Getenv("MONGODB_PASSWORD"),

		AvatarBackend:       strings.ToLower(getEnvWithDefault("AVATAR_BACKEND", BackendSupabase)),
		AvatarBucket:        getEnvWithDefault("AVATAR_BUCKET", "avatars"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		NicknameURL:   os.Getenv("NICKNAME_URL"),
		NicknameModel: os.Getenv("NICKNAME_MODEL"),

		CORSOrigins:   splitList(getEnvWithDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:8081")),
		DefaultLocale: getEnvWithDefault("DEFAULT_LOCALE", "it"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required and mutually dependent settings.
func (c *Config) Validate() error {
	// Supabase stays required: auth is always served by it.
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseAnonKey == "" {
		return fmt.Errorf("SUPABASE_URL_ANON_KEY is required")
	}

	switch c.StoreBackend {
	case BackendSupabase:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.AvatarBackend {
	case BackendSupabase:
	case BackendCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return fmt.Errorf("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET are required when AVATAR_BACKEND=%s", BackendCloudinary)
		}
	default:
		return fmt.Errorf("unknown AVATAR_BACKEND %q", c.AvatarBackend)
	}

	if c.MongoDBURI != "" && strings.Contains(c.MongoDBURI, "<password>") && c.MongoDBPassword == "" {
		return fmt.Errorf("MONGODB_PASSWORD is required by MONGODB_URI")
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) SessionAuditEnabled() bool {
	return c.MongoDBURI != ""
}

// SlogLevel maps LOG_LEVEL; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
