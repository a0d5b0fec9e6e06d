package connect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joshua-takyi/evently/internal/config"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Clients are the external connections the server holds for its lifetime.
// Optional ones stay nil when not configured.
type Clients struct {
	Supabase   *supabase.Client
	Mongo      *mongo.Client
	Postgres   *pgxpool.Pool
	Cloudinary *cloudinary.Cloudinary
}

func InitSupabase(url, key string) (*supabase.Client, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %v", err)
	}
	return client, nil
}

func MongoDBConnect(ctx context.Context, uri, password string) (*mongo.Client, error) {
	fullUri := strings.Replace(uri, "<password>", password, 1)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(fullUri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}
	return client, nil
}

func PostgresConnect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %v", err)
	}
	return pool, nil
}

func CloudinaryCredentials(cloudName, apiKey, apiSecret string) (*cloudinary.Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %v", err)
	}
	return cld, nil
}

// Open connects everything cfg asks for. On error the clients opened so
// far are closed.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	clients := &Clients{}
	var err error

	clients.Supabase, err = InitSupabase(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to Supabase successfully")

	if cfg.DatabaseURL != "" {
		clients.Postgres, err = PostgresConnect(ctx, cfg.DatabaseURL)
		if err != nil {
			clients.Close(logger)
			return nil, err
		}
		logger.Info("Connected to Postgres successfully")
	}

	if cfg.SessionAuditEnabled() {
		clients.Mongo, err = MongoDBConnect(ctx, cfg.MongoDBURI, cfg.MongoDBPassword)
		if err != nil {
			clients.Close(logger)
			return nil, err
		}
		logger.Info("Connected to MongoDB successfully")
	}

	if cfg.AvatarBackend == config.BackendCloudinary {
		clients.Cloudinary, err = CloudinaryCredentials(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			clients.Close(logger)
			return nil, err
		}
		logger.Info("Cloudinary configured")
	}
	return clients, nil
}

func (c *Clients) Close(logger *slog.Logger) {
	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Mongo.Disconnect(ctx); err != nil {
			logger.Error("Error disconnecting from MongoDB", "error", err)
		}
		c.Mongo = nil
	}
	if c.Postgres != nil {
		c.Postgres.Close()
		c.Postgres = nil
	}
	c.Supabase = nil
}
