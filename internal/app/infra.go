package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	mongostore "github.com/fitlog/fitness-api/internal/infrastructure/db/mongo"
	redisstore "github.com/fitlog/fitness-api/internal/infrastructure/db/redis"
	"github.com/fitlog/fitness-api/internal/pkg/config"
)

// Infra holds the store handles shared by every request.
type Infra struct {
	MongoClient *mongo.Client
	DB          *mongo.Database
	Redis       *redis.Client

	Users       *mongostore.UserRepository
	LoginEvents *mongostore.LoginEventRepository
	Sessions    *redisstore.SessionStore
	Throttle    *redisstore.LoginThrottle
}

func setupInfra(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Infra, error) {
	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")

	infra := &Infra{
		MongoClient: client,
		DB:          db,
		Redis:       rdb,
		Users:       mongostore.NewUserRepository(db),
		LoginEvents: mongostore.NewLoginEventRepository(db),
		Sessions:    redisstore.NewSessionStore(rdb),
		Throttle:    redisstore.NewLoginThrottle(rdb, cfg.Auth.MaxAttempts, cfg.Auth.AttemptWindow),
	}

	if err := infra.Users.EnsureIndexes(ctx); err != nil {
		_ = infra.Close(ctx)
		return nil, fmt.Errorf("ensure user indexes: %w", err)
	}
	if err := infra.LoginEvents.EnsureIndexes(ctx); err != nil {
		_ = infra.Close(ctx)
		return nil, fmt.Errorf("ensure login event indexes: %w", err)
	}

	return infra, nil
}

// Close releases both connections.
func (i *Infra) Close(ctx context.Context) error {
	redisErr := i.Redis.Close()
	if err := i.MongoClient.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo disconnect: %w", err)
	}
	if redisErr != nil {
		return fmt.Errorf("redis close: %w", redisErr)
	}
	return nil
}
