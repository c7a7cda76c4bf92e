package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	EventsCollection    = "events"
	UsersCollection     = "users"
	InterestsCollection = "interests"
)

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Mongo is the document store holding events, users and the interest tree
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func ConnectMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	slog.Info("Connected to mongo", "database", cfg.Database)
	return &Mongo{Client: client, DB: client.Database(cfg.Database)}, nil
}

func (m *Mongo) Events() *mongo.Collection    { return m.DB.Collection(EventsCollection) }
func (m *Mongo) Users() *mongo.Collection     { return m.DB.Collection(UsersCollection) }
func (m *Mongo) Interests() *mongo.Collection { return m.DB.Collection(InterestsCollection) }

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the feed views rely on
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	events := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "city", Value: 1}, {Key: "status", Value: 1}, {Key: "is_active", Value: 1}},
			Options: options.Index().SetName("city_status_active"),
		},
		{
			Keys:    bson.D{{Key: "dates.date", Value: 1}, {Key: "dates.start_time", Value: 1}},
			Options: options.Index().SetName("dates"),
		},
		{
			Keys:    bson.D{{Key: "interests", Value: 1}},
			Options: options.Index().SetName("interests"),
		},
		{
			Keys:    bson.D{{Key: "author", Value: 1}},
			Options: options.Index().SetName("author"),
		},
		{
			Keys:    bson.D{{Key: "in_favourites", Value: 1}},
			Options: options.Index().SetName("in_favourites"),
		},
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetName("location_2dsphere"),
		},
	}
	if _, err := m.Events().Indexes().CreateMany(ctx, events); err != nil {
		return fmt.Errorf("failed to create event indexes: %w", err)
	}

	users := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email").SetUnique(true),
		},
	}
	if _, err := m.Users().Indexes().CreateMany(ctx, users); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	interests := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "parent", Value: 1}},
			Options: options.Index().SetName("parent"),
		},
	}
	if _, err := m.Interests().Indexes().CreateMany(ctx, interests); err != nil {
		return fmt.Errorf("failed to create interest indexes: %w", err)
	}

	slog.Info("Mongo indexes ensured")
	return nil
}

// HealthCheck pings the primary, same shape as the PostgreSQL check
func (m *Mongo) HealthCheck(ctx context.Context) HealthCheck {
	start := time.Now()
	check := HealthCheck{Timestamp: start}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.Client.Ping(pingCtx, nil)
	check.ResponseTime = time.Since(start)
	if err != nil {
		check.Status = "unhealthy"
		check.Error = err.Error()
		slog.Error("Mongo health check failed", "error", err)
	} else {
		check.Status = "healthy"
	}
	return check
}
