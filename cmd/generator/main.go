package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"citypulse/internal/config"
	"citypulse/internal/database"
	"citypulse/internal/logger"
	"citypulse/internal/middleware"
	"citypulse/internal/repository"
	"citypulse/internal/repository/memory"
	"citypulse/internal/search"
)

var (
	clearExisting = flag.Bool("clear", false, "Drop events, users and interests before generating")
	eventCount    = flag.Int("events", 200, "Number of events to generate")
	dryRun        = flag.Bool("dry-run", false, "Generate into memory and print the summary without touching MongoDB")
	seed          = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	tokenTTL      = flag.Duration("token-ttl", 30*24*time.Hour, "Lifetime of printed bearer tokens")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")

	slog.Info("Starting generator...", "events", *eventCount, "dry_run", *dryRun)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var repos *repository.Repositories
	if *dryRun {
		repos = memory.New().Repositories()
	} else {
		mongo, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			slog.Error("Failed to connect to mongo", "error", err)
			os.Exit(1)
		}
		defer mongo.Close(context.Background())

		if *clearExisting {
			for _, name := range []string{database.EventsCollection, database.UsersCollection, database.InterestsCollection} {
				if err := mongo.DB.Collection(name).Drop(ctx); err != nil {
					slog.Error("Failed to drop collection", "collection", name, "error", err)
					os.Exit(1)
				}
				slog.Info("Dropped collection", "collection", name)
			}
		}
		if err := mongo.EnsureIndexes(ctx); err != nil {
			slog.Error("Failed to ensure indexes", "error", err)
			os.Exit(1)
		}
		// events, users, interests; complaints in PostgreSQL are not seeded
		repos = &repository.Repositories{
			Events:    repository.NewEventRepository(mongo.Events()),
			Users:     repository.NewUserRepository(mongo.Users()),
			Interests: repository.NewInterestRepository(mongo.Interests()),
		}
	}

	now := time.Now().UTC()
	summary, err := NewGenerator(repos, *seed, now).Generate(ctx, *eventCount)
	if err != nil {
		slog.Error("Failed to generate data", "error", err)
		os.Exit(1)
	}

	// события пишутся в Mongo напрямую, индекс перестраивается целиком
	if cfg.Elasticsearch.Enabled && !*dryRun {
		es, err := search.NewElasticsearchClient(ctx, cfg.Elasticsearch)
		if err != nil {
			slog.Error("Failed to connect to elasticsearch", "error", err)
			os.Exit(1)
		}
		n, err := search.Reindex(ctx, repos.Events, es, 0)
		if err != nil {
			slog.Error("Failed to index events", "error", err)
			os.Exit(1)
		}
		slog.Info("Indexed events", "count", n)
	}

	slog.Info("Generated interests", "count", len(summary.Interests))
	for _, u := range summary.Users {
		attrs := []any{"email", u.Email, "role", u.Role, "id", u.ID.Hex()}
		if cfg.JWTSecret != "" {
			token, err := middleware.IssueToken(cfg.JWTSecret, u.ID, *tokenTTL, now)
			if err != nil {
				slog.Error("Failed to issue token", "user", u.Email, "error", err)
				os.Exit(1)
			}
			attrs = append(attrs, "token", token)
		}
		slog.Info("Generated user", attrs...)
	}

	slog.Info("Generation completed successfully!")
}
