package consumers

import (
	"context"
	"log/slog"

	"github.com/nats-io/stan.go"

	"citypulse/internal/config"
	"citypulse/internal/database"
	"citypulse/internal/messaging"
	"citypulse/internal/models"
	"citypulse/internal/repository"
	"citypulse/internal/search"
)

const queueGroup = "consumers"

type ConsumerService struct {
	mongo    *database.Mongo
	nats     *messaging.NATSClient
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(ctx context.Context, cfg *config.Config) (*ConsumerService, error) {
	mongo, err := database.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}

	var indexer search.Indexer
	if cfg.Elasticsearch.Enabled {
		es, err := search.NewElasticsearchClient(ctx, cfg.Elasticsearch)
		if err != nil {
			_ = mongo.Close(ctx)
			return nil, err
		}
		indexer = es
	} else {
		slog.Warn("Elasticsearch disabled, audit records are only logged")
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		_ = mongo.Close(ctx)
		return nil, err
	}

	return &ConsumerService{
		mongo:    mongo,
		nats:     natsClient,
		handlers: NewHandlers(repository.NewEventRepository(mongo.Events()), indexer),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	for _, subject := range models.AuditSubjects {
		sub, err := cs.nats.SubscribeQueue(subject, queueGroup, cs.handlers.HandleMsg)
		if err != nil {
			return err
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subjects", len(cs.subs))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	// Close, not Unsubscribe: durable позиция сохраняется
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.mongo != nil {
		if err := cs.mongo.Close(ctx); err != nil {
			slog.Error("Error closing Mongo connection", "error", err)
			return err
		}
	}

	return nil
}
