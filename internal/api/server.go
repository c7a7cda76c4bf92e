package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"citypulse/internal/cache"
	"citypulse/internal/config"
	"citypulse/internal/database"
	"citypulse/internal/handlers"
	"citypulse/internal/logger"
	"citypulse/internal/messaging"
	"citypulse/internal/middleware"
	"citypulse/internal/repository"
	"citypulse/internal/search"
	"citypulse/internal/service"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	mongo    *database.Mongo
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	es       *search.ElasticsearchClient
	breaker  *search.Breaker
	services *service.Services
	repos    *repository.Repositories
}

// NewServer подключает хранилища и опциональные сервисы и собирает роутер.
// NATS, Valkey и Elasticsearch можно отключить, тогда используются
// заглушки: аудит отбрасывается, кэш в памяти, поиск через базу.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	log := logger.Get()
	s := &Server{config: cfg}

	mongo, err := database.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	s.mongo = mongo
	if err := mongo.EnsureIndexes(ctx); err != nil {
		s.Cleanup()
		return nil, err
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		s.Cleanup()
		return nil, err
	}
	s.db = db
	if err := db.RunMigrations(ctx); err != nil {
		s.Cleanup()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	deps := service.Deps{
		Feed:        cfg.Feed,
		InterestTTL: cfg.Cache.InterestTTL,
	}

	if cfg.NATS.Enabled {
		nc, err := messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			s.Cleanup()
			return nil, err
		}
		s.nats = nc
		deps.Publisher = nc
	} else {
		log.Warn("NATS disabled, audit records are dropped")
	}

	if cfg.Cache.Enabled {
		vc, err := cache.NewValkeyClient(ctx, cfg.Cache)
		if err != nil {
			// кэш не обязателен
			log.Warn("Valkey unavailable, using in-process cache", "error", err)
		} else {
			s.valkey = vc
			deps.Cache = vc
		}
	}

	if cfg.Elasticsearch.Enabled {
		es, err := search.NewElasticsearchClient(ctx, cfg.Elasticsearch)
		if err != nil {
			log.Warn("Elasticsearch unavailable, search uses text match", "error", err)
		} else {
			s.es = es
			s.breaker = search.NewBreaker(es, search.DefaultBreakerSettings())
			deps.Searcher = s.breaker
			// без NATS индекс обновляет сам API
			deps.Indexer = es
		}
	}

	s.repos = repository.NewRepositories(mongo, db)
	deps.Repos = s.repos
	s.services = service.NewServices(deps)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	s.router = router

	s.setupRoutes()
	return s, nil
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	// Все роуты API требуют Bearer-токен
	api := s.router.Group("/api")
	api.Use(middleware.Auth(s.config.JWTSecret, s.repos.Users))
	h.Register(api)

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	mongo := s.mongo.HealthCheck(ctx)
	postgres := s.db.HealthCheck(ctx)
	checks := gin.H{"mongo": mongo, "postgres": postgres}

	status := http.StatusOK
	if mongo.Status != "healthy" || postgres.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	if s.es != nil {
		es := gin.H{"status": "healthy", "breaker": s.breaker.State().String()}
		if err := s.es.HealthCheck(ctx); err != nil {
			// поиск деградирует до текстового поиска, сервис жив
			es["status"] = "unhealthy"
			es["error"] = err.Error()
		}
		checks["elasticsearch"] = es
	}
	if s.valkey != nil {
		vk := gin.H{"status": "healthy"}
		if err := s.valkey.Ping(ctx); err != nil {
			vk["status"] = "unhealthy"
			vk["error"] = err.Error()
		}
		checks["valkey"] = vk
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  overall,
		"service": "citypulse-api",
		"checks":  checks,
	})
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() {
	log := logger.Get()
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}
	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			log.Error("Error closing Valkey connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
		}
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.mongo.Close(ctx); err != nil {
			log.Error("Error closing Mongo connection", "error", err)
		}
	}
}
