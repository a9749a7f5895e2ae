package docstore

import (
	"context"
	"fmt"
	"time"

	firestoreadapter "gym-assistant/internal/docstore/adapter/firestore"
	"gym-assistant/internal/docstore/adapter/memory"
	mongoadapter "gym-assistant/internal/docstore/adapter/mongodb"
	"gym-assistant/internal/docstore/adapter/notify"
	"gym-assistant/internal/docstore/config"
	"gym-assistant/internal/docstore/domain/repository"
	"gym-assistant/internal/shared/eventbus"
	"gym-assistant/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DocstoreModule owns the configured document provider and its notifier.
type DocstoreModule struct {
	Config      *config.Config
	Provider    repository.DocumentProvider
	Notifier    repository.ChangeNotifier
	RedisClient *redis.Client
	Logger      logger.Logger

	closers []func() error
}

// NewDocstoreModule builds the provider selected by cfg. mongoDB is used
// only by the mongodb provider and may be nil otherwise.
func NewDocstoreModule(ctx context.Context, cfg *config.Config, mongoDB *mongo.Database, bus eventbus.Bus, log logger.Logger) (*DocstoreModule, error) {
	log = logger.OrNop(log).WithComponent("docstore")
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log.Infof("Initializing document store with %s provider...", cfg.Provider)

	m := &DocstoreModule{Config: cfg, Logger: log}

	if cfg.Redis.Enabled {
		m.RedisClient = config.NewRedisClient(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := m.RedisClient.Ping(pingCtx).Err(); err != nil {
			_ = m.RedisClient.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
		}
		m.Notifier = notify.NewRedisNotifier(m.RedisClient, log)
		m.closers = append(m.closers, m.RedisClient.Close)
		log.Info("Redis change notifier initialized successfully.")
	} else if bus != nil {
		m.Notifier = notify.NewBusNotifier(bus)
	}

	switch cfg.Provider {
	case config.ProviderMemory:
		p, err := memory.NewProvider(memory.WithLogger(log))
		if err != nil {
			return nil, err
		}
		m.Provider = p
		m.closers = append(m.closers, p.Close)
	case config.ProviderMongoDB:
		if mongoDB == nil {
			return nil, fmt.Errorf("mongodb provider selected but no database connection was supplied")
		}
		p := mongoadapter.NewProvider(mongoDB, m.Notifier, cfg.PollInterval, log)
		m.Provider = p
		m.closers = append(m.closers, p.Close)
	case config.ProviderFirestore:
		p, err := firestoreadapter.Connect(ctx, cfg.FirestoreProjectID, log)
		if err != nil {
			return nil, err
		}
		m.Provider = p
		m.closers = append(m.closers, p.Close)
	default:
		return nil, fmt.Errorf("unknown document provider %q", cfg.Provider)
	}

	log.Info("Document store initialized successfully.")
	return m, nil
}

// Close releases the provider and notifier connections in reverse order.
func (m *DocstoreModule) Close() error {
	var firstErr error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
