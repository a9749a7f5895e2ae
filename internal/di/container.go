package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gym-assistant/internal/auth"
	authconfig "gym-assistant/internal/auth/config"
	"gym-assistant/internal/docstore"
	docconfig "gym-assistant/internal/docstore/config"
	"gym-assistant/internal/navigation"
	"gym-assistant/internal/shared/eventbus"
	"gym-assistant/internal/shared/logger"
	"gym-assistant/internal/workout"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Container owns the application's modules and shared connections. The
// session store inside AuthModule is the one instance every consumer uses.
type Container struct {
	mu sync.RWMutex

	// Module instances
	DocstoreModule *docstore.DocstoreModule
	AuthModule     *auth.AuthModule
	WorkoutModule  *workout.WorkoutModule
	Guard          *navigation.Guard

	// Database connections
	MongoClient *mongo.Client
	MongoDB     *mongo.Database

	// Configuration
	DocstoreConfig *docconfig.Config
	AuthConfig     *authconfig.Config

	Bus    *eventbus.EventBus
	Logger logger.Logger
}

// NewContainer creates a new DI container.
func NewContainer(log logger.Logger) *Container {
	log = logger.OrNop(log)
	return &Container{
		Bus:    eventbus.NewEventBus(log),
		Logger: log,
	}
}

// Initialize builds every module in dependency order: database, document
// store, auth, workout and navigation.
func (c *Container) Initialize(ctx context.Context, docCfg *docconfig.Config, authCfg *authconfig.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.DocstoreConfig = docCfg
	c.AuthConfig = authCfg

	if docCfg.Provider == docconfig.ProviderMongoDB || authCfg.AccountStore == authconfig.AccountStoreMongoDB {
		if err := c.connectMongo(ctx, docCfg); err != nil {
			return err
		}
	}

	docModule, err := docstore.NewDocstoreModule(ctx, docCfg, c.MongoDB, c.Bus, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create docstore module: %w", err)
	}
	c.DocstoreModule = docModule

	authModule, err := auth.NewAuthModule(ctx, authCfg, c.MongoDB, c.Bus, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create auth module: %w", err)
	}
	c.AuthModule = authModule

	c.WorkoutModule = workout.NewWorkoutModule(docModule.Provider, c.Bus, c.Logger)
	c.Guard = navigation.NewGuard(authModule.Session(), navigation.WithLogger(c.Logger))
	return nil
}

func (c *Container) connectMongo(ctx context.Context, cfg *docconfig.Config) error {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoDBURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	c.MongoClient = client
	c.MongoDB = client.Database(cfg.DatabaseName)
	c.Logger.Info("MongoDB connection established successfully")
	return nil
}

// HealthCheck pings the external dependencies that are in use.
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.MongoClient != nil {
		if err := c.MongoClient.Ping(ctx, nil); err != nil {
			return fmt.Errorf("MongoDB health check failed: %w", err)
		}
	}
	if c.DocstoreModule != nil && c.DocstoreModule.RedisClient != nil {
		if err := c.DocstoreModule.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis health check failed: %w", err)
		}
	}
	return nil
}

// Close shuts modules down in reverse order of initialization.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.WorkoutModule != nil {
		c.WorkoutModule.Close()
		c.WorkoutModule = nil
	}
	if c.AuthModule != nil {
		if err := c.AuthModule.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("auth: %w", err))
		}
		c.AuthModule = nil
	}
	if c.DocstoreModule != nil {
		if err := c.DocstoreModule.Close(); err != nil {
			errs = append(errs, fmt.Errorf("docstore: %w", err))
		}
		c.DocstoreModule = nil
	}
	if c.MongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.MongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb: %w", err))
		}
		c.MongoClient = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
