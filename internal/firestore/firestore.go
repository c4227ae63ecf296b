package firestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"firestore-service/internal/firestore/adapter/persistence"
	"firestore-service/internal/firestore/adapter/persistence/gcpfirestore"
	"firestore-service/internal/firestore/adapter/persistence/memory"
	"firestore-service/internal/firestore/adapter/persistence/mongodb"
	"firestore-service/internal/firestore/config"
	"firestore-service/internal/firestore/domain/repository"
	"firestore-service/internal/firestore/usecase"
	"firestore-service/internal/shared/async"
	"firestore-service/internal/shared/logger"
)

// FirestoreModule owns the document store, the cursor store and the
// service facade built over them.
type FirestoreModule struct {
	Config   *config.FirestoreConfig
	Store    repository.DocumentStore
	Cursors  repository.CursorStore
	Executor async.Executor
	Service  usecase.FirestoreServiceInterface
	Logger   logger.Logger

	RedisClient *redis.Client
	ownsRedis   bool
}

// ModuleOption overrides a component the module would otherwise build.
type ModuleOption func(*FirestoreModule)

// WithStore uses store instead of the configured backend.
func WithStore(store repository.DocumentStore) ModuleOption {
	return func(m *FirestoreModule) { m.Store = store }
}

// WithRedisClient reuses client for the Redis cursor store. The module does
// not close it.
func WithRedisClient(client *redis.Client) ModuleOption {
	return func(m *FirestoreModule) { m.RedisClient = client }
}

// NewFirestoreModule creates the module from environment configuration.
func NewFirestoreModule(ctx context.Context, log logger.Logger, opts ...ModuleOption) (*FirestoreModule, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewFirestoreModuleWithConfig(ctx, log, cfg, opts...)
}

// NewFirestoreModuleWithConfig creates the module with provided configuration.
func NewFirestoreModuleWithConfig(ctx context.Context, log logger.Logger, cfg *config.FirestoreConfig, opts ...ModuleOption) (*FirestoreModule, error) {
	if log == nil {
		log = logger.Default()
	}
	if cfg == nil {
		cfg = config.DefaultFirestoreConfig()
		log.Info("No configuration provided, using defaults.")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &FirestoreModule{Config: cfg, Logger: log}
	for _, opt := range opts {
		opt(m)
	}
	log.WithFields(map[string]interface{}{
		"backend":      string(cfg.Backend),
		"cursor_store": string(cfg.CursorStore),
		"workers":      cfg.Workers,
	}).Info("Initializing Firestore module")

	if m.Store == nil {
		store, err := newStore(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		m.Store = store
	}

	cursors, err := m.newCursorStore(ctx)
	if err != nil {
		_ = m.Store.Close()
		return nil, err
	}
	m.Cursors = cursors

	m.Executor = async.Goroutines
	if cfg.Workers > 0 {
		m.Executor = async.NewPool(cfg.Workers)
	}

	serviceOpts := []usecase.Option{
		usecase.WithExecutor(m.Executor),
		usecase.WithLogger(log),
	}
	if m.Cursors != nil {
		serviceOpts = append(serviceOpts, usecase.WithCursorStore(m.Cursors))
	}
	m.Service = usecase.NewFirestoreService(m.Store, serviceOpts...)

	log.Info("Firestore module initialized successfully.")
	return m, nil
}

func newStore(ctx context.Context, cfg *config.FirestoreConfig, log logger.Logger) (repository.DocumentStore, error) {
	switch cfg.Backend {
	case config.BackendFirestore:
		store, err := gcpfirestore.NewStore(ctx, gcpfirestore.Config{
			ProjectID:       cfg.GCP.ProjectID,
			DatabaseID:      cfg.GCP.DatabaseID,
			CredentialsFile: cfg.GCP.CredentialsFile,
		}, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMongoDB:
		store, err := mongodb.NewStore(ctx, mongodb.Config{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		}, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		return memory.NewStore(memory.WithLogger(log.WithComponent("memory-store"))), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func (m *FirestoreModule) newCursorStore(ctx context.Context) (repository.CursorStore, error) {
	switch m.Config.CursorStore {
	case config.CursorStoreMemory:
		return memory.NewCursorStore(memory.WithCursorTTL(m.Config.CursorTTL)), nil
	case config.CursorStoreRedis:
		if m.RedisClient == nil {
			m.RedisClient = config.NewRedisClient(&m.Config.Redis)
			m.ownsRedis = true
		}
		if err := m.RedisClient.Ping(ctx).Err(); err != nil {
			if m.ownsRedis {
				_ = m.RedisClient.Close()
			}
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", m.Config.Redis.GetAddr(), err)
		}
		return persistence.NewRedisCursorStore(m.RedisClient, m.Config.CursorTTL, m.Logger), nil
	default:
		return nil, nil
	}
}

// HealthCheck pings the store and, when configured, Redis.
func (m *FirestoreModule) HealthCheck(ctx context.Context) error {
	if checker, ok := m.Store.(repository.HealthChecker); ok {
		if err := checker.Ping(ctx); err != nil {
			return fmt.Errorf("document store health check failed: %w", err)
		}
	}
	if m.RedisClient != nil {
		if err := m.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis health check failed: %w", err)
		}
	}
	return nil
}

// Stop waits for queued background work and releases connections.
func (m *FirestoreModule) Stop() error {
	m.Logger.Info("Stopping Firestore Module...")
	if pool, ok := m.Executor.(*async.Pool); ok {
		pool.Wait()
	}

	var errs []error
	if err := m.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close document store: %w", err))
	}
	if m.ownsRedis && m.RedisClient != nil {
		if err := m.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	m.Logger.Info("Firestore Module stopped.")
	return errors.Join(errs...)
}
