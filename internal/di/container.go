package di

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"firestore-service/internal/example/user"
	"firestore-service/internal/firestore"
	"firestore-service/internal/firestore/config"
	"firestore-service/internal/shared/async"
	"firestore-service/internal/shared/logger"
)

// Container holds the Firestore module and registers it, together with the
// example application built on it, by type.
type Container struct {
	mu        sync.RWMutex
	services  map[reflect.Type]interface{}
	factories map[reflect.Type]func() (interface{}, error)

	FirestoreModule *firestore.FirestoreModule

	Config *config.FirestoreConfig
	Logger logger.Logger
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		services:  make(map[reflect.Type]interface{}),
		factories: make(map[reflect.Type]func() (interface{}, error)),
	}
}

// InitializeFirestore builds the Firestore module from cfg, or from the
// environment when cfg is nil. The module and the user repository are
// registered as instances; the logged-in user use case is built on first
// resolve.
func (c *Container) InitializeFirestore(ctx context.Context, cfg *config.FirestoreConfig, opts ...firestore.ModuleOption) error {
	if err := c.initializeModule(ctx, cfg, opts...); err != nil {
		return err
	}
	module := c.GetFirestoreModule()
	repository := user.NewFirestoreUserRepository(module.Service)

	if err := c.Register(module); err != nil {
		return err
	}
	if err := c.Register(repository); err != nil {
		return err
	}
	// The use case blocks on facade futures, so it must not share the
	// facade's bounded pool.
	return c.RegisterFactory(reflect.TypeOf(user.FirestoreLoggedInUserUseCase{}), func() (interface{}, error) {
		return user.NewFirestoreLoggedInUserUseCase(repository, async.Goroutines), nil
	})
}

func (c *Container) initializeModule(ctx context.Context, cfg *config.FirestoreConfig, opts ...firestore.ModuleOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FirestoreModule != nil {
		return fmt.Errorf("firestore module already initialized")
	}
	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}
	if cfg == nil {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load firestore configuration: %w", err)
		}
		cfg = loaded
	}

	module, err := firestore.NewFirestoreModuleWithConfig(ctx, c.Logger, cfg, opts...)
	if err != nil {
		return fmt.Errorf("failed to create Firestore module: %w", err)
	}

	c.Config = cfg
	c.FirestoreModule = module
	return nil
}

// LoggedInUserUseCase resolves the owner-info use case.
func (c *Container) LoggedInUserUseCase() (user.LoggedInUserUseCase, error) {
	return GetService[*user.FirestoreLoggedInUserUseCase](c)
}

// Register registers a service instance
func (c *Container) Register(service interface{}) error {
	if service == nil {
		return fmt.Errorf("cannot register nil service")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	serviceType := reflect.TypeOf(service)
	if serviceType.Kind() == reflect.Ptr {
		serviceType = serviceType.Elem()
	}

	c.services[serviceType] = service
	return nil
}

// RegisterFactory registers a factory function for a service
func (c *Container) RegisterFactory(serviceType reflect.Type, factory func() (interface{}, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.factories[serviceType] = factory
	return nil
}

// Resolve resolves a service by type. Factory results are cached.
func (c *Container) Resolve(serviceType reflect.Type) (interface{}, error) {
	c.mu.RLock()
	if service, exists := c.services[serviceType]; exists {
		c.mu.RUnlock()
		return service, nil
	}
	factory, exists := c.factories[serviceType]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("service of type %v not registered", serviceType)
	}

	service, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another caller may have won the race.
	if existing, ok := c.services[serviceType]; ok {
		return existing, nil
	}
	c.services[serviceType] = service
	return service, nil
}

// GetService is a generic helper for resolving services
func GetService[T any](c *Container) (T, error) {
	var zero T
	serviceType := reflect.TypeOf((*T)(nil)).Elem()
	if serviceType.Kind() == reflect.Ptr {
		serviceType = serviceType.Elem()
	}

	service, err := c.Resolve(serviceType)
	if err != nil {
		return zero, err
	}

	if typedService, ok := service.(T); ok {
		return typedService, nil
	}

	return zero, fmt.Errorf("service is not of expected type %T", zero)
}

// GetFirestoreModule returns the Firestore module instance
func (c *Container) GetFirestoreModule() *firestore.FirestoreModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.FirestoreModule
}

// HealthCheck checks the Firestore module and every registered service that
// can report its health.
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.FirestoreModule == nil {
		return fmt.Errorf("firestore module not initialized")
	}
	if err := c.FirestoreModule.HealthCheck(ctx); err != nil {
		return err
	}

	for serviceType, service := range c.services {
		if service == c.FirestoreModule {
			continue
		}
		if checker, ok := service.(interface{ HealthCheck(context.Context) error }); ok {
			if err := checker.HealthCheck(ctx); err != nil {
				return fmt.Errorf("%v health check failed: %w", serviceType, err)
			}
		}
	}
	return nil
}

// Cleanup releases registered services and then the Firestore module.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, service := range c.services {
		if cleaner, ok := service.(interface{ Cleanup(context.Context) error }); ok {
			if err := cleaner.Cleanup(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to cleanup service: %w", err))
			}
		}
	}

	if c.FirestoreModule != nil {
		if err := c.FirestoreModule.Stop(); err != nil {
			errs = append(errs, err)
		}
		c.FirestoreModule = nil
	}

	c.services = make(map[reflect.Type]interface{})
	c.factories = make(map[reflect.Type]func() (interface{}, error))
	return errors.Join(errs...)
}

// Close shuts down everything in the container within 30 seconds.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		if c.Logger != nil {
			c.Logger.Warnf("cleanup errors occurred: %v", err)
		}
		return err
	}
	return nil
}
