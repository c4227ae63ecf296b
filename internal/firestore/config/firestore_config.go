package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v6"
)

// Backend names the document store implementation.
type Backend string

const (
	BackendFirestore Backend = "firestore"
	BackendMongoDB   Backend = "mongodb"
	BackendMemory    Backend = "memory"
)

// CursorStoreKind names where page cursor tokens are kept.
type CursorStoreKind string

const (
	CursorStoreNone   CursorStoreKind = "none"
	CursorStoreMemory CursorStoreKind = "memory"
	CursorStoreRedis  CursorStoreKind = "redis"
)

// GCPConfig selects the Cloud Firestore project and database.
type GCPConfig struct {
	ProjectID       string `env:"FIRESTORE_PROJECT_ID" mapstructure:"project_id" json:"project_id"`
	DatabaseID      string `env:"FIRESTORE_DATABASE_ID" envDefault:"(default)" mapstructure:"database_id" json:"database_id"`
	CredentialsFile string `env:"FIRESTORE_CREDENTIALS_FILE" mapstructure:"credentials_file" json:"credentials_file"`
}

// MongoConfig locates the MongoDB collection holding documents.
type MongoConfig struct {
	URI        string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017" mapstructure:"uri" json:"uri"`
	Database   string `env:"MONGODB_DATABASE" envDefault:"firestore_default" mapstructure:"database" json:"database"`
	Collection string `env:"MONGODB_COLLECTION" envDefault:"documents" mapstructure:"collection" json:"collection"`
}

// RedisConfig holds the Redis connection used by the cursor store.
type RedisConfig struct {
	Host            string `env:"REDIS_HOST" envDefault:"localhost" mapstructure:"host" json:"host"`
	Port            string `env:"REDIS_PORT" envDefault:"6379" mapstructure:"port" json:"port"`
	Password        string `env:"REDIS_PASSWORD" mapstructure:"password" json:"-"`
	Database        int    `env:"REDIS_DB" envDefault:"0" mapstructure:"database" json:"database"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3" mapstructure:"max_retries" json:"max_retries"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10" mapstructure:"pool_size" json:"pool_size"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2" mapstructure:"min_idle_conns" json:"min_idle_conns"`
	EnableTLS       bool   `env:"REDIS_ENABLE_TLS" envDefault:"false" mapstructure:"enable_tls" json:"enable_tls"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m" mapstructure:"conn_max_idle_time" json:"conn_max_idle_time"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h" mapstructure:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// GetAddr returns host:port.
func (r RedisConfig) GetAddr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// FirestoreConfig holds all configuration for the Firestore module.
type FirestoreConfig struct {
	Backend Backend `env:"DOCSTORE_BACKEND" envDefault:"firestore" mapstructure:"backend" json:"backend"`
	// Workers bounds concurrent background operations. Zero runs each
	// operation on its own goroutine.
	Workers     int             `env:"FIRESTORE_SERVICE_WORKERS" envDefault:"0" mapstructure:"workers" json:"workers"`
	CursorStore CursorStoreKind `env:"CURSOR_STORE" envDefault:"memory" mapstructure:"cursor_store" json:"cursor_store"`
	CursorTTL   time.Duration   `env:"CURSOR_TTL" envDefault:"15m" mapstructure:"cursor_ttl" json:"cursor_ttl"`

	GCP   GCPConfig   `mapstructure:"gcp" json:"gcp"`
	Mongo MongoConfig `mapstructure:"mongo" json:"mongo"`
	Redis RedisConfig `mapstructure:"redis" json:"redis"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*FirestoreConfig, error) {
	cfg := &FirestoreConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load firestore configuration from environment: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown backends and incomplete backend settings.
func (c *FirestoreConfig) Validate() error {
	switch c.Backend {
	case BackendFirestore:
		if c.GCP.ProjectID == "" {
			return errors.New("FIRESTORE_PROJECT_ID environment variable is not set")
		}
	case BackendMongoDB:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("MONGODB_URI and MONGODB_DATABASE must be set for the mongodb backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown DOCSTORE_BACKEND %q", c.Backend)
	}

	switch c.CursorStore {
	case CursorStoreNone, CursorStoreMemory, CursorStoreRedis:
	default:
		return fmt.Errorf("unknown CURSOR_STORE %q", c.CursorStore)
	}
	if c.Workers < 0 {
		return fmt.Errorf("FIRESTORE_SERVICE_WORKERS must not be negative, got %d", c.Workers)
	}
	if c.CursorTTL < 0 {
		return fmt.Errorf("CURSOR_TTL must not be negative, got %s", c.CursorTTL)
	}
	return nil
}

// DefaultFirestoreConfig returns an in-memory configuration for tests and
// local development.
func DefaultFirestoreConfig() *FirestoreConfig {
	return &FirestoreConfig{
		Backend:     BackendMemory,
		CursorStore: CursorStoreMemory,
		CursorTTL:   15 * time.Minute,
		GCP: GCPConfig{
			DatabaseID: "(default)",
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "firestore_default",
			Collection: "documents",
		},
		Redis: RedisConfig{
			Host:            "localhost",
			Port:            "6379",
			MaxRetries:      3,
			PoolSize:        10,
			MinIdleConns:    2,
			ConnMaxIdleTime: "30m",
			ConnMaxLifetime: "1h",
		},
	}
}
