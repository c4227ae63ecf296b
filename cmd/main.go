package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"firestore-service/internal/di"
	"firestore-service/internal/example/user"
	"firestore-service/internal/shared/logger"
)

// AppConfig holds process-level settings. Store settings are read by the
// Firestore module itself.
type AppConfig struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
	LogBackend string `env:"LOG_BACKEND" envDefault:"logrus"`

	OwnerUID  string `env:"OWNER_UID"`
	OwnerName string `env:"OWNER_NAME"`

	Timeout time.Duration `env:"STARTUP_TIMEOUT" envDefault:"30s"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	appCfg := &AppConfig{}
	if err := env.Parse(appCfg); err != nil {
		log.Fatalf("Failed to load application configuration: %v", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:   appCfg.LogLevel,
		Format:  appCfg.LogFormat,
		Backend: appCfg.LogBackend,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	logger.SetDefault(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, appCfg, appLogger); err != nil {
		appLogger.Errorf("Application stopped with error: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Application stopped gracefully.")
}

func run(ctx context.Context, appCfg *AppConfig, appLogger logger.Logger) error {
	container := di.NewContainer()
	container.Logger = appLogger
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	startCtx, cancel := context.WithTimeout(ctx, appCfg.Timeout)
	defer cancel()

	if err := container.InitializeFirestore(startCtx, nil); err != nil {
		return err
	}
	appLogger.WithFields(map[string]interface{}{
		"backend":      container.Config.Backend,
		"cursor_store": container.Config.CursorStore,
	}).Info("Firestore module initialized")

	if err := container.HealthCheck(startCtx); err != nil {
		return err
	}
	appLogger.Info("Document store is healthy")

	if appCfg.OwnerUID == "" {
		appLogger.Info("OWNER_UID not set, skipping owner info example")
		return nil
	}
	uc, err := container.LoggedInUserUseCase()
	if err != nil {
		return err
	}
	return runOwnerInfo(ctx, uc, appCfg, appLogger)
}

// runOwnerInfo saves OWNER_NAME for OWNER_UID when a name is given, then
// reads the owner back.
func runOwnerInfo(ctx context.Context, uc user.LoggedInUserUseCase, appCfg *AppConfig, appLogger logger.Logger) error {
	ownerLog := appLogger.WithFields(map[string]interface{}{"uid": appCfg.OwnerUID})

	if appCfg.OwnerName != "" {
		if _, err := uc.SaveOwnerInfo(ctx, user.UserEntity{Name: appCfg.OwnerName}, appCfg.OwnerUID).Await(ctx); err != nil {
			return err
		}
		ownerLog.Infof("Saved owner name %q", appCfg.OwnerName)
	}

	owner, err := uc.FetchOwnerInfo(ctx, appCfg.OwnerUID).Await(ctx)
	if err != nil {
		return err
	}
	ownerLog.Infof("Owner name is %q", owner.Name)
	return nil
}
