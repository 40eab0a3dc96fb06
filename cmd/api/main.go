package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/account"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/payment"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/pin"
	"github.com/amirhossein-jamali/mwallet/internal/domain/usecase/resolver"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/routes"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/event"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/identity"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/logger"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/scheduler"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/session"
	timeProvider "github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/time"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLoggerWithLevel(cfg.Environment == config.Production, cfg.Logger.Level)
	defer appLogger.Flush()

	appLogger.Info("Starting mwallet", map[string]any{
		"environment": cfg.Environment,
		"backend":     cfg.Store.Backend,
		"log_level":   appLogger.GetLevel().String(),
	})

	tp := timeProvider.NewRealTimeProvider()

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	stores, err := openBackend(startCtx, cfg, tp, appLogger)
	cancelStart()
	if err != nil {
		appLogger.Error("Failed to open backend", map[string]any{
			"backend": cfg.Store.Backend,
			"error":   err.Error(),
		})
		os.Exit(1)
	}
	defer stores.close(appLogger)

	sessions, err := session.NewJWTProvider(session.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		TokenTTL: cfg.Auth.TokenTTL,
	}, stores.revocations, tp, appLogger)
	if err != nil {
		appLogger.Error("Failed to create session provider", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	publisher := event.NewPublisher(cfg.Events, appLogger)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Warn("Failed to close event publisher", map[string]any{"error": err.Error()})
		}
	}()

	// startingBalance was checked in validateConfig
	startingBalance, _ := entity.ValidateAndConvertAmount(cfg.Wallet.StartingBalance)

	gate := pin.NewGate(cfg.Auth.BcryptCost, appLogger)
	ids := identity.NewGenerator()

	accountUseCase := account.NewUseCase(stores.uow, sessions, gate, ids, tp, appLogger, startingBalance)
	engine := payment.NewEngine(stores.uow, stores.submissions, stores.senderLock, publisher, gate, ids, tp, appLogger, payment.Config{
		PinTTL:      cfg.Payment.PinTTL,
		ReceiptTTL:  cfg.Payment.ReceiptTTL,
		LockTimeout: cfg.Payment.LockTimeout(),
		QueueSize:   cfg.Payment.QueueSize,
	})
	lookups := resolver.NewResolver(stores.uow.GetDirectoryRepository(context.Background()), appLogger)

	var sweeper *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sweeper = scheduler.NewScheduler(scheduler.NewJobs(stores.senderLock, stores.submissions, appLogger), cfg.Scheduler.SweepSpec, appLogger)
		if err := sweeper.Start(); err != nil {
			appLogger.Error("Failed to start scheduler", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}

	router := gin.New()
	routes.SetupMiddlewares(router, appLogger)
	routes.SetupRoutes(router, routes.Handlers{
		User:        handler.NewUserHandler(accountUseCase, appLogger),
		Transaction: handler.NewTransactionHandler(engine, appLogger),
		Lookup:      handler.NewLookupHandler(lookups),
		Health:      handler.NewHealthHandler(stores.checks),
	}, sessions)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           routes.Handler(router, cfg.Server.AllowedOrigins),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", map[string]any{
			"addr":    server.Addr,
			"env":     cfg.Environment,
			"backend": cfg.Store.Backend,
			"events":  cfg.Events.Driver,
			"redis":   cfg.Redis.Enabled,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		appLogger.Error("Server failed", map[string]any{"error": err.Error()})
	}

	appLogger.Info("Shutting down server...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", map[string]any{"error": err.Error()})
	}

	// in-flight payments finish before their stores close
	engine.Shutdown()

	if sweeper != nil {
		select {
		case <-sweeper.Stop().Done():
		case <-ctx.Done():
			appLogger.Warn("Maintenance sweep still running at shutdown", nil)
		}
	}

	appLogger.Info("Server exited gracefully", nil)
}

// validateConfig ensures all required configuration values are present
func validateConfig(cfg *config.Config) error {
	var missingConfigs []string

	if cfg.Server.Port == 0 {
		missingConfigs = append(missingConfigs, "server.port")
	}
	if cfg.Server.ReadTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.readTimeout")
	}
	if cfg.Server.WriteTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.writeTimeout")
	}
	if cfg.Server.ShutdownTimeout == 0 {
		missingConfigs = append(missingConfigs, "server.shutdownTimeout")
	}

	switch cfg.Store.Backend {
	case config.BackendMemory:
	case config.BackendREST:
		if cfg.Store.BaseURL == "" {
			missingConfigs = append(missingConfigs, "store.baseURL (or MW_STORE_BASE_URL)")
		}
	case config.BackendPostgres:
		if cfg.Database.Host == "" {
			missingConfigs = append(missingConfigs, "database.host (or MW_DB_HOST)")
		}
		if cfg.Database.Username == "" {
			missingConfigs = append(missingConfigs, "database.username (or MW_DB_USERNAME)")
		}
		if cfg.Database.Database == "" {
			missingConfigs = append(missingConfigs, "database.database (or MW_DB_NAME)")
		}
		if cfg.Database.QueryTimeout == 0 {
			missingConfigs = append(missingConfigs, "database.queryTimeout")
		}
	default:
		return fmt.Errorf("invalid store.backend value: %s, must be one of: %s, %s, or %s",
			cfg.Store.Backend, config.BackendMemory, config.BackendREST, config.BackendPostgres)
	}

	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		missingConfigs = append(missingConfigs, "redis.addr (or MW_REDIS_ADDR)")
	}

	if cfg.Auth.JWTSecret == "" {
		missingConfigs = append(missingConfigs, "auth.jwtSecret (or MW_AUTH_JWT_SECRET)")
	}
	if cfg.Auth.TokenTTL == 0 {
		missingConfigs = append(missingConfigs, "auth.tokenTTL")
	}

	if cfg.Payment.LockTimeoutMs == 0 {
		missingConfigs = append(missingConfigs, "payment.lockTimeoutMs")
	}

	switch cfg.Events.Driver {
	case config.EventsNone, "":
	case config.EventsKafka:
		if len(cfg.Events.Kafka.Brokers) == 0 || cfg.Events.Kafka.Topic == "" {
			missingConfigs = append(missingConfigs, "events.kafka.brokers and events.kafka.topic")
		}
	case config.EventsRabbitMQ:
		if cfg.Events.RabbitMQ.URL == "" || cfg.Events.RabbitMQ.Exchange == "" {
			missingConfigs = append(missingConfigs, "events.rabbitmq.url and events.rabbitmq.exchange")
		}
	default:
		return fmt.Errorf("invalid events.driver value: %s", cfg.Events.Driver)
	}

	if cfg.Environment == "" {
		missingConfigs = append(missingConfigs, "environment")
	} else if cfg.Environment != config.Development &&
		cfg.Environment != config.Production &&
		cfg.Environment != config.Test {
		return fmt.Errorf("invalid environment value: %s, must be one of: %s, %s, or %s",
			cfg.Environment, config.Development, config.Production, config.Test)
	}

	if cfg.Logger.Level == "" {
		missingConfigs = append(missingConfigs, "logger.level")
	}

	if len(missingConfigs) > 0 {
		return fmt.Errorf("missing required configurations: %v", missingConfigs)
	}

	if _, err := entity.ValidateAndConvertAmount(cfg.Wallet.StartingBalance); err != nil {
		return fmt.Errorf("invalid wallet.startingBalance: %w", err)
	}

	if cfg.Environment == config.Production {
		var warnings []string

		if cfg.Store.Backend == config.BackendPostgres {
			mode := strings.ToLower(cfg.Database.SSLMode)
			if mode != "require" && mode != "verify-ca" && mode != "verify-full" {
				warnings = append(warnings, "database.sslMode should be set to 'require', 'verify-ca', or 'verify-full' in production")
			}
		}
		if cfg.Store.Backend == config.BackendMemory {
			warnings = append(warnings, "store.backend=memory loses all wallets on restart")
		}
		if cfg.Server.ReadTimeout < 5*time.Second {
			warnings = append(warnings, "server.readTimeout is too low for production")
		}
		if cfg.Server.WriteTimeout < 5*time.Second {
			warnings = append(warnings, "server.writeTimeout is too low for production")
		}
		for _, origin := range cfg.Server.AllowedOrigins {
			if origin == "*" {
				warnings = append(warnings, "server.allowedOrigins should not contain '*' in production")
			}
		}

		if len(warnings) > 0 {
			log.Printf("Warning: potential security issues in production configuration: %v", warnings)
		}
	}

	return nil
}
