package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-supply-service/config"
	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/memstore"
	"github.com/fekuna/omnipos-supply-service/internal/migrations"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/internal/server"
	"github.com/fekuna/omnipos-supply-service/internal/supply"
	"github.com/fekuna/omnipos-supply-service/pkg/broker"
	"github.com/fekuna/omnipos-supply-service/pkg/cache"
	"github.com/fekuna/omnipos-supply-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-supply-service/pkg/logger"

	invH "github.com/fekuna/omnipos-supply-service/internal/inventory/handler"
	invPubPkg "github.com/fekuna/omnipos-supply-service/internal/inventory/publisher"
	invRepoPkg "github.com/fekuna/omnipos-supply-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-supply-service/internal/inventory/usecase"

	supH "github.com/fekuna/omnipos-supply-service/internal/supply/handler"
	supRepoPkg "github.com/fekuna/omnipos-supply-service/internal/supply/repository"
	supUCPkg "github.com/fekuna/omnipos-supply-service/internal/supply/usecase"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	_ = godotenv.Load()
	cfg, err := config.LoadEnv(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     cfg.IsDevelopment(),
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer appLogger.Sync()

	// 3. Open the store and initialize repositories
	var (
		supRepo supply.Repository
		invRepo inventory.Repository
		ready   func(context.Context) error
	)
	if cfg.Server.Store == config.StoreMemory {
		store := memstore.New()
		supRepo, invRepo, ready = store, store, store.Ping
		appLogger.Warn("Using in-memory store, data is lost on exit")
	} else {
		db := openPostgres(ctx, cfg, appLogger)
		defer db.Close()
		supRepo, invRepo, ready = supRepoPkg.NewPGRepository(db), invRepoPkg.NewPGRepository(db), db.PingContext
	}

	// 4. Optional export cache
	var supOpts []supUCPkg.Option
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis, export cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			supOpts = append(supOpts, supUCPkg.WithExportCache(redisClient, cfg.Export.CacheTTL))
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 5. Initialize use cases
	metrics := server.NewMetrics()
	supUC := supUCPkg.NewSupplyUseCase(supRepo, appLogger, supOpts...)

	publishers := invPubPkg.Multi{
		metrics,
		invPubPkg.Func(func(ctx context.Context, _ *model.InventoryMovement) error {
			supUC.InvalidateExportCache(ctx)
			return nil
		}),
	}
	if brokers := nonEmpty(cfg.Kafka.Brokers); len(brokers) > 0 {
		producer := broker.NewProducer(&broker.Config{
			Brokers: brokers,
			Topic:   cfg.Kafka.Topic,
		})
		defer producer.Close()
		publishers = append(publishers, invPubPkg.NewKafkaPublisher(producer))
		appLogger.Info("Publishing movements to Kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	invUC := invUCPkg.NewInventoryUseCase(invRepo, appLogger, invUCPkg.WithPublisher(publishers))

	// 6. HTTP server
	router := server.NewRouter(server.RouterOptions{
		Supplies:       supH.NewSupplyHandler(supUC, appLogger),
		Inventory:      invH.NewHTTPHandler(invUC, appLogger, cfg.Server.StrictStatus),
		Logger:         appLogger,
		Metrics:        metrics,
		Ready:          ready,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.Server.RateLimit,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	httpServer := &http.Server{
		Addr:              listenAddr(cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()

	// 7. Optional gRPC server
	var (
		grpcServer   *grpc.Server
		healthServer *health.Server
	)
	if cfg.Server.GRPCPort != "" {
		grpcServer, healthServer = startGRPC(cfg.Server.GRPCPort, invUC, appLogger)
	}

	// Graceful shutdown
	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown failed", zap.Error(err))
	}
	if grpcServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
	}
	appLogger.Info("Server stopped")
}

func openPostgres(ctx context.Context, cfg *config.Config, appLogger logger.ZapLogger) *sqlx.DB {
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if cfg.Postgres.AutoMigrate {
		if err := migrations.Up(ctx, db); err != nil {
			appLogger.Fatal("Could not apply migrations", zap.Error(err))
		}
		appLogger.Info("Database schema is up to date")
	}
	return db
}

func startGRPC(port string, uc inventory.UseCase, appLogger logger.ZapLogger) (*grpc.Server, *health.Server) {
	addr := listenAddr(port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.String("addr", addr), zap.Error(err))
	}

	srv, hs := server.NewGRPCServer(invH.NewInventoryHandler(uc, appLogger), appLogger)
	go func() {
		appLogger.Info("Starting gRPC server", zap.String("addr", addr))
		if err := srv.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve gRPC", zap.Error(err))
		}
	}()
	return srv, hs
}

func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
