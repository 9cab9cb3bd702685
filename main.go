package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/jetscope/internal/auth"
	"github.com/example/jetscope/internal/config"
	"github.com/example/jetscope/internal/handlers"
	"github.com/example/jetscope/internal/labels"
	"github.com/example/jetscope/internal/logging"
	"github.com/example/jetscope/internal/modelserver"
	"github.com/example/jetscope/internal/repository"
	"github.com/example/jetscope/internal/serving"
	"github.com/example/jetscope/internal/usecase"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:          "jetscope",
		Short:        "Aircraft classifier serving adapter and tooling",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(cfg.Server.LogLevel)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the configuration file")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newInvokeCmd(a))
	cmd.AddCommand(newPrepareCmd(a))

	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the inference adapter HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	cfg, logger := a.cfg, a.logger

	// The catalog is required; a broken label file must stop startup.
	catalog, err := labels.Load(cfg.Labels.Path)
	if err != nil {
		logger.Fatal("failed to load label catalog", zap.Error(err), zap.String("path", cfg.Labels.Path))
	}
	logger.Info("label catalog loaded", zap.Int("classes", catalog.Len()))

	ctx, cancel := context.WithTimeout(parent, 15*time.Second)
	defer cancel()

	var opts []usecase.Option
	if cfg.Database.Enabled {
		db := initDatabase(ctx, cfg.Database, logger)
		repo := repository.NewPredictionRepository(db, logger)
		if err := repo.AutoMigrate(ctx); err != nil {
			logger.Fatal("auto migrate failed", zap.Error(err))
		}
		opts = append(opts, usecase.WithRepository(repo))
	}
	if cfg.Cache.Enabled {
		redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
		defer redisCancel()
		redisClient := initRedis(redisCtx, cfg.Cache.Addr, logger)
		defer redisClient.Close()
		opts = append(opts, usecase.WithCache(usecase.NewRedisCache(redisClient), cfg.Cache.TTL))
	}

	server := modelserver.NewRestClient(cfg.ModelServer.RestURI, cfg.ModelServer.Timeout, logger)
	uc := usecase.NewClassificationUseCase(serving.NewAdapter(catalog), server, logger, opts...)

	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	authMiddleware := auth.Middleware(cfg.Auth.Secret, cfg.Auth.Audience)
	if cfg.Auth.Secret == "" {
		logger.Warn("auth disabled: no secret configured")
	}

	handlers.RegisterRoutes(r, uc, authMiddleware, handlers.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	logger.Info("inference adapter listening", zap.String("addr", addr), zap.String("model_server", cfg.ModelServer.RestURI))
	return serveHTTPServer(httpServer, cfg.Server.ShutdownTimeout, logger)
}

func initDatabase(ctx context.Context, cfg config.DatabaseConfig, zapLogger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(cfg.Pool.IdleConnections)
	sqlDB.SetMaxOpenConns(cfg.Pool.MaxConnections)
	sqlDB.SetConnMaxLifetime(cfg.Pool.ConnLifeTime)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
