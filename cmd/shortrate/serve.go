package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/wyfcoding/shortrate/internal/shortrate/application"
	"github.com/wyfcoding/shortrate/internal/shortrate/domain"
	"github.com/wyfcoding/shortrate/internal/shortrate/infrastructure/persistence/mysql"
	persistence_redis "github.com/wyfcoding/shortrate/internal/shortrate/infrastructure/persistence/redis"
	"github.com/wyfcoding/shortrate/internal/shortrate/infrastructure/publisher"
	grpcserver "github.com/wyfcoding/shortrate/internal/shortrate/interfaces/grpc"
	httpserver "github.com/wyfcoding/shortrate/internal/shortrate/interfaces/http"
	"github.com/wyfcoding/shortrate/pkg/cache"
	"github.com/wyfcoding/shortrate/pkg/config"
	"github.com/wyfcoding/shortrate/pkg/db"
	"github.com/wyfcoding/shortrate/pkg/logger"
	"github.com/wyfcoding/shortrate/pkg/metrics"
	"github.com/wyfcoding/shortrate/pkg/middleware"
	"github.com/wyfcoding/shortrate/pkg/mq"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithDefaults(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "configs/shortrate/config.toml", "config file path")
	return cmd
}

// app 持有需要在退出时释放的资源
type app struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	scenarios *application.ScenarioService
	rates     *application.RateHistoryQueryService
	closers   []func() error
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn(ctx, "failed to release resource", "error", err)
		}
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	// 1. Logger
	if err := logger.Init(cfg.Logger); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	logger.Info(ctx, "starting service", "service", cfg.ServiceName, "version", cfg.Version, "env", cfg.Environment)

	// 2. Infrastructure & Application
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	// 3. Interfaces
	grpcSrv := newGRPCServer(a)

	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	handler := httpserver.NewShortRateHandler(a.scenarios, a.rates,
		middleware.NewLimiter(cfg.HTTP.ScenarioQPS, cfg.HTTP.ScenarioBurst))
	router := httpserver.NewRouter(handler, httpserver.RouterOptions{
		Metrics:     a.metrics,
		MetricsPath: cfg.Metrics.Path,
		CORS:        true,
	})
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	// 4. Start
	g, gctx := errgroup.WithContext(ctx)

	if cfg.GRPC.Enabled {
		g.Go(func() error {
			lis, err := net.Listen("tcp", cfg.GRPC.Addr())
			if err != nil {
				return err
			}
			logger.Info(gctx, "gRPC server starting", "addr", cfg.GRPC.Addr())
			return grpcSrv.Serve(lis)
		})
	}

	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", cfg.HTTP.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "server exited with error", "error", err)
		return err
	}
	logger.Info(context.Background(), "server stopped")
	return nil
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cfg.ServiceName)
	}

	// Kafka
	var events domain.EventPublisher = publisher.NewNoopEventPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		producer := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		a.closers = append(a.closers, producer.Close)
		events = publisher.NewKafkaEventPublisher(producer)
	}

	a.scenarios = application.NewScenarioService(
		domain.NewPathGenerator(cfg.Engine.Workers),
		events,
		a.metrics,
		application.Limits{
			MaxPaths: cfg.Engine.MaxPaths,
			MaxSteps: cfg.Engine.MaxSteps,
			MaxCells: cfg.Engine.MaxCells,
		},
	)

	// Database & Redis，仅在配置了驱动时启用历史利率查询
	if cfg.Database.Driver == "" {
		logger.Warn(ctx, "database driver not configured, rate history disabled")
		return a, nil
	}
	database, err := db.Init(ctx, db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, database.Close)

	var readRepo domain.RateHistoryReadRepository
	if cfg.Redis.Host != "" {
		redisCache, err := cache.New(ctx, cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Warn(ctx, "redis unavailable, rate cache disabled", "error", err)
		} else {
			a.closers = append(a.closers, redisCache.Close)
			readRepo = persistence_redis.NewRateHistoryRedisRepository(redisCache,
				time.Duration(cfg.History.CacheTTLSeconds)*time.Second)
		}
	}

	a.rates = application.NewRateHistoryQueryService(
		mysql.NewRateHistoryRepository(database.DB),
		readRepo,
		a.metrics,
		cfg.History.BondType,
	)
	return a, nil
}

func newGRPCServer(a *app) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
	}
	if a.metrics != nil {
		interceptors = append(interceptors, middleware.GRPCMetricsInterceptor(a.metrics))
	}
	interceptors = append(interceptors, middleware.GRPCRateLimitInterceptor(
		middleware.NewLimiter(a.cfg.GRPC.ScenarioQPS, a.cfg.GRPC.ScenarioBurst),
		grpcserver.GeneratePathsMethod))

	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(interceptors...)}
	if a.cfg.GRPC.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(a.cfg.GRPC.MaxConcurrentStreams))
	}

	srv := grpc.NewServer(opts...)
	grpcserver.RegisterShortRateServiceServer(srv, grpcserver.NewShortRateHandler(a.scenarios, a.rates))
	reflection.Register(srv)
	return srv
}
