package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-quorum/internal/bot"
	"signal-quorum/internal/cache"
	"signal-quorum/internal/config"
	"signal-quorum/internal/db"
	"signal-quorum/internal/ensemble"
	"signal-quorum/internal/handler"
	"signal-quorum/internal/job"
	"signal-quorum/internal/ml/fusion"
	"signal-quorum/internal/provider"
	"signal-quorum/internal/repository"
	"signal-quorum/internal/service"
	"signal-quorum/internal/strategy"
	"signal-quorum/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "signal-quorum/docs"
)

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	initPostgresFunc         = db.InitPostgres
	initRedisFunc            = cache.InitRedis
	initTracerFunc           = tracing.InitTracer
	newCandleRepoFunc        = repository.NewCandleRepository
	newPerformanceRepoFunc   = repository.NewPerformanceRepository
	newWeightUpdateRepoFunc  = repository.NewWeightUpdateRepository
	newCoinGeckoProviderFunc = func(tracer trace.Tracer) service.MarketProvider {
		return provider.NewCoinGeckoProvider(tracer)
	}
	newMarketServiceFunc      = service.NewMarketDataService
	newMarketDataPollerFunc   = job.NewMarketDataPoller
	startMarketDataPollerFunc = func(p *job.MarketDataPoller, ctx context.Context) { go p.Start(ctx) }
	newEnsemblePollerFunc     = job.NewEnsemblePoller
	startEnsemblePollerFunc   = func(p *job.EnsemblePoller, ctx context.Context) { go p.Start(ctx) }
	newRebalanceJobFunc       = job.NewRebalanceJob
	startRebalanceJobFunc     = func(j *job.RebalanceJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBotFunc      = bot.StartTelegramBot
	newHandlerFunc            = handler.New
	newRouterFunc             = gin.Default
	setupSignalNotify         = signal.Notify
	waitForSignalFunc         = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc       = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc    = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Signal Quorum API
// @version         1.0
// @description     Adaptive multi-strategy trading signal ensemble.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Create repositories and run migrations
	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	perfRepo := newPerformanceRepoFunc(db.Pool, tracer)
	weightRepo := newWeightUpdateRepoFunc(db.Pool, tracer)
	if db.Pool != nil {
		for _, migrator := range []interface {
			RunMigrations(context.Context) error
		}{candleRepo, perfRepo, weightRepo} {
			if err := migrator.RunMigrations(ctx); err != nil {
				log.Fatalf("failed to run migrations: %v", err)
			}
		}
	}

	// Create provider and market data service. Without Postgres the service
	// runs store-less and serves candles straight from the provider.
	cgProvider := newCoinGeckoProviderFunc(tracer)
	var candleStore service.CandleStore
	if db.Pool != nil {
		candleStore = candleRepo
	}
	marketService := newMarketServiceFunc(tracer, cgProvider, candleStore, cache.Client)

	// Optional trained fusion model for conflict resolution
	var scorer ensemble.FusionScorer
	if cfg.FusionModelPath != "" {
		if model, err := loadFusionModel(cfg.FusionModelPath); err != nil {
			log.Printf("failed to load fusion model from %s: %v", cfg.FusionModelPath, err)
		} else {
			scorer = model
			log.Printf("fusion model loaded from %s", cfg.FusionModelPath)
		}
	}

	// Build the ensemble engine and register the built-in strategies
	var history ensemble.PerformanceHistory
	var audit handler.WeightAudit
	if db.Pool != nil {
		history = perfRepo
		audit = weightRepo
	}

	engine := ensemble.NewService(tracer, history, scorer, ensemble.Config{
		StrategyTimeout:    cfg.StrategyTimeout(),
		ClosenessThreshold: cfg.ClosenessThreshold,
		MinWeight:          cfg.MinWeight,
		MaxWeight:          cfg.MaxWeight,
	})
	registerDefaultStrategies(engine, marketService)

	// Start Telegram bot
	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	tgBot := startTelegramBotFunc(marketService, engine)

	// Background jobs (stopped by ctx cancel)
	marketPoller := newMarketDataPollerFunc(tracer, marketService, cfg.CoinGeckoPollSecs)
	startMarketDataPollerFunc(marketPoller, ctx)

	var notifier job.SignalNotifier
	if tgBot != nil {
		notifier = tgBot
	}
	ensemblePoller := newEnsemblePollerFunc(tracer, marketService, engine, notifier, cfg.EnsembleSymbols, cfg.EnsemblePollSecs)
	startEnsemblePollerFunc(ensemblePoller, ctx)

	if cfg.RebalanceEnabled && history != nil {
		rebalanceJob := newRebalanceJobFunc(tracer, engine, audit, cfg.RebalanceWindowDays, cfg.RebalanceHourUTC)
		startRebalanceJobFunc(rebalanceJob, ctx)
	}

	// Create handlers and routes
	h := newHandlerFunc(tracer, engine, marketService, audit)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("signal-quorum"))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	db.ClosePostgres()
	cache.CloseRedis()

	log.Println("Server exiting")
}

func loadFusionModel(path string) (*fusion.Model, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fusion.UnmarshalBinary(blob)
}

func registerDefaultStrategies(engine *ensemble.Service, source strategy.CandleSource) {
	members := strategy.Defaults(source)
	weight := 1.0 / float64(len(members))
	for _, s := range members {
		if err := engine.AddStrategy(s, weight); err != nil {
			log.Printf("failed to register strategy %s: %v", s.ID(), err)
		}
	}
}
