package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"signal-quorum/internal/cache"
	"signal-quorum/internal/config"
	"signal-quorum/internal/db"
	"signal-quorum/internal/ensemble"
	"signal-quorum/internal/job"
	"signal-quorum/internal/provider"
	"signal-quorum/internal/repository"
	"signal-quorum/internal/service"
	"signal-quorum/internal/strategy"
	"signal-quorum/internal/tui"
	"signal-quorum/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	gossh "golang.org/x/crypto/ssh"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	initPostgresFunc         = db.InitPostgres
	initRedisFunc            = cache.InitRedis
	initTracerFunc           = tracing.InitTracer
	newCandleRepoFunc        = repository.NewCandleRepository
	newPerformanceRepoFunc   = repository.NewPerformanceRepository
	newCoinGeckoProviderFunc = func(tracer trace.Tracer) service.MarketProvider {
		return provider.NewCoinGeckoProvider(tracer)
	}
	newMarketServiceFunc = service.NewMarketDataService
	newWishServerFunc    = wish.NewServer
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

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

	// Repositories and services
	candleRepo := newCandleRepoFunc(db.Pool, tracer)
	perfRepo := newPerformanceRepoFunc(db.Pool, tracer)

	cgProvider := newCoinGeckoProviderFunc(tracer)
	var candleStore service.CandleStore
	if db.Pool != nil {
		candleStore = candleRepo
	}
	marketService := newMarketServiceFunc(tracer, cgProvider, candleStore, cache.Client)

	var history ensemble.PerformanceHistory
	if db.Pool != nil {
		history = perfRepo
	}

	engine := ensemble.NewService(tracer, history, nil, ensemble.Config{
		StrategyTimeout:    cfg.StrategyTimeout(),
		ClosenessThreshold: cfg.ClosenessThreshold,
		MinWeight:          cfg.MinWeight,
		MaxWeight:          cfg.MaxWeight,
	})
	registerDefaultStrategies(engine, marketService)

	// Keep a fresh decision per symbol for the dashboard.
	poller := job.NewEnsemblePoller(tracer, marketService, engine, nil, cfg.EnsembleSymbols, cfg.EnsemblePollSecs)
	go poller.Start(ctx)

	// Build Wish SSH server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			log.Printf("SSH session: user=%s fingerprint=%s", ctx.User(), gossh.FingerprintSHA256(key))
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				svc := tui.Services{
					Signals:    poller,
					Strategies: engine,
					Username:   s.User(),
				}

				model := tui.NewAppModel(svc)
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}

	db.ClosePostgres()
	cache.CloseRedis()

	log.Println("SSH server exited")
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
