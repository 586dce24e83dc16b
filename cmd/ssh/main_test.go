package main

import (
	"context"
	"os"
	"testing"
	"time"

	"signal-quorum/internal/config"
	"signal-quorum/internal/repository"
	"signal-quorum/internal/service"

	"github.com/charmbracelet/ssh"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	restore := stubSSHDeps()
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}
}

func stubSSHDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewCandleRepo := newCandleRepoFunc
	origNewPerfRepo := newPerformanceRepoFunc
	origNewProvider := newCoinGeckoProviderFunc
	origNewMarketService := newMarketServiceFunc
	origNewWishServer := newWishServerFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			RedisURL:         "",
			DatabaseURL:      "",
			SSHPort:          2222,
			SSHHostKeyPath:   ".ssh/test_key",
			EnsembleSymbols:  nil,
			EnsemblePollSecs: 300,
			MinWeight:        0.05,
			MaxWeight:        0.7,
		}
	}
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newCandleRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.CandleRepository {
		return nil
	}
	newPerformanceRepoFunc = func(repository.PgxPool, trace.Tracer) *repository.PerformanceRepository {
		return nil
	}
	newCoinGeckoProviderFunc = func(trace.Tracer) service.MarketProvider { return nil }
	newMarketServiceFunc = func(
		trace.Tracer,
		service.MarketProvider,
		service.CandleStore,
		service.RedisClient,
	) *service.MarketDataService {
		return nil
	}
	newWishServerFunc = func(ops ...ssh.Option) (*ssh.Server, error) {
		return nil, nil
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newCandleRepoFunc = origNewCandleRepo
		newPerformanceRepoFunc = origNewPerfRepo
		newCoinGeckoProviderFunc = origNewProvider
		newMarketServiceFunc = origNewMarketService
		newWishServerFunc = origNewWishServer
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
	}
}
