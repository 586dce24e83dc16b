package main

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"signal-quorum/internal/bot"
	"signal-quorum/internal/config"
	"signal-quorum/internal/domain"
	"signal-quorum/internal/job"
	"signal-quorum/internal/service"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps()
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

func stubServerDeps() func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewProvider := newCoinGeckoProviderFunc
	origStartMarketPoller := startMarketDataPollerFunc
	origStartEnsemblePoller := startEnsemblePollerFunc
	origStartRebalance := startRebalanceJobFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			RedisURL:          "",
			DatabaseURL:       "",
			CoinGeckoPollSecs: 1,
			EnsembleSymbols:   []string{"BTC"},
			EnsemblePollSecs:  300,
			MinWeight:         0.05,
			MaxWeight:         0.7,
		}
	}
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newCoinGeckoProviderFunc = func(trace.Tracer) service.MarketProvider { return stubMarketProvider{} }
	startMarketDataPollerFunc = func(*job.MarketDataPoller, context.Context) {}
	startEnsemblePollerFunc = func(*job.EnsemblePoller, context.Context) {}
	startRebalanceJobFunc = func(*job.RebalanceJob, context.Context) {}
	startTelegramBotFunc = func(bot.SnapshotGetter, bot.SignalEngine) *bot.TelegramBot { return nil }
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newCoinGeckoProviderFunc = origNewProvider
		startMarketDataPollerFunc = origStartMarketPoller
		startEnsemblePollerFunc = origStartEnsemblePoller
		startRebalanceJobFunc = origStartRebalance
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

type stubMarketProvider struct{}

func (stubMarketProvider) FetchSnapshots(ctx context.Context) (map[string]domain.MarketData, error) {
	return map[string]domain.MarketData{
		"BTC": {Symbol: "BTC", Close: 1},
	}, nil
}

func (stubMarketProvider) FetchCandles(ctx context.Context, symbol string, days int) ([]domain.Candle, error) {
	return []domain.Candle{}, nil
}
