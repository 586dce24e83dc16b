package bot

import (
	"strings"
	"testing"

	"signal-quorum/internal/domain"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if b := StartTelegramBot(nil, nil); b != nil {
		t.Fatal("expected nil bot without token")
	}
}

func TestAnnounceSignalNilSafe(t *testing.T) {
	var b *TelegramBot
	b.AnnounceSignal(&domain.EnsembleSignal{Symbol: "BTC"})
}

func TestAnnounceSignalSkipsHold(t *testing.T) {
	// chatID set but bot nil inside; HOLD must return before touching it.
	b := &TelegramBot{chatID: 42}
	b.AnnounceSignal(&domain.EnsembleSignal{Symbol: "BTC", Type: domain.SignalHold})
}

func TestFormatSignal(t *testing.T) {
	method := domain.ResolveConfidenceVoting
	msg := formatSignal(&domain.EnsembleSignal{
		Symbol:                 "BTC",
		Type:                   domain.SignalBuy,
		Strength:               0.62,
		ConsensusStrength:      0.71,
		Price:                  50000,
		ContributingStrategies: []string{"rsi-reversion", "macd-trend"},
		ConflictResolution:     &domain.ConflictResolution{Method: method},
	})

	for _, want := range []string{"BTC", "BUY", "strength 0.62", "71%", "$50000.00", "rsi-reversion, macd-trend", "confidence_voting"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("formatted signal missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatSignalNil(t *testing.T) {
	if msg := formatSignal(nil); msg != "No signal available" {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestFormatStrategies(t *testing.T) {
	msg := formatStrategies([]domain.StrategyWeight{
		{StrategyID: "rsi-reversion", Weight: 0.25},
		{StrategyID: "momentum", Weight: 0.75},
	})
	if !strings.Contains(msg, "rsi-reversion: 25.0%") || !strings.Contains(msg, "momentum: 75.0%") {
		t.Fatalf("unexpected message: %q", msg)
	}

	if msg := formatStrategies(nil); msg != "No strategies registered" {
		t.Fatalf("unexpected empty message: %q", msg)
	}
}
