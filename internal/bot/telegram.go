package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"signal-quorum/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type SnapshotGetter interface {
	GetSnapshot(ctx context.Context, symbol string) (domain.MarketData, error)
}

type SignalEngine interface {
	GenerateEnsembleSignal(ctx context.Context, md domain.MarketData) *domain.EnsembleSignal
	GetStrategies() []domain.StrategyWeight
}

// TelegramBot answers signal queries over Telegram and, when a chat ID is
// configured, broadcasts fresh ensemble decisions.
type TelegramBot struct {
	bot    *tele.Bot
	chatID int64
}

func StartTelegramBot(market SnapshotGetter, engine SignalEngine) *TelegramBot {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/price", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /price BTC\nSupported: %s", strings.Join(domain.SupportedSymbols, ", ")))
		}
		symbol := strings.ToUpper(args[0])
		if _, ok := domain.CoinGeckoID[symbol]; !ok {
			return c.Send(fmt.Sprintf("Unknown symbol: %s\nSupported: %s", symbol, strings.Join(domain.SupportedSymbols, ", ")))
		}
		md, err := market.GetSnapshot(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching price for %s: %v", symbol, err))
		}
		msg := fmt.Sprintf(
			"%s\nPrice: $%.2f\n24h Volume: $%.0f",
			symbol, md.Close, md.Volume,
		)
		return c.Send(msg)
	})

	b.Handle("/signal", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send(fmt.Sprintf("Usage: /signal BTC\nSupported: %s", strings.Join(domain.SupportedSymbols, ", ")))
		}
		symbol := strings.ToUpper(args[0])
		if _, ok := domain.CoinGeckoID[symbol]; !ok {
			return c.Send(fmt.Sprintf("Unknown symbol: %s\nSupported: %s", symbol, strings.Join(domain.SupportedSymbols, ", ")))
		}
		md, err := market.GetSnapshot(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching data for %s: %v", symbol, err))
		}
		signal := engine.GenerateEnsembleSignal(context.Background(), md)
		return c.Send(formatSignal(signal))
	})

	b.Handle("/strategies", func(c tele.Context) error {
		return c.Send(formatStrategies(engine.GetStrategies()))
	})

	log.Println("Telegram bot started")
	go b.Start()

	return &TelegramBot{bot: b, chatID: chatID}
}

// AnnounceSignal pushes an ensemble decision to the configured chat. No-op
// when TELEGRAM_CHAT_ID is unset. HOLD decisions are not broadcast; they
// remain queryable via /signal.
func (t *TelegramBot) AnnounceSignal(signal *domain.EnsembleSignal) {
	if t == nil || t.chatID == 0 || signal == nil || signal.Type == domain.SignalHold {
		return
	}
	if _, err := t.bot.Send(tele.ChatID(t.chatID), formatSignal(signal)); err != nil {
		log.Printf("telegram announce error: %v", err)
	}
}

func formatSignal(signal *domain.EnsembleSignal) string {
	if signal == nil {
		return "No signal available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s ensemble signal\n", signal.Symbol)
	fmt.Fprintf(&b, "Decision: %s (strength %.2f)\n", signal.Type, signal.Strength)
	fmt.Fprintf(&b, "Consensus: %.0f%%\n", signal.ConsensusStrength*100)
	if signal.Price > 0 {
		fmt.Fprintf(&b, "Price: $%.2f\n", signal.Price)
	}
	if len(signal.ContributingStrategies) > 0 {
		fmt.Fprintf(&b, "Strategies: %s\n", strings.Join(signal.ContributingStrategies, ", "))
	}
	if signal.ConflictResolution != nil {
		fmt.Fprintf(&b, "Conflict resolved via %s\n", signal.ConflictResolution.Method)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatStrategies(weights []domain.StrategyWeight) string {
	if len(weights) == 0 {
		return "No strategies registered"
	}

	var b strings.Builder
	b.WriteString("Registered strategies\n")
	for _, w := range weights {
		fmt.Fprintf(&b, "%s: %.1f%%\n", w.StrategyID, w.Weight*100)
	}
	return strings.TrimRight(b.String(), "\n")
}
