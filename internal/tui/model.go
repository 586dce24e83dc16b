package tui

import (
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"signal-quorum/internal/domain"
)

// SignalSource serves the most recent ensemble decisions, keyed by symbol.
type SignalSource interface {
	LatestSignals() map[string]*domain.EnsembleSignal
}

// WeightLister exposes the current strategy registry.
type WeightLister interface {
	GetStrategies() []domain.StrategyWeight
}

// Services bundles everything the dashboard reads from.
type Services struct {
	Signals    SignalSource
	Strategies WeightLister
	Username   string
}

type AppModel struct {
	svc Services

	signals    []symbolSignal
	weights    []domain.StrategyWeight
	lastUpdate time.Time

	width  int
	height int
	ready  bool
}

type symbolSignal struct {
	symbol string
	signal *domain.EnsembleSignal
}

const refreshInterval = 5 * time.Second

type refreshMsg struct{}

type dataMsg struct {
	signals []symbolSignal
	weights []domain.StrategyWeight
}

func NewAppModel(svc Services) *AppModel {
	return &AppModel{svc: svc}
}

func (m *AppModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(fetchData(m.svc), scheduleRefresh())
}

func fetchData(svc Services) tea.Cmd {
	return func() tea.Msg {
		var msg dataMsg
		if svc.Signals != nil {
			latest := svc.Signals.LatestSignals()
			for symbol, signal := range latest {
				msg.signals = append(msg.signals, symbolSignal{symbol: symbol, signal: signal})
			}
			sort.Slice(msg.signals, func(i, j int) bool {
				return msg.signals[i].symbol < msg.signals[j].symbol
			})
		}
		if svc.Strategies != nil {
			msg.weights = svc.Strategies.GetStrategies()
			sort.Slice(msg.weights, func(i, j int) bool {
				return msg.weights[i].Weight > msg.weights[j].Weight
			})
		}
		return msg
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, fetchData(m.svc)
		}
		return m, nil

	case refreshMsg:
		return m, tea.Batch(fetchData(m.svc), scheduleRefresh())

	case dataMsg:
		m.signals = msg.signals
		m.weights = msg.weights
		m.lastUpdate = time.Now()
		m.ready = true
		return m, nil
	}

	return m, nil
}
