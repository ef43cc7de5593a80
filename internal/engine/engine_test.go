package engine

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/solvys/predictipulse/internal/mocks"
	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/internal/scanner"
	"github.com/solvys/predictipulse/internal/settings"
	"github.com/solvys/predictipulse/internal/venue/coinbase"
)

type fakeLister struct {
	mu    sync.Mutex
	items []models.MarketItem
	calls int
}

func (f *fakeLister) ListItems(_ context.Context, _ models.MarketFilter) []models.MarketItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.items
}

type recordingSink struct {
	mu      sync.Mutex
	single  []models.Trade
	bulk    [][]models.Trade
	sources []models.TradeSource
}

func (s *recordingSink) LogTrade(_ context.Context, t models.Trade, src models.TradeSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.single = append(s.single, t)
	s.sources = append(s.sources, src)
	return nil
}

func (s *recordingSink) BulkLog(_ context.Context, ts []models.Trade, src models.TradeSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulk = append(s.bulk, ts)
	s.sources = append(s.sources, src)
	return nil
}

func drainLogs(e *Engine) []string {
	var out []string
	for {
		line, ok := e.NextLog(0)
		if !ok {
			return out
		}
		out = append(out, line)
	}
}

func countContaining(lines []string, sub string) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, sub) {
			n++
		}
	}
	return n
}

func simOptions() Options {
	opts := DefaultOptions()
	opts.SimulationInterval = time.Millisecond
	opts.StopTimeout = time.Second
	opts.PaperBankroll = 1000
	opts.Seed = 42
	return opts
}

// TestEngine_StartStopIdempotent tests that repeated Start and Stop calls log once each
func TestEngine_StartStopIdempotent(t *testing.T) {
	e := New(Deps{Logger: zerolog.Nop()}, simOptions(), nil)

	assert.False(t, e.IsRunning())

	e.Start()
	e.Start()
	assert.True(t, e.IsRunning())

	e.Stop()
	e.Stop()
	assert.False(t, e.IsRunning())

	logs := drainLogs(e)
	assert.Equal(t, 1, countContaining(logs, "engine started"))
	assert.Equal(t, 1, countContaining(logs, "engine stopped"))
}

// TestEngine_ModeSelection tests that Start runs live only over an
// established venue connection
func TestEngine_ModeSelection(t *testing.T) {
	t.Run("no venue", func(t *testing.T) {
		e := New(Deps{Logger: zerolog.Nop()}, simOptions(), nil)
		e.Start()
		defer e.Stop()

		assert.Equal(t, ModeSimulation, e.Mode())
	})

	t.Run("demo mode skips the venue", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		venue := mocks.NewMockExecutionVenue(ctrl)
		venue.EXPECT().Name().Return("kalshi").AnyTimes()

		opts := simOptions()
		opts.DemoMode = true
		e := New(Deps{Venue: venue, Logger: zerolog.Nop()}, opts, nil)
		e.Start()
		defer e.Stop()

		assert.Equal(t, ModeSimulation, e.Mode())
	})

	t.Run("connected venue", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		venue := mocks.NewMockExecutionVenue(ctrl)
		venue.EXPECT().Name().Return("kalshi").AnyTimes()
		venue.EXPECT().CheckConnection(gomock.Any()).Return(models.ConnectionStatus{Connected: true})
		venue.EXPECT().Balance(gomock.Any()).Return(100.0, nil).AnyTimes()
		venue.EXPECT().Positions(gomock.Any()).Return(nil, nil).AnyTimes()

		opts := DefaultOptions()
		opts.StopTimeout = time.Second
		e := New(Deps{Venue: venue, Logger: zerolog.Nop()}, opts, nil)
		e.Start()
		defer e.Stop()

		assert.Equal(t, ModeLive, e.Mode())
		assert.Equal(t, ModeLive, e.Stats().Mode)
		assert.Equal(t, 1, countContaining(drainLogs(e), "engine started (live mode)"))
	})

	t.Run("disconnected venue", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		venue := mocks.NewMockExecutionVenue(ctrl)
		venue.EXPECT().Name().Return("coinbase").AnyTimes()
		venue.EXPECT().CheckConnection(gomock.Any()).Return(models.ConnectionStatus{Error: "Missing API credentials"})

		opts := simOptions()
		opts.SimTradeProbability = 0
		e := New(Deps{Venue: venue, Logger: zerolog.Nop()}, opts, nil)
		e.Start()
		defer e.Stop()

		assert.Equal(t, ModeSimulation, e.Mode())
		assert.Equal(t, ModeSimulation, e.Stats().Mode)
		assert.Equal(t, 1000.0, e.Bankroll())

		opp, ok := e.NextOpportunity(2 * time.Second)
		require.True(t, ok, "expected a simulated opportunity")
		assert.Equal(t, "sim", opp.Sport)

		logs := drainLogs(e)
		assert.Equal(t, 1, countContaining(logs, "WARNING - Venue coinbase unavailable (Missing API credentials)"))
		assert.Equal(t, 1, countContaining(logs, "engine started (simulation mode)"))
	})

	t.Run("coinbase without credentials", func(t *testing.T) {
		e := New(Deps{Venue: coinbase.NewClient("", "", zerolog.Nop()), Logger: zerolog.Nop()}, simOptions(), nil)
		e.Start()
		defer e.Stop()

		assert.Equal(t, ModeSimulation, e.Stats().Mode)
		assert.Equal(t, 0, countContaining(drainLogs(e), "Venue sync failed"))
	})
}

// TestEngine_SimulationTradesStayBounded tests paper trade bounds and their delivery to the sink
func TestEngine_SimulationTradesStayBounded(t *testing.T) {
	opts := simOptions()
	opts.SimTradeProbability = 1
	sink := &recordingSink{}

	e := New(Deps{Sink: sink, Logger: zerolog.Nop()}, opts, nil)
	e.Start()

	var trades []models.Trade
	for len(trades) < 10 {
		trade, ok := e.NextTrade(2 * time.Second)
		require.True(t, ok, "expected a simulated trade")
		trades = append(trades, trade)
	}
	e.Stop()

	for _, tr := range trades {
		assert.Contains(t, []models.TradeResult{models.ResultWin, models.ResultLoss}, tr.Result)
		assert.True(t, strings.HasPrefix(tr.ID, "paper-"))
		assert.LessOrEqual(t, tr.Stake, 50.0)

		bound := tr.Stake * math.Max(1/tr.EntryPrice-1, 1)
		assert.LessOrEqual(t, math.Abs(tr.PnL), bound+0.01)
		assert.GreaterOrEqual(t, tr.EntryPrice, 0.05)
		assert.LessOrEqual(t, tr.EntryPrice, 0.95)
	}

	snap := e.snapshot()
	assert.Equal(t, snap.Wins+snap.Losses, len(snap.Ledger))

	stats := e.Stats()
	assert.Equal(t, ModeSimulation, stats.Mode)
	assert.Equal(t, 1000.0, stats.InitialBankroll)
	assert.Equal(t, stats.Wins+stats.Losses, stats.Trades)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.GreaterOrEqual(t, len(sink.single), 10)
	for _, src := range sink.sources {
		assert.Equal(t, models.SourcePaper, src)
	}
}

// TestEngine_SimulationAccountingMatchesLedger tests that the bankroll and
// total P&L move by exactly the rounded P&L recorded on each trade
func TestEngine_SimulationAccountingMatchesLedger(t *testing.T) {
	opts := simOptions()
	opts.SimTradeProbability = 1
	opts.Seed = 7

	e := New(Deps{Logger: zerolog.Nop()}, opts, nil)
	e.Start()
	for i := 0; i < 50; i++ {
		_, ok := e.NextTrade(2 * time.Second)
		require.True(t, ok, "expected a simulated trade")
	}
	e.Stop()

	snap := e.snapshot()
	sum := 0.0
	for _, tr := range snap.Ledger {
		assert.Equal(t, math.Round(tr.PnL*100)/100, tr.PnL)
		sum += tr.PnL
	}
	assert.InDelta(t, sum, snap.TotalPnL, 1e-6)
	assert.InDelta(t, 1000+sum, snap.Bankroll, 1e-6)
}

// TestEngine_SimulationOpportunitiesRespectCaps tests that simulated stakes stay under the dollar and bankroll caps
func TestEngine_SimulationOpportunitiesRespectCaps(t *testing.T) {
	opts := simOptions()
	opts.SimTradeProbability = 0

	e := New(Deps{Logger: zerolog.Nop()}, opts, settings.Values{settings.KeyMaxDollarBet: 20})
	e.Start()
	defer e.Stop()

	for i := 0; i < 10; i++ {
		opp, ok := e.NextOpportunity(2 * time.Second)
		require.True(t, ok)
		assert.Equal(t, "sim", opp.Sport)
		assert.GreaterOrEqual(t, opp.KellyStake, 0.0)
		assert.LessOrEqual(t, opp.KellyStake, 20.0)
		assert.LessOrEqual(t, opp.KellyStake, 1000*0.10)
		assert.Greater(t, opp.Edge, 0.0)
	}
}

// TestEngine_LiveSyncReplacesLedger tests that each venue sync replaces the ledger with open positions
func TestEngine_LiveSyncReplacesLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	venue := mocks.NewMockExecutionVenue(ctrl)
	venue.EXPECT().Name().Return("kalshi").AnyTimes()
	sink := &recordingSink{}

	gomock.InOrder(
		venue.EXPECT().Balance(gomock.Any()).Return(250.5, nil),
		venue.EXPECT().Positions(gomock.Any()).Return([]models.Position{
			{MarketID: "NBA-LAL", Side: "yes", Size: 10, AvgPrice: 0.42, PnL: 1.234},
			{MarketID: "NFL-KC", Side: "no", Size: 3, AvgPrice: 0.61, PnL: -0.5},
		}, nil),
		venue.EXPECT().Balance(gomock.Any()).Return(260.5, nil),
		venue.EXPECT().Positions(gomock.Any()).Return([]models.Position{
			{MarketID: "NBA-LAL", Side: "yes", Size: 10, AvgPrice: 0.42, PnL: 3},
		}, nil),
	)

	e := New(Deps{Venue: venue, Sink: sink, Logger: zerolog.Nop()}, DefaultOptions(), nil)
	ctx := context.Background()

	require.NoError(t, e.syncAccount(ctx))

	stats := e.Stats()
	assert.Equal(t, 250.5, stats.Bankroll)
	assert.Equal(t, 250.5, stats.InitialBankroll)
	assert.Equal(t, 0.0, stats.TotalPnL)
	assert.Equal(t, 2, stats.Trades)
	assert.Equal(t, ModeLive, stats.Mode)

	trades := e.RecentTrades(10)
	require.Len(t, trades, 2)
	assert.Equal(t, "kalshi-NFL-KC", trades[0].ID)
	assert.Equal(t, "NO", trades[0].Team)
	assert.Equal(t, "kalshi-NBA-LAL", trades[1].ID)
	assert.Equal(t, "YES", trades[1].Team)
	assert.Equal(t, 1.23, trades[1].PnL)
	assert.Equal(t, models.ResultPending, trades[1].Result)
	assert.Equal(t, 0.42, trades[1].EntryPrice)

	require.NoError(t, e.syncAccount(ctx))

	stats = e.Stats()
	assert.Equal(t, 260.5, stats.Bankroll)
	assert.Equal(t, 250.5, stats.InitialBankroll)
	assert.Equal(t, 10.0, stats.TotalPnL)
	assert.Equal(t, 1, stats.Trades)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.bulk, 2)
	assert.Len(t, sink.bulk[0], 2)
	assert.Equal(t, models.SourceActual, sink.sources[0])
}

// TestEngine_LiveCycleSyncFailureSkipsScan tests that a failed sync skips the market scan
func TestEngine_LiveCycleSyncFailureSkipsScan(t *testing.T) {
	ctrl := gomock.NewController(t)
	venue := mocks.NewMockExecutionVenue(ctrl)
	venue.EXPECT().Balance(gomock.Any()).Return(0.0, errors.New("503 service unavailable"))
	lister := &fakeLister{}

	e := New(Deps{Venue: venue, MarketData: lister, Logger: zerolog.Nop()}, DefaultOptions(), nil)
	e.liveCycle(context.Background())

	assert.Equal(t, 0, lister.calls)
	assert.Equal(t, 1, countContaining(drainLogs(e), "WARNING - Venue sync failed"))
}

// TestEngine_LiveCycleScansAndAutoTrades tests the live scan and the auto-trade order for actionable edges
func TestEngine_LiveCycleScansAndAutoTrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	venue := mocks.NewMockExecutionVenue(ctrl)
	venue.EXPECT().Name().Return("kalshi").AnyTimes()
	venue.EXPECT().Balance(gomock.Any()).Return(1000.0, nil)
	venue.EXPECT().Positions(gomock.Any()).Return(nil, nil)
	venue.EXPECT().
		PlaceOrder(gomock.Any(), models.OrderRequest{MarketID: "NBA-LAL", Side: "yes", Price: 0.5, Size: 100}).
		Return(&models.Order{ID: "ord-1", Status: "resting"}, nil)

	model := mocks.NewMockProbabilityModel(ctrl)
	model.EXPECT().TrueProbability(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, item models.MarketItem) (float64, bool) {
			if item.ID == "NBA-LAL" {
				return 0.60, true
			}
			return 0, false
		}).Times(2)

	lister := &fakeLister{items: []models.MarketItem{
		{ID: "NBA-LAL", Label: "Lakers at Celtics", Selection: "Lakers", ImpliedProb: 0.5, Category: "NBA"},
		{ID: "NHL-NYR", Label: "Rangers at Bruins", Selection: "Rangers", ImpliedProb: 0.4, Category: "NHL"},
	}}

	opts := DefaultOptions()
	opts.AutoTrade = true
	e := New(Deps{
		Venue:      venue,
		MarketData: lister,
		Scanner:    scanner.New(model, zerolog.Nop()),
		Logger:     zerolog.Nop(),
	}, opts, nil)

	e.liveCycle(context.Background())

	first, ok := e.NextOpportunity(0)
	require.True(t, ok)
	assert.Equal(t, "NBA-LAL", first.MarketID)
	assert.True(t, first.Actionable)
	assert.Equal(t, 50.0, first.KellyStake)

	second, ok := e.NextOpportunity(0)
	require.True(t, ok)
	assert.Equal(t, "NHL-NYR", second.MarketID)
	assert.False(t, second.Actionable)

	logs := drainLogs(e)
	assert.Equal(t, 1, countContaining(logs, "Order placed: NBA-LAL YES x100 @ 50c (ord-1)"))
}

// TestEngine_LiveCycleOutsideWindow tests that no scan runs outside the trading window
func TestEngine_LiveCycleOutsideWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	venue := mocks.NewMockExecutionVenue(ctrl)
	venue.EXPECT().Name().Return("kalshi").AnyTimes()
	venue.EXPECT().Balance(gomock.Any()).Return(100.0, nil)
	venue.EXPECT().Positions(gomock.Any()).Return(nil, nil)
	lister := &fakeLister{}

	e := New(Deps{Venue: venue, MarketData: lister, Logger: zerolog.Nop()}, DefaultOptions(),
		settings.Values{settings.KeyTradingStart: 9, settings.KeyTradingEnd: 17})
	e.now = func() time.Time { return time.Date(2025, 1, 12, 20, 0, 0, 0, time.Local) }

	e.liveCycle(context.Background())

	assert.Equal(t, 0, lister.calls)
	assert.Equal(t, 100.0, e.Bankroll())
}

// TestEngine_StopAbandonsSlowWorker tests that Stop returns after the timeout while the worker is blocked
func TestEngine_StopAbandonsSlowWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	venue := mocks.NewMockExecutionVenue(ctrl)
	venue.EXPECT().Name().Return("kalshi").AnyTimes()
	venue.EXPECT().CheckConnection(gomock.Any()).Return(models.ConnectionStatus{Connected: true})

	release := make(chan struct{})
	entered := make(chan struct{})
	venue.EXPECT().Balance(gomock.Any()).DoAndReturn(func(context.Context) (float64, error) {
		close(entered)
		<-release
		return 10, nil
	})
	venue.EXPECT().Positions(gomock.Any()).Return(nil, nil).AnyTimes()

	opts := DefaultOptions()
	opts.StopTimeout = 10 * time.Millisecond
	e := New(Deps{Venue: venue, Logger: zerolog.Nop()}, opts, nil)

	e.Start()
	<-entered

	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	start := time.Now()
	e.Stop()
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, e.IsRunning())

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("abandoned worker did not exit")
	}
}

// TestEngine_UpdateConfig tests that settings updates are validated before they merge
func TestEngine_UpdateConfig(t *testing.T) {
	e := New(Deps{Logger: zerolog.Nop()}, DefaultOptions(), nil)

	err := e.UpdateConfig(settings.Values{
		settings.KeyBankroll:        1e6,
		settings.KeyKellyMultiplier: 0.25,
		"custom_key":                "kept",
	})
	require.NoError(t, err)

	cfg := e.Config()
	assert.NotContains(t, cfg, settings.KeyBankroll)
	assert.Equal(t, 0.25, cfg[settings.KeyKellyMultiplier])
	assert.Equal(t, "kept", cfg["custom_key"])
	assert.Equal(t, 0.25, e.Params().KellyMultiplier)
	assert.Equal(t, 0.0, e.Bankroll())

	err = e.UpdateConfig(settings.Values{settings.KeyMaxDollarBet: "lots"})
	assert.ErrorIs(t, err, settings.ErrInvalidValue)
	assert.Equal(t, 50.0, e.Params().MaxDollarBet)

	logs := drainLogs(e)
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0], "INFO - Configuration updated: ")
	assert.NotContains(t, logs[0], "bankroll")

	require.NoError(t, e.ResetConfig(settings.Defaults()))
	assert.Equal(t, 0.5, e.Params().KellyMultiplier)
	assert.NotContains(t, e.Config(), "custom_key")
}

// TestEngine_RecentTradesNewestFirst tests ledger ordering and the default limit
func TestEngine_RecentTradesNewestFirst(t *testing.T) {
	e := New(Deps{Logger: zerolog.Nop()}, DefaultOptions(), nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		e.state.ledger = append(e.state.ledger, models.Trade{ID: id})
	}

	got := e.RecentTrades(3)

	require.Len(t, got, 3)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Equal(t, "b", got[2].ID)
	assert.Len(t, e.RecentTrades(0), 4)
}

// TestEngine_CheckConnection tests the uplink check with and without a venue
func TestEngine_CheckConnection(t *testing.T) {
	t.Run("no venue", func(t *testing.T) {
		e := New(Deps{Logger: zerolog.Nop()}, DefaultOptions(), nil)

		status := e.CheckConnection(context.Background())

		assert.False(t, status.Connected)
		assert.Equal(t, "venue client not initialized", status.Error)
	})

	t.Run("connected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		venue := mocks.NewMockExecutionVenue(ctrl)
		venue.EXPECT().Name().Return("kalshi").AnyTimes()
		balance := 42.0
		venue.EXPECT().CheckConnection(gomock.Any()).Return(models.ConnectionStatus{
			Connected: true,
			Balance:   &balance,
			Message:   "Kalshi API connected successfully",
		})

		e := New(Deps{Venue: venue, Logger: zerolog.Nop()}, DefaultOptions(), nil)
		status := e.CheckConnection(context.Background())

		assert.True(t, status.Connected)
		assert.Equal(t, 1, countContaining(drainLogs(e), "Uplink to kalshi successful. Balance: $42.00"))
	})

	t.Run("failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		venue := mocks.NewMockExecutionVenue(ctrl)
		venue.EXPECT().Name().Return("coinbase").AnyTimes()
		venue.EXPECT().CheckConnection(gomock.Any()).Return(models.ConnectionStatus{
			Error: "Coinbase Prediction Markets API not yet available",
		})

		e := New(Deps{Venue: venue, Logger: zerolog.Nop()}, DefaultOptions(), nil)
		status := e.CheckConnection(context.Background())

		assert.False(t, status.Connected)
		assert.Equal(t, 1, countContaining(drainLogs(e), "WARNING - Uplink to coinbase failed"))
	})
}

// TestEngine_PlaceOrderWithoutVenue tests that orders need a venue
func TestEngine_PlaceOrderWithoutVenue(t *testing.T) {
	e := New(Deps{Logger: zerolog.Nop()}, DefaultOptions(), nil)

	_, err := e.PlaceOrder(context.Background(), models.OrderRequest{MarketID: "x", Side: "yes", Price: 0.5, Size: 1})

	assert.ErrorIs(t, err, ErrNoVenue)
}
