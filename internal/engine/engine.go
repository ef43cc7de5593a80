// Package engine runs the trading worker: a live cycle against an execution
// venue, or a self-contained simulation when no venue is connected.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/fanout"
	"github.com/solvys/predictipulse/internal/gateway"
	"github.com/solvys/predictipulse/internal/metrics"
	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/internal/scanner"
	"github.com/solvys/predictipulse/internal/settings"
)

// Modes reported in stats and metrics
const (
	ModeLive       = "live"
	ModeSimulation = "simulation"
)

// Log levels of published log lines
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// ErrNoVenue is returned by trading actions when no venue is configured
var ErrNoVenue = errors.New("venue client not initialized")

// MarketLister lists market items across every configured source. It must
// fail soft: errors are logged by the implementation and yield no items.
type MarketLister interface {
	ListItems(ctx context.Context, filter models.MarketFilter) []models.MarketItem
}

// OpportunityScanner turns market items into sized opportunities
type OpportunityScanner interface {
	Scan(ctx context.Context, items []models.MarketItem, params settings.Params, bankroll float64) []models.Opportunity
}

// TradeSink persists trades for performance reporting
type TradeSink interface {
	LogTrade(ctx context.Context, trade models.Trade, source models.TradeSource) error
	BulkLog(ctx context.Context, trades []models.Trade, source models.TradeSource) error
}

// EventMirror forwards published events to an external bus
type EventMirror interface {
	PublishOpportunity(ctx context.Context, mode string, opp models.Opportunity) error
	PublishTrade(ctx context.Context, mode string, trade models.Trade) error
}

// Deps are the collaborators injected into an Engine. Everything but Logger
// is optional; a nil Venue runs the simulation.
type Deps struct {
	Venue      gateway.ExecutionVenue
	MarketData MarketLister
	Scanner    OpportunityScanner
	Sink       TradeSink
	Mirror     EventMirror
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

// Options tune the run-loop
type Options struct {
	ScanInterval        time.Duration
	SimulationInterval  time.Duration
	StopTimeout         time.Duration
	ConnectTimeout      time.Duration // bounds the venue check at Start
	SimTradeProbability float64
	MinSimStake         float64
	PaperBankroll       float64
	Seed                uint64 // 0 picks a random seed per run
	DemoMode            bool
	AutoTrade           bool
}

// DefaultOptions returns the standard run-loop timing
func DefaultOptions() Options {
	return Options{
		ScanInterval:        30 * time.Second,
		SimulationInterval:  2 * time.Second,
		StopTimeout:         2 * time.Second,
		ConnectTimeout:      10 * time.Second,
		SimTradeProbability: 0.4,
		MinSimStake:         1,
	}
}

// Engine owns the worker lifecycle, the trading settings, and the account
// state. Construct with New.
type Engine struct {
	venue      gateway.ExecutionVenue
	marketData MarketLister
	scanner    OpportunityScanner
	sink       TradeSink
	mirror     EventMirror
	metrics    *metrics.Metrics
	opts       Options
	pub        *fanout.Publisher
	now        func() time.Time
	logger     zerolog.Logger

	// mu guards the lifecycle and the settings
	mu      sync.Mutex
	running bool
	mode    string // chosen by the last Start
	cancel  context.CancelFunc
	done    chan struct{}
	values  settings.Values
	params  settings.Params

	// state is written by the worker and read through snapshots
	state struct {
		sync.RWMutex
		bankroll        float64
		initialBankroll float64
		captured        bool
		totalPnL        float64
		wins            int
		losses          int
		ledger          []models.Trade
	}
}

// New creates a stopped engine with the given trading settings
func New(deps Deps, opts Options, values settings.Values) *Engine {
	logger := deps.Logger.With().Str("component", "engine").Logger()

	sc := deps.Scanner
	if sc == nil {
		sc = scanner.New(nil, deps.Logger)
	}

	if values == nil {
		values = settings.Defaults()
	}
	merged := settings.Merge(settings.Defaults(), values)
	params, err := settings.ParamsFrom(merged)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid trading settings, using defaults")
	}

	return &Engine{
		venue:      deps.Venue,
		marketData: deps.MarketData,
		scanner:    sc,
		sink:       deps.Sink,
		mirror:     deps.Mirror,
		metrics:    deps.Metrics,
		opts:       opts,
		pub:        fanout.NewPublisher(),
		now:        time.Now,
		logger:     logger,
		values:     merged,
		params:     params,
	}
}

// Mode reports the cycle chosen by the last Start. Before the first Start
// it reports live when a venue is configured outside demo mode.
func (e *Engine) Mode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != "" {
		return e.mode
	}
	if e.venue != nil && !e.opts.DemoMode {
		return ModeLive
	}
	return ModeSimulation
}

// selectMode runs the live cycle only when the venue reports an
// established connection; anything else falls back to the simulation.
func (e *Engine) selectMode(ctx context.Context) string {
	if e.venue == nil || e.opts.DemoMode {
		return ModeSimulation
	}

	timeout := e.opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status := e.venue.CheckConnection(checkCtx)
	if status.Connected {
		return ModeLive
	}

	reason := status.Error
	if reason == "" {
		reason = "not connected"
	}
	e.log(LevelWarning, fmt.Sprintf("Venue %s unavailable (%s). Falling back to simulation.", e.venue.Name(), reason))
	return ModeSimulation
}

// Start spawns the worker. It is a no-op while running.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.running = true
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	mode := e.selectMode(ctx)

	e.mu.Lock()
	e.mode = mode
	e.mu.Unlock()

	if mode == ModeSimulation {
		e.seedPaperBankroll()
	}

	go e.run(ctx, mode, e.newRand(), done)

	e.log(LevelInfo, fmt.Sprintf("Predictipulse engine started (%s mode).", mode))
}

// Stop cancels the worker and waits up to StopTimeout for it to exit.
// A worker that outlives the timeout is abandoned; it exits on its own
// once its current call observes the cancellation.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	cancel()

	timer := time.NewTimer(e.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		e.logger.Warn().Dur("timeout", e.opts.StopTimeout).Msg("worker did not exit in time, abandoning it")
	}

	e.log(LevelInfo, "Predictipulse engine stopped.")
}

// IsRunning reports the lifecycle state
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Config returns a copy of the current trading settings
func (e *Engine) Config() settings.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.values.Clone()
}

// Params returns the typed trading settings
func (e *Engine) Params() settings.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// UpdateConfig merges updates into the trading settings. The bankroll key is
// ignored. Values that cannot be coerced reject the whole update.
func (e *Engine) UpdateConfig(updates settings.Values) error {
	clean := settings.Sanitize(updates)

	e.mu.Lock()
	merged := settings.Merge(e.values, clean)
	params, err := settings.ParamsFrom(merged)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.values = merged
	e.params = params
	e.mu.Unlock()

	data, err := json.Marshal(clean)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", map[string]any(clean)))
	}
	e.log(LevelInfo, "Configuration updated: "+string(data))
	return nil
}

// ResetConfig replaces the trading settings wholesale, e.g. after a reset
// to defaults in the settings store
func (e *Engine) ResetConfig(values settings.Values) error {
	merged := settings.Merge(settings.Defaults(), values)
	params, err := settings.ParamsFrom(merged)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.values = merged
	e.params = params
	e.mu.Unlock()

	e.log(LevelInfo, "Configuration reset to defaults.")
	return nil
}

// Stats returns the dashboard summary
func (e *Engine) Stats() models.Stats {
	snap := e.snapshot()
	snap.Running = e.IsRunning()
	snap.Mode = e.Mode()
	return Aggregate(snap)
}

// Bankroll returns the current bankroll
func (e *Engine) Bankroll() float64 {
	e.state.RLock()
	defer e.state.RUnlock()
	return e.state.bankroll
}

// RecentTrades returns up to limit ledger entries, newest first
func (e *Engine) RecentTrades(limit int) []models.Trade {
	if limit <= 0 {
		limit = 20
	}

	e.state.RLock()
	ledger := e.state.ledger
	start := max(len(ledger)-limit, 0)
	out := make([]models.Trade, len(ledger)-start)
	copy(out, ledger[start:])
	e.state.RUnlock()

	slices.Reverse(out)
	return out
}

// NextLog waits up to timeout for the next log line
func (e *Engine) NextLog(timeout time.Duration) (string, bool) {
	return e.pub.NextLog(timeout)
}

// NextOpportunity waits up to timeout for the next opportunity
func (e *Engine) NextOpportunity(timeout time.Duration) (models.Opportunity, bool) {
	return e.pub.NextOpportunity(timeout)
}

// NextTrade waits up to timeout for the next trade
func (e *Engine) NextTrade(timeout time.Duration) (models.Trade, bool) {
	return e.pub.NextTrade(timeout)
}

// NextLogContext waits for the next log line until ctx is done
func (e *Engine) NextLogContext(ctx context.Context) (string, bool) {
	return e.pub.NextLogContext(ctx)
}

// NextOpportunityContext waits for the next opportunity until ctx is done
func (e *Engine) NextOpportunityContext(ctx context.Context) (models.Opportunity, bool) {
	return e.pub.NextOpportunityContext(ctx)
}

// NextTradeContext waits for the next trade until ctx is done
func (e *Engine) NextTradeContext(ctx context.Context) (models.Trade, bool) {
	return e.pub.NextTradeContext(ctx)
}

// CheckConnection probes the venue and logs the outcome
func (e *Engine) CheckConnection(ctx context.Context) models.ConnectionStatus {
	if e.venue == nil {
		return models.ConnectionStatus{Connected: false, Error: ErrNoVenue.Error()}
	}

	status := e.venue.CheckConnection(ctx)
	if status.Connected {
		msg := fmt.Sprintf("Uplink to %s successful.", e.venue.Name())
		if status.Balance != nil {
			msg = fmt.Sprintf("Uplink to %s successful. Balance: $%.2f", e.venue.Name(), *status.Balance)
		}
		e.log(LevelInfo, msg)
	} else {
		e.log(LevelWarning, fmt.Sprintf("Uplink to %s failed: %s", e.venue.Name(), status.Error))
	}
	return status
}

// PlaceOrder submits an order to the venue
func (e *Engine) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	if e.venue == nil {
		return nil, ErrNoVenue
	}

	order, err := e.venue.PlaceOrder(ctx, req)
	if err != nil {
		e.metrics.IncOrder(e.venue.Name(), "failed")
		return nil, fmt.Errorf("failed to place order on %s: %w", e.venue.Name(), err)
	}

	status := order.Status
	if status == "" {
		status = "placed"
	}
	e.metrics.IncOrder(e.venue.Name(), status)
	return order, nil
}

// log publishes a formatted line and mirrors it to zerolog
func (e *Engine) log(level, msg string) {
	e.pub.Log(level, msg)

	var ev *zerolog.Event
	switch level {
	case LevelDebug:
		ev = e.logger.Debug()
	case LevelWarning:
		ev = e.logger.Warn()
	case LevelError:
		ev = e.logger.Error()
	default:
		ev = e.logger.Info()
	}
	ev.Msg(msg)
}

func (e *Engine) newRand() *rand.Rand {
	seed := e.opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// snapshot copies the account state
func (e *Engine) snapshot() Snapshot {
	e.state.RLock()
	defer e.state.RUnlock()
	return Snapshot{
		Bankroll:        e.state.bankroll,
		InitialBankroll: e.state.initialBankroll,
		TotalPnL:        e.state.totalPnL,
		Wins:            e.state.wins,
		Losses:          e.state.losses,
		Ledger:          slices.Clone(e.state.ledger),
	}
}

// run is the worker loop
func (e *Engine) run(ctx context.Context, mode string, rng *rand.Rand, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}
		if mode == ModeLive {
			e.cycle(ctx, mode, e.liveCycle)
			if !sleep(ctx, e.opts.ScanInterval) {
				return
			}
			continue
		}

		if !sleep(ctx, e.opts.SimulationInterval) {
			return
		}
		e.cycle(ctx, mode, func(ctx context.Context) { e.simulationCycle(ctx, rng) })
	}
}

// cycle runs one iteration and contains any panic to the iteration
func (e *Engine) cycle(ctx context.Context, mode string, fn func(ctx context.Context)) {
	start := e.now()
	defer func() {
		if r := recover(); r != nil {
			e.metrics.IncCycleError("panic")
			e.log(LevelWarning, fmt.Sprintf("Cycle failed: %v", r))
		}
		e.metrics.ObserveCycle(mode, e.now().Sub(start))
		e.metrics.SetQueueDepths(e.pub.Depths())
	}()

	fn(ctx)
}

// publishOpportunity enqueues and mirrors an opportunity
func (e *Engine) publishOpportunity(ctx context.Context, mode string, opp models.Opportunity) {
	e.pub.Opportunity(opp)
	e.metrics.IncOpportunity(mode, opp.Actionable)

	if e.mirror != nil {
		if err := e.mirror.PublishOpportunity(ctx, mode, opp); err != nil {
			e.logger.Warn().Err(err).Msg("failed to mirror opportunity")
		}
	}
}

// publishTrade enqueues and mirrors a trade
func (e *Engine) publishTrade(ctx context.Context, mode string, trade models.Trade) {
	e.pub.Trade(trade)
	e.metrics.IncTrade(mode, string(trade.Result))

	if e.mirror != nil {
		if err := e.mirror.PublishTrade(ctx, mode, trade); err != nil {
			e.logger.Warn().Err(err).Msg("failed to mirror trade")
		}
	}
}

// sleep waits d or until ctx is done. It reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
