// Package backtest replays settled games against a simulated model and
// scores fixed-stake bets on the edges it finds.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/pkg/kelly"
)

var (
	// ErrInvalidRange is returned for unparseable dates or end before start
	ErrInvalidRange = errors.New("invalid date range")
	// ErrNoSports is returned when a request names no sports
	ErrNoSports = errors.New("no sports requested")
)

// Request defaults
const (
	DefaultStake           = 10.0
	DefaultEdgeThreshold   = 0.05
	DefaultStartingBalance = 1000.0
	DefaultLookbackDays    = 7
)

// ResultLookup maps "Away at Home" matchups to the winning team for a sport
// over an inclusive day range
type ResultLookup interface {
	WinnerLookup(ctx context.Context, sport string, start, end time.Time) (map[string]string, error)
}

// Engine runs backtests
type Engine struct {
	results ResultLookup
	seed    uint64
	now     func() time.Time
	logger  zerolog.Logger
}

// New creates a backtest engine. A zero seed draws a fresh one per run.
func New(results ResultLookup, seed uint64, logger zerolog.Logger) *Engine {
	return &Engine{
		results: results,
		seed:    seed,
		now:     time.Now,
		logger:  logger.With().Str("component", "backtest").Logger(),
	}
}

// WithDefaults fills unset request fields. Dates default to the last week.
func WithDefaults(req models.BacktestRequest, sports []string, now time.Time) models.BacktestRequest {
	if len(req.Sports) == 0 {
		req.Sports = slices.Clone(sports)
	}
	if req.EndDate == "" {
		req.EndDate = now.UTC().Format(time.DateOnly)
	}
	if req.StartDate == "" {
		req.StartDate = now.UTC().AddDate(0, 0, -DefaultLookbackDays).Format(time.DateOnly)
	}
	if req.Stake <= 0 {
		req.Stake = DefaultStake
	}
	if req.EdgeThreshold <= 0 {
		req.EdgeThreshold = DefaultEdgeThreshold
	}
	if req.StartingBalance <= 0 {
		req.StartingBalance = DefaultStartingBalance
	}
	return req
}

// ParseRange parses YYYY-MM-DD start and end dates
func ParseRange(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start date %q", ErrInvalidRange, start)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date %q", ErrInvalidRange, end)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date must be >= start date", ErrInvalidRange)
	}
	return s, e, nil
}

func (e *Engine) newRand() *rand.Rand {
	seed := e.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Run executes a backtest. Request fields must already be defaulted.
func (e *Engine) Run(ctx context.Context, req models.BacktestRequest) (*models.BacktestResult, error) {
	if len(req.Sports) == 0 {
		return nil, ErrNoSports
	}
	start, end, err := ParseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	rng := e.newRand()
	trades := make([]models.BacktestTrade, 0)

	for _, sport := range req.Sports {
		winners, err := e.results.WinnerLookup(ctx, strings.ToLower(sport), start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to load results for %s: %w", sport, err)
		}

		// map order is random; sort so a seed reproduces a run
		matchups := make([]string, 0, len(winners))
		for m := range winners {
			matchups = append(matchups, m)
		}
		slices.Sort(matchups)

		for _, matchup := range matchups {
			trade, ok := e.score(rng, sport, matchup, winners[matchup], req)
			if ok {
				trades = append(trades, trade)
			}
		}
	}

	summary := Summarize(trades, req.StartingBalance)

	e.logger.Info().
		Strs("sports", req.Sports).
		Str("start", req.StartDate).
		Str("end", req.EndDate).
		Int("trades", summary.Trades).
		Float64("pnl", summary.PnL).
		Msg("backtest complete")

	return &models.BacktestResult{Summary: summary, Trades: trades}, nil
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// score draws model and market probabilities for the home side, picks the
// side with the edge and settles it against the known winner
func (e *Engine) score(rng *rand.Rand, sport, matchup, winner string, req models.BacktestRequest) (models.BacktestTrade, bool) {
	away, home, found := strings.Cut(matchup, " at ")
	if !found {
		return models.BacktestTrade{}, false
	}

	trueHome := uniform(rng, 0.45, 0.65)
	marketHome := math.Max(0.35, math.Min(0.65, trueHome-uniform(rng, 0.02, 0.08)))

	team, trueProb, marketProb := home, trueHome, marketHome
	if trueHome-marketHome < req.EdgeThreshold {
		team, trueProb, marketProb = away, 1-trueHome, 1-marketHome
	}
	edge := trueProb - marketProb
	if edge < req.EdgeThreshold {
		return models.BacktestTrade{}, false
	}

	win := team == winner
	result := models.ResultLoss
	if win {
		result = models.ResultWin
	}

	return models.BacktestTrade{
		ID:         fmt.Sprintf("bt-%s-%s", strings.ToLower(sport), uuid.NewString()),
		Sport:      sport,
		Matchup:    matchup,
		Team:       team,
		Stake:      kelly.RoundCents(req.Stake),
		TrueProb:   kelly.Round(trueProb, 3),
		MarketProb: kelly.Round(marketProb, 3),
		Edge:       kelly.Round(edge*100, 2),
		Result:     result,
		PnL:        kelly.RoundCents(kelly.Payout(req.Stake, marketProb, win)),
		Timestamp:  e.now(),
	}, true
}

// Summarize computes the aggregate results. ROI and drawdown are measured
// against the starting balance; Sharpe is the mean over the population
// standard deviation of per-trade returns.
func Summarize(trades []models.BacktestTrade, startingBalance float64) models.BacktestSummary {
	s := models.BacktestSummary{Trades: len(trades)}

	var pnl float64
	returns := make([]float64, 0, len(trades))
	pnls := make([]float64, 0, len(trades))
	for _, t := range trades {
		pnl += t.PnL
		pnls = append(pnls, t.PnL)
		switch {
		case t.PnL > 0:
			s.Wins++
		case t.PnL < 0:
			s.Losses++
		}
		if t.Stake != 0 {
			returns = append(returns, t.PnL/t.Stake)
		}
	}

	if len(trades) > 0 {
		s.WinRate = kelly.Round(float64(s.Wins)/float64(len(trades))*100, 2)
	}
	if startingBalance > 0 {
		s.ROI = kelly.Round(pnl/startingBalance*100, 2)
	}
	if len(returns) > 0 {
		sd := stddev(returns)
		if sd == 0 {
			sd = 1
		}
		s.Sharpe = kelly.Round(mean(returns)/sd, 3)
	}
	s.PnL = kelly.RoundCents(pnl)
	s.MaxDrawdown = kelly.RoundCents(MaxDrawdown(pnls, startingBalance))
	s.EndingBalance = kelly.RoundCents(startingBalance + pnl)
	return s
}

// MaxDrawdown returns the largest peak-to-trough fall of the running
// balance as a non-positive number
func MaxDrawdown(pnls []float64, startingBalance float64) float64 {
	balance, peak, worst := startingBalance, startingBalance, 0.0
	for _, p := range pnls {
		balance += p
		peak = math.Max(peak, balance)
		worst = math.Min(worst, balance-peak)
	}
	return worst
}

func mean(vs []float64) float64 {
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func stddev(vs []float64) float64 {
	m := mean(vs)
	var sq float64
	for _, v := range vs {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(vs)))
}
