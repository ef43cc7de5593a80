// Command backtest replays recent ESPN results through the edge model and
// prints a summary table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solvys/predictipulse/internal/backtest"
	"github.com/solvys/predictipulse/internal/config"
	"github.com/solvys/predictipulse/internal/feeds/espn"
	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/internal/tracker"
)

func main() {
	configPath := flag.String("config", os.Getenv("PREDICTIPULSE_CONFIG"), "optional config file")
	sports := flag.String("sports", "nba,nfl,nhl", "comma-separated sports")
	start := flag.String("start", "", "start date YYYY-MM-DD (default: 7 days ago)")
	end := flag.String("end", "", "end date YYYY-MM-DD (default: today)")
	stake := flag.Float64("stake", backtest.DefaultStake, "flat stake per trade")
	edge := flag.Float64("edge", backtest.DefaultEdgeThreshold, "minimum edge as a fraction")
	balance := flag.Float64("balance", backtest.DefaultStartingBalance, "starting balance")
	seed := flag.Uint64("seed", 0, "random seed, 0 for a random run")
	showTrades := flag.Bool("trades", false, "print every simulated trade")
	save := flag.Bool("save", false, "store the summary in the performance database")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Str("service", "predictipulse-backtest").Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	req := backtest.WithDefaults(models.BacktestRequest{
		Sports:          splitSports(*sports),
		StartDate:       *start,
		EndDate:         *end,
		Stake:           *stake,
		EdgeThreshold:   *edge,
		StartingBalance: *balance,
	}, nil, time.Now())

	results := espn.NewClient(cfg.Odds.ESPNBaseURL, cfg.Odds.Timeout, logger)
	result, err := backtest.New(results, *seed, logger).Run(ctx, req)
	if err != nil {
		logger.Fatal().Err(err).Msg("backtest failed")
	}

	fmt.Printf("Backtest %s: %s to %s\n\n", strings.Join(req.Sports, ", "), req.StartDate, req.EndDate)
	if err := renderSummary(os.Stdout, result.Summary); err != nil {
		logger.Fatal().Err(err).Msg("failed to render summary")
	}
	if *showTrades {
		fmt.Println()
		if err := renderTrades(os.Stdout, result.Trades); err != nil {
			logger.Fatal().Err(err).Msg("failed to render trades")
		}
	}

	if *save {
		perf, err := tracker.New(cfg.Storage.DSN, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open performance tracker")
		}
		defer perf.Close()

		rec, err := perf.StoreBacktest(ctx, models.BacktestRecord{
			Sports:    req.Sports,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Summary:   result.Summary,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to store backtest")
		}
		logger.Info().Str("id", rec.ID).Msg("backtest stored")
	}
}

func splitSports(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

func renderSummary(w io.Writer, s models.BacktestSummary) error {
	table := tablewriter.NewWriter(w)
	table.Header("Trades", "Wins", "Losses", "Win %", "P&L", "ROI %", "Sharpe", "Max DD", "Ending")
	if err := table.Append(
		fmt.Sprintf("%d", s.Trades),
		fmt.Sprintf("%d", s.Wins),
		fmt.Sprintf("%d", s.Losses),
		fmt.Sprintf("%.2f", s.WinRate),
		fmt.Sprintf("$%+.2f", s.PnL),
		fmt.Sprintf("%.2f", s.ROI),
		fmt.Sprintf("%.3f", s.Sharpe),
		fmt.Sprintf("$%.2f", s.MaxDrawdown),
		fmt.Sprintf("$%.2f", s.EndingBalance),
	); err != nil {
		return err
	}
	return table.Render()
}

func renderTrades(w io.Writer, trades []models.BacktestTrade) error {
	table := tablewriter.NewWriter(w)
	table.Header("Sport", "Matchup", "Pick", "True", "Market", "Edge", "Result", "P&L")
	for _, tr := range trades {
		if err := table.Append(
			strings.ToUpper(tr.Sport),
			tr.Matchup,
			tr.Team,
			fmt.Sprintf("%.3f", tr.TrueProb),
			fmt.Sprintf("%.3f", tr.MarketProb),
			fmt.Sprintf("%.2f", tr.Edge),
			string(tr.Result),
			fmt.Sprintf("$%+.2f", tr.PnL),
		); err != nil {
			return err
		}
	}
	return table.Render()
}
