// Package tracker stores trades and backtest runs in SQLite and reports
// rolling performance from them.
package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/solvys/predictipulse/internal/models"
	"github.com/solvys/predictipulse/pkg/kelly"
)

// ErrInvalidSource is returned for a trade source other than paper or actual
var ErrInvalidSource = errors.New("invalid trade source")

const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id      TEXT PRIMARY KEY,
    source  TEXT    NOT NULL,
    ts      INTEGER NOT NULL,
    pnl     REAL    NOT NULL DEFAULT 0,
    stake   REAL    NOT NULL DEFAULT 0,
    edge    REAL    NOT NULL DEFAULT 0,
    result  TEXT,
    matchup TEXT,
    team    TEXT
);
CREATE INDEX IF NOT EXISTS idx_trades_ts_source ON trades(ts, source);

CREATE TABLE IF NOT EXISTS backtests (
    id         TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    sports     TEXT    NOT NULL,
    start_date TEXT    NOT NULL,
    end_date   TEXT    NOT NULL,
    summary    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtests_created ON backtests(created_at);
`

const upsertTrade = `
INSERT OR REPLACE INTO trades (id, source, ts, pnl, stake, edge, result, matchup, team)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Tracker is the SQLite performance store
type Tracker struct {
	db     *sql.DB
	now    func() time.Time
	loc    *time.Location // day buckets of the rolling metrics
	logger zerolog.Logger
}

// New opens (or creates) the database at dsn and applies the schema
func New(dsn string, logger zerolog.Logger) (*Tracker, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open tracker database %q: %w", dsn, err)
	}
	// single writer; also keeps :memory: on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply tracker schema: %w", err)
	}

	return &Tracker{
		db:     db,
		now:    time.Now,
		loc:    time.Local,
		logger: logger.With().Str("component", "tracker").Logger(),
	}, nil
}

// Close closes the database
func (t *Tracker) Close() error {
	return t.db.Close()
}

// Ping checks the database connection
func (t *Tracker) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (t *Tracker) insertTrade(ctx context.Context, ex execer, trade models.Trade, source models.TradeSource) error {
	ts := trade.Timestamp
	if ts.IsZero() {
		ts = t.now()
	}
	_, err := ex.ExecContext(ctx, upsertTrade,
		trade.ID, string(source), ts.UnixMilli(),
		trade.PnL, trade.Stake, trade.Edge,
		string(trade.Result), trade.Matchup, trade.Team,
	)
	return err
}

// LogTrade inserts or replaces a trade. Trades without an id are ignored.
func (t *Tracker) LogTrade(ctx context.Context, trade models.Trade, source models.TradeSource) error {
	if !source.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if trade.ID == "" {
		return nil
	}
	if err := t.insertTrade(ctx, t.db, trade, source); err != nil {
		return fmt.Errorf("failed to log trade %s: %w", trade.ID, err)
	}
	return nil
}

// BulkLog upserts trades in one transaction
func (t *Tracker) BulkLog(ctx context.Context, trades []models.Trade, source models.TradeSource) error {
	if !source.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if len(trades) == 0 {
		return nil
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, trade := range trades {
		if trade.ID == "" {
			continue
		}
		if err := t.insertTrade(ctx, tx, trade, source); err != nil {
			return fmt.Errorf("failed to log trade %s: %w", trade.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trades: %w", err)
	}

	t.logger.Debug().
		Int("count", len(trades)).
		Str("source", string(source)).
		Msg("bulk logged trades")
	return nil
}

func (t *Tracker) queryTrades(ctx context.Context, query string, args ...any) ([]models.TrackedTrade, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.TrackedTrade
	for rows.Next() {
		var (
			tr                    models.TrackedTrade
			source                string
			ts                    int64
			result, matchup, team sql.NullString
		)
		if err := rows.Scan(&tr.ID, &source, &ts, &tr.PnL, &tr.Stake, &tr.Edge, &result, &matchup, &team); err != nil {
			return nil, err
		}
		tr.Source = models.TradeSource(source)
		tr.Timestamp = time.UnixMilli(ts)
		tr.Result = models.TradeResult(result.String)
		tr.Matchup = matchup.String
		tr.Team = team.String
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

// RollingMetrics summarizes the trades of source over the trailing days
func (t *Tracker) RollingMetrics(ctx context.Context, days int, source models.TradeSource) (models.RollingMetrics, error) {
	if !source.Valid() {
		return models.RollingMetrics{}, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if days <= 0 {
		days = 7
	}

	now := t.now()
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	trades, err := t.queryTrades(ctx,
		`SELECT id, source, ts, pnl, stake, edge, result, matchup, team
		 FROM trades WHERE source = ? AND ts >= ? ORDER BY ts DESC`,
		string(source), cutoff.UnixMilli())
	if err != nil {
		return models.RollingMetrics{}, fmt.Errorf("failed to query trades: %w", err)
	}

	m := models.RollingMetrics{
		Source: source,
		Days:   days,
		Trades: len(trades),
		Daily:  t.dailyBuckets(now, days),
	}

	index := make(map[string]int, len(m.Daily))
	for i, d := range m.Daily {
		index[d.Date] = i
	}

	var pnl, stakes, edges float64
	for _, tr := range trades {
		pnl += tr.PnL
		stakes += tr.Stake
		edges += tr.Edge
		switch {
		case tr.PnL > 0:
			m.Wins++
		case tr.PnL < 0:
			m.Losses++
		}
		if i, ok := index[tr.Timestamp.In(t.loc).Format(time.DateOnly)]; ok {
			m.Daily[i].PnL += tr.PnL
			m.Daily[i].Trades++
		}
	}

	m.PnL = kelly.RoundCents(pnl)
	if m.Trades > 0 {
		m.WinRate = kelly.Round(float64(m.Wins)/float64(m.Trades)*100, 2)
		m.AvgEdge = kelly.Round(edges/float64(m.Trades), 3)
	}
	if stakes > 0 {
		m.ROI = kelly.Round(pnl/stakes*100, 2)
	}
	for i := range m.Daily {
		m.Daily[i].PnL = kelly.RoundCents(m.Daily[i].PnL)
	}
	return m, nil
}

// dailyBuckets returns one empty bucket per day, oldest first, ending today
func (t *Tracker) dailyBuckets(now time.Time, days int) []models.DailyPnL {
	buckets := make([]models.DailyPnL, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.In(t.loc).AddDate(0, 0, -i)
		buckets = append(buckets, models.DailyPnL{Date: day.Format(time.DateOnly)})
	}
	return buckets
}

// History returns the most recent trades of source, newest first
func (t *Tracker) History(ctx context.Context, limit int, source models.TradeSource) ([]models.TrackedTrade, error) {
	if !source.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if limit <= 0 {
		limit = 50
	}
	trades, err := t.queryTrades(ctx,
		`SELECT id, source, ts, pnl, stake, edge, result, matchup, team
		 FROM trades WHERE source = ? ORDER BY ts DESC LIMIT ?`,
		string(source), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	if trades == nil {
		trades = []models.TrackedTrade{}
	}
	return trades, nil
}

// StoreBacktest saves a backtest summary. A missing id or timestamp is filled in.
func (t *Tracker) StoreBacktest(ctx context.Context, rec models.BacktestRecord) (models.BacktestRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t.now()
	}

	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return rec, fmt.Errorf("failed to marshal backtest summary: %w", err)
	}

	_, err = t.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO backtests (id, created_at, sports, start_date, end_date, summary)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UnixMilli(), strings.Join(rec.Sports, ","),
		rec.StartDate, rec.EndDate, string(summary))
	if err != nil {
		return rec, fmt.Errorf("failed to store backtest: %w", err)
	}
	return rec, nil
}

// ListBacktests returns stored backtests, newest first. A summary that no
// longer decodes is returned empty.
func (t *Tracker) ListBacktests(ctx context.Context, limit int) ([]models.BacktestRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT id, created_at, sports, start_date, end_date, summary
		 FROM backtests ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtests: %w", err)
	}
	defer rows.Close()

	records := []models.BacktestRecord{}
	for rows.Next() {
		var (
			rec            models.BacktestRecord
			created        int64
			sports, digest string
		)
		if err := rows.Scan(&rec.ID, &created, &sports, &rec.StartDate, &rec.EndDate, &digest); err != nil {
			return nil, fmt.Errorf("failed to scan backtest: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(created)
		if sports != "" {
			rec.Sports = strings.Split(sports, ",")
		}
		if err := json.Unmarshal([]byte(digest), &rec.Summary); err != nil {
			t.logger.Warn().Err(err).Str("id", rec.ID).Msg("discarding unreadable backtest summary")
			rec.Summary = models.BacktestSummary{}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read backtests: %w", err)
	}
	return records, nil
}
