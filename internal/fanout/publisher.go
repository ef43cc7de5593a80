package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/solvys/predictipulse/internal/models"
)

// LogTimeFormat is the timestamp layout of published log lines
const LogTimeFormat = "2006-01-02 15:04:05"

// Publisher owns the three independent output queues. The engine is the
// only producer; any number of stream consumers may read.
type Publisher struct {
	logs          *Queue[string]
	opportunities *Queue[models.Opportunity]
	trades        *Queue[models.Trade]
	now           func() time.Time
}

// NewPublisher creates a publisher with empty queues
func NewPublisher() *Publisher {
	return &Publisher{
		logs:          NewQueue[string](),
		opportunities: NewQueue[models.Opportunity](),
		trades:        NewQueue[models.Trade](),
		now:           time.Now,
	}
}

// FormatLog renders a log line as "[YYYY-MM-DD HH:MM:SS] LEVEL - message"
func FormatLog(ts time.Time, level, msg string) string {
	return fmt.Sprintf("[%s] %s - %s", ts.Format(LogTimeFormat), level, msg)
}

// Log formats and enqueues a log line
func (p *Publisher) Log(level, msg string) string {
	line := FormatLog(p.now(), level, msg)
	p.logs.Push(line)
	return line
}

// Opportunity enqueues an opportunity
func (p *Publisher) Opportunity(opp models.Opportunity) {
	p.opportunities.Push(opp)
}

// Trade enqueues a trade
func (p *Publisher) Trade(trade models.Trade) {
	p.trades.Push(trade)
}

// NextLog waits up to timeout for the next log line
func (p *Publisher) NextLog(timeout time.Duration) (string, bool) {
	return p.logs.Next(timeout)
}

// NextOpportunity waits up to timeout for the next opportunity
func (p *Publisher) NextOpportunity(timeout time.Duration) (models.Opportunity, bool) {
	return p.opportunities.Next(timeout)
}

// NextTrade waits up to timeout for the next trade
func (p *Publisher) NextTrade(timeout time.Duration) (models.Trade, bool) {
	return p.trades.Next(timeout)
}

// NextLogContext waits for the next log line until ctx is done
func (p *Publisher) NextLogContext(ctx context.Context) (string, bool) {
	return p.logs.NextContext(ctx)
}

// NextOpportunityContext waits for the next opportunity until ctx is done
func (p *Publisher) NextOpportunityContext(ctx context.Context) (models.Opportunity, bool) {
	return p.opportunities.NextContext(ctx)
}

// NextTradeContext waits for the next trade until ctx is done
func (p *Publisher) NextTradeContext(ctx context.Context) (models.Trade, bool) {
	return p.trades.NextContext(ctx)
}

// Depths returns the current backlog of each queue
func (p *Publisher) Depths() (logs, opportunities, trades int) {
	return p.logs.Len(), p.opportunities.Len(), p.trades.Len()
}
