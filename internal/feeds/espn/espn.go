// Package espn reads game results from the public ESPN scoreboards.
package espn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// DefaultBaseURL is the public scoreboard API root
const DefaultBaseURL = "https://site.web.api.espn.com/apis/v2/sports"

var (
	// ErrUnsupportedSport is returned for sports without a scoreboard path
	ErrUnsupportedSport = errors.New("unsupported sport for ESPN")
	// ErrInvalidRange is returned when end is before start
	ErrInvalidRange = errors.New("end date must be >= start date")
)

var sportPaths = map[string]string{
	"nba": "basketball/nba",
	"nfl": "football/nfl",
	"nhl": "hockey/nhl",
	"mlb": "baseball/mlb",
}

// TeamResult is one side of a game
type TeamResult struct {
	Team   string  `json:"team"`
	Score  float64 `json:"score"`
	Winner bool    `json:"winner"`
	Record string  `json:"record"`
}

// Game is a simplified scoreboard entry
type Game struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Date         string     `json:"date"`
	Home         TeamResult `json:"home"`
	Away         TeamResult `json:"away"`
	Completed    bool       `json:"completed"`
	Spread       string     `json:"spread,omitempty"`
	HomeFavorite bool       `json:"home_favorite"`
	SpreadPoints float64    `json:"spread_points"`
}

// Matchup returns the "Away at Home" key used across the system
func (g Game) Matchup() string {
	return fmt.Sprintf("%s at %s", g.Away.Team, g.Home.Team)
}

type scoreboard struct {
	Events []struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Date         string `json:"date"`
		Competitions []struct {
			Competitors []competitor `json:"competitors"`
			Status      struct {
				Type struct {
					Completed bool `json:"completed"`
				} `json:"type"`
			} `json:"status"`
			Odds []struct {
				Details      string `json:"details"`
				Spread       any    `json:"spread"`
				HomeTeamOdds struct {
					Favorite bool `json:"favorite"`
				} `json:"homeTeamOdds"`
			} `json:"odds"`
		} `json:"competitions"`
	} `json:"events"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Score    any    `json:"score"` // string on most feeds
	Winner   bool   `json:"winner"`
	Team     struct {
		DisplayName string `json:"displayName"`
	} `json:"team"`
	Records []struct {
		Summary string `json:"summary"`
	} `json:"records"`
}

// Client fetches scoreboards and caches them per sport and day
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu    sync.Mutex
	cache map[string]*scoreboard
}

// NewClient creates a scoreboard client
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "espn_client").Logger(),
		cache:      make(map[string]*scoreboard),
	}
}

func (c *Client) scoreboard(ctx context.Context, sport string, day time.Time) (*scoreboard, error) {
	path, ok := sportPaths[strings.ToLower(sport)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSport, sport)
	}

	date := day.Format("20060102")
	key := strings.ToLower(sport) + ":" + date

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	u := fmt.Sprintf("%s/%s/scoreboard?%s", c.baseURL, path, url.Values{"dates": {date}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("scoreboard returned status %d", resp.StatusCode)
	}

	var sb scoreboard
	if err := json.NewDecoder(resp.Body).Decode(&sb); err != nil {
		return nil, fmt.Errorf("failed to parse ESPN response: %w", err)
	}

	c.mu.Lock()
	c.cache[key] = &sb
	c.mu.Unlock()

	return &sb, nil
}

// Games returns the games of a sport on one day
func (c *Client) Games(ctx context.Context, sport string, day time.Time) ([]Game, error) {
	sb, err := c.scoreboard(ctx, sport, day)
	if err != nil {
		return nil, err
	}

	games := make([]Game, 0, len(sb.Events))
	for _, ev := range sb.Events {
		if len(ev.Competitions) == 0 {
			continue
		}
		comp := ev.Competitions[0]
		if len(comp.Competitors) < 2 {
			continue
		}

		home, away := comp.Competitors[0], comp.Competitors[1]
		for _, cp := range comp.Competitors {
			switch cp.HomeAway {
			case "home":
				home = cp
			case "away":
				away = cp
			}
		}

		g := Game{
			ID:        ev.ID,
			Name:      ev.Name,
			Date:      ev.Date,
			Home:      teamResult(home),
			Away:      teamResult(away),
			Completed: comp.Status.Type.Completed,
		}
		if len(comp.Odds) > 0 {
			g.Spread = comp.Odds[0].Details
			g.HomeFavorite = comp.Odds[0].HomeTeamOdds.Favorite
			g.SpreadPoints = cast.ToFloat64(comp.Odds[0].Spread)
		}
		games = append(games, g)
	}
	return games, nil
}

func teamResult(cp competitor) TeamResult {
	team := cp.Team.DisplayName
	if team == "" {
		team = "Unknown"
	}
	var record string
	if len(cp.Records) > 0 {
		record = cp.Records[0].Summary
	}
	return TeamResult{
		Team:   team,
		Score:  cast.ToFloat64(cp.Score),
		Winner: cp.Winner,
		Record: record,
	}
}

// ResultsRange returns the games of every day in [start, end]. A day that
// fails to load is logged and skipped.
func (c *Client) ResultsRange(ctx context.Context, sport string, start, end time.Time) ([]Game, error) {
	start, end = truncateDay(start), truncateDay(end)
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	if _, ok := sportPaths[strings.ToLower(sport)]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSport, sport)
	}

	var results []Game
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		games, err := c.Games(ctx, sport, day)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("sport", sport).
				Str("day", day.Format(time.DateOnly)).
				Msg("ESPN fetch failed")
			continue
		}
		results = append(results, games...)
	}
	return results, nil
}

// WinnerLookup maps "Away at Home" to the winning team for [start, end]
func (c *Client) WinnerLookup(ctx context.Context, sport string, start, end time.Time) (map[string]string, error) {
	games, err := c.ResultsRange(ctx, sport, start, end)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]string, len(games))
	for _, g := range games {
		winner := g.Away.Team
		if g.Home.Winner {
			winner = g.Home.Team
		}
		lookup[g.Matchup()] = winner
	}
	return lookup, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
