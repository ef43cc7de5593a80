// Package settings holds the user-editable trading configuration: a flat
// key/value mapping merged over defaults, with file and Redis backends.
package settings

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Recognized keys
const (
	KeyKellyMultiplier  = "kelly_multiplier"
	KeyTargetBuyEV      = "target_buy_ev"
	KeyTargetSellEV     = "target_sell_ev"
	KeyMaxPercentageBet = "max_percentage_bet"
	KeyMaxDollarBet     = "max_dollar_bet"
	KeyMinTrueProb      = "min_true_prob"
	KeyMaxTrueProb      = "max_true_prob"
	KeySports           = "sports"
	KeyTradingStart     = "trading_start"
	KeyTradingEnd       = "trading_end"
	KeyBoltOddsAPIKey   = "boltodds_api_key"

	// KeyBankroll is always derived from the venue or the simulation and is
	// stripped from every update.
	KeyBankroll = "bankroll"
)

// ErrInvalidValue is returned when a recognized key holds an unusable value
var ErrInvalidValue = errors.New("invalid settings value")

// Values is the raw settings mapping. Unknown keys are preserved.
type Values map[string]any

// Store persists Values
type Store interface {
	Load(ctx context.Context) (Values, error)
	Save(ctx context.Context, values Values) error
	Reset(ctx context.Context) (Values, error)
}

// Defaults returns a fresh copy of the default settings
func Defaults() Values {
	return Values{
		KeyKellyMultiplier:  0.5,
		KeyTargetBuyEV:      0.05,
		KeyTargetSellEV:     0.05,
		KeyMaxPercentageBet: 10.0,
		KeyMaxDollarBet:     50.0,
		KeyMinTrueProb:      0.15,
		KeyMaxTrueProb:      0.85,
		KeySports:           []string{"NBA", "NFL", "NHL"},
		KeyTradingStart:     0,
		KeyTradingEnd:       24,
		KeyBoltOddsAPIKey:   "",
	}
}

// Clone returns a shallow copy of v
func (v Values) Clone() Values {
	out := make(Values, len(v))
	maps.Copy(out, v)
	if s, ok := out[KeySports].([]string); ok {
		out[KeySports] = slices.Clone(s)
	}
	return out
}

// Merge returns base overlaid with updates. The bankroll key is dropped.
func Merge(base, updates Values) Values {
	out := base.Clone()
	for k, val := range updates {
		if k == KeyBankroll {
			continue
		}
		out[k] = val
	}
	delete(out, KeyBankroll)
	return out
}

// Sanitize removes keys that may never be set by callers
func Sanitize(updates Values) Values {
	out := make(Values, len(updates))
	for k, val := range updates {
		if k == KeyBankroll {
			continue
		}
		out[k] = val
	}
	return out
}

// Params is the typed view of Values the engine and scanner consume
type Params struct {
	KellyMultiplier  float64
	TargetBuyEV      float64
	TargetSellEV     float64
	MaxPercentageBet float64
	MaxDollarBet     float64
	MinTrueProb      float64
	MaxTrueProb      float64
	Sports           []string
	TradingStart     int
	TradingEnd       int
	BoltOddsAPIKey   string
}

// DefaultParams returns the typed defaults
func DefaultParams() Params {
	p, _ := ParamsFrom(Defaults())
	return p
}

// ParamsFrom coerces Values into Params. Missing keys fall back to defaults;
// values that cannot be coerced produce ErrInvalidValue.
func ParamsFrom(v Values) (Params, error) {
	merged := Merge(Defaults(), v)

	var errs []error
	num := func(key string) float64 {
		f, err := cast.ToFloat64E(merged[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err))
		}
		return f
	}
	hour := func(key string) int {
		h, err := cast.ToIntE(merged[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidValue, key, err))
		}
		return h
	}

	p := Params{
		KellyMultiplier:  num(KeyKellyMultiplier),
		TargetBuyEV:      num(KeyTargetBuyEV),
		TargetSellEV:     num(KeyTargetSellEV),
		MaxPercentageBet: num(KeyMaxPercentageBet),
		MaxDollarBet:     num(KeyMaxDollarBet),
		MinTrueProb:      num(KeyMinTrueProb),
		MaxTrueProb:      num(KeyMaxTrueProb),
		TradingStart:     hour(KeyTradingStart),
		TradingEnd:       hour(KeyTradingEnd),
		BoltOddsAPIKey:   cast.ToString(merged[KeyBoltOddsAPIKey]),
	}

	sports, err := cast.ToStringSliceE(merged[KeySports])
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidValue, KeySports, err))
	}
	for _, s := range sports {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			p.Sports = append(p.Sports, s)
		}
	}

	if len(errs) > 0 {
		return DefaultParams(), errors.Join(errs...)
	}
	return p, nil
}

// InTradingWindow reports whether the local hour of t falls in
// [TradingStart, TradingEnd). A window that wraps midnight is honored.
func (p Params) InTradingWindow(t time.Time) bool {
	start, end := p.TradingStart, p.TradingEnd
	if start <= 0 && end >= 24 {
		return true
	}
	h := t.Hour()
	if start <= end {
		return h >= start && h < end
	}
	return h >= start || h < end
}

// TracksSport reports whether sport is one of the configured sports.
// An empty sports list tracks everything.
func (p Params) TracksSport(sport string) bool {
	if len(p.Sports) == 0 {
		return true
	}
	return slices.Contains(p.Sports, strings.ToUpper(sport))
}
