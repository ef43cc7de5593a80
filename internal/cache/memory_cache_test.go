package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvys/predictipulse/internal/models"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &models.ModeledProbability{Sport: "nba", Selection: "Boston Celtics", Probability: 0.62}))

	got, err := c.Get(ctx, "NBA", "Boston Celtics")
	require.NoError(t, err)
	assert.Equal(t, 0.62, got.Probability)

	_, err = c.Get(ctx, "NBA", "Miami Heat")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute, zerolog.Nop())
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.SetBatch(ctx, []*models.ModeledProbability{
		{Sport: "NBA", Selection: "Boston Celtics", Probability: 0.6},
		{Sport: "NBA", Selection: "Los Angeles Lakers", Probability: 0.4},
		{Sport: "NFL", Selection: "Kansas City Chiefs", Probability: 0.7},
	}))

	probs, err := c.GetBySport(ctx, "nba")
	require.NoError(t, err)
	assert.Len(t, probs, 2)

	now = now.Add(2 * time.Minute)

	_, err = c.Get(ctx, "NBA", "Boston Celtics")
	assert.ErrorIs(t, err, ErrNotFound)

	probs, err = c.GetBySport(ctx, "NBA")
	require.NoError(t, err)
	assert.Empty(t, probs)
	assert.Len(t, c.entries, 1)
}

func TestMemoryCache_NoTTL(t *testing.T) {
	c := NewMemoryCache(0, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &models.ModeledProbability{Sport: "NHL", Selection: "Boston Bruins", Probability: 0.55}))
	c.now = func() time.Time { return time.Now().Add(24 * time.Hour) }

	_, err := c.Get(ctx, "NHL", "Boston Bruins")
	assert.NoError(t, err)
	assert.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Close())
	_, err = c.Get(ctx, "NHL", "Boston Bruins")
	assert.ErrorIs(t, err, ErrNotFound)
}
