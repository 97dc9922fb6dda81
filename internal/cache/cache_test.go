package cache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riskmesh/riskmesh/internal/cache"
)

func TestStatsHitRateWithNoLookups(t *testing.T) {
	require.Equal(t, 0.0, cache.Stats{}.HitRate())
}

func TestStatsHitRateComputesRatio(t *testing.T) {
	s := cache.Stats{Hits: 3, Misses: 1}
	require.InDelta(t, 0.75, s.HitRate(), 1e-9)
}

func TestStatsHitRateAllMisses(t *testing.T) {
	s := cache.Stats{Hits: 0, Misses: 5}
	require.Equal(t, 0.0, s.HitRate())
}
