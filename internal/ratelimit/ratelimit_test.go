package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riskmesh/riskmesh/internal/ratelimit"
)

func TestAllowConsumesFromBurstThenDenies(t *testing.T) {
	rl := ratelimit.New(ratelimit.Limits{
		DefaultCapacity: 2,
		DefaultWindow:   time.Minute,
		DenyUnknown:     false,
	})

	ok, _ := rl.Allow("u1")
	require.True(t, ok)
	ok, _ = rl.Allow("u1")
	require.True(t, ok)

	ok, retryAfter := rl.Allow("u1")
	require.False(t, ok)
	require.Greater(t, retryAfter, time.Duration(0))
}

func TestAllowDeniesUnknownPrincipalWhenConfigured(t *testing.T) {
	rl := ratelimit.New(ratelimit.Limits{
		DefaultCapacity: 10,
		DefaultWindow:   time.Minute,
		DenyUnknown:     true,
	})

	ok, retryAfter := rl.Allow("stranger")
	require.False(t, ok)
	require.Equal(t, time.Duration(0), retryAfter)
}

func TestAllowPerPrincipalOverrideIsKnownEvenWithDenyUnknown(t *testing.T) {
	rl := ratelimit.New(ratelimit.Limits{
		DefaultCapacity: 5,
		DefaultWindow:   time.Minute,
		DenyUnknown:     true,
		PerPrincipal: map[string]ratelimit.PrincipalLimit{
			"dashboard": {Capacity: 1, Window: time.Minute},
		},
	})

	ok, _ := rl.Allow("dashboard")
	require.True(t, ok)

	ok, _ = rl.Allow("dashboard")
	require.False(t, ok, "second request exceeds the per-principal capacity of 1")
}

func TestAllowDistinctPrincipalsHaveIndependentBuckets(t *testing.T) {
	rl := ratelimit.New(ratelimit.Limits{
		DefaultCapacity: 1,
		DefaultWindow:   time.Minute,
		DenyUnknown:     false,
	})

	ok1, _ := rl.Allow("a")
	ok2, _ := rl.Allow("b")
	require.True(t, ok1)
	require.True(t, ok2)
}
