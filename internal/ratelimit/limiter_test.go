package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zksl-labs/anchor-core/internal/ratelimit"
)

func TestAllowWithinBudget(t *testing.T) {
	l := ratelimit.New(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("client-a", now), "request %d should be allowed", i)
	}
}

func TestAllowRejectsOverBudget(t *testing.T) {
	l := ratelimit.New(2, time.Minute)
	now := time.Now()

	require.True(t, l.Allow("client-a", now))
	require.True(t, l.Allow("client-a", now))
	require.False(t, l.Allow("client-a", now))
}

func TestAllowRefillsAfterWindow(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	now := time.Now()

	require.True(t, l.Allow("client-a", now))
	require.False(t, l.Allow("client-a", now))
	require.True(t, l.Allow("client-a", now.Add(time.Minute)))
}

func TestAllowIsolatesClients(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	now := time.Now()

	require.True(t, l.Allow("client-a", now))
	require.True(t, l.Allow("client-b", now))
	require.False(t, l.Allow("client-a", now))
}
