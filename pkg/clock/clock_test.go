package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tokenward/pkg/clock"
	"github.com/stretchr/testify/require"
)

func TestRealClockIsUTC(t *testing.T) {
	now := clock.Real().Now()
	require.Equal(t, time.UTC, now.Location())
	require.WithinDuration(t, time.Now(), now, time.Second)
}

func TestFakeAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f := clock.NewFake(start)
	require.Equal(t, start, f.Now())

	f.Advance(90 * time.Second)
	require.Equal(t, start.Add(90*time.Second), f.Now())

	later := start.Add(24 * time.Hour)
	f.Set(later)
	require.Equal(t, later, f.Now())
}

func TestFakeConcurrentAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Advance(time.Second)
			_ = f.Now()
		}()
	}
	wg.Wait()

	require.Equal(t, start.Add(50*time.Second), f.Now())
}
