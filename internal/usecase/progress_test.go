package usecase

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SweepLab/internal/domain/models"
	"SweepLab/pkg/logger"
)

func TestProgressCounterReportsAtStride(t *testing.T) {
	var seen []uint64
	p := NewProgressCounter(logger.Nop(), 2, func(s models.ProgressSnapshot) {
		seen = append(seen, s.Done)
	})
	p.Reset(5)
	for range 5 {
		p.Increment(0)
	}

	assert.Equal(t, []uint64{2, 4, 5}, seen)
	snap := p.Snapshot()
	assert.Equal(t, uint64(5), snap.Done)
	assert.InDelta(t, 100, snap.Percent, 1e-9)
}

func TestProgressCounterConcurrentIncrements(t *testing.T) {
	p := NewProgressCounter(nil, 0, nil)
	p.Reset(4000)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				p.Increment(w)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(4000), p.Snapshot().Done)
}

func TestProgressCounterReportsNeverGoBackwards(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []uint64
	)
	p := NewProgressCounter(logger.Nop(), 1, func(s models.ProgressSnapshot) {
		mu.Lock()
		seen = append(seen, s.Done)
		mu.Unlock()
	})
	p.Reset(4000)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				p.Increment(w)
			}
		}()
	}
	wg.Wait()

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		require.Greater(t, seen[i], seen[i-1], "report %d after %d", seen[i], seen[i-1])
	}
	assert.Equal(t, uint64(4000), seen[len(seen)-1])

	// a new sweep reports from the start again
	seen = nil
	p.Reset(2)
	p.Increment(0)
	assert.Equal(t, []uint64{1}, seen)
}
