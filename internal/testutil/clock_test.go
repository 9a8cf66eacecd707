package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	for want := int64(1); want <= 3; want++ {
		assert.Equal(t, want, clock.Next())
	}
	assert.Equal(t, int64(3), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_NowStepsFromEpoch(t *testing.T) {
	clock := NewDeterministicClock()

	assert.Equal(t, Epoch.Add(time.Millisecond), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Millisecond), clock.Now())
	assert.Equal(t, int64(2), clock.Current())
}

func TestDeterministicClock_NowSharesCounterWithNext(t *testing.T) {
	clock := NewDeterministicClock()

	clock.Next()
	assert.Equal(t, Epoch.Add(2*time.Millisecond), clock.Now())
	assert.Equal(t, int64(3), clock.Next())
}

func TestDeterministicClock_SetTick(t *testing.T) {
	clock := NewDeterministicClock()
	clock.SetTick(time.Second)
	clock.SetTick(0)

	assert.Equal(t, Epoch.Add(time.Second), clock.Now())

	clock.Reset()
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
}

func TestDeterministicClock_SameSequenceEveryRun(t *testing.T) {
	a := NewDeterministicClock()
	b := NewDeterministicClock()

	for i := 0; i < 50; i++ {
		require.Equal(t, a.Now(), b.Now())
	}
}

func TestDeterministicClock_ConcurrentNowIsUnique(t *testing.T) {
	clock := NewDeterministicClock()
	const goroutines, calls = 20, 50

	var (
		mu   sync.Mutex
		seen = make(map[time.Time]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				ts := clock.Now()
				mu.Lock()
				seen[ts] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*calls)
	assert.True(t, seen[Epoch.Add(goroutines*calls*time.Millisecond)])
}
