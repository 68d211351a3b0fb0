package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	locks := newKeyedMutex()
	counters := map[string]int{"a": 0, "b": 0}
	var mu sync.Mutex // guards the map itself, not the counters

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, key := range []string{"a", "b"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := locks.Lock(key)
				defer unlock()

				mu.Lock()
				v := counters[key]
				mu.Unlock()

				mu.Lock()
				counters[key] = v + 1
				mu.Unlock()
			}(key)
		}
	}
	wg.Wait()

	assert.Equal(t, 50, counters["a"])
	assert.Equal(t, 50, counters["b"])
	assert.Equal(t, 0, locks.size(), "released entries are dropped")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	locks := newKeyedMutex()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()
	<-done

	assert.Equal(t, 1, locks.size())
	unlockA()
	assert.Equal(t, 0, locks.size())
}
