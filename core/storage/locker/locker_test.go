package locker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/solidstore/core/storage/locker"
	"github.com/stretchr/testify/require"
)

func TestExclusiveLocksSerialize(t *testing.T) {
	table := locker.New()
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := table.Lock("/s/a.ttl")
			defer unlock()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			time.Sleep(time.Millisecond)
		}(i)
	}
	wg.Wait()
	require.Len(t, order, 5)
}

func TestSharedLocksDoNotBlockEachOther(t *testing.T) {
	table := locker.New()
	unlock1 := table.RLock("/s/a.ttl")
	done := make(chan struct{})
	go func() {
		unlock2 := table.RLock("/s/a.ttl")
		defer unlock2()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second RLock blocked on first")
	}
	unlock1()
}

func TestEntryIsRemovedAfterLastRelease(t *testing.T) {
	table := locker.New()
	unlock := table.Lock("/s/a.ttl")
	unlock()
	unlock2 := table.Lock("/s/a.ttl")
	unlock2()
}
