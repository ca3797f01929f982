package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("cart-1")
			counter++
			km.Unlock("cart-1")
		}()
	}
	wg.Wait()
	require.Equal(t, 100, counter)
}

func TestKeyedMutexDistinctKeysIndependent(t *testing.T) {
	km := NewKeyedMutex()
	km.Lock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done

	km.Unlock("a")
}
