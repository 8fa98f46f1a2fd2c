package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry()

	s := New("m1")
	assert.True(t, r.Add(s))
	assert.False(t, r.Add(s), "duplicate ids are rejected")

	got, ok := r.Get("m1")
	assert.True(t, ok)
	assert.Same(t, s, got)

	r.Remove("m1")
	_, ok = r.Get("m1")
	assert.False(t, ok)
	assert.Zero(t, r.Len())
}

func TestRegistryGetOrAdd(t *testing.T) {
	r := NewRegistry()

	first := New("m1")
	assert.Same(t, first, r.GetOrAdd(first))

	// A second candidate for the same id must resolve to the registered
	// session, never leak an unregistered one.
	second := New("m1")
	assert.Same(t, first, r.GetOrAdd(second))
	assert.Equal(t, 1, r.Len())

	r.Remove("m1")
	assert.Same(t, second, r.GetOrAdd(second))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("m%d", i)
			r.Add(New(id))
			r.Get(id)
			if i%2 == 0 {
				r.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.Len())
}
