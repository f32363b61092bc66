package sessions

import (
	"sync"
	"testing"

	"github.com/bradfitz/iter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopChan struct{}

func (nopChan) Send(event string, data []byte) error { return nil }

func TestRegisterDistinctIds(t *testing.T) {
	var reg Registry
	a := reg.Register(nopChan{})
	b := reg.Register(nopChan{})
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 32)
	assert.Equal(t, 2, reg.Len())
	assert.ElementsMatch(t, []string{a, b}, reg.Ids())
}

func TestLookup(t *testing.T) {
	var reg Registry
	ch := nopChan{}
	id := reg.Register(ch)
	got, err := reg.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, ch, got)
	_, err = reg.Lookup("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnregister(t *testing.T) {
	var reg Registry
	a := reg.Register(nopChan{})
	b := reg.Register(nopChan{})
	reg.Unregister(a)
	_, err := reg.Lookup(a)
	assert.ErrorIs(t, err, ErrNotFound)
	// The other registration is untouched.
	_, err = reg.Lookup(b)
	assert.NoError(t, err)
	// Unregistering twice, or something never registered, is harmless.
	reg.Unregister(a)
	reg.Unregister("nope")
	assert.Equal(t, 1, reg.Len())
}

func TestLookupEmptyRegistry(t *testing.T) {
	var reg Registry
	_, err := reg.Lookup("")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Ids())
}

func TestConcurrentRegister(t *testing.T) {
	var reg Registry
	var wg sync.WaitGroup
	const n = 32
	ids := make(chan string, n)
	for range iter.N(n) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- reg.Register(nopChan{})
		}()
	}
	wg.Wait()
	close(ids)
	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, n, reg.Len())
}
