package push

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	c := newClient("alice", nil)
	prev := r.Register(c)
	assert.Nil(t, prev)
	assert.Equal(t, c, r.Get("alice"))
	assert.Nil(t, r.Get("bob"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryNewestWins(t *testing.T) {
	r := NewRegistry()

	first := newClient("alice", nil)
	second := newClient("alice", nil)

	require.Nil(t, r.Register(first))
	prev := r.Register(second)

	assert.Equal(t, first, prev)
	assert.Equal(t, second, r.Get("alice"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()

	c := newClient("alice", nil)
	r.Register(c)
	r.Unregister(c)

	assert.Nil(t, r.Get("alice"))
	assert.Equal(t, 0, r.Len())

	// Unregistering an absent entry is a no-op.
	r.Unregister(c)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryStaleUnregisterKeepsReplacement(t *testing.T) {
	r := NewRegistry()

	stale := newClient("alice", nil)
	fresh := newClient("alice", nil)
	r.Register(stale)
	r.Register(fresh)

	// The replaced connection tears itself down late; the live entry stays.
	r.Unregister(stale)
	assert.Equal(t, fresh, r.Get("alice"))
}

func TestRegistryClientsIsSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Register(newClient("alice", nil))

	snapshot := r.Clients()
	r.Register(newClient("bob", nil))

	assert.Len(t, snapshot, 1)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()

	const users = 8
	const rounds = 200

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i)
			for j := 0; j < rounds; j++ {
				c := newClient(userID, nil)
				r.Register(c)
				r.Clients()
				r.Unregister(c)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 0, r.Len())

	// One final connection per user: exactly one entry each.
	for i := 0; i < users; i++ {
		r.Register(newClient(fmt.Sprintf("user-%d", i), nil))
	}
	assert.Equal(t, users, r.Len())
	for i := 0; i < users; i++ {
		assert.NotNil(t, r.Get(fmt.Sprintf("user-%d", i)))
	}
}
