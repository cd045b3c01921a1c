package push

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/internal/models"
)

// fakeSource serves canned timer lists per owner, standing in for the
// Postgres store.
type fakeSource struct {
	byOwner map[string][]models.Timer
}

func (f *fakeSource) ListByOwner(_ context.Context, ownerID string) ([]models.Timer, error) {
	return f.byOwner[ownerID], nil
}

func (f *fakeSource) ListActiveByOwner(_ context.Context, ownerID string) ([]models.Timer, error) {
	var active []models.Timer
	for _, t := range f.byOwner[ownerID] {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func receive(t *testing.T, c *Client) models.AllTimersMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		all, ok := msg.(models.AllTimersMessage)
		require.True(t, ok, "expected an all_timers message, got %T", msg)
		return all
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return models.AllTimersMessage{}
	}
}

func TestBroadcastPerRecipientIsolation(t *testing.T) {
	now := time.Now()
	source := &fakeSource{byOwner: map[string][]models.Timer{
		"alice": {activeTimer("a1", "alice", now)},
		"bob":   {activeTimer("b1", "bob", now), stoppedTimer("b2", "bob", now.Add(-time.Hour), time.Minute)},
	}}
	e := NewEngine(source, time.Second)

	alice := newClient("alice", nil)
	bob := newClient("bob", nil)
	e.registry.Register(alice)
	e.registry.Register(bob)

	e.TimerCreated(context.Background())

	aliceMsg := receive(t, alice)
	require.Len(t, aliceMsg.AllTimers, 1)
	assert.Equal(t, "a1", aliceMsg.AllTimers[0].ID)

	bobMsg := receive(t, bob)
	require.Len(t, bobMsg.AllTimers, 2)
	for _, view := range bobMsg.AllTimers {
		assert.Equal(t, "bob", view.OwnerID)
	}
}

func TestBroadcastSkipsDeadConnection(t *testing.T) {
	now := time.Now()
	source := &fakeSource{byOwner: map[string][]models.Timer{
		"alice": {activeTimer("a1", "alice", now)},
		"bob":   {activeTimer("b1", "bob", now)},
		"carol": {activeTimer("c1", "carol", now)},
	}}
	e := NewEngine(source, time.Second)

	alice := newClient("alice", nil)
	bob := newClient("bob", nil)
	carol := newClient("carol", nil)
	e.registry.Register(alice)
	e.registry.Register(bob)
	e.registry.Register(carol)

	// bob's connection is already gone when the fan-out fires.
	bob.close()

	e.TimerStopped(context.Background())

	assert.Equal(t, "a1", receive(t, alice).AllTimers[0].ID)
	assert.Equal(t, "c1", receive(t, carol).AllTimers[0].ID)

	// The dead entry was removed as a side effect; the rest survived.
	assert.Nil(t, e.registry.Get("bob"))
	assert.Equal(t, 2, e.registry.Len())
}

func TestBroadcastDropsSaturatedConnection(t *testing.T) {
	source := &fakeSource{byOwner: map[string][]models.Timer{
		"alice": {activeTimer("a1", "alice", time.Now())},
	}}
	e := NewEngine(source, time.Second)

	alice := newClient("alice", nil)
	e.registry.Register(alice)

	// No pump is draining; fill the buffer completely.
	for i := 0; i < sendBuffer; i++ {
		require.True(t, alice.enqueue(i))
	}

	e.TimerCreated(context.Background())

	assert.Nil(t, e.registry.Get("alice"))
	assert.False(t, alice.enqueue("after close"))
}

func TestEnqueueAfterClose(t *testing.T) {
	c := newClient("alice", nil)
	require.True(t, c.enqueue("first"))

	c.close()
	c.close() // idempotent

	assert.False(t, c.enqueue("second"))
}

func TestCloseAllEmptiesRegistry(t *testing.T) {
	source := &fakeSource{byOwner: map[string][]models.Timer{}}
	e := NewEngine(source, time.Second)

	e.registry.Register(newClient("alice", nil))
	e.registry.Register(newClient("bob", nil))
	require.Equal(t, 2, e.ActiveConnections())

	e.CloseAll()
	assert.Equal(t, 0, e.ActiveConnections())
}
