package push

import "sync"

// Registry is the live mapping from an authenticated user to their open
// push connection. One entry per user: a user connecting twice replaces
// the earlier entry, newest wins.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]*Client),
	}
}

// Register inserts or replaces the entry for the client's user and returns
// the replaced client, if any. Closing the replaced connection is the
// caller's job.
func (r *Registry) Register(c *Client) *Client {
	r.mu.Lock()
	prev := r.clients[c.userID]
	r.clients[c.userID] = c
	r.mu.Unlock()
	return prev
}

// Unregister removes the entry for the client's user, but only while it
// still points at c. A stale connection tearing itself down after being
// replaced must not evict its replacement.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	if r.clients[c.userID] == c {
		delete(r.clients, c.userID)
	}
	r.mu.Unlock()
}

// Get returns the registered client for a user, or nil.
func (r *Registry) Get(userID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[userID]
}

// Clients returns a point-in-time copy of all registered clients, so a
// caller can fan out without holding the lock across sends.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
