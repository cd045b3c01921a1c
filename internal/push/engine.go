// Package push delivers live timer snapshots to connected clients: a
// registry of authenticated websocket connections, pure snapshot builders,
// and the engine that fans snapshots out on timer events and on a
// per-connection tick.
package push

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"timetrack/internal/models"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// Must be shorter than pongWait or the read deadline fires between pings.
	pingPeriod = 54 * time.Second

	queryWait = 5 * time.Second
)

// TimerSource is the slice of the timer store the engine reads. Snapshots
// are always built from a fresh read, never from a cached copy.
type TimerSource interface {
	ListByOwner(ctx context.Context, ownerID string) ([]models.Timer, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]models.Timer, error)
}

type Engine struct {
	registry *Registry
	timers   TimerSource
	tick     time.Duration
}

func NewEngine(timers TimerSource, tick time.Duration) *Engine {
	if tick <= 0 {
		tick = time.Second
	}
	return &Engine{
		registry: NewRegistry(),
		timers:   timers,
		tick:     tick,
	}
}

func (e *Engine) ActiveConnections() int {
	return e.registry.Len()
}

// Connect takes ownership of an authenticated websocket: registers it
// (closing any connection it replaces), starts its pumps and immediately
// sends the new client an all_timers snapshot.
func (e *Engine) Connect(ctx context.Context, userID string, conn *websocket.Conn) {
	c := newClient(userID, conn)
	if prev := e.registry.Register(c); prev != nil {
		log.Printf("replacing push connection for user %s", userID)
		prev.close()
	}

	go e.readPump(c)
	go e.writePump(c)

	msg, err := e.allTimers(ctx, userID)
	if err != nil {
		log.Printf("initial snapshot for user %s: %v", userID, err)
		return
	}
	if !c.enqueue(msg) {
		e.drop(c)
	}
}

// TimerCreated fans an all_timers snapshot out to every registered
// connection, each recipient seeing only their own timers.
func (e *Engine) TimerCreated(ctx context.Context) {
	e.broadcast(ctx)
}

// TimerStopped fans out exactly like TimerCreated; the snapshots carry the
// new stopped state.
func (e *Engine) TimerStopped(ctx context.Context) {
	e.broadcast(ctx)
}

// CloseAll releases every connection; used on shutdown.
func (e *Engine) CloseAll() {
	for _, c := range e.registry.Clients() {
		e.drop(c)
		if c.conn != nil {
			c.conn.Close()
		}
	}
	log.Println("all push connections closed")
}

// broadcast delivers per-recipient snapshots to everyone currently
// registered. The target list is copied under the registry lock; the
// blocking work (store reads, enqueues) happens after it is released. A
// recipient that cannot be delivered to is dropped without disturbing the
// rest.
func (e *Engine) broadcast(ctx context.Context) {
	targets := e.registry.Clients()
	now := time.Now()

	for _, c := range targets {
		timers, err := e.listByOwner(ctx, c.userID)
		if err != nil {
			log.Printf("snapshot for user %s: %v", c.userID, err)
			continue
		}
		if !c.enqueue(BuildAll(c.userID, timers, now)) {
			e.drop(c)
		}
	}
}

// drop closes a connection that is no longer deliverable and removes its
// registry entry.
func (e *Engine) drop(c *Client) {
	c.close()
	e.registry.Unregister(c)
}

func (e *Engine) allTimers(ctx context.Context, userID string) (models.AllTimersMessage, error) {
	timers, err := e.listByOwner(ctx, userID)
	if err != nil {
		return models.AllTimersMessage{}, err
	}
	return BuildAll(userID, timers, time.Now()), nil
}

func (e *Engine) listByOwner(ctx context.Context, userID string) ([]models.Timer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryWait)
	defer cancel()
	return e.timers.ListByOwner(ctx, userID)
}

func (e *Engine) readPump(c *Client) {
	defer func() {
		e.drop(c)
		c.conn.Close()
		log.Printf("push connection closed: user %s", c.userID)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error for user %s: %v", c.userID, err)
			}
			return
		}
		// Clients only listen; inbound frames just keep the connection alive.
	}
}

// writePump is the single writer for one connection. It drains the send
// queue, emits the periodic active_timers snapshot and keeps the peer
// alive with pings. The tickers die with the pump, so a closed connection
// leaves no periodic work behind.
func (e *Engine) writePump(c *Client) {
	progress := time.NewTicker(e.tick)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		progress.Stop()
		ping.Stop()
		e.drop(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-progress.C:
			ctx, cancel := context.WithTimeout(context.Background(), queryWait)
			timers, err := e.timers.ListActiveByOwner(ctx, c.userID)
			cancel()
			if err != nil {
				log.Printf("active snapshot for user %s: %v", c.userID, err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(BuildActive(c.userID, timers, time.Now())); err != nil {
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
