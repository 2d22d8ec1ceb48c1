// Package sessions tracks which live connections belong to which identity and
// provides best-effort fan-out delivery of outbound frames.
package sessions

import (
	"sync"

	"github.com/rs/zerolog/log"

	"personakit/core"
	"personakit/protocol"
)

// Conn is one live bidirectional channel belonging to exactly one identity.
// The registry owns a Conn from Register until Unregister or send failure.
type Conn interface {
	SendFrame(data []byte) error
	Close() error
}

// Registry maps identities to their live connection sets. All mutation goes
// through Register, Unregister and Deliver, which are safe to call
// concurrently from independent connection handlers.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.Identity]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.Identity]map[Conn]struct{})}
}

// Register adds the connection to the identity's set, creating the set if
// absent.
func (r *Registry) Register(id core.Identity, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[id]
	if !ok {
		set = make(map[Conn]struct{})
		r.conns[id] = set
	}
	set[c] = struct{}{}
	log.Debug().Int64("user_id", int64(id)).Int("connections", len(set)).Msg("connection registered")
}

// Unregister removes the connection. An identity whose set becomes empty is
// dropped entirely so churn cannot grow the map without bound.
func (r *Registry) Unregister(id core.Identity, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[id]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, id)
	}
}

// ActiveConnections reports the number of live connections for an identity.
func (r *Registry) ActiveConnections(id core.Identity) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[id])
}

// Deliver serializes the frame once and attempts to send it to every
// connection registered for the identity at this moment, in arbitrary order.
// A failing connection is unregistered and closed without aborting delivery
// to the rest. If the identity has no connections the frame is silently
// dropped; there is no buffering and no retry.
func (r *Registry) Deliver(id core.Identity, msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Err(err).Int64("user_id", int64(id)).Msg("dropping undeliverable frame")
		return
	}

	r.mu.RLock()
	targets := make([]Conn, 0, len(r.conns[id]))
	for c := range r.conns[id] {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if err := c.SendFrame(data); err != nil {
			log.Warn().Err(err).Int64("user_id", int64(id)).Msg("send failed, pruning connection")
			r.Unregister(id, c)
			_ = c.Close()
		}
	}
}
