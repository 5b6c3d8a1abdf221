package relay

import (
	"sync"

	"chatwire/logger"
)

// Rooms is a pure index over connections: room id -> member clients, plus
// the reverse index used by LeaveAll. A room exists exactly as long as it
// has members; the last leave deletes it.
type Rooms struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]*Client  // room -> conn_id -> client
	byConn map[string]map[string]struct{} // conn_id -> room set

	fanout *Fanout // optional; nil means deliver inline
}

func NewRooms(fanout *Fanout) *Rooms {
	return &Rooms{
		byRoom: make(map[string]map[string]*Client),
		byConn: make(map[string]map[string]struct{}),
		fanout: fanout,
	}
}

// Join adds the client to the room. Idempotent; a connection may be in
// many rooms at once.
func (r *Rooms) Join(c *Client, roomID string) {
	if c == nil || roomID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.byRoom[roomID]
	if m == nil {
		m = make(map[string]*Client)
		r.byRoom[roomID] = m
	}
	m[c.ConnID] = c

	rs := r.byConn[c.ConnID]
	if rs == nil {
		rs = make(map[string]struct{})
		r.byConn[c.ConnID] = rs
	}
	rs[roomID] = struct{}{}
}

// Leave removes the connection from the room; no-op if absent.
func (r *Rooms) Leave(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, roomID)
}

// LeaveAll removes the connection from every room it belongs to.
func (r *Rooms) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID := range r.byConn[connID] {
		r.leaveLocked(connID, roomID)
	}
}

func (r *Rooms) leaveLocked(connID, roomID string) {
	if m := r.byRoom[roomID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byRoom, roomID)
		}
	}
	if rs := r.byConn[connID]; rs != nil {
		delete(rs, roomID)
		if len(rs) == 0 {
			delete(r.byConn, connID)
		}
	}
}

// Broadcast delivers event/payload to every member of the room except
// excludeConnID. Best-effort: slow or closed members are skipped.
func (r *Rooms) Broadcast(roomID, event string, payload any, excludeConnID string) {
	data, err := EncodeFrame(event, payload)
	if err != nil {
		logger.Errorf("[rooms] encode %q: %v", event, err)
		return
	}
	r.BroadcastRaw(roomID, data, excludeConnID)
}

// BroadcastRaw is Broadcast for a pre-encoded frame.
func (r *Rooms) BroadcastRaw(roomID string, frame []byte, excludeConnID string) {
	r.mu.RLock()
	m := r.byRoom[roomID]
	targets := make([]*Client, 0, len(m))
	for id, c := range m {
		if id == excludeConnID {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	if r.fanout != nil {
		r.fanout.Dispatch(targets, frame)
		return
	}
	for _, c := range targets {
		c.enqueue(frame)
	}
}

// Members snapshots the room's member connection ids.
func (r *Rooms) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byRoom[roomID]))
	for id := range r.byRoom[roomID] {
		out = append(out, id)
	}
	return out
}
