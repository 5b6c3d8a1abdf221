package relay

import (
	"sync"
)

// Registry maps user ids to their live connection ids. A user appears in
// the map iff it has at least one registered connection; removing the last
// connection removes the entry. All operations are total.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]struct{} // user -> conn_id set
	byConn map[string]string              // conn_id -> user
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]struct{}),
		byConn: make(map[string]string),
	}
}

// Register adds connID to userID's set. Idempotent. Reports whether the
// user transitioned offline -> online (first connection registered).
func (r *Registry) Register(userID, connID string) (newlyOnline bool) {
	if userID == "" || connID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.byUser[userID]
	if m == nil {
		m = make(map[string]struct{})
		r.byUser[userID] = m
		newlyOnline = true
	}
	m[connID] = struct{}{}
	r.byConn[connID] = userID
	return newlyOnline
}

// Unregister removes connID from whichever user owns it. Unknown conn ids
// are a no-op. Reports whether the owning user went fully offline.
func (r *Registry) Unregister(connID string) (wasLast bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return false
	}
	delete(r.byConn, connID)

	if m := r.byUser[userID]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.byUser, userID)
			return true
		}
	}
	return false
}

// IsOnline reports whether userID has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUserIDs snapshots the current online set. Order is unspecified.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	return out
}
