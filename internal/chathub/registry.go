package chathub

import "sync"

// Registry maps live connections to user identities. At most one client is
// bound per user UUID; a reconnect atomically replaces the previous binding.
// Absence is never an error here: disconnects race with registry state by
// nature, and callers must not need external locking.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client // userUUID -> client
	owners  map[Client]string // зворотний пошук для O(1) відключення
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
		owners:  make(map[Client]string),
	}
}

// Register binds the client to the user UUID. If a binding already exists it
// is replaced and the displaced client is returned; closing the displaced
// connection is the caller's job, not the registry's.
func (r *Registry) Register(userUUID string, c Client) (displaced Client, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.clients[userUUID]; ok && old != c {
		delete(r.owners, old)
		displaced = old
		replaced = true
	}
	r.clients[userUUID] = c
	r.owners[c] = userUUID
	return displaced, replaced
}

// Unregister removes the binding owned by this client. It is a silent no-op
// when the client is not registered, or when the user's binding has already
// been replaced by a newer connection. It reports whether a user binding was
// actually removed, so the caller can tell a real disconnect from a stale one.
func (r *Registry) Unregister(c Client) (userUUID string, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userUUID, ok := r.owners[c]
	if !ok {
		return "", false
	}
	delete(r.owners, c)
	if current, ok := r.clients[userUUID]; ok && current == c {
		delete(r.clients, userUUID)
		return userUUID, true
	}
	return "", false
}

// Lookup returns the client bound to the user UUID, if any.
func (r *Registry) Lookup(userUUID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[userUUID]
	return c, ok
}

// Size returns the number of live bindings.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ForEach calls visitor for every live binding. The visitor runs under the
// registry's read lock, so it must not call back into the registry.
func (r *Registry) ForEach(visitor func(userUUID string, c Client)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for uuid, c := range r.clients {
		visitor(uuid, c)
	}
}
