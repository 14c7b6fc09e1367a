// Package store keeps the client-side view of server entities: the signed-in
// user, the child profiles and the stories being read. Responses that arrive
// after a newer request for the same resource are discarded.
package store

import "sync"

// Ticket tags one request for a resource
type Ticket struct {
	Resource string
	Seq      uint64
}

// Tracker issues tickets and applies only the newest response per resource
type Tracker struct {
	mu     sync.Mutex
	next   uint64
	latest map[string]uint64
}

// Begin issues a ticket superseding every earlier ticket for resource
func (t *Tracker) Begin(resource string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest == nil {
		t.latest = make(map[string]uint64)
	}
	t.next++
	t.latest[resource] = t.next
	return Ticket{Resource: resource, Seq: t.next}
}

// Current reports whether ticket is still the newest for its resource
func (t *Tracker) Current(ticket Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[ticket.Resource] == ticket.Seq
}

// Commit runs apply only if ticket is still current. apply runs with the
// tracker locked so no newer ticket can be issued meanwhile.
func (t *Tracker) Commit(ticket Ticket, apply func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest[ticket.Resource] != ticket.Seq {
		return false
	}
	apply()
	return true
}

// Invalidate supersedes every outstanding ticket for resource
func (t *Tracker) Invalidate(resource string) {
	t.Begin(resource)
}
