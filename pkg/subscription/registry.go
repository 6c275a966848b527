package subscription

import (
	"sync"

	"github.com/google/uuid"
)

// SubjectConnection is the reserved lifecycle subject. It is notified
// after a successful connect and after a detected connection loss; the
// value is always nil, observers query the client for the new state.
const SubjectConnection = "#connection"

// Callback receives the new value for a notified subject.
type Callback func(value any)

// Subscription is one registered observer. It is returned by Subscribe
// and identifies the registration for Unsubscribe.
type Subscription struct {
	// ID uniquely identifies this registration.
	ID string

	// Subject is the subscribed subject.
	Subject string

	callback Callback
}

// Registry maps subjects to ordered observer lists.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	subjects map[string][]*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subjects: make(map[string][]*Subscription),
	}
}

// Subscribe registers a callback for a subject. The same callback may be
// registered for any number of subjects. Notification order within a
// subject is insertion order.
func (r *Registry) Subscribe(subject string, fn Callback) *Subscription {
	sub := &Subscription{
		ID:       uuid.NewString(),
		Subject:  subject,
		callback: fn,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects[subject] = append(r.subjects[subject], sub)
	return sub
}

// Unsubscribe removes a registration. Returns false if it was not
// (or no longer) registered.
func (r *Registry) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.subjects[sub.Subject]
	for i, s := range subs {
		if s.ID == sub.ID {
			r.subjects[sub.Subject] = append(subs[:i:i], subs[i+1:]...)
			if len(r.subjects[sub.Subject]) == 0 {
				delete(r.subjects, sub.Subject)
			}
			return true
		}
	}
	return false
}

// Notify invokes every callback registered for subject, in insertion
// order, on the calling goroutine. Callbacks run outside the registry
// lock so they may subscribe or unsubscribe; such changes take effect
// for the next notification.
func (r *Registry) Notify(subject string, value any) {
	r.mu.RLock()
	subs := make([]*Subscription, len(r.subjects[subject]))
	copy(subs, r.subjects[subject])
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.callback(value)
	}
}

// Count returns the number of registrations for a subject.
func (r *Registry) Count(subject string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subjects[subject])
}
