package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"handswers-backend/application/ports"
)

// Locker is the in-process counterpart of the DynamoDB lease locker.
type Locker struct {
	mu     sync.Mutex
	leases map[string]heldLease
	now    func() time.Time
}

type heldLease struct {
	id        string
	expiresAt time.Time
}

func NewLocker() *Locker {
	return &Locker{leases: make(map[string]heldLease), now: time.Now}
}

func (l *Locker) TryAcquire(_ context.Context, resource, _ string, ttl time.Duration) (ports.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if held, ok := l.leases[resource]; ok && held.expiresAt.After(now) {
		return nil, ports.ErrLockHeld
	}
	id := uuid.NewString()
	l.leases[resource] = heldLease{id: id, expiresAt: now.Add(ttl)}
	return &memLease{locker: l, resource: resource, id: id}, nil
}

type memLease struct {
	locker   *Locker
	resource string
	id       string
}

func (m *memLease) Release(context.Context) error {
	m.locker.mu.Lock()
	defer m.locker.mu.Unlock()
	if held, ok := m.locker.leases[m.resource]; ok && held.id == m.id {
		delete(m.locker.leases, m.resource)
	}
	return nil
}

var _ ports.Locker = (*Locker)(nil)
