package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"handswers-backend/application/ports"
	"handswers-backend/domain/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.GetEventType())
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordBusinessMetric(context.Context, string, float64, map[string]string) {}
func (nopMetrics) RecordLatency(context.Context, string, time.Duration)                     {}

type mockTutor struct{ mock.Mock }

func (m *mockTutor) Reply(ctx context.Context, turns []ports.ChatTurn) (string, error) {
	args := m.Called(ctx, turns)
	return args.String(0), args.Error(1)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) IssuePair(s ports.Session) (ports.TokenPair, ports.Session, error) {
	args := m.Called(s)
	return args.Get(0).(ports.TokenPair), args.Get(1).(ports.Session), args.Error(2)
}

func (m *mockTokens) IssueAccess(s ports.Session) (string, ports.Session, error) {
	args := m.Called(s)
	return args.String(0), args.Get(1).(ports.Session), args.Error(2)
}

func (m *mockTokens) VerifyRefresh(token string) (ports.Session, error) {
	args := m.Called(token)
	return args.Get(0).(ports.Session), args.Error(1)
}

type stubIdentity struct {
	id  ports.Identity
	err error
}

func (s stubIdentity) Exchange(context.Context, string) (ports.Identity, error) { return s.id, s.err }

// clock hands out strictly increasing instants.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.UnixMilli(1_700_000_000_000)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(10 * time.Millisecond)
	return c.t
}
