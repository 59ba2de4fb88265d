package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/banyan-booking/internal/counselors"
	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// CounselorSource resolves the counselor being booked.
type CounselorSource interface {
	Get(ctx context.Context, id string) (*counselors.Counselor, error)
}

// Manager owns the open sessions.
type Manager struct {
	counselors CounselorSource
	deps       Dependencies
	idleTTL    time.Duration
	logger     *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session registry. A zero idleTTL disables sweeping.
func NewManager(source CounselorSource, deps Dependencies, idleTTL time.Duration) *Manager {
	if source == nil {
		panic("booking: counselor source required")
	}
	deps.normalize()
	return &Manager{
		counselors: source,
		deps:       deps,
		idleTTL:    idleTTL,
		logger:     deps.Logger,
		sessions:   make(map[string]*Session),
	}
}

// Open starts a session in profile for a counselor.
func (m *Manager) Open(ctx context.Context, counselorID, phone string) (*Session, error) {
	c, err := m.counselors.Get(ctx, counselorID)
	if err != nil {
		return nil, fmt.Errorf("booking: open session: %w", err)
	}
	s, err := NewSession(uuid.NewString(), *c, phone, m.deps)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.deps.Metrics.SessionOpened()
	s.logger.Info("booking session opened")
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close tears a session down and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	m.deps.Metrics.SessionClosed()
	return nil
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle since before cutoff and returns how many.
func (m *Manager) Sweep(cutoff time.Time) int {
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, id := range stale {
		if err := m.Close(id); err == nil {
			closed++
		}
	}
	if closed > 0 {
		m.logger.Info("swept idle booking sessions", "count", closed)
	}
	return closed
}

// Run sweeps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTTL <= 0 {
		<-ctx.Done()
		return
	}
	interval := m.idleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now.Add(-m.idleTTL))
		}
	}
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
		m.deps.Metrics.SessionClosed()
	}
}

// CompleteIntake finishes the intake step of an open session.
func (m *Manager) CompleteIntake(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.CompleteIntake(ctx)
}
