// Package session tracks classifications awaiting human confirmation. A
// session accepts exactly one resolving event; concurrent attempts are
// serialized per session so only one winner can commit.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

// Session errors.
var (
	ErrNotFound        = errors.New("session not found")
	ErrAlreadyResolved = errors.New("session already resolved")
	ErrExpired         = errors.New("session expired")
)

// ExpenseDraft holds the not-yet-committed expense fields a session carries
// until the human confirms or rejects them.
type ExpenseDraft struct {
	Description string
	Category    string
	Currency    model.Currency
	Amount      decimal.Decimal
	Confidence  float64
}

// Session is one pending confirmation. All state transitions go through the
// owning Store; external packages only read.
type Session struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	ID        string
	Candidate model.ClassificationCandidate
	Draft     ExpenseDraft

	mu    sync.Mutex
	state model.SessionState
}

// State returns the current session state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// expire moves an awaiting session to expired. Caller holds s.mu.
func (s *Session) expireLocked() {
	s.state = model.SessionExpired
}

// Config configures a session store.
type Config struct {
	// TTL is how long a session stays resolvable.
	TTL time.Duration
	// SweepInterval is how often the background sweeper runs. Zero disables
	// the sweeper; expiry is still enforced lazily on access.
	SweepInterval time.Duration
	// OnExpire is invoked (outside the session lock) for every session the
	// store expires, lazily or by sweep.
	OnExpire func(*Session)
	Logger   *slog.Logger
}

// Store is the concurrent session registry.
type Store struct {
	sessions map[string]*Session
	stopCh   chan struct{}
	stopOnce sync.Once
	onExpire func(*Session)
	logger   *slog.Logger
	ttl      time.Duration
	mu       sync.RWMutex
}

// NewStore creates a session store and starts its sweeper when configured.
func NewStore(cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	store := &Store{
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
		onExpire: cfg.OnExpire,
		logger:   cfg.Logger,
		ttl:      cfg.TTL,
	}

	if cfg.SweepInterval > 0 {
		go store.sweep(cfg.SweepInterval)
	}

	return store
}

// Create registers a new awaiting session for the candidate and draft.
func (st *Store) Create(candidate model.ClassificationCandidate, draft ExpenseDraft) *Session {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Candidate: candidate,
		Draft:     draft,
		CreatedAt: now,
		ExpiresAt: now.Add(st.ttl),
		state:     model.SessionAwaitingConfirmation,
	}

	st.mu.Lock()
	st.sessions[session.ID] = session
	st.mu.Unlock()

	st.logger.Debug("confirmation session created",
		"session_id", session.ID,
		"category", draft.Category,
		"confidence", draft.Confidence,
		"expires_at", session.ExpiresAt)

	return session
}

// Get returns a session by id, enforcing expiry lazily.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	session, exists := st.sessions[id]
	st.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	st.expireIfDue(session)
	return session, nil
}

// Pending returns all sessions still awaiting confirmation.
func (st *Store) Pending() []*Session {
	st.mu.RLock()
	snapshot := make([]*Session, 0, len(st.sessions))
	for _, session := range st.sessions {
		snapshot = append(snapshot, session)
	}
	st.mu.RUnlock()

	var pending []*Session
	for _, session := range snapshot {
		st.expireIfDue(session)
		if session.State() == model.SessionAwaitingConfirmation {
			pending = append(pending, session)
		}
	}
	return pending
}

// Resolve applies one resolving event to the session. The decide callback
// runs under the per-session lock and returns the terminal state to apply;
// if it errors, the session stays awaiting. An expired session never
// confirms, and a second resolution attempt fails with ErrAlreadyResolved.
func (st *Store) Resolve(id string, decide func(*Session) (model.SessionState, error)) error {
	st.mu.RLock()
	session, exists := st.sessions[id]
	st.mu.RUnlock()
	if !exists {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	session.mu.Lock()

	if session.state == model.SessionAwaitingConfirmation && time.Now().After(session.ExpiresAt) {
		session.expireLocked()
		session.mu.Unlock()
		st.notifyExpired(session)
		return fmt.Errorf("session %s: %w", id, ErrExpired)
	}
	if session.state.Terminal() {
		state := session.state
		session.mu.Unlock()
		if state == model.SessionExpired {
			return fmt.Errorf("session %s: %w", id, ErrExpired)
		}
		return fmt.Errorf("session %s: %w", id, ErrAlreadyResolved)
	}

	newState, err := decide(session)
	if err != nil {
		session.mu.Unlock()
		return err
	}
	if !newState.Terminal() {
		session.mu.Unlock()
		return fmt.Errorf("session %s: resolution must yield a terminal state, got %q", id, newState)
	}

	session.state = newState
	session.mu.Unlock()

	st.logger.Info("confirmation session resolved",
		"session_id", id,
		"state", string(newState))
	return nil
}

// expireIfDue lazily expires an overdue awaiting session.
func (st *Store) expireIfDue(session *Session) {
	session.mu.Lock()
	if session.state != model.SessionAwaitingConfirmation || time.Now().Before(session.ExpiresAt) {
		session.mu.Unlock()
		return
	}
	session.expireLocked()
	session.mu.Unlock()

	st.notifyExpired(session)
}

// notifyExpired logs the discarded candidate and fires the expiry hook.
func (st *Store) notifyExpired(session *Session) {
	st.logger.Info("confirmation session expired",
		"session_id", session.ID,
		"category", session.Candidate.Category,
		"confidence", session.Candidate.Confidence,
		"description", session.Draft.Description)

	if st.onExpire != nil {
		st.onExpire(session)
	}
}

// sweep periodically expires overdue sessions.
func (st *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-st.stopCh:
			return
		case <-ticker.C:
			for _, session := range st.Pending() {
				st.expireIfDue(session)
			}
		}
	}
}

// Close stops the sweeper goroutine.
func (st *Store) Close() {
	st.stopOnce.Do(func() { close(st.stopCh) })
}
