package agent

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quangvt/relay/internal/domain"
	"github.com/quangvt/relay/internal/memory"
)

// Session bundles the per-conversation state: the short-term message
// window and a long-term manager bound to the session's namespace.
type Session struct {
	Namespace domain.Namespace
	ShortTerm *memory.ShortTerm
	LongTerm  *memory.LongTerm

	mu         sync.Mutex
	lastActive time.Time
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Sessions is the in-process session registry. Sessions are created on
// first use and expired by a background sweeper after an idle timeout.
// Long-term memories outlive the session; only the conversation window and
// the registry entry are dropped.
type Sessions struct {
	store       domain.VectorStore
	threshold   float64
	shortTermN  int
	idleTimeout time.Duration
	logger      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewSessions(store domain.VectorStore, threshold float64, shortTermSize int, idleTimeout time.Duration, logger *zap.Logger) *Sessions {
	return &Sessions{
		store:       store,
		threshold:   threshold,
		shortTermN:  shortTermSize,
		idleTimeout: idleTimeout,
		logger:      logger,
		sessions:    make(map[string]*Session),
	}
}

// GetOrCreate returns the session for (userID, sessionID), creating it on
// first use, and marks it active.
func (s *Sessions) GetOrCreate(userID, sessionID string) *Session {
	ns := domain.Namespace{UserID: userID, SessionID: sessionID}
	key := ns.Collection()

	s.mu.RLock()
	session, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		session.touch()
		return session
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[key]; ok {
		session.touch()
		return session
	}

	session = &Session{
		Namespace:  ns,
		ShortTerm:  memory.NewShortTerm(s.shortTermN),
		LongTerm:   memory.NewLongTerm(s.store, ns, s.threshold, s.logger),
		lastActive: time.Now(),
	}
	s.sessions[key] = session
	s.logger.Debug("created session", zap.String("collection", key))
	return session
}

// Get returns an existing session without creating one.
func (s *Sessions) Get(userID, sessionID string) (*Session, bool) {
	key := domain.Namespace{UserID: userID, SessionID: sessionID}.Collection()

	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

// Delete drops a session from the registry. Long-term memories are kept.
func (s *Sessions) Delete(userID, sessionID string) bool {
	key := domain.Namespace{UserID: userID, SessionID: sessionID}.Collection()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[key]; !ok {
		return false
	}
	delete(s.sessions, key)
	return true
}

func (s *Sessions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start launches the idle-session sweeper. Call Stop to shut it down.
func (s *Sessions) Start(interval time.Duration) {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go func() {
		defer close(s.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
	s.logger.Info("session sweeper started",
		zap.Duration("interval", interval),
		zap.Duration("idle_timeout", s.idleTimeout))
}

func (s *Sessions) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.logger.Info("session sweeper stopped")
}

func (s *Sessions) sweep() {
	cutoff := time.Now().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, session := range s.sessions {
		if session.idleSince().Before(cutoff) {
			delete(s.sessions, key)
			s.logger.Info("expired idle session", zap.String("collection", key))
		}
	}
}
