// Package game holds the in-memory state of quiz sessions: membership,
// question progression and scoring.
//
// Every operation on a session runs under that session's own lock, so
// unrelated games never block each other. The participant index is shared by
// all sessions and has its own lock, which is always taken after a session
// lock. The store does no I/O and runs no goroutines.
package game

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

type Config struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store is the owner of all session state.
type Store struct {
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
	seq      uint64

	index participantIndex
}

func NewStore(c Config) *Store {
	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		now:      now,
		sessions: make(map[string]*entry),
		index:    participantIndex{m: make(map[domain.Participant]string)},
	}
}

type entry struct {
	mu      sync.Mutex
	removed atomic.Bool
	seq     uint64
	st      state
}

// state is the mutable form of a session. It never leaves the store; callers
// get a domain.Session copy.
type state struct {
	id         string
	packID     string
	host       domain.Participant
	status     domain.Status
	questions  []domain.Question
	cursor     int
	exhausted  bool
	players    map[domain.Participant]*domain.Player
	order      []domain.Participant
	createdAt  time.Time
	startedAt  *time.Time
	finishedAt *time.Time
}

// CreateSessionRequest represents a request to register a new session.
type CreateSessionRequest struct {
	// SessionID is the identifier assigned by the backend. A UUIDv7 is
	// generated when empty.
	SessionID string
	PackID    string
	Host      domain.Participant
}

// CreateSession registers a new session in waiting state.
func (s *Store) CreateSession(req CreateSessionRequest) (domain.Session, error) {
	id := req.SessionID
	if id == "" {
		u, err := uuid.NewV7()
		if err != nil {
			return domain.Session{}, errors.Internal(fmt.Errorf("generate session ID: %w", err))
		}
		id = u.String()
	}

	e := &entry{
		st: state{
			id:        id,
			packID:    req.PackID,
			host:      req.Host,
			status:    domain.StatusWaiting,
			players:   make(map[domain.Participant]*domain.Player),
			createdAt: s.now(),
		},
	}
	ss := e.st.snapshot()

	s.mu.Lock()
	if old, ok := s.sessions[id]; ok && !old.removed.Load() {
		s.mu.Unlock()
		return domain.Session{}, errors.New(errors.CodeAlreadyExists,
			errors.WithReason(errors.ReasonSessionExists),
			errors.WithMessagef("session already exists: session=%s", id),
		)
	}
	s.seq++
	e.seq = s.seq
	s.sessions[id] = e
	s.mu.Unlock()

	return ss, nil
}

// GetSession returns a copy of the session.
func (s *Store) GetSession(id string) (domain.Session, error) {
	var ss domain.Session
	err := s.view(id, func(st *state) error {
		ss = st.snapshot()
		return nil
	})
	return ss, err
}

// GetSessionByParticipant returns the session the participant is playing in.
func (s *Store) GetSessionByParticipant(p domain.Participant) (domain.Session, error) {
	id, ok := s.index.lookup(p)
	if !ok {
		return domain.Session{}, notInSession(p)
	}

	var ss domain.Session
	err := s.view(id, func(st *state) error {
		// The participant may have left between the index lookup and the lock.
		if _, ok := st.players[p]; !ok {
			return notInSession(p)
		}
		ss = st.snapshot()
		return nil
	})
	if errors.HasReason(err, errors.ReasonSessionNotFound) {
		return domain.Session{}, notInSession(p)
	}

	return ss, err
}

// WaitingSessions returns the sessions that still accept players, oldest
// first.
func (s *Store) WaitingSessions() []domain.Session {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	var out []domain.Session
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed.Load() && e.st.status == domain.StatusWaiting {
			out = append(out, e.st.snapshot())
		}
		e.mu.Unlock()
	}

	return out
}

// Members returns the participants of a session in join order.
func (s *Store) Members(id string) ([]domain.Member, error) {
	var ms []domain.Member
	err := s.view(id, func(st *state) error {
		ms = st.members()
		return nil
	})
	return ms, err
}

// RemoveSession deletes the session and releases all its participants. It
// returns the last state of the session, or false if there was none.
func (s *Store) RemoveSession(id string) (domain.Session, bool) {
	e, err := s.lock(id)
	if err != nil {
		return domain.Session{}, false
	}

	ss := e.st.snapshot()
	s.discard(e)
	e.mu.Unlock()
	s.forget(id, e)

	return ss, true
}

// lock returns the live entry for id with its lock held.
func (s *Store) lock(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sessionNotFound(id)
	}

	e.mu.Lock()
	if e.removed.Load() {
		e.mu.Unlock()
		return nil, sessionNotFound(id)
	}

	return e, nil
}

// view and update run fn with the session lock held.
func (s *Store) view(id string, fn func(st *state) error) error {
	return s.update(id, fn)
}

func (s *Store) update(id string, fn func(st *state) error) error {
	e, err := s.lock(id)
	if err != nil {
		return err
	}
	defer e.mu.Unlock()

	return fn(&e.st)
}

// discard marks a locked entry removed and releases its participants.
func (s *Store) discard(e *entry) {
	e.removed.Store(true)
	s.index.releaseAll(e.st.id, e.st.order)
}

func (s *Store) forget(id string, e *entry) {
	s.mu.Lock()
	if s.sessions[id] == e {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
}

func (st *state) members() []domain.Member {
	ms := make([]domain.Member, 0, len(st.order))
	for _, p := range st.order {
		pl := st.players[p]
		ms = append(ms, domain.Member{
			Participant: p,
			PlayerID:    pl.PlayerID,
			Name:        pl.Name,
		})
	}
	return ms
}

func (st *state) snapshot() domain.Session {
	ss := domain.Session{
		SessionID:            st.id,
		PackID:               st.packID,
		Host:                 st.host,
		Status:               st.status,
		Questions:            slices.Clone(st.questions),
		CurrentQuestionIndex: st.cursor,
		Exhausted:            st.exhausted,
		Players:              make([]domain.Player, 0, len(st.order)),
		CreatedAt:            st.createdAt,
		StartedAt:            cloneTime(st.startedAt),
		FinishedAt:           cloneTime(st.finishedAt),
	}

	for _, p := range st.order {
		ss.Players = append(ss.Players, clonePlayer(st.players[p]))
	}

	return ss
}

func clonePlayer(p *domain.Player) domain.Player {
	c := *p
	c.Answers = slices.Clone(p.Answers)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// participantIndex maps a participant to the one session they play in.
type participantIndex struct {
	mu sync.Mutex
	m  map[domain.Participant]string
}

// claim registers p in session id. It fails with the current session of p
// when p is already registered.
func (x *participantIndex) claim(p domain.Participant, id string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if cur, ok := x.m[p]; ok {
		return cur, false
	}
	x.m[p] = id
	return id, true
}

func (x *participantIndex) lookup(p domain.Participant) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	id, ok := x.m[p]
	return id, ok
}

func (x *participantIndex) release(p domain.Participant, id string) {
	x.releaseAll(id, []domain.Participant{p})
}

// releaseAll removes the entries of ps that point at session id.
func (x *participantIndex) releaseAll(id string, ps []domain.Participant) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, p := range ps {
		if x.m[p] == id {
			delete(x.m, p)
		}
	}
}

func (x *participantIndex) size() int {
	x.mu.Lock()
	defer x.mu.Unlock()

	return len(x.m)
}

func (x *participantIndex) pointingAt(id string) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	n := 0
	for _, sid := range x.m {
		if sid == id {
			n++
		}
	}
	return n
}
