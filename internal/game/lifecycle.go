package game

import (
	"slices"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

// AddParticipantRequest represents a request to add a player to a session.
type AddParticipantRequest struct {
	SessionID   string
	Participant domain.Participant
	// PlayerID is the in-game identifier returned by the backend.
	PlayerID string
	Name     string
}

// AddParticipant registers a new player. A participant can only play in one
// session at a time, so it fails if the participant is in any session.
func (s *Store) AddParticipant(req AddParticipantRequest) (domain.Player, error) {
	if req.Participant == "" {
		return domain.Player{}, invalidArgument("participant is required: session=%s", req.SessionID)
	}

	var pl domain.Player
	err := s.update(req.SessionID, func(st *state) error {
		if st.status == domain.StatusFinished {
			return invalidState(st, "cannot join a finished session")
		}

		if cur, ok := s.index.claim(req.Participant, st.id); !ok {
			return errors.New(errors.CodeAlreadyExists,
				errors.WithReason(errors.ReasonAlreadyMember),
				errors.WithMessagef("participant is already in a session: participant=%s session=%s", req.Participant, cur),
			)
		}

		p := &domain.Player{
			Participant:   req.Participant,
			PlayerID:      req.PlayerID,
			Name:          req.Name,
			QuestionIndex: st.cursor,
			JoinedAt:      s.now(),
		}
		st.players[req.Participant] = p
		st.order = append(st.order, req.Participant)

		pl = clonePlayer(p)
		return nil
	})

	return pl, err
}

// RemoveParticipant takes a player out of a session that has not finished.
func (s *Store) RemoveParticipant(id string, p domain.Participant) error {
	return s.update(id, func(st *state) error {
		if st.status == domain.StatusFinished {
			return invalidState(st, "cannot leave a finished session")
		}

		if _, ok := st.players[p]; !ok {
			return playerNotFound(id, p)
		}

		delete(st.players, p)
		st.order = slices.DeleteFunc(st.order, func(o domain.Participant) bool { return o == p })
		s.index.release(p, st.id)
		return nil
	})
}

// SetQuestions replaces the questions of a waiting session. Nothing changes
// once the session has started.
func (s *Store) SetQuestions(id string, questions []domain.Question) error {
	return s.update(id, func(st *state) error {
		switch st.status {
		case domain.StatusWaiting:
		case domain.StatusFinished:
			return invalidState(st, "cannot set questions of a finished session")
		default:
			return invalidTransition(st, "set questions of")
		}

		st.questions = slices.Clone(questions)
		return nil
	})
}

// Start moves a waiting session with questions to active and rewinds every
// cursor to the first question.
func (s *Store) Start(id string) (domain.Session, error) {
	var ss domain.Session
	err := s.update(id, func(st *state) error {
		if st.status != domain.StatusWaiting {
			return invalidTransition(st, "start")
		}

		if len(st.questions) == 0 {
			return errors.New(errors.CodeFailedPrecondition,
				errors.WithReason(errors.ReasonNoQuestions),
				errors.WithMessagef("session has no questions: session=%s", st.id),
			)
		}

		now := s.now()
		st.status = domain.StatusActive
		st.startedAt = &now
		st.cursor = 0
		st.exhausted = false
		for _, p := range st.players {
			p.QuestionIndex = 0
		}

		ss = st.snapshot()
		return nil
	})

	return ss, err
}

// End finishes an active session. A finished session is frozen.
func (s *Store) End(id string) (domain.Session, error) {
	var ss domain.Session
	err := s.update(id, func(st *state) error {
		if st.status != domain.StatusActive {
			return invalidTransition(st, "end")
		}

		now := s.now()
		st.status = domain.StatusFinished
		st.finishedAt = &now

		ss = st.snapshot()
		return nil
	})

	return ss, err
}

// Cancel removes a session that has not finished. It returns the state the
// session had when it was removed.
func (s *Store) Cancel(id string) (domain.Session, error) {
	e, err := s.lock(id)
	if err != nil {
		return domain.Session{}, err
	}

	if e.st.status == domain.StatusFinished {
		err := invalidTransition(&e.st, "cancel")
		e.mu.Unlock()
		return domain.Session{}, err
	}

	ss := e.st.snapshot()
	s.discard(e)
	e.mu.Unlock()
	s.forget(id, e)

	return ss, nil
}
