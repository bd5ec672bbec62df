package game

import (
	"slices"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

// CurrentQuestion returns the question being asked. It returns false when
// there is nothing to ask: the session is not active or its questions are
// exhausted.
func (s *Store) CurrentQuestion(id string) (domain.Question, bool, error) {
	var (
		q  domain.Question
		ok bool
	)
	err := s.view(id, func(st *state) error {
		if st.status != domain.StatusActive || st.exhausted || st.cursor >= len(st.questions) {
			return nil
		}
		q, ok = st.questions[st.cursor], true
		return nil
	})

	return q, ok, err
}

// Advance moves every player to the next question. It returns false when the
// cursor was already on the last question; the questions are then exhausted
// and the session should be ended. Advancing an exhausted session fails.
func (s *Store) Advance(id string) (bool, error) {
	var moved bool
	err := s.update(id, func(st *state) error {
		if st.status != domain.StatusActive {
			return invalidState(st, "cannot advance session in status %s", st.status)
		}

		if st.exhausted {
			return invalidState(st, "questions are exhausted")
		}

		if st.cursor >= len(st.questions)-1 {
			st.exhausted = true
			return nil
		}

		st.cursor++
		for _, p := range st.players {
			p.QuestionIndex = st.cursor
		}
		moved = true
		return nil
	})

	return moved, err
}

// RecordAnswerRequest carries an answer already judged by the backend.
type RecordAnswerRequest struct {
	SessionID   string
	Participant domain.Participant
	QuestionID  string
	VariantID   string
	IsCorrect   bool
	Points      int
}

// RecordAnswer appends an answer to the player's history and adds the points
// to the score when the answer is correct. A player answers each question at
// most once; a second answer is rejected and nothing changes.
func (s *Store) RecordAnswer(req RecordAnswerRequest) (domain.Player, error) {
	if req.Points < 0 {
		return domain.Player{}, invalidArgument("points must not be negative: points=%d", req.Points)
	}

	var pl domain.Player
	err := s.update(req.SessionID, func(st *state) error {
		if st.status != domain.StatusActive {
			return invalidState(st, "cannot record answer in status %s", st.status)
		}

		p, ok := st.players[req.Participant]
		if !ok {
			return playerNotFound(st.id, req.Participant)
		}

		if !slices.ContainsFunc(st.questions, func(q domain.Question) bool { return q.QuestionID == req.QuestionID }) {
			return invalidArgument("question is not part of the session: session=%s question=%s", st.id, req.QuestionID)
		}

		if answered(p, req.QuestionID) {
			return errors.New(errors.CodeAlreadyExists,
				errors.WithReason(errors.ReasonAlreadyAnswered),
				errors.WithMessagef("answer is already submitted: session=%s participant=%s question=%s", st.id, req.Participant, req.QuestionID),
			)
		}

		a := domain.Answer{
			QuestionID:  req.QuestionID,
			VariantID:   req.VariantID,
			IsCorrect:   req.IsCorrect,
			SubmittedAt: s.now(),
		}
		if req.IsCorrect {
			a.PointsAwarded = req.Points
			p.Score += req.Points
		}
		p.Answers = append(p.Answers, a)

		pl = clonePlayer(p)
		return nil
	})

	return pl, err
}

// AllAnswered reports whether every player of the session has answered the
// question. A session without players is never complete.
func (s *Store) AllAnswered(id, questionID string) (bool, error) {
	var all bool
	err := s.view(id, func(st *state) error {
		if len(st.order) == 0 {
			return nil
		}

		for _, p := range st.players {
			if !answered(p, questionID) {
				return nil
			}
		}
		all = true
		return nil
	})

	return all, err
}

func answered(p *domain.Player, questionID string) bool {
	return slices.ContainsFunc(p.Answers, func(a domain.Answer) bool { return a.QuestionID == questionID })
}
