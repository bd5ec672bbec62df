package game

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/victornm/quizbot/internal/domain"
)

// Results returns the leaderboard of a session, sorted by score in
// descending order. Players with the same score keep their join order. An
// unknown session has no results.
func (s *Store) Results(id string) []domain.Result {
	res := []domain.Result{}
	_ = s.view(id, func(st *state) error {
		for _, part := range st.order {
			res = append(res, result(st.players[part]))
		}
		return nil
	})

	slices.SortStableFunc(res, func(a, b domain.Result) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return res
}

func result(p *domain.Player) domain.Result {
	r := domain.Result{
		Participant: p.Participant,
		PlayerID:    p.PlayerID,
		Name:        p.Name,
		Score:       p.Score,
		Accuracy:    decimal.Zero,
		Answers:     slices.Clone(p.Answers),
	}

	for _, a := range p.Answers {
		if a.IsCorrect {
			r.Correct++
		}
	}

	if n := len(p.Answers); n > 0 {
		r.Accuracy = decimal.NewFromInt(int64(r.Correct)).
			DivRound(decimal.NewFromInt(int64(n)), 2)
	}

	return r
}
