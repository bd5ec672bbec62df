package game

import (
	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

func sessionNotFound(id string) error {
	return errors.New(errors.CodeNotFound,
		errors.WithReason(errors.ReasonSessionNotFound),
		errors.WithMessagef("session not found: session=%s", id),
	)
}

func notInSession(p domain.Participant) error {
	return errors.New(errors.CodeNotFound,
		errors.WithReason(errors.ReasonSessionNotFound),
		errors.WithMessagef("participant is not in a session: participant=%s", p),
	)
}

func playerNotFound(id string, p domain.Participant) error {
	return errors.New(errors.CodeNotFound,
		errors.WithReason(errors.ReasonPlayerNotFound),
		errors.WithMessagef("player not found: session=%s participant=%s", id, p),
	)
}

func invalidTransition(st *state, op string) error {
	return errors.New(errors.CodeFailedPrecondition,
		errors.WithReason(errors.ReasonInvalidTransition),
		errors.WithMessagef("cannot %s session in status %s: session=%s", op, st.status, st.id),
	)
}

func invalidState(st *state, format string, args ...any) error {
	return errors.New(errors.CodeFailedPrecondition,
		errors.WithReason(errors.ReasonInvalidState),
		errors.WithMessagef("session=%s: "+format, append([]any{st.id}, args...)...),
	)
}

func invalidArgument(format string, args ...any) error {
	return errors.New(errors.CodeInvalidArgument, errors.WithMessagef(format, args...))
}
