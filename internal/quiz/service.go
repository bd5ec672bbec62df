// Package quiz runs games end to end. It asks the backend first and commits
// to the local session store only when the backend call succeeded.
package quiz

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizbot/internal/backend"
	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
	"github.com/victornm/quizbot/internal/event"
	"github.com/victornm/quizbot/internal/game"
)

const (
	maxConcurrentFetch = 8
	defaultRetention   = 10 * time.Minute
)

type Config struct {
	Store    *game.Store
	Backend  backend.Client
	EventBus *event.Bus

	// Retention is how long results of a finished game stay readable after
	// its teardown. Defaults to 10m.
	Retention time.Duration
}

type Service struct {
	store   *game.Store
	backend backend.Client
	eb      *event.Bus

	// progress serializes question progression per session. No backend call
	// is made while it is held.
	progress sync.Map
	// variants of every question, per active session.
	variants sync.Map
	// finishing marks sessions being ended.
	finishing sync.Map
	// answering marks participants with a submission in flight.
	answering sync.Map

	recent *recentResults
}

func NewService(c Config) *Service {
	if c.Retention <= 0 {
		c.Retention = defaultRetention
	}

	return &Service{
		store:   c.Store,
		backend: c.Backend,
		eb:      c.EventBus,
		recent:  newRecentResults(c.Retention),
	}
}

// Question is a question as presented to players.
type Question struct {
	domain.Question
	// Index is zero based.
	Index    int
	Total    int
	Variants []domain.Variant
}

// Progress tells what happens next in a game: either a question is asked or
// the game is over and Results holds the final leaderboard.
type Progress struct {
	SessionID string
	Question  *Question
	Finished  bool
	Results   []domain.Result
}

func (s *Service) ListPacks(ctx context.Context) ([]domain.Pack, error) {
	packs, err := s.backend.ListPacks(ctx)
	if err != nil {
		return nil, external(err, "list packs")
	}
	return packs, nil
}

type NewGameRequest struct {
	Participant domain.Participant
	Name        string
	PackID      string
}

// NewGame creates a game with the participant as host and first player.
func (s *Service) NewGame(ctx context.Context, req NewGameRequest) (*domain.Session, error) {
	if err := s.ensureFree(req.Participant); err != nil {
		return nil, err
	}

	gs, err := s.backend.CreateGameSession(ctx, req.PackID)
	if err != nil {
		return nil, external(err, "create game: pack=%s", req.PackID)
	}

	if _, err := s.store.CreateSession(game.CreateSessionRequest{
		SessionID: gs.SessionID,
		PackID:    req.PackID,
		Host:      req.Participant,
	}); err != nil {
		return nil, err
	}

	ss, err := s.setupGame(ctx, gs.SessionID, req)
	if err != nil {
		s.store.RemoveSession(gs.SessionID)
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventSessionCreated{Session: ss})

	slog.InfoContext(ctx, "quiz: game created",
		"session", ss.SessionID,
		"participant", req.Participant,
		"questions", len(ss.Questions),
	)

	return &ss, nil
}

func (s *Service) setupGame(ctx context.Context, id string, req NewGameRequest) (domain.Session, error) {
	if _, err := s.addPlayer(ctx, id, req.Participant, req.Name); err != nil {
		return domain.Session{}, err
	}

	qs, err := s.backend.ListQuestions(ctx, req.PackID)
	if err != nil {
		return domain.Session{}, external(err, "list questions: pack=%s", req.PackID)
	}

	if len(qs) == 0 {
		return domain.Session{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNoQuestions),
			errors.WithMessagef("pack has no questions: pack=%s", req.PackID),
		)
	}

	if err := s.store.SetQuestions(id, qs); err != nil {
		return domain.Session{}, err
	}

	return s.store.GetSession(id)
}

type JoinRequest struct {
	Participant domain.Participant
	Name        string
	// SessionID picks the game to join. The oldest game waiting for players
	// is used when empty.
	SessionID string
}

func (s *Service) Join(ctx context.Context, req JoinRequest) (*domain.Session, error) {
	if err := s.ensureFree(req.Participant); err != nil {
		return nil, err
	}

	id := req.SessionID
	if id == "" {
		waiting := s.store.WaitingSessions()
		if len(waiting) == 0 {
			return nil, errors.New(errors.CodeNotFound,
				errors.WithReason(errors.ReasonSessionNotFound),
				errors.WithMessagef("no game is waiting for players"),
			)
		}
		id = waiting[0].SessionID
	}

	ss, err := s.store.GetSession(id)
	if err != nil {
		return nil, err
	}
	if ss.Status != domain.StatusWaiting {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonInvalidState),
			errors.WithMessagef("game is not waiting for players: session=%s status=%s", id, ss.Status),
		)
	}

	pl, err := s.addPlayer(ctx, id, req.Participant, req.Name)
	if err != nil {
		return nil, err
	}

	members, err := s.store.Members(id)
	if err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventPlayerJoined{
		SessionID: id,
		Player:    domain.Member{Participant: pl.Participant, PlayerID: pl.PlayerID, Name: pl.Name},
		Members:   members,
	})

	ss, err = s.store.GetSession(id)
	if err != nil {
		return nil, err
	}

	return &ss, nil
}

func (s *Service) addPlayer(ctx context.Context, id string, p domain.Participant, name string) (domain.Player, error) {
	bp, err := s.backend.AddPlayer(ctx, id, name)
	if err != nil {
		return domain.Player{}, external(err, "add player: session=%s", id)
	}

	return s.store.AddParticipant(game.AddParticipantRequest{
		SessionID:   id,
		Participant: p,
		PlayerID:    bp.PlayerID,
		Name:        name,
	})
}

// ensureFree fails when the participant already plays in a game.
func (s *Service) ensureFree(p domain.Participant) error {
	ss, err := s.store.GetSessionByParticipant(p)
	if errors.HasReason(err, errors.ReasonSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	return errors.New(errors.CodeAlreadyExists,
		errors.WithReason(errors.ReasonAlreadyMember),
		errors.WithMessagef("participant is already in a game: participant=%s session=%s status=%s", p, ss.SessionID, ss.Status),
	)
}

// Start begins the game hosted by the participant and returns the first
// question.
func (s *Service) Start(ctx context.Context, p domain.Participant) (*Progress, error) {
	ss, err := s.store.GetSessionByParticipant(p)
	if err != nil {
		return nil, err
	}

	if err := checkHost(ss, p, "start"); err != nil {
		return nil, err
	}

	if ss.Status != domain.StatusWaiting {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonInvalidTransition),
			errors.WithMessagef("cannot start session in status %s: session=%s", ss.Status, ss.SessionID),
		)
	}

	vs, err := s.fetchVariants(ctx, ss)
	if err != nil {
		return nil, err
	}

	if err := s.backend.StartGameSession(ctx, ss.SessionID); err != nil {
		return nil, external(err, "start game: session=%s", ss.SessionID)
	}

	started, err := s.store.Start(ss.SessionID)
	if err != nil {
		return nil, err
	}
	s.variants.Store(ss.SessionID, vs)

	s.eb.Publish(ctx, domain.EventSessionStarted{Session: started})

	slog.InfoContext(ctx, "quiz: game started",
		"session", started.SessionID,
		"players", len(started.Players),
	)

	return s.step(ctx, ss.SessionID, func() (*Progress, error) {
		return s.present(ctx, ss.SessionID, true)
	})
}

// fetchVariants loads the variants of every question of the game.
func (s *Service) fetchVariants(ctx context.Context, ss domain.Session) (map[string][]domain.Variant, error) {
	var (
		mu sync.Mutex
		vs = make(map[string][]domain.Variant, len(ss.Questions))
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentFetch)
	for _, q := range ss.Questions {
		eg.Go(func() error {
			v, err := s.backend.ListVariants(ctx, q.QuestionID)
			if err != nil {
				return external(err, "list variants: session=%s question=%s", ss.SessionID, q.QuestionID)
			}

			mu.Lock()
			vs[q.QuestionID] = v
			mu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return vs, nil
}

// CurrentQuestion returns what the participant's game is asking now.
func (s *Service) CurrentQuestion(ctx context.Context, p domain.Participant) (*Progress, error) {
	ss, err := s.store.GetSessionByParticipant(p)
	if err != nil {
		return nil, err
	}

	if ss.Status != domain.StatusActive {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonInvalidState),
			errors.WithMessagef("game is not active: session=%s status=%s", ss.SessionID, ss.Status),
		)
	}

	return s.step(ctx, ss.SessionID, func() (*Progress, error) {
		return s.present(ctx, ss.SessionID, false)
	})
}

type SubmitAnswerRequest struct {
	Participant domain.Participant
	QuestionID  string
	VariantID   string
}

type SubmitAnswerResponse struct {
	Player domain.Player
	Answer domain.Answer
	// Next is set when this answer completed the question.
	Next *Progress
}

// SubmitAnswer judges the answer with the backend and records it. Once every
// player has answered, the game moves on to the next question or ends.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	// Taken before the session is read, so a retry sees the recorded answer.
	if _, busy := s.answering.LoadOrStore(req.Participant, struct{}{}); busy {
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithReason(errors.ReasonAlreadyAnswered),
			errors.WithMessagef("an answer is being submitted: participant=%s", req.Participant),
		)
	}
	defer s.answering.Delete(req.Participant)

	ss, err := s.store.GetSessionByParticipant(req.Participant)
	if err != nil {
		return nil, err
	}

	pl, err := checkAnswerable(ss, req)
	if err != nil {
		return nil, err
	}

	j, err := s.backend.SubmitAnswer(ctx, backend.SubmitAnswerRequest{
		PlayerID:   pl.PlayerID,
		QuestionID: req.QuestionID,
		VariantID:  req.VariantID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "quiz: submit answer failed",
			"session", ss.SessionID,
			"participant", req.Participant,
			"error", err,
		)
		return nil, external(err, "submit answer: session=%s question=%s", ss.SessionID, req.QuestionID)
	}

	updated, err := s.store.RecordAnswer(game.RecordAnswerRequest{
		SessionID:   ss.SessionID,
		Participant: req.Participant,
		QuestionID:  req.QuestionID,
		VariantID:   req.VariantID,
		IsCorrect:   j.IsCorrect,
		Points:      j.Points,
	})
	if err != nil {
		return nil, err
	}

	a := updated.Answers[len(updated.Answers)-1]
	s.eb.Publish(ctx, domain.EventAnswerRecorded{
		SessionID: ss.SessionID,
		Player:    updated,
		Answer:    a,
	})

	next, err := s.completeQuestion(ctx, ss.SessionID, req.QuestionID)
	if err != nil {
		return nil, err
	}

	return &SubmitAnswerResponse{Player: updated, Answer: a, Next: next}, nil
}

func checkAnswerable(ss domain.Session, req SubmitAnswerRequest) (domain.Player, error) {
	pl, ok := ss.Player(req.Participant)
	if !ok {
		return domain.Player{}, errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonPlayerNotFound),
			errors.WithMessagef("player not found: session=%s participant=%s", ss.SessionID, req.Participant),
		)
	}

	if ss.Status != domain.StatusActive || ss.Exhausted || ss.CurrentQuestionIndex >= len(ss.Questions) {
		return domain.Player{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonInvalidState),
			errors.WithMessagef("no question is being asked: session=%s status=%s", ss.SessionID, ss.Status),
		)
	}

	if cur := ss.Questions[ss.CurrentQuestionIndex]; cur.QuestionID != req.QuestionID {
		return domain.Player{}, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonInvalidState),
			errors.WithMessagef("question is not being asked: session=%s question=%s current=%s", ss.SessionID, req.QuestionID, cur.QuestionID),
		)
	}

	if slices.ContainsFunc(pl.Answers, func(a domain.Answer) bool { return a.QuestionID == req.QuestionID }) {
		return domain.Player{}, errors.New(errors.CodeAlreadyExists,
			errors.WithReason(errors.ReasonAlreadyAnswered),
			errors.WithMessagef("answer is already submitted: session=%s participant=%s question=%s", ss.SessionID, req.Participant, req.QuestionID),
		)
	}

	return pl, nil
}

type LeaveResponse struct {
	SessionID string
	// Next is set when leaving completed the current question.
	Next *Progress
}

// Leave takes the participant out of their game. A game left without
// players is removed.
func (s *Service) Leave(ctx context.Context, p domain.Participant) (*LeaveResponse, error) {
	ss, err := s.store.GetSessionByParticipant(p)
	if err != nil {
		return nil, err
	}

	if err := s.store.RemoveParticipant(ss.SessionID, p); err != nil {
		return nil, err
	}

	members, err := s.store.Members(ss.SessionID)
	if errors.HasReason(err, errors.ReasonSessionNotFound) {
		return &LeaveResponse{SessionID: ss.SessionID}, nil
	}
	if err != nil {
		return nil, err
	}

	s.eb.Publish(ctx, domain.EventPlayerLeft{
		SessionID:   ss.SessionID,
		Participant: p,
		Members:     members,
	})

	slog.InfoContext(ctx, "quiz: player left",
		"session", ss.SessionID,
		"participant", p,
	)

	if len(members) == 0 {
		if _, err := s.cancel(ctx, ss.SessionID); err != nil && !errors.HasReason(err, errors.ReasonSessionNotFound) {
			return nil, err
		}
		return &LeaveResponse{SessionID: ss.SessionID}, nil
	}

	resp := &LeaveResponse{SessionID: ss.SessionID}
	if ss.Status == domain.StatusActive && !ss.Exhausted && ss.CurrentQuestionIndex < len(ss.Questions) {
		resp.Next, err = s.completeQuestion(ctx, ss.SessionID, ss.Questions[ss.CurrentQuestionIndex].QuestionID)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

type CancelResponse struct {
	SessionID string
	// Cancelled is false when the participant was not the host and only left
	// the game.
	Cancelled bool
}

// Cancel removes the game when the participant hosts it. Other players just
// leave.
func (s *Service) Cancel(ctx context.Context, p domain.Participant) (*CancelResponse, error) {
	ss, err := s.store.GetSessionByParticipant(p)
	if err != nil {
		return nil, err
	}

	if checkHost(ss, p, "cancel") != nil {
		resp, err := s.Leave(ctx, p)
		if err != nil {
			return nil, err
		}
		return &CancelResponse{SessionID: resp.SessionID}, nil
	}

	if _, err := s.cancel(ctx, ss.SessionID); err != nil {
		return nil, err
	}

	return &CancelResponse{SessionID: ss.SessionID, Cancelled: true}, nil
}

func (s *Service) cancel(ctx context.Context, id string) (domain.Session, error) {
	ss, err := s.store.Cancel(id)
	if err != nil {
		return domain.Session{}, err
	}
	s.progress.Delete(id)
	s.variants.Delete(id)

	if ss.Status == domain.StatusActive {
		if err := s.backend.EndGameSession(ctx, id); err != nil {
			slog.ErrorContext(ctx, "quiz: end cancelled game failed",
				"session", id,
				"error", err,
			)
		}
	}

	s.eb.Publish(ctx, domain.EventSessionRemoved{
		SessionID: id,
		Members:   members(ss),
		Cancelled: true,
		WasActive: ss.Status == domain.StatusActive,
	})

	slog.InfoContext(ctx, "quiz: game cancelled", "session", id)

	return ss, nil
}

// Results returns the leaderboard of a game that is still known locally,
// including games finished within the retention window.
func (s *Service) Results(_ context.Context, sessionID string) []domain.Result {
	if res := s.store.Results(sessionID); len(res) > 0 {
		return res
	}
	if res, ok := s.recent.get(sessionID); ok {
		return res
	}
	return []domain.Result{}
}

// completeQuestion moves the game on when every player answered the
// question. It returns nil while some players have yet to answer.
func (s *Service) completeQuestion(ctx context.Context, id, questionID string) (*Progress, error) {
	return s.step(ctx, id, func() (*Progress, error) {
		return s.completeLocked(ctx, id, questionID)
	})
}

func (s *Service) completeLocked(ctx context.Context, id, questionID string) (*Progress, error) {
	q, ok, err := s.store.CurrentQuestion(id)
	if errors.HasReason(err, errors.ReasonSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Another submission already moved the game on.
	if !ok || q.QuestionID != questionID {
		return nil, nil
	}

	all, err := s.store.AllAnswered(id, questionID)
	if err != nil || !all {
		return nil, err
	}

	return s.advance(ctx, id)
}

// advance must be called with the progress lock held.
func (s *Service) advance(ctx context.Context, id string) (*Progress, error) {
	moved, err := s.store.Advance(id)
	if err != nil {
		return nil, err
	}

	if !moved {
		return exhausted(id), nil
	}

	return s.present(ctx, id, true)
}

// present returns the current question with its variants. Questions without
// variants are skipped. The question is announced to the members when it is
// new to them. It must be called with the progress lock held.
func (s *Service) present(ctx context.Context, id string, announce bool) (*Progress, error) {
	for {
		q, ok, err := s.store.CurrentQuestion(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return exhausted(id), nil
		}

		vs := s.variantsOf(id)[q.QuestionID]
		if len(vs) == 0 {
			slog.WarnContext(ctx, "quiz: skip question without variants",
				"session", id,
				"question", q.QuestionID,
			)

			moved, err := s.store.Advance(id)
			if err != nil {
				return nil, err
			}
			if !moved {
				return exhausted(id), nil
			}
			announce = true
			continue
		}

		ss, err := s.store.GetSession(id)
		if err != nil {
			return nil, err
		}

		pq := &Question{
			Question: q,
			Index:    ss.CurrentQuestionIndex,
			Total:    len(ss.Questions),
			Variants: vs,
		}

		if announce {
			s.eb.Publish(ctx, domain.EventQuestionAdvanced{
				SessionID: id,
				Index:     pq.Index,
				Total:     pq.Total,
				Question:  q,
				Members:   members(ss),
			})
		}

		return &Progress{SessionID: id, Question: pq}, nil
	}
}

func (s *Service) variantsOf(id string) map[string][]domain.Variant {
	v, ok := s.variants.Load(id)
	if !ok {
		return nil
	}
	return v.(map[string][]domain.Variant)
}

// exhausted tells step that the game ran out of questions.
func exhausted(id string) *Progress {
	return &Progress{SessionID: id, Finished: true}
}

// step runs fn with the progress lock of the session held. When fn ran out of
// questions the game is finished once the lock is released.
func (s *Service) step(ctx context.Context, id string, fn func() (*Progress, error)) (*Progress, error) {
	mu := s.lockProgress(id)
	p, err := fn()
	mu.Unlock()

	if err != nil || p == nil || !p.Finished {
		return p, err
	}
	return s.finish(ctx, id)
}

// finish ends the game on the backend, then locally, and tears it down once
// the results are taken. A backend failure does not block the teardown.
// Callers racing an ongoing finish get the results known so far.
func (s *Service) finish(ctx context.Context, id string) (*Progress, error) {
	if _, busy := s.finishing.LoadOrStore(id, struct{}{}); busy {
		return &Progress{SessionID: id, Finished: true, Results: s.Results(ctx, id)}, nil
	}
	defer s.finishing.Delete(id)

	// Already torn down by an earlier finish.
	if _, err := s.store.GetSession(id); errors.HasReason(err, errors.ReasonSessionNotFound) {
		return &Progress{SessionID: id, Finished: true, Results: s.Results(ctx, id)}, nil
	}

	if err := s.backend.EndGameSession(ctx, id); err != nil {
		slog.ErrorContext(ctx, "quiz: end game failed",
			"session", id,
			"error", err,
		)
	}

	ended, err := s.store.End(id)
	if err != nil {
		return nil, err
	}

	results := s.store.Results(id)
	s.recent.put(id, results)
	s.eb.Publish(ctx, domain.EventSessionFinished{Session: ended, Results: results})

	if _, ok := s.store.RemoveSession(id); ok {
		s.eb.Publish(ctx, domain.EventSessionRemoved{
			SessionID: id,
			Members:   members(ended),
			WasActive: true,
		})
	}
	s.progress.Delete(id)
	s.variants.Delete(id)

	slog.InfoContext(ctx, "quiz: game finished",
		"session", id,
		"players", len(results),
	)

	return &Progress{SessionID: id, Finished: true, Results: results}, nil
}

func (s *Service) lockProgress(id string) *sync.Mutex {
	v, _ := s.progress.LoadOrStore(id, new(sync.Mutex))
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}

// checkHost lets anyone act once the host has left the game.
func checkHost(ss domain.Session, p domain.Participant, op string) error {
	if ss.Host == "" || ss.Host == p {
		return nil
	}
	if _, ok := ss.Player(ss.Host); !ok {
		return nil
	}

	return errors.New(errors.CodePermissionDenied,
		errors.WithReason(errors.ReasonNotHost),
		errors.WithMessagef("only the host can %s the game: session=%s participant=%s", op, ss.SessionID, p),
	)
}

func members(ss domain.Session) []domain.Member {
	ms := make([]domain.Member, 0, len(ss.Players))
	for _, p := range ss.Players {
		ms = append(ms, domain.Member{Participant: p.Participant, PlayerID: p.PlayerID, Name: p.Name})
	}
	return ms
}

func external(err error, format string, args ...any) error {
	return errors.New(errors.CodeUnavailable,
		errors.WithReason(errors.ReasonExternalFailure),
		errors.WithMessagef(format, args...),
		errors.WithCause(err),
	)
}
