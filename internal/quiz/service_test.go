package quiz_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizbot/internal/backend"
	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
	"github.com/victornm/quizbot/internal/event"
	"github.com/victornm/quizbot/internal/game"
	"github.com/victornm/quizbot/internal/quiz"
)

func TestService_NewGame(t *testing.T) {
	type (
		inputs struct {
			backend *fakeBackend
			req     quiz.NewGameRequest
		}

		outputs struct {
			session *domain.Session
			err     error
			store   *game.Store
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should create a waiting game with the host as first player": {
			arrange: func() inputs {
				return inputs{
					backend: newFakeBackend(),
					req:     quiz.NewGameRequest{Participant: "u1", Name: "Alice", PackID: "capitals"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.NoError(t, out.err)
				assert.Equal(t, domain.StatusWaiting, out.session.Status)
				assert.Equal(t, domain.Participant("u1"), out.session.Host)
				assert.Len(t, out.session.Questions, 2)
				require.Len(t, out.session.Players, 1)
				assert.Equal(t, "Alice", out.session.Players[0].Name)
				assert.NotEmpty(t, out.session.Players[0].PlayerID)
			},
		},

		"should roll back when the pack has no questions": {
			arrange: func() inputs {
				return inputs{
					backend: newFakeBackend(),
					req:     quiz.NewGameRequest{Participant: "u1", Name: "Alice", PackID: "empty"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.True(t, errors.HasReason(out.err, errors.ReasonNoQuestions))
				assert.Empty(t, out.store.WaitingSessions())
				_, err := out.store.GetSessionByParticipant("u1")
				assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
			},
		},

		"should roll back when the backend cannot add the player": {
			arrange: func() inputs {
				b := newFakeBackend()
				b.addPlayerErr = stderrors.New("backend down")
				return inputs{
					backend: b,
					req:     quiz.NewGameRequest{Participant: "u1", Name: "Alice", PackID: "capitals"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				require.Error(t, out.err)
				assert.Equal(t, errors.CodeUnavailable, errors.Convert(out.err).Code)
				assert.True(t, errors.HasReason(out.err, errors.ReasonExternalFailure))
				assert.Empty(t, out.store.WaitingSessions())
			},
		},

		"should fail when the backend cannot create the game": {
			arrange: func() inputs {
				return inputs{
					backend: newFakeBackend(),
					req:     quiz.NewGameRequest{Participant: "u1", Name: "Alice", PackID: "unknown"},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.True(t, errors.HasReason(out.err, errors.ReasonExternalFailure))
				assert.Empty(t, out.store.WaitingSessions())
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			s, store := makeService(t, in.backend)

			ss, err := s.NewGame(context.Background(), in.req)
			tt.assert(t, outputs{session: ss, err: err, store: store})
		})
	}
}

func TestService_NewGame_AlreadyPlaying(t *testing.T) {
	s, _ := makeService(t, newFakeBackend())
	ctx := context.Background()

	_, err := s.NewGame(ctx, quiz.NewGameRequest{Participant: "u1", Name: "Alice", PackID: "capitals"})
	require.NoError(t, err)

	_, err = s.NewGame(ctx, quiz.NewGameRequest{Participant: "u1", Name: "Alice", PackID: "capitals"})
	assert.True(t, errors.HasReason(err, errors.ReasonAlreadyMember))
}

func TestService_Join(t *testing.T) {
	s, _ := makeService(t, newFakeBackend())
	ctx := context.Background()

	_, err := s.Join(ctx, quiz.JoinRequest{Participant: "u2", Name: "Bob"})
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound), "no game is waiting yet")

	first := mustNewGame(t, s, "u1", "capitals")
	mustNewGame(t, s, "u3", "capitals")

	ss, err := s.Join(ctx, quiz.JoinRequest{Participant: "u2", Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, ss.SessionID, "should join the oldest waiting game")
	require.Len(t, ss.Players, 2)
	assert.Equal(t, domain.Participant("u2"), ss.Players[1].Participant)

	_, err = s.Join(ctx, quiz.JoinRequest{Participant: "u2", Name: "Bob"})
	assert.True(t, errors.HasReason(err, errors.ReasonAlreadyMember))
}

func TestService_Join_OnlyWaitingGames(t *testing.T) {
	s, store := makeService(t, newFakeBackend())
	ctx := context.Background()

	ss := mustNewGame(t, s, "u1", "capitals")
	_, err := s.Start(ctx, "u1")
	require.NoError(t, err)

	_, err = s.Join(ctx, quiz.JoinRequest{Participant: "u9", Name: "Mallory", SessionID: ss.SessionID})
	assert.True(t, errors.HasReason(err, errors.ReasonInvalidState))
	assert.Equal(t, errors.CodeFailedPrecondition, errors.Convert(err).Code)

	got, err := store.GetSession(ss.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Players, 1)
	_, err = store.GetSessionByParticipant("u9")
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
}

func TestService_Start(t *testing.T) {
	s, _ := makeService(t, newFakeBackend())
	ctx := context.Background()

	ss := mustNewGame(t, s, "u1", "capitals")
	mustJoin(t, s, "u2")

	_, err := s.Start(ctx, "u2")
	assert.True(t, errors.HasReason(err, errors.ReasonNotHost))
	assert.Equal(t, errors.CodePermissionDenied, errors.Convert(err).Code)

	p, err := s.Start(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ss.SessionID, p.SessionID)
	assert.False(t, p.Finished)
	require.NotNil(t, p.Question)
	assert.Equal(t, "q1", p.Question.QuestionID)
	assert.Equal(t, 0, p.Question.Index)
	assert.Equal(t, 2, p.Question.Total)
	assert.Len(t, p.Question.Variants, 2)

	_, err = s.Start(ctx, "u1")
	assert.True(t, errors.HasReason(err, errors.ReasonInvalidTransition))

	cur, err := s.CurrentQuestion(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "q1", cur.Question.QuestionID)
}

func TestService_Start_BackendFailureKeepsGameWaiting(t *testing.T) {
	b := newFakeBackend()
	b.startErr = stderrors.New("backend down")
	s, store := makeService(t, b)

	ss := mustNewGame(t, s, "u1", "capitals")

	_, err := s.Start(context.Background(), "u1")
	assert.True(t, errors.HasReason(err, errors.ReasonExternalFailure))

	got, err := store.GetSession(ss.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaiting, got.Status)
}

func TestService_PlayGame(t *testing.T) {
	b := newFakeBackend()
	s, store := makeService(t, b)
	ctx := context.Background()

	ss := mustNewGame(t, s, "u1", "capitals")
	mustJoin(t, s, "u2")
	_, err := s.Start(ctx, "u1")
	require.NoError(t, err)

	resp := mustAnswer(t, s, "u1", "q1", "paris")
	assert.True(t, resp.Answer.IsCorrect)
	assert.Equal(t, 10, resp.Answer.PointsAwarded)
	assert.Equal(t, 10, resp.Player.Score)
	assert.Nil(t, resp.Next, "u2 has not answered yet")

	resp = mustAnswer(t, s, "u2", "q1", "lyon")
	assert.False(t, resp.Answer.IsCorrect)
	require.NotNil(t, resp.Next)
	require.NotNil(t, resp.Next.Question)
	assert.Equal(t, "q2", resp.Next.Question.QuestionID)
	assert.Equal(t, 1, resp.Next.Question.Index)

	mustAnswer(t, s, "u1", "q2", "rome")
	resp = mustAnswer(t, s, "u2", "q2", "rome")
	require.NotNil(t, resp.Next)
	assert.True(t, resp.Next.Finished)
	require.Len(t, resp.Next.Results, 2)
	assert.Equal(t, domain.Participant("u1"), resp.Next.Results[0].Participant)
	assert.Equal(t, 20, resp.Next.Results[0].Score)
	assert.Equal(t, domain.Participant("u2"), resp.Next.Results[1].Participant)
	assert.Equal(t, 10, resp.Next.Results[1].Score)

	_, err = store.GetSession(ss.SessionID)
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound), "finished game should be torn down")
	assert.Equal(t, int64(1), b.ended.Load())

	mustNewGame(t, s, "u1", "capitals")
}

func TestService_SubmitAnswer_Rejected(t *testing.T) {
	s, _ := makeService(t, newFakeBackend())
	ctx := context.Background()

	mustNewGame(t, s, "u1", "capitals")
	mustJoin(t, s, "u2")

	_, err := s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{Participant: "u1", QuestionID: "q1", VariantID: "paris"})
	assert.True(t, errors.HasReason(err, errors.ReasonInvalidState), "game has not started")

	_, err = s.Start(ctx, "u1")
	require.NoError(t, err)

	_, err = s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{Participant: "u1", QuestionID: "q2", VariantID: "rome"})
	assert.True(t, errors.HasReason(err, errors.ReasonInvalidState), "q2 is not asked yet")

	mustAnswer(t, s, "u1", "q1", "paris")

	_, err = s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{Participant: "u1", QuestionID: "q1", VariantID: "lyon"})
	assert.True(t, errors.HasReason(err, errors.ReasonAlreadyAnswered))

	_, err = s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{Participant: "u9", QuestionID: "q1", VariantID: "paris"})
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
}

func TestService_SkipsQuestionsWithoutVariants(t *testing.T) {
	tests := map[string]struct {
		pack   string
		assert func(t *testing.T, p *quiz.Progress)
	}{
		"should skip to the next question": {
			pack: "gaps",
			assert: func(t *testing.T, p *quiz.Progress) {
				require.NotNil(t, p.Question)
				assert.Equal(t, "q4", p.Question.QuestionID)
				assert.Equal(t, 1, p.Question.Index)
			},
		},

		"should end the game when no question can be asked": {
			pack: "blank",
			assert: func(t *testing.T, p *quiz.Progress) {
				assert.True(t, p.Finished)
				assert.Nil(t, p.Question)
				assert.Len(t, p.Results, 1)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, _ := makeService(t, newFakeBackend())
			mustNewGame(t, s, "u1", tt.pack)

			p, err := s.Start(context.Background(), "u1")
			require.NoError(t, err)
			tt.assert(t, p)
		})
	}
}

func TestService_Cancel(t *testing.T) {
	s, store := makeService(t, newFakeBackend())
	ctx := context.Background()

	ss := mustNewGame(t, s, "u1", "capitals")
	mustJoin(t, s, "u2")

	resp, err := s.Cancel(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, resp.Cancelled, "a player who is not the host only leaves")

	got, err := store.GetSession(ss.SessionID)
	require.NoError(t, err)
	assert.Len(t, got.Players, 1)

	resp, err = s.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)

	_, err = store.GetSession(ss.SessionID)
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
	_, err = store.GetSessionByParticipant("u1")
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
}

func TestService_Leave(t *testing.T) {
	s, store := makeService(t, newFakeBackend())
	ctx := context.Background()

	ss := mustNewGame(t, s, "u1", "capitals")
	mustJoin(t, s, "u2")
	_, err := s.Start(ctx, "u1")
	require.NoError(t, err)

	mustAnswer(t, s, "u1", "q1", "paris")

	resp, err := s.Leave(ctx, "u2")
	require.NoError(t, err)
	require.NotNil(t, resp.Next, "everyone left answered q1")
	assert.Equal(t, "q2", resp.Next.Question.QuestionID)

	resp, err = s.Leave(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, resp.Next)

	_, err = store.GetSession(ss.SessionID)
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound), "a game without players is removed")
}

func TestService_ConcurrentAnswers(t *testing.T) {
	s, _ := makeService(t, newFakeBackend())
	ctx := context.Background()

	const players = 20
	mustNewGame(t, s, "u0", "capitals")
	for i := 1; i < players; i++ {
		mustJoin(t, s, domain.Participant(fmt.Sprintf("u%d", i)))
	}
	_, err := s.Start(ctx, "u0")
	require.NoError(t, err)

	var advanced atomic.Int64
	var eg errgroup.Group
	for i := range players {
		eg.Go(func() error {
			resp, err := s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{
				Participant: domain.Participant(fmt.Sprintf("u%d", i)),
				QuestionID:  "q1",
				VariantID:   "paris",
			})
			if err != nil {
				return err
			}
			if resp.Next != nil {
				advanced.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, int64(1), advanced.Load(), "only the last answer should move the game on")

	cur, err := s.CurrentQuestion(ctx, "u0")
	require.NoError(t, err)
	assert.Equal(t, "q2", cur.Question.QuestionID)
}

func TestService_VariantsAreFetchedOnStart(t *testing.T) {
	b := newFakeBackend()
	s, _ := makeService(t, b)
	ctx := context.Background()

	mustNewGame(t, s, "u1", "capitals")
	_, err := s.Start(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.variantCalls.Load())

	_, err = s.CurrentQuestion(ctx, "u1")
	require.NoError(t, err)
	resp := mustAnswer(t, s, "u1", "q1", "paris")
	require.NotNil(t, resp.Next)
	assert.Len(t, resp.Next.Question.Variants, 2)

	assert.Equal(t, int64(2), b.variantCalls.Load(), "questions are presented from the variants fetched on start")
}

func TestService_EndingGameDoesNotBlockProgress(t *testing.T) {
	b := newFakeBackend()
	b.endGate = newGate()
	s, store := makeService(t, b)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ss := mustNewGame(t, s, "u1", "capitals")
	_, err := s.Start(ctx, "u1")
	require.NoError(t, err)
	mustAnswer(t, s, "u1", "q1", "paris")

	last := make(chan *quiz.SubmitAnswerResponse, 1)
	go func() {
		resp, err := s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{Participant: "u1", QuestionID: "q2", VariantID: "rome"})
		assert.NoError(t, err)
		last <- resp
	}()

	select {
	case <-b.endGate.entered:
	case <-ctx.Done():
		t.Fatal("game should be ending on the backend")
	}

	cur := make(chan *quiz.Progress, 1)
	go func() {
		p, err := s.CurrentQuestion(ctx, "u1")
		assert.NoError(t, err)
		cur <- p
	}()

	select {
	case p := <-cur:
		assert.True(t, p.Finished)
		require.Len(t, p.Results, 1)
		assert.Equal(t, 20, p.Results[0].Score)
	case <-time.After(time.Second):
		t.Fatal("reading the game should not wait for the backend to end it")
	}

	close(b.endGate.release)
	resp := <-last
	require.NotNil(t, resp)
	require.NotNil(t, resp.Next)
	assert.True(t, resp.Next.Finished)
	assert.Len(t, resp.Next.Results, 1)

	_, err = store.GetSession(ss.SessionID)
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
	assert.Equal(t, int64(1), b.ended.Load())
}

func TestService_SubmitAnswer_InFlight(t *testing.T) {
	b := newFakeBackend()
	b.submitGate = newGate()
	s, _ := makeService(t, b)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mustNewGame(t, s, "u1", "capitals")
	mustJoin(t, s, "u2")
	_, err := s.Start(ctx, "u1")
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{Participant: "u1", QuestionID: "q1", VariantID: "paris"})
		first <- err
	}()

	select {
	case <-b.submitGate.entered:
	case <-ctx.Done():
		t.Fatal("first answer should reach the backend")
	}

	_, err = s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{Participant: "u1", QuestionID: "q1", VariantID: "lyon"})
	assert.True(t, errors.HasReason(err, errors.ReasonAlreadyAnswered))
	assert.Equal(t, errors.CodeAlreadyExists, errors.Convert(err).Code)

	close(b.submitGate.release)
	require.NoError(t, <-first)
	assert.Equal(t, int64(1), b.submitCalls.Load(), "the backend should judge the answer once")

	_, err = s.SubmitAnswer(ctx, quiz.SubmitAnswerRequest{Participant: "u1", QuestionID: "q1", VariantID: "lyon"})
	assert.True(t, errors.HasReason(err, errors.ReasonAlreadyAnswered), "retry after the answer was recorded")
	assert.Equal(t, int64(1), b.submitCalls.Load())
}

func TestService_ResultsAfterTeardown(t *testing.T) {
	s, store := makeService(t, newFakeBackend())
	ctx := context.Background()

	ss := mustNewGame(t, s, "u1", "capitals")
	_, err := s.Start(ctx, "u1")
	require.NoError(t, err)
	mustAnswer(t, s, "u1", "q1", "paris")
	resp := mustAnswer(t, s, "u1", "q2", "milan")
	require.True(t, resp.Next.Finished)

	_, err = store.GetSession(ss.SessionID)
	require.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))

	res := s.Results(ctx, ss.SessionID)
	require.Len(t, res, 1)
	assert.Equal(t, domain.Participant("u1"), res[0].Participant)
	assert.Equal(t, 10, res[0].Score)

	assert.Empty(t, s.Results(ctx, "unknown"))
}

func TestService_PublishesEvents(t *testing.T) {
	eb := event.NewBus(event.Config{})

	var (
		mu    sync.Mutex
		names []string
	)
	for _, n := range []string{
		domain.EventNameSessionCreated,
		domain.EventNamePlayerJoined,
		domain.EventNameSessionStarted,
		domain.EventNameQuestionAdvanced,
		domain.EventNameAnswerRecorded,
		domain.EventNameSessionFinished,
		domain.EventNameSessionRemoved,
	} {
		eb.Subscribe(n, func(_ context.Context, e event.Event) error {
			mu.Lock()
			names = append(names, e.Name())
			mu.Unlock()
			return nil
		})
	}

	s := quiz.NewService(quiz.Config{
		Store:    game.NewStore(game.Config{}),
		Backend:  newFakeBackend(),
		EventBus: eb,
	})

	mustNewGame(t, s, "u1", "capitals")
	mustJoin(t, s, "u2")
	_, err := s.Start(context.Background(), "u1")
	require.NoError(t, err)
	for _, a := range [][2]string{{"q1", "lyon"}, {"q2", "rome"}} {
		mustAnswer(t, s, "u1", a[0], a[1])
		mustAnswer(t, s, "u2", a[0], a[1])
	}
	eb.Stop()

	count := func(n string) int {
		var c int
		for _, got := range names {
			if got == n {
				c++
			}
		}
		return c
	}

	assert.Equal(t, 1, count(domain.EventNameSessionCreated))
	assert.Equal(t, 1, count(domain.EventNamePlayerJoined))
	assert.Equal(t, 1, count(domain.EventNameSessionStarted))
	assert.Equal(t, 2, count(domain.EventNameQuestionAdvanced))
	assert.Equal(t, 4, count(domain.EventNameAnswerRecorded))
	assert.Equal(t, 1, count(domain.EventNameSessionFinished))
	assert.Equal(t, 1, count(domain.EventNameSessionRemoved))
}

func makeService(t *testing.T, b backend.Client) (*quiz.Service, *game.Store) {
	t.Helper()

	eb := event.NewBus(event.Config{})
	t.Cleanup(eb.Stop)

	store := game.NewStore(game.Config{})
	return quiz.NewService(quiz.Config{
		Store:    store,
		Backend:  b,
		EventBus: eb,
	}), store
}

func mustNewGame(t *testing.T, s *quiz.Service, p domain.Participant, pack string) *domain.Session {
	t.Helper()

	ss, err := s.NewGame(context.Background(), quiz.NewGameRequest{
		Participant: p,
		Name:        "name-" + string(p),
		PackID:      pack,
	})
	require.NoError(t, err)
	return ss
}

func mustJoin(t *testing.T, s *quiz.Service, p domain.Participant) {
	t.Helper()

	_, err := s.Join(context.Background(), quiz.JoinRequest{Participant: p, Name: "name-" + string(p)})
	require.NoError(t, err)
}

func mustAnswer(t *testing.T, s *quiz.Service, p domain.Participant, question, variant string) *quiz.SubmitAnswerResponse {
	t.Helper()

	resp, err := s.SubmitAnswer(context.Background(), quiz.SubmitAnswerRequest{
		Participant: p,
		QuestionID:  question,
		VariantID:   variant,
	})
	require.NoError(t, err)
	return resp
}

type fakeBackend struct {
	*backend.Memory

	addPlayerErr error
	startErr     error
	ended        atomic.Int64
	variantCalls atomic.Int64
	submitCalls  atomic.Int64

	// When set, the call signals on entered and waits for release to close.
	endGate    *gate
	submitGate *gate
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gate) pass(ctx context.Context) error {
	if g == nil {
		return nil
	}

	select {
	case g.entered <- struct{}{}:
	default:
	}

	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		Memory: backend.NewMemory(backend.MemoryConfig{
			Packs: []backend.PackConfig{
				{
					ID:    "capitals",
					Title: "Capitals",
					Questions: []backend.QuestionConfig{
						{ID: "q1", Text: "Capital of France?", Variants: []backend.VariantConfig{
							{ID: "paris", Text: "Paris", Correct: true},
							{ID: "lyon", Text: "Lyon"},
						}},
						{ID: "q2", Text: "Capital of Italy?", Variants: []backend.VariantConfig{
							{ID: "milan", Text: "Milan"},
							{ID: "rome", Text: "Rome", Correct: true},
						}},
					},
				},
				{ID: "empty", Title: "Empty"},
				{
					ID:    "gaps",
					Title: "Gaps",
					Questions: []backend.QuestionConfig{
						{ID: "q3", Text: "No variants"},
						{ID: "q4", Text: "2+2?", Variants: []backend.VariantConfig{
							{ID: "four", Text: "4", Correct: true},
						}},
					},
				},
				{
					ID:    "blank",
					Title: "Blank",
					Questions: []backend.QuestionConfig{
						{ID: "q5", Text: "No variants"},
					},
				},
			},
		}),
	}
}

func (f *fakeBackend) AddPlayer(ctx context.Context, sessionID, name string) (*backend.Player, error) {
	if f.addPlayerErr != nil {
		return nil, f.addPlayerErr
	}
	return f.Memory.AddPlayer(ctx, sessionID, name)
}

func (f *fakeBackend) StartGameSession(ctx context.Context, sessionID string) error {
	if f.startErr != nil {
		return f.startErr
	}
	return f.Memory.StartGameSession(ctx, sessionID)
}

func (f *fakeBackend) EndGameSession(ctx context.Context, sessionID string) error {
	f.ended.Add(1)
	if err := f.endGate.pass(ctx); err != nil {
		return err
	}
	return f.Memory.EndGameSession(ctx, sessionID)
}

func (f *fakeBackend) ListVariants(ctx context.Context, questionID string) ([]domain.Variant, error) {
	f.variantCalls.Add(1)
	return f.Memory.ListVariants(ctx, questionID)
}

func (f *fakeBackend) SubmitAnswer(ctx context.Context, req backend.SubmitAnswerRequest) (*domain.Judgement, error) {
	f.submitCalls.Add(1)
	if err := f.submitGate.pass(ctx); err != nil {
		return nil, err
	}
	return f.Memory.SubmitAnswer(ctx, req)
}
