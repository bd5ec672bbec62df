package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
)

func TestStore_CreateSession(t *testing.T) {
	now := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(Config{Now: func() time.Time { return now }})

	ss, err := s.CreateSession(CreateSessionRequest{SessionID: "s1", PackID: "p1", Host: "u1"})
	require.NoError(t, err)

	assert.Equal(t, domain.Session{
		SessionID: "s1",
		PackID:    "p1",
		Host:      "u1",
		Status:    domain.StatusWaiting,
		Players:   []domain.Player{},
		CreatedAt: now,
	}, ss)

	_, err = s.CreateSession(CreateSessionRequest{SessionID: "s1", PackID: "p2"})
	require.True(t, errors.HasReason(err, errors.ReasonSessionExists), "duplicate id should fail: %v", err)

	got, err := s.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.PackID, "existing session should be untouched")
}

func TestStore_CreateSession_GeneratesID(t *testing.T) {
	s := NewStore(Config{})

	a, err := s.CreateSession(CreateSessionRequest{PackID: "p1"})
	require.NoError(t, err)
	b, err := s.CreateSession(CreateSessionRequest{PackID: "p1"})
	require.NoError(t, err)

	assert.NotEmpty(t, a.SessionID)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

func TestStore_GetSession_NotFound(t *testing.T) {
	s := NewStore(Config{})

	_, err := s.GetSession("missing")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.Convert(err).Code)
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
}

func TestStore_GetSessionByParticipant(t *testing.T) {
	s := NewStore(Config{})
	mustCreate(t, s, "s1", nil)
	mustJoin(t, s, "s1", "u1")

	ss, err := s.GetSessionByParticipant("u1")
	require.NoError(t, err)
	assert.Equal(t, "s1", ss.SessionID)

	_, err = s.GetSessionByParticipant("u2")
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s := NewStore(Config{})
	mustCreate(t, s, "s1", []string{"q1", "q2"})
	mustJoin(t, s, "s1", "u1")

	ss, err := s.GetSession("s1")
	require.NoError(t, err)

	ss.Questions[0].QuestionID = "changed"
	ss.Players[0].Score = 100

	again, err := s.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "q1", again.Questions[0].QuestionID)
	assert.Zero(t, again.Players[0].Score)
}

func TestStore_RemoveSession(t *testing.T) {
	s := NewStore(Config{})
	mustCreate(t, s, "s1", nil)
	mustCreate(t, s, "s2", nil)
	mustJoin(t, s, "s1", "u1")
	mustJoin(t, s, "s1", "u2")
	mustJoin(t, s, "s2", "u3")

	last, ok := s.RemoveSession("s1")
	require.True(t, ok)
	assert.Len(t, last.Players, 2)

	assert.Zero(t, s.index.pointingAt("s1"), "no participant should resolve to a removed session")
	assert.Equal(t, 1, s.index.size())

	_, err := s.GetSession("s1")
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
	_, err = s.GetSessionByParticipant("u1")
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))

	_, ok = s.RemoveSession("s1")
	assert.False(t, ok, "removing twice should be a no-op")

	// Released participants can join again.
	mustCreate(t, s, "s3", nil)
	mustJoin(t, s, "s3", "u1")
}

func TestStore_RemoveSession_StaleReferenceAfterRecreate(t *testing.T) {
	s := NewStore(Config{})
	mustCreate(t, s, "s1", nil)
	mustJoin(t, s, "s1", "u1")
	s.RemoveSession("s1")

	mustCreate(t, s, "s1", nil)
	ss, err := s.GetSession("s1")
	require.NoError(t, err)
	assert.Empty(t, ss.Players, "a recreated id should not inherit players")

	_, err = s.GetSessionByParticipant("u1")
	assert.Error(t, err)
}

func TestStore_WaitingSessions(t *testing.T) {
	s := NewStore(Config{})
	mustCreate(t, s, "s1", []string{"q1"})
	mustCreate(t, s, "s2", nil)
	mustCreate(t, s, "s3", nil)

	_, err := s.Start("s1")
	require.NoError(t, err)
	s.RemoveSession("s3")

	got := s.WaitingSessions()
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].SessionID)

	mustCreate(t, s, "s4", nil)
	mustCreate(t, s, "s5", nil)
	ids := make([]string, 0)
	for _, ss := range s.WaitingSessions() {
		ids = append(ids, ss.SessionID)
	}
	assert.Equal(t, []string{"s2", "s4", "s5"}, ids, "oldest first")
}

func TestStore_Members(t *testing.T) {
	s := NewStore(Config{})
	mustCreate(t, s, "s1", nil)
	mustJoin(t, s, "s1", "u2")
	mustJoin(t, s, "s1", "u1")

	ms, err := s.Members("s1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Member{
		{Participant: "u2", PlayerID: "player-u2", Name: "name-u2"},
		{Participant: "u1", PlayerID: "player-u1", Name: "name-u1"},
	}, ms)

	_, err = s.Members("missing")
	assert.Error(t, err)
}

func TestStore_ConcurrentJoinsAcrossSessions(t *testing.T) {
	s := NewStore(Config{})

	const sessions = 8
	for i := range sessions {
		mustCreate(t, s, fmt.Sprintf("s%d", i), nil)
	}

	// Every participant tries to join every session at the same time.
	var (
		eg     errgroup.Group
		mu     sync.Mutex
		joined = make(map[domain.Participant]int)
	)
	for u := range 20 {
		for i := range sessions {
			p := domain.Participant(fmt.Sprintf("u%d", u))
			id := fmt.Sprintf("s%d", i)
			eg.Go(func() error {
				_, err := s.AddParticipant(AddParticipantRequest{SessionID: id, Participant: p, Name: string(p)})
				switch {
				case err == nil:
					mu.Lock()
					joined[p]++
					mu.Unlock()
				case !errors.HasReason(err, errors.ReasonAlreadyMember):
					return err
				}
				return nil
			})
		}
	}
	require.NoError(t, eg.Wait())

	require.Len(t, joined, 20)
	for p, n := range joined {
		assert.Equal(t, 1, n, "participant %s should be in exactly one session", p)
	}
	assert.Equal(t, 20, s.index.size())

	total := 0
	for i := range sessions {
		ss, err := s.GetSession(fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		total += len(ss.Players)
	}
	assert.Equal(t, 20, total)
}

func TestStore_ConcurrentCancelAndAdvance(t *testing.T) {
	s := NewStore(Config{})
	mustCreate(t, s, "s1", []string{"q1", "q2", "q3"})
	mustJoin(t, s, "s1", "u1")
	mustJoin(t, s, "s1", "u2")
	_, err := s.Start("s1")
	require.NoError(t, err)

	var eg errgroup.Group
	for range 10 {
		eg.Go(func() error {
			_, err := s.Advance("s1")
			if err != nil && !errors.HasReason(err, errors.ReasonSessionNotFound) && !errors.HasReason(err, errors.ReasonInvalidState) {
				return err
			}
			return nil
		})
	}
	eg.Go(func() error {
		_, err := s.Cancel("s1")
		return err
	})
	require.NoError(t, eg.Wait())

	_, err = s.GetSession("s1")
	assert.True(t, errors.HasReason(err, errors.ReasonSessionNotFound))
	assert.Zero(t, s.index.size())
}

func mustCreate(t *testing.T, s *Store, id string, questions []string) {
	t.Helper()

	_, err := s.CreateSession(CreateSessionRequest{SessionID: id, PackID: "pack"})
	require.NoError(t, err)

	if len(questions) == 0 {
		return
	}

	qs := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, domain.Question{QuestionID: q, Text: "text " + q})
	}
	require.NoError(t, s.SetQuestions(id, qs))
}

func mustJoin(t *testing.T, s *Store, id string, p domain.Participant) {
	t.Helper()

	_, err := s.AddParticipant(AddParticipantRequest{
		SessionID:   id,
		Participant: p,
		PlayerID:    "player-" + string(p),
		Name:        "name-" + string(p),
	})
	require.NoError(t, err)
}
