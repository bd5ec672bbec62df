// Package notify pushes game events to every member of a session over Redis
// pub/sub. Each participant has its own channel, <prefix>:user:<participant>,
// which chat front ends subscribe to.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/event"
)

const maxConcurrent = 100

type Config struct {
	EventBus *event.Bus
	Redis    Redis
	Prefix   string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type Notifier struct {
	redis  Redis
	prefix string
}

func New(c Config) *Notifier {
	n := &Notifier{
		redis:  c.Redis,
		prefix: c.Prefix,
	}

	event.Handle(c.EventBus, n.PlayerJoined)
	event.Handle(c.EventBus, n.PlayerLeft)
	event.Handle(c.EventBus, n.SessionStarted)
	event.Handle(c.EventBus, n.QuestionAdvanced)
	event.Handle(c.EventBus, n.SessionFinished)
	event.Handle(c.EventBus, n.SessionRemoved)
	event.Handle(c.EventBus, n.LeaderboardUpdated)

	return n
}

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Member struct {
		Participant string `json:"participant"`
		Name        string `json:"name"`
	}

	Membership struct {
		SessionID string   `json:"session_id"`
		Player    Member   `json:"player"`
		Members   []Member `json:"members"`
	}

	Game struct {
		SessionID string   `json:"session_id"`
		PackID    string   `json:"pack_id"`
		Questions int      `json:"questions"`
		Members   []Member `json:"members"`
	}

	Question struct {
		SessionID  string `json:"session_id"`
		Index      int    `json:"index"`
		Total      int    `json:"total"`
		QuestionID string `json:"question_id"`
		Text       string `json:"text"`
		ImageURL   string `json:"image_url,omitempty"`
	}

	Results struct {
		SessionID string   `json:"session_id"`
		Results   []Result `json:"results"`
	}

	Result struct {
		Participant string `json:"participant"`
		Name        string `json:"name"`
		Score       int    `json:"score"`
		Correct     int    `json:"correct"`
		Accuracy    string `json:"accuracy"`
	}

	Removed struct {
		SessionID string `json:"session_id"`
		Cancelled bool   `json:"cancelled"`
	}

	Leaderboard struct {
		SessionID string             `json:"session_id"`
		Entries   []LeaderboardEntry `json:"entries"`
	}

	LeaderboardEntry struct {
		Participant string `json:"participant"`
		Score       string `json:"score"`
	}
)

func (n *Notifier) PlayerJoined(ctx context.Context, e domain.EventPlayerJoined) error {
	data := Membership{
		SessionID: e.SessionID,
		Player:    toMember(e.Player),
		Members:   toMembers(e.Members),
	}
	return n.publish(ctx, participants(e.Members), e.Name(), data)
}

func (n *Notifier) PlayerLeft(ctx context.Context, e domain.EventPlayerLeft) error {
	data := Membership{
		SessionID: e.SessionID,
		Player:    Member{Participant: string(e.Participant)},
		Members:   toMembers(e.Members),
	}
	return n.publish(ctx, participants(e.Members), e.Name(), data)
}

func (n *Notifier) SessionStarted(ctx context.Context, e domain.EventSessionStarted) error {
	ss := e.Session

	data := Game{
		SessionID: ss.SessionID,
		PackID:    ss.PackID,
		Questions: len(ss.Questions),
		Members:   make([]Member, 0, len(ss.Players)),
	}
	to := make([]domain.Participant, 0, len(ss.Players))
	for _, p := range ss.Players {
		data.Members = append(data.Members, Member{Participant: string(p.Participant), Name: p.Name})
		to = append(to, p.Participant)
	}

	return n.publish(ctx, to, e.Name(), data)
}

func (n *Notifier) QuestionAdvanced(ctx context.Context, e domain.EventQuestionAdvanced) error {
	data := Question{
		SessionID:  e.SessionID,
		Index:      e.Index,
		Total:      e.Total,
		QuestionID: e.Question.QuestionID,
		Text:       e.Question.Text,
		ImageURL:   e.Question.ImageURL,
	}
	return n.publish(ctx, participants(e.Members), e.Name(), data)
}

func (n *Notifier) SessionFinished(ctx context.Context, e domain.EventSessionFinished) error {
	data := Results{
		SessionID: e.Session.SessionID,
		Results:   make([]Result, 0, len(e.Results)),
	}
	to := make([]domain.Participant, 0, len(e.Results))
	for _, r := range e.Results {
		data.Results = append(data.Results, Result{
			Participant: string(r.Participant),
			Name:        r.Name,
			Score:       r.Score,
			Correct:     r.Correct,
			Accuracy:    r.Accuracy.String(),
		})
		to = append(to, r.Participant)
	}

	return n.publish(ctx, to, e.Name(), data)
}

// SessionRemoved only notifies cancelled games. Finished games were already
// announced with their results.
func (n *Notifier) SessionRemoved(ctx context.Context, e domain.EventSessionRemoved) error {
	if !e.Cancelled {
		return nil
	}

	data := Removed{SessionID: e.SessionID, Cancelled: true}
	return n.publish(ctx, participants(e.Members), e.Name(), data)
}

func (n *Notifier) LeaderboardUpdated(ctx context.Context, e domain.EventLeaderboardUpdated) error {
	l := e.Leaderboard

	data := Leaderboard{
		SessionID: l.SessionID,
		Entries:   make([]LeaderboardEntry, 0, len(l.Entries)),
	}
	to := make([]domain.Participant, 0, len(l.Entries))
	for _, entry := range l.Entries {
		data.Entries = append(data.Entries, LeaderboardEntry{
			Participant: string(entry.Participant),
			Score:       strconv.FormatFloat(entry.Score, 'f', -1, 64),
		})
		to = append(to, entry.Participant)
	}

	return n.publish(ctx, to, e.Name(), data)
}

func (n *Notifier) publish(ctx context.Context, to []domain.Participant, name string, data any) error {
	b, err := json.Marshal(Notification{
		Event: name,
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", name, err)
	}

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, p := range to {
		eg.Go(func() error {
			return n.redis.Publish(ctx, n.Channel(p), b).Err()
		})
	}

	return eg.Wait()
}

// Channel is the pub/sub channel of a participant.
func (n *Notifier) Channel(p domain.Participant) string {
	return fmt.Sprintf("%s:user:%s", n.prefix, p)
}

func participants(ms []domain.Member) []domain.Participant {
	out := make([]domain.Participant, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Participant)
	}
	return out
}

func toMember(m domain.Member) Member {
	return Member{Participant: string(m.Participant), Name: m.Name}
}

func toMembers(ms []domain.Member) []Member {
	out := make([]Member, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMember(m))
	}
	return out
}
