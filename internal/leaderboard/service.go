package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
	"github.com/victornm/quizbot/internal/event"
)

const (
	publishInterval = 200 * time.Millisecond
	defaultTTL      = 24 * time.Hour
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string

	// TTL bounds how long the keys of a session live in redis, even when
	// the session is never torn down. Defaults to 24h.
	TTL time.Duration
}

type Service struct {
	eb     *event.Bus
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewService(c Config) *Service {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}

	s := &Service{
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}

	event.Handle(s.eb, s.UpdateLeaderboard)
	event.Handle(s.eb, s.DeleteLeaderboard)

	return s
}

type GetLeaderboardRequest struct {
	SessionID string
}

// GetLeaderboard returns the live scores of a session, including every player who answered.
func (s *Service) GetLeaderboard(ctx context.Context, req GetLeaderboardRequest) (*domain.Leaderboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.getLeaderboardKey(req.SessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonSessionNotFound),
			errors.WithMessagef("leaderboard not found: session=%s", req.SessionID),
		)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for _, z := range res {
		entries = append(entries, domain.LeaderboardEntry{
			Participant: domain.Participant(z.Member.(string)),
			Score:       z.Score,
		})
	}

	return &domain.Leaderboard{
		SessionID: req.SessionID,
		Entries:   entries,
	}, nil
}

// UpdateLeaderboard overwrites the player's score in the leaderboard.
func (s *Service) UpdateLeaderboard(ctx context.Context, e domain.EventAnswerRecorded) error {
	key := s.getLeaderboardKey(e.SessionID)

	var removed *redis.IntCmd
	if _, err := s.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{
			Score:  float64(e.Player.Score),
			Member: string(e.Player.Participant),
		})
		p.Expire(ctx, key, s.ttl)
		removed = p.Exists(ctx, s.getRemovedKey(e.SessionID))
		return nil
	}); err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	// The session was torn down while the answer was in flight. The
	// tombstone is read after the write, so either this write or the teardown
	// deletes the keys.
	if removed.Val() > 0 {
		if err := s.redis.Del(ctx, key, s.getLeaderboardTimeKey(e.SessionID)).Err(); err != nil {
			return fmt.Errorf("update leaderboard: drop removed session=%s: %w", e.SessionID, err)
		}
		return nil
	}

	return s.schedulePublishLeaderboard(ctx, e.SessionID, e.Answer.SubmittedAt)
}

// DeleteLeaderboard drops the live scores of a session that was torn down.
func (s *Service) DeleteLeaderboard(ctx context.Context, e domain.EventSessionRemoved) error {
	// Tombstone first. Answers recorded after it see it and clean up behind
	// themselves.
	if err := s.redis.Set(ctx, s.getRemovedKey(e.SessionID), 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("delete leaderboard: mark removed session=%s: %w", e.SessionID, err)
	}

	if err := s.redis.Del(ctx, s.getLeaderboardKey(e.SessionID), s.getLeaderboardTimeKey(e.SessionID)).Err(); err != nil {
		return fmt.Errorf("delete leaderboard: session=%s: %w", e.SessionID, err)
	}
	return nil
}

// schedulePublishLeaderboard publishes at most one leaderboard.updated per
// session every publishInterval. Many answers land at the same time near the
// end of a question.
func (s *Service) schedulePublishLeaderboard(ctx context.Context, sessionID string, at time.Time) error {
	// SETNX keeps several instances from publishing the same window twice.
	ok, err := s.redis.SetNX(ctx, s.getLeaderboardTimeKey(sessionID), at.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	return s.publishLeaderboard(ctx, sessionID)
}

func (s *Service) publishLeaderboard(ctx context.Context, sessionID string) error {
	l, err := s.GetLeaderboard(ctx, GetLeaderboardRequest{
		SessionID: sessionID,
	})
	if err != nil {
		return fmt.Errorf("get leaderboard failed: session=%s: %w", sessionID, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{
		Leaderboard: *l,
	})

	return nil
}

func (s *Service) getLeaderboardKey(session string) string {
	return fmt.Sprintf("%s:%s:leaderboard", s.prefix, session)
}

func (s *Service) getLeaderboardTimeKey(session string) string {
	return fmt.Sprintf("%s:%s:time", s.prefix, session)
}

func (s *Service) getRemovedKey(session string) string {
	return fmt.Sprintf("%s:%s:removed", s.prefix, session)
}
