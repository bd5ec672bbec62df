// Package archive keeps the final results of finished games in Postgres, so
// they outlive the in-memory session.
package archive

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/errors"
	"github.com/victornm/quizbot/internal/event"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Config struct {
	EventBus *event.Bus
	DB       *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	s := &Service{
		db: c.DB,
	}

	event.Handle(c.EventBus, s.SaveResults)

	return s
}

// Migrate applies the schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	goose.SetTableName("goose_db_version")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	return nil
}

// SaveResults archives a finished game. Saving the same game again is a no-op.
func (s *Service) SaveResults(ctx context.Context, e domain.EventSessionFinished) (err error) {
	ss := e.Session
	if ss.FinishedAt == nil {
		return fmt.Errorf("save results: session is not finished: session=%s", ss.SessionID)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insGameStmt = `
INSERT INTO game_results (session_id, pack_id, host, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id) DO NOTHING;`

		insPlayerStmt = `
INSERT INTO player_results (session_id, participant, player_id, name, rank, score, correct, answered, accuracy)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`
	)

	tag, err := tx.Exec(ctx, insGameStmt, ss.SessionID, ss.PackID, string(ss.Host), ss.StartedAt, *ss.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return tx.Rollback(ctx)
	}

	b := &pgx.Batch{}
	for i, r := range e.Results {
		b.Queue(insPlayerStmt, ss.SessionID, string(r.Participant), r.PlayerID, r.Name, i+1, r.Score, r.Correct, len(r.Answers), r.Accuracy)
	}
	if err = tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("insert players: %w", err)
	}

	return tx.Commit(ctx)
}

type ListResultsRequest struct {
	SessionID string
}

// ListResults returns the archived results of a game, best first. Answers are
// not archived.
func (s *Service) ListResults(ctx context.Context, req ListResultsRequest) ([]domain.Result, error) {
	const stmt = `
SELECT participant, player_id, name, score, correct, accuracy
FROM player_results
WHERE session_id = $1
ORDER BY rank;`

	rows, err := s.db.Query(ctx, stmt, req.SessionID)
	if err != nil {
		return nil, err
	}

	results, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Result, error) {
		var (
			res domain.Result
			p   string
		)
		if err := r.Scan(&p, &res.PlayerID, &res.Name, &res.Score, &res.Correct, &res.Accuracy); err != nil {
			return domain.Result{}, err
		}
		res.Participant = domain.Participant(p)
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonSessionNotFound),
			errors.WithMessagef("no archived results: session=%s", req.SessionID),
		)
	}

	return results, nil
}

// GameSummary describes an archived game.
type GameSummary struct {
	SessionID  string
	PackID     string
	Host       domain.Participant
	Players    int
	Winner     domain.Participant
	TopScore   int
	AvgScore   decimal.Decimal
	StartedAt  *time.Time
	FinishedAt time.Time
}

type GetGameRequest struct {
	SessionID string
}

func (s *Service) GetGame(ctx context.Context, req GetGameRequest) (*GameSummary, error) {
	const stmt = `
SELECT g.session_id, g.pack_id, g.host, g.started_at, g.finished_at,
       COUNT(p.participant),
       COALESCE(MAX(p.score), 0),
       COALESCE(AVG(p.score), 0)::NUMERIC(10, 2),
       COALESCE((SELECT w.participant FROM player_results w WHERE w.session_id = g.session_id ORDER BY w.rank LIMIT 1), '')
FROM game_results g
LEFT JOIN player_results p ON p.session_id = g.session_id
WHERE g.session_id = $1
GROUP BY g.session_id;`

	var (
		gs         GameSummary
		host, best string
	)
	err := s.db.QueryRow(ctx, stmt, req.SessionID).Scan(
		&gs.SessionID, &gs.PackID, &host, &gs.StartedAt, &gs.FinishedAt,
		&gs.Players, &gs.TopScore, &gs.AvgScore, &best,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonSessionNotFound),
			errors.WithMessagef("game not archived: session=%s", req.SessionID),
		)
	}
	if err != nil {
		return nil, err
	}

	gs.Host = domain.Participant(host)
	gs.Winner = domain.Participant(best)
	return &gs, nil
}
