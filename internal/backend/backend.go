// Package backend talks to the game backend that owns packs, questions and
// answer judging. Values coming from the backend are converted to domain
// types here, so nothing outside this package holds backend-owned data.
package backend

import (
	"context"

	"github.com/victornm/quizbot/internal/domain"
)

// Client is the contract of the game backend.
type Client interface {
	ListPacks(ctx context.Context) ([]domain.Pack, error)
	CreateGameSession(ctx context.Context, packID string) (*GameSession, error)
	StartGameSession(ctx context.Context, sessionID string) error
	EndGameSession(ctx context.Context, sessionID string) error
	ListQuestions(ctx context.Context, packID string) ([]domain.Question, error)
	ListVariants(ctx context.Context, questionID string) ([]domain.Variant, error)
	AddPlayer(ctx context.Context, sessionID, name string) (*Player, error)
	SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*domain.Judgement, error)
}

type GameSession struct {
	SessionID string
	PackID    string
}

type Player struct {
	PlayerID string
	Name     string
}

type SubmitAnswerRequest struct {
	PlayerID   string
	QuestionID string
	VariantID  string
}
