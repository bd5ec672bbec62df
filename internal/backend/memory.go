package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/victornm/quizbot/internal/domain"
)

const defaultPointsPerCorrectAnswer = 10

type (
	PackConfig struct {
		ID        string
		Title     string
		Questions []QuestionConfig
	}

	QuestionConfig struct {
		ID       string
		Text     string
		ImageURL string
		Variants []VariantConfig
	}

	VariantConfig struct {
		ID      string
		Text    string
		Correct bool
	}
)

type MemoryConfig struct {
	Packs []PackConfig
	// PointsPerCorrectAnswer defaults to 10.
	PointsPerCorrectAnswer int
}

// Memory is an in-process backend serving a fixed catalogue. It is meant for
// local runs and tests.
type Memory struct {
	points int

	packs     []PackConfig
	questions map[string]QuestionConfig
	variants  map[string]map[string]VariantConfig

	mu       sync.Mutex
	sessions map[string]*memorySession
	players  map[string]string
}

type memorySession struct {
	packID   string
	started  bool
	finished bool
}

func NewMemory(c MemoryConfig) *Memory {
	points := c.PointsPerCorrectAnswer
	if points <= 0 {
		points = defaultPointsPerCorrectAnswer
	}

	m := &Memory{
		points:    points,
		packs:     c.Packs,
		questions: make(map[string]QuestionConfig),
		variants:  make(map[string]map[string]VariantConfig),
		sessions:  make(map[string]*memorySession),
		players:   make(map[string]string),
	}

	for _, p := range c.Packs {
		for _, q := range p.Questions {
			m.questions[q.ID] = q
			vs := make(map[string]VariantConfig, len(q.Variants))
			for _, v := range q.Variants {
				vs[v.ID] = v
			}
			m.variants[q.ID] = vs
		}
	}

	return m
}

func (m *Memory) ListPacks(_ context.Context) ([]domain.Pack, error) {
	out := make([]domain.Pack, 0, len(m.packs))
	for _, p := range m.packs {
		out = append(out, domain.Pack{PackID: p.ID, Title: p.Title})
	}
	return out, nil
}

func (m *Memory) CreateGameSession(_ context.Context, packID string) (*GameSession, error) {
	if _, ok := m.pack(packID); !ok {
		return nil, fmt.Errorf("create game session: pack not found: pack=%s", packID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("create game session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id.String()] = &memorySession{packID: packID}
	m.mu.Unlock()

	return &GameSession{SessionID: id.String(), PackID: packID}, nil
}

func (m *Memory) StartGameSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("start game session: session not found: session=%s", sessionID)
	}
	if s.started {
		return fmt.Errorf("start game session: already started: session=%s", sessionID)
	}
	s.started = true
	return nil
}

func (m *Memory) EndGameSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("end game session: session not found: session=%s", sessionID)
	}
	s.finished = true
	return nil
}

func (m *Memory) ListQuestions(_ context.Context, packID string) ([]domain.Question, error) {
	p, ok := m.pack(packID)
	if !ok {
		return nil, fmt.Errorf("list questions: pack not found: pack=%s", packID)
	}

	out := make([]domain.Question, 0, len(p.Questions))
	for _, q := range p.Questions {
		out = append(out, domain.Question{QuestionID: q.ID, Text: q.Text, ImageURL: q.ImageURL})
	}
	return out, nil
}

func (m *Memory) ListVariants(_ context.Context, questionID string) ([]domain.Variant, error) {
	q, ok := m.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("list variants: question not found: question=%s", questionID)
	}

	out := make([]domain.Variant, 0, len(q.Variants))
	for _, v := range q.Variants {
		out = append(out, domain.Variant{VariantID: v.ID, Text: v.Text})
	}
	return out, nil
}

func (m *Memory) AddPlayer(_ context.Context, sessionID, name string) (*Player, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("add player: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("add player: session not found: session=%s", sessionID)
	}
	if s.finished {
		return nil, fmt.Errorf("add player: session finished: session=%s", sessionID)
	}

	m.players[id.String()] = sessionID
	return &Player{PlayerID: id.String(), Name: name}, nil
}

func (m *Memory) SubmitAnswer(_ context.Context, req SubmitAnswerRequest) (*domain.Judgement, error) {
	m.mu.Lock()
	_, ok := m.players[req.PlayerID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("submit answer: player not found: player=%s", req.PlayerID)
	}

	v, ok := m.variants[req.QuestionID][req.VariantID]
	if !ok {
		return nil, fmt.Errorf("submit answer: variant not found: question=%s variant=%s", req.QuestionID, req.VariantID)
	}

	if !v.Correct {
		return &domain.Judgement{}, nil
	}
	return &domain.Judgement{IsCorrect: true, Points: m.points}, nil
}

func (m *Memory) pack(id string) (PackConfig, bool) {
	for _, p := range m.packs {
		if p.ID == id {
			return p, true
		}
	}
	return PackConfig{}, false
}
