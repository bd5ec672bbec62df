package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/victornm/quizbot/internal/domain"
)

const defaultTimeout = 5 * time.Second

// HTTPClient calls the backend JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client, Timeout is then ignored.
	HTTPClient *http.Client
}

func NewHTTPClient(c HTTPConfig) *HTTPClient {
	hc := c.HTTPClient
	if hc == nil {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(c.BaseURL, "/"),
		http:    hc,
	}
}

type (
	packJSON struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	sessionJSON struct {
		ID     string `json:"id"`
		PackID string `json:"pack_id"`
	}

	questionJSON struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		ImageURL string `json:"image_url,omitempty"`
	}

	variantJSON struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}

	playerJSON struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	createSessionJSON struct {
		PackID string `json:"pack_id"`
	}

	addPlayerJSON struct {
		Name string `json:"player_name"`
	}

	submitAnswerJSON struct {
		PlayerID   string `json:"player_id"`
		QuestionID string `json:"question_id"`
		VariantID  string `json:"variant_id"`
	}

	judgementJSON struct {
		IsCorrect bool `json:"is_correct"`
		Points    int  `json:"points"`
	}
)

func (c *HTTPClient) ListPacks(ctx context.Context) ([]domain.Pack, error) {
	packs, err := call[[]packJSON](ctx, c, http.MethodGet, "/packs", nil)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}

	out := make([]domain.Pack, 0, len(packs))
	for _, p := range packs {
		out = append(out, domain.Pack{PackID: p.ID, Title: p.Title})
	}
	return out, nil
}

func (c *HTTPClient) CreateGameSession(ctx context.Context, packID string) (*GameSession, error) {
	s, err := call[sessionJSON](ctx, c, http.MethodPost, "/games", createSessionJSON{PackID: packID})
	if err != nil {
		return nil, fmt.Errorf("create game session: pack=%s: %w", packID, err)
	}

	if s.ID == "" {
		return nil, fmt.Errorf("create game session: pack=%s: empty session id", packID)
	}

	return &GameSession{SessionID: s.ID, PackID: s.PackID}, nil
}

func (c *HTTPClient) StartGameSession(ctx context.Context, sessionID string) error {
	if _, err := call[json.RawMessage](ctx, c, http.MethodPost, "/games/"+url.PathEscape(sessionID)+"/start", nil); err != nil {
		return fmt.Errorf("start game session: session=%s: %w", sessionID, err)
	}
	return nil
}

func (c *HTTPClient) EndGameSession(ctx context.Context, sessionID string) error {
	if _, err := call[json.RawMessage](ctx, c, http.MethodPost, "/games/"+url.PathEscape(sessionID)+"/end", nil); err != nil {
		return fmt.Errorf("end game session: session=%s: %w", sessionID, err)
	}
	return nil
}

func (c *HTTPClient) ListQuestions(ctx context.Context, packID string) ([]domain.Question, error) {
	qs, err := call[[]questionJSON](ctx, c, http.MethodGet, "/packs/"+url.PathEscape(packID)+"/questions", nil)
	if err != nil {
		return nil, fmt.Errorf("list questions: pack=%s: %w", packID, err)
	}

	out := make([]domain.Question, 0, len(qs))
	for _, q := range qs {
		out = append(out, domain.Question{QuestionID: q.ID, Text: q.Text, ImageURL: q.ImageURL})
	}
	return out, nil
}

func (c *HTTPClient) ListVariants(ctx context.Context, questionID string) ([]domain.Variant, error) {
	vs, err := call[[]variantJSON](ctx, c, http.MethodGet, "/questions/"+url.PathEscape(questionID)+"/variants", nil)
	if err != nil {
		return nil, fmt.Errorf("list variants: question=%s: %w", questionID, err)
	}

	out := make([]domain.Variant, 0, len(vs))
	for _, v := range vs {
		out = append(out, domain.Variant{VariantID: v.ID, Text: v.Text})
	}
	return out, nil
}

func (c *HTTPClient) AddPlayer(ctx context.Context, sessionID, name string) (*Player, error) {
	p, err := call[playerJSON](ctx, c, http.MethodPost, "/games/"+url.PathEscape(sessionID)+"/players", addPlayerJSON{Name: name})
	if err != nil {
		return nil, fmt.Errorf("add player: session=%s: %w", sessionID, err)
	}

	if p.ID == "" {
		return nil, fmt.Errorf("add player: session=%s: empty player id", sessionID)
	}

	return &Player{PlayerID: p.ID, Name: p.Name}, nil
}

func (c *HTTPClient) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*domain.Judgement, error) {
	j, err := call[judgementJSON](ctx, c, http.MethodPost, "/answers", submitAnswerJSON{
		PlayerID:   req.PlayerID,
		QuestionID: req.QuestionID,
		VariantID:  req.VariantID,
	})
	if err != nil {
		return nil, fmt.Errorf("submit answer: player=%s question=%s: %w", req.PlayerID, req.QuestionID, err)
	}

	return &domain.Judgement{IsCorrect: j.IsCorrect, Points: j.Points}, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Body)
}

func call[T any](ctx context.Context, c *HTTPClient, method, path string, in any) (T, error) {
	var out T

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return out, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return out, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if resp.StatusCode == http.StatusNoContent {
		return out, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return out, fmt.Errorf("decode response: %w", err)
	}

	return out, nil
}
