package api

import (
	"time"

	"github.com/victornm/quizbot/internal/archive"
	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/quiz"
)

type (
	Pack struct {
		PackID string `json:"pack_id"`
		Title  string `json:"title"`
	}

	Player struct {
		Participant string `json:"participant"`
		PlayerID    string `json:"player_id"`
		Name        string `json:"name"`
		Score       int    `json:"score"`
	}

	Session struct {
		SessionID            string   `json:"session_id"`
		PackID               string   `json:"pack_id"`
		Host                 string   `json:"host"`
		Status               string   `json:"status"`
		Questions            int      `json:"questions"`
		CurrentQuestionIndex int      `json:"current_question_index"`
		Players              []Player `json:"players"`
	}

	Variant struct {
		VariantID string `json:"variant_id"`
		Text      string `json:"text"`
	}

	Question struct {
		QuestionID string    `json:"question_id"`
		Text       string    `json:"text"`
		ImageURL   string    `json:"image_url,omitempty"`
		Index      int       `json:"index"`
		Total      int       `json:"total"`
		Variants   []Variant `json:"variants"`
	}

	Result struct {
		Participant string `json:"participant"`
		PlayerID    string `json:"player_id"`
		Name        string `json:"name"`
		Score       int    `json:"score"`
		Correct     int    `json:"correct"`
		Accuracy    string `json:"accuracy"`
	}

	Progress struct {
		SessionID string    `json:"session_id"`
		Question  *Question `json:"question,omitempty"`
		Finished  bool      `json:"finished"`
		Results   []Result  `json:"results,omitempty"`
	}

	LeaderboardEntry struct {
		Participant string  `json:"participant"`
		Score       float64 `json:"score"`
	}

	Leaderboard struct {
		SessionID string             `json:"session_id"`
		Entries   []LeaderboardEntry `json:"entries"`
	}

	GameSummary struct {
		SessionID  string     `json:"session_id"`
		PackID     string     `json:"pack_id"`
		Host       string     `json:"host"`
		Players    int        `json:"players"`
		Winner     string     `json:"winner"`
		TopScore   int        `json:"top_score"`
		AvgScore   string     `json:"avg_score"`
		StartedAt  *time.Time `json:"started_at,omitempty"`
		FinishedAt time.Time  `json:"finished_at"`
	}
)

type (
	ListPacksRequest  struct{}
	ListPacksResponse struct {
		Packs []Pack `json:"packs"`
	}

	NewGameRequest struct {
		Participant string `json:"participant"`
		Name        string `json:"name"`
		PackID      string `json:"pack_id"`
	}
	NewGameResponse struct {
		Session Session `json:"session"`
	}

	JoinRequest struct {
		Participant string `json:"participant"`
		Name        string `json:"name"`
		SessionID   string `json:"session_id,omitempty"`
	}
	JoinResponse struct {
		Session Session `json:"session"`
	}

	StartRequest struct {
		Participant string `json:"participant"`
	}
	StartResponse struct {
		Progress Progress `json:"progress"`
	}

	CurrentQuestionRequest struct {
		Participant string `json:"participant"`
	}
	CurrentQuestionResponse struct {
		Progress Progress `json:"progress"`
	}

	SubmitAnswerRequest struct {
		Participant string `json:"participant"`
		QuestionID  string `json:"question_id"`
		VariantID   string `json:"variant_id"`
	}
	SubmitAnswerResponse struct {
		IsCorrect  bool      `json:"is_correct"`
		Points     int       `json:"points"`
		TotalScore int       `json:"total_score"`
		Next       *Progress `json:"next,omitempty"`
	}

	LeaveRequest struct {
		Participant string `json:"participant"`
	}
	LeaveResponse struct {
		SessionID string    `json:"session_id"`
		Next      *Progress `json:"next,omitempty"`
	}

	CancelRequest struct {
		Participant string `json:"participant"`
	}
	CancelResponse struct {
		SessionID string `json:"session_id"`
		Cancelled bool   `json:"cancelled"`
	}

	GetResultsRequest struct {
		SessionID string `json:"session_id"`
	}
	GetResultsResponse struct {
		Results []Result `json:"results"`
	}

	GetLeaderboardRequest struct {
		SessionID string `json:"session_id"`
	}
	GetLeaderboardResponse struct {
		Leaderboard Leaderboard `json:"leaderboard"`
	}

	GetGameSummaryRequest struct {
		SessionID string `json:"session_id"`
	}
	GetGameSummaryResponse struct {
		Game GameSummary `json:"game"`
	}
)

func toSession(ss *domain.Session) Session {
	out := Session{
		SessionID:            ss.SessionID,
		PackID:               ss.PackID,
		Host:                 string(ss.Host),
		Status:               string(ss.Status),
		Questions:            len(ss.Questions),
		CurrentQuestionIndex: ss.CurrentQuestionIndex,
		Players:              make([]Player, 0, len(ss.Players)),
	}
	for _, p := range ss.Players {
		out.Players = append(out.Players, Player{
			Participant: string(p.Participant),
			PlayerID:    p.PlayerID,
			Name:        p.Name,
			Score:       p.Score,
		})
	}
	return out
}

func toProgress(p *quiz.Progress) *Progress {
	if p == nil {
		return nil
	}

	out := &Progress{
		SessionID: p.SessionID,
		Finished:  p.Finished,
		Results:   toResults(p.Results),
	}
	if q := p.Question; q != nil {
		out.Question = &Question{
			QuestionID: q.QuestionID,
			Text:       q.Text,
			ImageURL:   q.ImageURL,
			Index:      q.Index,
			Total:      q.Total,
			Variants:   make([]Variant, 0, len(q.Variants)),
		}
		for _, v := range q.Variants {
			out.Question.Variants = append(out.Question.Variants, Variant{VariantID: v.VariantID, Text: v.Text})
		}
	}
	return out
}

func toResults(rs []domain.Result) []Result {
	if rs == nil {
		return nil
	}

	out := make([]Result, 0, len(rs))
	for _, r := range rs {
		out = append(out, Result{
			Participant: string(r.Participant),
			PlayerID:    r.PlayerID,
			Name:        r.Name,
			Score:       r.Score,
			Correct:     r.Correct,
			Accuracy:    r.Accuracy.String(),
		})
	}
	return out
}

func toGameSummary(g *archive.GameSummary) GameSummary {
	return GameSummary{
		SessionID:  g.SessionID,
		PackID:     g.PackID,
		Host:       string(g.Host),
		Players:    g.Players,
		Winner:     string(g.Winner),
		TopScore:   g.TopScore,
		AvgScore:   g.AvgScore.String(),
		StartedAt:  g.StartedAt,
		FinishedAt: g.FinishedAt,
	}
}
