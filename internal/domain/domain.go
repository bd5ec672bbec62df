package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Participant is a chat-user identity. It is the key used to find which
// session a person is playing in.
type Participant string

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Session represents one quiz game.
type Session struct {
	SessionID string
	PackID    string
	// Host is the participant that created the game. Empty means anyone may
	// start or cancel it.
	Host                 Participant
	Status               Status
	Questions            []Question
	CurrentQuestionIndex int
	// Exhausted is set once the cursor has moved past the last question.
	Exhausted bool
	// Players are listed in join order.
	Players    []Player
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Player returns the player registered for a participant.
func (s Session) Player(p Participant) (Player, bool) {
	for _, pl := range s.Players {
		if pl.Participant == p {
			return pl, true
		}
	}
	return Player{}, false
}

// Player is the in-game identity of a participant within one session.
type Player struct {
	Participant Participant
	// PlayerID is assigned by the backend.
	PlayerID      string
	Name          string
	Score         int
	QuestionIndex int
	Answers       []Answer
	JoinedAt      time.Time
}

// Answer is a recorded submission. Correctness comes from the backend.
type Answer struct {
	QuestionID    string
	VariantID     string
	IsCorrect     bool
	PointsAwarded int
	SubmittedAt   time.Time
}

type Pack struct {
	PackID string
	Title  string
}

type Question struct {
	QuestionID string
	Text       string
	ImageURL   string
}

type Variant struct {
	VariantID string
	Text      string
}

// Member is a participant of a session, used for broadcasting.
type Member struct {
	Participant Participant
	PlayerID    string
	Name        string
}

// Result is one row of the final leaderboard of a session.
type Result struct {
	Participant Participant
	PlayerID    string
	Name        string
	Score       int
	Correct     int
	// Accuracy is Correct over the number of answers, rounded to 2 places.
	Accuracy decimal.Decimal
	Answers  []Answer
}

// Judgement is the backend verdict for a submitted answer.
type Judgement struct {
	IsCorrect bool
	Points    int
}
