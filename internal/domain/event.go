package domain

// Every session event is keyed by its session id, so handlers see the events
// of one session in the order they were published.

const (
	EventNameSessionCreated     = "session.created"
	EventNamePlayerJoined       = "session.player_joined"
	EventNamePlayerLeft         = "session.player_left"
	EventNameSessionStarted     = "session.started"
	EventNameQuestionAdvanced   = "session.question_advanced"
	EventNameAnswerRecorded     = "session.answer_recorded"
	EventNameSessionFinished    = "session.finished"
	EventNameSessionRemoved     = "session.removed"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

type EventSessionCreated struct {
	Session Session
}

func (EventSessionCreated) Name() string { return EventNameSessionCreated }
func (e EventSessionCreated) Key() string { return e.Session.SessionID }

type EventPlayerJoined struct {
	SessionID string
	Player    Member
	Members   []Member
}

func (EventPlayerJoined) Name() string { return EventNamePlayerJoined }
func (e EventPlayerJoined) Key() string { return e.SessionID }

type EventPlayerLeft struct {
	SessionID   string
	Participant Participant
	Members     []Member
}

func (EventPlayerLeft) Name() string { return EventNamePlayerLeft }
func (e EventPlayerLeft) Key() string { return e.SessionID }

type EventSessionStarted struct {
	Session Session
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }
func (e EventSessionStarted) Key() string { return e.Session.SessionID }

type EventQuestionAdvanced struct {
	SessionID string
	Index     int
	Total     int
	Question  Question
	Members   []Member
}

func (EventQuestionAdvanced) Name() string { return EventNameQuestionAdvanced }
func (e EventQuestionAdvanced) Key() string { return e.SessionID }

type EventAnswerRecorded struct {
	SessionID string
	Player    Player
	Answer    Answer
}

func (EventAnswerRecorded) Name() string { return EventNameAnswerRecorded }
func (e EventAnswerRecorded) Key() string { return e.SessionID }

type EventSessionFinished struct {
	Session Session
	Results []Result
}

func (EventSessionFinished) Name() string { return EventNameSessionFinished }
func (e EventSessionFinished) Key() string { return e.Session.SessionID }

// EventSessionRemoved is published after a session has been torn down,
// whether it finished or was cancelled.
type EventSessionRemoved struct {
	SessionID string
	Members   []Member
	Cancelled bool
	// WasActive is set when the session had started.
	WasActive bool
}

func (EventSessionRemoved) Name() string { return EventNameSessionRemoved }
func (e EventSessionRemoved) Key() string { return e.SessionID }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
func (e EventLeaderboardUpdated) Key() string { return e.Leaderboard.SessionID }

// Leaderboard is the live view of scores in a session, sorted by score in
// descending order.
type Leaderboard struct {
	SessionID string
	Entries   []LeaderboardEntry
}

type LeaderboardEntry struct {
	Participant Participant
	Score       float64
}
