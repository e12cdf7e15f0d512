// internal/models/tournament.go
package models

import "time"

// TournamentStatus is the lifecycle state of a tournament, matching the
// persisted status field.
type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentInProgress   TournamentStatus = "in_progress"
	TournamentCompleted    TournamentStatus = "completed"
)

// Participant is one registered entrant. Eliminated flips on a match loss and
// never unflips; Placement is assigned at settlement for the top finishers.
type Participant struct {
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	JoinedAt   time.Time `json:"joinedAt"`
	Eliminated bool      `json:"eliminated"`
	Placement  *int      `json:"placement,omitempty"`
}

// TournamentMatch pairs two participants within one round. Once WinnerID is
// set the match is terminal and is never re-resolved.
type TournamentMatch struct {
	ID        string `json:"matchId"`
	Round     int    `json:"round"`
	Player1ID string `json:"player1Id"`
	Player2ID string `json:"player2Id"`

	Ready1         bool       `json:"ready1"`
	Ready2         bool       `json:"ready2"`
	ReadyStartedAt *time.Time `json:"readyStartedAt,omitempty"`

	WinnerID    *string    `json:"winnerId,omitempty"`
	Pack1       []Card     `json:"pack1,omitempty"`
	Pack2       []Card     `json:"pack2,omitempty"`
	Score1      int        `json:"score1,omitempty"`
	Score2      int        `json:"score2,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Resolved reports whether the match has a recorded winner.
func (m *TournamentMatch) Resolved() bool {
	return m.WinnerID != nil
}

// Tournament is the persisted bracket aggregate. It is read in full, mutated
// in memory, and written back with a version compare-and-swap; all mutation
// goes through tournament.Engine.
type Tournament struct {
	ID              string              `json:"tournamentId"`
	Name            string              `json:"name"`
	HostID          string              `json:"host"`
	EntryFee        int64               `json:"entryFee"`
	PoolID          string              `json:"poolId"`
	MaxParticipants int                 `json:"maxParticipants"`
	Participants    []Participant       `json:"participants"`
	PrizePool       int64               `json:"prizePool"`
	Status          TournamentStatus    `json:"status"`
	CurrentRound    int                 `json:"currentRound"`
	Matches         []TournamentMatch   `json:"matches"`
	BracketHistory  [][]TournamentMatch `json:"bracketHistory"`
	WinnerID        *string             `json:"winner,omitempty"`

	// Version guards every write: updates are filtered on the version the
	// document was loaded with and bump it by one.
	Version int64 `json:"version"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// FindParticipant returns the participant with the given user id, or nil.
func (t *Tournament) FindParticipant(userID string) *Participant {
	for i := range t.Participants {
		if t.Participants[i].UserID == userID {
			return &t.Participants[i]
		}
	}
	return nil
}

// FindMatch returns the current-round match with the given id, or nil.
func (t *Tournament) FindMatch(matchID string) *TournamentMatch {
	for i := range t.Matches {
		if t.Matches[i].ID == matchID {
			return &t.Matches[i]
		}
	}
	return nil
}
