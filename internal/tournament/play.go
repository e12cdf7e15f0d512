// internal/tournament/play.go
package tournament

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/packduel/packduel/internal/cache"
	"github.com/packduel/packduel/internal/models"
	"github.com/packduel/packduel/internal/packs"
	"github.com/packduel/packduel/internal/store"
)

// Prize split, in percent of the pool, all floored. The remainders these
// floors leave are burned, not redistributed.
const (
	winnerShare   = 60
	runnerUpShare = 30
	thirdShare    = 5
)

// PlayResult is returned by PlayMatch.
type PlayResult struct {
	models.OpResult
	Match              *models.TournamentMatch `json:"match,omitempty"`
	RoundComplete      bool                    `json:"roundComplete"`
	TournamentComplete bool                    `json:"tournamentComplete"`
	ChampionID         string                  `json:"championId,omitempty"`
}

// ReadyResult is returned by MarkReady.
type ReadyResult struct {
	models.OpResult
	Resolved bool        `json:"resolved"`
	Outcome  *PlayResult `json:"outcome,omitempty"`
}

// syncHistory mirrors the live current round into its bracket history slot so
// the history always shows resolved results.
func syncHistory(t *models.Tournament) {
	if t.CurrentRound >= 1 && len(t.BracketHistory) >= t.CurrentRound {
		t.BracketHistory[t.CurrentRound-1] = t.Matches
	}
}

// PlayMatch resolves one unresolved match of the current round: two packs are
// rolled, the strictly higher total wins, and an exact tie is broken by a
// coin flip so the bracket always has a single winner. When the last match of
// a round resolves, the round advances immediately; when one winner remains,
// the tournament completes and the prize pool settles.
func (e *Engine) PlayMatch(ctx context.Context, id, matchID string) PlayResult {
	for attempt := 0; attempt < casAttempts; attempt++ {
		t, err := e.load(ctx, id)
		if errors.Is(err, store.ErrNoDocument) {
			return PlayResult{OpResult: models.Fail("tournament not found")}
		}
		if err != nil {
			log.Errorf("tournament: play load %s failed: %v", id, err)
			return PlayResult{OpResult: models.Fail("could not load tournament")}
		}
		if t.Status != models.TournamentInProgress {
			return PlayResult{OpResult: models.Fail("tournament is not in progress")}
		}
		m := t.FindMatch(matchID)
		if m == nil {
			return PlayResult{OpResult: models.Fail("match not found in the current round")}
		}
		if m.Resolved() {
			return PlayResult{OpResult: models.Fail("match has already been resolved")}
		}

		if err := e.resolveMatch(ctx, t, m); err != nil {
			log.Errorf("tournament: match %s resolution failed: %v", matchID, err)
			return PlayResult{OpResult: models.Fail("could not generate packs for this match")}
		}
		syncHistory(t)

		result := PlayResult{OpResult: models.OK()}
		if roundComplete(t) {
			result.RoundComplete = true
			result.ChampionID = e.advance(t)
			result.TournamentComplete = result.ChampionID != ""
		}

		matched := *m
		result.Match = &matched

		ok, err := e.save(ctx, t)
		if err != nil {
			log.Errorf("tournament: play save %s failed: %v", id, err)
			return PlayResult{OpResult: models.Fail("could not persist match result")}
		}
		if !ok {
			// Another writer touched the document; reload and re-check the
			// match, rerolling only if it is still open.
			continue
		}

		if err := cache.PublishBattleEvent(ctx, cache.BattleEventRecord{
			EventType:    cache.EventMatchResolved,
			TournamentID: t.ID,
			MatchID:      m.ID,
			Actors:       []string{m.Player1ID, m.Player2ID},
			WinnerID:     *m.WinnerID,
			Payload:      map[string]any{"round": m.Round, "score1": m.Score1, "score2": m.Score2},
		}); err != nil {
			log.Warnf("tournament: match event publish failed: %v", err)
		}
		if result.TournamentComplete {
			e.settle(ctx, t)
		}
		return result
	}
	return PlayResult{OpResult: models.Fail("tournament is busy, try again")}
}

// resolveMatch rolls both packs and records the outcome on the match and the
// losing participant. No currency moves here; prizes settle at completion.
func (e *Engine) resolveMatch(ctx context.Context, t *models.Tournament, m *models.TournamentMatch) error {
	pack1, err := e.packs.GeneratePack(ctx, t.PoolID)
	if err != nil {
		return err
	}
	pack2, err := e.packs.GeneratePack(ctx, t.PoolID)
	if err != nil {
		return err
	}
	if len(pack1) == 0 || len(pack2) == 0 {
		return fmt.Errorf("pool %s produced an empty pack", t.PoolID)
	}

	score1 := packs.PackPoints(pack1)
	score2 := packs.PackPoints(pack2)

	var winnerID string
	switch {
	case score1 > score2:
		winnerID = m.Player1ID
	case score2 > score1:
		winnerID = m.Player2ID
	default:
		// Brackets never draw; an exact tie is an unweighted coin flip.
		if e.intn(2) == 0 {
			winnerID = m.Player1ID
		} else {
			winnerID = m.Player2ID
		}
	}

	now := time.Now()
	m.Pack1 = pack1
	m.Pack2 = pack2
	m.Score1 = score1
	m.Score2 = score2
	m.WinnerID = &winnerID
	m.CompletedAt = &now

	loserID := m.Player1ID
	if winnerID == m.Player1ID {
		loserID = m.Player2ID
	}
	if p := t.FindParticipant(loserID); p != nil {
		p.Eliminated = true
	}
	return nil
}

func roundComplete(t *models.Tournament) bool {
	for i := range t.Matches {
		if !t.Matches[i].Resolved() {
			return false
		}
	}
	return len(t.Matches) > 0
}

// advance collects the round's winners and either forms the next round or,
// with a single winner left, completes the tournament. Returns the champion
// id when the tournament just completed.
func (e *Engine) advance(t *models.Tournament) string {
	winners := make([]string, 0, len(t.Matches))
	for i := range t.Matches {
		winners = append(winners, *t.Matches[i].WinnerID)
	}

	if len(winners) == 1 {
		champion := winners[0]
		now := time.Now()
		t.Status = models.TournamentCompleted
		t.WinnerID = &champion
		t.CompletedAt = &now
		assignPlacements(t)
		return champion
	}

	next := make([]models.TournamentMatch, 0, len(winners)/2)
	for i := 0; i < len(winners); i += 2 {
		next = append(next, models.TournamentMatch{
			ID:        uuid.NewString(),
			Round:     t.CurrentRound + 1,
			Player1ID: winners[i],
			Player2ID: winners[i+1],
		})
	}
	t.CurrentRound++
	t.Matches = next
	t.BracketHistory = append(t.BracketHistory, next)
	return ""
}

// matchLoser returns the losing side of a resolved match and its score.
func matchLoser(m *models.TournamentMatch) (string, int) {
	if *m.WinnerID == m.Player1ID {
		return m.Player2ID, m.Score2
	}
	return m.Player1ID, m.Score1
}

// assignPlacements records the podium: champion, runner-up, and the
// highest-scoring semifinal loser as third place.
func assignPlacements(t *models.Tournament) {
	setPlacement := func(userID string, place int) {
		if p := t.FindParticipant(userID); p != nil {
			placement := place
			p.Placement = &placement
		}
	}

	final := &t.Matches[0]
	setPlacement(*final.WinnerID, 1)
	runnerUp, _ := matchLoser(final)
	setPlacement(runnerUp, 2)

	if len(t.BracketHistory) < 2 {
		return // two-player tournament, no semifinals
	}
	semis := t.BracketHistory[len(t.BracketHistory)-2]
	thirdID := ""
	thirdScore := -1
	for i := range semis {
		loserID, loserScore := matchLoser(&semis[i])
		if loserID == runnerUp {
			continue
		}
		if loserScore > thirdScore {
			thirdID = loserID
			thirdScore = loserScore
		}
	}
	if thirdID != "" {
		setPlacement(thirdID, 3)
	}
}

// settle pays the podium out of the prize pool: 60% champion, 30% runner-up,
// 5% third, all floored. The floors' remainder is burned by design.
func (e *Engine) settle(ctx context.Context, t *models.Tournament) {
	payouts := map[int]int64{
		1: t.PrizePool * winnerShare / 100,
		2: t.PrizePool * runnerUpShare / 100,
		3: t.PrizePool * thirdShare / 100,
	}
	for i := range t.Participants {
		p := &t.Participants[i]
		if p.Placement == nil {
			continue
		}
		cut := payouts[*p.Placement]
		if cut <= 0 {
			continue
		}
		if !e.ledger.Grant(ctx, p.UserID, cut) {
			log.Errorf("tournament: payout of %d to %s failed, needs reconciliation", cut, p.UserID)
			continue
		}
		log.Infof("tournament %s: paid %d to %s (place %d)", t.ID, cut, p.UserID, *p.Placement)
	}

	if err := cache.PublishBattleEvent(ctx, cache.BattleEventRecord{
		EventType:    cache.EventTournamentComplete,
		TournamentID: t.ID,
		Actors:       participantIDs(t),
		WinnerID:     *t.WinnerID,
		Payload:      map[string]any{"prizePool": t.PrizePool, "rounds": t.CurrentRound},
	}); err != nil {
		log.Warnf("tournament: completion event publish failed: %v", err)
	}
}

func participantIDs(t *models.Tournament) []string {
	ids := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// MarkReady records a player's readiness on an open match of the current
// round, stamping the readiness timer on the first ready. Once both sides are
// ready the match resolves immediately.
func (e *Engine) MarkReady(ctx context.Context, id, matchID, userID string) ReadyResult {
	for attempt := 0; attempt < casAttempts; attempt++ {
		t, err := e.load(ctx, id)
		if errors.Is(err, store.ErrNoDocument) {
			return ReadyResult{OpResult: models.Fail("tournament not found")}
		}
		if err != nil {
			log.Errorf("tournament: ready load %s failed: %v", id, err)
			return ReadyResult{OpResult: models.Fail("could not load tournament")}
		}
		if t.Status != models.TournamentInProgress {
			return ReadyResult{OpResult: models.Fail("tournament is not in progress")}
		}
		m := t.FindMatch(matchID)
		if m == nil {
			return ReadyResult{OpResult: models.Fail("match not found in the current round")}
		}
		if m.Resolved() {
			return ReadyResult{OpResult: models.Fail("match has already been resolved")}
		}

		switch userID {
		case m.Player1ID:
			m.Ready1 = true
		case m.Player2ID:
			m.Ready2 = true
		default:
			return ReadyResult{OpResult: models.Fail("you are not in this match")}
		}
		if m.ReadyStartedAt == nil {
			now := time.Now()
			m.ReadyStartedAt = &now
		}
		bothReady := m.Ready1 && m.Ready2
		syncHistory(t)

		ok, err := e.save(ctx, t)
		if err != nil {
			log.Errorf("tournament: ready save %s failed: %v", id, err)
			return ReadyResult{OpResult: models.Fail("could not persist readiness")}
		}
		if !ok {
			continue
		}
		if !bothReady {
			return ReadyResult{OpResult: models.OK()}
		}
		outcome := e.PlayMatch(ctx, id, matchID)
		return ReadyResult{OpResult: models.OK(), Resolved: outcome.Success, Outcome: &outcome}
	}
	return ReadyResult{OpResult: models.Fail("tournament is busy, try again")}
}
