// internal/tournament/engine.go
package tournament

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/packduel/packduel/internal/models"
	"github.com/packduel/packduel/internal/packs"
	"github.com/packduel/packduel/internal/store"
)

const tournamentsCollection = "tournaments"

// casAttempts bounds how often an operation reloads and retries after losing
// a version compare-and-swap to a concurrent writer.
const casAttempts = 5

const (
	minParticipants    = 4
	maxParticipantsCap = 64
	minNameLen         = 3
)

// Ledger is the slice of the economy the engine needs: entry fees in,
// refunds and prizes out.
type Ledger interface {
	Deduct(ctx context.Context, userID string, amount int64) bool
	Grant(ctx context.Context, userID string, amount int64) bool
}

// PackSource rolls the packs that decide a match.
type PackSource interface {
	GeneratePack(ctx context.Context, poolID string) ([]models.Card, error)
}

// Engine owns every tournament document. All writes go through a version
// compare-and-swap so two racing operations on the same tournament cannot
// silently overwrite each other; the loser of the swap reloads and retries.
type Engine struct {
	store   store.Store
	ledger  Ledger
	packs   PackSource
	catalog packs.Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine builds an engine with a time-seeded random source.
func NewEngine(s store.Store, ledger Ledger, packSource PackSource, catalog packs.Catalog) *Engine {
	return NewEngineWithRand(s, ledger, packSource, catalog,
		rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEngineWithRand builds an engine around a caller-supplied source.
func NewEngineWithRand(s store.Store, ledger Ledger, packSource PackSource, catalog packs.Catalog, rng *rand.Rand) *Engine {
	return &Engine{store: s, ledger: ledger, packs: packSource, catalog: catalog, rng: rng}
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

func isPowerOfTwo(n int) bool {
	return n >= 2 && n&(n-1) == 0
}

// load fetches one tournament document.
func (e *Engine) load(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	err := e.store.FindOne(ctx, tournamentsCollection, store.Filter{store.Eq("tournamentId", id)}, &t)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// save writes the document back conditioned on the version it was loaded
// with, bumping the version by one. A false return means a concurrent writer
// got there first and the caller should reload.
func (e *Engine) save(ctx context.Context, t *models.Tournament) (bool, error) {
	loaded := t.Version
	t.Version = loaded + 1
	matched, err := e.store.Update(ctx, tournamentsCollection, store.Filter{
		store.Eq("tournamentId", t.ID),
		store.Eq("version", loaded),
	}, t)
	if err != nil || !matched {
		t.Version = loaded
	}
	return matched, err
}

// CreateResult is returned by Create.
type CreateResult struct {
	models.OpResult
	Tournament *models.Tournament `json:"tournament,omitempty"`
}

// Create validates and persists a new tournament in registration state.
func (e *Engine) Create(ctx context.Context, name, hostID string, entryFee int64, poolID string, maxParticipants int) CreateResult {
	if len(strings.TrimSpace(name)) < minNameLen {
		return CreateResult{OpResult: models.Fail("tournament name must be at least 3 characters")}
	}
	if entryFee < 0 {
		return CreateResult{OpResult: models.Fail("entry fee cannot be negative")}
	}
	if maxParticipants < minParticipants || maxParticipants > maxParticipantsCap || !isPowerOfTwo(maxParticipants) {
		return CreateResult{OpResult: models.Fail("max participants must be a power of two between 4 and 64")}
	}
	pool, err := e.catalog.Pool(ctx, poolID)
	if err != nil {
		log.Errorf("tournament: pool lookup %s failed: %v", poolID, err)
		return CreateResult{OpResult: models.Fail("could not resolve card pool")}
	}
	if len(pool) == 0 {
		return CreateResult{OpResult: models.Fail("card pool has no cards")}
	}

	t := &models.Tournament{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(name),
		HostID:          hostID,
		EntryFee:        entryFee,
		PoolID:          poolID,
		MaxParticipants: maxParticipants,
		Participants:    []models.Participant{},
		Status:          models.TournamentRegistration,
		BracketHistory:  [][]models.TournamentMatch{},
		CreatedAt:       time.Now(),
	}
	if err := e.store.Insert(ctx, tournamentsCollection, t); err != nil {
		log.Errorf("tournament: insert failed: %v", err)
		return CreateResult{OpResult: models.Fail("could not persist tournament")}
	}
	return CreateResult{OpResult: models.OK(), Tournament: t}
}

// Join registers a user, charging the entry fee into the prize pool. The fee
// is deducted before the write and refunded whenever the write cannot land.
func (e *Engine) Join(ctx context.Context, id, userID, username string) models.OpResult {
	for attempt := 0; attempt < casAttempts; attempt++ {
		t, err := e.load(ctx, id)
		if errors.Is(err, store.ErrNoDocument) {
			return models.Fail("tournament not found")
		}
		if err != nil {
			log.Errorf("tournament: join load %s failed: %v", id, err)
			return models.Fail("could not load tournament")
		}
		if t.Status != models.TournamentRegistration {
			return models.Fail("registration is closed")
		}
		if t.FindParticipant(userID) != nil {
			return models.Fail("you already joined this tournament")
		}
		if len(t.Participants) >= t.MaxParticipants {
			return models.Fail("tournament is full")
		}
		if t.EntryFee > 0 && !e.ledger.Deduct(ctx, userID, t.EntryFee) {
			return models.Fail("insufficient funds for the entry fee")
		}

		t.Participants = append(t.Participants, models.Participant{
			UserID:   userID,
			Username: username,
			JoinedAt: time.Now(),
		})
		t.PrizePool += t.EntryFee

		matched, err := e.save(ctx, t)
		if err != nil {
			log.Errorf("tournament: join save %s failed: %v", id, err)
			e.refundFee(ctx, t, userID)
			return models.Fail("could not persist join")
		}
		if matched {
			return models.OK()
		}
		// Lost the swap; give the fee back and retry against the fresh doc.
		e.refundFee(ctx, t, userID)
	}
	return models.Fail("tournament is busy, try again")
}

func (e *Engine) refundFee(ctx context.Context, t *models.Tournament, userID string) {
	if t.EntryFee > 0 && !e.ledger.Grant(ctx, userID, t.EntryFee) {
		log.Errorf("tournament: entry fee refund of %d to %s failed, needs reconciliation", t.EntryFee, userID)
	}
}

// Leave withdraws a user during registration and refunds the entry fee.
func (e *Engine) Leave(ctx context.Context, id, userID string) models.OpResult {
	for attempt := 0; attempt < casAttempts; attempt++ {
		t, err := e.load(ctx, id)
		if errors.Is(err, store.ErrNoDocument) {
			return models.Fail("tournament not found")
		}
		if err != nil {
			log.Errorf("tournament: leave load %s failed: %v", id, err)
			return models.Fail("could not load tournament")
		}
		if t.Status != models.TournamentRegistration {
			return models.Fail("you can only leave during registration")
		}
		if t.FindParticipant(userID) == nil {
			return models.Fail("you are not in this tournament")
		}

		kept := t.Participants[:0]
		for _, p := range t.Participants {
			if p.UserID != userID {
				kept = append(kept, p)
			}
		}
		t.Participants = kept
		t.PrizePool -= t.EntryFee

		matched, err := e.save(ctx, t)
		if err != nil {
			log.Errorf("tournament: leave save %s failed: %v", id, err)
			return models.Fail("could not persist leave")
		}
		if matched {
			e.refundFee(ctx, t, userID)
			return models.OK()
		}
	}
	return models.Fail("tournament is busy, try again")
}

// Start seals registration, shuffles the field, and forms round one. Only the
// host may start, and only a power-of-two field can be paired.
func (e *Engine) Start(ctx context.Context, id, hostID string) models.OpResult {
	for attempt := 0; attempt < casAttempts; attempt++ {
		t, err := e.load(ctx, id)
		if errors.Is(err, store.ErrNoDocument) {
			return models.Fail("tournament not found")
		}
		if err != nil {
			log.Errorf("tournament: start load %s failed: %v", id, err)
			return models.Fail("could not load tournament")
		}
		if t.HostID != hostID {
			return models.Fail("only the host can start the tournament")
		}
		if t.Status != models.TournamentRegistration {
			return models.Fail("tournament has already started")
		}
		if !isPowerOfTwo(len(t.Participants)) {
			return models.Fail("participant count must be a power of two (at least 2)")
		}

		shuffled := make([]models.Participant, len(t.Participants))
		copy(shuffled, t.Participants)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := e.intn(i + 1)
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}

		matches := make([]models.TournamentMatch, 0, len(shuffled)/2)
		for i := 0; i < len(shuffled); i += 2 {
			matches = append(matches, models.TournamentMatch{
				ID:        uuid.NewString(),
				Round:     1,
				Player1ID: shuffled[i].UserID,
				Player2ID: shuffled[i+1].UserID,
			})
		}

		now := time.Now()
		t.Status = models.TournamentInProgress
		t.CurrentRound = 1
		t.Matches = matches
		t.BracketHistory = append(t.BracketHistory, matches)
		t.StartedAt = &now

		matched, err := e.save(ctx, t)
		if err != nil {
			log.Errorf("tournament: start save %s failed: %v", id, err)
			return models.Fail("could not persist start")
		}
		if matched {
			return models.OK()
		}
	}
	return models.Fail("tournament is busy, try again")
}

// Cancel refunds every current participant and deletes the tournament. Only
// the host may cancel, and never after completion.
func (e *Engine) Cancel(ctx context.Context, id, hostID string) models.OpResult {
	t, err := e.load(ctx, id)
	if errors.Is(err, store.ErrNoDocument) {
		return models.Fail("tournament not found")
	}
	if err != nil {
		log.Errorf("tournament: cancel load %s failed: %v", id, err)
		return models.Fail("could not load tournament")
	}
	if t.HostID != hostID {
		return models.Fail("only the host can cancel the tournament")
	}
	if t.Status == models.TournamentCompleted {
		return models.Fail("a completed tournament cannot be cancelled")
	}

	for _, p := range t.Participants {
		e.refundFee(ctx, t, p.UserID)
	}
	if _, err := e.store.Delete(ctx, tournamentsCollection, store.Filter{store.Eq("tournamentId", id)}); err != nil {
		log.Errorf("tournament: cancel delete %s failed: %v", id, err)
		return models.Fail("could not delete tournament")
	}
	return models.OK()
}

// Get fetches one tournament by id.
func (e *Engine) Get(ctx context.Context, id string) (*models.Tournament, error) {
	return e.load(ctx, id)
}

// ListOpen returns tournaments accepting players or currently running.
func (e *Engine) ListOpen(ctx context.Context) ([]models.Tournament, error) {
	var out []models.Tournament
	err := e.store.Find(ctx, tournamentsCollection, store.Filter{
		store.In("status", []models.TournamentStatus{
			models.TournamentRegistration,
			models.TournamentInProgress,
		}),
	}, &out)
	return out, err
}

// ListCompletedForUser returns finished tournaments the user played in.
func (e *Engine) ListCompletedForUser(ctx context.Context, userID string) ([]models.Tournament, error) {
	var completed []models.Tournament
	err := e.store.Find(ctx, tournamentsCollection, store.Filter{
		store.Eq("status", models.TournamentCompleted),
	}, &completed)
	if err != nil {
		return nil, err
	}
	var out []models.Tournament
	for _, t := range completed {
		if t.FindParticipant(userID) != nil {
			out = append(out, t)
		}
	}
	return out, nil
}
