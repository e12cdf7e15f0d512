// internal/challenge/coordinator.go
package challenge

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/packduel/packduel/internal/cache"
	"github.com/packduel/packduel/internal/models"
	"github.com/packduel/packduel/internal/packs"
)

// errEmptyPool marks a pool that produced no cards mid-resolution.
var errEmptyPool = errors.New("pool has no cards")

// Ledger is the slice of the economy the coordinator needs.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Deduct(ctx context.Context, userID string, amount int64) bool
	Grant(ctx context.Context, userID string, amount int64) bool
}

// PackSource rolls the packs that decide a challenge.
type PackSource interface {
	GeneratePack(ctx context.Context, poolID string) ([]models.Card, error)
}

// Challenge is a pending wager between an issuer and a target. It lives only
// in process memory and is deleted, never archived, on every outcome.
type Challenge struct {
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	Wager     int64     `json:"wager"`
	PoolID    string    `json:"poolId"`
	CreatedAt time.Time `json:"createdAt"`

	// expiry fires if the challenge is still pending when the window closes.
	// It is stopped on accept/reject/cancel so a consumed challenge can never
	// be expired late.
	expiry *time.Timer
}

// Config tunes the coordinator.
type Config struct {
	// Expiry is how long a challenge stays open before it self-deletes.
	Expiry time.Duration
}

// DefaultConfig keeps challenges open for five minutes.
func DefaultConfig() Config {
	return Config{Expiry: 5 * time.Minute}
}

// Coordinator manages pending challenges, keyed by target user. At most one
// challenge may target a user and at most one may be authored by a user at
// any time. No currency moves until a challenge is accepted, so expiry and
// rejection need no refunds.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*Challenge // target user id -> challenge

	ledger Ledger
	packs  PackSource
	cfg    Config
}

// NewCoordinator returns an empty coordinator.
func NewCoordinator(ledger Ledger, packSource PackSource, cfg Config) *Coordinator {
	return &Coordinator{
		pending: make(map[string]*Challenge),
		ledger:  ledger,
		packs:   packSource,
		cfg:     cfg,
	}
}

// IssueResult is returned by Issue.
type IssueResult struct {
	models.OpResult
	Challenge *Challenge `json:"challenge,omitempty"`
}

// Issue records a pending challenge from one user to another and arms its
// expiry timer. The wager is only checked here, not reserved; the balance is
// deducted when the target accepts.
func (c *Coordinator) Issue(ctx context.Context, fromID, toID string, wager int64, poolID string) IssueResult {
	if fromID == toID {
		return IssueResult{OpResult: models.Fail("you cannot challenge yourself")}
	}
	if wager <= 0 {
		return IssueResult{OpResult: models.Fail("wager must be positive")}
	}

	balance, err := c.ledger.Balance(ctx, fromID)
	if err != nil {
		log.Errorf("challenge: balance read for %s failed: %v", fromID, err)
		return IssueResult{OpResult: models.Fail("could not verify balance")}
	}
	if balance < wager {
		return IssueResult{OpResult: models.Fail("insufficient funds for this wager")}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.pending {
		if ch.FromID == fromID || ch.ToID == fromID || ch.FromID == toID || ch.ToID == toID {
			return IssueResult{OpResult: models.Fail("one of the players already has a pending challenge")}
		}
	}

	ch := &Challenge{
		FromID:    fromID,
		ToID:      toID,
		Wager:     wager,
		PoolID:    poolID,
		CreatedAt: time.Now(),
	}
	ch.expiry = time.AfterFunc(c.cfg.Expiry, func() { c.expire(toID, fromID) })
	c.pending[toID] = ch
	return IssueResult{OpResult: models.OK(), Challenge: ch}
}

// expire deletes the challenge if it is still the one the timer was armed
// for. The issuer check guards a timer that lost the race with consume.
func (c *Coordinator) expire(toID, fromID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.pending[toID]; ok && ch.FromID == fromID {
		delete(c.pending, toID)
		log.Infof("challenge: %s -> %s expired unanswered", fromID, toID)
	}
}

// take removes and returns the pending challenge targeting toID issued by
// fromID, stopping its expiry timer.
func (c *Coordinator) take(toID, fromID string) (*Challenge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[toID]
	if !ok || ch.FromID != fromID {
		return nil, false
	}
	delete(c.pending, toID)
	ch.expiry.Stop()
	return ch, true
}

// AcceptResult carries the outcome of a resolved challenge.
type AcceptResult struct {
	models.OpResult
	WinnerID    string        `json:"winnerId,omitempty"`
	Tie         bool          `json:"tie"`
	IssuerPack  []models.Card `json:"issuerPack,omitempty"`
	TargetPack  []models.Card `json:"targetPack,omitempty"`
	IssuerScore int           `json:"issuerScore"`
	TargetScore int           `json:"targetScore"`
}

// Accept resolves the pending challenge from fromID targeting toID. Both
// sides stake the wager, two packs decide it, and the strictly higher total
// takes double the wager. A tie refunds both stakes; draws are allowed here,
// unlike tournament matches.
func (c *Coordinator) Accept(ctx context.Context, toID, fromID string) AcceptResult {
	ch, ok := c.take(toID, fromID)
	if !ok {
		return AcceptResult{OpResult: models.Fail("no pending challenge from that player")}
	}

	if !c.ledger.Deduct(ctx, toID, ch.Wager) {
		return AcceptResult{OpResult: models.Fail("you cannot cover this wager")}
	}
	if !c.ledger.Deduct(ctx, fromID, ch.Wager) {
		c.ledger.Grant(ctx, toID, ch.Wager)
		return AcceptResult{OpResult: models.Fail("challenger can no longer cover the wager")}
	}

	// Both stakes are in; any failure past this point refunds both sides.
	issuerPack, err := c.packs.GeneratePack(ctx, ch.PoolID)
	if err == nil && len(issuerPack) == 0 {
		err = errEmptyPool
	}
	var targetPack []models.Card
	if err == nil {
		targetPack, err = c.packs.GeneratePack(ctx, ch.PoolID)
		if err == nil && len(targetPack) == 0 {
			err = errEmptyPool
		}
	}
	if err != nil {
		log.Errorf("challenge: pack generation for pool %s failed: %v", ch.PoolID, err)
		c.refundBoth(ctx, ch)
		return AcceptResult{OpResult: models.Fail("could not generate packs, wagers refunded")}
	}

	issuerScore := packs.PackPoints(issuerPack)
	targetScore := packs.PackPoints(targetPack)

	result := AcceptResult{
		OpResult:    models.OK(),
		IssuerPack:  issuerPack,
		TargetPack:  targetPack,
		IssuerScore: issuerScore,
		TargetScore: targetScore,
	}
	switch {
	case issuerScore > targetScore:
		result.WinnerID = fromID
		c.ledger.Grant(ctx, fromID, 2*ch.Wager)
	case targetScore > issuerScore:
		result.WinnerID = toID
		c.ledger.Grant(ctx, toID, 2*ch.Wager)
	default:
		result.Tie = true
		c.refundBoth(ctx, ch)
	}

	if err := cache.PublishBattleEvent(ctx, cache.BattleEventRecord{
		EventType: cache.EventChallengeResolved,
		Actors:    []string{fromID, toID},
		WinnerID:  result.WinnerID,
		Payload: map[string]any{
			"wager":       ch.Wager,
			"pool":        ch.PoolID,
			"issuerScore": issuerScore,
			"targetScore": targetScore,
			"tie":         result.Tie,
		},
	}); err != nil {
		log.Warnf("challenge: event publish failed: %v", err)
	}
	return result
}

func (c *Coordinator) refundBoth(ctx context.Context, ch *Challenge) {
	if !c.ledger.Grant(ctx, ch.FromID, ch.Wager) {
		log.Errorf("challenge: refund of %d to %s failed, needs reconciliation", ch.Wager, ch.FromID)
	}
	if !c.ledger.Grant(ctx, ch.ToID, ch.Wager) {
		log.Errorf("challenge: refund of %d to %s failed, needs reconciliation", ch.Wager, ch.ToID)
	}
}

// Reject removes the pending challenge from fromID targeting toID. No
// currency has moved, so there is nothing to refund.
func (c *Coordinator) Reject(toID, fromID string) models.OpResult {
	if _, ok := c.take(toID, fromID); !ok {
		return models.Fail("no pending challenge from that player")
	}
	return models.OK()
}

// Cancel withdraws the caller's own outstanding challenge, searching by
// issuer rather than target.
func (c *Coordinator) Cancel(fromID string) models.OpResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	for toID, ch := range c.pending {
		if ch.FromID == fromID {
			delete(c.pending, toID)
			ch.expiry.Stop()
			return models.OK()
		}
	}
	return models.Fail("you have no outstanding challenge")
}

// PendingFor returns the challenge currently targeting the given user, if any.
func (c *Coordinator) PendingFor(toID string) (*Challenge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.pending[toID]
	return ch, ok
}
