// internal/economy/ledger.go
package economy

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/packduel/packduel/internal/models"
	"github.com/packduel/packduel/internal/store"
)

const currencyCollection = "currency"

// maxUserIDLen bounds the user identifier accepted by any ledger operation.
const maxUserIDLen = 64

// Config bounds the amounts the ledger will move in a single operation.
type Config struct {
	MinAmount int64
	MaxAmount int64
}

// DefaultConfig allows single-credit transfers up to one million per call.
func DefaultConfig() Config {
	return Config{MinAmount: 1, MaxAmount: 1_000_000}
}

// Ledger owns all balance mutation. Balances are non-negative integers stored
// one document per user; nothing else in the service writes the currency
// collection.
type Ledger struct {
	store store.Store
	cfg   Config
}

// NewLedger builds a ledger over the given store.
func NewLedger(s store.Store, cfg Config) *Ledger {
	return &Ledger{store: s, cfg: cfg}
}

func (l *Ledger) validUser(userID string) bool {
	return userID != "" && len(userID) <= maxUserIDLen
}

func (l *Ledger) validAmount(amount int64) bool {
	return amount >= l.cfg.MinAmount && amount <= l.cfg.MaxAmount
}

// Balance returns the stored balance, defaulting to zero when the user has no
// currency record yet.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	if !l.validUser(userID) {
		return 0, errors.New("invalid user id")
	}
	var rec models.CurrencyRecord
	err := l.store.FindOne(ctx, currencyCollection, store.Filter{store.Eq("userId", userID)}, &rec)
	if errors.Is(err, store.ErrNoDocument) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Currency, nil
}

// Grant adds amount to the user's balance, creating the record if absent.
// Validation failures are logged and reported as false, never raised.
func (l *Ledger) Grant(ctx context.Context, userID string, amount int64) bool {
	if !l.validUser(userID) || !l.validAmount(amount) {
		log.Warnf("ledger: rejected grant of %d to %q", amount, userID)
		return false
	}
	current, err := l.Balance(ctx, userID)
	if err != nil {
		log.Errorf("ledger: grant balance read for %s failed: %v", userID, err)
		return false
	}
	rec := models.CurrencyRecord{UserID: userID, Currency: current + amount}
	if err := l.store.Upsert(ctx, currencyCollection, store.Filter{store.Eq("userId", userID)}, rec); err != nil {
		log.Errorf("ledger: grant upsert for %s failed: %v", userID, err)
		return false
	}
	return true
}

// Deduct removes amount from the user's balance only if the balance covers
// it. The write is a single conditional update filtered on the observed
// balance, so racing deducts can never drive the balance negative; a missed
// swap caused by a concurrent writer re-reads and retries.
func (l *Ledger) Deduct(ctx context.Context, userID string, amount int64) bool {
	if !l.validUser(userID) || !l.validAmount(amount) {
		log.Warnf("ledger: rejected deduct of %d from %q", amount, userID)
		return false
	}
	for {
		current, err := l.Balance(ctx, userID)
		if err != nil {
			log.Errorf("ledger: deduct balance read for %s failed: %v", userID, err)
			return false
		}
		if current < amount {
			return false
		}
		rec := models.CurrencyRecord{UserID: userID, Currency: current - amount}
		matched, err := l.store.Update(ctx, currencyCollection, store.Filter{
			store.Eq("userId", userID),
			store.Eq("currency", current),
			store.Gte("currency", amount),
		}, rec)
		if err != nil {
			log.Errorf("ledger: deduct update for %s failed: %v", userID, err)
			return false
		}
		if matched {
			return true
		}
		// Balance moved under us; take another look.
	}
}

// Transfer moves amount between two users. It is two legs, not one
// transaction: a failed credit refunds the debit and reports failure. A
// failed refund is logged for reconciliation but not retried.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount int64) bool {
	if fromID == toID {
		log.Warnf("ledger: rejected self-transfer for %q", fromID)
		return false
	}
	if !l.validUser(fromID) || !l.validUser(toID) || !l.validAmount(amount) {
		log.Warnf("ledger: rejected transfer of %d from %q to %q", amount, fromID, toID)
		return false
	}
	balance, err := l.Balance(ctx, fromID)
	if err != nil {
		log.Errorf("ledger: transfer balance read for %s failed: %v", fromID, err)
		return false
	}
	if balance < amount {
		return false
	}
	if !l.Deduct(ctx, fromID, amount) {
		return false
	}
	if !l.Grant(ctx, toID, amount) {
		if !l.Grant(ctx, fromID, amount) {
			log.Errorf("ledger: transfer refund of %d to %s failed, needs reconciliation", amount, fromID)
		}
		return false
	}
	return true
}

// SetBalance unconditionally overwrites a user's balance. Privileged; only
// admin tooling should reach this.
func (l *Ledger) SetBalance(ctx context.Context, userID string, amount int64) bool {
	if !l.validUser(userID) || amount < 0 || amount > l.cfg.MaxAmount {
		log.Warnf("ledger: rejected set of %d for %q", amount, userID)
		return false
	}
	rec := models.CurrencyRecord{UserID: userID, Currency: amount}
	if err := l.store.Upsert(ctx, currencyCollection, store.Filter{store.Eq("userId", userID)}, rec); err != nil {
		log.Errorf("ledger: set balance for %s failed: %v", userID, err)
		return false
	}
	return true
}
