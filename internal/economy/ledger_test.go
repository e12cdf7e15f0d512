// internal/economy/ledger_test.go
package economy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packduel/packduel/internal/models"
	"github.com/packduel/packduel/internal/store"
)

func newTestLedger() *Ledger {
	return NewLedger(store.NewMemory(), Config{MinAmount: 1, MaxAmount: 10_000})
}

func TestGrantAndBalance(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	balance, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "absent account defaults to zero")

	assert.True(t, l.Grant(ctx, "alice", 100))
	assert.True(t, l.Grant(ctx, "alice", 50))

	balance, err = l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)
}

func TestAmountAndIDValidation(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	assert.False(t, l.Grant(ctx, "alice", 0))
	assert.False(t, l.Grant(ctx, "alice", -5))
	assert.False(t, l.Grant(ctx, "alice", 10_001))
	assert.False(t, l.Grant(ctx, "", 10))

	longID := make([]byte, 65)
	for i := range longID {
		longID[i] = 'x'
	}
	assert.False(t, l.Grant(ctx, string(longID), 10))

	// Nothing above should have touched the store.
	balance, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestDeduct(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	require.True(t, l.Grant(ctx, "bob", 30))
	assert.True(t, l.Deduct(ctx, "bob", 20))
	assert.False(t, l.Deduct(ctx, "bob", 20), "deduct past the balance must fail")

	balance, err := l.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	assert.False(t, l.Deduct(ctx, "nobody", 1), "deduct from an absent account fails")
}

// TestConcurrentDeducts drives many racing deducts at one account and checks
// that exactly as many succeed as the balance supports, with no negative
// balance possible.
func TestConcurrentDeducts(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	require.True(t, l.Grant(ctx, "carol", 10))

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Deduct(ctx, "carol", 1) {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, successes)
	balance, err := l.Balance(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestTransfer(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()
	require.True(t, l.Grant(ctx, "alice", 100))
	require.True(t, l.Grant(ctx, "bob", 40))

	assert.False(t, l.Transfer(ctx, "alice", "alice", 10), "self-transfer is rejected")
	assert.False(t, l.Transfer(ctx, "alice", "bob", 101), "overdraft is rejected")
	assert.True(t, l.Transfer(ctx, "alice", "bob", 60))

	aliceBalance, _ := l.Balance(ctx, "alice")
	bobBalance, _ := l.Balance(ctx, "bob")
	assert.Equal(t, int64(40), aliceBalance)
	assert.Equal(t, int64(100), bobBalance)
}

// TestConservation checks that transfers never change the total across
// accounts and that grants/deducts change it by exactly their net.
func TestConservation(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	require.True(t, l.Grant(ctx, "a", 500))
	require.True(t, l.Grant(ctx, "b", 300))
	require.True(t, l.Deduct(ctx, "a", 120))
	require.True(t, l.Transfer(ctx, "a", "b", 200))
	require.True(t, l.Transfer(ctx, "b", "a", 50))

	aBalance, _ := l.Balance(ctx, "a")
	bBalance, _ := l.Balance(ctx, "b")
	assert.Equal(t, int64(500+300-120), aBalance+bBalance)
}

// grantFailStore makes every balance write for one user fail, simulating a
// store outage scoped to the transfer's credit leg.
type grantFailStore struct {
	store.Store
	failUserID string
}

func (s *grantFailStore) Upsert(ctx context.Context, collection string, filter store.Filter, doc any) error {
	if rec, ok := doc.(models.CurrencyRecord); ok && rec.UserID == s.failUserID {
		return errors.New("synthetic store failure")
	}
	return s.Store.Upsert(ctx, collection, filter, doc)
}

func TestTransferRefundsOnFailedCredit(t *testing.T) {
	base := store.NewMemory()
	l := NewLedger(&grantFailStore{Store: base, failUserID: "bob"}, Config{MinAmount: 1, MaxAmount: 10_000})
	ctx := context.Background()
	require.True(t, l.Grant(ctx, "alice", 50))

	assert.False(t, l.Transfer(ctx, "alice", "bob", 50))

	aliceBalance, err := l.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(50), aliceBalance, "debit leg must be refunded")

	bobBalance, err := l.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bobBalance)
}

func TestSetBalance(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	assert.True(t, l.SetBalance(ctx, "dave", 0))
	assert.True(t, l.SetBalance(ctx, "dave", 777))
	assert.False(t, l.SetBalance(ctx, "dave", -1))

	balance, err := l.Balance(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, int64(777), balance)
}
