package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardswitch/card-switch/internal/domain/transaction"
)

func newPurchase(trace string) *transaction.Transaction {
	txn := transaction.New("0200", trace)
	txn.PANHash = transaction.HashPAN("4111111111111111")
	txn.Amount = decimal.RequireFromString("1500.00")
	return txn
}

func TestTransactionStore_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects duplicate purchase", func(t *testing.T) {
		store := NewTransactionStore()
		require.NoError(t, store.Save(ctx, newPurchase("123456")))

		err := store.Save(ctx, newPurchase("123456"))
		assert.ErrorIs(t, err, transaction.ErrDuplicateTrace{})
	})

	t.Run("reversals journal freely", func(t *testing.T) {
		store := NewTransactionStore()
		require.NoError(t, store.Save(ctx, newPurchase("123456")))

		first := transaction.New("0400", "123456")
		second := transaction.New("0400", "123456")
		assert.NoError(t, store.Save(ctx, first))
		assert.NoError(t, store.Save(ctx, second))
	})

	t.Run("stores a clone", func(t *testing.T) {
		store := NewTransactionStore()
		txn := newPurchase("123456")
		require.NoError(t, store.Save(ctx, txn))

		txn.Status = transaction.StatusError

		found, err := store.FindByTraceNumber(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, transaction.StatusPending, found.Status)
	})
}

func TestTransactionStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("rewrites by id", func(t *testing.T) {
		store := NewTransactionStore()
		txn := newPurchase("123456")
		require.NoError(t, store.Save(ctx, txn))

		txn.Status = transaction.StatusApproved
		txn.ResponseCode = "00"
		require.NoError(t, store.Update(ctx, txn))

		found, err := store.FindByTraceNumber(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, transaction.StatusApproved, found.Status)
		assert.Equal(t, "00", found.ResponseCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		store := NewTransactionStore()
		err := store.Update(ctx, newPurchase("123456"))
		assert.ErrorIs(t, err, transaction.ErrNotFound{})
	})
}

func TestTransactionStore_FindByTraceNumber(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore()

	_, err := store.FindByTraceNumber(ctx, "123456")
	assert.ErrorIs(t, err, transaction.ErrNotFound{TraceNumber: "123456"})

	purchase := newPurchase("123456")
	require.NoError(t, store.Save(ctx, purchase))
	reversal := transaction.New("0400", "123456")
	require.NoError(t, store.Save(ctx, reversal))

	found, err := store.FindByTraceNumber(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, reversal.ID, found.ID, "latest record wins")
}

func TestTransactionStore_MarkReversed(t *testing.T) {
	ctx := context.Background()

	approvedPurchase := func(store *TransactionStore, trace string) *transaction.Transaction {
		txn := newPurchase(trace)
		txn.Status = transaction.StatusApproved
		require.NoError(t, store.Save(ctx, txn))
		return txn
	}

	t.Run("flips approved purchase", func(t *testing.T) {
		store := NewTransactionStore()
		original := approvedPurchase(store, "123456")

		reversed, err := store.MarkReversed(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, original.ID, reversed.ID)
		assert.Equal(t, transaction.StatusReversed, reversed.Status)

		found, err := store.FindByTraceNumber(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, transaction.StatusReversed, found.Status)
	})

	t.Run("skips the reversal's own journal entry", func(t *testing.T) {
		store := NewTransactionStore()
		original := approvedPurchase(store, "123456")

		echo := transaction.New("0400", "123456")
		echo.Status = transaction.StatusApproved
		require.NoError(t, store.Save(ctx, echo))

		reversed, err := store.MarkReversed(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, original.ID, reversed.ID)
	})

	t.Run("second reversal is a replay", func(t *testing.T) {
		store := NewTransactionStore()
		approvedPurchase(store, "123456")

		_, err := store.MarkReversed(ctx, "123456")
		require.NoError(t, err)

		_, err = store.MarkReversed(ctx, "123456")
		assert.ErrorIs(t, err, transaction.ErrAlreadyReversed{TraceNumber: "123456"})
	})

	t.Run("missing original", func(t *testing.T) {
		store := NewTransactionStore()
		_, err := store.MarkReversed(ctx, "999999")
		assert.ErrorIs(t, err, transaction.ErrNotFound{TraceNumber: "999999"})
	})

	t.Run("declined purchase is not reversible", func(t *testing.T) {
		store := NewTransactionStore()
		txn := newPurchase("123456")
		txn.Status = transaction.StatusDeclined
		require.NoError(t, store.Save(ctx, txn))

		_, err := store.MarkReversed(ctx, "123456")
		assert.ErrorIs(t, err, transaction.ErrNotFound{TraceNumber: "123456"})
	})

	t.Run("concurrent reversals pick one winner", func(t *testing.T) {
		store := NewTransactionStore()
		approvedPurchase(store, "123456")

		const attempts = 16
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = store.MarkReversed(ctx, "123456")
			}(i)
		}
		wg.Wait()

		var won, replayed int
		for _, err := range errs {
			switch {
			case err == nil:
				won++
			default:
				assert.ErrorIs(t, err, transaction.ErrAlreadyReversed{})
				replayed++
			}
		}
		assert.Equal(t, 1, won)
		assert.Equal(t, attempts-1, replayed)
	})
}
