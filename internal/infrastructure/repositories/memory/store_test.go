package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
)

func (s *Store) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

func insertAccount(t *testing.T, s *Store, username string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := s.WithinTx(context.Background(), func(ctx context.Context, tx repositories.LedgerTx) error {
		return tx.InsertAccount(ctx, &entities.Account{ID: id, Username: username, Tier: entities.TierBronze})
	})
	require.NoError(t, err)
	return id
}

func TestRowLocksAreDroppedAfterRelease(t *testing.T) {
	s := NewStore(WithLockTimeout(10 * time.Millisecond))
	ctx := context.Background()

	accountID := insertAccount(t, s, "alice")
	for i := 0; i < 20; i++ {
		err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
			if _, err := tx.LockAccount(ctx, accountID); err != nil {
				return err
			}
			hash := uuid.NewString()
			return tx.InsertDeposit(ctx, &entities.DepositNotification{
				Record:  entities.Record{ID: uuid.New(), AccountID: accountID, Amount: decimal.NewFromInt(1)},
				TxHash:  &hash,
				Network: "TRC20",
				Status:  entities.DepositStatusPending,
			})
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, s.heldLocks())

	// a waiter that times out drops its reference too
	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
			if _, err := tx.LockAccount(ctx, accountID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.LedgerTx) error {
		_, err := tx.LockAccount(ctx, accountID)
		return err
	})
	assert.True(t, apperrors.IsStorageFailure(err))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 0, s.heldLocks())
}

func TestConcurrentUsernameInsertsConflict(t *testing.T) {
	s := NewStore()

	const writers = 8
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, writers)
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.WithinTx(context.Background(), func(ctx context.Context, tx repositories.LedgerTx) error {
				if err := tx.InsertAccount(ctx, &entities.Account{ID: uuid.New(), Username: "Satoshi", Tier: entities.TierBronze}); err != nil {
					return err
				}
				// keep the transaction open so the others overlap it
				time.Sleep(2 * time.Millisecond)
				return nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.True(t, apperrors.IsConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)

	accounts, err := s.ListAccounts(context.Background(), entities.ListParams{})
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	assert.Equal(t, 0, s.heldLocks())
}

func TestConcurrentTxHashInsertsConflict(t *testing.T) {
	s := NewStore()
	accountID := insertAccount(t, s, "")
	hash := "0xfeed"

	const writers = 8
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, writers)
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.WithinTx(context.Background(), func(ctx context.Context, tx repositories.LedgerTx) error {
				h := hash
				if err := tx.InsertDeposit(ctx, &entities.DepositNotification{
					Record:  entities.Record{ID: uuid.New(), AccountID: accountID, Amount: decimal.NewFromInt(5)},
					TxHash:  &h,
					Network: "ERC20",
					Status:  entities.DepositStatusPending,
				}); err != nil {
					return err
				}
				time.Sleep(2 * time.Millisecond)
				return nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	reported := 0
	for _, err := range errs {
		if err == nil {
			reported++
			continue
		}
		assert.True(t, apperrors.IsConflict(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, reported)

	deposits, err := s.ListDeposits(context.Background(), accountID, entities.ListParams{})
	require.NoError(t, err)
	assert.Len(t, deposits, 1)
}
