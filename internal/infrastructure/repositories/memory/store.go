// Package memory is an in-process implementation of the ledger store.
//
// It keeps the same contract as the Postgres store: row locks are exclusive
// and held until the transaction ends, writes are staged on the transaction
// and become visible only when it commits, and a lock wait longer than the
// configured timeout fails with a storage failure.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
)

var errLockTimeout = errors.New("canceling statement due to lock timeout")

// Option configures a Store
type Option func(*Store)

// WithLockTimeout bounds how long a transaction waits for a row lock
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds committed state guarded by mu plus one lock per row
type Store struct {
	mu          sync.RWMutex
	accounts    map[uuid.UUID]*entities.Account
	payments    map[uuid.UUID]*entities.Payment
	withdrawals map[uuid.UUID]*entities.WithdrawalRequest
	deposits    map[uuid.UUID]*entities.DepositNotification
	packages    map[uuid.UUID]*entities.Package

	locksMu sync.Mutex
	locks   map[uuid.UUID]*rowLock

	lockTimeout time.Duration
	now         func() time.Time
}

var _ repositories.LedgerStore = (*Store)(nil)

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts:    make(map[uuid.UUID]*entities.Account),
		payments:    make(map[uuid.UUID]*entities.Payment),
		withdrawals: make(map[uuid.UUID]*entities.WithdrawalRequest),
		deposits:    make(map[uuid.UUID]*entities.DepositNotification),
		packages:    make(map[uuid.UUID]*entities.Package),
		locks:       make(map[uuid.UUID]*rowLock),
		lockTimeout: 5 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn with a fresh transaction and commits its staged writes if fn succeeds
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.LedgerTx) error) error {
	tx := newTx(s)
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

// rowLock is an exclusive lock on one row. refs counts holders and waiters so
// the entry can be dropped once nobody uses it.
type rowLock struct {
	ch   chan struct{}
	refs int
}

func (s *Store) ref(id uuid.UUID) *rowLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[id] = l
	}
	l.refs++
	return l
}

func (s *Store) unref(id uuid.UUID, l *rowLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
}

func (s *Store) acquire(ctx context.Context, id uuid.UUID) error {
	l := s.ref(id)

	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.unref(id, l)
		return apperrors.StorageFailureError("acquire row lock", ctx.Err())
	case <-timeout:
		s.unref(id, l)
		return apperrors.StorageFailureError("acquire row lock", errLockTimeout)
	}
}

func (s *Store) releaseLock(id uuid.UUID) {
	s.locksMu.Lock()
	l := s.locks[id]
	s.locksMu.Unlock()

	<-l.ch
	s.unref(id, l)
}

// ===== Reads =====

// GetAccount returns the committed account
func (s *Store) GetAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.NotFoundError("ACCOUNT")
	}
	return copyAccount(a), nil
}

// ListAccounts lists accounts, newest first
func (s *Store) ListAccounts(ctx context.Context, params entities.ListParams) ([]*entities.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, copyAccount(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return page(out, params), nil
}

// GetPayment returns the committed payment
func (s *Store) GetPayment(ctx context.Context, paymentID uuid.UUID) (*entities.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, apperrors.NotFoundError("PAYMENT")
	}
	return copyPayment(p), nil
}

// GetWithdrawal returns the committed withdrawal request
func (s *Store) GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*entities.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.withdrawals[withdrawalID]
	if !ok {
		return nil, apperrors.NotFoundError("WITHDRAWAL")
	}
	return copyWithdrawal(w), nil
}

// GetDeposit returns the committed deposit notification
func (s *Store) GetDeposit(ctx context.Context, depositID uuid.UUID) (*entities.DepositNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deposits[depositID]
	if !ok {
		return nil, apperrors.NotFoundError("DEPOSIT")
	}
	return copyDeposit(d), nil
}

// ListPayments lists an account's payments, newest first
func (s *Store) ListPayments(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Payment
	for _, p := range s.payments {
		if p.AccountID == accountID {
			out = append(out, copyPayment(p))
		}
	}
	sortRecords(out)
	return page(out, params), nil
}

// ListWithdrawals lists an account's withdrawal requests, newest first
func (s *Store) ListWithdrawals(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.WithdrawalRequest
	for _, w := range s.withdrawals {
		if w.AccountID == accountID {
			out = append(out, copyWithdrawal(w))
		}
	}
	sortRecords(out)
	return page(out, params), nil
}

// ListDeposits lists an account's deposit notifications, newest first
func (s *Store) ListDeposits(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.DepositNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.DepositNotification
	for _, d := range s.deposits {
		if d.AccountID == accountID {
			out = append(out, copyDeposit(d))
		}
	}
	sortRecords(out)
	return page(out, params), nil
}

// ListPendingWithdrawals lists every pending withdrawal, newest first
func (s *Store) ListPendingWithdrawals(ctx context.Context, params entities.ListParams) ([]*entities.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.WithdrawalRequest
	for _, w := range s.withdrawals {
		if w.Status == entities.WithdrawalStatusPending {
			out = append(out, copyWithdrawal(w))
		}
	}
	sortRecords(out)
	return page(out, params), nil
}

// ListPendingDeposits lists every pending deposit notification, newest first
func (s *Store) ListPendingDeposits(ctx context.Context, params entities.ListParams) ([]*entities.DepositNotification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.DepositNotification
	for _, d := range s.deposits {
		if d.Status == entities.DepositStatusPending {
			out = append(out, copyDeposit(d))
		}
	}
	sortRecords(out)
	return page(out, params), nil
}

// DerivedBalances recomputes every account's balance from its records
func (s *Store) DerivedBalances(ctx context.Context) ([]*repositories.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	derived := make(map[uuid.UUID]decimal.Decimal, len(s.accounts))
	add := func(r entities.LedgerRecord) {
		id := r.Common().AccountID
		derived[id] = derived[id].Add(r.BalanceEffect())
	}
	for _, p := range s.payments {
		add(p)
	}
	for _, w := range s.withdrawals {
		add(w)
	}
	for _, d := range s.deposits {
		add(d)
	}

	now := s.now()
	out := make([]*repositories.BalanceSnapshot, 0, len(s.accounts))
	for id, a := range s.accounts {
		out = append(out, &repositories.BalanceSnapshot{
			AccountID: id,
			Stored:    a.USDTBalance,
			Derived:   derived[id],
			CheckedAt: now,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID.String() < out[j].AccountID.String() })
	return out, nil
}

// ===== helpers =====

type record interface {
	Common() *entities.Record
}

func sortRecords[T record](items []T) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Common(), items[j].Common()
		return newerFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
}

func newerFirst(a, b time.Time, idA, idB uuid.UUID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA.String() < idB.String()
}

func page[T any](items []T, params entities.ListParams) []T {
	params = params.Normalize()
	if params.Offset >= len(items) {
		return []T{}
	}
	end := params.Offset + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[params.Offset:end]
}

func copyAccount(a *entities.Account) *entities.Account {
	c := *a
	return &c
}

func copyPayment(p *entities.Payment) *entities.Payment {
	c := *p
	return &c
}

func copyWithdrawal(w *entities.WithdrawalRequest) *entities.WithdrawalRequest {
	c := *w
	return &c
}

func copyDeposit(d *entities.DepositNotification) *entities.DepositNotification {
	c := *d
	return &c
}

func copyPackage(p *entities.Package) *entities.Package {
	c := *p
	return &c
}
