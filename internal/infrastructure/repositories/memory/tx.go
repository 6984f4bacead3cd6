package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
)

// memTx stages writes until commit. Deleted rows are staged as nil values.
type memTx struct {
	store *Store

	held  map[uuid.UUID]bool
	order []uuid.UUID

	accounts    map[uuid.UUID]*entities.Account
	payments    map[uuid.UUID]*entities.Payment
	withdrawals map[uuid.UUID]*entities.WithdrawalRequest
	deposits    map[uuid.UUID]*entities.DepositNotification
}

var _ repositories.LedgerTx = (*memTx)(nil)

func newTx(s *Store) *memTx {
	return &memTx{
		store:       s,
		held:        make(map[uuid.UUID]bool),
		accounts:    make(map[uuid.UUID]*entities.Account),
		payments:    make(map[uuid.UUID]*entities.Payment),
		withdrawals: make(map[uuid.UUID]*entities.WithdrawalRequest),
		deposits:    make(map[uuid.UUID]*entities.DepositNotification),
	}
}

func (tx *memTx) lock(ctx context.Context, id uuid.UUID) error {
	if tx.held[id] {
		return nil
	}
	if err := tx.store.acquire(ctx, id); err != nil {
		return err
	}
	tx.held[id] = true
	tx.order = append(tx.order, id)
	return nil
}

// uniqueKey derives the lock id guarding one value of a unique constraint
func uniqueKey(constraint string, values ...string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(constraint+"\x00"+strings.Join(values, "\x00")))
}

func (tx *memTx) requireLock(kind string, id uuid.UUID) error {
	if !tx.held[id] {
		return fmt.Errorf("%s %s is not locked by this transaction", kind, id)
	}
	return nil
}

func (tx *memTx) commit() {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range tx.accounts {
		if a == nil {
			delete(s.accounts, id)
			continue
		}
		s.accounts[id] = a
	}
	for id, p := range tx.payments {
		if p == nil {
			delete(s.payments, id)
			continue
		}
		s.payments[id] = p
	}
	for id, w := range tx.withdrawals {
		if w == nil {
			delete(s.withdrawals, id)
			continue
		}
		s.withdrawals[id] = w
	}
	for id, d := range tx.deposits {
		if d == nil {
			delete(s.deposits, id)
			continue
		}
		s.deposits[id] = d
	}
}

// release frees row locks in reverse acquisition order
func (tx *memTx) release() {
	for i := len(tx.order) - 1; i >= 0; i-- {
		tx.store.releaseLock(tx.order[i])
	}
	tx.order = nil
	tx.held = map[uuid.UUID]bool{}
}

// ===== visible state: staged writes over committed rows =====

func (tx *memTx) account(id uuid.UUID) *entities.Account {
	if a, ok := tx.accounts[id]; ok {
		if a == nil {
			return nil
		}
		return copyAccount(a)
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	if a, ok := tx.store.accounts[id]; ok {
		return copyAccount(a)
	}
	return nil
}

func (tx *memTx) payment(id uuid.UUID) *entities.Payment {
	if p, ok := tx.payments[id]; ok {
		if p == nil {
			return nil
		}
		return copyPayment(p)
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	if p, ok := tx.store.payments[id]; ok {
		return copyPayment(p)
	}
	return nil
}

func (tx *memTx) withdrawal(id uuid.UUID) *entities.WithdrawalRequest {
	if w, ok := tx.withdrawals[id]; ok {
		if w == nil {
			return nil
		}
		return copyWithdrawal(w)
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	if w, ok := tx.store.withdrawals[id]; ok {
		return copyWithdrawal(w)
	}
	return nil
}

func (tx *memTx) deposit(id uuid.UUID) *entities.DepositNotification {
	if d, ok := tx.deposits[id]; ok {
		if d == nil {
			return nil
		}
		return copyDeposit(d)
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	if d, ok := tx.store.deposits[id]; ok {
		return copyDeposit(d)
	}
	return nil
}

// ===== Accounts =====

func (tx *memTx) LockAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	if err := tx.lock(ctx, accountID); err != nil {
		return nil, err
	}
	a := tx.account(accountID)
	if a == nil {
		return nil, apperrors.NotFoundError("ACCOUNT")
	}
	return a, nil
}

func (tx *memTx) ApplyDelta(ctx context.Context, accountID uuid.UUID, usdtDelta, btcDelta decimal.Decimal) (*entities.Account, error) {
	if err := tx.requireLock("account", accountID); err != nil {
		return nil, err
	}
	a := tx.account(accountID)
	if a == nil {
		return nil, apperrors.NotFoundError("ACCOUNT")
	}

	usdt := a.USDTBalance.Add(usdtDelta)
	if usdt.IsNegative() {
		return nil, apperrors.InsufficientFundsError(a.USDTBalance, usdtDelta.Neg())
	}
	btc := a.BTCBalance.Add(btcDelta)
	if btc.IsNegative() {
		return nil, apperrors.InsufficientFundsError(a.BTCBalance, btcDelta.Neg())
	}

	a.USDTBalance = usdt
	a.BTCBalance = btc
	a.UpdatedAt = tx.store.now()
	tx.accounts[accountID] = a
	return copyAccount(a), nil
}

func (tx *memTx) InsertAccount(ctx context.Context, account *entities.Account) error {
	if tx.account(account.ID) != nil {
		return apperrors.ConflictError("ACCOUNT", "account already exists")
	}
	if account.Username != "" {
		// serialises inserts of the same username the way a unique index does
		if err := tx.lock(ctx, uniqueKey("username", strings.ToLower(account.Username))); err != nil {
			return err
		}
		if tx.usernameTaken(account.Username) {
			return apperrors.ConflictError("ACCOUNT", "username already taken")
		}
	}
	if err := tx.lock(ctx, account.ID); err != nil {
		return err
	}
	tx.accounts[account.ID] = copyAccount(account)
	return nil
}

func (tx *memTx) usernameTaken(username string) bool {
	for _, a := range tx.accounts {
		if a != nil && strings.EqualFold(a.Username, username) {
			return true
		}
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	for id, a := range tx.store.accounts {
		if staged, ok := tx.accounts[id]; ok && staged == nil {
			continue
		}
		if strings.EqualFold(a.Username, username) {
			return true
		}
	}
	return false
}

// UpdateAccountProfile writes tier and KYC fields, never balances
func (tx *memTx) UpdateAccountProfile(ctx context.Context, account *entities.Account) error {
	if err := tx.requireLock("account", account.ID); err != nil {
		return err
	}
	a := tx.account(account.ID)
	if a == nil {
		return apperrors.NotFoundError("ACCOUNT")
	}
	a.Tier = account.Tier
	a.KYCStatus = account.KYCStatus
	a.Verified = account.Verified
	a.UpdatedAt = tx.store.now()
	tx.accounts[account.ID] = a
	return nil
}

func (tx *memTx) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := tx.requireLock("account", accountID); err != nil {
		return err
	}
	if tx.account(accountID) == nil {
		return apperrors.NotFoundError("ACCOUNT")
	}
	tx.accounts[accountID] = nil
	return nil
}

func (tx *memTx) CountAccountRecords(ctx context.Context, accountID uuid.UUID) (int, error) {
	count := 0
	seen := make(map[uuid.UUID]bool)

	for id, p := range tx.payments {
		seen[id] = true
		if p != nil && p.AccountID == accountID {
			count++
		}
	}
	for id, w := range tx.withdrawals {
		seen[id] = true
		if w != nil && w.AccountID == accountID {
			count++
		}
	}
	for id, d := range tx.deposits {
		seen[id] = true
		if d != nil && d.AccountID == accountID {
			count++
		}
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	for id, p := range tx.store.payments {
		if !seen[id] && p.AccountID == accountID {
			count++
		}
	}
	for id, w := range tx.store.withdrawals {
		if !seen[id] && w.AccountID == accountID {
			count++
		}
	}
	for id, d := range tx.store.deposits {
		if !seen[id] && d.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

// ===== Packages =====

func (tx *memTx) GetPackage(ctx context.Context, packageID uuid.UUID) (*entities.Package, error) {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	p, ok := tx.store.packages[packageID]
	if !ok {
		return nil, apperrors.NotFoundError("PACKAGE")
	}
	return copyPackage(p), nil
}

// ===== Payments =====

func (tx *memTx) InsertPayment(ctx context.Context, payment *entities.Payment) error {
	if tx.account(payment.AccountID) == nil {
		return apperrors.NotFoundError("ACCOUNT")
	}
	if err := tx.lock(ctx, payment.ID); err != nil {
		return err
	}
	tx.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (tx *memTx) LockPayment(ctx context.Context, paymentID uuid.UUID) (*entities.Payment, error) {
	if err := tx.lock(ctx, paymentID); err != nil {
		return nil, err
	}
	p := tx.payment(paymentID)
	if p == nil {
		return nil, apperrors.NotFoundError("PAYMENT")
	}
	return p, nil
}

func (tx *memTx) UpdatePayment(ctx context.Context, payment *entities.Payment) error {
	if err := tx.requireLock("payment", payment.ID); err != nil {
		return err
	}
	if tx.payment(payment.ID) == nil {
		return apperrors.NotFoundError("PAYMENT")
	}
	tx.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (tx *memTx) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	if err := tx.requireLock("payment", paymentID); err != nil {
		return err
	}
	if tx.payment(paymentID) == nil {
		return apperrors.NotFoundError("PAYMENT")
	}
	tx.payments[paymentID] = nil
	return nil
}

// ===== Withdrawals =====

func (tx *memTx) InsertWithdrawal(ctx context.Context, withdrawal *entities.WithdrawalRequest) error {
	if tx.account(withdrawal.AccountID) == nil {
		return apperrors.NotFoundError("ACCOUNT")
	}
	if err := tx.lock(ctx, withdrawal.ID); err != nil {
		return err
	}
	tx.withdrawals[withdrawal.ID] = copyWithdrawal(withdrawal)
	return nil
}

func (tx *memTx) LockWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*entities.WithdrawalRequest, error) {
	if err := tx.lock(ctx, withdrawalID); err != nil {
		return nil, err
	}
	w := tx.withdrawal(withdrawalID)
	if w == nil {
		return nil, apperrors.NotFoundError("WITHDRAWAL")
	}
	return w, nil
}

func (tx *memTx) UpdateWithdrawal(ctx context.Context, withdrawal *entities.WithdrawalRequest) error {
	if err := tx.requireLock("withdrawal", withdrawal.ID); err != nil {
		return err
	}
	if tx.withdrawal(withdrawal.ID) == nil {
		return apperrors.NotFoundError("WITHDRAWAL")
	}
	tx.withdrawals[withdrawal.ID] = copyWithdrawal(withdrawal)
	return nil
}

// ===== Deposits =====

func (tx *memTx) InsertDeposit(ctx context.Context, deposit *entities.DepositNotification) error {
	if tx.account(deposit.AccountID) == nil {
		return apperrors.NotFoundError("ACCOUNT")
	}
	if deposit.TxHash != nil {
		if err := tx.lock(ctx, uniqueKey("tx_hash", deposit.Network, *deposit.TxHash)); err != nil {
			return err
		}
		if tx.txHashSeen(deposit.Network, *deposit.TxHash) {
			return apperrors.ConflictError("DEPOSIT", "record already exists")
		}
	}
	if err := tx.lock(ctx, deposit.ID); err != nil {
		return err
	}
	tx.deposits[deposit.ID] = copyDeposit(deposit)
	return nil
}

func (tx *memTx) LockDeposit(ctx context.Context, depositID uuid.UUID) (*entities.DepositNotification, error) {
	if err := tx.lock(ctx, depositID); err != nil {
		return nil, err
	}
	d := tx.deposit(depositID)
	if d == nil {
		return nil, apperrors.NotFoundError("DEPOSIT")
	}
	return d, nil
}

func (tx *memTx) UpdateDeposit(ctx context.Context, deposit *entities.DepositNotification) error {
	if err := tx.requireLock("deposit", deposit.ID); err != nil {
		return err
	}
	if tx.deposit(deposit.ID) == nil {
		return apperrors.NotFoundError("DEPOSIT")
	}
	tx.deposits[deposit.ID] = copyDeposit(deposit)
	return nil
}

// txHashSeen enforces one notification per (network, tx hash)
func (tx *memTx) txHashSeen(network, hash string) bool {
	match := func(d *entities.DepositNotification) bool {
		return d != nil && d.TxHash != nil && d.Network == network && *d.TxHash == hash
	}
	for _, d := range tx.deposits {
		if match(d) {
			return true
		}
	}
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	for id, d := range tx.store.deposits {
		if _, staged := tx.deposits[id]; staged {
			continue
		}
		if match(d) {
			return true
		}
	}
	return false
}
