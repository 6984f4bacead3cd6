package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/repositories"
)

const (
	accountColumns = `id, COALESCE(username, '') AS username, tier, kyc_status, verified,
		usdt_balance, btc_balance, created_at, updated_at`
	paymentColumns = `id, account_id, package_id, amount, commission, status,
		created_at, updated_at, resolved_at`
	withdrawalColumns = `id, account_id, amount, address, network, notes, status,
		created_at, updated_at, resolved_at`
	depositColumns = `id, account_id, amount, tx_hash, network, notes, status,
		created_at, updated_at, resolved_at`
	packageColumns = `id, name, description, price_usd, btc_amount, duration_days, is_active,
		created_at, updated_at`
)

// LedgerRepository is the Postgres ledger store
type LedgerRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
	logger      *zap.Logger
}

var _ repositories.LedgerStore = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new ledger repository. A zero lockTimeout leaves
// the server default in place.
func NewLedgerRepository(db *sqlx.DB, lockTimeout time.Duration, logger *zap.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:          db,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// WithinTx runs fn in a READ COMMITTED transaction and commits if fn succeeds
func (r *LedgerRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.LedgerTx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if r.lockTimeout > 0 {
		// SET does not accept bind parameters
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return classify("set lock timeout", err)
		}
	}

	if err = fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// ===== Reads =====

// GetAccount retrieves an account by ID
func (r *LedgerRepository) GetAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	var account entities.Account
	err := r.db.GetContext(ctx, &account, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("ACCOUNT")
		}
		return nil, classify("get account", err)
	}
	return &account, nil
}

// ListAccounts lists accounts, newest first
func (r *LedgerRepository) ListAccounts(ctx context.Context, params entities.ListParams) ([]*entities.Account, error) {
	params = params.Normalize()
	accounts := []*entities.Account{}
	err := r.db.SelectContext(ctx, &accounts, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, classify("list accounts", err)
	}
	return accounts, nil
}

// GetPayment retrieves a payment by ID
func (r *LedgerRepository) GetPayment(ctx context.Context, paymentID uuid.UUID) (*entities.Payment, error) {
	var payment entities.Payment
	err := r.db.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("PAYMENT")
		}
		return nil, classify("get payment", err)
	}
	return &payment, nil
}

// GetWithdrawal retrieves a withdrawal request by ID
func (r *LedgerRepository) GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*entities.WithdrawalRequest, error) {
	var w entities.WithdrawalRequest
	err := r.db.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, withdrawalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("WITHDRAWAL")
		}
		return nil, classify("get withdrawal", err)
	}
	return &w, nil
}

// GetDeposit retrieves a deposit notification by ID
func (r *LedgerRepository) GetDeposit(ctx context.Context, depositID uuid.UUID) (*entities.DepositNotification, error) {
	var d entities.DepositNotification
	err := r.db.GetContext(ctx, &d, `SELECT `+depositColumns+` FROM deposit_notifications WHERE id = $1`, depositID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("DEPOSIT")
		}
		return nil, classify("get deposit", err)
	}
	return &d, nil
}

// ListPayments lists an account's payments, newest first
func (r *LedgerRepository) ListPayments(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.Payment, error) {
	params = params.Normalize()
	payments := []*entities.Payment{}
	err := r.db.SelectContext(ctx, &payments, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, accountID, params.Limit, params.Offset)
	if err != nil {
		return nil, classify("list payments", err)
	}
	return payments, nil
}

// ListWithdrawals lists an account's withdrawal requests, newest first
func (r *LedgerRepository) ListWithdrawals(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.WithdrawalRequest, error) {
	params = params.Normalize()
	withdrawals := []*entities.WithdrawalRequest{}
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, accountID, params.Limit, params.Offset)
	if err != nil {
		return nil, classify("list withdrawals", err)
	}
	return withdrawals, nil
}

// ListDeposits lists an account's deposit notifications, newest first
func (r *LedgerRepository) ListDeposits(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.DepositNotification, error) {
	params = params.Normalize()
	deposits := []*entities.DepositNotification{}
	err := r.db.SelectContext(ctx, &deposits, `
		SELECT `+depositColumns+`
		FROM deposit_notifications
		WHERE account_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, accountID, params.Limit, params.Offset)
	if err != nil {
		return nil, classify("list deposits", err)
	}
	return deposits, nil
}

// ListPendingWithdrawals is the admin withdrawal queue
func (r *LedgerRepository) ListPendingWithdrawals(ctx context.Context, params entities.ListParams) ([]*entities.WithdrawalRequest, error) {
	params = params.Normalize()
	withdrawals := []*entities.WithdrawalRequest{}
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT `+withdrawalColumns+`
		FROM withdrawal_requests
		WHERE status = 'pending'
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, classify("list pending withdrawals", err)
	}
	return withdrawals, nil
}

// ListPendingDeposits is the admin deposit queue
func (r *LedgerRepository) ListPendingDeposits(ctx context.Context, params entities.ListParams) ([]*entities.DepositNotification, error) {
	params = params.Normalize()
	deposits := []*entities.DepositNotification{}
	err := r.db.SelectContext(ctx, &deposits, `
		SELECT `+depositColumns+`
		FROM deposit_notifications
		WHERE status = 'pending'
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, classify("list pending deposits", err)
	}
	return deposits, nil
}

// DerivedBalances compares every stored balance with the sum of its record effects
func (r *LedgerRepository) DerivedBalances(ctx context.Context) ([]*repositories.BalanceSnapshot, error) {
	query := `
		SELECT a.id AS account_id,
		       a.usdt_balance AS stored,
		       COALESCE((SELECT SUM(d.amount) FROM deposit_notifications d
		                 WHERE d.account_id = a.id AND d.status = 'confirmed'), 0)
		     - COALESCE((SELECT SUM(w.amount) FROM withdrawal_requests w
		                 WHERE w.account_id = a.id AND w.status IN ('pending', 'completed')), 0)
		     + COALESCE((SELECT SUM(p.commission - p.amount) FROM payments p
		                 WHERE p.account_id = a.id AND p.status = 'completed'), 0) AS derived
		FROM accounts a
		ORDER BY a.id`

	snapshots := []*repositories.BalanceSnapshot{}
	if err := r.db.SelectContext(ctx, &snapshots, query); err != nil {
		return nil, classify("derive balances", err)
	}

	now := time.Now()
	for _, s := range snapshots {
		s.CheckedAt = now
	}
	return snapshots, nil
}

// ===== Transaction =====

type pgTx struct {
	tx *sqlx.Tx
}

var _ repositories.LedgerTx = (*pgTx)(nil)

func (t *pgTx) LockAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error) {
	var account entities.Account
	err := t.tx.GetContext(ctx, &account, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("ACCOUNT")
		}
		return nil, classify("lock account", err)
	}
	return &account, nil
}

// ApplyDelta updates both balances in one statement guarded against going negative
func (t *pgTx) ApplyDelta(ctx context.Context, accountID uuid.UUID, usdtDelta, btcDelta decimal.Decimal) (*entities.Account, error) {
	var account entities.Account
	err := t.tx.GetContext(ctx, &account, `
		UPDATE accounts
		SET usdt_balance = usdt_balance + $2,
		    btc_balance = btc_balance + $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND usdt_balance + $2 >= 0
		  AND btc_balance + $3 >= 0
		RETURNING `+accountColumns, accountID, usdtDelta, btcDelta)
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("apply balance delta", err)
	}

	current, err := t.LockAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if current.USDTBalance.Add(usdtDelta).IsNegative() {
		return nil, apperrors.InsufficientFundsError(current.USDTBalance, usdtDelta.Neg())
	}
	return nil, apperrors.InsufficientFundsError(current.BTCBalance, btcDelta.Neg())
}

func (t *pgTx) InsertAccount(ctx context.Context, account *entities.Account) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO accounts (id, username, tier, kyc_status, verified, usdt_balance, btc_balance, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)`,
		account.ID, account.Username, account.Tier, account.KYCStatus, account.Verified,
		account.USDTBalance, account.BTCBalance, account.CreatedAt, account.UpdatedAt)
	return classify("insert account", err)
}

func (t *pgTx) UpdateAccountProfile(ctx context.Context, account *entities.Account) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET tier = $2, kyc_status = $3, verified = $4, updated_at = NOW()
		WHERE id = $1`, account.ID, account.Tier, account.KYCStatus, account.Verified)
	if err != nil {
		return classify("update account", err)
	}
	return requireRow(res, "ACCOUNT")
}

func (t *pgTx) DeleteAccount(ctx context.Context, accountID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return classify("delete account", err)
	}
	return requireRow(res, "ACCOUNT")
}

func (t *pgTx) CountAccountRecords(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := t.tx.GetContext(ctx, &count, `
		SELECT (SELECT COUNT(*) FROM payments WHERE account_id = $1)
		     + (SELECT COUNT(*) FROM withdrawal_requests WHERE account_id = $1)
		     + (SELECT COUNT(*) FROM deposit_notifications WHERE account_id = $1)`, accountID)
	if err != nil {
		return 0, classify("count account records", err)
	}
	return count, nil
}

func (t *pgTx) GetPackage(ctx context.Context, packageID uuid.UUID) (*entities.Package, error) {
	var pkg entities.Package
	err := t.tx.GetContext(ctx, &pkg, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, packageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("PACKAGE")
		}
		return nil, classify("get package", err)
	}
	return &pkg, nil
}

// ===== Payments =====

func (t *pgTx) InsertPayment(ctx context.Context, p *entities.Payment) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payments (id, account_id, package_id, amount, commission, status, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.AccountID, p.PackageID, p.Amount, p.Commission, p.Status, p.CreatedAt, p.UpdatedAt, p.ResolvedAt)
	return classify("insert payment", err)
}

func (t *pgTx) LockPayment(ctx context.Context, paymentID uuid.UUID) (*entities.Payment, error) {
	var payment entities.Payment
	err := t.tx.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("PAYMENT")
		}
		return nil, classify("lock payment", err)
	}
	return &payment, nil
}

func (t *pgTx) UpdatePayment(ctx context.Context, p *entities.Payment) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE payments SET status = $2, updated_at = $3, resolved_at = $4 WHERE id = $1`,
		p.ID, p.Status, p.UpdatedAt, p.ResolvedAt)
	if err != nil {
		return classify("update payment", err)
	}
	return requireRow(res, "PAYMENT")
}

func (t *pgTx) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, paymentID)
	if err != nil {
		return classify("delete payment", err)
	}
	return requireRow(res, "PAYMENT")
}

// ===== Withdrawals =====

func (t *pgTx) InsertWithdrawal(ctx context.Context, w *entities.WithdrawalRequest) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO withdrawal_requests (id, account_id, amount, address, network, notes, status, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.AccountID, w.Amount, w.Address, w.Network, w.Notes, w.Status, w.CreatedAt, w.UpdatedAt, w.ResolvedAt)
	return classify("insert withdrawal", err)
}

func (t *pgTx) LockWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*entities.WithdrawalRequest, error) {
	var w entities.WithdrawalRequest
	err := t.tx.GetContext(ctx, &w, `SELECT `+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, withdrawalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("WITHDRAWAL")
		}
		return nil, classify("lock withdrawal", err)
	}
	return &w, nil
}

func (t *pgTx) UpdateWithdrawal(ctx context.Context, w *entities.WithdrawalRequest) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE withdrawal_requests SET status = $2, notes = $3, updated_at = $4, resolved_at = $5 WHERE id = $1`,
		w.ID, w.Status, w.Notes, w.UpdatedAt, w.ResolvedAt)
	if err != nil {
		return classify("update withdrawal", err)
	}
	return requireRow(res, "WITHDRAWAL")
}

// ===== Deposits =====

func (t *pgTx) InsertDeposit(ctx context.Context, d *entities.DepositNotification) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO deposit_notifications (id, account_id, amount, tx_hash, network, notes, status, created_at, updated_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		d.ID, d.AccountID, d.Amount, d.TxHash, d.Network, d.Notes, d.Status, d.CreatedAt, d.UpdatedAt, d.ResolvedAt)
	return classify("insert deposit", err)
}

func (t *pgTx) LockDeposit(ctx context.Context, depositID uuid.UUID) (*entities.DepositNotification, error) {
	var d entities.DepositNotification
	err := t.tx.GetContext(ctx, &d, `SELECT `+depositColumns+` FROM deposit_notifications WHERE id = $1 FOR UPDATE`, depositID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError("DEPOSIT")
		}
		return nil, classify("lock deposit", err)
	}
	return &d, nil
}

func (t *pgTx) UpdateDeposit(ctx context.Context, d *entities.DepositNotification) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE deposit_notifications SET status = $2, notes = $3, updated_at = $4, resolved_at = $5 WHERE id = $1`,
		d.ID, d.Status, d.Notes, d.UpdatedAt, d.ResolvedAt)
	if err != nil {
		return classify("update deposit", err)
	}
	return requireRow(res, "DEPOSIT")
}

func requireRow(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify("rows affected", err)
	}
	if n == 0 {
		return apperrors.NotFoundError(resource)
	}
	return nil
}
