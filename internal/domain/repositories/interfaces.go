package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flash-service/flash_service/internal/domain/entities"
)

// LedgerStore is the account balance store together with the ledger record tables.
// Every balance mutation happens inside WithinTx; reads outside a transaction see
// committed state only.
type LedgerStore interface {
	// WithinTx runs fn inside one atomic unit. If fn returns an error nothing it
	// staged is visible afterwards; otherwise everything commits together.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error

	AccountReader
	RecordReader
}

// LedgerTx is the set of operations available inside a ledger transaction.
// Lock* methods take an exclusive row lock held until the transaction ends.
type LedgerTx interface {
	LockAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error)
	// ApplyDelta adds the deltas to a locked account and fails with
	// InsufficientFunds if either balance would become negative.
	ApplyDelta(ctx context.Context, accountID uuid.UUID, usdtDelta, btcDelta decimal.Decimal) (*entities.Account, error)

	InsertAccount(ctx context.Context, account *entities.Account) error
	UpdateAccountProfile(ctx context.Context, account *entities.Account) error
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error
	CountAccountRecords(ctx context.Context, accountID uuid.UUID) (int, error)

	GetPackage(ctx context.Context, packageID uuid.UUID) (*entities.Package, error)

	InsertPayment(ctx context.Context, payment *entities.Payment) error
	LockPayment(ctx context.Context, paymentID uuid.UUID) (*entities.Payment, error)
	UpdatePayment(ctx context.Context, payment *entities.Payment) error
	DeletePayment(ctx context.Context, paymentID uuid.UUID) error

	InsertWithdrawal(ctx context.Context, withdrawal *entities.WithdrawalRequest) error
	LockWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*entities.WithdrawalRequest, error)
	UpdateWithdrawal(ctx context.Context, withdrawal *entities.WithdrawalRequest) error

	InsertDeposit(ctx context.Context, deposit *entities.DepositNotification) error
	LockDeposit(ctx context.Context, depositID uuid.UUID) (*entities.DepositNotification, error)
	UpdateDeposit(ctx context.Context, deposit *entities.DepositNotification) error
}

// AccountReader reads committed account state
type AccountReader interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error)
	ListAccounts(ctx context.Context, params entities.ListParams) ([]*entities.Account, error)
}

// RecordReader reads committed ledger records
type RecordReader interface {
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*entities.Payment, error)
	GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*entities.WithdrawalRequest, error)
	GetDeposit(ctx context.Context, depositID uuid.UUID) (*entities.DepositNotification, error)

	ListPayments(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.Payment, error)
	ListWithdrawals(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.WithdrawalRequest, error)
	ListDeposits(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.DepositNotification, error)

	ListPendingWithdrawals(ctx context.Context, params entities.ListParams) ([]*entities.WithdrawalRequest, error)
	ListPendingDeposits(ctx context.Context, params entities.ListParams) ([]*entities.DepositNotification, error)

	// DerivedBalances returns, for every account, the stored USDT balance next to
	// the balance implied by its ledger records.
	DerivedBalances(ctx context.Context) ([]*BalanceSnapshot, error)
}

// BalanceSnapshot pairs a stored balance with the balance derived from records
type BalanceSnapshot struct {
	AccountID uuid.UUID       `db:"account_id"`
	Stored    decimal.Decimal `db:"stored"`
	Derived   decimal.Decimal `db:"derived"`
	CheckedAt time.Time       `db:"-"`
}

// Drift is stored minus derived
func (b *BalanceSnapshot) Drift() decimal.Decimal {
	return b.Stored.Sub(b.Derived)
}

// PackageRepository persists the package catalog
type PackageRepository interface {
	Create(ctx context.Context, pkg *entities.Package) error
	Update(ctx context.Context, pkg *entities.Package) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Package, error)
	ListActive(ctx context.Context) ([]*entities.Package, error)
	ListAll(ctx context.Context, params entities.ListParams) ([]*entities.Package, error)
	// Delete fails with Conflict when any payment references the package
	Delete(ctx context.Context, id uuid.UUID) error
}
