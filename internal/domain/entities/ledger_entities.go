package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordKind tags a member of the ledger record family
type RecordKind string

const (
	RecordKindPayment    RecordKind = "payment"
	RecordKindWithdrawal RecordKind = "withdrawal"
	RecordKindDeposit    RecordKind = "deposit"
)

// LedgerRecord is implemented by Payment, WithdrawalRequest and DepositNotification.
// Every record shares the Record shape; BalanceEffect is the amount the record in its
// current status has contributed to the owning account's USDT balance.
type LedgerRecord interface {
	Kind() RecordKind
	Common() *Record
	StatusString() string
	BalanceEffect() decimal.Decimal
}

// Record holds the fields shared by every ledger record
type Record struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	AccountID  uuid.UUID       `json:"account_id" db:"account_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Common returns the shared record fields
func (r *Record) Common() *Record {
	return r
}

// ===== Payment =====

// PaymentStatus represents the status of a purchase payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// IsValid checks if the status is a valid payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Payment records the purchase of a package
type Payment struct {
	Record
	PackageID  uuid.UUID       `json:"package_id" db:"package_id"`
	Commission decimal.Decimal `json:"commission" db:"commission"`
	Status     PaymentStatus   `json:"status" db:"status"`
}

func (p *Payment) Kind() RecordKind     { return RecordKindPayment }
func (p *Payment) StatusString() string { return string(p.Status) }

// BalanceEffect is commission minus amount once completed, zero otherwise
func (p *Payment) BalanceEffect() decimal.Decimal {
	return PaymentEffect(p.Status, p.Amount, p.Commission)
}

// PaymentEffect is the balance contribution of a payment in the given status
func PaymentEffect(status PaymentStatus, amount, commission decimal.Decimal) decimal.Decimal {
	if status != PaymentStatusCompleted {
		return decimal.Zero
	}
	return commission.Sub(amount)
}

// ===== WithdrawalRequest =====

// WithdrawalStatus represents the status of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// ValidWithdrawalTransitions defines allowed status transitions
var ValidWithdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusPending:   {WithdrawalStatusCompleted, WithdrawalStatusRejected},
	WithdrawalStatusCompleted: {}, // Terminal state
	WithdrawalStatusRejected:  {}, // Terminal state
}

// IsValid checks if the status is a valid withdrawal status
func (s WithdrawalStatus) IsValid() bool {
	_, ok := ValidWithdrawalTransitions[s]
	return ok
}

// CanTransitionTo checks if transition to new status is allowed
func (s WithdrawalStatus) CanTransitionTo(newStatus WithdrawalStatus) bool {
	for _, status := range ValidWithdrawalTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// ValidateTransition validates and returns error if transition is invalid
func (s WithdrawalStatus) ValidateTransition(newStatus WithdrawalStatus) error {
	if !newStatus.IsValid() {
		return fmt.Errorf("invalid withdrawal status: %s", newStatus)
	}
	if !s.CanTransitionTo(newStatus) {
		return fmt.Errorf("invalid status transition from %s to %s", s, newStatus)
	}
	return nil
}

// WithdrawalRequest is a held debit awaiting an off-system transfer
type WithdrawalRequest struct {
	Record
	Address string           `json:"address" db:"address"`
	Network string           `json:"network" db:"network"`
	Notes   *string          `json:"notes,omitempty" db:"notes"`
	Status  WithdrawalStatus `json:"status" db:"status"`
}

func (w *WithdrawalRequest) Kind() RecordKind     { return RecordKindWithdrawal }
func (w *WithdrawalRequest) StatusString() string { return string(w.Status) }

// BalanceEffect is the hold while pending or completed, zero once rejected
func (w *WithdrawalRequest) BalanceEffect() decimal.Decimal {
	if w.Status == WithdrawalStatusRejected {
		return decimal.Zero
	}
	return w.Amount.Neg()
}

// ===== DepositNotification =====

// DepositStatus represents the status of a deposit notification
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusRejected  DepositStatus = "rejected"
)

// ValidDepositTransitions defines allowed status transitions
var ValidDepositTransitions = map[DepositStatus][]DepositStatus{
	DepositStatusPending:   {DepositStatusConfirmed, DepositStatusRejected},
	DepositStatusConfirmed: {}, // Terminal state
	DepositStatusRejected:  {}, // Terminal state
}

// IsValid checks if the status is a valid deposit status
func (s DepositStatus) IsValid() bool {
	_, ok := ValidDepositTransitions[s]
	return ok
}

// CanTransitionTo checks if transition to new status is allowed
func (s DepositStatus) CanTransitionTo(newStatus DepositStatus) bool {
	for _, status := range ValidDepositTransitions[s] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// DepositNotification is a user-reported or admin-created incoming transfer
type DepositNotification struct {
	Record
	TxHash  *string       `json:"tx_hash,omitempty" db:"tx_hash"`
	Network string        `json:"network" db:"network"`
	Notes   *string       `json:"notes,omitempty" db:"notes"`
	Status  DepositStatus `json:"status" db:"status"`
}

func (d *DepositNotification) Kind() RecordKind     { return RecordKindDeposit }
func (d *DepositNotification) StatusString() string { return string(d.Status) }

// BalanceEffect is the credited amount once confirmed, zero otherwise
func (d *DepositNotification) BalanceEffect() decimal.Decimal {
	if d.Status != DepositStatusConfirmed {
		return decimal.Zero
	}
	return d.Amount
}

// ===== Amounts =====

// AmountScale is the number of decimal places every stored amount keeps
const AmountScale = 18

// MaxAmount is the exclusive upper bound of a stored amount, NUMERIC(36, 18)
var MaxAmount = decimal.New(1, 36-AmountScale)

// CheckAmountPrecision reports an amount the storage columns cannot hold exactly
func CheckAmountPrecision(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("at most %d decimal places are allowed", AmountScale)
	}
	if amount.Abs().GreaterThanOrEqual(MaxAmount) {
		return fmt.Errorf("must be less than %s", MaxAmount.String())
	}
	return nil
}

// ===== Networks =====

// SupportedNetworks lists the transfer networks accepted for deposits and withdrawals
var SupportedNetworks = []string{"TRC20", "ERC20", "BEP20", "BTC"}

// ManualNetwork marks back-office credits that did not arrive on chain
const ManualNetwork = "MANUAL"

// NormalizeNetwork upper-cases and trims a network name
func NormalizeNetwork(network string) string {
	return strings.ToUpper(strings.TrimSpace(network))
}

// IsSupportedNetwork reports whether the network accepts user transfers
func IsSupportedNetwork(network string) bool {
	n := NormalizeNetwork(network)
	for _, supported := range SupportedNetworks {
		if n == supported {
			return true
		}
	}
	return false
}

// ===== Operation inputs and results =====

// ResolveAction is the admin decision on a pending record
type ResolveAction string

const (
	ResolveActionApprove ResolveAction = "approve"
	ResolveActionReject  ResolveAction = "reject"
)

// Validate checks if the action is valid
func (a ResolveAction) Validate() error {
	switch a {
	case ResolveActionApprove, ResolveActionReject:
		return nil
	default:
		return fmt.Errorf("invalid action: %s", a)
	}
}

// PurchaseRequest buys one package for an account
type PurchaseRequest struct {
	AccountID uuid.UUID
	PackageID uuid.UUID
}

// CreateWithdrawalRequest asks to send funds off-system
type CreateWithdrawalRequest struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Address   string
	Network   string
}

// ResolveWithdrawalRequest approves or rejects a pending withdrawal
type ResolveWithdrawalRequest struct {
	WithdrawalID uuid.UUID
	Action       ResolveAction
	Notes        string
}

// ReportDepositRequest records a user-reported incoming transfer
type ReportDepositRequest struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	TxHash    string
	Network   string
}

// ConfirmDepositRequest approves or rejects a pending deposit notification
type ConfirmDepositRequest struct {
	DepositID uuid.UUID
	Action    ResolveAction
	Notes     string
}

// ManualDepositRequest credits an account directly from the back office
type ManualDepositRequest struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Network   string
	Notes     string
}

// AdjustPaymentRequest corrects a payment. Exactly one of NewStatus or Delete is set.
type AdjustPaymentRequest struct {
	PaymentID uuid.UUID
	NewStatus *PaymentStatus
	Delete    bool
}

// Validate checks that exactly one correction is requested
func (r *AdjustPaymentRequest) Validate() error {
	if r.Delete && r.NewStatus != nil {
		return fmt.Errorf("either a new status or delete must be requested, not both")
	}
	if !r.Delete && r.NewStatus == nil {
		return fmt.Errorf("a new status or delete is required")
	}
	if r.NewStatus != nil && !r.NewStatus.IsValid() {
		return fmt.Errorf("invalid payment status: %s", *r.NewStatus)
	}
	return nil
}

// PurchaseResult is returned by a successful purchase
type PurchaseResult struct {
	Payment *Payment `json:"payment"`
	Balance Balance  `json:"balance"`
}

// WithdrawalResult is returned by withdrawal request and resolve
type WithdrawalResult struct {
	Withdrawal *WithdrawalRequest `json:"withdrawal"`
	Balance    Balance            `json:"balance"`
}

// DepositResult is returned by deposit report, confirm and manual deposit
type DepositResult struct {
	Deposit *DepositNotification `json:"deposit"`
	Balance Balance              `json:"balance"`
}

// AdjustmentResult is returned by a payment correction. Payment is nil when deleted.
type AdjustmentResult struct {
	Payment *Payment        `json:"payment,omitempty"`
	Deleted bool            `json:"deleted"`
	Delta   decimal.Decimal `json:"delta"`
	Balance Balance         `json:"balance"`
}

// ListParams paginates record listings
type ListParams struct {
	Limit  int
	Offset int
}

// Normalize clamps the pagination window
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
