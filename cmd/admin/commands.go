package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/flash-service/flash_service/internal/domain/entities"
	apperrors "github.com/flash-service/flash_service/internal/domain/errors"
	"github.com/flash-service/flash_service/internal/domain/services/reconciliation"
	"github.com/flash-service/flash_service/pkg/auth"
	"github.com/flash-service/flash_service/pkg/retry"
)

// errUsage marks bad invocations; main prints usage and exits 2
var errUsage = errors.New("usage")

// LedgerOps is the back-office surface of the ledger
type LedgerOps interface {
	CreateAccount(ctx context.Context, req entities.CreateAccountRequest) (*entities.Account, error)
	SetTier(ctx context.Context, accountID uuid.UUID, tier entities.Tier) (*entities.Account, error)
	SetKYCStatus(ctx context.Context, accountID uuid.UUID, status entities.KYCStatus) (*entities.Account, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (*entities.Balance, error)

	ListPendingWithdrawals(ctx context.Context, params entities.ListParams) ([]*entities.WithdrawalRequest, error)
	ListPendingDeposits(ctx context.Context, params entities.ListParams) ([]*entities.DepositNotification, error)
	ResolveWithdrawal(ctx context.Context, req entities.ResolveWithdrawalRequest) (*entities.WithdrawalResult, error)
	ConfirmDeposit(ctx context.Context, req entities.ConfirmDepositRequest) (*entities.DepositResult, error)
	ManualDeposit(ctx context.Context, req entities.ManualDepositRequest) (*entities.DepositResult, error)
	AdminAdjustTransaction(ctx context.Context, req entities.AdjustPaymentRequest) (*entities.AdjustmentResult, error)
}

// TokenConfig signs tokens minted by the token command
type TokenConfig struct {
	Secret string
	Issuer string
}

type app struct {
	ledger    LedgerOps
	reconcile func(ctx context.Context) (*reconciliation.Report, error)
	retrier   *retry.Retrier
	tokens    TokenConfig
	out       io.Writer
	printer   *message.Printer
}

type command struct {
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"pending-withdrawals": {"list withdrawals awaiting a decision", (*app).pendingWithdrawals},
	"pending-deposits":    {"list deposits awaiting confirmation", (*app).pendingDeposits},
	"resolve-withdrawal":  {"approve or reject a pending withdrawal", (*app).resolveWithdrawal},
	"confirm-deposit":     {"confirm or reject a reported deposit", (*app).confirmDeposit},
	"manual-deposit":      {"credit an account directly", (*app).manualDeposit},
	"adjust-payment":      {"change a payment status or delete it", (*app).adjustPayment},
	"create-account":      {"open a zero-balance account", (*app).createAccount},
	"set-tier":            {"change an account's commission tier", (*app).setTier},
	"set-kyc":             {"change an account's KYC status", (*app).setKYC},
	"balance":             {"show an account's balances", (*app).balance},
	"token":               {"mint a bearer token for an account", (*app).token},
	"reconcile":           {"compare stored and derived balances", (*app).runReconcile},
}

func newApp(ledger LedgerOps, reconcile func(ctx context.Context) (*reconciliation.Report, error), retrier *retry.Retrier, tokens TokenConfig, out io.Writer) *app {
	return &app{
		ledger:    ledger,
		reconcile: reconcile,
		retrier:   retrier,
		tokens:    tokens,
		out:       out,
		printer:   message.NewPrinter(language.English),
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	return cmd.run(a, ctx, args[1:])
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: admin <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %s\n", name, commands[name].summary)
	}
}

func (a *app) usdt(d decimal.Decimal) string {
	return a.printer.Sprintf("%.2f USDT", d.InexactFloat64())
}

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func parseID(name, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: --%s must be a UUID", errUsage, name)
	}
	return id, nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: --amount must be a decimal number", errUsage)
	}
	return amount, nil
}

// ===== queues =====

func (a *app) pendingWithdrawals(ctx context.Context, args []string) error {
	fs := newFlags("pending-withdrawals")
	limit := fs.Int("limit", 20, "maximum rows")
	offset := fs.Int("offset", 0, "rows to skip")
	if err := parse(fs, args); err != nil {
		return err
	}

	items, err := retry.Value(ctx, a.retrier, func(ctx context.Context) ([]*entities.WithdrawalRequest, error) {
		return a.ledger.ListPendingWithdrawals(ctx, entities.ListParams{Limit: *limit, Offset: *offset})
	})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "no pending withdrawals")
		return nil
	}
	for _, w := range items {
		fmt.Fprintf(a.out, "%s  account=%s  %s  %s %s  requested=%s\n",
			w.ID, w.AccountID, a.usdt(w.Amount), w.Network, w.Address, w.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func (a *app) pendingDeposits(ctx context.Context, args []string) error {
	fs := newFlags("pending-deposits")
	limit := fs.Int("limit", 20, "maximum rows")
	offset := fs.Int("offset", 0, "rows to skip")
	if err := parse(fs, args); err != nil {
		return err
	}

	items, err := retry.Value(ctx, a.retrier, func(ctx context.Context) ([]*entities.DepositNotification, error) {
		return a.ledger.ListPendingDeposits(ctx, entities.ListParams{Limit: *limit, Offset: *offset})
	})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "no pending deposits")
		return nil
	}
	for _, d := range items {
		txHash := "-"
		if d.TxHash != nil {
			txHash = *d.TxHash
		}
		fmt.Fprintf(a.out, "%s  account=%s  %s  %s tx=%s  reported=%s\n",
			d.ID, d.AccountID, a.usdt(d.Amount), d.Network, txHash, d.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// ===== decisions =====

func actionFlags(name string) (*pflag.FlagSet, *string, *string, *string) {
	fs := newFlags(name)
	id := fs.String("id", "", "record ID")
	action := fs.String("action", "", "approve or reject")
	notes := fs.String("notes", "", "note stored on the record")
	return fs, id, action, notes
}

func (a *app) resolveWithdrawal(ctx context.Context, args []string) error {
	fs, rawID, action, notes := actionFlags("resolve-withdrawal")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := parseID("id", *rawID)
	if err != nil {
		return err
	}

	res, err := retry.Value(ctx, a.retrier, func(ctx context.Context) (*entities.WithdrawalResult, error) {
		return a.ledger.ResolveWithdrawal(ctx, entities.ResolveWithdrawalRequest{
			WithdrawalID: id,
			Action:       entities.ResolveAction(*action),
			Notes:        *notes,
		})
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "withdrawal %s %s; balance %s\n", res.Withdrawal.ID, res.Withdrawal.Status, a.usdt(res.Balance.USDT))
	return nil
}

func (a *app) confirmDeposit(ctx context.Context, args []string) error {
	fs, rawID, action, notes := actionFlags("confirm-deposit")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := parseID("id", *rawID)
	if err != nil {
		return err
	}

	res, err := retry.Value(ctx, a.retrier, func(ctx context.Context) (*entities.DepositResult, error) {
		return a.ledger.ConfirmDeposit(ctx, entities.ConfirmDepositRequest{
			DepositID: id,
			Action:    entities.ResolveAction(*action),
			Notes:     *notes,
		})
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deposit %s %s; balance %s\n", res.Deposit.ID, res.Deposit.Status, a.usdt(res.Balance.USDT))
	return nil
}

func (a *app) manualDeposit(ctx context.Context, args []string) error {
	fs := newFlags("manual-deposit")
	rawAccount := fs.String("account", "", "account ID")
	rawAmount := fs.String("amount", "", "USDT amount")
	network := fs.String("network", entities.ManualNetwork, "network label")
	notes := fs.String("notes", "", "note stored on the deposit")
	if err := parse(fs, args); err != nil {
		return err
	}
	accountID, err := parseID("account", *rawAccount)
	if err != nil {
		return err
	}
	amount, err := parseAmount(*rawAmount)
	if err != nil {
		return err
	}

	res, err := retry.Value(ctx, a.retrier, func(ctx context.Context) (*entities.DepositResult, error) {
		return a.ledger.ManualDeposit(ctx, entities.ManualDepositRequest{
			AccountID: accountID,
			Amount:    amount,
			Network:   *network,
			Notes:     *notes,
		})
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "credited %s as deposit %s; balance %s\n", a.usdt(amount), res.Deposit.ID, a.usdt(res.Balance.USDT))
	return nil
}

func (a *app) adjustPayment(ctx context.Context, args []string) error {
	fs := newFlags("adjust-payment")
	rawID := fs.String("id", "", "payment ID")
	status := fs.String("status", "", "new status: pending, completed or failed")
	del := fs.Bool("delete", false, "delete the payment, refunding its effect")
	if err := parse(fs, args); err != nil {
		return err
	}
	id, err := parseID("id", *rawID)
	if err != nil {
		return err
	}

	req := entities.AdjustPaymentRequest{PaymentID: id, Delete: *del}
	if *status != "" {
		s := entities.PaymentStatus(*status)
		req.NewStatus = &s
	}

	res, err := retry.Value(ctx, a.retrier, func(ctx context.Context) (*entities.AdjustmentResult, error) {
		return a.ledger.AdminAdjustTransaction(ctx, req)
	})
	if err != nil {
		return err
	}
	if res.Deleted {
		fmt.Fprintf(a.out, "payment %s deleted; balance moved %s to %s\n", id, a.usdt(res.Delta), a.usdt(res.Balance.USDT))
		return nil
	}
	fmt.Fprintf(a.out, "payment %s now %s; balance moved %s to %s\n", id, res.Payment.Status, a.usdt(res.Delta), a.usdt(res.Balance.USDT))
	return nil
}

// ===== accounts =====

func (a *app) createAccount(ctx context.Context, args []string) error {
	fs := newFlags("create-account")
	username := fs.String("username", "", "optional unique username")
	tier := fs.String("tier", string(entities.TierBronze), "bronze, silver or gold")
	if err := parse(fs, args); err != nil {
		return err
	}

	// Not retried: a commit that succeeded but reported failure would open a second account
	account, err := a.ledger.CreateAccount(ctx, entities.CreateAccountRequest{
		Username: *username,
		Tier:     entities.Tier(*tier),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %s created (tier %s)\n", account.ID, account.Tier)
	return nil
}

func (a *app) setTier(ctx context.Context, args []string) error {
	fs := newFlags("set-tier")
	rawAccount := fs.String("account", "", "account ID")
	tier := fs.String("tier", "", "bronze, silver or gold")
	if err := parse(fs, args); err != nil {
		return err
	}
	accountID, err := parseID("account", *rawAccount)
	if err != nil {
		return err
	}

	account, err := retry.Value(ctx, a.retrier, func(ctx context.Context) (*entities.Account, error) {
		return a.ledger.SetTier(ctx, accountID, entities.Tier(*tier))
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %s tier %s\n", account.ID, account.Tier)
	return nil
}

func (a *app) setKYC(ctx context.Context, args []string) error {
	fs := newFlags("set-kyc")
	rawAccount := fs.String("account", "", "account ID")
	status := fs.String("status", "", "none, pending, approved or rejected")
	if err := parse(fs, args); err != nil {
		return err
	}
	accountID, err := parseID("account", *rawAccount)
	if err != nil {
		return err
	}

	account, err := retry.Value(ctx, a.retrier, func(ctx context.Context) (*entities.Account, error) {
		return a.ledger.SetKYCStatus(ctx, accountID, entities.KYCStatus(*status))
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %s kyc %s (verified=%t)\n", account.ID, account.KYCStatus, account.Verified)
	return nil
}

func (a *app) balance(ctx context.Context, args []string) error {
	fs := newFlags("balance")
	rawAccount := fs.String("account", "", "account ID")
	if err := parse(fs, args); err != nil {
		return err
	}
	accountID, err := parseID("account", *rawAccount)
	if err != nil {
		return err
	}

	b, err := retry.Value(ctx, a.retrier, func(ctx context.Context) (*entities.Balance, error) {
		return a.ledger.GetBalance(ctx, accountID)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %s: %s, %s BTC\n", accountID, a.usdt(b.USDT), b.BTC.String())
	return nil
}

func (a *app) token(_ context.Context, args []string) error {
	fs := newFlags("token")
	rawAccount := fs.String("account", "", "account ID")
	role := fs.String("role", auth.RoleUser, "user or admin")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := parse(fs, args); err != nil {
		return err
	}
	accountID, err := parseID("account", *rawAccount)
	if err != nil {
		return err
	}
	if *role != auth.RoleUser && *role != auth.RoleAdmin {
		return fmt.Errorf("%w: --role must be user or admin", errUsage)
	}

	signed, expiresAt, err := auth.GenerateToken(accountID, *role, a.tokens.Secret, a.tokens.Issuer, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\n# expires %s\n", signed, expiresAt.Format(time.RFC3339))
	return nil
}

func (a *app) runReconcile(ctx context.Context, args []string) error {
	if err := parse(newFlags("reconcile"), args); err != nil {
		return err
	}

	report, err := a.reconcile(ctx)
	if err != nil {
		return err
	}
	if report.Passed() {
		fmt.Fprintf(a.out, "%d accounts checked, no drift\n", report.AccountsChecked)
		return nil
	}
	fmt.Fprintf(a.out, "%d accounts checked, %d drifted, total drift %s\n",
		report.AccountsChecked, len(report.Mismatches), a.usdt(report.TotalDrift))
	for _, m := range report.Mismatches {
		fmt.Fprintf(a.out, "  %s stored=%s derived=%s\n", m.AccountID, a.usdt(m.Stored), a.usdt(m.Derived))
	}
	return nil
}

// describe renders a ledger failure for the operator
func describe(err error) string {
	var domainErr *apperrors.DomainError
	switch {
	case apperrors.IsStorageFailure(err) && apperrors.ShouldRetry(err):
		return "storage unavailable after retries, nothing was written: " + err.Error()
	case apperrors.IsStorageFailure(err):
		return "storage rejected the operation, nothing was written: " + err.Error()
	case errors.As(err, &domainErr):
		return fmt.Sprintf("%s: %s", domainErr.Code, domainErr.Error())
	default:
		return err.Error()
	}
}
