package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flash-service/flash_service/internal/domain/entities"
	"github.com/flash-service/flash_service/pkg/logger"
)

// WalletService is the part of the ledger the user-facing API calls
type WalletService interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (*entities.Balance, error)
	Purchase(ctx context.Context, req entities.PurchaseRequest) (*entities.PurchaseResult, error)
	RequestWithdrawal(ctx context.Context, req entities.CreateWithdrawalRequest) (*entities.WithdrawalResult, error)
	ReportDeposit(ctx context.Context, req entities.ReportDepositRequest) (*entities.DepositResult, error)
	GetWithdrawal(ctx context.Context, withdrawalID uuid.UUID) (*entities.WithdrawalRequest, error)
	GetDeposit(ctx context.Context, depositID uuid.UUID) (*entities.DepositNotification, error)
	ListPayments(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.Payment, error)
	ListWithdrawals(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.WithdrawalRequest, error)
	ListDeposits(ctx context.Context, accountID uuid.UUID, params entities.ListParams) ([]*entities.DepositNotification, error)
}

// PackageCatalog lists packages for sale
type PackageCatalog interface {
	ListActive(ctx context.Context) ([]*entities.Package, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.Package, error)
}

// PurchaseBody is the JSON body of POST /wallet/purchases
type PurchaseBody struct {
	PackageID uuid.UUID `json:"package_id" binding:"required"`
}

// WithdrawalBody is the JSON body of POST /wallet/withdrawals
type WithdrawalBody struct {
	Amount  decimal.Decimal `json:"amount" swaggertype:"string" example:"80.00"`
	Address string          `json:"address" binding:"required,wallet_address"`
	Network string          `json:"network" binding:"required,network" example:"TRC20"`
}

// DepositReportBody is the JSON body of POST /wallet/deposits
type DepositReportBody struct {
	Amount  decimal.Decimal `json:"amount" swaggertype:"string" example:"150.00"`
	TxHash  string          `json:"tx_hash" binding:"omitempty,max=128"`
	Network string          `json:"network" binding:"required,network" example:"TRC20"`
}

// WalletHandlers serves the account holder's wallet
type WalletHandlers struct {
	ledger  WalletService
	catalog PackageCatalog
	logger  *logger.Logger
}

// NewWalletHandlers creates a new WalletHandlers instance
func NewWalletHandlers(ledger WalletService, catalog PackageCatalog, logger *logger.Logger) *WalletHandlers {
	return &WalletHandlers{ledger: ledger, catalog: catalog, logger: logger}
}

// GetAccount godoc
// @Summary Current account
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} entities.Account
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/wallet/account [get]
func (h *WalletHandlers) GetAccount(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	account, err := h.ledger.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, account)
}

// GetBalance godoc
// @Summary Wallet balance
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} entities.Balance
// @Failure 404 {object} entities.ErrorResponse
// @Router /api/v1/wallet/balance [get]
func (h *WalletHandlers) GetBalance(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	balance, err := h.ledger.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, balance)
}

// ListPackages godoc
// @Summary Packages for sale
// @Tags wallet
// @Produce json
// @Success 200 {array} entities.Package
// @Router /api/v1/packages [get]
func (h *WalletHandlers) ListPackages(c *gin.Context) {
	pkgs, err := h.catalog.ListActive(c.Request.Context())
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	if pkgs == nil {
		pkgs = []*entities.Package{}
	}
	SendSuccess(c, pkgs)
}

// GetPackage handles GET /api/v1/packages/:id
func (h *WalletHandlers) GetPackage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	pkg, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	if !pkg.IsActive {
		SendNotFound(c, "PACKAGE_NOT_FOUND", "package not found")
		return
	}
	SendSuccess(c, pkg)
}

// Purchase godoc
// @Summary Buy a package
// @Description Debits the package price and credits the tier commission in one transaction
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body PurchaseBody true "Package to buy"
// @Success 201 {object} entities.PurchaseResult
// @Failure 400 {object} entities.ErrorResponse
// @Failure 404 {object} entities.ErrorResponse
// @Failure 422 {object} entities.ErrorResponse
// @Failure 503 {object} entities.ErrorResponse
// @Router /api/v1/wallet/purchases [post]
func (h *WalletHandlers) Purchase(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}

	var body PurchaseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}

	result, err := h.ledger.Purchase(c.Request.Context(), entities.PurchaseRequest{
		AccountID: accountID,
		PackageID: body.PackageID,
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendCreated(c, result)
}

// ListPayments handles GET /api/v1/wallet/payments
func (h *WalletHandlers) ListPayments(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	params := listParams(c)
	payments, err := h.ledger.ListPayments(c.Request.Context(), accountID, params)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, newListResponse(payments, params))
}

// RequestWithdrawal godoc
// @Summary Request a withdrawal
// @Description Holds the amount immediately; an admin later approves or rejects it
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body WithdrawalBody true "Withdrawal"
// @Success 201 {object} entities.WithdrawalResult
// @Failure 400 {object} entities.ErrorResponse
// @Failure 422 {object} entities.ErrorResponse
// @Failure 503 {object} entities.ErrorResponse
// @Router /api/v1/wallet/withdrawals [post]
func (h *WalletHandlers) RequestWithdrawal(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}

	var body WithdrawalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}

	result, err := h.ledger.RequestWithdrawal(c.Request.Context(), entities.CreateWithdrawalRequest{
		AccountID: accountID,
		Amount:    body.Amount,
		Address:   body.Address,
		Network:   body.Network,
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendCreated(c, result)
}

// ListWithdrawals handles GET /api/v1/wallet/withdrawals
func (h *WalletHandlers) ListWithdrawals(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	params := listParams(c)
	withdrawals, err := h.ledger.ListWithdrawals(c.Request.Context(), accountID, params)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, newListResponse(withdrawals, params))
}

// GetWithdrawal handles GET /api/v1/wallet/withdrawals/:id. Other accounts' records read as not found.
func (h *WalletHandlers) GetWithdrawal(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	withdrawal, err := h.ledger.GetWithdrawal(c.Request.Context(), id)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	if withdrawal.AccountID != accountID {
		SendNotFound(c, "WITHDRAWAL_NOT_FOUND", "withdrawal not found")
		return
	}
	SendSuccess(c, withdrawal)
}

// ReportDeposit godoc
// @Summary Report an incoming deposit
// @Description Records a pending deposit notification; the balance changes only after admin confirmation
// @Tags wallet
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Idempotency key"
// @Param request body DepositReportBody true "Deposit"
// @Success 201 {object} entities.DepositResult
// @Failure 400 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Router /api/v1/wallet/deposits [post]
func (h *WalletHandlers) ReportDeposit(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}

	var body DepositReportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}

	result, err := h.ledger.ReportDeposit(c.Request.Context(), entities.ReportDepositRequest{
		AccountID: accountID,
		Amount:    body.Amount,
		TxHash:    body.TxHash,
		Network:   body.Network,
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendCreated(c, result)
}

// ListDeposits handles GET /api/v1/wallet/deposits
func (h *WalletHandlers) ListDeposits(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	params := listParams(c)
	deposits, err := h.ledger.ListDeposits(c.Request.Context(), accountID, params)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, newListResponse(deposits, params))
}

// GetDeposit handles GET /api/v1/wallet/deposits/:id
func (h *WalletHandlers) GetDeposit(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	deposit, err := h.ledger.GetDeposit(c.Request.Context(), id)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	if deposit.AccountID != accountID {
		SendNotFound(c, "DEPOSIT_NOT_FOUND", "deposit not found")
		return
	}
	SendSuccess(c, deposit)
}
