package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flash-service/flash_service/internal/domain/entities"
	"github.com/flash-service/flash_service/internal/domain/services/reconciliation"
	"github.com/flash-service/flash_service/pkg/logger"
)

// BackOfficeService is the part of the ledger only admins reach
type BackOfficeService interface {
	CreateAccount(ctx context.Context, req entities.CreateAccountRequest) (*entities.Account, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (*entities.Account, error)
	ListAccounts(ctx context.Context, params entities.ListParams) ([]*entities.Account, error)
	SetTier(ctx context.Context, accountID uuid.UUID, tier entities.Tier) (*entities.Account, error)
	SetKYCStatus(ctx context.Context, accountID uuid.UUID, status entities.KYCStatus) (*entities.Account, error)
	DeleteAccount(ctx context.Context, accountID uuid.UUID) error

	ListPendingWithdrawals(ctx context.Context, params entities.ListParams) ([]*entities.WithdrawalRequest, error)
	ResolveWithdrawal(ctx context.Context, req entities.ResolveWithdrawalRequest) (*entities.WithdrawalResult, error)
	ListPendingDeposits(ctx context.Context, params entities.ListParams) ([]*entities.DepositNotification, error)
	ConfirmDeposit(ctx context.Context, req entities.ConfirmDepositRequest) (*entities.DepositResult, error)
	ManualDeposit(ctx context.Context, req entities.ManualDepositRequest) (*entities.DepositResult, error)

	GetPayment(ctx context.Context, paymentID uuid.UUID) (*entities.Payment, error)
	AdminAdjustTransaction(ctx context.Context, req entities.AdjustPaymentRequest) (*entities.AdjustmentResult, error)
}

// CatalogAdmin manages the package catalog
type CatalogAdmin interface {
	ListAll(ctx context.Context, params entities.ListParams) ([]*entities.Package, error)
	Get(ctx context.Context, id uuid.UUID) (*entities.Package, error)
	Create(ctx context.Context, req entities.UpsertPackageRequest) (*entities.Package, error)
	Update(ctx context.Context, id uuid.UUID, req entities.UpsertPackageRequest) (*entities.Package, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*entities.Package, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReconciliationRunner triggers and reports balance reconciliation
type ReconciliationRunner interface {
	RunManualReconciliation(ctx context.Context) (*reconciliation.Report, error)
	LastReport() *reconciliation.Report
}

type CreateAccountBody struct {
	Username string `json:"username" binding:"omitempty,min=3,max=64,alphanum"`
	Tier     string `json:"tier" binding:"omitempty,oneof=bronze silver gold"`
}

type SetTierBody struct {
	Tier string `json:"tier" binding:"required,oneof=bronze silver gold"`
}

type SetKYCBody struct {
	Status string `json:"status" binding:"required,oneof=none pending approved rejected"`
}

type ResolveBody struct {
	Action string `json:"action" binding:"required,oneof=approve reject"`
	Notes  string `json:"notes" binding:"max=500"`
}

type ManualDepositBody struct {
	AccountID uuid.UUID       `json:"account_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
	Network   string          `json:"network" binding:"omitempty,max=20"`
	Notes     string          `json:"notes" binding:"max=500"`
}

type AdjustPaymentBody struct {
	Status string `json:"status" binding:"required,oneof=pending completed failed"`
}

// AdminHandlers serves the back office
type AdminHandlers struct {
	ledger         BackOfficeService
	catalog        CatalogAdmin
	reconciliation ReconciliationRunner
	logger         *logger.Logger
}

// NewAdminHandlers creates admin handlers. reconciliation may be nil when the scheduler is disabled.
func NewAdminHandlers(ledger BackOfficeService, catalog CatalogAdmin, reconciliation ReconciliationRunner, logger *logger.Logger) *AdminHandlers {
	return &AdminHandlers{
		ledger:         ledger,
		catalog:        catalog,
		reconciliation: reconciliation,
		logger:         logger,
	}
}

// ===== Accounts =====

// CreateAccount godoc
// @Summary Open an account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountBody true "Account"
// @Success 201 {object} entities.Account
// @Failure 409 {object} entities.ErrorResponse
// @Router /api/v1/admin/accounts [post]
func (h *AdminHandlers) CreateAccount(c *gin.Context) {
	var body CreateAccountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}
	account, err := h.ledger.CreateAccount(c.Request.Context(), entities.CreateAccountRequest{
		Username: body.Username,
		Tier:     entities.Tier(body.Tier),
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	h.logger.Info("Account created", "account_id", account.ID, "tier", account.Tier, "request_id", getRequestID(c))
	SendCreated(c, account)
}

// ListAccounts handles GET /api/v1/admin/accounts
func (h *AdminHandlers) ListAccounts(c *gin.Context) {
	params := listParams(c)
	accounts, err := h.ledger.ListAccounts(c.Request.Context(), params)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, newListResponse(accounts, params))
}

// GetAccount handles GET /api/v1/admin/accounts/:id
func (h *AdminHandlers) GetAccount(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	account, err := h.ledger.GetAccount(c.Request.Context(), id)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, account)
}

// SetTier handles PUT /api/v1/admin/accounts/:id/tier
func (h *AdminHandlers) SetTier(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body SetTierBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}
	account, err := h.ledger.SetTier(c.Request.Context(), id, entities.Tier(body.Tier))
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, account)
}

// SetKYCStatus handles PUT /api/v1/admin/accounts/:id/kyc
func (h *AdminHandlers) SetKYCStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body SetKYCBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}
	account, err := h.ledger.SetKYCStatus(c.Request.Context(), id, entities.KYCStatus(body.Status))
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	h.logger.Info("KYC status changed", "account_id", id, "status", body.Status, "request_id", getRequestID(c))
	SendSuccess(c, account)
}

// DeleteAccount handles DELETE /api/v1/admin/accounts/:id
func (h *AdminHandlers) DeleteAccount(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.DeleteAccount(c.Request.Context(), id); err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendNoContent(c)
}

// ===== Withdrawals and deposits =====

// ListPendingWithdrawals handles GET /api/v1/admin/withdrawals/pending
func (h *AdminHandlers) ListPendingWithdrawals(c *gin.Context) {
	params := listParams(c)
	withdrawals, err := h.ledger.ListPendingWithdrawals(c.Request.Context(), params)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, newListResponse(withdrawals, params))
}

// ResolveWithdrawal godoc
// @Summary Approve or reject a pending withdrawal
// @Description Rejecting returns the held amount to the account
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Withdrawal ID"
// @Param request body ResolveBody true "Decision"
// @Success 200 {object} entities.WithdrawalResult
// @Failure 404 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Router /api/v1/admin/withdrawals/{id}/resolve [post]
func (h *AdminHandlers) ResolveWithdrawal(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body ResolveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}
	result, err := h.ledger.ResolveWithdrawal(c.Request.Context(), entities.ResolveWithdrawalRequest{
		WithdrawalID: id,
		Action:       entities.ResolveAction(body.Action),
		Notes:        body.Notes,
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, result)
}

// ListPendingDeposits handles GET /api/v1/admin/deposits/pending
func (h *AdminHandlers) ListPendingDeposits(c *gin.Context) {
	params := listParams(c)
	deposits, err := h.ledger.ListPendingDeposits(c.Request.Context(), params)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, newListResponse(deposits, params))
}

// ConfirmDeposit godoc
// @Summary Confirm or reject a reported deposit
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Deposit ID"
// @Param request body ResolveBody true "Decision"
// @Success 200 {object} entities.DepositResult
// @Failure 404 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Router /api/v1/admin/deposits/{id}/confirm [post]
func (h *AdminHandlers) ConfirmDeposit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body ResolveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}
	result, err := h.ledger.ConfirmDeposit(c.Request.Context(), entities.ConfirmDepositRequest{
		DepositID: id,
		Action:    entities.ResolveAction(body.Action),
		Notes:     body.Notes,
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, result)
}

// ManualDeposit handles POST /api/v1/admin/deposits/manual
func (h *AdminHandlers) ManualDeposit(c *gin.Context) {
	var body ManualDepositBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}
	result, err := h.ledger.ManualDeposit(c.Request.Context(), entities.ManualDepositRequest{
		AccountID: body.AccountID,
		Amount:    body.Amount,
		Network:   body.Network,
		Notes:     body.Notes,
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	h.logger.Info("Manual deposit credited",
		"account_id", body.AccountID,
		"amount", body.Amount.String(),
		"request_id", getRequestID(c),
	)
	SendCreated(c, result)
}

// ===== Payments =====

// GetPayment handles GET /api/v1/admin/payments/:id
func (h *AdminHandlers) GetPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.ledger.GetPayment(c.Request.Context(), id)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, payment)
}

// AdjustPayment godoc
// @Summary Correct a payment status
// @Description Moves the owner's balance by the difference in the payment's balance effect
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param request body AdjustPaymentBody true "New status"
// @Success 200 {object} entities.AdjustmentResult
// @Failure 422 {object} entities.ErrorResponse
// @Router /api/v1/admin/payments/{id} [patch]
func (h *AdminHandlers) AdjustPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body AdjustPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		SendBindError(c, err)
		return
	}
	status := entities.PaymentStatus(body.Status)
	result, err := h.ledger.AdminAdjustTransaction(c.Request.Context(), entities.AdjustPaymentRequest{
		PaymentID: id,
		NewStatus: &status,
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, result)
}

// DeletePayment handles DELETE /api/v1/admin/payments/:id
func (h *AdminHandlers) DeletePayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.ledger.AdminAdjustTransaction(c.Request.Context(), entities.AdjustPaymentRequest{
		PaymentID: id,
		Delete:    true,
	})
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, result)
}

// ===== Packages =====

// ListPackages handles GET /api/v1/admin/packages, inactive packages included
func (h *AdminHandlers) ListPackages(c *gin.Context) {
	params := listParams(c)
	pkgs, err := h.catalog.ListAll(c.Request.Context(), params)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, newListResponse(pkgs, params))
}

// CreatePackage handles POST /api/v1/admin/packages
func (h *AdminHandlers) CreatePackage(c *gin.Context) {
	var req entities.UpsertPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBindError(c, err)
		return
	}
	pkg, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendCreated(c, pkg)
}

// UpdatePackage handles PUT /api/v1/admin/packages/:id
func (h *AdminHandlers) UpdatePackage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req entities.UpsertPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		SendBindError(c, err)
		return
	}
	pkg, err := h.catalog.Update(c.Request.Context(), id, req)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, pkg)
}

// DeactivatePackage handles POST /api/v1/admin/packages/:id/deactivate
func (h *AdminHandlers) DeactivatePackage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	pkg, err := h.catalog.Deactivate(c.Request.Context(), id)
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, pkg)
}

// DeletePackage handles DELETE /api/v1/admin/packages/:id
func (h *AdminHandlers) DeletePackage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendNoContent(c)
}

// ===== Reconciliation =====

// RunReconciliation godoc
// @Summary Run a reconciliation now
// @Description Compares stored balances against balances derived from ledger records. Drift is reported, not corrected.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} reconciliation.Report
// @Router /api/v1/admin/reconciliation/run [post]
func (h *AdminHandlers) RunReconciliation(c *gin.Context) {
	if h.reconciliation == nil {
		SendServiceUnavailable(c, "Reconciliation is disabled")
		return
	}
	report, err := h.reconciliation.RunManualReconciliation(c.Request.Context())
	if err != nil {
		HandleDomainError(c, h.logger, err)
		return
	}
	SendSuccess(c, gin.H{"passed": report.Passed(), "report": report})
}

// LastReconciliation handles GET /api/v1/admin/reconciliation/last
func (h *AdminHandlers) LastReconciliation(c *gin.Context) {
	if h.reconciliation == nil {
		SendServiceUnavailable(c, "Reconciliation is disabled")
		return
	}
	report := h.reconciliation.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, entities.ErrorResponse{Code: "NO_REPORT", Message: "no reconciliation has run yet"})
		return
	}
	SendSuccess(c, gin.H{"passed": report.Passed(), "report": report})
}
