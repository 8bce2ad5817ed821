package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"account_ledger/internal/domain"
	"account_ledger/internal/processor"
	"account_ledger/internal/repository"
	"account_ledger/pkg/crypto"
	"account_ledger/pkg/validator"
)

type APIHandler struct {
	ledger         *processor.LedgerService
	signer         *crypto.Signer
	logger         *slog.Logger
	requestTimeout time.Duration
}

func NewAPIHandler(ledger *processor.LedgerService, signer *crypto.Signer, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &APIHandler{
		ledger:         ledger,
		signer:         signer,
		logger:         logger,
		requestTimeout: 30 * time.Second,
	}
}

type OpenAccountRequest struct {
	Kind           string `json:"kind"`
	OwnerID        string `json:"owner_id"`
	OpeningBalance string `json:"opening_balance"`
}

type AccountResponse struct {
	ID           string `json:"id"`
	OwnerID      string `json:"owner_id"`
	Kind         string `json:"kind"`
	Balance      string `json:"balance"`
	Withdrawable bool   `json:"withdrawable"`
}

type OperationRequest struct {
	AccountID string `json:"account_id"`
	Amount    string `json:"amount"`
	Signature string `json:"signature,omitempty"`
}

type OperationResponse struct {
	EntryID   string   `json:"entry_id"`
	AccountID string   `json:"account_id"`
	Type      string   `json:"type"`
	Amount    string   `json:"amount"`
	Balance   string   `json:"balance"`
	Status    string   `json:"status"`
	Flags     []string `json:"flags,omitempty"`
	Message   string   `json:"message,omitempty"`
}

type VolumeResponse struct {
	AccountID        string `json:"account_id"`
	Date             string `json:"date"`
	WithdrawalVolume string `json:"withdrawal_volume"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *APIHandler) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req OpenAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	opening, err := decimal.NewFromString(req.OpeningBalance)
	if err != nil {
		h.sendError(w, "Invalid opening balance", http.StatusBadRequest, "INVALID_AMOUNT")
		return
	}

	account, err := h.ledger.OpenAccount(ctx, domain.Kind(req.Kind), req.OwnerID, opening)
	if err != nil {
		h.sendOperationError(w, err)
		return
	}

	h.sendJSON(w, accountResponse(account), http.StatusCreated)
	h.logger.Info("Account opened via API",
		slog.String("account_id", account.ID()),
		slog.String("kind", string(account.Kind())))
}

func (h *APIHandler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("id")
	if accountID == "" {
		h.sendError(w, "Account ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	account, err := h.ledger.GetAccount(ctx, accountID)
	if err != nil {
		h.sendOperationError(w, err)
		return
	}

	h.sendJSON(w, accountResponse(account), http.StatusOK)
}

func (h *APIHandler) DepositHandler(w http.ResponseWriter, r *http.Request) {
	h.handleOperation(w, r, domain.EntryDeposit, h.ledger.Deposit)
}

func (h *APIHandler) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	h.handleOperation(w, r, domain.EntryWithdrawal, h.ledger.Withdraw)
}

func (h *APIHandler) handleOperation(
	w http.ResponseWriter,
	r *http.Request,
	entryType domain.EntryType,
	operate func(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Entry, error),
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest, "INVALID_REQUEST")
		return
	}
	if req.AccountID == "" {
		h.sendError(w, "Account ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.sendError(w, "Invalid amount", http.StatusBadRequest, "INVALID_AMOUNT")
		return
	}

	if req.Signature != "" {
		if valid, err := h.signer.VerifyOperation(req.AccountID, string(entryType), amount, req.Signature); !valid || err != nil {
			h.sendError(w, "Invalid signature", http.StatusUnauthorized, "INVALID_SIGNATURE")
			return
		}
	}

	entry, err := operate(ctx, req.AccountID, amount)
	if err != nil {
		if entry != nil && errors.Is(err, domain.ErrInsufficientFunds) {
			response := operationResponse(entry)
			response.Message = "Insufficient funds, balance unchanged"
			h.sendJSON(w, response, http.StatusConflict)
			return
		}
		h.sendOperationError(w, err)
		return
	}

	h.sendJSON(w, operationResponse(entry), http.StatusOK)
}

func (h *APIHandler) StatementHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("id")
	if accountID == "" {
		h.sendError(w, "Account ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	entries, err := h.ledger.Statement(ctx, accountID, limit, offset)
	if err != nil {
		h.sendOperationError(w, err)
		return
	}

	h.sendJSON(w, entries, http.StatusOK)
}

// WithdrawalVolumeHandler reports the total of completed withdrawals for one
// account on a calendar day, defaulting to today.
func (h *APIHandler) WithdrawalVolumeHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("id")
	if accountID == "" {
		h.sendError(w, "Account ID is required", http.StatusBadRequest, "MISSING_ID")
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			h.sendError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest, "INVALID_DATE")
			return
		}
		date = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	volume, err := h.ledger.DailyWithdrawalVolume(ctx, accountID, date)
	if err != nil {
		h.sendOperationError(w, err)
		return
	}

	h.sendJSON(w, VolumeResponse{
		AccountID:        accountID,
		Date:             date.Format("2006-01-02"),
		WithdrawalVolume: volume.String(),
	}, http.StatusOK)
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "1.0.0",
	}
	h.sendJSON(w, response, http.StatusOK)
}

func (h *APIHandler) sendOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.sendError(w, "Account not found", http.StatusNotFound, "NOT_FOUND")
	case errors.Is(err, processor.ErrNotWithdrawable):
		h.sendError(w, err.Error(), http.StatusConflict, "NOT_WITHDRAWABLE")
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.sendError(w, err.Error(), http.StatusConflict, "INSUFFICIENT_FUNDS")
	case errors.Is(err, domain.ErrInvalidConstruction):
		h.sendError(w, err.Error(), http.StatusBadRequest, "INVALID_CONSTRUCTION")
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, validator.ErrNonPositiveAmount),
		errors.Is(err, validator.ErrAmountTooLarge),
		errors.Is(err, validator.ErrInvalidOwnerID),
		errors.Is(err, validator.ErrUnknownKind):
		h.sendError(w, err.Error(), http.StatusBadRequest, "VALIDATION_ERROR")
	default:
		h.sendError(w, fmt.Sprintf("Operation failed: %v", err), http.StatusInternalServerError, "SERVER_ERROR")
	}
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code string) {
	errorResponse := ErrorResponse{
		Error: message,
		Code:  code,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}

func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/accounts", h.OpenAccountHandler)
	mux.HandleFunc("GET /api/v1/accounts", h.GetAccountHandler)
	mux.HandleFunc("POST /api/v1/accounts/deposit", h.DepositHandler)
	mux.HandleFunc("POST /api/v1/accounts/withdraw", h.WithdrawHandler)
	mux.HandleFunc("GET /api/v1/accounts/statement", h.StatementHandler)
	mux.HandleFunc("GET /api/v1/accounts/withdrawals/volume", h.WithdrawalVolumeHandler)
	mux.HandleFunc("GET /api/health", h.HealthCheckHandler)
}

func accountResponse(account domain.Depositor) AccountResponse {
	_, withdrawable := account.(domain.Withdrawer)
	return AccountResponse{
		ID:           account.ID(),
		OwnerID:      account.OwnerID(),
		Kind:         string(account.Kind()),
		Balance:      account.Balance().String(),
		Withdrawable: withdrawable,
	}
}

func operationResponse(entry *domain.Entry) OperationResponse {
	return OperationResponse{
		EntryID:   entry.ID,
		AccountID: entry.AccountID,
		Type:      string(entry.Type),
		Amount:    entry.Amount.String(),
		Balance:   entry.BalanceAfter.String(),
		Status:    string(entry.Status),
		Flags:     entry.Flags,
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}
