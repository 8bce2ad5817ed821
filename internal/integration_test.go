package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"account_ledger/internal/api"
	"account_ledger/internal/domain"
	"account_ledger/internal/processor"
	"account_ledger/internal/repository/memory"
	"account_ledger/pkg/crypto"
	"account_ledger/pkg/metrics"
)

type testEnv struct {
	accountRepo *memory.AccountRepository
	entryRepo   *memory.EntryRepository
	ledger      *processor.LedgerService
	handler     *api.APIHandler
	signer      *crypto.Signer
	logger      *slog.Logger
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	accountRepo := memory.NewAccountRepository()
	entryRepo := memory.NewEntryRepository()

	metricsCollector := metrics.NewMetricsCollector(nil)
	signer := crypto.NewSigner("test-secret", nil)
	logger := slog.Default()

	ledger := processor.NewLedgerService(accountRepo, entryRepo, metricsCollector, nil, logger)
	handler := api.NewAPIHandler(ledger, signer, logger)

	return &testEnv{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		ledger:      ledger,
		handler:     handler,
		signer:      signer,
		logger:      logger,
	}
}

func callOpenAccount(t *testing.T, env *testEnv, req api.OpenAccountRequest) (*api.AccountResponse, int) {
	t.Helper()
	b, _ := json.Marshal(req)
	r := httptest.NewRequest("POST", "/api/v1/accounts", bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	env.handler.OpenAccountHandler(w, r)
	respCode := w.Result().StatusCode

	if respCode >= 200 && respCode < 300 {
		var ar api.AccountResponse
		if err := json.NewDecoder(w.Body).Decode(&ar); err != nil {
			t.Fatalf("decode account response failed: %v", err)
		}
		return &ar, respCode
	}
	return nil, respCode
}

func callOperation(t *testing.T, env *testEnv, path string, req api.OperationRequest) (*api.OperationResponse, int) {
	t.Helper()
	b, _ := json.Marshal(req)
	r := httptest.NewRequest("POST", path, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	switch path {
	case "/api/v1/accounts/deposit":
		env.handler.DepositHandler(w, r)
	case "/api/v1/accounts/withdraw":
		env.handler.WithdrawHandler(w, r)
	default:
		t.Fatalf("unknown path %s", path)
	}

	respCode := w.Result().StatusCode
	var or api.OperationResponse
	if err := json.NewDecoder(w.Body).Decode(&or); err != nil {
		return nil, respCode
	}
	return &or, respCode
}

func TestIntegration_OpenDepositWithdraw(t *testing.T) {
	env := setup(t)

	account, code := callOpenAccount(t, env, api.OpenAccountRequest{
		Kind:           "savings",
		OwnerID:        "user-1",
		OpeningBalance: "100",
	})
	if code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}
	if !account.Withdrawable {
		t.Fatalf("expected savings account to be withdrawable")
	}

	resp, code := callOperation(t, env, "/api/v1/accounts/deposit", api.OperationRequest{
		AccountID: account.ID,
		Amount:    "1000",
	})
	if code != 200 {
		t.Fatalf("expected 200 on deposit, got %d", code)
	}
	if resp.Balance != "1100" {
		t.Fatalf("expected balance 1100 after deposit, got %s", resp.Balance)
	}

	resp, code = callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{
		AccountID: account.ID,
		Amount:    "500",
	})
	if code != 200 {
		t.Fatalf("expected 200 on withdraw, got %d", code)
	}
	if resp.Balance != "600" {
		t.Fatalf("expected balance 600 after withdrawal, got %s", resp.Balance)
	}

	entries, err := env.entryRepo.GetByAccountID(context.Background(), account.ID, 10, 0)
	if err != nil {
		t.Fatalf("entries not found: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(entries))
	}
}

func TestIntegration_WithdrawInsufficientFunds(t *testing.T) {
	env := setup(t)

	account, code := callOpenAccount(t, env, api.OpenAccountRequest{
		Kind:           "current",
		OwnerID:        "user-1",
		OpeningBalance: "0",
	})
	if code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}

	resp, code := callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{
		AccountID: account.ID,
		Amount:    "50",
	})
	if code != 409 {
		t.Fatalf("expected 409 for insufficient funds, got %d", code)
	}
	if resp == nil || resp.Balance != "0" {
		t.Fatalf("expected balance left at 0, got %+v", resp)
	}

	got, err := env.accountRepo.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("account not found: %v", err)
	}
	if !got.Balance().Equal(decimal.Zero) {
		t.Fatalf("expected balance unchanged at 0, got %s", got.Balance())
	}
}

func TestIntegration_WithdrawFromFixedTermRejected(t *testing.T) {
	env := setup(t)

	account, code := callOpenAccount(t, env, api.OpenAccountRequest{
		Kind:           "fixed_term",
		OwnerID:        "user-1",
		OpeningBalance: "500",
	})
	if code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}
	if account.Withdrawable {
		t.Fatalf("expected fixed term account to not be withdrawable")
	}

	_, code = callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{
		AccountID: account.ID,
		Amount:    "50",
	})
	if code != 409 {
		t.Fatalf("expected 409 for deposit-only account, got %d", code)
	}

	got, err := env.accountRepo.GetByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("account not found: %v", err)
	}
	if !got.Balance().Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected balance unchanged at 500, got %s", got.Balance())
	}
}

func TestIntegration_NegativeOpeningBalanceRejected(t *testing.T) {
	env := setup(t)

	_, code := callOpenAccount(t, env, api.OpenAccountRequest{
		Kind:           "savings",
		OwnerID:        "user-1",
		OpeningBalance: "-10",
	})
	if code != 400 {
		t.Fatalf("expected 400 for negative opening balance, got %d", code)
	}
}

func TestIntegration_SignedWithdrawal(t *testing.T) {
	env := setup(t)

	account, _ := callOpenAccount(t, env, api.OpenAccountRequest{
		Kind:           "current",
		OwnerID:        "user-1",
		OpeningBalance: "300",
	})

	amount := decimal.NewFromInt(100)
	signature := env.signer.SignOperation(account.ID, "withdrawal", amount)

	resp, code := callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{
		AccountID: account.ID,
		Amount:    "100",
		Signature: signature,
	})
	if code != 200 {
		t.Fatalf("expected 200 for correctly signed withdrawal, got %d", code)
	}
	if resp.Balance != "200" {
		t.Fatalf("expected balance 200, got %s", resp.Balance)
	}

	_, code = callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{
		AccountID: account.ID,
		Amount:    "100",
		Signature: "forged",
	})
	if code != 401 {
		t.Fatalf("expected 401 for forged signature, got %d", code)
	}
}

func TestIntegration_Statement(t *testing.T) {
	env := setup(t)

	account, _ := callOpenAccount(t, env, api.OpenAccountRequest{
		Kind:           "savings",
		OwnerID:        "user-1",
		OpeningBalance: "100",
	})

	r := httptest.NewRequest("GET", "/api/v1/accounts/statement?id="+account.ID, nil)
	w := httptest.NewRecorder()
	env.handler.StatementHandler(w, r)

	if w.Result().StatusCode != 200 {
		t.Fatalf("expected 200 for empty statement, got %d", w.Result().StatusCode)
	}
	var entries []domain.Entry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("decode statement failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty statement for a fresh account, got %d entries", len(entries))
	}

	callOperation(t, env, "/api/v1/accounts/deposit", api.OperationRequest{AccountID: account.ID, Amount: "1000"})
	callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{AccountID: account.ID, Amount: "500"})

	r = httptest.NewRequest("GET", "/api/v1/accounts/statement?id="+account.ID+"&limit=1&offset=0", nil)
	w = httptest.NewRecorder()
	env.handler.StatementHandler(w, r)

	if w.Result().StatusCode != 200 {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("decode statement failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected limit to cap the statement at 1 entry, got %d", len(entries))
	}
	if entries[0].Type != domain.EntryWithdrawal {
		t.Errorf("expected the most recent entry first, got %s", entries[0].Type)
	}

	r = httptest.NewRequest("GET", "/api/v1/accounts/statement?id=missing", nil)
	w = httptest.NewRecorder()
	env.handler.StatementHandler(w, r)
	if w.Result().StatusCode != 404 {
		t.Fatalf("expected 404 for unknown account, got %d", w.Result().StatusCode)
	}
}

func TestIntegration_WithdrawalVolume(t *testing.T) {
	env := setup(t)

	account, _ := callOpenAccount(t, env, api.OpenAccountRequest{
		Kind:           "current",
		OwnerID:        "user-1",
		OpeningBalance: "1000",
	})

	callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{AccountID: account.ID, Amount: "300"})
	callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{AccountID: account.ID, Amount: "200"})
	// Rejected withdrawals must not count towards the volume.
	callOperation(t, env, "/api/v1/accounts/withdraw", api.OperationRequest{AccountID: account.ID, Amount: "9999"})

	r := httptest.NewRequest("GET", "/api/v1/accounts/withdrawals/volume?id="+account.ID, nil)
	w := httptest.NewRecorder()
	env.handler.WithdrawalVolumeHandler(w, r)

	if w.Result().StatusCode != 200 {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
	var volume api.VolumeResponse
	if err := json.NewDecoder(w.Body).Decode(&volume); err != nil {
		t.Fatalf("decode volume failed: %v", err)
	}
	if volume.WithdrawalVolume != "500" {
		t.Errorf("expected withdrawal volume 500, got %s", volume.WithdrawalVolume)
	}

	r = httptest.NewRequest("GET", "/api/v1/accounts/withdrawals/volume?id=missing", nil)
	w = httptest.NewRecorder()
	env.handler.WithdrawalVolumeHandler(w, r)
	if w.Result().StatusCode != 404 {
		t.Fatalf("expected 404 for unknown account, got %d", w.Result().StatusCode)
	}
}

func TestIntegration_UnknownAccount(t *testing.T) {
	env := setup(t)

	_, code := callOperation(t, env, "/api/v1/accounts/deposit", api.OperationRequest{
		AccountID: "missing",
		Amount:    "10",
	})
	if code != 404 {
		t.Fatalf("expected 404 for unknown account, got %d", code)
	}
}
