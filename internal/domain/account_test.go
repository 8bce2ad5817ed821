package domain

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// Deposit-only variants must never satisfy the withdraw capability.
var (
	_ Withdrawer = (*SavingsAccount)(nil)
	_ Withdrawer = (*CurrentAccount)(nil)
	_ Depositor  = (*FixedTermAccount)(nil)
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewAccount_NegativeOpeningBalance(t *testing.T) {
	_, err := NewSavingsAccount("u1", dec("-10"))
	if !errors.Is(err, ErrInvalidConstruction) {
		t.Fatalf("expected ErrInvalidConstruction, got %v", err)
	}

	_, err = NewCurrentAccount("u1", dec("-0.01"))
	if !errors.Is(err, ErrInvalidConstruction) {
		t.Fatalf("expected ErrInvalidConstruction, got %v", err)
	}

	_, err = NewFixedTermAccount("u1", dec("-1"), 30*24*time.Hour)
	if !errors.Is(err, ErrInvalidConstruction) {
		t.Fatalf("expected ErrInvalidConstruction, got %v", err)
	}
}

func TestDeposit_IncreasesBalanceExactly(t *testing.T) {
	acc, err := NewSavingsAccount("u1", dec("100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := acc.Deposit(dec("1000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(dec("1100")) {
		t.Errorf("expected balance 1100, got %s", balance)
	}
}

func TestDeposit_RejectsNonPositiveAmount(t *testing.T) {
	acc, _ := NewCurrentAccount("u1", dec("50"))

	for _, amount := range []string{"0", "-5"} {
		_, err := acc.Deposit(dec(amount))
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("deposit of %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if !acc.Balance().Equal(dec("50")) {
		t.Errorf("expected balance unchanged at 50, got %s", acc.Balance())
	}
}

// Constructors must hand out accounts whose embedded mutex guards the live
// value; concurrent deposits on a freshly constructed account lose nothing.
func TestDeposit_ConcurrentAdds(t *testing.T) {
	acc, err := NewCurrentAccount("u1", dec("0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := acc.Deposit(dec("1")); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if !acc.Balance().Equal(dec("50")) {
		t.Errorf("expected balance 50 after 50 concurrent deposits, got %s", acc.Balance())
	}
}

func TestWithdraw_Scenario(t *testing.T) {
	acc, _ := NewSavingsAccount("u1", dec("100"))

	if _, err := acc.Deposit(dec("1000")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balance, err := acc.Withdraw(dec("500"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(dec("600")) {
		t.Errorf("expected balance 600, got %s", balance)
	}
}

func TestWithdraw_InsufficientFundsLeavesBalanceUnchanged(t *testing.T) {
	acc, _ := NewCurrentAccount("u1", dec("0"))

	_, err := acc.Withdraw(dec("50"))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !acc.Balance().Equal(decimal.Zero) {
		t.Errorf("expected balance 0, got %s", acc.Balance())
	}
}

func TestWithdraw_ExactBalanceSucceeds(t *testing.T) {
	acc, _ := NewSavingsAccount("u1", dec("75.25"))

	balance, err := acc.Withdraw(dec("75.25"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("expected balance 0, got %s", balance)
	}
}

// Running the same operation sequence against any two withdraw-capable
// variants with identical opening balances must produce identical balances
// and identical outcomes.
func TestWithdrawers_Substitutability(t *testing.T) {
	savings, _ := NewSavingsAccount("u1", dec("100"))
	current, _ := NewCurrentAccount("u1", dec("100"))

	ops := []struct {
		withdraw bool
		amount   string
	}{
		{false, "1000"},
		{true, "500"},
		{true, "700"}, // fails on both: balance is 600
		{false, "0.40"},
		{true, "600.40"}, // drains both to zero
		{true, "0.01"},   // fails on both: balance is 0
	}

	for _, w := range []Withdrawer{savings, current} {
		for i, op := range ops {
			var err error
			if op.withdraw {
				_, err = w.Withdraw(dec(op.amount))
			} else {
				_, err = w.Deposit(dec(op.amount))
			}
			if (i == 2 || i == 5) != errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("%s op %d: unexpected outcome, err=%v", w.Kind(), i, err)
			}
			if w.Balance().IsNegative() {
				t.Fatalf("%s op %d: balance went negative: %s", w.Kind(), i, w.Balance())
			}
		}
	}

	if !savings.Balance().Equal(current.Balance()) {
		t.Errorf("variants diverged: savings=%s current=%s", savings.Balance(), current.Balance())
	}
	if !savings.Balance().IsZero() {
		t.Errorf("expected final balance 0, got %s", savings.Balance())
	}
}

func TestFixedTermAccount_DepositOnly(t *testing.T) {
	acc, err := NewFixedTermAccount("u1", dec("200"), 90*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := acc.Deposit(dec("5000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(dec("5200")) {
		t.Errorf("expected balance 5200, got %s", balance)
	}

	// The capability split is enforced by the type system: a deposit-only
	// account can never be handed to withdraw-capable code paths.
	var dep Depositor = acc
	if _, ok := dep.(Withdrawer); ok {
		t.Fatal("FixedTermAccount must not satisfy Withdrawer")
	}
	if acc.MaturesAt().Before(acc.CreatedAt()) {
		t.Errorf("maturity %s precedes creation %s", acc.MaturesAt(), acc.CreatedAt())
	}
}
