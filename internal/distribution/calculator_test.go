package distribution

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/quayside/airdropd/internal/models"
)

// fakeBalances serves canned balances per account
type fakeBalances struct {
	xrp   map[string]float64
	lines map[string]float64 // keyed account/currency
	err   error
}

func (f *fakeBalances) XRPBalance(ctx context.Context, account string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.xrp[account], nil
}

func (f *fakeBalances) TrustLineBalance(ctx context.Context, account, currency, issuer string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.lines[account+"/"+currency], nil
}

func TestCalculate_Fixed(t *testing.T) {
	c := New(rand.NewSource(1))
	token := &models.TokenConfig{DistributionMethod: models.MethodFixed, Amount: 10}

	got, err := c.Calculate(context.Background(), token, "rAlice", &fakeBalances{})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if got != 10 {
		t.Errorf("Calculate() = %v, want 10", got)
	}
}

func TestCalculate_WalletBalancePercent(t *testing.T) {
	c := New(rand.NewSource(1))
	token := &models.TokenConfig{
		DistributionMethod: models.MethodWalletBalancePct,
		CurrencyCode:       "TKN",
		IssuerAddress:      "rIssuer",
		BalancePercent:     10,
	}
	query := &fakeBalances{lines: map[string]float64{"rAlice/TKN": 200}}

	got, err := c.Calculate(context.Background(), token, "rAlice", query)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if got != 20 {
		t.Errorf("Calculate() = %v, want 20", got)
	}
}

func TestCalculate_XRPBalancePercent(t *testing.T) {
	c := New(rand.NewSource(1))
	token := &models.TokenConfig{DistributionMethod: models.MethodXRPBalancePct, BalancePercent: 5}
	query := &fakeBalances{xrp: map[string]float64{"rBob": 1000}}

	got, err := c.Calculate(context.Background(), token, "rBob", query)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if got != 50 {
		t.Errorf("Calculate() = %v, want 50", got)
	}
}

func TestCalculate_TokenBalanceRatio(t *testing.T) {
	c := New(rand.NewSource(1))
	token := &models.TokenConfig{
		DistributionMethod: models.MethodTokenBalanceRatio,
		CurrencyCode:       "NEW",
		IssuerAddress:      "rIssuerNew",
		SourceCurrency:     "OLD",
		SourceIssuer:       "rIssuerOld",
	}
	query := &fakeBalances{lines: map[string]float64{"rAlice/OLD": 73.5}}

	got, err := c.Calculate(context.Background(), token, "rAlice", query)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if got != 73.5 {
		t.Errorf("Calculate() = %v, want 73.5 (1:1 against source holdings)", got)
	}
}

func TestCalculate_RandomRange(t *testing.T) {
	c := New(rand.NewSource(42))
	token := &models.TokenConfig{DistributionMethod: models.MethodRandomRange, MinAmount: 1, MaxAmount: 5}

	for i := 0; i < 100; i++ {
		got, err := c.Calculate(context.Background(), token, "rAlice", &fakeBalances{})
		if err != nil {
			t.Fatalf("Calculate() error = %v", err)
		}
		if got < 1 || got >= 5 {
			t.Fatalf("Calculate() = %v, want in [1, 5)", got)
		}
	}
}

func TestCalculate_RandomRange_Deterministic(t *testing.T) {
	a := New(rand.NewSource(7))
	b := New(rand.NewSource(7))
	token := &models.TokenConfig{DistributionMethod: models.MethodRandomRange, MinAmount: 0, MaxAmount: 100}

	for i := 0; i < 10; i++ {
		x, _ := a.Calculate(context.Background(), token, "rAlice", &fakeBalances{})
		y, _ := b.Calculate(context.Background(), token, "rAlice", &fakeBalances{})
		if x != y {
			t.Fatalf("same seed diverged at draw %d: %v != %v", i, x, y)
		}
	}
}

func TestCalculate_QueryError(t *testing.T) {
	c := New(rand.NewSource(1))
	queryErr := errors.New("ledger unavailable")
	query := &fakeBalances{err: queryErr}

	for _, method := range []string{models.MethodWalletBalancePct, models.MethodXRPBalancePct, models.MethodTokenBalanceRatio} {
		token := &models.TokenConfig{DistributionMethod: method, BalancePercent: 10, SourceCurrency: "OLD"}
		_, err := c.Calculate(context.Background(), token, "rAlice", query)
		if !errors.Is(err, queryErr) {
			t.Errorf("Calculate(%s) error = %v, want wrapped query error", method, err)
		}
	}
}

func TestCalculate_UnknownMethod(t *testing.T) {
	c := New(rand.NewSource(1))
	token := &models.TokenConfig{DistributionMethod: "bogus"}

	_, err := c.Calculate(context.Background(), token, "rAlice", &fakeBalances{})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Calculate() error = %v, want ErrUnknownMethod", err)
	}
}
