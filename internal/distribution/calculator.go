package distribution

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/quayside/airdropd/internal/models"
)

var ErrUnknownMethod = errors.New("unknown distribution method")

// BalanceQuery is the slice of the ledger client the calculator needs
type BalanceQuery interface {
	XRPBalance(ctx context.Context, account string) (float64, error)
	TrustLineBalance(ctx context.Context, account, currency, issuer string) (float64, error)
}

// Calculator computes the payout amount for one (token config, recipient)
// pair. It performs no side effects beyond the balance query; query failures
// propagate to the caller, which isolates them per transaction.
type Calculator struct {
	rng *rand.Rand
}

// New creates a calculator. src drives random_range payouts and is injectable
// for deterministic tests; pass nil for a time-seeded source.
func New(src rand.Source) *Calculator {
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	return &Calculator{rng: rand.New(src)}
}

// Calculate returns the payout amount for a recipient under a token config.
func (c *Calculator) Calculate(ctx context.Context, token *models.TokenConfig, recipient string, query BalanceQuery) (float64, error) {
	switch token.DistributionMethod {
	case models.MethodFixed:
		return token.Amount, nil

	case models.MethodWalletBalancePct:
		balance, err := query.TrustLineBalance(ctx, recipient, token.CurrencyCode, token.IssuerAddress)
		if err != nil {
			return 0, fmt.Errorf("trust line balance for %s: %w", recipient, err)
		}
		return balance * token.BalancePercent / 100, nil

	case models.MethodXRPBalancePct:
		balance, err := query.XRPBalance(ctx, recipient)
		if err != nil {
			return 0, fmt.Errorf("xrp balance for %s: %w", recipient, err)
		}
		return balance * token.BalancePercent / 100, nil

	case models.MethodTokenBalanceRatio:
		// 1:1 against the recipient's holdings of a different token.
		balance, err := query.TrustLineBalance(ctx, recipient, token.SourceCurrency, token.SourceIssuer)
		if err != nil {
			return 0, fmt.Errorf("source balance for %s: %w", recipient, err)
		}
		return balance, nil

	case models.MethodRandomRange:
		return token.MinAmount + c.rng.Float64()*(token.MaxAmount-token.MinAmount), nil

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, token.DistributionMethod)
	}
}
