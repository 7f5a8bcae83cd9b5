package models

import "time"

// Distribution methods supported by the payout calculator.
const (
	MethodFixed             = "fixed"
	MethodWalletBalancePct  = "wallet_balance_percent"
	MethodXRPBalancePct     = "xrp_balance_percent"
	MethodTokenBalanceRatio = "token_balance_ratio"
	MethodRandomRange       = "random_range"
)

// TokenConfig describes one token to distribute and the payout formula for
// it. Immutable after the campaign starts, except TotalSent.
type TokenConfig struct {
	ID            string `json:"id"`
	CampaignID    string `json:"campaign_id"`
	CurrencyCode  string `json:"currency_code"`
	IssuerAddress string `json:"issuer_address"`

	DistributionMethod string `json:"distribution_method"`

	// Method-specific parameters. Amount for fixed, MinAmount/MaxAmount for
	// random_range, BalancePercent for the percent methods, SourceCurrency/
	// SourceIssuer for token_balance_ratio.
	Amount         float64 `json:"amount,omitempty"`
	MinAmount      float64 `json:"min_amount,omitempty"`
	MaxAmount      float64 `json:"max_amount,omitempty"`
	BalancePercent float64 `json:"balance_percent,omitempty"`
	SourceCurrency string  `json:"source_currency,omitempty"`
	SourceIssuer   string  `json:"source_issuer,omitempty"`

	// Running sum of successful payouts, recomputable from transactions.
	TotalSent float64 `json:"total_sent"`

	CreatedAt time.Time `json:"created_at"`
}
