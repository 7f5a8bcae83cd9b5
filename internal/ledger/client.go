package ledger

import "context"

// Payment is a single-asset payment from the funding wallet to one recipient.
// Currency "XRP" with an empty issuer means the native token.
type Payment struct {
	Destination string
	Currency    string
	Issuer      string
	Amount      float64
}

// Result is the confirmed outcome of a submitted payment
type Result struct {
	Hash       string
	FeeXRP     float64
	ResultCode string
}

// Client is everything the execution engine needs from a ledger. The engine
// tolerates arbitrary latency and errors from each call.
type Client interface {
	// Connect verifies the ledger endpoint is reachable.
	Connect(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// XRPBalance returns an account's native-token balance.
	XRPBalance(ctx context.Context, account string) (float64, error)

	// TrustLineBalance returns an account's balance on the trust line for
	// (currency, issuer), or 0 if no such line exists.
	TrustLineBalance(ctx context.Context, account, currency, issuer string) (float64, error)

	// SubmitPayment autofills, signs and submits a payment, then awaits its
	// outcome. A non-nil Result means the ledger accepted the transaction.
	SubmitPayment(ctx context.Context, p Payment) (*Result, error)
}
