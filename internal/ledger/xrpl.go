package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const dropsPerXRP = 1_000_000

var (
	ErrNotConnected = errors.New("ledger endpoint not reachable")
	ErrNotValidated = errors.New("transaction not validated in time")
)

// RPCClient talks to an XRPL node over the JSON-RPC HTTP API. Signing uses
// the node's sign-and-submit mode with the wallet secret from configuration;
// key management beyond that is out of scope here.
type RPCClient struct {
	endpoint   string
	wallet     string
	secret     string
	httpClient *http.Client

	// validation polling
	pollInterval time.Duration
	pollAttempts int
}

// NewRPCClient creates a ledger client for the given JSON-RPC endpoint and
// funding wallet.
func NewRPCClient(endpoint, wallet, secret string) *RPCClient {
	return &RPCClient{
		endpoint: endpoint,
		wallet:   wallet,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollInterval: time.Second,
		pollAttempts: 20,
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// call performs one JSON-RPC request and decodes the result payload
func (c *RPCClient) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: []any{params}})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d from ledger endpoint", resp.StatusCode)
	}

	var env rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	var status rpcStatus
	if err := json.Unmarshal(env.Result, &status); err != nil {
		return fmt.Errorf("decode result status: %w", err)
	}
	if status.Status == "error" {
		if status.ErrorMessage != "" {
			return fmt.Errorf("ledger error: %s", status.ErrorMessage)
		}
		return fmt.Errorf("ledger error: %s", status.Error)
	}

	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}

	return nil
}

// Connect checks the endpoint with a server_info call
func (c *RPCClient) Connect(ctx context.Context) error {
	var result struct {
		Info struct {
			ServerState string `json:"server_state"`
		} `json:"info"`
	}
	if err := c.call(ctx, "server_info", map[string]any{}, &result); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	return nil
}

func (c *RPCClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// XRPBalance returns the account's native balance in XRP
func (c *RPCClient) XRPBalance(ctx context.Context, account string) (float64, error) {
	var result struct {
		AccountData struct {
			Balance string `json:"Balance"`
		} `json:"account_data"`
	}

	params := map[string]any{"account": account, "ledger_index": "validated"}
	if err := c.call(ctx, "account_info", params, &result); err != nil {
		return 0, fmt.Errorf("account_info %s: %w", account, err)
	}

	drops, err := strconv.ParseFloat(result.AccountData.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance %q: %w", result.AccountData.Balance, err)
	}

	return drops / dropsPerXRP, nil
}

// TrustLineBalance returns the account's balance on one trust line, or 0 if
// the account holds no line for (currency, issuer).
func (c *RPCClient) TrustLineBalance(ctx context.Context, account, currency, issuer string) (float64, error) {
	var result struct {
		Lines []struct {
			Account  string `json:"account"`
			Currency string `json:"currency"`
			Balance  string `json:"balance"`
		} `json:"lines"`
	}

	params := map[string]any{"account": account, "ledger_index": "validated"}
	if err := c.call(ctx, "account_lines", params, &result); err != nil {
		return 0, fmt.Errorf("account_lines %s: %w", account, err)
	}

	for _, line := range result.Lines {
		if line.Account == issuer && strings.EqualFold(line.Currency, currency) {
			balance, err := strconv.ParseFloat(line.Balance, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid line balance %q: %w", line.Balance, err)
			}
			return balance, nil
		}
	}

	return 0, nil
}

// SubmitPayment signs and submits a payment and waits for it to appear in a
// validated ledger. The returned fee is the fee actually charged.
func (c *RPCClient) SubmitPayment(ctx context.Context, p Payment) (*Result, error) {
	txJSON := map[string]any{
		"TransactionType": "Payment",
		"Account":         c.wallet,
		"Destination":     p.Destination,
		"Amount":          formatAmount(p),
	}

	var result struct {
		EngineResult        string `json:"engine_result"`
		EngineResultMessage string `json:"engine_result_message"`
		TxJSON              struct {
			Hash string `json:"hash"`
			Fee  string `json:"Fee"`
		} `json:"tx_json"`
	}

	params := map[string]any{"tx_json": txJSON, "secret": c.secret, "fail_hard": true}
	if err := c.call(ctx, "submit", params, &result); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(result.EngineResult, "tes") {
		return nil, fmt.Errorf("payment rejected: %s (%s)", result.EngineResult, result.EngineResultMessage)
	}

	feeDrops, _ := strconv.ParseFloat(result.TxJSON.Fee, 64)
	res := &Result{
		Hash:       result.TxJSON.Hash,
		FeeXRP:     feeDrops / dropsPerXRP,
		ResultCode: result.EngineResult,
	}

	if err := c.awaitValidation(ctx, res.Hash); err != nil {
		return nil, err
	}

	return res, nil
}

// awaitValidation polls tx until the transaction is in a validated ledger
func (c *RPCClient) awaitValidation(ctx context.Context, hash string) error {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		var result struct {
			Validated bool `json:"validated"`
			Meta      struct {
				TransactionResult string `json:"TransactionResult"`
			} `json:"meta"`
		}

		err := c.call(ctx, "tx", map[string]any{"transaction": hash}, &result)
		if err == nil && result.Validated {
			if !strings.HasPrefix(result.Meta.TransactionResult, "tes") {
				return fmt.Errorf("payment failed on ledger: %s", result.Meta.TransactionResult)
			}
			return nil
		}
		// txnNotFound until the ledger closes is expected; keep polling.

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return fmt.Errorf("%w: %s", ErrNotValidated, hash)
}

// formatAmount renders a payment amount the way the XRPL wire format wants
// it: native XRP as a drops string, issued tokens as a currency object.
func formatAmount(p Payment) any {
	if strings.EqualFold(p.Currency, "XRP") && p.Issuer == "" {
		drops := int64(p.Amount * dropsPerXRP)
		return strconv.FormatInt(drops, 10)
	}
	return map[string]any{
		"currency": p.Currency,
		"issuer":   p.Issuer,
		"value":    strconv.FormatFloat(p.Amount, 'f', -1, 64),
	}
}
