package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quayside/airdropd/internal/distribution"
	"github.com/quayside/airdropd/internal/ledger"
	"github.com/quayside/airdropd/internal/metrics"
	"github.com/quayside/airdropd/internal/models"
	"github.com/quayside/airdropd/internal/pacer"
	"github.com/quayside/airdropd/internal/repository"
)

var (
	ErrAlreadyRunning = errors.New("campaign is already running")
	ErrEngineBusy     = errors.New("another campaign is already running")
	ErrNotRunning     = errors.New("campaign is not running")
	ErrNotStartable   = errors.New("campaign cannot be started from its current status")
)

// Engine executes airdrop campaigns: one cooperative loop per campaign,
// walking recipients in creation order and token configs in stable order,
// one payment at a time. Each Engine owns its cancellation state, so
// independent instances never share anything.
//
// At most one campaign runs per Engine at a time; payments are strictly
// serialized because the funding account's sequence numbers are consumed in
// order.
type Engine struct {
	campaigns    *repository.CampaignRepository
	recipients   *repository.RecipientRepository
	transactions *repository.TransactionRepository
	logs         *repository.LogRepository
	ledger       ledger.Client
	calc         *distribution.Calculator
	metrics      *metrics.Metrics
	logger       *slog.Logger
	clock        clockwork.Clock

	mu      sync.Mutex
	running map[string]*run
	wg      sync.WaitGroup
}

// run is the handle for one in-flight campaign execution
type run struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	reason string // how the run was asked to end: "paused" or "stopped"
}

func (r *run) setReason(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reason == "" {
		r.reason = reason
	}
}

func (r *run) getReason() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason
}

// Option configures an Engine
type Option func(*Engine)

// WithClock injects a clock for the pacing sleeps, used by tests
func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRandSource injects the random source for random_range payouts
func WithRandSource(src rand.Source) Option {
	return func(e *Engine) { e.calc = distribution.New(src) }
}

// New creates an engine over the given store and ledger client
func New(db *sql.DB, client ledger.Client, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		campaigns:    repository.NewCampaignRepository(db),
		recipients:   repository.NewRecipientRepository(db),
		transactions: repository.NewTransactionRepository(db),
		logs:         repository.NewLogRepository(db),
		ledger:       client,
		calc:         distribution.New(nil),
		metrics:      m,
		logger:       logger.With("component", "engine"),
		clock:        clockwork.NewRealClock(),
		running:      make(map[string]*run),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins (or resumes) execution of a campaign. Setup preconditions are
// checked synchronously: a campaign with no token configs, no pending
// recipients, or an unreachable ledger is marked failed and the root cause
// returned. A campaign that is already running, or an engine already busy
// with another campaign, is rejected as a usage error.
func (e *Engine) Start(ctx context.Context, campaignID string) error {
	e.mu.Lock()
	if _, ok := e.running[campaignID]; ok {
		e.mu.Unlock()
		return ErrAlreadyRunning
	}
	if len(e.running) > 0 {
		e.mu.Unlock()
		return ErrEngineBusy
	}
	r := &run{}
	e.running[campaignID] = r
	e.mu.Unlock()

	release := func() {
		e.mu.Lock()
		delete(e.running, campaignID)
		e.mu.Unlock()
	}

	campaign, err := e.campaigns.GetByID(campaignID)
	if err != nil {
		release()
		return fmt.Errorf("load campaign: %w", err)
	}
	if campaign == nil {
		release()
		return fmt.Errorf("campaign %s not found", campaignID)
	}

	switch campaign.Status {
	case models.CampaignPending, models.CampaignPaused:
	case models.CampaignRunning:
		// Status says running but no live run exists: a prior process died
		// mid-campaign. Treat it as resumable.
		e.logger.Warn("campaign marked running with no live run, resuming", "campaign_id", campaignID)
	default:
		release()
		return fmt.Errorf("%w: %s", ErrNotStartable, campaign.Status)
	}

	tokens, err := e.campaigns.GetTokenConfigs(campaignID)
	if err != nil {
		release()
		return fmt.Errorf("load token configs: %w", err)
	}
	if len(tokens) == 0 {
		release()
		return e.failCampaign(campaignID, "no token configurations")
	}

	pending, err := e.recipients.GetPending(campaignID)
	if err != nil {
		release()
		return fmt.Errorf("load recipients: %w", err)
	}
	if len(pending) == 0 {
		release()
		return e.failCampaign(campaignID, "no pending recipients")
	}

	if err := e.ledger.Connect(ctx); err != nil {
		release()
		return e.failCampaign(campaignID, fmt.Sprintf("cannot reach ledger: %v", err))
	}

	resumed := campaign.Status != models.CampaignPending
	if err := e.campaigns.UpdateStatus(campaignID, models.CampaignRunning); err != nil {
		release()
		return fmt.Errorf("update campaign status: %w", err)
	}

	if resumed {
		e.logs.Info(campaignID, "campaign resumed", map[string]any{"pending_recipients": len(pending)})
	} else {
		e.logs.Info(campaignID, "campaign started", map[string]any{
			"recipients": campaign.TotalRecipients,
			"tokens":     len(tokens),
			"interval_s": campaign.IntervalSeconds,
		})
	}
	e.logger.Info("campaign execution starting", "campaign_id", campaignID,
		"recipients", len(pending), "tokens", len(tokens), "resumed", resumed)

	// The run owns its own context; the caller's ctx only covers setup.
	runCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer release()
		e.execute(runCtx, campaign, tokens, pending, r)
	}()

	return nil
}

// Pause asks a running campaign to stop after the in-flight unit resolves.
// The cancellation is cooperative: it takes effect at the next loop check or
// within about one second of a pacing sleep.
func (e *Engine) Pause(campaignID string) error {
	return e.interrupt(campaignID, "paused")
}

// Stop is Pause with a different audit trail: the campaign lands in paused
// state and remains resumable.
func (e *Engine) Stop(campaignID string) error {
	return e.interrupt(campaignID, "stopped")
}

// Resume restarts a paused campaign
func (e *Engine) Resume(ctx context.Context, campaignID string) error {
	return e.Start(ctx, campaignID)
}

// IsRunning reports whether the engine is currently executing the campaign
func (e *Engine) IsRunning(campaignID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[campaignID]
	return ok
}

// Shutdown cancels all runs and waits for them to settle their state
func (e *Engine) Shutdown() {
	e.mu.Lock()
	for _, r := range e.running {
		r.setReason("paused")
		if r.cancel != nil {
			r.cancel()
		}
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) interrupt(campaignID, reason string) error {
	e.mu.Lock()
	r, ok := e.running[campaignID]
	e.mu.Unlock()
	if !ok || r.cancel == nil {
		return ErrNotRunning
	}
	r.setReason(reason)
	r.cancel()
	return nil
}

// failCampaign records a category-4 setup failure: single root-cause log
// entry, campaign marked failed.
func (e *Engine) failCampaign(campaignID, reason string) error {
	e.logs.Error(campaignID, "campaign failed: "+reason, nil)
	if err := e.campaigns.UpdateStatus(campaignID, models.CampaignFailed); err != nil {
		e.logger.Error("failed to mark campaign failed", "campaign_id", campaignID, "error", err)
	}
	e.logger.Error("campaign setup failed", "campaign_id", campaignID, "reason", reason)
	return errors.New(reason)
}

// execute is the campaign loop. Errors in a single unit of work never
// propagate out of their iteration; only cancellation ends the loop early.
func (e *Engine) execute(ctx context.Context, campaign *models.Campaign, tokens []models.TokenConfig, pending []models.Recipient, r *run) {
	e.metrics.CampaignsRunning.Inc()
	defer e.metrics.CampaignsRunning.Dec()

	wait := pacer.New(time.Duration(campaign.IntervalSeconds)*time.Second,
		pacer.WithClock(e.clock),
		pacer.WithTickFunc(func(remaining time.Duration) {
			e.metrics.PacerWaitSeconds.Set(remaining.Seconds())
		}))

	first := true
	cancelled := false

recipients:
	for i := range pending {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		rec := &pending[i]
		if err := e.recipients.UpdateStatus(rec.ID, models.RecipientProcessing, "", rec.AmountSent); err != nil {
			e.logger.Error("failed to mark recipient processing", "recipient_id", rec.ID, "error", err)
		}

		for j := range tokens {
			token := &tokens[j]

			// Idempotent resume: a unit that already completed is never
			// re-sent, and skipping costs no pacing delay.
			tx, err := e.transactions.GetByRecipientAndToken(rec.ID, token.ID)
			if err != nil {
				e.logger.Error("transaction lookup failed", "recipient_id", rec.ID, "token_id", token.ID, "error", err)
				continue
			}
			if tx != nil && tx.Status == models.TxCompleted {
				e.metrics.PaymentsSkippedTotal.WithLabelValues(token.CurrencyCode).Inc()
				e.logs.Info(campaign.ID, fmt.Sprintf("skipping %s for %s: already sent", token.CurrencyCode, rec.WalletAddress),
					map[string]any{"tx_hash": tx.TxHash})
				continue
			}

			// Pace between units of work. The first unit starts immediately;
			// cancellation during the sleep is observed within ~1s.
			if !first {
				if err := wait.Wait(ctx); err != nil {
					cancelled = true
					break recipients
				}
			}
			first = false

			if tx == nil {
				tx = &models.Transaction{
					CampaignID:  campaign.ID,
					RecipientID: rec.ID,
					TokenID:     token.ID,
				}
				if err := e.transactions.Create(tx); err != nil {
					e.logger.Error("failed to create transaction", "recipient_id", rec.ID, "token_id", token.ID, "error", err)
					continue
				}
			}
			// A row re-read as processing here was left by a crashed run.
			// Ledger finality was never confirmed for it, so it is retried;
			// if the original submission did land, this is a duplicate
			// payment. Known limitation of resuming without receipts.

			e.processUnit(ctx, campaign, rec, token, tx)
		}

		e.finishRecipient(campaign.ID, rec)
	}

	if cancelled {
		reason := r.getReason()
		if reason == "" {
			reason = "paused"
		}
		if err := e.campaigns.UpdateStatus(campaign.ID, models.CampaignPaused); err != nil {
			e.logger.Error("failed to mark campaign paused", "campaign_id", campaign.ID, "error", err)
		}
		if reason == "stopped" {
			e.logs.Info(campaign.ID, "campaign stopped by operator", nil)
		} else {
			e.logs.Info(campaign.ID, "campaign paused", nil)
		}
		e.logger.Info("campaign execution interrupted", "campaign_id", campaign.ID, "reason", reason)
		return
	}

	// Aggregates are recomputed from rows, never carried in memory: counters
	// held across pause/resume cycles drift.
	if err := e.campaigns.RecomputeAggregates(campaign.ID); err != nil {
		e.logger.Error("failed to recompute aggregates", "campaign_id", campaign.ID, "error", err)
	}
	if err := e.campaigns.UpdateStatus(campaign.ID, models.CampaignCompleted); err != nil {
		e.logger.Error("failed to mark campaign completed", "campaign_id", campaign.ID, "error", err)
	}
	e.logs.Success(campaign.ID, "campaign completed", nil)
	e.logger.Info("campaign execution completed", "campaign_id", campaign.ID)
}

// processUnit attempts one payment: compute the payout, submit it, record
// the outcome. Every failure is isolated to this transaction.
func (e *Engine) processUnit(ctx context.Context, campaign *models.Campaign, rec *models.Recipient, token *models.TokenConfig, tx *models.Transaction) {
	// Cancellation is observed between units, never mid-call: a pause must
	// not abort an already submitted payment, it has to resolve first.
	ctx = context.WithoutCancel(ctx)

	amount, err := e.calc.Calculate(ctx, token, rec.WalletAddress, e.ledger)
	if err != nil {
		e.failUnit(campaign.ID, tx.ID, token, rec, "calculation", fmt.Sprintf("calculation error: %v", err))
		return
	}
	if amount <= 0 {
		msg := fmt.Sprintf("calculated amount %g is not positive", amount)
		if err := e.transactions.MarkFailed(tx.ID, msg); err != nil {
			e.logger.Error("failed to mark transaction failed", "tx_id", tx.ID, "error", err)
		}
		e.metrics.PaymentsFailedTotal.WithLabelValues(token.CurrencyCode, "non_positive_amount").Inc()
		e.logs.Warning(campaign.ID, fmt.Sprintf("skipping %s for %s: %s", token.CurrencyCode, rec.WalletAddress, msg), nil)
		return
	}

	if err := e.transactions.MarkProcessing(tx.ID, amount); err != nil {
		e.logger.Error("failed to mark transaction processing", "tx_id", tx.ID, "error", err)
	}

	e.metrics.PaymentsSubmittedTotal.WithLabelValues(token.CurrencyCode).Inc()
	result, err := e.ledger.SubmitPayment(ctx, ledger.Payment{
		Destination: rec.WalletAddress,
		Currency:    token.CurrencyCode,
		Issuer:      token.IssuerAddress,
		Amount:      amount,
	})
	if err != nil {
		e.failUnit(campaign.ID, tx.ID, token, rec, "submission", err.Error())
		return
	}

	if err := e.transactions.MarkCompleted(tx.ID, result.Hash, result.FeeXRP); err != nil {
		e.logger.Error("failed to mark transaction completed", "tx_id", tx.ID, "error", err)
	}
	if err := e.campaigns.AddTokenSent(token.ID, amount); err != nil {
		e.logger.Error("failed to update token total", "token_id", token.ID, "error", err)
	}

	e.metrics.PaymentsConfirmedTotal.WithLabelValues(token.CurrencyCode).Inc()
	e.metrics.FeesPaidXRPTotal.Add(result.FeeXRP)
	e.logs.Success(campaign.ID, fmt.Sprintf("sent %g %s to %s", amount, token.CurrencyCode, rec.WalletAddress),
		map[string]any{"tx_hash": result.Hash, "fee_xrp": result.FeeXRP})
	e.logger.Info("payment confirmed", "campaign_id", campaign.ID, "recipient", rec.WalletAddress,
		"currency", token.CurrencyCode, "amount", amount, "tx_hash", result.Hash)
}

func (e *Engine) failUnit(campaignID, txID string, token *models.TokenConfig, rec *models.Recipient, reason, msg string) {
	if err := e.transactions.MarkFailed(txID, msg); err != nil {
		e.logger.Error("failed to mark transaction failed", "tx_id", txID, "error", err)
	}
	e.metrics.PaymentsFailedTotal.WithLabelValues(token.CurrencyCode, reason).Inc()
	e.logs.Error(campaignID, fmt.Sprintf("%s of %s to %s failed: %s", reason, token.CurrencyCode, rec.WalletAddress, msg), nil)
	e.logger.Warn("payment unit failed", "campaign_id", campaignID, "recipient", rec.WalletAddress,
		"currency", token.CurrencyCode, "reason", reason, "error", msg)
}

// finishRecipient derives the recipient's terminal status from its
// transaction rows: completed if every unit succeeded, failed if none did,
// partial otherwise.
func (e *Engine) finishRecipient(campaignID string, rec *models.Recipient) {
	txs, err := e.transactions.ListByRecipient(rec.ID)
	if err != nil {
		e.logger.Error("failed to list recipient transactions", "recipient_id", rec.ID, "error", err)
		return
	}

	var completed, failed int
	var lastAmount float64
	var lastError string
	for _, tx := range txs {
		switch tx.Status {
		case models.TxCompleted:
			completed++
			lastAmount = tx.Amount
		case models.TxFailed:
			failed++
			lastError = tx.ErrorMessage
		}
	}

	status := models.RecipientCompleted
	errMsg := ""
	switch {
	case completed == 0 && failed == 0:
		status = models.RecipientFailed
		errMsg = "no transactions recorded"
	case completed == 0 && failed > 0:
		status = models.RecipientFailed
		errMsg = lastError
	case completed > 0 && failed > 0:
		status = models.RecipientPartial
		errMsg = lastError
	}

	if err := e.recipients.UpdateStatus(rec.ID, status, errMsg, lastAmount); err != nil {
		e.logger.Error("failed to finish recipient", "recipient_id", rec.ID, "error", err)
	}
}
