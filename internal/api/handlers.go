package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quayside/airdropd/internal/engine"
	"github.com/quayside/airdropd/internal/models"
	"github.com/quayside/airdropd/internal/repository"
)

// CampaignCreateRequest is the request body for POST /campaigns
type CampaignCreateRequest struct {
	Name            string               `json:"name"`
	IntervalSeconds int                  `json:"interval_seconds"`
	Tokens          []TokenConfigRequest `json:"tokens"`
	Recipients      []string             `json:"recipients"`
}

// TokenConfigRequest describes one token to distribute
type TokenConfigRequest struct {
	CurrencyCode       string  `json:"currency_code"`
	IssuerAddress      string  `json:"issuer_address,omitempty"`
	DistributionMethod string  `json:"distribution_method"`
	Amount             float64 `json:"amount,omitempty"`
	MinAmount          float64 `json:"min_amount,omitempty"`
	MaxAmount          float64 `json:"max_amount,omitempty"`
	BalancePercent     float64 `json:"balance_percent,omitempty"`
	SourceCurrency     string  `json:"source_currency,omitempty"`
	SourceIssuer       string  `json:"source_issuer,omitempty"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCampaignCreate handles POST /api/v1/campaigns. Configuration errors
// are rejected here and never reach the engine.
func (s *Server) handleCampaignCreate(w http.ResponseWriter, r *http.Request) {
	var req CampaignCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		s.sendError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.IntervalSeconds < models.MinIntervalSeconds {
		s.sendError(w, http.StatusBadRequest, "interval_seconds must be at least 5")
		return
	}
	if len(req.Tokens) == 0 {
		s.sendError(w, http.StatusBadRequest, "at least one token config is required")
		return
	}
	if len(req.Recipients) == 0 {
		s.sendError(w, http.StatusBadRequest, "at least one recipient is required")
		return
	}

	tokens := make([]models.TokenConfig, 0, len(req.Tokens))
	for i, t := range req.Tokens {
		if msg := validateToken(&t); msg != "" {
			s.sendError(w, http.StatusBadRequest, "token "+strconv.Itoa(i)+": "+msg)
			return
		}
		tokens = append(tokens, models.TokenConfig{
			CurrencyCode:       t.CurrencyCode,
			IssuerAddress:      t.IssuerAddress,
			DistributionMethod: t.DistributionMethod,
			Amount:             t.Amount,
			MinAmount:          t.MinAmount,
			MaxAmount:          t.MaxAmount,
			BalancePercent:     t.BalancePercent,
			SourceCurrency:     t.SourceCurrency,
			SourceIssuer:       t.SourceIssuer,
		})
	}

	campaign := &models.Campaign{
		WalletAddress:   s.cfg.Wallet.Address,
		Name:            req.Name,
		IntervalSeconds: req.IntervalSeconds,
	}

	if err := s.campaigns.CreateWithSnapshot(campaign, tokens, req.Recipients); err != nil {
		s.logger.Error("failed to create campaign", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	s.logs.Info(campaign.ID, "campaign created", map[string]any{
		"recipients": campaign.TotalRecipients,
		"tokens":     len(tokens),
	})

	s.sendJSON(w, http.StatusCreated, campaign)
}

// validateToken checks the method-specific parameters of a token config
func validateToken(t *TokenConfigRequest) string {
	if t.CurrencyCode == "" {
		return "currency_code is required"
	}
	if t.CurrencyCode != "XRP" && t.IssuerAddress == "" {
		return "issuer_address is required for issued tokens"
	}

	switch t.DistributionMethod {
	case models.MethodFixed:
		if t.Amount <= 0 {
			return "amount must be positive"
		}
	case models.MethodRandomRange:
		if t.MinAmount < 0 || t.MaxAmount <= 0 || t.MaxAmount < t.MinAmount {
			return "min_amount/max_amount range is invalid"
		}
	case models.MethodWalletBalancePct, models.MethodXRPBalancePct:
		if t.BalancePercent <= 0 {
			return "balance_percent must be positive"
		}
	case models.MethodTokenBalanceRatio:
		if t.SourceCurrency == "" {
			return "source_currency is required"
		}
		if t.SourceCurrency != "XRP" && t.SourceIssuer == "" {
			return "source_issuer is required"
		}
	default:
		return "unknown distribution_method"
	}

	return ""
}

// handleCampaignList handles GET /api/v1/campaigns
func (s *Server) handleCampaignList(w http.ResponseWriter, r *http.Request) {
	filter := models.CampaignListFilter{
		WalletAddress: r.URL.Query().Get("wallet_address"),
		Status:        r.URL.Query().Get("status"),
		Limit:         queryInt(r, "limit", 50),
		Offset:        queryInt(r, "offset", 0),
	}

	campaigns, total, err := s.campaigns.List(filter)
	if err != nil {
		s.logger.Error("failed to list campaigns", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns, "total": total})
}

// handleCampaignGet handles GET /api/v1/campaigns/{id}
func (s *Server) handleCampaignGet(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}

	tokens, err := s.campaigns.GetTokenConfigs(campaign.ID)
	if err != nil {
		s.logger.Error("failed to load token configs", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to load token configs")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"campaign": campaign, "tokens": tokens})
}

// handleCampaignDelete handles DELETE /api/v1/campaigns/{id}
func (s *Server) handleCampaignDelete(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}

	if s.engine.IsRunning(campaign.ID) {
		s.sendError(w, http.StatusConflict, "campaign is running")
		return
	}

	if err := s.campaigns.Delete(campaign.ID); err != nil {
		s.logger.Error("failed to delete campaign", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to delete campaign")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleCampaignStart handles POST /api/v1/campaigns/{id}/start
func (s *Server) handleCampaignStart(w http.ResponseWriter, r *http.Request) {
	s.engineCommand(w, r, func(id string) error {
		return s.engine.Start(r.Context(), id)
	})
}

// handleCampaignPause handles POST /api/v1/campaigns/{id}/pause
func (s *Server) handleCampaignPause(w http.ResponseWriter, r *http.Request) {
	s.engineCommand(w, r, s.engine.Pause)
}

// handleCampaignResume handles POST /api/v1/campaigns/{id}/resume
func (s *Server) handleCampaignResume(w http.ResponseWriter, r *http.Request) {
	s.engineCommand(w, r, func(id string) error {
		return s.engine.Resume(r.Context(), id)
	})
}

// handleCampaignStop handles POST /api/v1/campaigns/{id}/stop
func (s *Server) handleCampaignStop(w http.ResponseWriter, r *http.Request) {
	s.engineCommand(w, r, s.engine.Stop)
}

func (s *Server) engineCommand(w http.ResponseWriter, r *http.Request, cmd func(id string) error) {
	campaign, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}

	if err := cmd(campaign.ID); err != nil {
		switch {
		case errors.Is(err, engine.ErrAlreadyRunning),
			errors.Is(err, engine.ErrEngineBusy),
			errors.Is(err, engine.ErrNotRunning),
			errors.Is(err, engine.ErrNotStartable):
			s.sendError(w, http.StatusConflict, err.Error())
		default:
			s.sendError(w, http.StatusUnprocessableEntity, err.Error())
		}
		return
	}

	s.sendJSON(w, http.StatusAccepted, map[string]string{"id": campaign.ID, "status": "accepted"})
}

// handleRecipientList handles GET /api/v1/campaigns/{id}/recipients
func (s *Server) handleRecipientList(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}

	recipients, total, err := s.recipients.List(models.RecipientFilter{
		CampaignID: campaign.ID,
		Status:     r.URL.Query().Get("status"),
		Limit:      queryInt(r, "limit", 100),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		s.logger.Error("failed to list recipients", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list recipients")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"recipients": recipients, "total": total})
}

// handleTransactionList handles GET /api/v1/campaigns/{id}/transactions
func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}

	txs, total, err := s.transactions.List(models.TransactionFilter{
		CampaignID:  campaign.ID,
		RecipientID: r.URL.Query().Get("recipient_id"),
		Status:      r.URL.Query().Get("status"),
		Limit:       queryInt(r, "limit", 100),
		Offset:      queryInt(r, "offset", 0),
	})
	if err != nil {
		s.logger.Error("failed to list transactions", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"transactions": txs, "total": total})
}

// handleLogList handles GET /api/v1/campaigns/{id}/logs
func (s *Server) handleLogList(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}

	entries, total, err := s.logs.List(models.LogFilter{
		CampaignID: campaign.ID,
		Type:       r.URL.Query().Get("type"),
		Limit:      queryInt(r, "limit", 200),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		s.logger.Error("failed to list logs", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"logs": entries, "total": total})
}

// handleAnalytics handles GET /api/v1/campaigns/{id}/analytics
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	campaign, ok := s.loadCampaign(w, r)
	if !ok {
		return
	}

	summary, err := s.analytics.Summarize(campaign.ID)
	if err != nil {
		s.logger.Error("failed to summarize campaign", "campaign_id", campaign.ID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to summarize campaign")
		return
	}

	s.sendJSON(w, http.StatusOK, summary)
}

// handleRecipientsParse handles POST /api/v1/recipients/parse. The body is
// CSV data; the response is the deduplicated address list for a subsequent
// campaign create call.
func (s *Server) handleRecipientsParse(w http.ResponseWriter, r *http.Request) {
	addresses, err := repository.ParseCSV(r.Body)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.sendJSON(w, http.StatusOK, map[string]any{"addresses": addresses, "count": len(addresses)})
}

// FeeEstimateRequest is the request body for POST /api/v1/estimate
type FeeEstimateRequest struct {
	Recipients int `json:"recipients"`
	Tokens     int `json:"tokens"`
}

// handleFeeEstimate handles POST /api/v1/estimate: the pre-flight cost of a
// campaign at the configured flat per-payment fee.
func (s *Server) handleFeeEstimate(w http.ResponseWriter, r *http.Request) {
	var req FeeEstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Recipients <= 0 || req.Tokens <= 0 {
		s.sendError(w, http.StatusBadRequest, "recipients and tokens must be positive")
		return
	}

	total := req.Recipients * req.Tokens
	s.sendJSON(w, http.StatusOK, map[string]any{
		"total_transactions": total,
		"per_tx_fee_xrp":     s.cfg.Ledger.FeePerTxXRP,
		"total_fee_xrp":      float64(total) * s.cfg.Ledger.FeePerTxXRP,
	})
}

// loadCampaign resolves the {id} URL parameter, writing a 404 on miss
func (s *Server) loadCampaign(w http.ResponseWriter, r *http.Request) (*models.Campaign, bool) {
	id := chi.URLParam(r, "id")
	campaign, err := s.campaigns.GetByID(id)
	if err != nil {
		s.logger.Error("failed to load campaign", "campaign_id", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to load campaign")
		return nil, false
	}
	if campaign == nil {
		s.sendError(w, http.StatusNotFound, "campaign not found")
		return nil, false
	}
	return campaign, true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
