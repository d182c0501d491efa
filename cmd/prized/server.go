package main

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"prizepool/config"
	"prizepool/native/draw"
	"prizepool/native/emergency"
	"prizepool/native/pool"
	"prizepool/native/treasury"
	"prizepool/observability/metrics"
)

type server struct {
	registry *pool.Registry
}

func newRouter(registry *pool.Registry, cfg *config.Config) http.Handler {
	s := &server{registry: registry}
	limiter := rate.NewLimiter(rate.Limit(cfg.AdminRatePerSecond), cfg.AdminRateBurst)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/pools", func(r chi.Router) {
		r.Get("/", s.listPools)
		r.Route("/{poolID}", func(r chi.Router) {
			r.Get("/stats", s.poolStats)
			r.Get("/draw", s.drawStatus)
			r.Get("/accounts/{receiver}", s.accountBalance)
			r.Get("/accounts/{receiver}/preview", s.previewDeposit)
			r.Get("/treasury/history", s.treasuryHistory)

			r.Post("/deposit", s.deposit)
			r.Post("/withdraw", s.withdraw)
			r.Post("/claim", s.claimInterest)
			r.Post("/claim-aux", s.claimAuxPrize)
			r.Post("/rewards/process", s.processRewards)
			r.Post("/draw/start", s.startDraw)
			r.Post("/draw/complete", s.completeDraw)

			r.Route("/admin", func(r chi.Router) {
				r.Use(rateLimit(limiter))
				r.Post("/pause", s.adminPause)
				r.Post("/resume", s.adminResume)
				r.Post("/partial", s.adminPartial)
				r.Post("/emergency/trigger", s.adminTrigger)
				r.Post("/emergency/resolve", s.adminResolve)
				r.Post("/interval", s.adminInterval)
				r.Post("/fund", s.adminFund)
				r.Post("/bonus", s.adminBonus)
				r.Post("/treasury/withdraw", s.adminTreasuryWithdraw)
			})
		})
	})
	return r
}

func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, errors.New("admin rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (*pool.Engine, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "poolID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid pool id"))
		return nil, false
	}
	engine, err := s.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return engine, true
}

func (s *server) listPools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pools": s.registry.IDs()})
}

func (s *server) poolStats(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	stats := engine.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"poolId":           stats.PoolID,
		"asset":            stats.Asset,
		"totalDeposited":   stats.TotalDeposited.String(),
		"totalStaked":      stats.TotalStaked.String(),
		"buffer":           stats.Buffer.String(),
		"prizePool":        stats.PrizePool.String(),
		"treasuryBalance":  stats.TreasuryBalance.String(),
		"totalDistributed": stats.TotalDistributed.String(),
		"accounts":         stats.Accounts,
		"round":            stats.Round,
		"emergencyState":   stats.EmergencyState,
	})
}

func (s *server) drawStatus(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	status := engine.DrawStatus()
	body := map[string]any{
		"state":      status.State.String(),
		"round":      status.Round,
		"canDrawNow": status.CanDrawNow,
		"nextDrawAt": status.NextDrawAt.UTC().Format(time.RFC3339),
	}
	if status.PendingReceipt != "" {
		body["pendingReceipt"] = status.PendingReceipt
		body["prizeSnapshot"] = status.PrizeSnapshot.String()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) accountBalance(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	balance, err := engine.AccountBalance(chi.URLParam(r, "receiver"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deposit":            balance.Deposit.String(),
		"pendingInterest":    balance.PendingInterest.String(),
		"bonusWeight":        balance.BonusWeight.String(),
		"totalEarnedSavings": balance.TotalEarnedSavings.String(),
		"totalEarnedPrizes":  balance.TotalEarnedPrizes.String(),
		"pendingAuxPrizes":   balance.PendingAuxPrizes,
	})
}

func (s *server) previewDeposit(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	amount, err := parseAmount(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	projected, err := engine.PreviewDeposit(chi.URLParam(r, "receiver"), amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"projectedBalance": projected.String()})
}

func (s *server) treasuryHistory(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	records := engine.TreasuryHistory()
	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		out = append(out, map[string]any{
			"id":        record.ID,
			"timestamp": record.Timestamp.UTC().Format(time.RFC3339),
			"actor":     record.Actor,
			"purpose":   record.Purpose,
			"amount":    record.Amount.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

type moveRequest struct {
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

func (s *server) deposit(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := engine.Deposit(req.Receiver, amount); err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.Pool().ObserveDeposit(engine.ID())
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *server) withdraw(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := engine.Withdraw(req.Receiver, amount); err != nil {
		if errors.Is(err, pool.ErrConnectorShortfall) {
			metrics.Pool().ObserveWithdrawalFailure(engine.ID())
		}
		writeDomainError(w, err)
		return
	}
	metrics.Pool().ObserveWithdrawal(engine.ID())
	writeJSON(w, http.StatusOK, map[string]string{"status": "settled"})
}

func (s *server) claimInterest(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	claimed, err := engine.ClaimInterest(req.Receiver)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"claimed": claimed.String()})
}

func (s *server) claimAuxPrize(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Receiver string `json:"receiver"`
		Index    int    `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := engine.ClaimAuxPrize(req.Receiver, req.Index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"prizeId": id})
}

func (s *server) processRewards(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	report, err := engine.ProcessRewards()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	metrics.Pool().ObserveRewardsRound(engine.ID())
	metrics.Pool().AddRoundingDust(engine.ID(), bigFloat(report.Dust))
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    report.Total.String(),
		"savings":  report.Savings.String(),
		"lottery":  report.Lottery.String(),
		"treasury": report.Treasury.String(),
		"dust":     report.Dust.String(),
		"skipped":  report.Skipped,
	})
}

func (s *server) startDraw(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	receipt, err := engine.StartDraw()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"receiptId": receipt.ID,
		"round":     receipt.Round,
		"prize":     receipt.PrizeAmount.String(),
		"entrants":  len(receipt.Stakes),
	})
}

func (s *server) completeDraw(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	outcome, err := engine.CompleteDraw()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	result := "awarded"
	if outcome.RolledOver {
		result = "rolled_over"
	}
	metrics.Pool().ObserveDrawCompleted(engine.ID(), result)
	winners := make([]map[string]any, 0, len(outcome.Winners))
	for _, winner := range outcome.Winners {
		winners = append(winners, map[string]any{
			"receiver":    winner.Receiver,
			"amount":      winner.Amount.String(),
			"auxPrizeIds": winner.AuxPrizeIDs,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcome":      result,
		"totalAwarded": outcome.TotalAwarded.String(),
		"winners":      winners,
	})
}

func actor(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Actor"))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (s *server) adminPause(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := engine.Pause(actor(r), req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "paused"})
}

func (s *server) adminResume(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := engine.Resume(actor(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "normal"})
}

func (s *server) adminPartial(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := engine.SetPartialMode(actor(r), req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "partial"})
}

func (s *server) adminTrigger(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := engine.TriggerEmergency(actor(r), req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "emergency"})
}

func (s *server) adminResolve(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := engine.ResolveEmergency(actor(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": "normal"})
}

func (s *server) adminInterval(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Seconds uint64 `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := engine.SetDrawInterval(actor(r), time.Duration(req.Seconds)*time.Second); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"seconds": req.Seconds})
}

func (s *server) adminFund(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Destination string `json:"destination"`
		Amount      string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := engine.FundDirect(actor(r), treasury.Destination(req.Destination), amount); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "funded"})
}

func (s *server) adminBonus(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	weight, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := engine.SetBonusWeight(actor(r), req.Receiver, weight); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *server) adminTreasuryWithdraw(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount  string `json:"amount"`
		Purpose string `json:"purpose"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := engine.WithdrawTreasury(actor(r), amount, req.Purpose)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"recordId": record.ID})
}

func parseAmount(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("amount required")
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.New("amount must be a base-10 integer of base units")
	}
	return amount, nil
}

// writeDomainError maps engine errors onto HTTP statuses: permission
// problems are 403, state and policy violations 409, unknown entities 404,
// and validation problems 400.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pool.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, pool.ErrUnknownAccount), errors.Is(err, pool.ErrPoolNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, pool.ErrInvalidAmount), errors.Is(err, pool.ErrBelowMinimum), errors.Is(err, pool.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, pool.ErrInsufficientFunds), errors.Is(err, pool.ErrNoPendingClaim),
		errors.Is(err, pool.ErrSnapshotInProgress), errors.Is(err, pool.ErrNoSnapshot):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, draw.ErrDrawPending), errors.Is(err, draw.ErrNoDrawPending),
		errors.Is(err, draw.ErrIntervalNotElapsed), errors.Is(err, draw.ErrEmptyPrizePool),
		errors.Is(err, draw.ErrRandomnessPending),
		errors.Is(err, emergency.ErrPaused), errors.Is(err, emergency.ErrDepositsBlocked),
		errors.Is(err, emergency.ErrDrawsBlocked), errors.Is(err, emergency.ErrDepositCapExceeded),
		errors.Is(err, treasury.ErrCapExceeded), errors.Is(err, pool.ErrConnectorShortfall):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
