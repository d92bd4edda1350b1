// Package service exposes the escrow ledger over an HTTP/JSON API.
package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/movebridge/relofund/internal/auth"
	"github.com/movebridge/relofund/internal/escrow"
	"github.com/movebridge/relofund/internal/middleware"
	"github.com/movebridge/relofund/internal/models"
	"github.com/movebridge/relofund/internal/treasury"
)

// EscrowService is the HTTP surface over the ledger. Every mutating
// endpoint requires a bearer token; the token's account ID is the
// caller identity the ledger authorizes against.
type EscrowService struct {
	ledger   *escrow.Ledger
	treasury *treasury.Treasury
}

// NewEscrowService creates the escrow HTTP service.
func NewEscrowService(ledger *escrow.Ledger, treasury *treasury.Treasury) *EscrowService {
	return &EscrowService{ledger: ledger, treasury: treasury}
}

// Register mounts the escrow routes on the mux.
func (s *EscrowService) Register(mux *http.ServeMux, jwtManager *auth.JWTManager) {
	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(jwtManager, h)
	}

	mux.Handle("POST /v1/funds", authed(s.initFunds))
	mux.Handle("GET /v1/funds/{id}", authed(s.getFunds))
	mux.Handle("POST /v1/funds/{id}/donations", authed(s.donate))
	mux.Handle("POST /v1/funds/{id}/releases", authed(s.releaseMilestone))
	mux.Handle("POST /v1/funds/{id}/cancel", authed(s.cancel))
	mux.Handle("PUT /v1/funds/{id}/status", authed(s.updateStatus))
	mux.Handle("GET /v1/funds/{id}/contributions/{contributor}", authed(s.getContribution))
	mux.Handle("POST /v1/funds/{id}/refunds", authed(s.requestRefund))
	mux.Handle("POST /v1/funds/{id}/refunds/claim", authed(s.claimRefund))
	mux.Handle("GET /v1/funds/{id}/refunds/{contributor}", authed(s.getRefundClaim))

	mux.Handle("POST /v1/admin/oracle", authed(s.setOracle))
	mux.Handle("POST /v1/admin/percent", authed(s.setDefaultPercent))
	mux.Handle("POST /v1/admin/withdrawals", authed(s.emergencyWithdraw))
	mux.Handle("POST /v1/admin/credits", authed(s.credit))
}

type milestoneSpec struct {
	Name    string `json:"name"`
	Percent int64  `json:"percent"`
}

type initFundsRequest struct {
	ID         int64           `json:"id"`
	Milestones []milestoneSpec `json:"milestones"`
}

func (s *EscrowService) initFunds(w http.ResponseWriter, r *http.Request) {
	var req initFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	specs := make([]escrow.MilestoneSpec, len(req.Milestones))
	for i, m := range req.Milestones {
		specs[i] = escrow.MilestoneSpec{Name: m.Name, Percent: m.Percent}
	}

	// The creator is the fund owner; initFunds enforces caller == owner.
	caller := middleware.GetAccountID(r.Context())
	id, err := s.ledger.InitFunds(r.Context(), caller, req.ID, caller, specs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type milestoneResponse struct {
	Name    string `json:"name"`
	Percent int64  `json:"percent"`
	Paid    bool   `json:"paid"`
}

type donorResponse struct {
	Contributor string `json:"contributor"`
	Amount      int64  `json:"amount"`
}

type fundResponse struct {
	ID          int64               `json:"id"`
	Owner       string              `json:"owner"`
	Status      models.Status       `json:"status"`
	TotalRaised int64               `json:"total_raised"`
	Released    int64               `json:"released"`
	Milestones  []milestoneResponse `json:"milestones"`
	Donors      []donorResponse     `json:"donors"`
	CreatedAt   int64               `json:"created_at"`
}

func (s *EscrowService) getFunds(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	fund, err := s.ledger.GetFunds(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := fundResponse{
		ID:          fund.ID,
		Owner:       fund.Owner,
		Status:      fund.Status,
		TotalRaised: fund.TotalRaised,
		Released:    fund.Released,
		CreatedAt:   fund.CreatedAt,
	}
	for _, m := range fund.Milestones {
		resp.Milestones = append(resp.Milestones, milestoneResponse{Name: m.Name, Percent: m.Percent, Paid: m.Paid})
	}
	for _, d := range fund.Donors {
		resp.Donors = append(resp.Donors, donorResponse{Contributor: d.Contributor, Amount: d.Amount})
	}
	writeJSON(w, http.StatusOK, resp)
}

type donateRequest struct {
	Amount int64 `json:"amount"`
}

func (s *EscrowService) donate(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	var req donateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	caller := middleware.GetAccountID(r.Context())
	total, err := s.ledger.Donate(r.Context(), caller, id, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"total_raised": total})
}

type releaseRequest struct {
	Milestone string `json:"milestone"`
	Proof     []byte `json:"proof"`
}

func (s *EscrowService) releaseMilestone(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	amount, err := s.ledger.ReleaseMilestone(r.Context(), id, req.Milestone, req.Proof)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"released": amount})
}

func (s *EscrowService) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	caller := middleware.GetAccountID(r.Context())
	if err := s.ledger.CancelRelocation(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

type statusRequest struct {
	Status models.Status `json:"status"`
}

func (s *EscrowService) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	caller := middleware.GetAccountID(r.Context())
	if err := s.ledger.UpdateStatus(r.Context(), caller, id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Status{"status": req.Status})
}

func (s *EscrowService) getContribution(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	balance, err := s.ledger.GetContributionBalance(r.Context(), id, r.PathValue("contributor"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

func (s *EscrowService) requestRefund(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	caller := middleware.GetAccountID(r.Context())
	amount, err := s.ledger.RequestRefund(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"amount": amount})
}

func (s *EscrowService) claimRefund(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	caller := middleware.GetAccountID(r.Context())
	if err := s.ledger.ClaimRefund(r.Context(), caller, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"claimed": true})
}

type refundClaimResponse struct {
	FundID      int64  `json:"fund_id"`
	Contributor string `json:"contributor"`
	Amount      int64  `json:"amount"`
	Claimed     bool   `json:"claimed"`
	CreatedAt   int64  `json:"created_at"`
}

func (s *EscrowService) getRefundClaim(w http.ResponseWriter, r *http.Request) {
	id, err := fundID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fund id"})
		return
	}
	claim, err := s.ledger.GetRefundClaim(r.Context(), id, r.PathValue("contributor"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refundClaimResponse{
		FundID:      claim.FundID,
		Contributor: claim.Contributor,
		Amount:      claim.Amount,
		Claimed:     claim.Claimed,
		CreatedAt:   claim.CreatedAt,
	})
}

type setOracleRequest struct {
	Address string `json:"address"`
}

func (s *EscrowService) setOracle(w http.ResponseWriter, r *http.Request) {
	var req setOracleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	caller := middleware.GetAccountID(r.Context())
	if err := s.ledger.SetOracle(caller, req.Address); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"oracle": req.Address})
}

type percentRequest struct {
	Percent int64 `json:"percent"`
}

func (s *EscrowService) setDefaultPercent(w http.ResponseWriter, r *http.Request) {
	var req percentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	caller := middleware.GetAccountID(r.Context())
	if err := s.ledger.SetDefaultPercent(caller, req.Percent); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"percent": req.Percent})
}

type withdrawRequest struct {
	FundID int64 `json:"fund_id"`
	Amount int64 `json:"amount"`
}

func (s *EscrowService) emergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	caller := middleware.GetAccountID(r.Context())
	amount, err := s.ledger.EmergencyWithdraw(r.Context(), caller, req.FundID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"withdrawn": amount})
}

type creditRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// credit seeds a treasury account. Admin-only faucet for operators and
// integration environments; it mints rather than moves.
func (s *EscrowService) credit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	caller := middleware.GetAccountID(r.Context())
	if !s.ledger.IsAdmin(caller) {
		writeError(w, escrow.ErrUnauthorized)
		return
	}
	if req.Amount <= 0 || req.Account == "" {
		writeError(w, escrow.ErrInvalidAmount)
		return
	}
	if err := s.treasury.Credit(r.Context(), req.Account, req.Amount); err != nil {
		writeError(w, fmt.Errorf("credit: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"credited": req.Amount})
}
