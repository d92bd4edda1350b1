package service

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/movebridge/relofund/internal/escrow"
	"github.com/movebridge/relofund/internal/treasury"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps a ledger error onto an HTTP status and writes it.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

// statusFor maps the escrow error taxonomy to HTTP status codes:
// not-found 404, missing capability 403, invalid input 400, state
// conflicts and ineligibility 409, rejected proof 422, everything
// else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, escrow.ErrFundNotFound),
		errors.Is(err, escrow.ErrMilestoneNotFound),
		errors.Is(err, escrow.ErrRefundNotFound),
		errors.Is(err, escrow.ErrContributionNotFound):
		return http.StatusNotFound
	case errors.Is(err, escrow.ErrUnauthorized),
		errors.Is(err, escrow.ErrNoContribution):
		return http.StatusForbidden
	case errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrInvalidPercent),
		errors.Is(err, escrow.ErrDonorCapacityExceeded),
		errors.Is(err, escrow.ErrCapacityExceeded),
		errors.Is(err, escrow.ErrAmountOverflow),
		errors.Is(err, escrow.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, escrow.ErrWrongStatus),
		errors.Is(err, escrow.ErrMilestonePaid),
		errors.Is(err, escrow.ErrFundExists),
		errors.Is(err, escrow.ErrRefundExists),
		errors.Is(err, escrow.ErrWithdrawalNotAllowed),
		errors.Is(err, escrow.ErrOracleConfigured),
		errors.Is(err, escrow.ErrOracleNotVerified),
		errors.Is(err, escrow.ErrRefundIneligible),
		errors.Is(err, escrow.ErrOverdraft),
		errors.Is(err, treasury.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, escrow.ErrProofRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fundID parses the {id} path segment.
func fundID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
