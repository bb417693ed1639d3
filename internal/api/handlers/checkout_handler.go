package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/retailpoint/pos-rules-engine/internal/events"
	"github.com/retailpoint/pos-rules-engine/internal/repository"
)

// UsageRecorder is the write side of usage accounting: one atomic increment
// plus one usage fact per call.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, promotionID, customerID string, discount decimal.Decimal) error
}

// CheckoutHandler is the commit step the checkout pipeline calls after the
// payment ledger accepts the transaction.
type CheckoutHandler struct {
	recorder UsageRecorder
	events   *events.Publisher
	log      zerolog.Logger
}

func NewCheckoutHandler(recorder UsageRecorder, ev *events.Publisher, log zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{recorder: recorder, events: ev, log: log}
}

type CommitRequest struct {
	CustomerID string          `json:"customer_id,omitempty"`
	Applied    []AppliedCommit `json:"applied"`
}

type AppliedCommit struct {
	PromotionID    string          `json:"promotion_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type CommitOutcome struct {
	PromotionID string `json:"promotion_id"`
	Recorded    bool   `json:"recorded"`
	Reason      string `json:"reason,omitempty"`
}

// Commit handles POST /checkout/commit. Each promotion is recorded
// independently; a usage-limit rejection is reported as an outcome, not an
// error, so the caller can reconcile the granted discount.
func (h *CheckoutHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if len(req.Applied) == 0 {
		writeError(w, http.StatusBadRequest, "applied is required")
		return
	}

	outcomes := make([]CommitOutcome, 0, len(req.Applied))
	for _, a := range req.Applied {
		if a.PromotionID == "" || a.DiscountAmount.IsNegative() {
			outcomes = append(outcomes, CommitOutcome{PromotionID: a.PromotionID, Reason: "invalid_entry"})
			continue
		}
		err := h.recorder.RecordUsage(r.Context(), a.PromotionID, req.CustomerID, a.DiscountAmount)
		switch {
		case err == nil:
			h.events.PublishUsage(r.Context(), a.PromotionID, req.CustomerID, a.DiscountAmount.String())
			outcomes = append(outcomes, CommitOutcome{PromotionID: a.PromotionID, Recorded: true})
		case errors.Is(err, repository.ErrUsageLimitReached):
			outcomes = append(outcomes, CommitOutcome{PromotionID: a.PromotionID, Reason: "usage_limit_reached"})
		case errors.Is(err, repository.ErrNotFound):
			outcomes = append(outcomes, CommitOutcome{PromotionID: a.PromotionID, Reason: "not_found"})
		default:
			h.log.Error().Err(err).Str("promotion_id", a.PromotionID).Msg("record usage")
			outcomes = append(outcomes, CommitOutcome{PromotionID: a.PromotionID, Reason: "internal_error"})
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"outcomes": outcomes})
}
