package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/retailpoint/pos-rules-engine/internal/events"
	"github.com/retailpoint/pos-rules-engine/internal/models"
	"github.com/retailpoint/pos-rules-engine/internal/promo"
	"github.com/retailpoint/pos-rules-engine/internal/risk"
)

// EvaluateHandler exposes the two engines to the checkout pipeline. Each
// request gets a bounded deadline so external lookups cannot stall checkout;
// past the deadline the engines degrade per their contracts instead of
// erroring.
type EvaluateHandler struct {
	promo   *promo.Engine
	risk    *risk.Engine
	events  *events.Publisher
	timeout time.Duration
	log     zerolog.Logger
}

func NewEvaluateHandler(p *promo.Engine, r *risk.Engine, ev *events.Publisher, timeout time.Duration, log zerolog.Logger) *EvaluateHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EvaluateHandler{promo: p, risk: r, events: ev, timeout: timeout, log: log}
}

type EvaluateResponse struct {
	Promotions models.PromotionResult `json:"promotions"`
	Risk       models.RiskAssessment  `json:"risk"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeSnapshot decodes and sanitizes the cart snapshot; this is the
// validation boundary the engines rely on.
func decodeSnapshot(r *http.Request) (models.CartSnapshot, error) {
	var snap models.CartSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		return snap, err
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	return snap, models.ValidateSnapshot(snap)
}

// Evaluate handles POST /evaluate: both engines over one snapshot.
func (h *EvaluateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	snap, err := decodeSnapshot(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	promoRes, err := h.promo.ApplyPromotions(ctx, snap)
	if err != nil {
		h.log.Error().Err(err).Msg("apply promotions")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	riskRes := h.risk.AssessRisk(ctx, snap)
	h.events.PublishRisk(r.Context(), snap, riskRes)

	writeJSON(w, http.StatusOK, EvaluateResponse{Promotions: promoRes, Risk: riskRes})
}

// EvaluatePromotions handles POST /evaluate/promotions.
func (h *EvaluateHandler) EvaluatePromotions(w http.ResponseWriter, r *http.Request) {
	snap, err := decodeSnapshot(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.promo.ApplyPromotions(ctx, snap)
	if err != nil {
		h.log.Error().Err(err).Msg("apply promotions")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EvaluateRisk handles POST /evaluate/risk.
func (h *EvaluateHandler) EvaluateRisk(w http.ResponseWriter, r *http.Request) {
	snap, err := decodeSnapshot(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res := h.risk.AssessRisk(ctx, snap)
	h.events.PublishRisk(r.Context(), snap, res)
	writeJSON(w, http.StatusOK, res)
}
