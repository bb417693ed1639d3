package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/retailpoint/pos-rules-engine/internal/models"
	"github.com/retailpoint/pos-rules-engine/internal/repository"
)

func TestCommitRecordsEachPromotionIndependently(t *testing.T) {
	store := repository.NewMemoryStore()
	limited := store.AddPromotion(models.Promotion{
		StoreID:    "s1",
		Name:       "one use",
		Type:       models.PromotionFixedAmount,
		Value:      dec("5"),
		UsageLimit: 1,
		UsageCount: 1, // already consumed
		IsActive:   true,
		StartDate:  time.Now().Add(-time.Hour),
		EndDate:    time.Now().Add(time.Hour),
	}, nil)
	open := store.AddPromotion(models.Promotion{
		StoreID:   "s1",
		Name:      "open",
		Type:      models.PromotionFixedAmount,
		Value:     dec("5"),
		IsActive:  true,
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
	}, nil)

	h := NewCheckoutHandler(store, nil, zerolog.Nop())

	body, _ := json.Marshal(CommitRequest{
		CustomerID: "cust-1",
		Applied: []AppliedCommit{
			{PromotionID: open, DiscountAmount: dec("5")},
			{PromotionID: limited, DiscountAmount: dec("5")},
			{PromotionID: "ghost", DiscountAmount: dec("5")},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/checkout/commit", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Commit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Outcomes []CommitOutcome `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Outcomes) != 3 {
		t.Fatalf("outcomes=%d, expected 3", len(resp.Outcomes))
	}

	byID := make(map[string]CommitOutcome)
	for _, o := range resp.Outcomes {
		byID[o.PromotionID] = o
	}
	if !byID[open].Recorded {
		t.Fatalf("open promotion not recorded: %+v", byID[open])
	}
	if byID[limited].Recorded || byID[limited].Reason != "usage_limit_reached" {
		t.Fatalf("limited promotion outcome=%+v, expected usage_limit_reached", byID[limited])
	}
	if byID["ghost"].Recorded || byID["ghost"].Reason != "not_found" {
		t.Fatalf("ghost promotion outcome=%+v, expected not_found", byID["ghost"])
	}

	if facts := store.UsageFacts(); len(facts) != 1 || facts[0].PromotionID != open {
		t.Fatalf("usage facts=%+v, expected one fact for the open promotion", facts)
	}
}

func TestCommitRejectsEmptyRequest(t *testing.T) {
	h := NewCheckoutHandler(repository.NewMemoryStore(), nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/checkout/commit", bytes.NewReader([]byte(`{"applied":[]}`)))
	rec := httptest.NewRecorder()
	h.Commit(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, expected 400", rec.Code)
	}
}
