package risk

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/retailpoint/pos-rules-engine/internal/concurrency"
	"github.com/retailpoint/pos-rules-engine/internal/models"
)

const signalWorkers = 4

// Engine scores a transaction against the fixed signal table. The score is
// advisory: every failure mode degrades to "signal not fired" and the engine
// always returns a complete assessment.
type Engine struct {
	history HistoryStore
	log     zerolog.Logger
}

func NewEngine(history HistoryStore, log zerolog.Logger) *Engine {
	return &Engine{history: history, log: log}
}

// AssessRisk evaluates all signals against the snapshot. Signals needing
// history run their lookups through the injected store; lookup errors or a
// caller-expired context turn the affected signal off rather than surfacing.
func (e *Engine) AssessRisk(ctx context.Context, snap models.CartSnapshot) models.RiskAssessment {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	total := snap.Subtotal()
	signals := signalTable()

	type outcome struct {
		fired  bool
		reason string
		recs   []string
	}
	outcomes := make([]outcome, len(signals))

	concurrency.FanOut(ctx, signalWorkers, len(signals), func(ctx context.Context, i int) {
		s := signals[i]
		fired, reason, recs, err := s.eval(ctx, snap, total, e.history)
		if err != nil {
			e.log.Warn().Err(err).Str("signal", s.name).Msg("signal lookup failed, treated as not fired")
			return
		}
		outcomes[i] = outcome{fired: fired, reason: reason, recs: recs}
	})

	assessment := models.RiskAssessment{
		Reasons:         []string{},
		Recommendations: []string{},
	}
	for i, o := range outcomes {
		if !o.fired {
			continue
		}
		assessment.Score += signals[i].weight
		assessment.Reasons = append(assessment.Reasons, o.reason)
		assessment.Recommendations = append(assessment.Recommendations, o.recs...)
	}

	assessment.Level = models.RiskLevelForScore(assessment.Score)
	assessment.Recommendations = dedupe(append(assessment.Recommendations, levelRecommendations(assessment.Level)...))
	assessment.Color = assessment.Level.Color()
	assessment.Badge = assessment.Level.Badge()
	return assessment
}

func levelRecommendations(l models.RiskLevel) []string {
	switch l {
	case models.RiskCritical:
		return []string{"Manager approval required", "Document transaction details"}
	case models.RiskHigh:
		return []string{"Supervisor review recommended", "Verify customer identity"}
	case models.RiskMedium:
		return []string{"Consider additional verification"}
	default:
		return nil
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
