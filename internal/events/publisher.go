package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/retailpoint/pos-rules-engine/internal/models"
)

const publishTimeout = 2 * time.Second

// Event types on the audit topic.
const (
	TypeUsageRecorded = "promotion.usage.recorded"
	TypeRiskAssessed  = "risk.assessed"
)

type UsageRecorded struct {
	Type           string    `json:"type"`
	PromotionID    string    `json:"promotion_id"`
	CustomerID     string    `json:"customer_id,omitempty"`
	DiscountAmount string    `json:"discount_amount"`
	RecordedAt     time.Time `json:"recorded_at"`
}

type RiskAssessed struct {
	Type       string                `json:"type"`
	StoreID    string                `json:"store_id"`
	CustomerID string                `json:"customer_id,omitempty"`
	Assessment models.RiskAssessment `json:"assessment"`
	AssessedAt time.Time             `json:"assessed_at"`
}

// NewWriter builds a kafka writer for the audit topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

// Publisher emits audit events for the reporting surface. Publishing is
// fire-and-forget: a broker failure is logged and never fails the checkout
// path. A nil Publisher is valid and publishes nothing.
type Publisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

func NewPublisher(writer *kafka.Writer, log zerolog.Logger) *Publisher {
	return &Publisher{writer: writer, log: log}
}

func (p *Publisher) PublishUsage(ctx context.Context, promotionID, customerID, discount string) {
	if p == nil || p.writer == nil {
		return
	}
	p.publish(ctx, promotionID, UsageRecorded{
		Type:           TypeUsageRecorded,
		PromotionID:    promotionID,
		CustomerID:     customerID,
		DiscountAmount: discount,
		RecordedAt:     time.Now().UTC(),
	})
}

func (p *Publisher) PublishRisk(ctx context.Context, snap models.CartSnapshot, a models.RiskAssessment) {
	if p == nil || p.writer == nil {
		return
	}
	p.publish(ctx, snap.StoreID, RiskAssessed{
		Type:       TypeRiskAssessed,
		StoreID:    snap.StoreID,
		CustomerID: snap.CustomerID,
		Assessment: a,
		AssessedAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		p.log.Error().Err(err).Msg("encode audit event")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: raw}); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("audit event publish failed")
	}
}
