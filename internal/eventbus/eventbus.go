// Package eventbus publishes scored transactions and ring-detection events
// to Kafka for downstream consumers (a SIEM, a case-management queue).
// Publication is fire-and-forget: a slow or unavailable broker never blocks
// the scoring hot path.
package eventbus

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/riskmesh/riskmesh/pkg/models"
)

const (
	TopicRiskScores = "risk.scores"
	TopicRiskRings  = "risk.rings"

	publishTimeout = 500 * time.Millisecond
)

// Bus is a thin wrapper over a set of per-topic Kafka writers.
type Bus struct {
	scores *kafka.Writer
	rings  *kafka.Writer
}

func New(brokers []string) *Bus {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Compression:  kafka.Gzip,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		}
	}
	return &Bus{scores: newWriter(TopicRiskScores), rings: newWriter(TopicRiskRings)}
}

// PublishScore emits a scored transaction. Errors are logged, never
// returned — the caller already produced a response to the client.
func (b *Bus) PublishScore(res models.ScoreResult) {
	b.publish(b.scores, res.TransactionID, res)
}

// PublishRing emits a confirmed ring/cluster-detection event.
func (b *Bus) PublishRing(ev models.RingEvent) {
	key := ""
	if len(ev.NodeIDs) > 0 {
		key = ev.NodeIDs[0]
	}
	b.publish(b.rings, key, ev)
}

func (b *Bus) publish(w *kafka.Writer, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("eventbus: marshal failed: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		log.Printf("eventbus: publish to %s failed: %v", w.Topic, err)
	}
}

func (b *Bus) Close() error {
	if err := b.scores.Close(); err != nil {
		return err
	}
	return b.rings.Close()
}
