// Package sink is the durable, append-only transaction store. Writes never
// block the scoring hot path: the engine hands rows to a bounded worker
// pool, which retries with backoff and dead-letters on exhaustion.
package sink

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riskmesh/riskmesh/pkg/models"
)

// Row is one persisted record: the event's input fields plus its outcome.
type Row struct {
	EventID          string
	UserID           string
	DeviceID         string
	IP               string
	MerchantID       string
	Amount           float64
	FinalRisk        float64
	PropagationDepth int
	LatencyMs        float64
	Timestamp        time.Time
}

const (
	queueCapacity = 2000
	workerCount   = 4
	maxAttempts   = 5
	baseBackoff   = 50 * time.Millisecond
)

// Store writes rows to Postgres from a fixed pool of workers draining a
// buffered channel. A full queue increments DeadLetters rather than
// blocking the caller.
type Store struct {
	pool *pgxpool.Pool
	work chan Row

	deadLetters int64
	written     int64
}

func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("sink: ping: %w", err)
	}
	s := &Store{pool: pool, work: make(chan Row, queueCapacity)}
	for i := 0; i < workerCount; i++ {
		go s.worker(i)
	}
	return s, nil
}

// InitSchema loads and executes schema.sql, creating the transactions
// table if it does not already exist.
func (s *Store) InitSchema(ctx context.Context, schemaPath string) error {
	b, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("sink: read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(b)); err != nil {
		return fmt.Errorf("sink: apply schema: %w", err)
	}
	return nil
}

// Enqueue hands a row to the worker pool. It never blocks: a full queue
// counts as a dropped write rather than backpressure on the caller.
func (s *Store) Enqueue(row Row) {
	select {
	case s.work <- row:
	default:
		atomic.AddInt64(&s.deadLetters, 1)
		log.Printf("sink: queue full, dropping row for event %s", row.EventID)
	}
}

func (s *Store) worker(id int) {
	for row := range s.work {
		if err := s.writeWithRetry(row); err != nil {
			atomic.AddInt64(&s.deadLetters, 1)
			log.Printf("sink worker %d: dead-lettering event %s after retries: %v", id, row.EventID, err)
		} else {
			atomic.AddInt64(&s.written, 1)
		}
	}
}

func (s *Store) writeWithRetry(row Row) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = s.write(ctx, row)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(baseBackoff * time.Duration(1<<attempt))
	}
	return err
}

func (s *Store) write(ctx context.Context, row Row) error {
	const q = `
		INSERT INTO transactions
			(event_id, user_id, device_id, ip, merchant_id, amount, final_risk, propagation_depth, latency_ms, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING`
	_, err := s.pool.Exec(ctx, q, row.EventID, row.UserID, row.DeviceID, row.IP, row.MerchantID,
		row.Amount, row.FinalRisk, row.PropagationDepth, row.LatencyMs, row.Timestamp)
	return err
}

// FromResult builds the durable row from an event and its score.
func FromResult(ev models.TransactionEvent, res models.ScoreResult) Row {
	return Row{
		EventID:          res.TransactionID,
		UserID:           ev.UserID,
		DeviceID:         ev.DeviceID,
		IP:               ev.IP,
		MerchantID:       ev.MerchantID,
		Amount:           ev.Amount,
		FinalRisk:        res.RiskScore,
		PropagationDepth: res.PropagationDepth,
		LatencyMs:        res.TotalLatencyMs,
		Timestamp:        res.Timestamp,
	}
}

// Stats exposes the worker pool's counters for the analytics/metrics layer.
func (s *Store) Stats() (written, deadLetters int64) {
	return atomic.LoadInt64(&s.written), atomic.LoadInt64(&s.deadLetters)
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close drains no further writes; in-flight retries finish on their own
// timeouts. Called on shutdown per the engine lifecycle design note.
func (s *Store) Close() { s.pool.Close() }
