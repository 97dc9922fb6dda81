// Package analytics runs read-only aggregate queries over the durable
// transaction store. It never touches the graph.
package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Queries struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// RiskBucket is one bar of the risk-score histogram.
type RiskBucket struct {
	RangeStart float64 `json:"range_start"`
	RangeEnd   float64 `json:"range_end"`
	Count      int64   `json:"count"`
}

// RiskHistogram buckets scores into ten equal-width bins over [0,1].
func (q *Queries) RiskHistogram(ctx context.Context) ([]RiskBucket, error) {
	const query = `
		SELECT width_bucket(final_risk, 0, 1, 10) AS bucket, count(*)
		FROM transactions
		GROUP BY bucket
		ORDER BY bucket`
	rows, err := q.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("analytics: risk histogram: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var bucket int
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, err
		}
		// width_bucket puts a score of exactly 1.0 in bucket 11; fold it
		// into the last bin so the histogram covers the closed range.
		if bucket > 10 {
			bucket = 10
		}
		counts[bucket] += count
	}
	buckets := make([]RiskBucket, 10)
	for i := range buckets {
		start := float64(i) / 10
		buckets[i] = RiskBucket{RangeStart: start, RangeEnd: start + 0.1, Count: counts[i+1]}
	}
	return buckets, nil
}

// TopRiskyUser is one row in the top-risky-users report.
type TopRiskyUser struct {
	UserID   string  `json:"user_id"`
	MaxRisk  float64 `json:"max_risk"`
	AvgRisk  float64 `json:"avg_risk"`
	TxnCount int64   `json:"txn_count"`
}

func (q *Queries) TopRiskyUsers(ctx context.Context, limit int) ([]TopRiskyUser, error) {
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	const query = `
		SELECT user_id, max(final_risk), avg(final_risk), count(*)
		FROM transactions
		GROUP BY user_id
		ORDER BY max(final_risk) DESC
		LIMIT $1`
	rows, err := q.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: top risky users: %w", err)
	}
	defer rows.Close()

	var out []TopRiskyUser
	for rows.Next() {
		var u TopRiskyUser
		if err := rows.Scan(&u.UserID, &u.MaxRisk, &u.AvgRisk, &u.TxnCount); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// UserProfile is the per-user aggregate used in investigation workflows.
type UserProfile struct {
	UserID         string  `json:"user_id"`
	TxnCount       int64   `json:"txn_count"`
	TotalVolume    float64 `json:"total_volume"`
	DistinctDevices int64  `json:"distinct_devices"`
	DistinctIPs    int64   `json:"distinct_ips"`
	FlaggedCount   int64   `json:"flagged_count"`
}

// FlaggedThreshold mirrors the glossary's "flagged" definition.
const FlaggedThreshold = 0.6

func (q *Queries) UserProfile(ctx context.Context, userID string) (UserProfile, error) {
	const query = `
		SELECT
			count(*),
			coalesce(sum(amount), 0),
			count(DISTINCT device_id),
			count(DISTINCT ip),
			count(*) FILTER (WHERE final_risk >= $2)
		FROM transactions
		WHERE user_id = $1`
	p := UserProfile{UserID: userID}
	err := q.pool.QueryRow(ctx, query, userID, FlaggedThreshold).Scan(
		&p.TxnCount, &p.TotalVolume, &p.DistinctDevices, &p.DistinctIPs, &p.FlaggedCount)
	if err != nil {
		return UserProfile{}, fmt.Errorf("analytics: user profile: %w", err)
	}
	return p, nil
}

// PerformanceSummary is the rolling operational-metrics report.
type PerformanceSummary struct {
	Count               int64   `json:"count"`
	FlagRate            float64 `json:"flag_rate"`
	AvgLatencyMs        float64 `json:"avg_latency_ms"`
	AvgPropagationDepth float64 `json:"avg_propagation_depth"`
}

func (q *Queries) PerformanceSummary(ctx context.Context) (PerformanceSummary, error) {
	const query = `
		SELECT
			count(*),
			coalesce(avg(CASE WHEN final_risk >= $1 THEN 1.0 ELSE 0.0 END), 0),
			coalesce(avg(latency_ms), 0),
			coalesce(avg(propagation_depth), 0)
		FROM transactions`
	var s PerformanceSummary
	err := q.pool.QueryRow(ctx, query, FlaggedThreshold).Scan(&s.Count, &s.FlagRate, &s.AvgLatencyMs, &s.AvgPropagationDepth)
	if err != nil {
		return PerformanceSummary{}, fmt.Errorf("analytics: performance summary: %w", err)
	}
	return s, nil
}
