package models

import "time"

// TransactionEvent is the ingest payload: one observed transaction linking a
// user to the device, network address, and merchant it was made from/to.
type TransactionEvent struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	DeviceID      string    `json:"device_id"`
	IP            string    `json:"ip"`
	MerchantID    string    `json:"merchant_id"`
	CardID        string    `json:"card_id,omitempty"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
	Principal     string    `json:"-"`
}

// RuleContribution names one base-rule outcome that fed a risk score.
type RuleContribution struct {
	Rule   string  `json:"rule"`
	Amount float64 `json:"amount"`
}

// ClusterContribution names one clustering-detector boost that fed a score.
type ClusterContribution struct {
	Pattern string  `json:"pattern"`
	Amount  float64 `json:"amount"`
	NodeIDs []string `json:"node_ids"`
}

// ScoreBreakdown is the explainable decomposition of a final risk score.
type ScoreBreakdown struct {
	BaseRisk         float64               `json:"base_risk"`
	AfterPropagation float64               `json:"after_propagation"`
	AfterTimeDecay   float64               `json:"after_time_decay"`
	ClusterBoost     float64               `json:"cluster_boost"`
	Final            float64               `json:"final"`
	Rules            []RuleContribution    `json:"rules"`
	Clusters         []ClusterContribution `json:"clusters,omitempty"`
}

// Recommendation is the Explainer's decision band for a score.
type Recommendation string

const (
	RecommendApprove  Recommendation = "approve"
	RecommendReview   Recommendation = "review"
	RecommendChallenge Recommendation = "challenge"
)

// Explanation is the human-readable artifact accompanying every score.
type Explanation struct {
	Recommendation       Recommendation `json:"recommendation"`
	Reason               string         `json:"reason"`
	CalculationBreakdown ScoreBreakdown `json:"calculation_breakdown"`
}

// ClusteringInfo lists the topological patterns found around an event's
// nodes, independent of which node(s) received a boost from them.
type ClusteringInfo struct {
	Rings          []ClusterContribution `json:"rings"`
	DenseSubgraphs []ClusterContribution `json:"dense_subgraphs"`
	StarPatterns   []ClusterContribution `json:"star_patterns"`
}

// ScoreResult is the end-to-end output of scoring one transaction event —
// the ingest endpoint's response body.
type ScoreResult struct {
	TransactionID    string         `json:"transaction_id"`
	RiskScore        float64        `json:"risk_score"`
	BaseRisk         float64        `json:"base_risk"`
	ClusteringBoost  float64        `json:"clustering_boost"`
	PropagationDepth int            `json:"propagation_depth"`
	TotalLatencyMs   float64        `json:"total_latency_ms"`
	Timestamp        time.Time      `json:"timestamp"`
	Cached           bool           `json:"cached"`
	Explanation      Explanation    `json:"explanation"`
	ClusteringInfo   ClusteringInfo `json:"clustering_info"`
	DepthTruncated   bool           `json:"depth_truncated"`
}

// RingEvent is emitted for each ring the clustering detector confirms
// around a freshly-scored event; dense-subgraph and star patterns are not
// published.
type RingEvent struct {
	Pattern    string    `json:"pattern"`
	NodeIDs    []string  `json:"node_ids"`
	Boost      float64   `json:"boost"`
	DetectedAt time.Time `json:"detected_at"`
}
