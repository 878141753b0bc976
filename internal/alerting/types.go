package alerting

import (
	"time"

	"github.com/google/uuid"
)

// Comparison operators applied as `value OP threshold`.
const (
	OpGreater   = ">"
	OpLess      = "<"
	OpGreaterEq = ">="
	OpLessEq    = "<="
	OpEqual     = "="
	OpNotEqual  = "!="
)

// Alert record states.
const (
	StateTriggered = "triggered"
	StateResolved  = "resolved"
)

// AlertRule is a stored condition over a metric. Immutable during an
// evaluation pass.
type AlertRule struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Metric    string        `json:"metric"`
	Op        string        `json:"op"`
	Threshold float64       `json:"threshold"`
	Severity  string        `json:"severity"`
	Channels  []string      `json:"channels"`
	Cooldown  time.Duration `json:"cooldown"`
	Enabled   bool          `json:"enabled"`
}

// AlertRecord tracks one breach of a rule from trigger to resolution.
// Invariant: at most one triggered record is open per rule.
type AlertRecord struct {
	ID          uuid.UUID  `json:"id"`
	RuleID      uuid.UUID  `json:"rule_id"`
	RuleName    string     `json:"rule_name,omitempty"`
	State       string     `json:"state"`
	Value       float64    `json:"value"`
	Threshold   float64    `json:"threshold"`
	TriggeredAt time.Time  `json:"triggered_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// MetricSample is one recorded value of a named metric.
type MetricSample struct {
	Name       string    `json:"name"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// CheckResult summarizes one evaluation pass.
type CheckResult struct {
	CheckedRules    int           `json:"checkedRules"`
	TriggeredAlerts int           `json:"triggeredAlerts"`
	Alerts          []AlertRecord `json:"alerts"`
}

// ChannelResult records the outcome of one notification delivery attempt.
type ChannelResult struct {
	Channel string `json:"channel"`
	Err     error  `json:"-"`
}
