package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Evaluate applies `value op threshold`. Unknown operators never match.
func Evaluate(op string, value, threshold float64) bool {
	switch op {
	case OpGreater:
		return value > threshold
	case OpLess:
		return value < threshold
	case OpGreaterEq:
		return value >= threshold
	case OpLessEq:
		return value <= threshold
	case OpEqual:
		return value == threshold
	case OpNotEqual:
		return value != threshold
	default:
		return false
	}
}

// Evaluator compares the latest sample of each rule's metric against its
// threshold and drives the alert record lifecycle. Stateless between runs;
// the store carries all state.
type Evaluator struct {
	store    Store
	notifier *Notifier
	cache    OpenAlertCache
	now      func() time.Time
}

func NewEvaluator(store Store, notifier *Notifier, cache OpenAlertCache) *Evaluator {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Evaluator{store: store, notifier: notifier, cache: cache, now: time.Now}
}

// Run performs one evaluation pass over all enabled rules. Running it twice
// with unchanged metrics opens no additional records. Rules whose metric has
// no recorded sample are skipped. A failure on one rule does not stop the
// pass.
func (e *Evaluator) Run(ctx context.Context) (*CheckResult, error) {
	rules, err := e.store.ListEnabledRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	result := &CheckResult{Alerts: []AlertRecord{}}
	for _, rule := range rules {
		sample, err := e.store.LatestSample(ctx, rule.Metric)
		if err != nil {
			log.Error().Err(err).Str("rule", rule.Name).Str("metric", rule.Metric).Msg("metric lookup failed, skipping rule")
			continue
		}
		if sample == nil {
			log.Debug().Str("rule", rule.Name).Str("metric", rule.Metric).Msg("no sample recorded, skipping rule")
			continue
		}
		result.CheckedRules++

		if Evaluate(rule.Op, sample.Value, rule.Threshold) {
			rec, err := e.trigger(ctx, rule, sample.Value)
			if err != nil {
				log.Error().Err(err).Str("rule", rule.Name).Msg("trigger failed")
				continue
			}
			if rec != nil {
				result.TriggeredAlerts++
				result.Alerts = append(result.Alerts, *rec)
			}
		} else {
			if err := e.resolve(ctx, rule); err != nil {
				log.Error().Err(err).Str("rule", rule.Name).Msg("resolve failed")
			}
		}
	}
	evaluationRuns.Inc()
	return result, nil
}

// trigger opens a record for the rule unless one is already open or the rule
// is still inside its post-resolution cooldown. Returns nil when nothing new
// was opened.
func (e *Evaluator) trigger(ctx context.Context, rule *AlertRule, value float64) (*AlertRecord, error) {
	if rule.Cooldown > 0 {
		last, err := e.store.LastResolvedAt(ctx, rule.ID)
		if err != nil {
			return nil, err
		}
		if last != nil && e.now().Sub(*last) < rule.Cooldown {
			log.Debug().Str("rule", rule.Name).Dur("cooldown", rule.Cooldown).Msg("inside cooldown, not retriggering")
			return nil, nil
		}
	}

	rec := &AlertRecord{
		ID:          uuid.New(),
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		State:       StateTriggered,
		Value:       value,
		Threshold:   rule.Threshold,
		TriggeredAt: e.now().UTC(),
	}
	created, err := e.store.CreateOpenRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}

	alertsTriggered.Inc()
	log.Warn().Str("rule", rule.Name).Str("severity", rule.Severity).
		Float64("value", value).Float64("threshold", rule.Threshold).Msg("alert triggered")

	if err := e.cache.SetOpen(ctx, rec); err != nil {
		log.Error().Err(err).Str("rule", rule.Name).Msg("open-alert cache update failed")
	}
	if e.notifier != nil {
		e.notifier.Notify(ctx, rule, rec)
	}
	return rec, nil
}

func (e *Evaluator) resolve(ctx context.Context, rule *AlertRule) error {
	n, err := e.store.ResolveOpenRecords(ctx, rule.ID, e.now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info().Str("rule", rule.Name).Int("resolved", n).Msg("alert resolved")
		if err := e.cache.ClearOpen(ctx, rule.ID); err != nil {
			log.Error().Err(err).Str("rule", rule.Name).Msg("open-alert cache clear failed")
		}
	}
	return nil
}
