package alerting

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// RuleConfigFile is the YAML shape of the rules bootstrap file.
type RuleConfigFile struct {
	Rules []RuleConfigItem `yaml:"rules"`
}

type RuleConfigItem struct {
	Name      string   `yaml:"name"`
	Metric    string   `yaml:"metric"`
	Op        string   `yaml:"op"`
	Threshold float64  `yaml:"threshold"`
	Severity  string   `yaml:"severity"`
	Channels  []string `yaml:"channels"`
	Cooldown  string   `yaml:"cooldown"` // e.g. "10m"
}

var validOps = map[string]bool{
	OpGreater: true, OpLess: true, OpGreaterEq: true,
	OpLessEq: true, OpEqual: true, OpNotEqual: true,
}

// ParseRulesFile reads and validates a rules bootstrap file.
func ParseRulesFile(path string) ([]*AlertRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules config: %w", err)
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules config: %w", err)
	}

	rules := make([]*AlertRule, 0, len(cfg.Rules))
	for i, item := range cfg.Rules {
		if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Metric) == "" {
			return nil, fmt.Errorf("rule %d: name and metric are required", i)
		}
		if !validOps[item.Op] {
			return nil, fmt.Errorf("rule %q: unsupported operator %q", item.Name, item.Op)
		}
		var cooldown time.Duration
		if item.Cooldown != "" {
			cooldown, err = time.ParseDuration(item.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid cooldown: %w", item.Name, err)
			}
		}
		rules = append(rules, &AlertRule{
			Name:      item.Name,
			Metric:    item.Metric,
			Op:        item.Op,
			Threshold: item.Threshold,
			Severity:  item.Severity,
			Channels:  item.Channels,
			Cooldown:  cooldown,
			Enabled:   true,
		})
	}
	return rules, nil
}

// BootstrapRules loads the configured rules file, if any, and upserts every
// rule into the store. Missing path is a no-op.
func BootstrapRules(ctx context.Context, store Store, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	rules, err := ParseRulesFile(path)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if err := store.UpsertRule(ctx, r); err != nil {
			return fmt.Errorf("bootstrap rule %q: %w", r.Name, err)
		}
		log.Info().Str("rule", r.Name).Str("metric", r.Metric).Msg("alert rule bootstrapped")
	}
	return nil
}
