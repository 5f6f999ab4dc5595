// Package classify assigns stored events to projects by applying the
// user's rules.
package classify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpggio/traceback/internal/domain/project"
)

// RuleLister returns rules in application order.
type RuleLister interface {
	List(ctx context.Context) ([]project.Rule, error)
}

// Applier assigns rule.ProjectID to every event the rule matches and
// reports how many rows changed.
type Applier interface {
	ApplyRule(ctx context.Context, rule project.Rule) (int64, error)
}

// Engine applies every rule to the event store.
type Engine struct {
	rules  RuleLister
	store  Applier
	logger *slog.Logger
}

// NewEngine creates a rule engine.
func NewEngine(rules RuleLister, store Applier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{rules: rules, store: store, logger: logger}
}

// Apply runs each rule in creation order, so a later rule overrides an
// earlier one on events both match. It returns the summed affected count.
func (e *Engine) Apply(ctx context.Context) (int64, error) {
	rules, err := e.rules.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing rules: %w", err)
	}

	var total int64
	for _, rule := range rules {
		if !rule.RuleType.Valid() {
			e.logger.Warn("skipping rule with unknown type", "rule_id", rule.ID, "rule_type", rule.RuleType)
			continue
		}
		n, err := e.store.ApplyRule(ctx, rule)
		if err != nil {
			return total, fmt.Errorf("applying rule %s: %w", rule.ID, err)
		}
		e.logger.Debug("rule applied", "rule_id", rule.ID, "rule_type", rule.RuleType, "affected", n)
		total += n
	}

	e.logger.Info("rules applied", "rules", len(rules), "affected", total)
	return total, nil
}
