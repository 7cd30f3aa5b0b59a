package deriver

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/stwalsh4118/dmrb/internal/models"
)

// Thresholds are the inclusive upper bounds, in days vacant, of each turn bucket.
type Thresholds struct {
	Fresh    int `validate:"gte=0"`
	Idle     int `validate:"gtfield=Fresh"`
	Aging    int `validate:"gtfield=Idle"`
	Critical int `validate:"gtfield=Aging"`
}

// DefaultThresholds returns the 8/15/25/30 bucket bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{Fresh: 8, Idle: 15, Aging: 25, Critical: 30}
}

// Rules is the immutable classification configuration handed to a Deriver.
// Construct it with NewRules or DefaultRules; the zero value is not usable.
type Rules struct {
	lifecycle                 map[string]models.LifecycleLabel
	blockedKeywords           []string
	thresholds                Thresholds
	invertSuppliedDaysToReady bool
}

// RulesConfig is the externally supplied form of Rules.
type RulesConfig struct {
	Thresholds                Thresholds
	ReadyStatuses             []string `validate:"required,min=1,dive,required"`
	InTurnStatuses            []string `validate:"dive,required"`
	BlockedKeywords           []string `validate:"dive,required"`
	InvertSuppliedDaysToReady bool
}

// DefaultRulesConfig mirrors the status vocabulary used on the make-ready sheet.
func DefaultRulesConfig() RulesConfig {
	return RulesConfig{
		Thresholds:                DefaultThresholds(),
		ReadyStatuses:             []string{"ready"},
		InTurnStatuses:            []string{"in turn", "currently work", "started", "in progress"},
		BlockedKeywords:           []string{"hold", "blocked", "issue"},
		InvertSuppliedDaysToReady: true,
	}
}

var validate = validator.New()

// NewRules validates cfg and builds an immutable rule set. Status and keyword
// entries are trimmed and lower-cased. A status listed as both ready and
// in-turn is rejected.
func NewRules(cfg RulesConfig) (*Rules, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid deriver rules: %w", err)
	}

	lifecycle := make(map[string]models.LifecycleLabel, len(cfg.ReadyStatuses)+len(cfg.InTurnStatuses))
	for _, s := range cfg.ReadyStatuses {
		lifecycle[normalizeStatus(s)] = models.LifecycleReady
	}
	for _, s := range cfg.InTurnStatuses {
		key := normalizeStatus(s)
		if existing, ok := lifecycle[key]; ok && existing != models.LifecycleInTurn {
			return nil, fmt.Errorf("invalid deriver rules: status %q mapped to both %s and %s", key, existing, models.LifecycleInTurn)
		}
		lifecycle[key] = models.LifecycleInTurn
	}

	keywords := make([]string, 0, len(cfg.BlockedKeywords))
	for _, k := range cfg.BlockedKeywords {
		keywords = append(keywords, strings.ToLower(strings.TrimSpace(k)))
	}

	return &Rules{
		lifecycle:                 lifecycle,
		blockedKeywords:           keywords,
		thresholds:                cfg.Thresholds,
		invertSuppliedDaysToReady: cfg.InvertSuppliedDaysToReady,
	}, nil
}

// DefaultRules returns the rule set built from DefaultRulesConfig.
func DefaultRules() *Rules {
	rules, err := NewRules(DefaultRulesConfig())
	if err != nil {
		panic(err)
	}
	return rules
}

// Thresholds returns the configured bucket bounds.
func (r *Rules) Thresholds() Thresholds {
	return r.thresholds
}

// normalizeStatus folds case and inner whitespace so "In  Progress " matches "in progress".
func normalizeStatus(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
