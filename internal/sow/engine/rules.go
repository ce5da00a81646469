// internal/sow/engine/rules.go
package engine

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

type Criterion string

const (
	CriterionWindSpeed   Criterion = "wind-speed"
	CriterionHVHZ        Criterion = "hvhz"
	CriterionProjectType Criterion = "project-type"
	CriterionRoofArea    Criterion = "roof-area"
	CriterionComplexity  Criterion = "complexity"
	CriterionFeature     Criterion = "feature"
)

var criterionValues = map[Criterion][]string{
	CriterionWindSpeed:   {"low", "moderate", "high"},
	CriterionHVHZ:        {"required", "not-required"},
	CriterionProjectType: {string(ProjectTearoff), string(ProjectOverlay), string(ProjectNewConstruction), string(ProjectRepair)},
	CriterionRoofArea:    {"small", "medium", "large", "extra-large"},
	CriterionComplexity:  {"none", "moderate", "high"},
	CriterionFeature:     {"rooftop-equipment", "energy-compliance", "high-warranty"},
}

// Confidence adjustment conditions understood by the calculator.
const (
	ConditionHVHZTemplateMatch      = "hvhz-template-match"
	ConditionHVHZTemplateMissing    = "hvhz-template-missing"
	ConditionHighWindBasicTemplate  = "high-wind-basic-template"
	ConditionLargeRoofBasicTemplate = "large-roof-basic-template"
	ConditionEquipmentTemplateMatch = "equipment-template-match"
	ConditionEnergyTemplateMatch    = "energy-template-match"
)

var knownConditions = map[string]bool{
	ConditionHVHZTemplateMatch:      true,
	ConditionHVHZTemplateMissing:    true,
	ConditionHighWindBasicTemplate:  true,
	ConditionLargeRoofBasicTemplate: true,
	ConditionEquipmentTemplateMatch: true,
	ConditionEnergyTemplateMatch:    true,
}

// RuleSet is the versioned weight table driving scoring and confidence.
type RuleSet struct {
	Version    string           `yaml:"version"`
	Scoring    []ScoringRule    `yaml:"scoring"`
	Confidence ConfidencePolicy `yaml:"confidence"`
}

// ScoringRule maps one criterion value to per-template point deltas.
type ScoringRule struct {
	Criterion Criterion      `yaml:"criterion"`
	Value     string         `yaml:"value"`
	Reason    string         `yaml:"reason"`
	Points    map[string]int `yaml:"points"`
}

type ConfidencePolicy struct {
	MaxBonus    int                    `yaml:"maxBonus"`
	MaxPenalty  int                    `yaml:"maxPenalty"`
	Adjustments []ConfidenceAdjustment `yaml:"adjustments"`
}

type ConfidenceAdjustment struct {
	Condition string `yaml:"condition"`
	Delta     int    `yaml:"delta"`
}

type criterionKey struct {
	criterion Criterion
	value     string
}

func (r ScoringRule) key() criterionKey {
	return criterionKey{criterion: r.Criterion, value: r.Value}
}

// DefaultRuleSet parses the embedded weight table.
func DefaultRuleSet() (*RuleSet, error) {
	return ParseRuleSet(defaultRulesYAML)
}

// ParseRuleSet decodes and structurally checks a YAML rule set. Unknown keys
// are rejected. Template IDs are checked against the catalog later, in New.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse rule set: %w", err)
	}
	if err := rs.check(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadRuleSet reads and checks a rule set from a YAML file.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set %s: %w", path, err)
	}
	return ParseRuleSet(data)
}

func (rs *RuleSet) check() error {
	if rs.Version == "" {
		return invariantf("rule set has no version")
	}
	seen := make(map[criterionKey]bool, len(rs.Scoring))
	for _, r := range rs.Scoring {
		values, ok := criterionValues[r.Criterion]
		if !ok {
			return invariantf("unknown scoring criterion %q", r.Criterion)
		}
		if !containsString(values, r.Value) {
			return invariantf("unknown value %q for criterion %s", r.Value, r.Criterion)
		}
		if seen[r.key()] {
			return invariantf("duplicate scoring rule %s=%s", r.Criterion, r.Value)
		}
		seen[r.key()] = true
		if r.Reason == "" {
			return invariantf("scoring rule %s=%s has no reason", r.Criterion, r.Value)
		}
		// A bracket that awards nothing must say so with "points: {}".
		if r.Points == nil {
			return invariantf("scoring rule %s=%s has no points", r.Criterion, r.Value)
		}
	}
	if rs.Confidence.MaxBonus < 0 || rs.Confidence.MaxPenalty < 0 {
		return invariantf("confidence bounds must be non-negative")
	}
	for _, a := range rs.Confidence.Adjustments {
		if !knownConditions[a.Condition] {
			return invariantf("unknown confidence condition %q", a.Condition)
		}
	}
	return nil
}

// checkTemplates verifies every point entry references a catalog template.
func (rs *RuleSet) checkTemplates(c *Catalog) error {
	for _, r := range rs.Scoring {
		for id := range r.Points {
			if c.Position(id) < 0 {
				return invariantf("scoring rule %s=%s references unknown template %s", r.Criterion, r.Value, id)
			}
		}
	}
	return nil
}
