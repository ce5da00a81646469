// internal/sow/engine/engine.go
package engine

import (
	"fmt"
	"sort"
	"time"
)

// EngineVersion is combined with the rule-set version in result metadata.
const EngineVersion = "1.0.0"

const maxFallbacks = 2

// ScoredTemplate is a catalog entry annotated with its score for one request.
type ScoredTemplate struct {
	TemplateDefinition
	SelectionScore   int      `json:"selectionScore"`
	SelectionReasons []string `json:"selectionReasons"`
}

type SelectionMetadata struct {
	SelectionDate   time.Time `json:"selectionDate"`
	EngineVersion   string    `json:"engineVersion"`
	ConfidenceScore int       `json:"confidenceScore"`
}

// TemplateSelectionResult is the complete answer for one specification.
type TemplateSelectionResult struct {
	PrimaryTemplate   ScoredTemplate    `json:"primaryTemplate"`
	FallbackTemplates []ScoredTemplate  `json:"fallbackTemplates"`
	Customizations    Customizations    `json:"customizations"`
	ContentOverrides  ContentOverrides  `json:"contentOverrides"`
	GenerationNotes   []string          `json:"generationNotes"`
	Metadata          SelectionMetadata `json:"metadata"`
}

// Compatibility confidence labels.
const (
	CompatibilityHigh   = "high"
	CompatibilityMedium = "medium"
	CompatibilityLow    = "low"
)

// CompatibilityReport describes how well a caller-chosen template fits.
type CompatibilityReport struct {
	TemplateID      string   `json:"templateId"`
	Compatible      bool     `json:"compatible"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
	Confidence      string   `json:"confidence"`
}

// Engine selects SOW templates. It holds only immutable state and is safe for
// concurrent use.
type Engine struct {
	catalog    *Catalog
	rules      *RuleSet
	normalizer Normalizer
	now        func() time.Time
}

type Option func(*Engine)

// WithRuleSet replaces the embedded weight table.
func WithRuleSet(rs *RuleSet) Option {
	return func(e *Engine) {
		if rs != nil {
			e.rules = rs
		}
	}
}

// WithClock sets the source of metadata.selectionDate.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds the catalog and rule set and checks them against each other.
// Any error returned is an *InternalInvariantError or a rule-set parse error.
func New(opts ...Option) (*Engine, error) {
	catalog, err := NewCatalog()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.rules == nil {
		rs, err := DefaultRuleSet()
		if err != nil {
			return nil, err
		}
		e.rules = rs
	} else if err := e.rules.check(); err != nil {
		return nil, err
	}

	if err := e.rules.checkTemplates(e.catalog); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Catalog() *Catalog { return e.catalog }

// Version reports the engine and rule-set version, e.g. "1.0.0+rules.2025.1".
func (e *Engine) Version() string {
	return fmt.Sprintf("%s+rules.%s", EngineVersion, e.rules.Version)
}

// Normalize exposes the engine's normalizer.
func (e *Engine) Normalize(raw map[string]interface{}) (ProjectSpecifications, error) {
	return e.normalizer.Normalize(raw)
}

// SelectTemplateFromMap normalizes raw input and selects a template.
func (e *Engine) SelectTemplateFromMap(raw map[string]interface{}) (*TemplateSelectionResult, error) {
	specs, err := e.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return e.selectCanonical(specs), nil
}

// SelectTemplate scores every catalog template against specs and assembles
// the primary choice, fallbacks, customizations, content overrides and
// confidence. It fails only when specs do not pass normalization.
func (e *Engine) SelectTemplate(specs ProjectSpecifications) (*TemplateSelectionResult, error) {
	canonical, err := e.normalizer.Canonicalize(specs)
	if err != nil {
		return nil, err
	}
	return e.selectCanonical(canonical), nil
}

func (e *Engine) selectCanonical(specs ProjectSpecifications) *TemplateSelectionResult {
	ranked := e.rank(specs)
	primary := ranked[0]

	fallbacks := make([]ScoredTemplate, 0, maxFallbacks)
	for _, st := range ranked[1:] {
		if len(fallbacks) == maxFallbacks {
			break
		}
		if st.SelectionScore == 0 {
			break
		}
		fallbacks = append(fallbacks, st)
	}

	customizations, notes := ResolveCustomizations(primary.TemplateDefinition, specs)
	generationNotes := []string{
		fmt.Sprintf("Selected %s (%s) with score %d", primary.ID, primary.Name, primary.SelectionScore),
	}
	generationNotes = append(generationNotes, notes...)
	if len(fallbacks) == 0 {
		generationNotes = append(generationNotes, "No fallback template scored above 0")
	}

	return &TemplateSelectionResult{
		PrimaryTemplate:   primary,
		FallbackTemplates: fallbacks,
		Customizations:    customizations,
		ContentOverrides:  ResolveContentOverrides(specs),
		GenerationNotes:   generationNotes,
		Metadata: SelectionMetadata{
			SelectionDate:   e.now(),
			EngineVersion:   e.Version(),
			ConfidenceScore: e.Confidence(primary, specs),
		},
	}
}

// rank scores every template and orders them by descending score, keeping
// catalog order among equal scores.
func (e *Engine) rank(specs ProjectSpecifications) []ScoredTemplate {
	all := e.catalog.All()
	ranked := make([]ScoredTemplate, len(all))
	for i, t := range all {
		score := e.Score(t, specs)
		ranked[i] = ScoredTemplate{
			TemplateDefinition: t,
			SelectionScore:     score,
			SelectionReasons:   e.Reasons(t, specs, score),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SelectionScore > ranked[j].SelectionScore
	})
	return ranked
}

// Rank returns every template scored against specs, best first.
func (e *Engine) Rank(specs ProjectSpecifications) ([]ScoredTemplate, error) {
	canonical, err := e.normalizer.Canonicalize(specs)
	if err != nil {
		return nil, err
	}
	return e.rank(canonical), nil
}

// AvailableTemplates lists templates supporting a project type and membrane.
// Empty values match all; non-empty values are folded like normalized input.
func (e *Engine) AvailableTemplates(projectType, membrane string) []TemplateDefinition {
	var pt ProjectType
	if projectType != "" {
		parsed, ok := parseProjectType(projectType)
		if !ok {
			return nil
		}
		pt = parsed
	}
	var mt MembraneType
	if membrane != "" {
		parsed, ok := parseMembraneType(membrane)
		if !ok {
			return nil
		}
		mt = parsed
	}
	return e.catalog.Filter(pt, mt)
}

// CheckCompatibility validates a caller-chosen template against specs.
// Project-type and membrane mismatches are errors; deck mismatches,
// template restrictions and missing HVHZ coverage are warnings.
func (e *Engine) CheckCompatibility(templateID string, specs ProjectSpecifications) (*CompatibilityReport, error) {
	t, err := e.catalog.Get(templateID)
	if err != nil {
		return nil, err
	}
	canonical, err := e.normalizer.Canonicalize(specs)
	if err != nil {
		return nil, err
	}

	report := &CompatibilityReport{
		TemplateID:      t.ID,
		Errors:          []string{},
		Warnings:        []string{},
		Recommendations: []string{},
	}

	if !containsValue(t.ProjectTypes, canonical.ProjectType) {
		report.Errors = append(report.Errors,
			fmt.Sprintf("Project type mismatch: template %s does not cover %s work", t.ID, canonical.ProjectType))
	}
	if canonical.MembraneType != "" && !containsValue(t.MembraneTypes, canonical.MembraneType) {
		report.Errors = append(report.Errors,
			fmt.Sprintf("Membrane type %q not supported by template %s", canonical.MembraneType, t.ID))
	}
	if canonical.DeckType != "" && !containsValue(t.DeckTypes, canonical.DeckType) {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Deck type %q may not be optimal for template %s", canonical.DeckType, t.ID))
	}
	// Must agree with ResolveCustomizations, which adds the sections whenever
	// the template does not require them.
	if canonical.HVHZRequired && !t.Requires(SectionHVHZCompliance) {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Template %s does not require HVHZ Compliance; %s and %s sections will be added",
				t.ID, SectionHVHZCompliance, SectionSpecialInspections))
	}
	for _, r := range t.Restrictions {
		report.Warnings = append(report.Warnings, "Template restriction: "+r)
	}

	if len(report.Errors) > 0 {
		for _, alt := range e.rank(canonical) {
			if alt.ID == t.ID || !containsValue(alt.ProjectTypes, canonical.ProjectType) {
				continue
			}
			if canonical.MembraneType != "" && !containsValue(alt.MembraneTypes, canonical.MembraneType) {
				continue
			}
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Consider %s (%s), score %d", alt.ID, alt.Name, alt.SelectionScore))
			break
		}
	}

	report.Compatible = len(report.Errors) == 0
	switch {
	case len(report.Errors) > 0:
		report.Confidence = CompatibilityLow
	case len(report.Warnings) > 0:
		report.Confidence = CompatibilityMedium
	default:
		report.Confidence = CompatibilityHigh
	}
	return report, nil
}
