// internal/sow/engine/scoring.go
package engine

// Bracket boundaries shared by scoring, overrides and confidence.
const (
	windSpeedStandardMax = 120.0
	windSpeedElevatedMax = 150.0

	roofAreaSmallMax  = 5000.0
	roofAreaMediumMax = 20000.0
	roofAreaLargeMax  = 50000.0

	highWarrantyYears = 20
)

const (
	minScore = 0
	maxScore = 100
)

// Contribution is one rule's effect on one template's score.
type Contribution struct {
	Criterion Criterion
	Value     string
	Points    int
	Reason    string
}

// classify returns the criterion values a specification matches. Every
// specification matches exactly one value for each bracketed criterion and
// zero or more feature values.
func classify(specs ProjectSpecifications) map[criterionKey]bool {
	matched := make(map[criterionKey]bool, 8)
	add := func(c Criterion, v string) { matched[criterionKey{criterion: c, value: v}] = true }

	switch {
	case specs.WindSpeed <= windSpeedStandardMax:
		add(CriterionWindSpeed, "low")
	case specs.WindSpeed <= windSpeedElevatedMax:
		add(CriterionWindSpeed, "moderate")
	default:
		add(CriterionWindSpeed, "high")
	}

	if specs.HVHZRequired {
		add(CriterionHVHZ, "required")
	} else {
		add(CriterionHVHZ, "not-required")
	}

	add(CriterionProjectType, string(specs.ProjectType))

	switch {
	case specs.RoofArea < roofAreaSmallMax:
		add(CriterionRoofArea, "small")
	case specs.RoofArea <= roofAreaMediumMax:
		add(CriterionRoofArea, "medium")
	case specs.RoofArea <= roofAreaLargeMax:
		add(CriterionRoofArea, "large")
	default:
		add(CriterionRoofArea, "extra-large")
	}

	switch n := specs.ComplexityFactors.Count(); {
	case n == 0:
		add(CriterionComplexity, "none")
	case n <= 2:
		add(CriterionComplexity, "moderate")
	default:
		add(CriterionComplexity, "high")
	}

	if specs.ComplexityFactors.RooftopEquipment {
		add(CriterionFeature, "rooftop-equipment")
	}
	if specs.QualityRequirements.EnergyCompliance {
		add(CriterionFeature, "energy-compliance")
	}
	if specs.QualityRequirements.WarrantyYears >= highWarrantyYears {
		add(CriterionFeature, "high-warranty")
	}
	return matched
}

// Contributions lists, in rule-set order, every non-zero rule contribution
// for the template under the given specification.
func (e *Engine) Contributions(t TemplateDefinition, specs ProjectSpecifications) []Contribution {
	matched := classify(specs)
	var out []Contribution
	for _, r := range e.rules.Scoring {
		if !matched[r.key()] {
			continue
		}
		pts, ok := r.Points[t.ID]
		if !ok || pts == 0 {
			continue
		}
		out = append(out, Contribution{
			Criterion: r.Criterion,
			Value:     r.Value,
			Points:    pts,
			Reason:    r.Reason,
		})
	}
	return out
}

// Score sums the template's contributions and clamps to [0,100].
func (e *Engine) Score(t TemplateDefinition, specs ProjectSpecifications) int {
	total := 0
	for _, c := range e.Contributions(t, specs) {
		total += c.Points
	}
	return clamp(total, minScore, maxScore)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
