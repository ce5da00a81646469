// internal/sow/engine/confidence.go
package engine

func conditionHolds(condition string, primary TemplateDefinition, specs ProjectSpecifications) bool {
	switch condition {
	case ConditionHVHZTemplateMatch:
		return specs.HVHZRequired && primary.ID == TemplateHVHZ
	case ConditionHVHZTemplateMissing:
		return specs.HVHZRequired && primary.ID != TemplateHVHZ
	case ConditionHighWindBasicTemplate:
		return specs.WindSpeed > windSpeedElevatedMax && primary.ID == TemplateBasic
	case ConditionLargeRoofBasicTemplate:
		return specs.RoofArea > roofAreaLargeMax && primary.ComplexityLevel == ComplexityBasic
	case ConditionEquipmentTemplateMatch:
		return specs.ComplexityFactors.RooftopEquipment && primary.ID == TemplateEquipment
	case ConditionEnergyTemplateMatch:
		return specs.QualityRequirements.EnergyCompliance && primary.ID == TemplateEnergy
	}
	return false
}

// Confidence adjusts the primary's raw score. The summed delta is bounded by
// the policy's MaxBonus/MaxPenalty before the result is clamped to [0,100].
func (e *Engine) Confidence(primary ScoredTemplate, specs ProjectSpecifications) int {
	policy := e.rules.Confidence
	delta := 0
	for _, a := range policy.Adjustments {
		if conditionHolds(a.Condition, primary.TemplateDefinition, specs) {
			delta += a.Delta
		}
	}
	delta = clamp(delta, -policy.MaxPenalty, policy.MaxBonus)
	return clamp(primary.SelectionScore+delta, minScore, maxScore)
}
