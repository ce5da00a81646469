// internal/sow/engine/reasoner.go
package engine

const (
	TierExcellent = "excellent match"
	TierGood      = "good match, minor adaptation"
	TierModerate  = "moderate match, customization required"
	TierLimited   = "limited match, consider alternatives"
)

// ScoreTier maps a score to its tier label.
func ScoreTier(score int) string {
	switch {
	case score >= 80:
		return TierExcellent
	case score >= 60:
		return TierGood
	case score >= 40:
		return TierModerate
	default:
		return TierLimited
	}
}

// Reasons explains a score: the tier label first, then the reason of every
// rule that added points to this template. Penalties are never listed.
func (e *Engine) Reasons(t TemplateDefinition, specs ProjectSpecifications, score int) []string {
	reasons := []string{ScoreTier(score)}
	for _, c := range e.Contributions(t, specs) {
		if c.Points > 0 {
			reasons = append(reasons, c.Reason)
		}
	}
	return reasons
}
