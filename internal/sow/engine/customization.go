// internal/sow/engine/customization.go
package engine

import "fmt"

const smallSimpleRoofMax = 2000.0

type SectionModification struct {
	Section      string `json:"section"`
	Modification string `json:"modification"`
	Reason       string `json:"reason"`
}

type Customizations struct {
	AdditionalSections []string              `json:"additionalSections"`
	RemovedSections    []string              `json:"removedSections"`
	ModifiedSections   []SectionModification `json:"modifiedSections"`
}

// ResolveCustomizations diffs the primary template's structure against the
// specification. Each rule is evaluated independently. Notes describing
// structural additions are returned alongside.
func ResolveCustomizations(primary TemplateDefinition, specs ProjectSpecifications) (Customizations, []string) {
	out := Customizations{
		AdditionalSections: []string{},
		RemovedSections:    []string{},
		ModifiedSections:   []SectionModification{},
	}
	var notes []string

	if specs.HVHZRequired && !primary.Requires(SectionHVHZCompliance) {
		out.AdditionalSections = append(out.AdditionalSections, SectionHVHZCompliance, SectionSpecialInspections)
		notes = append(notes, fmt.Sprintf("Added HVHZ compliance and special inspection sections to %s", primary.ID))
	}

	if specs.QualityRequirements.EnergyCompliance && !primary.Requires(SectionEnergyAnalysis) {
		out.AdditionalSections = append(out.AdditionalSections, SectionEnergyCompliance)
		notes = append(notes, fmt.Sprintf("Added energy compliance section to %s", primary.ID))
	}

	if primary.ComplexityLevel != ComplexityBasic &&
		specs.RoofArea < smallSimpleRoofMax &&
		specs.ComplexityFactors.Count() == 0 {
		out.RemovedSections = append(out.RemovedSections, SectionComplexDetails)
	}

	if specs.MembraneType == MembraneModifiedBitumen || specs.MembraneType == MembraneBuiltUp {
		out.ModifiedSections = append(out.ModifiedSections, SectionModification{
			Section:      SectionMaterialSpecifications,
			Modification: fmt.Sprintf("Enhanced multi-ply layering requirements for %s systems: ply count, interply adhesive and lap offsets", specs.MembraneType),
			Reason:       fmt.Sprintf("%s is a multi-ply membrane system", specs.MembraneType),
		})
	}

	return out, notes
}
