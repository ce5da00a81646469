// internal/sow/engine/specs.go
package engine

import "strings"

type ProjectType string

const (
	ProjectTearoff         ProjectType = "tearoff"
	ProjectOverlay         ProjectType = "overlay"
	ProjectNewConstruction ProjectType = "new-construction"
	ProjectRepair          ProjectType = "repair"
)

type MembraneType string

const (
	MembraneTPO             MembraneType = "TPO"
	MembraneTPOFleeceback   MembraneType = "TPO-Fleeceback"
	MembraneEPDM            MembraneType = "EPDM"
	MembranePVC             MembraneType = "PVC"
	MembraneModifiedBitumen MembraneType = "Modified-Bitumen"
	MembraneBuiltUp         MembraneType = "Built-Up"
)

type InsulationType string

const (
	InsulationPolyiso     InsulationType = "Polyiso"
	InsulationXPS         InsulationType = "XPS"
	InsulationEPS         InsulationType = "EPS"
	InsulationMineralWool InsulationType = "Mineral-Wool"
	InsulationNone        InsulationType = "None"
)

type DeckType string

const (
	DeckSteel                  DeckType = "Steel"
	DeckConcrete               DeckType = "Concrete"
	DeckLightweightConcrete    DeckType = "Lightweight-Concrete"
	DeckWood                   DeckType = "Wood"
	DeckGypsum                 DeckType = "Gypsum"
	DeckStructuralStandingSeam DeckType = "Structural-Standing-Seam"
)

// ProjectSpecifications is the canonical engine input. Values are expected to
// have passed through the Normalizer.
type ProjectSpecifications struct {
	ProjectType           ProjectType           `json:"projectType"`
	RoofArea              float64               `json:"roofArea"`
	WindSpeed             float64               `json:"windSpeed"`
	MembraneType          MembraneType          `json:"membraneType,omitempty"`
	InsulationType        InsulationType        `json:"insulationType,omitempty"`
	DeckType              DeckType              `json:"deckType,omitempty"`
	HVHZRequired          bool                  `json:"hvhzRequired"`
	ComplexityFactors     ComplexityFactors     `json:"complexityFactors"`
	FasteningRequirements FasteningRequirements `json:"fasteningRequirements"`
	QualityRequirements   QualityRequirements   `json:"qualityRequirements"`
}

type ComplexityFactors struct {
	MultipleRoofLevels bool `json:"multipleRoofLevels"`
	Skylights          bool `json:"skylights"`
	RooftopEquipment   bool `json:"rooftopEquipment"`
	Parapets           bool `json:"parapets"`
	CustomFlashing     bool `json:"customFlashing"`
}

// Count returns how many of the five factors are set.
func (c ComplexityFactors) Count() int {
	n := 0
	for _, f := range []bool{c.MultipleRoofLevels, c.Skylights, c.RooftopEquipment, c.Parapets, c.CustomFlashing} {
		if f {
			n++
		}
	}
	return n
}

type FasteningRequirements struct {
	UpliftRating     float64 `json:"upliftRating"`
	SpecialFasteners bool    `json:"specialFasteners"`
	FieldPattern     string  `json:"fieldPattern,omitempty"`
	PerimeterPattern string  `json:"perimeterPattern,omitempty"`
}

type QualityRequirements struct {
	WarrantyYears           int     `json:"warrantyYears"`
	EnergyCompliance        bool    `json:"energyCompliance"`
	FireRating              *string `json:"fireRating,omitempty"`
	AccessibilityCompliance bool    `json:"accessibilityCompliance"`
}

var projectTypeAliases = map[string]ProjectType{
	"tearoff":          ProjectTearoff,
	"tear-off":         ProjectTearoff,
	"replacement":      ProjectTearoff,
	"overlay":          ProjectOverlay,
	"recover":          ProjectOverlay,
	"re-cover":         ProjectOverlay,
	"new-construction": ProjectNewConstruction,
	"new":              ProjectNewConstruction,
	"repair":           ProjectRepair,
}

var membraneTypes = []MembraneType{
	MembraneTPO, MembraneTPOFleeceback, MembraneEPDM, MembranePVC, MembraneModifiedBitumen, MembraneBuiltUp,
}

var insulationTypes = []InsulationType{
	InsulationPolyiso, InsulationXPS, InsulationEPS, InsulationMineralWool, InsulationNone,
}

var deckTypes = []DeckType{
	DeckSteel, DeckConcrete, DeckLightweightConcrete, DeckWood, DeckGypsum, DeckStructuralStandingSeam,
}

// foldKey lowercases and folds spaces/underscores to hyphens so "modified bitumen",
// "Modified_Bitumen" and "MODIFIED-BITUMEN" compare equal.
func foldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return s
}

func parseProjectType(s string) (ProjectType, bool) {
	pt, ok := projectTypeAliases[foldKey(s)]
	return pt, ok
}

func parseMembraneType(s string) (MembraneType, bool) {
	return lookupFolded(s, membraneTypes)
}

func parseInsulationType(s string) (InsulationType, bool) {
	return lookupFolded(s, insulationTypes)
}

func parseDeckType(s string) (DeckType, bool) {
	return lookupFolded(s, deckTypes)
}

func lookupFolded[T ~string](s string, values []T) (T, bool) {
	key := foldKey(s)
	for _, v := range values {
		if foldKey(string(v)) == key {
			return v, true
		}
	}
	var zero T
	return zero, false
}
