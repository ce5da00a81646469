// internal/sow/engine/catalog.go
package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ComplexityLevel int

const (
	ComplexityBasic ComplexityLevel = iota
	ComplexityIntermediate
	ComplexityAdvanced
	ComplexityExpert
)

var complexityNames = [...]string{"basic", "intermediate", "advanced", "expert"}

func (c ComplexityLevel) String() string {
	if c < ComplexityBasic || c > ComplexityExpert {
		return fmt.Sprintf("ComplexityLevel(%d)", int(c))
	}
	return complexityNames[c]
}

func (c ComplexityLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ComplexityLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range complexityNames {
		if strings.EqualFold(name, s) {
			*c = ComplexityLevel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown complexity level %q", s)
}

// Template IDs in catalog declaration order. The order is the tie-break order.
const (
	TemplateBasic         = "T1"
	TemplateTearoff       = "T2"
	TemplateHVHZ          = "T3"
	TemplateOverlay       = "T4"
	TemplateEquipment     = "T5"
	TemplateEnergy        = "T6"
	TemplateLargeComplex  = "T7"
	TemplateComprehensive = "T8"
)

const catalogSize = 8

// Section names referenced by the customization rules.
const (
	SectionHVHZCompliance         = "HVHZ Compliance"
	SectionSpecialInspections     = "Special Inspections"
	SectionEnergyAnalysis         = "Energy Analysis"
	SectionEnergyCompliance       = "Energy Compliance"
	SectionComplexDetails         = "Complex Details"
	SectionMaterialSpecifications = "Material Specifications"
)

type TemplateDefinition struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	ApplicableScenarios []string        `json:"applicableScenarios"`
	RequiredSections    []string        `json:"requiredSections"`
	OptionalSections    []string        `json:"optionalSections"`
	ComplexityLevel     ComplexityLevel `json:"complexityLevel"`
	EstimatedPages      int             `json:"estimatedPages"`
	ProjectTypes        []ProjectType   `json:"projectTypes"`
	MembraneTypes       []MembraneType  `json:"membraneTypes"`
	DeckTypes           []DeckType      `json:"deckTypes"`
	Restrictions        []string        `json:"restrictions,omitempty"`
}

func (t TemplateDefinition) Requires(section string) bool {
	return containsString(t.RequiredSections, section)
}

// clone returns a deep copy so callers cannot reach catalog-owned slices.
func (t TemplateDefinition) clone() TemplateDefinition {
	c := t
	c.ApplicableScenarios = append([]string(nil), t.ApplicableScenarios...)
	c.RequiredSections = append([]string(nil), t.RequiredSections...)
	c.OptionalSections = append([]string(nil), t.OptionalSections...)
	c.ProjectTypes = append([]ProjectType(nil), t.ProjectTypes...)
	c.MembraneTypes = append([]MembraneType(nil), t.MembraneTypes...)
	c.DeckTypes = append([]DeckType(nil), t.DeckTypes...)
	c.Restrictions = append([]string(nil), t.Restrictions...)
	return c
}

// Catalog is the immutable template registry.
type Catalog struct {
	templates []TemplateDefinition
	index     map[string]int
}

var commonSections = []string{
	"Project Overview",
	"Scope of Work",
	SectionMaterialSpecifications,
	"Installation Requirements",
	"Fastening Requirements",
	"Flashing Details",
	"Warranty",
}

func sections(extra ...string) []string {
	return append(append([]string(nil), commonSections...), extra...)
}

var allMembranes = []MembraneType{
	MembraneTPO, MembraneTPOFleeceback, MembraneEPDM, MembranePVC, MembraneModifiedBitumen, MembraneBuiltUp,
}

var singlePlyMembranes = []MembraneType{MembraneTPO, MembraneTPOFleeceback, MembraneEPDM, MembranePVC}

var allDecks = []DeckType{
	DeckSteel, DeckConcrete, DeckLightweightConcrete, DeckWood, DeckGypsum, DeckStructuralStandingSeam,
}

func defaultTemplates() []TemplateDefinition {
	return []TemplateDefinition{
		{
			ID:                  TemplateBasic,
			Name:                "Basic Commercial Roofing",
			Description:         "Streamlined scope for small, low-complexity roofs in standard wind exposure",
			ApplicableScenarios: []string{"Small roof areas", "Repairs and minor replacements", "Standard wind exposure"},
			RequiredSections:    sections(),
			OptionalSections:    []string{"Existing Conditions", "Maintenance Guidelines"},
			ComplexityLevel:     ComplexityBasic,
			EstimatedPages:      8,
			ProjectTypes:        []ProjectType{ProjectRepair, ProjectOverlay, ProjectTearoff},
			MembraneTypes:       allMembranes,
			DeckTypes:           []DeckType{DeckSteel, DeckConcrete, DeckWood},
			Restrictions:        []string{"Not intended for roofs over 50,000 sf or wind speeds above 150 mph"},
		},
		{
			ID:                  TemplateTearoff,
			Name:                "Standard Tearoff and Replacement",
			Description:         "Full removal of the existing roof system and installation of a new assembly",
			ApplicableScenarios: []string{"Complete tearoff", "Mid-size commercial roofs", "Insulation replacement"},
			RequiredSections:    sections("Tearoff Requirements", "Insulation Requirements", "Existing Conditions"),
			OptionalSections:    []string{SectionComplexDetails, "Temporary Protection", "Deck Repair"},
			ComplexityLevel:     ComplexityIntermediate,
			EstimatedPages:      14,
			ProjectTypes:        []ProjectType{ProjectTearoff},
			MembraneTypes:       allMembranes,
			DeckTypes:           []DeckType{DeckSteel, DeckConcrete, DeckLightweightConcrete, DeckWood, DeckGypsum},
		},
		{
			ID:                  TemplateHVHZ,
			Name:                "HVHZ High-Velocity Wind Zone",
			Description:         "Enhanced fastening, product approval and inspection scope for High-Velocity Hurricane Zones",
			ApplicableScenarios: []string{"High-Velocity Hurricane Zone", "Design wind speeds above 150 mph", "Notice of Acceptance products"},
			RequiredSections: sections(
				SectionHVHZCompliance,
				SectionSpecialInspections,
				"Wind Load Calculations",
				"Product Approvals",
				SectionComplexDetails,
			),
			OptionalSections: []string{"Tearoff Requirements", "Insulation Requirements", "Temporary Protection"},
			ComplexityLevel:  ComplexityExpert,
			EstimatedPages:   24,
			ProjectTypes:     []ProjectType{ProjectTearoff, ProjectNewConstruction, ProjectOverlay},
			MembraneTypes:    allMembranes,
			DeckTypes:        []DeckType{DeckSteel, DeckConcrete, DeckLightweightConcrete, DeckWood},
			Restrictions:     []string{"Requires products with current HVHZ approval"},
		},
		{
			ID:                  TemplateOverlay,
			Name:                "Recover Overlay",
			Description:         "Recover over an existing membrane with cover board and new single-ply system",
			ApplicableScenarios: []string{"Recover over existing membrane", "Sound existing insulation", "Reduced tearoff cost"},
			RequiredSections:    sections("Existing Conditions", "Moisture Survey", "Cover Board"),
			OptionalSections:    []string{SectionComplexDetails, "Fleeceback Requirements"},
			ComplexityLevel:     ComplexityIntermediate,
			EstimatedPages:      12,
			ProjectTypes:        []ProjectType{ProjectOverlay},
			MembraneTypes:       singlePlyMembranes,
			DeckTypes:           []DeckType{DeckSteel, DeckConcrete, DeckLightweightConcrete, DeckStructuralStandingSeam},
			Restrictions:        []string{"Existing roof must pass moisture survey; not for more than one existing layer"},
		},
		{
			ID:                  TemplateEquipment,
			Name:                "Rooftop Equipment Intensive",
			Description:         "Detailed curb, support and penetration scope for equipment-heavy roofs",
			ApplicableScenarios: []string{"Rooftop mechanical units", "Equipment curbs and supports", "Multiple penetrations"},
			RequiredSections:    sections("Equipment Coordination", "Curb and Penetration Details", SectionComplexDetails),
			OptionalSections:    []string{"Walkway Pads", "Temporary Protection"},
			ComplexityLevel:     ComplexityAdvanced,
			EstimatedPages:      18,
			ProjectTypes:        []ProjectType{ProjectTearoff, ProjectOverlay, ProjectRepair, ProjectNewConstruction},
			MembraneTypes:       allMembranes,
			DeckTypes:           allDecks,
		},
		{
			ID:                  TemplateEnergy,
			Name:                "Energy Efficiency Upgrade",
			Description:         "Insulation upgrade and reflective membrane scope targeting energy code compliance",
			ApplicableScenarios: []string{"Energy code compliance", "Insulation R-value upgrade", "Cool roof requirements"},
			RequiredSections:    sections(SectionEnergyAnalysis, "Insulation Requirements", "Thermal Performance"),
			OptionalSections:    []string{SectionComplexDetails, "Daylighting"},
			ComplexityLevel:     ComplexityIntermediate,
			EstimatedPages:      15,
			ProjectTypes:        []ProjectType{ProjectTearoff, ProjectOverlay, ProjectNewConstruction},
			MembraneTypes:       []MembraneType{MembraneTPO, MembraneTPOFleeceback, MembranePVC, MembraneEPDM},
			DeckTypes:           allDecks,
		},
		{
			ID:                  TemplateLargeComplex,
			Name:                "Large Commercial Complex",
			Description:         "Phased scope for large or multi-level commercial roofs",
			ApplicableScenarios: []string{"Roof areas above 50,000 sf", "Multiple roof levels", "Phased installation"},
			RequiredSections:    sections("Phasing Plan", "Insulation Requirements", SectionComplexDetails, "Quality Control"),
			OptionalSections:    []string{"Wind Load Calculations", "Temporary Protection", "Logistics"},
			ComplexityLevel:     ComplexityAdvanced,
			EstimatedPages:      22,
			ProjectTypes:        []ProjectType{ProjectTearoff, ProjectNewConstruction, ProjectOverlay},
			MembraneTypes:       allMembranes,
			DeckTypes:           allDecks,
		},
		{
			ID:                  TemplateComprehensive,
			Name:                "Comprehensive Enterprise Specification",
			Description:         "Full-scope specification covering every section for complex, long-warranty projects",
			ApplicableScenarios: []string{"High complexity", "Extended manufacturer warranties", "Portfolio-standard specifications"},
			RequiredSections: sections(
				"Phasing Plan",
				"Insulation Requirements",
				SectionComplexDetails,
				"Quality Control",
				"Wind Load Calculations",
				"Commissioning",
			),
			OptionalSections: []string{SectionHVHZCompliance, SectionEnergyAnalysis, "Logistics", "Maintenance Guidelines"},
			ComplexityLevel:  ComplexityExpert,
			EstimatedPages:   30,
			ProjectTypes:     []ProjectType{ProjectTearoff, ProjectNewConstruction},
			MembraneTypes:    allMembranes,
			DeckTypes:        allDecks,
		},
	}
}

// NewCatalog builds the default catalog and checks its invariants.
func NewCatalog() (*Catalog, error) {
	return newCatalog(defaultTemplates())
}

func newCatalog(templates []TemplateDefinition) (*Catalog, error) {
	if len(templates) != catalogSize {
		return nil, invariantf("catalog must hold %d templates, got %d", catalogSize, len(templates))
	}
	c := &Catalog{
		templates: make([]TemplateDefinition, len(templates)),
		index:     make(map[string]int, len(templates)),
	}
	for i, t := range templates {
		if t.ID == "" {
			return nil, invariantf("template at position %d has no id", i)
		}
		if _, dup := c.index[t.ID]; dup {
			return nil, invariantf("duplicate template id %s", t.ID)
		}
		if len(t.RequiredSections) == 0 {
			return nil, invariantf("template %s declares no required sections", t.ID)
		}
		c.templates[i] = t.clone()
		c.index[t.ID] = i
	}
	for _, id := range []string{TemplateBasic, TemplateHVHZ, TemplateEquipment, TemplateEnergy} {
		if _, ok := c.index[id]; !ok {
			return nil, invariantf("catalog is missing role template %s", id)
		}
	}
	return c, nil
}

// All returns the templates in declaration order.
func (c *Catalog) All() []TemplateDefinition {
	out := make([]TemplateDefinition, len(c.templates))
	for i, t := range c.templates {
		out[i] = t.clone()
	}
	return out
}

func (c *Catalog) Get(id string) (TemplateDefinition, error) {
	i, ok := c.index[id]
	if !ok {
		return TemplateDefinition{}, &NotFoundError{TemplateID: id}
	}
	return c.templates[i].clone(), nil
}

// Position returns the declaration index of id, or -1.
func (c *Catalog) Position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Filter returns templates that support the given project type and membrane.
// Empty arguments match everything.
func (c *Catalog) Filter(projectType ProjectType, membrane MembraneType) []TemplateDefinition {
	var out []TemplateDefinition
	for _, t := range c.templates {
		if projectType != "" && !containsValue(t.ProjectTypes, projectType) {
			continue
		}
		if membrane != "" && !containsValue(t.MembraneTypes, membrane) {
			continue
		}
		out = append(out, t.clone())
	}
	return out
}

func containsString(list []string, s string) bool {
	return containsValue(list, s)
}

func containsValue[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
