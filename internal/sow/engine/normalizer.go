// internal/sow/engine/normalizer.go
package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"sow-workers/internal/common/validation"
)

// Field error codes produced by Canonicalize. Schema violations carry the
// upper-cased gojsonschema error type instead.
const (
	CodeRequired        = "REQUIRED"
	CodeNotPositive     = "NOT_POSITIVE"
	CodeNegative        = "NEGATIVE"
	CodeInvalidEnum     = "INVALID_ENUM_VALUE"
	CodeNotFiniteNumber = "NOT_FINITE"
)

var specificationSchema = map[string]interface{}{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []interface{}{"projectType", "roofArea", "windSpeed"},
	"properties": map[string]interface{}{
		"projectType":    map[string]interface{}{"type": "string"},
		"roofArea":       map[string]interface{}{"type": "number", "exclusiveMinimum": 0},
		"windSpeed":      map[string]interface{}{"type": "number", "exclusiveMinimum": 0},
		"membraneType":   map[string]interface{}{"type": "string"},
		"insulationType": map[string]interface{}{"type": "string"},
		"deckType":       map[string]interface{}{"type": "string"},
		"hvhzRequired":   map[string]interface{}{"type": "boolean"},
		"complexityFactors": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"multipleRoofLevels": map[string]interface{}{"type": "boolean"},
				"skylights":          map[string]interface{}{"type": "boolean"},
				"rooftopEquipment":   map[string]interface{}{"type": "boolean"},
				"parapets":           map[string]interface{}{"type": "boolean"},
				"customFlashing":     map[string]interface{}{"type": "boolean"},
			},
		},
		"fasteningRequirements": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"upliftRating":     map[string]interface{}{"type": "number", "minimum": 0},
				"specialFasteners": map[string]interface{}{"type": "boolean"},
				"fieldPattern":     map[string]interface{}{"type": "string"},
				"perimeterPattern": map[string]interface{}{"type": "string"},
			},
		},
		"qualityRequirements": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"warrantyYears":           map[string]interface{}{"type": "integer", "minimum": 0},
				"energyCompliance":        map[string]interface{}{"type": "boolean"},
				"fireRating":              map[string]interface{}{"type": []interface{}{"string", "null"}},
				"accessibilityCompliance": map[string]interface{}{"type": "boolean"},
			},
		},
	},
}

// Normalizer turns caller input into canonical ProjectSpecifications.
type Normalizer struct{}

// Normalize validates a raw specification map (as decoded from JSON) and
// returns canonical specifications, or a ValidationError naming every
// invalid field.
func (n Normalizer) Normalize(raw map[string]interface{}) (ProjectSpecifications, error) {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	result, err := validation.ValidateDocument(specificationSchema, raw)
	if err != nil {
		return ProjectSpecifications{}, &ValidationError{Fields: []FieldError{{
			Field: "(root)", Message: err.Error(), Code: "UNREADABLE",
		}}}
	}

	fields := make([]FieldError, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, FieldError{Field: e.Field, Message: e.Message, Code: e.Code})
	}

	// Best effort: json.Unmarshal fills every field it can even when some
	// have the wrong type; those were already reported by the schema.
	var specs ProjectSpecifications
	if data, err := json.Marshal(raw); err == nil {
		_ = json.Unmarshal(data, &specs)
	}

	canonical, fieldErrs := canonicalize(specs)
	fields = mergeFieldErrors(fields, fieldErrs)
	if len(fields) > 0 {
		return ProjectSpecifications{}, &ValidationError{Fields: fields}
	}
	return canonical, nil
}

// Canonicalize applies enum folding and range checks to typed input.
func (n Normalizer) Canonicalize(specs ProjectSpecifications) (ProjectSpecifications, error) {
	canonical, fields := canonicalize(specs)
	if len(fields) > 0 {
		return ProjectSpecifications{}, &ValidationError{Fields: fields}
	}
	return canonical, nil
}

func canonicalize(specs ProjectSpecifications) (ProjectSpecifications, []FieldError) {
	var errs []FieldError
	fail := func(field, code, format string, args ...interface{}) {
		errs = append(errs, FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	out := specs

	if specs.ProjectType == "" {
		fail("projectType", CodeRequired, "project type is required")
	} else if pt, ok := parseProjectType(string(specs.ProjectType)); ok {
		out.ProjectType = pt
	} else {
		fail("projectType", CodeInvalidEnum, "unknown project type %q", specs.ProjectType)
	}

	checkPositive := func(field string, v float64) {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			fail(field, CodeNotFiniteNumber, "must be a finite number")
		case v <= 0:
			fail(field, CodeNotPositive, "must be greater than 0, got %g", v)
		}
	}
	checkPositive("roofArea", specs.RoofArea)
	checkPositive("windSpeed", specs.WindSpeed)

	if specs.MembraneType != "" {
		if v, ok := parseMembraneType(string(specs.MembraneType)); ok {
			out.MembraneType = v
		} else {
			fail("membraneType", CodeInvalidEnum, "unknown membrane type %q", specs.MembraneType)
		}
	}
	if specs.InsulationType != "" {
		if v, ok := parseInsulationType(string(specs.InsulationType)); ok {
			out.InsulationType = v
		} else {
			fail("insulationType", CodeInvalidEnum, "unknown insulation type %q", specs.InsulationType)
		}
	}
	if specs.DeckType != "" {
		if v, ok := parseDeckType(string(specs.DeckType)); ok {
			out.DeckType = v
		} else {
			fail("deckType", CodeInvalidEnum, "unknown deck type %q", specs.DeckType)
		}
	}

	uplift := specs.FasteningRequirements.UpliftRating
	if math.IsNaN(uplift) || math.IsInf(uplift, 0) {
		fail("fasteningRequirements.upliftRating", CodeNotFiniteNumber, "must be a finite number")
	} else if uplift < 0 {
		fail("fasteningRequirements.upliftRating", CodeNegative, "must be 0 or greater, got %g", uplift)
	}
	if specs.QualityRequirements.WarrantyYears < 0 {
		fail("qualityRequirements.warrantyYears", CodeNegative, "must be 0 or greater, got %d", specs.QualityRequirements.WarrantyYears)
	}

	if specs.QualityRequirements.FireRating != nil {
		fr := *specs.QualityRequirements.FireRating
		out.QualityRequirements.FireRating = &fr
	}

	return out, errs
}

// mergeFieldErrors appends extra errors for fields not already reported and
// returns the list sorted by field.
func mergeFieldErrors(base, extra []FieldError) []FieldError {
	seen := make(map[string]bool, len(base))
	for _, f := range base {
		seen[f.Field] = true
	}
	for _, f := range extra {
		if !seen[f.Field] {
			base = append(base, f)
			seen[f.Field] = true
		}
	}
	sort.SliceStable(base, func(i, j int) bool { return base[i].Field < base[j].Field })
	return base
}
