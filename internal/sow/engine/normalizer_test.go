// internal/sow/engine/normalizer_test.go
package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createValidRawSpecs() map[string]interface{} {
	return map[string]interface{}{
		"projectType":    "tearoff",
		"roofArea":       8000,
		"windSpeed":      110,
		"membraneType":   "TPO",
		"insulationType": "polyiso",
		"deckType":       "Steel",
		"hvhzRequired":   false,
		"complexityFactors": map[string]interface{}{
			"skylights": true,
		},
		"fasteningRequirements": map[string]interface{}{
			"upliftRating":     30,
			"specialFasteners": false,
		},
		"qualityRequirements": map[string]interface{}{
			"warrantyYears":    20,
			"energyCompliance": true,
			"fireRating":       "Class A",
		},
	}
}

func TestNormalize_Success(t *testing.T) {
	specs, err := Normalizer{}.Normalize(createValidRawSpecs())
	require.NoError(t, err)

	assert.Equal(t, ProjectTearoff, specs.ProjectType)
	assert.Equal(t, 8000.0, specs.RoofArea)
	assert.Equal(t, 110.0, specs.WindSpeed)
	assert.Equal(t, MembraneTPO, specs.MembraneType)
	assert.Equal(t, InsulationPolyiso, specs.InsulationType)
	assert.Equal(t, DeckSteel, specs.DeckType)
	assert.True(t, specs.ComplexityFactors.Skylights)
	assert.Equal(t, 1, specs.ComplexityFactors.Count())
	assert.Equal(t, 30.0, specs.FasteningRequirements.UpliftRating)
	assert.Equal(t, 20, specs.QualityRequirements.WarrantyYears)
	require.NotNil(t, specs.QualityRequirements.FireRating)
	assert.Equal(t, "Class A", *specs.QualityRequirements.FireRating)
}

func TestNormalize_EnumFolding(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		input    string
		validate func(t *testing.T, s ProjectSpecifications)
	}{
		{"recover alias", "projectType", "Recover", func(t *testing.T, s ProjectSpecifications) {
			assert.Equal(t, ProjectOverlay, s.ProjectType)
		}},
		{"re-cover alias", "projectType", "re-cover", func(t *testing.T, s ProjectSpecifications) {
			assert.Equal(t, ProjectOverlay, s.ProjectType)
		}},
		{"replacement alias", "projectType", "REPLACEMENT", func(t *testing.T, s ProjectSpecifications) {
			assert.Equal(t, ProjectTearoff, s.ProjectType)
		}},
		{"new construction with space", "projectType", "New Construction", func(t *testing.T, s ProjectSpecifications) {
			assert.Equal(t, ProjectNewConstruction, s.ProjectType)
		}},
		{"membrane with underscore", "membraneType", "modified_bitumen", func(t *testing.T, s ProjectSpecifications) {
			assert.Equal(t, MembraneModifiedBitumen, s.MembraneType)
		}},
		{"fleeceback spacing", "membraneType", "tpo  fleeceback", func(t *testing.T, s ProjectSpecifications) {
			assert.Equal(t, MembraneTPOFleeceback, s.MembraneType)
		}},
		{"deck lowercase", "deckType", "lightweight concrete", func(t *testing.T, s ProjectSpecifications) {
			assert.Equal(t, DeckLightweightConcrete, s.DeckType)
		}},
		{"insulation mineral wool", "insulationType", "Mineral Wool", func(t *testing.T, s ProjectSpecifications) {
			assert.Equal(t, InsulationMineralWool, s.InsulationType)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := createValidRawSpecs()
			raw[tt.field] = tt.input

			specs, err := Normalizer{}.Normalize(raw)
			require.NoError(t, err)
			tt.validate(t, specs)
		})
	}
}

func TestNormalize_OptionalEnumsMayBeOmitted(t *testing.T) {
	specs, err := Normalizer{}.Normalize(map[string]interface{}{
		"projectType": "repair",
		"roofArea":    1200.5,
		"windSpeed":   95,
	})
	require.NoError(t, err)

	assert.Equal(t, ProjectRepair, specs.ProjectType)
	assert.Empty(t, specs.MembraneType)
	assert.Empty(t, specs.DeckType)
	assert.Nil(t, specs.QualityRequirements.FireRating)
}

func TestNormalize_ValidationErrors(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(raw map[string]interface{})
		expectedFields []string
		expectedCode   string
	}{
		{
			name:           "missing required fields",
			mutate:         func(raw map[string]interface{}) { delete(raw, "projectType"); delete(raw, "windSpeed") },
			expectedFields: []string{"projectType", "windSpeed"},
			expectedCode:   "REQUIRED",
		},
		{
			name:           "zero roof area",
			mutate:         func(raw map[string]interface{}) { raw["roofArea"] = 0 },
			expectedFields: []string{"roofArea"},
		},
		{
			name:           "negative wind speed",
			mutate:         func(raw map[string]interface{}) { raw["windSpeed"] = -10 },
			expectedFields: []string{"windSpeed"},
		},
		{
			name:           "unknown membrane",
			mutate:         func(raw map[string]interface{}) { raw["membraneType"] = "Asphalt Shingle" },
			expectedFields: []string{"membraneType"},
			expectedCode:   CodeInvalidEnum,
		},
		{
			name:           "unknown project type",
			mutate:         func(raw map[string]interface{}) { raw["projectType"] = "demolition" },
			expectedFields: []string{"projectType"},
			expectedCode:   CodeInvalidEnum,
		},
		{
			name: "negative warranty",
			mutate: func(raw map[string]interface{}) {
				raw["qualityRequirements"] = map[string]interface{}{"warrantyYears": -5}
			},
			expectedFields: []string{"qualityRequirements.warrantyYears"},
		},
		{
			name: "wrong types",
			mutate: func(raw map[string]interface{}) {
				raw["hvhzRequired"] = "true"
				raw["complexityFactors"] = map[string]interface{}{"parapets": 1}
			},
			expectedFields: []string{"complexityFactors.parapets", "hvhzRequired"},
			expectedCode:   "INVALID_TYPE",
		},
		{
			name: "several fields at once",
			mutate: func(raw map[string]interface{}) {
				raw["roofArea"] = -1
				raw["deckType"] = "Cardboard"
				raw["fasteningRequirements"] = map[string]interface{}{"upliftRating": -3}
			},
			expectedFields: []string{"deckType", "fasteningRequirements.upliftRating", "roofArea"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := createValidRawSpecs()
			tt.mutate(raw)

			_, err := Normalizer{}.Normalize(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))

			fields := make([]string, len(verr.Fields))
			for i, f := range verr.Fields {
				fields[i] = f.Field
				if tt.expectedCode != "" {
					assert.Equal(t, tt.expectedCode, f.Code, "field %s", f.Field)
				}
			}
			assert.Equal(t, tt.expectedFields, fields)
		})
	}
}

func TestNormalize_NilInput(t *testing.T) {
	_, err := Normalizer{}.Normalize(nil)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.HasField("projectType"))
	assert.True(t, verr.HasField("roofArea"))
	assert.True(t, verr.HasField("windSpeed"))
}

func TestCanonicalize_RejectsNonFiniteNumbers(t *testing.T) {
	specs := ProjectSpecifications{
		ProjectType: ProjectTearoff,
		RoofArea:    math.NaN(),
		WindSpeed:   math.Inf(1),
	}

	_, err := Normalizer{}.Canonicalize(specs)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 2)
	for _, f := range verr.Fields {
		assert.Equal(t, CodeNotFiniteNumber, f.Code)
	}
}

func TestCanonicalize_DoesNotAliasFireRating(t *testing.T) {
	rating := "Class A"
	specs := ProjectSpecifications{
		ProjectType:         "Tear-Off",
		RoofArea:            100,
		WindSpeed:           100,
		QualityRequirements: QualityRequirements{FireRating: &rating},
	}

	out, err := Normalizer{}.Canonicalize(specs)
	require.NoError(t, err)
	assert.Equal(t, ProjectTearoff, out.ProjectType)

	rating = "Class C"
	assert.Equal(t, "Class A", *out.QualityRequirements.FireRating)
}
