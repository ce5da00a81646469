// internal/workers/sow/select-template/handler_test.go
package selecttemplate

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"sow-workers/internal/common/errors"
	"sow-workers/internal/common/logger"
	"sow-workers/internal/common/metrics"
	"sow-workers/internal/common/observability"
	"sow-workers/internal/sow/audit"
	"sow-workers/internal/sow/engine"
	"sow-workers/internal/sow/windzone"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeWindZones struct {
	zone  *windzone.WindZone
	err   error
	calls int
}

func (f *fakeWindZones) Lookup(_ context.Context, _ windzone.Jurisdiction) (*windzone.WindZone, error) {
	f.calls++
	return f.zone, f.err
}

type fakeAuditor struct {
	entries []audit.Entry
	err     error
}

func (f *fakeAuditor) Record(_ context.Context, entry audit.Entry) (uuid.UUID, error) {
	f.entries = append(f.entries, entry)
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return uuid.MustParse("0b8f4a6e-1c2d-4e3f-8a9b-0c1d2e3f4a5b"), nil
}

func createTestConfig() *Config {
	return &Config{
		Timeout:      5 * time.Second,
		AuditEnabled: true,
	}
}

func createTestHandler(t *testing.T, windZones windzone.Repository, auditor Auditor, config *Config) *Handler {
	t.Helper()
	if config == nil {
		config = createTestConfig()
	}
	eng, err := engine.New(engine.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return NewHandler(config, eng, windZones, auditor, observability.NewNoop(), logger.NewTestLogger(t))
}

func createSpecs(projectType string, roofArea, windSpeed interface{}) map[string]interface{} {
	specs := map[string]interface{}{"projectType": projectType, "roofArea": roofArea}
	if windSpeed != nil {
		specs["windSpeed"] = windSpeed
	}
	return specs
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name               string
		input              *Input
		expectedTemplate   string
		expectedConfidence int
		expectedFallbacks  []string
	}{
		{
			name:               "standard tearoff",
			input:              &Input{ProjectSpecifications: createSpecs("tearoff", 8000, 110)},
			expectedTemplate:   "T2",
			expectedConfidence: 70,
			expectedFallbacks:  []string{"T4", "T1"},
		},
		{
			name: "HVHZ tearoff",
			input: &Input{ProjectSpecifications: map[string]interface{}{
				"projectType": "tear-off", "roofArea": 8000, "windSpeed": 170, "hvhzRequired": true,
			}},
			expectedTemplate:   "T3",
			expectedConfidence: 90,
			expectedFallbacks:  []string{"T2", "T8"},
		},
		{
			name:               "small repair",
			input:              &Input{ProjectSpecifications: createSpecs("repair", 1500, 100)},
			expectedTemplate:   "T1",
			expectedConfidence: 80,
			expectedFallbacks:  []string{"T2", "T4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor := &fakeAuditor{}
			handler := createTestHandler(t, nil, auditor, nil)

			output, err := handler.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			require.NotNil(t, output)

			assert.Equal(t, tt.expectedTemplate, output.SelectedTemplateID)
			assert.Equal(t, tt.expectedConfidence, output.ConfidenceScore)
			fallbacks := make([]string, 0, len(output.TemplateSelection.FallbackTemplates))
			for _, f := range output.TemplateSelection.FallbackTemplates {
				fallbacks = append(fallbacks, f.ID)
			}
			assert.Equal(t, tt.expectedFallbacks, fallbacks)
			assert.Nil(t, output.WindZone)
			assert.Equal(t, "0b8f4a6e-1c2d-4e3f-8a9b-0c1d2e3f4a5b", output.AuditID)

			require.Len(t, auditor.entries, 1)
			assert.Equal(t, audit.StatusSelected, auditor.entries[0].Status)
			assert.Equal(t, tt.expectedTemplate, auditor.entries[0].Result.PrimaryTemplate.ID)
		})
	}
}

func TestHandler_Execute_RecordsSelectionMetric(t *testing.T) {
	handler := createTestHandler(t, nil, nil, nil)
	counter := metrics.TemplateSelections.WithLabelValues("T2", handler.engine.Version())
	before := testutil.ToFloat64(counter)

	_, err := handler.Execute(context.Background(), &Input{ProjectSpecifications: createSpecs("tearoff", 8000, 110)})
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

// ==========================
// Jurisdiction Enrichment Tests
// ==========================

func TestHandler_Execute_WindZoneEnrichment(t *testing.T) {
	tests := []struct {
		name             string
		input            *Input
		zones            *fakeWindZones
		expectedTemplate string
		expectedCalls    int
		expectZone       bool
	}{
		{
			name: "HVHZ county fills wind speed and forces HVHZ",
			input: &Input{
				ProjectSpecifications: createSpecs("tearoff", 8000, nil),
				Jurisdiction:          &windzone.Jurisdiction{State: "FL", County: "Miami-Dade"},
			},
			zones:            &fakeWindZones{zone: &windzone.WindZone{State: "FL", County: "miami-dade", DesignWindSpeed: 175, HVHZ: true}},
			expectedTemplate: "T3",
			expectedCalls:    1,
			expectZone:       true,
		},
		{
			name: "inland county fills wind speed",
			input: &Input{
				ProjectSpecifications: createSpecs("tearoff", 8000, nil),
				Jurisdiction:          &windzone.Jurisdiction{State: "TX", County: "Travis"},
			},
			zones:            &fakeWindZones{zone: &windzone.WindZone{State: "TX", DesignWindSpeed: 110}},
			expectedTemplate: "T2",
			expectedCalls:    1,
			expectZone:       true,
		},
		{
			name: "explicit wind speed skips lookup",
			input: &Input{
				ProjectSpecifications: createSpecs("tearoff", 8000, 110),
				Jurisdiction:          &windzone.Jurisdiction{State: "FL", County: "Miami-Dade"},
			},
			zones:            &fakeWindZones{err: stderrors.New("must not be called")},
			expectedTemplate: "T2",
			expectedCalls:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := createTestHandler(t, tt.zones, nil, nil)

			output, err := handler.Execute(context.Background(), tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedTemplate, output.SelectedTemplateID)
			assert.Equal(t, tt.expectedCalls, tt.zones.calls)
			if tt.expectZone {
				assert.Equal(t, tt.zones.zone, output.WindZone)
			} else {
				assert.Nil(t, output.WindZone)
			}
		})
	}
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	jurisdiction := &windzone.Jurisdiction{State: "FL", County: "Monroe"}

	tests := []struct {
		name          string
		input         *Input
		zones         *fakeWindZones
		expectedCode  errors.ErrorCode
		expectedBPMN  string
		retryable     bool
		expectedAudit string
	}{
		{
			name:          "invalid specifications",
			input:         &Input{ProjectSpecifications: createSpecs("demolition", -5, 110)},
			expectedCode:  errors.ErrCodeSpecValidation,
			expectedBPMN:  "SPEC_VALIDATION_FAILED",
			expectedAudit: audit.StatusRejected,
		},
		{
			name:          "missing specifications",
			input:         &Input{},
			expectedCode:  errors.ErrCodeSpecValidation,
			expectedBPMN:  "SPEC_VALIDATION_FAILED",
			expectedAudit: audit.StatusRejected,
		},
		{
			name:         "unknown jurisdiction",
			input:        &Input{ProjectSpecifications: createSpecs("tearoff", 8000, nil), Jurisdiction: jurisdiction},
			zones:        &fakeWindZones{err: fmt.Errorf("%w: FL/monroe", windzone.ErrNotFound)},
			expectedCode: errors.ErrCodeWindZoneNotFound,
			expectedBPMN: "WIND_ZONE_NOT_FOUND",
		},
		{
			name:         "lookup failure is retryable",
			input:        &Input{ProjectSpecifications: createSpecs("tearoff", 8000, nil), Jurisdiction: jurisdiction},
			zones:        &fakeWindZones{err: stderrors.New("connection reset by peer")},
			expectedCode: errors.ErrCodeWindZoneLookupFailed,
			expectedBPMN: "WIND_ZONE_LOOKUP_FAILED",
			retryable:    true,
		},
		{
			name:         "lookup timeout",
			input:        &Input{ProjectSpecifications: createSpecs("tearoff", 8000, nil), Jurisdiction: jurisdiction},
			zones:        &fakeWindZones{err: fmt.Errorf("query wind_zones: %w", context.DeadlineExceeded)},
			expectedCode: errors.ErrCodeQueryTimeout,
			expectedBPMN: "WIND_ZONE_LOOKUP_FAILED",
			retryable:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor := &fakeAuditor{}
			var zones windzone.Repository
			if tt.zones != nil {
				zones = tt.zones
			}
			handler := createTestHandler(t, zones, auditor, nil)

			output, err := handler.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.Nil(t, output)

			se, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.expectedCode, se.Code)
			assert.Equal(t, tt.retryable, se.Retryable)
			assert.Equal(t, tt.expectedBPMN, errors.ConvertToBPMNError(se).Code)

			if tt.expectedAudit == "" {
				assert.Empty(t, auditor.entries)
			} else {
				require.Len(t, auditor.entries, 1)
				assert.Equal(t, tt.expectedAudit, auditor.entries[0].Status)
				assert.Equal(t, string(tt.expectedCode), auditor.entries[0].ErrorCode)
				assert.Nil(t, auditor.entries[0].Result)
			}
		})
	}
}

func TestHandler_Execute_ValidationErrorCarriesFields(t *testing.T) {
	handler := createTestHandler(t, nil, nil, nil)

	_, err := handler.Execute(context.Background(), &Input{ProjectSpecifications: createSpecs("tearoff", 0, "fast")})
	require.Error(t, err)

	se, ok := errors.AsStandardError(err)
	require.True(t, ok)
	fields, ok := se.Metadata["invalidFields"].([]engine.FieldError)
	require.True(t, ok)

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	assert.Equal(t, []string{"roofArea", "windSpeed"}, names)
}

// ==========================
// Audit Tests
// ==========================

func TestHandler_Execute_AuditFailureDoesNotFailJob(t *testing.T) {
	auditor := &fakeAuditor{err: stderrors.New("insert sow_generations: connection refused")}
	handler := createTestHandler(t, nil, auditor, nil)

	output, err := handler.Execute(context.Background(), &Input{ProjectSpecifications: createSpecs("tearoff", 8000, 110)})
	require.NoError(t, err)
	assert.Equal(t, "T2", output.SelectedTemplateID)
	assert.Empty(t, output.AuditID)
	assert.Len(t, auditor.entries, 1)
}

func TestHandler_Execute_AuditDisabled(t *testing.T) {
	auditor := &fakeAuditor{}
	config := createTestConfig()
	config.AuditEnabled = false
	handler := createTestHandler(t, nil, auditor, config)

	output, err := handler.Execute(context.Background(), &Input{ProjectSpecifications: createSpecs("tearoff", 8000, 110)})
	require.NoError(t, err)
	assert.Empty(t, output.AuditID)
	assert.Empty(t, auditor.entries)
}

func TestLoadConfig(t *testing.T) {
	config := LoadConfig()
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.True(t, config.AuditEnabled)
}
