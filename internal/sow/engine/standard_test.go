package engine

import (
	stderrors "errors"
	"fmt"
	"testing"

	"sow-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToStandardError(t *testing.T) {
	validation := &ValidationError{Fields: []FieldError{{Field: "roofArea", Message: "must be positive", Code: CodeNotPositive}}}

	tests := []struct {
		name      string
		err       error
		wantCode  errors.ErrorCode
		wantBPMN  string
		checkMeta bool
	}{
		{"validation", validation, errors.ErrCodeSpecValidation, "SPEC_VALIDATION_FAILED", true},
		{"wrapped validation", fmt.Errorf("select: %w", validation), errors.ErrCodeSpecValidation, "SPEC_VALIDATION_FAILED", true},
		{"not found", &NotFoundError{TemplateID: "T9"}, errors.ErrCodeTemplateNotFound, "TEMPLATE_NOT_FOUND", false},
		{"invariant", invariantf("template %s missing", "T3"), errors.ErrCodeEngineInvariantViolation, "ENGINE_INVARIANT_VIOLATION", false},
		{"unknown", stderrors.New("boom"), errors.ErrCodeInternal, "INTERNAL_ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := ToStandardError(tt.err)
			require.NotNil(t, se)
			assert.Equal(t, tt.wantCode, se.Code)
			assert.False(t, se.Retryable)
			assert.Equal(t, tt.wantBPMN, errors.ConvertToBPMNError(se).Code)
			assert.ErrorIs(t, se, tt.err)
			if tt.checkMeta {
				assert.Equal(t, validation.Fields, se.Metadata["invalidFields"])
			}
		})
	}
}

func TestToStandardError_PassesThroughStandardErrors(t *testing.T) {
	original := errors.NewWindZoneNotFoundError("FL/monroe")
	assert.Same(t, original, ToStandardError(original))
}
