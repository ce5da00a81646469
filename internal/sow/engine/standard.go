package engine

import (
	stderrors "errors"

	"sow-workers/internal/common/errors"
)

// ToStandardError maps engine failures onto the shared worker error taxonomy.
func ToStandardError(err error) *errors.StandardError {
	if se, ok := errors.AsStandardError(err); ok {
		return se
	}

	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case stderrors.As(err, &ve):
		return errors.NewSpecValidationError(ve.Error(), ve.Fields, err)
	case stderrors.As(err, &nf):
		return errors.NewTemplateNotFoundError(nf.TemplateID, err)
	case stderrors.Is(err, ErrInternalInvariant):
		return errors.NewEngineInvariantError(err)
	default:
		return errors.NewInternalError(err)
	}
}
