// internal/workers/sow/select-template/models.go
package selecttemplate

import (
	"sow-workers/internal/sow/engine"
	"sow-workers/internal/sow/windzone"
)

// Input carries raw specifications as submitted by the process. Jurisdiction
// is only consulted when windSpeed is missing.
type Input struct {
	ProjectSpecifications map[string]interface{} `json:"projectSpecifications"`
	Jurisdiction          *windzone.Jurisdiction `json:"jurisdiction,omitempty"`
}

type Output struct {
	SelectedTemplateID string                          `json:"selectedTemplateId"`
	ConfidenceScore    int                             `json:"confidenceScore"`
	TemplateSelection  *engine.TemplateSelectionResult `json:"templateSelection"`
	WindZone           *windzone.WindZone              `json:"windZone,omitempty"`
	AuditID            string                          `json:"auditId,omitempty"`
}
