// internal/workers/sow/check-template-compatibility/models.go
package checkcompatibility

import "sow-workers/internal/sow/engine"

type Input struct {
	TemplateID            string                 `json:"templateId"`
	ProjectSpecifications map[string]interface{} `json:"projectSpecifications"`
}

// Output reports the fit of the requested template plus every template
// that supports the project's type and membrane.
type Output struct {
	Compatible         bool                        `json:"compatible"`
	Compatibility      *engine.CompatibilityReport `json:"compatibility"`
	AvailableTemplates []string                    `json:"availableTemplates"`
}
