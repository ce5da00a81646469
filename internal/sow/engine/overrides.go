// internal/sow/engine/overrides.go
package engine

const (
	upliftRatingThreshold       = 45.0
	manufacturerWarrantyMinYear = 15
)

// ContentOverrides tells document assembly which computed blocks to inject.
type ContentOverrides struct {
	HVHZCompliance         bool `json:"hvhzCompliance"`
	WindLoadCalculations   bool `json:"windLoadCalculations"`
	SpecialInspections     bool `json:"specialInspections"`
	ManufacturerWarranties bool `json:"manufacturerWarranties"`
}

func ResolveContentOverrides(specs ProjectSpecifications) ContentOverrides {
	return ContentOverrides{
		HVHZCompliance:         specs.HVHZRequired,
		WindLoadCalculations:   specs.WindSpeed > windSpeedStandardMax || specs.FasteningRequirements.UpliftRating > upliftRatingThreshold,
		SpecialInspections:     specs.HVHZRequired || specs.WindSpeed > windSpeedElevatedMax,
		ManufacturerWarranties: specs.QualityRequirements.WarrantyYears >= manufacturerWarrantyMinYear,
	}
}
