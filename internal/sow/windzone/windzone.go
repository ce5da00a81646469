// Package windzone resolves design wind speed and HVHZ status for a
// jurisdiction so specifications can be enriched before template selection.
package windzone

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("WIND_ZONE_NOT_FOUND")

// Jurisdiction identifies a state and, optionally, a county within it.
type Jurisdiction struct {
	State  string `json:"state"`
	County string `json:"county,omitempty"`
}

// Normalized upper-cases the state code and lower-cases the county without
// its "county" suffix, matching how wind_zones rows are keyed.
func (j Jurisdiction) Normalized() Jurisdiction {
	county := strings.ToLower(strings.TrimSpace(j.County))
	county = strings.TrimSpace(strings.TrimSuffix(county, " county"))
	return Jurisdiction{
		State:  strings.ToUpper(strings.TrimSpace(j.State)),
		County: county,
	}
}

func (j Jurisdiction) String() string {
	if j.County == "" {
		return j.State
	}
	return j.State + "/" + j.County
}

type WindZone struct {
	State            string  `json:"state"`
	County           string  `json:"county,omitempty"`
	DesignWindSpeed  float64 `json:"designWindSpeed"`
	HVHZ             bool    `json:"hvhz"`
	ExposureCategory string  `json:"exposureCategory,omitempty"`
	CodeReference    string  `json:"codeReference,omitempty"`
}

// Repository is a read-only source of wind zone data.
type Repository interface {
	Lookup(ctx context.Context, j Jurisdiction) (*WindZone, error)
}

// Enrich fills windSpeed when it is absent or null and forces hvhzRequired
// for HVHZ jurisdictions. It reports whether raw was changed.
func Enrich(raw map[string]interface{}, zone *WindZone) bool {
	if raw == nil || zone == nil {
		return false
	}
	changed := false
	if v, ok := raw["windSpeed"]; !ok || v == nil {
		raw["windSpeed"] = zone.DesignWindSpeed
		changed = true
	}
	if zone.HVHZ {
		if v, ok := raw["hvhzRequired"].(bool); !ok || !v {
			raw["hvhzRequired"] = true
			changed = true
		}
	}
	return changed
}

// NeedsLookup reports whether raw lacks a wind speed.
func NeedsLookup(raw map[string]interface{}) bool {
	v, ok := raw["windSpeed"]
	return !ok || v == nil
}
