package control

import (
	"fmt"

	"gridbot/engine"
	"gridbot/logger"
)

// RemoteConfig is the loosely-typed parameter payload from the control
// plane. Every field is optional; anything absent or malformed keeps
// the current value. Validation into the typed engine parameters
// happens here, at the boundary, so untyped maps never reach the
// engine.
type RemoteConfig struct {
	LotSize          *float64 `json:"lotSize,omitempty"`
	GridSpacing      *float64 `json:"gridSpacing,omitempty"`
	MaxLevels        *int     `json:"maxLevels,omitempty"`
	OrdersPerLevel   *int     `json:"ordersPerLevel,omitempty"`
	EntryOrders      *int     `json:"entryOrders,omitempty"`
	TrailingEnabled  *bool    `json:"trailingEnabled,omitempty"`
	TrailingActivate *float64 `json:"trailingActivate,omitempty"`
	TrailingBack     *float64 `json:"trailingBack,omitempty"`
	TrailingStep     *float64 `json:"trailingStep,omitempty"`
	TrailingBuffer   *float64 `json:"trailingBuffer,omitempty"`
}

// Apply merges the remote payload into the grid parameters, mutating
// and logging only fields that actually changed. Malformed values
// (non-positive sizes, negative caps) are rejected field by field.
// Returns the names of the fields that changed.
func (rc *RemoteConfig) Apply(p *engine.Params) []string {
	var changed []string

	setF := func(name string, dst *float64, src *float64, min float64) {
		if src == nil || *src == *dst {
			return
		}
		if *src <= min {
			logger.Warnf("⚠️  Config refresh: rejected %s=%v", name, *src)
			return
		}
		logger.Infof("🔧 Config: %s %v -> %v", name, *dst, *src)
		*dst = *src
		changed = append(changed, name)
	}
	setI := func(name string, dst *int, src *int, min int) {
		if src == nil || *src == *dst {
			return
		}
		if *src < min {
			logger.Warnf("⚠️  Config refresh: rejected %s=%v", name, *src)
			return
		}
		logger.Infof("🔧 Config: %s %v -> %v", name, *dst, *src)
		*dst = *src
		changed = append(changed, name)
	}

	setF("lotSize", &p.Volume, rc.LotSize, 0)
	setF("gridSpacing", &p.Spacing, rc.GridSpacing, 0)
	setI("maxLevels", &p.MaxLevels, rc.MaxLevels, 0)
	setI("ordersPerLevel", &p.OrdersPerLevel, rc.OrdersPerLevel, 1)
	setI("entryOrders", &p.EntryOrders, rc.EntryOrders, 1)

	if rc.TrailingEnabled != nil && *rc.TrailingEnabled != p.Trailing.Enabled {
		logger.Infof("🔧 Config: trailingEnabled %v -> %v", p.Trailing.Enabled, *rc.TrailingEnabled)
		p.Trailing.Enabled = *rc.TrailingEnabled
		changed = append(changed, "trailingEnabled")
	}
	setF("trailingActivate", &p.Trailing.ActivateDistance, rc.TrailingActivate, 0)
	setF("trailingBack", &p.Trailing.BackDistance, rc.TrailingBack, 0)
	setF("trailingStep", &p.Trailing.StepDistance, rc.TrailingStep, 0)
	if rc.TrailingBuffer != nil && *rc.TrailingBuffer != p.Trailing.SpreadBuffer {
		if *rc.TrailingBuffer < 0 {
			logger.Warnf("⚠️  Config refresh: rejected trailingBuffer=%v", *rc.TrailingBuffer)
		} else {
			logger.Infof("🔧 Config: trailingBuffer %v -> %v", p.Trailing.SpreadBuffer, *rc.TrailingBuffer)
			p.Trailing.SpreadBuffer = *rc.TrailingBuffer
			changed = append(changed, "trailingBuffer")
		}
	}

	if err := p.Validate(); err != nil {
		// should be unreachable given the per-field checks
		logger.Errorf("❌ Config refresh produced invalid params: %v", err)
	}
	return changed
}

// String summarizes which fields the payload carries (for debug logs)
func (rc *RemoteConfig) String() string {
	n := 0
	for _, set := range []bool{
		rc.LotSize != nil, rc.GridSpacing != nil, rc.MaxLevels != nil,
		rc.OrdersPerLevel != nil, rc.EntryOrders != nil, rc.TrailingEnabled != nil,
		rc.TrailingActivate != nil, rc.TrailingBack != nil, rc.TrailingStep != nil,
		rc.TrailingBuffer != nil,
	} {
		if set {
			n++
		}
	}
	return fmt.Sprintf("RemoteConfig{%d field(s)}", n)
}
