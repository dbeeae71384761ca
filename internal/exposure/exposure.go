// Package exposure describes how raw images of a session are developed:
// the white balance and brightness settings stored with each session.
package exposure

import (
	"fmt"
	"strings"
)

// WhiteBalanceMode selects how white balance is chosen when developing raws.
type WhiteBalanceMode int

const (
	WBDefault WhiteBalanceMode = iota
	WBCamera
	WBAverage
	WBCustom
)

// String returns the mode name.
func (m WhiteBalanceMode) String() string {
	names := [...]string{"default", "camera", "average", "custom"}
	if m >= 0 && int(m) < len(names) {
		return names[m]
	}
	return "unknown"
}

// ParseWhiteBalanceMode resolves a white balance mode from its name.
func ParseWhiteBalanceMode(name string) (WhiteBalanceMode, error) {
	for m := WBDefault; m <= WBCustom; m++ {
		if strings.EqualFold(strings.TrimSpace(name), m.String()) {
			return m, nil
		}
	}
	return WBDefault, fmt.Errorf("exposure: unknown white balance mode %q", name)
}

// BrightnessMode selects how brightness is adjusted when developing raws.
type BrightnessMode int

const (
	BrightAutoHistogram BrightnessMode = iota
	BrightDisabled
	BrightScaled
)

// String returns the mode name.
func (m BrightnessMode) String() string {
	names := [...]string{"auto-histogram", "disabled", "scaled"}
	if m >= 0 && int(m) < len(names) {
		return names[m]
	}
	return "unknown"
}

// ParseBrightnessMode resolves a brightness mode from its name.
func ParseBrightnessMode(name string) (BrightnessMode, error) {
	for m := BrightAutoHistogram; m <= BrightScaled; m++ {
		if strings.EqualFold(strings.TrimSpace(name), m.String()) {
			return m, nil
		}
	}
	return BrightAutoHistogram, fmt.Errorf("exposure: unknown brightness mode %q", name)
}

// Settings is an immutable set of exposure parameters. WBCustom holds the
// R, G1, B, G2 multipliers used in WBCustom mode.
type Settings struct {
	WBMode      WhiteBalanceMode
	WBCustom    [4]float64
	BrightMode  BrightnessMode
	BrightScale float64
}

// Default is used for sessions that never stored exposure settings.
var Default = Settings{
	WBMode:      WBCamera,
	WBCustom:    [4]float64{1, 1, 1, 1},
	BrightMode:  BrightAutoHistogram,
	BrightScale: 1.0,
}

// Validate checks that the modes are known and the multipliers positive.
func (s Settings) Validate() error {
	if s.WBMode < WBDefault || s.WBMode > WBCustom {
		return fmt.Errorf("exposure: unknown white balance mode %d", s.WBMode)
	}
	if s.BrightMode < BrightAutoHistogram || s.BrightMode > BrightScaled {
		return fmt.Errorf("exposure: unknown brightness mode %d", s.BrightMode)
	}
	if s.WBMode == WBCustom {
		for i, v := range s.WBCustom {
			if v <= 0 {
				return fmt.Errorf("exposure: custom white balance multiplier %d must be positive", i)
			}
		}
	}
	if s.BrightMode == BrightScaled && s.BrightScale <= 0 {
		return fmt.Errorf("exposure: brightness scale must be positive")
	}
	return nil
}

// Consistent returns a copy with values that do not apply to the selected
// modes reset to their defaults.
func (s Settings) Consistent() Settings {
	out := s
	if out.WBMode != WBCustom {
		out.WBCustom = Default.WBCustom
	}
	if out.BrightMode != BrightScaled {
		out.BrightScale = Default.BrightScale
	}
	return out
}
