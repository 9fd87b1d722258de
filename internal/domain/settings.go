package domain

import (
	"fmt"
	"strconv"
)

// PointsMode selects how base points are scaled.
type PointsMode string

const (
	PointsStandard    PointsMode = "standard"
	PointsProgressive PointsMode = "progressive"
)

func (m PointsMode) Valid() bool {
	return m == PointsStandard || m == PointsProgressive
}

// Settings are the host-controlled configuration flags of a session.
type Settings struct {
	PointsMode         PointsMode `json:"pointsMode"`
	NegativeEnabled    bool       `json:"negativeEnabled"`
	StreakBonusEnabled bool       `json:"streakBonusEnabled"`
	WagerEnabled       bool       `json:"wagerEnabled"`
	SoundOn            bool       `json:"soundOn"`
	LargeText          bool       `json:"largeText"`
	HighContrast       bool       `json:"highContrast"`
}

// DefaultSettings returns the settings of a fresh session.
func DefaultSettings() Settings {
	return Settings{PointsMode: PointsStandard}
}

// Setting names one field of Settings.
type Setting string

const (
	SettingPointsMode   Setting = "pointsMode"
	SettingNegative     Setting = "negativeEnabled"
	SettingStreakBonus  Setting = "streakBonusEnabled"
	SettingWager        Setting = "wagerEnabled"
	SettingSound        Setting = "soundOn"
	SettingLargeText    Setting = "largeText"
	SettingHighContrast Setting = "highContrast"
)

func (s *Settings) flag(name Setting) *bool {
	switch name {
	case SettingNegative:
		return &s.NegativeEnabled
	case SettingStreakBonus:
		return &s.StreakBonusEnabled
	case SettingWager:
		return &s.WagerEnabled
	case SettingSound:
		return &s.SoundOn
	case SettingLargeText:
		return &s.LargeText
	case SettingHighContrast:
		return &s.HighContrast
	}
	return nil
}

// Toggle flips a boolean setting. It reports false without error for
// settings that are not booleans.
func (s *Settings) Toggle(name Setting) (bool, error) {
	if f := s.flag(name); f != nil {
		*f = !*f
		return true, nil
	}
	if name == SettingPointsMode {
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
}

// Set assigns a setting. Boolean settings accept a bool or a string parsable
// by strconv.ParseBool; pointsMode accepts a PointsMode or its string form.
func (s *Settings) Set(name Setting, value any) error {
	if f := s.flag(name); f != nil {
		switch v := value.(type) {
		case bool:
			*f = v
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s expects a boolean", ErrInvalidSettingValue, name)
			}
			*f = b
		default:
			return fmt.Errorf("%w: %s expects a boolean", ErrInvalidSettingValue, name)
		}
		return nil
	}
	if name != SettingPointsMode {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	var mode PointsMode
	switch v := value.(type) {
	case PointsMode:
		mode = v
	case string:
		mode = PointsMode(v)
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: pointsMode must be %s or %s", ErrInvalidSettingValue, PointsStandard, PointsProgressive)
	}
	s.PointsMode = mode
	return nil
}
