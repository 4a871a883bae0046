package config

import (
	"fmt"
	"strings"
)

// QualityLevel selects one of the enumerated render/merge presets.
type QualityLevel int

const (
	QualityLow QualityLevel = iota
	QualityMedium
	QualityHigh
)

// Preset is the triple of settings a quality level expands to.
type Preset struct {
	Level QualityLevel
	// RenderFlag is passed to the renderer, e.g. "-qh".
	RenderFlag string
	// Resolution names the renderer's output subdirectory, e.g. "1080p60".
	Resolution string
	// EncodePreset is the x264 preset used for the merge encode.
	EncodePreset string
}

var presets = map[QualityLevel]Preset{
	QualityLow:    {Level: QualityLow, RenderFlag: "-ql", Resolution: "480p15", EncodePreset: "ultrafast"},
	QualityMedium: {Level: QualityMedium, RenderFlag: "-qh", Resolution: "1080p60", EncodePreset: "medium"},
	QualityHigh:   {Level: QualityHigh, RenderFlag: "-qk", Resolution: "2160p60", EncodePreset: "veryslow"},
}

// ParseQuality converts a user-facing quality name into a level.
func ParseQuality(value string) (QualityLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return QualityLow, nil
	case "medium":
		return QualityMedium, nil
	case "high":
		return QualityHigh, nil
	default:
		return 0, fmt.Errorf("unknown quality %q (want low, medium or high)", value)
	}
}

// QualityNames lists the accepted quality names in ascending order.
func QualityNames() []string {
	return []string{"low", "medium", "high"}
}

func (q QualityLevel) String() string {
	switch q {
	case QualityLow:
		return "low"
	case QualityMedium:
		return "medium"
	case QualityHigh:
		return "high"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// Preset returns the settings for the level. Unknown levels report false.
func (q QualityLevel) Preset() (Preset, bool) {
	p, ok := presets[q]
	return p, ok
}
