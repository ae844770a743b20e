// Package motion computes the Ken Burns camera window for a still image at any
// point of a clip. Everything here is a pure function of time.
package motion

import "strings"

type Kind int

const (
	Static Kind = iota
	ZoomIn
	ZoomOut
	PanLeft
	PanRight
	KenBurnsUp
	KenBurnsDown
)

// DefaultIntensity is used when neither the edit guide nor the script gives one.
const DefaultIntensity = 1.12

// MaxIntensity caps the scale a motion may reach. Larger values are clamped.
const MaxIntensity = 1.5

var kindNames = map[Kind]string{
	Static:       "static",
	ZoomIn:       "zoom_in",
	ZoomOut:      "zoom_out",
	PanLeft:      "pan_left",
	PanRight:     "pan_right",
	KenBurnsUp:   "ken_burns_up",
	KenBurnsDown: "ken_burns_down",
}

var aliases = map[string]Kind{
	"static":           Static,
	"estatico":         Static,
	"zoom_in":          ZoomIn,
	"zoom_in_lento":    ZoomIn,
	"zoom_out":         ZoomOut,
	"zoom_out_lento":   ZoomOut,
	"pan_left":         PanLeft,
	"pan_izquierda":    PanLeft,
	"pan_right":        PanRight,
	"pan_derecha":      PanRight,
	"ken_burns_up":     KenBurnsUp,
	"ken_burns_arriba": KenBurnsUp,
	"ken_burns_down":   KenBurnsDown,
	"ken_burns_abajo":  KenBurnsDown,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "static"
}

// ParseKind maps a motion name to its kind. The second result is false for
// names outside the vocabulary (shake, scale_pulse, ...), which render static.
func ParseKind(name string) (Kind, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	k, ok := aliases[key]
	if !ok {
		return Static, false
	}
	return k, true
}

// Motion is a resolved camera move: a kind plus the maximum scale it reaches.
type Motion struct {
	Kind      Kind
	Intensity float64
}

// Parse resolves a motion name and intensity. Intensities below 1 are raised
// to 1 and those above MaxIntensity are lowered to it.
func Parse(name string, intensity float64) Motion {
	k, _ := ParseKind(name)
	return Motion{Kind: k, Intensity: clampIntensity(intensity)}
}

func clampIntensity(v float64) float64 {
	switch {
	case v != v || v < 1:
		return 1
	case v > MaxIntensity:
		return MaxIntensity
	}
	return v
}
