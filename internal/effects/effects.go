// Package effects decides which camera motion each segment is rendered with.
package effects

import (
	"strings"

	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/motion"
)

// Origins of a resolved motion.
const (
	OriginGuide   = "guide"
	OriginPlan    = "plan"
	OriginScript  = "script"
	OriginDefault = "default"
)

// Resolved is the motion chosen for one segment. Name keeps the raw name as
// written upstream (e.g. "shake"); Kind is what the sampler will render.
type Resolved struct {
	Name      string
	Kind      motion.Kind
	Intensity float64
	Origin    string
	// Requested is the intensity asked for before clamping.
	Requested float64
}

// Clamped reports whether the requested intensity was above motion.MaxIntensity.
func (r Resolved) Clamped() bool {
	return r.Requested > motion.MaxIntensity
}

func (r Resolved) Motion() motion.Motion {
	return motion.Motion{Kind: r.Kind, Intensity: r.Intensity}
}

// Effect resolves the motion of the segment at position index.
type Effect interface {
	Resolve(index int, seg models.Segment) Resolved
}

// DefaultEffect uses the script's own motion and falls back to Motion/Intensity.
type DefaultEffect struct {
	Motion    string
	Intensity float64
}

func NewDefaultEffect(name string, intensity float64) *DefaultEffect {
	if strings.TrimSpace(name) == "" {
		name = motion.ZoomIn.String()
	}
	if intensity < 1 {
		intensity = motion.DefaultIntensity
	}
	return &DefaultEffect{Motion: name, Intensity: intensity}
}

func (e *DefaultEffect) Resolve(index int, seg models.Segment) Resolved {
	intensity := e.Intensity
	if intensity < 1 {
		intensity = motion.DefaultIntensity
	}
	if v := float64(seg.MotionIntensity); v >= 1 {
		intensity = v
	}

	if name := strings.TrimSpace(seg.Motion); name != "" {
		return resolved(name, intensity, OriginScript)
	}
	return resolved(e.Motion, intensity, OriginDefault)
}

// GuideEffect applies the edit guide's motion cue for the segment id, when the
// cue names one, and defers to Next otherwise.
type GuideEffect struct {
	Guide *models.EditGuide
	Next  Effect
}

func (e *GuideEffect) Resolve(index int, seg models.Segment) Resolved {
	base := e.Next.Resolve(index, seg)
	entry, ok := e.Guide.Entry(seg.ID)
	if !ok || strings.TrimSpace(entry.Motion.Type) == "" {
		return base
	}

	intensity := entry.Motion.Intensity()
	if intensity == 0 {
		intensity = base.Intensity
	}
	return resolved(entry.Motion.Type, intensity, OriginGuide)
}

func resolved(name string, intensity float64, origin string) Resolved {
	m := motion.Parse(name, intensity)
	return Resolved{Name: name, Kind: m.Kind, Intensity: m.Intensity, Origin: origin, Requested: intensity}
}

// Chain builds the usual precedence: plan, then guide, then script, then default.
func Chain(def *DefaultEffect, guide *models.EditGuide, plan *PlanEffect) Effect {
	var eff Effect = def
	if guide != nil {
		eff = &GuideEffect{Guide: guide, Next: eff}
	}
	if plan != nil {
		plan.Next = eff
		eff = plan
	}
	return eff
}
