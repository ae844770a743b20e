package effects

import (
	"strings"

	"github.com/ivlev/faceless/internal/director"
	"github.com/ivlev/faceless/internal/models"
)

// PlanEffect overrides motions from an edited plan.yaml. Slides are matched by
// segment id.
type PlanEffect struct {
	Plan *director.Scenario
	Next Effect
}

func NewPlanEffect(plan *director.Scenario) *PlanEffect {
	return &PlanEffect{Plan: plan}
}

func (e *PlanEffect) Resolve(index int, seg models.Segment) Resolved {
	var base Resolved
	if e.Next != nil {
		base = e.Next.Resolve(index, seg)
	} else {
		base = NewDefaultEffect("", 0).Resolve(index, seg)
	}

	slide, ok := e.Plan.Slide(seg.ID)
	if !ok || strings.TrimSpace(slide.Motion) == "" {
		return base
	}
	intensity := slide.Intensity
	if intensity < 1 {
		intensity = base.Intensity
	}
	return resolved(slide.Motion, intensity, OriginPlan)
}
