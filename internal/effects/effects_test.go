package effects

import (
	"testing"

	"github.com/ivlev/faceless/internal/director"
	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/motion"
)

func TestDefaultEffect(t *testing.T) {
	def := NewDefaultEffect("", 0)

	tests := []struct {
		name      string
		seg       models.Segment
		kind      motion.Kind
		intensity float64
		origin    string
	}{
		{"no motion", models.Segment{ID: 1}, motion.ZoomIn, 1.12, OriginDefault},
		{"script motion", models.Segment{ID: 2, Motion: "pan_izquierda", MotionIntensity: 1.2}, motion.PanLeft, 1.2, OriginScript},
		{"label too weak", models.Segment{ID: 3, Motion: "ken_burns_abajo", MotionIntensity: 0.4}, motion.KenBurnsDown, 1.12, OriginScript},
		{"unknown", models.Segment{ID: 4, Motion: "shake_suave"}, motion.Static, 1.12, OriginScript},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := def.Resolve(0, tt.seg)
			if r.Kind != tt.kind || r.Intensity != tt.intensity || r.Origin != tt.origin {
				t.Errorf("got %+v, want kind %v intensity %.2f origin %s", r, tt.kind, tt.intensity, tt.origin)
			}
		})
	}
}

func TestGuideOverridesScript(t *testing.T) {
	guide := &models.EditGuide{Timeline: []models.TimelineEntry{
		{SegmentID: 2, Motion: models.MotionCue{Type: "shake", From: 1.0, To: 1.1}},
		{SegmentID: 3, Motion: models.MotionCue{Type: "zoom_out"}},
		{SegmentID: 4, Motion: models.MotionCue{Type: " "}},
	}}
	eff := Chain(NewDefaultEffect("zoom_in", 1.12), guide, nil)

	// segment 2 asks for zoom_in in the script but the guide says shake
	r := eff.Resolve(1, models.Segment{ID: 2, Motion: "zoom_in", MotionIntensity: 1.3})
	if r.Name != "shake" || r.Kind != motion.Static || r.Origin != OriginGuide {
		t.Errorf("expected guide shake rendered static, got %+v", r)
	}

	// a cue without values keeps the script intensity
	r = eff.Resolve(2, models.Segment{ID: 3, Motion: "pan_left", MotionIntensity: 1.25})
	if r.Kind != motion.ZoomOut || r.Intensity != 1.25 {
		t.Errorf("expected zoom_out at 1.25, got %+v", r)
	}

	// a blank cue defers to the script
	r = eff.Resolve(3, models.Segment{ID: 4, Motion: "pan_right"})
	if r.Kind != motion.PanRight || r.Origin != OriginScript {
		t.Errorf("expected script pan_right, got %+v", r)
	}

	// no entry at all
	r = eff.Resolve(4, models.Segment{ID: 9})
	if r.Kind != motion.ZoomIn || r.Origin != OriginDefault {
		t.Errorf("expected default zoom_in, got %+v", r)
	}
}

func TestPlanOverridesGuide(t *testing.T) {
	guide := &models.EditGuide{Timeline: []models.TimelineEntry{
		{SegmentID: 1, Motion: models.MotionCue{Type: "zoom_in", To: 1.2}},
	}}
	plan := NewPlanEffect(&director.Scenario{Slides: []director.Slide{
		{ID: 1, Motion: "ken_burns_up", Intensity: 1.05},
		{ID: 2, Motion: "pan_left"},
	}})
	eff := Chain(NewDefaultEffect("zoom_in", 1.12), guide, plan)

	r := eff.Resolve(0, models.Segment{ID: 1})
	if r.Kind != motion.KenBurnsUp || r.Intensity != 1.05 || r.Origin != OriginPlan {
		t.Errorf("expected plan ken_burns_up 1.05, got %+v", r)
	}

	r = eff.Resolve(1, models.Segment{ID: 2, MotionIntensity: 1.18})
	if r.Kind != motion.PanLeft || r.Intensity != 1.18 {
		t.Errorf("expected plan pan_left keeping 1.18, got %+v", r)
	}
}
