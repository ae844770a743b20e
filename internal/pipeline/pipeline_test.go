package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/director"
	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/script"
	"github.com/ivlev/faceless/internal/source"
	"github.com/ivlev/faceless/internal/video"
)

const scriptJSON = `{
  "titulo": "El azúcar",
  "duracion_total": 30,
  "estilo_visual": "oscuro",
  "segmentos": [
    {"id": 1, "tiempo_inicio": 0, "tiempo_fin": 10, "narracion": "Uno.", "visual_prompt": "sugar", "motion": "zoom_in_lento", "motion_intensidad": "medio"},
    {"id": 2, "tiempo_inicio": 10, "tiempo_fin": 20, "narracion": "Dos.", "visual_prompt": "spoon", "motion": "zoom_in_lento"},
    {"id": 3, "tiempo_inicio": 20, "tiempo_fin": 30, "narracion": "Tres.", "visual_prompt": "table", "motion": "pan_derecha"}
  ]
}`

const guideJSON = `{
  "titulo": "El azúcar",
  "duracion_total": 30,
  "timeline": [
    {"segmento_id": 1, "tiempo": "0:00 - 0:10", "motion": {"tipo": "zoom_in", "desde": 1.0, "hasta": 1.15}},
    {"segmento_id": 2, "tiempo": "0:10 - 0:20", "motion": {"tipo": "shake", "desde": 1.0, "hasta": 1.1}},
    {"segmento_id": 3, "tiempo": "0:20 - 0:30", "motion": {"tipo": "pan_right"}}
  ],
  "tips_finales": ["cortá rápido"]
}`

type fakeLLM struct{ calls int }

func (f *fakeLLM) CompleteJSON(ctx context.Context, system, user string, temperature float64) (string, error) {
	f.calls++
	if strings.Contains(system, "GUÍA DE EDICIÓN") {
		return guideJSON, nil
	}
	return scriptJSON, nil
}

type fakeImages struct{ fail bool }

func (f fakeImages) Generate(ctx context.Context, seg models.Segment, style, path string) error {
	if f.fail {
		return errors.New("content policy violation")
	}
	return source.SavePNG(path, still(seg.ID))
}

func still(id int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 8), B: uint8(id * 40), A: 255})
		}
	}
	return img
}

type fakeVoice struct{}

func (fakeVoice) Name() string { return "fake" }

func (fakeVoice) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("mp3:" + text), nil
}

type fakeEncoder struct {
	mu   sync.Mutex
	opts video.ExportOptions
}

func (e *fakeEncoder) EncodeSegment(ctx context.Context, frames video.Frames, path string, params config.SegmentParams) error {
	frames.Frame(0)
	return os.WriteFile(path, []byte("clip"), 0644)
}

func (e *fakeEncoder) Export(ctx context.Context, paths []string, final, tmpDir string, opts video.ExportOptions) error {
	e.mu.Lock()
	e.opts = opts
	e.mu.Unlock()
	return os.WriteFile(final, []byte(fmt.Sprintf("%d clips", len(paths))), 0644)
}

type fakeProber float64

func (p fakeProber) Duration(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return float64(p), nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Status != StatusProgress {
			out = append(out, e.Stage+":"+e.Status)
		}
	}
	return out
}

func newTestPipeline(t *testing.T, llm Completer) (*Pipeline, *fakeEncoder, *recorder) {
	t.Helper()
	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.FPS = 18, 32, 2
	cfg.Workers = 2
	cfg.OutputDir = t.TempDir()

	enc := &fakeEncoder{}
	rec := &recorder{}
	p := New(cfg, llm, fakeImages{}, fakeVoice{}, enc, fakeProber(28.5), nil)
	p.Progress = rec
	return p, enc, rec
}

func TestRunProducesEveryArtifact(t *testing.T) {
	p, enc, rec := newTestPipeline(t, &fakeLLM{})

	res, err := p.Run(context.Background(), Options{Request: script.Request{Topic: "el azúcar"}, RunID: "run1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{ScriptFile, EDLFile, ReportFile, PlanFile, VideoFile,
		"images/seg_01.png", "images/seg_03.png", "audio/narracion_completa.mp3", "audio/seg_02.mp3"} {
		if _, err := os.Stat(filepath.Join(res.Dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	if res.Dir != filepath.Join(p.Config.OutputDir, "run1") {
		t.Errorf("unexpected run dir %s", res.Dir)
	}
	if enc.opts.MaxDuration != 28.5 {
		t.Errorf("expected truncation to the narration, got %.2f", enc.opts.MaxDuration)
	}

	want := []string{
		"script:started", "script:done", "edl:started", "edl:done",
		"images:started", "images:done", "audio:started", "audio:done",
		"video:started", "video:done",
	}
	if got := rec.statuses(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events:\n got %v\nwant %v", got, want)
	}

	plan, err := director.ReadScenario(res.PlanPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Slides) != 3 || plan.Slides[1].Motion != "shake" || plan.Slides[1].Origin != "guide" {
		t.Errorf("plan should record the guide's shake for segment 2: %+v", plan.Slides)
	}

	report, _ := os.ReadFile(res.ReportPath)
	if !strings.Contains(string(report), "REPORTE DE EDICIÓN: El azúcar") {
		t.Errorf("unexpected report:\n%s", report)
	}
}

func TestRunReusesArtifacts(t *testing.T) {
	first, _, _ := newTestPipeline(t, &fakeLLM{})
	prev, err := first.Run(context.Background(), Options{Request: script.Request{Topic: "x"}, PlanOnly: true})
	if err != nil {
		t.Fatal(err)
	}

	// no model at all: everything comes from the previous run
	p, _, rec := newTestPipeline(t, nil)
	res, err := p.Run(context.Background(), Options{
		ScriptPath: prev.ScriptPath,
		EDLPath:    prev.EDLPath,
		ImagesPath: filepath.Join(prev.Dir, ImagesDir),
		AudioPath:  prev.Media.Narration,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Script.Title != "El azúcar" || res.Guide == nil {
		t.Errorf("script and guide should be reused")
	}
	if len(res.Media.Images) != 3 || res.Media.Narration != prev.Media.Narration {
		t.Errorf("unexpected media %+v", res.Media)
	}
	if res.VideoPath == "" {
		t.Error("expected a video")
	}
	for _, s := range rec.statuses() {
		if strings.HasSuffix(s, StatusFailed) {
			t.Errorf("unexpected %s", s)
		}
	}
}

func TestRunWithoutModelSkipsGuide(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "script.json")
	if err := os.WriteFile(scriptPath, []byte(scriptJSON), 0644); err != nil {
		t.Fatal(err)
	}

	p, _, rec := newTestPipeline(t, nil)
	res, err := p.Run(context.Background(), Options{ScriptPath: scriptPath, PlanOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Guide != nil || res.VideoPath != "" {
		t.Errorf("expected no guide and no video, got %+v", res)
	}
	if !strings.Contains(strings.Join(rec.statuses(), ","), "edl:skipped") {
		t.Errorf("edl stage should be reported skipped: %v", rec.statuses())
	}
	if res.Timeline.Clips[1].Motion.Origin != "script" {
		t.Errorf("motions should come from the script, got %+v", res.Timeline.Clips[1].Motion)
	}
}

func TestRunNeedsModelForNewScript(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)
	_, err := p.Run(context.Background(), Options{Request: script.Request{Topic: "x"}})
	if !errors.Is(err, ErrNoModel) {
		t.Errorf("expected ErrNoModel, got %v", err)
	}
}

func TestRunKeepsArtifactsOnFailure(t *testing.T) {
	p, _, rec := newTestPipeline(t, &fakeLLM{})
	p.Images = fakeImages{fail: true}

	res, err := p.Run(context.Background(), Options{Request: script.Request{Topic: "x"}})
	if err == nil || !strings.Contains(err.Error(), "images stage") {
		t.Fatalf("expected images stage error, got %v", err)
	}
	if _, err := os.Stat(res.ScriptPath); err != nil {
		t.Errorf("script.json should survive a later failure: %v", err)
	}
	if _, err := os.Stat(res.EDLPath); err != nil {
		t.Errorf("edl.json should survive a later failure: %v", err)
	}
	got := rec.statuses()
	if got[len(got)-1] != "images:failed" {
		t.Errorf("last event should be images:failed, got %v", got)
	}
}

func TestRunCallToAction(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeLLM{})
	p.Config.CTAURL = "https://example.com/seguime"

	res, err := p.Run(context.Background(), Options{Request: script.Request{Topic: "x"}, PlanOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	last := res.Media.Images[len(res.Media.Images)-1]
	if filepath.Base(last) != "cta_seg_03.png" {
		t.Errorf("expected the last still replaced by its CTA copy, got %s", last)
	}
	if _, err := os.Stat(filepath.Join(res.Dir, ImagesDir, "seg_03.png")); err != nil {
		t.Errorf("original still should be kept: %v", err)
	}
}

func TestRunPlanOverride(t *testing.T) {
	p, _, _ := newTestPipeline(t, &fakeLLM{})
	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	err := director.WriteScenario(&director.Scenario{Version: "1.0", Slides: []director.Slide{
		{ID: 2, Motion: "ken_burns_down", Intensity: 1.25},
	}}, planPath)
	if err != nil {
		t.Fatal(err)
	}

	res, err := p.Run(context.Background(), Options{Request: script.Request{Topic: "x"}, PlanPath: planPath, PlanOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	m := res.Timeline.Clips[1].Motion
	if m.Name != "ken_burns_down" || m.Intensity != 1.25 || m.Origin != "plan" {
		t.Errorf("plan should win over the guide, got %+v", m)
	}
}
