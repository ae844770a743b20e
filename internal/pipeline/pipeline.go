// Package pipeline runs the stages of a video in order: script, edit guide,
// images, narration and final assembly. Every stage leaves its artifact in
// the run directory, and any artifact can be supplied instead of generated.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/director"
	"github.com/ivlev/faceless/internal/effects"
	"github.com/ivlev/faceless/internal/engine"
	"github.com/ivlev/faceless/internal/imagegen"
	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/script"
	"github.com/ivlev/faceless/internal/source"
	"github.com/ivlev/faceless/internal/system"
	"github.com/ivlev/faceless/internal/video"
	"github.com/ivlev/faceless/internal/voice"
)

// Artifact names inside a run directory.
const (
	ScriptFile = "script.json"
	EDLFile    = "edl.json"
	ReportFile = "reporte_edicion.txt"
	PlanFile   = "plan.yaml"
	VideoFile  = "video_final.mp4"
	ImagesDir  = "images"
	AudioDir   = "audio"

	benchmarkFile = "benchmark.log"
	pdfDPI        = 150
)

// ErrNoModel is returned when a stage needs the chat model and none is configured.
var ErrNoModel = errors.New("no language model configured")

// Completer is the chat model used for the script and the edit guide.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Options select what a run generates and what it reuses.
type Options struct {
	Request  script.Request
	Feedback string
	RunID    string

	// Existing artifacts; each one skips its stage.
	ScriptPath string
	EDLPath    string
	ImagesPath string // folder of stills or a PDF
	AudioPath  string
	PlanPath   string // plan.yaml overriding motions

	// PlanOnly stops after writing plan.yaml.
	PlanOnly bool
}

// Result lists what a run produced.
type Result struct {
	RunID      string
	Dir        string
	Script     *models.Script
	Guide      *models.EditGuide
	Media      models.MediaArtifacts
	ScriptPath string
	EDLPath    string
	ReportPath string
	PlanPath   string
	VideoPath  string
	Timeline   *engine.Timeline
}

type Pipeline struct {
	Config   *config.Config
	LLM      Completer
	Images   imagegen.Generator
	Voice    voice.Synthesizer
	Encoder  video.VideoEncoder
	Prober   engine.AudioProber
	Progress Progress

	logger *zap.Logger
}

func New(cfg *config.Config, llm Completer, images imagegen.Generator, syn voice.Synthesizer, enc video.VideoEncoder, prober engine.AudioProber, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		Config:   cfg,
		LLM:      llm,
		Images:   images,
		Voice:    syn,
		Encoder:  enc,
		Prober:   prober,
		Progress: nopProgress{},
		logger:   logging.OrNop(logger),
	}
}

type run struct {
	*Pipeline
	id    string
	dir   string
	stats *system.Stats
	res   *Result
}

func (r *run) emit(stage, status, msg, path string) {
	r.Progress.Report(Event{RunID: r.id, Stage: stage, Status: status, Message: msg, Path: path, Time: time.Now()})
}

// stage runs fn between started/done events and records its timing.
func (r *run) stage(name string, fn func() (string, error)) error {
	r.emit(name, StatusStarted, "", "")
	start := time.Now()
	path, err := fn()
	r.stats.Track(name, start)
	if err != nil {
		r.emit(name, StatusFailed, err.Error(), "")
		return fmt.Errorf("%s stage: %w", name, err)
	}
	r.emit(name, StatusDone, "", path)
	return nil
}

// Run executes the pipeline. Artifacts of completed stages stay on disk when
// a later stage fails.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	if p.Progress == nil {
		p.Progress = nopProgress{}
	}
	id := opts.RunID
	if id == "" {
		id = uuid.NewString()
	}
	dir := filepath.Join(p.Config.OutputDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	r := &run{Pipeline: p, id: id, dir: dir, stats: system.NewStats(), res: &Result{RunID: id, Dir: dir}}
	p.logger.Info("run started", zap.String("run_id", id), zap.String("dir", dir), zap.String("topic", opts.Request.Topic))

	steps := []struct {
		name string
		fn   func() (string, error)
	}{
		{StageScript, func() (string, error) { return r.script(ctx, opts) }},
		{StageEDL, func() (string, error) { return r.guide(ctx, opts) }},
		{StageImages, func() (string, error) { return r.images(ctx, opts) }},
		{StageAudio, func() (string, error) { return r.audio(ctx, opts) }},
		{StageVideo, func() (string, error) { return r.video(ctx, opts) }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return r.res, err
		}
		if err := r.stage(s.name, s.fn); err != nil {
			return r.res, err
		}
	}

	r.report(opts)
	return r.res, nil
}

func (r *run) script(ctx context.Context, opts Options) (string, error) {
	var s *models.Script
	var err error
	if opts.ScriptPath != "" {
		s, err = models.LoadScript(opts.ScriptPath)
		if err != nil {
			return "", err
		}
		r.logger.Info("reusing script", zap.String("path", opts.ScriptPath))
	} else {
		if r.LLM == nil {
			return "", ErrNoModel
		}
		req := opts.Request
		if req.Duration <= 0 {
			req.Duration = r.Config.Duration
		}
		if req.Style == "" {
			req.Style = r.Config.Style
		}
		if req.Tone == "" {
			req.Tone = r.Config.Tone
		}
		if req.Platform == "" {
			req.Platform = r.Config.Platform
		}
		s, err = script.NewWriter(r.LLM, r.logger).Generate(ctx, req)
		if err != nil {
			return "", err
		}
	}

	if opts.Feedback != "" {
		if r.LLM == nil {
			return "", ErrNoModel
		}
		s, err = script.NewWriter(r.LLM, r.logger).Refine(ctx, s, opts.Feedback)
		if err != nil {
			return "", err
		}
	}

	path := filepath.Join(r.dir, ScriptFile)
	if err := models.Save(path, s); err != nil {
		return "", err
	}
	r.res.Script, r.res.ScriptPath = s, path
	return path, nil
}

func (r *run) guide(ctx context.Context, opts Options) (string, error) {
	var g *models.EditGuide
	var err error
	switch {
	case opts.EDLPath != "":
		g, err = models.LoadEditGuide(opts.EDLPath)
		if err != nil {
			return "", err
		}
		r.logger.Info("reusing edit guide", zap.String("path", opts.EDLPath))
	case r.LLM != nil:
		g, err = director.NewDirector(r.LLM, r.logger).GenerateGuide(ctx, r.res.Script)
		if err != nil {
			return "", err
		}
	default:
		r.emit(StageEDL, StatusSkipped, "no language model, motions come from the script", "")
		return "", nil
	}

	path := filepath.Join(r.dir, EDLFile)
	if err := models.Save(path, g); err != nil {
		return "", err
	}
	report := filepath.Join(r.dir, ReportFile)
	if err := director.SaveReport(report, g); err != nil {
		return "", err
	}
	r.res.Guide, r.res.EDLPath, r.res.ReportPath = g, path, report
	return path, nil
}

func (r *run) images(ctx context.Context, opts Options) (string, error) {
	dir := filepath.Join(r.dir, ImagesDir)
	var paths []string
	var err error

	if opts.ImagesPath != "" {
		paths, err = r.importStills(opts.ImagesPath, dir)
		if err != nil {
			return "", err
		}
		r.logger.Info("reusing stills", zap.String("path", opts.ImagesPath), zap.Int("count", len(paths)))
	} else {
		if r.Images == nil {
			return "", errors.New("no image generator configured")
		}
		paths, err = imagegen.GenerateAll(ctx, r.Images, r.res.Script, dir, r.Config.Workers, r.logger)
		if err != nil {
			return "", err
		}
	}

	if r.Config.CTAURL != "" && len(paths) > 0 {
		last, err := r.stampCTA(paths[len(paths)-1], dir)
		if err != nil {
			return "", err
		}
		paths[len(paths)-1] = last
	}

	r.res.Media.Images = paths
	return dir, nil
}

// importStills lists a folder of stills, or renders a PDF's pages into dir.
func (r *run) importStills(path, dir string) ([]string, error) {
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if is, ok := src.(*source.ImageSource); ok {
		return is.Paths(), nil
	}
	return source.ExportStills(src, dir, pdfDPI, len(r.res.Script.Segments))
}

// stampCTA puts the QR code on a copy of the still inside the run directory,
// never on a user-supplied file.
func (r *run) stampCTA(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	target := filepath.Join(dir, "cta_"+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))+".png")
	img, err := source.LoadImage(path)
	if err != nil {
		return "", err
	}
	if err := source.SavePNG(target, img); err != nil {
		return "", err
	}
	if err := source.AddCTACode(target, r.Config.CTAURL); err != nil {
		return "", err
	}
	r.logger.Info("call to action added", zap.String("url", r.Config.CTAURL), zap.String("still", target))
	return target, nil
}

func (r *run) audio(ctx context.Context, opts Options) (string, error) {
	if opts.AudioPath != "" {
		r.res.Media.Narration = opts.AudioPath
		r.logger.Info("reusing narration", zap.String("path", opts.AudioPath))
		return opts.AudioPath, nil
	}
	if r.Voice == nil {
		return "", errors.New("no voice configured")
	}

	n, err := voice.Narrate(ctx, r.Voice, r.res.Script, filepath.Join(r.dir, AudioDir), r.Config.Workers, r.logger)
	if err != nil {
		return "", err
	}
	r.res.Media.Narration, r.res.Media.SegmentAudio = n.Full, n.Segments
	return n.Full, nil
}

func (r *run) video(ctx context.Context, opts Options) (string, error) {
	eff, err := r.effect(opts.PlanPath)
	if err != nil {
		return "", err
	}

	project := engine.NewVideoProject(r.Config, r.Encoder, eff, r.Prober, r.logger)
	project.OnClip = func(done, total int) {
		r.Progress.Report(Event{RunID: r.id, Stage: StageVideo, Status: StatusProgress, Done: done, Total: total, Time: time.Now()})
	}
	segments := r.res.Script.Segments

	if opts.PlanOnly {
		audioDuration, err := r.Prober.Duration(ctx, r.res.Media.Narration)
		if err != nil {
			return "", fmt.Errorf("probe narration: %w", err)
		}
		tl, err := project.Plan(segments, r.res.Media.Images, audioDuration)
		if err != nil {
			return "", err
		}
		r.res.Timeline = tl
		return r.writePlan(tl)
	}

	out := filepath.Join(r.dir, VideoFile)
	res, err := project.Assemble(ctx, segments, r.res.Media.Images, r.res.Media.Narration, out)
	if err != nil {
		return "", err
	}
	r.res.Timeline, r.res.VideoPath = res.Timeline, res.Path
	if _, err := r.writePlan(res.Timeline); err != nil {
		r.logger.Warn("could not write plan", zap.Error(err))
	}
	return res.Path, nil
}

func (r *run) effect(planPath string) (effects.Effect, error) {
	def := effects.NewDefaultEffect(r.Config.DefaultMotion, r.Config.DefaultIntensity)
	var plan *effects.PlanEffect
	if planPath != "" {
		sc, err := director.ReadScenario(planPath)
		if err != nil {
			return nil, err
		}
		plan = effects.NewPlanEffect(sc)
		r.logger.Info("motions overridden by plan", zap.String("path", planPath), zap.Int("slides", len(sc.Slides)))
	}
	return effects.Chain(def, r.res.Guide, plan), nil
}

func (r *run) writePlan(tl *engine.Timeline) (string, error) {
	path := filepath.Join(r.dir, PlanFile)
	sc := tl.Scenario(r.res.Script.Title, r.Config.Width, r.Config.Height, r.Config.FPS)
	if err := director.WriteScenario(sc, path); err != nil {
		return "", err
	}
	r.res.PlanPath = path
	return path, nil
}

func (r *run) report(opts Options) {
	if !r.Config.ShowStats {
		return
	}
	clips := 0
	if r.res.Timeline != nil {
		clips = len(r.res.Timeline.Clips)
	}
	fmt.Print(r.stats.Report(r.Config.BuildVersion, clips, system.SampleHost()))

	topic := opts.Request.Topic
	if topic == "" && r.res.Script != nil {
		topic = r.res.Script.Title
	}
	if err := r.stats.AppendBenchmark(filepath.Join(r.Config.OutputDir, benchmarkFile), r.Config.BuildVersion, topic, clips); err != nil {
		r.logger.Warn("could not append benchmark", zap.Error(err))
	}
}
