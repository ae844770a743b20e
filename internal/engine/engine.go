package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/effects"
	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/renderer"
	"github.com/ivlev/faceless/internal/source"
	"github.com/ivlev/faceless/internal/video"
)

// ErrNoSegments is returned when no segment can be paired with an image.
var ErrNoSegments = errors.New("no segment has an image to render")

// AudioProber reports the duration of an audio file in seconds.
type AudioProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Clip is one segment paired with its image, ready to render.
type Clip struct {
	Index   int
	Segment models.Segment
	Image   string
	Start   float64
	Params  config.SegmentParams
	Motion  effects.Resolved
}

// Timeline is the pure render plan: which clips are rendered, for how long and
// with what motion.
type Timeline struct {
	Clips         []Clip
	AudioDuration float64
	// VideoDuration is the length of the rendered frames, which may differ
	// from the planned segment times by up to half a frame per clip.
	VideoDuration float64
	// Skipped counts segments left out because there were fewer images.
	Skipped int
}

// durationEpsilon absorbs float noise when comparing frame time with audio.
const durationEpsilon = 1e-6

// Truncated reports whether the video is cut to the audio length on export.
func (tl *Timeline) Truncated() bool {
	return tl.AudioDuration > 0 && tl.VideoDuration-tl.AudioDuration > durationEpsilon
}

// OutputDuration is the length of the exported video. A video shorter than
// its audio is not padded.
func (tl *Timeline) OutputDuration() float64 {
	if tl.Truncated() {
		return tl.AudioDuration
	}
	return tl.VideoDuration
}

// Result is what Assemble produced.
type Result struct {
	Path     string
	Timeline *Timeline
}

// VideoProject assembles the final video from segments, stills and narration.
type VideoProject struct {
	Config  *config.Config
	Encoder video.VideoEncoder
	Effect  effects.Effect
	Prober  AudioProber
	// OnClip, when set, is called after every rendered clip.
	OnClip func(done, total int)

	logger *zap.Logger
}

func NewVideoProject(cfg *config.Config, ve video.VideoEncoder, eff effects.Effect, prober AudioProber, logger *zap.Logger) *VideoProject {
	if eff == nil {
		eff = effects.NewDefaultEffect(cfg.DefaultMotion, cfg.DefaultIntensity)
	}
	return &VideoProject{
		Config:  cfg,
		Encoder: ve,
		Effect:  eff,
		Prober:  prober,
		logger:  logging.OrNop(logger),
	}
}

// Plan pairs segments with images by position, computes durations and
// resolves motions. Extra segments beyond the image count are dropped.
func (p *VideoProject) Plan(segments []models.Segment, images []string, audioDuration float64) (*Timeline, error) {
	n := len(segments)
	if len(images) < n {
		n = len(images)
	}
	if n == 0 {
		return nil, ErrNoSegments
	}

	if len(images) < len(segments) {
		p.logger.Warn("fewer images than segments, rendering the first segments only",
			zap.Int("segments", len(segments)), zap.Int("images", len(images)), zap.Int("rendered", n))
	} else if len(images) > len(segments) {
		p.logger.Debug("ignoring extra images", zap.Int("extra", len(images)-len(segments)))
	}

	durations := ComputeDurations(segments, audioDuration)[:n]
	tl := &Timeline{
		Clips:         make([]Clip, n),
		AudioDuration: audioDuration,
		Skipped:       len(segments) - n,
	}

	start := 0.0
	for i := 0; i < n; i++ {
		seg := segments[i]
		res := p.Effect.Resolve(i, seg)
		if res.Clamped() {
			p.logger.Warn("motion intensity out of range, clamped",
				zap.Int("segment", seg.ID), zap.Float64("requested", res.Requested), zap.Float64("used", res.Intensity))
		}

		fade := p.Config.FadeDuration
		if 2*fade > durations[i] {
			fade = durations[i] / 2
		}

		tl.Clips[i] = Clip{
			Index:   i,
			Segment: seg,
			Image:   images[i],
			Start:   start,
			Motion:  res,
			Params: config.SegmentParams{
				Width:        p.Config.Width,
				Height:       p.Config.Height,
				FPS:          p.Config.FPS,
				Duration:     durations[i],
				FadeDuration: fade,
				Index:        i,
				Motion:       res.Name,
				Intensity:    res.Intensity,
			},
		}
		start += renderedDuration(durations[i], p.Config.FPS)
	}
	tl.VideoDuration = start
	return tl, nil
}

// Assemble renders every clip, concatenates them, binds the narration and
// writes output. Temporary clips are removed on every path.
func (p *VideoProject) Assemble(ctx context.Context, segments []models.Segment, images []string, audioPath, output string) (*Result, error) {
	audioDuration, err := p.Prober.Duration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probe narration: %w", err)
	}

	tl, err := p.Plan(segments, images, audioDuration)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "faceless_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	p.logger.Info("assembling video",
		zap.Int("clips", len(tl.Clips)),
		zap.Float64("video_seconds", tl.VideoDuration),
		zap.Float64("audio_seconds", tl.AudioDuration),
		zap.String("resolution", fmt.Sprintf("%dx%d@%d", p.Config.Width, p.Config.Height, p.Config.FPS)))

	clipPaths := make([]string, len(tl.Clips))
	workers := p.Config.Workers
	if workers <= 0 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var done atomic.Int32
	for _, c := range tl.Clips {
		g.Go(func() error {
			path := filepath.Join(tempDir, fmt.Sprintf("s%d.mp4", c.Index))
			if err := p.renderClip(gctx, c, path); err != nil {
				return fmt.Errorf("segment %d: %w", c.Segment.ID, err)
			}
			clipPaths[c.Index] = path

			n := int(done.Add(1))
			p.logger.Debug("clip ready",
				zap.Int("segment", c.Segment.ID),
				zap.String("motion", c.Motion.Name),
				zap.String("origin", c.Motion.Origin),
				zap.Int("done", n), zap.Int("total", len(tl.Clips)))
			if p.OnClip != nil {
				p.OnClip(n, len(tl.Clips))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	opts := video.ExportOptions{AudioPath: audioPath}
	if tl.Truncated() {
		opts.MaxDuration = tl.AudioDuration
		p.logger.Info("truncating video to narration length",
			zap.Float64("video_seconds", tl.VideoDuration), zap.Float64("audio_seconds", tl.AudioDuration))
	} else if tl.VideoDuration < tl.AudioDuration {
		p.logger.Warn("video is shorter than narration; the tail plays over the last frame",
			zap.Float64("video_seconds", tl.VideoDuration), zap.Float64("audio_seconds", tl.AudioDuration))
	}

	if err := p.Encoder.Export(ctx, clipPaths, output, tempDir, opts); err != nil {
		return nil, fmt.Errorf("export %s: %w", output, err)
	}
	return &Result{Path: output, Timeline: tl}, nil
}

// renderedDuration is the time covered by the whole frames a clip renders.
func renderedDuration(d float64, fps int) float64 {
	if fps <= 0 {
		return d
	}
	return float64(renderer.FrameCount(d, fps)) / float64(fps)
}

func (p *VideoProject) renderClip(ctx context.Context, c Clip, path string) error {
	processed, err := source.NormalizeFile(c.Image, c.Params.Width, c.Params.Height)
	if err != nil {
		return fmt.Errorf("normalize %s: %w", c.Image, err)
	}
	img, err := source.LoadImage(processed)
	if err != nil {
		return err
	}

	clip := renderer.NewClip(img, c.Params)
	defer clip.Close()
	return p.Encoder.EncodeSegment(ctx, clip, path, c.Params)
}
