// Package voice turns narration text into speech.
package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/models"
)

// Synthesizer renders text as MP3 bytes.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// HTTPError is a non-2xx answer from a speech provider.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

func checkResponse(provider string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return &HTTPError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// Fallback tries Primary and, when it fails, Secondary once.
type Fallback struct {
	Primary   Synthesizer
	Secondary Synthesizer
	Logger    *zap.Logger
}

func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

func (f *Fallback) Synthesize(ctx context.Context, text string) ([]byte, error) {
	data, err := f.Primary.Synthesize(ctx, text)
	if err == nil {
		return data, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	logging.OrNop(f.Logger).Warn("primary voice failed, falling back",
		zap.String("primary", f.Primary.Name()),
		zap.String("fallback", f.Secondary.Name()),
		zap.Error(err))
	return f.Secondary.Synthesize(ctx, text)
}

// New picks the synthesizer for cfg: ElevenLabs with the free voice as
// fallback when a key is configured, the free voice alone otherwise.
func New(cfg *config.Config, logger *zap.Logger) Synthesizer {
	logger = logging.OrNop(logger)
	free := NewGoogleTTS(cfg.Language)
	if !cfg.UseElevenLabs {
		return free
	}
	if cfg.Credentials.ElevenLabsKey == "" {
		logger.Warn("ELEVENLABS_API_KEY is not set, using the free voice")
		return free
	}
	return &Fallback{
		Primary:   NewElevenLabs(cfg.Credentials.ElevenLabsKey, cfg.Credentials.ElevenLabsVoice),
		Secondary: free,
		Logger:    logger,
	}
}

const FullNarrationFile = "narracion_completa.mp3"

// SegmentFile is the per-segment clip name.
func SegmentFile(id int) string {
	return fmt.Sprintf("seg_%02d.mp3", id)
}

// Narration is what Narrate wrote.
type Narration struct {
	Full     string
	Segments []string
}

// Narrate writes the full narration and one clip per narrated segment into
// dir. Segment clips are produced concurrently and returned in script order.
func Narrate(ctx context.Context, syn Synthesizer, s *models.Script, dir string, workers int, logger *zap.Logger) (*Narration, error) {
	logger = logging.OrNop(logger)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	text := s.FullNarration()
	if text == "" {
		return nil, fmt.Errorf("script %q has no narration", s.Title)
	}

	logger.Info("generating narration", zap.String("voice", syn.Name()), zap.Int("segments", len(s.Segments)))
	full := filepath.Join(dir, FullNarrationFile)
	if err := synthesizeTo(ctx, syn, text, full); err != nil {
		return nil, fmt.Errorf("full narration: %w", err)
	}

	paths := make([]string, len(s.Segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seg := range s.Segments {
		narration := strings.TrimSpace(seg.Narration)
		if narration == "" {
			continue
		}
		g.Go(func() error {
			path := filepath.Join(dir, SegmentFile(seg.ID))
			if err := synthesizeTo(gctx, syn, narration, path); err != nil {
				return fmt.Errorf("narration for segment %d: %w", seg.ID, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := &Narration{Full: full}
	for _, p := range paths {
		if p != "" {
			n.Segments = append(n.Segments, p)
		}
	}
	logger.Info("narration ready", zap.String("full", full), zap.Int("segment_clips", len(n.Segments)))
	return n, nil
}

func synthesizeTo(ctx context.Context, syn Synthesizer, text, path string) error {
	data, err := syn.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
