// Package imagegen produces one still per script segment.
package imagegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/models"
)

const (
	stylePrefix = "Cinematic, high quality, 4K, dramatic lighting, no text, no watermarks, no logos, no human faces visible, "

	// MaxPromptLength is the longest prompt the image model accepts.
	MaxPromptLength = 4000
)

// BuildPrompt prefixes the segment prompt with the house style and the
// script's visual style, capped at MaxPromptLength characters.
func BuildPrompt(style, prompt string) string {
	full := stylePrefix + strings.TrimSpace(style) + ". " + strings.TrimSpace(prompt)
	if r := []rune(full); len(r) > MaxPromptLength {
		full = string(r[:MaxPromptLength])
	}
	return full
}

// Generator writes the still of one segment to path.
type Generator interface {
	Generate(ctx context.Context, seg models.Segment, style, path string) error
}

// ImageAPI is the part of the model client used for stills.
type ImageAPI interface {
	GenerateImage(ctx context.Context, prompt, size, quality string) ([]byte, error)
}

// DallE renders stills through the image generation API.
type DallE struct {
	API     ImageAPI
	Size    string
	Quality string
}

func (d *DallE) Generate(ctx context.Context, seg models.Segment, style, path string) error {
	data, err := d.API.GenerateImage(ctx, BuildPrompt(style, seg.VisualPrompt), d.Size, d.Quality)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FileName is the still name of a segment.
func FileName(id int) string {
	return fmt.Sprintf("seg_%02d.png", id)
}

// GenerateAll renders every segment that has a visual prompt into dir with
// at most workers requests in flight. Paths are returned in segment order;
// segments without a prompt are skipped.
func GenerateAll(ctx context.Context, gen Generator, s *models.Script, dir string, workers int, logger *zap.Logger) ([]string, error) {
	logger = logging.OrNop(logger)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}

	paths := make([]string, len(s.Segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, seg := range s.Segments {
		if strings.TrimSpace(seg.VisualPrompt) == "" {
			logger.Warn("segment has no visual prompt, skipping", zap.Int("segment", seg.ID))
			continue
		}
		g.Go(func() error {
			path := filepath.Join(dir, FileName(seg.ID))
			if err := gen.Generate(gctx, seg, s.VisualStyle, path); err != nil {
				return fmt.Errorf("image for segment %d: %w", seg.ID, err)
			}
			logger.Info("image ready", zap.Int("segment", seg.ID), zap.String("path", path))
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := paths[:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
