// Package script writes and refines narrated scripts with a chat model.
package script

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/models"
)

var ErrEmptyTopic = errors.New("topic is empty")

// Completer sends one system+user exchange to a chat model and returns the
// raw JSON answer.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Request describes the video to script.
type Request struct {
	Topic    string
	Duration int
	Style    string
	Tone     string
	Platform string
}

const (
	DefaultDuration = 60
	DefaultStyle    = "cinematográfico oscuro, alta calidad"
	DefaultTone     = "informativo y enganchante"
	DefaultPlatform = "Instagram Reels / TikTok"
)

func (r Request) withDefaults() Request {
	if r.Duration <= 0 {
		r.Duration = DefaultDuration
	}
	if strings.TrimSpace(r.Style) == "" {
		r.Style = DefaultStyle
	}
	if strings.TrimSpace(r.Tone) == "" {
		r.Tone = DefaultTone
	}
	if strings.TrimSpace(r.Platform) == "" {
		r.Platform = DefaultPlatform
	}
	return r
}

type Writer struct {
	llm    Completer
	logger *zap.Logger

	Temperature       float64
	RefineTemperature float64
}

func NewWriter(llm Completer, logger *zap.Logger) *Writer {
	return &Writer{
		llm:               llm,
		logger:            logging.OrNop(logger),
		Temperature:       0.8,
		RefineTemperature: 0.7,
	}
}

// Generate writes a new script for req.
func (w *Writer) Generate(ctx context.Context, req Request) (*models.Script, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, ErrEmptyTopic
	}
	req = req.withDefaults()

	w.logger.Info("generating script",
		zap.String("topic", req.Topic), zap.Int("duration", req.Duration), zap.String("style", req.Style))

	user := fmt.Sprintf(scriptRequest, req.Duration, req.Topic, req.Style, req.Tone, req.Platform)
	raw, err := w.llm.CompleteJSON(ctx, systemPrompt, user, w.Temperature)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	s, err := models.DecodeScript([]byte(raw))
	if err != nil {
		return nil, err
	}
	if s.Title == "" {
		s.Title = req.Topic
	}
	w.logger.Info("script ready", zap.String("title", s.Title), zap.Int("segments", len(s.Segments)))
	return s, nil
}

// Refine asks the model to rewrite s following the user's feedback. The
// result is validated like a fresh script.
func (w *Writer) Refine(ctx context.Context, s *models.Script, feedback string) (*models.Script, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return s, nil
	}

	doc, err := models.Encode(s)
	if err != nil {
		return nil, err
	}

	w.logger.Info("refining script", zap.String("feedback", preview(feedback, 50)))
	raw, err := w.llm.CompleteJSON(ctx, systemPrompt, fmt.Sprintf(refineRequest, doc, feedback), w.RefineTemperature)
	if err != nil {
		return nil, fmt.Errorf("refine script: %w", err)
	}

	refined, err := models.DecodeScript([]byte(raw))
	if err != nil {
		return nil, err
	}
	if refined.Title == "" {
		refined.Title = s.Title
	}
	return refined, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
