// Package api exposes the pipeline over HTTP: one-shot script, edit guide and
// speech endpoints plus background video jobs with a websocket progress feed.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/director"
	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/pipeline"
	"github.com/ivlev/faceless/internal/script"
	"github.com/ivlev/faceless/internal/voice"
)

// Runner runs one pipeline with its own progress sink.
type Runner func(ctx context.Context, opts pipeline.Options, progress pipeline.Progress) (*pipeline.Result, error)

type Server struct {
	cfg    *config.Config
	llm    pipeline.Completer
	voice  voice.Synthesizer
	run    Runner
	jobs   *JobStore
	logger *zap.Logger

	// ctx bounds background jobs.
	ctx context.Context
}

func NewServer(ctx context.Context, cfg *config.Config, llm pipeline.Completer, syn voice.Synthesizer, run Runner, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		llm:    llm,
		voice:  syn,
		run:    run,
		jobs:   NewJobStore(),
		logger: logging.OrNop(logger),
		ctx:    ctx,
	}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.POST("/script", s.generateScript)
		api.POST("/edl", s.generateGuide)
		api.POST("/tts", s.synthesize)
		api.POST("/generate", s.startJob)
		api.GET("/jobs/:id", s.getJob)
	}
	r.GET("/ws/jobs/:id", s.watchJob)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.cfg.BuildVersion})
}

type scriptRequest struct {
	Topic    string         `json:"topic"`
	Duration int            `json:"duration"`
	Style    string         `json:"style"`
	Tone     string         `json:"tone"`
	Platform string         `json:"platform"`
	Feedback string         `json:"feedback"`
	Script   *models.Script `json:"script"`
}

func (r scriptRequest) request(cfg *config.Config) script.Request {
	req := script.Request{Topic: r.Topic, Duration: r.Duration, Style: r.Style, Tone: r.Tone, Platform: r.Platform}
	if req.Duration <= 0 {
		req.Duration = cfg.Duration
	}
	if req.Style == "" {
		req.Style = cfg.Style
	}
	if req.Tone == "" {
		req.Tone = cfg.Tone
	}
	if req.Platform == "" {
		req.Platform = cfg.Platform
	}
	return req
}

// generateScript writes a new script, or refines the given one when feedback
// is present.
func (s *Server) generateScript(c *gin.Context) {
	if !s.requireModel(c) {
		return
	}
	var body scriptRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w := script.NewWriter(s.llm, s.logger)
	var out *models.Script
	var err error
	if body.Script != nil && strings.TrimSpace(body.Feedback) != "" {
		out, err = w.Refine(c.Request.Context(), body.Script, body.Feedback)
	} else {
		out, err = w.Generate(c.Request.Context(), body.request(s.cfg))
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) generateGuide(c *gin.Context) {
	if !s.requireModel(c) {
		return
	}
	var body struct {
		Script *models.Script `json:"script"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Script == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "script is required"})
		return
	}
	if err := body.Script.Validate(); err != nil {
		s.fail(c, err)
		return
	}

	guide, err := director.NewDirector(s.llm, s.logger).GenerateGuide(c.Request.Context(), body.Script)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, guide)
}

func (s *Server) synthesize(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	audio, err := s.voice.Synthesize(c.Request.Context(), body.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

func (s *Server) startJob(c *gin.Context) {
	var body scriptRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(body.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}

	job := s.jobs.Create(body.Topic)
	opts := pipeline.Options{Request: body.request(s.cfg), Feedback: body.Feedback, RunID: job.ID}
	progress := pipeline.ProgressFunc(func(e pipeline.Event) { s.jobs.Report(job.ID, e) })

	go func() {
		s.logger.Info("job started", zap.String("job_id", job.ID), zap.String("topic", body.Topic))
		res, err := s.run(s.ctx, opts, progress)
		if err != nil {
			s.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		s.jobs.Finish(job.ID, res, err)
	}()

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (s *Server) getJob(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) requireModel(c *gin.Context) bool {
	if s.llm != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "OPENAI_API_KEY is not configured"})
	return false
}

// fail maps an error to a status: bad documents are the caller's fault,
// everything else is an upstream failure.
func (s *Server) fail(c *gin.Context, err error) {
	var schema *models.SchemaError
	status := http.StatusBadGateway
	switch {
	case errors.As(err, &schema):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, script.ErrEmptyTopic):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		status = 499
	}
	s.logger.Warn("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}
