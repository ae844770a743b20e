package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full set of run parameters. It is built from defaults, an
// optional YAML file, the environment (.env included) and finally CLI flags.
type Config struct {
	// Video
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	FPS          int     `yaml:"fps"`
	FadeDuration float64 `yaml:"fade_duration"`
	VideoEncoder string  `yaml:"video_encoder"`
	Bitrate      string  `yaml:"bitrate"`
	AudioBitrate string  `yaml:"audio_bitrate"`
	Preset       string  `yaml:"preset"`
	Workers      int     `yaml:"workers"`

	// Motion used when neither the edit guide nor the script names one.
	DefaultMotion    string  `yaml:"default_motion"`
	DefaultIntensity float64 `yaml:"default_intensity"`

	// Script
	Duration int    `yaml:"duration"`
	Style    string `yaml:"style"`
	Tone     string `yaml:"tone"`
	Platform string `yaml:"platform"`
	Language string `yaml:"language"`

	// Images
	ImageSize    string `yaml:"image_size"`
	ImageQuality string `yaml:"image_quality"`
	Placeholders bool   `yaml:"placeholders"`

	// Voice
	UseElevenLabs bool `yaml:"use_elevenlabs"`

	OutputDir    string `yaml:"output_dir"`
	CTAURL       string `yaml:"cta_url"`
	ShowStats    bool   `yaml:"show_stats"`
	Debug        bool   `yaml:"debug"`
	ListenAddr   string `yaml:"listen_addr"`
	BuildVersion string `yaml:"-"`

	Credentials Credentials `yaml:"-"`
}

// Credentials are read from the environment only and never written to disk.
type Credentials struct {
	OpenAIKey       string
	OpenAIModel     string
	OpenAIBaseURL   string
	ElevenLabsKey   string
	ElevenLabsVoice string
}

// SegmentParams are the render parameters of one clip.
type SegmentParams struct {
	Width, Height int
	FPS           int
	Duration      float64
	FadeDuration  float64
	Index         int
	Motion        string
	Intensity     float64
}

func Default() *Config {
	return &Config{
		Width:            1080,
		Height:           1920,
		FPS:              30,
		FadeDuration:     0.3,
		VideoEncoder:     "auto",
		Bitrate:          "5000k",
		AudioBitrate:     "192k",
		Preset:           "medium",
		Workers:          runtime.NumCPU(),
		DefaultMotion:    "zoom_in",
		DefaultIntensity: 1.12,
		Duration:         60,
		Style:            "cinematográfico oscuro, alta calidad",
		Tone:             "informativo y enganchante",
		Platform:         "Instagram Reels / TikTok",
		Language:         "es",
		ImageSize:        "1024x1792",
		ImageQuality:     "hd",
		UseElevenLabs:    true,
		OutputDir:        "output",
		ListenAddr:       ":8080",
		BuildVersion:     "dev",
		Credentials: Credentials{
			OpenAIModel:     "gpt-4o",
			ElevenLabsVoice: "21m00Tcm4TlvDq8ikWAM",
		},
	}
}

// Load builds a config from defaults, the YAML file at path (skipped when
// empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Credentials.OpenAIKey, "OPENAI_API_KEY")
	set(&c.Credentials.OpenAIModel, "OPENAI_MODEL")
	set(&c.Credentials.OpenAIBaseURL, "OPENAI_BASE_URL")
	set(&c.Credentials.ElevenLabsKey, "ELEVENLABS_API_KEY")
	set(&c.Credentials.ElevenLabsVoice, "ELEVENLABS_VOICE_ID")
	set(&c.ImageSize, "IMAGE_SIZE")
	set(&c.ImageQuality, "IMAGE_QUALITY")
}

// MissingCredentialError is returned before any stage runs when a required
// key is absent.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing credential %s (set it in the environment or .env)", e.Name)
}

// Validate checks the parameters. needLLM is false when every LLM-backed
// artifact is supplied from disk.
func (c *Config) Validate(needLLM bool) error {
	if needLLM && c.Credentials.OpenAIKey == "" {
		return &MissingCredentialError{Name: "OPENAI_API_KEY"}
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0 {
		return fmt.Errorf("invalid resolution %dx%d: both sides must be positive and even", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", c.FPS)
	}
	if c.FadeDuration < 0 {
		return fmt.Errorf("invalid fade duration %.2f", c.FadeDuration)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

// ApplyPreset switches the frame size to a named aspect preset.
func (c *Config) ApplyPreset(name string) error {
	switch name {
	case "":
		return nil
	case "9:16":
		c.Width, c.Height = 1080, 1920
	case "16:9":
		c.Width, c.Height = 1920, 1080
	case "4:5":
		c.Width, c.Height = 1080, 1350
	case "1:1":
		c.Width, c.Height = 1080, 1080
	default:
		return fmt.Errorf("unknown preset %q", name)
	}
	return nil
}
