package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faceless.yaml")
	data := []byte("fps: 24\nstyle: terror\ndefault_intensity: 1.2\nworkers: 3\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.FPS != 24 || cfg.Style != "terror" || cfg.DefaultIntensity != 1.2 || cfg.Workers != 3 {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	// untouched fields keep their defaults
	if cfg.Width != 1080 || cfg.Height != 1920 || cfg.Bitrate != "5000k" {
		t.Errorf("defaults lost: %dx%d %s", cfg.Width, cfg.Height, cfg.Bitrate)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":      "sk-test",
		"OPENAI_MODEL":        "gpt-4o-mini",
		"ELEVENLABS_VOICE_ID": "voice-1",
		"IMAGE_QUALITY":       "standard",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Credentials.OpenAIKey != "sk-test" || cfg.Credentials.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("openai credentials not applied: %+v", cfg.Credentials)
	}
	if cfg.Credentials.ElevenLabsVoice != "voice-1" {
		t.Errorf("expected voice-1, got %s", cfg.Credentials.ElevenLabsVoice)
	}
	if cfg.ImageQuality != "standard" || cfg.ImageSize != "1024x1792" {
		t.Errorf("unexpected image settings %s %s", cfg.ImageSize, cfg.ImageQuality)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()

	err := cfg.Validate(true)
	var missing *MissingCredentialError
	if !errors.As(err, &missing) || missing.Name != "OPENAI_API_KEY" {
		t.Fatalf("expected missing OPENAI_API_KEY, got %v", err)
	}

	if err := cfg.Validate(false); err != nil {
		t.Errorf("no credential needed when artifacts are supplied: %v", err)
	}

	cfg.Credentials.OpenAIKey = "sk"
	cfg.Width = 1081
	if err := cfg.Validate(true); err == nil {
		t.Error("odd width should be rejected")
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyPreset("16:9"); err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("unexpected size %dx%d", cfg.Width, cfg.Height)
	}
	if err := cfg.ApplyPreset("3:2"); err == nil {
		t.Error("unknown preset should fail")
	}
}
