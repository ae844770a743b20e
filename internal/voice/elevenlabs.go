package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const (
	elevenLabsURL     = "https://api.elevenlabs.io/v1"
	DefaultVoiceID    = "21m00Tcm4TlvDq8ikWAM"
	multilingualModel = "eleven_multilingual_v2"
)

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ElevenLabs is the premium voice.
type ElevenLabs struct {
	APIKey   string
	VoiceID  string
	Model    string
	Settings VoiceSettings
	BaseURL  string
	Client   *http.Client
}

func NewElevenLabs(apiKey, voiceID string) *ElevenLabs {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	return &ElevenLabs{
		APIKey:  apiKey,
		VoiceID: voiceID,
		Model:   multilingualModel,
		Settings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.3,
			UseSpeakerBoost: true,
		},
		BaseURL: elevenLabsURL,
		Client:  http.DefaultClient,
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"text":           text,
		"model_id":       e.Model,
		"voice_settings": e.Settings,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", e.BaseURL, url.PathEscape(e.VoiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.APIKey)

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkResponse(e.Name(), resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}
