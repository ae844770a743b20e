// Package models holds the documents exchanged between pipeline stages:
// the script, the edit decision list and the media artifacts produced from them.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Number decodes either a JSON number, a numeric string or one of the
// intensity labels the script model tends to emit. Anything else decodes to 0,
// which callers treat as "unset".
type Number float64

var intensityLabels = map[string]float64{
	"suave":  1.08,
	"soft":   1.08,
	"medio":  1.12,
	"medium": 1.12,
	"fuerte": 1.2,
	"strong": 1.2,
}

func (n *Number) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == "" {
		*n = 0
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = 0
			return nil
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if v, ok := intensityLabels[s]; ok {
			*n = Number(v)
			return nil
		}
		s = strings.TrimSuffix(s, "x")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*n = Number(v)
			return nil
		}
		*n = 0
		return nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(v)
	return nil
}

// Text decodes a JSON string, or renders a number or boolean as text. Models
// alternate between "0:03" and 3 for timestamps.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*t = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(raw)
	return nil
}

// Segment is one narrated beat of the script.
type Segment struct {
	ID              int     `json:"id"`
	StartTime       float64 `json:"tiempo_inicio"`
	EndTime         float64 `json:"tiempo_fin"`
	Narration       string  `json:"narracion"`
	VisualPrompt    string  `json:"visual_prompt"`
	Motion          string  `json:"motion"`
	MotionIntensity Number  `json:"motion_intensidad"`
	BRollSuggested  string  `json:"broll_sugerido,omitempty"`
	BRollTimestamp  Text    `json:"broll_timestamp,omitempty"`
	SFXSuggested    string  `json:"sfx_sugerido,omitempty"`
	SFXTimestamp    Text    `json:"sfx_timestamp,omitempty"`
	NextTransition  string  `json:"transicion_siguiente,omitempty"`
}

// Duration is the nominal length of the segment; it may be zero or negative
// when the model produced inconsistent timings.
func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Script is the output of the script stage (script.json).
type Script struct {
	Title         string    `json:"titulo"`
	TotalDuration float64   `json:"duracion_total"`
	VisualStyle   string    `json:"estilo_visual"`
	Segments      []Segment `json:"segmentos"`
	BRollSummary  []string  `json:"broll_resumen,omitempty"`
	SFXSummary    []string  `json:"sfx_resumen,omitempty"`
	EditingNotes  string    `json:"notas_edicion,omitempty"`
}

// FullNarration joins every segment narration with single spaces.
func (s *Script) FullNarration() string {
	parts := make([]string, 0, len(s.Segments))
	for _, seg := range s.Segments {
		text := strings.TrimSpace(seg.Narration)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// EditGuide is the edit decision list produced by the editing director (edl.json).
// Only Timeline[].Motion affects rendering; the rest is advice for a human editor.
type EditGuide struct {
	Title             string          `json:"titulo"`
	TotalDuration     float64         `json:"duracion_total"`
	Summary           string          `json:"resumen_edicion,omitempty"`
	Timeline          []TimelineEntry `json:"timeline"`
	BRollShoppingList []string        `json:"broll_shopping_list,omitempty"`
	SFXShoppingList   []string        `json:"sfx_shopping_list,omitempty"`
	FinalTips         []string        `json:"tips_finales,omitempty"`
}

// Entry returns the timeline entry for a segment id.
func (g *EditGuide) Entry(segmentID int) (TimelineEntry, bool) {
	if g == nil {
		return TimelineEntry{}, false
	}
	for _, e := range g.Timeline {
		if e.SegmentID == segmentID {
			return e, true
		}
	}
	return TimelineEntry{}, false
}

type TimelineEntry struct {
	SegmentID        int           `json:"segmento_id"`
	Time             Text          `json:"tiempo"`
	NarrationPreview string        `json:"narracion_preview,omitempty"`
	Motion           MotionCue     `json:"motion"`
	BRollInserts     []BRollInsert `json:"broll_inserts,omitempty"`
	SFX              []SFXCue      `json:"sfx,omitempty"`
	OnScreenText     *TextCue      `json:"texto_pantalla,omitempty"`
	Transition       *Transition   `json:"transicion_siguiente,omitempty"`
}

type MotionCue struct {
	Type  string `json:"tipo"`
	Speed string `json:"velocidad,omitempty"`
	From  Number `json:"desde"`
	To    Number `json:"hasta"`
	Note  string `json:"nota,omitempty"`
}

// Intensity is the strongest scale the cue asks for, or 0 when the cue does
// not carry a usable value.
func (m MotionCue) Intensity() float64 {
	v := float64(m.From)
	if float64(m.To) > v {
		v = float64(m.To)
	}
	if v < 1 {
		return 0
	}
	return v
}

type BRollInsert struct {
	Timestamp   Text   `json:"timestamp"`
	Description string `json:"descripcion"`
	StockQuery  string `json:"buscar_en_stock,omitempty"`
	Reason      string `json:"razon,omitempty"`
}

type SFXCue struct {
	Timestamp Text   `json:"timestamp"`
	Effect    string `json:"efecto"`
	Intensity string `json:"intensidad,omitempty"`
	Note      string `json:"nota,omitempty"`
}

type TextCue struct {
	Show     bool   `json:"mostrar"`
	Text     string `json:"texto,omitempty"`
	Position string `json:"posicion,omitempty"`
	Style    string `json:"estilo,omitempty"`
	From     Text   `json:"desde,omitempty"`
	To       Text   `json:"hasta,omitempty"`
}

type Transition struct {
	Type     string `json:"tipo"`
	Duration Number `json:"duracion,omitempty"`
}

// MediaArtifacts are the file paths produced by the image and audio stages.
type MediaArtifacts struct {
	Images       []string `json:"images"`
	Narration    string   `json:"narration"`
	SegmentAudio []string `json:"segment_audio"`
}
