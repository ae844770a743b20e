package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SchemaError reports a document that does not have the shape later stages need.
type SchemaError struct {
	Document string
	Problems []string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Document, strings.Join(e.Problems, "; "))
}

func (e *SchemaError) Unwrap() error { return e.Err }

// StripFences removes a surrounding Markdown code fence, which chat models
// sometimes wrap JSON in even when asked not to.
func StripFences(data []byte) []byte {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

// DecodeScript parses and validates a script document.
func DecodeScript(data []byte) (*Script, error) {
	var s Script
	if err := json.Unmarshal(StripFences(data), &s); err != nil {
		return nil, &SchemaError{Document: "script", Problems: []string{err.Error()}, Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the script and renumbers segments without an id.
func (s *Script) Validate() error {
	var problems []string
	if len(s.Segments) == 0 {
		problems = append(problems, "no segments")
	}

	hasNarration := false
	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.ID <= 0 {
			seg.ID = i + 1
		}
		if seg.StartTime < 0 || seg.EndTime < 0 {
			problems = append(problems, fmt.Sprintf("segment %d has negative time", seg.ID))
		}
		if strings.TrimSpace(seg.Narration) != "" {
			hasNarration = true
		}
	}
	if len(s.Segments) > 0 && !hasNarration {
		problems = append(problems, "no segment has narration")
	}

	if len(problems) > 0 {
		return &SchemaError{Document: "script", Problems: problems}
	}
	return nil
}

// DecodeEditGuide parses and validates an edit decision list.
func DecodeEditGuide(data []byte) (*EditGuide, error) {
	var g EditGuide
	if err := json.Unmarshal(StripFences(data), &g); err != nil {
		return nil, &SchemaError{Document: "edl", Problems: []string{err.Error()}, Err: err}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Validate renumbers timeline entries without a segment id by position and
// rejects duplicate ids.
func (g *EditGuide) Validate() error {
	var problems []string
	seen := make(map[int]bool, len(g.Timeline))
	for i := range g.Timeline {
		e := &g.Timeline[i]
		if e.SegmentID <= 0 {
			e.SegmentID = i + 1
		}
		if seen[e.SegmentID] {
			problems = append(problems, fmt.Sprintf("duplicate segmento_id %d", e.SegmentID))
		}
		seen[e.SegmentID] = true
	}
	if len(problems) > 0 {
		return &SchemaError{Document: "edl", Problems: problems}
	}
	return nil
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeScript(data)
}

func LoadEditGuide(path string) (*EditGuide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeEditGuide(data)
}

// Encode renders v as indented UTF-8 JSON without HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes v to path as indented JSON, creating parent directories.
func Save(path string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
