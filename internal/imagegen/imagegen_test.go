package imagegen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/ivlev/faceless/internal/models"
	"github.com/ivlev/faceless/internal/source"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("oscuro", "a lonely lighthouse")
	want := stylePrefix + "oscuro. a lonely lighthouse"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	long := BuildPrompt("ñ", strings.Repeat("á", 5000))
	if n := len([]rune(long)); n != MaxPromptLength {
		t.Errorf("expected prompt capped at %d characters, got %d", MaxPromptLength, n)
	}
}

type fakeImageAPI struct {
	prompt, size, quality string
}

func (f *fakeImageAPI) GenerateImage(ctx context.Context, prompt, size, quality string) ([]byte, error) {
	f.prompt, f.size, f.quality = prompt, size, quality
	return []byte("png"), nil
}

func TestDallE(t *testing.T) {
	api := &fakeImageAPI{}
	d := &DallE{API: api, Size: "1024x1792", Quality: "hd"}
	path := filepath.Join(t.TempDir(), FileName(3))

	if err := d.Generate(context.Background(), models.Segment{ID: 3, VisualPrompt: "fog"}, "noir", path); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(api.prompt, "noir. fog") || api.size != "1024x1792" || api.quality != "hd" {
		t.Errorf("unexpected request %+v", api)
	}
	if data, _ := os.ReadFile(path); string(data) != "png" {
		t.Errorf("unexpected file content %q", data)
	}
	if filepath.Base(path) != "seg_03.png" {
		t.Errorf("unexpected name %s", path)
	}
}

func TestPlaceholderCard(t *testing.T) {
	p := Placeholder{Width: 400, Height: 240}
	img := p.Card("Cucharas de azúcar apiladas sobre una mesa de madera oscura")

	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 240 {
		t.Fatalf("unexpected size %v", b)
	}
	if c := img.RGBAAt(0, 0); c != cardBackground {
		t.Errorf("corner should be background, got %v", c)
	}

	lit := 0
	for y := 0; y < 240; y++ {
		for x := 0; x < 400; x++ {
			if img.RGBAAt(x, y) == cardText {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("no text pixels drawn")
	}
	t.Logf("%d text pixels", lit)
}

func TestWrap(t *testing.T) {
	d := &font.Drawer{Face: basicfont.Face7x13}
	lines := wrap(d, "uno dos tres cuatro cinco seis", 7*10)
	for _, l := range lines {
		if len(l) >= 10 && strings.Contains(l, " ") {
			t.Errorf("line %q is wider than the limit", l)
		}
	}
	if strings.Join(lines, " ") != "uno dos tres cuatro cinco seis" {
		t.Errorf("words lost: %q", lines)
	}
	if got := wrap(d, "   ", 100); len(got) != 0 {
		t.Errorf("expected no lines, got %q", got)
	}
}

func TestPlaceholderGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg_01.png")
	seg := models.Segment{ID: 1, VisualPrompt: strings.Repeat("x", 300)}
	if err := (Placeholder{Width: 40, Height: 72}).Generate(context.Background(), seg, "", path); err != nil {
		t.Fatal(err)
	}
	img, err := source.LoadImage(path)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 72 {
		t.Errorf("unexpected size %v", b)
	}
}

type recordingGenerator struct {
	mu    sync.Mutex
	seen  []int
	fail  int
	style string
}

func (g *recordingGenerator) Generate(ctx context.Context, seg models.Segment, style, path string) error {
	if seg.ID == g.fail {
		return errors.New("content policy")
	}
	g.mu.Lock()
	g.seen = append(g.seen, seg.ID)
	g.style = style
	g.mu.Unlock()
	return os.WriteFile(path, []byte{1}, 0644)
}

func TestGenerateAll(t *testing.T) {
	s := &models.Script{VisualStyle: "oscuro", Segments: []models.Segment{
		{ID: 1, VisualPrompt: "a"},
		{ID: 2},
		{ID: 3, VisualPrompt: "c"},
		{ID: 4, VisualPrompt: "d"},
	}}
	dir := filepath.Join(t.TempDir(), "images")
	gen := &recordingGenerator{}

	paths, err := GenerateAll(context.Background(), gen, s, dir, 3, nil)
	if err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	want := []string{"seg_01.png", "seg_03.png", "seg_04.png"}
	if len(paths) != len(want) {
		t.Fatalf("got %v", paths)
	}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Errorf("path %d: got %s, want %s", i, filepath.Base(p), want[i])
		}
	}
	if gen.style != "oscuro" {
		t.Errorf("style not passed through: %q", gen.style)
	}
}

func TestGenerateAllError(t *testing.T) {
	s := &models.Script{Segments: []models.Segment{{ID: 1, VisualPrompt: "a"}, {ID: 2, VisualPrompt: "b"}}}
	_, err := GenerateAll(context.Background(), &recordingGenerator{fail: 2}, s, t.TempDir(), 1, nil)
	if err == nil || !strings.Contains(err.Error(), "segment 2") {
		t.Errorf("expected error naming segment 2, got %v", err)
	}
}
