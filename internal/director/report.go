package director

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ivlev/faceless/internal/models"
)

// WriteReport renders the edit guide as the plain-text report an editor keeps
// open next to CapCut or Premiere.
func WriteReport(w io.Writer, g *models.EditGuide) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "REPORTE DE EDICIÓN: %s\n", g.Title)
	fmt.Fprintf(bw, "Duración: %ss\n", formatNumber(g.TotalDuration))
	if g.Summary != "" {
		fmt.Fprintln(bw, g.Summary)
	}
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw)

	for _, e := range g.Timeline {
		fmt.Fprintf(bw, "--- SEGMENTO %d [%s] ---\n", e.SegmentID, e.Time)
		fmt.Fprintf(bw, "  MOTION: %s | %s | %sx → %sx\n",
			orDefault(e.Motion.Type, "none"), e.Motion.Speed,
			formatNumber(float64(e.Motion.From)), formatNumber(float64(e.Motion.To)))
		if e.Motion.Note != "" {
			fmt.Fprintf(bw, "    nota: %s\n", e.Motion.Note)
		}

		for _, br := range e.BRollInserts {
			fmt.Fprintf(bw, "  B-ROLL [%s]: %s\n", br.Timestamp, br.Description)
			fmt.Fprintf(bw, "    → Buscar: %q\n", br.StockQuery)
		}
		for _, sfx := range e.SFX {
			fmt.Fprintf(bw, "  SFX [%s]: %s (%s)\n", sfx.Timestamp, sfx.Effect, sfx.Intensity)
		}
		if t := e.OnScreenText; t != nil && t.Show {
			fmt.Fprintf(bw, "  TEXTO [%s-%s]: %q\n", t.From, t.To, t.Text)
		}

		tipo, dur := "cut", 0.0
		if e.Transition != nil {
			tipo = orDefault(e.Transition.Type, "cut")
			dur = float64(e.Transition.Duration)
		}
		fmt.Fprintf(bw, "  TRANSICIÓN → %s (%ss)\n", tipo, formatNumber(dur))
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw, "B-ROLL A BUSCAR:")
	for _, br := range g.BRollShoppingList {
		fmt.Fprintf(bw, "  □ %s\n", br)
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "SFX NECESARIOS:")
	for _, sfx := range g.SFXShoppingList {
		fmt.Fprintf(bw, "  □ %s\n", sfx)
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "TIPS:")
	for _, tip := range g.FinalTips {
		fmt.Fprintf(bw, "  • %s\n", tip)
	}

	return bw.Flush()
}

// SaveReport writes the report to path, creating parent directories.
func SaveReport(path string, g *models.EditGuide) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteReport(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
