package director

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ivlev/faceless/internal/logging"
	"github.com/ivlev/faceless/internal/models"
)

// Completer sends one system+user exchange to a chat model and returns the
// raw JSON answer.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string, temperature float64) (string, error)
}

// Director turns a script into an edit decision list.
type Director struct {
	llm         Completer
	logger      *zap.Logger
	Temperature float64
}

func NewDirector(llm Completer, logger *zap.Logger) *Director {
	return &Director{llm: llm, logger: logging.OrNop(logger), Temperature: 0.7}
}

// GenerateGuide asks the model for an edit guide covering every segment of s.
func (d *Director) GenerateGuide(ctx context.Context, s *models.Script) (*models.EditGuide, error) {
	doc, err := models.Encode(s)
	if err != nil {
		return nil, err
	}

	d.logger.Info("generating edit guide", zap.String("title", s.Title), zap.Int("segments", len(s.Segments)))
	raw, err := d.llm.CompleteJSON(ctx, directorPrompt, fmt.Sprintf(guideRequest, doc), d.Temperature)
	if err != nil {
		return nil, fmt.Errorf("edit guide: %w", err)
	}

	guide, err := models.DecodeEditGuide([]byte(raw))
	if err != nil {
		return nil, err
	}

	if len(guide.Timeline) != len(s.Segments) {
		d.logger.Warn("edit guide does not cover every segment",
			zap.Int("segments", len(s.Segments)), zap.Int("timeline", len(guide.Timeline)))
	}
	d.logger.Info("edit guide ready", zap.Int("timeline", len(guide.Timeline)))
	return guide, nil
}

const directorPrompt = `Sos un editor de video profesional especializado en contenido faceless viral.
Tu trabajo es analizar un guión y crear una GUÍA DE EDICIÓN DETALLADA.

Pensá como un editor de CapCut/Premiere que necesita instrucciones precisas.

Para cada segmento, definí:

1. MOTION: qué movimiento aplicar a la imagen base
   - zoom_in: acercar al centro (momentos dramáticos, revelaciones)
   - zoom_out: alejar (dar contexto, mostrar panorama)
   - pan_left / pan_right: paneo horizontal (transiciones, exploración)
   - ken_burns_up / ken_burns_down: movimiento vertical lento
   - shake: temblor (impacto, sorpresa, dato fuerte)
   - static: sin movimiento (texto en pantalla, datos)
   - scale_pulse: pulso de zoom rápido (para enfatizar algo)
   Incluí velocidad (lento/medio/rapido) e intensidad (1.0x a 1.3x).

2. B-ROLL: momentos exactos donde insertar video real, con timestamp preciso,
   qué buscar, por qué ahí y una búsqueda en inglés para stock.

3. SFX: timestamp, nombre del efecto (whoosh, impact, riser...) e intensidad (sutil/medio/fuerte).

4. TRANSICIONES entre segmentos: tipo (cut, crossfade, whip, zoom_transition, glitch) y duración.

5. TEXTO EN PANTALLA si aplica: texto, posición, estilo y timing.

Respondé ÚNICAMENTE con JSON válido.`

const guideRequest = `Analizá este guión y generá una guía de edición completa:

%s

Respondé con este formato JSON:
{
  "titulo": "nombre del proyecto",
  "duracion_total": number,
  "resumen_edicion": "descripción general del estilo de edición",
  "timeline": [
    {
      "segmento_id": number,
      "tiempo": "0:00 - 0:08",
      "narracion_preview": "primeras palabras...",
      "motion": {"tipo": "zoom_in", "velocidad": "lento", "desde": 1.0, "hasta": 1.15, "nota": "por qué este motion"},
      "broll_inserts": [{"timestamp": "0:03.0 - 0:05.0", "descripcion": "qué mostrar", "buscar_en_stock": "search query in english", "razon": "por qué acá"}],
      "sfx": [{"timestamp": "0:00.0", "efecto": "nombre del sfx", "intensidad": "sutil|medio|fuerte", "nota": "detalle"}],
      "texto_pantalla": {"mostrar": true, "texto": "texto a mostrar", "posicion": "centro|arriba|abajo", "estilo": "bold grande|subtítulo|número destacado", "desde": "0:01.0", "hasta": "0:04.0"},
      "transicion_siguiente": {"tipo": "crossfade|cut|whip|zoom", "duracion": 0.5}
    }
  ],
  "broll_shopping_list": ["b-roll a buscar con queries en inglés"],
  "sfx_shopping_list": ["SFX necesarios"],
  "tips_finales": ["consejos de edición"]
}`
