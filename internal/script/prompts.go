package script

const systemPrompt = `Sos un director creativo experto en contenido faceless para redes sociales.
Tu trabajo es crear guiones estructurados en JSON para videos cortos.

REGLAS:
- Escribí la narración en español argentino natural (vos, tenés, etc.)
- Cada segmento debe durar entre 5 y 10 segundos
- Las descripciones visuales deben ser detalladas para generar imágenes con IA
- Sugerí motions cinematográficos específicos
- Sugerí b-roll relevante y buscable
- Sugerí SFX apropiados para cada momento

MOTIONS DISPONIBLES:
- zoom_in_lento: Zoom suave hacia el centro (dramático, revelación)
- zoom_out_lento: Zoom alejándose (contexto, panorámica)
- pan_izquierda: Paneo horizontal izquierda (transición, exploración)
- pan_derecha: Paneo horizontal derecha (transición, exploración)
- ken_burns_arriba: Movimiento lento hacia arriba (ascenso, esperanza)
- ken_burns_abajo: Movimiento lento hacia abajo (descenso, peso)
- shake_suave: Temblor sutil (impacto, sorpresa)
- static: Sin movimiento (datos, texto en pantalla)

Respondé ÚNICAMENTE con JSON válido, sin markdown ni explicaciones.`

// duration, topic, style, tone, platform
const scriptRequest = `Creá un guión para un video de %d segundos sobre: "%s"

Estilo: %s
Tono: %s
Plataforma: %s

Respondé con este formato JSON exacto:
{
  "titulo": "string",
  "duracion_total": number,
  "estilo_visual": "descripción del estilo consistente para todas las imágenes",
  "segmentos": [
    {
      "id": number,
      "tiempo_inicio": number,
      "tiempo_fin": number,
      "narracion": "texto que se narra en voz",
      "visual_prompt": "prompt detallado en INGLÉS para DALL-E, incluyendo estilo",
      "motion": "tipo_de_motion",
      "motion_intensidad": "suave|medio|fuerte",
      "broll_sugerido": "descripción de b-roll para buscar, en español",
      "broll_timestamp": "momento exacto donde insertar b-roll (ej: 0:03-0:05)",
      "sfx_sugerido": "nombre/descripción del efecto de sonido",
      "sfx_timestamp": "momento del sfx",
      "transicion_siguiente": "tipo de transición al siguiente segmento"
    }
  ],
  "broll_resumen": ["lista de todos los b-roll que el usuario necesita buscar"],
  "sfx_resumen": ["lista de todos los sfx que el usuario necesita"],
  "notas_edicion": "consejos generales para la edición final"
}`

const refineRequest = `Tenés este guión:
%s

El usuario pide estos cambios: "%s"

Devolvé el guión COMPLETO modificado en el mismo formato JSON.`
