package nlp

import (
	"bytes"
	"encoding/json"
	"strings"

	"personas/internal/personas/models"
)

const promptPreamble = `Eres un asistente que responde preguntas sobre una base de datos de personas.

INSTRUCCIONES:
1. Responde basándote ÚNICAMENTE en los datos proporcionados.
2. Si la pregunta es sobre la persona más joven, calcula basándote en fecha_nacimiento.
3. Si no puedes responder con los datos disponibles, indícalo claramente.
4. Sé conciso y directo en tu respuesta.`

// BuildPrompt renders the grounding prompt: instructions, the snapshot as
// indented JSON with ISO dates and unescaped non-ASCII text, then the
// question verbatim.
func BuildPrompt(question string, records []models.Record) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []models.Record{}
	}
	if err := enc.Encode(records); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\nCONTEXTO DE LA BASE DE DATOS:\n")
	b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	b.WriteString("\n\nPREGUNTA DEL USUARIO:\n")
	b.WriteString(question)
	b.WriteString("\n\nRESPUESTA:\n")
	return b.String(), nil
}
