package nlp

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"personas/internal/personas/models"
)

// Intent is a question category recognized by marker substrings.
type Intent string

const (
	IntentYoungest Intent = "youngest"
	IntentCount    Intent = "count"
	IntentList     Intent = "list"
	IntentDefault  Intent = "default"
)

// listSize bounds the names enumerated by the list intent.
const listSize = 5

const (
	NoRecordsMessage = "No hay datos de personas registradas en el sistema."
	msgYoungest      = "La persona registrada más joven es %s, nacida el %s."
	msgCount         = "Hay %d personas registradas en el sistema."
	msgList          = "Algunas personas registradas son: %s"
	msgDefault       = "Hay %d personas en la base de datos. Puedes preguntar por el más joven, cuántas personas hay, etc."
)

// Markers in priority order. Matched against the folded question.
var intentMarkers = []struct {
	intent  Intent
	markers []string
}{
	{IntentYoungest, []string{"joven", "menor"}},
	{IntentCount, []string{"cuant", "total"}},
	{IntentList, []string{"quienes", "lista"}},
}

// Fold lowercases s and strips combining marks, so "¿Cuántas?" becomes
// "¿cuantas?".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Classify returns the first intent in priority order whose markers appear in
// question, or IntentDefault.
func Classify(question string) Intent {
	q := Fold(question)
	for _, im := range intentMarkers {
		for _, m := range im.markers {
			if strings.Contains(q, m) {
				return im.intent
			}
		}
	}
	return IntentDefault
}

// Answer produces a non-empty reply from the snapshot alone.
func Answer(question string, records []models.Record) string {
	if len(records) == 0 {
		return NoRecordsMessage
	}
	switch Classify(question) {
	case IntentYoungest:
		// no usable dates: default reply
		if r, ok := Youngest(records); ok {
			return fmt.Sprintf(msgYoungest, r.DisplayName(), r.BirthDate.String())
		}
	case IntentCount:
		return fmt.Sprintf(msgCount, len(records))
	case IntentList:
		n := min(len(records), listSize)
		names := make([]string, 0, n)
		for _, r := range records[:n] {
			names = append(names, r.DisplayName())
		}
		return fmt.Sprintf(msgList, strings.Join(names, ", "))
	}
	return fmt.Sprintf(msgDefault, len(records))
}

// Youngest returns the record with the latest birth date. Records without a
// date are skipped and the first record wins ties.
func Youngest(records []models.Record) (models.Record, bool) {
	var (
		best  models.Record
		found bool
	)
	for _, r := range records {
		if r.BirthDate.IsZero() {
			continue
		}
		if !found || r.BirthDate.After(best.BirthDate) {
			best = r
			found = true
		}
	}
	return best, found
}
