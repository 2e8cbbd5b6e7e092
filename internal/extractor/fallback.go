package extractor

import (
	"strings"

	"github.com/pulpoai/agentcore/pkg/types"
)

var fallbackKeywords = []struct {
	intent types.Intent
	words  []string
}{
	{types.IntentGreeting, []string{"hola", "buenos", "buenas", "hi", "hello"}},
	{types.IntentInfoServices, []string{"servicios", "services", "qué hacen", "que tienen"}},
	{types.IntentInfoPrices, []string{"precio", "cuanto", "cuesta", "vale"}},
	{types.IntentInfoHours, []string{"horario", "abre", "cierra", "hours"}},
	{types.IntentBook, []string{"quiero", "necesito", "turno", "cita", "reserva"}},
	{types.IntentCancel, []string{"cancelar", "anular", "cancel"}},
}

// fallback classifies intent from a small keyword lexicon when the oracle
// errors or fails schema validation. Returns empty slots and confidence 0.5
// so downstream stages can tell this turn was not oracle-backed.
func (e *Extractor) fallback(utterance string) types.ExtractorOutput {
	lower := strings.ToLower(utterance)
	intent := types.IntentOther

	for _, kw := range fallbackKeywords {
		for _, word := range kw.words {
			if strings.Contains(lower, word) {
				intent = kw.intent
				break
			}
		}
		if intent != types.IntentOther {
			break
		}
	}

	return types.ExtractorOutput{
		Intent:     intent,
		Slots:      map[types.CanonicalSlotName]string{},
		Confidence: 0.5,
		Reasoning:  "fallback heuristic",
	}
}
