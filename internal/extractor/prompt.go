package extractor

import (
	"fmt"
	"strings"
	"time"
)

// buildPrompt composes the system prompt the oracle sees: the intent
// enumeration, canonical slot list, date/time normalization rules, a few
// worked examples, and any tenant hints.
func buildPrompt(utterance string, hints Hints, now time.Time) string {
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	var tenantContext string
	if len(hints.AvailableServices) > 0 {
		tenantContext = "\nServicios disponibles: " + strings.Join(hints.AvailableServices, ", ")
	}

	return fmt.Sprintf(`Eres un extractor de información especializado en servicios y reservas de turnos.

TAREA: Extrae el intent y los slots del mensaje del usuario.

INTENTS VÁLIDOS:
- greeting: saludos iniciales
- info_services: pregunta por servicios disponibles
- info_prices: pregunta por precios
- info_hours: pregunta por horarios de atención
- book: quiere reservar un turno
- cancel: quiere cancelar un turno
- reschedule: quiere cambiar un turno
- chitchat: conversación general
- other: otro tipo de mensaje

SLOTS A EXTRAER:
- service_type: tipo de servicio (Corte de Cabello, Coloración, Barba, etc.)
- preferred_date: fecha en formato YYYY-MM-DD
- preferred_time: hora en formato HH:MM (24h)
- staff_name: nombre del profesional
- client_name: nombre del cliente
- client_email: email del cliente
- client_phone: teléfono del cliente
- booking_id: ID de reserva existente

NORMALIZACIÓN DE FECHAS:
- "hoy" → "%s"
- "mañana" → "%s"
- "10am" → "10:00"
- "3pm" → "15:00"
%s

EJEMPLOS:

Entrada: "Hola, buenos días"
Salida: {"intent": "greeting", "slots": {}, "confidence": 0.95}

Entrada: "¿Qué servicios tienen?"
Salida: {"intent": "info_services", "slots": {}, "confidence": 0.92}

Entrada: "Cuánto sale un corte de pelo?"
Salida: {"intent": "info_prices", "slots": {"service_type": "Corte de Cabello"}, "confidence": 0.90}

Entrada: "Quiero turno para corte mañana a las 3pm"
Salida: {"intent": "book", "slots": {"service_type": "Corte de Cabello", "preferred_date": "%s", "preferred_time": "15:00"}, "confidence": 0.95}

Entrada: "Necesito cancelar mi turno del lunes"
Salida: {"intent": "cancel", "slots": {}, "confidence": 0.88}

Entrada: "Soy Juan Pérez, mi email es juan@example.com"
Salida: {"intent": "chitchat", "slots": {"client_name": "Juan Pérez", "client_email": "juan@example.com"}, "confidence": 0.92}

REGLAS:
1. Solo extrae información EXPLÍCITA del mensaje
2. NO inventes información que no está
3. Normaliza fechas y horas al formato correcto
4. Confidence alto (>0.9) si es obvio, medio (0.7-0.9) si razonable, bajo (<0.7) si ambiguo
5. Devuelve SOLO JSON válido, sin texto adicional

MENSAJE DEL USUARIO: "%s"

Extrae el intent y slots:`, today, tomorrow, tenantContext, tomorrow, utterance)
}
