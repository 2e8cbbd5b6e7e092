package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pulpoai/agentcore/pkg/types"
)

// Normalize coerces a raw slot value to its canonical representation.
// Idempotent: Normalize(name, Normalize(name, v)) == Normalize(name, v) for
// every slot/value pair. now and tz resolve relative dates against the
// workspace's timezone rather than a hardcoded zone.
func Normalize(name types.CanonicalSlotName, value string, now time.Time, tz string) (string, error) {
	if value == "" {
		return value, nil
	}
	loc := resolveLocation(tz)
	switch name {
	case types.SlotPreferredDate:
		return normalizeDate(value, now.In(loc)), nil
	case types.SlotPreferredTime:
		return normalizeTime(value), nil
	case types.SlotClientName, types.SlotStaffName:
		return titleCase(strings.TrimSpace(value)), nil
	case types.SlotClientEmail:
		return strings.ToLower(strings.TrimSpace(value)), nil
	default:
		return value, nil
	}
}

func resolveLocation(tz string) *time.Location {
	if strings.TrimSpace(tz) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// normalizeDate resolves relative Spanish/English phrases against now;
// already-ISO values pass through unchanged.
func normalizeDate(value string, now time.Time) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	switch lower {
	case "hoy", "today":
		return now.Format("2006-01-02")
	case "mañana", "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	case "pasado mañana", "day after tomorrow":
		return now.AddDate(0, 0, 2).Format("2006-01-02")
	}
	if len(value) == 10 && value[4] == '-' && value[7] == '-' {
		return value
	}
	return value
}

// normalizeTime converts 12h am/pm notation to 24h HH:MM; already-HH:MM
// values are re-padded; anything else passes through.
func normalizeTime(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))

	if strings.Contains(lower, "am") || strings.Contains(lower, "pm") {
		isPM := strings.Contains(lower, "pm")
		cleaned := strings.TrimSpace(strings.NewReplacer("am", "", "pm", "").Replace(lower))
		hourStr, minStr := cleaned, "0"
		if idx := strings.Index(cleaned, ":"); idx >= 0 {
			hourStr, minStr = cleaned[:idx], cleaned[idx+1:]
		}
		hour, err1 := strconv.Atoi(strings.TrimSpace(hourStr))
		minute, err2 := strconv.Atoi(strings.TrimSpace(minStr))
		if err1 == nil && err2 == nil {
			if isPM && hour != 12 {
				hour += 12
			} else if !isPM && hour == 12 {
				hour = 0
			}
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
		return value
	}

	if strings.Contains(lower, ":") && len(lower) <= 5 {
		parts := strings.SplitN(lower, ":", 2)
		if len(parts) == 2 {
			hour, err1 := strconv.Atoi(parts[0])
			minute, err2 := strconv.Atoi(parts[1])
			if err1 == nil && err2 == nil {
				return fmt.Sprintf("%02d:%02d", hour, minute)
			}
		}
	}
	return value
}

// titleCase upper-cases the first letter of each whitespace-separated word
// and lower-cases the remainder. Sufficient for client/staff names, which
// is all this slot type ever holds.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
