package extraction

import (
	"encoding/json"
	"strings"

	"casaviva_backend/internal/leads/domain"
)

// payload mirrors the JSON shape the model is instructed to return.
// Pointers distinguish "absent" from "present but empty".
type payload struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Email       *string `json:"email"`
	Budget      *string `json:"budget"`
	Preferences *string `json:"preferences"`
	IsVIP       *bool   `json:"is_vip"`
}

// parseExtraction decodes a model response into a domain.Extraction.
// Models occasionally wrap JSON in markdown fences or prose despite
// instructions, so the raw object is located before decoding. A response
// that cannot be parsed yields an empty extraction, never an error: a
// garbled extraction pass must not disturb the conversation flow.
func parseExtraction(raw string) domain.Extraction {
	body := extractJSONObject(raw)
	if body == "" {
		return domain.Extraction{}
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return domain.Extraction{}
	}

	out := domain.Extraction{
		Name:        cleanField(p.Name),
		Phone:       cleanField(p.Phone),
		Email:       cleanField(p.Email),
		Budget:      cleanField(p.Budget),
		Preferences: cleanField(p.Preferences),
	}
	if p.IsVIP != nil {
		out.VIP = *p.IsVIP
	}
	return out
}

// extractJSONObject returns the outermost {...} span in raw, stripping
// code fences and surrounding prose.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

// cleanField trims whitespace and treats blank or null-ish values as absent.
func cleanField(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" || strings.EqualFold(t, "null") {
		return nil
	}
	return &t
}
