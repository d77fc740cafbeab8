package assistant

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/flowsmith/flowsmith/pkg/models"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Interpret turns raw model text into a structured reply. It tries, in order:
// a fenced code block, a slice from the first '{' past any leading prose, a
// direct JSON parse, and finally the cleaned raw string as plain text. The
// previously-known definition is the fallback at every tier; a model response
// that omits or mangles the definition never nulls it out.
func Interpret(raw string, prior *models.Definition) *models.AssistantReply {
	for _, candidate := range extractCandidates(raw) {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}

		if reply := structure(parsed, prior); reply != nil {
			return reply
		}
	}

	return &models.AssistantReply{
		Text:       stripFences(raw),
		Definition: prior,
	}
}

// extractCandidates yields the JSON extraction attempts in tier order.
func extractCandidates(raw string) []string {
	var candidates []string

	if match := fencedBlockRe.FindStringSubmatch(raw); match != nil {
		candidates = append(candidates, strings.TrimSpace(match[1]))
	}

	if idx := strings.Index(raw, "{"); idx > 0 {
		candidates = append(candidates, raw[idx:])
	}

	candidates = append(candidates, strings.TrimSpace(raw))

	return candidates
}

// structure maps a parsed JSON value onto a reply. A non-object value yields
// nil so the next tier can try.
func structure(parsed any, prior *models.Definition) *models.AssistantReply {
	object, ok := parsed.(map[string]any)
	if !ok {
		return nil
	}

	_, hasText := object["text"]
	_, hasDefinition := object["definition"]

	if hasText || hasDefinition {
		return replyFrom(object, prior)
	}

	// A nested content envelope is unwrapped exactly one level.
	if content, exists := object["content"]; exists {
		switch inner := content.(type) {
		case map[string]any:
			return replyFrom(inner, prior)
		case string:
			return &models.AssistantReply{Text: inner, Definition: prior}
		}
	}

	// Unrecognized shape: keep it as opaque text rather than guessing.
	serialized, err := json.Marshal(object)
	if err != nil {
		return nil
	}

	return &models.AssistantReply{Text: string(serialized), Definition: prior}
}

func replyFrom(object map[string]any, prior *models.Definition) *models.AssistantReply {
	reply := &models.AssistantReply{
		Text:              stringValue(object["text"]),
		Definition:        prior,
		Actions:           stringSlice(object["actions"]),
		FollowUpQuestions: stringSlice(object["followUpQuestions"]),
		FollowUpOptions:   stringSlice(object["followUpOptions"]),
	}

	if definition := decodeDefinition(object["definition"]); definition != nil {
		reply.Definition = definition
	}

	return reply
}

func decodeDefinition(value any) *models.Definition {
	if value == nil {
		return nil
	}

	serialized, err := json.Marshal(value)
	if err != nil {
		return nil
	}

	var definition models.Definition
	if err := json.Unmarshal(serialized, &definition); err != nil {
		return nil
	}

	return &definition
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		serialized, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		return string(serialized)
	}
}

func stringSlice(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}

	return result
}

func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	return strings.TrimSpace(cleaned)
}
