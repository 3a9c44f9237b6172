package ai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/josephgoksu/tasksense/models"
)

var daysPattern = regexp.MustCompile(`(\d+)\s*days?`)

// extractJSONObject pulls the first-brace-to-last-brace substring out of a
// model response. Models often wrap JSON in prose or markdown fences; taking
// the outermost braces recovers the object in both cases.
func extractJSONObject(response string) (string, bool) {
	response = strings.TrimSpace(response)

	// Handle markdown code blocks
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
		response = strings.TrimSpace(response)
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1], true
	}
	return "", false
}

// parseEnhancement decodes an enhancement response into a field map. When the
// response carries no parseable JSON the whole text becomes the enhanced
// description so the caller still gets something usable.
func parseEnhancement(response string) map[string]any {
	if jsonStr, ok := extractJSONObject(response); ok {
		var enhancement map[string]any
		if err := json.Unmarshal([]byte(jsonStr), &enhancement); err == nil {
			return enhancement
		}
	}

	return map[string]any{
		"enhanced_description": response,
		"ai_enhanced":          true,
	}
}

// mapPriority folds free-form priority text onto the valid priority choices.
func mapPriority(text string) models.TaskPriority {
	text = strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(text, "urgent") || strings.Contains(text, "critical"):
		return models.PriorityUrgent
	case strings.Contains(text, "high") || strings.Contains(text, "important"):
		return models.PriorityHigh
	case strings.Contains(text, "low") || strings.Contains(text, "minor"):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

// parseDeadlineDays extracts a "N days" mention from a deadline suggestion.
func parseDeadlineDays(suggestion string) (int, bool) {
	m := daysPattern.FindStringSubmatch(strings.ToLower(suggestion))
	if m == nil {
		return 0, false
	}
	days, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return days, true
}

// parseAnalysis decodes a context-analysis response. Non-JSON responses fall
// back to treating the full text as a single insight.
func parseAnalysis(response string) AnalysisResult {
	if jsonStr, ok := extractJSONObject(response); ok {
		var raw map[string]any
		if err := json.Unmarshal([]byte(jsonStr), &raw); err == nil {
			return AnalysisResult{
				Summary:         stringValue(raw["summary"]),
				Patterns:        stringList(raw["patterns"]),
				Insights:        stringList(raw["insights"]),
				Recommendations: stringList(raw["recommendations"]),
				FocusAreas:      stringList(raw["focus_areas"]),
			}
		}
	}

	return AnalysisResult{
		Patterns:        []string{},
		Insights:        []string{response},
		Recommendations: []string{"Continue monitoring task patterns"},
		FocusAreas:      []string{},
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// stringList coerces a decoded JSON value into a string slice. Models do not
// always return flat string arrays, so nested objects are re-serialized.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		default:
			if b, err := json.Marshal(item); err == nil {
				out = append(out, string(b))
			}
		}
	}
	return out
}
