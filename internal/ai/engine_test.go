package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/josephgoksu/tasksense/models"
)

// stubGenerator returns a canned response or error for every call.
type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) Generate(ctx context.Context, system, prompt string, maxTokens int, temperature float32) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"wrapped in prose", `Sure! Here you go: {"a": 1} hope that helps`, `{"a": 1}`, true},
		{"markdown fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"plain fence", "```\n{\"a\": 1}\n```", `{"a": 1}`, true},
		{"no braces", "just some text", "", false},
		{"only open brace", "text { more", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := extractJSONObject(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseEnhancementFallback(t *testing.T) {
	raw := "I could not produce JSON, but here is a better description."
	got := parseEnhancement(raw)

	if got["enhanced_description"] != raw {
		t.Errorf("enhanced_description = %v, want raw response", got["enhanced_description"])
	}
	if got["ai_enhanced"] != true {
		t.Errorf("ai_enhanced = %v, want true", got["ai_enhanced"])
	}
}

func TestParseEnhancementMalformedJSON(t *testing.T) {
	raw := `{"enhanced_description": unterminated`
	got := parseEnhancement(raw)

	// Braces exist but the body is invalid; the whole text becomes the description.
	if got["enhanced_description"] != raw {
		t.Errorf("enhanced_description = %v, want raw response", got["enhanced_description"])
	}
}

func TestMapPriority(t *testing.T) {
	cases := []struct {
		input string
		want  models.TaskPriority
	}{
		{"URGENT", models.PriorityUrgent},
		{"This is critical, drop everything", models.PriorityUrgent},
		{"high", models.PriorityHigh},
		{"Seems important to me", models.PriorityHigh},
		{"low priority", models.PriorityLow},
		{"a minor chore", models.PriorityLow},
		{"medium", models.PriorityMedium},
		{"no idea", models.PriorityMedium},
	}

	for _, tc := range cases {
		if got := mapPriority(tc.input); got != tc.want {
			t.Errorf("mapPriority(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParseDeadlineDays(t *testing.T) {
	cases := []struct {
		input string
		days  int
		ok    bool
	}{
		{"I suggest 3 days from now", 3, true},
		{"1 day should be enough", 1, true},
		{"Take 14  days", 14, true},
		{"by next week", 0, false},
		{"", 0, false},
	}

	for _, tc := range cases {
		days, ok := parseDeadlineDays(tc.input)
		if ok != tc.ok || days != tc.days {
			t.Errorf("parseDeadlineDays(%q) = (%d, %v), want (%d, %v)", tc.input, days, ok, tc.days, tc.ok)
		}
	}
}

func TestEnhanceTaskMergesResponse(t *testing.T) {
	gen := &stubGenerator{response: `{"enhanced_description": "Do X then Y", "estimated_duration": 45, "suggested_category": "Work"}`}
	engine := NewEngine(gen)

	task := models.NewTask("Write report")
	task.Description = "quarterly numbers"

	got := engine.EnhanceTask(context.Background(), task)

	if got["title"] != "Write report" {
		t.Errorf("title = %v, want original title", got["title"])
	}
	if got["enhanced_description"] != "Do X then Y" {
		t.Errorf("enhanced_description = %v", got["enhanced_description"])
	}
	if got["suggested_category"] != "Work" {
		t.Errorf("suggested_category = %v", got["suggested_category"])
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1", gen.calls)
	}
}

func TestEnhanceTaskGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("rate limited")}
	engine := NewEngine(gen)

	task := models.NewTask("Write report")
	got := engine.EnhanceTask(context.Background(), task)

	if _, ok := got["enhanced_description"]; ok {
		t.Error("error path must not carry enhancement fields")
	}
	if got["title"] != "Write report" {
		t.Errorf("title = %v, want original title", got["title"])
	}
}

func TestEngineDegradedWithoutGenerator(t *testing.T) {
	engine := NewEngine(nil)
	task := models.NewTask("Something")
	task.Priority = models.PriorityHigh

	if engine.Enabled() {
		t.Error("Enabled() = true, want false")
	}
	if got := engine.SuggestPriority(context.Background(), task, nil); got != models.PriorityHigh {
		t.Errorf("SuggestPriority = %s, want existing priority", got)
	}
	if got := engine.SuggestDeadline(context.Background(), task); got != nil {
		t.Errorf("SuggestDeadline = %v, want nil", got)
	}

	analysis := engine.AnalyzeContext(context.Background(), []*models.Task{task}, nil)
	if len(analysis.Insights) != 0 || len(analysis.Recommendations) != 0 {
		t.Errorf("AnalyzeContext = %+v, want empty result", analysis)
	}
}

func TestSuggestDeadlineFromDaysMention(t *testing.T) {
	gen := &stubGenerator{response: "Given the scope, 5 days seems realistic."}
	engine := NewEngine(gen)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return base }

	got := engine.SuggestDeadline(context.Background(), models.NewTask("Plan sprint"))
	if got == nil {
		t.Fatal("SuggestDeadline returned nil")
	}
	want := base.Add(5 * 24 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("deadline = %v, want %v", got, want)
	}
}

func TestAnalyzeContextFallbackOnProse(t *testing.T) {
	gen := &stubGenerator{response: "You seem busy this week."}
	engine := NewEngine(gen)

	got := engine.AnalyzeContext(context.Background(), nil, nil)
	if len(got.Insights) != 1 || got.Insights[0] != "You seem busy this week." {
		t.Errorf("Insights = %v, want the raw response", got.Insights)
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0] != "Continue monitoring task patterns" {
		t.Errorf("Recommendations = %v", got.Recommendations)
	}
}

func TestAnalyzeContextCoercesMixedLists(t *testing.T) {
	gen := &stubGenerator{response: `{"summary": "busy week", "patterns": ["many urgent tasks", {"theme": "meetings"}], "insights": "single insight", "recommendations": [], "focus_areas": ["deep work"]}`}
	engine := NewEngine(gen)

	got := engine.AnalyzeContext(context.Background(), nil, nil)
	if got.Summary != "busy week" {
		t.Errorf("Summary = %q", got.Summary)
	}
	if len(got.Patterns) != 2 {
		t.Errorf("Patterns = %v, want 2 entries", got.Patterns)
	}
	if len(got.Insights) != 1 || got.Insights[0] != "single insight" {
		t.Errorf("Insights = %v, want coerced single string", got.Insights)
	}
	if len(got.FocusAreas) != 1 {
		t.Errorf("FocusAreas = %v", got.FocusAreas)
	}
}
