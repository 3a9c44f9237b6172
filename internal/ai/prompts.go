package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/josephgoksu/tasksense/models"
)

// System prompts for each engine operation.
const (
	enhanceSystemPrompt  = "You are a productivity assistant that helps enhance task descriptions and provides intelligent suggestions."
	prioritySystemPrompt = "You are a task prioritization expert. Analyze tasks and suggest appropriate priority levels."
	deadlineSystemPrompt = "You are a project management assistant. Suggest realistic deadlines for tasks based on their complexity and urgency."
	analysisSystemPrompt = "You are a productivity analyst. Analyze task patterns and provide actionable insights."
)

// Generation parameters per operation. Priority and deadline run cold so the
// answers stay parseable; enhancement and analysis leave room for prose.
const (
	enhanceMaxTokens    = 500
	enhanceTemperature  = 0.7
	priorityMaxTokens   = 100
	priorityTemperature = 0.3
	deadlineMaxTokens   = 150
	deadlineTemperature = 0.3
	analysisMaxTokens   = 800
	analysisTemperature = 0.7
)

// maxAnalysisTasks caps how many tasks go into the analysis prompt to stay
// within token limits.
const maxAnalysisTasks = 20

func buildEnhancementPrompt(task *models.Task) string {
	return fmt.Sprintf(`Please enhance this task with better description and suggestions:

Title: %s
Description: %s
Priority: %s

Provide:
1. Enhanced title (if needed)
2. Improved description with actionable steps
3. Estimated duration in minutes
4. Suggested category

Format as JSON with keys: enhanced_title, enhanced_description, estimated_duration, suggested_category`,
		task.Title, task.Description, task.Priority)
}

func buildPriorityPrompt(task *models.Task, context map[string]any) string {
	dueDate := "Not set"
	if task.DueDate != nil {
		dueDate = task.DueDate.Format("2006-01-02")
	}

	contextInfo := ""
	if len(context) > 0 {
		if b, err := json.MarshalIndent(context, "", "  "); err == nil {
			contextInfo = "Context: " + string(b)
		}
	}

	return fmt.Sprintf(`Analyze this task and suggest priority level (urgent, high, medium, low):

Title: %s
Description: %s
Due Date: %s

%s

Consider urgency, importance, and impact. Respond with just the priority level.`,
		task.Title, task.Description, dueDate, contextInfo)
}

func buildDeadlinePrompt(task *models.Task) string {
	duration := "Unknown"
	if task.EstimatedDuration != nil {
		duration = fmt.Sprintf("%d", *task.EstimatedDuration)
	}

	return fmt.Sprintf(`Suggest a realistic deadline for this task:

Title: %s
Description: %s
Priority: %s
Estimated Duration: %s minutes

Consider the task complexity and priority. Suggest number of days from now.`,
		task.Title, task.Description, task.Priority, duration)
}

func buildAnalysisPrompt(tasks []*models.Task, userData map[string]any) string {
	limit := len(tasks)
	if limit > maxAnalysisTasks {
		limit = maxAnalysisTasks
	}

	var sb strings.Builder
	for _, t := range tasks[:limit] {
		fmt.Fprintf(&sb, "- %s: %s (%s)\n", t.Title, t.Status, t.Priority)
	}

	userJSON := "{}"
	if len(userData) > 0 {
		if b, err := json.MarshalIndent(userData, "", "  "); err == nil {
			userJSON = string(b)
		}
	}

	return fmt.Sprintf(`Analyze these tasks and provide productivity insights:

Tasks:
%s

User Data: %s

Provide:
1. Key patterns you notice
2. Productivity insights
3. Actionable recommendations
4. Focus areas for improvement

Format as JSON with keys: patterns, insights, recommendations, focus_areas`,
		strings.TrimRight(sb.String(), "\n"), userJSON)
}
