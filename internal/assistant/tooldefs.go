package assistant

import "github.com/natfisher/daybook/internal/ai"

// Tool names the dispatcher recognizes. Anything else in a response is
// silently ignored so newer declarations can ship without breaking older
// dispatch code.
const (
	ToolCreateTask      = "create_task"
	ToolUpdateTaskNotes = "update_task_notes"
	ToolSetAlarm        = "set_alarm"
)

// Declarations returns the tool declarations offered to the model on every
// conversational request.
func Declarations() []ai.ToolDecl {
	return []ai.ToolDecl{
		{
			Name:        ToolCreateTask,
			Description: "Create a new task on the user's schedule. Use when the user asks to add, plan, or schedule something.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{
						"type":        "string",
						"description": "Short task title",
					},
					"category": map[string]any{
						"type":        "string",
						"description": "One of: Private, Education, Entertainment, Others",
					},
					"duration": map[string]any{
						"type":        "integer",
						"description": "Estimated duration in minutes",
					},
					"notes": map[string]any{
						"type":        "string",
						"description": "Optional free-text notes",
					},
					"alarmTime": map[string]any{
						"type":        "string",
						"description": "Optional reminder time as HH:mm (24-hour). Supplying it enables the alarm.",
					},
				},
				"required": []string{"title", "category", "duration"},
			},
		},
		{
			Name:        ToolUpdateTaskNotes,
			Description: "Update the notes (and optionally the duration) of an existing task. The task is found by title substring.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"taskTitle": map[string]any{
						"type":        "string",
						"description": "Title (or fragment) of the task to update",
					},
					"notes": map[string]any{
						"type":        "string",
						"description": "New notes text, replaces the existing notes",
					},
					"duration": map[string]any{
						"type":        "integer",
						"description": "Optional new duration in minutes",
					},
				},
				"required": []string{"taskTitle", "notes"},
			},
		},
		{
			Name:        ToolSetAlarm,
			Description: "Set a reminder alarm on an existing task. The task is found by title substring.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"taskTitle": map[string]any{
						"type":        "string",
						"description": "Title (or fragment) of the task",
					},
					"time": map[string]any{
						"type":        "string",
						"description": "Alarm time as HH:mm (24-hour)",
					},
				},
				"required": []string{"taskTitle", "time"},
			},
		},
	}
}
