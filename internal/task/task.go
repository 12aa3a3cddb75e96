// Package task holds the authoritative task collection.
package task

import (
	"fmt"
	"regexp"
)

// Task categories. Unknown input normalizes to CategoryOthers.
const (
	CategoryPrivate       = "Private"
	CategoryEducation     = "Education"
	CategoryEntertainment = "Entertainment"
	CategoryOthers        = "Others"
)

// Task priorities. Empty input defaults to PriorityMedium.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Task is a single to-do item.
//
// Invariant: AlarmEnabled implies ReminderTime is non-empty. The store
// mutators set and clear the pair together.
type Task struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Notes           string `json:"notes,omitempty"`
	Category        string `json:"category"`
	Priority        string `json:"priority"`
	DurationMinutes int    `json:"durationMinutes"`
	ReminderTime    string `json:"reminderTime,omitempty"` // wall-clock "HH:mm", no date, no zone
	AlarmEnabled    bool   `json:"alarmEnabled"`
	Completed       bool   `json:"completed"`
	CreatedAt       int64  `json:"createdAt"` // epoch millis
}

var reminderRE = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// NormalizeCategory maps arbitrary input onto the closed category set.
func NormalizeCategory(s string) string {
	switch s {
	case CategoryPrivate, CategoryEducation, CategoryEntertainment, CategoryOthers:
		return s
	default:
		return CategoryOthers
	}
}

// NormalizePriority maps arbitrary input onto the closed priority set.
func NormalizePriority(s string) string {
	switch s {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return s
	default:
		return PriorityMedium
	}
}

// ValidateReminder checks the 24-hour "HH:mm" wall-clock format.
// An empty string is valid (no reminder).
func ValidateReminder(hhmm string) error {
	if hhmm == "" {
		return nil
	}
	if !reminderRE.MatchString(hhmm) {
		return fmt.Errorf("reminder time %q: want HH:mm (24-hour)", hhmm)
	}
	return nil
}
