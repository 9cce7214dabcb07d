package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/devboard/devboard-api/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	enums := map[string]func(string) bool{
		"task_status":           models.ValidTaskStatus,
		"task_priority":         models.ValidPriority,
		"notification_type":     models.ValidNotificationType,
		"notification_priority": models.ValidNotificationPriority,
	}
	for tag, valid := range enums {
		if err := Validate.RegisterValidation(tag, enumValidator(valid)); err != nil {
			panic(fmt.Sprintf("failed to register %s validator: %v", tag, err))
		}
	}
}

// enumValidator adapts a string predicate; empty values are left to `required`
func enumValidator(valid func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		return value == "" || valid(value)
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	if !models.ValidTaskStatus(value) {
		return fmt.Errorf("invalid status: %s (must be 'todo', 'inProgress', or 'done')", value)
	}
	return nil
}

// ValidatePriority validates a Priority string value
func ValidatePriority(value string) error {
	if !models.ValidPriority(value) {
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', or 'high')", value)
	}
	return nil
}

// FieldErrors flattens validator errors into "field: rule" messages
func FieldErrors(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s: failed '%s' validation", fe.Field(), fe.Tag()))
	}
	return out
}
