package orchestrators

// Alert levels for validation messages.
const (
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// ValidationError reports missing or unusable form input. Message is shown
// to the user as is.
type ValidationError struct {
	Message string
	Level   string // LevelWarning or LevelInfo
}

func (e *ValidationError) Error() string {
	return e.Message
}

func warning(msg string) *ValidationError {
	return &ValidationError{Message: msg, Level: LevelWarning}
}
