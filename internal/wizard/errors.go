package wizard

import "errors"

// Validation errors for the interactive prompts.
var (
	errAnswerRequired   = errors.New("an answer is required")
	errPasswordMismatch = errors.New("passwords do not match")
)
