package api

import "github.com/edgeee/chat-backend/api/validator"

type (
	// Validator validates request bodies before they reach storage.
	Validator = validator.Validator
	// ValidationError reports a single invalid request field.
	ValidationError = validator.ValidationError
)
