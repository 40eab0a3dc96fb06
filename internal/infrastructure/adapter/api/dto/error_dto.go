package dto

// ErrorResponse represents a standardized error response for the API.
// Fields carries per-field messages for validation failures.
type ErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
