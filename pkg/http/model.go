package http

// ErrorBody is the JSON shape of every error response.
// Timestamp is set for server-side failures only.
type ErrorBody struct {
	Error     string      `json:"error"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
