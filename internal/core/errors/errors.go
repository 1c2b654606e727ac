package errors

const (
	HttpInternalError      = "internal_error"
	HttpInvalidQueryError  = "invalid_query"
	HttpChartNotFoundError = "chart_not_found"
	HttpNotReadyError      = "results_not_loaded"
	HttpUnsupportedFormat  = "unsupported_format"
)

// ErrorResponse is the error response body of every HTTP endpoint.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
