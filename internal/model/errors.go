package model

// Error codes used in JSON error bodies.
const (
	ErrCodeNotFound       = "not_found"
	ErrCodeLookupFailed   = "attorneys_failed"
	ErrCodeListNotFound   = "list_not_found"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInternal       = "internal_error"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeRouteNotFound  = "route_not_found"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
