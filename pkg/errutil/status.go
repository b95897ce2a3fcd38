package errutil

// CoreStatus is the transport-agnostic error classification used across the
// engine. The pipeline maps terminal statuses to non-retryable queue failures.
type CoreStatus string

const (
	StatusBadRequest          CoreStatus = "BAD_REQUEST"
	StatusValidationFailed    CoreStatus = "VALIDATION_FAILED"
	StatusUnauthorized        CoreStatus = "UNAUTHORIZED"
	StatusForbidden           CoreStatus = "FORBIDDEN"
	StatusNotFound            CoreStatus = "NOT_FOUND"
	StatusConflict            CoreStatus = "CONFLICT"
	StatusUnprocessableEntity CoreStatus = "UNPROCESSABLE_ENTITY"
	StatusTooManyRequests     CoreStatus = "TOO_MANY_REQUESTS"
	StatusTimeout             CoreStatus = "TIMEOUT"
	StatusInternal            CoreStatus = "INTERNAL"
	StatusServiceUnavailable  CoreStatus = "SERVICE_UNAVAILABLE"
	StatusUnknown             CoreStatus = "UNKNOWN"
)

// Terminal reports whether an error with this status should not be retried by
// the queue layer: the input is wrong, not the infrastructure.
func (s CoreStatus) Terminal() bool {
	switch s {
	case StatusBadRequest, StatusValidationFailed, StatusUnauthorized,
		StatusForbidden, StatusNotFound, StatusConflict, StatusUnprocessableEntity:
		return true
	}
	return false
}

// HTTPStatus maps the CoreStatus to its closest HTTP status code.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest, StatusValidationFailed:
		return 400
	case StatusUnauthorized:
		return 401
	case StatusForbidden:
		return 403
	case StatusNotFound:
		return 404
	case StatusConflict:
		return 409
	case StatusUnprocessableEntity:
		return 422
	case StatusTooManyRequests:
		return 429
	case StatusTimeout:
		return 504
	case StatusServiceUnavailable:
		return 503
	default:
		return 500
	}
}
