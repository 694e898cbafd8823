package license

import "net/http"

// Code classifies validation failures. Codes are stable API surface: the
// desktop client switches on them.
type Code string

const (
	CodeInvalidFormat        Code = "invalid_format"
	CodeMissingHardware      Code = "missing_hardware"
	CodeNotFound             Code = "not_found"
	CodeRevoked              Code = "revoked"
	CodeSubscriptionInactive Code = "subscription_inactive"
	CodeMachineMismatch      Code = "machine_mismatch"
	CodeUpstreamFailure      Code = "upstream_failure"
)

// Error is a validation failure with an HTTP status mapping. MachineMismatch
// is the one code that carries extra fields: a masked hint of the bound
// hardware id and a pointer to the self-service reset flow.
type Error struct {
	Code             Code
	Message          string
	HardwareIDMasked string
	ManageURL        string
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the code to a response status. MachineMismatch is a
// conflict, not a hard failure: the client is expected to offer a reset path.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidFormat, CodeMissingHardware:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRevoked, CodeSubscriptionInactive:
		return http.StatusForbidden
	case CodeMachineMismatch:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
