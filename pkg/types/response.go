package types

// SuccessEnvelope wraps all 2xx API payloads.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps all non-2xx API payloads.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
