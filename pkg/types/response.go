package types

import "encoding/json"

// SuccessEnvelope mirrors the backend's success wrapper. Data is kept raw so
// each binding decodes its own payload type.
type SuccessEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
