package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	EventID   int64  `json:"event_id,omitempty"` // evento que ya consumió el token de idempotencia
}
