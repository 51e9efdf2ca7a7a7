package handler

// WebhookPayload is the inbound callback body.
type WebhookPayload struct {
	RequestID string `json:"request_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
}

type uploadResponse struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
}

type statusResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}
