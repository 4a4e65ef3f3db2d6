package models

// OutboundMessageRequest is a text pushed to a WhatsApp number, either from the manual
// /send-message route or by the daily close job.
type OutboundMessageRequest struct {
	To         string `json:"to" validate:"required,numeric"`
	Message    string `json:"message" validate:"required,max=4096"`
	PreviewURL bool   `json:"preview_url"`
}
