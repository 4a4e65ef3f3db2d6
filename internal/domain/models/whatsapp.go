package models

// WebhookPayload mirrors the body of WhatsApp Cloud API webhook callbacks, reduced to the
// fields the manager command channel reads.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups the changes of one business account.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange carries one notification.
type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

// WebhookValue holds inbound messages. Delivery receipts arrive in Statuses and are ignored.
type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []InboundMessage `json:"messages"`
	Statuses         []MessageStatus  `json:"statuses"`
}

// InboundMessage is a message sent by a manager to the business number.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *TextContent        `json:"text,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
}

// TextContent contains text messages body.
type TextContent struct {
	Body string `json:"body"`
}

// InteractiveContent represents quick-reply buttons and list picks.
type InteractiveContent struct {
	Type        string      `json:"type"`
	ButtonReply *ReplyEntry `json:"button_reply,omitempty"`
	ListReply   *ReplyEntry `json:"list_reply,omitempty"`
}

// ReplyEntry is the selected button or list row.
type ReplyEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MessageStatus is a delivery or read receipt.
type MessageStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// CommandText returns the command text of the message, whatever its type.
func (m InboundMessage) CommandText() string {
	if m.Text != nil {
		return m.Text.Body
	}
	if m.Interactive != nil {
		if m.Interactive.ButtonReply != nil {
			return m.Interactive.ButtonReply.ID
		}
		if m.Interactive.ListReply != nil {
			return m.Interactive.ListReply.ID
		}
	}
	return ""
}
