package models

import "time"

// NotificationKind tells consumers what raised a notification.
type NotificationKind string

const (
	NotificationSaleRecorded NotificationKind = "sale_recorded"
	NotificationRemoteSale   NotificationKind = "remote_sale"
	NotificationSaleDeleted  NotificationKind = "sale_deleted"
	NotificationComanda      NotificationKind = "comanda"
	NotificationCatalog      NotificationKind = "catalog"
	NotificationCash         NotificationKind = "cash"
	NotificationError        NotificationKind = "error"
)

// NotificationLevel drives how a toast is styled.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelInfo    NotificationLevel = "info"
	LevelError   NotificationLevel = "error"
)

// Notification is a user-visible message raised by the core.
type Notification struct {
	Kind      NotificationKind  `json:"kind"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
