package notifications

import "time"

// Severity indicates the importance of a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// NotificationType categorises what produced the notification.
type NotificationType string

const (
	TypeLoadFailed   NotificationType = "load_failed"
	TypeChannelError NotificationType = "channel_error"
	TypeMessage      NotificationType = "message"
)

// SurfaceDefault is used when a caller does not name a display surface.
const SurfaceDefault = "snackbar"

// Notification is a single user-facing message record.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Severity  Severity         `json:"severity"`
	Surface   string           `json:"surface"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Delivered bool             `json:"delivered"`
	CreatedAt time.Time        `json:"created_at"`
}
