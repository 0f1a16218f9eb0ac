package notifier

// Notifier defines the notification surface the trading core depends on.
// It is intentionally small so components can depend on it without importing
// concrete implementations (e.g. Telegram).
type Notifier interface {
	SendText(text string) error
	SendStructured(msg StructuredMessage) error
}
