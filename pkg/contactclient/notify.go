package contactclient

// Level is the severity of a Notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is an advisory, toast-style message about the form
type Notification struct {
	Level       Level
	Title       string
	Description string
}

// Notifier receives notifications. Delivery is best effort and never changes
// the outcome of an operation.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

func notify(n Notifier, level Level, title, description string) {
	if n == nil {
		return
	}
	n.Notify(Notification{Level: level, Title: title, Description: description})
}
