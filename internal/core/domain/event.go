package domain

type EventAction string

const (
	ActionAdd    EventAction = "ADD"
	ActionRemove EventAction = "REMOVE"
)

// DetectionEvent is a single "item seen" (or "item gone") report from the
// detector or a scan terminal. Transient; never persisted.
type DetectionEvent struct {
	Name     string      `json:"name"`
	Quantity int         `json:"quantity"`
	AutoMode bool        `json:"isAutoMode"`
	Action   EventAction `json:"action,omitempty"`
}

// Classification is the interpreter's verdict on a detection event.
type Classification string

const (
	ClassNew       Classification = "NEW"
	ClassAdd       Classification = "ADD"
	ClassCorrect   Classification = "CORRECT"
	ClassDuplicate Classification = "DUPLICATE"
	ClassRemove    Classification = "REMOVE"
	// ClassIgnored covers events with no identity and removals of unknown
	// items. No state changes, nothing is broadcast.
	ClassIgnored Classification = "IGNORED"
)
