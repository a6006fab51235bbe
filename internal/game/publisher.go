package game

// SubjectContextEntered carries a ContextEvent each time a context finishes
// loading.
const SubjectContextEntered = "world.entered"

// Publisher provides methods for publishing messages to bus subjects.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ContextEvent is published on SubjectContextEntered.
type ContextEvent struct {
	ContextID string `json:"contextId"`
	Tick      uint64 `json:"tick"`
}
