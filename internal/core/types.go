package core

// TopicState describes where a topic sits in the dispatch cycle.
type TopicState int

const (
	// TopicIdle means nothing is buffered or nobody listens.
	TopicIdle TopicState = iota
	// TopicRunning means buffered messages are waiting for the loop.
	TopicRunning
	// TopicPaused means the topic waits for an async wave to settle.
	TopicPaused
)

// String returns the lower-case state name.
func (s TopicState) String() string {
	switch s {
	case TopicRunning:
		return "running"
	case TopicPaused:
		return "paused"
	default:
		return "idle"
	}
}
