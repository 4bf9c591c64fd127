package chatModel

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LatestUserMessage returns the last message with the user role.
func LatestUserMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return Message{}, false
}

type EventType string

const (
	EventSources EventType = "sources"
	EventToken   EventType = "token"
	EventCached  EventType = "cached"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

type SourceRef struct {
	Label      string  `json:"label"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
}

// StreamEvent is one item on an answer stream. Done and Error are terminal, exactly one of them ends a stream.
type StreamEvent struct {
	Type       EventType   `json:"type"`
	Content    string      `json:"content,omitempty"`
	Sources    []SourceRef `json:"sources,omitempty"`
	Similarity float64     `json:"similarity,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
