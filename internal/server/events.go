package server

// Event is one message on the streaming surface. For a given source, all
// chunk events precede its single terminal complete or error event;
// terminal events for different sources may interleave arbitrarily.
type Event struct {
	Type          string `json:"type"`
	Source        string `json:"source,omitempty"`
	Content       string `json:"content,omitempty"`
	Message       string `json:"message,omitempty"`
	Authenticated *bool  `json:"authenticated,omitempty"`
}

// Chunk is a streamed fragment of one source's response.
func Chunk(source, content string) Event {
	return Event{Type: "chunk", Source: source, Content: content}
}

// Complete carries a source's full final text.
func Complete(source, content string) Event {
	return Event{Type: "complete", Source: source, Content: content}
}

// ErrorEvent reports a per-source failure.
func ErrorEvent(source, message string) Event {
	return Event{Type: "error", Source: source, Message: message}
}

// Status is a human-readable progress update.
func Status(message string) Event {
	return Event{Type: "status", Message: message}
}

// AuthStatus reports whether a source has a live login.
func AuthStatus(source string, authenticated bool) Event {
	return Event{Type: "auth_status", Source: source, Authenticated: &authenticated}
}
