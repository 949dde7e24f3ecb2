package monitoring

import (
	"fmt"
	"sync"
)

// Severity classifies a message sent to a Sink.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Sink receives user-facing messages. Delivery is fire-and-forget.
type Sink interface {
	Message(text string, sev Severity)
}

// LogSink routes warnings and errors to the ops stream and everything else
// to the diag stream.
type LogSink struct{}

// Message implements Sink.
func (LogSink) Message(text string, sev Severity) {
	if sev >= SeverityWarning {
		Opsf("%s: %s", sev, text)
		return
	}
	Diagf("%s", text)
}

// Message is one entry captured by a RecordingSink.
type Message struct {
	Text     string
	Severity Severity
}

// RecordingSink keeps every message it receives. Safe for concurrent use.
type RecordingSink struct {
	mu       sync.Mutex
	messages []Message
}

// Message implements Sink.
func (r *RecordingSink) Message(text string, sev Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Text: text, Severity: sev})
}

// Messages returns a copy of the recorded messages.
func (r *RecordingSink) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reset drops every recorded message.
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
