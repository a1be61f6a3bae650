package broker

// Message kinds written by the terminal.
const (
	MessageInfo  = "INFO"
	MessageError = "ERROR"
)

// Message is one entry of the terminal's messages file, keyed by the
// millisecond timestamp it was written at.
type Message struct {
	Millis      int64  `json:"millis"`
	Type        string `json:"type"`
	Message     string `json:"message,omitempty"`
	ErrorType   string `json:"error_type,omitempty"`
	Description string `json:"description,omitempty"`
}

func (m Message) IsError() bool { return m.Type == MessageError }

// Text returns the human readable part: the message for INFO, the
// description for ERROR.
func (m Message) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Description
}
