package protocol

import (
	"io"
)

var (
	// Terminal ends every line on the wire
	Terminal = []byte("\r\n")

	// MessageTerminal ends every action, simple response and event
	MessageTerminal = []byte("\r\n\r\n")

	// CommandTerminal ends the free-text output of a `Response: Follows` message
	CommandTerminal = []byte("--END COMMAND--\r\n\r\n")
)

// WriteAction serialises an action, assigning its ActionID if it does not have one yet.
func WriteAction(w io.Writer, action *Action) error {
	action.ID()

	_, err := io.WriteString(w, action.String())
	return err
}

// WriteFields writes an ad-hoc message made of the given `Key: Value` pairs, in order.
func WriteFields(w io.Writer, fields ...[2]string) error {
	p := NewPropertyMap()
	for _, field := range fields {
		p.Set(field[0], field[1])
	}

	_, err := io.WriteString(w, p.String())
	return err
}
