package protocol

import "fmt"

// UnsupportedMessageError is returned when the first byte of a datagram does
// not match any recognized opcode. The loop logs and continues.
type UnsupportedMessageError struct {
	Opcode byte
}

func (e *UnsupportedMessageError) Error() string {
	return fmt.Sprintf("unsupported message opcode: %d", e.Opcode)
}

// MessageParseError is returned when the opcode is recognized but the body
// could not be fully consumed: underflow, bad UTF-32, or bad UTF-8.
type MessageParseError struct {
	Reason string
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("message parse error: %s", e.Reason)
}
