package protocol

// Opcode is the first byte of every datagram, selecting the message shape.
type Opcode = byte

const (
	OpNewSession       Opcode = 50
	OpNewConnection    Opcode = 51
	OpConnectionClosed Opcode = 52
	OpCarInfo          Opcode = 54
	OpLapCompleted     Opcode = 73

	// Outbound only.
	OpGetCarInfo    Opcode = 201
	OpSendChat      Opcode = 202
	OpBroadcastChat Opcode = 203
)

// recognized is the closed set of opcodes Decode understands. The source
// protocol (acsp) defines 25 opcodes; only these are decoded here (spec §9
// "Unused opcodes" — additive only, never silently permissive).
var recognized = map[Opcode]bool{
	OpNewSession:       true,
	OpNewConnection:    true,
	OpConnectionClosed: true,
	OpCarInfo:          true,
	OpLapCompleted:     true,
}
