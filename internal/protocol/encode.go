package protocol

import "encoding/binary"

// maxWStrRunes is the largest code-point count a one-byte length prefix can
// carry. Longer messages are silently truncated (spec §4.1): the wire
// format has no way to signal truncation back to the caller.
const maxWStrRunes = 255

// EncodeBroadcastChat builds opcode 203: a wstr-encoded message broadcast
// to every connected driver.
func EncodeBroadcastChat(message string) []byte {
	runes := truncateRunes(message)
	buf := make([]byte, 0, 2+4*len(runes))
	buf = append(buf, OpBroadcastChat)
	buf = appendWStr(buf, runes)
	return buf
}

// EncodeSendChat builds opcode 202: a wstr-encoded message directed at one
// car.
func EncodeSendChat(carID byte, message string) []byte {
	runes := truncateRunes(message)
	buf := make([]byte, 0, 3+4*len(runes))
	buf = append(buf, OpSendChat, carID)
	buf = appendWStr(buf, runes)
	return buf
}

// EncodeGetCarInfo builds opcode 201: a request for a car's current info.
func EncodeGetCarInfo(carID byte) []byte {
	return []byte{OpGetCarInfo, carID}
}

func truncateRunes(s string) []rune {
	runes := []rune(s)
	if len(runes) > maxWStrRunes {
		runes = runes[:maxWStrRunes]
	}
	return runes
}

func appendWStr(buf []byte, runes []rune) []byte {
	buf = append(buf, byte(len(runes)))
	var tmp [4]byte
	for _, r := range runes {
		binary.LittleEndian.PutUint32(tmp[:], uint32(r))
		buf = append(buf, tmp[:]...)
	}
	return buf
}
