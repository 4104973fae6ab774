package protocol

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestDecodeUnsupportedOpcode(t *testing.T) {
	_, err := Decode([]byte{200})
	var unsupported *UnsupportedMessageError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedMessageError, got %v", err)
	}
	if unsupported.Opcode != 200 {
		t.Fail()
	}
}

func TestDecodeLapCompletedEmptyPayload(t *testing.T) {
	_, err := Decode([]byte{OpLapCompleted})
	var parseErr *MessageParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected MessageParseError, got %v", err)
	}
}

func TestDecodeLapCompletedLittleEndianU32(t *testing.T) {
	raw := []byte{OpLapCompleted, 3, 0xC1, 0x12, 0x00, 0x00, 0}
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lap, ok := msg.(LapCompleted)
	if !ok {
		t.Fatalf("expected LapCompleted, got %T", msg)
	}
	if lap.LaptimeMs != 4801 {
		t.Fatalf("expected 4801ms, got %d", lap.LaptimeMs)
	}
	if lap.CarID != 3 || lap.Cuts != 0 {
		t.Fail()
	}
}

func TestDecodeWStrBoundary(t *testing.T) {
	// N=3, "abc" as UTF-32LE.
	payload := []byte{3}
	for _, r := range "abc" {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(r))
		payload = append(payload, tmp[:]...)
	}
	s, n, err := parseWStr(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != "abc" {
		t.Fatalf("expected abc, got %q", s)
	}
	if n != 13 {
		t.Fatalf("expected 13 bytes consumed, got %d", n)
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	raw := []byte{OpLapCompleted, 1, 0, 0, 0, 0, 0, 0xFF, 0xFF, 0xFF}
	_, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error with trailing bytes: %v", err)
	}
}

func TestEncodeBroadcastTruncates(t *testing.T) {
	msg := strings.Repeat("x", 256)
	raw := EncodeBroadcastChat(msg)
	if raw[0] != OpBroadcastChat {
		t.Fail()
	}
	if raw[1] != 255 {
		t.Fatalf("expected prefix byte 255, got %d", raw[1])
	}
	payload := raw[2:]
	if len(payload) != 1020 {
		t.Fatalf("expected 1020 byte payload, got %d", len(payload))
	}
}

func TestEncodeSendChatHeader(t *testing.T) {
	raw := EncodeSendChat(7, "hello")
	if raw[0] != OpSendChat || raw[1] != 7 {
		t.Fail()
	}
	if raw[2] != 5 {
		t.Fatalf("expected length prefix 5, got %d", raw[2])
	}
}

func TestEncodeGetCarInfo(t *testing.T) {
	raw := EncodeGetCarInfo(9)
	if len(raw) != 2 || raw[0] != OpGetCarInfo || raw[1] != 9 {
		t.Fail()
	}
}

func TestDecodeNewConnectionAndConnectionClosedRoundtrip(t *testing.T) {
	payload := buildConnectionPayload("D", "GUID1", 2, "gt4_bmw_m4", "skin1")

	raw := append([]byte{OpNewConnection}, payload...)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nc, ok := msg.(NewConnection)
	if !ok {
		t.Fatalf("expected NewConnection, got %T", msg)
	}
	if nc.DriverName != "D" || nc.DriverGUID != "GUID1" || nc.CarID != 2 || nc.CarModel != "gt4_bmw_m4" || nc.CarSkin != "skin1" {
		t.Fatalf("unexpected fields: %+v", nc)
	}

	raw2 := append([]byte{OpConnectionClosed}, payload...)
	msg2, err := Decode(raw2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := msg2.(ConnectionClosed); !ok {
		t.Fatalf("expected ConnectionClosed, got %T", msg2)
	}
}

func buildConnectionPayload(driverName, guid string, carID byte, model, skin string) []byte {
	var out []byte
	out = appendWStr(out, []rune(driverName))
	out = appendWStr(out, []rune(guid))
	out = append(out, carID)
	out = append(out, byte(len(model)))
	out = append(out, []byte(model)...)
	out = append(out, byte(len(skin)))
	out = append(out, []byte(skin)...)
	return out
}
