package protocol

// Decode parses a single datagram into its typed Message. The opcode (first
// byte) selects the message kind via the closed `recognized` set; an opcode
// outside that set fails with UnsupportedMessageError. A recognized opcode
// whose body cannot be consumed fully fails with MessageParseError. No
// partial message is ever returned (spec §4.1).
//
// Trailing bytes after the last field are ignored: the wire protocol
// evolves by appending fields, so forward compatibility requires tolerance
// (spec §4.1 "Parser composition").
func Decode(raw []byte) (Message, error) {
	if len(raw) < 1 {
		return nil, &MessageParseError{Reason: "empty datagram"}
	}

	op := raw[0]
	if !recognized[op] {
		return nil, &UnsupportedMessageError{Opcode: op}
	}

	body := raw[1:]
	switch op {
	case OpNewSession:
		return decodeNewSession(body)
	case OpNewConnection:
		return decodeNewConnection(body)
	case OpConnectionClosed:
		return decodeConnectionClosed(body)
	case OpCarInfo:
		return decodeCarInfo(body)
	case OpLapCompleted:
		return decodeLapCompleted(body)
	default:
		// unreachable: recognized and the switch are kept in lockstep
		return nil, &UnsupportedMessageError{Opcode: op}
	}
}

func decodeNewSession(body []byte) (Message, error) {
	var m NewSession
	cur := body

	var err error
	if m.Proto, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.SessIdx, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.CurIdx, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.SessCount, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.ServerName, cur, err = takeWStr(cur); err != nil {
		return nil, err
	}
	if m.TrackName, cur, err = takeStr(cur); err != nil {
		return nil, err
	}
	if m.TrackConfig, cur, err = takeStr(cur); err != nil {
		return nil, err
	}
	if m.Name, cur, err = takeStr(cur); err != nil {
		return nil, err
	}
	if m.Type, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.Time, cur, err = takeU16(cur); err != nil {
		return nil, err
	}
	if m.Laps, cur, err = takeU16(cur); err != nil {
		return nil, err
	}
	if m.Wait, cur, err = takeU16(cur); err != nil {
		return nil, err
	}
	if m.Ambient, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.TrackTemp, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.Weather, cur, err = takeStr(cur); err != nil {
		return nil, err
	}
	if m.ElapsedMs, _, err = takeU32(cur); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeNewConnection(body []byte) (Message, error) {
	m, err := decodeConnectionShape(body)
	if err != nil {
		return nil, err
	}
	return NewConnection(m), nil
}

func decodeConnectionClosed(body []byte) (Message, error) {
	m, err := decodeConnectionShape(body)
	if err != nil {
		return nil, err
	}
	return ConnectionClosed(m), nil
}

// connectionShape is the field layout shared by NewConnection and
// ConnectionClosed (spec §3: "same shape as 51").
type connectionShape struct {
	DriverName string
	DriverGUID string
	CarID      byte
	CarModel   string
	CarSkin    string
}

func decodeConnectionShape(body []byte) (connectionShape, error) {
	var m connectionShape
	cur := body
	var err error
	if m.DriverName, cur, err = takeWStr(cur); err != nil {
		return m, err
	}
	if m.DriverGUID, cur, err = takeWStr(cur); err != nil {
		return m, err
	}
	if m.CarID, cur, err = takeByte(cur); err != nil {
		return m, err
	}
	if m.CarModel, cur, err = takeStr(cur); err != nil {
		return m, err
	}
	if m.CarSkin, _, err = takeStr(cur); err != nil {
		return m, err
	}
	return m, nil
}

func decodeCarInfo(body []byte) (Message, error) {
	var m CarInfo
	cur := body
	var err error
	if m.CarID, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.IsConnected, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.Model, cur, err = takeWStr(cur); err != nil {
		return nil, err
	}
	if m.Skin, cur, err = takeWStr(cur); err != nil {
		return nil, err
	}
	if m.DriverName, cur, err = takeWStr(cur); err != nil {
		return nil, err
	}
	if m.DriverTeam, cur, err = takeWStr(cur); err != nil {
		return nil, err
	}
	if m.GUID, _, err = takeWStr(cur); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeLapCompleted(body []byte) (Message, error) {
	var m LapCompleted
	cur := body
	var err error
	if m.CarID, cur, err = takeByte(cur); err != nil {
		return nil, err
	}
	if m.LaptimeMs, cur, err = takeU32(cur); err != nil {
		return nil, err
	}
	if m.Cuts, _, err = takeByte(cur); err != nil {
		return nil, err
	}
	return m, nil
}

// take* wrap the parse* combinators, advancing the cursor and surfacing the
// remaining slice for the next field.

func takeByte(cur []byte) (byte, []byte, error) {
	v, n, err := parseByte(cur)
	if err != nil {
		return 0, nil, err
	}
	return v, cur[n:], nil
}

func takeU16(cur []byte) (uint16, []byte, error) {
	v, n, err := parseU16(cur)
	if err != nil {
		return 0, nil, err
	}
	return v, cur[n:], nil
}

func takeU32(cur []byte) (uint32, []byte, error) {
	v, n, err := parseU32(cur)
	if err != nil {
		return 0, nil, err
	}
	return v, cur[n:], nil
}

func takeStr(cur []byte) (string, []byte, error) {
	v, n, err := parseStr(cur)
	if err != nil {
		return "", nil, err
	}
	return v, cur[n:], nil
}

func takeWStr(cur []byte) (string, []byte, error) {
	v, n, err := parseWStr(cur)
	if err != nil {
		return "", nil, err
	}
	return v, cur[n:], nil
}
