package protocol

// Message is implemented by every decoded inbound message. Opcode reports
// which wire opcode produced it, used by the pipeline's dispatch switch.
type Message interface {
	Opcode() Opcode
}

// NewSession is opcode 50. See spec §3 for the field table.
type NewSession struct {
	Proto        byte
	SessIdx      byte
	CurIdx       byte
	SessCount    byte
	ServerName   string
	TrackName    string
	TrackConfig  string
	Name         string
	Type         byte
	Time         uint16
	Laps         uint16
	Wait         uint16
	Ambient      byte
	TrackTemp    byte
	Weather      string
	ElapsedMs    uint32
}

func (NewSession) Opcode() Opcode { return OpNewSession }

// NewConnection is opcode 51.
type NewConnection struct {
	DriverName string
	DriverGUID string
	CarID      byte
	CarModel   string
	CarSkin    string
}

func (NewConnection) Opcode() Opcode { return OpNewConnection }

// ConnectionClosed is opcode 52, sharing NewConnection's shape (spec §3).
type ConnectionClosed struct {
	DriverName string
	DriverGUID string
	CarID      byte
	CarModel   string
	CarSkin    string
}

func (ConnectionClosed) Opcode() Opcode { return OpConnectionClosed }

// CarInfo is opcode 54.
type CarInfo struct {
	CarID       byte
	IsConnected byte
	Model       string
	Skin        string
	DriverName  string
	DriverTeam  string
	GUID        string
}

func (CarInfo) Opcode() Opcode { return OpCarInfo }

// LapCompleted is opcode 73.
type LapCompleted struct {
	CarID     byte
	LaptimeMs uint32
	Cuts      byte
}

func (LapCompleted) Opcode() Opcode { return OpLapCompleted }
