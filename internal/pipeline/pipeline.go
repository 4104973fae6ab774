// Package pipeline implements the single-reader UDP event loop (spec §4.5,
// §5): decode, dispatch, admit-or-reject laps, and reply. Grounded on the
// teacher's v3/network/client.go listen() loop shape (read-decode-switch),
// inverted from a client dialing out to a server listening in.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/acsp-sidecar/sidecar/internal/format"
	"github.com/acsp-sidecar/sidecar/internal/metrics"
	"github.com/acsp-sidecar/sidecar/internal/protocol"
	"github.com/acsp-sidecar/sidecar/internal/session"
)

const readBufferSize = 32 * 1024

// Recorder is the subset of the record store gateway (internal/store) the
// pipeline depends on, so tests can swap in a fake.
type Recorder interface {
	RecordPB(ctx context.Context, driverGUID, track, config, driverName string, lapMs uint32, car string, grip float32) (int64, error)
	CompareToServerRecord(ctx context.Context, track, config, car string, lapMs uint32) (int64, error)
}

// Pipeline is the cooperative single-reader loop over one UDP socket. One
// PipelineContext is threaded through it (spec §9 "Global mutable state" —
// no package-level singletons).
type Pipeline struct {
	Logger  zerolog.Logger
	Context *session.PipelineContext
	Store   Recorder
	Addr    string

	mu       sync.Mutex
	conn     *net.UDPConn
	bindAddr *net.UDPAddr
}

// Open resolves Addr and binds the UDP socket. Call Serve afterwards to
// start processing; the two are split so tests can read back the actual
// bound address (useful when Addr uses port 0).
func (p *Pipeline) Open() error {
	addr, err := net.ResolveUDPAddr("udp", p.Addr)
	if err != nil {
		return fmt.Errorf("resolving bind address %q: %w", p.Addr, err)
	}
	p.bindAddr = addr
	return p.openConn()
}

func (p *Pipeline) openConn() error {
	conn, err := net.ListenUDP("udp", p.bindAddr)
	if err != nil {
		return fmt.Errorf("listening on %v: %w", p.bindAddr, err)
	}
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	return nil
}

// LocalAddr returns the socket's bound address, or nil before Open or after
// the socket has been closed.
func (p *Pipeline) LocalAddr() *net.UDPAddr {
	conn := p.currentConn()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr().(*net.UDPAddr)
}

func (p *Pipeline) currentConn() *net.UDPConn {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn
}

func (p *Pipeline) closeConn() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Run opens the socket and serves until ctx is canceled; a convenience
// wrapper around Open+Serve for production use.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Open(); err != nil {
		return err
	}
	return p.Serve(ctx)
}

// Serve processes datagrams until ctx is canceled. On cancellation the
// in-flight datagram finishes processing, the socket is closed, and Serve
// returns (spec §5 "Cancellation" — no work abandoned mid-write).
//
// If a read fails for a reason other than cancellation, the socket is
// assumed stale and reopened at the bind address (spec §4.5 "Socket
// recovery"), so a transient OS-level error does not require restarting the
// process.
func (p *Pipeline) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		p.closeConn()
	}()
	defer p.closeConn()

	buf := make([]byte, readBufferSize)
	for {
		conn := p.currentConn()
		if conn == nil {
			return nil
		}

		n, srcAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.Logger.Warn().Err(err).Msg("udp read error, reopening socket")
			conn.Close()
			if err := p.openConn(); err != nil {
				return fmt.Errorf("reopening socket: %w", err)
			}
			continue
		}

		datagram := append([]byte(nil), buf[:n]...)
		p.handleDatagram(ctx, datagram, srcAddr)
	}
}

func (p *Pipeline) handleDatagram(ctx context.Context, datagram []byte, srcAddr *net.UDPAddr) {
	corrID := xid.New().String()
	log := p.Logger.With().Str("corr_id", corrID).Logger()

	msg, err := protocol.Decode(datagram)
	if err != nil {
		p.logDecodeError(log, err)
		return
	}

	switch m := msg.(type) {
	case protocol.NewSession:
		p.Context.Session.Set(m.TrackName, m.TrackConfig)
	case protocol.NewConnection:
		p.Context.Connections.Insert(m)
	case protocol.ConnectionClosed:
		p.Context.Connections.Remove(m.CarID)
	case protocol.LapCompleted:
		p.handleLapCompleted(ctx, m, srcAddr, log)
	}
}

func (p *Pipeline) logDecodeError(log zerolog.Logger, err error) {
	var unsupported *protocol.UnsupportedMessageError
	var parseErr *protocol.MessageParseError

	switch {
	case errors.As(err, &unsupported):
		log.Debug().Int("opcode", int(unsupported.Opcode)).Msg("unsupported message opcode")
		metrics.DecodeErrors.WithLabelValues("unsupported").Inc()
	case errors.As(err, &parseErr):
		log.Warn().Str("reason", parseErr.Reason).Msg("message parse error")
		metrics.DecodeErrors.WithLabelValues("parse").Inc()
	default:
		log.Error().Err(err).Msg("unexpected decode error")
		metrics.DecodeErrors.WithLabelValues("other").Inc()
	}
}

// defaultGripLevel is used when the lap-completion payload carries no grip
// reading (spec §4.5 "Grip level": source history shows both; 1.0 is the
// documented default). The wire shape in spec §3 never carries a grip
// field, so this is the only value ever used here.
const defaultGripLevel = float32(1.0)

func (p *Pipeline) handleLapCompleted(ctx context.Context, lap protocol.LapCompleted, srcAddr *net.UDPAddr, log zerolog.Logger) {
	if lap.Cuts > 0 {
		log.Info().Uint8("car_id", lap.CarID).Msg("cut lap ignored")
		metrics.LapsCutRejected.Inc()
		return
	}

	conn, connected := p.Context.Connections.Get(lap.CarID)
	track, config, sessionSet := p.Context.Session.Current()
	if !connected || !sessionSet {
		log.Error().Uint8("car_id", lap.CarID).Msg("lap completed for unconnected car or unset session, dropping")
		metrics.LapsNoConnectionRejected.Inc()
		return
	}

	pbDiff, err := p.Store.RecordPB(ctx, conn.DriverGUID, track, config, conn.DriverName, lap.LaptimeMs, conn.CarModel, defaultGripLevel)
	if err != nil {
		log.Error().Err(err).Msg("store error recording personal best, dropping lap")
		metrics.StoreErrors.Inc()
		return
	}

	srDiff, err := p.Store.CompareToServerRecord(ctx, track, config, conn.CarModel, lap.LaptimeMs)
	if err != nil {
		log.Error().Err(err).Msg("store error comparing server record, dropping lap")
		metrics.StoreErrors.Inc()
		return
	}

	metrics.LapsAdmitted.Inc()

	p.replyPB(lap, pbDiff, srcAddr, log)
	p.replySR(lap, srDiff, srcAddr, log)
}

func (p *Pipeline) replyPB(lap protocol.LapCompleted, diff int64, srcAddr *net.UDPAddr, log zerolog.Logger) {
	var payload []byte
	switch {
	case diff == int64(lap.LaptimeMs):
		payload = protocol.EncodeSendChat(lap.CarID, fmt.Sprintf("first PB set: %s", format.Ms(lap.LaptimeMs)))
	case diff < 0:
		payload = protocol.EncodeBroadcastChat(fmt.Sprintf("new PB, by %s", format.Ms(uint32(-diff))))
	default:
		payload = protocol.EncodeSendChat(lap.CarID, fmt.Sprintf("lap time %s (PB +%s)", format.Ms(lap.LaptimeMs), format.Ms(uint32(diff))))
	}
	p.send(srcAddr, payload, log)
}

func (p *Pipeline) replySR(lap protocol.LapCompleted, diff int64, srcAddr *net.UDPAddr, log zerolog.Logger) {
	var payload []byte
	switch {
	case diff == int64(lap.LaptimeMs):
		payload = protocol.EncodeBroadcastChat("first server record")
	case diff < 0:
		payload = protocol.EncodeBroadcastChat(fmt.Sprintf("new server record, by %s", format.Ms(uint32(-diff))))
	default:
		payload = protocol.EncodeSendChat(lap.CarID, fmt.Sprintf("server record diff +%s", format.Ms(uint32(diff))))
	}
	p.send(srcAddr, payload, log)
}

func (p *Pipeline) send(addr *net.UDPAddr, payload []byte, log zerolog.Logger) {
	conn := p.currentConn()
	if conn == nil {
		return
	}
	if _, err := conn.WriteToUDP(payload, addr); err != nil {
		log.Error().Err(err).Msg("error sending reply datagram")
	}
}
