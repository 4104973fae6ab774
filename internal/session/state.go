// Package session holds the pipeline's ephemeral state: the current
// session's track/config and the table of connected cars. Both are
// threaded through the pipeline as a single PipelineContext value rather
// than as package-level singletons (spec §9 "Global mutable state").
package session

import (
	"sync"

	"github.com/acsp-sidecar/sidecar/internal/protocol"
)

// State is a mutable record of the current track/config. Initially both
// are unset; each NewSession overwrites both wholesale (spec §4.2). No
// history is kept.
type State struct {
	mu          sync.Mutex
	trackName   string
	trackConfig string
	set         bool
}

// Set overwrites the current track/config.
func (s *State) Set(track, config string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackName = track
	s.trackConfig = config
	s.set = true
}

// Current returns the track/config snapshot, and false if no NewSession has
// been seen yet. Both fields are read together under the same lock: there
// is no meaningful state when only one field is set (spec §4.2).
func (s *State) Current() (track, config string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackName, s.trackConfig, s.set
}

// ConnectionTable maps car_id (0-255) to the most recent NewConnection for
// that car. At most one entry per car_id; a second NewConnection for an
// occupied slot replaces the old one (drivers swap cars).
type ConnectionTable struct {
	mu      sync.Mutex
	entries map[byte]protocol.NewConnection
}

// NewConnectionTable returns an empty table ready for use.
func NewConnectionTable() *ConnectionTable {
	return &ConnectionTable{entries: make(map[byte]protocol.NewConnection)}
}

// Insert records conn under its CarID, replacing any existing entry.
func (t *ConnectionTable) Insert(conn protocol.NewConnection) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[conn.CarID] = conn
}

// Remove deletes the entry for carID, if any. Absence is not an error.
func (t *ConnectionTable) Remove(carID byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, carID)
}

// Get returns the connection for carID, and false if none is recorded.
func (t *ConnectionTable) Get(carID byte) (protocol.NewConnection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn, ok := t.entries[carID]
	return conn, ok
}

// PipelineContext owns everything the pipeline's single reader mutates: the
// session state and the connection table. Tests construct these directly
// instead of reaching for package-level globals.
type PipelineContext struct {
	Session     *State
	Connections *ConnectionTable
}

// NewPipelineContext returns a freshly initialized context.
func NewPipelineContext() *PipelineContext {
	return &PipelineContext{
		Session:     &State{},
		Connections: NewConnectionTable(),
	}
}
