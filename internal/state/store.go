package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/tarn/irriga/internal/device"
	"github.com/tarn/irriga/internal/metrics"
)

// Snapshot represents the latest device state available to the UI.
type Snapshot struct {
	Zones    []device.ZoneStatus
	HasZones bool
	// ZonesUpdated moves only on a fresh zones poll, unlike LastUpdated
	// which any resource bumps. Countdown captures key off it so a
	// program-state success cannot re-capture a stale zones report.
	ZonesUpdated time.Time
	Program    device.ProgramState
	HasProgram bool
	Connection device.ConnectionStatus
	HasConn    bool
	Logs       []device.LogEntry
	HasLogs    bool

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // consecutive poll failures across resources
}

// IsOffline returns true when the controller has been unreachable for
// multiple polls in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// ActiveZones returns the zones currently running.
func (s Snapshot) ActiveZones() []device.ZoneStatus {
	var active []device.ZoneStatus
	for _, z := range s.Zones {
		if z.Active {
			active = append(active, z)
		}
	}
	return active
}

// Store coordinates concurrent updates from the poll loops with UI reads.
// Each setter replaces one resource's slice of the snapshot; a poll error
// keeps the previous data and records the failure.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// SetZones replaces the zone status list.
func (s *Store) SetZones(zones []device.ZoneStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Zones = cloneZones(zones)
	s.snapshot.HasZones = true
	s.snapshot.ZonesUpdated = time.Now()
	s.recordSuccess()
}

// SetProgram replaces the program state.
func (s *Store) SetProgram(p device.ProgramState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Program = p
	s.snapshot.HasProgram = true
	s.recordSuccess()
}

// SetConnection replaces the connection status.
func (s *Store) SetConnection(c device.ConnectionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Connection = c
	s.snapshot.HasConn = true
	s.recordSuccess()
}

// SetLogs replaces the controller event log.
func (s *Store) SetLogs(logs []device.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Logs = cloneLogs(logs)
	s.snapshot.HasLogs = true
	s.recordSuccess()
}

// SetError records a poll failure. Previous data is kept so the UI keeps
// showing the last known state; the next successful poll corrects it.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
	metrics.Gauge("poll.consecutive_failures", float64(s.snapshot.ConsecutiveFailures))
}

func (s *Store) recordSuccess() {
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Zones = cloneZones(s.snapshot.Zones)
	snap.Logs = cloneLogs(s.snapshot.Logs)
	if s.snapshot.Program.ActiveZone != nil {
		zone := *s.snapshot.Program.ActiveZone
		snap.Program.ActiveZone = &zone
	}
	if s.snapshot.Program.CurrentProgramID != nil {
		id := *s.snapshot.Program.CurrentProgramID
		snap.Program.CurrentProgramID = &id
	}
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneZones(zones []device.ZoneStatus) []device.ZoneStatus {
	if len(zones) == 0 {
		return nil
	}
	dup := make([]device.ZoneStatus, len(zones))
	copy(dup, zones)
	return dup
}

func cloneLogs(logs []device.LogEntry) []device.LogEntry {
	if len(logs) == 0 {
		return nil
	}
	dup := make([]device.LogEntry, len(logs))
	copy(dup, logs)
	return dup
}
