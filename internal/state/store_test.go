package state

import (
	"errors"
	"testing"

	"github.com/tarn/irriga/internal/device"
)

func TestStore_SettersPopulateSnapshot(t *testing.T) {
	store := &Store{}

	store.SetZones([]device.ZoneStatus{{ID: 1, Name: "Lawn", Active: true, RemainingTime: 60}})
	programID := "prog-1"
	store.SetProgram(device.ProgramState{ProgramRunning: true, CurrentProgramID: &programID})
	store.SetConnection(device.ConnectionStatus{Mode: "client", IP: "10.0.0.9"})
	store.SetLogs([]device.LogEntry{{Date: "2026-06-15", Time: "08:00:00", Level: "INFO", Message: "boot"}})

	snap := store.Snapshot()
	if !snap.HasZones || len(snap.Zones) != 1 || snap.Zones[0].Name != "Lawn" {
		t.Fatalf("zones = %+v", snap.Zones)
	}
	if !snap.HasProgram || !snap.Program.ProgramRunning {
		t.Fatalf("program = %+v", snap.Program)
	}
	if !snap.HasConn || snap.Connection.IP != "10.0.0.9" {
		t.Fatalf("connection = %+v", snap.Connection)
	}
	if !snap.HasLogs || len(snap.Logs) != 1 {
		t.Fatalf("logs = %+v", snap.Logs)
	}
	if snap.LastUpdated.IsZero() {
		t.Fatal("LastUpdated not set")
	}
	if snap.LastError != nil || snap.ConsecutiveFailures != 0 {
		t.Fatalf("unexpected error state: %v / %d", snap.LastError, snap.ConsecutiveFailures)
	}
}

func TestStore_ZonesFreshnessTracksZonesAlone(t *testing.T) {
	store := &Store{}

	store.SetZones([]device.ZoneStatus{{ID: 1, Name: "Lawn", Active: true}})
	first := store.Snapshot().ZonesUpdated
	if first.IsZero() {
		t.Fatal("ZonesUpdated not set by SetZones")
	}

	// Other resources bump LastUpdated but must leave zone freshness alone.
	store.SetProgram(device.ProgramState{ProgramRunning: true})
	store.SetConnection(device.ConnectionStatus{Mode: "client"})
	store.SetLogs(nil)

	snap := store.Snapshot()
	if !snap.ZonesUpdated.Equal(first) {
		t.Fatalf("ZonesUpdated = %v, want unchanged %v", snap.ZonesUpdated, first)
	}
	if !snap.LastUpdated.After(first) && !snap.LastUpdated.Equal(first) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, first)
	}

	store.SetZones(nil)
	if got := store.Snapshot().ZonesUpdated; got.Before(first) {
		t.Fatalf("ZonesUpdated = %v went backwards from %v", got, first)
	}
}

func TestStore_ErrorKeepsLastData(t *testing.T) {
	store := &Store{}
	store.SetZones([]device.ZoneStatus{{ID: 1, Name: "Lawn"}})

	pollErr := errors.New("connection refused")
	store.SetError(pollErr)

	snap := store.Snapshot()
	if !snap.HasZones || len(snap.Zones) != 1 {
		t.Fatal("poll failure must not drop last known data")
	}
	if snap.LastError == nil || !errors.Is(snap.LastError, pollErr) {
		t.Fatalf("LastError = %v, want wrap of %v", snap.LastError, pollErr)
	}
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("failures = %d, want 1", snap.ConsecutiveFailures)
	}
}

func TestStore_OfflineAfterConsecutiveFailures(t *testing.T) {
	store := &Store{}
	store.SetError(errors.New("refused"))
	if store.Snapshot().IsOffline() {
		t.Fatal("one failure should not mark offline")
	}
	store.SetError(errors.New("refused"))
	if !store.Snapshot().IsOffline() {
		t.Fatal("two failures should mark offline")
	}

	store.SetZones(nil)
	if store.Snapshot().IsOffline() {
		t.Fatal("success should clear the failure streak")
	}
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	store := &Store{}
	store.SetZones([]device.ZoneStatus{{ID: 1, Name: "Lawn"}})
	programID := "prog-1"
	store.SetProgram(device.ProgramState{
		ProgramRunning:   true,
		CurrentProgramID: &programID,
		ActiveZone:       &device.ZoneStatus{ID: 1, Name: "Lawn"},
	})

	snap := store.Snapshot()
	snap.Zones[0].Name = "mutated"
	*snap.Program.CurrentProgramID = "mutated"
	snap.Program.ActiveZone.Name = "mutated"

	fresh := store.Snapshot()
	if fresh.Zones[0].Name != "Lawn" {
		t.Fatal("zone slice not copied")
	}
	if *fresh.Program.CurrentProgramID != "prog-1" {
		t.Fatal("program id pointer not copied")
	}
	if fresh.Program.ActiveZone.Name != "Lawn" {
		t.Fatal("active zone pointer not copied")
	}
}

func TestSnapshot_ActiveZones(t *testing.T) {
	snap := Snapshot{Zones: []device.ZoneStatus{
		{ID: 1, Active: false},
		{ID: 2, Active: true},
		{ID: 3, Active: true},
	}}
	active := snap.ActiveZones()
	if len(active) != 2 || active[0].ID != 2 || active[1].ID != 3 {
		t.Fatalf("active = %+v", active)
	}
}
