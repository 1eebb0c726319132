package device

import (
	"time"
)

// ZoneStatus is one entry of the /get_zones_status payload.
type ZoneStatus struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Active        bool   `json:"active"`
	RemainingTime int    `json:"remaining_time"` // seconds
}

// Remaining returns the server-reported remaining run time.
func (z ZoneStatus) Remaining() time.Duration {
	if z.RemainingTime <= 0 {
		return 0
	}
	return time.Duration(z.RemainingTime) * time.Second
}

// Zone is a configured zone as stored in the controller's user settings.
type Zone struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Pin    int    `json:"pin"`
	Status string `json:"status"` // "show" or "hide"
}

// Visible reports whether the zone should appear in the panel.
func (z Zone) Visible() bool { return z.Status == "show" }

// ProgramState is the /get_program_state payload. CurrentProgramID is null
// when no program is running.
type ProgramState struct {
	ProgramRunning   bool        `json:"program_running"`
	CurrentProgramID *string     `json:"current_program_id"`
	ActiveZone       *ZoneStatus `json:"active_zone,omitempty"`
}

// ConnectionStatus is the /get_connection_status payload.
type ConnectionStatus struct {
	Mode string `json:"mode"` // "client", "AP", "none" or "unknown"
	IP   string `json:"ip"`
	SSID string `json:"ssid"`
}

// Connected reports whether the controller has a usable network identity.
func (c ConnectionStatus) Connected() bool {
	return c.Mode == "client" || c.Mode == "AP"
}

// ProgramZone is one step of a watering program.
type ProgramZone struct {
	ZoneID   int `json:"zone_id"`
	Duration int `json:"duration"` // minutes
}

// Program mirrors one entry of /data/program.json. Recurrence is one of the
// controller's literals: "giornaliero", "ogni_2_giorni" or "personalizzata"
// (with IntervalDays).
type Program struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	ActivationTime   string        `json:"activation_time"` // "HH:MM"
	Recurrence       string        `json:"recurrence"`
	IntervalDays     int           `json:"interval_days,omitempty"`
	Months           []string      `json:"months"`
	Zones            []ProgramZone `json:"zones"`
	AutomaticEnabled bool          `json:"automatic_enabled"`
	LastRunDate      string        `json:"last_run_date,omitempty"`
}

// TotalDuration sums the per-zone step durations.
func (p Program) TotalDuration() time.Duration {
	total := 0
	for _, z := range p.Zones {
		total += z.Duration
	}
	return time.Duration(total) * time.Minute
}

// SafetyRelay configures the controller's master relay.
type SafetyRelay struct {
	Pin int `json:"pin"`
}

// WifiCredentials is the stored station-mode network.
type WifiCredentials struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// Settings mirrors /data/user_settings.json. Saves go through a key subset
// (SettingsPatch) because the controller merges settings key by key.
type Settings struct {
	Zones                    []Zone          `json:"zones"`
	AutomaticProgramsEnabled bool            `json:"automatic_programs_enabled"`
	MaxActiveZones           int             `json:"max_active_zones"`
	MaxZoneDuration          int             `json:"max_zone_duration"` // minutes
	ActivationDelay          int             `json:"activation_delay"`  // minutes
	ClientEnabled            bool            `json:"client_enabled"`
	Wifi                     WifiCredentials `json:"wifi"`
	AP                       WifiCredentials `json:"ap"`
	SafetyRelay              SafetyRelay     `json:"safety_relay"`
}

// SettingsPatch is the subset of settings keys sent to /save_user_settings.
type SettingsPatch map[string]any

// LogEntry is one record of /data/system_log.json.
type LogEntry struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// WifiNetwork is one result of a /scan_wifi sweep. Signal is the
// controller's coarse quality label, not a dBm value.
type WifiNetwork struct {
	SSID   string `json:"ssid"`
	Signal string `json:"signal"`
}

// ServerStats is the /server_stats payload.
type ServerStats struct {
	UptimeSeconds int64 `json:"uptime"`
	FreeMemory    int64 `json:"free_memory"`
	Requests      int64 `json:"requests"`
	Errors        int64 `json:"errors"`
	LastRestart   int64 `json:"last_restart"`
}
