package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the irrigation controller's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultDeviceAddr = "192.168.4.1:80"
	defaultUserAgent  = "irriga/0.1"
	requestTimeout    = 10 * time.Second
)

// NewClient builds a Client for the given host:port (or full URL).
func NewClient(addr string) (*Client, error) {
	base, err := parseBaseURL(addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// actionResponse is the controller's envelope for mutating endpoints. The
// firmware answers logical failures with success:false, sometimes still
// under HTTP 200, so it is decoded before any status-code check.
type actionResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	ProgramID string `json:"program_id"`
	IP        string `json:"ip"`
	Mode      string `json:"mode"`
}

// ZonesStatus retrieves the live state of every visible zone.
func (c *Client) ZonesStatus(ctx context.Context) ([]ZoneStatus, error) {
	var payload []ZoneStatus
	if err := c.get(ctx, "/get_zones_status", &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ProgramState retrieves the running-program state.
func (c *Client) ProgramState(ctx context.Context) (*ProgramState, error) {
	var payload ProgramState
	if err := c.get(ctx, "/get_program_state", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ConnectionStatus retrieves the controller's network mode and address.
func (c *Client) ConnectionStatus(ctx context.Context) (*ConnectionStatus, error) {
	var payload ConnectionStatus
	if err := c.get(ctx, "/get_connection_status", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Zones retrieves the configured zone list.
func (c *Client) Zones(ctx context.Context) ([]Zone, error) {
	var payload []Zone
	if err := c.get(ctx, "/get_zones", &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Settings retrieves the persisted user settings snapshot.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var payload Settings
	if err := c.get(ctx, "/data/user_settings.json", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Programs retrieves the persisted watering programs, keyed by id.
func (c *Client) Programs(ctx context.Context) (map[string]Program, error) {
	var payload map[string]Program
	if err := c.get(ctx, "/data/program.json", &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// SystemLog retrieves the controller's event log, newest first.
func (c *Client) SystemLog(ctx context.Context) ([]LogEntry, error) {
	var payload []LogEntry
	if err := c.get(ctx, "/data/system_log.json", &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// ScanWifi runs a network sweep on the controller and returns the results.
// The sweep blocks the device for a few seconds; callers should not poll it.
func (c *Client) ScanWifi(ctx context.Context) ([]WifiNetwork, error) {
	var payload []WifiNetwork
	if err := c.get(ctx, "/scan_wifi", &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Stats retrieves web-server health counters.
func (c *Client) Stats(ctx context.Context) (*ServerStats, error) {
	var payload ServerStats
	if err := c.get(ctx, "/server_stats", &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// StartZone activates a zone for the given number of minutes.
func (c *Client) StartZone(ctx context.Context, zoneID, durationMinutes int) error {
	_, err := c.action(ctx, http.MethodPost, "/start_zone", map[string]any{
		"zone_id":  zoneID,
		"duration": durationMinutes,
	})
	return err
}

// StopZone deactivates a zone.
func (c *Client) StopZone(ctx context.Context, zoneID int) error {
	_, err := c.action(ctx, http.MethodPost, "/stop_zone", map[string]any{
		"zone_id": zoneID,
	})
	return err
}

// StartProgram launches a watering program manually.
func (c *Client) StartProgram(ctx context.Context, programID string) error {
	_, err := c.action(ctx, http.MethodPost, "/start_program", map[string]any{
		"program_id": programID,
	})
	return err
}

// StopProgram interrupts the running program.
func (c *Client) StopProgram(ctx context.Context) error {
	_, err := c.action(ctx, http.MethodPost, "/stop_program", nil)
	return err
}

// SaveProgram creates a new program and returns the id assigned by the
// controller.
func (c *Client) SaveProgram(ctx context.Context, p Program) (string, error) {
	resp, err := c.action(ctx, http.MethodPost, "/save_program", p)
	if err != nil {
		return "", err
	}
	return resp.ProgramID, nil
}

// UpdateProgram replaces an existing program.
func (c *Client) UpdateProgram(ctx context.Context, p Program) error {
	_, err := c.action(ctx, http.MethodPut, "/update_program", p)
	return err
}

// DeleteProgram removes a program.
func (c *Client) DeleteProgram(ctx context.Context, programID string) error {
	_, err := c.action(ctx, http.MethodPost, "/delete_program", map[string]any{
		"id": programID,
	})
	return err
}

// SetProgramAutomatic enables or disables automatic execution of one program.
func (c *Client) SetProgramAutomatic(ctx context.Context, programID string, enable bool) error {
	_, err := c.action(ctx, http.MethodPost, "/toggle_program_automatic", map[string]any{
		"program_id": programID,
		"enable":     enable,
	})
	return err
}

// SetAutomaticPrograms enables or disables automatic program execution
// globally.
func (c *Client) SetAutomaticPrograms(ctx context.Context, enable bool) error {
	_, err := c.action(ctx, http.MethodPost, "/toggle_automatic_programs", map[string]any{
		"enable": enable,
	})
	return err
}

// SaveSettings sends a subset of settings keys; the controller merges them
// into the persisted settings file key by key.
func (c *Client) SaveSettings(ctx context.Context, patch SettingsPatch) error {
	_, err := c.action(ctx, http.MethodPost, "/save_user_settings", patch)
	return err
}

// ConnectWifi switches the controller to client mode on the given network.
// On success the returned status carries the new mode and address; the
// device may drop the current connection while switching.
func (c *Client) ConnectWifi(ctx context.Context, ssid, password string) (*ConnectionStatus, error) {
	resp, err := c.action(ctx, http.MethodPost, "/connect_wifi", map[string]any{
		"ssid":     ssid,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return &ConnectionStatus{Mode: resp.Mode, IP: resp.IP, SSID: ssid}, nil
}

// DisconnectWifi drops the station-mode connection.
func (c *Client) DisconnectWifi(ctx context.Context) error {
	_, err := c.action(ctx, http.MethodPost, "/disconnect_wifi", nil)
	return err
}

// ActivateAP switches the controller to access-point mode.
func (c *Client) ActivateAP(ctx context.Context) error {
	_, err := c.action(ctx, http.MethodPost, "/activate_ap", nil)
	return err
}

// RestartSystem reboots the controller. The device answers first and resets
// a couple of seconds later, so expect a connectivity gap afterwards.
func (c *Client) RestartSystem(ctx context.Context) error {
	_, err := c.action(ctx, http.MethodPost, "/restart_system", nil)
	return err
}

// ResetSettings restores default user settings.
func (c *Client) ResetSettings(ctx context.Context) error {
	_, err := c.action(ctx, http.MethodPost, "/reset_settings", nil)
	return err
}

// ResetFactoryData wipes settings, programs and logs.
func (c *Client) ResetFactoryData(ctx context.Context) error {
	_, err := c.action(ctx, http.MethodPost, "/reset_factory_data", nil)
	return err
}

// ClearLogs empties the controller's event log.
func (c *Client) ClearLogs(ctx context.Context) error {
	_, err := c.action(ctx, http.MethodPost, "/clear_logs", nil)
	return err
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Kind: KindNetwork, Endpoint: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Kind: KindHTTPStatus, Endpoint: path, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &APIError{Kind: KindMalformed, Endpoint: path, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// action performs a mutating exchange and interprets the success envelope.
func (c *Client) action(ctx context.Context, method, path string, body any) (*actionResponse, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Endpoint: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Endpoint: path, Err: err}
	}

	var payload actionResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &APIError{Kind: KindHTTPStatus, Endpoint: path, Status: resp.StatusCode, Err: err}
		}
		return nil, &APIError{Kind: KindMalformed, Endpoint: path, Status: resp.StatusCode, Err: err}
	}

	if !payload.Success {
		message := payload.Error
		if message == "" {
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, &APIError{Kind: KindHTTPStatus, Endpoint: path, Status: resp.StatusCode}
			}
			message = "request rejected"
		}
		return nil, &APIError{Kind: KindApplication, Endpoint: path, Status: resp.StatusCode, Message: message}
	}
	return &payload, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func parseBaseURL(addr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		trimmed = defaultDeviceAddr
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse device address %q: %w", addr, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
