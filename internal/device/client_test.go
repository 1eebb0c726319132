package device

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultDeviceAddr {
		t.Fatalf("host = %q, want %q", u.Host, defaultDeviceAddr)
	}

	u, err = parseBaseURL("http://192.168.1.50:8080/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_FetchesStatusEndpoints(t *testing.T) {
	t.Parallel()

	var gotUserAgent string
	programID := "prog-1"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/get_zones_status":
			_ = json.NewEncoder(w).Encode([]ZoneStatus{
				{ID: 1, Name: "Lawn", Active: true, RemainingTime: 90},
				{ID: 2, Name: "Beds", Active: false},
			})
		case "/get_program_state":
			_ = json.NewEncoder(w).Encode(ProgramState{
				ProgramRunning:   true,
				CurrentProgramID: &programID,
				ActiveZone:       &ZoneStatus{ID: 1, Name: "Lawn", Active: true},
			})
		case "/get_connection_status":
			_ = json.NewEncoder(w).Encode(ConnectionStatus{Mode: "client", IP: "10.0.0.9", SSID: "home"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	zones, err := client.ZonesStatus(ctx)
	if err != nil {
		t.Fatalf("ZonesStatus returned error: %v", err)
	}
	if len(zones) != 2 || zones[0].Name != "Lawn" || !zones[0].Active {
		t.Fatalf("zones = %+v", zones)
	}
	if got := zones[0].Remaining().Seconds(); got != 90 {
		t.Fatalf("remaining = %v, want 90s", got)
	}

	ps, err := client.ProgramState(ctx)
	if err != nil {
		t.Fatalf("ProgramState returned error: %v", err)
	}
	if !ps.ProgramRunning || ps.CurrentProgramID == nil || *ps.CurrentProgramID != "prog-1" {
		t.Fatalf("program state = %+v", ps)
	}

	conn, err := client.ConnectionStatus(ctx)
	if err != nil {
		t.Fatalf("ConnectionStatus returned error: %v", err)
	}
	if !conn.Connected() || conn.IP != "10.0.0.9" {
		t.Fatalf("connection = %+v", conn)
	}

	if gotUserAgent != defaultUserAgent {
		t.Fatalf("user agent = %q, want %q", gotUserAgent, defaultUserAgent)
	}
}

func TestClient_ActionDecodesEnvelopeBeforeStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/start_zone":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["zone_id"] == float64(99) {
				// Logical rejection still carries a decodable envelope.
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"success": false, "error": "zone limit reached"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success": true}`))
		case "/stop_zone":
			w.WriteHeader(http.StatusInternalServerError)
		case "/stop_program":
			_, _ = w.Write([]byte(`not json at all`))
		case "/save_program":
			_, _ = w.Write([]byte(`{"success": true, "program_id": "prog-7"}`))
		case "/connect_wifi":
			_, _ = w.Write([]byte(`{"success": true, "ip": "10.0.0.4", "mode": "client"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	if err := client.StartZone(ctx, 1, 10); err != nil {
		t.Fatalf("StartZone returned error: %v", err)
	}

	err = client.StartZone(ctx, 99, 10)
	if Kind(err) != KindApplication {
		t.Fatalf("kind = %v, want application (err: %v)", Kind(err), err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "zone limit reached" {
		t.Fatalf("message not preserved: %v", err)
	}
	if Retryable(err) {
		t.Fatal("application error must not be retryable")
	}

	err = client.StopZone(ctx, 1)
	if Kind(err) != KindHTTPStatus {
		t.Fatalf("kind = %v, want http_status (err: %v)", Kind(err), err)
	}
	if !Retryable(err) {
		t.Fatal("5xx without an envelope should be retryable")
	}

	err = client.StopProgram(ctx)
	if Kind(err) != KindMalformed {
		t.Fatalf("kind = %v, want malformed (err: %v)", Kind(err), err)
	}
	if Retryable(err) {
		t.Fatal("malformed response must not be retryable")
	}

	id, err := client.SaveProgram(ctx, Program{Name: "Morning"})
	if err != nil {
		t.Fatalf("SaveProgram returned error: %v", err)
	}
	if id != "prog-7" {
		t.Fatalf("program id = %q, want prog-7", id)
	}

	status, err := client.ConnectWifi(ctx, "home", "secret")
	if err != nil {
		t.Fatalf("ConnectWifi returned error: %v", err)
	}
	if status.Mode != "client" || status.IP != "10.0.0.4" || status.SSID != "home" {
		t.Fatalf("status = %+v", status)
	}
}

func TestClient_ZoneConfigAndProgramUpdate(t *testing.T) {
	t.Parallel()

	var gotMethod string
	var gotProgram Program

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/get_zones":
			_ = json.NewEncoder(w).Encode([]Zone{
				{ID: 1, Name: "Lawn", Pin: 5, Status: "show"},
				{ID: 2, Name: "Spare", Pin: 6, Status: "hide"},
			})
		case "/update_program":
			gotMethod = r.Method
			_ = json.NewDecoder(r.Body).Decode(&gotProgram)
			_, _ = w.Write([]byte(`{"success": true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	zones, err := client.Zones(ctx)
	if err != nil {
		t.Fatalf("Zones returned error: %v", err)
	}
	if len(zones) != 2 || zones[0].Pin != 5 {
		t.Fatalf("zones = %+v", zones)
	}
	if !zones[0].Visible() {
		t.Fatalf("zone %q should be visible", zones[0].Name)
	}
	if zones[1].Visible() {
		t.Fatalf("zone %q marked hide should not be visible", zones[1].Name)
	}

	if err := client.UpdateProgram(ctx, Program{ID: "prog-3", Name: "Evening"}); err != nil {
		t.Fatalf("UpdateProgram returned error: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Fatalf("method = %q, want PUT", gotMethod)
	}
	if gotProgram.ID != "prog-3" || gotProgram.Name != "Evening" {
		t.Fatalf("program body = %+v", gotProgram)
	}
}

func TestClient_NetworkErrorsAreRetryable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse every connection

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	err = client.StopProgram(context.Background())
	if Kind(err) != KindNetwork {
		t.Fatalf("kind = %v, want network (err: %v)", Kind(err), err)
	}
	if !Retryable(err) {
		t.Fatal("network error should be retryable")
	}
}

func TestClient_GetClassifiesFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_zones_status":
			http.Error(w, "nope", http.StatusServiceUnavailable)
		case "/get_program_state":
			_, _ = w.Write([]byte(`{"program_running": `))
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	_, err = client.ZonesStatus(ctx)
	if Kind(err) != KindHTTPStatus {
		t.Fatalf("kind = %v, want http_status", Kind(err))
	}

	_, err = client.ProgramState(ctx)
	if Kind(err) != KindMalformed {
		t.Fatalf("kind = %v, want malformed", Kind(err))
	}
}
