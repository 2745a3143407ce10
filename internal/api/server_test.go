package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"

	"github.com/usbwatch/usbwatch-core/internal/hotplug"
	"github.com/usbwatch/usbwatch-core/internal/infrastructure/config"
	"github.com/usbwatch/usbwatch-core/internal/infrastructure/logging"
	"github.com/usbwatch/usbwatch-core/internal/journal"
	"github.com/usbwatch/usbwatch-core/internal/usb"
)

func testDeps(t *testing.T) Deps {
	t.Helper()

	hp := hotplug.New(hotplug.Config{HasHotplug: true, QueueCapacity: 16})
	t.Cleanup(hp.Close)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	return Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
			WebSocket: config.WebSocketConfig{
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{
				Secret:         "test-secret-key-at-least-32-characters-long",
				AccessTokenTTL: 15,
			},
		},
		Logger:  log,
		Hotplug: hp,
		Journal: journal.NewStore(setupTestDB(t)),
		Version: "test",
	}
}

// testServer creates a Server with a real hotplug context and a journal
// store backed by in-memory SQLite.
func testServer(t *testing.T) (*Server, *hotplug.Context) {
	t.Helper()

	deps := testDeps(t)
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Initialise hub for tests
	srv.hub = NewHub(srv.cfg.WebSocket, srv.logger)
	go srv.hub.Run(context.Background())

	return srv, deps.Hotplug
}

// setupTestDB creates an in-memory SQLite database with the journal schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE hotplug_events (
			id          TEXT PRIMARY KEY,
			event       TEXT NOT NULL,
			vendor_id   INTEGER NOT NULL,
			product_id  INTEGER NOT NULL,
			class       INTEGER NOT NULL,
			bus_number  INTEGER NOT NULL,
			address     INTEGER NOT NULL,
			port        INTEGER NOT NULL DEFAULT 0,
			speed       TEXT NOT NULL DEFAULT 'unknown',
			session_id  TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX idx_hotplug_events_recorded_at ON hotplug_events(recorded_at DESC);
		CREATE INDEX idx_hotplug_events_session ON hotplug_events(session_id);
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// attach plugs a simulated device into the hotplug context.
func attach(t *testing.T, hp *hotplug.Context, vendorID, productID uint16, sessionID string) *usb.Device {
	t.Helper()

	dev := usb.NewDevice(usb.Descriptor{
		VendorID:  vendorID,
		ProductID: productID,
		Class:     0x03,
		BusNumber: 1,
		Address:   4,
		Speed:     usb.SpeedHigh,
	}, sessionID, nil)
	hp.ConnectDevice(dev)
	hp.ProcessPending()
	return dev
}

// login obtains a bearer token through the login endpoint.
func login(t *testing.T, router http.Handler) string {
	t.Helper()

	body := `{"username": "admin", "password": "admin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return "Bearer " + resp.AccessToken
}

// authedRequest builds a request carrying a valid bearer token.
func authedRequest(t *testing.T, router http.Handler, method, path string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", login(t, router))
	return req
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if resp["hotplug"] != true {
		t.Errorf("hotplug = %v, want true", resp["hotplug"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Auth Tests ────────────────────────────────────────────────────

func TestLogin_Success(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"username": "admin", "password": "admin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.AccessToken == "" {
		t.Error("expected access_token to be non-empty")
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.TokenType)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	body := `{"username": "admin", "password": "wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestWSTicket_SingleUse(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodPost, "/api/v1/auth/ws-ticket")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	ticket, ok := resp["ticket"].(string)
	if !ok || ticket == "" {
		t.Fatal("expected ticket to be a non-empty string")
	}

	// Ticket should be valid once
	entry, valid := srv.validateTicket(ticket)
	if !valid {
		t.Error("ticket should be valid on first use")
	}
	if entry.subject != "admin" {
		t.Errorf("ticket subject = %q, want admin", entry.subject)
	}

	// Ticket should be consumed (single-use)
	if _, valid := srv.validateTicket(ticket); valid {
		t.Error("ticket should not be valid on second use")
	}
}

func TestWSTicket_Expiry(t *testing.T) {
	srv, _ := testServer(t)

	ticket := generateTicket()
	srv.tickets.mu.Lock()
	srv.tickets.tickets[ticket] = ticketEntry{
		expiresAt: time.Now().Add(-1 * time.Second),
	}
	srv.tickets.mu.Unlock()

	if _, valid := srv.validateTicket(ticket); valid {
		t.Error("expired ticket should not be valid")
	}
}

// ─── Device Endpoint Tests ─────────────────────────────────────────

func TestListDevices_Empty(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/devices")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		Devices []deviceView `json:"devices"`
		Count   int          `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
}

func TestListDevices_Attached(t *testing.T) {
	srv, hp := testServer(t)
	router := srv.buildRouter()

	attach(t, hp, 0x046d, 0xc52b, "1-4:10")
	attach(t, hp, 0x0781, 0x5583, "2-1:11")

	req := authedRequest(t, router, http.MethodGet, "/api/v1/devices")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Devices []deviceView `json:"devices"`
		Count   int          `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Devices[0].SessionID != "1-4:10" {
		t.Errorf("first session = %q, want 1-4:10", resp.Devices[0].SessionID)
	}
	if resp.Devices[0].Device.VendorID != 0x046d {
		t.Errorf("vendor = %04x, want 046d", resp.Devices[0].Device.VendorID)
	}
}

func TestListDevices_VendorFilter(t *testing.T) {
	srv, hp := testServer(t)
	router := srv.buildRouter()

	attach(t, hp, 0x046d, 0xc52b, "1-4:10")
	attach(t, hp, 0x0781, 0x5583, "2-1:11")

	req := authedRequest(t, router, http.MethodGet, "/api/v1/devices?vendor_id=0781")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp struct {
		Devices []deviceView `json:"devices"`
		Count   int          `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Devices[0].Device.VendorID != 0x0781 {
		t.Errorf("vendor = %04x, want 0781", resp.Devices[0].Device.VendorID)
	}
}

func TestListDevices_BadFilter(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/devices?vendor_id=zzzz")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetDevice(t *testing.T) {
	srv, hp := testServer(t)
	router := srv.buildRouter()

	attach(t, hp, 0x046d, 0xc52b, "1-4:10")

	req := authedRequest(t, router, http.MethodGet, "/api/v1/devices/1-4:10")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var view deviceView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if view.SessionID != "1-4:10" {
		t.Errorf("session = %q, want 1-4:10", view.SessionID)
	}
	if !view.Attached {
		t.Error("expected device to report attached")
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/devices/9-9:99")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestListCallbacks(t *testing.T) {
	srv, hp := testServer(t)
	router := srv.buildRouter()

	_, err := hp.Register(hotplug.DeviceArrived, 0, hotplug.MatchAny, hotplug.MatchAny, hotplug.MatchAny,
		func(_ *hotplug.Context, _ *usb.Device, _ hotplug.Event, _ any) hotplug.Action {
			return hotplug.Rearm
		}, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	req := authedRequest(t, router, http.MethodGet, "/api/v1/callbacks")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Callbacks []hotplug.CallbackInfo `json:"callbacks"`
		Count     int                    `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Callbacks[0].VendorID != hotplug.MatchAny {
		t.Errorf("vendor filter = %d, want MatchAny", resp.Callbacks[0].VendorID)
	}
}

// ─── Journal Endpoint Tests ────────────────────────────────────────

func TestJournalRecent(t *testing.T) {
	deps := testDeps(t)
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	router := srv.buildRouter()

	desc := usb.Descriptor{VendorID: 0x046d, ProductID: 0xc52b, BusNumber: 1, Address: 4}
	if _, err := deps.Journal.Record(context.Background(), journal.EventArrived, desc, "1-4:10"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := deps.Journal.Record(context.Background(), journal.EventLeft, desc, "1-4:10"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	req := authedRequest(t, router, http.MethodGet, "/api/v1/journal?limit=10")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Entries []journal.Entry `json:"entries"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestJournalRecent_BadLimit(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/journal?limit=-5")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestJournalBySession(t *testing.T) {
	deps := testDeps(t)
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	router := srv.buildRouter()

	desc := usb.Descriptor{VendorID: 0x0781, ProductID: 0x5583, BusNumber: 2, Address: 1}
	if _, err := deps.Journal.Record(context.Background(), journal.EventArrived, desc, "2-1:11"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	req := authedRequest(t, router, http.MethodGet, "/api/v1/journal/sessions/2-1:11")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Entries []journal.Entry `json:"entries"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Entries[0].SessionID != "2-1:11" {
		t.Errorf("session = %q, want 2-1:11", resp.Entries[0].SessionID)
	}
}

func TestJournalBySession_NotFound(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/journal/sessions/unknown")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestJournal_Unavailable(t *testing.T) {
	deps := testDeps(t)
	deps.Journal = nil
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/journal")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

// ─── WebSocket Hub Tests ───────────────────────────────────────────

func testHub(t *testing.T) *Hub {
	t.Helper()

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := testHub(t)

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelDeviceArrived: {}},
	}
	hub.Register(client)

	hub.Broadcast(ChannelDeviceArrived, wsDeviceEvent{
		Event:     ChannelDeviceArrived,
		SessionID: "1-4:10",
	})

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelDeviceArrived {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelDeviceArrived)
		}
	case <-time.After(time.Second):
		t.Error("timed out waiting for broadcast message")
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := testHub(t)

	// Client subscribed to departures only
	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{ChannelDeviceLeft: {}},
	}
	hub.Register(client)

	hub.Broadcast(ChannelDeviceArrived, wsDeviceEvent{SessionID: "1-4:10"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
		// OK — no message received
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := testHub(t)

	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	client := &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	hub.Register(client)

	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)

	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

func TestHub_DeviceCallback(t *testing.T) {
	hub := testHub(t)

	client := &WSClient{
		hub:  hub,
		send: make(chan []byte, wsSendBufferSize),
		subscriptions: map[string]struct{}{
			ChannelDeviceArrived: {},
			ChannelDeviceLeft:    {},
		},
	}
	hub.Register(client)

	hp := hotplug.New(hotplug.Config{HasHotplug: true})
	defer hp.Close()

	_, err := hp.Register(hotplug.DeviceArrived|hotplug.DeviceLeft, 0,
		hotplug.MatchAny, hotplug.MatchAny, hotplug.MatchAny, hub.DeviceCallback(), nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	dev := usb.NewDevice(usb.Descriptor{VendorID: 0x046d, ProductID: 0xc52b}, "1-4:10", nil)
	hp.ConnectDevice(dev)
	hp.ProcessPending()

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelDeviceArrived {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelDeviceArrived)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for arrival broadcast")
	}

	hp.DisconnectDevice(dev)
	hp.ProcessPending()

	select {
	case msg := <-client.send:
		var wsMsg WSMessage
		if err := json.Unmarshal(msg, &wsMsg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if wsMsg.EventType != ChannelDeviceLeft {
			t.Errorf("event_type = %q, want %q", wsMsg.EventType, ChannelDeviceLeft)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for departure broadcast")
	}
}

// ─── Server Lifecycle Tests ────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	deps := testDeps(t)
	deps.Config.Port = 19080
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Wait for server to be ready
	time.Sleep(100 * time.Millisecond)

	addr := fmt.Sprintf("127.0.0.1:%d", deps.Config.Port)

	resp, err := http.Get("http://" + addr + "/api/v1/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	cancel()
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	// Verify server stopped by trying to connect (should fail)
	time.Sleep(100 * time.Millisecond)
	_, err = http.Get("http://" + addr + "/api/v1/health")
	if err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_HealthCheck_NotStarted(t *testing.T) {
	srv, _ := testServer(t)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("expected health check error before Start()")
	}
}

// ─── WebSocket Integration Tests ───────────────────────────────────

func TestWebSocket_FullConnection(t *testing.T) {
	deps := testDeps(t)
	deps.Config.Port = 19081
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { srv.Close() })

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	addr := fmt.Sprintf("127.0.0.1:%d", deps.Config.Port)
	base := "http://" + addr + "/api/v1"

	// Login for a token
	loginResp, err := http.Post(base+"/auth/login", "application/json",
		strings.NewReader(`{"username": "admin", "password": "admin"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	var lr loginResponse
	if err := json.NewDecoder(loginResp.Body).Decode(&lr); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	loginResp.Body.Close()

	// Exchange the token for a WebSocket ticket
	ticketReq, err := http.NewRequest(http.MethodPost, base+"/auth/ws-ticket", nil)
	if err != nil {
		t.Fatalf("ticket request: %v", err)
	}
	ticketReq.Header.Set("Authorization", "Bearer "+lr.AccessToken)
	ticketResp, err := http.DefaultClient.Do(ticketReq)
	if err != nil {
		t.Fatalf("ticket: %v", err)
	}
	var tr struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(ticketResp.Body).Decode(&tr); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	ticketResp.Body.Close()

	// Connect the WebSocket using the ticket
	wsURL := "ws://" + addr + "/api/v1/ws?ticket=" + tr.Ticket
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close()

	// Subscribe to arrivals
	sub := WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "1",
		Payload: WSSubscribePayload{Channels: []string{ChannelDeviceArrived}},
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}

	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Errorf("ack type = %q, want %q", ack.Type, WSTypeResponse)
	}

	// Broadcast through the hub and expect delivery
	srv.hub.Broadcast(ChannelDeviceArrived, wsDeviceEvent{
		Event:     ChannelDeviceArrived,
		SessionID: "1-4:10",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.EventType != ChannelDeviceArrived {
		t.Errorf("event_type = %q, want %q", event.EventType, ChannelDeviceArrived)
	}
}

func TestWebSocket_NoTicket(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/ws")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestWebSocket_InvalidTicket(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	req := authedRequest(t, router, http.MethodGet, "/api/v1/ws?ticket=bogus")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
