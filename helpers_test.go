package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"werewolf-extreme/engine"
)

// TestContext holds test infrastructure for one server instance.
type TestContext struct {
	t       *testing.T
	baseURL string
	cleanup func()
}

// newTestContext starts a server on a fresh sqlite file with its own hub.
// Set TEST_DEBUG=1 to route the server log through t.Log.
func newTestContext(t *testing.T) *TestContext {
	t.Helper()

	if os.Getenv("TEST_DEBUG") == "1" {
		appLogger = wrapLogger(zaptest.NewLogger(t), LogConfig{
			Debug: true,
			LogDB: os.Getenv("TEST_LOG_DB") == "1",
			LogWS: os.Getenv("TEST_LOG_WS") == "1",
		})
	}

	closeDB := openTestDB(t)

	hub = newHub()
	go hub.run()

	server := httptest.NewServer(newRouter())

	cleanup := func() {
		LogDBState("before cleanup")
		storyWG.Wait()
		hub.stop()
		server.Close()
		closeDB()
		globalStoryteller = nil
		defaultPreset = "classic"
		appLogger = wrapLogger(zap.NewNop(), LogConfig{})
	}

	return &TestContext{t: t, baseURL: server.URL, cleanup: cleanup}
}

// openTestDB points the global db at a fresh sqlite file with the schema
// applied.
func openTestDB(t *testing.T) func() {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "werewolf.db") + "?_busy_timeout=5000&_txlock=immediate"
	var err error
	db, err = sqlx.Connect("sqlite3", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := initDB(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	return func() { db.Close() }
}

type testClient struct {
	t        *testing.T
	name     string
	roomCode string
	playerID string
	token    string
	conn     *websocket.Conn

	// latest frames seen, so a wait never misses one read earlier
	state   *PublicState
	private *PrivateState
}

func (ctx *TestContext) postForm(path, name string) (*http.Response, joinResponse) {
	ctx.t.Helper()
	resp, err := http.PostForm(ctx.baseURL+path, url.Values{"name": {name}})
	if err != nil {
		ctx.t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var jr joinResponse
	if resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(&jr); err != nil {
			ctx.t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp, jr
}

// createRoom opens a room and connects the host.
func (ctx *TestContext) createRoom(name string) *testClient {
	ctx.t.Helper()
	resp, jr := ctx.postForm("/rooms", name)
	if resp.StatusCode != http.StatusCreated {
		ctx.t.Fatalf("create room: status %d", resp.StatusCode)
	}
	return ctx.connect(name, jr)
}

// joinRoom seats a player and connects them.
func (ctx *TestContext) joinRoom(code, name string) *testClient {
	ctx.t.Helper()
	resp, jr := ctx.postForm("/rooms/"+code+"/join", name)
	if resp.StatusCode != http.StatusOK {
		ctx.t.Fatalf("join room %s as %s: status %d", code, name, resp.StatusCode)
	}
	return ctx.connect(name, jr)
}

func (ctx *TestContext) connect(name string, jr joinResponse) *testClient {
	ctx.t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ctx.baseURL, "http") + "/ws"
	header := http.Header{"Cookie": {sessionCookieName + "=" + jr.Token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		ctx.t.Fatalf("dial websocket for %s: %v", name, err)
	}
	return &testClient{t: ctx.t, name: name, roomCode: jr.RoomCode, playerID: jr.PlayerID, token: jr.Token, conn: conn}
}

// seatRoom creates a room with a host and n-1 guests. The host is first.
func (ctx *TestContext) seatRoom(n int) []*testClient {
	ctx.t.Helper()
	host := ctx.createRoom("Host")
	clients := []*testClient{host}
	for i := 1; i < n; i++ {
		clients = append(clients, ctx.joinRoom(host.roomCode, "P"+string(rune('A'+i-1))))
	}
	host.waitForState(func(s *PublicState) bool { return len(s.Players) == n })
	return clients
}

func (c *testClient) send(msg WSMessage) {
	c.t.Helper()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("%s: write %s: %v", c.name, msg.Action, err)
	}
}

// waitFor reads frames until one satisfies match. Every frame read updates
// the latest state and role card.
func (c *testClient) waitFor(match func(OutMessage) bool) OutMessage {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		c.conn.SetReadDeadline(deadline)
		var msg OutMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.t.Fatalf("%s: no matching message: %v", c.name, err)
		}
		switch msg.Type {
		case msgState:
			c.state = msg.State
		case msgPrivate:
			c.private = msg.Private
		}
		if match(msg) {
			return msg
		}
	}
}

func (c *testClient) waitForState(match func(*PublicState) bool) *PublicState {
	c.t.Helper()
	if c.state != nil && match(c.state) {
		return c.state
	}
	return c.waitFor(func(m OutMessage) bool {
		return m.Type == msgState && match(m.State)
	}).State
}

// waitForRole returns the role card once roles are dealt.
func (c *testClient) waitForRole() *PrivateState {
	c.t.Helper()
	dealt := func(p *PrivateState) bool { return p.Role.ID != engine.RoleUnknown }
	if c.private != nil && dealt(c.private) {
		return c.private
	}
	return c.waitFor(func(m OutMessage) bool {
		return m.Type == msgPrivate && dealt(m.Private)
	}).Private
}

func (c *testClient) waitForToast() *Toast {
	c.t.Helper()
	return c.waitFor(func(m OutMessage) bool { return m.Type == msgToast }).Toast
}

func (c *testClient) close() {
	c.conn.Close()
}

// mockStoryteller streams a canned story word by word.
type mockStoryteller struct {
	story string
	err   error

	mu        sync.Mutex
	histories [][]string
}

func (m *mockStoryteller) Tell(_ context.Context, history []string, onChunk func(string)) (string, error) {
	m.mu.Lock()
	m.histories = append(m.histories, history)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	for _, word := range strings.SplitAfter(m.story, " ") {
		onChunk(word)
	}
	return m.story, nil
}

func (m *mockStoryteller) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.histories)
}

// rolesByClient maps each client to the role dealt to it.
func rolesByClient(clients []*testClient) map[*testClient]engine.RoleID {
	roles := make(map[*testClient]engine.RoleID, len(clients))
	for _, c := range clients {
		roles[c] = c.waitForRole().Role.ID
	}
	return roles
}

// withRole returns the clients holding role, in seat order.
func withRole(clients []*testClient, roles map[*testClient]engine.RoleID, role engine.RoleID) []*testClient {
	var out []*testClient
	for _, c := range clients {
		if roles[c] == role {
			out = append(out, c)
		}
	}
	return out
}
