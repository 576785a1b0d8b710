package ws

import (
	"encoding/json"
	"maps"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chatrelay/internal/services/chat"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func newTestServer(t *testing.T) (*chat.Engine, string) {
	t.Helper()
	f := newFixture(t, Options{})
	return f.engine.Engine, f.url
}

// countingEngine records Disconnect calls and UserLeft payloads per
// connection on top of a real engine.
type countingEngine struct {
	*chat.Engine

	mu          sync.Mutex
	disconnects map[string]int
	userLeft    map[string]int
}

func (e *countingEngine) Handle(connectionID string, ev chat.Event) ([]chat.Outbound, error) {
	outs, err := e.Engine.Handle(connectionID, ev)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := ev.(chat.Disconnect); ok {
		e.disconnects[connectionID]++
	}
	for _, out := range outs {
		if left, ok := out.Payload.(chat.UserLeft); ok {
			e.userLeft[left.ConnectionID]++
		}
	}
	return outs, err
}

func (e *countingEngine) counts() (disconnects, userLeft map[string]int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return maps.Clone(e.disconnects), maps.Clone(e.userLeft)
}

type fixture struct {
	hub    *Hub
	srv    *WsServer
	engine *countingEngine
	url    string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	engine := &countingEngine{
		Engine:      chat.NewEngine(chat.Options{Emitter: hub}),
		disconnects: map[string]int{},
		userLeft:    map[string]int{},
	}
	srv := NewWsServer(hub, engine, opts)

	r := gin.New()
	r.GET("/ws", srv.Handle)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return &fixture{
		hub:    hub,
		srv:    srv,
		engine: engine,
		url:    "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

func dial(t *testing.T, url string) *testClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &testClient{t: t, conn: conn}
	var body ConnectedBody
	c.expect(EventConnected, &body)
	require.NotEmpty(t, body.ConnectionID)
	c.id = body.ConnectionID
	return c
}

func (c *testClient) send(event string, body any) {
	c.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(Envelope{Event: event, Body: raw}))
}

// expect reads the next frame, which must carry event, and decodes its body.
func (c *testClient) expect(event string, into any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(c.t, c.conn.ReadJSON(&env))
	require.Equal(c.t, event, env.Event, "body: %s", env.Body)
	if into != nil {
		require.NoError(c.t, json.Unmarshal(env.Body, into))
	}
}

func (c *testClient) join(name, room string) {
	c.t.Helper()
	c.send(EventJoin, JoinRequest{DisplayName: name, RoomID: room})
	c.expect("chat/userList", nil)
	c.expect("chat/userJoined", nil)
	c.expect("chat/history", nil)
}

func TestWsServer_JoinSendSeen(t *testing.T) {
	_, url := newTestServer(t)
	alice := dial(t, url)
	bob := dial(t, url)

	alice.join("alice", "General")

	bob.send(EventJoin, JoinRequest{DisplayName: "bob", RoomID: "General"})
	var list chat.UserList
	alice.expect("chat/userList", &list)
	require.Len(t, list.Participants, 2)
	assert.Equal(t, "alice", list.Participants[0].DisplayName)
	assert.Equal(t, "bob", list.Participants[1].DisplayName)
	var joined chat.UserJoined
	alice.expect("chat/userJoined", &joined)
	assert.Equal(t, bob.id, joined.ConnectionID)
	bob.expect("chat/userList", nil)
	bob.expect("chat/userJoined", nil)
	bob.expect("chat/history", nil)

	alice.send(EventSend, SendRequest{Text: "hi"})
	var fromAlice, fromBob chat.NewMessage
	alice.expect("chat/newMessage", &fromAlice)
	bob.expect("chat/newMessage", &fromBob)
	assert.Equal(t, "hi", fromBob.Message.Text)
	assert.Equal(t, []string{"alice"}, fromBob.Message.SeenBy)
	assert.Equal(t, fromAlice.Message.ID, fromBob.Message.ID)

	bob.send(EventSeen, SeenRequest{MessageID: fromBob.Message.ID})
	var seen chat.SeenUpdate
	alice.expect("chat/seenUpdate", &seen)
	assert.Equal(t, []string{"alice", "bob"}, seen.SeenBy)
}

func TestWsServer_HistoryOnJoin(t *testing.T) {
	_, url := newTestServer(t)
	alice := dial(t, url)
	alice.join("alice", "General")
	alice.send(EventSend, SendRequest{Text: "first"})
	alice.expect("chat/newMessage", nil)

	bob := dial(t, url)
	bob.send(EventJoin, JoinRequest{DisplayName: "bob"})
	bob.expect("chat/userList", nil)
	bob.expect("chat/userJoined", nil)
	var history chat.History
	bob.expect("chat/history", &history)
	assert.Equal(t, "General", history.RoomID)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "first", history.Messages[0].Text)
}

func TestWsServer_ErrorFrames(t *testing.T) {
	_, url := newTestServer(t)
	c := dial(t, url)

	var body ErrorBody
	c.send(EventJoin, JoinRequest{DisplayName: "   "})
	c.expect(EventError, &body)
	assert.Contains(t, body.Error, "display name")

	c.send("chat/dance", struct{}{})
	c.expect(EventError, &body)
	assert.Contains(t, body.Error, "unknown_event")

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	c.expect(EventError, &body)
	assert.Equal(t, "malformed_frame", body.Error)
}

func TestWsServer_UnjoinedDropsSilently(t *testing.T) {
	_, url := newTestServer(t)
	c := dial(t, url)

	c.send(EventSend, SendRequest{Text: "nobody hears this"})
	c.send(EventSeen, SeenRequest{MessageID: 1})

	// Frames are processed in order, so the join reply is the next thing
	// on the wire if the drops above wrote nothing.
	c.join("late", "General")
}

func TestWsServer_UnknownMessageDropsSilently(t *testing.T) {
	_, url := newTestServer(t)
	c := dial(t, url)
	c.join("alice", "General")

	c.send(EventReact, ReactRequest{MessageID: 0, Emoji: "👍"})
	c.send(EventSeen, SeenRequest{MessageID: 0})
	c.send(EventSeen, SeenRequest{MessageID: 999})

	c.send(EventSend, SendRequest{Text: "still here"})
	var msg chat.NewMessage
	c.expect("chat/newMessage", &msg)
	assert.Equal(t, "still here", msg.Message.Text)
}

func TestWsServer_PrivateMessage(t *testing.T) {
	_, url := newTestServer(t)
	alice := dial(t, url)
	bob := dial(t, url)
	alice.join("alice", "a")
	bob.join("bob", "b")

	alice.send(EventSendPrivate, SendPrivateRequest{To: bob.id, Text: "psst"})
	var got, echo chat.PrivateMessage
	bob.expect("chat/privateMessage", &got)
	alice.expect("chat/privateMessage", &echo)
	assert.True(t, got.Message.IsPrivate)
	assert.Equal(t, bob.id, got.Message.RecipientConnectionID)
	assert.Equal(t, got.Message.ID, echo.Message.ID)
}

func TestWsServer_DisconnectNotifiesRoom(t *testing.T) {
	engine, url := newTestServer(t)
	alice := dial(t, url)
	bob := dial(t, url)
	alice.join("alice", "General")
	bob.join("bob", "General")
	alice.expect("chat/userList", nil)
	alice.expect("chat/userJoined", nil)

	require.NoError(t, bob.conn.Close())

	var list chat.UserList
	alice.expect("chat/userList", &list)
	require.Len(t, list.Participants, 1)
	var left chat.UserLeft
	alice.expect("chat/userLeft", &left)
	assert.Equal(t, bob.id, left.ConnectionID)
	assert.Equal(t, "bob", left.DisplayName)

	assert.Len(t, engine.Room("General").Participants, 1)
}

func TestWsServer_SlowConsumerDisconnectsOnce(t *testing.T) {
	// Room for a join burst; the non-reader overflows once the socket
	// buffers fill.
	f := newFixture(t, Options{SendBuffer: 64})
	slow := dial(t, f.url)
	slow.join("slow", "General")
	fast := dial(t, f.url)
	fast.join("fast", "General")

	// fast drains everything it gets; slow never reads again.
	require.NoError(t, fast.conn.SetReadDeadline(time.Time{}))
	go func() {
		for {
			if _, _, err := fast.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	stop := make(chan struct{})
	sent := make(chan struct{})
	text := strings.Repeat("x", 4000)
	go func() {
		defer close(sent)
		raw, _ := json.Marshal(SendRequest{Text: text})
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := fast.conn.WriteJSON(Envelope{Event: EventSend, Body: raw}); err != nil {
				return
			}
		}
	}()

	require.Eventually(t, func() bool {
		disconnects, _ := f.engine.counts()
		return disconnects[slow.id] == 1
	}, 15*time.Second, 10*time.Millisecond)
	close(stop)
	<-sent

	f.srv.Shutdown()
	require.Eventually(t, func() bool { return f.hub.Len() == 0 }, 5*time.Second, 10*time.Millisecond)

	disconnects, _ := f.engine.counts()
	assert.Equal(t, map[string]int{slow.id: 1, fast.id: 1}, disconnects)
	assert.Empty(t, f.engine.Room("General").Participants)
}

func TestWsServer_ShutdownLeavesEachConnectionOnce(t *testing.T) {
	f := newFixture(t, Options{})
	var ids []string
	for _, name := range []string{"alice", "bob", "carol"} {
		c := dial(t, f.url)
		c.join(name, "General")
		ids = append(ids, c.id)
	}
	lurker := dial(t, f.url)

	f.srv.Shutdown()
	require.Eventually(t, func() bool { return f.hub.Len() == 0 }, 5*time.Second, 10*time.Millisecond)

	disconnects, userLeft := f.engine.counts()
	want := map[string]int{}
	for _, id := range ids {
		want[id] = 1
	}
	assert.Equal(t, want, userLeft)
	want[lurker.id] = 1
	assert.Equal(t, want, disconnects)
	assert.Empty(t, f.engine.Room("General").Participants)
}
