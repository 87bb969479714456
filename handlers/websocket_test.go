package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/4cecoder/blobarena/config"
	"github.com/4cecoder/blobarena/models"
	"github.com/4cecoder/blobarena/store"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*Server, *store.Store, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.TickRate = 50
	st := store.New(&store.MemoryPersister{})
	srv := NewServer(st, cfg)
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	t.Cleanup(ts.Close)
	return srv, st, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	frame, err := models.Encode(eventType, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil returns the first envelope of the given type, skipping others.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) models.Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read waiting for %s: %v", eventType, err)
		}
		env, err := models.DecodeEnvelope(msg)
		if err != nil {
			t.Fatalf("bad frame %q: %v", msg, err)
		}
		if env.Type == eventType {
			return env
		}
	}
	t.Fatalf("no %s frame before deadline", eventType)
	return models.Envelope{}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func player(guid string, mass float64) models.PlayerRecord {
	return models.PlayerRecord{GUID: guid, Name: guid, Mass: mass, X: 10, Y: 20}
}

func TestGetConfigRepliesWithPostConfig(t *testing.T) {
	_, _, ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, models.EventGetConfig, nil)
	env := readUntil(t, conn, models.EventPostConfig)
	cfg, err := models.DecodePayload[config.Game](env)
	if err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.TickRate != 50 || cfg.Arena.Width != 5000 || cfg.Blob.Mass != 50 {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestJoinUpdateLeaveRoundTrip(t *testing.T) {
	_, st, ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, models.EventAddPlayer, player("p1", 50))
	env := readUntil(t, conn, models.EventGetGameData)
	records, dropped, err := models.DecodeGameData(env.Payload)
	if err != nil || dropped != 0 {
		t.Fatalf("decode snapshot: err=%v dropped=%d", err, dropped)
	}
	if len(records) != 1 || records[0].GUID != "p1" {
		t.Fatalf("snapshot = %+v", records)
	}

	send(t, conn, models.EventPostPlayer, player("p1", 80))
	waitFor(t, "update", func() bool {
		snap := st.Snapshot()
		return len(snap) == 1 && snap[0].Mass == 80
	})

	send(t, conn, models.EventRemovePlayer, "p1")
	waitFor(t, "leave", func() bool { return st.Len() == 0 })
}

func TestSnapshotIncludesOtherClients(t *testing.T) {
	_, _, ts := newTestServer(t)
	a := dial(t, ts)
	b := dial(t, ts)

	send(t, a, models.EventAddPlayer, player("a", 50))
	send(t, b, models.EventAddPlayer, player("b", 60))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		env := readUntil(t, a, models.EventGetGameData)
		records, _, _ := models.DecodeGameData(env.Payload)
		if len(records) == 2 {
			return
		}
	}
	t.Fatalf("client a never saw both players")
}

func TestUpdateFromNonOwnerIsIgnored(t *testing.T) {
	_, st, ts := newTestServer(t)
	owner := dial(t, ts)
	other := dial(t, ts)

	send(t, owner, models.EventAddPlayer, player("mine", 50))
	waitFor(t, "join", func() bool { return st.Len() == 1 })

	send(t, other, models.EventPostPlayer, player("mine", 999))
	send(t, other, models.EventRemovePlayer, "mine")
	// A round trip on the same connection orders the check after both frames.
	send(t, other, models.EventGetConfig, nil)
	readUntil(t, other, models.EventPostConfig)

	snap := st.Snapshot()
	if len(snap) != 1 || snap[0].Mass != 50 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestDuplicateJoinKeepsFirstRecord(t *testing.T) {
	_, st, ts := newTestServer(t)
	a := dial(t, ts)
	b := dial(t, ts)

	send(t, a, models.EventAddPlayer, player("same", 50))
	waitFor(t, "join", func() bool { return st.Len() == 1 })
	send(t, b, models.EventAddPlayer, player("same", 70))
	send(t, b, models.EventGetConfig, nil)
	readUntil(t, b, models.EventPostConfig)

	if snap := st.Snapshot(); len(snap) != 1 || snap[0].Mass != 50 {
		t.Fatalf("snapshot = %+v", snap)
	}

	// b never owned the guid, so closing it must not remove a's player.
	b.Close()
	send(t, a, models.EventGetConfig, nil)
	readUntil(t, a, models.EventPostConfig)
	time.Sleep(50 * time.Millisecond)
	if st.Len() != 1 {
		t.Fatalf("b's disconnect removed a's player")
	}
}

func TestDisconnectLeavesRegisteredPlayers(t *testing.T) {
	srv, st, ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, models.EventAddPlayer, player("gone", 50))
	waitFor(t, "join", func() bool { return st.Len() == 1 })

	conn.Close()
	waitFor(t, "leave on disconnect", func() bool { return st.Len() == 0 })
	waitFor(t, "client unregistered", func() bool { return srv.ClientCount() == 0 })
}

func TestMalformedFramesAreIgnored(t *testing.T) {
	_, st, ts := newTestServer(t)
	conn := dial(t, ts)

	_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	send(t, conn, "bogus", nil)
	send(t, conn, models.EventAddPlayer, map[string]any{"name": "no guid", "mass": 10})
	send(t, conn, models.EventGetConfig, nil)
	readUntil(t, conn, models.EventPostConfig)

	if st.Len() != 0 {
		t.Fatalf("malformed join was stored")
	}
}

func TestHTTPEndpoints(t *testing.T) {
	cfg := config.Default()
	st := store.New(&store.MemoryPersister{})
	_ = st.Join(player("p", 50))
	srv := NewServer(st, cfg)

	rec := httptest.NewRecorder()
	srv.HandleConfig(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	var got config.Game
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got != cfg {
		t.Fatalf("config = %+v err=%v", got, err)
	}

	rec = httptest.NewRecorder()
	srv.HandlePlayers(rec, httptest.NewRequest(http.MethodGet, "/players", nil))
	records, _, err := models.DecodeGameData(rec.Body.Bytes())
	if err != nil || len(records) != 1 || records[0].GUID != "p" {
		t.Fatalf("players = %+v err=%v", records, err)
	}

	TemplatePath = "does/not/exist.html"
	rec = httptest.NewRecorder()
	srv.HandleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "1 players") {
		t.Fatalf("root = %d %q", rec.Code, rec.Body.String())
	}
}

func TestUpdateAfterReapRejoinsOwner(t *testing.T) {
	_, st, ts := newTestServer(t)
	conn := dial(t, ts)

	send(t, conn, models.EventAddPlayer, player("p", 50))
	waitFor(t, "join", func() bool { return st.Len() == 1 })

	// Same effect as a reap sweep: the record goes, the connection stays.
	st.Leave("p")
	send(t, conn, models.EventPostPlayer, player("p", 65))
	waitFor(t, "rejoin", func() bool {
		snap := st.Snapshot()
		return len(snap) == 1 && snap[0].GUID == "p" && snap[0].Mass == 65
	})
}
