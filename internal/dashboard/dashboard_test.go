package dashboard

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/launix-de/parasgd/internal/sgd"
)

// newTestServer wires the dashboard's /ws handler into an httptest
// server rather than binding a real port, since Start/Close bind
// :addr directly and a unit test should not claim a real socket.
func newTestServer(t *testing.T) (*Dashboard, *httptest.Server, string) {
	t.Helper()
	d := New(":0")
	ts := httptest.NewServer(d.srv.Handler)
	t.Cleanup(ts.Close)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return d, ts, wsURL
}

func TestDashboardBroadcastsEpochEvent(t *testing.T) {
	d, _, wsURL := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// give the server goroutine a moment to register the client before
	// broadcasting -- EpochDone silently drops unregistered viewers.
	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		n := len(d.clients)
		d.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	d.EpochDone(sgd.EpochEvent{RunID: "run-1", WorkerID: 2, Epoch: 5, Score: 0.75})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got frame
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := frame{RunID: "run-1", WorkerID: 2, Epoch: 5, Score: 0.75}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDashboardDropsDisconnectedClient(t *testing.T) {
	d, _, wsURL := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		n := len(d.clients)
		d.mu.Unlock()
		if n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("disconnected client never pruned")
		}
		// EpochDone is what actually prunes a dead client on write
		// failure -- nudge it each iteration.
		d.EpochDone(sgd.EpochEvent{RunID: "run-2", WorkerID: 0, Epoch: 0, Score: 0})
		time.Sleep(time.Millisecond)
	}
}
