package notify_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/moneynplay/engine/internal/notify"
)

func newHubServer(t *testing.T) (*notify.Hub, *httptest.Server) {
	t.Helper()
	hub := notify.NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) (string, string) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got struct {
		Type    string `json:"type"`
		OwnerID string `json:"owner_id"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return got.Type, got.OwnerID
}

func waitForClients(t *testing.T, hub *notify.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishReachesAllClients(t *testing.T) {
	hub, srv := newHubServer(t)

	c1 := dial(t, srv)
	defer c1.Close()
	c2 := dial(t, srv)
	defer c2.Close()
	waitForClients(t, hub, 2)

	hub.Publish(notify.Event{
		Type:    notify.TypeGoalReached,
		OwnerID: "kid1",
		Payload: notify.GoalReached{GoalID: "g1", Name: "bike", TargetCents: 500},
	})

	for _, conn := range []*websocket.Conn{c1, c2} {
		typ, owner := readEvent(t, conn)
		if typ != string(notify.TypeGoalReached) || owner != "kid1" {
			t.Errorf("event = %s/%s, want goal_reached/kid1", typ, owner)
		}
	}
}

func TestDisconnectDuringBroadcastStorm(t *testing.T) {
	hub, srv := newHubServer(t)

	gone := dial(t, srv)
	stay := dial(t, srv)
	defer stay.Close()
	waitForClients(t, hub, 2)

	// Close one client and broadcast immediately so the removal overlaps
	// the storm.
	gone.Close()
	for i := 0; i < 100; i++ {
		hub.Publish(notify.Event{Type: notify.TypeLevelUp, OwnerID: "kid1", Payload: notify.LevelUp{Level: i + 2}})
	}
	for i := 0; i < 100; i++ {
		if typ, _ := readEvent(t, stay); typ != string(notify.TypeLevelUp) {
			t.Fatalf("event %d type = %s", i, typ)
		}
	}

	// Hub still accepts new clients after the churn.
	late := dial(t, srv)
	defer late.Close()
	waitForClients(t, hub, 2)
	hub.Publish(notify.Event{Type: notify.TypeMissionExpired, OwnerID: "kid2", Payload: notify.MissionExpired{MissionID: "m1"}})
	if typ, owner := readEvent(t, late); typ != string(notify.TypeMissionExpired) || owner != "kid2" {
		t.Errorf("late client event = %s/%s", typ, owner)
	}
}

func TestPublishWithNoClientsDoesNotBlock(t *testing.T) {
	hub, _ := newHubServer(t)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(notify.Event{Type: notify.TypeLevelUp, OwnerID: "kid1", Payload: notify.LevelUp{Level: 2}})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked with no clients")
	}
}
