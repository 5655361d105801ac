package monitor_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/tangled/internal/monitor"
)

func TestServerPublishesToSubscribers(t *testing.T) {
	s := monitor.NewServer(nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	update := monitor.GenerationUpdate{
		Generation: 3,
		Task:       "t1",
		BestScore:  100,
		Teams:      5,
		RootTeams:  4,
		Learners:   12,
	}

	// Registration happens on the server goroutine after the handshake;
	// republish until the subscriber sees the frame.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	received := make(chan []byte, 1)
	go func() {
		_, payload, err := conn.ReadMessage()
		if err == nil {
			received <- payload
		}
	}()

	var payload []byte
	deadline := time.After(5 * time.Second)
	for payload == nil {
		s.Publish(update)
		select {
		case payload = <-received:
		case <-deadline:
			t.Fatal("no update received before deadline")
		case <-time.After(50 * time.Millisecond):
		}
	}

	var got monitor.GenerationUpdate
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Equal(t, update, got)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	s := monitor.NewServer(nil)
	s.Publish(monitor.GenerationUpdate{Generation: 1})
}
