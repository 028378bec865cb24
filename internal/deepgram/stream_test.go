// internal/deepgram/stream_test.go
package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fake streaming endpoint: echoes every binary chunk back as a final result.
func liveTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token sekrit" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("model") != "nova-2" {
			t.Errorf("model=%q", r.URL.Query().Get("model"))
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage && strings.Contains(string(data), "CloseStream") {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				return
			}
			reply := `{"type":"Results","is_final":true,"speech_final":true,` +
				`"channel":{"alternatives":[{"transcript":"chunk of ` +
				string(rune('0'+len(data))) + ` bytes"}]}}`
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
}

func TestLiveClient_RoundTrip(t *testing.T) {
	srv := liveTestServer(t)
	defer srv.Close()

	client, err := NewLive(LiveConfig{
		Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http"),
		APIKey:   "sekrit",
	})
	if err != nil {
		t.Fatalf("NewLive: %v", err)
	}
	defer client.Close()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := client.Send([]byte{1, 2, 3}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case res := <-client.Results():
		if res.Text != "chunk of 3 bytes" || !res.IsFinal || !res.SpeechFinal {
			t.Fatalf("unexpected result %+v", res)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for result")
	}

	if err := client.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	select {
	case _, open := <-client.Results():
		if open {
			// a buffered result may still drain; wait for close
			for range client.Results() {
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatal("results channel not closed after Finish")
	}
}

func TestLiveClient_BadKeyRejected(t *testing.T) {
	srv := liveTestServer(t)
	defer srv.Close()

	client, err := NewLive(LiveConfig{
		Endpoint: "ws" + strings.TrimPrefix(srv.URL, "http"),
		APIKey:   "wrong",
	})
	if err != nil {
		t.Fatalf("NewLive: %v", err)
	}
	defer client.Close()

	if err := client.Start(context.Background()); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestLiveClient_EmptyKeyRefused(t *testing.T) {
	if _, err := NewLive(LiveConfig{}); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
