// cmd/voxkeyd/live.go
package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/voxkey/voxkey/internal/deepgram"
)

// The front end connects from the embedded webview; the token header already
// gates the upgrade, so cross-origin checks stay permissive on loopback.
var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleLive bridges a front-end websocket to the streaming transcription
// API: binary frames carry audio upstream, text frames carry transcript JSON
// back down. The session ends when either side closes.
func (s *apiServer) handleLive(w http.ResponseWriter, r *http.Request) {
	key, err := resolveAPIKey(r.Header.Get("X-VoxKey-Api-Key"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	liveCfg := deepgram.LiveConfig{
		APIKey:         key,
		Model:          cfg.Model,
		InterimResults: r.URL.Query().Get("interim") == "true",
		Language:       r.URL.Query().Get("language"),
		Encoding:       r.URL.Query().Get("encoding"),
	}
	if sr := r.URL.Query().Get("sample_rate"); sr != "" {
		if n, err := strconv.Atoi(sr); err == nil {
			liveCfg.SampleRate = n
		}
	}
	if cfg.DeepgramLiveURL != "" {
		liveCfg.Endpoint = cfg.DeepgramLiveURL
	}

	live, err := deepgram.NewLive(liveCfg)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := live.Start(r.Context()); err != nil {
		logrus.WithError(err).Error("live session dial failed")
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	defer live.Close()

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Error("live upgrade failed")
		return
	}
	defer conn.Close()
	logrus.Info("live transcription session opened")

	// Downstream: transcripts to the front end.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for res := range live.Results() {
			payload, _ := json.Marshal(map[string]any{
				"transcript":   res.Text,
				"is_final":     res.IsFinal,
				"speech_final": res.SpeechFinal,
			})
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}()

	// Upstream: audio from the front end.
readLoop:
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		switch mt {
		case websocket.BinaryMessage:
			if err := live.Send(data); err != nil {
				logrus.WithError(err).Warn("live audio send failed")
				break readLoop
			}
		case websocket.TextMessage:
			// any text frame from the front end means "no more audio"
			_ = live.Finish()
		}
	}

	_ = live.Finish()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	logrus.Info("live transcription session closed")
}
