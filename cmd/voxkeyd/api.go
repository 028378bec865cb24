// cmd/voxkeyd/api.go
//
// Loopback-only HTTP API consumed by the GUI front end. Every operation
// returns one JSON object: {"ok":true,...} or {"ok":false,"error":"..."}.
// Errors are display strings, not codes; the front end shows them verbatim.
package main

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/voxkey/voxkey/internal/deepgram"
	"github.com/voxkey/voxkey/internal/paste"
)

// inserter is the paste sequencer surface the API needs; tests swap in fakes.
type inserter interface {
	Insert(text string) error
}

type apiServer struct {
	clip paste.Clipboard
	seq  inserter
	dg   *deepgram.Client

	// The clipboard and input device are process-wide; overlapping paste
	// sequences would interleave their key events. Serialize them.
	injectMu sync.Mutex
}

// newAPIServer wires the production clipboard, sequencer and Deepgram client
// from the loaded config.
func newAPIServer() *apiServer {
	seq := paste.NewSequencer()
	seq.Settle = settleInterval()
	seq.Verify = cfg.VerifyClipboard
	seq.VerifyTimeout = verifyTimeout()

	dg := deepgram.NewClient()
	dg.Model = cfg.Model
	dg.SmartFormat = boolDeref(cfg.SmartFormat, true)
	if cfg.DeepgramBaseURL != "" {
		dg.BaseURL = cfg.DeepgramBaseURL
	}

	return &apiServer{
		clip: paste.SystemClipboard{},
		seq:  seq,
		dg:   dg,
	}
}

func (s *apiServer) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", requireToken(s.handleStatus))
	mux.HandleFunc("POST /v1/clipboard", requireToken(s.handleClipboard))
	mux.HandleFunc("POST /v1/insert", requireToken(s.handleInsert))
	mux.HandleFunc("POST /v1/stt/test", requireToken(s.handleTestConnection))
	mux.HandleFunc("POST /v1/stt/transcribe", requireToken(s.handleTranscribe))
	mux.HandleFunc("GET /v1/stt/live", requireToken(s.handleLive))
	mux.HandleFunc("GET /v1/key", requireToken(s.handleKeyStatus))
	mux.HandleFunc("PUT /v1/key", requireToken(s.handleKeyStore))
	mux.HandleFunc("DELETE /v1/key", requireToken(s.handleKeyClear))
	return mux
}

func requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := cachedToken()
		if err != nil || token == "" {
			http.Error(w, "control token not available", http.StatusInternalServerError)
			return
		}
		if got := r.Header.Get(cfg.TokenHeader); got == "" || got != token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type apiResult struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, apiResult{OK: true})
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, apiResult{OK: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type textRequest struct {
	Text string `json:"text"`
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req textRequest
	body := http.MaxBytesReader(w, r.Body, int64(cfg.MaxTextLen)+1024)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return "", false
	}
	if len(req.Text) > cfg.MaxTextLen {
		http.Error(w, "text too long", http.StatusRequestEntityTooLarge)
		return "", false
	}
	return req.Text, true
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":               true,
		"version":          version,
		"settle_ms":        cfg.SettleMs,
		"verify_clipboard": cfg.VerifyClipboard,
		"model":            cfg.Model,
	})
}

func (s *apiServer) handleClipboard(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	logrus.Infof("clipboard write %s", safePreview(text))

	if err := s.clip.Write(text); err != nil {
		logrus.WithError(err).Error("clipboard write failed")
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w)
}

func (s *apiServer) handleInsert(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	logrus.Infof("insert %s", safePreview(text))

	s.injectMu.Lock()
	err := s.seq.Insert(text)
	s.injectMu.Unlock()

	if err != nil {
		logrus.WithError(err).Error("insert failed")
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w)
}

type keyRequest struct {
	APIKey string `json:"api_key"`
}

func (s *apiServer) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	key, err := resolveAPIKey(req.APIKey)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	if err := s.dg.TestConnection(r.Context(), key); err != nil {
		logrus.WithError(err).Warn("connection test failed")
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	logrus.Info("connection test ok")
	writeOK(w)
}

func (s *apiServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	key, err := resolveAPIKey(r.Header.Get("X-VoxKey-Api-Key"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(cfg.MaxAudioMB)<<20))
	if err != nil {
		writeErr(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	logrus.Infof("transcribing %d bytes of audio", len(audio))

	transcript, err := s.dg.Transcribe(r.Context(), key, audio)
	if err != nil {
		logrus.WithError(err).Error("transcription failed")
		notifyUser("Transcription failed")
		writeErr(w, http.StatusBadGateway, err)
		return
	}

	logrus.Infof("transcription complete (%d chars)", len(transcript))
	notifyUser("Transcription complete")
	writeJSON(w, http.StatusOK, apiResult{OK: true, Transcript: transcript})
}

func (s *apiServer) handleKeyStatus(w http.ResponseWriter, r *http.Request) {
	key, err := loadAPIKey()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stored": key != ""})
}

func (s *apiServer) handleKeyStore(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if req.APIKey == "" {
		http.Error(w, "api_key required", http.StatusBadRequest)
		return
	}
	if err := storeAPIKey(req.APIKey); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	logrus.Info("API key stored in keychain")
	writeOK(w)
}

func (s *apiServer) handleKeyClear(w http.ResponseWriter, r *http.Request) {
	if err := clearAPIKey(); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	logrus.Info("API key removed from keychain")
	writeOK(w)
}
