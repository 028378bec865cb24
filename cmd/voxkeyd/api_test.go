// cmd/voxkeyd/api_test.go
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"github.com/voxkey/voxkey/internal/deepgram"
)

type memClipboard struct {
	text     string
	writeErr error
}

func (c *memClipboard) Write(text string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.text = text
	return nil
}

func (c *memClipboard) Read() (string, error) { return c.text, nil }

type memInserter struct {
	texts []string
	err   error
}

func (i *memInserter) Insert(text string) error {
	if i.err != nil {
		return i.err
	}
	i.texts = append(i.texts, text)
	return nil
}

// newTestAPI builds an apiServer with fakes and a fresh token file, and
// returns the token clients must send.
func newTestAPI(t *testing.T, clip *memClipboard, ins *memInserter) (*apiServer, string) {
	t.Helper()

	cfg = ServerConfig{}
	applyDefaults()
	cfg.TokenFile = t.TempDir() + "/voxkey_token.txt"
	tokenCache.Store(tokenSnapshot{})

	if err := initTokenFile(cfg.TokenFile); err != nil {
		t.Fatalf("initTokenFile: %v", err)
	}
	token, err := readTokenFile(cfg.TokenFile)
	if err != nil {
		t.Fatalf("readTokenFile: %v", err)
	}

	return &apiServer{clip: clip, seq: ins, dg: deepgram.NewClient()}, token
}

func postJSON(t *testing.T, srv *httptest.Server, token, path string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(b))
	if token != "" {
		req.Header.Set(cfg.TokenHeader, token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return res
}

func decodeResult(t *testing.T, res *http.Response) apiResult {
	t.Helper()
	defer res.Body.Close()
	var out apiResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestAPI_MissingTokenRejected(t *testing.T) {
	api, _ := newTestAPI(t, &memClipboard{}, &memInserter{})
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	res := postJSON(t, srv, "", "/v1/clipboard", textRequest{Text: "x"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestAPI_ClipboardWrite(t *testing.T) {
	clip := &memClipboard{}
	api, token := newTestAPI(t, clip, &memInserter{})
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	res := postJSON(t, srv, token, "/v1/clipboard", textRequest{Text: "hello\tworld"})
	if out := decodeResult(t, res); !out.OK {
		t.Fatalf("expected ok, got %+v", out)
	}
	if clip.text != "hello\tworld" {
		t.Fatalf("clipboard=%q", clip.text)
	}
}

func TestAPI_ClipboardWriteFailureSurfaced(t *testing.T) {
	clip := &memClipboard{writeErr: errors.New("clipboard service unavailable")}
	api, token := newTestAPI(t, clip, &memInserter{})
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	res := postJSON(t, srv, token, "/v1/clipboard", textRequest{Text: "x"})
	out := decodeResult(t, res)
	if out.OK || !strings.Contains(out.Error, "clipboard service unavailable") {
		t.Fatalf("expected verbatim failure, got %+v", out)
	}
}

func TestAPI_Insert(t *testing.T) {
	ins := &memInserter{}
	api, token := newTestAPI(t, &memClipboard{}, ins)
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	res := postJSON(t, srv, token, "/v1/insert", textRequest{Text: "dictated text"})
	if out := decodeResult(t, res); !out.OK {
		t.Fatalf("expected ok, got %+v", out)
	}
	if len(ins.texts) != 1 || ins.texts[0] != "dictated text" {
		t.Fatalf("inserter got %v", ins.texts)
	}
}

func TestAPI_InsertFailureSurfaced(t *testing.T) {
	ins := &memInserter{err: errors.New("key injection failed: tap v")}
	api, token := newTestAPI(t, &memClipboard{}, ins)
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	res := postJSON(t, srv, token, "/v1/insert", textRequest{Text: "x"})
	out := decodeResult(t, res)
	if out.OK || !strings.Contains(out.Error, "key injection failed") {
		t.Fatalf("expected injection error, got %+v", out)
	}
}

func TestAPI_TestConnection(t *testing.T) {
	dgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Token good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer dgSrv.Close()

	api, token := newTestAPI(t, &memClipboard{}, &memInserter{})
	api.dg.BaseURL = dgSrv.URL
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	res := postJSON(t, srv, token, "/v1/stt/test", keyRequest{APIKey: "good"})
	if out := decodeResult(t, res); !out.OK {
		t.Fatalf("expected ok, got %+v", out)
	}

	res = postJSON(t, srv, token, "/v1/stt/test", keyRequest{APIKey: "bad"})
	out := decodeResult(t, res)
	if out.OK || !strings.Contains(out.Error, "Invalid API key") {
		t.Fatalf("expected invalid-key message, got %+v", out)
	}
}

func TestAPI_Transcribe(t *testing.T) {
	dgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"hello world"}]}]}}`))
	}))
	defer dgSrv.Close()

	api, token := newTestAPI(t, &memClipboard{}, &memInserter{})
	api.dg.BaseURL = dgSrv.URL
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/stt/transcribe", bytes.NewReader([]byte("audio-bytes")))
	req.Header.Set(cfg.TokenHeader, token)
	req.Header.Set("X-VoxKey-Api-Key", "k")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("transcribe request: %v", err)
	}
	out := decodeResult(t, res)
	if !out.OK || out.Transcript != "hello world" {
		t.Fatalf("expected transcript, got %+v", out)
	}
}

func TestAPI_TranscribeWithoutAnyKey(t *testing.T) {
	keyring.MockInit()
	api, token := newTestAPI(t, &memClipboard{}, &memInserter{})
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/stt/transcribe", bytes.NewReader([]byte("audio")))
	req.Header.Set(cfg.TokenHeader, token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	out := decodeResult(t, res)
	if out.OK || !strings.Contains(out.Error, "no API key") {
		t.Fatalf("expected missing-key error, got %+v", out)
	}
}

func TestAPI_KeyStoreRoundTrip(t *testing.T) {
	keyring.MockInit()
	api, token := newTestAPI(t, &memClipboard{}, &memInserter{})
	srv := httptest.NewServer(api.mux())
	defer srv.Close()

	do := func(method, path string, body any) map[string]any {
		var r *bytes.Reader
		if body != nil {
			b, _ := json.Marshal(body)
			r = bytes.NewReader(b)
		} else {
			r = bytes.NewReader(nil)
		}
		req, _ := http.NewRequest(method, srv.URL+path, r)
		req.Header.Set(cfg.TokenHeader, token)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer res.Body.Close()
		var out map[string]any
		_ = json.NewDecoder(res.Body).Decode(&out)
		return out
	}

	if out := do(http.MethodGet, "/v1/key", nil); out["stored"] != false {
		t.Fatalf("expected no stored key, got %v", out)
	}
	if out := do(http.MethodPut, "/v1/key", keyRequest{APIKey: "dg-secret"}); out["ok"] != true {
		t.Fatalf("store failed: %v", out)
	}
	if out := do(http.MethodGet, "/v1/key", nil); out["stored"] != true {
		t.Fatalf("expected stored key, got %v", out)
	}
	if out := do(http.MethodDelete, "/v1/key", nil); out["ok"] != true {
		t.Fatalf("clear failed: %v", out)
	}
	if out := do(http.MethodGet, "/v1/key", nil); out["stored"] != false {
		t.Fatalf("expected cleared key, got %v", out)
	}
}
