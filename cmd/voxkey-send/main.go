// cmd/voxkey-send/main.go
// Small command-line client for voxkeyd. Reads the daemon's token file and
// invokes one operation per run.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:60770", "voxkeyd listen address")
		tokenFile  = flag.String("token-file", "voxkey_token.txt", "path to the daemon token file")
		header     = flag.String("token-header", "X-VoxKey-Token", "auth header name")
		copyText   = flag.String("copy", "", "copy text to the clipboard")
		insertText = flag.String("insert", "", "paste text into the focused window")
		testKey    = flag.Bool("test", false, "test the transcription API credential")
		audioPath  = flag.String("transcribe", "", "transcribe an audio file")
		apiKey     = flag.String("key", "", "API key (otherwise the stored one is used)")
		storeKey   = flag.String("store-key", "", "store an API key in the OS keychain")
	)
	flag.Parse()

	token, err := readToken(*tokenFile)
	if err != nil {
		die("Failed to read token file:", err)
	}

	c := &client{
		base:   "http://" + *addr,
		token:  token,
		header: *header,
		http:   &http.Client{Timeout: 90 * time.Second},
	}

	switch {
	case *copyText != "":
		err = c.postText("/v1/clipboard", *copyText)
	case *insertText != "":
		err = c.postText("/v1/insert", *insertText)
	case *testKey:
		err = c.postKey("/v1/stt/test", http.MethodPost, *apiKey)
	case *storeKey != "":
		err = c.postKey("/v1/key", http.MethodPut, *storeKey)
	case *audioPath != "":
		var transcript string
		transcript, err = c.transcribe(*audioPath, *apiKey)
		if err == nil {
			fmt.Println(transcript)
		}
	default:
		fmt.Println("Usage: voxkey-send [-copy TEXT | -insert TEXT | -test | -transcribe FILE | -store-key KEY]")
		os.Exit(1)
	}

	if err != nil {
		die("Operation failed:", err)
	}
}

type client struct {
	base   string
	token  string
	header string
	http   *http.Client
}

type result struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error"`
	Transcript string `json:"transcript"`
}

func (c *client) do(method, path string, contentType string, body io.Reader, extra map[string]string) (result, error) {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return result{}, err
	}
	req.Header.Set(c.header, c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return result{}, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var res result
	if err := json.Unmarshal(raw, &res); err != nil {
		return result{}, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	if !res.OK {
		return res, fmt.Errorf("%s", res.Error)
	}
	return res, nil
}

func (c *client) postText(path, text string) error {
	b, _ := json.Marshal(map[string]string{"text": text})
	_, err := c.do(http.MethodPost, path, "application/json", bytes.NewReader(b), nil)
	return err
}

func (c *client) postKey(path, method, key string) error {
	b, _ := json.Marshal(map[string]string{"api_key": key})
	_, err := c.do(method, path, "application/json", bytes.NewReader(b), nil)
	return err
}

func (c *client) transcribe(path, key string) (string, error) {
	audio, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var hdr map[string]string
	if key != "" {
		hdr = map[string]string{"X-VoxKey-Api-Key": key}
	}
	res, err := c.do(http.MethodPost, "/v1/stt/transcribe", "application/octet-stream", bytes.NewReader(audio), hdr)
	if err != nil {
		return "", err
	}
	return res.Transcript, nil
}

func readToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", fmt.Errorf("empty token in %s", path)
	}
	return tok, nil
}

func die(msg string, err error) {
	fmt.Fprintln(os.Stderr, msg, err)
	os.Exit(1)
}
