// internal/deepgram/client.go
//
// Package deepgram is a minimal client for the Deepgram speech-to-text API.
// One-shot request/response only; nothing is retried, and every failure is
// surfaced immediately with a message fit for direct display.
package deepgram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://api.deepgram.com"
	DefaultModel   = "nova-2"

	projectsPath = "/v1/projects"
	listenPath   = "/v1/listen"

	// Uploaded audio is always presented to the API under this name/type;
	// the GUI records webm/opus blobs.
	audioFieldName = "audio"
	audioFileName  = "audio.webm"
	audioMIMEType  = "audio/webm"

	// transcriptPath is where the prerecorded API puts the text for a
	// single-channel request.
	transcriptPath = "results.channels.0.alternatives.0.transcript"
)

// ErrInvalidKey is returned for HTTP 401 from the connectivity check. The
// message is shown to the user verbatim.
var ErrInvalidKey = errors.New("Invalid API key. Please check your Deepgram API key.")

// Client calls the Deepgram REST API.
type Client struct {
	// BaseURL overrides the production endpoint (tests point it at a local
	// server). Empty means DefaultBaseURL.
	BaseURL string

	// Model and SmartFormat are fixed query parameters for transcription.
	Model       string
	SmartFormat bool

	HTTPClient *http.Client
}

// NewClient returns a Client with the production endpoint and model.
func NewClient() *Client {
	return &Client{
		Model:       DefaultModel,
		SmartFormat: true,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

// TestConnection checks that the API key is accepted by listing projects.
// 401 maps to ErrInvalidKey; any other non-2xx yields a generic status
// message.
func (c *Client) TestConnection(ctx context.Context, apiKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+projectsPath, nil)
	if err != nil {
		return fmt.Errorf("Connection test failed: %v", err)
	}
	req.Header.Set("Authorization", "Token "+apiKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("Connection test failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrInvalidKey
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("API connection failed: %s", resp.Status)
	}
	return nil
}

// Transcribe uploads raw audio bytes and returns the transcript text.
// A response missing the transcript field yields "", not an error; a body
// that is not valid JSON is an error regardless of HTTP status.
func (c *Client) Transcribe(ctx context.Context, apiKey string, audio []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, audioFieldName, audioFileName))
	hdr.Set("Content-Type", audioMIMEType)

	part, err := form.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("Request failed: %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("Request failed: %v", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("Request failed: %v", err)
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}
	q := url.Values{}
	q.Set("model", model)
	if c.SmartFormat {
		q.Set("smart_format", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL()+listenPath+"?"+q.Encode(), &body)
	if err != nil {
		return "", fmt.Errorf("Request failed: %v", err)
	}
	req.Header.Set("Authorization", "Token "+apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API error: %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("JSON parse error: %v", err)
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("JSON parse error: response is not valid JSON")
	}

	return gjson.GetBytes(raw, transcriptPath).String(), nil
}
