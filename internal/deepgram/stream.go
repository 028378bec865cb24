// internal/deepgram/stream.go
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const DefaultLiveEndpoint = "wss://api.deepgram.com/v1/listen"

// LiveConfig configures a streaming transcription session.
type LiveConfig struct {
	Endpoint string // empty means DefaultLiveEndpoint
	APIKey   string
	Model    string // empty means DefaultModel

	// Audio format hints. Zero values are omitted from the query and the
	// service sniffs containerized audio instead.
	Encoding   string
	SampleRate int
	Language   string

	// InterimResults also delivers non-final partial transcripts.
	InterimResults bool
}

// LiveResult is one transcript message from the streaming API.
type LiveResult struct {
	Text string
	// IsFinal marks the segment as final; several can occur per utterance.
	IsFinal bool
	// SpeechFinal marks detected end of speech.
	SpeechFinal bool
}

// LiveClient streams audio over a websocket and emits transcripts as they
// arrive. One session per client; create a new one per recording.
type LiveClient struct {
	cfg  LiveConfig
	conn *websocket.Conn

	mu      sync.Mutex
	started bool

	results chan LiveResult
	errs    chan error

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLive returns an unconnected streaming client.
func NewLive(cfg LiveConfig) (*LiveClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("deepgram live: empty API key")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultLiveEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LiveClient{
		cfg:     cfg,
		results: make(chan LiveResult, 32),
		errs:    make(chan error, 1),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start dials the streaming endpoint and begins reading results.
func (c *LiveClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return errors.New("deepgram live: already started")
	}

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("deepgram live: endpoint: %w", err)
	}
	q := u.Query()
	q.Set("model", c.cfg.Model)
	q.Set("smart_format", "true")
	if c.cfg.Encoding != "" {
		q.Set("encoding", c.cfg.Encoding)
	}
	if c.cfg.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(c.cfg.SampleRate))
	}
	if c.cfg.Language != "" {
		q.Set("language", c.cfg.Language)
	}
	if c.cfg.InterimResults {
		q.Set("interim_results", "true")
	}
	u.RawQuery = q.Encode()

	hdr := http.Header{}
	hdr.Set("Authorization", "Token "+c.cfg.APIKey)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, resp, err := dialer.DialContext(ctx, u.String(), hdr)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return ErrInvalidKey
		}
		return fmt.Errorf("deepgram live: dial: %w", err)
	}
	c.conn = conn
	c.started = true

	go c.readLoop()
	return nil
}

// Send ships one chunk of audio to the service.
func (c *LiveClient) Send(chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return errors.New("deepgram live: not started")
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// Finish tells the service no more audio is coming; remaining results still
// arrive on Results before the loop ends.
func (c *LiveClient) Finish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
}

// Results delivers transcripts. Closed when the session ends.
func (c *LiveClient) Results() <-chan LiveResult { return c.results }

// Errors delivers at most one terminal error.
func (c *LiveClient) Errors() <-chan error { return c.errs }

// Close tears the session down.
func (c *LiveClient) Close() error {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// liveMessage is the subset of the streaming response we consume.
type liveMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Speech  bool   `json:"speech_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (c *LiveClient) readLoop() {
	defer close(c.results)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				select {
				case c.errs <- err:
				default:
				}
			}
			return
		}

		var msg liveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue // ignore unrecognized frames (metadata, keepalives)
		}
		if msg.Type != "" && msg.Type != "Results" {
			continue
		}
		if len(msg.Channel.Alternatives) == 0 {
			continue
		}
		text := msg.Channel.Alternatives[0].Transcript
		if text == "" && !msg.Speech {
			continue
		}

		select {
		case c.results <- LiveResult{Text: text, IsFinal: msg.IsFinal, SpeechFinal: msg.Speech}:
		case <-c.ctx.Done():
			return
		}
	}
}
