// Package client consumes a running thorcamd frame stream over websocket.
package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/visikit/thorcam/pkg/web"
)

// Client connects to a thorcamd instance and receives JPEG frames.
type Client struct {
	addr      string
	framesURL string
	statusURL string

	ws *websocket.Conn

	mu        sync.RWMutex
	connected bool
	closed    bool
	latest    []byte
	frameNo   uint64

	// frameReady is pulsed when a new frame arrives
	frameReady chan struct{}

	// frames carries each frame to channel consumers, drop-new
	frames chan []byte
}

// NewClient creates a client for a daemon at host:port.
func NewClient(addr string) *Client {
	return &Client{
		addr:       addr,
		framesURL:  fmt.Sprintf("ws://%s/ws/frames", addr),
		statusURL:  fmt.Sprintf("http://%s/api/status", addr),
		frameReady: make(chan struct{}, 1),
		frames:     make(chan []byte, 8),
	}
}

// Connect establishes the websocket connection and starts receiving.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client: closed")
	}
	if c.connected {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	ws, _, err := dialer.Dial(c.framesURL, nil)
	if err != nil {
		return fmt.Errorf("client: connect %s: %w", c.framesURL, err)
	}

	c.ws = ws
	c.connected = true
	go c.readLoop(ws)
	return nil
}

// readLoop receives frames until the connection drops.
func (c *Client) readLoop(ws *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		c.mu.Lock()
		c.latest = data
		c.frameNo++
		c.mu.Unlock()

		select {
		case c.frameReady <- struct{}{}:
		default:
		}
		select {
		case c.frames <- data:
		default:
		}
	}
}

// Stream returns a channel receiving JPEG frames as they arrive.
// Delivery is best-effort: frames are dropped when the receiver falls
// behind. Independent of TryFrame and WaitFrame.
func (c *Client) Stream() <-chan []byte {
	return c.frames
}

// TryFrame returns the most recent JPEG frame and its receive counter
// without blocking. Returns (nil, 0, false) before the first frame.
// The same frame may be returned twice; compare counters to dedupe.
func (c *Client) TryFrame() ([]byte, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return nil, 0, false
	}
	return c.latest, c.frameNo, true
}

// WaitFrame blocks until a new frame arrives or the timeout passes.
func (c *Client) WaitFrame(timeout time.Duration) ([]byte, uint64, error) {
	select {
	case <-c.frameReady:
		data, n, _ := c.TryFrame()
		return data, n, nil
	case <-time.After(timeout):
		return nil, 0, fmt.Errorf("client: no frame within %v", timeout)
	}
}

// Connected reports whether the websocket is up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Status fetches the daemon status over HTTP.
func (c *Client) Status() (*web.Status, error) {
	resp, err := http.Get(c.statusURL)
	if err != nil {
		return nil, fmt.Errorf("client: status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("client: status: HTTP %d", resp.StatusCode)
	}

	var status web.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("client: decode status: %w", err)
	}
	return &status, nil
}

// Close shuts down the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.ws != nil {
		c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return c.ws.Close()
	}
	return nil
}
