// obs.go: OBS Studio WebSocket (protocol 4.x) recording backend.
package backend

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tmakinen/recwatch/internal/conf"
	"github.com/tmakinen/recwatch/internal/errors"
)

const (
	obsCallTimeout    = 10 * time.Second
	obsHandshakeLimit = 30 * time.Second
)

// OBSClient drives OBS Studio through its WebSocket control protocol.
// Calls are serialized under a mutex; the protocol correlates responses to
// requests by message-id, and interleaved event pushes are skipped.
type OBSClient struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	addr      string
	password  string
	messageID int
	logger    *slog.Logger
}

// NewOBSClient creates a client for the configured OBS instance. No
// connection is made until Connect.
func NewOBSClient(settings *conf.OBSSettings, logger *slog.Logger) *OBSClient {
	return &OBSClient{
		addr:     fmt.Sprintf("%s:%d", settings.Host, settings.Port),
		password: settings.Password,
		logger:   logger,
	}
}

// obsResponse is the subset of response fields every call cares about.
type obsResponse struct {
	MessageID   string `json:"message-id"`
	Status      string `json:"status"`
	Error       string `json:"error"`
	UpdateType  string `json:"update-type"`
	IsRecording bool   `json:"isRecording"`

	// Auth handshake fields
	AuthRequired bool   `json:"authRequired"`
	Challenge    string `json:"challenge"`
	Salt         string `json:"salt"`
}

// Connect dials the OBS WebSocket endpoint and completes the auth
// handshake when the server requires it.
func (c *OBSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	u := url.URL{Scheme: "ws", Host: c.addr}
	dialer := websocket.Dialer{HandshakeTimeout: obsHandshakeLimit}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return errors.New(err).
			Component("obs").
			Category(errors.CategoryBackend).
			Context("operation", "connect").
			Context("addr", c.addr).
			Build()
	}
	c.conn = conn

	if err := c.authenticate(); err != nil {
		conn.Close()
		c.conn = nil
		return err
	}

	c.logger.Info("connected to OBS", "addr", c.addr)
	return nil
}

// authenticate runs the GetAuthRequired/Authenticate exchange. OBS derives
// the expected response as base64(sha256(base64(sha256(password+salt)) + challenge)).
func (c *OBSClient) authenticate() error {
	resp, err := c.call("GetAuthRequired", nil)
	if err != nil {
		return err
	}
	if !resp.AuthRequired {
		return nil
	}

	secretHash := sha256.Sum256([]byte(c.password + resp.Salt))
	secret := base64.StdEncoding.EncodeToString(secretHash[:])
	authHash := sha256.Sum256([]byte(secret + resp.Challenge))
	authResponse := base64.StdEncoding.EncodeToString(authHash[:])

	_, err = c.call("Authenticate", map[string]any{"auth": authResponse})
	if err != nil {
		return errors.New(err).
			Component("obs").
			Category(errors.CategoryBackend).
			Context("operation", "authenticate").
			Build()
	}
	return nil
}

// IsRecording queries the current recording status from OBS.
func (c *OBSClient) IsRecording() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp, err := c.call("GetRecordingStatus", nil)
	if err != nil {
		return false, err
	}
	return resp.IsRecording, nil
}

// StartRecording asks OBS to begin recording.
func (c *OBSClient) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.call("StartRecording", nil)
	return err
}

// StopRecording asks OBS to stop recording.
func (c *OBSClient) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.call("StopRecording", nil)
	return err
}

// Disconnect closes the control connection.
func (c *OBSClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
		c.conn = nil
		c.logger.Info("disconnected from OBS", "addr", c.addr)
	}
}

// call sends one request and waits for its correlated response. The caller
// must hold c.mu, except during the Connect handshake where the mutex is
// already held by Connect itself.
func (c *OBSClient) call(requestType string, fields map[string]any) (*obsResponse, error) {
	if c.conn == nil {
		return nil, errors.Newf("not connected to OBS").
			Component("obs").
			Category(errors.CategoryBackend).
			Context("request", requestType).
			Build()
	}

	c.messageID++
	id := strconv.Itoa(c.messageID)

	request := map[string]any{
		"request-type": requestType,
		"message-id":   id,
	}
	for k, v := range fields {
		request[k] = v
	}

	deadline := time.Now().Add(obsCallTimeout)
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(request); err != nil {
		return nil, errors.New(err).
			Component("obs").
			Category(errors.CategoryBackend).
			Context("request", requestType).
			Build()
	}

	// Read until the response with our message-id shows up; OBS pushes
	// unsolicited update events on the same connection.
	for {
		_ = c.conn.SetReadDeadline(deadline)
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return nil, errors.New(err).
				Component("obs").
				Category(errors.CategoryBackend).
				Context("request", requestType).
				Build()
		}

		var resp obsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			c.logger.Warn("skipping unparseable OBS message", "error", err)
			continue
		}
		if resp.MessageID != id {
			continue
		}

		if resp.Status != "" && resp.Status != "ok" {
			return nil, errors.Newf("OBS refused %s: %s", requestType, resp.Error).
				Component("obs").
				Category(errors.CategoryBackend).
				Context("request", requestType).
				Build()
		}
		return &resp, nil
	}
}
