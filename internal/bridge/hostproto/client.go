package hostproto

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"telegram_miniapp/internal/bridge"
	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/theme"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// ErrClosed is returned by Post after the connection has shut down.
var ErrClosed = errors.New("hostproto: connection closed")

// Client is a bridge.Native backed by a host websocket. Outbound calls are
// queued and written by a single writer goroutine started by Run.
type Client struct {
	conn     *websocket.Conn
	initData string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	viewport bridge.Viewport
	params   theme.Params
	events   map[string]*bridge.Registry[struct{}]

	back *backButton
	main *mainButton
}

// Dial connects to a host endpoint. initData is the launch payload the host
// handed the page, usually from the tgWebAppData URL fragment.
func Dial(ctx context.Context, url string, header http.Header, initData string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return NewClient(conn, initData), nil
}

func NewClient(conn *websocket.Conn, initData string) *Client {
	c := &Client{
		conn:     conn,
		initData: initData,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
		events:   make(map[string]*bridge.Registry[struct{}]),
	}
	c.back = &backButton{c: c}
	// the host shows the main button enabled until told otherwise
	c.main = &mainButton{c: c, state: mainButtonSetup{IsActive: true}}
	return c
}

// Run pumps the connection until it fails or ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	go c.writePump()
	go func() {
		select {
		case <-ctx.Done():
			c.Shutdown()
		case <-c.done:
		}
	}()

	err := c.readPump()
	c.Shutdown()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Shutdown closes the connection. Safe to call more than once.
func (c *Client) Shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

// Done is closed once the connection has shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Post queues one outbound frame.
func (c *Client) Post(eventType string, data any) error {
	msg, err := encode(eventType, data)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// post is Post for fire-and-forget Native calls.
func (c *Client) post(eventType string, data any) {
	if err := c.Post(eventType, data); err != nil {
		logger.Debug("hostproto: dropped outbound event", "event", eventType, "error", err)
	}
}

func (c *Client) readPump() error {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if malformedFrame(err) {
				logger.Warn("hostproto: skipping malformed frame", "error", err)
				continue
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warn("hostproto: write failed", "error", err)
				c.Shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.EventType {
	case EventViewportChanged:
		var d viewportChanged
		if err := json.Unmarshal(msg.EventData, &d); err != nil {
			logger.Warn("hostproto: bad viewport_changed", "error", err)
			return
		}
		c.mu.Lock()
		c.viewport.Height = d.Height
		c.viewport.IsExpanded = d.IsExpanded
		if d.IsStateStable || c.viewport.StableHeight == 0 {
			c.viewport.StableHeight = d.Height
		}
		c.mu.Unlock()
		c.emit(bridge.EventViewportChanged)
	case EventThemeChanged:
		var d themeChanged
		if err := json.Unmarshal(msg.EventData, &d); err != nil {
			logger.Warn("hostproto: bad theme_changed", "error", err)
			return
		}
		c.mu.Lock()
		c.params = d.ThemeParams
		c.mu.Unlock()
		c.emit(bridge.EventThemeChanged)
	case EventBackButtonPressed:
		c.back.clicks.Emit(struct{}{})
	case EventMainButtonPressed:
		c.main.clicks.Emit(struct{}{})
	default:
		logger.Debug("hostproto: ignoring event", "event", msg.EventType)
	}
}

func (c *Client) registry(event string) *bridge.Registry[struct{}] {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.events[event]
	if !ok {
		r = &bridge.Registry[struct{}]{}
		c.events[event] = r
	}
	return r
}

func (c *Client) emit(event string) {
	c.registry(event).Emit(struct{}{})
}

func (c *Client) Ready()  { c.post(MethodReady, nil) }
func (c *Client) Expand() { c.post(MethodExpand, nil) }

// Close asks the host to close the mini app. It does not close the
// connection; use Shutdown for that.
func (c *Client) Close() { c.post(MethodClose, nil) }

func (c *Client) EnableClosingConfirmation() {
	c.post(MethodSetupClosingBehavior, closingBehavior{NeedConfirmation: true})
}

func (c *Client) DisableClosingConfirmation() {
	c.post(MethodSetupClosingBehavior, closingBehavior{NeedConfirmation: false})
}

// RequestViewport and RequestTheme ask the host to resend its current state.
func (c *Client) RequestViewport() { c.post(MethodRequestViewport, nil) }
func (c *Client) RequestTheme()    { c.post(MethodRequestTheme, nil) }

func (c *Client) Viewport() bridge.Viewport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport
}

func (c *Client) ThemeParams() theme.Params {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

func (c *Client) RawInitData() string { return c.initData }

func (c *Client) OnEvent(event string, fn func()) func() {
	return c.registry(event).Add(func(struct{}) { fn() })
}

func (c *Client) BackButton() bridge.NativeButton      { return c.back }
func (c *Client) MainButton() bridge.NativeMainButton  { return c.main }
func (c *Client) HapticFeedback() bridge.NativeHaptics { return haptics{c: c} }

var (
	_ bridge.Native         = (*Client)(nil)
	_ bridge.BackButtonHost = (*Client)(nil)
	_ bridge.MainButtonHost = (*Client)(nil)
	_ bridge.HapticsHost    = (*Client)(nil)
)

// malformedFrame reports whether a read failed on the frame's content rather
// than the connection.
func malformedFrame(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
