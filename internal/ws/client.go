package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"telegram_miniapp/internal/bridge/hostproto"
	"telegram_miniapp/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 64 << 10
)

// Page is one connected mini app.
type Page struct {
	ID   int64
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub

	done      chan struct{}
	closeOnce sync.Once
}

func NewPage(conn *websocket.Conn, hub *Hub) *Page {
	return &Page{
		Conn: conn,
		Send: make(chan []byte, 256),
		Hub:  hub,
		done: make(chan struct{}),
	}
}

// Run registers the page, sends the current host state and serves the
// connection until it drops.
func (p *Page) Run() {
	p.Hub.register(p)
	go p.writePump()

	p.queue(hostproto.EventThemeChanged, themeEvent{ThemeParams: p.Hub.Theme()})
	p.queue(hostproto.EventViewportChanged, stableViewport(p.Hub.Viewport()))

	p.readPump()
}

// queue drops the frame when the page is gone or too slow to keep up.
func (p *Page) queue(eventType string, data any) {
	msg, err := frame(eventType, data)
	if err != nil {
		logger.Error("devhost: encode event", "event", eventType, "error", err)
		return
	}
	select {
	case <-p.done:
	case p.Send <- msg:
	default:
		logger.Warn("devhost: send buffer full, dropping event", "page", p.ID, "event", eventType)
	}
}

func (p *Page) readPump() {
	defer p.close()

	p.Conn.SetReadLimit(maxMessageSize)
	_ = p.Conn.SetReadDeadline(time.Now().Add(pongWait))
	p.Conn.SetPongHandler(func(string) error {
		return p.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg hostproto.Message
		if err := p.Conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				logger.Warn("devhost: malformed call", "page", p.ID, "error", err)
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("devhost: read error", "page", p.ID, "error", err)
			}
			return
		}
		_ = p.Conn.SetReadDeadline(time.Now().Add(pongWait))
		p.Hub.handleCall(p, msg)
	}
}

func (p *Page) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-p.Send:
			_ = p.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("devhost: write error", "page", p.ID, "error", err)
				p.close()
				return
			}
		case <-ticker.C:
			_ = p.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				p.close()
				return
			}
		case <-p.done:
			return
		}
	}
}

func (p *Page) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.Hub.unregister(p)
		_ = p.Conn.Close()
	})
}
