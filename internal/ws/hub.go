package ws

import (
	"errors"
	"sync"

	"telegram_miniapp/internal/bridge"
	"telegram_miniapp/internal/bridge/hostproto"
	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/theme"
)

var ErrUnknownButton = errors.New("unknown button")

// Hub holds the simulated host state shared by every connected page.
type Hub struct {
	mu       sync.RWMutex
	pages    map[int64]*Page
	seq      int64
	params   theme.Params
	viewport Viewport

	calls bridge.Registry[Call]
}

func NewHub(params theme.Params, height float64) *Hub {
	return &Hub{
		pages:    make(map[int64]*Page),
		params:   params.WithDefaults(),
		viewport: Viewport{Height: height},
	}
}

func (h *Hub) register(p *Page) {
	h.mu.Lock()
	h.seq++
	p.ID = h.seq
	h.pages[p.ID] = p
	n := len(h.pages)
	h.mu.Unlock()

	logger.Info("devhost: page connected", "page", p.ID, "pages", n)
}

func (h *Hub) unregister(p *Page) {
	h.mu.Lock()
	delete(h.pages, p.ID)
	n := len(h.pages)
	h.mu.Unlock()

	logger.Info("devhost: page disconnected", "page", p.ID, "pages", n)
}

// Pages is the number of connected pages.
func (h *Hub) Pages() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pages)
}

func (h *Hub) Theme() theme.Params {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.params
}

func (h *Hub) Viewport() Viewport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewport
}

// SetTheme replaces the palette and pushes theme_changed to every page.
func (h *Hub) SetTheme(p theme.Params) {
	h.mu.Lock()
	h.params = p.WithDefaults()
	params := h.params
	h.mu.Unlock()

	h.broadcast(hostproto.EventThemeChanged, themeEvent{ThemeParams: params})
}

// SetViewport resizes the simulated window and pushes viewport_changed.
func (h *Hub) SetViewport(vp Viewport) {
	h.mu.Lock()
	h.viewport = vp
	h.mu.Unlock()

	h.broadcast(hostproto.EventViewportChanged, stableViewport(vp))
}

// Press simulates a tap on the back or main button.
func (h *Hub) Press(button string) error {
	switch button {
	case ButtonBack:
		h.broadcast(hostproto.EventBackButtonPressed, nil)
	case ButtonMain:
		h.broadcast(hostproto.EventMainButtonPressed, nil)
	default:
		return ErrUnknownButton
	}
	return nil
}

// OnCall observes every method pages send to the host.
func (h *Hub) OnCall(fn func(Call)) func() {
	return h.calls.Add(fn)
}

func (h *Hub) handleCall(p *Page, msg hostproto.Message) {
	logger.Debug("devhost: call", "page", p.ID, "method", msg.EventType)

	switch msg.EventType {
	case hostproto.MethodExpand:
		vp := h.Viewport()
		vp.IsExpanded = true
		h.SetViewport(vp)
	case hostproto.MethodRequestViewport:
		p.queue(hostproto.EventViewportChanged, stableViewport(h.Viewport()))
	case hostproto.MethodRequestTheme:
		p.queue(hostproto.EventThemeChanged, themeEvent{ThemeParams: h.Theme()})
	}

	h.calls.Emit(Call{PageID: p.ID, Method: msg.EventType, Data: msg.EventData})
}

func (h *Hub) broadcast(eventType string, data any) {
	h.mu.RLock()
	pages := make([]*Page, 0, len(h.pages))
	for _, p := range h.pages {
		pages = append(pages, p)
	}
	h.mu.RUnlock()

	for _, p := range pages {
		p.queue(eventType, data)
	}
}

func stableViewport(vp Viewport) viewportEvent {
	return viewportEvent{Height: vp.Height, IsExpanded: vp.IsExpanded, IsStateStable: true}
}
